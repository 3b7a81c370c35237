package powerswitch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func newTestClient(t *testing.T, f *fakeSwitch, opts ...Option) *Client {
	t.Helper()
	client := New(context.Background(), f.endpoint(), opts...)
	if !client.Reachable() {
		t.Fatalf("fake switch not reachable: %v", client.LastError())
	}
	t.Cleanup(client.Close)
	return client
}

func TestSetPower_AlreadyOnIsNoop(t *testing.T) {
	f := newFakeSwitch(t)
	f.set(3, true)
	client := newTestClient(t, f)

	before := f.count("/outlet")
	res, err := client.On(context.Background(), Index(3))
	after := f.count("/outlet")

	if err != nil {
		t.Fatalf("On() failed: %v", err)
	}
	if res != AlreadyInState {
		t.Errorf("On() = %v, want %v", res, AlreadyInState)
	}
	if !res.Legacy() {
		t.Error("Expected legacy result true for a no-op")
	}
	if before != after {
		t.Errorf("Expected no command request, count went from %d to %d", before, after)
	}
}

func TestSetPower_SwitchesAndVerifies(t *testing.T) {
	f := newFakeSwitch(t)
	client := newTestClient(t, f)

	statusBefore := f.count("/index.htm")
	res, err := client.On(context.Background(), Index(5))
	if err != nil {
		t.Fatalf("On() failed: %v", err)
	}

	if res != Succeeded {
		t.Errorf("On() = %v, want %v", res, Succeeded)
	}
	if res.Legacy() {
		t.Error("Expected legacy result false for a successful switch")
	}
	if got := f.commandLog(); len(got) != 1 || got[0] != "5=ON" {
		t.Errorf("Expected exactly one command 5=ON, got %v", got)
	}
	// one read to check the current state, one to verify
	if n := f.count("/index.htm") - statusBefore; n != 2 {
		t.Errorf("Expected 2 status fetches, got %d", n)
	}
	if !f.isOn(5) {
		t.Error("Expected outlet 5 to be on")
	}
}

func TestSetPower_VerificationMismatch(t *testing.T) {
	f := newFakeSwitch(t, func(f *fakeSwitch) { f.stuck[4] = true })
	client := newTestClient(t, f)

	res, err := client.On(context.Background(), Index(4))

	if res != Failed {
		t.Errorf("On() = %v, want %v", res, Failed)
	}
	if !IsVerificationError(err) {
		t.Errorf("Expected verification error, got %v", err)
	}
	if f.count("/outlet") != 1 {
		t.Errorf("Expected the command not to be retried, got %d requests", f.count("/outlet"))
	}
}

func TestSetPower_ByName(t *testing.T) {
	f := newFakeSwitch(t)
	f.setName(6, "NAS")
	f.set(6, true)
	client := newTestClient(t, f)

	res, err := client.Off(context.Background(), Name("NAS"))
	if err != nil {
		t.Fatalf("Off() failed: %v", err)
	}
	if res != Succeeded {
		t.Errorf("Off() = %v, want %v", res, Succeeded)
	}
	if f.isOn(6) {
		t.Error("Expected outlet 6 to be off")
	}
}

func TestSetPower_Unreachable(t *testing.T) {
	client := NewUnconnected(DefaultEndpoint("127.0.0.1:1"))

	res, err := client.Off(context.Background(), Index(1))

	if res != Failed {
		t.Errorf("Off() = %v, want %v", res, Failed)
	}
	if !errors.Is(err, ErrNotReachable) {
		t.Errorf("Expected ErrNotReachable, got %v", err)
	}
}

func TestSetPower_InvalidReferenceSendsNothing(t *testing.T) {
	f := newFakeSwitch(t)
	client := newTestClient(t, f)

	_, err := client.On(context.Background(), Index(9))
	if !IsResolutionError(err) {
		t.Fatalf("Expected resolution error, got %v", err)
	}
	if f.count("/outlet") != 0 {
		t.Errorf("Expected no command request, got %d", f.count("/outlet"))
	}
}

func TestResolve(t *testing.T) {
	f := newFakeSwitch(t)
	f.setName(3, "Router")
	client := newTestClient(t, f)
	ctx := context.Background()

	index, err := client.Resolve(ctx, Name("Router"))
	if err != nil || index != 3 {
		t.Errorf("Resolve(Router) = %d, %v; want 3, nil", index, err)
	}

	index, err = client.Resolve(ctx, Name("  Router "))
	if err != nil || index != 3 {
		t.Errorf("Resolve(padded Router) = %d, %v; want 3, nil", index, err)
	}

	_, err = client.Resolve(ctx, Name("router"))
	if !errors.Is(err, ErrUnknownOutlet) {
		t.Errorf("Expected name lookup to be case-sensitive, got %v", err)
	}

	_, err = client.Resolve(ctx, Name("Nonexistent"))
	if !IsResolutionError(err) || !errors.Is(err, ErrUnknownOutlet) {
		t.Errorf("Resolve(Nonexistent) error = %v, want ErrUnknownOutlet", err)
	}

	_, err = client.Resolve(ctx, Index(99))
	if !IsResolutionError(err) || !errors.Is(err, ErrOutletOutOfRange) {
		t.Errorf("Resolve(99) error = %v, want ErrOutletOutOfRange", err)
	}

	_, err = client.Resolve(ctx, Index(0))
	if !errors.Is(err, ErrOutletOutOfRange) {
		t.Errorf("Resolve(0) error = %v, want ErrOutletOutOfRange", err)
	}

	index, err = client.Resolve(ctx, Index(8))
	if err != nil || index != 8 {
		t.Errorf("Resolve(8) = %d, %v; want 8, nil", index, err)
	}
}

func TestResolve_NameIsNotCached(t *testing.T) {
	f := newFakeSwitch(t)
	f.setName(2, "Lamp")
	client := newTestClient(t, f)

	if index, _ := client.Resolve(context.Background(), Name("Lamp")); index != 2 {
		t.Fatalf("Resolve(Lamp) = %d, want 2", index)
	}

	f.setName(2, "Outlet 2")
	f.setName(7, "Lamp")

	if index, _ := client.Resolve(context.Background(), Name("Lamp")); index != 7 {
		t.Errorf("Resolve(Lamp) after rename on the panel = %d, want 7", index)
	}
}

func TestState(t *testing.T) {
	f := newFakeSwitch(t)
	f.set(1, true)
	client := newTestClient(t, f)
	ctx := context.Background()

	if state, err := client.State(ctx, Index(1)); err != nil || state != StateOn {
		t.Errorf("State(1) = %s, %v; want ON", state, err)
	}
	if !client.IsOn(ctx, Index(1)) || client.IsOff(ctx, Index(1)) {
		t.Error("Expected outlet 1 on")
	}
	if !client.IsOff(ctx, Index(2)) {
		t.Error("Expected outlet 2 off")
	}
}

func TestState_UnknownWhenStatusUnavailable(t *testing.T) {
	f := newFakeSwitch(t, func(f *fakeSwitch) { f.failIndex = http.StatusInternalServerError })
	client := newTestClient(t, f)

	state, err := client.State(context.Background(), Index(1))
	if state != StateUnknown {
		t.Errorf("State() = %s, want %s", state, StateUnknown)
	}
	if !IsHTTPError(err) {
		t.Errorf("Expected HTTP error, got %v", err)
	}
	if name := client.OutletName(context.Background(), Index(1)); name != UnknownName {
		t.Errorf("OutletName() = %q, want %q", name, UnknownName)
	}
}

func TestCycle_OnOutlet(t *testing.T) {
	f := newFakeSwitch(t)
	f.set(2, true)
	client := newTestClient(t, f)

	if err := client.Cycle(context.Background(), Index(2)); err != nil {
		t.Fatalf("Cycle() failed: %v", err)
	}

	got := f.commandLog()
	if len(got) != 2 || got[0] != "2=OFF" || got[1] != "2=ON" {
		t.Errorf("Expected commands [2=OFF 2=ON], got %v", got)
	}
	if !f.isOn(2) {
		t.Error("Expected outlet 2 to end on")
	}
}

func TestCycle_OffOutletJustTurnsOn(t *testing.T) {
	f := newFakeSwitch(t)
	client := newTestClient(t, f)

	if err := client.Cycle(context.Background(), Index(4)); err != nil {
		t.Fatalf("Cycle() failed: %v", err)
	}

	got := f.commandLog()
	if len(got) != 1 || got[0] != "4=ON" {
		t.Errorf("Expected commands [4=ON], got %v", got)
	}
}

func TestCycle_UnknownOutlet(t *testing.T) {
	f := newFakeSwitch(t)
	client := newTestClient(t, f)

	err := client.Cycle(context.Background(), Name("Nope"))
	if !errors.Is(err, ErrUnknownOutlet) {
		t.Errorf("Expected ErrUnknownOutlet, got %v", err)
	}
	if f.count("/outlet") != 0 {
		t.Errorf("Expected no commands, got %d", f.count("/outlet"))
	}
}

func TestRename_RoundTrip(t *testing.T) {
	f := newFakeSwitch(t)
	client := newTestClient(t, f)
	ctx := context.Background()

	ok, err := client.Rename(ctx, Index(2), "NewName")
	if err != nil || !ok {
		t.Fatalf("Rename() = %v, %v; want true, nil", ok, err)
	}

	snap, err := client.Snapshot(ctx)
	if err != nil {
		t.Fatalf("Snapshot() failed: %v", err)
	}
	if o, _ := snap.Outlet(2); o.Name != "NewName" {
		t.Errorf("Outlet 2 name = %q, want NewName", o.Name)
	}
}

func TestRename_EncodesSpaces(t *testing.T) {
	f := newFakeSwitch(t)
	client := newTestClient(t, f)

	ok, err := client.Rename(context.Background(), Index(1), "Lab Bench & Co")
	if err != nil || !ok {
		t.Fatalf("Rename() = %v, %v; want true, nil", ok, err)
	}
	if name := client.OutletName(context.Background(), Index(1)); name != "Lab Bench & Co" {
		t.Errorf("OutletName() = %q", name)
	}
}

func TestRename_RejectsEmptyName(t *testing.T) {
	f := newFakeSwitch(t)
	client := newTestClient(t, f)

	_, err := client.Rename(context.Background(), Index(1), "  ")
	if !IsValidationError(err) {
		t.Errorf("Expected validation error, got %v", err)
	}
	if f.count("/unitnames.cgi") != 0 {
		t.Error("Expected no rename request")
	}
}

func TestEscapeName(t *testing.T) {
	if got := escapeName("Lab Bench/2"); got != "Lab%20Bench%2F2" {
		t.Errorf("escapeName() = %q", got)
	}
}

func TestNew_AppliesDesiredNames(t *testing.T) {
	f := newFakeSwitch(t)
	f.setName(2, "Switch")

	client := newTestClient(t, f, WithOutletNames(map[int]string{
		1: "Router",
		2: "Switch",
	}))

	if f.count("/unitnames.cgi") != 1 {
		t.Errorf("Expected only outlet 1 to be renamed, got %d rename requests", f.count("/unitnames.cgi"))
	}
	if name := client.OutletName(context.Background(), Index(1)); name != "Router" {
		t.Errorf("Outlet 1 name = %q, want Router", name)
	}
	if name := client.OutletName(context.Background(), Index(3)); name != "Outlet 3" {
		t.Errorf("Outlet 3 should keep its name, got %q", name)
	}
}

func TestIsAdmin_UserLayout(t *testing.T) {
	f := newFakeSwitch(t, func(f *fakeSwitch) { f.admin = false })
	client := newTestClient(t, f)

	if !client.IsAdmin() {
		t.Error("Expected IsAdmin() true before the first status read")
	}

	snap, err := client.Snapshot(context.Background())
	if err != nil {
		t.Fatalf("Snapshot() failed: %v", err)
	}
	if snap.Admin || client.IsAdmin() {
		t.Error("Expected user layout to clear the admin flag")
	}
}

func TestSnapshot_LoginPageIsParseError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/login.tgi" {
			return
		}
		_, _ = w.Write([]byte(`<form><input name="Challenge" value="c"></form>`))
	}))
	defer server.Close()

	client := New(context.Background(), DefaultEndpoint(strings.TrimPrefix(server.URL, "http://")))
	if !client.Reachable() {
		t.Fatalf("Expected login to succeed: %v", client.LastError())
	}

	snap, err := client.Snapshot(context.Background())
	if snap != nil || !IsParseError(err) {
		t.Errorf("Snapshot() = %v, %v; want nil, parse error", snap, err)
	}
	if client.Verify(context.Background()) {
		t.Error("Expected Verify() false")
	}
}
