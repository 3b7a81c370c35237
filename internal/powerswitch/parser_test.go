package powerswitch

import (
	"strings"
	"testing"
)

func testOutlets() []Outlet {
	outlets := make([]Outlet, OutletCount)
	for i := range outlets {
		outlets[i] = Outlet{Index: i + 1, Name: "Outlet", State: StateOff}
	}
	outlets[2] = Outlet{Index: 3, Name: "Router", State: StateOn}
	outlets[6].State = StateOn
	return outlets
}

func TestParseStatus_AdminLayout(t *testing.T) {
	snap, err := ParseStatus([]byte(statusPage(true, testOutlets())), OutletCount)
	if err != nil {
		t.Fatalf("ParseStatus() failed: %v", err)
	}

	if !snap.Admin {
		t.Error("Expected admin layout")
	}
	if len(snap.Outlets) != OutletCount {
		t.Fatalf("Expected %d outlets, got %d", OutletCount, len(snap.Outlets))
	}
	for i, o := range snap.Outlets {
		if o.Index != i+1 {
			t.Errorf("Outlet %d has index %d", i+1, o.Index)
		}
	}

	router, _ := snap.Outlet(3)
	if router.Name != "Router" || router.State != StateOn {
		t.Errorf("Outlet 3 = %+v, want Router ON", router)
	}
	if o, _ := snap.Outlet(1); o.State != StateOff {
		t.Errorf("Outlet 1 state = %s, want OFF", o.State)
	}
}

func TestParseStatus_UserLayout(t *testing.T) {
	snap, err := ParseStatus([]byte(statusPage(false, testOutlets())), OutletCount)
	if err != nil {
		t.Fatalf("ParseStatus() failed: %v", err)
	}

	if snap.Admin {
		t.Error("Expected user layout to be marked non-admin")
	}
	if len(snap.Outlets) != OutletCount {
		t.Fatalf("Expected %d outlets, got %d", OutletCount, len(snap.Outlets))
	}
	if o, _ := snap.Outlet(7); o.State != StateOn {
		t.Errorf("Outlet 7 state = %s, want ON", o.State)
	}
}

func TestParseStatus_NoTable(t *testing.T) {
	tests := []struct {
		name string
		page string
	}{
		{"empty", ""},
		{"login page", `<html><form><input name="Challenge" value="x"></form></html>`},
		{"table without anchors", `<table><tr><td>2</td><td>a</td></tr></table>`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snap, err := ParseStatus([]byte(tt.page), OutletCount)
			if err == nil {
				t.Fatalf("Expected parse error, got snapshot %+v", snap)
			}
			if !IsParseError(err) {
				t.Errorf("Expected parse error, got %v", err)
			}
		})
	}
}

func TestParseStatus_WrongOutletCount(t *testing.T) {
	page := statusPage(true, testOutlets()[:7])

	_, err := ParseStatus([]byte(page), OutletCount)
	if !IsParseError(err) {
		t.Fatalf("Expected parse error for 7 outlets, got %v", err)
	}
	if !strings.Contains(err.Error(), "expected 8 outlets") {
		t.Errorf("Unexpected error message: %v", err)
	}
}

func TestParseStatus_NonContiguous(t *testing.T) {
	outlets := testOutlets()
	outlets[4].Index = 9

	_, err := ParseStatus([]byte(statusPage(true, outlets)), OutletCount)
	if !IsParseError(err) {
		t.Fatalf("Expected parse error for outlet numbered 9, got %v", err)
	}
}

func TestParseStatus_SkipsOtherRows(t *testing.T) {
	page := strings.Replace(statusPage(true, testOutlets()), "</table></body>",
		"<tr><td colspan=5>Master Control</td></tr><tr><td>a</td><td>b</td></tr></table></body>", 1)

	snap, err := ParseStatus([]byte(page), OutletCount)
	if err != nil {
		t.Fatalf("ParseStatus() failed: %v", err)
	}
	if len(snap.Outlets) != OutletCount {
		t.Errorf("Expected %d outlets, got %d", OutletCount, len(snap.Outlets))
	}
}

func TestParseLoginForm(t *testing.T) {
	page := `<form><input name="Username"><input name="Password" value="">` +
		`<input type="hidden" name="Challenge" value="Xyz9"><input type="submit"></form>`

	fields, err := ParseLoginForm(strings.NewReader(page))
	if err != nil {
		t.Fatalf("ParseLoginForm() failed: %v", err)
	}

	if fields["Challenge"] != "Xyz9" {
		t.Errorf("Challenge = %q, want Xyz9", fields["Challenge"])
	}
	if _, ok := fields["Username"]; !ok {
		t.Error("Expected Username field")
	}
	if len(fields) != 3 {
		t.Errorf("Expected 3 named inputs, got %d: %v", len(fields), fields)
	}
}

func TestParseState(t *testing.T) {
	tests := []struct {
		in   string
		want State
	}{
		{"ON", StateOn},
		{" on ", StateOn},
		{"OFF", StateOff},
		{"Off", StateOff},
		{"", StateUnknown},
		{"CCL", StateUnknown},
	}

	for _, tt := range tests {
		if got := ParseState(tt.in); got != tt.want {
			t.Errorf("ParseState(%q) = %s, want %s", tt.in, got, tt.want)
		}
	}
}
