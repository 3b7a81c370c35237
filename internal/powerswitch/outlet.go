package powerswitch

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/muurk/dlipower/internal/logging"
)

// Snapshot fetches and parses the status page. A new snapshot is read on every
// call. An unreachable switch yields ErrNotReachable without any request.
func (c *Client) Snapshot(ctx context.Context) (*Snapshot, error) {
	if !c.Reachable() {
		return nil, ErrNotReachable
	}

	body, err := c.request(ctx, statusPath)
	if err != nil {
		return nil, err
	}

	snap, err := ParseStatus(body, c.outletCount)
	if err != nil {
		logging.LogRawBody("Unparsed status page", body)
		return nil, err
	}

	c.admin.Store(snap.Admin)
	return snap, nil
}

// Verify reports whether the status page can currently be read and parsed
func (c *Client) Verify(ctx context.Context) bool {
	_, err := c.Snapshot(ctx)
	return err == nil
}

// Resolve turns an outlet reference into a 1-based index. Numbers are range
// checked; names are looked up in a freshly fetched snapshot.
func (c *Client) Resolve(ctx context.Context, ref OutletRef) (int, error) {
	if !ref.IsName() {
		return c.checkRange(ref)
	}
	index, _, err := c.lookup(ctx, ref)
	return index, err
}

func (c *Client) checkRange(ref OutletRef) (int, error) {
	if ref.index < 1 || ref.index > c.outletCount {
		return 0, NewResolutionError(
			fmt.Sprintf("outlet %d is outside 1..%d", ref.index, c.outletCount),
			ErrOutletOutOfRange,
		)
	}
	return ref.index, nil
}

// resolveIn resolves ref against an existing snapshot
func (c *Client) resolveIn(snap *Snapshot, ref OutletRef) (int, error) {
	if !ref.IsName() {
		return c.checkRange(ref)
	}
	index, ok := snap.Lookup(ref.name)
	if !ok {
		return 0, NewResolutionError(fmt.Sprintf("no outlet named %q", ref.name), ErrUnknownOutlet)
	}
	return index, nil
}

// lookup range-checks numeric references before touching the network, then
// fetches one snapshot and resolves against it.
func (c *Client) lookup(ctx context.Context, ref OutletRef) (int, *Snapshot, error) {
	if !ref.IsName() {
		if _, err := c.checkRange(ref); err != nil {
			return 0, nil, err
		}
	}

	snap, err := c.Snapshot(ctx)
	if err != nil {
		if ref.IsName() {
			return 0, nil, NewResolutionError(
				fmt.Sprintf("cannot resolve outlet %q without a status page", ref.name),
				fmt.Errorf("%w: %w", ErrUnknownOutlet, err),
			)
		}
		return 0, nil, err
	}

	index, err := c.resolveIn(snap, ref)
	if err != nil {
		return 0, nil, err
	}
	return index, snap, nil
}

// State returns the outlet's state. Anything short of a readable status page
// yields StateUnknown together with the reason.
func (c *Client) State(ctx context.Context, ref OutletRef) (State, error) {
	index, snap, err := c.lookup(ctx, ref)
	if err != nil {
		return StateUnknown, err
	}
	o, ok := snap.Outlet(index)
	if !ok {
		return StateUnknown, nil
	}
	return o.State, nil
}

// IsOn reports whether the outlet is known to be on
func (c *Client) IsOn(ctx context.Context, ref OutletRef) bool {
	state, _ := c.State(ctx, ref)
	return state == StateOn
}

// IsOff reports whether the outlet is known to be off
func (c *Client) IsOff(ctx context.Context, ref OutletRef) bool {
	state, _ := c.State(ctx, ref)
	return state == StateOff
}

// OutletName returns the name the switch reports for an outlet, or
// UnknownName when it cannot be read.
func (c *Client) OutletName(ctx context.Context, ref OutletRef) string {
	index, snap, err := c.lookup(ctx, ref)
	if err != nil {
		return UnknownName
	}
	o, ok := snap.Outlet(index)
	if !ok {
		return UnknownName
	}
	return o.Name
}

// On turns an outlet on
func (c *Client) On(ctx context.Context, ref OutletRef) (Result, error) {
	return c.SetPower(ctx, ref, true)
}

// Off turns an outlet off
func (c *Client) Off(ctx context.Context, ref OutletRef) (Result, error) {
	return c.SetPower(ctx, ref, false)
}

// SetPower switches an outlet on or off.
//
// If the outlet is already in the requested state no command is sent and
// AlreadyInState is returned. Otherwise one command is sent and the status
// page is read again; a state that did not change is reported as Failed with
// a verification error. Failures are not retried here beyond the transport's
// own connection retries.
func (c *Client) SetPower(ctx context.Context, ref OutletRef, on bool) (Result, error) {
	want := StateOff
	if on {
		want = StateOn
	}

	index, snap, err := c.lookup(ctx, ref)
	if err != nil {
		return Failed, err
	}

	if o, ok := snap.Outlet(index); ok && o.State == want {
		logging.Info("Outlet already in requested state",
			zap.String("switch", c.name),
			zap.Int("outlet", index),
			zap.String("state", string(want)),
		)
		return AlreadyInState, nil
	}

	if _, err := c.request(ctx, fmt.Sprintf("outlet?%d=%s", index, want)); err != nil {
		return Failed, err
	}

	after, err := c.Snapshot(ctx)
	if err != nil {
		return Failed, err
	}
	if o, ok := after.Outlet(index); !ok || o.State != want {
		return Failed, NewVerificationError(
			fmt.Sprintf("outlet %d is %s after requesting %s", index, o.State, want),
		)
	}

	logging.Info("Switched outlet",
		zap.String("switch", c.name),
		zap.Int("outlet", index),
		zap.String("state", string(want)),
	)
	return Succeeded, nil
}

// Cycle power-cycles an outlet. An outlet that is off is simply turned on;
// otherwise it is turned off, left off for the endpoint's CycleDelay and
// turned on again.
//
// Only an invalid outlet reference (or ctx ending during the off period) is
// returned; the outcome of either phase is not reported.
func (c *Client) Cycle(ctx context.Context, ref OutletRef) error {
	index, snap, err := c.lookup(ctx, ref)
	if err != nil {
		if IsResolutionError(err) {
			return err
		}
		logging.Warn("Cannot cycle outlet",
			zap.String("switch", c.name),
			zap.Stringer("outlet", ref),
			zap.Error(err),
		)
		return nil
	}

	target := Index(index)
	if o, ok := snap.Outlet(index); ok && o.State == StateOff {
		c.logPhase(c.On(ctx, target))
		return nil
	}

	c.logPhase(c.Off(ctx, target))
	if err := sleepContext(ctx, c.endpoint.CycleDelay); err != nil {
		return err
	}
	c.logPhase(c.On(ctx, target))
	return nil
}

func (c *Client) logPhase(result Result, err error) {
	if err != nil {
		logging.Warn("Cycle phase failed",
			zap.String("switch", c.name),
			zap.Stringer("result", result),
			zap.Error(err),
		)
	}
}

// Rename sets an outlet's name and reports whether the switch now shows
// exactly that name.
func (c *Client) Rename(ctx context.Context, ref OutletRef, name string) (bool, error) {
	if err := ValidateOutletName(name); err != nil {
		return false, err
	}

	index, _, err := c.lookup(ctx, ref)
	if err != nil {
		return false, err
	}

	if _, err := c.request(ctx, fmt.Sprintf("unitnames.cgi?outname%d=%s", index, escapeName(name))); err != nil {
		return false, err
	}

	got := c.OutletName(ctx, Index(index))
	if got != name {
		logging.Warn("Outlet name did not change",
			zap.String("switch", c.name),
			zap.Int("outlet", index),
			zap.String("want", name),
			zap.String("got", got),
		)
		return false, nil
	}
	return true, nil
}

// escapeName percent-encodes an outlet name, spaces as %20
func escapeName(name string) string {
	return strings.ReplaceAll(url.QueryEscape(name), "+", "%20")
}

// ApplyNames renames the outlets listed in names whose current name differs.
// It is best-effort: failures are logged and the remaining outlets are still
// tried. Outlets not in names are left alone.
func (c *Client) ApplyNames(ctx context.Context, names map[int]string) {
	snap, err := c.Snapshot(ctx)
	if err != nil {
		logging.Warn("Cannot read outlet names",
			zap.String("switch", c.name),
			zap.Error(err),
		)
		return
	}

	indices := make([]int, 0, len(names))
	for index := range names {
		indices = append(indices, index)
	}
	sort.Ints(indices)

	for _, index := range indices {
		want := names[index]
		if o, ok := snap.Outlet(index); ok && o.Name == want {
			continue
		}
		ok, err := c.Rename(ctx, Index(index), want)
		if err != nil || !ok {
			logging.Warn("Cannot apply outlet name",
				zap.String("switch", c.name),
				zap.Int("outlet", index),
				zap.String("name", want),
				zap.Error(err),
			)
		}
	}
}
