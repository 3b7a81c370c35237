package powerswitch

import (
	"context"
	"fmt"
)

// Handle binds a Client to one outlet so callers can pass "the router's
// outlet" around instead of a client plus a reference.
type Handle struct {
	client *Client
	ref    OutletRef
}

// Outlet returns a Handle for ref. The reference is resolved on every call.
func (c *Client) Outlet(ref OutletRef) *Handle {
	return &Handle{client: c, ref: ref}
}

// Ref returns the outlet reference the handle was built with
func (h *Handle) Ref() OutletRef { return h.ref }

func (h *Handle) On(ctx context.Context) (Result, error)  { return h.client.On(ctx, h.ref) }
func (h *Handle) Off(ctx context.Context) (Result, error) { return h.client.Off(ctx, h.ref) }
func (h *Handle) Cycle(ctx context.Context) error         { return h.client.Cycle(ctx, h.ref) }

func (h *Handle) State(ctx context.Context) (State, error) { return h.client.State(ctx, h.ref) }

// Name returns the outlet's current name, or UnknownName
func (h *Handle) Name(ctx context.Context) string { return h.client.OutletName(ctx, h.ref) }

// Rename sets the outlet's name
func (h *Handle) Rename(ctx context.Context, name string) (bool, error) {
	return h.client.Rename(ctx, h.ref, name)
}

// Describe renders "name:STATE" from a fresh read
func (h *Handle) Describe(ctx context.Context) string {
	state, _ := h.State(ctx)
	return fmt.Sprintf("%s:%s", h.Name(ctx), state)
}
