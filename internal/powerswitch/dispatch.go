package powerswitch

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Outcome is the result of a command on one outlet.
type Outcome struct {
	Ref    OutletRef
	Index  int
	Result Result
	Value  string // set by CommandStatus
	Err    error
}

// DispatchResult aggregates the outcomes of one Dispatch call.
type DispatchResult struct {
	Command Command

	// Failed is true when any outcome's legacy boolean is true
	Failed bool

	// Values holds the state strings of CommandStatus, in completion order
	Values []string

	// Outcomes are in completion order, not request order
	Outcomes []Outcome
}

// Dispatch runs cmd on every outlet in refs.
//
// All references are resolved against a single snapshot before any command
// runs, so an invalid reference fails the whole call and nothing is switched.
// A single outlet runs on the calling goroutine; several run concurrently, one
// goroutine per outlet. CommandRename takes the new name as args[0].
func (c *Client) Dispatch(ctx context.Context, cmd Command, refs []OutletRef, args ...string) (*DispatchResult, error) {
	run, err := c.commandFunc(cmd, args)
	if err != nil {
		return nil, err
	}

	result := &DispatchResult{Command: cmd}
	if !c.Reachable() || len(refs) == 0 {
		result.Failed = cmd.Boolean()
		return result, nil
	}

	indices, err := c.resolveAll(ctx, refs)
	if err != nil {
		return nil, err
	}

	if len(refs) == 1 {
		result.add(run(ctx, refs[0], indices[0]))
		return result, nil
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(len(refs))
	for i, ref := range refs {
		ref := ref
		index := indices[i]
		g.Go(func() error {
			out := run(gctx, ref, index)
			mu.Lock()
			result.add(out)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	return result, nil
}

func (r *DispatchResult) add(out Outcome) {
	r.Outcomes = append(r.Outcomes, out)
	if r.Command.Boolean() {
		if out.Result.Legacy() {
			r.Failed = true
		}
		return
	}
	r.Values = append(r.Values, out.Value)
}

// resolveAll resolves every reference against one snapshot. Purely numeric
// requests are range checked without fetching the page.
func (c *Client) resolveAll(ctx context.Context, refs []OutletRef) ([]int, error) {
	var snap *Snapshot
	indices := make([]int, len(refs))
	for i, ref := range refs {
		if ref.IsName() && snap == nil {
			s, err := c.Snapshot(ctx)
			if err != nil {
				return nil, NewResolutionError(
					fmt.Sprintf("cannot resolve outlet %q without a status page", ref.name),
					fmt.Errorf("%w: %w", ErrUnknownOutlet, err),
				)
			}
			snap = s
		}
		index, err := c.resolveIn(snap, ref)
		if err != nil {
			return nil, err
		}
		indices[i] = index
	}
	return indices, nil
}

type commandFunc func(ctx context.Context, ref OutletRef, index int) Outcome

// commandFunc maps a Command onto the client operation it runs
func (c *Client) commandFunc(cmd Command, args []string) (commandFunc, error) {
	switch cmd {
	case CommandOn, CommandOff:
		on := cmd == CommandOn
		return func(ctx context.Context, ref OutletRef, index int) Outcome {
			res, err := c.SetPower(ctx, Index(index), on)
			return Outcome{Ref: ref, Index: index, Result: res, Err: err}
		}, nil

	case CommandCycle:
		return func(ctx context.Context, ref OutletRef, index int) Outcome {
			err := c.Cycle(ctx, Index(index))
			res := Succeeded
			if err != nil {
				res = Failed
			}
			return Outcome{Ref: ref, Index: index, Result: res, Err: err}
		}, nil

	case CommandRename:
		if len(args) != 1 {
			return nil, NewValidationError("rename takes exactly one name")
		}
		name := args[0]
		if err := ValidateOutletName(name); err != nil {
			return nil, err
		}
		return func(ctx context.Context, ref OutletRef, index int) Outcome {
			ok, err := c.Rename(ctx, Index(index), name)
			res := Succeeded
			if !ok {
				res = Failed
			}
			return Outcome{Ref: ref, Index: index, Result: res, Err: err}
		}, nil

	case CommandStatus:
		return func(ctx context.Context, ref OutletRef, index int) Outcome {
			state, err := c.State(ctx, Index(index))
			return Outcome{Ref: ref, Index: index, Value: string(state), Err: err}
		}, nil

	default:
		return nil, NewValidationError(fmt.Sprintf("unsupported command %s", cmd))
	}
}
