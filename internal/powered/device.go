// Package powered controls equipment that is powered from one outlet of a
// web power switch: a NAS, a test rig, a router. Powering on can wait for the
// equipment to settle before returning.
package powered

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/muurk/dlipower/internal/config"
	"github.com/muurk/dlipower/internal/logging"
	"github.com/muurk/dlipower/internal/powerswitch"
)

// DefaultCycleDelay is the off time used by Cycle
const DefaultCycleDelay = 3 * time.Second

// ErrNoSwitch is returned when the device's switch could not be set up
var ErrNoSwitch = errors.New("device has no power switch")

// Switch is the part of *powerswitch.Client a Device uses
type Switch interface {
	Name() string
	State(ctx context.Context, ref powerswitch.OutletRef) (powerswitch.State, error)
	SetPower(ctx context.Context, ref powerswitch.OutletRef, on bool) (powerswitch.Result, error)
	OutletName(ctx context.Context, ref powerswitch.OutletRef) string
}

// Device is one piece of equipment on one outlet
type Device struct {
	name         string
	sw           Switch
	outlet       int
	delayAfterOn time.Duration
	cycleDelay   time.Duration
}

// Status is the device state reported to monitoring
type Status struct {
	Name    string            `json:"name"`
	Switch  string            `json:"switch"`
	Outlet  int               `json:"outlet"`
	State   powerswitch.State `json:"state"`
	Powered bool              `json:"powered"`
}

// New creates a Device on outlet of sw. A nil sw yields a device whose
// commands return ErrNoSwitch.
func New(name string, sw Switch, outlet int, delayAfterOn time.Duration) *Device {
	return &Device{
		name:         name,
		sw:           sw,
		outlet:       outlet,
		delayAfterOn: delayAfterOn,
		cycleDelay:   DefaultCycleDelay,
	}
}

// FromConfig builds the named device from the configuration file, taking its
// switch client from factory.
func FromConfig(ctx context.Context, file *config.File, factory *powerswitch.Factory, name string) (*Device, error) {
	dc, err := file.Device(name)
	if err != nil {
		return nil, err
	}

	ep, err := file.Endpoint(dc.Switch)
	if err != nil {
		return nil, fmt.Errorf("device %q: %w", name, err)
	}

	client := factory.Get(ctx, ep,
		powerswitch.WithName(dc.Switch),
		powerswitch.WithOutletNames(file.Switches[dc.Switch].Outlets),
	)

	d := New(name, client, dc.Outlet, dc.DelayAfterOn)
	d.cycleDelay = ep.CycleDelay
	return d, nil
}

// WithCycleDelay overrides the off time used by Cycle
func (d *Device) WithCycleDelay(delay time.Duration) *Device {
	d.cycleDelay = delay
	return d
}

// Name returns the device name
func (d *Device) Name() string { return d.name }

// Outlet returns the outlet number the device is plugged into
func (d *Device) Outlet() int { return d.outlet }

func (d *Device) ref() powerswitch.OutletRef {
	return powerswitch.Index(d.outlet)
}

// IsOn reports whether the outlet is known to be on
func (d *Device) IsOn(ctx context.Context) bool {
	if d.sw == nil {
		return false
	}
	state, _ := d.sw.State(ctx, d.ref())
	return state == powerswitch.StateOn
}

// IsOff reports whether the outlet is known to be off
func (d *Device) IsOff(ctx context.Context) bool {
	if d.sw == nil {
		return false
	}
	state, _ := d.sw.State(ctx, d.ref())
	return state == powerswitch.StateOff
}

// PowerOn turns the outlet on unless it already is, then waits delayAfterOn.
func (d *Device) PowerOn(ctx context.Context) error {
	if d.sw == nil {
		return ErrNoSwitch
	}
	if d.IsOn(ctx) {
		return nil
	}

	res, err := d.sw.SetPower(ctx, d.ref(), true)
	if err != nil {
		return fmt.Errorf("power on %s: %w", d.name, err)
	}
	if res != powerswitch.Succeeded || d.delayAfterOn <= 0 {
		return nil
	}

	logging.Info("Delaying after power on",
		zap.String("device", d.name),
		zap.String("outlet", d.sw.OutletName(ctx, d.ref())),
		zap.Duration("delay", d.delayAfterOn),
	)
	return sleep(ctx, d.delayAfterOn)
}

// PowerOff turns the outlet off unless it already is
func (d *Device) PowerOff(ctx context.Context) error {
	if d.sw == nil {
		return ErrNoSwitch
	}
	if d.IsOff(ctx) {
		return nil
	}

	if _, err := d.sw.SetPower(ctx, d.ref(), false); err != nil {
		return fmt.Errorf("power off %s: %w", d.name, err)
	}
	return nil
}

// Cycle powers the device off and on again, or just on if it was off
func (d *Device) Cycle(ctx context.Context) error {
	if d.sw == nil {
		return ErrNoSwitch
	}
	if !d.IsOn(ctx) {
		return d.PowerOn(ctx)
	}

	if err := d.PowerOff(ctx); err != nil {
		return err
	}
	if err := sleep(ctx, d.cycleDelay); err != nil {
		return err
	}
	return d.PowerOn(ctx)
}

// PowerStatus reads the outlet and reports it
func (d *Device) PowerStatus(ctx context.Context) Status {
	s := Status{
		Name:   d.name,
		Outlet: d.outlet,
		State:  powerswitch.StateUnknown,
	}
	if d.sw == nil {
		return s
	}
	s.Switch = d.sw.Name()
	if state, err := d.sw.State(ctx, d.ref()); err == nil {
		s.State = state
	}
	s.Powered = s.State == powerswitch.StateOn
	return s
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
