package config

import (
	"fmt"
	"sort"
	"time"

	"github.com/muurk/dlipower/internal/powerswitch"
)

// CurrentVersion is the only config file version this build reads
const CurrentVersion = 1

// File represents the entire user configuration file.
// It holds switch endpoints with their desired outlet names, switched
// devices, MQTT bridge settings and the last-used connection defaults.
type File struct {
	Version  int                `yaml:"version"`
	Defaults *Defaults          `yaml:"defaults,omitempty"`
	Switches map[string]*Switch `yaml:"switches,omitempty"` // Keyed by switch name
	Devices  map[string]*Device `yaml:"devices,omitempty"`  // Keyed by device name
	MQTT     *MQTT              `yaml:"mqtt,omitempty"`

	path string
}

// Defaults are used for any switch field left unset, and for ad-hoc
// --hostname invocations.
type Defaults struct {
	Hostname  string        `yaml:"hostname,omitempty"`
	Username  string        `yaml:"username,omitempty"`
	Password  string        `yaml:"password,omitempty"` // Stored in plain text; the file is 0600
	Timeout   time.Duration `yaml:"timeout,omitempty"`
	Retries   int           `yaml:"retries,omitempty"`
	CycleTime time.Duration `yaml:"cycle_time,omitempty"`
	HTTPS     bool          `yaml:"https,omitempty"`
}

// Switch is one named power switch.
type Switch struct {
	Hostname  string         `yaml:"hostname"`
	Username  string         `yaml:"username,omitempty"`
	Password  string         `yaml:"password,omitempty"`
	Timeout   time.Duration  `yaml:"timeout,omitempty"`
	Retries   int            `yaml:"retries,omitempty"`
	CycleTime time.Duration  `yaml:"cycle_time,omitempty"`
	HTTPS     *bool          `yaml:"https,omitempty"`
	Outlets   map[int]string `yaml:"outlets,omitempty"` // Desired outlet names, keyed by outlet number
}

// Device is a piece of equipment powered from one outlet of a named switch.
type Device struct {
	Switch       string        `yaml:"switch"`
	Outlet       int           `yaml:"outlet"`
	DelayAfterOn time.Duration `yaml:"delay_after_on,omitempty"` // Settle time after power on
}

// MQTT configures the MQTT bridge.
type MQTT struct {
	Broker      string        `yaml:"broker"`
	ClientID    string        `yaml:"client_id,omitempty"`
	Username    string        `yaml:"username,omitempty"`
	Password    string        `yaml:"password,omitempty"`
	TopicPrefix string        `yaml:"topic_prefix,omitempty"`
	Interval    time.Duration `yaml:"interval,omitempty"` // Status publish interval
}

// NewFile creates a new File with the factory defaults.
func NewFile() *File {
	return &File{
		Version:  CurrentVersion,
		Defaults: defaultDefaults(),
		Switches: make(map[string]*Switch),
		Devices:  make(map[string]*Device),
	}
}

func defaultDefaults() *Defaults {
	return &Defaults{
		Hostname:  powerswitch.DefaultHostname,
		Username:  powerswitch.DefaultUsername,
		Password:  powerswitch.DefaultPassword,
		Timeout:   powerswitch.DefaultTimeout,
		Retries:   powerswitch.DefaultRetries,
		CycleTime: powerswitch.DefaultCycleDelay,
	}
}

// Path returns the file the configuration was loaded from
func (f *File) Path() string {
	return f.path
}

// DefaultEndpoint builds an endpoint from the defaults section alone
func (f *File) DefaultEndpoint() powerswitch.Endpoint {
	d := f.Defaults
	if d == nil {
		d = defaultDefaults()
	}

	ep := powerswitch.DefaultEndpoint(d.Hostname)
	if d.Username != "" {
		ep.Username = d.Username
	}
	if d.Password != "" {
		ep.Password = d.Password
	}
	if d.Timeout > 0 {
		ep.Timeout = d.Timeout
	}
	if d.Retries > 0 {
		ep.Retries = d.Retries
	}
	if d.CycleTime > 0 {
		ep.CycleDelay = d.CycleTime
	}
	ep.UseHTTPS = d.HTTPS
	return ep
}

// Endpoint builds the endpoint for the named switch, filling unset fields
// from the defaults section.
func (f *File) Endpoint(name string) (powerswitch.Endpoint, error) {
	sw, ok := f.Switches[name]
	if !ok {
		return powerswitch.Endpoint{}, fmt.Errorf("unknown switch %q", name)
	}

	ep := f.DefaultEndpoint()
	ep.Hostname = sw.Hostname
	if sw.Username != "" {
		ep.Username = sw.Username
	}
	if sw.Password != "" {
		ep.Password = sw.Password
	}
	if sw.Timeout > 0 {
		ep.Timeout = sw.Timeout
	}
	if sw.Retries > 0 {
		ep.Retries = sw.Retries
	}
	if sw.CycleTime > 0 {
		ep.CycleDelay = sw.CycleTime
	}
	if sw.HTTPS != nil {
		ep.UseHTTPS = *sw.HTTPS
	}
	return ep, nil
}

// SwitchNames returns the configured switch names in sorted order
func (f *File) SwitchNames() []string {
	names := make([]string, 0, len(f.Switches))
	for name := range f.Switches {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DeviceNames returns the configured device names in sorted order
func (f *File) DeviceNames() []string {
	names := make([]string, 0, len(f.Devices))
	for name := range f.Devices {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Device returns the named switched device
func (f *File) Device(name string) (*Device, error) {
	d, ok := f.Devices[name]
	if !ok {
		return nil, fmt.Errorf("unknown device %q", name)
	}
	return d, nil
}

// EnsureSwitch ensures a switch entry exists.
// If it doesn't, an entry for hostname is created.
func (f *File) EnsureSwitch(name, hostname string) *Switch {
	if f.Switches == nil {
		f.Switches = make(map[string]*Switch)
	}
	if sw, ok := f.Switches[name]; ok {
		return sw
	}
	sw := &Switch{Hostname: hostname}
	f.Switches[name] = sw
	return sw
}

// SetOutletName records the desired name of an outlet on a switch
func (f *File) SetOutletName(switchName string, index int, name string) error {
	sw, ok := f.Switches[switchName]
	if !ok {
		return fmt.Errorf("unknown switch %q", switchName)
	}
	if sw.Outlets == nil {
		sw.Outlets = make(map[int]string)
	}
	sw.Outlets[index] = name
	return nil
}

// RememberDefaults stores the connection settings of ep as the new defaults
func (f *File) RememberDefaults(ep powerswitch.Endpoint) {
	f.Defaults = &Defaults{
		Hostname:  ep.Hostname,
		Username:  ep.Username,
		Password:  ep.Password,
		Timeout:   ep.Timeout,
		Retries:   ep.Retries,
		CycleTime: ep.CycleDelay,
		HTTPS:     ep.UseHTTPS,
	}
}

// Validate checks cross references and value ranges.
// Returns a slice of validation errors (empty if valid).
func (f *File) Validate() []error {
	var errs []error

	for _, name := range f.SwitchNames() {
		sw := f.Switches[name]
		if err := powerswitch.ValidateHostname(sw.Hostname); err != nil {
			errs = append(errs, fmt.Errorf("switch %q: %w", name, err))
		}
		for index, outletName := range sw.Outlets {
			if index < 1 || index > powerswitch.OutletCount {
				errs = append(errs, fmt.Errorf("switch %q: outlet %d is outside 1..%d", name, index, powerswitch.OutletCount))
			}
			if err := powerswitch.ValidateOutletName(outletName); err != nil {
				errs = append(errs, fmt.Errorf("switch %q outlet %d: %w", name, index, err))
			}
		}
	}

	for _, name := range f.DeviceNames() {
		d := f.Devices[name]
		if _, ok := f.Switches[d.Switch]; !ok {
			errs = append(errs, fmt.Errorf("device %q: unknown switch %q", name, d.Switch))
		}
		if d.Outlet < 1 || d.Outlet > powerswitch.OutletCount {
			errs = append(errs, fmt.Errorf("device %q: outlet %d is outside 1..%d", name, d.Outlet, powerswitch.OutletCount))
		}
		if d.DelayAfterOn < 0 {
			errs = append(errs, fmt.Errorf("device %q: delay_after_on must not be negative", name))
		}
	}

	if f.MQTT != nil && f.MQTT.Broker == "" {
		errs = append(errs, fmt.Errorf("mqtt: broker is required"))
	}

	return errs
}

const redacted = "********"

// Redacted returns a copy with every password replaced, for display
func (f *File) Redacted() *File {
	out := *f
	if f.Defaults != nil {
		d := *f.Defaults
		d.Password = redactString(d.Password)
		out.Defaults = &d
	}
	out.Switches = make(map[string]*Switch, len(f.Switches))
	for name, sw := range f.Switches {
		c := *sw
		c.Password = redactString(c.Password)
		out.Switches[name] = &c
	}
	if f.MQTT != nil {
		m := *f.MQTT
		m.Password = redactString(m.Password)
		out.MQTT = &m
	}
	return &out
}

func redactString(s string) string {
	if s == "" {
		return ""
	}
	return redacted
}
