package powerswitch

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	// DefaultHostname is the factory address of a Digital Loggers web power switch
	DefaultHostname = "192.168.0.100"

	// DefaultUsername is the factory administrator account
	DefaultUsername = "admin"

	// DefaultPassword is the password used when none is configured
	DefaultPassword = "4321"

	// DefaultTimeout is the per-request HTTP timeout
	DefaultTimeout = 2 * time.Second

	// DefaultRetries is the number of attempts made for each request
	DefaultRetries = 3

	// DefaultRetryDelay is the initial delay between attempts
	DefaultRetryDelay = 250 * time.Millisecond

	// DefaultMaxRetryDelay is the maximum delay for exponential backoff
	DefaultMaxRetryDelay = 2 * time.Second

	// DefaultCycleDelay is how long an outlet stays off during a power cycle
	DefaultCycleDelay = 3 * time.Second

	// OutletCount is the fixed number of outlets on this switch family
	OutletCount = 8

	// UnknownName is reported when an outlet name cannot be read
	UnknownName = "Unknown"
)

// Endpoint describes how to reach one switch. It is immutable once a Client
// has been built from it.
type Endpoint struct {
	// Hostname is the switch address, optionally with a port ("10.0.0.5:8080")
	Hostname string

	// UseHTTPS selects https:// instead of http://
	UseHTTPS bool

	// Username and Password are the web UI credentials
	Username string
	Password string

	// Timeout is applied to each individual HTTP request
	Timeout time.Duration

	// Retries is the total number of attempts per request on connection failures
	Retries int

	// RetryDelay is the initial delay between attempts, doubled after each one
	RetryDelay time.Duration

	// MaxRetryDelay caps the exponential backoff
	MaxRetryDelay time.Duration

	// CycleDelay is the off time used by Cycle
	CycleDelay time.Duration
}

// DefaultEndpoint returns an Endpoint for hostname with the factory defaults.
func DefaultEndpoint(hostname string) Endpoint {
	return Endpoint{
		Hostname:      hostname,
		Username:      DefaultUsername,
		Password:      DefaultPassword,
		Timeout:       DefaultTimeout,
		Retries:       DefaultRetries,
		RetryDelay:    DefaultRetryDelay,
		MaxRetryDelay: DefaultMaxRetryDelay,
		CycleDelay:    DefaultCycleDelay,
	}
}

// Scheme returns "https" or "http".
func (e Endpoint) Scheme() string {
	if e.UseHTTPS {
		return "https"
	}
	return "http"
}

// BaseURL returns the root URL of the switch web UI without a trailing slash.
func (e Endpoint) BaseURL() string {
	return fmt.Sprintf("%s://%s", e.Scheme(), strings.TrimRight(e.Hostname, "/"))
}

// Key identifies the endpoint for client sharing: scheme, user and host.
func (e Endpoint) Key() string {
	return fmt.Sprintf("%s://%s@%s", e.Scheme(), e.Username, strings.ToLower(e.Hostname))
}

// SessionState is the authentication mode currently in effect.
type SessionState int

const (
	// Unauthenticated means no successful login has happened
	Unauthenticated SessionState = iota
	// BasicAuthMode means every request carries HTTP Basic credentials
	BasicAuthMode
	// CookieAuthMode means the login set a session cookie that is replayed
	CookieAuthMode
)

// String returns a human-readable name for the session state
func (s SessionState) String() string {
	switch s {
	case Unauthenticated:
		return "unauthenticated"
	case BasicAuthMode:
		return "basic-auth"
	case CookieAuthMode:
		return "cookie-auth"
	default:
		return fmt.Sprintf("SessionState(%d)", s)
	}
}

// State is the power state of one outlet.
type State string

const (
	StateOn      State = "ON"
	StateOff     State = "OFF"
	StateUnknown State = "Unknown"
)

// ParseState converts the text scraped from the status page into a State.
func ParseState(s string) State {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "ON":
		return StateOn
	case "OFF":
		return StateOff
	default:
		return StateUnknown
	}
}

// Outlet is one row of the outlet table.
type Outlet struct {
	Index int    `json:"index"`
	Name  string `json:"name"`
	State State  `json:"state"`
}

// String matches the switch's "name:STATE" rendering.
func (o Outlet) String() string {
	name := o.Name
	if name == "" {
		name = strconv.Itoa(o.Index)
	}
	return fmt.Sprintf("%s:%s", name, o.State)
}

// Snapshot is a point-in-time read of every outlet. A fresh one is produced on
// every query; snapshots are never cached.
type Snapshot struct {
	Outlets []Outlet  `json:"outlets"`
	Admin   bool      `json:"admin"`
	Taken   time.Time `json:"taken"`
}

// Outlet returns the outlet with the given 1-based index.
func (s *Snapshot) Outlet(index int) (Outlet, bool) {
	if s == nil {
		return Outlet{}, false
	}
	for _, o := range s.Outlets {
		if o.Index == index {
			return o, true
		}
	}
	return Outlet{}, false
}

// Lookup returns the index of the outlet whose trimmed name equals name.
// The comparison is case-sensitive.
func (s *Snapshot) Lookup(name string) (int, bool) {
	if s == nil {
		return 0, false
	}
	want := strings.TrimSpace(name)
	for _, o := range s.Outlets {
		if o.Name != "" && strings.TrimSpace(o.Name) == want {
			return o.Index, true
		}
	}
	return 0, false
}

// OutletRef refers to an outlet by 1-based index or by name.
type OutletRef struct {
	index  int
	name   string
	byName bool
}

// Index returns a reference to the outlet with the given 1-based number.
func Index(n int) OutletRef {
	return OutletRef{index: n}
}

// Name returns a reference to the outlet with the given name.
func Name(name string) OutletRef {
	return OutletRef{name: name, byName: true}
}

// ParseRef turns command-line or topic text into a reference: all-digit
// strings are outlet numbers, anything else is a name.
func ParseRef(s string) OutletRef {
	if n, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
		return Index(n)
	}
	return Name(s)
}

// IsName reports whether the reference is by name.
func (r OutletRef) IsName() bool {
	return r.byName
}

// String returns the reference as the user would type it
func (r OutletRef) String() string {
	if r.byName {
		return r.name
	}
	return strconv.Itoa(r.index)
}

// Result is the outcome of a state-changing outlet operation.
type Result int

const (
	// Succeeded means the command was sent and the new state verified
	Succeeded Result = iota
	// AlreadyInState means the outlet was already in the requested state; nothing was sent
	AlreadyInState
	// Failed means the command could not be sent or the state did not change
	Failed
)

// String returns a human-readable name for the result
func (r Result) String() string {
	switch r {
	case Succeeded:
		return "succeeded"
	case AlreadyInState:
		return "already in state"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("Result(%d)", r)
	}
}

// Legacy maps the result onto the switch's historical boolean convention:
// false means the outlet was switched, true means it was already in that
// state or the operation failed.
func (r Result) Legacy() bool {
	return r != Succeeded
}

// Command is an operation the Dispatcher can fan out across outlets.
type Command int

const (
	CommandOn Command = iota
	CommandOff
	CommandCycle
	CommandRename
	CommandStatus
)

// String returns the command name
func (c Command) String() string {
	switch c {
	case CommandOn:
		return "on"
	case CommandOff:
		return "off"
	case CommandCycle:
		return "cycle"
	case CommandRename:
		return "rename"
	case CommandStatus:
		return "status"
	default:
		return fmt.Sprintf("Command(%d)", c)
	}
}

// ParseCommand converts a command name ("on", "OFF", "cycle", ...) into a Command.
func ParseCommand(s string) (Command, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "on":
		return CommandOn, nil
	case "off":
		return CommandOff, nil
	case "cycle":
		return CommandCycle, nil
	case "rename":
		return CommandRename, nil
	case "status":
		return CommandStatus, nil
	default:
		return 0, NewValidationError(fmt.Sprintf("unknown command %q", s))
	}
}

// Boolean reports whether the command produces a pass/fail result rather than a value.
func (c Command) Boolean() bool {
	return c != CommandStatus
}
