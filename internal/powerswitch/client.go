package powerswitch

import (
	"context"
	"crypto/tls"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/muurk/dlipower/internal/logging"
)

// Client talks to one Digital Loggers web power switch.
//
// Construction never fails: a switch that cannot be reached yields a usable
// Client whose Reachable reports false and whose commands are no-ops that
// report failure. Client instances are safe for concurrent use; requests hold
// a read lock on the session and Login holds the write lock.
type Client struct {
	endpoint    Endpoint
	name        string
	outletCount int
	desired     map[int]string

	// transport is shared by the basic-auth and cookie-session clients
	transport *http.Transport

	mu       sync.RWMutex
	baseURL  string
	session  SessionState
	http     *http.Client
	detected bool
	lastErr  error

	admin atomic.Bool
}

// Option configures a Client at construction time
type Option func(*Client)

// WithName sets the display name used in logs and status reports
func WithName(name string) Option {
	return func(c *Client) {
		c.name = name
	}
}

// WithOutletNames sets the desired outlet names. They are applied to the
// switch once, best-effort, right after login.
func WithOutletNames(names map[int]string) Option {
	return func(c *Client) {
		c.desired = make(map[int]string, len(names))
		for k, v := range names {
			c.desired[k] = v
		}
	}
}

// WithOutletCount overrides the fixed outlet count (8 on this switch family)
func WithOutletCount(n int) Option {
	return func(c *Client) {
		c.outletCount = n
	}
}

// New builds a Client for the endpoint and logs in. The returned Client is
// always usable; check Reachable and LastError to see whether login worked.
func New(ctx context.Context, endpoint Endpoint, opts ...Option) *Client {
	c := NewUnconnected(endpoint, opts...)

	if err := c.Login(ctx); err != nil {
		logging.Warn("Power switch not detected",
			zap.String("switch", c.Name()),
			zap.Error(err),
		)
		return c
	}

	if len(c.desired) > 0 {
		c.ApplyNames(ctx, c.desired)
	}

	return c
}

// NewUnconnected builds a Client without logging in. Call Login before use.
func NewUnconnected(endpoint Endpoint, opts ...Option) *Client {
	endpoint = withDefaults(endpoint)

	c := &Client{
		endpoint:    endpoint,
		name:        endpoint.Hostname,
		outletCount: OutletCount,
		transport: &http.Transport{
			Proxy: http.ProxyFromEnvironment,
			// #nosec G402 - switches use self-signed certificates
			TLSClientConfig:     &tls.Config{InsecureSkipVerify: true},
			MaxIdleConnsPerHost: OutletCount,
			IdleConnTimeout:     30 * time.Second,
		},
		baseURL: endpoint.BaseURL(),
		session: Unauthenticated,
	}
	c.admin.Store(true)
	for _, opt := range opts {
		opt(c)
	}
	c.http = c.newHTTPClient(nil)
	return c
}

func withDefaults(e Endpoint) Endpoint {
	if e.Hostname == "" {
		e.Hostname = DefaultHostname
	}
	if e.Username == "" {
		e.Username = DefaultUsername
	}
	if e.Timeout <= 0 {
		e.Timeout = DefaultTimeout
	}
	if e.Retries <= 0 {
		e.Retries = DefaultRetries
	}
	if e.RetryDelay < 0 {
		e.RetryDelay = 0
	}
	if e.MaxRetryDelay <= 0 {
		e.MaxRetryDelay = DefaultMaxRetryDelay
	}
	if e.CycleDelay < 0 {
		e.CycleDelay = 0
	}
	return e
}

func (c *Client) newHTTPClient(jar http.CookieJar) *http.Client {
	return &http.Client{
		Transport: c.transport,
		Timeout:   c.endpoint.Timeout,
		Jar:       jar,
	}
}

// Endpoint returns the endpoint the client was built from
func (c *Client) Endpoint() Endpoint {
	return c.endpoint
}

// Name returns the display name of the switch
func (c *Client) Name() string {
	return c.name
}

// OutletCount returns the number of outlets on the switch
func (c *Client) OutletCount() int {
	return c.outletCount
}

// DesiredNames returns a copy of the configured outlet names
func (c *Client) DesiredNames() map[int]string {
	out := make(map[int]string, len(c.desired))
	for k, v := range c.desired {
		out[k] = v
	}
	return out
}

// Reachable reports whether the last login succeeded
func (c *Client) Reachable() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.detected
}

// LastError returns the error from the last failed login, or nil
func (c *Client) LastError() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastErr
}

// Session returns the authentication mode in effect
func (c *Client) Session() SessionState {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.session
}

// BaseURL returns the current base URL, which may differ from the endpoint's
// after the login probe followed a redirect
func (c *Client) BaseURL() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.baseURL
}

// IsAdmin reports whether the last status page used the administrator layout
func (c *Client) IsAdmin() bool {
	return c.admin.Load()
}

// Close releases idle connections
func (c *Client) Close() {
	c.transport.CloseIdleConnections()
}
