package powerswitch

import (
	"context"
	"sync"
)

// Factory hands out one shared Client per endpoint. The caller owns the
// Factory and passes it to whatever needs clients; there is no package-level
// instance.
type Factory struct {
	mu      sync.Mutex
	clients map[string]*Client
}

// NewFactory creates an empty Factory
func NewFactory() *Factory {
	return &Factory{clients: make(map[string]*Client)}
}

// Get returns the client for endpoint, building and logging in on first use.
// Later calls with an endpoint of the same Key return the same client, even
// if opts differ.
func (f *Factory) Get(ctx context.Context, endpoint Endpoint, opts ...Option) *Client {
	key := withDefaults(endpoint).Key()

	f.mu.Lock()
	defer f.mu.Unlock()

	if c, ok := f.clients[key]; ok {
		return c
	}
	c := New(ctx, endpoint, opts...)
	f.clients[key] = c
	return c
}

// Clients returns every client built so far
func (f *Factory) Clients() []*Client {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]*Client, 0, len(f.clients))
	for _, c := range f.clients {
		out = append(out, c)
	}
	return out
}

// Close releases the idle connections of every client
func (f *Factory) Close() {
	for _, c := range f.Clients() {
		c.Close()
	}
}
