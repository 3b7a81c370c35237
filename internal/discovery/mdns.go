package discovery

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/grandcat/zeroconf"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/muurk/dlipower/internal/logging"
	"github.com/muurk/dlipower/internal/powerswitch"
)

const (
	// ServiceType is the mDNS service type browsed for. Power switches do not
	// advertise a dedicated type, so every HTTP service is a candidate.
	ServiceType = "_http._tcp"

	// ServiceDomain is the mDNS domain
	ServiceDomain = "local."

	DefaultScanTimeout  = 10 * time.Second
	DefaultProbeTimeout = 2 * time.Second

	// DefaultPort is the HTTP port assumed when an entry has none
	DefaultPort = 80
)

// ProbeFunc reports whether the web UI at baseURL looks like a power switch
type ProbeFunc func(ctx context.Context, baseURL string) bool

// Scanner browses mDNS and probes the answers over HTTP
type Scanner struct {
	// Timeout bounds the mDNS browse
	Timeout time.Duration

	// ProbeTimeout bounds each HTTP probe
	ProbeTimeout time.Duration

	// Probe checks a candidate; nil keeps every candidate unverified
	Probe ProbeFunc

	// All keeps candidates that failed the probe
	All bool
}

// NewScanner creates a scanner with default timeouts that probes for the
// challenge login form
func NewScanner() *Scanner {
	s := &Scanner{
		Timeout:      DefaultScanTimeout,
		ProbeTimeout: DefaultProbeTimeout,
	}
	s.Probe = LoginFormProbe(&http.Client{Timeout: s.ProbeTimeout})
	return s
}

// Scan browses for HTTP services until the timeout or ctx ends, then probes
// every candidate concurrently. Results are sorted by address.
func (s *Scanner) Scan(ctx context.Context) ([]*Switch, error) {
	candidates, err := s.browse(ctx)
	if err != nil {
		return nil, err
	}
	logging.Debug("mDNS browse finished", zap.Int("candidates", len(candidates)))

	found := s.verify(ctx, candidates)
	sort.Slice(found, func(i, j int) bool {
		return found[i].Address() < found[j].Address()
	})
	return found, nil
}

func (s *Scanner) browse(ctx context.Context) ([]*Switch, error) {
	ctx, cancel := context.WithTimeout(ctx, s.Timeout)
	defer cancel()

	resolver, err := zeroconf.NewResolver(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create mDNS resolver: %w", err)
	}

	entries := make(chan *zeroconf.ServiceEntry)
	var (
		mu         sync.Mutex
		candidates []*Switch
		seen       = make(map[string]bool)
		done       = make(chan struct{})
	)

	go func() {
		defer close(done)
		for entry := range entries {
			sw := parseServiceEntry(entry)
			if sw == nil {
				continue
			}
			mu.Lock()
			if !seen[sw.Address()] {
				seen[sw.Address()] = true
				candidates = append(candidates, sw)
			}
			mu.Unlock()
		}
	}()

	if err := resolver.Browse(ctx, ServiceType, ServiceDomain, entries); err != nil {
		return nil, fmt.Errorf("failed to browse for mDNS services: %w", err)
	}

	<-ctx.Done()
	// the resolver closes entries once the browse context ends
	select {
	case <-done:
	case <-time.After(time.Second):
	}

	mu.Lock()
	defer mu.Unlock()
	return append([]*Switch(nil), candidates...), nil
}

// verify probes candidates in parallel and marks those that pass
func (s *Scanner) verify(ctx context.Context, candidates []*Switch) []*Switch {
	if s.Probe == nil {
		return candidates
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(8)
	for _, sw := range candidates {
		sw := sw
		g.Go(func() error {
			sw.Verified = s.Probe(gctx, sw.BaseURL())
			logging.Debug("Probed candidate",
				zap.String("address", sw.Address()),
				zap.Bool("verified", sw.Verified),
			)
			return nil
		})
	}
	_ = g.Wait()

	found := make([]*Switch, 0, len(candidates))
	for _, sw := range candidates {
		if sw.Verified || s.All {
			found = append(found, sw)
		}
	}
	return found
}

// LoginFormProbe returns a probe that GETs baseURL/ and looks for a login
// form carrying a Challenge input.
func LoginFormProbe(hc *http.Client) ProbeFunc {
	return func(ctx context.Context, baseURL string) bool {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimRight(baseURL, "/")+"/", nil)
		if err != nil {
			return false
		}
		resp, err := hc.Do(req)
		if err != nil {
			return false
		}
		defer func() { _ = resp.Body.Close() }()
		if resp.StatusCode != http.StatusOK {
			return false
		}

		fields, err := powerswitch.ParseLoginForm(resp.Body)
		if err != nil {
			return false
		}
		_, ok := fields["Challenge"]
		return ok
	}
}

// parseServiceEntry converts a zeroconf entry to a candidate. Entries without
// any address are dropped.
func parseServiceEntry(entry *zeroconf.ServiceEntry) *Switch {
	var ip string
	if len(entry.AddrIPv4) > 0 {
		ip = entry.AddrIPv4[0].String()
	} else if len(entry.AddrIPv6) > 0 {
		ip = entry.AddrIPv6[0].String()
	}
	if ip == "" {
		return nil
	}

	port := entry.Port
	if port == 0 {
		port = DefaultPort
	}

	metadata := make(map[string]string)
	for _, txt := range entry.Text {
		key, value, _ := strings.Cut(txt, "=")
		metadata[key] = value
	}

	return &Switch{
		Instance:     entry.Instance,
		Hostname:     entry.HostName,
		IP:           ip,
		Port:         port,
		Metadata:     metadata,
		DiscoveredAt: time.Now(),
	}
}

// QuickScan scans for three seconds with the default probe
func QuickScan(ctx context.Context) ([]*Switch, error) {
	s := NewScanner()
	s.Timeout = 3 * time.Second
	return s.Scan(ctx)
}
