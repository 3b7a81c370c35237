package discovery

import (
	"fmt"
	"net"
	"strconv"
	"time"
)

// Switch is a web power switch found on the local network
type Switch struct {
	// Instance is the advertised mDNS instance name
	Instance string `json:"instance"`

	// Hostname is the mDNS hostname (e.g., "lpc.local.")
	Hostname string `json:"hostname"`

	// IP is the address the switch answered from, IPv4 preferred
	IP string `json:"ip"`

	// Port is the HTTP port (typically 80)
	Port int `json:"port"`

	// Metadata holds the mDNS TXT records
	Metadata map[string]string `json:"metadata,omitempty"`

	// Verified is set once the HTTP probe found the challenge login form
	Verified bool `json:"verified"`

	DiscoveredAt time.Time `json:"discovered_at"`
}

// Address returns the host[:port] form accepted by the --hostname flag
func (s *Switch) Address() string {
	if s.Port == DefaultPort {
		return s.IP
	}
	return net.JoinHostPort(s.IP, strconv.Itoa(s.Port))
}

// BaseURL returns the HTTP base URL of the switch's web UI
func (s *Switch) BaseURL() string {
	return "http://" + net.JoinHostPort(s.IP, strconv.Itoa(s.Port))
}

func (s *Switch) String() string {
	name := s.Instance
	if name == "" {
		name = s.Hostname
	}
	return fmt.Sprintf("Power switch %q at %s", name, s.Address())
}

// GetMetadata returns a TXT record value, or "" when absent
func (s *Switch) GetMetadata(key string) string {
	if s.Metadata == nil {
		return ""
	}
	return s.Metadata[key]
}
