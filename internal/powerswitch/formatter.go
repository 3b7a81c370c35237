package powerswitch

import (
	"fmt"
	"strings"
)

// Summary returns a one-line summary of the snapshot
func (s *Snapshot) Summary() string {
	if s == nil {
		return "no status"
	}
	on := 0
	for _, o := range s.Outlets {
		if o.State == StateOn {
			on++
		}
	}
	role := "admin"
	if !s.Admin {
		role = "user"
	}
	return fmt.Sprintf("%d outlets, %d on (%s view)", len(s.Outlets), on, role)
}

// FormatTable renders the outlet table the way the switch's own tooling
// prints it: tab separated, names padded or cut to 15 characters.
func (s *Snapshot) FormatTable() string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("Outlet\t%-15.15s\tState\n", "Name"))
	for _, o := range s.Outlets {
		b.WriteString(fmt.Sprintf("%d\t%-15.15s\t%s\n", o.Index, o.Name, o.State))
	}

	return b.String()
}

// FormatSnapshot renders a titled outlet table for the switch at hostname.
// A nil snapshot renders the UNCONNECTED line.
func FormatSnapshot(hostname string, snap *Snapshot) string {
	if snap == nil {
		return fmt.Sprintf("Digital Loggers Web Powerswitch %s (UNCONNECTED)", hostname)
	}
	return fmt.Sprintf("DLIPowerSwitch at %s\n", hostname) + snap.FormatTable()
}

// FormatCompact renders the snapshot on a single line, e.g.
// "Router:ON NAS:OFF 3:OFF"
func (s *Snapshot) FormatCompact() string {
	parts := make([]string, 0, len(s.Outlets))
	for _, o := range s.Outlets {
		parts = append(parts, o.String())
	}
	return strings.Join(parts, " ")
}
