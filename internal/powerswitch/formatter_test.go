package powerswitch

import (
	"strings"
	"testing"
)

func sampleSnapshot() *Snapshot {
	return &Snapshot{
		Admin: true,
		Outlets: []Outlet{
			{Index: 1, Name: "Router", State: StateOn},
			{Index: 2, Name: "A very long outlet name", State: StateOff},
		},
	}
}

func TestSnapshot_FormatTable(t *testing.T) {
	out := sampleSnapshot().FormatTable()

	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("Expected header + 2 rows, got %d lines:\n%s", len(lines), out)
	}
	if lines[0] != "Outlet\tName           \tState" {
		t.Errorf("Header = %q", lines[0])
	}
	if lines[1] != "1\tRouter         \tON" {
		t.Errorf("Row 1 = %q", lines[1])
	}
	if lines[2] != "2\tA very long out\tOFF" {
		t.Errorf("Row 2 = %q", lines[2])
	}
}

func TestFormatSnapshot(t *testing.T) {
	out := FormatSnapshot("lpc.local", sampleSnapshot())
	if !strings.HasPrefix(out, "DLIPowerSwitch at lpc.local\n") {
		t.Errorf("Unexpected title: %q", out)
	}

	if got := FormatSnapshot("lpc.local", nil); got != "Digital Loggers Web Powerswitch lpc.local (UNCONNECTED)" {
		t.Errorf("FormatSnapshot(nil) = %q", got)
	}
}

func TestSnapshot_Summary(t *testing.T) {
	if got := sampleSnapshot().Summary(); got != "2 outlets, 1 on (admin view)" {
		t.Errorf("Summary() = %q", got)
	}

	var nilSnap *Snapshot
	if got := nilSnap.Summary(); got != "no status" {
		t.Errorf("nil Summary() = %q", got)
	}
}

func TestSnapshot_FormatCompact(t *testing.T) {
	snap := &Snapshot{Outlets: []Outlet{
		{Index: 1, Name: "Router", State: StateOn},
		{Index: 2, Name: "", State: StateOff},
	}}

	if got := snap.FormatCompact(); got != "Router:ON 2:OFF" {
		t.Errorf("FormatCompact() = %q", got)
	}
}
