package discovery

import "testing"

func TestSwitch_Address(t *testing.T) {
	tests := []struct {
		name string
		sw   *Switch
		want string
	}{
		{"default port", &Switch{IP: "192.168.0.100", Port: 80}, "192.168.0.100"},
		{"custom port", &Switch{IP: "10.0.0.5", Port: 8080}, "10.0.0.5:8080"},
		{"IPv6 custom port", &Switch{IP: "fe80::1", Port: 8080}, "[fe80::1]:8080"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.sw.Address(); got != tt.want {
				t.Errorf("Address() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSwitch_BaseURL(t *testing.T) {
	sw := &Switch{IP: "192.168.0.100", Port: 80}
	if got := sw.BaseURL(); got != "http://192.168.0.100:80" {
		t.Errorf("BaseURL() = %q", got)
	}
}

func TestSwitch_String(t *testing.T) {
	sw := &Switch{Instance: "Rack PDU", Hostname: "lpc.local.", IP: "192.168.0.100", Port: 80}
	if got, want := sw.String(), `Power switch "Rack PDU" at 192.168.0.100`; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}

	sw.Instance = ""
	if got, want := sw.String(), `Power switch "lpc.local." at 192.168.0.100`; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}

func TestSwitch_GetMetadata(t *testing.T) {
	sw := &Switch{}
	if sw.GetMetadata("path") != "" {
		t.Error("nil metadata should yield empty string")
	}
	sw.Metadata = map[string]string{"path": "/"}
	if sw.GetMetadata("path") != "/" {
		t.Error("GetMetadata(path) != /")
	}
}
