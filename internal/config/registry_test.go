package config

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/muurk/dlipower/internal/powerswitch"
)

const sampleConfig = `version: 1
defaults:
  username: admin
  password: "1234"
  timeout: 5s
  retries: 2
switches:
  rack:
    hostname: 10.0.0.20
    password: secret
    cycle_time: 10s
    outlets:
      1: Router
      2: NAS
  lab:
    hostname: lab-pdu.local:8080
    https: true
devices:
  nas:
    switch: rack
    outlet: 2
    delay_after_on: 30s
mqtt:
  broker: tcp://localhost:1883
  topic_prefix: dlipower
  interval: 1m
`

func TestGetConfigDir(t *testing.T) {
	configDir, err := GetConfigDir()
	if err != nil {
		t.Fatalf("GetConfigDir() error = %v", err)
	}

	if !strings.Contains(configDir, "dlipower") {
		t.Errorf("GetConfigDir() = %v, should contain 'dlipower'", configDir)
	}

	switch runtime.GOOS {
	case "windows":
		if !strings.Contains(configDir, "AppData") && !strings.Contains(configDir, "Local") {
			t.Errorf("Windows config dir should contain 'AppData' or 'Local', got: %v", configDir)
		}
	case "darwin", "linux":
		if os.Getenv("XDG_CONFIG_HOME") == "" && !strings.Contains(configDir, ".config") {
			t.Errorf("Unix config dir should contain '.config', got: %v", configDir)
		}
	}
}

func TestGetConfigDir_XDG(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("XDG_CONFIG_HOME is only honoured on Linux")
	}
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)

	got, err := GetConfigDir()
	if err != nil {
		t.Fatalf("GetConfigDir() error = %v", err)
	}
	if got != filepath.Join(dir, "dlipower") {
		t.Errorf("GetConfigDir() = %s, want %s", got, filepath.Join(dir, "dlipower"))
	}
}

func TestGetConfigPath(t *testing.T) {
	configPath, err := GetConfigPath()
	if err != nil {
		t.Fatalf("GetConfigPath() error = %v", err)
	}
	if filepath.Base(configPath) != "config.yaml" {
		t.Errorf("GetConfigPath() should end with 'config.yaml', got: %v", configPath)
	}
}

func TestNewFile(t *testing.T) {
	f := NewFile()

	if f.Version != 1 {
		t.Errorf("NewFile().Version = %v, want 1", f.Version)
	}
	if f.Switches == nil || f.Devices == nil {
		t.Error("NewFile() maps should not be nil")
	}

	ep := f.DefaultEndpoint()
	if ep.Hostname != "192.168.0.100" || ep.Username != "admin" || ep.Password != "4321" {
		t.Errorf("DefaultEndpoint() = %+v, want factory defaults", ep)
	}
	if ep.Timeout != 2*time.Second || ep.Retries != 3 || ep.CycleDelay != 3*time.Second {
		t.Errorf("DefaultEndpoint() timings = %s/%d/%s", ep.Timeout, ep.Retries, ep.CycleDelay)
	}
}

func TestLoad_Missing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	f, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if f.Path() != path {
		t.Errorf("Path() = %s, want %s", f.Path(), path)
	}
	if len(f.Switches) != 0 {
		t.Errorf("Expected no switches, got %d", len(f.Switches))
	}
}

func TestLoad_Sample(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(sampleConfig), 0600); err != nil {
		t.Fatal(err)
	}

	f, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if errs := f.Validate(); len(errs) != 0 {
		t.Errorf("Validate() = %v", errs)
	}

	if got := f.SwitchNames(); len(got) != 2 || got[0] != "lab" || got[1] != "rack" {
		t.Errorf("SwitchNames() = %v", got)
	}
	if f.Switches["rack"].Outlets[2] != "NAS" {
		t.Errorf("rack outlet 2 = %q, want NAS", f.Switches["rack"].Outlets[2])
	}

	d, err := f.Device("nas")
	if err != nil {
		t.Fatalf("Device() error = %v", err)
	}
	if d.Switch != "rack" || d.Outlet != 2 || d.DelayAfterOn != 30*time.Second {
		t.Errorf("Device(nas) = %+v", d)
	}

	if f.MQTT == nil || f.MQTT.Interval != time.Minute {
		t.Errorf("MQTT = %+v", f.MQTT)
	}
}

func TestEndpoint_MergesDefaults(t *testing.T) {
	f, err := parse([]byte(sampleConfig))
	if err != nil {
		t.Fatalf("parse() error = %v", err)
	}

	rack, err := f.Endpoint("rack")
	if err != nil {
		t.Fatalf("Endpoint(rack) error = %v", err)
	}
	want := powerswitch.Endpoint{
		Hostname:      "10.0.0.20",
		Username:      "admin",
		Password:      "secret",
		Timeout:       5 * time.Second,
		Retries:       2,
		RetryDelay:    powerswitch.DefaultRetryDelay,
		MaxRetryDelay: powerswitch.DefaultMaxRetryDelay,
		CycleDelay:    10 * time.Second,
	}
	if rack != want {
		t.Errorf("Endpoint(rack) = %+v\nwant %+v", rack, want)
	}

	lab, err := f.Endpoint("lab")
	if err != nil {
		t.Fatalf("Endpoint(lab) error = %v", err)
	}
	if !lab.UseHTTPS || lab.Password != "1234" || lab.CycleDelay != powerswitch.DefaultCycleDelay {
		t.Errorf("Endpoint(lab) = %+v", lab)
	}

	if _, err := f.Endpoint("missing"); err == nil {
		t.Error("Expected error for unknown switch")
	}
}

func TestLoad_UnsupportedVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("version: 2\n"), 0600); err != nil {
		t.Fatal(err)
	}

	if _, err := Load(path); err == nil || !strings.Contains(err.Error(), "unsupported config version") {
		t.Errorf("Expected version error, got %v", err)
	}
}

func TestSave_RoundTripAndPermissions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	f := NewFile()
	f.EnsureSwitch("rack", "10.0.0.20")
	if err := f.SetOutletName("rack", 3, "Modem"); err != nil {
		t.Fatalf("SetOutletName() error = %v", err)
	}
	ep := powerswitch.DefaultEndpoint("10.0.0.99")
	ep.Password = "hunter2"
	f.RememberDefaults(ep)

	if err := f.SaveAs(path); err != nil {
		t.Fatalf("SaveAs() error = %v", err)
	}

	if runtime.GOOS != "windows" {
		info, err := os.Stat(path)
		if err != nil {
			t.Fatal(err)
		}
		if perm := info.Mode().Perm(); perm != 0600 {
			t.Errorf("config file mode = %04o, want 0600", perm)
		}
		if err := CheckPermissions(path); err != nil {
			t.Errorf("CheckPermissions() = %v", err)
		}
	}

	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Error("Temporary file should not remain after save")
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if loaded.Switches["rack"].Outlets[3] != "Modem" {
		t.Errorf("Outlet name not persisted: %+v", loaded.Switches["rack"])
	}
	if got := loaded.DefaultEndpoint(); got.Hostname != "10.0.0.99" || got.Password != "hunter2" {
		t.Errorf("Defaults not persisted: %+v", got)
	}
}

func TestSave_TightensExistingPermissions(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("POSIX permissions only")
	}
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("version: 1\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := CheckPermissions(path); err == nil {
		t.Error("Expected CheckPermissions() to flag mode 0644")
	}

	f, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if err := f.Save(); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	if err := CheckPermissions(path); err != nil {
		t.Errorf("CheckPermissions() after save = %v", err)
	}
}

func TestValidate(t *testing.T) {
	f := NewFile()
	f.Switches["rack"] = &Switch{Hostname: "10.0.0.20", Outlets: map[int]string{9: "Bad"}}
	f.Devices["ghost"] = &Device{Switch: "missing", Outlet: 0}
	f.MQTT = &MQTT{}

	errs := f.Validate()
	// outlet 9, unknown switch, outlet 0, empty broker
	if len(errs) != 4 {
		t.Errorf("Validate() returned %d errors, want 4: %v", len(errs), errs)
	}
}

func TestSetOutletName_UnknownSwitch(t *testing.T) {
	if err := NewFile().SetOutletName("nope", 1, "x"); err == nil {
		t.Error("Expected error for unknown switch")
	}
}

func TestRedacted(t *testing.T) {
	f, err := parse([]byte(sampleConfig))
	if err != nil {
		t.Fatal(err)
	}
	f.MQTT.Password = "mqtt-secret"

	r := f.Redacted()
	if r.Defaults.Password != redacted || r.Switches["rack"].Password != redacted || r.MQTT.Password != redacted {
		t.Errorf("passwords not redacted: %+v %+v %+v", r.Defaults, r.Switches["rack"], r.MQTT)
	}
	if r.Switches["lab"].Password != "" {
		t.Errorf("empty password became %q", r.Switches["lab"].Password)
	}

	// the receiver is untouched
	if f.Defaults.Password != "1234" || f.Switches["rack"].Password != "secret" || f.MQTT.Password != "mqtt-secret" {
		t.Error("Redacted modified the receiver")
	}
	if r.Switches["rack"].Hostname != "10.0.0.20" {
		t.Errorf("hostname = %q", r.Switches["rack"].Hostname)
	}
}
