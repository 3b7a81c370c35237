package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/muurk/dlipower/internal/config"
	"github.com/muurk/dlipower/internal/logging"
	"github.com/muurk/dlipower/internal/powerswitch"
)

// session is the configuration and switch endpoint a command works with
type session struct {
	file     *config.File
	endpoint powerswitch.Endpoint
	name     string
	outlets  map[int]string
	factory  *powerswitch.Factory
}

// loadSession reads the configuration file and applies the connection flags
// on top of the selected switch or the saved defaults.
func loadSession(cmd *cobra.Command) (*session, error) {
	file, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if err := config.CheckPermissions(file.Path()); err != nil && !errors.Is(err, os.ErrNotExist) {
		logging.Warn("Configuration file permissions", zap.Error(err))
	}

	s := &session{file: file, factory: powerswitch.NewFactory()}

	if switchName != "" {
		ep, err := file.Endpoint(switchName)
		if err != nil {
			return nil, fmt.Errorf("%w (configured: %s)", err, strings.Join(file.SwitchNames(), ", "))
		}
		s.endpoint = ep
		s.name = switchName
		s.outlets = file.Switches[switchName].Outlets
	} else {
		s.endpoint = file.DefaultEndpoint()
	}

	flags := cmd.Flags()
	if flags.Changed("hostname") {
		s.endpoint.Hostname = hostname
	}
	if flags.Changed("user") {
		s.endpoint.Username = username
	}
	if flags.Changed("password") {
		s.endpoint.Password = password
	}
	if flags.Changed("timeout") {
		s.endpoint.Timeout = timeout
	}
	if flags.Changed("retries") {
		s.endpoint.Retries = retries
	}
	if flags.Changed("cycle-time") {
		s.endpoint.CycleDelay = cycleTime
	}
	if flags.Changed("https") {
		s.endpoint.UseHTTPS = useHTTPS
	}
	if askPassword {
		pw, err := promptPassword(s.endpoint.Username)
		if err != nil {
			return nil, err
		}
		s.endpoint.Password = pw
	}
	if s.name == "" {
		s.name = s.endpoint.Hostname
	}

	if errs := powerswitch.ValidateEndpoint(s.endpoint); len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	if saveSettings {
		file.RememberDefaults(s.endpoint)
		if err := file.Save(); err != nil {
			return nil, fmt.Errorf("failed to save settings: %w", err)
		}
		logging.Info("Saved connection defaults", zap.String("path", file.Path()))
	}
	return s, nil
}

// connect logs into the switch. An unreachable switch is an error carrying
// the login failure.
func (s *session) connect(ctx context.Context) (*powerswitch.Client, error) {
	client := s.client(ctx)
	if !client.Reachable() {
		if err := client.LastError(); err != nil {
			return client, fmt.Errorf("switch %s not reachable: %w", s.name, err)
		}
		return client, fmt.Errorf("switch %s: %w", s.name, powerswitch.ErrNotReachable)
	}
	return client, nil
}

// client returns the session's client without checking reachability
func (s *session) client(ctx context.Context) *powerswitch.Client {
	return s.factory.Get(ctx, s.endpoint,
		powerswitch.WithName(s.name),
		powerswitch.WithOutletNames(s.outlets),
	)
}

func promptPassword(user string) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", fmt.Errorf("--ask-password needs a terminal on stdin")
	}
	fmt.Fprintf(os.Stderr, "Password for %s: ", user)
	pw, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return string(pw), nil
}

func printJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}
	fmt.Println(string(data))
	return nil
}
