// Dlipower controls Digital Loggers web power switches from the command line.
//
// It logs into the switch's web UI, reads the outlet table and switches,
// cycles or renames outlets. Switches can be given with --hostname or by name
// from the configuration file. It can also scan the LAN for switches, show a
// live dashboard and bridge switches to MQTT.
//
// Usage:
//
//	dlipower [command] [flags]
//
// See 'dlipower --help' for available commands.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/muurk/dlipower/internal/logging"
	"github.com/muurk/dlipower/internal/powerswitch"
	"github.com/muurk/dlipower/internal/version"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	logging.Sync()

	if err != nil {
		if !errors.Is(err, errReported) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			if hint := hintFor(err); hint != "" {
				fmt.Fprintf(os.Stderr, "\n%s\n", hint)
			}
		}
		os.Exit(1)
	}
}

// errReported marks failures whose details were already printed
var errReported = errors.New("command failed")

// Global flags
var (
	configPath   string
	switchName   string
	hostname     string
	username     string
	password     string
	askPassword  bool
	timeout      time.Duration
	retries      int
	cycleTime    time.Duration
	useHTTPS     bool
	outputFormat string
	logLevel     string
	saveSettings bool
)

var rootCmd = &cobra.Command{
	Use:   "dlipower",
	Short: "Digital Loggers web power switch control",
	Long: `Control the outlets of Digital Loggers web power switches.

The switch is chosen with --switch (a name from the configuration file) or
--hostname. Without either, the defaults from the configuration file are used,
which start out as admin/4321 at 192.168.0.100.`,
	Version:       version.Full(),
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return logging.Initialize(logLevel)
	},
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&configPath, "config", "", "Configuration file (default: OS config dir/dlipower/config.yaml)")
	pf.StringVarP(&switchName, "switch", "s", "", "Named switch from the configuration file")
	pf.StringVar(&hostname, "hostname", "", "Switch address, host or host:port")
	pf.StringVarP(&username, "user", "u", "", "Web UI username")
	pf.StringVarP(&password, "password", "p", "", "Web UI password")
	pf.BoolVar(&askPassword, "ask-password", false, "Prompt for the password")
	pf.DurationVar(&timeout, "timeout", powerswitch.DefaultTimeout, "Per-request timeout")
	pf.IntVar(&retries, "retries", powerswitch.DefaultRetries, "Attempts per request")
	pf.DurationVar(&cycleTime, "cycle-time", powerswitch.DefaultCycleDelay, "Off time when cycling an outlet")
	pf.BoolVar(&useHTTPS, "https", false, "Use https to talk to the switch")
	pf.StringVarP(&outputFormat, "format", "f", "table", "Output format (table, plain, compact, json)")
	pf.StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error); default from "+logging.LogLevelEnvVar)
	pf.BoolVar(&saveSettings, "save-settings", false, "Store the connection settings as the new defaults")

	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	RunE: func(cmd *cobra.Command, args []string) error {
		if outputFormat == "json" {
			return printJSON(version.Get())
		}
		i := version.Get()
		fmt.Printf("dlipower %s (commit: %s, %s, %s)\n", i.Version, i.Commit, i.GoVersion, i.Platform)
		return nil
	},
}

// hintFor returns the troubleshooting hint for switch errors
func hintFor(err error) string {
	var swErr *powerswitch.SwitchError
	if !errors.As(err, &swErr) && !errors.Is(err, powerswitch.ErrNotReachable) {
		return ""
	}
	return powerswitch.GetTroubleshootingHint(err)
}
