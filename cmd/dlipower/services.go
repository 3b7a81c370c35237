package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/muurk/dlipower/internal/config"
	"github.com/muurk/dlipower/internal/discovery"
	"github.com/muurk/dlipower/internal/logging"
	"github.com/muurk/dlipower/internal/mqtt"
	"github.com/muurk/dlipower/internal/powered"
	"github.com/muurk/dlipower/internal/powerswitch"
	"github.com/muurk/dlipower/internal/tui"
	"github.com/muurk/dlipower/internal/ui"
)

// Service command flags
var (
	scanWait      time.Duration
	scanAll       bool
	scanAdd       string
	watchInterval time.Duration
	mqttBroker    string
)

func init() {
	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(mqttCmd)
	rootCmd.AddCommand(deviceCmd)
	rootCmd.AddCommand(configCmd)

	scanCmd.Flags().DurationVarP(&scanWait, "wait", "w", discovery.DefaultScanTimeout, "How long to listen for mDNS answers")
	scanCmd.Flags().BoolVar(&scanAll, "all", false, "Also list HTTP services that do not look like a power switch")
	scanCmd.Flags().StringVar(&scanAdd, "add", "", "Save the switch under this name when exactly one is found")

	watchCmd.Flags().DurationVarP(&watchInterval, "interval", "i", tui.DefaultInterval, "Refresh interval")

	mqttCmd.Flags().StringVar(&mqttBroker, "broker", "", "Broker URL, e.g. tcp://localhost:1883 (overrides the configuration file)")

	deviceCmd.AddCommand(deviceListCmd)
	for _, c := range []*cobra.Command{deviceOnCmd, deviceOffCmd, deviceCycleCmd, deviceStatusCmd} {
		deviceCmd.AddCommand(c)
	}

	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configPathCmd)
}

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Find power switches on the local network",
	Long: `Browse mDNS for HTTP services and probe each one for the switch's
challenge login page.

Only switches that advertise themselves over mDNS are found. Use --all to
also list HTTP services that did not answer like a power switch.`,
	Example: `  dlipower scan
  dlipower scan --wait 20s --all
  dlipower scan --add rack`,
	RunE: func(cmd *cobra.Command, args []string) error {
		p := ui.NewPrinter(os.Stdout)
		if outputFormat == "table" {
			p.PrintHeader("Power Switch Scan", "dlipower scan",
				ui.Param{Key: "Wait", Value: scanWait.String()},
			)
		}

		scanner := discovery.NewScanner()
		scanner.Timeout = scanWait
		scanner.All = scanAll

		found, err := scanner.Scan(cmd.Context())
		if err != nil {
			return fmt.Errorf("scan failed: %w", err)
		}

		switch outputFormat {
		case "json":
			if err := printJSON(found); err != nil {
				return err
			}
		case "plain", "compact":
			for _, sw := range found {
				fmt.Printf("%s\t%s\t%t\n", sw.Address(), sw.Instance, sw.Verified)
			}
		default:
			if len(found) == 0 {
				p.PrintWarning("No power switches found",
					ui.Param{Key: "Hint", Value: "switches without mDNS can still be used with --hostname"},
				)
			}
			for _, sw := range found {
				mark := ui.SuccessMarker
				if !sw.Verified {
					mark = ui.SkippedMarker
				}
				p.Println(fmt.Sprintf("  %s %s", mark, sw))
			}
		}

		if scanAdd == "" {
			return nil
		}
		if len(found) != 1 {
			return fmt.Errorf("--add needs exactly one switch, found %d", len(found))
		}
		file, err := config.Load(configPath)
		if err != nil {
			return err
		}
		file.EnsureSwitch(scanAdd, found[0].Address())
		if err := file.Save(); err != nil {
			return fmt.Errorf("failed to save configuration: %w", err)
		}
		logging.Info("Added switch",
			zap.String("name", scanAdd),
			zap.String("hostname", found[0].Address()),
		)
		return nil
	},
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Live outlet dashboard",
	Long: `Show the outlet table and refresh it periodically. Outlets can be switched
from the dashboard; press ? for the keys.`,
	Example: `  dlipower watch --switch rack
  dlipower watch --hostname 10.0.0.20 --interval 2s`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if !ui.IsTerminal() {
			return fmt.Errorf("watch needs a terminal")
		}
		s, err := loadSession(cmd)
		if err != nil {
			return err
		}
		// The dashboard shows unreachable switches and keeps trying to log in.
		return tui.Run(cmd.Context(), s.client(cmd.Context()), watchInterval)
	},
}

var mqttCmd = &cobra.Command{
	Use:   "mqtt",
	Short: "Bridge switches to an MQTT broker",
	Long: `Publish the status of switches to MQTT and accept outlet commands.

Every switch in the configuration file is bridged. With --switch or
--hostname only that switch is bridged.

Topics (prefix defaults to "dlipower"):
  <prefix>/<switch>/status                retained JSON status
  <prefix>/<switch>/outlet/<outlet>/set   ON, OFF or CYCLE
  <prefix>/<switch>/outlet/<outlet>/result  JSON command result
  <prefix>/bridge/state                   online or offline`,
	Example: `  dlipower mqtt --broker tcp://localhost:1883
  dlipower mqtt --switch rack`,
	RunE: runMQTT,
}

func runMQTT(cmd *cobra.Command, args []string) error {
	s, err := loadSession(cmd)
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	defer s.factory.Close()

	cfg := mqtt.Config{}
	if m := s.file.MQTT; m != nil {
		cfg = mqtt.Config{
			Broker:      m.Broker,
			ClientID:    m.ClientID,
			Username:    m.Username,
			Password:    m.Password,
			TopicPrefix: m.TopicPrefix,
			Interval:    m.Interval,
		}
	}
	if mqttBroker != "" {
		cfg.Broker = mqttBroker
	}
	if cfg.Broker == "" {
		return fmt.Errorf("no MQTT broker: set mqtt.broker in %s or use --broker", s.file.Path())
	}

	var switches []mqtt.Switch
	if switchName != "" || cmd.Flags().Changed("hostname") || len(s.file.Switches) == 0 {
		switches = append(switches, s.client(ctx))
	} else {
		for _, name := range s.file.SwitchNames() {
			ep, err := s.file.Endpoint(name)
			if err != nil {
				return err
			}
			switches = append(switches, s.factory.Get(ctx, ep,
				powerswitch.WithName(name),
				powerswitch.WithOutletNames(s.file.Switches[name].Outlets),
			))
		}
	}

	bridge := mqtt.NewBridge(cfg, switches)
	if err := bridge.Connect(); err != nil {
		return err
	}
	logging.Info("MQTT bridge running",
		zap.String("broker", cfg.Broker),
		zap.Int("switches", len(switches)),
	)
	return bridge.Run(ctx)
}

var deviceCmd = &cobra.Command{
	Use:   "device",
	Short: "Control equipment configured in the devices section",
	Long: `Devices name a piece of equipment on one outlet of a configured switch,
for example:

  devices:
    nas:
      switch: rack
      outlet: 4
      delay_after_on: 30s`,
}

var deviceListCmd = &cobra.Command{
	Use:   "list",
	Short: "List configured devices",
	RunE: func(cmd *cobra.Command, args []string) error {
		file, err := config.Load(configPath)
		if err != nil {
			return err
		}
		for _, name := range file.DeviceNames() {
			d := file.Devices[name]
			fmt.Printf("%s\t%s\t%d\n", name, d.Switch, d.Outlet)
		}
		return nil
	},
}

func deviceAction(use, short string, run func(cmd *cobra.Command, d *powered.Device) error) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <device>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			file, err := config.Load(configPath)
			if err != nil {
				return err
			}
			factory := powerswitch.NewFactory()
			defer factory.Close()

			d, err := powered.FromConfig(cmd.Context(), file, factory, args[0])
			if err != nil {
				return err
			}
			return run(cmd, d)
		},
	}
}

var deviceOnCmd = deviceAction("on", "Power a device on", func(cmd *cobra.Command, d *powered.Device) error {
	return d.PowerOn(cmd.Context())
})

var deviceOffCmd = deviceAction("off", "Power a device off", func(cmd *cobra.Command, d *powered.Device) error {
	return d.PowerOff(cmd.Context())
})

var deviceCycleCmd = deviceAction("cycle", "Power-cycle a device", func(cmd *cobra.Command, d *powered.Device) error {
	return d.WithCycleDelay(cycleTime).Cycle(cmd.Context())
})

var deviceStatusCmd = deviceAction("status", "Show whether a device is powered", func(cmd *cobra.Command, d *powered.Device) error {
	st := d.PowerStatus(cmd.Context())
	if outputFormat == "json" {
		return printJSON(st)
	}
	fmt.Printf("%s: %s (switch %s, outlet %d)\n", st.Name, ui.StateStyle(st.State).Render(string(st.State)), st.Switch, st.Outlet)
	if st.State == powerswitch.StateUnknown {
		return errReported
	}
	return nil
})

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect the configuration file",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the configuration with passwords masked",
	RunE: func(cmd *cobra.Command, args []string) error {
		file, err := config.Load(configPath)
		if err != nil {
			return err
		}
		data, err := yaml.Marshal(file.Redacted())
		if err != nil {
			return fmt.Errorf("failed to marshal config: %w", err)
		}
		fmt.Printf("# %s\n%s", file.Path(), data)

		errs := file.Validate()
		for _, e := range errs {
			fmt.Fprintf(os.Stderr, "%s %v\n", ui.WarningMarker, e)
		}
		if len(errs) > 0 {
			return errReported
		}
		return nil
	},
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the configuration file path",
	RunE: func(cmd *cobra.Command, args []string) error {
		if configPath != "" {
			fmt.Println(configPath)
			return nil
		}
		path, err := config.GetConfigPath()
		if err != nil {
			return err
		}
		fmt.Println(path)
		return nil
	},
}
