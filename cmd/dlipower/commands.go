package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/muurk/dlipower/internal/powerswitch"
	"github.com/muurk/dlipower/internal/ui"
)

// Outlet command flags
var (
	allOutlets bool
	assumeYes  bool
	remember   bool
)

func init() {
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(onCmd)
	rootCmd.AddCommand(offCmd)
	rootCmd.AddCommand(cycleCmd)
	rootCmd.AddCommand(renameCmd)
	rootCmd.AddCommand(nameCmd)

	for _, c := range []*cobra.Command{onCmd, offCmd, cycleCmd} {
		c.Flags().BoolVarP(&allOutlets, "all", "a", false, "Apply to every outlet")
	}
	offCmd.Flags().BoolVarP(&assumeYes, "yes", "y", false, "Do not ask before switching every outlet off")
	renameCmd.Flags().BoolVar(&remember, "remember", false, "Also store the name as the outlet's desired name in the configuration file (needs --switch)")
}

// statusCmd prints the outlet table
var statusCmd = &cobra.Command{
	Use:   "status [outlet...]",
	Short: "Show outlet names and states",
	Long: `Read the status page of the switch and show every outlet.

With outlet arguments only those outlets' states are printed.`,
	Example: `  # Outlet table of the default switch
  dlipower status

  # A named switch from the configuration file, as JSON
  dlipower status --switch rack --format json

  # The plain tab-separated table
  dlipower status --hostname 10.0.0.20 --format plain

  # Just two outlets
  dlipower status 1 Router`,
	RunE: runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	s, err := loadSession(cmd)
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	client := s.client(ctx)

	if len(args) > 0 {
		if _, err := s.connect(ctx); err != nil {
			return err
		}
		res, err := client.Dispatch(ctx, powerswitch.CommandStatus, refsFrom(args))
		if err != nil {
			return err
		}
		return printOutcomes(res)
	}

	report := client.StatusReport(ctx)
	switch outputFormat {
	case "json":
		if err := printJSON(report); err != nil {
			return err
		}
	case "plain":
		snap, _ := client.Snapshot(ctx)
		fmt.Println(powerswitch.FormatSnapshot(s.endpoint.Hostname, snap))
	case "compact":
		if snap, err := client.Snapshot(ctx); err == nil {
			fmt.Println(snap.FormatCompact())
		}
	default:
		ui.NewPrinter(os.Stdout).PrintReport(report)
	}

	if !report.Operational {
		return errReported
	}
	return nil
}

var onCmd = &cobra.Command{
	Use:   "on [outlet...]",
	Short: "Switch outlets on",
	Long: `Switch one or more outlets on. Outlets are numbers (1-8) or names as shown
by 'dlipower status'. Several outlets are switched concurrently.

An outlet that is already on is left alone and reported as such.`,
	Example: `  dlipower on 3
  dlipower on Router NAS
  dlipower on --all`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runPower(cmd, args, powerswitch.CommandOn)
	},
}

var offCmd = &cobra.Command{
	Use:   "off [outlet...]",
	Short: "Switch outlets off",
	Example: `  dlipower off 3
  dlipower off --switch rack Router
  dlipower off --all --yes`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runPower(cmd, args, powerswitch.CommandOff)
	},
}

var cycleCmd = &cobra.Command{
	Use:   "cycle [outlet...]",
	Short: "Power-cycle outlets",
	Long: `Switch outlets off, wait --cycle-time and switch them on again. An outlet
that is off is simply switched on.`,
	Example: `  dlipower cycle Modem
  dlipower cycle 1 2 --cycle-time 10s`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runPower(cmd, args, powerswitch.CommandCycle)
	},
}

func runPower(cmd *cobra.Command, args []string, command powerswitch.Command) error {
	refs, err := outletArgs(args)
	if err != nil {
		return err
	}

	if command == powerswitch.CommandOff && allOutlets && !assumeYes {
		if !ui.Confirm(os.Stdin, os.Stderr, "SWITCH OFF ALL OUTLETS",
			"Every outlet of the switch loses power",
			"Equipment powering your network may drop this connection") {
			return errReported
		}
	}

	s, err := loadSession(cmd)
	if err != nil {
		return err
	}
	client, err := s.connect(cmd.Context())
	if err != nil {
		return err
	}

	res, err := client.Dispatch(cmd.Context(), command, refs)
	if err != nil {
		return err
	}
	return printOutcomes(res)
}

var renameCmd = &cobra.Command{
	Use:   "rename <outlet> <name>",
	Short: "Rename an outlet",
	Long: `Set the name the switch shows for an outlet. Names are limited to 16
printable characters.`,
	Example: `  dlipower rename 3 Router
  dlipower rename --switch rack 4 "Core Switch" --remember`,
	Args: cobra.ExactArgs(2),
	RunE: runRename,
}

func runRename(cmd *cobra.Command, args []string) error {
	if remember && switchName == "" {
		return fmt.Errorf("--remember needs --switch")
	}

	s, err := loadSession(cmd)
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	client, err := s.connect(ctx)
	if err != nil {
		return err
	}

	ref := powerswitch.ParseRef(args[0])
	res, err := client.Dispatch(ctx, powerswitch.CommandRename, []powerswitch.OutletRef{ref}, args[1])
	if err != nil {
		return err
	}
	if err := printOutcomes(res); err != nil {
		return err
	}

	if remember {
		if err := s.file.SetOutletName(switchName, res.Outcomes[0].Index, args[1]); err != nil {
			return err
		}
		if err := s.file.Save(); err != nil {
			return fmt.Errorf("failed to save configuration: %w", err)
		}
	}
	return nil
}

var nameCmd = &cobra.Command{
	Use:   "name <outlet>",
	Short: "Print an outlet's name",
	Example: `  dlipower name 3`,
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := loadSession(cmd)
		if err != nil {
			return err
		}
		client, err := s.connect(cmd.Context())
		if err != nil {
			return err
		}
		ref := powerswitch.ParseRef(args[0])
		if _, err := client.Resolve(cmd.Context(), ref); err != nil {
			return err
		}
		fmt.Println(client.OutletName(cmd.Context(), ref))
		return nil
	},
}

// outletArgs turns arguments into references, or every outlet with --all
func outletArgs(args []string) ([]powerswitch.OutletRef, error) {
	if allOutlets {
		if len(args) > 0 {
			return nil, fmt.Errorf("outlets and --all are mutually exclusive")
		}
		refs := make([]powerswitch.OutletRef, powerswitch.OutletCount)
		for i := range refs {
			refs[i] = powerswitch.Index(i + 1)
		}
		return refs, nil
	}
	if len(args) == 0 {
		return nil, fmt.Errorf("name at least one outlet, or use --all")
	}
	return refsFrom(args), nil
}

func refsFrom(args []string) []powerswitch.OutletRef {
	refs := make([]powerswitch.OutletRef, len(args))
	for i, a := range args {
		refs[i] = powerswitch.ParseRef(a)
	}
	return refs
}

type outcomeJSON struct {
	Outlet int    `json:"outlet"`
	Ref    string `json:"ref"`
	Result string `json:"result,omitempty"`
	Value  string `json:"value,omitempty"`
	Error  string `json:"error,omitempty"`
}

// printOutcomes prints a dispatch result and returns errReported when any
// outlet failed. Outlets already in the requested state are not failures.
func printOutcomes(res *powerswitch.DispatchResult) error {
	failed := false
	out := make([]outcomeJSON, 0, len(res.Outcomes))
	for _, o := range res.Outcomes {
		j := outcomeJSON{Outlet: o.Index, Ref: o.Ref.String(), Value: o.Value}
		if res.Command.Boolean() {
			j.Result = o.Result.String()
			if o.Result == powerswitch.Failed {
				failed = true
			}
		}
		if o.Err != nil {
			j.Error = powerswitch.GetShortErrorMessage(o.Err)
			failed = true
		}
		out = append(out, j)
	}

	switch outputFormat {
	case "json":
		if err := printJSON(out); err != nil {
			return err
		}
	case "plain", "compact":
		for _, j := range out {
			line := strconv.Itoa(j.Outlet) + "\t" + j.Result + j.Value
			if j.Error != "" {
				line += "\t" + j.Error
			}
			fmt.Println(line)
		}
	default:
		ui.NewPrinter(os.Stdout).PrintOutcomes(res)
	}

	if failed {
		return errReported
	}
	return nil
}
