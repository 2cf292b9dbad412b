package main

import (
	"encoding/json"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/charlie0129/handbrake/pkg/types"
	"github.com/charlie0129/handbrake/pkg/version"
)

func NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:         "version",
		Short:       "Print version",
		Annotations: local,
		Run: func(cmd *cobra.Command, _ []string) {
			cmd.Printf("%s %s\n", version.Version, version.GitCommit)
		},
	}
}

func NewStatusCommand() *cobra.Command {
	asJSON := false

	cmd := &cobra.Command{
		Use:     "status",
		GroupID: gBasic,
		Short:   "Get the current status of handbrake",
		Long:    `Get the daemon phase, the active calibration and the last report sent to the host.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			st, err := apiClient().GetStatus()
			if err != nil {
				return err
			}

			if asJSON {
				b, err := json.MarshalIndent(st, "", "  ")
				if err != nil {
					return err
				}
				cmd.Println(string(b))
				return nil
			}

			printStatus(cmd, st)
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the raw status as JSON.")

	return cmd
}

func phaseText(p types.Phase) string {
	switch p {
	case types.PhaseRunning:
		return color.GreenString(string(p))
	case types.PhaseCalibrating:
		return color.YellowString(string(p))
	default:
		return string(p)
	}
}

func printStatus(cmd *cobra.Command, st *types.Status) {
	cmd.Println(bold("Daemon:"))
	cmd.Printf("  Phase: %s\n", bold("%s", phaseText(st.Phase)))
	if !st.StartedAt.IsZero() {
		cmd.Printf("  Up since: %s (%s)\n", st.StartedAt.Format(time.DateTime), time.Since(st.StartedAt).Truncate(time.Second))
	}
	cmd.Println()

	cmd.Println(bold("Calibration:"))
	cmd.Printf("  Range: %s\n", bold("%s", st.Calibration))
	cmd.Printf("  Loaded from file: %s\n", bool2Text(st.Loaded))
	if !st.Loaded {
		cmd.Println("    No calibration was saved yet, built-in defaults are in use. Hold the trigger at power-up to calibrate.")
	}
	if st.Calibration.Degenerate() {
		cmd.Println(color.RedString("    The range is empty, the axis will stay at 0."))
	}
	if s := st.Session; s != nil {
		cmd.Printf("  Session this boot: %s\n", bold("%s", s.Phase))
		cmd.Printf("    Tracked: %d - %d\n", s.Progress.Min, s.Progress.Max)
		if s.LastError != "" {
			cmd.Println(color.RedString("    %s", s.LastError))
		}
	}
	cmd.Println()

	cmd.Println(bold("Output:"))
	if st.Phase != types.PhaseRunning {
		cmd.Println("  Not reporting yet.")
		return
	}
	cmd.Printf("  Raw sample: %s\n", bold("%d", st.Raw))
	cmd.Printf("  Axis: %s %s\n", bold("%3d", st.Axis), axisBar(st.Axis, 32))
	cmd.Printf("  Trigger pressed: %s\n", bool2Text(st.Pressed))
	cmd.Printf("  Ticks: %d", st.Ticks)
	if st.Overruns > 0 {
		cmd.Print(color.YellowString(" (%d overran)", st.Overruns))
	}
	cmd.Println()
}
