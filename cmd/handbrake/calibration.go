package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/charlie0129/handbrake/pkg/calibration"
	"github.com/charlie0129/handbrake/pkg/client"
	"github.com/charlie0129/handbrake/pkg/config"
	"github.com/charlie0129/handbrake/pkg/events"
)

func NewCalibrationCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "calibration",
		Aliases: []string{"calibrate", "cali"},
		Short:   "Inspect the lever calibration",
		Long: `Inspect the lever calibration.

Calibration itself happens on the device: hold the trigger while powering up,
sweep the lever across its full travel, then press the trigger to save.`,
		GroupID: gBasic,
	}

	cmd.AddCommand(
		newCalibrationShowCommand(),
		newCalibrationResetCommand(),
		newCalibrationWatchCommand(),
	)

	return cmd
}

func newCalibrationShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:         "show",
		Short:       "Show the active calibration",
		Long:        "Show the active calibration. If the daemon is not running, the calibration file is read directly.",
		Annotations: local,
		RunE: func(cmd *cobra.Command, _ []string) error {
			info, err := apiClient().GetCalibration()
			if err == nil {
				cmd.Printf("Range: %s\n", bold("%s", info.Active))
				cmd.Printf("Loaded from %s: %s\n", info.Path, bool2Text(info.Loaded))
				return nil
			}
			if !errors.Is(err, client.ErrDaemonNotRunning) {
				return err
			}

			logrus.Debug("daemon not running, reading calibration file")

			conf, err := config.NewFile(configPath)
			if err != nil {
				return err
			}
			store := calibration.NewFileStore(conf.CalibrationFile())
			rec, loaded := calibration.LoadOrDefault(store, conf.DefaultCalibration())
			cmd.Printf("Range: %s\n", bold("%s", rec))
			cmd.Printf("Loaded from %s: %s\n", store.Path(), bool2Text(loaded))
			return nil
		},
	}
}

func newCalibrationResetCommand() *cobra.Command {
	return &cobra.Command{
		Use:         "reset",
		Short:       "Delete the saved calibration",
		Long:        "Delete the saved calibration. The built-in defaults are used from the next power-up on.",
		Annotations: local,
		RunE: func(cmd *cobra.Command, _ []string) error {
			conf, err := config.NewFile(configPath)
			if err != nil {
				return err
			}

			store := calibration.NewFileStore(conf.CalibrationFile())
			if err := store.Remove(); err != nil {
				if os.Geteuid() != 0 {
					logrus.Errorf("you must run this command as root")
				}
				return err
			}

			cmd.Printf("Calibration removed. %s will be used from the next power-up on.\n", bold("%s", conf.DefaultCalibration()))
			return nil
		},
	}
}

func newCalibrationWatchCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Follow a calibration session live",
		Long:  "Follow a calibration session live. Exits once the session saved its result or failed to.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			st, err := apiClient().GetStatus()
			if err != nil {
				return err
			}
			if s := st.Session; s != nil && (s.Phase == calibration.PhaseDone || s.Phase == calibration.PhaseError) {
				cmd.Printf("A session already ended this boot: %s\n", bold("%s", s.Phase))
			}

			cmd.Println("Waiting for calibration events. Press Ctrl-C to stop.")

			for ev := range apiClient().SubscribeEvents(ctx) {
				done, err := printCalibrationEvent(cmd, ev)
				if err != nil {
					logrus.WithError(err).WithField("event", ev.Name).Error("failed to decode event")
					continue
				}
				if done {
					return nil
				}
			}
			return nil
		},
	}
}

// printCalibrationEvent returns true once the session ended.
func printCalibrationEvent(cmd *cobra.Command, ev events.Event) (bool, error) {
	switch ev.Name {
	case events.CalibrationProgress:
		p, err := events.DecodeAs[events.CalibrationProgressEvent](ev)
		if err != nil {
			return false, err
		}
		cmd.Printf("\r  raw %6d   min %6d   max %6d ", p.Raw, p.Min, p.Max)
	case events.CalibrationSaved:
		p, err := events.DecodeAs[events.CalibrationResultEvent](ev)
		if err != nil {
			return false, err
		}
		cmd.Println()
		cmd.Println(color.GreenString("Calibration saved: %d - %d", p.Min, p.Max))
		return true, nil
	case events.CalibrationFailed:
		p, err := events.DecodeAs[events.CalibrationResultEvent](ev)
		if err != nil {
			return false, err
		}
		cmd.Println()
		cmd.Println(color.RedString("Calibration %d - %d could not be saved: %s", p.Min, p.Max, p.Message))
		return true, nil
	case events.SupervisorPhase:
		p, err := events.DecodeAs[events.SupervisorPhaseEvent](ev)
		if err != nil {
			return false, err
		}
		cmd.Printf("Daemon: %s -> %s\n", p.From, p.To)
	}
	return false, nil
}
