package main

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/charlie0129/handbrake/pkg/config"
	"github.com/charlie0129/handbrake/pkg/daemon"
	"github.com/charlie0129/handbrake/pkg/version"
)

// NewDaemonCommand .
func NewDaemonCommand() *cobra.Command {
	opts := daemon.Options{}

	cmd := &cobra.Command{
		Use:         "daemon",
		Hidden:      true,
		Short:       "Run handbrake daemon in the foreground",
		GroupID:     gAdvanced,
		Annotations: local,
		Long: `Run handbrake daemon in the foreground.

The daemon owns the hardware. At start it checks the trigger: if held, it
enters calibration mode and the indicator lights up until the trigger is
pressed again. It then reports the lever to the host until stopped.

With --simulate, no hardware is touched: the lever sweeps back and forth over
the default range and reports are kept in memory.`,
		RunE: func(_ *cobra.Command, _ []string) error {
			logrus.WithFields(logrus.Fields{
				"version": version.Version,
				"commit":  version.GitCommit,
			}).Info("handbrake daemon starting")

			conf, err := config.NewFile(configPath)
			if err != nil {
				return err
			}

			return daemon.Run(conf, unixSocketPath, opts)
		},
	}

	f := cmd.Flags()

	f.BoolVar(&opts.Simulate, "simulate", false,
		"Run without hardware, against a simulated lever and an in-memory HID transport.")
	f.BoolVar(&opts.AllowNonRoot, "always-allow-non-root-access", false,
		"Always allow non-root users to access the daemon.")

	return cmd
}
