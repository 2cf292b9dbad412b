package main

import (
	"fmt"
	"os"

	pkgerrors "github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/charlie0129/handbrake/pkg/config"
	daemonutils "github.com/charlie0129/handbrake/pkg/utils/daemon"
)

// NewInstallCommand .
func NewInstallCommand() *cobra.Command {
	allowNonRootAccess := false

	cmd := &cobra.Command{
		Use:         "install",
		Short:       "Install handbrake as a systemd service",
		GroupID:     gInstallation,
		Annotations: local,
		Long: `Install handbrake daemon as a systemd service.

This makes handbrake run in the background and automatically start on boot. You must run this command as root.

A config file with every default spelled out is written if none exists yet.

By default, only root user is allowed to read the daemon status. If you want to allow non-root users to run "handbrake status" without sudo, use the --allow-non-root-access flag.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var args []string
			if allowNonRootAccess {
				logrus.Info("non-root users are allowed to access the handbrake daemon.")
				args = append(args, "--always-allow-non-root-access")
			} else {
				logrus.Info("only root user is allowed to access the handbrake daemon.")
			}
			if configPath != defaultConfigPath {
				args = append(args, "--config", configPath)
			}
			if unixSocketPath != defaultUnixSocketPath {
				args = append(args, "--daemon-socket", unixSocketPath)
			}

			if _, err := os.Stat(configPath); os.IsNotExist(err) {
				conf := config.NewFileFromConfig(config.DefaultRawFileConfig(), configPath)
				if err := conf.Save(); err != nil {
					return pkgerrors.Wrapf(err, "failed to save config")
				}
				logrus.Infof("default config written to %s", configPath)
			}

			err := daemonutils.Install(args...)
			if err != nil {
				// check if current user is root
				if os.Geteuid() != 0 {
					logrus.Errorf("you must run this command as root")
				}
				return fmt.Errorf("failed to install daemon: %v. Are you root?", err)
			}

			logrus.Infof("installation succeeded")

			exePath, _ := os.Executable()

			cmd.Printf("systemd will use current binary (%s) at startup so please make sure you do not move this binary. Once this binary is moved or deleted, you will need to run `handbrake install' again.\n", exePath)

			return nil
		},
	}

	cmd.Flags().BoolVar(&allowNonRootAccess, "allow-non-root-access", false, "Allow non-root users to access handbrake daemon.")

	return cmd
}

// NewUninstallCommand .
func NewUninstallCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:         "uninstall",
		Short:       "Uninstall the handbrake systemd service",
		GroupID:     gInstallation,
		Annotations: local,
		Long: `Uninstall handbrake daemon from systemd.

This stops handbrake and removes its unit. The config and the saved calibration are kept.

You must run this command as root.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			err := daemonutils.Uninstall()
			if err != nil {
				// check if current user is root
				if os.Geteuid() != 0 {
					logrus.Errorf("you must run this command as root")
				}
				return fmt.Errorf("failed to uninstall daemon: %v", err)
			}

			cmd.Println("successfully uninstalled")

			cmd.Printf("Your config is kept in %s, in case you want to use `handbrake' again. If you want a complete uninstall, remove it, the calibration file and handbrake itself manually.\n", configPath)

			return nil
		},
	}

	return cmd
}
