package main

import (
	"encoding/json"
	"os"

	pkgerrors "github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/charlie0129/handbrake/pkg/config"
)

func NewConfigCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "config",
		Short:   "Manage the daemon config file",
		GroupID: gAdvanced,
	}

	cmd.AddCommand(
		newConfigInitCommand(),
		newConfigShowCommand(),
	)

	return cmd
}

func newConfigInitCommand() *cobra.Command {
	force := false

	cmd := &cobra.Command{
		Use:         "init",
		Short:       "Write a config file with every default spelled out",
		Annotations: local,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if _, err := os.Stat(configPath); err == nil && !force {
				return pkgerrors.Errorf("%s already exists, use --force to overwrite it", configPath)
			}

			conf := config.NewFileFromConfig(config.DefaultRawFileConfig(), configPath)
			if err := conf.Save(); err != nil {
				if os.Geteuid() != 0 {
					logrus.Errorf("you must run this command as root")
				}
				return pkgerrors.Wrapf(err, "failed to save config")
			}

			cmd.Printf("Config written to %s. Restart the daemon to apply changes.\n", configPath)
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing config file.")

	return cmd
}

func newConfigShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:         "show",
		Short:       "Print the effective config, defaults included",
		Annotations: local,
		RunE: func(cmd *cobra.Command, _ []string) error {
			conf, err := config.NewFile(configPath)
			if err != nil {
				return err
			}

			raw, err := config.NewRawFileConfigFromConfig(conf)
			if err != nil {
				return err
			}
			b, err := json.MarshalIndent(raw, "", "  ")
			if err != nil {
				return err
			}
			cmd.Println(string(b))
			return nil
		},
	}
}
