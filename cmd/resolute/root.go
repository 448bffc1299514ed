// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Resolute Contributors

package main

import (
	"github.com/knadh/koanf/v2"
	"github.com/spf13/cobra"

	"github.com/resolute/resolute/internal/config"
	"github.com/resolute/resolute/internal/logging"
	"github.com/resolute/resolute/internal/xdg"
)

const serviceName = "resolute"

// NewRootCmd creates the root command for the resolute CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "resolute",
		Short: "Resolute - weekly resolution tracker",
		Long: `Resolute tracks personal resolutions: users sign in, declare weekly
goals and log completions, and the server reports week-by-week progress.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().String("config", "", "config file path (default: $XDG_CONFIG_HOME/resolute/config.yaml)")
	config.RegisterFlags(cmd.PersistentFlags())

	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewMigrateCmd())
	cmd.AddCommand(NewConfigCmd())
	cmd.AddCommand(NewSweepCmd())

	return cmd
}

// loadConfig merges defaults, the config file, flags and environment. An
// explicit --config must exist; the XDG default is optional.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, _, err := loadKoanf(cmd)
	return cfg, err
}

// loadKoanf is loadConfig that also returns the merged koanf tree.
func loadKoanf(cmd *cobra.Command) (*config.Config, *koanf.Koanf, error) {
	path, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, nil, err //nolint:wrapcheck // flag is always registered
	}
	required := path != ""
	if !required {
		path = xdg.DefaultConfigFile()
	}

	return config.Loader{Path: path, Required: required, Flags: cmd.Flags()}.Load()
}

// setupLogging installs the default logger described by cfg.
func setupLogging(cfg *config.Config) {
	level, _ := logging.ParseLevel(cfg.Log.Level) // validated by Load
	logging.SetDefault(serviceName, version, cfg.Log.Format, level)
}
