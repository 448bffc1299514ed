// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Resolute Contributors

package main

import (
	"time"

	"github.com/samber/oops"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

const redacted = "<redacted>"

// NewConfigCmd creates the config subcommand.
func NewConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration",
		Long: `Print the configuration after merging defaults, the config file,
flags and environment, as YAML. The database URL is redacted.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, k, err := loadKoanf(cmd)
			if err != nil {
				return err
			}
			if cfg.Database.URL != "" {
				if err := k.Set("database.url", redacted); err != nil {
					return oops.Code("CONFIG_ENCODE_FAILED").Wrap(err)
				}
			}
			out, err := yaml.Marshal(displayable(k.Raw()))
			if err != nil {
				return oops.Code("CONFIG_ENCODE_FAILED").Wrap(err)
			}
			_, err = cmd.OutOrStdout().Write(out)
			return err //nolint:wrapcheck // terminal write
		},
	}
}

// displayable renders durations the way the config file spells them.
func displayable(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for key, value := range t {
			out[key] = displayable(value)
		}
		return out
	case time.Duration:
		return t.String()
	default:
		return v
	}
}
