package main

import (
	"fmt"

	"github.com/agentuity/go-caselaw/config"
	"github.com/agentuity/go-caselaw/env"
	"github.com/agentuity/go-caselaw/tui"
	"github.com/spf13/cobra"
)

// loadConfig reads the config file and environment, then applies the
// --api-url and --token flags.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	cfg, err := env.LoadConfig(cmd)
	if err != nil {
		return cfg, err
	}
	cfg.API.URL = env.FlagOrValue(cmd, "api-url", cfg.API.URL)
	cfg.API.Token = env.FlagOrValue(cmd, "token", cfg.API.Token)
	return cfg, cfg.Validate()
}

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect or create the config file",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "init <file>",
		Short: "Write the default config to a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.Default().Save(args[0]); err != nil {
				return err
			}
			tui.ShowSuccess("Wrote %s", args[0])
			return nil
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "validate",
		Short: "Load the config and report the first problem",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			tui.ShowSuccess("Configuration is valid")
			fmt.Fprintln(tui.Output, tui.Muted("api: "+cfg.API.URL))
			return nil
		},
	})
	return cmd
}
