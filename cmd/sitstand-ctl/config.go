package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/tiroq/sitstand/internal/config"
)

func newConfigCmd() *cobra.Command {
	var path string
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the configuration file",
	}
	cmd.PersistentFlags().StringVar(&path, "path", "", "Config file (default $SITSTAND_CONFIG or ~/.config/sitstand/config.yaml)")

	resolve := func() string {
		if path != "" {
			return path
		}
		return config.DefaultPath()
	}

	cmd.AddCommand(
		newConfigInitCmd(resolve),
		newConfigShowCmd(resolve),
	)
	return cmd
}

func newConfigInitCmd(resolve func() string) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write the default configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p := resolve()
			if _, err := os.Stat(p); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", p)
			} else if err != nil && !errors.Is(err, os.ErrNotExist) {
				return err
			}
			if err := config.Save(p, config.DefaultConfig()); err != nil {
				return fmt.Errorf("write config: %w", err)
			}
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "Wrote: %s\n", p)
			return err
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing file")
	return cmd
}

func newConfigShowCmd(resolve func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(resolve())
			if err != nil {
				return err
			}
			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			if err := enc.Encode(cfg); err != nil {
				return err
			}
			return enc.Close()
		},
	}
}
