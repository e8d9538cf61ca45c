package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kartavyaai/kartavyabot/internal/provider/rest"
)

func newCheckCmd(load loadFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Probe the REST backend health endpoint and exit non-zero when it is down",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			if err := rest.New(cfg.Backend).Health(cmd.Context()); err != nil {
				return fmt.Errorf("backend at %s is not available: %w", cfg.Backend.BaseURL, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "backend at %s is healthy\n", cfg.Backend.BaseURL)
			return nil
		},
	}
}
