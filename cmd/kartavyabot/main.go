// Kartavyabot is a WhatsApp assistant for KartavyaAI. It answers direct
// messages from a static menu, a generative model (Gemini or any
// OpenAI-compatible API) or a locally hosted REST backend, and can broadcast
// a greeting to a CSV contact list.
//
// Usage:
//
//	kartavyabot [serve] [--config /path/to/kartavyabot.yaml]
//	kartavyabot broadcast --contacts contacts.csv
//	kartavyabot check
//	kartavyabot version
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kartavyaai/kartavyabot/internal/config"
)

// version is set at build time via ldflags.
var version = "dev"

// loadFunc loads the configuration selected by the --config flag.
type loadFunc func() (*config.Config, error)

func main() {
	// Create root context with signal handling for graceful shutdown.
	ctx, cancel := signal.NotifyContext(context.Background(),
		syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		cancel()
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configFile string

	load := func() (*config.Config, error) {
		cfg, err := config.Load(configFile)
		if err != nil {
			return nil, fmt.Errorf("loading configuration: %w", err)
		}
		config.SetupLogging(cfg.Logging)
		return cfg, nil
	}

	serve := newServeCmd(load)
	root := &cobra.Command{
		Use:          "kartavyabot",
		Short:        "WhatsApp assistant for KartavyaAI",
		SilenceUsage: true,
		RunE:         serve.RunE,
	}
	root.PersistentFlags().StringVar(&configFile, "config", "", "path to config file (e.g. configs/kartavyabot.yaml)")

	root.AddCommand(
		serve,
		newBroadcastCmd(load),
		newCheckCmd(load),
		newVersionCmd(),
	)
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version and exit",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "kartavyabot %s\n", version)
		},
	}
}
