package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/spf13/cobra"

	"github.com/kartavyaai/kartavyabot/internal/bot"
	"github.com/kartavyaai/kartavyabot/internal/completion"
	"github.com/kartavyaai/kartavyabot/internal/config"
	"github.com/kartavyaai/kartavyabot/internal/contacts"
	"github.com/kartavyaai/kartavyabot/internal/health"
	"github.com/kartavyaai/kartavyabot/internal/provider"
	"github.com/kartavyaai/kartavyabot/internal/provider/gemini"
	"github.com/kartavyaai/kartavyabot/internal/provider/openai"
	"github.com/kartavyaai/kartavyabot/internal/provider/rest"
	"github.com/kartavyaai/kartavyabot/internal/session"
	"github.com/kartavyaai/kartavyabot/internal/transport"
	grpctransport "github.com/kartavyaai/kartavyabot/internal/transport/grpc"
	httptransport "github.com/kartavyaai/kartavyabot/internal/transport/http"
	"github.com/kartavyaai/kartavyabot/internal/transport/whatsapp"
)

func newServeCmd(load loadFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Answer incoming messages (default)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			return serve(cmd.Context(), cfg)
		},
	}
}

func serve(ctx context.Context, cfg *config.Config) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	slog.Info("kartavyabot starting", "version", version, "mode", cfg.Bot.Mode)

	// Initialize the completion backend.
	p, err := buildProvider(ctx, cfg)
	if err != nil {
		return err
	}
	if p != nil {
		defer p.Close()
	}

	dir, err := loadContacts(cfg.Bot.ContactsFile)
	if err != nil {
		return err
	}

	handler, err := bot.New(p, bot.Options{
		Mode:         cfg.Bot.Mode,
		Normalizer:   completion.Normalizer{DefaultReply: cfg.Bot.DefaultReply},
		Contacts:     dir,
		ContactsOnly: cfg.Bot.ContactsOnly,
		Sessions:     session.New(cfg.Bot.HistoryDepth, cfg.Bot.MaxSenders),
	})
	if err != nil {
		return err
	}

	// Probe the backend once; an unhealthy backend is only a warning.
	_ = handler.CheckBackend(ctx)

	healthServer := health.New(cfg.Server.HealthPort)

	// Initialize enabled transports.
	var transports []transport.Transport
	if cfg.WhatsApp.Enabled {
		wa := whatsapp.New(cfg.WhatsApp)
		healthServer.AddCheck("whatsapp", wa.Connected)
		transports = append(transports, wa)
	}
	if cfg.HTTP.Enabled {
		transports = append(transports, httptransport.New(cfg.HTTP.Port))
	}
	if cfg.GRPC.Enabled {
		transports = append(transports, grpctransport.New(cfg.GRPC.Port, healthServer.Ready))
	}
	if len(transports) == 0 {
		return errors.New("no transports enabled, enable at least one in config")
	}

	// Start health check server.
	go func() {
		if err := healthServer.ListenAndServe(ctx); err != nil {
			slog.Error("health server failed", "error", err)
		}
	}()

	// Start all transports.
	var wg sync.WaitGroup
	for _, t := range transports {
		wg.Add(1)
		go func(t transport.Transport) {
			defer wg.Done()
			slog.Info("starting transport", "name", t.Name())
			if err := t.Listen(ctx, handler.Handle); err != nil {
				slog.Error("transport failed", "name", t.Name(), "error", err)
			}
		}(t)
	}

	// Mark as started once all transports are launched.
	healthServer.SetReady(true)
	slog.Info("kartavyabot ready",
		"transports", len(transports),
		"health_port", cfg.Server.HealthPort)

	// Block until shutdown signal.
	<-ctx.Done()
	slog.Info("shutdown signal received, draining...")

	for _, t := range transports {
		if err := t.Close(); err != nil {
			slog.Error("transport close error", "name", t.Name(), "error", err)
		}
	}

	wg.Wait()
	slog.Info("kartavyabot stopped")
	return nil
}

// buildProvider returns the backend for the configured mode, or nil in menu
// mode.
func buildProvider(ctx context.Context, cfg *config.Config) (provider.Provider, error) {
	switch cfg.Bot.Mode {
	case config.ModeMenu:
		return nil, nil
	case config.ModeRelay:
		slog.Info("using REST backend", "base_url", cfg.Backend.BaseURL)
		return rest.New(cfg.Backend), nil
	}

	switch cfg.Bot.Provider {
	case "gemini":
		p, err := gemini.New(ctx, cfg.Gemini, cfg.Bot.Persona)
		if err != nil {
			return nil, err
		}
		slog.Info("using Gemini provider", "model", cfg.Gemini.Model)
		return p, nil
	case "openai":
		slog.Info("using OpenAI-compatible provider",
			"base_url", cfg.OpenAI.BaseURL,
			"completion_model", cfg.OpenAI.CompletionModel,
			"transcription_model", cfg.OpenAI.TranscriptionModel)
		return openai.New(cfg.OpenAI, cfg.Bot.Persona), nil
	default:
		return nil, fmt.Errorf("unknown provider %q", cfg.Bot.Provider)
	}
}

func loadContacts(path string) (*contacts.Directory, error) {
	if path == "" {
		return nil, nil
	}
	dir, err := contacts.Load(path)
	if err != nil {
		return nil, err
	}
	slog.Info("contacts loaded", "path", path, "count", dir.Len())
	return dir, nil
}
