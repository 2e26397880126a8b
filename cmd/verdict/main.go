package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nightcourt-labs/verdict/internal/api"
	"github.com/nightcourt-labs/verdict/internal/backfill"
	"github.com/nightcourt-labs/verdict/internal/bus"
	"github.com/nightcourt-labs/verdict/internal/commentary"
	"github.com/nightcourt-labs/verdict/internal/config"
	"github.com/nightcourt-labs/verdict/internal/history"
	"github.com/nightcourt-labs/verdict/internal/processor"
	"github.com/nightcourt-labs/verdict/internal/profile"
	"github.com/nightcourt-labs/verdict/internal/render"
	"github.com/nightcourt-labs/verdict/internal/scoring"
	"github.com/nightcourt-labs/verdict/internal/session"
	"github.com/nightcourt-labs/verdict/internal/store"
)

func main() {
	cfg := config.Load()
	setupLogging(cfg.LogLevel)

	slog.Info("verdict starting", "port", cfg.Port)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Database
	if cfg.DatabaseURL == "" {
		slog.Error("DATABASE_URL is required")
		os.Exit(1)
	}
	db, err := store.New(ctx, cfg.DatabaseURL)
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	slog.Info("database connected")

	// NATS
	busClient, err := bus.NewClient(cfg.NatsURL, cfg.NatsToken, slog.Default())
	if err != nil {
		slog.Error("failed to connect to NATS", "error", err)
		os.Exit(1)
	}
	defer busClient.Close()
	slog.Info("NATS connected", "url", cfg.NatsURL)

	silence := time.Duration(cfg.SilenceSeconds) * time.Second

	// Ingestion pipeline
	sessions := session.NewRegistry()
	proc := processor.New(db, db, sessions, silence, slog.Default())

	if err := busClient.Subscribe(bus.SubjectMessage, proc.HandleMessage); err != nil {
		slog.Error("failed to subscribe to message events", "error", err)
		os.Exit(1)
	}
	if err := busClient.Subscribe(bus.SubjectNotice, proc.HandleNotice); err != nil {
		slog.Error("failed to subscribe to notice events", "error", err)
		os.Exit(1)
	}

	// Query surface
	engine := scoring.NewEngine(cfg.MinMessages)
	gen := commentary.NewGenerator(cfg.AnthropicAPIKey, cfg.AnthropicModel, slog.Default())
	if cfg.AnthropicAPIKey == "" {
		slog.Warn("ANTHROPIC_API_KEY not set, commentary will use the local fallback")
	}

	var renderer profile.Renderer
	if cfg.RendererURL != "" {
		renderer = render.NewClient(cfg.RendererURL, slog.Default())
		slog.Info("renderer ready", "url", cfg.RendererURL)
	} else {
		slog.Warn("RENDERER_URL not set, profiles will carry no card artifact")
	}

	var fetcher profile.HistoryFetcher
	if cfg.PlatformURL != "" {
		fetcher = history.NewClient(cfg.PlatformURL)
	} else {
		slog.Warn("PLATFORM_URL not set, cold-start backfill disabled")
	}

	replayer := backfill.NewReplayer(db, db, silence, slog.Default())
	profiles := profile.NewService(db, replayer, fetcher, engine, gen, renderer, busClient, cfg.HistoryCount, slog.Default())

	srv := api.NewServer(cfg.Port, cfg.APIToken, db, profiles)
	go func() {
		if err := srv.Start(); err != nil {
			slog.Error("HTTP server error", "error", err)
		}
	}()

	if err := busClient.Publish("verdict.service.registered", map[string]any{
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"port":      cfg.Port,
		"formula":   scoring.FormulaVersion,
	}); err != nil {
		slog.Warn("failed to publish registration", "error", err)
	}

	slog.Info("verdict ready", "port", cfg.Port, "formula", scoring.FormulaVersion)

	// Graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	slog.Info("shutting down")
	cancel()
	slog.Info("verdict stopped")
}

func setupLogging(level string) {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	slog.SetDefault(slog.New(handler))
}
