package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/sglre6355/harmonybot/internal/bot"
	"github.com/sglre6355/harmonybot/internal/dashboard"
	"github.com/sglre6355/harmonybot/internal/logging"
	_ "github.com/sglre6355/harmonybot/internal/modules/auto_delete"
	_ "github.com/sglre6355/harmonybot/internal/modules/general"
	_ "github.com/sglre6355/harmonybot/internal/modules/music_player"
	_ "github.com/sglre6355/harmonybot/internal/modules/profile"
	"github.com/sglre6355/harmonybot/internal/telemetry"
)

// version is set at build time via ldflags:
// go build -ldflags "-X main.version=1.0.0" ./cmd/harmonybot
var version = "dev"

// processConfig holds the settings the entrypoint needs before the bot exists.
type processConfig struct {
	Logging   logging.Config
	Tracing   telemetry.TracingConfig
	Dashboard dashboard.Config
}

func main() {
	// A missing .env file is normal in production
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("failed to load .env file", "error", err)
	}

	var pcfg processConfig
	if err := env.Parse(&pcfg); err != nil {
		slog.Error("failed to load process config", "error", err)
		os.Exit(1)
	}
	if err := logging.Setup(os.Stdout, pcfg.Logging); err != nil {
		slog.Error("failed to configure logging", "error", err)
		os.Exit(1)
	}

	slog.Info("starting harmonybot", "version", version)

	telemetry.Init()
	shutdownTracing, err := telemetry.InitTracing(pcfg.Tracing, "harmonybot", version)
	if err != nil {
		slog.Error("failed to initialize tracing", "error", err)
		os.Exit(1)
	}
	defer shutdownTracing()

	// Load configuration
	cfg, err := bot.LoadConfig()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	cfg.Version = version

	// Create and configure bot
	b := bot.NewBot(cfg)
	b.LoadModules()

	// Start bot
	if err := b.Start(); err != nil {
		slog.Error("failed to start bot", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dashboardDone := make(chan struct{})
	if pcfg.Dashboard.Enabled() {
		srv := dashboard.NewServer(pcfg.Dashboard)
		b.RegisterRoutes(srv)
		srv.AddStats("guilds", func() any {
			state := b.Session().State
			state.RLock()
			defer state.RUnlock()
			return len(state.Guilds)
		})

		go func() {
			defer close(dashboardDone)
			if err := srv.Start(ctx); err != nil {
				slog.Error("dashboard stopped", "error", err)
			}
		}()
	} else {
		close(dashboardDone)
		slog.Info("dashboard disabled: DASHBOARD_ADDR is empty")
	}

	// Wait for shutdown signal
	<-ctx.Done()
	slog.Info("received termination signal, shutting down")

	<-dashboardDone
	if err := b.Stop(); err != nil {
		slog.Error("failed to shutdown", "error", err)
	}

	slog.Info("completed bot shutdown")
}
