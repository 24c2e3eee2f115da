// Package main is the entry point for the quote sync service.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/thejerf/suture/v4"
	"github.com/thejerf/sutureslog"

	"github.com/jsamuelsen/quote-sync/internal/adapters/http"
	"github.com/jsamuelsen/quote-sync/internal/adapters/http/handlers"
	"github.com/jsamuelsen/quote-sync/internal/bootstrap"
)

// Build-time variables, injected via ldflags.
// Example: go build -ldflags "-X main.Version=1.0.0 -X main.Commit=$(git rev-parse HEAD) -X main.BuildTime=$(date -u +%Y-%m-%dT%H:%M:%SZ)"
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	profile := os.Getenv("APP_ENVIRONMENT")
	if profile == "" {
		profile = "local"
	}

	cfg, err := bootstrap.LoadConfig("configs", profile)
	if err != nil {
		return err
	}

	logger := bootstrap.NewLogger(cfg, os.Stdout)

	logger.Info("starting service",
		slog.String("version", Version),
		slog.String("commit", Commit),
		slog.String("environment", cfg.App.Environment),
		slog.String("storage", cfg.Storage.Driver),
		slog.String("remote", cfg.Remote.BaseURL),
	)

	a, err := bootstrap.New(ctx, cfg, logger)
	if err != nil {
		return err
	}

	defer func() {
		if closeErr := a.Close(context.WithoutCancel(ctx)); closeErr != nil {
			logger.Error("shutdown error", slog.Any("error", closeErr))
		}
	}()

	buildInfo := handlers.NewBuildInfo(cfg.App.Name, Version, Commit, BuildTime)

	server := http.New(&cfg.Server, logger)
	http.SetupRouter(server.Engine(), http.RouterConfig{
		Logger:        logger,
		AppConfig:     &cfg.App,
		HealthHandler: handlers.NewHealthHandler(a.Health, buildInfo),
		QuoteHandler:  handlers.NewQuoteHandler(a.Store, a.Transfer),
		SyncHandler:   handlers.NewSyncHandler(a.Engine, a.Scheduler),
		Timeout:       cfg.Server.RequestTimeout,
	})

	hook := (&sutureslog.Handler{Logger: logger}).MustHook()

	root := suture.New(cfg.App.Name, suture.Spec{
		EventHook: hook,
		Timeout:   cfg.Server.ShutdownTimeout,
	})
	root.Add(server)
	root.Add(a.Scheduler)

	// With auto-sync on, the first pull does not wait a full interval.
	if a.Scheduler.Enabled() {
		a.Scheduler.Trigger()
	}

	err = root.Serve(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("supervisor: %w", err)
	}

	logger.Info("shutdown complete")

	return nil
}
