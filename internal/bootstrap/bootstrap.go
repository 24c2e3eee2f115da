// Package bootstrap builds the object graph shared by the HTTP service and
// the command-line client: storage, remote adapter, record store, sync
// engine and scheduler.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/jsamuelsen/quote-sync/internal/adapters/clients"
	"github.com/jsamuelsen/quote-sync/internal/adapters/clients/acl"
	"github.com/jsamuelsen/quote-sync/internal/adapters/storage"
	"github.com/jsamuelsen/quote-sync/internal/app"
	"github.com/jsamuelsen/quote-sync/internal/domain"
	"github.com/jsamuelsen/quote-sync/internal/platform/config"
	"github.com/jsamuelsen/quote-sync/internal/platform/logging"
	"github.com/jsamuelsen/quote-sync/internal/platform/telemetry"
	"github.com/jsamuelsen/quote-sync/internal/ports"
)

// App is the wired application.
type App struct {
	Config *config.Config
	Logger *slog.Logger

	Backend   storage.Backend
	Remote    *acl.QuoteClient
	Health    *ports.CheckRegistry
	Store     *app.Store
	Engine    *app.Engine
	Scheduler *app.Scheduler
	Transfer  *app.Transfer

	telemetry *telemetry.Provider
}

// LoadConfig loads and validates configuration for profile.
func LoadConfig(dir, profile string) (*config.Config, error) {
	cfg, err := config.LoadFrom(dir, profile)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// NewLogger builds the process logger from cfg, writing to w, and installs
// it as default.
func NewLogger(cfg *config.Config, w io.Writer) *slog.Logger {
	logger := logging.NewWithWriter(&logging.Config{
		Level:   cfg.Log.Level,
		Format:  cfg.Log.Format,
		Service: cfg.App.Name,
		Version: cfg.App.Version,
		File: logging.FileConfig{
			Enabled:    cfg.Log.File.Enabled,
			Path:       cfg.Log.File.Path,
			MaxSizeMB:  cfg.Log.File.MaxSizeMB,
			MaxBackups: cfg.Log.File.MaxBackups,
			MaxAgeDays: cfg.Log.File.MaxAgeDays,
			Compress:   cfg.Log.File.Compress,
		},
	}, w)
	logging.SetDefault(logger)

	return logger
}

// New wires every component and restores the persisted record set. A store
// that cannot be read is logged and left empty; a backend that cannot be
// opened is an error.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	tel, err := telemetry.New(ctx, &telemetry.Config{
		Enabled:      cfg.Telemetry.Enabled,
		Endpoint:     cfg.Telemetry.Endpoint,
		ServiceName:  cfg.Telemetry.ServiceName,
		Version:      cfg.App.Version,
		Environment:  cfg.App.Environment,
		SamplingRate: cfg.Telemetry.SamplingRate,
	})
	if err != nil {
		return nil, fmt.Errorf("initializing telemetry: %w", err)
	}

	backend, err := storage.Open(ctx, &cfg.Storage, logger)
	if err != nil {
		return nil, errors.Join(fmt.Errorf("opening storage: %w", err), tel.Shutdown(ctx))
	}

	a := &App{Config: cfg, Logger: logger, Backend: backend, telemetry: tel}

	if err := a.wire(ctx); err != nil {
		return nil, errors.Join(err, a.Close(ctx))
	}

	return a, nil
}

func (a *App) wire(ctx context.Context) error {
	cfg := a.Config

	httpClient, err := clients.New(&clients.Config{
		BaseURL:     cfg.Remote.BaseURL,
		ServiceName: cfg.Remote.Name,
		Timeout:     cfg.Client.Timeout,
		Retry:       cfg.Client.Retry,
		Circuit:     cfg.Client.CircuitBreaker,
		Transport:   cfg.Client.Transport,
		RateLimit:   cfg.Client.RateLimit,
		Logger:      a.Logger,
	})
	if err != nil {
		return fmt.Errorf("creating HTTP client: %w", err)
	}

	a.Remote = acl.NewQuoteClient(acl.QuoteClientConfig{
		Client:   httpClient,
		AuthorID: cfg.Remote.AuthorID,
		Logger:   a.Logger,
	})

	a.Health = ports.NewHealthRegistry()

	if err := a.Health.Register(a.Backend); err != nil {
		return fmt.Errorf("registering health check %s: %w", a.Backend.Name(), err)
	}

	if err := a.Health.RegisterOptional(a.Remote); err != nil {
		return fmt.Errorf("registering health check %s: %w", a.Remote.Name(), err)
	}

	a.Store = app.NewStore(app.StoreConfig{
		KV:           a.Backend,
		Logger:       a.Logger,
		SeedDefaults: cfg.Storage.SeedDefaults,
	})

	if err := a.Store.Load(ctx); err != nil {
		a.Logger.WarnContext(ctx, "persisted records unreadable, starting empty", slog.Any("error", err))
	}

	policy, err := domain.ParsePolicy(cfg.Sync.Policy)
	if err != nil {
		return err
	}

	a.Engine = app.NewEngine(app.EngineConfig{
		Store:           a.Store,
		Remote:          a.Remote,
		Logger:          a.Logger,
		Policy:          policy,
		PullLimit:       cfg.Remote.PullLimit,
		PushConcurrency: cfg.Sync.PushConcurrency,
	})

	a.Scheduler = app.NewScheduler(app.SchedulerConfig{
		Engine:   a.Engine,
		Store:    a.Store,
		Interval: cfg.Sync.Interval,
		Logger:   a.Logger,
	})

	a.Transfer = app.NewTransfer(a.Store, a.Logger, nil)

	return nil
}

// Close flushes telemetry and closes the storage backend.
func (a *App) Close(ctx context.Context) error {
	var errs []error

	if a.Backend != nil {
		if err := a.Backend.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing storage: %w", err))
		}
	}

	if a.telemetry != nil {
		if err := a.telemetry.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("telemetry shutdown: %w", err))
		}
	}

	return errors.Join(errs...)
}
