package app

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/jsamuelsen/quote-sync/internal/platform/logging"
)

// Ticker is the part of *time.Ticker the scheduler uses.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

// TickerFactory builds a ticker firing every d.
type TickerFactory func(d time.Duration) Ticker

type realTicker struct{ t *time.Ticker }

func (r realTicker) C() <-chan time.Time { return r.t.C }
func (r realTicker) Stop()               { r.t.Stop() }

// NewRealTicker wraps time.NewTicker.
func NewRealTicker(d time.Duration) Ticker {
	return realTicker{t: time.NewTicker(d)}
}

// Syncer is the coalescing sync entry point.
type Syncer interface {
	Sync(ctx context.Context) *CycleReport
}

// SchedulerConfig configures a Scheduler. Engine and Interval are required.
type SchedulerConfig struct {
	Engine   Syncer
	Store    *Store
	Interval time.Duration
	Logger   *slog.Logger

	// NewTicker defaults to NewRealTicker.
	NewTicker TickerFactory
}

// Scheduler drives Engine.Sync on a fixed interval while auto-sync is on.
// It implements suture.Service.
type Scheduler struct {
	engine    Syncer
	store     *Store
	interval  time.Duration
	newTicker TickerFactory
	logger    *slog.Logger

	enabled  atomic.Bool
	triggers chan struct{}
}

// NewScheduler creates a scheduler. Auto-sync starts in the state persisted
// in the store preferences (on when there is no store).
func NewScheduler(cfg SchedulerConfig) *Scheduler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	newTicker := cfg.NewTicker
	if newTicker == nil {
		newTicker = NewRealTicker
	}

	s := &Scheduler{
		engine:    cfg.Engine,
		store:     cfg.Store,
		interval:  cfg.Interval,
		newTicker: newTicker,
		logger:    logger.With(slog.String("component", "app.Scheduler")),
		triggers:  make(chan struct{}, 1),
	}

	enabled := true
	if cfg.Store != nil {
		enabled = cfg.Store.Preferences().AutoSync
	}

	s.enabled.Store(enabled)

	return s
}

// Serve runs until ctx is done. Ticks are skipped while auto-sync is off;
// triggers always run.
func (s *Scheduler) Serve(ctx context.Context) error {
	ticker := s.newTicker(s.interval)
	defer ticker.Stop()

	s.logger.InfoContext(ctx, "scheduler started",
		slog.Duration("interval", s.interval),
		slog.Bool("auto_sync", s.enabled.Load()))

	for {
		select {
		case <-ctx.Done():
			s.logger.InfoContext(ctx, "scheduler stopped")
			return ctx.Err()

		case <-ticker.C():
			if !s.enabled.Load() {
				s.logger.Log(ctx, logging.LevelTrace, "auto-sync off, tick skipped")
				continue
			}

			s.engine.Sync(ctx)

		case <-s.triggers:
			s.engine.Sync(ctx)
		}
	}
}

// Trigger queues an out-of-band cycle. It never blocks; a trigger already
// queued absorbs this one.
func (s *Scheduler) Trigger() bool {
	select {
	case s.triggers <- struct{}{}:
		return true
	default:
		return false
	}
}

// Enabled reports whether interval ticks run cycles.
func (s *Scheduler) Enabled() bool {
	return s.enabled.Load()
}

// SetEnabled toggles auto-sync and persists the choice.
func (s *Scheduler) SetEnabled(ctx context.Context, on bool) error {
	s.enabled.Store(on)

	s.logger.InfoContext(ctx, "auto-sync toggled", slog.Bool("auto_sync", on))

	if s.store == nil {
		return nil
	}

	return s.store.SetAutoSync(ctx, on)
}

// String names the service in supervisor logs.
func (s *Scheduler) String() string {
	return "sync-scheduler"
}
