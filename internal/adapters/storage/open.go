// Package storage selects and opens the durable key-value backend.
package storage

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jsamuelsen/quote-sync/internal/adapters/storage/badgerkv"
	"github.com/jsamuelsen/quote-sync/internal/adapters/storage/sqlitekv"
	"github.com/jsamuelsen/quote-sync/internal/platform/config"
	"github.com/jsamuelsen/quote-sync/internal/ports"
)

// Driver names accepted in storage.driver.
const (
	DriverBadger = "badger"
	DriverSQLite = "sqlite"
	DriverMemory = "memory"
)

// Backend is a key-value store that can also report its health.
type Backend interface {
	ports.KeyValueStore
	ports.HealthChecker
}

// Open opens the backend named by cfg.Driver. The memory driver is an
// in-memory badger instance and loses everything on Close.
func Open(ctx context.Context, cfg *config.StorageConfig, logger *slog.Logger) (Backend, error) {
	var (
		backend Backend
		err     error
	)

	switch cfg.Driver {
	case DriverBadger:
		backend, err = openBadger(cfg.Path, logger)
	case DriverMemory:
		backend, err = openBadger("", logger)
	case DriverSQLite:
		backend, err = openSQLite(ctx, cfg.Path)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}

	if err != nil {
		return nil, err
	}

	return backend, nil
}

func openBadger(path string, logger *slog.Logger) (Backend, error) {
	s, err := badgerkv.Open(path, logger)
	if err != nil {
		return nil, err
	}

	return s, nil
}

func openSQLite(ctx context.Context, path string) (Backend, error) {
	s, err := sqlitekv.Open(ctx, path)
	if err != nil {
		return nil, err
	}

	return s, nil
}
