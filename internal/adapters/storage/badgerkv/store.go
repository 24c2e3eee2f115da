// Package badgerkv implements ports.KeyValueStore on BadgerDB.
package badgerkv

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dgraph-io/badger/v4"

	"github.com/jsamuelsen/quote-sync/internal/domain"
)

// keyPrefix namespaces every key this store writes.
const keyPrefix = "quotesync:"

// Store is a BadgerDB-backed key-value store.
type Store struct {
	db *badger.DB
}

// Open opens (or creates) a database directory at path. An empty path
// opens an in-memory database.
func Open(path string, logger *slog.Logger) (*Store, error) {
	opts := badger.DefaultOptions(path)
	if path == "" {
		opts = opts.WithInMemory(true)
	}

	if logger == nil {
		opts = opts.WithLogger(nil)
	} else {
		opts = opts.WithLogger(&slogAdapter{logger: logger.With(slog.String("component", "badger"))})
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger db at %q: %w", path, err)
	}

	return &Store{db: db}, nil
}

// Get returns the value under key or domain.ErrNotFound.
func (s *Store) Get(_ context.Context, key string) ([]byte, error) {
	var out []byte

	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(keyPrefix + key))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return domain.NewNotFoundError("key", key)
		}

		if err != nil {
			return err
		}

		out, err = item.ValueCopy(nil)

		return err
	})
	if err != nil {
		if domain.IsNotFound(err) {
			return nil, err
		}

		return nil, domain.NewStorageError("read", key, err)
	}

	return out, nil
}

// Set writes value under key in a single transaction.
func (s *Store) Set(_ context.Context, key string, value []byte) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(keyPrefix+key), value)
	})
	if err != nil {
		return domain.NewStorageError("write", key, err)
	}

	return nil
}

// Close flushes and closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Name implements ports.HealthChecker.
func (s *Store) Name() string {
	return "badger"
}

// Check implements ports.HealthChecker.
func (s *Store) Check(_ context.Context) error {
	if s.db.IsClosed() {
		return errors.New("badger db is closed")
	}

	return nil
}

// slogAdapter routes badger's printf-style logging into slog.
type slogAdapter struct {
	logger *slog.Logger
}

func (a *slogAdapter) Errorf(format string, args ...any) {
	a.logger.Error(fmt.Sprintf(format, args...))
}

func (a *slogAdapter) Warningf(format string, args ...any) {
	a.logger.Warn(fmt.Sprintf(format, args...))
}

func (a *slogAdapter) Infof(format string, args ...any) {
	a.logger.Debug(fmt.Sprintf(format, args...))
}

func (a *slogAdapter) Debugf(format string, args ...any) {
	a.logger.Debug(fmt.Sprintf(format, args...))
}
