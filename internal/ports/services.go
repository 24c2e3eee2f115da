// Package ports defines interfaces for external dependencies.
// Ports are contracts that adapters implement, allowing the application layer
// to depend on abstractions rather than concrete implementations.
//
// Port Design Principles:
//   - Context as first parameter (always) for cancellation and deadlines
//   - Return domain types, never external DTOs or infrastructure types
//   - Error returns use domain error types (ErrNotFound, ErrFetch, etc.)
//   - Keep interfaces small and focused
package ports

import (
	"context"

	"github.com/jsamuelsen/quote-sync/internal/domain"
)

// KeyValueStore is the durable blob store behind the record store.
// Values are opaque; callers own the encoding.
type KeyValueStore interface {
	// Get returns the value stored under key.
	// Returns domain.ErrNotFound if the key does not exist.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores value under key, replacing any previous value.
	// Failures are reported as domain.StorageError.
	Set(ctx context.Context, key string, value []byte) error

	// Close releases the underlying resources.
	Close() error
}

// RemoteQuotes is the remote collection the sync engine reconciles against.
type RemoteQuotes interface {
	// Pull fetches up to limit remote records mapped to domain quotes
	// (clean, server-sourced). Either the whole pull succeeds or it fails
	// with a domain.FetchError.
	Pull(ctx context.Context, limit int) ([]domain.Quote, error)

	// Push writes one record to the remote. Server-sourced records are
	// updated, others created. A failure is a domain.FetchError and
	// concerns only this record.
	Push(ctx context.Context, quote domain.Quote) error
}
