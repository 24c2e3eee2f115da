// Package clients provides the resilient HTTP client used by remote adapters.
package clients

import "errors"

// Infrastructure failures of the client layer. Remote adapters translate
// them into domain.FetchError before they reach the sync engine.
var (
	// ErrCircuitOpen is returned while the breaker rejects calls to an unhealthy remote.
	ErrCircuitOpen = errors.New("circuit breaker open")

	// ErrMaxRetriesExceeded wraps the last failure after every attempt was used.
	ErrMaxRetriesExceeded = errors.New("max retries exceeded")
)
