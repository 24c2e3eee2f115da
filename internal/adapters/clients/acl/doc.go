// Package acl is the anti-corruption layer between the remote posts
// collection and the quote domain.
//
// External DTOs stay unexported here. Everything that leaves the package is a
// [domain.Quote] or a [domain.FetchError]: HTTP statuses, transport failures
// and client-level errors ([clients.ErrCircuitOpen], [clients.ErrMaxRetriesExceeded])
// are all translated by [MapHTTPError] before the sync engine sees them.
package acl
