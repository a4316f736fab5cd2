// ABOUTME: KV capability interface backing tenant registry and exchange records
// ABOUTME: Deliberately generic so any consistent key-value service can implement it

package store

import (
	"context"
	"errors"
)

// ErrNotFound is returned when a requested key does not exist.
var ErrNotFound = errors.New("key not found")

// KV is the external key-value capability the gateway runs against. The
// request path only reads; the one mutation in the system is the exchange
// record deletion performed by the session minter. Get-then-Delete is not
// atomic under this contract; see DESIGN.md for the known race.
type KV interface {
	// Get returns the value stored at key, or ErrNotFound.
	Get(ctx context.Context, key string) (string, error)

	// Put stores value at key, replacing any existing value.
	Put(ctx context.Context, key, value string) error

	// Delete removes key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error
}
