// Package storage defines the key/value store the kit persists encrypted
// tokens and installation records in, plus an in-memory implementation.
package storage

import (
	"context"
	"time"
)

// Store is a key/value store over opaque serialized blobs. The core always
// stores pre-encrypted bytes, never plaintext secrets.
//
// All operations are idempotent; Delete of a missing key is a no-op. TTL is
// advisory for in-process backends and mandatory-at-least for durable ones.
// Each entity is a single key, so single-key atomicity at the backend is
// sufficient.
type Store interface {
	// Get returns the value for key, or ok=false if the key is absent.
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)

	// Put stores value under key. A zero ttl means no expiry.
	Put(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// GetDelete atomically reads and removes key, returning ok=false if it
	// was absent. Used for single-use records such as OAuth CSRF state:
	// under concurrent callers at most one receives the value.
	GetDelete(ctx context.Context, key string) (value []byte, ok bool, err error)
}
