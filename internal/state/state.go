// Package state persists small pieces of simulator session state, such
// as the snapshot file a subtree was pinned to through its control
// identifier, so an explicitly configured simulation survives an agent
// restart.
package state

import (
	"context"
	"time"
)

// Store is the backend for persisted session state.
// Implementations must be safe for concurrent use.
type Store interface {
	// Get retrieves the stored value for a key.
	// Returns nil, nil if the key does not exist or has expired.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores a value for a key with an expiration duration.
	// If exp is 0, the key does not expire.
	Set(ctx context.Context, key string, value []byte, exp time.Duration) error

	// Delete removes a key.
	Delete(ctx context.Context, key string) error
}
