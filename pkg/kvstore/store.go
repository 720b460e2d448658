package kvstore

import "context"

// Store defines durable string key-value persistence.
type Store interface {
	// Get returns the value for key or ErrNotFound.
	Get(ctx context.Context, key string) (string, error)

	// Set stores value under key, replacing any previous value.
	Set(ctx context.Context, key, value string) error

	// Delete removes all given keys in one operation. Absent keys are ignored.
	Delete(ctx context.Context, keys ...string) error
}
