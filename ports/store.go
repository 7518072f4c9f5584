package ports

import (
	"context"
	"time"
)

// Store is the shared key-value store holding captcha codes and revocation
// entries. Every method is a single round trip.
type Store interface {
	// Set stores value under key, expiring after ttl
	Set(ctx context.Context, key, value string, ttl time.Duration) error

	// SetNX stores value only if key is absent and reports whether it did
	SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error)

	// Get returns the value under key or core.ErrNotFound
	Get(ctx context.Context, key string) (string, error)

	// Delete removes key; deleting a missing key is not an error
	Delete(ctx context.Context, key string) error

	// Exists reports whether key is present and not expired
	Exists(ctx context.Context, key string) (bool, error)
}
