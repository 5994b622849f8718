// Package kvstore abstracts the shared Redis store used for rate limiting,
// response caching, conversation persistence, and the ingest task queue.
package kvstore

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrStoreUnavailable wraps any transport-level failure talking to the store.
// Callers decide their own degradation policy (rate limiter fails open, cache
// treats it as a miss, conversation load returns empty).
var ErrStoreUnavailable = errors.New("kv store unavailable")

// ErrNotFound is returned when a key or hash field does not exist.
var ErrNotFound = errors.New("key not found")

// Store is the shared key-value store contract. Implementations must be safe
// for concurrent use by multiple goroutines.
type Store interface {
	// Ping verifies connectivity.
	Ping(ctx context.Context) error

	// Get returns the string value at key, or ErrNotFound.
	Get(ctx context.Context, key string) (string, error)

	// SetEx sets key to value with a TTL. A zero TTL stores without expiry.
	SetEx(ctx context.Context, key, value string, ttl time.Duration) error

	// Del removes the given keys, returning how many existed.
	Del(ctx context.Context, keys ...string) (int64, error)

	// HIncrBy atomically increments a hash field, creating it at zero first.
	HIncrBy(ctx context.Context, key, field string, delta int64) (int64, error)

	// HGet returns a hash field value, or ErrNotFound.
	HGet(ctx context.Context, key, field string) (string, error)

	// HDel removes hash fields.
	HDel(ctx context.Context, key string, fields ...string) error

	// HKeys enumerates the field names of a hash. Missing keys yield an
	// empty slice, not an error.
	HKeys(ctx context.Context, key string) ([]string, error)

	// Expire sets a TTL on an existing key.
	Expire(ctx context.Context, key string, ttl time.Duration) error

	// Scan returns up to count keys matching pattern starting at cursor,
	// plus the next cursor (0 when the iteration is complete).
	Scan(ctx context.Context, cursor uint64, pattern string, count int64) ([]string, uint64, error)

	// LPush prepends values to a list (task queue producer side).
	LPush(ctx context.Context, key string, values ...string) error

	// BRPop blocks up to timeout waiting to pop from the tail of the list.
	// Returns ErrNotFound when the timeout elapses with no element.
	BRPop(ctx context.Context, timeout time.Duration, key string) (string, error)

	// Close releases the underlying connections.
	Close() error
}

// unavailable wraps a transport error in ErrStoreUnavailable, preserving the
// cause for logging.
func unavailable(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrStoreUnavailable, op, err)
}

// IsNotFound reports whether err means the key or field was absent.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsUnavailable reports whether err was a store transport failure.
func IsUnavailable(err error) bool {
	return errors.Is(err, ErrStoreUnavailable)
}
