// Package cache provides the caching infrastructure used for identity
// lookups and public content pages. Backends: in-memory (default) or Redis.
package cache

import (
	"context"
	"time"
)

// Cache is the interface all backends implement. Values are []byte so the
// same interface serves both the in-memory and the Redis backend.
// Implementations must be safe for concurrent use.
type Cache interface {
	// Get returns the value for key, or ErrCacheMiss if absent or expired.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores value under key with the given TTL. A zero TTL means the
	// backend's default TTL.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes a key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error

	// Clear removes all entries owned by this cache.
	Clear(ctx context.Context) error

	// Close releases any resources held by the cache.
	Close() error
}

// Sweeper is implemented by backends that need periodic expired-entry
// cleanup driven from the maintenance scheduler.
type Sweeper interface {
	Sweep()
}

// Error is the error type for cache operations.
type Error string

func (e Error) Error() string { return string(e) }

const (
	// ErrCacheMiss indicates the key was not found or has expired.
	ErrCacheMiss Error = "cache miss"

	// ErrCacheClosed indicates the cache has been closed.
	ErrCacheClosed Error = "cache closed"
)
