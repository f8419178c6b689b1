package cache

import (
	"context"
	"encoding/json"
	"time"
)

// Typed wraps a Cache with JSON serialization for a single value type.
type Typed[T any] struct {
	cache      Cache
	defaultTTL time.Duration
}

// NewTyped creates a typed view over the given cache.
func NewTyped[T any](cache Cache, defaultTTL time.Duration) *Typed[T] {
	return &Typed[T]{cache: cache, defaultTTL: defaultTTL}
}

// Get retrieves and decodes a value. A decode failure counts as a miss;
// the stale entry is dropped.
func (c *Typed[T]) Get(ctx context.Context, key string) (*T, bool) {
	data, err := c.cache.Get(ctx, key)
	if err != nil {
		return nil, false
	}
	var value T
	if err := json.Unmarshal(data, &value); err != nil {
		_ = c.cache.Delete(ctx, key)
		return nil, false
	}
	return &value, true
}

// Set encodes and stores a value with the default TTL.
func (c *Typed[T]) Set(ctx context.Context, key string, value *T) error {
	return c.SetWithTTL(ctx, key, value, c.defaultTTL)
}

// SetWithTTL encodes and stores a value with a custom TTL.
func (c *Typed[T]) SetWithTTL(ctx context.Context, key string, value *T, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return c.cache.Set(ctx, key, data, ttl)
}

// Delete removes a key.
func (c *Typed[T]) Delete(ctx context.Context, key string) error {
	return c.cache.Delete(ctx, key)
}

// GetOrFill returns the cached value, or computes, stores and returns it on
// a miss. Fill errors are returned without caching.
func (c *Typed[T]) GetOrFill(ctx context.Context, key string, fill func() (*T, error)) (*T, error) {
	if value, ok := c.Get(ctx, key); ok {
		return value, nil
	}
	value, err := fill()
	if err != nil {
		return nil, err
	}
	_ = c.Set(ctx, key, value)
	return value, nil
}
