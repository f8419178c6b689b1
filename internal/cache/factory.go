package cache

import "time"

// Options selects and configures a cache backend.
type Options struct {
	// RedisURL selects the Redis backend when non-empty.
	RedisURL string

	Prefix     string
	DefaultTTL time.Duration
	MaxEntries int
}

// New creates a cache backend from the given options: Redis when a URL is
// configured, in-memory otherwise.
func New(opts Options) (Cache, error) {
	if opts.RedisURL != "" {
		return NewRedisCache(RedisCacheOptions{
			URL:        opts.RedisURL,
			Prefix:     opts.Prefix,
			DefaultTTL: opts.DefaultTTL,
		})
	}
	return NewMemoryCache(MemoryCacheOptions{
		DefaultTTL: opts.DefaultTTL,
		MaxEntries: opts.MaxEntries,
	}), nil
}
