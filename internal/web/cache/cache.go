// Package cache stores rendered search results keyed by their canonical
// query, in process memory or in Redis.
package cache

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrMiss is returned by Get when a key is absent or expired
var ErrMiss = errors.New("cache miss")

// Cache defines the interface for all cache backends
type Cache interface {
	// Get retrieves a value from the cache
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores a value with a TTL; zero uses the backend's default
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Clear removes every value stored under the cache's prefix
	Clear(ctx context.Context) error

	Close() error
}

// Config holds common configuration for cache backends
type Config struct {
	// DefaultTTL is the default time-to-live for cached items
	DefaultTTL time.Duration
	// Prefix is prepended to all cache keys
	Prefix string
}

// DefaultConfig returns a default cache configuration
func DefaultConfig() Config {
	return Config{
		DefaultTTL: time.Minute,
		Prefix:     "querykit:",
	}
}

// Open creates the cache for a driver: "memory" or "redis". The driver
// "none" (or empty) returns a nil Cache.
func Open(ctx context.Context, driver, addr string, cfg Config) (Cache, error) {
	switch strings.ToLower(driver) {
	case "", "none":
		return nil, nil
	case "memory":
		return NewMemoryCache(cfg), nil
	case "redis":
		r, err := NewRedisCache(ctx, RedisConfig{Addr: addr, Config: cfg})
		if err != nil {
			return nil, fmt.Errorf("failed to connect to redis at %s: %w", addr, err)
		}
		return r, nil
	}
	return nil, fmt.Errorf("unsupported cache driver: %s", driver)
}

func missing(key string) error {
	return fmt.Errorf("%w: %s", ErrMiss, key)
}
