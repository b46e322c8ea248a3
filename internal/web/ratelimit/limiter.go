// Package ratelimit bounds how many requests one client may make in a
// window, in process memory or in Redis.
package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// Limiter decides whether a client may make another request
type Limiter interface {
	// Allow records a request for key and reports whether it fits the limit
	Allow(ctx context.Context, key string) (*Decision, error)

	Close() error
}

// Decision is the state of a key's limit after a request
type Decision struct {
	// Limit is the maximum number of requests allowed in the window
	Limit int
	// Remaining is the number of requests left in the current window
	Remaining int
	// ResetAt is when a denied key may try again
	ResetAt time.Time
	Allowed bool
}

// Config holds the limit shared by every backend
type Config struct {
	// Limit is the number of requests a key may make per Window
	Limit int
	// Window is the span the limit applies to
	Window time.Duration
	// Prefix is prepended to Redis keys
	Prefix string
}

func (c Config) validate() error {
	if c.Limit <= 0 {
		return errors.New("limit must be greater than 0")
	}
	if c.Window <= 0 {
		return errors.New("window must be greater than 0")
	}
	return nil
}

// Open creates the limiter for a driver: "memory" or "redis". The driver
// "none" (or empty) returns a nil Limiter.
func Open(ctx context.Context, driver, addr string, cfg Config) (Limiter, error) {
	switch strings.ToLower(driver) {
	case "", "none":
		return nil, nil
	case "memory":
		return NewMemoryLimiter(cfg)
	case "redis":
		client := redis.NewClient(&redis.Options{Addr: addr})
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			return nil, fmt.Errorf("failed to connect to redis at %s: %w", addr, err)
		}
		return NewRedisLimiter(client, cfg)
	}
	return nil, fmt.Errorf("unsupported rate limit driver: %s", driver)
}
