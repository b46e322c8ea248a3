package ratelimit

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestLimiter(t *testing.T, limit int, window time.Duration) (*MemoryLimiter, *fakeClock) {
	t.Helper()
	clock := &fakeClock{now: time.Date(2026, 10, 17, 9, 30, 0, 0, time.UTC)}
	l, err := newMemoryLimiter(Config{Limit: limit, Window: window}, clock.Now)
	require.NoError(t, err)
	return l, clock
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name        string
		config      Config
		expectedErr string
	}{
		{"zero limit", Config{Limit: 0, Window: time.Minute}, "limit must be greater than 0"},
		{"negative limit", Config{Limit: -1, Window: time.Minute}, "limit must be greater than 0"},
		{"zero window", Config{Limit: 10, Window: 0}, "window must be greater than 0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewMemoryLimiter(tt.config)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.expectedErr)
		})
	}
}

func TestMemoryLimiter_AllowUpToLimit(t *testing.T) {
	l, clock := newTestLimiter(t, 3, time.Minute)
	ctx := context.Background()

	for i := 2; i >= 0; i-- {
		d, err := l.Allow(ctx, "10.0.0.1")
		require.NoError(t, err)
		assert.True(t, d.Allowed)
		assert.Equal(t, 3, d.Limit)
		assert.Equal(t, i, d.Remaining)
	}

	d, err := l.Allow(ctx, "10.0.0.1")
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.Equal(t, 0, d.Remaining)
	assert.Equal(t, clock.Now().Add(20*time.Second), d.ResetAt)
}

func TestMemoryLimiter_Refill(t *testing.T) {
	l, clock := newTestLimiter(t, 2, time.Minute)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := l.Allow(ctx, "k")
		require.NoError(t, err)
	}
	d, _ := l.Allow(ctx, "k")
	require.False(t, d.Allowed)

	clock.Advance(30 * time.Second)
	d, _ = l.Allow(ctx, "k")
	assert.True(t, d.Allowed, "one token refills every 30s")

	d, _ = l.Allow(ctx, "k")
	assert.False(t, d.Allowed)

	clock.Advance(10 * time.Minute)
	d, _ = l.Allow(ctx, "k")
	assert.True(t, d.Allowed)
	assert.Equal(t, 1, d.Remaining, "refill is capped at the limit")
}

func TestMemoryLimiter_KeysAreIndependent(t *testing.T) {
	l, _ := newTestLimiter(t, 1, time.Minute)
	ctx := context.Background()

	d, _ := l.Allow(ctx, "a")
	assert.True(t, d.Allowed)
	d, _ = l.Allow(ctx, "a")
	assert.False(t, d.Allowed)

	d, _ = l.Allow(ctx, "b")
	assert.True(t, d.Allowed)
}

func TestMemoryLimiter_EvictIdle(t *testing.T) {
	l, clock := newTestLimiter(t, 5, time.Minute)
	ctx := context.Background()

	_, _ = l.Allow(ctx, "old")
	clock.Advance(45 * time.Second)
	_, _ = l.Allow(ctx, "new")
	clock.Advance(30 * time.Second)

	l.evictIdle()
	assert.Equal(t, 1, l.Len())
}

func TestMemoryLimiter_Concurrent(t *testing.T) {
	l, _ := newTestLimiter(t, 50, time.Hour)
	ctx := context.Background()

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		allowed int
	)
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			d, err := l.Allow(ctx, "shared")
			if err == nil && d.Allowed {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, allowed)
}

func TestMemoryLimiter_CloseIsIdempotent(t *testing.T) {
	l, err := NewMemoryLimiter(Config{Limit: 1, Window: time.Minute})
	require.NoError(t, err)
	assert.NoError(t, l.Close())
	assert.NoError(t, l.Close())
}

func TestOpen(t *testing.T) {
	ctx := context.Background()
	cfg := Config{Limit: 10, Window: time.Minute}

	l, err := Open(ctx, "none", "", cfg)
	require.NoError(t, err)
	assert.Nil(t, l)

	l, err = Open(ctx, "memory", "", cfg)
	require.NoError(t, err)
	assert.IsType(t, &MemoryLimiter{}, l)
	l.Close()

	_, err = Open(ctx, "memcached", "", cfg)
	assert.ErrorContains(t, err, "unsupported rate limit driver")
}
