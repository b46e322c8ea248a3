package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T, limit int, window time.Duration) (*RedisLimiter, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	l, err := NewRedisLimiter(client, Config{Limit: limit, Window: window, Prefix: "test:"})
	require.NoError(t, err)
	t.Cleanup(func() { l.Close() })
	return l, mr
}

func TestNewRedisLimiter_InvalidConfig(t *testing.T) {
	_, err := NewRedisLimiter(nil, Config{Limit: 1, Window: time.Minute})
	assert.ErrorContains(t, err, "redis client is required")

	_, err = NewRedisLimiter(&redis.Client{}, Config{Limit: 0, Window: time.Minute})
	assert.ErrorContains(t, err, "limit must be greater than 0")
}

func TestRedisLimiter_AllowUpToLimit(t *testing.T) {
	l, mr := setupTestRedis(t, 3, time.Minute)
	ctx := context.Background()
	start := time.Date(2026, 10, 17, 9, 30, 0, 0, time.UTC)
	l.now = func() time.Time { return start }

	for i := 2; i >= 0; i-- {
		d, err := l.Allow(ctx, "10.0.0.1")
		require.NoError(t, err)
		assert.True(t, d.Allowed)
		assert.Equal(t, i, d.Remaining)
	}

	d, err := l.Allow(ctx, "10.0.0.1")
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.Equal(t, 0, d.Remaining)
	assert.Equal(t, start.Add(time.Minute).UnixMilli(), d.ResetAt.UnixMilli())

	assert.True(t, mr.Exists("test:10.0.0.1"))
	assert.Greater(t, mr.TTL("test:10.0.0.1"), time.Duration(0))
}

func TestRedisLimiter_SlidingWindow(t *testing.T) {
	l, _ := setupTestRedis(t, 2, time.Minute)
	ctx := context.Background()
	now := time.Date(2026, 10, 17, 9, 30, 0, 0, time.UTC)
	l.now = func() time.Time { return now }

	_, err := l.Allow(ctx, "k")
	require.NoError(t, err)
	now = now.Add(40 * time.Second)
	_, err = l.Allow(ctx, "k")
	require.NoError(t, err)

	d, err := l.Allow(ctx, "k")
	require.NoError(t, err)
	assert.False(t, d.Allowed)

	now = now.Add(21 * time.Second)
	d, err = l.Allow(ctx, "k")
	require.NoError(t, err)
	assert.True(t, d.Allowed, "the first request left the window")
	assert.Equal(t, 0, d.Remaining)
}

func TestRedisLimiter_KeysAreIndependent(t *testing.T) {
	l, _ := setupTestRedis(t, 1, time.Minute)
	ctx := context.Background()

	d, err := l.Allow(ctx, "a")
	require.NoError(t, err)
	assert.True(t, d.Allowed)

	d, err = l.Allow(ctx, "b")
	require.NoError(t, err)
	assert.True(t, d.Allowed)
}

func TestRedisLimiter_Reset(t *testing.T) {
	l, _ := setupTestRedis(t, 1, time.Minute)
	ctx := context.Background()

	_, err := l.Allow(ctx, "k")
	require.NoError(t, err)
	require.NoError(t, l.Reset(ctx, "k"))

	d, err := l.Allow(ctx, "k")
	require.NoError(t, err)
	assert.True(t, d.Allowed)
}

func TestRedisLimiter_ConnectionError(t *testing.T) {
	l, mr := setupTestRedis(t, 1, time.Minute)
	mr.Close()

	_, err := l.Allow(context.Background(), "k")
	assert.ErrorContains(t, err, "redis rate limit check failed")
}

func TestOpenRedis(t *testing.T) {
	mr := miniredis.RunT(t)

	l, err := Open(context.Background(), "redis", mr.Addr(), Config{Limit: 1, Window: time.Minute})
	require.NoError(t, err)
	assert.IsType(t, &RedisLimiter{}, l)
	require.NoError(t, l.Close())
}
