package ratelimit

import (
	"context"
	"sync"
	"time"
)

// MemoryLimiter is a token bucket per key. A bucket holds Limit tokens and
// refills at Limit tokens per Window.
type MemoryLimiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	limit   int
	window  time.Duration
	now     func() time.Time

	done chan struct{}
	once sync.Once
}

type bucket struct {
	tokens     float64
	lastRefill time.Time
}

// NewMemoryLimiter creates a token bucket limiter. Idle buckets are swept
// once per window.
func NewMemoryLimiter(cfg Config) (*MemoryLimiter, error) {
	l, err := newMemoryLimiter(cfg, time.Now)
	if err != nil {
		return nil, err
	}
	go l.sweep(cfg.Window)
	return l, nil
}

func newMemoryLimiter(cfg Config, now func() time.Time) (*MemoryLimiter, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &MemoryLimiter{
		buckets: make(map[string]*bucket),
		limit:   cfg.Limit,
		window:  cfg.Window,
		now:     now,
		done:    make(chan struct{}),
	}, nil
}

// Allow takes a token from key's bucket
func (l *MemoryLimiter) Allow(ctx context.Context, key string) (*Decision, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	b, ok := l.buckets[key]
	if !ok {
		b = &bucket{tokens: float64(l.limit), lastRefill: now}
		l.buckets[key] = b
	}

	if elapsed := now.Sub(b.lastRefill); elapsed > 0 {
		b.tokens += float64(l.limit) * elapsed.Seconds() / l.window.Seconds()
		if b.tokens > float64(l.limit) {
			b.tokens = float64(l.limit)
		}
		b.lastRefill = now
	}

	d := &Decision{Limit: l.limit}
	if b.tokens >= 1 {
		b.tokens--
		d.Allowed = true
	}
	d.Remaining = int(b.tokens)
	d.ResetAt = now.Add(l.untilToken(b.tokens))
	return d, nil
}

// untilToken is how long a bucket holding tokens waits for a whole token
func (l *MemoryLimiter) untilToken(tokens float64) time.Duration {
	if tokens >= 1 {
		return 0
	}
	perToken := float64(l.window) / float64(l.limit)
	return time.Duration((1 - tokens) * perToken)
}

func (l *MemoryLimiter) sweep(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			l.evictIdle()
		case <-l.done:
			return
		}
	}
}

// evictIdle drops buckets that have refilled completely
func (l *MemoryLimiter) evictIdle() {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	for key, b := range l.buckets {
		if now.Sub(b.lastRefill) >= l.window {
			delete(l.buckets, key)
		}
	}
}

// Len returns the number of tracked keys
func (l *MemoryLimiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buckets)
}

// Close stops the sweeper
func (l *MemoryLimiter) Close() error {
	l.once.Do(func() { close(l.done) })
	return nil
}
