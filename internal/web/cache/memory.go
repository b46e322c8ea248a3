package cache

import (
	"context"
	"strings"
	"sync"
	"time"
)

// MemoryCache implements an in-memory cache with TTL support. Expired items
// are dropped when read and by a periodic sweep.
type MemoryCache struct {
	mu     sync.RWMutex
	items  map[string]item
	config Config
	now    func() time.Time
	stop   chan struct{}
	once   sync.Once
}

type item struct {
	value   []byte
	expires time.Time
}

// NewMemoryCache creates an in-memory cache and starts its sweeper
func NewMemoryCache(config Config) *MemoryCache {
	m := &MemoryCache{
		items:  make(map[string]item),
		config: config,
		now:    time.Now,
		stop:   make(chan struct{}),
	}
	go m.sweep(time.Minute)
	return m
}

// Get retrieves a value from the cache
func (m *MemoryCache) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	it, ok := m.items[m.config.Prefix+key]
	m.mu.RUnlock()
	if !ok || m.expired(it) {
		return nil, missing(key)
	}
	return it.value, nil
}

// Set stores a value in the cache with a TTL. A negative TTL never expires.
func (m *MemoryCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if ttl == 0 {
		ttl = m.config.DefaultTTL
	}

	it := item{value: append([]byte(nil), value...)}
	if ttl > 0 {
		it.expires = m.now().Add(ttl)
	}

	m.mu.Lock()
	m.items[m.config.Prefix+key] = it
	m.mu.Unlock()
	return nil
}

// Clear removes every value under the prefix
func (m *MemoryCache) Clear(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for key := range m.items {
		if strings.HasPrefix(key, m.config.Prefix) {
			delete(m.items, key)
		}
	}
	return nil
}

// Len returns the number of stored items, expired or not
func (m *MemoryCache) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.items)
}

// Close stops the sweeper
func (m *MemoryCache) Close() error {
	m.once.Do(func() { close(m.stop) })
	return nil
}

func (m *MemoryCache) expired(it item) bool {
	return !it.expires.IsZero() && m.now().After(it.expires)
}

func (m *MemoryCache) sweep(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-m.stop:
			return
		case <-ticker.C:
			m.mu.Lock()
			for key, it := range m.items {
				if m.expired(it) {
					delete(m.items, key)
				}
			}
			m.mu.Unlock()
		}
	}
}
