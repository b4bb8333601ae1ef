package cache

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

type cacheItem[T any] struct {
	value     T
	expiresAt time.Time
}

// Compile-time interface check.
var _ Cache[struct{}] = (*MemoryCache[struct{}])(nil)

// MemoryCache implements Cache interface with in-memory storage.
// Uses lazy expiration (checks expiry on Get).
// Suitable for single-instance deployments.
type MemoryCache[T any] struct {
	mu    sync.RWMutex
	items map[string]cacheItem[T]
	group singleflight.Group
}

// NewMemoryCache creates a new memory cache instance.
func NewMemoryCache[T any]() *MemoryCache[T] {
	return &MemoryCache[T]{
		items: make(map[string]cacheItem[T]),
	}
}

// Get retrieves a value from cache.
func (m *MemoryCache[T]) Get(ctx context.Context, key string) (T, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	item, exists := m.items[key]
	if !exists || time.Now().After(item.expiresAt) {
		var zero T
		return zero, ErrCacheMiss
	}
	return item.value, nil
}

// Set stores a value in cache with TTL.
func (m *MemoryCache[T]) Set(ctx context.Context, key string, value T, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.items[key] = cacheItem[T]{
		value:     value,
		expiresAt: time.Now().Add(ttl),
	}
	return nil
}

// Delete removes a key from cache.
func (m *MemoryCache[T]) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.items, key)
	return nil
}

func (m *MemoryCache[T]) GetWithFetch(
	ctx context.Context,
	key string,
	ttl time.Duration,
	fetch FetchFunc[T],
) (T, error) {
	return readThrough[T](ctx, &m.group, m, key, ttl, fetch)
}

// Close drops every entry.
func (m *MemoryCache[T]) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.items = make(map[string]cacheItem[T])
	return nil
}

// Health always succeeds for the memory cache.
func (m *MemoryCache[T]) Health(ctx context.Context) error {
	return nil
}
