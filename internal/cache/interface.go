package cache

import (
	"context"
	"time"
)

// FetchFunc loads a value on cache miss.
type FetchFunc[T any] func(ctx context.Context, key string) (T, error)

// Cache is a typed key-value cache with TTL.
type Cache[T any] interface {
	// Get returns ErrCacheMiss if the key does not exist or has expired.
	Get(ctx context.Context, key string) (T, error)

	Set(ctx context.Context, key string, value T, ttl time.Duration) error

	Delete(ctx context.Context, key string) error

	// GetWithFetch is read-through: on miss it calls fetch once per key even
	// under concurrent callers in this process, stores the result, and
	// returns it. Fetch errors are returned unchanged and nothing is cached.
	GetWithFetch(ctx context.Context, key string, ttl time.Duration, fetch FetchFunc[T]) (T, error)

	Close() error
	Health(ctx context.Context) error
}
