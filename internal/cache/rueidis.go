package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/rueidis"
	"golang.org/x/sync/singleflight"
)

// Compile-time interface check.
var _ Cache[struct{}] = (*RueidisCache[struct{}])(nil)

// RueidisCache implements Cache interface using Redis via rueidis client.
// Values are stored as JSON. Suitable for multi-instance deployments where
// the cache needs to be shared.
type RueidisCache[T any] struct {
	client    rueidis.Client
	keyPrefix string
	group     singleflight.Group
}

// NewRueidisCache creates a new Redis cache instance using rueidis.
func NewRueidisCache[T any](
	ctx context.Context,
	addr, password string,
	db int,
	keyPrefix string,
) (*RueidisCache[T], error) {
	client, err := rueidis.NewClient(rueidis.ClientOption{
		InitAddress:  []string{addr},
		Password:     password,
		SelectDB:     db,
		DisableCache: true, // Basic mode without client-side caching
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create redis client: %w", err)
	}

	if err := client.Do(ctx, client.B().Ping().Build()).Error(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping Redis: %w", err)
	}

	return &RueidisCache[T]{
		client:    client,
		keyPrefix: keyPrefix,
	}, nil
}

// Get retrieves a value from Redis.
func (r *RueidisCache[T]) Get(ctx context.Context, key string) (T, error) {
	var zero T

	resp := r.client.Do(ctx, r.client.B().Get().Key(r.keyPrefix+key).Build())
	if err := resp.Error(); err != nil {
		if rueidis.IsRedisNil(err) {
			return zero, ErrCacheMiss
		}
		return zero, fmt.Errorf("%w: %v", ErrCacheUnavailable, err)
	}

	str, err := resp.ToString()
	if err != nil {
		return zero, fmt.Errorf("%w: %v", ErrInvalidValue, err)
	}

	var value T
	if err := json.Unmarshal([]byte(str), &value); err != nil {
		return zero, fmt.Errorf("%w: %v", ErrInvalidValue, err)
	}
	return value, nil
}

// Set stores a value in Redis with TTL.
func (r *RueidisCache[T]) Set(ctx context.Context, key string, value T, ttl time.Duration) error {
	encoded, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidValue, err)
	}

	cmd := r.client.B().Set().
		Key(r.keyPrefix + key).
		Value(string(encoded)).
		Ex(ttl).
		Build()
	if err := r.client.Do(ctx, cmd).Error(); err != nil {
		return fmt.Errorf("%w: %v", ErrCacheUnavailable, err)
	}
	return nil
}

// Delete removes a key from Redis.
func (r *RueidisCache[T]) Delete(ctx context.Context, key string) error {
	cmd := r.client.B().Del().Key(r.keyPrefix + key).Build()
	if err := r.client.Do(ctx, cmd).Error(); err != nil {
		return fmt.Errorf("%w: %v", ErrCacheUnavailable, err)
	}
	return nil
}

func (r *RueidisCache[T]) GetWithFetch(
	ctx context.Context,
	key string,
	ttl time.Duration,
	fetch FetchFunc[T],
) (T, error) {
	return readThrough[T](ctx, &r.group, r, key, ttl, fetch)
}

// Close closes the Redis connection.
func (r *RueidisCache[T]) Close() error {
	r.client.Close()
	return nil
}

// Health checks if Redis is reachable.
func (r *RueidisCache[T]) Health(ctx context.Context) error {
	if err := r.client.Do(ctx, r.client.B().Ping().Build()).Error(); err != nil {
		return fmt.Errorf("%w: %v", ErrCacheUnavailable, err)
	}
	return nil
}
