package ephemeral

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

var _ Store = (*RedisStore)(nil)

// scanCount is the COUNT hint passed to SCAN.
const scanCount = 100

// RedisStore is a Store on Redis. Take uses GETDEL, so single-use semantics
// hold across every server instance sharing the database.
type RedisStore struct {
	client redis.UniversalClient
	prefix string
}

// NewRedisStore wraps an existing client. All keys are namespaced under
// prefix, which may be empty.
func NewRedisStore(client redis.UniversalClient, prefix string) *RedisStore {
	return &RedisStore{client: client, prefix: prefix}
}

func (r *RedisStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if err := r.client.Set(ctx, r.prefix+key, value, ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

func (r *RedisStore) Get(ctx context.Context, key string) (string, error) {
	v, err := r.client.Get(ctx, r.prefix+key).Result()
	return v, r.mapErr(err)
}

func (r *RedisStore) Take(ctx context.Context, key string) (string, error) {
	v, err := r.client.GetDel(ctx, r.prefix+key).Result()
	return v, r.mapErr(err)
}

func (r *RedisStore) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = r.prefix + k
	}
	if err := r.client.Del(ctx, full...).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

func (r *RedisStore) Scan(ctx context.Context, pattern string) ([]string, error) {
	var (
		keys   []string
		cursor uint64
	)
	for {
		batch, next, err := r.client.Scan(ctx, cursor, r.prefix+pattern, scanCount).Result()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		for _, k := range batch {
			keys = append(keys, strings.TrimPrefix(k, r.prefix))
		}
		if next == 0 {
			return keys, nil
		}
		cursor = next
	}
}

func (r *RedisStore) Health(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Close is a no-op; the client is owned by whoever created it.
func (r *RedisStore) Close() error { return nil }

func (r *RedisStore) mapErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, redis.Nil):
		return ErrNotFound
	default:
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
}
