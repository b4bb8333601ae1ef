package cache

import (
	"context"
	"time"

	"golang.org/x/sync/singleflight"
)

// readThrough implements GetWithFetch on top of any Get/Set pair. Concurrent
// misses for one key share a single fetch.
func readThrough[T any](
	ctx context.Context,
	group *singleflight.Group,
	c Cache[T],
	key string,
	ttl time.Duration,
	fetch FetchFunc[T],
) (T, error) {
	if value, err := c.Get(ctx, key); err == nil {
		return value, nil
	}

	v, err, _ := group.Do(key, func() (any, error) {
		value, err := fetch(ctx, key)
		if err != nil {
			return nil, err
		}
		_ = c.Set(ctx, key, value, ttl)
		return value, nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return v.(T), nil
}
