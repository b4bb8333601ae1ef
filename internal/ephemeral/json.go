package ephemeral

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// PutJSON stores v encoded as JSON.
func PutJSON[T any](ctx context.Context, s Store, key string, v T, ttl time.Duration) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return s.Set(ctx, key, string(b), ttl)
}

// GetJSON reads and decodes the value under key.
func GetJSON[T any](ctx context.Context, s Store, key string) (T, error) {
	raw, err := s.Get(ctx, key)
	if err != nil {
		var zero T
		return zero, err
	}
	return decode[T](key, raw)
}

// TakeJSON atomically consumes and decodes the value under key.
func TakeJSON[T any](ctx context.Context, s Store, key string) (T, error) {
	raw, err := s.Take(ctx, key)
	if err != nil {
		var zero T
		return zero, err
	}
	return decode[T](key, raw)
}

func decode[T any](key, raw string) (T, error) {
	var v T
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		var zero T
		return zero, fmt.Errorf("decode %s: %w", key, err)
	}
	return v, nil
}
