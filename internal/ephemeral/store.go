// Package ephemeral is the TTL key-value store for short-lived protocol
// artifacts: authorization codes and access/refresh token records.
package ephemeral

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound is returned when a key is absent or expired.
	ErrNotFound = errors.New("ephemeral: key not found")

	// ErrUnavailable wraps backend connectivity failures.
	ErrUnavailable = errors.New("ephemeral: backend unavailable")
)

// Store is a string key-value store with per-key expiry.
type Store interface {
	// Set stores value under key for ttl.
	Set(ctx context.Context, key, value string, ttl time.Duration) error

	// Get returns the value or ErrNotFound.
	Get(ctx context.Context, key string) (string, error)

	// Take returns the value and deletes the key in one atomic step. Of any
	// number of concurrent Take calls on a key, at most one succeeds.
	Take(ctx context.Context, key string) (string, error)

	// Delete removes keys. Missing keys are not an error.
	Delete(ctx context.Context, keys ...string) error

	// Scan returns every live key matching a glob pattern such as
	// "access_token:*".
	Scan(ctx context.Context, pattern string) ([]string, error)

	Health(ctx context.Context) error
	Close() error
}

// Key prefixes.
const (
	authCodePrefix     = "auth_code:"
	accessTokenPrefix  = "access_token:"
	refreshTokenPrefix = "refresh_token:"
)

func AuthCodeKey(code string) string      { return authCodePrefix + code }
func AccessTokenKey(token string) string  { return accessTokenPrefix + token }
func RefreshTokenKey(token string) string { return refreshTokenPrefix + token }

// TokenKeyPatterns are the Scan patterns covering every token record.
var TokenKeyPatterns = []string{accessTokenPrefix + "*", refreshTokenPrefix + "*"}
