package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		JWTSecret:                     "test-secret",
		AccessTokenExpiration:         15 * time.Minute,
		RefreshTokenExpiration:        7 * 24 * time.Hour,
		SessionRefreshTokenExpiration: 30 * 24 * time.Hour,
		AuthCodeExpiration:            10 * time.Minute,
		EphemeralStore:                StoreMemory,
		EnableRateLimit:               true,
		RateLimitStore:                StoreMemory,
		ClientCacheType:               ClientCacheMemory,
		ClientCacheTTL:                5 * time.Minute,
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(c *Config)
		expectError bool
		errorMsg    string
	}{
		{
			name:   "valid memory stores",
			mutate: func(c *Config) {},
		},
		{
			name: "valid redis stores",
			mutate: func(c *Config) {
				c.EphemeralStore = StoreRedis
				c.RateLimitStore = StoreRedis
				c.ClientCacheType = ClientCacheRedis
			},
		},
		{
			name:        "invalid ephemeral store - typo",
			mutate:      func(c *Config) { c.EphemeralStore = "reddis" },
			expectError: true,
			errorMsg:    `invalid EPHEMERAL_STORE value: "reddis"`,
		},
		{
			name:        "invalid rate limit store - uppercase",
			mutate:      func(c *Config) { c.RateLimitStore = "MEMORY" },
			expectError: true,
			errorMsg:    `invalid RATE_LIMIT_STORE value: "MEMORY"`,
		},
		{
			name: "rate limit store ignored when disabled",
			mutate: func(c *Config) {
				c.EnableRateLimit = false
				c.RateLimitStore = ""
			},
		},
		{
			name:        "invalid client cache type",
			mutate:      func(c *Config) { c.ClientCacheType = "memcache" },
			expectError: true,
			errorMsg:    `invalid CLIENT_CACHE_TYPE value: "memcache"`,
		},
		{
			name: "cache ttl not needed when cache disabled",
			mutate: func(c *Config) {
				c.ClientCacheType = ClientCacheNone
				c.ClientCacheTTL = 0
			},
		},
		{
			name:        "refresh lifetime below seven days",
			mutate:      func(c *Config) { c.RefreshTokenExpiration = 24 * time.Hour },
			expectError: true,
			errorMsg:    "REFRESH_TOKEN_EXPIRATION must be between",
		},
		{
			name:        "refresh lifetime above thirty days",
			mutate:      func(c *Config) { c.RefreshTokenExpiration = 31 * 24 * time.Hour },
			expectError: true,
			errorMsg:    "REFRESH_TOKEN_EXPIRATION must be between",
		},
		{
			name: "default secret rejected in production",
			mutate: func(c *Config) {
				c.IsProduction = true
				c.JWTSecret = defaultJWTSecret
			},
			expectError: true,
			errorMsg:    "JWT_SECRET must be changed in production",
		},
		{
			name:        "zero auth code lifetime",
			mutate:      func(c *Config) { c.AuthCodeExpiration = 0 },
			expectError: true,
			errorMsg:    "AUTH_CODE_EXPIRATION must be positive",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()

			if tt.expectError {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errorMsg)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("FRONTEND_URL", "")
	t.Setenv("CLIENT_URL", "")
	t.Setenv("ACCESS_TOKEN_EXPIRATION", "")
	t.Setenv("AUTH_CODE_EXPIRATION", "")
	t.Setenv("REFRESH_TOKEN_EXPIRATION", "")

	cfg := Load()

	assert.Equal(t, 15*time.Minute, cfg.AccessTokenExpiration)
	assert.Equal(t, 10*time.Minute, cfg.AuthCodeExpiration)
	assert.Equal(t, 7*24*time.Hour, cfg.RefreshTokenExpiration)
	assert.Equal(t, "https://localhost:5173", cfg.FrontendURL)
	require.NoError(t, cfg.Validate())
}

func TestLoad_FromEnv(t *testing.T) {
	t.Setenv("FRONTEND_URL", "https://auth.example.com/")
	t.Setenv("EPHEMERAL_STORE", StoreRedis)
	t.Setenv("REDIS_DB", "3")
	t.Setenv("REFRESH_TOKEN_EXPIRATION", "240h")
	t.Setenv("ENABLE_RATE_LIMIT", "false")

	cfg := Load()

	assert.Equal(t, "https://auth.example.com", cfg.FrontendURL)
	assert.Equal(t, StoreRedis, cfg.EphemeralStore)
	assert.Equal(t, 3, cfg.RedisDB)
	assert.Equal(t, 240*time.Hour, cfg.RefreshTokenExpiration)
	assert.False(t, cfg.EnableRateLimit)
	assert.True(t, cfg.UsesRedis())
}
