package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Store backend constants shared by the ephemeral store and the rate limiter
const (
	StoreMemory = "memory"
	StoreRedis  = "redis"
)

// Client cache type constants
const (
	ClientCacheNone   = "none"
	ClientCacheMemory = "memory"
	ClientCacheRedis  = "redis"
)

// Environment constants
const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

const defaultJWTSecret = "your-256-bit-secret-change-in-production"

// Bounds for the OAuth refresh token lifetime.
const (
	MinRefreshTokenExpiration = 7 * 24 * time.Hour
	MaxRefreshTokenExpiration = 30 * 24 * time.Hour
)

type Config struct {
	// Server settings
	ServerAddr   string
	BaseURL      string
	FrontendURL  string // Login and consent pages live here
	Environment  string
	IsProduction bool
	LogLevel     string

	// JWT settings
	JWTSecret                     string
	AccessTokenExpiration         time.Duration
	RefreshTokenExpiration        time.Duration // OAuth refresh tokens (7-30 days)
	SessionRefreshTokenExpiration time.Duration // First-party refresh tokens

	// Authorization code settings
	AuthCodeExpiration time.Duration

	// Database
	DatabaseDriver string // "sqlite" or "postgres"
	DatabaseDSN    string
	DBInitTimeout  time.Duration

	// Ephemeral store (codes and token records)
	EphemeralStore string // "memory" or "redis"

	// Redis
	RedisAddr        string
	RedisPassword    string
	RedisDB          int
	RedisConnTimeout time.Duration

	// Client registry cache
	ClientCacheType string // "none", "memory" or "redis"
	ClientCacheTTL  time.Duration

	// Rate limiting
	EnableRateLimit          bool
	RateLimitStore           string // "memory" or "redis"
	RateLimitCleanupInterval time.Duration
	AuthorizeRateLimit       int // requests per minute
	TokenRateLimit           int
	RevokeRateLimit          int
	LoginRateLimit           int

	// Metrics
	MetricsEnabled bool
	MetricsToken   string
}

func Load() *Config {
	// Load .env file if exists (ignore error if not found)
	_ = godotenv.Load()

	driver := getEnv("DATABASE_DRIVER", "sqlite")
	var dsn string
	if driver == "sqlite" {
		dsn = getEnv("DATABASE_DSN", getEnv("DATABASE_PATH", "consentgate.db"))
	} else {
		dsn = getEnv("DATABASE_DSN", "")
	}

	env := getEnv("ENVIRONMENT", EnvDevelopment)

	return &Config{
		ServerAddr:   getEnv("SERVER_ADDR", ":8080"),
		BaseURL:      getEnv("BASE_URL", "http://localhost:8080"),
		FrontendURL:  strings.TrimRight(getEnv("FRONTEND_URL", getEnv("CLIENT_URL", "https://localhost:5173")), "/"),
		Environment:  env,
		IsProduction: env == EnvProduction,
		LogLevel:     getEnv("LOG_LEVEL", "info"),

		JWTSecret:             getEnv("JWT_SECRET", defaultJWTSecret),
		AccessTokenExpiration: getEnvDuration("ACCESS_TOKEN_EXPIRATION", 15*time.Minute),
		RefreshTokenExpiration: getEnvDuration(
			"REFRESH_TOKEN_EXPIRATION",
			MinRefreshTokenExpiration,
		), // 7 days
		SessionRefreshTokenExpiration: getEnvDuration(
			"SESSION_REFRESH_TOKEN_EXPIRATION",
			MaxRefreshTokenExpiration,
		), // 30 days
		AuthCodeExpiration: getEnvDuration("AUTH_CODE_EXPIRATION", 10*time.Minute),

		DatabaseDriver: driver,
		DatabaseDSN:    dsn,
		DBInitTimeout:  getEnvDuration("DB_INIT_TIMEOUT", 30*time.Second),

		EphemeralStore: getEnv("EPHEMERAL_STORE", StoreMemory),

		RedisAddr:        getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:    getEnv("REDIS_PASSWORD", ""),
		RedisDB:          getEnvInt("REDIS_DB", 0),
		RedisConnTimeout: getEnvDuration("REDIS_CONN_TIMEOUT", 5*time.Second),

		ClientCacheType: getEnv("CLIENT_CACHE_TYPE", ClientCacheMemory),
		ClientCacheTTL:  getEnvDuration("CLIENT_CACHE_TTL", 5*time.Minute),

		EnableRateLimit:          getEnvBool("ENABLE_RATE_LIMIT", true),
		RateLimitStore:           getEnv("RATE_LIMIT_STORE", StoreMemory),
		RateLimitCleanupInterval: getEnvDuration("RATE_LIMIT_CLEANUP_INTERVAL", 5*time.Minute),
		AuthorizeRateLimit:       getEnvInt("AUTHORIZE_RATE_LIMIT", 30),
		TokenRateLimit:           getEnvInt("TOKEN_RATE_LIMIT", 20),
		RevokeRateLimit:          getEnvInt("REVOKE_RATE_LIMIT", 20),
		LoginRateLimit:           getEnvInt("LOGIN_RATE_LIMIT", 5),

		MetricsEnabled: getEnvBool("METRICS_ENABLED", false),
		MetricsToken:   getEnv("METRICS_TOKEN", ""),
	}
}

// Validate checks the configuration for values that would make the server
// misbehave at runtime.
func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET must not be empty")
	}
	if c.IsProduction && c.JWTSecret == defaultJWTSecret {
		return errors.New("JWT_SECRET must be changed in production")
	}

	switch c.EphemeralStore {
	case StoreMemory, StoreRedis:
	default:
		return fmt.Errorf(
			"invalid EPHEMERAL_STORE value: %q (must be %q or %q)",
			c.EphemeralStore, StoreMemory, StoreRedis,
		)
	}

	if c.EnableRateLimit {
		switch c.RateLimitStore {
		case StoreMemory, StoreRedis:
		default:
			return fmt.Errorf(
				"invalid RATE_LIMIT_STORE value: %q (must be %q or %q)",
				c.RateLimitStore, StoreMemory, StoreRedis,
			)
		}
	}

	switch c.ClientCacheType {
	case ClientCacheNone, ClientCacheMemory, ClientCacheRedis:
	default:
		return fmt.Errorf(
			"invalid CLIENT_CACHE_TYPE value: %q (must be %q, %q or %q)",
			c.ClientCacheType, ClientCacheNone, ClientCacheMemory, ClientCacheRedis,
		)
	}
	if c.ClientCacheType != ClientCacheNone && c.ClientCacheTTL <= 0 {
		return fmt.Errorf("CLIENT_CACHE_TTL must be positive, got %s", c.ClientCacheTTL)
	}

	if c.AccessTokenExpiration <= 0 {
		return fmt.Errorf("ACCESS_TOKEN_EXPIRATION must be positive, got %s", c.AccessTokenExpiration)
	}
	if c.AuthCodeExpiration <= 0 {
		return fmt.Errorf("AUTH_CODE_EXPIRATION must be positive, got %s", c.AuthCodeExpiration)
	}
	if c.RefreshTokenExpiration < MinRefreshTokenExpiration ||
		c.RefreshTokenExpiration > MaxRefreshTokenExpiration {
		return fmt.Errorf(
			"REFRESH_TOKEN_EXPIRATION must be between %s and %s, got %s",
			MinRefreshTokenExpiration, MaxRefreshTokenExpiration, c.RefreshTokenExpiration,
		)
	}
	if c.SessionRefreshTokenExpiration <= 0 {
		return fmt.Errorf(
			"SESSION_REFRESH_TOKEN_EXPIRATION must be positive, got %s",
			c.SessionRefreshTokenExpiration,
		)
	}

	return nil
}

// UsesRedis reports whether any component needs a Redis connection.
func (c *Config) UsesRedis() bool {
	return c.EphemeralStore == StoreRedis ||
		c.ClientCacheType == ClientCacheRedis ||
		(c.EnableRateLimit && c.RateLimitStore == StoreRedis)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return value == "true" || value == "1"
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		var i int
		if _, err := fmt.Sscanf(value, "%d", &i); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
