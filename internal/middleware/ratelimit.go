package middleware

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-authgate/consentgate/internal/response"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/ulule/limiter/v3"
	mgin "github.com/ulule/limiter/v3/drivers/middleware/gin"
	"github.com/ulule/limiter/v3/drivers/store/memory"
	limiterRedis "github.com/ulule/limiter/v3/drivers/store/redis"
)

// RateLimitStoreType defines the type of rate limit store
type RateLimitStoreType string

const (
	// RateLimitStoreMemory uses in-memory storage (single instance only)
	RateLimitStoreMemory RateLimitStoreType = "memory"
	// RateLimitStoreRedis uses Redis storage (shared across replicas)
	RateLimitStoreRedis RateLimitStoreType = "redis"
)

const rateLimitMessage = "too many requests, please try again later"

// RateLimitConfig holds the configuration for one rate-limited route group.
type RateLimitConfig struct {
	RequestsPerMinute int
	CleanupInterval   time.Duration // memory store only
	StoreType         RateLimitStoreType

	// Redis is required when StoreType is RateLimitStoreRedis.
	Redis redis.UniversalClient
	// Prefix separates the counters of different limiters in a shared store.
	Prefix string
}

// NewRateLimiter creates a per-IP rate limiter.
func NewRateLimiter(config RateLimitConfig) (gin.HandlerFunc, error) {
	if config.RequestsPerMinute <= 0 {
		return nil, fmt.Errorf("requests per minute must be positive, got %d", config.RequestsPerMinute)
	}

	rate := limiter.Rate{
		Period: time.Minute,
		Limit:  int64(config.RequestsPerMinute),
	}

	prefix := "ratelimit"
	if config.Prefix != "" {
		prefix += ":" + config.Prefix
	}

	var store limiter.Store
	switch config.StoreType {
	case RateLimitStoreRedis:
		if config.Redis == nil {
			return nil, fmt.Errorf("redis rate limit store requires a redis client")
		}
		var err error
		store, err = limiterRedis.NewStoreWithOptions(config.Redis, limiter.StoreOptions{
			Prefix:          prefix,
			CleanUpInterval: config.CleanupInterval,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create Redis store: %w", err)
		}
	default:
		store = memory.NewStoreWithOptions(limiter.StoreOptions{
			Prefix:          prefix,
			CleanUpInterval: config.CleanupInterval,
		})
	}

	instance := limiter.New(store, rate)

	return mgin.NewMiddleware(instance, mgin.WithLimitReachedHandler(func(c *gin.Context) {
		c.Abort()
		response.JSON(c, http.StatusTooManyRequests, rateLimitMessage, nil)
	})), nil
}

// NewMemoryRateLimiter creates an in-memory rate limiter (single instance)
func NewMemoryRateLimiter(requestsPerMinute int) (gin.HandlerFunc, error) {
	return NewRateLimiter(RateLimitConfig{
		RequestsPerMinute: requestsPerMinute,
		StoreType:         RateLimitStoreMemory,
		CleanupInterval:   5 * time.Minute,
	})
}
