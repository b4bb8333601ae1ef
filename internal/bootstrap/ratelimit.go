package bootstrap

import (
	"fmt"

	"github.com/go-authgate/consentgate/internal/config"
	"github.com/go-authgate/consentgate/internal/logger"
	"github.com/go-authgate/consentgate/internal/middleware"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// rateLimitMiddlewares holds rate limiting middlewares for different endpoints
type rateLimitMiddlewares struct {
	authorize gin.HandlerFunc
	token     gin.HandlerFunc
	revoke    gin.HandlerFunc
	login     gin.HandlerFunc
}

// setupRateLimiting configures rate limiting middlewares. The redis client is
// only used with RATE_LIMIT_STORE=redis.
func setupRateLimiting(cfg *config.Config, client redis.UniversalClient) (rateLimitMiddlewares, error) {
	if !cfg.EnableRateLimit {
		noop := func(c *gin.Context) { c.Next() }
		return rateLimitMiddlewares{authorize: noop, token: noop, revoke: noop, login: noop}, nil
	}

	storeType := middleware.RateLimitStoreType(cfg.RateLimitStore)
	logger.Named("bootstrap").Info("rate limiting enabled", zap.String("store", cfg.RateLimitStore))

	var firstErr error
	create := func(requestsPerMinute int, endpoint string) gin.HandlerFunc {
		limiter, err := middleware.NewRateLimiter(middleware.RateLimitConfig{
			RequestsPerMinute: requestsPerMinute,
			StoreType:         storeType,
			Redis:             client,
			Prefix:            endpoint,
			CleanupInterval:   cfg.RateLimitCleanupInterval,
		})
		if err != nil && firstErr == nil {
			firstErr = fmt.Errorf("rate limiter for %s: %w", endpoint, err)
		}
		return limiter
	}

	limiters := rateLimitMiddlewares{
		authorize: create(cfg.AuthorizeRateLimit, "authorize"),
		token:     create(cfg.TokenRateLimit, "token"),
		revoke:    create(cfg.RevokeRateLimit, "revoke"),
		login:     create(cfg.LoginRateLimit, "login"),
	}
	if firstErr != nil {
		return rateLimitMiddlewares{}, firstErr
	}
	return limiters, nil
}
