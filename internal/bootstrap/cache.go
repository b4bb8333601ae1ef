package bootstrap

import (
	"context"
	"fmt"

	"github.com/go-authgate/consentgate/internal/cache"
	"github.com/go-authgate/consentgate/internal/config"
	"github.com/go-authgate/consentgate/internal/logger"
	"github.com/go-authgate/consentgate/internal/metrics"
	"github.com/go-authgate/consentgate/internal/models"

	"go.uber.org/zap"
)

const clientCacheKeyPrefix = "consentgate:clients:"

// initializeMetrics initializes Prometheus metrics
func initializeMetrics(cfg *config.Config) metrics.Recorder {
	if cfg.MetricsEnabled {
		logger.Named("bootstrap").Info("prometheus metrics initialized")
	} else {
		logger.Named("bootstrap").Info("metrics disabled (using noop implementation)")
	}
	return metrics.Init(cfg.MetricsEnabled)
}

// initializeClientCache builds the read-through cache in front of the client
// registry. Returns nil when caching is disabled.
func initializeClientCache(ctx context.Context, cfg *config.Config) (cache.Cache[models.Client], error) {
	log := logger.Named("bootstrap")

	switch cfg.ClientCacheType {
	case config.ClientCacheNone:
		log.Info("client cache disabled")
		return nil, nil //nolint:nilnil // caching disabled

	case config.ClientCacheRedis:
		ctx, cancel := context.WithTimeout(ctx, cfg.RedisConnTimeout)
		defer cancel()

		c, err := cache.NewRueidisCache[models.Client](
			ctx,
			cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB,
			clientCacheKeyPrefix,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize redis client cache: %w", err)
		}
		log.Info("client cache: redis", zap.String("addr", cfg.RedisAddr),
			zap.Int("db", cfg.RedisDB), zap.Duration("ttl", cfg.ClientCacheTTL))
		return c, nil

	default: // memory
		log.Info("client cache: memory (single instance only)",
			zap.Duration("ttl", cfg.ClientCacheTTL))
		return cache.NewMemoryCache[models.Client](), nil
	}
}
