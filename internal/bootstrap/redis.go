package bootstrap

import (
	"context"
	"fmt"

	"github.com/go-authgate/consentgate/internal/config"
	"github.com/go-authgate/consentgate/internal/ephemeral"
	"github.com/go-authgate/consentgate/internal/logger"

	"github.com/redis/go-redis/v9"
)

const ephemeralKeyPrefix = "consentgate:"

// initializeRedisClient connects the go-redis client shared by the ephemeral
// store and the rate limiter. Returns nil when neither uses Redis.
func initializeRedisClient(ctx context.Context, cfg *config.Config) (redis.UniversalClient, error) {
	if cfg.EphemeralStore != config.StoreRedis &&
		(!cfg.EnableRateLimit || cfg.RateLimitStore != config.StoreRedis) {
		return nil, nil //nolint:nilnil // redis client not needed in this configuration
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	ctx, cancel := context.WithTimeout(ctx, cfg.RedisConnTimeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", cfg.RedisAddr, err)
	}

	logger.Named("bootstrap").Info("redis client initialized")
	return client, nil
}

// initializeEphemeralStore selects the backend for codes and token records
func initializeEphemeralStore(cfg *config.Config, client redis.UniversalClient) (ephemeral.Store, error) {
	switch cfg.EphemeralStore {
	case config.StoreRedis:
		if client == nil {
			return nil, fmt.Errorf("EPHEMERAL_STORE=redis requires a redis connection")
		}
		logger.Named("bootstrap").Info("ephemeral store: redis")
		return ephemeral.NewRedisStore(client, ephemeralKeyPrefix), nil
	default:
		logger.Named("bootstrap").Info("ephemeral store: memory (single instance only)")
		return ephemeral.NewMemoryStore(), nil
	}
}
