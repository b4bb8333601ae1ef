// Package bootstrap wires configuration, infrastructure, services and the
// HTTP layer into a running server.
package bootstrap

import (
	"context"
	"net/http"

	"github.com/go-authgate/consentgate/internal/cache"
	"github.com/go-authgate/consentgate/internal/config"
	"github.com/go-authgate/consentgate/internal/ephemeral"
	"github.com/go-authgate/consentgate/internal/logger"
	"github.com/go-authgate/consentgate/internal/metrics"
	"github.com/go-authgate/consentgate/internal/models"
	"github.com/go-authgate/consentgate/internal/store"

	"github.com/appleboy/graceful"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// Application holds all initialized components
type Application struct {
	Config *config.Config

	// Core infrastructure
	DB          *store.Store
	Redis       redis.UniversalClient // nil unless a component uses Redis
	Ephemeral   ephemeral.Store
	ClientCache cache.Cache[models.Client] // nil when CLIENT_CACHE_TYPE=none
	Metrics     metrics.Recorder

	// Business layer
	Services serviceSet

	// HTTP
	HandlerSet handlerSet
	Router     *gin.Engine
	Server     *http.Server
}

// Run initializes the application and serves until a shutdown signal.
func Run(ctx context.Context, cfg *config.Config) error {
	app, err := New(ctx, cfg)
	if err != nil {
		return err
	}
	app.startWithGracefulShutdown()
	return nil
}

// New builds every component without starting the server. Resources opened
// before a failure are released.
func New(ctx context.Context, cfg *config.Config) (*Application, error) {
	app := &Application{Config: cfg}

	// Phase 1: Validate configuration
	if err := validateAllConfiguration(cfg); err != nil {
		return nil, err
	}

	// Phase 2: Initialize infrastructure
	if err := app.initializeInfrastructure(ctx); err != nil {
		app.Close()
		return nil, err
	}

	// Phase 3: Initialize business layer
	app.Services = initializeServices(cfg, app.DB, app.Ephemeral, app.ClientCache, app.Metrics)

	// Phase 4: Initialize HTTP layer
	app.HandlerSet = initializeHandlers(app.Services)
	router, err := setupRouter(cfg, app)
	if err != nil {
		app.Close()
		return nil, err
	}
	app.Router = router
	app.Server = createHTTPServer(cfg, app.Router)

	return app, nil
}

// initializeInfrastructure sets up database, Redis, stores, cache and metrics
func (app *Application) initializeInfrastructure(ctx context.Context) error {
	var err error

	app.DB, err = initializeDatabase(ctx, app.Config)
	if err != nil {
		return err
	}

	app.Redis, err = initializeRedisClient(ctx, app.Config)
	if err != nil {
		return err
	}

	app.Ephemeral, err = initializeEphemeralStore(app.Config, app.Redis)
	if err != nil {
		return err
	}

	app.ClientCache, err = initializeClientCache(ctx, app.Config)
	if err != nil {
		return err
	}

	app.Metrics = initializeMetrics(app.Config)
	return nil
}

// Close releases infrastructure in reverse order of creation.
func (app *Application) Close() {
	log := logger.Named("bootstrap")
	if app.ClientCache != nil {
		if err := app.ClientCache.Close(); err != nil {
			log.Warn("closing client cache", logger.Err(err))
		}
	}
	if app.Ephemeral != nil {
		if err := app.Ephemeral.Close(); err != nil {
			log.Warn("closing ephemeral store", logger.Err(err))
		}
	}
	if app.Redis != nil {
		if err := app.Redis.Close(); err != nil {
			log.Warn("closing redis client", logger.Err(err))
		}
	}
	if app.DB != nil {
		if err := app.DB.Close(); err != nil {
			log.Warn("closing database", logger.Err(err))
		}
	}
}

// startWithGracefulShutdown starts the server and handles graceful shutdown
func (app *Application) startWithGracefulShutdown() {
	m := graceful.NewManager(graceful.WithLogger(logger.Named("graceful").Sugar()))

	addServerRunningJob(m, app.Server)
	addServerShutdownJob(m, app.Server, app.Close)

	<-m.Done()
}
