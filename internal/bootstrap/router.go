package bootstrap

import (
	"context"
	"net/http"
	"time"

	"github.com/go-authgate/consentgate/internal/config"
	"github.com/go-authgate/consentgate/internal/logger"
	"github.com/go-authgate/consentgate/internal/metrics"
	"github.com/go-authgate/consentgate/internal/middleware"
	"github.com/go-authgate/consentgate/internal/response"
	"github.com/go-authgate/consentgate/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

const healthCheckTimeout = 2 * time.Second

// healthChecker is implemented by the database and the ephemeral store
type healthChecker interface {
	Health(ctx context.Context) error
}

// setupRouter configures the Gin router with all routes and middleware
func setupRouter(cfg *config.Config, app *Application) (*gin.Engine, error) {
	setupGinMode(cfg)
	r := gin.New()

	r.Use(gin.Recovery())
	r.Use(logger.Middleware(logger.L()))
	r.Use(metrics.HTTPMetricsMiddleware(app.Metrics))

	r.GET("/health", createHealthCheckHandler(map[string]healthChecker{
		"database":  app.DB,
		"ephemeral": app.Ephemeral,
	}))

	setupMetricsEndpoint(r, cfg)

	rateLimiters, err := setupRateLimiting(cfg, app.Redis)
	if err != nil {
		return nil, err
	}

	setupAllRoutes(r, app.HandlerSet, rateLimiters)

	logServerStartup(cfg)
	return r, nil
}

// setupMetricsEndpoint configures the Prometheus metrics endpoint
func setupMetricsEndpoint(r *gin.Engine, cfg *config.Config) {
	log := logger.Named("bootstrap")
	switch {
	case !cfg.MetricsEnabled:
		log.Info("prometheus metrics disabled")
	case cfg.MetricsToken != "":
		log.Info("prometheus metrics enabled at /metrics with bearer token authentication")
		r.GET(
			"/metrics",
			middleware.MetricsAuthMiddleware(cfg.MetricsToken),
			gin.WrapH(promhttp.Handler()),
		)
	default:
		log.Info("prometheus metrics enabled at /metrics (no authentication)")
		r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}
}

// setupAllRoutes configures all application routes
func setupAllRoutes(r *gin.Engine, h handlerSet, rateLimiters rateLimitMiddlewares) {
	requireAuth := middleware.RequireAuth(h.validator)
	firstParty := middleware.RequireFirstParty()

	api := r.Group("/api/v1")

	// OAuth authorization code flow
	oauth := api.Group("/oauth")
	{
		oauth.GET("/authorize", rateLimiters.authorize, middleware.Authenticate(h.validator), h.oauth.Authorize)
		oauth.POST("/consent", requireAuth, firstParty, h.oauth.Consent)
		oauth.POST("/token", rateLimiters.token, h.oauth.Token)
		oauth.POST("/revoke", rateLimiters.revoke, h.oauth.Revoke)
	}

	api.POST("/oauth-client", requireAuth, firstParty, h.client.Create)

	// First-party session
	session := api.Group("/auth")
	{
		session.POST("/login", rateLimiters.login, h.auth.Login)
		session.POST("/refresh", rateLimiters.token, h.auth.Refresh)
		session.POST("/logout", requireAuth, firstParty, h.auth.Logout)
	}

	// Scope-gated profile; first-party sessions carry every scope
	user := api.Group("/user", requireAuth)
	{
		user.GET("", middleware.RequireScopes(services.ScopeEmail, services.ScopeNickname), h.user.Profile)
		for path, scope := range userFieldRoutes {
			user.GET(path, middleware.RequireScopes(scope), h.user.Field(scope))
		}

		user.GET("/applications", firstParty, h.user.Applications)
		user.DELETE("/applications/:clientId", firstParty, h.user.RevokeApplication)
		user.GET("/permissions-history", firstParty, h.user.PermissionsHistory)
	}
}

// userFieldRoutes maps each single-field route to the scope it requires
var userFieldRoutes = map[string]string{
	"/email":        services.ScopeEmail,
	"/nickname":     services.ScopeNickname,
	"/role":         services.ScopeRole,
	"/major":        services.ScopeMajor,
	"/admission":    services.ScopeAdmission,
	"/generation":   services.ScopeGeneration,
	"/is-graduated": services.ScopeIsGraduated,
}

// createHealthCheckHandler reports 503 when any dependency fails its probe
func createHealthCheckHandler(checks map[string]healthChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), healthCheckTimeout)
		defer cancel()

		status := http.StatusOK
		results := make(map[string]string, len(checks))
		for name, check := range checks {
			if err := check.Health(ctx); err != nil {
				logger.From(ctx).Warn("health check failed", zap.String("dependency", name), logger.Err(err))
				results[name] = "unhealthy"
				status = http.StatusServiceUnavailable
				continue
			}
			results[name] = "healthy"
		}

		message := "healthy"
		if status != http.StatusOK {
			message = "unhealthy"
		}
		response.JSON(c, status, message, results)
	}
}

// setupGinMode sets Gin mode based on environment configuration
func setupGinMode(cfg *config.Config) {
	gin.SetMode(ginModeMap[cfg.IsProduction])
}

var ginModeMap = map[bool]string{
	true:  gin.ReleaseMode,
	false: gin.DebugMode,
}

// logServerStartup logs server startup information
func logServerStartup(cfg *config.Config) {
	logger.Named("bootstrap").Info("consentgate starting",
		zap.String("addr", cfg.ServerAddr),
		zap.String("base_url", cfg.BaseURL),
		zap.String("frontend_url", cfg.FrontendURL),
		zap.String("environment", cfg.Environment),
		zap.String("database", cfg.DatabaseDriver),
		zap.String("ephemeral_store", cfg.EphemeralStore),
		zap.String("client_cache", cfg.ClientCacheType),
	)
}
