package bootstrap

import (
	"github.com/go-authgate/consentgate/internal/auth"
	"github.com/go-authgate/consentgate/internal/cache"
	"github.com/go-authgate/consentgate/internal/config"
	"github.com/go-authgate/consentgate/internal/ephemeral"
	"github.com/go-authgate/consentgate/internal/metrics"
	"github.com/go-authgate/consentgate/internal/models"
	"github.com/go-authgate/consentgate/internal/services"
	"github.com/go-authgate/consentgate/internal/store"
	"github.com/go-authgate/consentgate/internal/token"
)

const tokenIssuer = "consentgate"

type serviceSet struct {
	clients       *services.ClientRegistry
	consents      *services.ConsentLedger
	tokens        *services.TokenService
	authorization *services.AuthorizationService
}

// initializeServices creates all business logic services
func initializeServices(
	cfg *config.Config,
	db *store.Store,
	es ephemeral.Store,
	clientCache cache.Cache[models.Client],
	m metrics.Recorder,
) serviceSet {
	clients := services.NewClientRegistry(db, clientCache, cfg.ClientCacheTTL)
	consents := services.NewConsentLedger(db, clients, es, m)
	tokens := services.NewTokenService(
		cfg,
		es,
		clients,
		consents,
		auth.NewLocalIdentityProvider(db),
		token.NewLocalTokenProvider(cfg.JWTSecret, tokenIssuer),
		m,
	)
	authorization := services.NewAuthorizationService(clients, consents, tokens, cfg.FrontendURL, m)

	return serviceSet{
		clients:       clients,
		consents:      consents,
		tokens:        tokens,
		authorization: authorization,
	}
}
