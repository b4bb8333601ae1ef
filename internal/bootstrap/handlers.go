package bootstrap

import (
	"github.com/go-authgate/consentgate/internal/handlers"
	"github.com/go-authgate/consentgate/internal/middleware"
)

// handlerSet holds all HTTP handlers and the bearer validator
type handlerSet struct {
	oauth     *handlers.OAuthHandler
	auth      *handlers.AuthHandler
	user      *handlers.UserHandler
	client    *handlers.ClientHandler
	validator middleware.TokenValidator
}

// initializeHandlers creates all HTTP handlers
func initializeHandlers(s serviceSet) handlerSet {
	return handlerSet{
		oauth:     handlers.NewOAuthHandler(s.authorization, s.tokens),
		auth:      handlers.NewAuthHandler(s.tokens),
		user:      handlers.NewUserHandler(s.consents),
		client:    handlers.NewClientHandler(s.clients),
		validator: s.tokens,
	}
}
