package middleware

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-authgate/consentgate/internal/logger"
	"github.com/go-authgate/consentgate/internal/models"
	"github.com/go-authgate/consentgate/internal/response"
	"github.com/go-authgate/consentgate/internal/services"

	"github.com/gin-gonic/gin"
)

const (
	principalKey   = "principal"
	accessTokenKey = "access_token"
)

// TokenValidator resolves a bearer access token to its principal.
type TokenValidator interface {
	ValidateAccessToken(ctx context.Context, token string) (*models.Principal, error)
}

// Authenticate attaches the principal when a valid bearer token is present.
// Requests without one, or with an invalid one, continue anonymously.
func Authenticate(v TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c)
		if !ok {
			c.Next()
			return
		}
		principal, err := v.ValidateAccessToken(c.Request.Context(), token)
		if err != nil {
			logger.From(c.Request.Context()).Debug("ignoring invalid bearer token", logger.Err(err))
			c.Next()
			return
		}
		setPrincipal(c, principal, token)
		c.Next()
	}
}

// RequireAuth rejects requests without a valid bearer token.
func RequireAuth(v TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c)
		if !ok {
			response.Error(c, fmt.Errorf("%w: bearer token required", services.ErrUnauthorized))
			return
		}
		principal, err := v.ValidateAccessToken(c.Request.Context(), token)
		if err != nil {
			response.Error(c, err)
			return
		}
		setPrincipal(c, principal, token)
		c.Next()
	}
}

// RequireScopes rejects principals that were not granted every listed scope.
// It must run after RequireAuth.
func RequireScopes(scopes ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		principal := GetPrincipal(c)
		if principal == nil {
			response.Error(c, services.ErrUnauthorized)
			return
		}
		if !principal.HasScopes(scopes...) {
			response.Error(c, fmt.Errorf("%w: requires scope %s",
				services.ErrForbidden, strings.Join(scopes, ",")))
			return
		}
		c.Next()
	}
}

// RequireFirstParty rejects tokens issued to OAuth clients. Account
// management routes are reserved for the user's own session.
func RequireFirstParty() gin.HandlerFunc {
	return func(c *gin.Context) {
		principal := GetPrincipal(c)
		if principal == nil {
			response.Error(c, services.ErrUnauthorized)
			return
		}
		if !principal.IsFirstParty() {
			response.Error(c, fmt.Errorf("%w: client tokens cannot access this resource",
				services.ErrForbidden))
			return
		}
		c.Next()
	}
}

// GetPrincipal returns the authenticated principal, or nil.
func GetPrincipal(c *gin.Context) *models.Principal {
	v, ok := c.Get(principalKey)
	if !ok {
		return nil
	}
	p, _ := v.(*models.Principal)
	return p
}

// GetAccessToken returns the raw bearer token of an authenticated request.
func GetAccessToken(c *gin.Context) string {
	return c.GetString(accessTokenKey)
}

func setPrincipal(c *gin.Context, p *models.Principal, token string) {
	c.Set(principalKey, p)
	c.Set(accessTokenKey, token)

	ctx := logger.ToContext(c.Request.Context(),
		logger.From(c.Request.Context()).With(logger.UserID(p.User.ID)))
	c.Request = c.Request.WithContext(ctx)
}

func bearerToken(c *gin.Context) (string, bool) {
	header := c.GetHeader("Authorization")
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
