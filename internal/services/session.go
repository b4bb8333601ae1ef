package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-authgate/consentgate/internal/auth"
	"github.com/go-authgate/consentgate/internal/ephemeral"
	"github.com/go-authgate/consentgate/internal/logger"
	"github.com/go-authgate/consentgate/internal/metrics"
	"github.com/go-authgate/consentgate/internal/models"
	"github.com/go-authgate/consentgate/internal/token"
)

// SessionTokens are issued to the user directly by the first-party login.
type SessionTokens struct {
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// Login verifies credentials and issues a first-party session.
func (s *TokenService) Login(ctx context.Context, nickname, password string) (*SessionTokens, error) {
	start := time.Now()
	user, err := s.identity.Authenticate(ctx, nickname, password)
	if err != nil {
		s.metrics.RecordLogin(false, time.Since(start))
		if errors.Is(err, auth.ErrInvalidCredentials) {
			return nil, fmt.Errorf("%w: %v", ErrUnauthorized, err)
		}
		return nil, err
	}
	s.metrics.RecordLogin(true, time.Since(start))

	return s.IssueSessionTokens(ctx, user)
}

// IssueSessionTokens issues tokens with no client that carry every
// projectable scope.
func (s *TokenService) IssueSessionTokens(ctx context.Context, user *models.User) (*SessionTokens, error) {
	access, refresh, err := s.issuePair(ctx, token.Subject{
		UserID: user.ID,
		Scopes: models.JoinScopes(KnownScopes()),
	}, s.config.SessionRefreshTokenExpiration, metrics.GrantPassword)
	if err != nil {
		return nil, err
	}

	logger.From(ctx).Info("session issued", logger.UserID(user.ID))
	return &SessionTokens{
		TokenType:    token.TokenTypeBearer,
		ExpiresIn:    s.expiresIn(),
		AccessToken:  access.TokenString,
		RefreshToken: refresh.TokenString,
	}, nil
}

// RevokeSession deletes the caller's access token record and, when given and
// owned by the same first-party session, the refresh token record.
func (s *TokenService) RevokeSession(
	ctx context.Context,
	principal *models.Principal,
	accessToken, refreshToken string,
) error {
	if principal == nil || principal.User == nil {
		return ErrUnauthorized
	}

	keys := []string{ephemeral.AccessTokenKey(accessToken)}
	if refreshToken != "" {
		key := ephemeral.RefreshTokenKey(refreshToken)
		rec, err := ephemeral.GetJSON[models.TokenRecord](ctx, s.ephemeral, key)
		switch {
		case errors.Is(err, ephemeral.ErrNotFound):
		case err != nil:
			return err
		case rec.UserID == principal.User.ID && rec.ClientID == principal.ClientID:
			keys = append(keys, key)
		}
	}

	if err := s.ephemeral.Delete(ctx, keys...); err != nil {
		return err
	}
	s.metrics.RecordTokenRevoked(models.TokenTypeAccess, "logout")
	if len(keys) > 1 {
		s.metrics.RecordTokenRevoked(models.TokenTypeRefresh, "logout")
	}
	s.metrics.RecordLogout()
	return nil
}
