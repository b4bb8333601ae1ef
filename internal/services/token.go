package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-authgate/consentgate/internal/auth"
	"github.com/go-authgate/consentgate/internal/config"
	"github.com/go-authgate/consentgate/internal/ephemeral"
	"github.com/go-authgate/consentgate/internal/logger"
	"github.com/go-authgate/consentgate/internal/metrics"
	"github.com/go-authgate/consentgate/internal/models"
	"github.com/go-authgate/consentgate/internal/token"
	"github.com/go-authgate/consentgate/internal/util"
)

var nowFunc = time.Now

// authCodeBytes is the entropy of an authorization code before hex encoding.
const authCodeBytes = 32

type tokenSigner interface {
	GenerateAccessToken(sub token.Subject, ttl time.Duration) (*token.Result, error)
	GenerateRefreshToken(sub token.Subject, ttl time.Duration) (*token.Result, error)
	ValidateAccessToken(tokenString string) (*token.Claims, error)
	ValidateRefreshToken(tokenString string) (*token.Claims, error)
}

// TokenService issues authorization codes and the tokens they are exchanged
// for. Every issued token has a record in the ephemeral store; deleting the
// record revokes the token.
type TokenService struct {
	config    *config.Config
	ephemeral ephemeral.Store
	clients   *ClientRegistry
	consents  *ConsentLedger
	identity  IdentityProvider
	signer    tokenSigner
	metrics   metrics.Recorder
}

func NewTokenService(
	cfg *config.Config,
	es ephemeral.Store,
	clients *ClientRegistry,
	consents *ConsentLedger,
	identity IdentityProvider,
	signer tokenSigner,
	m metrics.Recorder,
) *TokenService {
	return &TokenService{
		config:    cfg,
		ephemeral: es,
		clients:   clients,
		consents:  consents,
		identity:  identity,
		signer:    signer,
		metrics:   m,
	}
}

// ExchangeRequest is the body of a code-for-token exchange.
type ExchangeRequest struct {
	Code         string
	ClientID     string
	ClientSecret string
	State        string
	RedirectURI  string // optional
	Scopes       string // optional, defaults to the approved scope
}

// TokenResponse is returned by a successful exchange.
type TokenResponse struct {
	User         map[string]any `json:"user"`
	TokenType    string         `json:"token_type"`
	ExpiresIn    int            `json:"expires_in"`
	AccessToken  string         `json:"access_token"`
	RefreshToken string         `json:"refresh_token"`
}

// RefreshResponse carries a new access token.
type RefreshResponse struct {
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
	AccessToken string `json:"access_token"`
}

// ============================================================
// Authorization codes
// ============================================================

// IssueAuthorizationCode stores a single-use code binding the user, client,
// state and approved scope.
func (s *TokenService) IssueAuthorizationCode(
	ctx context.Context,
	user *models.User,
	client *models.Client,
	state, scope string,
) (string, error) {
	if !client.AllowedUserType.Permits(user.Role) {
		s.metrics.RecordAuthorizationCodeIssued(false)
		return "", fmt.Errorf("%w: %s accounts cannot use this application", ErrForbidden, user.Role)
	}

	code, err := util.RandomHex(authCodeBytes)
	if err != nil {
		s.metrics.RecordAuthorizationCodeIssued(false)
		return "", fmt.Errorf("generate authorization code: %w", err)
	}

	if err := ephemeral.PutJSON(ctx, s.ephemeral, ephemeral.AuthCodeKey(code), models.AuthorizationCode{
		UserID:   user.ID,
		ClientID: client.ClientID,
		State:    state,
		Scope:    scope,
	}, s.config.AuthCodeExpiration); err != nil {
		s.metrics.RecordAuthorizationCodeIssued(false)
		return "", err
	}

	s.metrics.RecordAuthorizationCodeIssued(true)
	return code, nil
}

// ============================================================
// Code exchange
// ============================================================

// ExchangeCodeForToken consumes an authorization code and issues an access
// and refresh token pair. Nothing is persisted unless every check passes.
func (s *TokenService) ExchangeCodeForToken(
	ctx context.Context,
	req ExchangeRequest,
) (*TokenResponse, error) {
	resp, err := s.exchange(ctx, req)
	s.metrics.RecordCodeExchange(exchangeResult(err))
	return resp, err
}

func (s *TokenService) exchange(ctx context.Context, req ExchangeRequest) (*TokenResponse, error) {
	// 1. Authenticate the client
	client, err := s.clients.Authenticate(ctx, req.ClientID, req.ClientSecret)
	if err != nil {
		return nil, err
	}
	if req.RedirectURI != "" && !client.HasRedirectURI(req.RedirectURI) {
		return nil, ErrInvalidRedirectURI
	}
	if req.Code == "" {
		return nil, fmt.Errorf("%w: code is required", ErrInvalidRequest)
	}

	// 2. Consume the code; of concurrent exchanges only one gets it
	authCode, err := ephemeral.TakeJSON[models.AuthorizationCode](
		ctx, s.ephemeral, ephemeral.AuthCodeKey(req.Code),
	)
	if err != nil {
		if errors.Is(err, ephemeral.ErrNotFound) {
			return nil, fmt.Errorf("%w: authorization code is invalid or expired", ErrInvalidGrant)
		}
		return nil, err
	}

	// 3. The code must belong to this client and flow
	if authCode.ClientID != client.ClientID {
		return nil, fmt.Errorf("%w: authorization code was issued to another client", ErrInvalidGrant)
	}
	if authCode.State != req.State {
		return nil, fmt.Errorf("%w: state mismatch", ErrInvalidRequest)
	}

	// 4. Resolve the user
	user, err := s.identity.FindUserByID(ctx, authCode.UserID)
	if err != nil {
		if errors.Is(err, auth.ErrUserNotFound) {
			return nil, fmt.Errorf("%w: user no longer exists", ErrInvalidGrant)
		}
		return nil, err
	}
	if !client.AllowedUserType.Permits(user.Role) {
		return nil, fmt.Errorf("%w: %s accounts cannot use this application", ErrForbidden, user.Role)
	}

	// 5. Scopes: default to what was approved, never exceed it or the client
	approved := models.ParseScopes(authCode.Scope)
	requested := models.ParseScopes(req.Scopes)
	if len(requested) == 0 {
		requested = approved
	}
	if offending := excessScopes(requested, client.Scopes(), approved); len(offending) > 0 {
		return nil, invalidScope(offending)
	}

	// 6. Sign and persist
	access, refresh, err := s.issuePair(ctx, token.Subject{
		UserID:   user.ID,
		ClientID: client.ClientID,
		Scopes:   models.JoinScopes(requested),
	}, s.config.RefreshTokenExpiration, metrics.GrantAuthorizationCode)
	if err != nil {
		return nil, err
	}

	logger.From(ctx).Info("authorization code exchanged",
		logger.UserID(user.ID), logger.ClientID(client.ClientID))

	return &TokenResponse{
		User:         ProjectUser(user, requested),
		TokenType:    token.TokenTypeBearer,
		ExpiresIn:    s.expiresIn(),
		AccessToken:  access.TokenString,
		RefreshToken: refresh.TokenString,
	}, nil
}

// excessScopes lists requested entries missing from any of the allowed sets,
// without duplicates.
func excessScopes(requested []string, allowed ...[]string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, set := range allowed {
		for _, s := range missingScopes(requested, set) {
			if !seen[s] {
				seen[s] = true
				out = append(out, s)
			}
		}
	}
	return out
}

func exchangeResult(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, ErrInvalidClient):
		return "invalid_client"
	case errors.Is(err, ErrInvalidGrant):
		return "invalid_grant"
	case errors.Is(err, ErrInvalidScope):
		return "invalid_scope"
	case errors.Is(err, ErrInvalidRequest), errors.Is(err, ErrInvalidRedirectURI):
		return "invalid_request"
	case errors.Is(err, ErrForbidden):
		return "forbidden"
	default:
		return "error"
	}
}

// ============================================================
// Revocation
// ============================================================

// RevokeToken deletes an access or refresh token issued to the calling
// client. Tokens that are unknown or owned by another client fail exactly
// like bad credentials.
func (s *TokenService) RevokeToken(ctx context.Context, tokenString, clientID, clientSecret string) error {
	client, err := s.clients.Authenticate(ctx, clientID, clientSecret)
	if err != nil {
		return err
	}
	if tokenString == "" {
		return fmt.Errorf("%w: token is required", ErrInvalidRequest)
	}

	for _, key := range []string{
		ephemeral.AccessTokenKey(tokenString),
		ephemeral.RefreshTokenKey(tokenString),
	} {
		rec, err := ephemeral.GetJSON[models.TokenRecord](ctx, s.ephemeral, key)
		if errors.Is(err, ephemeral.ErrNotFound) {
			continue
		}
		if err != nil {
			return err
		}
		if rec.ClientID != client.ClientID {
			break
		}
		if err := s.ephemeral.Delete(ctx, key); err != nil {
			return err
		}
		s.metrics.RecordTokenRevoked(rec.Type, "client_request")
		logger.From(ctx).Info("token revoked",
			logger.ClientID(client.ClientID),
			logger.UserID(rec.UserID),
			logger.TokenFingerprint(util.Fingerprint(tokenString)))
		return nil
	}

	return errClientAuthFailed
}

// ============================================================
// Refresh
// ============================================================

// Refresh issues a new access token for a live refresh token. Refresh tokens
// whose record is gone, or whose client consent was revoked, are reported as
// expired.
func (s *TokenService) Refresh(ctx context.Context, refreshToken string) (*RefreshResponse, error) {
	resp, err := s.refresh(ctx, refreshToken)
	s.metrics.RecordTokenRefresh(err == nil)
	return resp, err
}

func (s *TokenService) refresh(ctx context.Context, refreshToken string) (*RefreshResponse, error) {
	if refreshToken == "" {
		return nil, fmt.Errorf("%w: refresh token is required", ErrInvalidRequest)
	}
	if _, err := s.signer.ValidateRefreshToken(refreshToken); err != nil {
		return nil, mapTokenErr(err)
	}

	rec, err := ephemeral.GetJSON[models.TokenRecord](
		ctx, s.ephemeral, ephemeral.RefreshTokenKey(refreshToken),
	)
	if err != nil {
		if errors.Is(err, ephemeral.ErrNotFound) {
			return nil, ErrTokenExpired
		}
		return nil, err
	}

	if err := s.checkConsent(ctx, rec); err != nil {
		return nil, err
	}
	if _, err := s.resolveUser(ctx, rec.UserID); err != nil {
		return nil, err
	}

	start := time.Now()
	access, err := s.signer.GenerateAccessToken(token.Subject{
		UserID:   rec.UserID,
		ClientID: rec.ClientID,
		Scopes:   rec.Scopes,
	}, s.config.AccessTokenExpiration)
	if err != nil {
		return nil, err
	}
	if err := s.putRecord(ctx, access, rec.UserID, rec.ClientID, rec.Scopes, models.TokenTypeAccess); err != nil {
		return nil, err
	}
	s.metrics.RecordTokenIssued(models.TokenTypeAccess, metrics.GrantRefreshToken, time.Since(start))

	return &RefreshResponse{
		TokenType:   token.TokenTypeBearer,
		ExpiresIn:   s.expiresIn(),
		AccessToken: access.TokenString,
	}, nil
}

// ============================================================
// Bearer validation
// ============================================================

// ValidateAccessToken resolves a bearer token into the principal it was
// issued for.
func (s *TokenService) ValidateAccessToken(ctx context.Context, tokenString string) (*models.Principal, error) {
	start := time.Now()
	principal, err := s.validate(ctx, tokenString)

	result := "valid"
	switch {
	case errors.Is(err, ErrTokenExpired):
		result = "expired"
	case err != nil:
		result = "invalid"
	}
	s.metrics.RecordTokenValidation(result, time.Since(start))
	return principal, err
}

func (s *TokenService) validate(ctx context.Context, tokenString string) (*models.Principal, error) {
	if _, err := s.signer.ValidateAccessToken(tokenString); err != nil {
		return nil, mapTokenErr(err)
	}

	rec, err := ephemeral.GetJSON[models.TokenRecord](
		ctx, s.ephemeral, ephemeral.AccessTokenKey(tokenString),
	)
	if err != nil {
		if errors.Is(err, ephemeral.ErrNotFound) {
			return nil, ErrTokenExpired
		}
		return nil, err
	}

	if err := s.checkConsent(ctx, rec); err != nil {
		return nil, err
	}
	user, err := s.resolveUser(ctx, rec.UserID)
	if err != nil {
		return nil, err
	}

	return &models.Principal{
		User:     user,
		Scopes:   models.ParseScopes(rec.Scopes),
		ClientID: rec.ClientID,
	}, nil
}

// ============================================================
// Helpers
// ============================================================

// issuePair signs an access and refresh token for sub and stores both
// records. If the second record cannot be written the first is removed.
func (s *TokenService) issuePair(
	ctx context.Context,
	sub token.Subject,
	refreshTTL time.Duration,
	grantType string,
) (*token.Result, *token.Result, error) {
	start := time.Now()
	access, err := s.signer.GenerateAccessToken(sub, s.config.AccessTokenExpiration)
	if err != nil {
		return nil, nil, err
	}
	refresh, err := s.signer.GenerateRefreshToken(sub, refreshTTL)
	if err != nil {
		return nil, nil, err
	}
	elapsed := time.Since(start)

	if err := s.putRecord(ctx, access, sub.UserID, sub.ClientID, sub.Scopes, models.TokenTypeAccess); err != nil {
		return nil, nil, err
	}
	if err := s.putRecord(ctx, refresh, sub.UserID, sub.ClientID, sub.Scopes, models.TokenTypeRefresh); err != nil {
		_ = s.ephemeral.Delete(ctx, ephemeral.AccessTokenKey(access.TokenString))
		return nil, nil, err
	}

	s.metrics.RecordTokenIssued(models.TokenTypeAccess, grantType, elapsed)
	s.metrics.RecordTokenIssued(models.TokenTypeRefresh, grantType, elapsed)
	return access, refresh, nil
}

func (s *TokenService) putRecord(
	ctx context.Context,
	res *token.Result,
	userID uint,
	clientID, scopes, tokenType string,
) error {
	key := ephemeral.AccessTokenKey(res.TokenString)
	if tokenType == models.TokenTypeRefresh {
		key = ephemeral.RefreshTokenKey(res.TokenString)
	}
	return ephemeral.PutJSON(ctx, s.ephemeral, key, models.TokenRecord{
		UserID:   userID,
		ClientID: clientID,
		Scopes:   scopes,
		Type:     tokenType,
	}, res.TTL)
}

// checkConsent rejects client tokens whose consent has been revoked. The
// error is TokenExpired so clients cannot tell revocation from expiry.
func (s *TokenService) checkConsent(ctx context.Context, rec models.TokenRecord) error {
	if rec.ClientID == "" {
		return nil
	}
	revoked, err := s.consents.HasRevokedConsent(ctx, rec.UserID, rec.ClientID)
	if err != nil {
		return err
	}
	if revoked {
		return ErrTokenExpired
	}
	return nil
}

func (s *TokenService) resolveUser(ctx context.Context, userID uint) (*models.User, error) {
	user, err := s.identity.FindUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, auth.ErrUserNotFound) {
			return nil, fmt.Errorf("%w: user no longer exists", ErrUnauthorized)
		}
		return nil, err
	}
	return user, nil
}

func (s *TokenService) expiresIn() int {
	return int(s.config.AccessTokenExpiration / time.Second)
}

func mapTokenErr(err error) error {
	if errors.Is(err, token.ErrExpiredToken) {
		return ErrTokenExpired
	}
	return fmt.Errorf("%w: invalid token", ErrUnauthorized)
}
