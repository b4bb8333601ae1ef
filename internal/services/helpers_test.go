package services

import (
	"context"
	"testing"
	"time"

	"github.com/go-authgate/consentgate/internal/auth"
	"github.com/go-authgate/consentgate/internal/cache"
	"github.com/go-authgate/consentgate/internal/config"
	"github.com/go-authgate/consentgate/internal/ephemeral"
	"github.com/go-authgate/consentgate/internal/metrics"
	"github.com/go-authgate/consentgate/internal/models"
	"github.com/go-authgate/consentgate/internal/store"
	"github.com/go-authgate/consentgate/internal/token"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

const (
	testRedirectURI = "https://app.example.com/cb"
	testPassword    = "correct-horse"
	testFrontendURL = "https://accounts.example.com"
)

type testEnv struct {
	store    *store.Store
	es       ephemeral.Store
	cfg      *config.Config
	clients  *ClientRegistry
	consents *ConsentLedger
	tokens   *TokenService
	authz    *AuthorizationService
}

func testConfig() *config.Config {
	return &config.Config{
		FrontendURL:                   testFrontendURL,
		JWTSecret:                     "test-secret",
		AccessTokenExpiration:         15 * time.Minute,
		RefreshTokenExpiration:        7 * 24 * time.Hour,
		SessionRefreshTokenExpiration: 30 * 24 * time.Hour,
		AuthCodeExpiration:            10 * time.Minute,
	}
}

// newTestEnv wires the services over sqlite :memory: and the given
// ephemeral store, or an in-memory one when es is nil.
func newTestEnv(t *testing.T, es ephemeral.Store) *testEnv {
	t.Helper()
	s, err := store.New(context.Background(), "sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	if es == nil {
		es = ephemeral.NewMemoryStore()
	}
	cfg := testConfig()
	m := metrics.NewNoopMetrics()

	clients := NewClientRegistry(s, cache.NewMemoryCache[models.Client](), time.Minute)
	consents := NewConsentLedger(s, clients, es, m)
	tokens := NewTokenService(
		cfg, es, clients, consents,
		auth.NewLocalIdentityProvider(s),
		token.NewLocalTokenProvider(cfg.JWTSecret, "consentgate-test"),
		m,
	)
	authz := NewAuthorizationService(clients, consents, tokens, cfg.FrontendURL, m)

	return &testEnv{
		store:    s,
		es:       es,
		cfg:      cfg,
		clients:  clients,
		consents: consents,
		tokens:   tokens,
		authz:    authz,
	}
}

func newRedisEphemeral(t *testing.T) ephemeral.Store {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return ephemeral.NewRedisStore(client, "test:")
}

func (e *testEnv) createClient(t *testing.T, scope string, allowed models.AllowedUserType) *models.Client {
	t.Helper()
	client := &models.Client{
		ClientID:        uuid.New().String(),
		ClientSecret:    uuid.New().String(),
		ServiceName:     "Test App",
		ServiceDomain:   "app.example.com",
		Scope:           scope,
		AllowedUserType: allowed,
		RedirectURIs:    models.StringArray{testRedirectURI},
	}
	require.NoError(t, e.store.CreateClient(context.Background(), client))
	return client
}

func (e *testEnv) createUser(t *testing.T, nickname string, role models.Role) *models.User {
	t.Helper()
	hash, err := auth.HashPassword(testPassword)
	require.NoError(t, err)
	gen, adm, grad := 7, 2022, false
	user := &models.User{
		Email:        nickname + "@e-mirim.hs.kr",
		Nickname:     nickname,
		PasswordHash: hash,
		Role:         role,
		Major:        models.MajorSoftware,
		Generation:   &gen,
		Admission:    &adm,
		IsGraduated:  &grad,
	}
	require.NoError(t, e.store.CreateUser(context.Background(), user))
	return user
}

func principalFor(u *models.User) *models.Principal {
	return &models.Principal{User: u, Scopes: KnownScopes()}
}

// grantAndIssue runs consent for scope and returns the issued code.
func (e *testEnv) grantAndIssue(
	t *testing.T,
	user *models.User,
	client *models.Client,
	scope, state string,
) string {
	t.Helper()
	issued, err := e.authz.Consent(context.Background(), principalFor(user), ConsentRequest{
		ClientID:    client.ClientID,
		RedirectURI: testRedirectURI,
		State:       state,
		Scope:       scope,
		Approved:    true,
	})
	require.NoError(t, err)
	return issued.Code
}

// exchange trades a code for tokens with the client's real credentials.
func (e *testEnv) exchange(
	t *testing.T,
	client *models.Client,
	code, state, scopes string,
) *TokenResponse {
	t.Helper()
	resp, err := e.tokens.ExchangeCodeForToken(context.Background(), ExchangeRequest{
		Code:         code,
		ClientID:     client.ClientID,
		ClientSecret: client.ClientSecret,
		State:        state,
		Scopes:       scopes,
	})
	require.NoError(t, err)
	return resp
}
