package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-authgate/consentgate/internal/auth"
	"github.com/go-authgate/consentgate/internal/cache"
	"github.com/go-authgate/consentgate/internal/config"
	"github.com/go-authgate/consentgate/internal/ephemeral"
	"github.com/go-authgate/consentgate/internal/metrics"
	"github.com/go-authgate/consentgate/internal/middleware"
	"github.com/go-authgate/consentgate/internal/models"
	"github.com/go-authgate/consentgate/internal/services"
	"github.com/go-authgate/consentgate/internal/store"
	"github.com/go-authgate/consentgate/internal/token"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

const (
	testPassword    = "correct-horse"
	testRedirectURI = "https://board.example.com/cb"
	testFrontendURL = "https://accounts.example.com"
)

type envelope struct {
	Status    int             `json:"status"`
	TimeStamp time.Time       `json:"timeStamp"`
	Message   string          `json:"message"`
	Data      json.RawMessage `json:"data"`
}

type testServer struct {
	router *gin.Engine
	store  *store.Store
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	s, err := store.New(context.Background(), "sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	cfg := &config.Config{
		FrontendURL:                   testFrontendURL,
		JWTSecret:                     "test-secret",
		AccessTokenExpiration:         15 * time.Minute,
		RefreshTokenExpiration:        7 * 24 * time.Hour,
		SessionRefreshTokenExpiration: 30 * 24 * time.Hour,
		AuthCodeExpiration:            10 * time.Minute,
	}
	es := ephemeral.NewMemoryStore()
	m := metrics.NewNoopMetrics()

	clients := services.NewClientRegistry(s, cache.NewMemoryCache[models.Client](), time.Minute)
	consents := services.NewConsentLedger(s, clients, es, m)
	tokens := services.NewTokenService(cfg, es, clients, consents,
		auth.NewLocalIdentityProvider(s),
		token.NewLocalTokenProvider(cfg.JWTSecret, "consentgate-test"), m)
	authz := services.NewAuthorizationService(clients, consents, tokens, cfg.FrontendURL, m)

	oauth := NewOAuthHandler(authz, tokens)
	session := NewAuthHandler(tokens)
	user := NewUserHandler(consents)
	client := NewClientHandler(clients)

	requireAuth := middleware.RequireAuth(tokens)
	firstParty := middleware.RequireFirstParty()

	r := gin.New()
	api := r.Group("/api/v1")
	api.GET("/oauth/authorize", middleware.Authenticate(tokens), oauth.Authorize)
	api.POST("/oauth/consent", requireAuth, firstParty, oauth.Consent)
	api.POST("/oauth/token", oauth.Token)
	api.POST("/oauth/revoke", oauth.Revoke)
	api.POST("/oauth-client", requireAuth, firstParty, client.Create)
	api.POST("/auth/login", session.Login)
	api.POST("/auth/refresh", session.Refresh)
	api.POST("/auth/logout", requireAuth, session.Logout)
	api.GET("/user", requireAuth, middleware.RequireScopes(services.ScopeEmail, services.ScopeNickname), user.Profile)
	api.GET("/user/email", requireAuth, middleware.RequireScopes(services.ScopeEmail), user.Field(services.ScopeEmail))
	api.GET("/user/role", requireAuth, middleware.RequireScopes(services.ScopeRole), user.Field(services.ScopeRole))
	api.GET("/user/applications", requireAuth, firstParty, user.Applications)
	api.DELETE("/user/applications/:clientId", requireAuth, firstParty, user.RevokeApplication)
	api.GET("/user/permissions-history", requireAuth, firstParty, user.PermissionsHistory)

	return &testServer{router: r, store: s}
}

func (ts *testServer) createUser(t *testing.T, nickname string, role models.Role) *models.User {
	t.Helper()
	hash, err := auth.HashPassword(testPassword)
	require.NoError(t, err)
	gen, adm, grad := 8, 2023, false
	u := &models.User{
		Email:        nickname + "@e-mirim.hs.kr",
		Nickname:     nickname,
		PasswordHash: hash,
		Role:         role,
		Major:        models.MajorWeb,
		Generation:   &gen,
		Admission:    &adm,
		IsGraduated:  &grad,
	}
	require.NoError(t, ts.store.CreateUser(context.Background(), u))
	return u
}

func (ts *testServer) do(
	t *testing.T,
	method, path, bearer string,
	body any,
) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)

	var env envelope
	if w.Code != http.StatusFound {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	}
	return w, env
}

func (ts *testServer) login(t *testing.T, nickname string) services.SessionTokens {
	t.Helper()
	w, env := ts.do(t, http.MethodPost, "/api/v1/auth/login", "",
		gin.H{"nickname": nickname, "password": testPassword})
	require.Equal(t, http.StatusOK, w.Code, env.Message)

	var session services.SessionTokens
	require.NoError(t, json.Unmarshal(env.Data, &session))
	return session
}

func (ts *testServer) registerClient(t *testing.T, sessionToken, scope string) models.Client {
	t.Helper()
	w, env := ts.do(t, http.MethodPost, "/api/v1/oauth-client", sessionToken, gin.H{
		"serviceName":   "Mirim Board",
		"serviceDomain": "board.example.com",
		"scope":         scope,
		"redirectUris":  []string{testRedirectURI},
	})
	require.Equal(t, http.StatusCreated, w.Code, env.Message)

	var client models.Client
	require.NoError(t, json.Unmarshal(env.Data, &client))
	return client
}

func decodeData[T any](t *testing.T, env envelope) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(env.Data, &v))
	return v
}
