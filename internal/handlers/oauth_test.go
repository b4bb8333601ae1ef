package handlers

import (
	"net/http"
	"net/url"
	"testing"

	"github.com/go-authgate/consentgate/internal/models"
	"github.com/go-authgate/consentgate/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func authorizePath(clientID, redirectURI, scope, state string) string {
	q := url.Values{}
	q.Set("client_id", clientID)
	q.Set("response_type", "code")
	q.Set("redirect_uri", redirectURI)
	q.Set("scope", scope)
	q.Set("state", state)
	return "/api/v1/oauth/authorize?" + q.Encode()
}

// grantCode approves the consent prompt and returns the issued code.
func grantCode(t *testing.T, ts *testServer, session, clientID, scope, state string) string {
	t.Helper()
	w, env := ts.do(t, http.MethodPost, "/api/v1/oauth/consent", session, gin.H{
		"client_id":    clientID,
		"redirect_uri": testRedirectURI,
		"state":        state,
		"scope":        scope,
		"approved":     true,
	})
	require.Equal(t, http.StatusOK, w.Code, env.Message)

	redirect, err := url.Parse(decodeData[redirectTo](t, env).URL)
	require.NoError(t, err)
	assert.Equal(t, state, redirect.Query().Get("state"))
	return redirect.Query().Get("code")
}

func TestOAuthFlow(t *testing.T) {
	ts := newTestServer(t)
	ts.createUser(t, "u1", models.RoleStudent)
	session := ts.login(t, "u1").AccessToken
	client := ts.registerClient(t, session, "email,nickname")

	// First visit prompts for consent
	w, env := ts.do(t, http.MethodGet,
		authorizePath(client.ClientID, testRedirectURI, "email,nickname", "xyz"), session, nil)
	require.Equal(t, http.StatusOK, w.Code, env.Message)
	prompt := decodeData[consentRequired](t, env)
	assert.True(t, prompt.RequiresConsent)
	assert.Equal(t, "Mirim Board", prompt.Client.ServiceName)
	assert.Equal(t, []string{"email", "nickname"}, prompt.Client.Scope)

	code := grantCode(t, ts, session, client.ClientID, "email,nickname", "xyz")

	w, env = ts.do(t, http.MethodPost, "/api/v1/oauth/token", "", gin.H{
		"code":         code,
		"clientId":     client.ClientID,
		"clientSecret": client.ClientSecret,
		"state":        "xyz",
		"scopes":       "email",
	})
	require.Equal(t, http.StatusOK, w.Code, env.Message)
	assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))
	tokens := decodeData[services.TokenResponse](t, env)
	assert.Equal(t, map[string]any{"email": "u1@e-mirim.hs.kr"}, tokens.User)
	assert.Equal(t, 900, tokens.ExpiresIn)

	// The client token reads granted fields only
	w, env = ts.do(t, http.MethodGet, "/api/v1/user/email", tokens.AccessToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, map[string]any{"email": "u1@e-mirim.hs.kr"}, decodeData[map[string]any](t, env))

	w, _ = ts.do(t, http.MethodGet, "/api/v1/user", tokens.AccessToken, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, _ = ts.do(t, http.MethodGet, "/api/v1/user/applications", tokens.AccessToken, nil)
	assert.Equal(t, http.StatusForbidden, w.Code, "client tokens cannot manage consent")

	// Second visit with consent already granted issues a code directly
	w, env = ts.do(t, http.MethodGet,
		authorizePath(client.ClientID, testRedirectURI, "email", "again"), session, nil)
	require.Equal(t, http.StatusOK, w.Code)
	next, err := url.Parse(decodeData[redirectTo](t, env).URL)
	require.NoError(t, err)
	assert.NotEmpty(t, next.Query().Get("code"))

	// Revoked through the client API, the token stops working
	w, env = ts.do(t, http.MethodPost, "/api/v1/oauth/revoke", "", gin.H{
		"token":         tokens.AccessToken,
		"client_id":     client.ClientID,
		"client_secret": client.ClientSecret,
	})
	require.Equal(t, http.StatusOK, w.Code, env.Message)

	w, _ = ts.do(t, http.MethodGet, "/api/v1/user/email", tokens.AccessToken, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthorize_NoSessionRedirectsToLogin(t *testing.T) {
	ts := newTestServer(t)
	ts.createUser(t, "u1", models.RoleStudent)
	client := ts.registerClient(t, ts.login(t, "u1").AccessToken, "email")

	for name, bearer := range map[string]string{"no token": "", "invalid token": "garbage"} {
		t.Run(name, func(t *testing.T) {
			w, _ := ts.do(t, http.MethodGet,
				authorizePath(client.ClientID, testRedirectURI, "email", "s"), bearer, nil)
			require.Equal(t, http.StatusFound, w.Code)

			loc, err := url.Parse(w.Header().Get("Location"))
			require.NoError(t, err)
			assert.Equal(t, "accounts.example.com", loc.Host)
			assert.Equal(t, "/login", loc.Path)
			assert.Contains(t, loc.Query().Get("redirect"), "/oauth/consent?")
		})
	}
}

func TestAuthorize_Errors(t *testing.T) {
	ts := newTestServer(t)
	ts.createUser(t, "u1", models.RoleStudent)
	session := ts.login(t, "u1").AccessToken
	client := ts.registerClient(t, session, "email")

	tests := []struct {
		name       string
		path       string
		bearer     string
		wantStatus int
	}{
		{
			"unregistered redirect without session",
			authorizePath(client.ClientID, "https://evil.example.com/cb", "email", "s"), "",
			http.StatusBadRequest,
		},
		{
			"scope beyond client",
			authorizePath(client.ClientID, testRedirectURI, "email,role", "s"), session,
			http.StatusBadRequest,
		},
		{
			"unsupported response type",
			"/api/v1/oauth/authorize?response_type=token&client_id=" + client.ClientID, session,
			http.StatusBadRequest,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, env := ts.do(t, http.MethodGet, tt.path, tt.bearer, nil)
			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Equal(t, tt.wantStatus, env.Status)
			assert.Empty(t, env.Data)
		})
	}
}

func TestConsent_Denied(t *testing.T) {
	ts := newTestServer(t)
	ts.createUser(t, "u1", models.RoleStudent)
	session := ts.login(t, "u1").AccessToken
	client := ts.registerClient(t, session, "email")

	w, env := ts.do(t, http.MethodPost, "/api/v1/oauth/consent", session, gin.H{
		"client_id":    client.ClientID,
		"redirect_uri": testRedirectURI,
		"state":        "s",
		"scope":        "email",
		"approved":     false,
	})
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "access denied", env.Message)

	w, _ = ts.do(t, http.MethodPost, "/api/v1/oauth/consent", "", gin.H{"client_id": client.ClientID})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestToken_Errors(t *testing.T) {
	ts := newTestServer(t)
	ts.createUser(t, "u1", models.RoleStudent)
	session := ts.login(t, "u1").AccessToken
	client := ts.registerClient(t, session, "email")
	code := grantCode(t, ts, session, client.ClientID, "email", "s")

	tests := []struct {
		name       string
		body       gin.H
		wantStatus int
	}{
		{"missing code", gin.H{"clientId": client.ClientID}, http.StatusBadRequest},
		{"bad secret", gin.H{
			"code": code, "clientId": client.ClientID, "clientSecret": "x", "state": "s",
		}, http.StatusUnauthorized},
		{"state mismatch", gin.H{
			"code": code, "clientId": client.ClientID, "clientSecret": client.ClientSecret, "state": "other",
		}, http.StatusBadRequest},
		{"code already consumed", gin.H{
			"code": code, "clientId": client.ClientID, "clientSecret": client.ClientSecret, "state": "s",
		}, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, _ := ts.do(t, http.MethodPost, "/api/v1/oauth/token", "", tt.body)
			assert.Equal(t, tt.wantStatus, w.Code)
		})
	}
}

func TestToken_MalformedBody(t *testing.T) {
	ts := newTestServer(t)
	w, env := ts.do(t, http.MethodPost, "/api/v1/oauth/token", "", "not an object")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, env.Message, "malformed request body")
}

func TestRevoke_UnknownTokenLooksLikeBadCredentials(t *testing.T) {
	ts := newTestServer(t)
	ts.createUser(t, "u1", models.RoleStudent)
	client := ts.registerClient(t, ts.login(t, "u1").AccessToken, "email")

	w1, env1 := ts.do(t, http.MethodPost, "/api/v1/oauth/revoke", "", gin.H{
		"token": "unknown", "client_id": client.ClientID, "client_secret": client.ClientSecret,
	})
	w2, env2 := ts.do(t, http.MethodPost, "/api/v1/oauth/revoke", "", gin.H{
		"token": "unknown", "client_id": client.ClientID, "client_secret": "wrong",
	})
	assert.Equal(t, http.StatusUnauthorized, w1.Code)
	assert.Equal(t, w1.Code, w2.Code)
	assert.Equal(t, env1.Message, env2.Message)
}
