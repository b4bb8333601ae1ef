package handlers

import (
	"fmt"
	"net/http"

	"github.com/go-authgate/consentgate/internal/middleware"
	"github.com/go-authgate/consentgate/internal/response"
	"github.com/go-authgate/consentgate/internal/services"

	"github.com/gin-gonic/gin"
)

// OAuthHandler serves the authorization code flow endpoints.
type OAuthHandler struct {
	authorization *services.AuthorizationService
	tokens        *services.TokenService
}

func NewOAuthHandler(as *services.AuthorizationService, ts *services.TokenService) *OAuthHandler {
	return &OAuthHandler{authorization: as, tokens: ts}
}

type consentBody struct {
	ClientID    string `json:"client_id"`
	RedirectURI string `json:"redirect_uri"`
	State       string `json:"state"`
	Scope       string `json:"scope"`
	Approved    bool   `json:"approved"`
}

type tokenBody struct {
	Code         string `json:"code"`
	ClientID     string `json:"clientId"`
	ClientSecret string `json:"clientSecret"`
	State        string `json:"state"`
	RedirectURI  string `json:"redirectUri"`
	Scopes       string `json:"scopes"`
}

type revokeBody struct {
	Token        string `json:"token"`
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
}

// consentRequired is the payload that sends the frontend to its consent page.
type consentRequired struct {
	URL             string                  `json:"url"`
	RequiresConsent bool                    `json:"requiresConsent"`
	Client          *services.ConsentPrompt `json:"client"`
}

type redirectTo struct {
	URL string `json:"url"`
}

// Authorize handles GET /oauth/authorize. Callers without a session are
// redirected to the frontend login page, which replays the request.
func (h *OAuthHandler) Authorize(c *gin.Context) {
	req := services.AuthorizeRequest{
		ClientID:     c.Query("client_id"),
		ResponseType: c.Query("response_type"),
		RedirectURI:  c.Query("redirect_uri"),
		Scope:        c.Query("scope"),
		State:        c.Query("state"),
	}

	result, err := h.authorization.Authorize(c.Request.Context(), middleware.GetPrincipal(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	switch result.Kind {
	case services.ResultLoginRequired:
		c.Redirect(http.StatusFound, result.LoginURL)
	case services.ResultConsentRequired:
		response.OK(c, "consent required", consentRequired{
			URL:             result.Consent.ConsentURL,
			RequiresConsent: true,
			Client:          result.Consent,
		})
	case services.ResultCodeIssued:
		response.OK(c, "authorization code issued", redirectTo{URL: result.Code.RedirectURL})
	}
}

// Consent handles POST /oauth/consent.
func (h *OAuthHandler) Consent(c *gin.Context) {
	var body consentBody
	if !bindJSON(c, &body) {
		return
	}

	issued, err := h.authorization.Consent(c.Request.Context(), middleware.GetPrincipal(c),
		services.ConsentRequest{
			ClientID:    body.ClientID,
			RedirectURI: body.RedirectURI,
			State:       body.State,
			Scope:       body.Scope,
			Approved:    body.Approved,
		})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, "authorization code issued", redirectTo{URL: issued.RedirectURL})
}

// Token handles POST /oauth/token, trading a code for tokens.
func (h *OAuthHandler) Token(c *gin.Context) {
	var body tokenBody
	if !bindJSON(c, &body) {
		return
	}
	if body.Code == "" || body.ClientID == "" {
		response.Error(c, fmt.Errorf("%w: code and clientId are required", services.ErrInvalidRequest))
		return
	}

	resp, err := h.tokens.ExchangeCodeForToken(c.Request.Context(), services.ExchangeRequest{
		Code:         body.Code,
		ClientID:     body.ClientID,
		ClientSecret: body.ClientSecret,
		State:        body.State,
		RedirectURI:  body.RedirectURI,
		Scopes:       body.Scopes,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Header("Cache-Control", "no-store")
	response.OK(c, "token issued", resp)
}

// Revoke handles POST /oauth/revoke.
func (h *OAuthHandler) Revoke(c *gin.Context) {
	var body revokeBody
	if !bindJSON(c, &body) {
		return
	}

	err := h.tokens.RevokeToken(c.Request.Context(), body.Token, body.ClientID, body.ClientSecret)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, "token revoked", nil)
}

// ============================================================
// Helpers
// ============================================================

func bindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		response.Error(c, fmt.Errorf("%w: malformed request body", services.ErrInvalidRequest))
		return false
	}
	return true
}
