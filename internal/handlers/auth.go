package handlers

import (
	"fmt"

	"github.com/go-authgate/consentgate/internal/middleware"
	"github.com/go-authgate/consentgate/internal/response"
	"github.com/go-authgate/consentgate/internal/services"

	"github.com/gin-gonic/gin"
)

// AuthHandler serves the first-party session endpoints used by the
// account frontend.
type AuthHandler struct {
	tokens *services.TokenService
}

func NewAuthHandler(ts *services.TokenService) *AuthHandler {
	return &AuthHandler{tokens: ts}
}

type loginBody struct {
	Nickname string `json:"nickname"`
	Password string `json:"password"`
}

type refreshBody struct {
	RefreshToken string `json:"refreshToken"`
}

// Login handles POST /auth/login.
func (h *AuthHandler) Login(c *gin.Context) {
	var body loginBody
	if !bindJSON(c, &body) {
		return
	}
	if body.Nickname == "" || body.Password == "" {
		response.Error(c, fmt.Errorf("%w: nickname and password are required", services.ErrInvalidRequest))
		return
	}

	session, err := h.tokens.Login(c.Request.Context(), body.Nickname, body.Password)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Header("Cache-Control", "no-store")
	response.OK(c, "login successful", session)
}

// Refresh handles POST /auth/refresh for both session and client refresh
// tokens.
func (h *AuthHandler) Refresh(c *gin.Context) {
	var body refreshBody
	if !bindJSON(c, &body) {
		return
	}
	if body.RefreshToken == "" {
		response.Error(c, fmt.Errorf("%w: refreshToken is required", services.ErrInvalidRequest))
		return
	}

	resp, err := h.tokens.Refresh(c.Request.Context(), body.RefreshToken)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Header("Cache-Control", "no-store")
	response.OK(c, "token refreshed", resp)
}

// Logout handles POST /auth/logout. The body may name the session's refresh
// token so it is revoked along with the access token.
func (h *AuthHandler) Logout(c *gin.Context) {
	var body refreshBody
	if c.Request.ContentLength != 0 && !bindJSON(c, &body) {
		return
	}

	err := h.tokens.RevokeSession(c.Request.Context(),
		middleware.GetPrincipal(c), middleware.GetAccessToken(c), body.RefreshToken)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, "logout successful", nil)
}
