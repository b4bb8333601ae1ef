package handlers

import (
	"fmt"
	"strconv"

	"github.com/go-authgate/consentgate/internal/middleware"
	"github.com/go-authgate/consentgate/internal/models"
	"github.com/go-authgate/consentgate/internal/response"
	"github.com/go-authgate/consentgate/internal/services"
	"github.com/go-authgate/consentgate/internal/store"

	"github.com/gin-gonic/gin"
)

// UserHandler serves the signed-in user's profile and consent management.
type UserHandler struct {
	consents *services.ConsentLedger
}

func NewUserHandler(cl *services.ConsentLedger) *UserHandler {
	return &UserHandler{consents: cl}
}

type historyPage struct {
	History    []models.PermissionHistory `json:"history"`
	Pagination store.PaginationResult     `json:"pagination"`
}

// Profile returns the user's fields limited to the granted scopes.
func (h *UserHandler) Profile(c *gin.Context) {
	principal := middleware.GetPrincipal(c)
	response.OK(c, "user info", services.ProjectUser(principal.User, principal.Scopes))
}

// Field returns a handler for a single scope-gated user field.
func (h *UserHandler) Field(scope string) gin.HandlerFunc {
	return func(c *gin.Context) {
		value, ok := services.ProjectField(middleware.GetPrincipal(c).User, scope)
		if !ok {
			response.Error(c, fmt.Errorf("%w: unknown field %s", services.ErrNotFound, scope))
			return
		}
		response.OK(c, scope, gin.H{scope: value})
	}
}

// Applications lists the clients the user has granted access to.
func (h *UserHandler) Applications(c *gin.Context) {
	principal := middleware.GetPrincipal(c)
	apps, err := h.consents.ListActiveForUser(c.Request.Context(), principal.User.ID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, "connected applications", apps)
}

// RevokeApplication withdraws the user's consent for one client and
// invalidates the client's outstanding tokens.
func (h *UserHandler) RevokeApplication(c *gin.Context) {
	clientID := c.Param("clientId")
	if err := h.consents.RevokeApplication(c.Request.Context(), middleware.GetPrincipal(c), clientID); err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, "application disconnected", nil)
}

// PermissionsHistory pages through the user's consent history. Query:
// page, page_size, client_id, status.
func (h *UserHandler) PermissionsHistory(c *gin.Context) {
	status := models.PermissionStatus(c.Query("status"))
	switch status {
	case "", models.PermissionActive, models.PermissionRevoked:
	default:
		response.Error(c, fmt.Errorf("%w: status must be %q or %q",
			services.ErrInvalidRequest, models.PermissionActive, models.PermissionRevoked))
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "10"))

	events, pagination, err := h.consents.ListHistory(c.Request.Context(),
		middleware.GetPrincipal(c).User.ID,
		store.NewPaginationParams(page, pageSize),
		store.PermissionHistoryFilters{ClientID: c.Query("client_id"), Status: status})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, "permission history", historyPage{History: events, Pagination: pagination})
}
