package handlers

import (
	"net/http"

	"github.com/go-authgate/consentgate/internal/logger"
	"github.com/go-authgate/consentgate/internal/models"
	"github.com/go-authgate/consentgate/internal/response"
	"github.com/go-authgate/consentgate/internal/services"

	"github.com/gin-gonic/gin"
)

// ClientHandler registers OAuth clients.
type ClientHandler struct {
	clients *services.ClientRegistry
}

func NewClientHandler(cr *services.ClientRegistry) *ClientHandler {
	return &ClientHandler{clients: cr}
}

type createClientBody struct {
	ServiceName     string                 `json:"serviceName"`
	ServiceDomain   string                 `json:"serviceDomain"`
	Scope           string                 `json:"scope"`
	RedirectURIs    []string               `json:"redirectUris"`
	AllowedUserType models.AllowedUserType `json:"allowedUserType"`
}

// Create handles POST /oauth-client. The response is the only time the
// client secret is returned.
func (h *ClientHandler) Create(c *gin.Context) {
	var body createClientBody
	if !bindJSON(c, &body) {
		return
	}

	client, err := h.clients.CreateClient(c.Request.Context(), services.CreateClientRequest{
		ServiceName:     body.ServiceName,
		ServiceDomain:   body.ServiceDomain,
		Scope:           body.Scope,
		RedirectURIs:    body.RedirectURIs,
		AllowedUserType: body.AllowedUserType,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	logger.From(c.Request.Context()).Info("client registered",
		logger.ClientID(client.ClientID))
	c.Header("Cache-Control", "no-store")
	response.JSON(c, http.StatusCreated, "client created", client)
}
