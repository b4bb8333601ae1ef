// Package response writes the JSON envelope every API route returns.
package response

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-authgate/consentgate/internal/logger"
	"github.com/go-authgate/consentgate/internal/services"

	"github.com/gin-gonic/gin"
)

// Envelope is the body of every API response.
type Envelope struct {
	Status    int       `json:"status"`
	TimeStamp time.Time `json:"timeStamp"`
	Message   string    `json:"message"`
	Data      any       `json:"data,omitempty"`
}

const internalErrorMessage = "internal server error"

var now = time.Now

// JSON writes an envelope with the given status, message and optional data.
func JSON(c *gin.Context, status int, message string, data any) {
	c.JSON(status, Envelope{
		Status:    status,
		TimeStamp: now().UTC(),
		Message:   message,
		Data:      data,
	})
}

// OK writes a 200 envelope.
func OK(c *gin.Context, message string, data any) {
	JSON(c, http.StatusOK, message, data)
}

// Error maps err to its status and aborts the request. Errors outside the
// service taxonomy are logged and reported without detail.
func Error(c *gin.Context, err error) {
	status := StatusFor(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		logger.From(c.Request.Context()).Error("request failed",
			logger.Path(c.FullPath()), logger.Err(err))
		message = internalErrorMessage
	}
	if status == http.StatusUnauthorized {
		c.Header("WWW-Authenticate", `Bearer realm="consentgate"`)
	}
	c.Abort()
	JSON(c, status, message, nil)
}

// StatusFor returns the HTTP status for a service error.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, services.ErrInvalidRequest),
		errors.Is(err, services.ErrInvalidRedirectURI),
		errors.Is(err, services.ErrInvalidGrant),
		errors.Is(err, services.ErrInvalidScope):
		return http.StatusBadRequest
	case errors.Is(err, services.ErrInvalidClient),
		errors.Is(err, services.ErrUnauthorized),
		errors.Is(err, services.ErrTokenExpired):
		return http.StatusUnauthorized
	case errors.Is(err, services.ErrForbidden),
		errors.Is(err, services.ErrAccessDenied):
		return http.StatusForbidden
	case errors.Is(err, services.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
