package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/go-authgate/consentgate/internal/response"

	"github.com/gin-gonic/gin"
)

// MetricsAuthMiddleware protects the metrics endpoint with a static Bearer
// token. An empty token leaves the endpoint open.
func MetricsAuthMiddleware(token string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token == "" {
			c.Next()
			return
		}

		provided, ok := bearerToken(c)
		if !ok || subtle.ConstantTimeCompare([]byte(provided), []byte(token)) != 1 {
			c.Header("WWW-Authenticate", `Bearer realm="metrics"`)
			c.Abort()
			response.JSON(c, http.StatusUnauthorized, "bearer token required", nil)
			return
		}

		c.Next()
	}
}
