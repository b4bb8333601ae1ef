package middleware

import (
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

const testToken = "test-secret-token-123"

func TestMetricsAuthMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name       string
		configured string
		header     string
		wantStatus int
	}{
		{"no token configured", "", "", http.StatusOK},
		{"valid token", testToken, "Bearer " + testToken, http.StatusOK},
		{"missing header", testToken, "", http.StatusUnauthorized},
		{"wrong scheme", testToken, "Basic " + testToken, http.StatusUnauthorized},
		{"wrong token", testToken, "Bearer other", http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := gin.New()
			r.GET("/x", MetricsAuthMiddleware(tt.configured), func(c *gin.Context) {
				c.String(http.StatusOK, "metrics")
			})

			w := do(r, tt.header)
			assert.Equal(t, tt.wantStatus, w.Code)
			if tt.wantStatus == http.StatusUnauthorized {
				assert.Equal(t, `Bearer realm="metrics"`, w.Header().Get("WWW-Authenticate"))
			}
		})
	}
}
