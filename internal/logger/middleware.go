package logger

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// RequestIDHeader is echoed back on every response.
const RequestIDHeader = "X-Request-ID"

// Middleware attaches a request-scoped logger to the request context and logs
// one line per completed request.
func Middleware(base *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		requestID := c.GetHeader(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.New().String()
		}
		c.Header(RequestIDHeader, requestID)

		reqLog := base.With(RequestID(requestID))
		c.Request = c.Request.WithContext(ToContext(c.Request.Context(), reqLog))

		c.Next()

		fields := []zap.Field{
			Method(c.Request.Method),
			Path(c.FullPath()),
			Status(c.Writer.Status()),
			Duration(time.Since(start)),
			ClientIP(c.ClientIP()),
		}
		switch status := c.Writer.Status(); {
		case status >= 500:
			reqLog.Error("request completed", fields...)
		case status >= 400:
			reqLog.Warn("request completed", fields...)
		default:
			reqLog.Info("request completed", fields...)
		}
	}
}
