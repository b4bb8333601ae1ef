package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

const (
	resultSuccess = "success"
	resultError   = "error"
	resultFailure = "failure"
)

// HTTPMetricsMiddleware creates a Gin middleware that records HTTP metrics
func HTTPMetricsMiddleware(m Recorder) gin.HandlerFunc {
	metrics, ok := m.(*Metrics)
	if !ok {
		return func(c *gin.Context) {
			c.Next()
		}
	}

	return func(c *gin.Context) {
		// Skip metrics endpoint to avoid self-recording
		if c.Request.URL.Path == "/metrics" {
			c.Next()
			return
		}

		start := time.Now()
		metrics.HTTPRequestsInFlight.Inc()
		defer metrics.HTTPRequestsInFlight.Dec()

		c.Next()

		path := normalizePath(c.FullPath())
		status := strconv.Itoa(c.Writer.Status())
		metrics.HTTPRequestsTotal.WithLabelValues(c.Request.Method, path, status).Inc()
		metrics.HTTPRequestDuration.WithLabelValues(c.Request.Method, path).
			Observe(time.Since(start).Seconds())
	}
}

// normalizePath keeps label cardinality bounded by using the route pattern.
func normalizePath(fullPath string) string {
	if fullPath == "" {
		return "unknown"
	}
	return fullPath
}

func successLabel(success bool) string {
	if success {
		return resultSuccess
	}
	return resultError
}

// RecordAuthorizeOutcome records how an authorization request ended
func (m *Metrics) RecordAuthorizeOutcome(outcome string) {
	m.AuthorizeRequestsTotal.WithLabelValues(outcome).Inc()
}

// RecordAuthorizationCodeIssued records code issuance
func (m *Metrics) RecordAuthorizationCodeIssued(success bool) {
	m.AuthorizationCodesTotal.WithLabelValues(successLabel(success)).Inc()
}

// RecordCodeExchange records the result of a code-for-token exchange
func (m *Metrics) RecordCodeExchange(result string) {
	m.CodeExchangesTotal.WithLabelValues(result).Inc()
}

// RecordTokenIssued records token issuance
func (m *Metrics) RecordTokenIssued(tokenType, grantType string, generationTime time.Duration) {
	m.TokensIssuedTotal.WithLabelValues(tokenType, grantType).Inc()
	m.TokenGenerationDuration.Observe(generationTime.Seconds())
}

// RecordTokenRevoked records token revocation
func (m *Metrics) RecordTokenRevoked(tokenType, reason string) {
	m.TokensRevokedTotal.WithLabelValues(tokenType, reason).Inc()
}

// RecordTokenRefresh records a refresh attempt
func (m *Metrics) RecordTokenRefresh(success bool) {
	m.TokensRefreshedTotal.WithLabelValues(successLabel(success)).Inc()
}

// RecordTokenValidation records a bearer token validation
func (m *Metrics) RecordTokenValidation(result string, duration time.Duration) {
	m.TokenValidationTotal.WithLabelValues(result).Inc()
	m.TokenValidationDuration.Observe(duration.Seconds())
}

// RecordConsentGranted records a consent upsert
func (m *Metrics) RecordConsentGranted() {
	m.ConsentsGrantedTotal.Inc()
}

// RecordConsentRevoked records an application disconnect
func (m *Metrics) RecordConsentRevoked() {
	m.ConsentsRevokedTotal.Inc()
}

// RecordLogin records a first-party login attempt
func (m *Metrics) RecordLogin(success bool, duration time.Duration) {
	result := resultSuccess
	if !success {
		result = resultFailure
	}
	m.AuthLoginTotal.WithLabelValues(result).Inc()
	m.AuthLoginDuration.Observe(duration.Seconds())
}

// RecordLogout records a logout
func (m *Metrics) RecordLogout() {
	m.AuthLogoutTotal.Inc()
}
