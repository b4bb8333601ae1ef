package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder is the set of events the authorization server reports.
type Recorder interface {
	RecordAuthorizeOutcome(outcome string)
	RecordAuthorizationCodeIssued(success bool)
	RecordCodeExchange(result string)
	RecordTokenIssued(tokenType, grantType string, generationTime time.Duration)
	RecordTokenRevoked(tokenType, reason string)
	RecordTokenRefresh(success bool)
	RecordTokenValidation(result string, duration time.Duration)
	RecordConsentGranted()
	RecordConsentRevoked()
	RecordLogin(success bool, duration time.Duration)
	RecordLogout()
}

// Authorize outcomes
const (
	OutcomeCodeIssued      = "code_issued"
	OutcomeConsentRequired = "consent_required"
	OutcomeLoginRequired   = "login_required"
	OutcomeError           = "error"
)

// Grant types used as the grant_type label
const (
	GrantAuthorizationCode = "authorization_code"
	GrantRefreshToken      = "refresh_token"
	GrantPassword          = "password"
)

var _ Recorder = (*Metrics)(nil)

// Metrics holds all Prometheus metrics for the application
type Metrics struct {
	// Authorization code flow
	AuthorizeRequestsTotal  *prometheus.CounterVec
	AuthorizationCodesTotal *prometheus.CounterVec
	CodeExchangesTotal      *prometheus.CounterVec
	ConsentsGrantedTotal    prometheus.Counter
	ConsentsRevokedTotal    prometheus.Counter

	// Tokens
	TokensIssuedTotal       *prometheus.CounterVec
	TokensRevokedTotal      *prometheus.CounterVec
	TokensRefreshedTotal    *prometheus.CounterVec
	TokenValidationTotal    *prometheus.CounterVec
	TokenGenerationDuration prometheus.Histogram
	TokenValidationDuration prometheus.Histogram

	// First-party authentication
	AuthLoginTotal    *prometheus.CounterVec
	AuthLogoutTotal   prometheus.Counter
	AuthLoginDuration prometheus.Histogram

	// HTTP
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge
}

var (
	defaultMetrics *Metrics
	once           sync.Once
)

// Init returns Prometheus-backed metrics when enabled and NoopMetrics
// otherwise. Collectors are registered once per process.
func Init(enabled bool) Recorder {
	if !enabled {
		return NewNoopMetrics()
	}

	once.Do(func() {
		defaultMetrics = initMetrics()
	})
	return defaultMetrics
}

// GetMetrics returns the process-wide Prometheus metrics, registering them
// on first use.
func GetMetrics() *Metrics {
	once.Do(func() {
		defaultMetrics = initMetrics()
	})
	return defaultMetrics
}

func initMetrics() *Metrics {
	return &Metrics{
		AuthorizeRequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "oauth_authorize_requests_total",
				Help: "Total number of authorization requests by outcome",
			},
			[]string{"outcome"}, // code_issued, consent_required, login_required, error
		),
		AuthorizationCodesTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "oauth_authorization_codes_total",
				Help: "Total number of authorization codes issued",
			},
			[]string{"result"}, // success, error
		),
		CodeExchangesTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "oauth_code_exchanges_total",
				Help: "Total number of authorization code exchanges",
			},
			[]string{"result"}, // success, invalid_client, invalid_grant, invalid_scope, forbidden, error
		),
		ConsentsGrantedTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "oauth_consents_granted_total",
				Help: "Total number of consents granted or updated by users",
			},
		),
		ConsentsRevokedTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "oauth_consents_revoked_total",
				Help: "Total number of applications disconnected by users",
			},
		),

		TokensIssuedTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "oauth_tokens_issued_total",
				Help: "Total number of tokens issued",
			},
			[]string{"token_type", "grant_type"},
		),
		TokensRevokedTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "oauth_tokens_revoked_total",
				Help: "Total number of tokens revoked",
			},
			[]string{"token_type", "reason"}, // reason: client_request, logout, consent_revoked
		),
		TokensRefreshedTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "oauth_tokens_refreshed_total",
				Help: "Total number of token refresh attempts",
			},
			[]string{"result"},
		),
		TokenValidationTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "oauth_token_validation_total",
				Help: "Total number of bearer token validations",
			},
			[]string{"result"}, // valid, invalid, expired
		),
		TokenGenerationDuration: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "oauth_token_generation_duration_seconds",
				Help:    "Time taken to sign tokens",
				Buckets: []float64{.0005, .001, .005, .01, .025, .05, .1},
			},
		),
		TokenValidationDuration: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "oauth_token_validation_duration_seconds",
				Help:    "Time taken to validate bearer tokens",
				Buckets: []float64{.0005, .001, .005, .01, .025, .05, .1},
			},
		),

		AuthLoginTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "auth_login_total",
				Help: "Total number of first-party login attempts",
			},
			[]string{"result"},
		),
		AuthLogoutTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "auth_logout_total",
				Help: "Total number of logouts",
			},
		),
		AuthLoginDuration: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "auth_login_duration_seconds",
				Help:    "Time taken to verify credentials",
				Buckets: prometheus.DefBuckets,
			},
		),

		HTTPRequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		HTTPRequestsInFlight: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "http_requests_in_flight",
				Help: "Current number of HTTP requests being processed",
			},
		),
	}
}
