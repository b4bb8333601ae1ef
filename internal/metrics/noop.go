package metrics

import "time"

var _ Recorder = (*NoopMetrics)(nil)

// NoopMetrics discards every event. Used when metrics are disabled and in tests.
type NoopMetrics struct{}

// NewNoopMetrics creates a no-op recorder
func NewNoopMetrics() *NoopMetrics {
	return &NoopMetrics{}
}

func (*NoopMetrics) RecordAuthorizeOutcome(string) {}
func (*NoopMetrics) RecordAuthorizationCodeIssued(bool) {}
func (*NoopMetrics) RecordCodeExchange(string) {}
func (*NoopMetrics) RecordTokenIssued(string, string, time.Duration) {}
func (*NoopMetrics) RecordTokenRevoked(string, string) {}
func (*NoopMetrics) RecordTokenRefresh(bool) {}
func (*NoopMetrics) RecordTokenValidation(string, time.Duration) {}
func (*NoopMetrics) RecordConsentGranted() {}
func (*NoopMetrics) RecordConsentRevoked() {}
func (*NoopMetrics) RecordLogin(bool, time.Duration) {}
func (*NoopMetrics) RecordLogout() {}
