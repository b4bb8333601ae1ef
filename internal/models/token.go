package models

// Token types carried in the JWT "type" claim and in TokenRecord.
const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

// TokenRecord is the ephemeral record stored under access_token:{token} or
// refresh_token:{token}. Its existence is what keeps the token usable.
type TokenRecord struct {
	UserID   uint   `json:"userId"`
	ClientID string `json:"clientId,omitempty"` // empty for first-party session tokens
	Scopes   string `json:"scopes"`
	Type     string `json:"type"`
}
