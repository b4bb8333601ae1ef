package token

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Token type constants
const (
	TokenTypeBearer = "Bearer"

	typeAccess  = "access"
	typeRefresh = "refresh"
)

// Subject identifies who a token is issued for.
type Subject struct {
	UserID   uint
	ClientID string // empty for first-party session tokens
	Scopes   string // comma separated
}

// Result is a freshly signed token.
type Result struct {
	TokenString string
	TokenType   string
	ExpiresAt   time.Time
	TTL         time.Duration
}

// Claims is the verified payload of a token.
type Claims struct {
	UserID   uint   `json:"user_id"`
	ClientID string `json:"client_id,omitempty"`
	Scope    string `json:"scope"`
	Type     string `json:"type"`
	jwt.RegisteredClaims
}
