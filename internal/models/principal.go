package models

import "slices"

// Principal is the authenticated caller of a request: a user acting either
// directly (ClientID empty) or through a client with granted scopes.
type Principal struct {
	User     *User
	Scopes   []string
	ClientID string
}

// IsFirstParty reports whether the token was issued to the user directly.
func (p *Principal) IsFirstParty() bool {
	return p.ClientID == ""
}

// HasScopes reports whether every scope in required was granted.
func (p *Principal) HasScopes(required ...string) bool {
	for _, s := range required {
		if !slices.Contains(p.Scopes, s) {
			return false
		}
	}
	return true
}
