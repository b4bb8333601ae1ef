package models

// AuthorizationCode is the ephemeral record stored under auth_code:{code}.
// Scope is the scope the user approved.
type AuthorizationCode struct {
	UserID   uint   `json:"userId"`
	ClientID string `json:"clientId"`
	State    string `json:"state"`
	Scope    string `json:"scope"`
}
