package models

import "time"

// Consent records that a user approved a client for a scope. Rows are never
// deleted; a non-nil RevokedAt marks the grant inactive.
type Consent struct {
	ID        uint       `gorm:"primaryKey;autoIncrement"`
	UserID    uint       `gorm:"not null;uniqueIndex:idx_consent_user_client"`
	ClientID  string     `gorm:"not null;uniqueIndex:idx_consent_user_client;size:64"`
	Scope     string     `gorm:"not null"`
	GrantedAt time.Time  `gorm:"not null"`
	RevokedAt *time.Time `gorm:"index"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

// IsActive reports whether the consent has not been revoked.
func (c *Consent) IsActive() bool {
	return c.RevokedAt == nil
}

func (Consent) TableName() string {
	return "oauth_consents"
}

// ConnectedApplication is an active consent joined with its client's display
// metadata.
type ConnectedApplication struct {
	ClientID      string    `json:"clientId"`
	ServiceName   string    `json:"serviceName"`
	ServiceDomain string    `json:"serviceDomain"`
	Scopes        []string  `json:"scopes"`
	GrantedAt     time.Time `json:"grantedAt"`
}
