package models

import "time"

// PermissionStatus is the state recorded by a history event.
type PermissionStatus string

const (
	PermissionActive  PermissionStatus = "active"
	PermissionRevoked PermissionStatus = "revoked"
)

// PermissionHistory is an append-only audit event for consent changes.
type PermissionHistory struct {
	ID                uint             `gorm:"primaryKey;autoIncrement"             json:"id"`
	UserID            uint             `gorm:"not null;index:idx_history_user_time" json:"userId"`
	ClientID          string           `gorm:"not null;size:64"                     json:"clientId"`
	ApplicationName   string           `gorm:"not null"                             json:"applicationName"`
	ApplicationDomain string           `gorm:"not null"                             json:"applicationDomain"`
	PermissionScopes  string           `gorm:"not null"                             json:"permissionScopes"`
	Timestamp         time.Time        `gorm:"not null;index:idx_history_user_time" json:"timestamp"`
	Status            PermissionStatus `gorm:"not null;size:16"                     json:"status"`
}

func (PermissionHistory) TableName() string {
	return "permission_histories"
}
