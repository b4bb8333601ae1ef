package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"slices"
	"time"
)

// AllowedUserType restricts which roles may complete a flow for a client.
type AllowedUserType string

const (
	AllowAll     AllowedUserType = "all"
	AllowStudent AllowedUserType = "student"
	AllowTeacher AllowedUserType = "teacher"
)

// Valid reports whether t is a known value.
func (t AllowedUserType) Valid() bool {
	switch t {
	case AllowAll, AllowStudent, AllowTeacher:
		return true
	}
	return false
}

// Permits reports whether a user with the given role may use the client.
func (t AllowedUserType) Permits(role Role) bool {
	switch t {
	case AllowAll, "":
		return true
	default:
		return string(t) == string(role)
	}
}

// Client is a registered third-party application.
type Client struct {
	ID              uint            `gorm:"primaryKey;autoIncrement"   json:"id"`
	ClientID        string          `gorm:"uniqueIndex;not null"        json:"clientId"`
	ClientSecret    string          `gorm:"not null"                    json:"clientSecret"`
	ServiceName     string          `gorm:"not null"                    json:"serviceName"`
	ServiceDomain   string          `gorm:"not null"                    json:"serviceDomain"`
	Scope           string          `gorm:"not null"                    json:"scope"` // comma separated
	AllowedUserType AllowedUserType `gorm:"not null;default:'all'"      json:"allowedUserType"`
	RedirectURIs    StringArray     `gorm:"type:json"                   json:"redirectUris"`
	CreatedAt       time.Time       `json:"createdAt"`
	UpdatedAt       time.Time       `json:"updatedAt"`
}

// Scopes returns the declared scope as a list.
func (c *Client) Scopes() []string {
	return ParseScopes(c.Scope)
}

// HasRedirectURI reports whether uri is registered verbatim.
func (c *Client) HasRedirectURI(uri string) bool {
	return uri != "" && slices.Contains(c.RedirectURIs, uri)
}

func (Client) TableName() string {
	return "oauth_clients"
}

// StringArray is a []string stored as a JSON column.
type StringArray []string

// Scan implements sql.Scanner interface
func (s *StringArray) Scan(value any) error {
	switch v := value.(type) {
	case nil:
		*s = []string{}
		return nil
	case []byte:
		return json.Unmarshal(v, s)
	case string:
		return json.Unmarshal([]byte(v), s)
	default:
		return errors.New("failed to unmarshal JSON value")
	}
}

// Value implements driver.Valuer interface
func (s StringArray) Value() (driver.Value, error) {
	if len(s) == 0 {
		return "[]", nil
	}
	b, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}
