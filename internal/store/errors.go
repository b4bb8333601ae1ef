package store

import "errors"

var (
	// ErrRecordNotFound wraps GORM's not found error for consistency
	ErrRecordNotFound = errors.New("record not found")

	// ErrNoActiveConsent is returned by RevokeConsent when the pair has no
	// active consent row (never granted, or already revoked).
	ErrNoActiveConsent = errors.New("no active consent")

	// ErrNicknameConflict is returned when a nickname or email already exists
	ErrNicknameConflict = errors.New("nickname or email already exists")
)
