package auth

import "errors"

var (
	ErrInvalidCredentials = errors.New("invalid nickname or password")

	// ErrUserNotFound is returned when no user matches the lookup
	ErrUserNotFound = errors.New("user not found")
)
