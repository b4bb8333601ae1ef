package services

import (
	"errors"
	"fmt"
)

// Error kinds surfaced to callers. Wrap with fmt.Errorf("%w: ...") to add
// detail and inspect with errors.Is.
var (
	ErrInvalidRequest     = errors.New("invalid request")
	ErrInvalidClient      = errors.New("invalid client")
	ErrInvalidRedirectURI = errors.New("invalid redirect uri")
	ErrInvalidGrant       = errors.New("invalid grant")
	ErrInvalidScope       = errors.New("invalid scope")
	ErrForbidden          = errors.New("forbidden")
	ErrAccessDenied       = errors.New("access denied")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrTokenExpired       = errors.New("token expired")
	ErrNotFound           = errors.New("not found")
)

// errClientAuthFailed is returned for bad credentials and for tokens the
// client does not own alike.
var errClientAuthFailed = fmt.Errorf("%w: client authentication failed", ErrInvalidClient)

func invalidScope(offending []string) error {
	return fmt.Errorf("%w: %v", ErrInvalidScope, offending)
}
