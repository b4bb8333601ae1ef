package services

import (
	"context"

	"github.com/go-authgate/consentgate/internal/models"
)

// IdentityProvider resolves users owned by the account subsystem.
type IdentityProvider interface {
	FindUserByID(ctx context.Context, id uint) (*models.User, error)
	FindUserByNickname(ctx context.Context, nickname string) (*models.User, error)
	Authenticate(ctx context.Context, nickname, password string) (*models.User, error)
}
