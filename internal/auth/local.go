package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-authgate/consentgate/internal/models"
	"github.com/go-authgate/consentgate/internal/store"

	"golang.org/x/crypto/bcrypt"
)

// userStore is the part of store.Store the provider reads.
type userStore interface {
	GetUserByID(ctx context.Context, id uint) (*models.User, error)
	GetUserByNickname(ctx context.Context, nickname string) (*models.User, error)
}

// LocalIdentityProvider resolves and authenticates users stored in the local
// database.
type LocalIdentityProvider struct {
	store userStore
}

// NewLocalIdentityProvider creates a new local identity provider
func NewLocalIdentityProvider(s userStore) *LocalIdentityProvider {
	return &LocalIdentityProvider{store: s}
}

func (p *LocalIdentityProvider) FindUserByID(ctx context.Context, id uint) (*models.User, error) {
	user, err := p.store.GetUserByID(ctx, id)
	if err != nil {
		return nil, mapLookupErr(err)
	}
	return user, nil
}

func (p *LocalIdentityProvider) FindUserByNickname(
	ctx context.Context,
	nickname string,
) (*models.User, error) {
	user, err := p.store.GetUserByNickname(ctx, nickname)
	if err != nil {
		return nil, mapLookupErr(err)
	}
	return user, nil
}

// Authenticate verifies credentials against the bcrypt hash in the database.
// Unknown nicknames and wrong passwords fail identically.
func (p *LocalIdentityProvider) Authenticate(
	ctx context.Context,
	nickname, password string,
) (*models.User, error) {
	user, err := p.store.GetUserByNickname(ctx, nickname)
	if err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			// Equalize timing with the wrong-password path.
			_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword(
		[]byte(user.PasswordHash),
		[]byte(password),
	); err != nil {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

// Name returns provider name for logging
func (p *LocalIdentityProvider) Name() string {
	return "local"
}

// HashPassword returns the bcrypt hash stored in users.password_hash.
func HashPassword(password string) (string, error) {
	if password == "" {
		return "", errors.New("password must not be empty")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("consentgate-dummy"), bcrypt.MinCost)

func mapLookupErr(err error) error {
	if errors.Is(err, store.ErrRecordNotFound) {
		return ErrUserNotFound
	}
	return err
}
