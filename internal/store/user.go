package store

import (
	"context"

	"github.com/go-authgate/consentgate/internal/models"
)

func (s *Store) GetUserByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&user).Error; err != nil {
		return nil, notFound(err)
	}
	return &user, nil
}

func (s *Store) GetUserByNickname(ctx context.Context, nickname string) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).Where("nickname = ?", nickname).First(&user).Error; err != nil {
		return nil, notFound(err)
	}
	return &user, nil
}

// CreateUser inserts a user. Registration itself lives in the account
// subsystem; this is used for seeding and tests.
func (s *Store) CreateUser(ctx context.Context, user *models.User) error {
	if err := s.db.WithContext(ctx).Create(user).Error; err != nil {
		if isUniqueViolation(err) {
			return ErrNicknameConflict
		}
		return err
	}
	return nil
}
