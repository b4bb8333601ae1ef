package store

import (
	"context"

	"github.com/go-authgate/consentgate/internal/models"
)

func (s *Store) GetClientByID(ctx context.Context, id uint) (*models.Client, error) {
	var client models.Client
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&client).Error; err != nil {
		return nil, notFound(err)
	}
	return &client, nil
}

func (s *Store) GetClient(ctx context.Context, clientID string) (*models.Client, error) {
	var client models.Client
	if err := s.db.WithContext(ctx).
		Where("client_id = ?", clientID).
		First(&client).Error; err != nil {
		return nil, notFound(err)
	}
	return &client, nil
}

// GetClientsByClientIDs returns the clients that still exist, keyed by
// client_id.
func (s *Store) GetClientsByClientIDs(
	ctx context.Context,
	clientIDs []string,
) (map[string]*models.Client, error) {
	result := make(map[string]*models.Client, len(clientIDs))
	if len(clientIDs) == 0 {
		return result, nil
	}

	var clients []models.Client
	if err := s.db.WithContext(ctx).
		Where("client_id IN ?", clientIDs).
		Find(&clients).Error; err != nil {
		return nil, err
	}
	for i := range clients {
		result[clients[i].ClientID] = &clients[i]
	}
	return result, nil
}

func (s *Store) CreateClient(ctx context.Context, client *models.Client) error {
	return s.db.WithContext(ctx).Create(client).Error
}

func (s *Store) DeleteClient(ctx context.Context, clientID string) error {
	res := s.db.WithContext(ctx).Where("client_id = ?", clientID).Delete(&models.Client{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrRecordNotFound
	}
	return nil
}
