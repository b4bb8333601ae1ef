package store

import (
	"context"
	"time"

	"github.com/go-authgate/consentgate/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GetActiveConsent returns the unrevoked consent for the pair.
func (s *Store) GetActiveConsent(
	ctx context.Context,
	userID uint,
	clientID string,
) (*models.Consent, error) {
	var consent models.Consent
	if err := s.db.WithContext(ctx).
		Where("user_id = ? AND client_id = ? AND revoked_at IS NULL", userID, clientID).
		First(&consent).Error; err != nil {
		return nil, notFound(err)
	}
	return &consent, nil
}

// HasRevokedConsent reports whether the pair's consent row exists and is
// revoked.
func (s *Store) HasRevokedConsent(ctx context.Context, userID uint, clientID string) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.Consent{}).
		Where("user_id = ? AND client_id = ? AND revoked_at IS NOT NULL", userID, clientID).
		Count(&count).Error
	return count > 0, err
}

// UpsertConsent grants scope to the pair in a single statement. An existing
// row, active or revoked, gets the new scope and is reactivated; grantedAt is
// only set on insert.
func (s *Store) UpsertConsent(
	ctx context.Context,
	userID uint,
	clientID, scope string,
) error {
	now := time.Now()
	consent := models.Consent{
		UserID:    userID,
		ClientID:  clientID,
		Scope:     scope,
		GrantedAt: now,
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}, {Name: "client_id"}},
		DoUpdates: clause.Assignments(map[string]any{
			"scope":      scope,
			"revoked_at": nil,
			"updated_at": now,
		}),
	}).Create(&consent).Error
}

// RevokeConsent marks the active consent revoked and, when event is not nil,
// appends it to the permission history in the same transaction. The event's
// Timestamp and empty PermissionScopes are filled from the revoked row.
func (s *Store) RevokeConsent(
	ctx context.Context,
	userID uint,
	clientID string,
	event *models.PermissionHistory,
) (*models.Consent, error) {
	var revoked models.Consent
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := time.Now()
		res := tx.Model(&models.Consent{}).
			Where("user_id = ? AND client_id = ? AND revoked_at IS NULL", userID, clientID).
			Updates(map[string]any{"revoked_at": now, "updated_at": now})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNoActiveConsent
		}

		if err := tx.Where("user_id = ? AND client_id = ?", userID, clientID).
			First(&revoked).Error; err != nil {
			return err
		}

		if event == nil {
			return nil
		}
		event.UserID = userID
		event.ClientID = clientID
		event.Timestamp = now
		if event.PermissionScopes == "" {
			event.PermissionScopes = revoked.Scope
		}
		return tx.Create(event).Error
	})
	if err != nil {
		return nil, err
	}
	return &revoked, nil
}

// ListActiveConsents returns the user's active consents, newest grant first.
func (s *Store) ListActiveConsents(ctx context.Context, userID uint) ([]models.Consent, error) {
	var consents []models.Consent
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND revoked_at IS NULL", userID).
		Order("granted_at DESC").
		Order("id DESC").
		Find(&consents).Error
	return consents, err
}
