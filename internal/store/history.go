package store

import (
	"context"

	"github.com/go-authgate/consentgate/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PermissionHistoryFilters narrows a history listing.
type PermissionHistoryFilters struct {
	ClientID string
	Status   models.PermissionStatus
}

// CreatePermissionHistory appends one event.
func (s *Store) CreatePermissionHistory(ctx context.Context, event *models.PermissionHistory) error {
	return s.db.WithContext(ctx).Create(event).Error
}

// ListPermissionHistory returns a page of the user's history, newest first.
func (s *Store) ListPermissionHistory(
	ctx context.Context,
	userID uint,
	params PaginationParams,
	filters PermissionHistoryFilters,
) ([]models.PermissionHistory, PaginationResult, error) {
	query := s.db.WithContext(ctx).Model(&models.PermissionHistory{}).Where("user_id = ?", userID)
	if filters.ClientID != "" {
		query = query.Where("client_id = ?", filters.ClientID)
	}
	if filters.Status != "" {
		query = query.Where("status = ?", filters.Status)
	}
	query = query.Session(&gorm.Session{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, PaginationResult{}, err
	}

	var events []models.PermissionHistory
	offset := (params.Page - 1) * params.PageSize
	if err := query.
		Order(clause.OrderByColumn{Column: clause.Column{Name: "timestamp"}, Desc: true}).
		Order("id DESC").
		Offset(offset).
		Limit(params.PageSize).
		Find(&events).Error; err != nil {
		return nil, PaginationResult{}, err
	}

	return events, CalculatePagination(total, params.Page, params.PageSize), nil
}
