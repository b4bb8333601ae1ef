package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-authgate/consentgate/internal/ephemeral"
	"github.com/go-authgate/consentgate/internal/logger"
	"github.com/go-authgate/consentgate/internal/metrics"
	"github.com/go-authgate/consentgate/internal/models"
	"github.com/go-authgate/consentgate/internal/store"
)

type consentStore interface {
	GetActiveConsent(ctx context.Context, userID uint, clientID string) (*models.Consent, error)
	HasRevokedConsent(ctx context.Context, userID uint, clientID string) (bool, error)
	UpsertConsent(ctx context.Context, userID uint, clientID, scope string) error
	RevokeConsent(
		ctx context.Context,
		userID uint,
		clientID string,
		event *models.PermissionHistory,
	) (*models.Consent, error)
	ListActiveConsents(ctx context.Context, userID uint) ([]models.Consent, error)
	CreatePermissionHistory(ctx context.Context, event *models.PermissionHistory) error
	ListPermissionHistory(
		ctx context.Context,
		userID uint,
		params store.PaginationParams,
		filters store.PermissionHistoryFilters,
	) ([]models.PermissionHistory, store.PaginationResult, error)
}

// ConsentLedger records which clients each user has approved, and the audit
// trail of those decisions.
type ConsentLedger struct {
	store     consentStore
	clients   *ClientRegistry
	ephemeral ephemeral.Store
	metrics   metrics.Recorder
}

func NewConsentLedger(
	s consentStore,
	clients *ClientRegistry,
	es ephemeral.Store,
	m metrics.Recorder,
) *ConsentLedger {
	return &ConsentLedger{store: s, clients: clients, ephemeral: es, metrics: m}
}

func (l *ConsentLedger) HasActiveConsent(ctx context.Context, userID uint, clientID string) (bool, error) {
	_, err := l.ActiveConsent(ctx, userID, clientID)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, ErrNotFound):
		return false, nil
	default:
		return false, err
	}
}

// ActiveConsent returns the unrevoked consent for the pair or ErrNotFound.
func (l *ConsentLedger) ActiveConsent(
	ctx context.Context,
	userID uint,
	clientID string,
) (*models.Consent, error) {
	consent, err := l.store.GetActiveConsent(ctx, userID, clientID)
	if err != nil {
		return nil, mapStoreErr(err, "consent")
	}
	return consent, nil
}

// HasRevokedConsent reports whether the pair's consent exists and is revoked.
func (l *ConsentLedger) HasRevokedConsent(ctx context.Context, userID uint, clientID string) (bool, error) {
	return l.store.HasRevokedConsent(ctx, userID, clientID)
}

// UpsertConsent grants scope to the client, reactivating a revoked consent,
// and appends an active history event.
func (l *ConsentLedger) UpsertConsent(
	ctx context.Context,
	userID uint,
	client *models.Client,
	scope string,
) error {
	if err := l.store.UpsertConsent(ctx, userID, client.ClientID, scope); err != nil {
		return err
	}
	l.metrics.RecordConsentGranted()

	return l.RecordHistory(ctx, &models.PermissionHistory{
		UserID:            userID,
		ClientID:          client.ClientID,
		ApplicationName:   client.ServiceName,
		ApplicationDomain: client.ServiceDomain,
		PermissionScopes:  scope,
		Status:            models.PermissionActive,
	})
}

// Revoke marks the active consent revoked without writing history.
func (l *ConsentLedger) Revoke(ctx context.Context, userID uint, clientID string) (*models.Consent, error) {
	consent, err := l.store.RevokeConsent(ctx, userID, clientID, nil)
	if err != nil {
		return nil, mapRevokeErr(err)
	}
	return consent, nil
}

// RecordHistory appends one event, stamping it now when Timestamp is zero.
func (l *ConsentLedger) RecordHistory(ctx context.Context, event *models.PermissionHistory) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = nowFunc()
	}
	return l.store.CreatePermissionHistory(ctx, event)
}

// RevokeApplication disconnects a client from the principal's account. The
// consent revocation and its history event commit together; the client's
// outstanding token records are purged afterwards.
func (l *ConsentLedger) RevokeApplication(
	ctx context.Context,
	principal *models.Principal,
	clientID string,
) error {
	if principal == nil || principal.User == nil {
		return ErrUnauthorized
	}
	userID := principal.User.ID

	event := &models.PermissionHistory{
		ApplicationName: clientID,
		Status:          models.PermissionRevoked,
	}
	client, err := l.clients.LookupByClientID(ctx, clientID)
	switch {
	case err == nil:
		event.ApplicationName = client.ServiceName
		event.ApplicationDomain = client.ServiceDomain
	case errors.Is(err, ErrNotFound):
		// Deleted clients can still be disconnected.
	default:
		return err
	}

	if _, err := l.store.RevokeConsent(ctx, userID, clientID, event); err != nil {
		return mapRevokeErr(err)
	}
	l.metrics.RecordConsentRevoked()

	purged, err := purgeTokenRecords(ctx, l.ephemeral, func(rec models.TokenRecord) bool {
		return rec.UserID == userID && rec.ClientID == clientID
	})
	log := logger.From(ctx)
	if err != nil {
		// Tokens left behind still fail validation on the revoked consent.
		log.Warn("failed to purge token records",
			logger.Op("ConsentLedger.RevokeApplication"),
			logger.UserID(userID), logger.ClientID(clientID), logger.Err(err))
		return nil
	}
	for _, rec := range purged {
		l.metrics.RecordTokenRevoked(rec.Type, "consent_revoked")
	}
	log.Info("application disconnected",
		logger.UserID(userID), logger.ClientID(clientID))
	return nil
}

// ListActiveForUser returns the user's connected applications, most recently
// granted first. Consents whose client no longer exists are skipped.
func (l *ConsentLedger) ListActiveForUser(
	ctx context.Context,
	userID uint,
) ([]models.ConnectedApplication, error) {
	consents, err := l.store.ListActiveConsents(ctx, userID)
	if err != nil {
		return nil, err
	}

	ids := make([]string, len(consents))
	for i, c := range consents {
		ids[i] = c.ClientID
	}
	clients, err := l.clients.LookupMany(ctx, ids)
	if err != nil {
		return nil, err
	}

	apps := make([]models.ConnectedApplication, 0, len(consents))
	for _, c := range consents {
		client, ok := clients[c.ClientID]
		if !ok {
			continue
		}
		apps = append(apps, models.ConnectedApplication{
			ClientID:      c.ClientID,
			ServiceName:   client.ServiceName,
			ServiceDomain: client.ServiceDomain,
			Scopes:        models.ParseScopes(c.Scope),
			GrantedAt:     c.GrantedAt,
		})
	}
	return apps, nil
}

// ListHistory returns a page of the user's permission history, newest first.
func (l *ConsentLedger) ListHistory(
	ctx context.Context,
	userID uint,
	params store.PaginationParams,
	filters store.PermissionHistoryFilters,
) ([]models.PermissionHistory, store.PaginationResult, error) {
	return l.store.ListPermissionHistory(ctx, userID, params, filters)
}

func mapRevokeErr(err error) error {
	if errors.Is(err, store.ErrNoActiveConsent) {
		return fmt.Errorf("%w: no active consent for this application", ErrNotFound)
	}
	return err
}

// purgeTokenRecords deletes every access and refresh record selected by
// match and returns the deleted records.
func purgeTokenRecords(
	ctx context.Context,
	es ephemeral.Store,
	match func(models.TokenRecord) bool,
) ([]models.TokenRecord, error) {
	var (
		doomed  []string
		matched []models.TokenRecord
	)
	for _, pattern := range ephemeral.TokenKeyPatterns {
		keys, err := es.Scan(ctx, pattern)
		if err != nil {
			return nil, err
		}
		for _, key := range keys {
			rec, err := ephemeral.GetJSON[models.TokenRecord](ctx, es, key)
			if err != nil {
				// Expired between Scan and Get.
				if errors.Is(err, ephemeral.ErrNotFound) {
					continue
				}
				return nil, err
			}
			if match(rec) {
				doomed = append(doomed, key)
				matched = append(matched, rec)
			}
		}
	}
	if len(doomed) == 0 {
		return nil, nil
	}
	if err := es.Delete(ctx, doomed...); err != nil {
		return nil, err
	}
	return matched, nil
}
