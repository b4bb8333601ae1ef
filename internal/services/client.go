package services

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/go-authgate/consentgate/internal/cache"
	"github.com/go-authgate/consentgate/internal/models"
	"github.com/go-authgate/consentgate/internal/store"

	"github.com/google/uuid"
)

const clientCacheKeyPrefix = "client:"

type clientStore interface {
	GetClientByID(ctx context.Context, id uint) (*models.Client, error)
	GetClient(ctx context.Context, clientID string) (*models.Client, error)
	GetClientsByClientIDs(ctx context.Context, clientIDs []string) (map[string]*models.Client, error)
	CreateClient(ctx context.Context, client *models.Client) error
	DeleteClient(ctx context.Context, clientID string) error
}

// ClientRegistry looks up and authenticates registered client applications.
type ClientRegistry struct {
	store    clientStore
	cache    cache.Cache[models.Client] // nil disables caching
	cacheTTL time.Duration
}

func NewClientRegistry(
	s clientStore,
	c cache.Cache[models.Client],
	cacheTTL time.Duration,
) *ClientRegistry {
	return &ClientRegistry{store: s, cache: c, cacheTTL: cacheTTL}
}

type CreateClientRequest struct {
	ServiceName     string
	ServiceDomain   string
	Scope           string
	RedirectURIs    []string
	AllowedUserType models.AllowedUserType
}

func (r *ClientRegistry) LookupByID(ctx context.Context, id uint) (*models.Client, error) {
	client, err := r.store.GetClientByID(ctx, id)
	if err != nil {
		return nil, mapStoreErr(err, "client")
	}
	return client, nil
}

// LookupByClientID resolves a client by its public id, reading through the
// client cache when one is configured.
func (r *ClientRegistry) LookupByClientID(ctx context.Context, clientID string) (*models.Client, error) {
	if clientID == "" {
		return nil, fmt.Errorf("%w: client", ErrNotFound)
	}

	if r.cache == nil {
		client, err := r.store.GetClient(ctx, clientID)
		if err != nil {
			return nil, mapStoreErr(err, "client")
		}
		return client, nil
	}

	client, err := r.cache.GetWithFetch(
		ctx,
		clientCacheKeyPrefix+clientID,
		r.cacheTTL,
		func(ctx context.Context, _ string) (models.Client, error) {
			c, err := r.store.GetClient(ctx, clientID)
			if err != nil {
				return models.Client{}, err
			}
			return *c, nil
		},
	)
	if err != nil {
		return nil, mapStoreErr(err, "client")
	}
	return &client, nil
}

// LookupMany returns the clients that still exist, keyed by client id.
func (r *ClientRegistry) LookupMany(
	ctx context.Context,
	clientIDs []string,
) (map[string]*models.Client, error) {
	return r.store.GetClientsByClientIDs(ctx, clientIDs)
}

// Authenticate checks a client id and secret pair. Unknown clients and wrong
// secrets fail with the same error.
func (r *ClientRegistry) Authenticate(
	ctx context.Context,
	clientID, clientSecret string,
) (*models.Client, error) {
	if clientID == "" || clientSecret == "" {
		return nil, errClientAuthFailed
	}

	client, err := r.LookupByClientID(ctx, clientID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, errClientAuthFailed
		}
		return nil, err
	}

	// TODO: store a hash of the secret once existing clients can be migrated.
	if subtle.ConstantTimeCompare([]byte(client.ClientSecret), []byte(clientSecret)) != 1 {
		return nil, errClientAuthFailed
	}
	return client, nil
}

// IsRedirectURIAllowed reports whether uri is registered for the client.
// Lookup failures count as not allowed.
func (r *ClientRegistry) IsRedirectURIAllowed(ctx context.Context, clientID, uri string) bool {
	client, err := r.LookupByClientID(ctx, clientID)
	if err != nil {
		return false
	}
	return client.HasRedirectURI(uri)
}

// CreateClient registers a new client and returns it with its generated
// credentials.
func (r *ClientRegistry) CreateClient(
	ctx context.Context,
	req CreateClientRequest,
) (*models.Client, error) {
	name := strings.TrimSpace(req.ServiceName)
	domain := strings.TrimSpace(req.ServiceDomain)
	if name == "" || domain == "" {
		return nil, fmt.Errorf("%w: service name and domain are required", ErrInvalidRequest)
	}

	scopes := models.ParseScopes(req.Scope)
	if len(scopes) == 0 {
		return nil, fmt.Errorf("%w: at least one scope is required", ErrInvalidRequest)
	}
	var unknown []string
	for _, s := range scopes {
		if !IsKnownScope(s) {
			unknown = append(unknown, s)
		}
	}
	if len(unknown) > 0 {
		return nil, fmt.Errorf("%w: unknown scopes %v", ErrInvalidRequest, unknown)
	}

	allowed := req.AllowedUserType
	if allowed == "" {
		allowed = models.AllowAll
	}
	if !allowed.Valid() {
		return nil, fmt.Errorf("%w: unknown allowedUserType %q", ErrInvalidRequest, allowed)
	}

	redirectURIs := make(models.StringArray, 0, len(req.RedirectURIs))
	for _, raw := range req.RedirectURIs {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		u, err := url.Parse(raw)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return nil, fmt.Errorf("%w: redirect uri %q must be absolute", ErrInvalidRequest, raw)
		}
		redirectURIs = append(redirectURIs, raw)
	}
	if len(redirectURIs) == 0 {
		return nil, fmt.Errorf("%w: at least one redirect uri is required", ErrInvalidRequest)
	}

	client := &models.Client{
		ClientID:        uuid.New().String(),
		ClientSecret:    uuid.New().String() + "-" + uuid.New().String(),
		ServiceName:     name,
		ServiceDomain:   domain,
		Scope:           models.JoinScopes(scopes),
		AllowedUserType: allowed,
		RedirectURIs:    redirectURIs,
	}
	if err := r.store.CreateClient(ctx, client); err != nil {
		return nil, err
	}
	return client, nil
}

// DeleteClient removes a client and evicts it from the cache. Consents that
// referenced it stay in the ledger.
func (r *ClientRegistry) DeleteClient(ctx context.Context, clientID string) error {
	if err := r.store.DeleteClient(ctx, clientID); err != nil {
		return mapStoreErr(err, "client")
	}
	if r.cache != nil {
		_ = r.cache.Delete(ctx, clientCacheKeyPrefix+clientID)
	}
	return nil
}

// mapStoreErr turns store not-found errors into ErrNotFound and leaves every
// other error untouched.
func mapStoreErr(err error, what string) error {
	if errors.Is(err, store.ErrRecordNotFound) {
		return fmt.Errorf("%w: %s", ErrNotFound, what)
	}
	return err
}
