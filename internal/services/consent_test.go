package services

import (
	"context"
	"testing"

	"github.com/go-authgate/consentgate/internal/ephemeral"
	"github.com/go-authgate/consentgate/internal/models"
	"github.com/go-authgate/consentgate/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRevokeApplication(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	client := env.createClient(t, "email,nickname", models.AllowAll)
	keep := env.createClient(t, "email", models.AllowAll)
	user := env.createUser(t, "u1", models.RoleStudent)

	revoked := env.exchange(t, client, env.grantAndIssue(t, user, client, "email,nickname", "a"), "a", "")
	kept := env.exchange(t, keep, env.grantAndIssue(t, user, keep, "email", "b"), "b", "")

	require.NoError(t, env.consents.RevokeApplication(ctx, principalFor(user), client.ClientID))

	// Exactly one revocation event, carrying the client's metadata
	events, page, err := env.consents.ListHistory(ctx, user.ID,
		store.NewPaginationParams(1, 10),
		store.PermissionHistoryFilters{Status: models.PermissionRevoked})
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, int64(1), page.Total)
	assert.Equal(t, client.ClientID, events[0].ClientID)
	assert.Equal(t, "Test App", events[0].ApplicationName)
	assert.Equal(t, "email,nickname", events[0].PermissionScopes)

	// The disconnected client's tokens are gone, the other client's are not
	_, err = env.tokens.ValidateAccessToken(ctx, revoked.AccessToken)
	assert.ErrorIs(t, err, ErrTokenExpired)
	_, err = env.es.Get(ctx, ephemeral.RefreshTokenKey(revoked.RefreshToken))
	assert.ErrorIs(t, err, ephemeral.ErrNotFound)

	_, err = env.tokens.ValidateAccessToken(ctx, kept.AccessToken)
	assert.NoError(t, err)

	// Second revoke has nothing to revoke
	err = env.consents.RevokeApplication(ctx, principalFor(user), client.ClientID)
	assert.ErrorIs(t, err, ErrNotFound)

	events, _, err = env.consents.ListHistory(ctx, user.ID,
		store.NewPaginationParams(1, 10),
		store.PermissionHistoryFilters{Status: models.PermissionRevoked})
	require.NoError(t, err)
	assert.Len(t, events, 1)
}

func TestRevokeApplication_RequiresPrincipal(t *testing.T) {
	env := newTestEnv(t, nil)
	err := env.consents.RevokeApplication(context.Background(), nil, "any")
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestRevokeThenRegrant(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	client := env.createClient(t, "email", models.AllowAll)
	user := env.createUser(t, "u1", models.RoleStudent)

	env.grantAndIssue(t, user, client, "email", "a")
	require.NoError(t, env.consents.RevokeApplication(ctx, principalFor(user), client.ClientID))

	revoked, err := env.consents.HasRevokedConsent(ctx, user.ID, client.ClientID)
	require.NoError(t, err)
	assert.True(t, revoked)

	resp := env.exchange(t, client, env.grantAndIssue(t, user, client, "email", "b"), "b", "")
	_, err = env.tokens.ValidateAccessToken(ctx, resp.AccessToken)
	assert.NoError(t, err, "a new grant reactivates the consent")

	active, err := env.consents.HasActiveConsent(ctx, user.ID, client.ClientID)
	require.NoError(t, err)
	assert.True(t, active)
}

func TestListActiveForUser(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	first := env.createClient(t, "email", models.AllowAll)
	second := env.createClient(t, "email,nickname", models.AllowAll)
	gone := env.createClient(t, "email", models.AllowAll)
	user := env.createUser(t, "u1", models.RoleStudent)

	env.grantAndIssue(t, user, first, "email", "a")
	env.grantAndIssue(t, user, second, "email,nickname", "b")
	env.grantAndIssue(t, user, gone, "email", "c")
	require.NoError(t, env.clients.DeleteClient(ctx, gone.ClientID))

	apps, err := env.consents.ListActiveForUser(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, apps, 2)

	ids := []string{apps[0].ClientID, apps[1].ClientID}
	assert.ElementsMatch(t, []string{first.ClientID, second.ClientID}, ids)
	for _, app := range apps {
		if app.ClientID == second.ClientID {
			assert.Equal(t, []string{"email", "nickname"}, app.Scopes)
		}
	}
}

func TestUpsertConsentRecordsHistory(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	client := env.createClient(t, "email", models.AllowAll)
	user := env.createUser(t, "u1", models.RoleStudent)

	env.grantAndIssue(t, user, client, "email", "a")

	events, _, err := env.consents.ListHistory(ctx, user.ID,
		store.NewPaginationParams(1, 10), store.PermissionHistoryFilters{})
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, models.PermissionActive, events[0].Status)
	assert.False(t, events[0].Timestamp.IsZero())
}
