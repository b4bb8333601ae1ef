package token

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-key-for-jwt-signing"

func newTestProvider() *LocalTokenProvider {
	return NewLocalTokenProvider(testSecret, "http://localhost:8080")
}

func TestLocalTokenProvider_AccessRoundTrip(t *testing.T) {
	p := newTestProvider()
	sub := Subject{UserID: 42, ClientID: "c1", Scopes: "email,nickname"}

	res, err := p.GenerateAccessToken(sub, 15*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, TokenTypeBearer, res.TokenType)
	assert.Equal(t, 15*time.Minute, res.TTL)
	assert.WithinDuration(t, time.Now().Add(15*time.Minute), res.ExpiresAt, 5*time.Second)

	claims, err := p.ValidateAccessToken(res.TokenString)
	require.NoError(t, err)
	assert.Equal(t, uint(42), claims.UserID)
	assert.Equal(t, "c1", claims.ClientID)
	assert.Equal(t, "email,nickname", claims.Scope)
	assert.Equal(t, "42", claims.Subject)
	assert.NotEmpty(t, claims.ID)
}

func TestLocalTokenProvider_TypesAreNotInterchangeable(t *testing.T) {
	p := newTestProvider()
	sub := Subject{UserID: 1}

	access, err := p.GenerateAccessToken(sub, time.Minute)
	require.NoError(t, err)
	refresh, err := p.GenerateRefreshToken(sub, time.Hour)
	require.NoError(t, err)

	_, err = p.ValidateRefreshToken(access.TokenString)
	assert.ErrorIs(t, err, ErrInvalidToken)
	_, err = p.ValidateAccessToken(refresh.TokenString)
	assert.ErrorIs(t, err, ErrInvalidToken)

	claims, err := p.ValidateRefreshToken(refresh.TokenString)
	require.NoError(t, err)
	assert.Empty(t, claims.ClientID)
}

func TestLocalTokenProvider_Expired(t *testing.T) {
	p := newTestProvider()
	res, err := p.GenerateAccessToken(Subject{UserID: 1}, time.Minute)
	require.NoError(t, err)

	p.now = func() time.Time { return time.Now().Add(2 * time.Minute) }
	_, err = p.ValidateAccessToken(res.TokenString)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestLocalTokenProvider_RejectsForeignTokens(t *testing.T) {
	p := newTestProvider()
	other := NewLocalTokenProvider("another-secret", "x")

	res, err := other.GenerateAccessToken(Subject{UserID: 1}, time.Minute)
	require.NoError(t, err)
	_, err = p.ValidateAccessToken(res.TokenString)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = p.ValidateAccessToken("not-a-jwt")
	assert.ErrorIs(t, err, ErrInvalidToken)

	// alg=none must never verify
	unsigned := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{
		UserID: 1,
		Type:   typeAccess,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
		},
	})
	s, err := unsigned.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = p.ValidateAccessToken(s)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestLocalTokenProvider_UniqueTokens(t *testing.T) {
	p := newTestProvider()
	sub := Subject{UserID: 1, ClientID: "c1", Scopes: "email"}

	a, err := p.GenerateAccessToken(sub, time.Minute)
	require.NoError(t, err)
	b, err := p.GenerateAccessToken(sub, time.Minute)
	require.NoError(t, err)
	assert.NotEqual(t, a.TokenString, b.TokenString)
}
