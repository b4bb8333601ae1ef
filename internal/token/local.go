package token

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// LocalTokenProvider signs and verifies HS256 JWTs with a shared secret.
type LocalTokenProvider struct {
	secret []byte
	issuer string
	now    func() time.Time
}

// NewLocalTokenProvider creates a new local token provider
func NewLocalTokenProvider(secret, issuer string) *LocalTokenProvider {
	return &LocalTokenProvider{
		secret: []byte(secret),
		issuer: issuer,
		now:    time.Now,
	}
}

// GenerateAccessToken signs an access token valid for ttl.
func (p *LocalTokenProvider) GenerateAccessToken(sub Subject, ttl time.Duration) (*Result, error) {
	return p.generateJWT(sub, typeAccess, ttl)
}

// GenerateRefreshToken signs a refresh token valid for ttl.
func (p *LocalTokenProvider) GenerateRefreshToken(sub Subject, ttl time.Duration) (*Result, error) {
	return p.generateJWT(sub, typeRefresh, ttl)
}

// ValidateAccessToken verifies signature, expiry and that the token is an
// access token.
func (p *LocalTokenProvider) ValidateAccessToken(tokenString string) (*Claims, error) {
	return p.validate(tokenString, typeAccess)
}

// ValidateRefreshToken verifies signature, expiry and that the token is a
// refresh token.
func (p *LocalTokenProvider) ValidateRefreshToken(tokenString string) (*Claims, error) {
	return p.validate(tokenString, typeRefresh)
}

func (p *LocalTokenProvider) generateJWT(sub Subject, tokenType string, ttl time.Duration) (*Result, error) {
	now := p.now()
	expiresAt := now.Add(ttl)
	claims := Claims{
		UserID:   sub.UserID,
		ClientID: sub.ClientID,
		Scope:    sub.Scopes,
		Type:     tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    p.issuer,
			Subject:   strconv.FormatUint(uint64(sub.UserID), 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			ID:        uuid.New().String(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(p.secret)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTokenGeneration, err)
	}

	return &Result{
		TokenString: tokenString,
		TokenType:   TokenTypeBearer,
		ExpiresAt:   expiresAt,
		TTL:         ttl,
	}, nil
}

func (p *LocalTokenProvider) validate(tokenString, wantType string) (*Claims, error) {
	var claims Claims
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return p.secret, nil
	}, jwt.WithTimeFunc(p.now), jwt.WithExpirationRequired())
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.Type != wantType {
		return nil, fmt.Errorf("%w: expected %s token, got %q", ErrInvalidToken, wantType, claims.Type)
	}
	return &claims, nil
}
