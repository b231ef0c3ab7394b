// Package security provides signed tokens for password resets, account
// confirmation and session cookies, plus request rate limiting.
package security

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/tymenu/tymenu/internal/ports/outbound"
)

// TokenSession marks tokens stored in the session cookie.
const TokenSession outbound.TokenPurpose = "session"

// DefaultTokenTTL is used when Generate is called with a non-positive ttl.
const DefaultTokenTTL = time.Hour

// ErrInvalidToken covers bad signatures, expiry and purpose mismatches.
var ErrInvalidToken = errors.New("invalid token")

// TokenService signs HS256 JWTs whose single custom claim, named after the
// token purpose, carries a user or session id.
type TokenService struct {
	secret []byte
	leeway time.Duration
	now    func() time.Time
}

// NewTokenService creates a token service; leeway tolerates clock skew on
// expiry checks.
func NewTokenService(secret string, leeway time.Duration) *TokenService {
	return &TokenService{
		secret: []byte(secret),
		leeway: leeway,
		now:    time.Now,
	}
}

var _ outbound.TokenService = (*TokenService)(nil)

// Generate signs a token for purpose expiring after ttl.
func (s *TokenService) Generate(purpose outbound.TokenPurpose, id uuid.UUID, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	now := s.now()
	claims := jwt.MapClaims{
		string(purpose): id.String(),
		"iat":           jwt.NewNumericDate(now),
		"exp":           jwt.NewNumericDate(now.Add(ttl)),
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return token, nil
}

// Parse validates token and returns the id stored under purpose.
func (s *TokenService) Parse(purpose outbound.TokenPurpose, token string) (uuid.UUID, error) {
	parsed, err := jwt.Parse(token, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithLeeway(s.leeway),
		jwt.WithTimeFunc(s.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok || !parsed.Valid {
		return uuid.Nil, ErrInvalidToken
	}
	raw, ok := claims[string(purpose)].(string)
	if !ok {
		return uuid.Nil, fmt.Errorf("%w: missing %s claim", ErrInvalidToken, purpose)
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	return id, nil
}
