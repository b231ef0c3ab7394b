package security

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"github.com/tymenu/tymenu/internal/ports/outbound"
)

type TokenServiceTestSuite struct {
	suite.Suite
	service *TokenService
	clock   time.Time
}

func (s *TokenServiceTestSuite) SetupTest() {
	s.clock = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	s.service = NewTokenService("test-secret", 10*time.Second)
	s.service.now = func() time.Time { return s.clock }
}

func (s *TokenServiceTestSuite) TestRoundTrip() {
	// Arrange
	id := uuid.New()

	// Act
	token, err := s.service.Generate(outbound.TokenReset, id, time.Hour)
	s.Require().NoError(err)
	got, err := s.service.Parse(outbound.TokenReset, token)

	// Assert
	s.Require().NoError(err)
	s.Equal(id, got)
}

func (s *TokenServiceTestSuite) TestExpiry() {
	token, err := s.service.Generate(outbound.TokenReset, uuid.New(), 0)
	s.Require().NoError(err)

	// Within the leeway the token is still accepted.
	s.clock = s.clock.Add(DefaultTokenTTL + 5*time.Second)
	_, err = s.service.Parse(outbound.TokenReset, token)
	s.NoError(err)

	s.clock = s.clock.Add(10 * time.Second)
	_, err = s.service.Parse(outbound.TokenReset, token)
	s.ErrorIs(err, ErrInvalidToken)
}

func (s *TokenServiceTestSuite) TestPurposeMismatch() {
	token, err := s.service.Generate(outbound.TokenConfirm, uuid.New(), time.Hour)
	s.Require().NoError(err)

	_, err = s.service.Parse(outbound.TokenReset, token)
	s.ErrorIs(err, ErrInvalidToken)
}

func (s *TokenServiceTestSuite) TestRejectsForeignSignatures() {
	token, err := s.service.Generate(TokenSession, uuid.New(), time.Hour)
	s.Require().NoError(err)

	other := NewTokenService("another-secret", 0)
	other.now = s.service.now
	_, err = other.Parse(TokenSession, token)
	s.ErrorIs(err, ErrInvalidToken)

	_, err = s.service.Parse(TokenSession, token+"x")
	s.ErrorIs(err, ErrInvalidToken)

	_, err = s.service.Parse(TokenSession, "not a token")
	s.ErrorIs(err, ErrInvalidToken)
}

func (s *TokenServiceTestSuite) TestRejectsTokensWithoutExpiry() {
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"reset": uuid.New().String(),
	}).SignedString([]byte("test-secret"))
	s.Require().NoError(err)

	_, err = s.service.Parse(outbound.TokenReset, token)
	s.ErrorIs(err, ErrInvalidToken)
}

func (s *TokenServiceTestSuite) TestRejectsNonUUIDClaims() {
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"reset": "42",
		"exp":   jwt.NewNumericDate(s.clock.Add(time.Hour)),
	}).SignedString([]byte("test-secret"))
	s.Require().NoError(err)

	_, err = s.service.Parse(outbound.TokenReset, token)
	s.ErrorIs(err, ErrInvalidToken)
}

func TestTokenServiceTestSuite(t *testing.T) {
	suite.Run(t, new(TokenServiceTestSuite))
}
