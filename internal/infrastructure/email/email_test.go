package email

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"

	"github.com/tymenu/tymenu/internal/infrastructure/config"
	"github.com/tymenu/tymenu/internal/ports/outbound"
)

type mockTransport struct {
	mock.Mock
}

func (m *mockTransport) Deliver(ctx context.Context, from string, to []string, msg []byte) error {
	args := m.Called(ctx, from, to, msg)
	return args.Error(0)
}

type EmailServiceTestSuite struct {
	suite.Suite
	transport *mockTransport
	service   *Service
	sent      []byte
}

func (s *EmailServiceTestSuite) SetupTest() {
	s.transport = new(mockTransport)
	s.sent = nil
	service, err := NewService(s.transport, "[TyMenu]", "TyMenu Admin <tymenu@example.com>", "https://tymenu.example/", zap.NewNop())
	s.Require().NoError(err)
	service.now = func() time.Time { return time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC) }
	s.service = service
}

func (s *EmailServiceTestSuite) capture() {
	s.transport.On("Deliver", mock.Anything, "tymenu@example.com", []string{"john@example.com"}, mock.Anything).
		Run(func(args mock.Arguments) { s.sent = args.Get(3).([]byte) }).
		Return(nil).Once()
}

func (s *EmailServiceTestSuite) TestPasswordReset() {
	// Arrange
	s.capture()

	// Act
	err := s.service.SendPasswordReset(context.Background(), "john@example.com", "john", "https://tymenu.example/auth/reset/tok")

	// Assert
	s.Require().NoError(err)
	s.transport.AssertExpectations(s.T())
	msg := string(s.sent)
	s.Contains(msg, "Subject: [TyMenu] Reset Your TyMenu Password\r\n")
	s.Contains(msg, "Content-Type: multipart/alternative;")
	s.Contains(msg, "Dear john,")
	s.Contains(msg, `<a href="https://tymenu.example/auth/reset/tok">click here</a>`)
	s.Contains(msg, "Date: Tue, 02 Jan 2024 03:04:05 +0000")
}

func (s *EmailServiceTestSuite) TestWelcomeLinksToLogin() {
	s.capture()

	s.Require().NoError(s.service.SendWelcome(context.Background(), "john@example.com", "john"))
	s.Contains(string(s.sent), "https://tymenu.example/auth/login")
}

func (s *EmailServiceTestSuite) TestHTMLIsEscaped() {
	s.capture()

	s.Require().NoError(s.service.SendWelcome(context.Background(), "john@example.com", "<script>"))
	s.Contains(string(s.sent), "&lt;script&gt;")
}

func (s *EmailServiceTestSuite) TestTransportErrorsPropagate() {
	s.transport.On("Deliver", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(errors.New("relay down"))

	err := s.service.Send(context.Background(), outbound.EmailMessage{To: "john@example.com", Subject: "x", TextBody: "y"})
	s.EqualError(err, "relay down")
}

func (s *EmailServiceTestSuite) TestInvalidRecipient() {
	err := s.service.Send(context.Background(), outbound.EmailMessage{To: "not an address", Subject: "x"})
	s.Error(err)
	s.transport.AssertNotCalled(s.T(), "Deliver", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestEmailServiceTestSuite(t *testing.T) {
	suite.Run(t, new(EmailServiceTestSuite))
}

func TestNewFallsBackToLogging(t *testing.T) {
	cfg := &config.Config{App: config.AppConfig{MailSender: "a@example.com"}}
	service, err := New(cfg, zap.NewNop())
	require.NoError(t, err)
	require.IsType(t, LogTransport{}, service.transport)
	require.NoError(t, service.Send(context.Background(), outbound.EmailMessage{To: "b@example.com", Subject: "hi", TextBody: strings.Repeat("x", 3)}))
}
