// Package testutils provides mock implementations for testing
package testutils

import (
	"context"
	"io"
	"sync"

	"github.com/stretchr/testify/mock"

	"github.com/tymenu/tymenu/internal/domain/recipe"
	"github.com/tymenu/tymenu/internal/domain/shared"
	"github.com/tymenu/tymenu/internal/ports/outbound"
)

// MockEmailService provides a mock implementation of outbound.EmailService
type MockEmailService struct {
	mock.Mock
}

func (m *MockEmailService) SendWelcome(ctx context.Context, to, username string) error {
	return m.Called(ctx, to, username).Error(0)
}

func (m *MockEmailService) SendPasswordReset(ctx context.Context, to, username, resetURL string) error {
	return m.Called(ctx, to, username, resetURL).Error(0)
}

func (m *MockEmailService) Send(ctx context.Context, msg outbound.EmailMessage) error {
	return m.Called(ctx, msg).Error(0)
}

// MockImageHost provides a mock implementation of outbound.ImageHost. The
// uploaded bytes are drained so callers see a fully read body.
type MockImageHost struct {
	mock.Mock
}

func (m *MockImageHost) Upload(ctx context.Context, filename string, image io.Reader) (recipe.ImageURLs, error) {
	_, _ = io.Copy(io.Discard, image)
	args := m.Called(ctx, filename)
	return args.Get(0).(recipe.ImageURLs), args.Error(1)
}

func (m *MockImageHost) Delete(ctx context.Context, image recipe.ImageURLs) error {
	return m.Called(ctx, image).Error(0)
}

// RecordingPublisher keeps the names of published events.
type RecordingPublisher struct {
	mu     sync.Mutex
	events []string
}

func (p *RecordingPublisher) Publish(_ context.Context, events ...shared.DomainEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, e := range events {
		p.events = append(p.events, e.EventName())
	}
}

// Names returns the published event names in order.
func (p *RecordingPublisher) Names() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.events...)
}
