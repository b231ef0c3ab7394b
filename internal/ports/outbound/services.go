package outbound

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/google/uuid"

	"github.com/tymenu/tymenu/internal/domain/recipe"
	"github.com/tymenu/tymenu/internal/domain/shared"
)

// ErrCacheMiss is returned by CacheRepository.Get for absent keys.
var ErrCacheMiss = errors.New("cache miss")

// ImageHost stores recipe images with a third party.
type ImageHost interface {
	Upload(ctx context.Context, filename string, image io.Reader) (recipe.ImageURLs, error)
	Delete(ctx context.Context, image recipe.ImageURLs) error
}

// EmailMessage is one rendered email.
type EmailMessage struct {
	To       string
	Subject  string
	TextBody string
	HTMLBody string
}

// EmailService defines the interface for sending emails
type EmailService interface {
	SendWelcome(ctx context.Context, to, username string) error
	SendPasswordReset(ctx context.Context, to, username, resetURL string) error
	Send(ctx context.Context, msg EmailMessage) error
}

// TokenPurpose names the claim a signed token carries.
type TokenPurpose string

const (
	TokenReset   TokenPurpose = "reset"
	TokenConfirm TokenPurpose = "confirm"
)

// TokenService signs and verifies short lived user tokens.
type TokenService interface {
	Generate(purpose TokenPurpose, userID uuid.UUID, ttl time.Duration) (string, error)
	Parse(purpose TokenPurpose, token string) (uuid.UUID, error)
}

// EventPublisher receives domain events once the change that raised them
// has been committed.
type EventPublisher interface {
	Publish(ctx context.Context, events ...shared.DomainEvent)
}

// NopPublisher discards events.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, ...shared.DomainEvent) {}
