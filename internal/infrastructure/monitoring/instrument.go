package monitoring

import (
	"context"
	"io"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/tymenu/tymenu/internal/domain/recipe"
	"github.com/tymenu/tymenu/internal/ports/outbound"
)

// InstrumentedImageHost counts and traces calls to an image host.
type InstrumentedImageHost struct {
	next    outbound.ImageHost
	metrics *Metrics
}

func NewInstrumentedImageHost(next outbound.ImageHost, metrics *Metrics) *InstrumentedImageHost {
	return &InstrumentedImageHost{next: next, metrics: metrics}
}

func (h *InstrumentedImageHost) Upload(ctx context.Context, filename string, image io.Reader) (recipe.ImageURLs, error) {
	ctx, span := Tracer("imagehost").Start(ctx, "imagehost.upload")
	defer span.End()
	span.SetAttributes(attribute.String("image.filename", filename))

	urls, err := h.next.Upload(ctx, filename, image)
	h.metrics.ImageHostOperation("upload", err)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return urls, err
}

func (h *InstrumentedImageHost) Delete(ctx context.Context, image recipe.ImageURLs) error {
	ctx, span := Tracer("imagehost").Start(ctx, "imagehost.delete")
	defer span.End()

	err := h.next.Delete(ctx, image)
	h.metrics.ImageHostOperation("delete", err)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

// InstrumentedEmailService counts delivery attempts.
type InstrumentedEmailService struct {
	next    outbound.EmailService
	metrics *Metrics
}

func NewInstrumentedEmailService(next outbound.EmailService, metrics *Metrics) *InstrumentedEmailService {
	return &InstrumentedEmailService{next: next, metrics: metrics}
}

func (s *InstrumentedEmailService) SendWelcome(ctx context.Context, to, username string) error {
	err := s.next.SendWelcome(ctx, to, username)
	s.metrics.EmailSent(err)
	return err
}

func (s *InstrumentedEmailService) SendPasswordReset(ctx context.Context, to, username, resetURL string) error {
	err := s.next.SendPasswordReset(ctx, to, username, resetURL)
	s.metrics.EmailSent(err)
	return err
}

func (s *InstrumentedEmailService) Send(ctx context.Context, msg outbound.EmailMessage) error {
	err := s.next.Send(ctx, msg)
	s.metrics.EmailSent(err)
	return err
}
