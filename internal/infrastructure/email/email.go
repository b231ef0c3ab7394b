// Package email renders and delivers transactional email over SMTP.
package email

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	htmltemplate "html/template"
	"mime"
	"mime/multipart"
	"net/mail"
	"net/textproto"
	"strings"
	texttemplate "text/template"
	"time"

	"go.uber.org/zap"

	"github.com/tymenu/tymenu/internal/infrastructure/config"
	"github.com/tymenu/tymenu/internal/ports/outbound"
)

//go:embed templates/*
var templateFS embed.FS

// Transport delivers a raw RFC 5322 message.
type Transport interface {
	Deliver(ctx context.Context, from string, to []string, msg []byte) error
}

// Service implements outbound.EmailService.
type Service struct {
	transport     Transport
	subjectPrefix string
	sender        string
	baseURL       string
	logger        *zap.Logger
	text          *texttemplate.Template
	html          *htmltemplate.Template
	now           func() time.Time
}

// New picks SMTP delivery when a host is configured, logging otherwise.
func New(cfg *config.Config, logger *zap.Logger) (*Service, error) {
	logger = logger.Named("email")
	var transport Transport
	if cfg.Email.SMTPHost == "" {
		logger.Warn("SMTP not configured, emails will be logged")
		transport = LogTransport{logger: logger}
	} else {
		transport = NewSMTPTransport(cfg.Email)
	}
	return NewService(transport, cfg.App.MailSubjectPrefix, cfg.App.MailSender, cfg.App.BaseURL, logger)
}

// NewService parses the embedded templates.
func NewService(transport Transport, subjectPrefix, sender, baseURL string, logger *zap.Logger) (*Service, error) {
	text, err := texttemplate.ParseFS(templateFS, "templates/*.txt")
	if err != nil {
		return nil, fmt.Errorf("failed to parse text templates: %w", err)
	}
	html, err := htmltemplate.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse html templates: %w", err)
	}
	return &Service{
		transport:     transport,
		subjectPrefix: subjectPrefix,
		sender:        sender,
		baseURL:       strings.TrimRight(baseURL, "/"),
		logger:        logger,
		text:          text,
		html:          html,
		now:           time.Now,
	}, nil
}

var _ outbound.EmailService = (*Service)(nil)

type templateData struct {
	Username string
	URL      string
}

func (s *Service) SendWelcome(ctx context.Context, to, username string) error {
	return s.sendTemplate(ctx, to, "Welcome to TyMenu", "welcome", templateData{
		Username: username,
		URL:      s.baseURL + "/auth/login",
	})
}

func (s *Service) SendPasswordReset(ctx context.Context, to, username, resetURL string) error {
	return s.sendTemplate(ctx, to, "Reset Your TyMenu Password", "reset_password", templateData{
		Username: username,
		URL:      resetURL,
	})
}

func (s *Service) sendTemplate(ctx context.Context, to, subject, name string, data templateData) error {
	var text, html bytes.Buffer
	if err := s.text.ExecuteTemplate(&text, name+".txt", data); err != nil {
		return fmt.Errorf("failed to render %s.txt: %w", name, err)
	}
	if err := s.html.ExecuteTemplate(&html, name+".html", data); err != nil {
		return fmt.Errorf("failed to render %s.html: %w", name, err)
	}
	return s.Send(ctx, outbound.EmailMessage{
		To:       to,
		Subject:  subject,
		TextBody: text.String(),
		HTMLBody: html.String(),
	})
}

// Send prefixes the subject and delivers msg as multipart/alternative.
func (s *Service) Send(ctx context.Context, msg outbound.EmailMessage) error {
	from, err := mail.ParseAddress(s.sender)
	if err != nil {
		return fmt.Errorf("invalid sender %q: %w", s.sender, err)
	}
	to, err := mail.ParseAddress(msg.To)
	if err != nil {
		return fmt.Errorf("invalid recipient %q: %w", msg.To, err)
	}

	subject := strings.TrimSpace(s.subjectPrefix + " " + msg.Subject)
	raw, err := buildMessage(from, to, subject, msg.TextBody, msg.HTMLBody, s.now())
	if err != nil {
		return err
	}

	if err := s.transport.Deliver(ctx, from.Address, []string{to.Address}, raw); err != nil {
		s.logger.Error("Failed to send email", zap.String("to", to.Address), zap.String("subject", subject), zap.Error(err))
		return err
	}
	s.logger.Info("Email sent", zap.String("to", to.Address), zap.String("subject", subject))
	return nil
}

func buildMessage(from, to *mail.Address, subject, text, html string, date time.Time) ([]byte, error) {
	var buf bytes.Buffer
	body := multipart.NewWriter(&buf)

	header := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\nDate: %s\r\nMIME-Version: 1.0\r\nContent-Type: multipart/alternative; boundary=%q\r\n\r\n",
		from.String(), to.String(), mime.QEncoding.Encode("utf-8", subject), date.Format(time.RFC1123Z), body.Boundary())

	for _, part := range []struct{ contentType, content string }{
		{"text/plain; charset=utf-8", text},
		{"text/html; charset=utf-8", html},
	} {
		if part.content == "" {
			continue
		}
		w, err := body.CreatePart(textproto.MIMEHeader{
			"Content-Type":              {part.contentType},
			"Content-Transfer-Encoding": {"8bit"},
		})
		if err != nil {
			return nil, err
		}
		if _, err := w.Write([]byte(part.content)); err != nil {
			return nil, err
		}
	}
	if err := body.Close(); err != nil {
		return nil, err
	}
	return append([]byte(header), buf.Bytes()...), nil
}
