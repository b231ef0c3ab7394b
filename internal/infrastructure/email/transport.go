package email

import (
	"context"
	"fmt"
	"net"
	"net/smtp"
	"strconv"

	"go.uber.org/zap"

	"github.com/tymenu/tymenu/internal/infrastructure/config"
)

// SMTPTransport sends through an SMTP relay with PLAIN auth when a
// username is configured.
type SMTPTransport struct {
	addr string
	auth smtp.Auth
}

func NewSMTPTransport(cfg config.EmailConfig) *SMTPTransport {
	t := &SMTPTransport{addr: net.JoinHostPort(cfg.SMTPHost, strconv.Itoa(cfg.SMTPPort))}
	if cfg.SMTPUsername != "" {
		t.auth = smtp.PlainAuth("", cfg.SMTPUsername, cfg.SMTPPassword, cfg.SMTPHost)
	}
	return t
}

// Deliver gives up when ctx is done; the SMTP exchange itself is not
// interruptible and finishes in the background.
func (t *SMTPTransport) Deliver(ctx context.Context, from string, to []string, msg []byte) error {
	done := make(chan error, 1)
	go func() {
		done <- smtp.SendMail(t.addr, t.auth, from, to, msg)
	}()
	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("smtp send to %s failed: %w", t.addr, err)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// LogTransport writes messages to the log instead of sending them.
type LogTransport struct {
	logger *zap.Logger
}

func (t LogTransport) Deliver(_ context.Context, from string, to []string, msg []byte) error {
	t.logger.Info("Email not sent, SMTP disabled",
		zap.String("from", from),
		zap.Strings("to", to),
		zap.ByteString("message", msg),
	)
	return nil
}
