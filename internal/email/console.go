package email

import (
	"context"
	"log/slog"

	"github.com/strenly/coachpulse/internal/domain"
)

// ConsoleSender writes messages to the log instead of delivering them.
// Used in development and tests when no SendGrid key is configured.
type ConsoleSender struct{}

var _ domain.EmailSender = ConsoleSender{}

func (ConsoleSender) Send(_ context.Context, to, subject, body string) error {
	slog.Info("email (console)", "to", to, "subject", subject, "body", body)
	return nil
}
