// Package email implements transactional mail delivery: a SendGrid sender
// for production, a console sender for development, and the Notifier that
// composes the application's messages on top of either.
package email

import (
	"context"
	"fmt"
	"net/http"

	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/strenly/coachpulse/internal/domain"
)

// SendgridSender delivers mail through the SendGrid v3 API.
type SendgridSender struct {
	client   *sendgrid.Client
	from     *sgmail.Email
	fromName string
}

var _ domain.EmailSender = (*SendgridSender)(nil)

func NewSendgridSender(apiKey, fromAddress string) *SendgridSender {
	return &SendgridSender{
		client: sendgrid.NewSendClient(apiKey),
		from:   sgmail.NewEmail("CoachPulse", fromAddress),
	}
}

func (s *SendgridSender) Send(ctx context.Context, to, subject, body string) error {
	msg := sgmail.NewSingleEmail(s.from, subject, sgmail.NewEmail("", to), body, "")

	resp, err := s.client.SendWithContext(ctx, msg)
	if err != nil {
		return fmt.Errorf("sendgrid send failed: %w", err)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("sendgrid returned status %d: %s", resp.StatusCode, resp.Body)
	}
	return nil
}
