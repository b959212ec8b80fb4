package domain

import (
	"context"
	"time"
)

// EmailSender delivers one transactional message. Callers treat delivery as
// best-effort: failures are logged, never propagated to the triggering
// request.
type EmailSender interface {
	Send(ctx context.Context, to, subject, body string) error
}

// Notifier composes and sends the application's transactional messages.
// Every method is best-effort: it logs failures and never returns an error,
// so callers cannot accidentally fail a request on a mail outage.
type Notifier interface {
	SendWelcome(ctx context.Context, user *User)
	SendWaitlistPromotion(ctx context.Context, user *User, session *Session)
	SendPaymentFailed(ctx context.Context, user *User, amountCents int64, currency string)
	SendMembershipExpiring(ctx context.Context, user *User, expiresAt time.Time)
}
