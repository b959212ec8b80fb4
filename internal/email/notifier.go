package email

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/strenly/coachpulse/internal/domain"
	"github.com/strenly/coachpulse/internal/metrics"
)

// Notifier composes the application's transactional messages and sends them
// through the configured sender. All sends are best-effort: a delivery
// failure is logged and counted, never returned.
type Notifier struct {
	sender domain.EmailSender
}

var _ domain.Notifier = (*Notifier)(nil)

func NewNotifier(sender domain.EmailSender) *Notifier {
	return &Notifier{sender: sender}
}

func (n *Notifier) SendWelcome(ctx context.Context, user *domain.User) {
	body := fmt.Sprintf(
		"Hi %s,\n\nWelcome to CoachPulse! Your coach will add you to a cohort shortly.\nLog your first daily check-in to get started.\n",
		user.DisplayName)
	n.send(ctx, "welcome", user.Email, "Welcome to CoachPulse", body)
}

func (n *Notifier) SendWaitlistPromotion(ctx context.Context, user *domain.User, session *domain.Session) {
	body := fmt.Sprintf(
		"Hi %s,\n\nA spot opened up and you are now registered for %q on %s.\nSee you there!\n",
		user.DisplayName, session.Title, session.StartsAt.Format("Mon, 02 Jan 2006 15:04 MST"))
	n.send(ctx, "waitlist_promotion", user.Email, "You're in: "+session.Title, body)
}

func (n *Notifier) SendPaymentFailed(ctx context.Context, user *domain.User, amountCents int64, currency string) {
	body := fmt.Sprintf(
		"Hi %s,\n\nYour payment of %.2f %s could not be processed and your membership is now past due.\nPlease update your payment method to keep your session allowance.\n",
		user.DisplayName, float64(amountCents)/100, currency)
	n.send(ctx, "payment_failed", user.Email, "Payment failed", body)
}

func (n *Notifier) SendMembershipExpiring(ctx context.Context, user *domain.User, expiresAt time.Time) {
	body := fmt.Sprintf(
		"Hi %s,\n\nYour membership expires on %s. Renew before then to keep booking sessions.\n",
		user.DisplayName, expiresAt.Format("Mon, 02 Jan 2006"))
	n.send(ctx, "membership_expiring", user.Email, "Your membership expires soon", body)
}

func (n *Notifier) send(ctx context.Context, kind, to, subject, body string) {
	if err := n.sender.Send(ctx, to, subject, body); err != nil {
		metrics.EmailsSentTotal.WithLabelValues(kind, "error").Inc()
		slog.Error("failed to send email", "kind", kind, "to", to, "error", err)
		return
	}
	metrics.EmailsSentTotal.WithLabelValues(kind, "ok").Inc()
}
