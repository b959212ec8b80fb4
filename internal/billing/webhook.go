// Package billing handles payment-provider webhook deliveries: signature
// verification, event deduplication, and dispatch into the billing service.
package billing

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/labstack/echo/v4"

	"github.com/strenly/coachpulse/internal/domain"
	"github.com/strenly/coachpulse/internal/metrics"
)

const (
	// Provider request headers.
	HeaderEventID   = "Billing-Event-Id"
	HeaderTimestamp = "Billing-Event-Timestamp"
	HeaderSignature = "Billing-Signature"

	// Deliveries older or newer than this are rejected as replays.
	timestampTolerance = 5 * time.Minute

	signaturePrefix = "sha256="

	maxBodyBytes = 64 * 1024
)

var (
	ErrInvalidSignature = errors.New("invalid webhook signature")
	ErrTimestampSkew    = errors.New("webhook timestamp outside tolerance window")
)

// Event kinds the provider delivers.
const (
	EventInvoicePaid          = "invoice.paid"
	EventInvoiceFailed        = "invoice.payment_failed"
	EventSubscriptionCreated  = "subscription.created"
	EventSubscriptionCanceled = "subscription.cancelled"
)

// Deduper remembers processed event IDs so provider retries become no-ops.
type Deduper interface {
	// FirstDelivery reports whether this event ID has not been seen before,
	// atomically marking it as seen.
	FirstDelivery(ctx context.Context, eventID string) (bool, error)
	// Forget releases an event ID so a later retry counts as a first delivery
	// again. Used when processing failed after the ID was marked seen.
	Forget(ctx context.Context, eventID string) error
}

// event is the provider's delivery envelope.
type event struct {
	ID   string          `json:"id"`
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

type invoiceData struct {
	InvoiceID      string    `json:"invoice_id"`
	SubscriptionID string    `json:"subscription_id"`
	AmountCents    int64     `json:"amount_cents"`
	Currency       string    `json:"currency"`
	IssuedAt       time.Time `json:"issued_at"`
}

type subscriptionData struct {
	SubscriptionID string    `json:"subscription_id"`
	CustomerEmail  string    `json:"customer_email"`
	PriceID        string    `json:"price_id"`
	StartedAt      time.Time `json:"started_at"`
	CancelledAt    time.Time `json:"cancelled_at"`
}

// VerifySignature checks the HMAC-SHA256 signature over
// "<event id>.<timestamp>.<raw body>" and bounds the timestamp skew.
// Comparison is constant-time.
func VerifySignature(secret, eventID, timestamp, signature string, body []byte, now time.Time) error {
	ts, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil {
		return fmt.Errorf("%w: bad timestamp", ErrInvalidSignature)
	}
	skew := now.Sub(time.Unix(ts, 0))
	if skew > timestampTolerance || skew < -timestampTolerance {
		return ErrTimestampSkew
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(eventID))
	mac.Write([]byte("."))
	mac.Write([]byte(timestamp))
	mac.Write([]byte("."))
	mac.Write(body)
	expected := signaturePrefix + hex.EncodeToString(mac.Sum(nil))

	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return ErrInvalidSignature
	}
	return nil
}

// WebhookHandler is the HTTP entry point for provider deliveries.
//
// Unknown user/plan/subscription references are acknowledged with 200 and
// logged: failing would only make the provider retry an event that can never
// succeed.
type WebhookHandler struct {
	secret  string
	deduper Deduper
	billing domain.BillingService
	clock   clockwork.Clock
}

func NewWebhookHandler(secret string, deduper Deduper, billing domain.BillingService, clock clockwork.Clock) *WebhookHandler {
	return &WebhookHandler{secret: secret, deduper: deduper, billing: billing, clock: clock}
}

// Handle processes one webhook delivery.
func (h *WebhookHandler) Handle(c echo.Context) error {
	start := h.clock.Now()
	defer func() {
		metrics.WebhookProcessingDuration.Observe(h.clock.Since(start).Seconds())
	}()

	body, err := io.ReadAll(io.LimitReader(c.Request().Body, maxBodyBytes))
	if err != nil {
		return c.NoContent(http.StatusBadRequest)
	}

	eventID := c.Request().Header.Get(HeaderEventID)
	timestamp := c.Request().Header.Get(HeaderTimestamp)
	signature := c.Request().Header.Get(HeaderSignature)
	if eventID == "" || timestamp == "" || signature == "" {
		metrics.WebhookEventsTotal.WithLabelValues("unknown", "rejected").Inc()
		return c.NoContent(http.StatusUnauthorized)
	}

	if err := VerifySignature(h.secret, eventID, timestamp, signature, body, h.clock.Now()); err != nil {
		slog.Warn("rejected billing webhook", "event_id", eventID, "error", err)
		metrics.WebhookEventsTotal.WithLabelValues("unknown", "rejected").Inc()
		return c.NoContent(http.StatusUnauthorized)
	}

	var evt event
	if err := json.Unmarshal(body, &evt); err != nil {
		metrics.WebhookEventsTotal.WithLabelValues("unknown", "malformed").Inc()
		return c.NoContent(http.StatusBadRequest)
	}

	ctx := c.Request().Context()

	first, err := h.deduper.FirstDelivery(ctx, eventID)
	if err != nil {
		// Dedupe store down: better to fail and let the provider retry than
		// to risk double-processing.
		slog.Error("webhook dedupe check failed", "event_id", eventID, "error", err)
		return c.NoContent(http.StatusServiceUnavailable)
	}
	if !first {
		slog.Info("duplicate billing webhook ignored", "event_id", eventID, "type", evt.Type)
		metrics.WebhookEventsTotal.WithLabelValues(evt.Type, "duplicate").Inc()
		return c.NoContent(http.StatusOK)
	}

	if err := h.dispatch(ctx, &evt); err != nil {
		if isUnknownReference(err) {
			slog.Warn("billing webhook references unknown entity", "event_id", eventID, "type", evt.Type, "error", err)
			metrics.WebhookEventsTotal.WithLabelValues(evt.Type, "unknown_reference").Inc()
			return c.NoContent(http.StatusOK)
		}
		slog.Error("failed to process billing webhook", "event_id", eventID, "type", evt.Type, "error", err)
		metrics.WebhookEventsTotal.WithLabelValues(evt.Type, "error").Inc()
		// The ID was marked seen before dispatch. Release it, otherwise the
		// provider's retry of this failed delivery would be dropped as a
		// duplicate and the event would never be applied.
		if forgetErr := h.deduper.Forget(ctx, eventID); forgetErr != nil {
			slog.Error("failed to release webhook dedupe key", "event_id", eventID, "error", forgetErr)
		}
		return c.NoContent(http.StatusInternalServerError)
	}

	metrics.WebhookEventsTotal.WithLabelValues(evt.Type, "ok").Inc()
	return c.NoContent(http.StatusOK)
}

func (h *WebhookHandler) dispatch(ctx context.Context, evt *event) error {
	switch evt.Type {
	case EventInvoicePaid:
		var data invoiceData
		if err := json.Unmarshal(evt.Data, &data); err != nil {
			return fmt.Errorf("malformed %s data: %w", evt.Type, err)
		}
		return h.billing.ApplyInvoicePaid(ctx, data.InvoiceID, data.SubscriptionID, data.AmountCents, data.Currency, data.IssuedAt)

	case EventInvoiceFailed:
		var data invoiceData
		if err := json.Unmarshal(evt.Data, &data); err != nil {
			return fmt.Errorf("malformed %s data: %w", evt.Type, err)
		}
		return h.billing.ApplyInvoiceFailed(ctx, data.InvoiceID, data.SubscriptionID, data.AmountCents, data.Currency, data.IssuedAt)

	case EventSubscriptionCreated:
		var data subscriptionData
		if err := json.Unmarshal(evt.Data, &data); err != nil {
			return fmt.Errorf("malformed %s data: %w", evt.Type, err)
		}
		return h.billing.ApplySubscriptionCreated(ctx, data.SubscriptionID, data.CustomerEmail, data.PriceID, data.StartedAt)

	case EventSubscriptionCanceled:
		var data subscriptionData
		if err := json.Unmarshal(evt.Data, &data); err != nil {
			return fmt.Errorf("malformed %s data: %w", evt.Type, err)
		}
		return h.billing.ApplySubscriptionCancelled(ctx, data.SubscriptionID, data.CancelledAt)

	default:
		// Unhandled event kinds are acknowledged so the provider stops
		// resending them.
		slog.Info("ignoring unhandled billing event type", "type", evt.Type)
		return nil
	}
}

func isUnknownReference(err error) bool {
	return errors.Is(err, domain.ErrUserNotFound) ||
		errors.Is(err, domain.ErrPlanNotFound) ||
		errors.Is(err, domain.ErrMembershipNotFound) ||
		errors.Is(err, domain.ErrInvoiceNotFound)
}
