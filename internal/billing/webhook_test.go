package billing

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/strenly/coachpulse/internal/domain"
)

const testWebhookSecret = "webhook-secret-1234"

func sign(secret, eventID, timestamp string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%s.%s.", eventID, timestamp)
	mac.Write(body)
	return signaturePrefix + hex.EncodeToString(mac.Sum(nil))
}

type fakeDeduper struct {
	seen map[string]bool
	err  error
}

func (d *fakeDeduper) FirstDelivery(_ context.Context, eventID string) (bool, error) {
	if d.err != nil {
		return false, d.err
	}
	if d.seen == nil {
		d.seen = make(map[string]bool)
	}
	if d.seen[eventID] {
		return false, nil
	}
	d.seen[eventID] = true
	return true, nil
}

func (d *fakeDeduper) Forget(_ context.Context, eventID string) error {
	delete(d.seen, eventID)
	return nil
}

// billingServiceMock implements domain.BillingService with function fields;
// only the Apply* methods matter here.
type billingServiceMock struct {
	domain.BillingService
	applyInvoicePaid         func(ctx context.Context, providerInvoiceID, subscriptionID string, amountCents int64, currency string, issuedAt time.Time) error
	applyInvoiceFailed       func(ctx context.Context, providerInvoiceID, subscriptionID string, amountCents int64, currency string, issuedAt time.Time) error
	applySubscriptionCreated func(ctx context.Context, subscriptionID, customerEmail, providerPriceID string, startedAt time.Time) error
	applySubscriptionCancel  func(ctx context.Context, subscriptionID string, cancelledAt time.Time) error
}

func (m *billingServiceMock) ApplyInvoicePaid(ctx context.Context, id, sub string, amount int64, cur string, at time.Time) error {
	return m.applyInvoicePaid(ctx, id, sub, amount, cur, at)
}

func (m *billingServiceMock) ApplyInvoiceFailed(ctx context.Context, id, sub string, amount int64, cur string, at time.Time) error {
	return m.applyInvoiceFailed(ctx, id, sub, amount, cur, at)
}

func (m *billingServiceMock) ApplySubscriptionCreated(ctx context.Context, sub, email, price string, at time.Time) error {
	return m.applySubscriptionCreated(ctx, sub, email, price, at)
}

func (m *billingServiceMock) ApplySubscriptionCancelled(ctx context.Context, sub string, at time.Time) error {
	return m.applySubscriptionCancel(ctx, sub, at)
}

func deliver(t *testing.T, h *WebhookHandler, clock clockwork.Clock, eventID, body string, tamper func(r *http.Request)) *httptest.ResponseRecorder {
	t.Helper()

	timestamp := strconv.FormatInt(clock.Now().Unix(), 10)

	req := httptest.NewRequest(http.MethodPost, "/webhooks/billing", strings.NewReader(body))
	req.Header.Set(HeaderEventID, eventID)
	req.Header.Set(HeaderTimestamp, timestamp)
	req.Header.Set(HeaderSignature, sign(testWebhookSecret, eventID, timestamp, []byte(body)))
	if tamper != nil {
		tamper(req)
	}

	rec := httptest.NewRecorder()
	c := echo.New().NewContext(req, rec)
	require.NoError(t, h.Handle(c))
	return rec
}

func TestVerifySignature(t *testing.T) {
	now := time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)
	body := []byte(`{"id":"evt_1"}`)
	ts := strconv.FormatInt(now.Unix(), 10)

	t.Run("valid", func(t *testing.T) {
		sig := sign(testWebhookSecret, "evt_1", ts, body)
		assert.NoError(t, VerifySignature(testWebhookSecret, "evt_1", ts, sig, body, now))
	})

	t.Run("wrong secret", func(t *testing.T) {
		sig := sign("other-secret", "evt_1", ts, body)
		assert.ErrorIs(t, VerifySignature(testWebhookSecret, "evt_1", ts, sig, body, now), ErrInvalidSignature)
	})

	t.Run("tampered body", func(t *testing.T) {
		sig := sign(testWebhookSecret, "evt_1", ts, body)
		err := VerifySignature(testWebhookSecret, "evt_1", ts, sig, []byte(`{"id":"evt_2"}`), now)
		assert.ErrorIs(t, err, ErrInvalidSignature)
	})

	t.Run("stale timestamp", func(t *testing.T) {
		old := strconv.FormatInt(now.Add(-6*time.Minute).Unix(), 10)
		sig := sign(testWebhookSecret, "evt_1", old, body)
		assert.ErrorIs(t, VerifySignature(testWebhookSecret, "evt_1", old, sig, body, now), ErrTimestampSkew)
	})

	t.Run("future timestamp", func(t *testing.T) {
		future := strconv.FormatInt(now.Add(6*time.Minute).Unix(), 10)
		sig := sign(testWebhookSecret, "evt_1", future, body)
		assert.ErrorIs(t, VerifySignature(testWebhookSecret, "evt_1", future, sig, body, now), ErrTimestampSkew)
	})

	t.Run("garbage timestamp", func(t *testing.T) {
		assert.ErrorIs(t, VerifySignature(testWebhookSecret, "evt_1", "soon", "sha256=00", body, now), ErrInvalidSignature)
	})
}

func TestHandle_InvoicePaid(t *testing.T) {
	clock := clockwork.NewFakeClockAt(time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC))

	var gotInvoice, gotSub string
	var gotAmount int64
	svc := &billingServiceMock{
		applyInvoicePaid: func(_ context.Context, id, sub string, amount int64, currency string, _ time.Time) error {
			gotInvoice, gotSub, gotAmount = id, sub, amount
			assert.Equal(t, "EUR", currency)
			return nil
		},
	}
	h := NewWebhookHandler(testWebhookSecret, &fakeDeduper{}, svc, clock)

	body := `{"id":"evt_1","type":"invoice.paid","data":{"invoice_id":"in_9","subscription_id":"sub_3","amount_cents":4900,"currency":"EUR","issued_at":"2025-05-01T11:59:00Z"}}`
	rec := deliver(t, h, clock, "evt_1", body, nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "in_9", gotInvoice)
	assert.Equal(t, "sub_3", gotSub)
	assert.Equal(t, int64(4900), gotAmount)
}

func TestHandle_BadSignatureRejected(t *testing.T) {
	clock := clockwork.NewFakeClockAt(time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC))
	h := NewWebhookHandler(testWebhookSecret, &fakeDeduper{}, &billingServiceMock{}, clock)

	rec := deliver(t, h, clock, "evt_1", `{"id":"evt_1","type":"invoice.paid","data":{}}`, func(r *http.Request) {
		r.Header.Set(HeaderSignature, "sha256=deadbeef")
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestHandle_MissingHeadersRejected(t *testing.T) {
	clock := clockwork.NewFakeClockAt(time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC))
	h := NewWebhookHandler(testWebhookSecret, &fakeDeduper{}, &billingServiceMock{}, clock)

	rec := deliver(t, h, clock, "evt_1", `{}`, func(r *http.Request) {
		r.Header.Del(HeaderEventID)
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestHandle_DuplicateEventIsNoOp(t *testing.T) {
	clock := clockwork.NewFakeClockAt(time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC))

	calls := 0
	svc := &billingServiceMock{
		applySubscriptionCancel: func(context.Context, string, time.Time) error {
			calls++
			return nil
		},
	}
	h := NewWebhookHandler(testWebhookSecret, &fakeDeduper{}, svc, clock)

	body := `{"id":"evt_7","type":"subscription.cancelled","data":{"subscription_id":"sub_3","cancelled_at":"2025-05-01T11:00:00Z"}}`
	first := deliver(t, h, clock, "evt_7", body, nil)
	second := deliver(t, h, clock, "evt_7", body, nil)

	assert.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, http.StatusOK, second.Code)
	assert.Equal(t, 1, calls, "duplicate delivery must not reach the service")
}

func TestHandle_UnknownReferenceSwallowed(t *testing.T) {
	clock := clockwork.NewFakeClockAt(time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC))

	svc := &billingServiceMock{
		applySubscriptionCreated: func(context.Context, string, string, string, time.Time) error {
			return domain.ErrPlanNotFound
		},
	}
	h := NewWebhookHandler(testWebhookSecret, &fakeDeduper{}, svc, clock)

	body := `{"id":"evt_8","type":"subscription.created","data":{"subscription_id":"sub_9","customer_email":"x@example.com","price_id":"price_404","started_at":"2025-05-01T10:00:00Z"}}`
	rec := deliver(t, h, clock, "evt_8", body, nil)

	// 200 so the provider stops retrying an event that can never succeed.
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHandle_InternalErrorReturns500(t *testing.T) {
	clock := clockwork.NewFakeClockAt(time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC))

	svc := &billingServiceMock{
		applyInvoiceFailed: func(context.Context, string, string, int64, string, time.Time) error {
			return errors.New("db down")
		},
	}
	h := NewWebhookHandler(testWebhookSecret, &fakeDeduper{}, svc, clock)

	body := `{"id":"evt_9","type":"invoice.payment_failed","data":{"invoice_id":"in_1","subscription_id":"sub_1","amount_cents":100,"currency":"EUR","issued_at":"2025-05-01T10:00:00Z"}}`
	rec := deliver(t, h, clock, "evt_9", body, nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestHandle_RetryAfterInternalErrorIsProcessed(t *testing.T) {
	clock := clockwork.NewFakeClockAt(time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC))

	applied := 0
	failures := 1
	svc := &billingServiceMock{
		applyInvoicePaid: func(context.Context, string, string, int64, string, time.Time) error {
			if failures > 0 {
				failures--
				return errors.New("db down")
			}
			applied++
			return nil
		},
	}
	h := NewWebhookHandler(testWebhookSecret, &fakeDeduper{}, svc, clock)

	body := `{"id":"evt_12","type":"invoice.paid","data":{"invoice_id":"in_2","subscription_id":"sub_2","amount_cents":4900,"currency":"EUR","issued_at":"2025-05-01T11:00:00Z"}}`
	first := deliver(t, h, clock, "evt_12", body, nil)
	retry := deliver(t, h, clock, "evt_12", body, nil)

	assert.Equal(t, http.StatusInternalServerError, first.Code)
	assert.Equal(t, http.StatusOK, retry.Code)
	assert.Equal(t, 1, applied, "retry of a failed delivery must reach the service")
}

func TestHandle_DedupeStoreDownReturns503(t *testing.T) {
	clock := clockwork.NewFakeClockAt(time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC))
	h := NewWebhookHandler(testWebhookSecret, &fakeDeduper{err: errors.New("redis down")}, &billingServiceMock{}, clock)

	rec := deliver(t, h, clock, "evt_10", `{"id":"evt_10","type":"invoice.paid","data":{}}`, nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestHandle_UnhandledTypeAcknowledged(t *testing.T) {
	clock := clockwork.NewFakeClockAt(time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC))
	h := NewWebhookHandler(testWebhookSecret, &fakeDeduper{}, &billingServiceMock{}, clock)

	rec := deliver(t, h, clock, "evt_11", `{"id":"evt_11","type":"charge.refund_requested","data":{}}`, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}
