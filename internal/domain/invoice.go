package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type InvoiceStatus string

const (
	InvoicePaid     InvoiceStatus = "paid"
	InvoiceOpen     InvoiceStatus = "open"
	InvoiceFailed   InvoiceStatus = "failed"
	InvoiceRefunded InvoiceStatus = "refunded"
)

// Invoice mirrors a payment-provider invoice. Rows are keyed by the provider
// invoice ID so webhook retries and out-of-order deliveries stay idempotent.
type Invoice struct {
	ID                uuid.UUID
	ProviderInvoiceID string
	UserID            uuid.UUID
	MembershipID      *uuid.UUID
	AmountCents       int64
	Currency          string
	Status            InvoiceStatus
	IssuedAt          time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

type InvoiceRepository interface {
	// UpsertByProviderID inserts or refreshes the row matching the provider
	// invoice ID, returning the stored state.
	UpsertByProviderID(ctx context.Context, invoice *Invoice) (*Invoice, error)
	GetByProviderID(ctx context.Context, providerInvoiceID string) (*Invoice, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]Invoice, error)
}
