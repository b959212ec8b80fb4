package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/strenly/coachpulse/internal/domain"
)

const invoiceColumns = `i.id, i.provider_invoice_id, i.user_id, i.membership_id, i.amount_cents, i.currency, i.status, i.issued_at, i.created_at, i.updated_at`

// InvoiceRepo implements domain.InvoiceRepository backed by PostgreSQL.
type InvoiceRepo struct {
	pool *pgxpool.Pool
}

func NewInvoiceRepo(pool *pgxpool.Pool) *InvoiceRepo {
	return &InvoiceRepo{pool: pool}
}

func (r *InvoiceRepo) scanInvoice(row pgx.Row) (*domain.Invoice, error) {
	var inv domain.Invoice
	err := row.Scan(
		&inv.ID, &inv.ProviderInvoiceID, &inv.UserID, &inv.MembershipID,
		&inv.AmountCents, &inv.Currency, &inv.Status, &inv.IssuedAt,
		&inv.CreatedAt, &inv.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrInvoiceNotFound
	}
	if err != nil {
		return nil, err
	}
	return &inv, nil
}

// UpsertByProviderID keys on the provider invoice ID so webhook retries and
// out-of-order deliveries converge on one row. A retry without a membership
// link keeps the one already recorded.
func (r *InvoiceRepo) UpsertByProviderID(ctx context.Context, invoice *domain.Invoice) (*domain.Invoice, error) {
	stored, err := r.scanInvoice(r.pool.QueryRow(ctx, `
		INSERT INTO invoices AS i (provider_invoice_id, user_id, membership_id, amount_cents, currency, status, issued_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW())
		ON CONFLICT (provider_invoice_id) DO UPDATE SET
			membership_id = COALESCE(EXCLUDED.membership_id, i.membership_id),
			amount_cents = EXCLUDED.amount_cents,
			currency = EXCLUDED.currency,
			status = EXCLUDED.status,
			issued_at = EXCLUDED.issued_at,
			updated_at = NOW()
		RETURNING `+invoiceColumns,
		invoice.ProviderInvoiceID, invoice.UserID, invoice.MembershipID,
		invoice.AmountCents, invoice.Currency, invoice.Status, invoice.IssuedAt))
	if err != nil {
		return nil, fmt.Errorf("failed to upsert invoice: %w", err)
	}
	return stored, nil
}

func (r *InvoiceRepo) GetByProviderID(ctx context.Context, providerInvoiceID string) (*domain.Invoice, error) {
	return r.scanInvoice(r.pool.QueryRow(ctx,
		`SELECT `+invoiceColumns+` FROM invoices i WHERE i.provider_invoice_id = $1`,
		providerInvoiceID))
}

func (r *InvoiceRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]domain.Invoice, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+invoiceColumns+` FROM invoices i
		WHERE i.user_id = $1
		ORDER BY i.issued_at DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var invoices []domain.Invoice
	for rows.Next() {
		var inv domain.Invoice
		err := rows.Scan(
			&inv.ID, &inv.ProviderInvoiceID, &inv.UserID, &inv.MembershipID,
			&inv.AmountCents, &inv.Currency, &inv.Status, &inv.IssuedAt,
			&inv.CreatedAt, &inv.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		invoices = append(invoices, inv)
	}
	return invoices, rows.Err()
}
