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

const planColumns = `p.id, p.name, p.kind, p.price_cents, p.currency, p.sessions_per_week, p.session_count, p.duration_days, p.provider_price_id, p.active, p.created_at, p.updated_at`

// PlanRepo implements domain.PlanRepository backed by PostgreSQL.
type PlanRepo struct {
	pool *pgxpool.Pool
}

func NewPlanRepo(pool *pgxpool.Pool) *PlanRepo {
	return &PlanRepo{pool: pool}
}

func (r *PlanRepo) scanPlan(row pgx.Row) (*domain.Plan, error) {
	var p domain.Plan
	err := row.Scan(
		&p.ID, &p.Name, &p.Kind, &p.PriceCents, &p.Currency, &p.SessionsPerWeek,
		&p.SessionCount, &p.DurationDays, &p.ProviderPriceID, &p.Active,
		&p.CreatedAt, &p.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrPlanNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *PlanRepo) Create(ctx context.Context, plan *domain.Plan) error {
	err := r.pool.QueryRow(ctx, `
		INSERT INTO plans (name, kind, price_cents, currency, sessions_per_week, session_count, duration_days, provider_price_id, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW(), NOW())
		RETURNING id, created_at, updated_at
	`, plan.Name, plan.Kind, plan.PriceCents, plan.Currency, plan.SessionsPerWeek,
		plan.SessionCount, plan.DurationDays, plan.ProviderPriceID, plan.Active).
		Scan(&plan.ID, &plan.CreatedAt, &plan.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create plan: %w", err)
	}
	return nil
}

func (r *PlanRepo) GetByID(ctx context.Context, planID uuid.UUID) (*domain.Plan, error) {
	return r.scanPlan(r.pool.QueryRow(ctx,
		`SELECT `+planColumns+` FROM plans p WHERE p.id = $1`, planID))
}

func (r *PlanRepo) GetByProviderPriceID(ctx context.Context, providerPriceID string) (*domain.Plan, error) {
	if providerPriceID == "" {
		return nil, domain.ErrPlanNotFound
	}
	return r.scanPlan(r.pool.QueryRow(ctx,
		`SELECT `+planColumns+` FROM plans p WHERE p.provider_price_id = $1`, providerPriceID))
}

func (r *PlanRepo) List(ctx context.Context, activeOnly bool) ([]domain.Plan, error) {
	query := `SELECT ` + planColumns + ` FROM plans p`
	if activeOnly {
		query += ` WHERE p.active`
	}
	query += ` ORDER BY p.price_cents, p.name`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var plans []domain.Plan
	for rows.Next() {
		var p domain.Plan
		err := rows.Scan(
			&p.ID, &p.Name, &p.Kind, &p.PriceCents, &p.Currency, &p.SessionsPerWeek,
			&p.SessionCount, &p.DurationDays, &p.ProviderPriceID, &p.Active,
			&p.CreatedAt, &p.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		plans = append(plans, p)
	}
	return plans, rows.Err()
}

func (r *PlanRepo) Update(ctx context.Context, planID uuid.UUID, update domain.PlanUpdate) (*domain.Plan, error) {
	return r.scanPlan(r.pool.QueryRow(ctx, `
		UPDATE plans p SET
			name = COALESCE($2, name),
			price_cents = COALESCE($3, price_cents),
			sessions_per_week = COALESCE($4, sessions_per_week),
			session_count = COALESCE($5, session_count),
			duration_days = COALESCE($6, duration_days),
			provider_price_id = COALESCE($7, provider_price_id),
			active = COALESCE($8, active),
			updated_at = NOW()
		WHERE p.id = $1
		RETURNING `+planColumns,
		planID, update.Name, update.PriceCents, update.SessionsPerWeek,
		update.SessionCount, update.DurationDays, update.ProviderPriceID, update.Active))
}
