package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/strenly/coachpulse/internal/domain"
)

const membershipColumns = `m.id, m.user_id, m.plan_id, m.status, m.remaining_sessions, m.expires_at, m.provider_subscription_id, m.started_at, m.cancelled_at, m.created_at, m.updated_at`

// MembershipRepo implements domain.MembershipRepository backed by PostgreSQL.
type MembershipRepo struct {
	pool *pgxpool.Pool
}

func NewMembershipRepo(pool *pgxpool.Pool) *MembershipRepo {
	return &MembershipRepo{pool: pool}
}

func (r *MembershipRepo) scanMembership(row pgx.Row) (*domain.Membership, error) {
	var m domain.Membership
	err := row.Scan(
		&m.ID, &m.UserID, &m.PlanID, &m.Status, &m.RemainingSessions, &m.ExpiresAt,
		&m.ProviderSubscriptionID, &m.StartedAt, &m.CancelledAt, &m.CreatedAt, &m.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrMembershipNotFound
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *MembershipRepo) collectMemberships(rows pgx.Rows) ([]domain.Membership, error) {
	defer rows.Close()
	var memberships []domain.Membership
	for rows.Next() {
		var m domain.Membership
		err := rows.Scan(
			&m.ID, &m.UserID, &m.PlanID, &m.Status, &m.RemainingSessions, &m.ExpiresAt,
			&m.ProviderSubscriptionID, &m.StartedAt, &m.CancelledAt, &m.CreatedAt, &m.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		memberships = append(memberships, m)
	}
	return memberships, rows.Err()
}

func (r *MembershipRepo) Create(ctx context.Context, membership *domain.Membership) error {
	err := r.pool.QueryRow(ctx, `
		INSERT INTO memberships (user_id, plan_id, status, remaining_sessions, expires_at, provider_subscription_id, started_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW())
		RETURNING id, created_at, updated_at
	`, membership.UserID, membership.PlanID, membership.Status, membership.RemainingSessions,
		membership.ExpiresAt, membership.ProviderSubscriptionID, membership.StartedAt).
		Scan(&membership.ID, &membership.CreatedAt, &membership.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create membership: %w", err)
	}
	return nil
}

func (r *MembershipRepo) GetByID(ctx context.Context, membershipID uuid.UUID) (*domain.Membership, error) {
	return r.scanMembership(r.pool.QueryRow(ctx,
		`SELECT `+membershipColumns+` FROM memberships m WHERE m.id = $1`, membershipID))
}

func (r *MembershipRepo) HasActiveForPlan(ctx context.Context, userID, planID uuid.UUID) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM memberships WHERE user_id = $1 AND plan_id = $2 AND status = 'active'
		)
	`, userID, planID).Scan(&exists)
	return exists, err
}

func (r *MembershipRepo) GetByProviderSubscription(ctx context.Context, subscriptionID string) (*domain.Membership, error) {
	if subscriptionID == "" {
		return nil, domain.ErrMembershipNotFound
	}
	return r.scanMembership(r.pool.QueryRow(ctx,
		`SELECT `+membershipColumns+` FROM memberships m WHERE m.provider_subscription_id = $1`,
		subscriptionID))
}

func (r *MembershipRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]domain.MembershipWithPlan, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+membershipColumns+`, p.name, p.kind
		FROM memberships m
		JOIN plans p ON p.id = m.plan_id
		WHERE m.user_id = $1
		ORDER BY m.started_at DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var memberships []domain.MembershipWithPlan
	for rows.Next() {
		var m domain.MembershipWithPlan
		err := rows.Scan(
			&m.ID, &m.UserID, &m.PlanID, &m.Status, &m.RemainingSessions, &m.ExpiresAt,
			&m.ProviderSubscriptionID, &m.StartedAt, &m.CancelledAt, &m.CreatedAt, &m.UpdatedAt,
			&m.PlanName, &m.PlanKind,
		)
		if err != nil {
			return nil, err
		}
		memberships = append(memberships, m)
	}
	return memberships, rows.Err()
}

func (r *MembershipRepo) UpdateStatus(ctx context.Context, membershipID uuid.UUID, status domain.MembershipStatus, cancelledAt *time.Time) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE memberships SET status = $2, cancelled_at = $3, updated_at = NOW() WHERE id = $1
	`, membershipID, status, cancelledAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrMembershipNotFound
	}
	return nil
}

func (r *MembershipRepo) ListExpiringBetween(ctx context.Context, from, to time.Time) ([]domain.Membership, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+membershipColumns+`
		FROM memberships m
		WHERE m.status = 'active' AND m.expires_at >= $1 AND m.expires_at < $2
		ORDER BY m.expires_at
	`, from, to)
	if err != nil {
		return nil, err
	}
	return r.collectMemberships(rows)
}

func (r *MembershipRepo) MarkExpired(ctx context.Context, now time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE memberships
		SET status = 'expired', updated_at = NOW()
		WHERE status = 'active' AND expires_at IS NOT NULL AND expires_at <= $1
	`, now)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
