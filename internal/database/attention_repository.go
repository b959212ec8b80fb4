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

// AttentionRepo implements domain.AttentionRepository. The table is a plain
// database cache keyed by (entity_type, entity_id); freshness is the
// caller's business.
type AttentionRepo struct {
	pool *pgxpool.Pool
}

func NewAttentionRepo(pool *pgxpool.Pool) *AttentionRepo {
	return &AttentionRepo{pool: pool}
}

func (r *AttentionRepo) Get(ctx context.Context, entityType domain.EntityType, entityID uuid.UUID) (*domain.AttentionScore, error) {
	var s domain.AttentionScore
	err := r.pool.QueryRow(ctx, `
		SELECT entity_type, entity_id, score, bucket, computed_at, expires_at
		FROM attention_scores
		WHERE entity_type = $1 AND entity_id = $2
	`, entityType, entityID).Scan(
		&s.EntityType, &s.EntityID, &s.Score, &s.Bucket, &s.ComputedAt, &s.ExpiresAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrScoreNotFound
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *AttentionRepo) Replace(ctx context.Context, score *domain.AttentionScore) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO attention_scores (entity_type, entity_id, score, bucket, computed_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (entity_type, entity_id) DO UPDATE SET
			score = EXCLUDED.score,
			bucket = EXCLUDED.bucket,
			computed_at = EXCLUDED.computed_at,
			expires_at = EXCLUDED.expires_at
	`, score.EntityType, score.EntityID, score.Score, score.Bucket, score.ComputedAt, score.ExpiresAt)
	if err != nil {
		return fmt.Errorf("failed to replace attention score: %w", err)
	}
	return nil
}

func (r *AttentionRepo) Invalidate(ctx context.Context, entityType domain.EntityType, entityID uuid.UUID) error {
	_, err := r.pool.Exec(ctx,
		`DELETE FROM attention_scores WHERE entity_type = $1 AND entity_id = $2`,
		entityType, entityID)
	return err
}

func (r *AttentionRepo) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM attention_scores WHERE expires_at <= $1`, now)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
