package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/strenly/coachpulse/internal/domain"
)

const cohortColumns = `c.id, c.name, c.description, c.coach_id, c.starts_on, c.ends_on, c.created_at, c.updated_at`

// CohortRepo implements domain.CohortRepository backed by PostgreSQL.
type CohortRepo struct {
	pool *pgxpool.Pool
}

func NewCohortRepo(pool *pgxpool.Pool) *CohortRepo {
	return &CohortRepo{pool: pool}
}

func (r *CohortRepo) scanCohort(row pgx.Row) (*domain.Cohort, error) {
	var c domain.Cohort
	err := row.Scan(&c.ID, &c.Name, &c.Description, &c.CoachID, &c.StartsOn, &c.EndsOn, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrCohortNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *CohortRepo) collectCohorts(rows pgx.Rows) ([]domain.Cohort, error) {
	defer rows.Close()
	var cohorts []domain.Cohort
	for rows.Next() {
		var c domain.Cohort
		if err := rows.Scan(&c.ID, &c.Name, &c.Description, &c.CoachID, &c.StartsOn, &c.EndsOn, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		cohorts = append(cohorts, c)
	}
	return cohorts, rows.Err()
}

func (r *CohortRepo) Create(ctx context.Context, cohort *domain.Cohort) error {
	err := r.pool.QueryRow(ctx, `
		INSERT INTO cohorts (name, description, coach_id, starts_on, ends_on, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
		RETURNING id, created_at, updated_at
	`, cohort.Name, cohort.Description, cohort.CoachID, cohort.StartsOn, cohort.EndsOn).
		Scan(&cohort.ID, &cohort.CreatedAt, &cohort.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create cohort: %w", err)
	}
	return nil
}

func (r *CohortRepo) GetByID(ctx context.Context, cohortID uuid.UUID) (*domain.Cohort, error) {
	return r.scanCohort(r.pool.QueryRow(ctx,
		`SELECT `+cohortColumns+` FROM cohorts c WHERE c.id = $1`, cohortID))
}

func (r *CohortRepo) List(ctx context.Context) ([]domain.Cohort, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+cohortColumns+` FROM cohorts c ORDER BY c.starts_on DESC, c.name`)
	if err != nil {
		return nil, err
	}
	return r.collectCohorts(rows)
}

func (r *CohortRepo) ListByCoach(ctx context.Context, coachID uuid.UUID) ([]domain.Cohort, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+cohortColumns+` FROM cohorts c WHERE c.coach_id = $1 ORDER BY c.starts_on DESC, c.name`, coachID)
	if err != nil {
		return nil, err
	}
	return r.collectCohorts(rows)
}

func (r *CohortRepo) ListForMember(ctx context.Context, userID uuid.UUID) ([]domain.Cohort, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+cohortColumns+`
		FROM cohorts c
		JOIN cohort_members cm ON cm.cohort_id = c.id
		WHERE cm.user_id = $1
		ORDER BY c.starts_on DESC, c.name
	`, userID)
	if err != nil {
		return nil, err
	}
	return r.collectCohorts(rows)
}

func (r *CohortRepo) Update(ctx context.Context, cohortID uuid.UUID, update domain.CohortUpdate) (*domain.Cohort, error) {
	return r.scanCohort(r.pool.QueryRow(ctx, `
		UPDATE cohorts c SET
			name = COALESCE($2, name),
			description = COALESCE($3, description),
			starts_on = COALESCE($4, starts_on),
			ends_on = COALESCE($5, ends_on),
			updated_at = NOW()
		WHERE c.id = $1
		RETURNING `+cohortColumns,
		cohortID, update.Name, update.Description, update.StartsOn, update.EndsOn))
}

func (r *CohortRepo) SetCoach(ctx context.Context, cohortID, coachID uuid.UUID) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE cohorts SET coach_id = $2, updated_at = NOW() WHERE id = $1`, cohortID, coachID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrCohortNotFound
	}
	return nil
}

func (r *CohortRepo) Delete(ctx context.Context, cohortID uuid.UUID) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // no-op after commit

	// Memberships go via ON DELETE CASCADE, sessions keep a NULL cohort via
	// ON DELETE SET NULL. The cached cohort score has no FK, drop it here.
	tag, err := tx.Exec(ctx, `DELETE FROM cohorts WHERE id = $1`, cohortID)
	if err != nil {
		return fmt.Errorf("failed to delete cohort: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrCohortNotFound
	}

	_, err = tx.Exec(ctx,
		`DELETE FROM attention_scores WHERE entity_type = $1 AND entity_id = $2`,
		domain.EntityCohort, cohortID)
	if err != nil {
		return fmt.Errorf("failed to delete cohort attention score: %w", err)
	}

	return tx.Commit(ctx)
}

func (r *CohortRepo) AddMember(ctx context.Context, cohortID, userID uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO cohort_members (cohort_id, user_id, joined_at)
		VALUES ($1, $2, NOW())
	`, cohortID, userID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			switch {
			case pgErr.Code == "23505":
				return domain.ErrDuplicateMember
			case pgErr.Code == "23503" && pgErr.ConstraintName == "cohort_members_cohort_id_fkey":
				return domain.ErrCohortNotFound
			case pgErr.Code == "23503" && pgErr.ConstraintName == "cohort_members_user_id_fkey":
				return domain.ErrUserNotFound
			}
		}
		return err
	}
	return nil
}

func (r *CohortRepo) RemoveMember(ctx context.Context, cohortID, userID uuid.UUID) error {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM cohort_members WHERE cohort_id = $1 AND user_id = $2`, cohortID, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotCohortMember
	}
	return nil
}

func (r *CohortRepo) ListMembers(ctx context.Context, cohortID uuid.UUID) ([]domain.RosterEntry, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT u.id, u.display_name, u.email, cm.joined_at,
			(SELECT MAX(e.entry_date) FROM entries e WHERE e.user_id = u.id)
		FROM cohort_members cm
		JOIN users u ON u.id = cm.user_id
		WHERE cm.cohort_id = $1
		ORDER BY u.display_name, u.id
	`, cohortID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var members []domain.RosterEntry
	for rows.Next() {
		var m domain.RosterEntry
		if err := rows.Scan(&m.UserID, &m.DisplayName, &m.Email, &m.JoinedAt, &m.LastEntryDate); err != nil {
			return nil, err
		}
		members = append(members, m)
	}
	return members, rows.Err()
}

func (r *CohortRepo) MemberIDs(ctx context.Context, cohortID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT user_id FROM cohort_members WHERE cohort_id = $1`, cohortID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *CohortRepo) IsMember(ctx context.Context, cohortID, userID uuid.UUID) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM cohort_members WHERE cohort_id = $1 AND user_id = $2)`,
		cohortID, userID).Scan(&exists)
	return exists, err
}

func (r *CohortRepo) IsCoachOf(ctx context.Context, coachID, userID uuid.UUID) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1
			FROM cohort_members cm
			JOIN cohorts c ON c.id = cm.cohort_id
			WHERE c.coach_id = $1 AND cm.user_id = $2
		)
	`, coachID, userID).Scan(&exists)
	return exists, err
}
