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

const entryColumns = `e.id, e.user_id, e.entry_date, e.weight_kg, e.steps, e.sleep_hours, e.energy, e.mood, e.notes, e.created_at, e.updated_at`

// EntryRepo implements domain.EntryRepository backed by PostgreSQL.
type EntryRepo struct {
	pool *pgxpool.Pool
}

func NewEntryRepo(pool *pgxpool.Pool) *EntryRepo {
	return &EntryRepo{pool: pool}
}

func (r *EntryRepo) scanEntry(row pgx.Row) (*domain.Entry, error) {
	var e domain.Entry
	err := row.Scan(
		&e.ID, &e.UserID, &e.EntryDate, &e.WeightKg, &e.Steps, &e.SleepHours,
		&e.Energy, &e.Mood, &e.Notes, &e.CreatedAt, &e.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrEntryNotFound
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// Upsert overwrites the whole metric set for the day, so fields the client
// left out become NULL again rather than keeping stale values.
func (r *EntryRepo) Upsert(ctx context.Context, entry *domain.Entry) (*domain.Entry, error) {
	stored, err := r.scanEntry(r.pool.QueryRow(ctx, `
		INSERT INTO entries AS e (user_id, entry_date, weight_kg, steps, sleep_hours, energy, mood, notes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW(), NOW())
		ON CONFLICT (user_id, entry_date) DO UPDATE SET
			weight_kg = EXCLUDED.weight_kg,
			steps = EXCLUDED.steps,
			sleep_hours = EXCLUDED.sleep_hours,
			energy = EXCLUDED.energy,
			mood = EXCLUDED.mood,
			notes = EXCLUDED.notes,
			updated_at = NOW()
		RETURNING `+entryColumns,
		entry.UserID, entry.EntryDate, entry.WeightKg, entry.Steps, entry.SleepHours,
		entry.Energy, entry.Mood, entry.Notes))
	if err != nil {
		return nil, fmt.Errorf("failed to upsert entry: %w", err)
	}
	return stored, nil
}

func (r *EntryRepo) ListByUser(ctx context.Context, userID uuid.UUID, from, to time.Time) ([]domain.Entry, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+entryColumns+`
		FROM entries e
		WHERE e.user_id = $1 AND e.entry_date >= $2::date AND e.entry_date <= $3::date
		ORDER BY e.entry_date DESC
	`, userID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []domain.Entry
	for rows.Next() {
		var e domain.Entry
		err := rows.Scan(
			&e.ID, &e.UserID, &e.EntryDate, &e.WeightKg, &e.Steps, &e.SleepHours,
			&e.Energy, &e.Mood, &e.Notes, &e.CreatedAt, &e.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (r *EntryRepo) LastEntryDate(ctx context.Context, userID uuid.UUID) (*time.Time, error) {
	var last *time.Time
	err := r.pool.QueryRow(ctx,
		`SELECT MAX(entry_date) FROM entries WHERE user_id = $1`, userID).Scan(&last)
	if err != nil {
		return nil, err
	}
	return last, nil
}

func (r *EntryRepo) CountSince(ctx context.Context, userID uuid.UUID, since time.Time) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM entries WHERE user_id = $1 AND entry_date >= $2::date`,
		userID, since).Scan(&count)
	return count, err
}

func (r *EntryRepo) DatesSince(ctx context.Context, userID uuid.UUID, since time.Time) ([]time.Time, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT entry_date FROM entries
		WHERE user_id = $1 AND entry_date >= $2::date
		ORDER BY entry_date DESC
	`, userID, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var dates []time.Time
	for rows.Next() {
		var d time.Time
		if err := rows.Scan(&d); err != nil {
			return nil, err
		}
		dates = append(dates, d)
	}
	return dates, rows.Err()
}

func (r *EntryRepo) LastEntryDates(ctx context.Context, userIDs []uuid.UUID) (map[uuid.UUID]time.Time, error) {
	if len(userIDs) == 0 {
		return map[uuid.UUID]time.Time{}, nil
	}

	rows, err := r.pool.Query(ctx, `
		SELECT user_id, MAX(entry_date)
		FROM entries
		WHERE user_id = ANY($1::uuid[])
		GROUP BY user_id
	`, userIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	dates := make(map[uuid.UUID]time.Time, len(userIDs))
	for rows.Next() {
		var id uuid.UUID
		var last time.Time
		if err := rows.Scan(&id, &last); err != nil {
			return nil, err
		}
		dates[id] = last
	}
	return dates, rows.Err()
}
