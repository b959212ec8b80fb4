package database

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/strenly/coachpulse/internal/domain"
)

// ReportRepo implements domain.ReportRepository. Everything here is
// read-only aggregation; the database does the math.
type ReportRepo struct {
	pool *pgxpool.Pool
}

func NewReportRepo(pool *pgxpool.Pool) *ReportRepo {
	return &ReportRepo{pool: pool}
}

func (r *ReportRepo) collectSeries(rows pgx.Rows) ([]domain.SeriesPoint, error) {
	defer rows.Close()
	var points []domain.SeriesPoint
	for rows.Next() {
		var p domain.SeriesPoint
		if err := rows.Scan(&p.Label, &p.Value); err != nil {
			return nil, err
		}
		points = append(points, p)
	}
	return points, rows.Err()
}

// CohortWeeklyCheckins counts member check-ins per ISO week. Weeks without
// entries still show up as zero so charts have no gaps.
func (r *ReportRepo) CohortWeeklyCheckins(ctx context.Context, cohortID uuid.UUID, weeks int, now time.Time) ([]domain.SeriesPoint, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT to_char(w, 'IYYY-"W"IW'), COALESCE(c.cnt, 0)::float8
		FROM generate_series(
			date_trunc('week', $3::timestamptz) - make_interval(weeks => $2 - 1),
			date_trunc('week', $3::timestamptz),
			interval '1 week'
		) w
		LEFT JOIN (
			SELECT date_trunc('week', e.entry_date)::timestamptz AS wk, COUNT(*) AS cnt
			FROM entries e
			JOIN cohort_members cm ON cm.user_id = e.user_id
			WHERE cm.cohort_id = $1
			GROUP BY 1
		) c ON c.wk = w
		ORDER BY w
	`, cohortID, weeks, now)
	if err != nil {
		return nil, err
	}
	return r.collectSeries(rows)
}

func (r *ReportRepo) ClientWeightTrend(ctx context.Context, userID uuid.UUID, from, to time.Time) ([]domain.SeriesPoint, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT to_char(entry_date, 'YYYY-MM-DD'), weight_kg::float8
		FROM entries
		WHERE user_id = $1 AND weight_kg IS NOT NULL
		  AND entry_date >= $2::date AND entry_date <= $3::date
		ORDER BY entry_date
	`, userID, from, to)
	if err != nil {
		return nil, err
	}
	return r.collectSeries(rows)
}

func (r *ReportRepo) CohortAttendance(ctx context.Context, cohortID uuid.UUID, since, now time.Time) ([]domain.AttendancePoint, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT cs.title, cs.starts_at,
			COUNT(sr.id) FILTER (WHERE sr.status = 'registered')::int,
			cs.capacity
		FROM class_sessions cs
		LEFT JOIN session_registrations sr ON sr.session_id = cs.id
		WHERE cs.cohort_id = $1 AND cs.starts_at >= $2 AND cs.starts_at < $3
		GROUP BY cs.id
		ORDER BY cs.starts_at
	`, cohortID, since, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var points []domain.AttendancePoint
	for rows.Next() {
		var p domain.AttendancePoint
		if err := rows.Scan(&p.Label, &p.StartsAt, &p.Registered, &p.Capacity); err != nil {
			return nil, err
		}
		points = append(points, p)
	}
	return points, rows.Err()
}

// MonthlyRevenue reports paid invoice totals in major currency units.
func (r *ReportRepo) MonthlyRevenue(ctx context.Context, months int, now time.Time) ([]domain.SeriesPoint, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT to_char(m, 'YYYY-MM'), COALESCE(s.total, 0)::float8 / 100
		FROM generate_series(
			date_trunc('month', $2::timestamptz) - make_interval(months => $1 - 1),
			date_trunc('month', $2::timestamptz),
			interval '1 month'
		) m
		LEFT JOIN (
			SELECT date_trunc('month', issued_at) AS mo, SUM(amount_cents) AS total
			FROM invoices
			WHERE status = 'paid'
			GROUP BY 1
		) s ON s.mo = m
		ORDER BY m
	`, months, now)
	if err != nil {
		return nil, err
	}
	return r.collectSeries(rows)
}

func (r *ReportRepo) ActiveMembershipsPerPlan(ctx context.Context) ([]domain.SeriesPoint, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT p.name, COUNT(*)::float8
		FROM memberships m
		JOIN plans p ON p.id = m.plan_id
		WHERE m.status = 'active'
		GROUP BY p.name
		ORDER BY p.name
	`)
	if err != nil {
		return nil, err
	}
	return r.collectSeries(rows)
}
