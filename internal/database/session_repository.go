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

const sessionColumns = `cs.id, cs.coach_id, cs.cohort_id, cs.title, cs.starts_at, cs.ends_at, cs.capacity, cs.calendar_event_id, cs.created_at, cs.updated_at`

const registrationColumns = `sr.id, sr.session_id, sr.user_id, sr.status, sr.position, sr.created_at, sr.updated_at`

// SessionRepo implements domain.SessionRepository backed by PostgreSQL.
//
// Register and CancelRegistration run their whole decision inside one
// transaction. Both lock the session row first, so capacity counts and
// waitlist promotions serialize per session without any advisory locking.
type SessionRepo struct {
	pool *pgxpool.Pool
}

func NewSessionRepo(pool *pgxpool.Pool) *SessionRepo {
	return &SessionRepo{pool: pool}
}

func (r *SessionRepo) scanSession(row pgx.Row) (*domain.Session, error) {
	var s domain.Session
	err := row.Scan(
		&s.ID, &s.CoachID, &s.CohortID, &s.Title, &s.StartsAt, &s.EndsAt,
		&s.Capacity, &s.CalendarEventID, &s.CreatedAt, &s.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *SessionRepo) collectSessions(rows pgx.Rows) ([]domain.Session, error) {
	defer rows.Close()
	var sessions []domain.Session
	for rows.Next() {
		var s domain.Session
		err := rows.Scan(
			&s.ID, &s.CoachID, &s.CohortID, &s.Title, &s.StartsAt, &s.EndsAt,
			&s.Capacity, &s.CalendarEventID, &s.CreatedAt, &s.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, s)
	}
	return sessions, rows.Err()
}

func (r *SessionRepo) Create(ctx context.Context, session *domain.Session) error {
	err := r.pool.QueryRow(ctx, `
		INSERT INTO class_sessions (coach_id, cohort_id, title, starts_at, ends_at, capacity, calendar_event_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW())
		RETURNING id, created_at, updated_at
	`, session.CoachID, session.CohortID, session.Title, session.StartsAt, session.EndsAt,
		session.Capacity, session.CalendarEventID).
		Scan(&session.ID, &session.CreatedAt, &session.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	return nil
}

func (r *SessionRepo) GetByID(ctx context.Context, sessionID uuid.UUID) (*domain.Session, error) {
	return r.scanSession(r.pool.QueryRow(ctx,
		`SELECT `+sessionColumns+` FROM class_sessions cs WHERE cs.id = $1`, sessionID))
}

func (r *SessionRepo) List(ctx context.Context, filter domain.SessionListFilter) ([]domain.Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM class_sessions cs WHERE TRUE`
	var args []any

	if filter.CoachID != uuid.Nil {
		args = append(args, filter.CoachID)
		query += fmt.Sprintf(" AND cs.coach_id = $%d", len(args))
	}
	if filter.CohortID != uuid.Nil {
		args = append(args, filter.CohortID)
		query += fmt.Sprintf(" AND cs.cohort_id = $%d", len(args))
	}
	if !filter.From.IsZero() {
		args = append(args, filter.From)
		query += fmt.Sprintf(" AND cs.starts_at >= $%d", len(args))
	}
	if !filter.To.IsZero() {
		args = append(args, filter.To)
		query += fmt.Sprintf(" AND cs.starts_at < $%d", len(args))
	}
	query += ` ORDER BY cs.starts_at`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return r.collectSessions(rows)
}

func (r *SessionRepo) Update(ctx context.Context, sessionID uuid.UUID, update domain.SessionUpdate) (*domain.Session, error) {
	return r.scanSession(r.pool.QueryRow(ctx, `
		UPDATE class_sessions cs SET
			title = COALESCE($2, title),
			starts_at = COALESCE($3, starts_at),
			ends_at = COALESCE($4, ends_at),
			capacity = COALESCE($5, capacity),
			updated_at = NOW()
		WHERE cs.id = $1
		RETURNING `+sessionColumns,
		sessionID, update.Title, update.StartsAt, update.EndsAt, update.Capacity))
}

func (r *SessionRepo) Delete(ctx context.Context, sessionID uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM class_sessions WHERE id = $1`, sessionID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrSessionNotFound
	}
	return nil
}

func (r *SessionRepo) SetCalendarEventID(ctx context.Context, sessionID uuid.UUID, eventID string) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE class_sessions SET calendar_event_id = $2, updated_at = NOW() WHERE id = $1`,
		sessionID, eventID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrSessionNotFound
	}
	return nil
}

func (r *SessionRepo) ListMissingCalendarEvent(ctx context.Context, from time.Time) ([]domain.Session, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+sessionColumns+`
		FROM class_sessions cs
		WHERE cs.calendar_event_id = '' AND cs.starts_at >= $1
		ORDER BY cs.starts_at
	`, from)
	if err != nil {
		return nil, err
	}
	return r.collectSessions(rows)
}

// allowance is the locked membership a new registration would draw on.
type allowance struct {
	membershipID    uuid.UUID
	kind            domain.PlanKind
	sessionsPerWeek *int
}

// lockAllowance finds the actor's usable membership and locks it for the
// rest of the transaction. Active memberships are tried most recent first;
// the first one whose allowance permits a registration in the week of
// sessionStart wins. Returns ErrNoActiveMembership when the user has no
// active membership at all and ErrAllowanceExhausted when none of them has
// allowance left.
func (r *SessionRepo) lockAllowance(ctx context.Context, tx pgx.Tx, userID uuid.UUID, sessionStart, now time.Time) (*allowance, error) {
	rows, err := tx.Query(ctx, `
		SELECT m.id, p.kind, m.remaining_sessions, m.expires_at, p.sessions_per_week
		FROM memberships m
		JOIN plans p ON p.id = m.plan_id
		WHERE m.user_id = $1 AND m.status = 'active'
		ORDER BY m.started_at DESC
		FOR UPDATE OF m
	`, userID)
	if err != nil {
		return nil, err
	}

	type candidate struct {
		id              uuid.UUID
		kind            domain.PlanKind
		remaining       *int
		expiresAt       *time.Time
		sessionsPerWeek *int
	}
	var candidates []candidate
	for rows.Next() {
		var c candidate
		if err := rows.Scan(&c.id, &c.kind, &c.remaining, &c.expiresAt, &c.sessionsPerWeek); err != nil {
			rows.Close()
			return nil, err
		}
		candidates = append(candidates, c)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if len(candidates) == 0 {
		return nil, domain.ErrNoActiveMembership
	}

	for _, c := range candidates {
		switch c.kind {
		case domain.PlanPack:
			if c.remaining != nil && *c.remaining > 0 {
				return &allowance{membershipID: c.id, kind: c.kind}, nil
			}
		case domain.PlanPrepaid:
			if c.expiresAt != nil && c.expiresAt.After(now) {
				return &allowance{membershipID: c.id, kind: c.kind}, nil
			}
		case domain.PlanRecurring:
			if c.sessionsPerWeek == nil {
				continue
			}
			// The weekly cap counts registered seats in the ISO week of the
			// session being booked, not the week the booking happens in.
			var used int
			err := tx.QueryRow(ctx, `
				SELECT COUNT(*)
				FROM session_registrations sr
				JOIN class_sessions cs ON cs.id = sr.session_id
				WHERE sr.user_id = $1
				  AND sr.status = 'registered'
				  AND date_trunc('week', cs.starts_at) = date_trunc('week', $2::timestamptz)
			`, userID, sessionStart).Scan(&used)
			if err != nil {
				return nil, err
			}
			if used < *c.sessionsPerWeek {
				return &allowance{membershipID: c.id, kind: c.kind, sessionsPerWeek: c.sessionsPerWeek}, nil
			}
		}
	}

	return nil, domain.ErrAllowanceExhausted
}

// consume debits one session from a pack membership. Recurring caps are
// enforced by counting registered rows, prepaid by expiry, so only packs
// carry explicit balance.
func (r *SessionRepo) consume(ctx context.Context, tx pgx.Tx, alw *allowance) error {
	if alw.kind != domain.PlanPack {
		return nil
	}
	_, err := tx.Exec(ctx, `
		UPDATE memberships
		SET remaining_sessions = remaining_sessions - 1, updated_at = NOW()
		WHERE id = $1
	`, alw.membershipID)
	return err
}

func (r *SessionRepo) Register(ctx context.Context, sessionID, userID uuid.UUID, now time.Time) (*domain.RegistrationOutcome, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // no-op after commit

	session, err := r.scanSession(tx.QueryRow(ctx,
		`SELECT `+sessionColumns+` FROM class_sessions cs WHERE cs.id = $1 FOR UPDATE`, sessionID))
	if err != nil {
		return nil, err
	}
	if !session.StartsAt.After(now) {
		return nil, domain.ErrSessionStarted
	}

	var exists bool
	err = tx.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM session_registrations
			WHERE session_id = $1 AND user_id = $2 AND status <> 'cancelled'
		)
	`, sessionID, userID).Scan(&exists)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, domain.ErrDuplicateRegistration
	}

	alw, err := r.lockAllowance(ctx, tx, userID, session.StartsAt, now)
	if err != nil {
		return nil, err
	}

	var registered int
	err = tx.QueryRow(ctx,
		`SELECT COUNT(*) FROM session_registrations WHERE session_id = $1 AND status = 'registered'`,
		sessionID).Scan(&registered)
	if err != nil {
		return nil, err
	}

	var reg domain.Registration
	waitlisted := registered >= session.Capacity
	if waitlisted {
		// Waitlist position is strictly monotonic per session, cancelled
		// rows keep theirs. No allowance is consumed while waiting.
		err = tx.QueryRow(ctx, `
			INSERT INTO session_registrations AS sr (session_id, user_id, status, position, created_at, updated_at)
			SELECT $1, $2, $3, COALESCE(MAX(position), 0) + 1, NOW(), NOW()
			FROM session_registrations WHERE session_id = $1
			RETURNING `+registrationColumns,
			sessionID, userID, domain.RegistrationWaitlisted).Scan(
			&reg.ID, &reg.SessionID, &reg.UserID, &reg.Status, &reg.Position, &reg.CreatedAt, &reg.UpdatedAt)
	} else {
		err = tx.QueryRow(ctx, `
			INSERT INTO session_registrations AS sr (session_id, user_id, status, membership_id, created_at, updated_at)
			VALUES ($1, $2, $3, $4, NOW(), NOW())
			RETURNING `+registrationColumns,
			sessionID, userID, domain.RegistrationRegistered, alw.membershipID).Scan(
			&reg.ID, &reg.SessionID, &reg.UserID, &reg.Status, &reg.Position, &reg.CreatedAt, &reg.UpdatedAt)
		if err == nil {
			err = r.consume(ctx, tx, alw)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to insert registration: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return &domain.RegistrationOutcome{Registration: &reg, Waitlisted: waitlisted}, nil
}

func (r *SessionRepo) CancelRegistration(ctx context.Context, sessionID, userID uuid.UUID, now time.Time) (*domain.CancellationOutcome, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // no-op after commit

	session, err := r.scanSession(tx.QueryRow(ctx,
		`SELECT `+sessionColumns+` FROM class_sessions cs WHERE cs.id = $1 FOR UPDATE`, sessionID))
	if err != nil {
		return nil, err
	}

	var cancelled domain.Registration
	var membershipID *uuid.UUID
	err = tx.QueryRow(ctx, `
		UPDATE session_registrations sr
		SET status = $3, updated_at = NOW()
		WHERE sr.session_id = $1 AND sr.user_id = $2 AND sr.status <> 'cancelled'
		RETURNING `+registrationColumns+`, sr.membership_id
	`, sessionID, userID, domain.RegistrationCancelled).Scan(
		&cancelled.ID, &cancelled.SessionID, &cancelled.UserID, &cancelled.Status,
		&cancelled.Position, &cancelled.CreatedAt, &cancelled.UpdatedAt, &membershipID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrRegistrationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to cancel registration: %w", err)
	}

	// Registered rows never carry a position and waitlisted rows always do,
	// so position tells us whether a seat was freed.
	wasRegistered := cancelled.Position == nil

	outcome := &domain.CancellationOutcome{Cancelled: &cancelled}

	// Pack cancellations made at least 24h before the start get the session
	// back on their balance.
	if wasRegistered && membershipID != nil && !session.StartsAt.Before(now.Add(24*time.Hour)) {
		tag, err := tx.Exec(ctx, `
			UPDATE memberships m
			SET remaining_sessions = m.remaining_sessions + 1, updated_at = NOW()
			FROM plans p
			WHERE m.id = $1 AND p.id = m.plan_id AND p.kind = 'pack'
		`, *membershipID)
		if err != nil {
			return nil, fmt.Errorf("failed to refund pack session: %w", err)
		}
		outcome.Refunded = tag.RowsAffected() == 1
	}

	if wasRegistered {
		promoted, err := r.promoteNext(ctx, tx, session, now)
		if err != nil {
			return nil, err
		}
		outcome.Promoted = promoted
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return outcome, nil
}

// promoteNext flips the first waitlisted registrant that still has allowance
// to registered. Registrants without allowance are skipped and stay
// waitlisted in place.
func (r *SessionRepo) promoteNext(ctx context.Context, tx pgx.Tx, session *domain.Session, now time.Time) (*domain.Registration, error) {
	rows, err := tx.Query(ctx, `
		SELECT id, user_id FROM session_registrations
		WHERE session_id = $1 AND status = 'waitlisted'
		ORDER BY position ASC
		FOR UPDATE
	`, session.ID)
	if err != nil {
		return nil, err
	}

	type waiting struct {
		id     uuid.UUID
		userID uuid.UUID
	}
	var queue []waiting
	for rows.Next() {
		var w waiting
		if err := rows.Scan(&w.id, &w.userID); err != nil {
			rows.Close()
			return nil, err
		}
		queue = append(queue, w)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, w := range queue {
		alw, err := r.lockAllowance(ctx, tx, w.userID, session.StartsAt, now)
		if errors.Is(err, domain.ErrNoActiveMembership) || errors.Is(err, domain.ErrAllowanceExhausted) {
			continue
		}
		if err != nil {
			return nil, err
		}

		var promoted domain.Registration
		err = tx.QueryRow(ctx, `
			UPDATE session_registrations sr
			SET status = $2, position = NULL, membership_id = $3, updated_at = NOW()
			WHERE sr.id = $1
			RETURNING `+registrationColumns,
			w.id, domain.RegistrationRegistered, alw.membershipID).Scan(
			&promoted.ID, &promoted.SessionID, &promoted.UserID, &promoted.Status,
			&promoted.Position, &promoted.CreatedAt, &promoted.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to promote registration: %w", err)
		}
		if err := r.consume(ctx, tx, alw); err != nil {
			return nil, err
		}
		return &promoted, nil
	}

	return nil, nil
}

func (r *SessionRepo) Roster(ctx context.Context, sessionID uuid.UUID) ([]domain.RosterRegistration, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+registrationColumns+`, u.display_name, u.email
		FROM session_registrations sr
		JOIN users u ON u.id = sr.user_id
		WHERE sr.session_id = $1 AND sr.status <> 'cancelled'
		ORDER BY CASE sr.status WHEN 'registered' THEN 0 ELSE 1 END, sr.position ASC NULLS FIRST, sr.created_at
	`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var roster []domain.RosterRegistration
	for rows.Next() {
		var rr domain.RosterRegistration
		err := rows.Scan(
			&rr.ID, &rr.SessionID, &rr.UserID, &rr.Status, &rr.Position,
			&rr.CreatedAt, &rr.UpdatedAt, &rr.DisplayName, &rr.Email,
		)
		if err != nil {
			return nil, err
		}
		roster = append(roster, rr)
	}
	return roster, rows.Err()
}

func (r *SessionRepo) ListUpcomingForUser(ctx context.Context, userID uuid.UUID, now time.Time) ([]domain.UpcomingRegistration, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+sessionColumns+`, sr.status, sr.position
		FROM session_registrations sr
		JOIN class_sessions cs ON cs.id = sr.session_id
		WHERE sr.user_id = $1 AND sr.status <> 'cancelled' AND cs.starts_at >= $2
		ORDER BY cs.starts_at
	`, userID, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var upcoming []domain.UpcomingRegistration
	for rows.Next() {
		var u domain.UpcomingRegistration
		err := rows.Scan(
			&u.Session.ID, &u.Session.CoachID, &u.Session.CohortID, &u.Session.Title,
			&u.Session.StartsAt, &u.Session.EndsAt, &u.Session.Capacity,
			&u.Session.CalendarEventID, &u.Session.CreatedAt, &u.Session.UpdatedAt,
			&u.Status, &u.Position,
		)
		if err != nil {
			return nil, err
		}
		upcoming = append(upcoming, u)
	}
	return upcoming, rows.Err()
}
