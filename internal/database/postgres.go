package database

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Connect opens a pgx connection pool with production pool settings and
// verifies connectivity before returning.
func Connect(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}

	cfg.MaxConns = 25
	cfg.MinConns = 5
	cfg.MaxConnLifetime = 5 * time.Minute
	cfg.ConnConfig.Tracer = &MetricsTracer{}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return pool, nil
}

// RunMigrations applies the schema. Every statement is idempotent, so running
// at startup on every deploy is safe.
func RunMigrations(ctx context.Context, pool *pgxpool.Pool) error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			provider_subject TEXT UNIQUE NOT NULL,
			email TEXT UNIQUE NOT NULL,
			display_name TEXT NOT NULL,
			role TEXT NOT NULL DEFAULT 'client',
			checkin_target INT NOT NULL DEFAULT 7,
			timezone TEXT NOT NULL DEFAULT 'UTC',
			active BOOLEAN NOT NULL DEFAULT TRUE,
			access_token TEXT NOT NULL DEFAULT '',
			refresh_token TEXT NOT NULL DEFAULT '',
			token_expiry TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_users_provider_subject ON users(provider_subject)`,
		`CREATE INDEX IF NOT EXISTS idx_users_email ON users(email)`,

		`CREATE TABLE IF NOT EXISTS cohorts (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			name TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			coach_id UUID NOT NULL REFERENCES users(id),
			starts_on DATE NOT NULL,
			ends_on DATE NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_cohorts_coach_id ON cohorts(coach_id)`,

		`CREATE TABLE IF NOT EXISTS cohort_members (
			cohort_id UUID NOT NULL REFERENCES cohorts(id) ON DELETE CASCADE,
			user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			joined_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			PRIMARY KEY (cohort_id, user_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_cohort_members_user_id ON cohort_members(user_id)`,

		`CREATE TABLE IF NOT EXISTS entries (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			entry_date DATE NOT NULL,
			weight_kg DOUBLE PRECISION,
			steps INT,
			sleep_hours DOUBLE PRECISION,
			energy INT,
			mood INT,
			notes TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			UNIQUE (user_id, entry_date)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_entries_user_date ON entries(user_id, entry_date DESC)`,

		`CREATE TABLE IF NOT EXISTS class_sessions (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			coach_id UUID NOT NULL REFERENCES users(id),
			cohort_id UUID REFERENCES cohorts(id) ON DELETE SET NULL,
			title TEXT NOT NULL,
			starts_at TIMESTAMPTZ NOT NULL,
			ends_at TIMESTAMPTZ NOT NULL,
			capacity INT NOT NULL CHECK (capacity >= 1),
			calendar_event_id TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_class_sessions_coach_id ON class_sessions(coach_id)`,
		`CREATE INDEX IF NOT EXISTS idx_class_sessions_starts_at ON class_sessions(starts_at)`,

		`CREATE TABLE IF NOT EXISTS plans (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			name TEXT NOT NULL,
			kind TEXT NOT NULL,
			price_cents INT NOT NULL,
			currency TEXT NOT NULL DEFAULT 'EUR',
			sessions_per_week INT,
			session_count INT,
			duration_days INT,
			provider_price_id TEXT NOT NULL DEFAULT '',
			active BOOLEAN NOT NULL DEFAULT TRUE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_plans_provider_price_id ON plans(provider_price_id) WHERE provider_price_id <> ''`,

		`CREATE TABLE IF NOT EXISTS memberships (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			plan_id UUID NOT NULL REFERENCES plans(id),
			status TEXT NOT NULL DEFAULT 'active',
			remaining_sessions INT,
			expires_at TIMESTAMPTZ,
			provider_subscription_id TEXT NOT NULL DEFAULT '',
			started_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			cancelled_at TIMESTAMPTZ,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_memberships_user_id ON memberships(user_id)`,
		`CREATE INDEX IF NOT EXISTS idx_memberships_provider_subscription ON memberships(provider_subscription_id) WHERE provider_subscription_id <> ''`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_memberships_one_active_subscription ON memberships(user_id, plan_id) WHERE status = 'active' AND provider_subscription_id <> ''`,
		`CREATE INDEX IF NOT EXISTS idx_memberships_expires_at ON memberships(expires_at) WHERE expires_at IS NOT NULL`,

		// membership_id records which membership paid for a registered seat,
		// so pack cancellations can refund the right balance.
		`CREATE TABLE IF NOT EXISTS session_registrations (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			session_id UUID NOT NULL REFERENCES class_sessions(id) ON DELETE CASCADE,
			user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			status TEXT NOT NULL,
			position INT,
			membership_id UUID REFERENCES memberships(id) ON DELETE SET NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_registrations_one_active ON session_registrations(session_id, user_id) WHERE status <> 'cancelled'`,
		`CREATE INDEX IF NOT EXISTS idx_registrations_user_id ON session_registrations(user_id)`,

		`CREATE TABLE IF NOT EXISTS invoices (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			provider_invoice_id TEXT UNIQUE NOT NULL,
			user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			membership_id UUID REFERENCES memberships(id) ON DELETE SET NULL,
			amount_cents BIGINT NOT NULL,
			currency TEXT NOT NULL,
			status TEXT NOT NULL,
			issued_at TIMESTAMPTZ NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_invoices_user_id ON invoices(user_id)`,

		`CREATE TABLE IF NOT EXISTS attention_scores (
			entity_type TEXT NOT NULL,
			entity_id UUID NOT NULL,
			score INT NOT NULL,
			bucket TEXT NOT NULL,
			computed_at TIMESTAMPTZ NOT NULL,
			expires_at TIMESTAMPTZ NOT NULL,
			PRIMARY KEY (entity_type, entity_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_attention_scores_expires_at ON attention_scores(expires_at)`,

		`CREATE TABLE IF NOT EXISTS questionnaires (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			cohort_id UUID NOT NULL REFERENCES cohorts(id) ON DELETE CASCADE,
			title TEXT NOT NULL,
			questions JSONB NOT NULL DEFAULT '[]',
			active BOOLEAN NOT NULL DEFAULT TRUE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_questionnaires_cohort_id ON questionnaires(cohort_id)`,

		`CREATE TABLE IF NOT EXISTS questionnaire_responses (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			questionnaire_id UUID NOT NULL REFERENCES questionnaires(id) ON DELETE CASCADE,
			user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			answers JSONB NOT NULL DEFAULT '[]',
			submitted_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			UNIQUE (questionnaire_id, user_id)
		)`,

		// actor_id has no FK so audit rows survive anything that happens to
		// the users table.
		`CREATE TABLE IF NOT EXISTS audit_log (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			actor_id UUID NOT NULL,
			action TEXT NOT NULL,
			entity_type TEXT NOT NULL,
			entity_id TEXT NOT NULL DEFAULT '',
			metadata JSONB NOT NULL DEFAULT '{}',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_audit_log_actor_id ON audit_log(actor_id)`,
		`CREATE INDEX IF NOT EXISTS idx_audit_log_entity ON audit_log(entity_type, entity_id)`,
	}

	for _, migration := range migrations {
		if _, err := pool.Exec(ctx, migration); err != nil {
			return fmt.Errorf("failed to run migration: %w", err)
		}
	}

	slog.Info("database migrations completed")
	return nil
}
