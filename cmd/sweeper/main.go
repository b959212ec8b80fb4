// One-shot maintenance sweep for cron or container jobs. Purges expired
// attention score rows and reports waitlisted registrations for sessions
// that already started, which can never be promoted.
package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/strenly/coachpulse/internal/database"
)

func main() {
	var (
		databaseURL = flag.String("database", os.Getenv("DATABASE_URL"), "Postgres URL (or set DATABASE_URL env)")
		dryRun      = flag.Bool("dry-run", false, "Report what would be purged without deleting")
		verbose     = flag.Bool("verbose", false, "Verbose logging")
	)
	flag.Parse()

	if *databaseURL == "" {
		log.Fatal("Postgres URL required (--database or DATABASE_URL env)")
	}

	logLevel := slog.LevelInfo
	if *verbose {
		logLevel = slog.LevelDebug
	}
	handler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})
	slog.SetDefault(slog.New(handler))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	pool, err := database.Connect(ctx, *databaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer pool.Close()
	slog.Info("Connected to database", "url", sanitizeURL(*databaseURL))

	start := time.Now()
	now := time.Now().UTC()

	if err := purgeExpiredScores(ctx, pool, now, *dryRun); err != nil {
		log.Fatalf("Attention purge failed: %v", err)
	}
	if err := reportOrphanedRegistrations(ctx, pool, now); err != nil {
		log.Fatalf("Orphan report failed: %v", err)
	}

	slog.Info("Sweep complete", "duration_ms", time.Since(start).Milliseconds(), "dry_run", *dryRun)
}

func purgeExpiredScores(ctx context.Context, pool *pgxpool.Pool, now time.Time, dryRun bool) error {
	if dryRun {
		var count int64
		err := pool.QueryRow(ctx,
			`SELECT COUNT(*) FROM attention_scores WHERE expires_at <= $1`, now,
		).Scan(&count)
		if err != nil {
			return err
		}
		slog.Info("Expired attention scores (dry run)", "count", count)
		return nil
	}

	purged, err := database.NewAttentionRepo(pool).PurgeExpired(ctx, now)
	if err != nil {
		return err
	}
	slog.Info("Purged expired attention scores", "count", purged)
	return nil
}

// reportOrphanedRegistrations lists waitlist rows stuck behind sessions that
// already started. These are left in place so coaches can follow up; the
// sweep only surfaces them.
func reportOrphanedRegistrations(ctx context.Context, pool *pgxpool.Pool, now time.Time) error {
	rows, err := pool.Query(ctx, `
		SELECT r.id, r.user_id, r.session_id, s.title, s.starts_at
		FROM session_registrations r
		JOIN class_sessions s ON s.id = r.session_id
		WHERE r.status = 'waitlisted' AND s.starts_at <= $1
		ORDER BY s.starts_at`, now)
	if err != nil {
		return err
	}
	defer rows.Close()

	var orphaned int
	for rows.Next() {
		var (
			registrationID, userID, sessionID uuid.UUID
			title                             string
			startsAt                          time.Time
		)
		if err := rows.Scan(&registrationID, &userID, &sessionID, &title, &startsAt); err != nil {
			return err
		}
		orphaned++
		slog.Warn("Orphaned waitlist registration",
			"registration_id", registrationID.String(),
			"user_id", userID.String(),
			"session_id", sessionID.String(),
			"session_title", title,
			"starts_at", startsAt.Format(time.RFC3339))
	}
	if err := rows.Err(); err != nil {
		return err
	}

	slog.Info("Orphaned registration report", "count", orphaned)
	return nil
}

func sanitizeURL(url string) string {
	// Hide credentials for logging
	if at := strings.LastIndex(url, "@"); at != -1 {
		if scheme := strings.Index(url, "://"); scheme != -1 {
			return url[:scheme+3] + "***" + url[at:]
		}
	}
	return url
}
