// Package jobs runs the recurring maintenance work: the hourly attention
// cache sweep, the nightly calendar resync and the nightly membership expiry
// pass. Each job is guarded by a Redis lease so only one instance of the
// fleet runs it per tick.
package jobs

import (
	"context"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"
	goredis "github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"

	"github.com/strenly/coachpulse/internal/domain"
	"github.com/strenly/coachpulse/internal/metrics"
	"github.com/strenly/coachpulse/internal/redis"
)

const (
	attentionSweepSchedule   = "0 * * * *"
	calendarResyncSchedule   = "30 3 * * *"
	membershipExpirySchedule = "0 4 * * *"

	// jobTimeout bounds a single run; lock TTLs are slightly longer so the
	// lease outlives the run.
	jobTimeout = 5 * time.Minute
	lockTTL    = 6 * time.Minute

	// expiryNoticeWindow is how far ahead the expiry job warns prepaid
	// members before their membership lapses.
	expiryNoticeWindow = 7 * 24 * time.Hour
)

// Scheduler wires the cron entries and their leader locks.
type Scheduler struct {
	cron        *cron.Cron
	redisClient *goredis.Client
	instanceID  string

	scores      domain.AttentionRepository
	sessions    domain.SessionRepository
	memberships domain.MembershipRepository
	users       domain.UserRepository
	calendar    domain.CalendarClient
	notifier    domain.Notifier
	clock       clockwork.Clock
}

func NewScheduler(
	redisClient *goredis.Client,
	instanceID string,
	scores domain.AttentionRepository,
	sessions domain.SessionRepository,
	memberships domain.MembershipRepository,
	users domain.UserRepository,
	calendar domain.CalendarClient,
	notifier domain.Notifier,
	clock clockwork.Clock,
) *Scheduler {
	return &Scheduler{
		cron:        cron.New(),
		redisClient: redisClient,
		instanceID:  instanceID,
		scores:      scores,
		sessions:    sessions,
		memberships: memberships,
		users:       users,
		calendar:    calendar,
		notifier:    notifier,
		clock:       clock,
	}
}

// Start registers the jobs and launches the cron loop.
func (s *Scheduler) Start() error {
	jobs := []struct {
		name     string
		schedule string
		run      func(ctx context.Context) error
	}{
		{"attention_sweep", attentionSweepSchedule, s.sweepAttentionCache},
		{"calendar_resync", calendarResyncSchedule, s.resyncCalendar},
		{"membership_expiry", membershipExpirySchedule, s.expireMemberships},
	}
	for _, job := range jobs {
		job := job
		if _, err := s.cron.AddFunc(job.schedule, func() { s.runLocked(job.name, job.run) }); err != nil {
			return err
		}
	}
	s.cron.Start()
	return nil
}

// Stop halts the cron loop and waits for running jobs to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

// runLocked takes the job's leader lease, runs the job under a timeout and
// releases the lease. Instances that lose the election skip the tick.
func (s *Scheduler) runLocked(name string, run func(ctx context.Context) error) {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	lock := redis.NewJobLock(s.redisClient, s.instanceID, name, lockTTL)
	acquired, err := lock.Acquire(ctx)
	if err != nil {
		slog.Error("job lock acquisition failed", "job", name, "error", err)
		metrics.JobRunsTotal.WithLabelValues(name, "error").Inc()
		return
	}
	if !acquired {
		metrics.JobRunsTotal.WithLabelValues(name, "skipped_not_leader").Inc()
		return
	}
	defer func() {
		if err := lock.Release(context.WithoutCancel(ctx)); err != nil {
			slog.Warn("job lock release failed", "job", name, "error", err)
		}
	}()

	start := s.clock.Now()
	err = run(ctx)
	metrics.JobDuration.WithLabelValues(name).Observe(s.clock.Since(start).Seconds())
	if err != nil {
		slog.Error("job run failed", "job", name, "error", err)
		metrics.JobRunsTotal.WithLabelValues(name, "error").Inc()
		return
	}
	metrics.JobRunsTotal.WithLabelValues(name, "ok").Inc()
}

// sweepAttentionCache deletes attention score rows past their expiry.
func (s *Scheduler) sweepAttentionCache(ctx context.Context) error {
	purged, err := s.scores.PurgeExpired(ctx, s.clock.Now().UTC())
	if err != nil {
		return err
	}
	metrics.AttentionRowsPurged.WithLabelValues("sweep").Add(float64(purged))
	slog.Info("attention cache sweep finished", "purged", purged)
	return nil
}

// resyncCalendar pushes future sessions that never made it to the external
// calendar, typically because the provider was down at write time.
func (s *Scheduler) resyncCalendar(ctx context.Context) error {
	missing, err := s.sessions.ListMissingCalendarEvent(ctx, s.clock.Now().UTC())
	if err != nil {
		return err
	}

	synced := 0
	for _, session := range missing {
		event := domain.CalendarEvent{Title: session.Title, StartsAt: session.StartsAt, EndsAt: session.EndsAt}
		eventID, err := s.calendar.CreateEvent(ctx, event)
		if err != nil {
			slog.Warn("calendar resync skipped session", "session_id", session.ID, "error", err)
			continue
		}
		if eventID == "" {
			continue
		}
		if err := s.sessions.SetCalendarEventID(ctx, session.ID, eventID); err != nil {
			slog.Error("failed to store calendar event id during resync", "session_id", session.ID, "error", err)
			continue
		}
		synced++
	}
	slog.Info("calendar resync finished", "missing", len(missing), "synced", synced)
	return nil
}

// expireMemberships flips lapsed prepaid memberships to expired and warns
// members whose membership lapses within the notice window.
func (s *Scheduler) expireMemberships(ctx context.Context) error {
	now := s.clock.Now().UTC()

	expired, err := s.memberships.MarkExpired(ctx, now)
	if err != nil {
		return err
	}

	expiring, err := s.memberships.ListExpiringBetween(ctx, now, now.Add(expiryNoticeWindow))
	if err != nil {
		return err
	}
	for _, membership := range expiring {
		user, err := s.users.GetByID(ctx, membership.UserID)
		if err != nil {
			slog.Warn("failed to load user for expiry notice", "user_id", membership.UserID, "error", err)
			continue
		}
		s.notifier.SendMembershipExpiring(ctx, user, *membership.ExpiresAt)
	}

	slog.Info("membership expiry pass finished", "expired", expired, "notified", len(expiring))
	return nil
}
