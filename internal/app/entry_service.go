package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/strenly/coachpulse/internal/domain"
	apperrors "github.com/strenly/coachpulse/internal/errors"
)

// EntryService implements domain.EntryService.
type EntryService struct {
	entries   domain.EntryRepository
	cohorts   domain.CohortRepository
	attention domain.AttentionRepository
	clock     clockwork.Clock
}

var _ domain.EntryService = (*EntryService)(nil)

func NewEntryService(entries domain.EntryRepository, cohorts domain.CohortRepository, attention domain.AttentionRepository, clock clockwork.Clock) *EntryService {
	return &EntryService{entries: entries, cohorts: cohorts, attention: attention, clock: clock}
}

func (s *EntryService) UpsertEntry(ctx context.Context, actor *domain.User, entry *domain.Entry) (*domain.Entry, error) {
	// Check-ins are always written on one's own behalf.
	if entry.UserID != actor.ID {
		return nil, apperrors.ForbiddenError("check-ins can only be written for yourself")
	}

	entry.EntryDate = midnightUTC(entry.EntryDate)
	today := midnightUTC(s.clock.Now().UTC())
	if entry.EntryDate.After(today) {
		return nil, apperrors.ValidationError("entry date cannot be in the future")
	}
	if today.Sub(entry.EntryDate) > domain.BackfillDays*24*time.Hour {
		return nil, apperrors.ValidationError(fmt.Sprintf("entry date cannot be more than %d days in the past", domain.BackfillDays))
	}
	if err := validateEntryMetrics(entry); err != nil {
		return nil, err
	}

	stored, err := s.entries.Upsert(ctx, entry)
	if err != nil {
		return nil, apperrors.InternalError("failed to save check-in", err)
	}

	// Drop the writer's cached score so the next read reflects the check-in.
	if err := s.attention.Invalidate(ctx, domain.EntityClient, actor.ID); err != nil {
		slog.Warn("failed to invalidate attention score after check-in", "user_id", actor.ID, "error", err)
	}

	return stored, nil
}

func (s *EntryService) ListEntries(ctx context.Context, actor *domain.User, userID uuid.UUID, from, to time.Time) ([]domain.Entry, error) {
	if err := requireUserAccess(ctx, s.cohorts, actor, userID); err != nil {
		return nil, err
	}
	if to.Before(from) {
		return nil, apperrors.ValidationError("date range end must not be before start")
	}

	entries, err := s.entries.ListByUser(ctx, userID, midnightUTC(from), midnightUTC(to))
	if err != nil {
		return nil, apperrors.InternalError("failed to list check-ins", err)
	}
	return entries, nil
}

func (s *EntryService) Streak(ctx context.Context, actor *domain.User, userID uuid.UUID) (int, error) {
	if err := requireUserAccess(ctx, s.cohorts, actor, userID); err != nil {
		return 0, err
	}

	today := midnightUTC(s.clock.Now().UTC())
	// A streak of n days needs at most n dates; cap the scan at a year.
	dates, err := s.entries.DatesSince(ctx, userID, today.AddDate(-1, 0, 0))
	if err != nil {
		return 0, apperrors.InternalError("failed to compute streak", err)
	}
	return streakLength(dates, today), nil
}

// streakLength counts consecutive days ending today or yesterday. dates must
// be distinct midnight-UTC days, newest first.
func streakLength(dates []time.Time, today time.Time) int {
	if len(dates) == 0 {
		return 0
	}

	expect := today
	if !dates[0].Equal(today) {
		// A streak that ended yesterday still counts until midnight.
		expect = today.AddDate(0, 0, -1)
	}

	streak := 0
	for _, d := range dates {
		if !d.Equal(expect) {
			break
		}
		streak++
		expect = expect.AddDate(0, 0, -1)
	}
	return streak
}

func validateEntryMetrics(entry *domain.Entry) error {
	if entry.WeightKg != nil && (*entry.WeightKg < domain.MinWeightKg || *entry.WeightKg > domain.MaxWeightKg) {
		return apperrors.ValidationError(fmt.Sprintf("weight must be between %.0f and %.0f kg", domain.MinWeightKg, domain.MaxWeightKg))
	}
	if entry.Steps != nil && (*entry.Steps < 0 || *entry.Steps > domain.MaxSteps) {
		return apperrors.ValidationError(fmt.Sprintf("steps must be between 0 and %d", domain.MaxSteps))
	}
	if entry.SleepHours != nil && (*entry.SleepHours < 0 || *entry.SleepHours > domain.MaxSleepHours) {
		return apperrors.ValidationError(fmt.Sprintf("sleep hours must be between 0 and %.0f", domain.MaxSleepHours))
	}
	if entry.Energy != nil && (*entry.Energy < domain.MinScaleRating || *entry.Energy > domain.MaxScaleRating) {
		return apperrors.ValidationError(fmt.Sprintf("energy must be between %d and %d", domain.MinScaleRating, domain.MaxScaleRating))
	}
	if entry.Mood != nil && (*entry.Mood < domain.MinScaleRating || *entry.Mood > domain.MaxScaleRating) {
		return apperrors.ValidationError(fmt.Sprintf("mood must be between %d and %d", domain.MinScaleRating, domain.MaxScaleRating))
	}
	return nil
}

func midnightUTC(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
