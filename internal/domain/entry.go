package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Entry is a client's daily check-in. One entry per user per calendar day;
// writing again for the same day overwrites the previous record.
type Entry struct {
	ID     uuid.UUID
	UserID uuid.UUID
	// EntryDate is a calendar date, stored as midnight UTC.
	EntryDate  time.Time
	WeightKg   *float64
	Steps      *int
	SleepHours *float64
	Energy     *int
	Mood       *int
	Notes      string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Validation bounds for check-in metrics.
const (
	MinWeightKg    = 20.0
	MaxWeightKg    = 400.0
	MaxSteps       = 200000
	MaxSleepHours  = 24.0
	MinScaleRating = 1
	MaxScaleRating = 5

	// BackfillDays is how far in the past an entry date may lie.
	BackfillDays = 14
)

type EntryRepository interface {
	// Upsert inserts the entry or overwrites the existing row for
	// (user, entry date), returning the stored state.
	Upsert(ctx context.Context, entry *Entry) (*Entry, error)
	ListByUser(ctx context.Context, userID uuid.UUID, from, to time.Time) ([]Entry, error)
	// LastEntryDate returns nil when the user has never checked in.
	LastEntryDate(ctx context.Context, userID uuid.UUID) (*time.Time, error)
	CountSince(ctx context.Context, userID uuid.UUID, since time.Time) (int, error)
	// DatesSince returns distinct entry dates newest first.
	DatesSince(ctx context.Context, userID uuid.UUID, since time.Time) ([]time.Time, error)
	// LastEntryDates returns the most recent entry date per user, omitting
	// users without entries.
	LastEntryDates(ctx context.Context, userIDs []uuid.UUID) (map[uuid.UUID]time.Time, error)
}
