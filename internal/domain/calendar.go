package domain

import (
	"context"
	"time"
)

// CalendarEvent is the shape pushed to the external calendar provider for a
// class session.
type CalendarEvent struct {
	Title    string
	StartsAt time.Time
	EndsAt   time.Time
}

// CalendarClient wraps the calendar provider's REST API. Implementations
// handle retries and circuit breaking; callers treat failures as best-effort.
type CalendarClient interface {
	CreateEvent(ctx context.Context, event CalendarEvent) (string, error)
	UpdateEvent(ctx context.Context, eventID string, event CalendarEvent) error
	DeleteEvent(ctx context.Context, eventID string) error
}
