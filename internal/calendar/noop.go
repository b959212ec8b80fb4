package calendar

import (
	"context"

	"github.com/strenly/coachpulse/internal/domain"
)

// NoopClient satisfies domain.CalendarClient without talking to anything.
// Used when no calendar provider is configured.
type NoopClient struct{}

var _ domain.CalendarClient = NoopClient{}

func (NoopClient) CreateEvent(context.Context, domain.CalendarEvent) (string, error) {
	return "", nil
}

func (NoopClient) UpdateEvent(context.Context, string, domain.CalendarEvent) error { return nil }

func (NoopClient) DeleteEvent(context.Context, string) error { return nil }
