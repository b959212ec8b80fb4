package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Session is a scheduled group class run by a coach, optionally tied to a
// cohort. CalendarEventID is set once the session has been pushed to the
// external calendar.
type Session struct {
	ID              uuid.UUID
	CoachID         uuid.UUID
	CohortID        *uuid.UUID
	Title           string
	StartsAt        time.Time
	EndsAt          time.Time
	Capacity        int
	CalendarEventID string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

type SessionUpdate struct {
	Title    *string
	StartsAt *time.Time
	EndsAt   *time.Time
	Capacity *int
}

type SessionListFilter struct {
	CoachID  uuid.UUID
	CohortID uuid.UUID
	From     time.Time
	To       time.Time
}

type RegistrationStatus string

const (
	RegistrationRegistered RegistrationStatus = "registered"
	RegistrationWaitlisted RegistrationStatus = "waitlisted"
	RegistrationCancelled  RegistrationStatus = "cancelled"
)

// Registration ties a client to a session. Waitlisted rows carry a position;
// positions stay sparse-monotonic after cancellations, order is what matters.
type Registration struct {
	ID        uuid.UUID
	SessionID uuid.UUID
	UserID    uuid.UUID
	Status    RegistrationStatus
	Position  *int
	CreatedAt time.Time
	UpdatedAt time.Time
}

// RegistrationOutcome reports what the registration transaction decided.
type RegistrationOutcome struct {
	Registration *Registration
	// Waitlisted is true when capacity was full and the registrant was queued
	// instead. No allowance is consumed for waitlisted registrations.
	Waitlisted bool
}

// CancellationOutcome reports the effects of cancelling a registration.
type CancellationOutcome struct {
	Cancelled *Registration
	// Promoted is the first waitlisted registration flipped to registered in
	// the same transaction, nil when the waitlist was empty or every
	// waitlisted registrant lacked allowance.
	Promoted *Registration
	// Refunded is true when a pack membership balance was restored because
	// the cancellation happened at least 24h before the session start.
	Refunded bool
}

// RosterRegistration is the read model for a session roster row.
type RosterRegistration struct {
	Registration
	DisplayName string
	Email       string
}

// UpcomingRegistration pairs a client's registration with its session.
type UpcomingRegistration struct {
	Session  Session
	Status   RegistrationStatus
	Position *int
}

type SessionRepository interface {
	Create(ctx context.Context, session *Session) error
	GetByID(ctx context.Context, sessionID uuid.UUID) (*Session, error)
	List(ctx context.Context, filter SessionListFilter) ([]Session, error)
	Update(ctx context.Context, sessionID uuid.UUID, update SessionUpdate) (*Session, error)
	Delete(ctx context.Context, sessionID uuid.UUID) error
	SetCalendarEventID(ctx context.Context, sessionID uuid.UUID, eventID string) error
	// ListMissingCalendarEvent returns future sessions that have no external
	// calendar event yet, for the nightly resync.
	ListMissingCalendarEvent(ctx context.Context, from time.Time) ([]Session, error)

	// Register runs the whole registration decision in one transaction:
	// allowance check against the user's active membership (weekly cap for
	// recurring, balance for pack, expiry for prepaid), capacity check, and
	// waitlist fallback at max(position)+1.
	Register(ctx context.Context, sessionID, userID uuid.UUID, now time.Time) (*RegistrationOutcome, error)
	// CancelRegistration cancels in one transaction and promotes the first
	// waitlisted registrant with remaining allowance, if any.
	CancelRegistration(ctx context.Context, sessionID, userID uuid.UUID, now time.Time) (*CancellationOutcome, error)
	Roster(ctx context.Context, sessionID uuid.UUID) ([]RosterRegistration, error)
	ListUpcomingForUser(ctx context.Context, userID uuid.UUID, now time.Time) ([]UpcomingRegistration, error)
}
