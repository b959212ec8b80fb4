package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Cohort is a fixed-duration coaching program run by one coach.
type Cohort struct {
	ID          uuid.UUID
	Name        string
	Description string
	CoachID     uuid.UUID
	StartsOn    time.Time
	EndsOn      time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// CohortUpdate holds optional cohort mutations. Nil fields are left untouched.
type CohortUpdate struct {
	Name        *string
	Description *string
	StartsOn    *time.Time
	EndsOn      *time.Time
}

// RosterEntry is the read model for a cohort member list, joined with the
// member's most recent check-in. Bucket is decorated by the service layer
// from the attention cache and may be empty when scoring is unavailable.
type RosterEntry struct {
	UserID        uuid.UUID
	DisplayName   string
	Email         string
	JoinedAt      time.Time
	LastEntryDate *time.Time
	Bucket        Bucket
}

type CohortRepository interface {
	Create(ctx context.Context, cohort *Cohort) error
	GetByID(ctx context.Context, cohortID uuid.UUID) (*Cohort, error)
	List(ctx context.Context) ([]Cohort, error)
	ListByCoach(ctx context.Context, coachID uuid.UUID) ([]Cohort, error)
	ListForMember(ctx context.Context, userID uuid.UUID) ([]Cohort, error)
	Update(ctx context.Context, cohortID uuid.UUID, update CohortUpdate) (*Cohort, error)
	SetCoach(ctx context.Context, cohortID, coachID uuid.UUID) error
	// Delete removes the cohort, its memberships and its cached attention rows
	// in one transaction. Class sessions keep a NULL cohort reference.
	Delete(ctx context.Context, cohortID uuid.UUID) error

	AddMember(ctx context.Context, cohortID, userID uuid.UUID) error
	RemoveMember(ctx context.Context, cohortID, userID uuid.UUID) error
	ListMembers(ctx context.Context, cohortID uuid.UUID) ([]RosterEntry, error)
	MemberIDs(ctx context.Context, cohortID uuid.UUID) ([]uuid.UUID, error)
	IsMember(ctx context.Context, cohortID, userID uuid.UUID) (bool, error)
	// IsCoachOf reports whether userID belongs to any cohort run by coachID.
	IsCoachOf(ctx context.Context, coachID, userID uuid.UUID) (bool, error)
}
