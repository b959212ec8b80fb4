package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type MembershipStatus string

const (
	MembershipActive    MembershipStatus = "active"
	MembershipPastDue   MembershipStatus = "past_due"
	MembershipCancelled MembershipStatus = "cancelled"
	MembershipExpired   MembershipStatus = "expired"
)

// Membership grants a user the allowance of a plan. RemainingSessions is only
// meaningful for pack plans, ExpiresAt for prepaid plans, and
// ProviderSubscriptionID for recurring plans created by the payment provider.
type Membership struct {
	ID                     uuid.UUID
	UserID                 uuid.UUID
	PlanID                 uuid.UUID
	Status                 MembershipStatus
	RemainingSessions      *int
	ExpiresAt              *time.Time
	ProviderSubscriptionID string
	StartedAt              time.Time
	CancelledAt            *time.Time
	CreatedAt              time.Time
	UpdatedAt              time.Time
}

// MembershipWithPlan is the read model for membership listings.
type MembershipWithPlan struct {
	Membership
	PlanName string
	PlanKind PlanKind
}

type MembershipRepository interface {
	Create(ctx context.Context, membership *Membership) error
	GetByID(ctx context.Context, membershipID uuid.UUID) (*Membership, error)
	// HasActiveForPlan reports whether the user already holds an active
	// membership on the given plan.
	HasActiveForPlan(ctx context.Context, userID, planID uuid.UUID) (bool, error)
	GetByProviderSubscription(ctx context.Context, subscriptionID string) (*Membership, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]MembershipWithPlan, error)
	UpdateStatus(ctx context.Context, membershipID uuid.UUID, status MembershipStatus, cancelledAt *time.Time) error
	// ListExpiringBetween returns active prepaid memberships whose expiry
	// falls inside [from, to), for the expiring-soon notification job.
	ListExpiringBetween(ctx context.Context, from, to time.Time) ([]Membership, error)
	// MarkExpired flips active memberships past their expiry to expired and
	// returns how many rows changed.
	MarkExpired(ctx context.Context, now time.Time) (int64, error)
}
