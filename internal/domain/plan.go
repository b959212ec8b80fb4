package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// PlanKind determines which allowance rule a membership enforces at
// session registration time.
type PlanKind string

const (
	// PlanRecurring caps registrations per ISO week.
	PlanRecurring PlanKind = "recurring"
	// PlanPack grants a fixed balance of sessions, decremented per registration.
	PlanPack PlanKind = "pack"
	// PlanPrepaid grants unlimited sessions until an expiry date.
	PlanPrepaid PlanKind = "prepaid"
)

func (k PlanKind) Valid() bool {
	switch k {
	case PlanRecurring, PlanPack, PlanPrepaid:
		return true
	}
	return false
}

// Plan is a purchasable billing/session-allowance plan. Exactly one of the
// kind-specific fields is set depending on Kind. ProviderPriceID maps
// payment-provider subscription events back to the local plan.
type Plan struct {
	ID              uuid.UUID
	Name            string
	Kind            PlanKind
	PriceCents      int
	Currency        string
	SessionsPerWeek *int
	SessionCount    *int
	DurationDays    *int
	ProviderPriceID string
	Active          bool
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// PlanUpdate holds optional plan mutations. Kind is immutable after creation.
type PlanUpdate struct {
	Name            *string
	PriceCents      *int
	SessionsPerWeek *int
	SessionCount    *int
	DurationDays    *int
	ProviderPriceID *string
	Active          *bool
}

type PlanRepository interface {
	Create(ctx context.Context, plan *Plan) error
	GetByID(ctx context.Context, planID uuid.UUID) (*Plan, error)
	GetByProviderPriceID(ctx context.Context, providerPriceID string) (*Plan, error)
	// List returns all plans; activeOnly hides deactivated ones.
	List(ctx context.Context, activeOnly bool) ([]Plan, error)
	Update(ctx context.Context, planID uuid.UUID, update PlanUpdate) (*Plan, error)
}
