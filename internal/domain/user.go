package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Role is the coarse authorization level of a user. Roles are ordered:
// admin covers coach, coach covers client.
type Role string

const (
	RoleClient Role = "client"
	RoleCoach  Role = "coach"
	RoleAdmin  Role = "admin"
)

var roleRank = map[Role]int{RoleClient: 1, RoleCoach: 2, RoleAdmin: 3}

func (r Role) Valid() bool {
	_, ok := roleRank[r]
	return ok
}

// Covers reports whether r grants at least the privileges of required.
func (r Role) Covers(required Role) bool {
	return roleRank[r] >= roleRank[required]
}

type User struct {
	ID              uuid.UUID
	ProviderSubject string
	Email           string
	DisplayName     string
	Role            Role
	// CheckinTarget is the expected number of check-in entries per week (1-7).
	// Attention scoring measures clients against it.
	CheckinTarget int
	Timezone      string
	Active        bool
	// Provider tokens are kept in User struct for simplicity. Rationale:
	// - User and tokens have identical lifecycle (created/updated together)
	// - No use case for querying users without tokens or vice versa
	// - Token encryption is handled at repository layer, not domain layer
	AccessToken  string
	RefreshToken string
	TokenExpiry  time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// DefaultCheckinTarget is applied when a user has never set a weekly target.
const DefaultCheckinTarget = 7

// ProviderLogin carries the identity claims and tokens obtained from the
// identity provider during the OAuth callback.
type ProviderLogin struct {
	Subject      string
	Email        string
	DisplayName  string
	AccessToken  string
	RefreshToken string
	TokenExpiry  time.Time
}

// ProfileUpdate holds optional profile mutations. Nil fields are left untouched.
type ProfileUpdate struct {
	DisplayName   *string
	Timezone      *string
	CheckinTarget *int
}

// UserListFilter narrows List results. Zero values mean no filter.
type UserListFilter struct {
	Role   Role
	Active *bool
	// Search matches display name or email, case-insensitive substring.
	Search string
	// CoachID restricts results to clients of cohorts run by this coach.
	CoachID uuid.UUID
	Limit   int
}

type UserRepository interface {
	GetByID(ctx context.Context, userID uuid.UUID) (*User, error)
	GetByProviderSubject(ctx context.Context, subject string) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	// UpsertFromLogin creates the user on first login (role client, default
	// check-in target) or refreshes identity fields and tokens on subsequent
	// logins. The bool reports whether the row was created.
	UpsertFromLogin(ctx context.Context, login ProviderLogin) (*User, bool, error)
	List(ctx context.Context, filter UserListFilter) ([]User, error)
	UpdateProfile(ctx context.Context, userID uuid.UUID, update ProfileUpdate) (*User, error)
	SetRole(ctx context.Context, userID uuid.UUID, role Role) error
	SetActive(ctx context.Context, userID uuid.UUID, active bool) error
}
