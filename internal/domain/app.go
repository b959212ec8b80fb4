package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Service interfaces consumed by the HTTP handlers. All methods taking an
// actor enforce row-level authorization (self / own-cohort coach / admin)
// and return typed errors for the middleware to translate.

// UserService handles login completion and user administration.
type UserService interface {
	// CompleteLogin upserts the user for a verified provider identity and
	// rejects deactivated accounts.
	CompleteLogin(ctx context.Context, login ProviderLogin) (*User, error)
	// ResolveSessionUser loads the user behind a session cookie; deactivated
	// or deleted users resolve as unauthorized.
	ResolveSessionUser(ctx context.Context, userID uuid.UUID) (*User, error)
	GetUser(ctx context.Context, actor *User, userID uuid.UUID) (*User, error)
	ListUsers(ctx context.Context, actor *User, filter UserListFilter) ([]User, error)
	UpdateProfile(ctx context.Context, actor *User, userID uuid.UUID, update ProfileUpdate) (*User, error)
	SetRole(ctx context.Context, actor *User, userID uuid.UUID, role Role) error
	SetActive(ctx context.Context, actor *User, userID uuid.UUID, active bool) error
}

// CohortService handles cohorts and their member lists.
type CohortService interface {
	CreateCohort(ctx context.Context, actor *User, cohort *Cohort) (*Cohort, error)
	GetCohort(ctx context.Context, actor *User, cohortID uuid.UUID) (*Cohort, error)
	ListCohorts(ctx context.Context, actor *User) ([]Cohort, error)
	UpdateCohort(ctx context.Context, actor *User, cohortID uuid.UUID, update CohortUpdate) (*Cohort, error)
	AssignCoach(ctx context.Context, actor *User, cohortID, coachID uuid.UUID) error
	DeleteCohort(ctx context.Context, actor *User, cohortID uuid.UUID) error
	AddMember(ctx context.Context, actor *User, cohortID, userID uuid.UUID) error
	RemoveMember(ctx context.Context, actor *User, cohortID, userID uuid.UUID) error
	ListRoster(ctx context.Context, actor *User, cohortID uuid.UUID) ([]RosterEntry, error)
}

// EntryService handles daily check-ins.
type EntryService interface {
	UpsertEntry(ctx context.Context, actor *User, entry *Entry) (*Entry, error)
	ListEntries(ctx context.Context, actor *User, userID uuid.UUID, from, to time.Time) ([]Entry, error)
	// Streak is the number of consecutive check-in days ending today or
	// yesterday.
	Streak(ctx context.Context, actor *User, userID uuid.UUID) (int, error)
}

// SessionService handles class sessions, registration and the waitlist.
type SessionService interface {
	CreateSession(ctx context.Context, actor *User, session *Session) (*Session, error)
	GetSession(ctx context.Context, actor *User, sessionID uuid.UUID) (*Session, error)
	ListSessions(ctx context.Context, actor *User, filter SessionListFilter) ([]Session, error)
	UpdateSession(ctx context.Context, actor *User, sessionID uuid.UUID, update SessionUpdate) (*Session, error)
	DeleteSession(ctx context.Context, actor *User, sessionID uuid.UUID) error
	Register(ctx context.Context, actor *User, sessionID, userID uuid.UUID) (*RegistrationOutcome, error)
	CancelRegistration(ctx context.Context, actor *User, sessionID, userID uuid.UUID) (*CancellationOutcome, error)
	Roster(ctx context.Context, actor *User, sessionID uuid.UUID) ([]RosterRegistration, error)
	ListOwnUpcoming(ctx context.Context, actor *User) ([]UpcomingRegistration, error)
}

// BillingService handles plans, memberships, invoices and payment-provider
// webhook events. The Apply* methods are idempotent per provider ID and
// return ErrMembershipNotFound/ErrPlanNotFound/ErrUserNotFound for unknown
// references so the webhook handler can swallow and log them.
type BillingService interface {
	CreatePlan(ctx context.Context, actor *User, plan *Plan) (*Plan, error)
	GetPlan(ctx context.Context, actor *User, planID uuid.UUID) (*Plan, error)
	ListPlans(ctx context.Context, actor *User, activeOnly bool) ([]Plan, error)
	UpdatePlan(ctx context.Context, actor *User, planID uuid.UUID, update PlanUpdate) (*Plan, error)
	GrantMembership(ctx context.Context, actor *User, userID, planID uuid.UUID) (*Membership, error)
	ListMemberships(ctx context.Context, actor *User, userID uuid.UUID) ([]MembershipWithPlan, error)
	ListInvoices(ctx context.Context, actor *User, userID uuid.UUID) ([]Invoice, error)

	ApplyInvoicePaid(ctx context.Context, providerInvoiceID, subscriptionID string, amountCents int64, currency string, issuedAt time.Time) error
	ApplyInvoiceFailed(ctx context.Context, providerInvoiceID, subscriptionID string, amountCents int64, currency string, issuedAt time.Time) error
	ApplySubscriptionCreated(ctx context.Context, subscriptionID, customerEmail, providerPriceID string, startedAt time.Time) error
	ApplySubscriptionCancelled(ctx context.Context, subscriptionID string, cancelledAt time.Time) error
}

// AttentionService computes and serves engagement-risk scores.
type AttentionService interface {
	// Score serves the cached value when fresh, recomputing otherwise.
	Score(ctx context.Context, actor *User, entityType EntityType, entityID uuid.UUID) (*AttentionScore, error)
	// Refresh recomputes unconditionally.
	Refresh(ctx context.Context, actor *User, entityType EntityType, entityID uuid.UUID) (*AttentionScore, error)
	// Queue lists a coach's clients (or all clients for admins) sorted by
	// score descending.
	Queue(ctx context.Context, actor *User, limit int) ([]QueueEntry, error)
}

// QuestionnaireService handles questionnaire bundles and responses.
type QuestionnaireService interface {
	CreateQuestionnaire(ctx context.Context, actor *User, q *Questionnaire) (*Questionnaire, error)
	GetQuestionnaire(ctx context.Context, actor *User, questionnaireID uuid.UUID) (*Questionnaire, error)
	ListForCohort(ctx context.Context, actor *User, cohortID uuid.UUID) ([]Questionnaire, error)
	ListAssigned(ctx context.Context, actor *User) ([]Questionnaire, error)
	UpdateQuestionnaire(ctx context.Context, actor *User, q *Questionnaire) (*Questionnaire, error)
	DeleteQuestionnaire(ctx context.Context, actor *User, questionnaireID uuid.UUID) error
	SubmitResponse(ctx context.Context, actor *User, questionnaireID uuid.UUID, answers []Answer) (*Response, error)
	ListResponses(ctx context.Context, actor *User, questionnaireID uuid.UUID) ([]Response, *CompletionStats, error)
}

// ReportService serves chart-ready aggregates.
type ReportService interface {
	CohortWeeklyCheckins(ctx context.Context, actor *User, cohortID uuid.UUID) ([]SeriesPoint, error)
	ClientWeightTrend(ctx context.Context, actor *User, userID uuid.UUID, from, to time.Time) ([]SeriesPoint, error)
	CohortAttendance(ctx context.Context, actor *User, cohortID uuid.UUID) ([]AttendancePoint, error)
	MonthlyRevenue(ctx context.Context, actor *User) ([]SeriesPoint, error)
	ActiveMembershipsPerPlan(ctx context.Context, actor *User) ([]SeriesPoint, error)
}

// AuditService records and lists admin-relevant mutations.
type AuditService interface {
	// Record is best-effort: failures are logged, never returned.
	Record(ctx context.Context, actorID uuid.UUID, action, entityType, entityID string, metadata map[string]any)
	List(ctx context.Context, actor *User, filter AuditFilter) ([]AuditRecord, error)
}
