package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/strenly/coachpulse/internal/domain"
	apperrors "github.com/strenly/coachpulse/internal/errors"
	"github.com/strenly/coachpulse/internal/logging"
)

// BillingService implements domain.BillingService. The Apply* methods back
// the payment-provider webhook and deliberately return raw domain sentinels;
// the webhook handler decides which of those are worth retrying.
type BillingService struct {
	plans       domain.PlanRepository
	memberships domain.MembershipRepository
	invoices    domain.InvoiceRepository
	users       domain.UserRepository
	notifier    domain.Notifier
	audit       domain.AuditService
	clock       clockwork.Clock
}

var _ domain.BillingService = (*BillingService)(nil)

func NewBillingService(
	plans domain.PlanRepository,
	memberships domain.MembershipRepository,
	invoices domain.InvoiceRepository,
	users domain.UserRepository,
	notifier domain.Notifier,
	audit domain.AuditService,
	clock clockwork.Clock,
) *BillingService {
	return &BillingService{
		plans:       plans,
		memberships: memberships,
		invoices:    invoices,
		users:       users,
		notifier:    notifier,
		audit:       audit,
		clock:       clock,
	}
}

func (s *BillingService) CreatePlan(ctx context.Context, actor *domain.User, plan *domain.Plan) (*domain.Plan, error) {
	if err := requireRole(actor, domain.RoleAdmin); err != nil {
		return nil, err
	}
	if err := validatePlan(plan); err != nil {
		return nil, err
	}
	plan.Active = true

	if err := s.plans.Create(ctx, plan); err != nil {
		return nil, apperrors.InternalError("failed to create plan", err)
	}
	return plan, nil
}

func (s *BillingService) GetPlan(ctx context.Context, actor *domain.User, planID uuid.UUID) (*domain.Plan, error) {
	plan, err := s.plans.GetByID(ctx, planID)
	if err != nil {
		return nil, translate(err, "Plan not found")
	}
	if !plan.Active && actor.Role != domain.RoleAdmin {
		return nil, apperrors.NotFoundError("Plan not found")
	}
	return plan, nil
}

func (s *BillingService) ListPlans(ctx context.Context, actor *domain.User, activeOnly bool) ([]domain.Plan, error) {
	// Only admins see deactivated plans.
	if actor.Role != domain.RoleAdmin {
		activeOnly = true
	}
	plans, err := s.plans.List(ctx, activeOnly)
	if err != nil {
		return nil, apperrors.InternalError("failed to list plans", err)
	}
	return plans, nil
}

func (s *BillingService) UpdatePlan(ctx context.Context, actor *domain.User, planID uuid.UUID, update domain.PlanUpdate) (*domain.Plan, error) {
	if err := requireRole(actor, domain.RoleAdmin); err != nil {
		return nil, err
	}
	if update.Name != nil && *update.Name == "" {
		return nil, apperrors.ValidationError("plan name cannot be empty")
	}
	if update.PriceCents != nil && *update.PriceCents < 0 {
		return nil, apperrors.ValidationError("plan price cannot be negative")
	}

	plan, err := s.plans.Update(ctx, planID, update)
	if err != nil {
		return nil, translate(err, "Plan not found")
	}
	return plan, nil
}

// GrantMembership creates a membership by hand, outside the payment provider.
// Used for comps, trials and imports.
func (s *BillingService) GrantMembership(ctx context.Context, actor *domain.User, userID, planID uuid.UUID) (*domain.Membership, error) {
	if err := requireRole(actor, domain.RoleAdmin); err != nil {
		return nil, err
	}

	if _, err := s.users.GetByID(ctx, userID); err != nil {
		return nil, translate(err, "User not found")
	}
	plan, err := s.plans.GetByID(ctx, planID)
	if err != nil {
		return nil, translate(err, "Plan not found")
	}

	if plan.Kind == domain.PlanRecurring {
		held, err := s.memberships.HasActiveForPlan(ctx, userID, planID)
		if err != nil {
			return nil, apperrors.InternalError("failed to check existing memberships", err)
		}
		if held {
			return nil, apperrors.ConflictError("user already has an active membership for this plan")
		}
	}

	now := s.clock.Now().UTC()
	membership := &domain.Membership{
		UserID:    userID,
		PlanID:    planID,
		Status:    domain.MembershipActive,
		StartedAt: now,
	}
	switch plan.Kind {
	case domain.PlanPack:
		balance := *plan.SessionCount
		membership.RemainingSessions = &balance
	case domain.PlanPrepaid:
		expiresAt := now.AddDate(0, 0, *plan.DurationDays)
		membership.ExpiresAt = &expiresAt
	}

	if err := s.memberships.Create(ctx, membership); err != nil {
		return nil, apperrors.InternalError("failed to create membership", err)
	}

	s.audit.Record(ctx, actor.ID, "membership.granted", "membership", membership.ID.String(), map[string]any{
		"user_id": userID.String(),
		"plan_id": planID.String(),
	})
	return membership, nil
}

func (s *BillingService) ListMemberships(ctx context.Context, actor *domain.User, userID uuid.UUID) ([]domain.MembershipWithPlan, error) {
	if err := requireBillingAccess(actor, userID); err != nil {
		return nil, err
	}
	memberships, err := s.memberships.ListByUser(ctx, userID)
	if err != nil {
		return nil, apperrors.InternalError("failed to list memberships", err)
	}
	return memberships, nil
}

func (s *BillingService) ListInvoices(ctx context.Context, actor *domain.User, userID uuid.UUID) ([]domain.Invoice, error) {
	if err := requireBillingAccess(actor, userID); err != nil {
		return nil, err
	}
	invoices, err := s.invoices.ListByUser(ctx, userID)
	if err != nil {
		return nil, apperrors.InternalError("failed to list invoices", err)
	}
	return invoices, nil
}

func (s *BillingService) ApplyInvoicePaid(ctx context.Context, providerInvoiceID, subscriptionID string, amountCents int64, currency string, issuedAt time.Time) error {
	membership, err := s.memberships.GetByProviderSubscription(ctx, subscriptionID)
	if err != nil {
		return err
	}

	invoice := &domain.Invoice{
		ProviderInvoiceID: providerInvoiceID,
		UserID:            membership.UserID,
		MembershipID:      &membership.ID,
		AmountCents:       amountCents,
		Currency:          strings.ToUpper(currency),
		Status:            domain.InvoicePaid,
		IssuedAt:          issuedAt,
	}
	if _, err := s.invoices.UpsertByProviderID(ctx, invoice); err != nil {
		return fmt.Errorf("failed to record paid invoice: %w", err)
	}

	// A successful payment clears a past-due membership.
	if membership.Status == domain.MembershipPastDue {
		if err := s.memberships.UpdateStatus(ctx, membership.ID, domain.MembershipActive, nil); err != nil {
			return fmt.Errorf("failed to reactivate membership: %w", err)
		}
	}
	return nil
}

func (s *BillingService) ApplyInvoiceFailed(ctx context.Context, providerInvoiceID, subscriptionID string, amountCents int64, currency string, issuedAt time.Time) error {
	membership, err := s.memberships.GetByProviderSubscription(ctx, subscriptionID)
	if err != nil {
		return err
	}

	invoice := &domain.Invoice{
		ProviderInvoiceID: providerInvoiceID,
		UserID:            membership.UserID,
		MembershipID:      &membership.ID,
		AmountCents:       amountCents,
		Currency:          strings.ToUpper(currency),
		Status:            domain.InvoiceFailed,
		IssuedAt:          issuedAt,
	}
	if _, err := s.invoices.UpsertByProviderID(ctx, invoice); err != nil {
		return fmt.Errorf("failed to record failed invoice: %w", err)
	}

	if membership.Status == domain.MembershipActive {
		if err := s.memberships.UpdateStatus(ctx, membership.ID, domain.MembershipPastDue, nil); err != nil {
			return fmt.Errorf("failed to mark membership past due: %w", err)
		}
	}

	if user, err := s.users.GetByID(ctx, membership.UserID); err == nil {
		s.notifier.SendPaymentFailed(ctx, user, amountCents, strings.ToUpper(currency))
	} else {
		logging.WithUser(membership.UserID.String()).Warn("failed to load user for payment-failed notification", "error", err)
	}
	return nil
}

func (s *BillingService) ApplySubscriptionCreated(ctx context.Context, subscriptionID, customerEmail, providerPriceID string, startedAt time.Time) error {
	// Retried deliveries arrive with the same subscription ID; the first
	// delivery wins.
	if _, err := s.memberships.GetByProviderSubscription(ctx, subscriptionID); err == nil {
		return nil
	} else if !errors.Is(err, domain.ErrMembershipNotFound) {
		return fmt.Errorf("failed to check for existing membership: %w", err)
	}

	user, err := s.users.GetByEmail(ctx, strings.ToLower(customerEmail))
	if err != nil {
		return err
	}
	plan, err := s.plans.GetByProviderPriceID(ctx, providerPriceID)
	if err != nil {
		return err
	}

	// A second subscription for a plan the user already actively holds would
	// break the one-active-membership rule. Acknowledge without creating a
	// row so the provider does not retry.
	held, err := s.memberships.HasActiveForPlan(ctx, user.ID, plan.ID)
	if err != nil {
		return fmt.Errorf("failed to check existing memberships: %w", err)
	}
	if held {
		logging.WithUser(user.ID.String()).Warn("ignoring subscription for plan the user already holds",
			"subscription_id", subscriptionID, "plan_id", plan.ID.String())
		return nil
	}

	membership := &domain.Membership{
		UserID:                 user.ID,
		PlanID:                 plan.ID,
		Status:                 domain.MembershipActive,
		ProviderSubscriptionID: subscriptionID,
		StartedAt:              startedAt,
	}
	if err := s.memberships.Create(ctx, membership); err != nil {
		return fmt.Errorf("failed to create membership from subscription: %w", err)
	}
	return nil
}

func (s *BillingService) ApplySubscriptionCancelled(ctx context.Context, subscriptionID string, cancelledAt time.Time) error {
	membership, err := s.memberships.GetByProviderSubscription(ctx, subscriptionID)
	if err != nil {
		return err
	}
	if membership.Status == domain.MembershipCancelled {
		return nil
	}

	if err := s.memberships.UpdateStatus(ctx, membership.ID, domain.MembershipCancelled, &cancelledAt); err != nil {
		return fmt.Errorf("failed to cancel membership: %w", err)
	}
	return nil
}

// requireBillingAccess keeps billing data between the user and admins;
// coaches have no business reading their clients' invoices.
func requireBillingAccess(actor *domain.User, userID uuid.UUID) error {
	if actor.ID == userID || actor.Role == domain.RoleAdmin {
		return nil
	}
	return apperrors.ForbiddenError("Forbidden")
}

func validatePlan(plan *domain.Plan) error {
	if plan.Name == "" {
		return apperrors.ValidationError("plan name cannot be empty")
	}
	if !plan.Kind.Valid() {
		return apperrors.ValidationError("plan kind must be recurring, pack or prepaid")
	}
	if plan.PriceCents < 0 {
		return apperrors.ValidationError("plan price cannot be negative")
	}
	if plan.Currency == "" {
		return apperrors.ValidationError("plan currency cannot be empty")
	}

	switch plan.Kind {
	case domain.PlanRecurring:
		if plan.SessionsPerWeek == nil || *plan.SessionsPerWeek < 1 {
			return apperrors.ValidationError("recurring plans need a weekly session allowance of at least 1")
		}
	case domain.PlanPack:
		if plan.SessionCount == nil || *plan.SessionCount < 1 {
			return apperrors.ValidationError("pack plans need a session count of at least 1")
		}
	case domain.PlanPrepaid:
		if plan.DurationDays == nil || *plan.DurationDays < 1 {
			return apperrors.ValidationError("prepaid plans need a duration of at least 1 day")
		}
	}
	return nil
}
