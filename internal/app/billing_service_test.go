package app

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/strenly/coachpulse/internal/domain"
	apperrors "github.com/strenly/coachpulse/internal/errors"
)

type billingFixture struct {
	plans       *mockPlanRepo
	memberships *mockMembershipRepo
	invoices    *mockInvoiceRepo
	users       *mockUserRepo
	notifier    *mockNotifier
	audit       *mockAudit
	service     *BillingService
}

func newBillingFixture() *billingFixture {
	f := &billingFixture{
		plans:       &mockPlanRepo{},
		memberships: &mockMembershipRepo{},
		invoices:    &mockInvoiceRepo{},
		users:       &mockUserRepo{},
		notifier:    &mockNotifier{},
		audit:       &mockAudit{},
	}
	f.service = NewBillingService(f.plans, f.memberships, f.invoices, f.users, f.notifier, f.audit, clockwork.NewFakeClockAt(fixedNow))
	return f
}

func TestBillingService_CreatePlan_KindSpecificValidation(t *testing.T) {
	tests := []struct {
		name    string
		plan    domain.Plan
		wantErr bool
	}{
		{"valid recurring", domain.Plan{Name: "Weekly 3x", Kind: domain.PlanRecurring, PriceCents: 9900, Currency: "EUR", SessionsPerWeek: ptrInt(3)}, false},
		{"valid pack", domain.Plan{Name: "10 Pack", Kind: domain.PlanPack, PriceCents: 15000, Currency: "EUR", SessionCount: ptrInt(10)}, false},
		{"valid prepaid", domain.Plan{Name: "Quarter", Kind: domain.PlanPrepaid, PriceCents: 30000, Currency: "EUR", DurationDays: ptrInt(90)}, false},
		{"recurring without allowance", domain.Plan{Name: "Weekly", Kind: domain.PlanRecurring, Currency: "EUR"}, true},
		{"pack without count", domain.Plan{Name: "Pack", Kind: domain.PlanPack, Currency: "EUR"}, true},
		{"prepaid without duration", domain.Plan{Name: "Quarter", Kind: domain.PlanPrepaid, Currency: "EUR"}, true},
		{"unknown kind", domain.Plan{Name: "Weird", Kind: "metered", Currency: "EUR"}, true},
		{"negative price", domain.Plan{Name: "Free?", Kind: domain.PlanPack, PriceCents: -1, Currency: "EUR", SessionCount: ptrInt(5)}, true},
		{"missing currency", domain.Plan{Name: "Pack", Kind: domain.PlanPack, SessionCount: ptrInt(5)}, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			f := newBillingFixture()
			plan := tc.plan
			_, err := f.service.CreatePlan(context.Background(), testAdmin(), &plan)
			if tc.wantErr {
				require.Error(t, err)
				assert.Equal(t, apperrors.TypeValidation, apperrors.AsStructuredError(err).Type)
				return
			}
			require.NoError(t, err)
			assert.True(t, plan.Active, "new plans start active")
		})
	}
}

func TestBillingService_CreatePlan_AdminOnly(t *testing.T) {
	f := newBillingFixture()
	plan := &domain.Plan{Name: "Pack", Kind: domain.PlanPack, Currency: "EUR", SessionCount: ptrInt(5)}

	_, err := f.service.CreatePlan(context.Background(), testCoach(), plan)
	require.Error(t, err)
	assert.Equal(t, apperrors.TypeForbidden, apperrors.AsStructuredError(err).Type)
}

func TestBillingService_ListPlans_NonAdminsOnlySeeActive(t *testing.T) {
	f := newBillingFixture()
	var gotActiveOnly bool
	f.plans.listFn = func(_ context.Context, activeOnly bool) ([]domain.Plan, error) {
		gotActiveOnly = activeOnly
		return nil, nil
	}

	_, err := f.service.ListPlans(context.Background(), testClient(), false)
	require.NoError(t, err)
	assert.True(t, gotActiveOnly, "clients must not see deactivated plans")

	_, err = f.service.ListPlans(context.Background(), testAdmin(), false)
	require.NoError(t, err)
	assert.False(t, gotActiveOnly)
}

func TestBillingService_GrantMembership_PackSetsBalance(t *testing.T) {
	f := newBillingFixture()
	admin := testAdmin()
	client := testClient()
	plan := &domain.Plan{ID: uuid.New(), Name: "10 Pack", Kind: domain.PlanPack, SessionCount: ptrInt(10)}

	f.users.getByIDFn = func(_ context.Context, _ uuid.UUID) (*domain.User, error) { return client, nil }
	f.plans.getByIDFn = func(_ context.Context, _ uuid.UUID) (*domain.Plan, error) { return plan, nil }

	membership, err := f.service.GrantMembership(context.Background(), admin, client.ID, plan.ID)
	require.NoError(t, err)
	require.NotNil(t, membership.RemainingSessions)
	assert.Equal(t, 10, *membership.RemainingSessions)
	assert.Nil(t, membership.ExpiresAt)
	assert.Equal(t, domain.MembershipActive, membership.Status)
	assert.Contains(t, f.audit.actions, "membership.granted")
}

func TestBillingService_GrantMembership_PrepaidSetsExpiry(t *testing.T) {
	f := newBillingFixture()
	admin := testAdmin()
	client := testClient()
	plan := &domain.Plan{ID: uuid.New(), Name: "Quarter", Kind: domain.PlanPrepaid, DurationDays: ptrInt(90)}

	f.users.getByIDFn = func(_ context.Context, _ uuid.UUID) (*domain.User, error) { return client, nil }
	f.plans.getByIDFn = func(_ context.Context, _ uuid.UUID) (*domain.Plan, error) { return plan, nil }

	membership, err := f.service.GrantMembership(context.Background(), admin, client.ID, plan.ID)
	require.NoError(t, err)
	require.NotNil(t, membership.ExpiresAt)
	assert.Equal(t, fixedNow.AddDate(0, 0, 90), *membership.ExpiresAt)
}

func TestBillingService_GrantMembership_RejectsSecondActiveRecurring(t *testing.T) {
	f := newBillingFixture()
	admin := testAdmin()
	client := testClient()
	plan := &domain.Plan{ID: uuid.New(), Name: "Weekly 3x", Kind: domain.PlanRecurring, SessionsPerWeek: ptrInt(3)}

	f.users.getByIDFn = func(_ context.Context, _ uuid.UUID) (*domain.User, error) { return client, nil }
	f.plans.getByIDFn = func(_ context.Context, _ uuid.UUID) (*domain.Plan, error) { return plan, nil }
	f.memberships.hasActiveForPlanFn = func(_ context.Context, userID, planID uuid.UUID) (bool, error) {
		assert.Equal(t, client.ID, userID)
		assert.Equal(t, plan.ID, planID)
		return true, nil
	}
	f.memberships.createFn = func(_ context.Context, _ *domain.Membership) error {
		t.Fatal("must not create a second active recurring membership")
		return nil
	}

	_, err := f.service.GrantMembership(context.Background(), admin, client.ID, plan.ID)
	require.Error(t, err)
	assert.Equal(t, apperrors.TypeConflict, apperrors.AsStructuredError(err).Type)
}

func TestBillingService_ListInvoices_SelfOrAdminOnly(t *testing.T) {
	f := newBillingFixture()
	client := testClient()
	f.invoices.listByUserFn = func(_ context.Context, _ uuid.UUID) ([]domain.Invoice, error) {
		return []domain.Invoice{{Status: domain.InvoicePaid}}, nil
	}

	got, err := f.service.ListInvoices(context.Background(), client, client.ID)
	require.NoError(t, err)
	assert.Len(t, got, 1)

	// Coaches have no access to their clients' billing.
	_, err = f.service.ListInvoices(context.Background(), testCoach(), client.ID)
	require.Error(t, err)
	assert.Equal(t, apperrors.TypeForbidden, apperrors.AsStructuredError(err).Type)
}

func TestBillingService_ApplyInvoicePaid_ReactivatesPastDue(t *testing.T) {
	f := newBillingFixture()
	membership := &domain.Membership{ID: uuid.New(), UserID: uuid.New(), Status: domain.MembershipPastDue, ProviderSubscriptionID: "sub_1"}

	f.memberships.getByProviderSubscriptionFn = func(_ context.Context, subscriptionID string) (*domain.Membership, error) {
		require.Equal(t, "sub_1", subscriptionID)
		return membership, nil
	}
	var upserted *domain.Invoice
	f.invoices.upsertByProviderIDFn = func(_ context.Context, invoice *domain.Invoice) (*domain.Invoice, error) {
		upserted = invoice
		return invoice, nil
	}
	var newStatus domain.MembershipStatus
	f.memberships.updateStatusFn = func(_ context.Context, _ uuid.UUID, status domain.MembershipStatus, _ *time.Time) error {
		newStatus = status
		return nil
	}

	err := f.service.ApplyInvoicePaid(context.Background(), "in_1", "sub_1", 9900, "eur", fixedNow)
	require.NoError(t, err)
	require.NotNil(t, upserted)
	assert.Equal(t, domain.InvoicePaid, upserted.Status)
	assert.Equal(t, "EUR", upserted.Currency)
	assert.Equal(t, membership.ID, *upserted.MembershipID)
	assert.Equal(t, domain.MembershipActive, newStatus)
}

func TestBillingService_ApplyInvoicePaid_UnknownSubscription(t *testing.T) {
	f := newBillingFixture()

	err := f.service.ApplyInvoicePaid(context.Background(), "in_1", "sub_unknown", 9900, "eur", fixedNow)
	assert.ErrorIs(t, err, domain.ErrMembershipNotFound, "unknown references surface as raw sentinels")
}

func TestBillingService_ApplyInvoiceFailed_MarksPastDueAndNotifies(t *testing.T) {
	f := newBillingFixture()
	user := testClient()
	membership := &domain.Membership{ID: uuid.New(), UserID: user.ID, Status: domain.MembershipActive, ProviderSubscriptionID: "sub_1"}

	f.memberships.getByProviderSubscriptionFn = func(_ context.Context, _ string) (*domain.Membership, error) {
		return membership, nil
	}
	var newStatus domain.MembershipStatus
	f.memberships.updateStatusFn = func(_ context.Context, _ uuid.UUID, status domain.MembershipStatus, _ *time.Time) error {
		newStatus = status
		return nil
	}
	f.users.getByIDFn = func(_ context.Context, _ uuid.UUID) (*domain.User, error) { return user, nil }

	err := f.service.ApplyInvoiceFailed(context.Background(), "in_2", "sub_1", 9900, "eur", fixedNow)
	require.NoError(t, err)
	assert.Equal(t, domain.MembershipPastDue, newStatus)
	assert.Equal(t, []uuid.UUID{user.ID}, f.notifier.payments)
}

func TestBillingService_ApplySubscriptionCreated(t *testing.T) {
	f := newBillingFixture()
	user := testClient()
	plan := &domain.Plan{ID: uuid.New(), Kind: domain.PlanRecurring, ProviderPriceID: "price_1"}

	f.users.getByEmailFn = func(_ context.Context, email string) (*domain.User, error) {
		require.Equal(t, "client@example.com", email)
		return user, nil
	}
	f.plans.getByProviderIDFn = func(_ context.Context, _ string) (*domain.Plan, error) { return plan, nil }
	var created *domain.Membership
	f.memberships.createFn = func(_ context.Context, membership *domain.Membership) error {
		created = membership
		return nil
	}

	err := f.service.ApplySubscriptionCreated(context.Background(), "sub_9", "Client@Example.com", "price_1", fixedNow)
	require.NoError(t, err)
	require.NotNil(t, created)
	assert.Equal(t, user.ID, created.UserID)
	assert.Equal(t, plan.ID, created.PlanID)
	assert.Equal(t, "sub_9", created.ProviderSubscriptionID)
	assert.Equal(t, domain.MembershipActive, created.Status)
}

func TestBillingService_ApplySubscriptionCreated_SkipsPlanAlreadyHeld(t *testing.T) {
	f := newBillingFixture()
	user := testClient()
	plan := &domain.Plan{ID: uuid.New(), Kind: domain.PlanRecurring, ProviderPriceID: "price_1"}

	f.users.getByEmailFn = func(_ context.Context, _ string) (*domain.User, error) { return user, nil }
	f.plans.getByProviderIDFn = func(_ context.Context, _ string) (*domain.Plan, error) { return plan, nil }
	f.memberships.hasActiveForPlanFn = func(_ context.Context, _, _ uuid.UUID) (bool, error) {
		return true, nil
	}
	f.memberships.createFn = func(_ context.Context, _ *domain.Membership) error {
		t.Fatal("a second subscription on an already held plan must not create a membership")
		return nil
	}

	// A fresh subscription ID for a plan the user actively holds is swallowed
	// so the provider stops retrying.
	err := f.service.ApplySubscriptionCreated(context.Background(), "sub_other", "client@example.com", "price_1", fixedNow)
	require.NoError(t, err)
}

func TestBillingService_ApplySubscriptionCreated_Idempotent(t *testing.T) {
	f := newBillingFixture()

	f.memberships.getByProviderSubscriptionFn = func(_ context.Context, _ string) (*domain.Membership, error) {
		return &domain.Membership{ID: uuid.New()}, nil
	}
	f.memberships.createFn = func(_ context.Context, _ *domain.Membership) error {
		t.Fatal("must not create a second membership for the same subscription")
		return nil
	}

	err := f.service.ApplySubscriptionCreated(context.Background(), "sub_9", "client@example.com", "price_1", fixedNow)
	require.NoError(t, err)
}

func TestBillingService_ApplySubscriptionCancelled(t *testing.T) {
	f := newBillingFixture()
	membership := &domain.Membership{ID: uuid.New(), Status: domain.MembershipActive}

	f.memberships.getByProviderSubscriptionFn = func(_ context.Context, _ string) (*domain.Membership, error) {
		return membership, nil
	}
	var gotStatus domain.MembershipStatus
	var gotCancelledAt *time.Time
	f.memberships.updateStatusFn = func(_ context.Context, _ uuid.UUID, status domain.MembershipStatus, cancelledAt *time.Time) error {
		gotStatus, gotCancelledAt = status, cancelledAt
		return nil
	}

	err := f.service.ApplySubscriptionCancelled(context.Background(), "sub_1", fixedNow)
	require.NoError(t, err)
	assert.Equal(t, domain.MembershipCancelled, gotStatus)
	require.NotNil(t, gotCancelledAt)
	assert.Equal(t, fixedNow, *gotCancelledAt)
}

func TestBillingService_ApplySubscriptionCancelled_AlreadyCancelled(t *testing.T) {
	f := newBillingFixture()
	f.memberships.getByProviderSubscriptionFn = func(_ context.Context, _ string) (*domain.Membership, error) {
		return &domain.Membership{ID: uuid.New(), Status: domain.MembershipCancelled}, nil
	}
	f.memberships.updateStatusFn = func(_ context.Context, _ uuid.UUID, _ domain.MembershipStatus, _ *time.Time) error {
		t.Fatal("must not touch an already cancelled membership")
		return nil
	}

	require.NoError(t, f.service.ApplySubscriptionCancelled(context.Background(), "sub_1", fixedNow))
}
