package app

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/strenly/coachpulse/internal/domain"
)

// --- Mock implementations ---

type mockUserRepo struct {
	getByIDFn            func(ctx context.Context, userID uuid.UUID) (*domain.User, error)
	getByProviderFn      func(ctx context.Context, subject string) (*domain.User, error)
	getByEmailFn         func(ctx context.Context, email string) (*domain.User, error)
	upsertFromLoginFn    func(ctx context.Context, login domain.ProviderLogin) (*domain.User, bool, error)
	listFn               func(ctx context.Context, filter domain.UserListFilter) ([]domain.User, error)
	updateProfileFn      func(ctx context.Context, userID uuid.UUID, update domain.ProfileUpdate) (*domain.User, error)
	setRoleFn            func(ctx context.Context, userID uuid.UUID, role domain.Role) error
	setActiveFn          func(ctx context.Context, userID uuid.UUID, active bool) error
}

func (m *mockUserRepo) GetByID(ctx context.Context, userID uuid.UUID) (*domain.User, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, userID)
	}
	return nil, fmt.Errorf("not implemented")
}

func (m *mockUserRepo) GetByProviderSubject(ctx context.Context, subject string) (*domain.User, error) {
	if m.getByProviderFn != nil {
		return m.getByProviderFn(ctx, subject)
	}
	return nil, fmt.Errorf("not implemented")
}

func (m *mockUserRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	if m.getByEmailFn != nil {
		return m.getByEmailFn(ctx, email)
	}
	return nil, fmt.Errorf("not implemented")
}

func (m *mockUserRepo) UpsertFromLogin(ctx context.Context, login domain.ProviderLogin) (*domain.User, bool, error) {
	if m.upsertFromLoginFn != nil {
		return m.upsertFromLoginFn(ctx, login)
	}
	return nil, false, fmt.Errorf("not implemented")
}

func (m *mockUserRepo) List(ctx context.Context, filter domain.UserListFilter) ([]domain.User, error) {
	if m.listFn != nil {
		return m.listFn(ctx, filter)
	}
	return nil, nil
}

func (m *mockUserRepo) UpdateProfile(ctx context.Context, userID uuid.UUID, update domain.ProfileUpdate) (*domain.User, error) {
	if m.updateProfileFn != nil {
		return m.updateProfileFn(ctx, userID, update)
	}
	return nil, fmt.Errorf("not implemented")
}

func (m *mockUserRepo) SetRole(ctx context.Context, userID uuid.UUID, role domain.Role) error {
	if m.setRoleFn != nil {
		return m.setRoleFn(ctx, userID, role)
	}
	return nil
}

func (m *mockUserRepo) SetActive(ctx context.Context, userID uuid.UUID, active bool) error {
	if m.setActiveFn != nil {
		return m.setActiveFn(ctx, userID, active)
	}
	return nil
}

type mockCohortRepo struct {
	createFn        func(ctx context.Context, cohort *domain.Cohort) error
	getByIDFn       func(ctx context.Context, cohortID uuid.UUID) (*domain.Cohort, error)
	listFn          func(ctx context.Context) ([]domain.Cohort, error)
	listByCoachFn   func(ctx context.Context, coachID uuid.UUID) ([]domain.Cohort, error)
	listForMemberFn func(ctx context.Context, userID uuid.UUID) ([]domain.Cohort, error)
	updateFn        func(ctx context.Context, cohortID uuid.UUID, update domain.CohortUpdate) (*domain.Cohort, error)
	setCoachFn      func(ctx context.Context, cohortID, coachID uuid.UUID) error
	deleteFn        func(ctx context.Context, cohortID uuid.UUID) error
	addMemberFn     func(ctx context.Context, cohortID, userID uuid.UUID) error
	removeMemberFn  func(ctx context.Context, cohortID, userID uuid.UUID) error
	listMembersFn   func(ctx context.Context, cohortID uuid.UUID) ([]domain.RosterEntry, error)
	memberIDsFn     func(ctx context.Context, cohortID uuid.UUID) ([]uuid.UUID, error)
	isMemberFn      func(ctx context.Context, cohortID, userID uuid.UUID) (bool, error)
	isCoachOfFn     func(ctx context.Context, coachID, userID uuid.UUID) (bool, error)
}

func (m *mockCohortRepo) Create(ctx context.Context, cohort *domain.Cohort) error {
	if m.createFn != nil {
		return m.createFn(ctx, cohort)
	}
	return nil
}

func (m *mockCohortRepo) GetByID(ctx context.Context, cohortID uuid.UUID) (*domain.Cohort, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, cohortID)
	}
	return nil, fmt.Errorf("not implemented")
}

func (m *mockCohortRepo) List(ctx context.Context) ([]domain.Cohort, error) {
	if m.listFn != nil {
		return m.listFn(ctx)
	}
	return nil, nil
}

func (m *mockCohortRepo) ListByCoach(ctx context.Context, coachID uuid.UUID) ([]domain.Cohort, error) {
	if m.listByCoachFn != nil {
		return m.listByCoachFn(ctx, coachID)
	}
	return nil, nil
}

func (m *mockCohortRepo) ListForMember(ctx context.Context, userID uuid.UUID) ([]domain.Cohort, error) {
	if m.listForMemberFn != nil {
		return m.listForMemberFn(ctx, userID)
	}
	return nil, nil
}

func (m *mockCohortRepo) Update(ctx context.Context, cohortID uuid.UUID, update domain.CohortUpdate) (*domain.Cohort, error) {
	if m.updateFn != nil {
		return m.updateFn(ctx, cohortID, update)
	}
	return nil, fmt.Errorf("not implemented")
}

func (m *mockCohortRepo) SetCoach(ctx context.Context, cohortID, coachID uuid.UUID) error {
	if m.setCoachFn != nil {
		return m.setCoachFn(ctx, cohortID, coachID)
	}
	return nil
}

func (m *mockCohortRepo) Delete(ctx context.Context, cohortID uuid.UUID) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, cohortID)
	}
	return nil
}

func (m *mockCohortRepo) AddMember(ctx context.Context, cohortID, userID uuid.UUID) error {
	if m.addMemberFn != nil {
		return m.addMemberFn(ctx, cohortID, userID)
	}
	return nil
}

func (m *mockCohortRepo) RemoveMember(ctx context.Context, cohortID, userID uuid.UUID) error {
	if m.removeMemberFn != nil {
		return m.removeMemberFn(ctx, cohortID, userID)
	}
	return nil
}

func (m *mockCohortRepo) ListMembers(ctx context.Context, cohortID uuid.UUID) ([]domain.RosterEntry, error) {
	if m.listMembersFn != nil {
		return m.listMembersFn(ctx, cohortID)
	}
	return nil, nil
}

func (m *mockCohortRepo) MemberIDs(ctx context.Context, cohortID uuid.UUID) ([]uuid.UUID, error) {
	if m.memberIDsFn != nil {
		return m.memberIDsFn(ctx, cohortID)
	}
	return nil, nil
}

func (m *mockCohortRepo) IsMember(ctx context.Context, cohortID, userID uuid.UUID) (bool, error) {
	if m.isMemberFn != nil {
		return m.isMemberFn(ctx, cohortID, userID)
	}
	return false, nil
}

func (m *mockCohortRepo) IsCoachOf(ctx context.Context, coachID, userID uuid.UUID) (bool, error) {
	if m.isCoachOfFn != nil {
		return m.isCoachOfFn(ctx, coachID, userID)
	}
	return false, nil
}

type mockEntryRepo struct {
	upsertFn         func(ctx context.Context, entry *domain.Entry) (*domain.Entry, error)
	listByUserFn     func(ctx context.Context, userID uuid.UUID, from, to time.Time) ([]domain.Entry, error)
	lastEntryDateFn  func(ctx context.Context, userID uuid.UUID) (*time.Time, error)
	countSinceFn     func(ctx context.Context, userID uuid.UUID, since time.Time) (int, error)
	datesSinceFn     func(ctx context.Context, userID uuid.UUID, since time.Time) ([]time.Time, error)
	lastEntryDatesFn func(ctx context.Context, userIDs []uuid.UUID) (map[uuid.UUID]time.Time, error)
}

func (m *mockEntryRepo) Upsert(ctx context.Context, entry *domain.Entry) (*domain.Entry, error) {
	if m.upsertFn != nil {
		return m.upsertFn(ctx, entry)
	}
	return entry, nil
}

func (m *mockEntryRepo) ListByUser(ctx context.Context, userID uuid.UUID, from, to time.Time) ([]domain.Entry, error) {
	if m.listByUserFn != nil {
		return m.listByUserFn(ctx, userID, from, to)
	}
	return nil, nil
}

func (m *mockEntryRepo) LastEntryDate(ctx context.Context, userID uuid.UUID) (*time.Time, error) {
	if m.lastEntryDateFn != nil {
		return m.lastEntryDateFn(ctx, userID)
	}
	return nil, nil
}

func (m *mockEntryRepo) CountSince(ctx context.Context, userID uuid.UUID, since time.Time) (int, error) {
	if m.countSinceFn != nil {
		return m.countSinceFn(ctx, userID, since)
	}
	return 0, nil
}

func (m *mockEntryRepo) DatesSince(ctx context.Context, userID uuid.UUID, since time.Time) ([]time.Time, error) {
	if m.datesSinceFn != nil {
		return m.datesSinceFn(ctx, userID, since)
	}
	return nil, nil
}

func (m *mockEntryRepo) LastEntryDates(ctx context.Context, userIDs []uuid.UUID) (map[uuid.UUID]time.Time, error) {
	if m.lastEntryDatesFn != nil {
		return m.lastEntryDatesFn(ctx, userIDs)
	}
	return nil, nil
}

type mockSessionRepo struct {
	createFn               func(ctx context.Context, session *domain.Session) error
	getByIDFn              func(ctx context.Context, sessionID uuid.UUID) (*domain.Session, error)
	listFn                 func(ctx context.Context, filter domain.SessionListFilter) ([]domain.Session, error)
	updateFn               func(ctx context.Context, sessionID uuid.UUID, update domain.SessionUpdate) (*domain.Session, error)
	deleteFn               func(ctx context.Context, sessionID uuid.UUID) error
	setCalendarEventIDFn   func(ctx context.Context, sessionID uuid.UUID, eventID string) error
	listMissingCalendarFn  func(ctx context.Context, from time.Time) ([]domain.Session, error)
	registerFn             func(ctx context.Context, sessionID, userID uuid.UUID, now time.Time) (*domain.RegistrationOutcome, error)
	cancelRegistrationFn   func(ctx context.Context, sessionID, userID uuid.UUID, now time.Time) (*domain.CancellationOutcome, error)
	rosterFn               func(ctx context.Context, sessionID uuid.UUID) ([]domain.RosterRegistration, error)
	listUpcomingForUserFn  func(ctx context.Context, userID uuid.UUID, now time.Time) ([]domain.UpcomingRegistration, error)
}

func (m *mockSessionRepo) Create(ctx context.Context, session *domain.Session) error {
	if m.createFn != nil {
		return m.createFn(ctx, session)
	}
	return nil
}

func (m *mockSessionRepo) GetByID(ctx context.Context, sessionID uuid.UUID) (*domain.Session, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, sessionID)
	}
	return nil, fmt.Errorf("not implemented")
}

func (m *mockSessionRepo) List(ctx context.Context, filter domain.SessionListFilter) ([]domain.Session, error) {
	if m.listFn != nil {
		return m.listFn(ctx, filter)
	}
	return nil, nil
}

func (m *mockSessionRepo) Update(ctx context.Context, sessionID uuid.UUID, update domain.SessionUpdate) (*domain.Session, error) {
	if m.updateFn != nil {
		return m.updateFn(ctx, sessionID, update)
	}
	return nil, fmt.Errorf("not implemented")
}

func (m *mockSessionRepo) Delete(ctx context.Context, sessionID uuid.UUID) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, sessionID)
	}
	return nil
}

func (m *mockSessionRepo) SetCalendarEventID(ctx context.Context, sessionID uuid.UUID, eventID string) error {
	if m.setCalendarEventIDFn != nil {
		return m.setCalendarEventIDFn(ctx, sessionID, eventID)
	}
	return nil
}

func (m *mockSessionRepo) ListMissingCalendarEvent(ctx context.Context, from time.Time) ([]domain.Session, error) {
	if m.listMissingCalendarFn != nil {
		return m.listMissingCalendarFn(ctx, from)
	}
	return nil, nil
}

func (m *mockSessionRepo) Register(ctx context.Context, sessionID, userID uuid.UUID, now time.Time) (*domain.RegistrationOutcome, error) {
	if m.registerFn != nil {
		return m.registerFn(ctx, sessionID, userID, now)
	}
	return nil, fmt.Errorf("not implemented")
}

func (m *mockSessionRepo) CancelRegistration(ctx context.Context, sessionID, userID uuid.UUID, now time.Time) (*domain.CancellationOutcome, error) {
	if m.cancelRegistrationFn != nil {
		return m.cancelRegistrationFn(ctx, sessionID, userID, now)
	}
	return nil, fmt.Errorf("not implemented")
}

func (m *mockSessionRepo) Roster(ctx context.Context, sessionID uuid.UUID) ([]domain.RosterRegistration, error) {
	if m.rosterFn != nil {
		return m.rosterFn(ctx, sessionID)
	}
	return nil, nil
}

func (m *mockSessionRepo) ListUpcomingForUser(ctx context.Context, userID uuid.UUID, now time.Time) ([]domain.UpcomingRegistration, error) {
	if m.listUpcomingForUserFn != nil {
		return m.listUpcomingForUserFn(ctx, userID, now)
	}
	return nil, nil
}

type mockPlanRepo struct {
	createFn           func(ctx context.Context, plan *domain.Plan) error
	getByIDFn          func(ctx context.Context, planID uuid.UUID) (*domain.Plan, error)
	getByProviderIDFn  func(ctx context.Context, providerPriceID string) (*domain.Plan, error)
	listFn             func(ctx context.Context, activeOnly bool) ([]domain.Plan, error)
	updateFn           func(ctx context.Context, planID uuid.UUID, update domain.PlanUpdate) (*domain.Plan, error)
}

func (m *mockPlanRepo) Create(ctx context.Context, plan *domain.Plan) error {
	if m.createFn != nil {
		return m.createFn(ctx, plan)
	}
	return nil
}

func (m *mockPlanRepo) GetByID(ctx context.Context, planID uuid.UUID) (*domain.Plan, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, planID)
	}
	return nil, fmt.Errorf("not implemented")
}

func (m *mockPlanRepo) GetByProviderPriceID(ctx context.Context, providerPriceID string) (*domain.Plan, error) {
	if m.getByProviderIDFn != nil {
		return m.getByProviderIDFn(ctx, providerPriceID)
	}
	return nil, fmt.Errorf("not implemented")
}

func (m *mockPlanRepo) List(ctx context.Context, activeOnly bool) ([]domain.Plan, error) {
	if m.listFn != nil {
		return m.listFn(ctx, activeOnly)
	}
	return nil, nil
}

func (m *mockPlanRepo) Update(ctx context.Context, planID uuid.UUID, update domain.PlanUpdate) (*domain.Plan, error) {
	if m.updateFn != nil {
		return m.updateFn(ctx, planID, update)
	}
	return nil, fmt.Errorf("not implemented")
}

type mockMembershipRepo struct {
	createFn                    func(ctx context.Context, membership *domain.Membership) error
	getByIDFn                   func(ctx context.Context, membershipID uuid.UUID) (*domain.Membership, error)
	hasActiveForPlanFn          func(ctx context.Context, userID, planID uuid.UUID) (bool, error)
	getByProviderSubscriptionFn func(ctx context.Context, subscriptionID string) (*domain.Membership, error)
	listByUserFn                func(ctx context.Context, userID uuid.UUID) ([]domain.MembershipWithPlan, error)
	updateStatusFn              func(ctx context.Context, membershipID uuid.UUID, status domain.MembershipStatus, cancelledAt *time.Time) error
	listExpiringBetweenFn       func(ctx context.Context, from, to time.Time) ([]domain.Membership, error)
	markExpiredFn               func(ctx context.Context, now time.Time) (int64, error)
}

func (m *mockMembershipRepo) Create(ctx context.Context, membership *domain.Membership) error {
	if m.createFn != nil {
		return m.createFn(ctx, membership)
	}
	return nil
}

func (m *mockMembershipRepo) GetByID(ctx context.Context, membershipID uuid.UUID) (*domain.Membership, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, membershipID)
	}
	return nil, fmt.Errorf("not implemented")
}

func (m *mockMembershipRepo) HasActiveForPlan(ctx context.Context, userID, planID uuid.UUID) (bool, error) {
	if m.hasActiveForPlanFn != nil {
		return m.hasActiveForPlanFn(ctx, userID, planID)
	}
	return false, nil
}

func (m *mockMembershipRepo) GetByProviderSubscription(ctx context.Context, subscriptionID string) (*domain.Membership, error) {
	if m.getByProviderSubscriptionFn != nil {
		return m.getByProviderSubscriptionFn(ctx, subscriptionID)
	}
	return nil, domain.ErrMembershipNotFound
}

func (m *mockMembershipRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]domain.MembershipWithPlan, error) {
	if m.listByUserFn != nil {
		return m.listByUserFn(ctx, userID)
	}
	return nil, nil
}

func (m *mockMembershipRepo) UpdateStatus(ctx context.Context, membershipID uuid.UUID, status domain.MembershipStatus, cancelledAt *time.Time) error {
	if m.updateStatusFn != nil {
		return m.updateStatusFn(ctx, membershipID, status, cancelledAt)
	}
	return nil
}

func (m *mockMembershipRepo) ListExpiringBetween(ctx context.Context, from, to time.Time) ([]domain.Membership, error) {
	if m.listExpiringBetweenFn != nil {
		return m.listExpiringBetweenFn(ctx, from, to)
	}
	return nil, nil
}

func (m *mockMembershipRepo) MarkExpired(ctx context.Context, now time.Time) (int64, error) {
	if m.markExpiredFn != nil {
		return m.markExpiredFn(ctx, now)
	}
	return 0, nil
}

type mockInvoiceRepo struct {
	upsertByProviderIDFn func(ctx context.Context, invoice *domain.Invoice) (*domain.Invoice, error)
	getByProviderIDFn    func(ctx context.Context, providerInvoiceID string) (*domain.Invoice, error)
	listByUserFn         func(ctx context.Context, userID uuid.UUID) ([]domain.Invoice, error)
}

func (m *mockInvoiceRepo) UpsertByProviderID(ctx context.Context, invoice *domain.Invoice) (*domain.Invoice, error) {
	if m.upsertByProviderIDFn != nil {
		return m.upsertByProviderIDFn(ctx, invoice)
	}
	return invoice, nil
}

func (m *mockInvoiceRepo) GetByProviderID(ctx context.Context, providerInvoiceID string) (*domain.Invoice, error) {
	if m.getByProviderIDFn != nil {
		return m.getByProviderIDFn(ctx, providerInvoiceID)
	}
	return nil, domain.ErrInvoiceNotFound
}

func (m *mockInvoiceRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]domain.Invoice, error) {
	if m.listByUserFn != nil {
		return m.listByUserFn(ctx, userID)
	}
	return nil, nil
}

type mockAttentionRepo struct {
	getFn          func(ctx context.Context, entityType domain.EntityType, entityID uuid.UUID) (*domain.AttentionScore, error)
	replaceFn      func(ctx context.Context, score *domain.AttentionScore) error
	invalidateFn   func(ctx context.Context, entityType domain.EntityType, entityID uuid.UUID) error
	purgeExpiredFn func(ctx context.Context, now time.Time) (int64, error)
}

func (m *mockAttentionRepo) Get(ctx context.Context, entityType domain.EntityType, entityID uuid.UUID) (*domain.AttentionScore, error) {
	if m.getFn != nil {
		return m.getFn(ctx, entityType, entityID)
	}
	return nil, domain.ErrScoreNotFound
}

func (m *mockAttentionRepo) Replace(ctx context.Context, score *domain.AttentionScore) error {
	if m.replaceFn != nil {
		return m.replaceFn(ctx, score)
	}
	return nil
}

func (m *mockAttentionRepo) Invalidate(ctx context.Context, entityType domain.EntityType, entityID uuid.UUID) error {
	if m.invalidateFn != nil {
		return m.invalidateFn(ctx, entityType, entityID)
	}
	return nil
}

func (m *mockAttentionRepo) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	if m.purgeExpiredFn != nil {
		return m.purgeExpiredFn(ctx, now)
	}
	return 0, nil
}

type mockQuestionnaireRepo struct {
	createFn          func(ctx context.Context, q *domain.Questionnaire) error
	getByIDFn         func(ctx context.Context, questionnaireID uuid.UUID) (*domain.Questionnaire, error)
	listByCohortFn    func(ctx context.Context, cohortID uuid.UUID, activeOnly bool) ([]domain.Questionnaire, error)
	updateFn          func(ctx context.Context, q *domain.Questionnaire) error
	deleteFn          func(ctx context.Context, questionnaireID uuid.UUID) error
	upsertResponseFn  func(ctx context.Context, response *domain.Response) (*domain.Response, error)
	getResponseFn     func(ctx context.Context, questionnaireID, userID uuid.UUID) (*domain.Response, error)
	listResponsesFn   func(ctx context.Context, questionnaireID uuid.UUID) ([]domain.Response, error)
	completionStatsFn func(ctx context.Context, questionnaireID uuid.UUID) (*domain.CompletionStats, error)
}

func (m *mockQuestionnaireRepo) Create(ctx context.Context, q *domain.Questionnaire) error {
	if m.createFn != nil {
		return m.createFn(ctx, q)
	}
	return nil
}

func (m *mockQuestionnaireRepo) GetByID(ctx context.Context, questionnaireID uuid.UUID) (*domain.Questionnaire, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, questionnaireID)
	}
	return nil, fmt.Errorf("not implemented")
}

func (m *mockQuestionnaireRepo) ListByCohort(ctx context.Context, cohortID uuid.UUID, activeOnly bool) ([]domain.Questionnaire, error) {
	if m.listByCohortFn != nil {
		return m.listByCohortFn(ctx, cohortID, activeOnly)
	}
	return nil, nil
}

func (m *mockQuestionnaireRepo) Update(ctx context.Context, q *domain.Questionnaire) error {
	if m.updateFn != nil {
		return m.updateFn(ctx, q)
	}
	return nil
}

func (m *mockQuestionnaireRepo) Delete(ctx context.Context, questionnaireID uuid.UUID) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, questionnaireID)
	}
	return nil
}

func (m *mockQuestionnaireRepo) UpsertResponse(ctx context.Context, response *domain.Response) (*domain.Response, error) {
	if m.upsertResponseFn != nil {
		return m.upsertResponseFn(ctx, response)
	}
	return response, nil
}

func (m *mockQuestionnaireRepo) GetResponse(ctx context.Context, questionnaireID, userID uuid.UUID) (*domain.Response, error) {
	if m.getResponseFn != nil {
		return m.getResponseFn(ctx, questionnaireID, userID)
	}
	return nil, domain.ErrResponseNotFound
}

func (m *mockQuestionnaireRepo) ListResponses(ctx context.Context, questionnaireID uuid.UUID) ([]domain.Response, error) {
	if m.listResponsesFn != nil {
		return m.listResponsesFn(ctx, questionnaireID)
	}
	return nil, nil
}

func (m *mockQuestionnaireRepo) CompletionStats(ctx context.Context, questionnaireID uuid.UUID) (*domain.CompletionStats, error) {
	if m.completionStatsFn != nil {
		return m.completionStatsFn(ctx, questionnaireID)
	}
	return &domain.CompletionStats{}, nil
}

type mockCalendarClient struct {
	createEventFn func(ctx context.Context, event domain.CalendarEvent) (string, error)
	updateEventFn func(ctx context.Context, eventID string, event domain.CalendarEvent) error
	deleteEventFn func(ctx context.Context, eventID string) error
}

func (m *mockCalendarClient) CreateEvent(ctx context.Context, event domain.CalendarEvent) (string, error) {
	if m.createEventFn != nil {
		return m.createEventFn(ctx, event)
	}
	return "evt-" + uuid.NewString(), nil
}

func (m *mockCalendarClient) UpdateEvent(ctx context.Context, eventID string, event domain.CalendarEvent) error {
	if m.updateEventFn != nil {
		return m.updateEventFn(ctx, eventID, event)
	}
	return nil
}

func (m *mockCalendarClient) DeleteEvent(ctx context.Context, eventID string) error {
	if m.deleteEventFn != nil {
		return m.deleteEventFn(ctx, eventID)
	}
	return nil
}

// mockNotifier records every notification kind it is asked to send.
type mockNotifier struct {
	welcomes    []uuid.UUID
	promotions  []uuid.UUID
	payments    []uuid.UUID
	expirations []uuid.UUID
}

func (m *mockNotifier) SendWelcome(_ context.Context, user *domain.User) {
	m.welcomes = append(m.welcomes, user.ID)
}

func (m *mockNotifier) SendWaitlistPromotion(_ context.Context, user *domain.User, _ *domain.Session) {
	m.promotions = append(m.promotions, user.ID)
}

func (m *mockNotifier) SendPaymentFailed(_ context.Context, user *domain.User, _ int64, _ string) {
	m.payments = append(m.payments, user.ID)
}

func (m *mockNotifier) SendMembershipExpiring(_ context.Context, user *domain.User, _ time.Time) {
	m.expirations = append(m.expirations, user.ID)
}

// mockAudit records audit calls for assertion.
type mockAudit struct {
	actions []string
}

func (m *mockAudit) Record(_ context.Context, _ uuid.UUID, action, _, _ string, _ map[string]any) {
	m.actions = append(m.actions, action)
}

func (m *mockAudit) List(_ context.Context, _ *domain.User, _ domain.AuditFilter) ([]domain.AuditRecord, error) {
	return nil, nil
}

type mockReportRepo struct {
	cohortWeeklyCheckinsFn     func(ctx context.Context, cohortID uuid.UUID, weeks int, now time.Time) ([]domain.SeriesPoint, error)
	clientWeightTrendFn        func(ctx context.Context, userID uuid.UUID, from, to time.Time) ([]domain.SeriesPoint, error)
	cohortAttendanceFn         func(ctx context.Context, cohortID uuid.UUID, since, now time.Time) ([]domain.AttendancePoint, error)
	monthlyRevenueFn           func(ctx context.Context, months int, now time.Time) ([]domain.SeriesPoint, error)
	activeMembershipsPerPlanFn func(ctx context.Context) ([]domain.SeriesPoint, error)
}

func (m *mockReportRepo) CohortWeeklyCheckins(ctx context.Context, cohortID uuid.UUID, weeks int, now time.Time) ([]domain.SeriesPoint, error) {
	if m.cohortWeeklyCheckinsFn != nil {
		return m.cohortWeeklyCheckinsFn(ctx, cohortID, weeks, now)
	}
	return nil, nil
}

func (m *mockReportRepo) ClientWeightTrend(ctx context.Context, userID uuid.UUID, from, to time.Time) ([]domain.SeriesPoint, error) {
	if m.clientWeightTrendFn != nil {
		return m.clientWeightTrendFn(ctx, userID, from, to)
	}
	return nil, nil
}

func (m *mockReportRepo) CohortAttendance(ctx context.Context, cohortID uuid.UUID, since, now time.Time) ([]domain.AttendancePoint, error) {
	if m.cohortAttendanceFn != nil {
		return m.cohortAttendanceFn(ctx, cohortID, since, now)
	}
	return nil, nil
}

func (m *mockReportRepo) MonthlyRevenue(ctx context.Context, months int, now time.Time) ([]domain.SeriesPoint, error) {
	if m.monthlyRevenueFn != nil {
		return m.monthlyRevenueFn(ctx, months, now)
	}
	return nil, nil
}

func (m *mockReportRepo) ActiveMembershipsPerPlan(ctx context.Context) ([]domain.SeriesPoint, error) {
	if m.activeMembershipsPerPlanFn != nil {
		return m.activeMembershipsPerPlanFn(ctx)
	}
	return nil, nil
}

// --- Test fixtures ---

func testAdmin() *domain.User {
	return &domain.User{ID: uuid.New(), Role: domain.RoleAdmin, Active: true, Email: "admin@example.com", DisplayName: "Admin"}
}

func testCoach() *domain.User {
	return &domain.User{ID: uuid.New(), Role: domain.RoleCoach, Active: true, Email: "coach@example.com", DisplayName: "Coach"}
}

func testClient() *domain.User {
	return &domain.User{ID: uuid.New(), Role: domain.RoleClient, Active: true, Email: "client@example.com", DisplayName: "Client", CheckinTarget: 5}
}
