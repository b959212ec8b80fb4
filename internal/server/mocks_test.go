package server

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/strenly/coachpulse/internal/config"
	"github.com/strenly/coachpulse/internal/domain"
	apperrors "github.com/strenly/coachpulse/internal/errors"
)

// Function-field service mocks. Unset fields fail loudly so a test only
// wires what it exercises.

type mockUserService struct {
	completeLoginFn      func(ctx context.Context, login domain.ProviderLogin) (*domain.User, error)
	resolveSessionUserFn func(ctx context.Context, userID uuid.UUID) (*domain.User, error)
	getUserFn            func(ctx context.Context, actor *domain.User, userID uuid.UUID) (*domain.User, error)
	listUsersFn          func(ctx context.Context, actor *domain.User, filter domain.UserListFilter) ([]domain.User, error)
	updateProfileFn      func(ctx context.Context, actor *domain.User, userID uuid.UUID, update domain.ProfileUpdate) (*domain.User, error)
	setRoleFn            func(ctx context.Context, actor *domain.User, userID uuid.UUID, role domain.Role) error
	setActiveFn          func(ctx context.Context, actor *domain.User, userID uuid.UUID, active bool) error
}

func (m *mockUserService) CompleteLogin(ctx context.Context, login domain.ProviderLogin) (*domain.User, error) {
	if m.completeLoginFn != nil {
		return m.completeLoginFn(ctx, login)
	}
	return nil, fmt.Errorf("not implemented")
}

func (m *mockUserService) ResolveSessionUser(ctx context.Context, userID uuid.UUID) (*domain.User, error) {
	if m.resolveSessionUserFn != nil {
		return m.resolveSessionUserFn(ctx, userID)
	}
	return nil, apperrors.UnauthorizedError("unknown session")
}

func (m *mockUserService) GetUser(ctx context.Context, actor *domain.User, userID uuid.UUID) (*domain.User, error) {
	if m.getUserFn != nil {
		return m.getUserFn(ctx, actor, userID)
	}
	return nil, fmt.Errorf("not implemented")
}

func (m *mockUserService) ListUsers(ctx context.Context, actor *domain.User, filter domain.UserListFilter) ([]domain.User, error) {
	if m.listUsersFn != nil {
		return m.listUsersFn(ctx, actor, filter)
	}
	return nil, nil
}

func (m *mockUserService) UpdateProfile(ctx context.Context, actor *domain.User, userID uuid.UUID, update domain.ProfileUpdate) (*domain.User, error) {
	if m.updateProfileFn != nil {
		return m.updateProfileFn(ctx, actor, userID, update)
	}
	return nil, fmt.Errorf("not implemented")
}

func (m *mockUserService) SetRole(ctx context.Context, actor *domain.User, userID uuid.UUID, role domain.Role) error {
	if m.setRoleFn != nil {
		return m.setRoleFn(ctx, actor, userID, role)
	}
	return nil
}

func (m *mockUserService) SetActive(ctx context.Context, actor *domain.User, userID uuid.UUID, active bool) error {
	if m.setActiveFn != nil {
		return m.setActiveFn(ctx, actor, userID, active)
	}
	return nil
}

type mockEntryService struct {
	upsertEntryFn func(ctx context.Context, actor *domain.User, entry *domain.Entry) (*domain.Entry, error)
	listEntriesFn func(ctx context.Context, actor *domain.User, userID uuid.UUID, from, to time.Time) ([]domain.Entry, error)
	streakFn      func(ctx context.Context, actor *domain.User, userID uuid.UUID) (int, error)
}

func (m *mockEntryService) UpsertEntry(ctx context.Context, actor *domain.User, entry *domain.Entry) (*domain.Entry, error) {
	if m.upsertEntryFn != nil {
		return m.upsertEntryFn(ctx, actor, entry)
	}
	return nil, fmt.Errorf("not implemented")
}

func (m *mockEntryService) ListEntries(ctx context.Context, actor *domain.User, userID uuid.UUID, from, to time.Time) ([]domain.Entry, error) {
	if m.listEntriesFn != nil {
		return m.listEntriesFn(ctx, actor, userID, from, to)
	}
	return nil, nil
}

func (m *mockEntryService) Streak(ctx context.Context, actor *domain.User, userID uuid.UUID) (int, error) {
	if m.streakFn != nil {
		return m.streakFn(ctx, actor, userID)
	}
	return 0, nil
}

type mockAttentionService struct {
	scoreFn   func(ctx context.Context, actor *domain.User, entityType domain.EntityType, entityID uuid.UUID) (*domain.AttentionScore, error)
	refreshFn func(ctx context.Context, actor *domain.User, entityType domain.EntityType, entityID uuid.UUID) (*domain.AttentionScore, error)
	queueFn   func(ctx context.Context, actor *domain.User, limit int) ([]domain.QueueEntry, error)
}

func (m *mockAttentionService) Score(ctx context.Context, actor *domain.User, entityType domain.EntityType, entityID uuid.UUID) (*domain.AttentionScore, error) {
	if m.scoreFn != nil {
		return m.scoreFn(ctx, actor, entityType, entityID)
	}
	return nil, fmt.Errorf("not implemented")
}

func (m *mockAttentionService) Refresh(ctx context.Context, actor *domain.User, entityType domain.EntityType, entityID uuid.UUID) (*domain.AttentionScore, error) {
	if m.refreshFn != nil {
		return m.refreshFn(ctx, actor, entityType, entityID)
	}
	return nil, fmt.Errorf("not implemented")
}

func (m *mockAttentionService) Queue(ctx context.Context, actor *domain.User, limit int) ([]domain.QueueEntry, error) {
	if m.queueFn != nil {
		return m.queueFn(ctx, actor, limit)
	}
	return nil, nil
}

type mockCohortService struct {
	createCohortFn func(ctx context.Context, actor *domain.User, cohort *domain.Cohort) (*domain.Cohort, error)
	getCohortFn    func(ctx context.Context, actor *domain.User, cohortID uuid.UUID) (*domain.Cohort, error)
	listCohortsFn  func(ctx context.Context, actor *domain.User) ([]domain.Cohort, error)
	updateCohortFn func(ctx context.Context, actor *domain.User, cohortID uuid.UUID, update domain.CohortUpdate) (*domain.Cohort, error)
	assignCoachFn  func(ctx context.Context, actor *domain.User, cohortID, coachID uuid.UUID) error
	deleteCohortFn func(ctx context.Context, actor *domain.User, cohortID uuid.UUID) error
	addMemberFn    func(ctx context.Context, actor *domain.User, cohortID, userID uuid.UUID) error
	removeMemberFn func(ctx context.Context, actor *domain.User, cohortID, userID uuid.UUID) error
	listRosterFn   func(ctx context.Context, actor *domain.User, cohortID uuid.UUID) ([]domain.RosterEntry, error)
}

func (m *mockCohortService) CreateCohort(ctx context.Context, actor *domain.User, cohort *domain.Cohort) (*domain.Cohort, error) {
	if m.createCohortFn != nil {
		return m.createCohortFn(ctx, actor, cohort)
	}
	return nil, fmt.Errorf("not implemented")
}

func (m *mockCohortService) GetCohort(ctx context.Context, actor *domain.User, cohortID uuid.UUID) (*domain.Cohort, error) {
	if m.getCohortFn != nil {
		return m.getCohortFn(ctx, actor, cohortID)
	}
	return nil, fmt.Errorf("not implemented")
}

func (m *mockCohortService) ListCohorts(ctx context.Context, actor *domain.User) ([]domain.Cohort, error) {
	if m.listCohortsFn != nil {
		return m.listCohortsFn(ctx, actor)
	}
	return nil, nil
}

func (m *mockCohortService) UpdateCohort(ctx context.Context, actor *domain.User, cohortID uuid.UUID, update domain.CohortUpdate) (*domain.Cohort, error) {
	if m.updateCohortFn != nil {
		return m.updateCohortFn(ctx, actor, cohortID, update)
	}
	return nil, fmt.Errorf("not implemented")
}

func (m *mockCohortService) AssignCoach(ctx context.Context, actor *domain.User, cohortID, coachID uuid.UUID) error {
	if m.assignCoachFn != nil {
		return m.assignCoachFn(ctx, actor, cohortID, coachID)
	}
	return nil
}

func (m *mockCohortService) DeleteCohort(ctx context.Context, actor *domain.User, cohortID uuid.UUID) error {
	if m.deleteCohortFn != nil {
		return m.deleteCohortFn(ctx, actor, cohortID)
	}
	return nil
}

func (m *mockCohortService) AddMember(ctx context.Context, actor *domain.User, cohortID, userID uuid.UUID) error {
	if m.addMemberFn != nil {
		return m.addMemberFn(ctx, actor, cohortID, userID)
	}
	return nil
}

func (m *mockCohortService) RemoveMember(ctx context.Context, actor *domain.User, cohortID, userID uuid.UUID) error {
	if m.removeMemberFn != nil {
		return m.removeMemberFn(ctx, actor, cohortID, userID)
	}
	return nil
}

func (m *mockCohortService) ListRoster(ctx context.Context, actor *domain.User, cohortID uuid.UUID) ([]domain.RosterEntry, error) {
	if m.listRosterFn != nil {
		return m.listRosterFn(ctx, actor, cohortID)
	}
	return nil, nil
}

type mockSessionService struct {
	createSessionFn      func(ctx context.Context, actor *domain.User, session *domain.Session) (*domain.Session, error)
	getSessionFn         func(ctx context.Context, actor *domain.User, sessionID uuid.UUID) (*domain.Session, error)
	listSessionsFn       func(ctx context.Context, actor *domain.User, filter domain.SessionListFilter) ([]domain.Session, error)
	updateSessionFn      func(ctx context.Context, actor *domain.User, sessionID uuid.UUID, update domain.SessionUpdate) (*domain.Session, error)
	deleteSessionFn      func(ctx context.Context, actor *domain.User, sessionID uuid.UUID) error
	registerFn           func(ctx context.Context, actor *domain.User, sessionID, userID uuid.UUID) (*domain.RegistrationOutcome, error)
	cancelRegistrationFn func(ctx context.Context, actor *domain.User, sessionID, userID uuid.UUID) (*domain.CancellationOutcome, error)
	rosterFn             func(ctx context.Context, actor *domain.User, sessionID uuid.UUID) ([]domain.RosterRegistration, error)
	listOwnUpcomingFn    func(ctx context.Context, actor *domain.User) ([]domain.UpcomingRegistration, error)
}

func (m *mockSessionService) CreateSession(ctx context.Context, actor *domain.User, session *domain.Session) (*domain.Session, error) {
	if m.createSessionFn != nil {
		return m.createSessionFn(ctx, actor, session)
	}
	return nil, fmt.Errorf("not implemented")
}

func (m *mockSessionService) GetSession(ctx context.Context, actor *domain.User, sessionID uuid.UUID) (*domain.Session, error) {
	if m.getSessionFn != nil {
		return m.getSessionFn(ctx, actor, sessionID)
	}
	return nil, fmt.Errorf("not implemented")
}

func (m *mockSessionService) ListSessions(ctx context.Context, actor *domain.User, filter domain.SessionListFilter) ([]domain.Session, error) {
	if m.listSessionsFn != nil {
		return m.listSessionsFn(ctx, actor, filter)
	}
	return nil, nil
}

func (m *mockSessionService) UpdateSession(ctx context.Context, actor *domain.User, sessionID uuid.UUID, update domain.SessionUpdate) (*domain.Session, error) {
	if m.updateSessionFn != nil {
		return m.updateSessionFn(ctx, actor, sessionID, update)
	}
	return nil, fmt.Errorf("not implemented")
}

func (m *mockSessionService) DeleteSession(ctx context.Context, actor *domain.User, sessionID uuid.UUID) error {
	if m.deleteSessionFn != nil {
		return m.deleteSessionFn(ctx, actor, sessionID)
	}
	return nil
}

func (m *mockSessionService) Register(ctx context.Context, actor *domain.User, sessionID, userID uuid.UUID) (*domain.RegistrationOutcome, error) {
	if m.registerFn != nil {
		return m.registerFn(ctx, actor, sessionID, userID)
	}
	return nil, fmt.Errorf("not implemented")
}

func (m *mockSessionService) CancelRegistration(ctx context.Context, actor *domain.User, sessionID, userID uuid.UUID) (*domain.CancellationOutcome, error) {
	if m.cancelRegistrationFn != nil {
		return m.cancelRegistrationFn(ctx, actor, sessionID, userID)
	}
	return nil, fmt.Errorf("not implemented")
}

func (m *mockSessionService) Roster(ctx context.Context, actor *domain.User, sessionID uuid.UUID) ([]domain.RosterRegistration, error) {
	if m.rosterFn != nil {
		return m.rosterFn(ctx, actor, sessionID)
	}
	return nil, nil
}

func (m *mockSessionService) ListOwnUpcoming(ctx context.Context, actor *domain.User) ([]domain.UpcomingRegistration, error) {
	if m.listOwnUpcomingFn != nil {
		return m.listOwnUpcomingFn(ctx, actor)
	}
	return nil, nil
}

type mockBillingService struct {
	createPlanFn      func(ctx context.Context, actor *domain.User, plan *domain.Plan) (*domain.Plan, error)
	getPlanFn         func(ctx context.Context, actor *domain.User, planID uuid.UUID) (*domain.Plan, error)
	listPlansFn       func(ctx context.Context, actor *domain.User, activeOnly bool) ([]domain.Plan, error)
	updatePlanFn      func(ctx context.Context, actor *domain.User, planID uuid.UUID, update domain.PlanUpdate) (*domain.Plan, error)
	grantMembershipFn func(ctx context.Context, actor *domain.User, userID, planID uuid.UUID) (*domain.Membership, error)
	listMembershipsFn func(ctx context.Context, actor *domain.User, userID uuid.UUID) ([]domain.MembershipWithPlan, error)
	listInvoicesFn    func(ctx context.Context, actor *domain.User, userID uuid.UUID) ([]domain.Invoice, error)
}

func (m *mockBillingService) CreatePlan(ctx context.Context, actor *domain.User, plan *domain.Plan) (*domain.Plan, error) {
	if m.createPlanFn != nil {
		return m.createPlanFn(ctx, actor, plan)
	}
	return nil, fmt.Errorf("not implemented")
}

func (m *mockBillingService) GetPlan(ctx context.Context, actor *domain.User, planID uuid.UUID) (*domain.Plan, error) {
	if m.getPlanFn != nil {
		return m.getPlanFn(ctx, actor, planID)
	}
	return nil, fmt.Errorf("not implemented")
}

func (m *mockBillingService) ListPlans(ctx context.Context, actor *domain.User, activeOnly bool) ([]domain.Plan, error) {
	if m.listPlansFn != nil {
		return m.listPlansFn(ctx, actor, activeOnly)
	}
	return nil, nil
}

func (m *mockBillingService) UpdatePlan(ctx context.Context, actor *domain.User, planID uuid.UUID, update domain.PlanUpdate) (*domain.Plan, error) {
	if m.updatePlanFn != nil {
		return m.updatePlanFn(ctx, actor, planID, update)
	}
	return nil, fmt.Errorf("not implemented")
}

func (m *mockBillingService) GrantMembership(ctx context.Context, actor *domain.User, userID, planID uuid.UUID) (*domain.Membership, error) {
	if m.grantMembershipFn != nil {
		return m.grantMembershipFn(ctx, actor, userID, planID)
	}
	return nil, fmt.Errorf("not implemented")
}

func (m *mockBillingService) ListMemberships(ctx context.Context, actor *domain.User, userID uuid.UUID) ([]domain.MembershipWithPlan, error) {
	if m.listMembershipsFn != nil {
		return m.listMembershipsFn(ctx, actor, userID)
	}
	return nil, nil
}

func (m *mockBillingService) ListInvoices(ctx context.Context, actor *domain.User, userID uuid.UUID) ([]domain.Invoice, error) {
	if m.listInvoicesFn != nil {
		return m.listInvoicesFn(ctx, actor, userID)
	}
	return nil, nil
}

func (m *mockBillingService) ApplyInvoicePaid(context.Context, string, string, int64, string, time.Time) error {
	return nil
}

func (m *mockBillingService) ApplyInvoiceFailed(context.Context, string, string, int64, string, time.Time) error {
	return nil
}

func (m *mockBillingService) ApplySubscriptionCreated(context.Context, string, string, string, time.Time) error {
	return nil
}

func (m *mockBillingService) ApplySubscriptionCancelled(context.Context, string, time.Time) error {
	return nil
}

type mockQuestionnaireService struct {
	createFn        func(ctx context.Context, actor *domain.User, q *domain.Questionnaire) (*domain.Questionnaire, error)
	getFn           func(ctx context.Context, actor *domain.User, questionnaireID uuid.UUID) (*domain.Questionnaire, error)
	listForCohortFn func(ctx context.Context, actor *domain.User, cohortID uuid.UUID) ([]domain.Questionnaire, error)
	listAssignedFn  func(ctx context.Context, actor *domain.User) ([]domain.Questionnaire, error)
	updateFn        func(ctx context.Context, actor *domain.User, q *domain.Questionnaire) (*domain.Questionnaire, error)
	deleteFn        func(ctx context.Context, actor *domain.User, questionnaireID uuid.UUID) error
	submitFn        func(ctx context.Context, actor *domain.User, questionnaireID uuid.UUID, answers []domain.Answer) (*domain.Response, error)
	listResponsesFn func(ctx context.Context, actor *domain.User, questionnaireID uuid.UUID) ([]domain.Response, *domain.CompletionStats, error)
}

func (m *mockQuestionnaireService) CreateQuestionnaire(ctx context.Context, actor *domain.User, q *domain.Questionnaire) (*domain.Questionnaire, error) {
	if m.createFn != nil {
		return m.createFn(ctx, actor, q)
	}
	return nil, fmt.Errorf("not implemented")
}

func (m *mockQuestionnaireService) GetQuestionnaire(ctx context.Context, actor *domain.User, questionnaireID uuid.UUID) (*domain.Questionnaire, error) {
	if m.getFn != nil {
		return m.getFn(ctx, actor, questionnaireID)
	}
	return nil, fmt.Errorf("not implemented")
}

func (m *mockQuestionnaireService) ListForCohort(ctx context.Context, actor *domain.User, cohortID uuid.UUID) ([]domain.Questionnaire, error) {
	if m.listForCohortFn != nil {
		return m.listForCohortFn(ctx, actor, cohortID)
	}
	return nil, nil
}

func (m *mockQuestionnaireService) ListAssigned(ctx context.Context, actor *domain.User) ([]domain.Questionnaire, error) {
	if m.listAssignedFn != nil {
		return m.listAssignedFn(ctx, actor)
	}
	return nil, nil
}

func (m *mockQuestionnaireService) UpdateQuestionnaire(ctx context.Context, actor *domain.User, q *domain.Questionnaire) (*domain.Questionnaire, error) {
	if m.updateFn != nil {
		return m.updateFn(ctx, actor, q)
	}
	return nil, fmt.Errorf("not implemented")
}

func (m *mockQuestionnaireService) DeleteQuestionnaire(ctx context.Context, actor *domain.User, questionnaireID uuid.UUID) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, actor, questionnaireID)
	}
	return nil
}

func (m *mockQuestionnaireService) SubmitResponse(ctx context.Context, actor *domain.User, questionnaireID uuid.UUID, answers []domain.Answer) (*domain.Response, error) {
	if m.submitFn != nil {
		return m.submitFn(ctx, actor, questionnaireID, answers)
	}
	return nil, fmt.Errorf("not implemented")
}

func (m *mockQuestionnaireService) ListResponses(ctx context.Context, actor *domain.User, questionnaireID uuid.UUID) ([]domain.Response, *domain.CompletionStats, error) {
	if m.listResponsesFn != nil {
		return m.listResponsesFn(ctx, actor, questionnaireID)
	}
	return nil, &domain.CompletionStats{}, nil
}

type mockReportService struct {
	cohortWeeklyCheckinsFn func(ctx context.Context, actor *domain.User, cohortID uuid.UUID) ([]domain.SeriesPoint, error)
	clientWeightTrendFn    func(ctx context.Context, actor *domain.User, userID uuid.UUID, from, to time.Time) ([]domain.SeriesPoint, error)
	cohortAttendanceFn     func(ctx context.Context, actor *domain.User, cohortID uuid.UUID) ([]domain.AttendancePoint, error)
	monthlyRevenueFn       func(ctx context.Context, actor *domain.User) ([]domain.SeriesPoint, error)
	membershipsPerPlanFn   func(ctx context.Context, actor *domain.User) ([]domain.SeriesPoint, error)
}

func (m *mockReportService) CohortWeeklyCheckins(ctx context.Context, actor *domain.User, cohortID uuid.UUID) ([]domain.SeriesPoint, error) {
	if m.cohortWeeklyCheckinsFn != nil {
		return m.cohortWeeklyCheckinsFn(ctx, actor, cohortID)
	}
	return nil, nil
}

func (m *mockReportService) ClientWeightTrend(ctx context.Context, actor *domain.User, userID uuid.UUID, from, to time.Time) ([]domain.SeriesPoint, error) {
	if m.clientWeightTrendFn != nil {
		return m.clientWeightTrendFn(ctx, actor, userID, from, to)
	}
	return nil, nil
}

func (m *mockReportService) CohortAttendance(ctx context.Context, actor *domain.User, cohortID uuid.UUID) ([]domain.AttendancePoint, error) {
	if m.cohortAttendanceFn != nil {
		return m.cohortAttendanceFn(ctx, actor, cohortID)
	}
	return nil, nil
}

func (m *mockReportService) MonthlyRevenue(ctx context.Context, actor *domain.User) ([]domain.SeriesPoint, error) {
	if m.monthlyRevenueFn != nil {
		return m.monthlyRevenueFn(ctx, actor)
	}
	return nil, nil
}

func (m *mockReportService) ActiveMembershipsPerPlan(ctx context.Context, actor *domain.User) ([]domain.SeriesPoint, error) {
	if m.membershipsPerPlanFn != nil {
		return m.membershipsPerPlanFn(ctx, actor)
	}
	return nil, nil
}

type mockAuditService struct {
	listFn func(ctx context.Context, actor *domain.User, filter domain.AuditFilter) ([]domain.AuditRecord, error)
}

func (m *mockAuditService) Record(context.Context, uuid.UUID, string, string, string, map[string]any) {}

func (m *mockAuditService) List(ctx context.Context, actor *domain.User, filter domain.AuditFilter) ([]domain.AuditRecord, error) {
	if m.listFn != nil {
		return m.listFn(ctx, actor, filter)
	}
	return nil, nil
}

type mockIdentityClient struct {
	authorizeURLFn func(state string) string
	exchangeCodeFn func(ctx context.Context, code string) (*domain.ProviderLogin, error)
}

func (m *mockIdentityClient) AuthorizeURL(state string) string {
	if m.authorizeURLFn != nil {
		return m.authorizeURLFn(state)
	}
	return "https://id.example.com/authorize?state=" + state
}

func (m *mockIdentityClient) ExchangeCode(ctx context.Context, code string) (*domain.ProviderLogin, error) {
	if m.exchangeCodeFn != nil {
		return m.exchangeCodeFn(ctx, code)
	}
	return nil, fmt.Errorf("not implemented")
}

// --- Test fixtures ---

func testConfig() *config.Config {
	return &config.Config{
		AppEnv:        "test",
		Port:          "8080",
		SessionSecret: "test-session-secret",
	}
}

func testServices() Services {
	return Services{
		Users:          &mockUserService{},
		Cohorts:        &mockCohortService{},
		Entries:        &mockEntryService{},
		Sessions:       &mockSessionService{},
		Billing:        &mockBillingService{},
		Attention:      &mockAttentionService{},
		Questionnaires: &mockQuestionnaireService{},
		Reports:        &mockReportService{},
		Audit:          &mockAuditService{},
	}
}

func newTestServer(t *testing.T, services Services, identityClient *mockIdentityClient) *Server {
	t.Helper()
	if identityClient == nil {
		identityClient = &mockIdentityClient{}
	}
	return NewServer(testConfig(), services, identityClient, nil, nil, nil)
}

func adminUser() *domain.User {
	return &domain.User{ID: uuid.New(), Role: domain.RoleAdmin, Active: true, Email: "admin@example.com", DisplayName: "Admin"}
}

func coachUser() *domain.User {
	return &domain.User{ID: uuid.New(), Role: domain.RoleCoach, Active: true, Email: "coach@example.com", DisplayName: "Coach"}
}

func clientUser() *domain.User {
	return &domain.User{ID: uuid.New(), Role: domain.RoleClient, Active: true, Email: "client@example.com", DisplayName: "Client", CheckinTarget: 5}
}

// loginAs wires ResolveSessionUser to the given user and returns the session
// cookie a real login would have set.
func loginAs(t *testing.T, srv *Server, services Services, user *domain.User) *http.Cookie {
	t.Helper()

	services.Users.(*mockUserService).resolveSessionUserFn = func(_ context.Context, userID uuid.UUID) (*domain.User, error) {
		if userID != user.ID {
			return nil, apperrors.UnauthorizedError("unknown session")
		}
		return user, nil
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	session, err := srv.sessionStore.New(req, sessionName)
	require.NoError(t, err)
	session.Values[sessionKeyUserID] = user.ID.String()
	require.NoError(t, session.Save(req, rec))

	cookies := rec.Result().Cookies()
	require.NotEmpty(t, cookies)
	for _, c := range cookies {
		if c.Name == sessionName {
			return c
		}
	}
	t.Fatal("session cookie not set")
	return nil
}

// doJSON runs a request through the full echo stack.
func doJSON(srv *Server, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	srv.echo.ServeHTTP(rec, req)
	return rec
}
