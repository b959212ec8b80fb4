package database

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"

	"github.com/strenly/coachpulse/internal/crypto"
	"github.com/strenly/coachpulse/internal/domain"
)

// CreateTestUser creates a client user through the login upsert with default
// values for testing. The provider subject doubles as the email local part so
// each subject yields a distinct user.
func CreateTestUser(t *testing.T, pool *pgxpool.Pool, subject string) *domain.User {
	t.Helper()

	repo := NewUserRepo(pool, crypto.NoopService{})
	ctx := context.Background()

	user, _, err := repo.UpsertFromLogin(ctx, domain.ProviderLogin{
		Subject:      subject,
		Email:        subject + "@example.com",
		DisplayName:  "testuser_" + subject,
		AccessToken:  "access_token",
		RefreshToken: "refresh_token",
		TokenExpiry:  time.Now().UTC().Add(1 * time.Hour),
	})
	require.NoError(t, err)
	require.NotEqual(t, uuid.Nil, user.ID)

	return user
}

// CreateTestCoach creates a user and promotes it to coach.
func CreateTestCoach(t *testing.T, pool *pgxpool.Pool, subject string) *domain.User {
	t.Helper()

	repo := NewUserRepo(pool, crypto.NoopService{})
	ctx := context.Background()

	user := CreateTestUser(t, pool, subject)
	require.NoError(t, repo.SetRole(ctx, user.ID, domain.RoleCoach))
	user.Role = domain.RoleCoach

	return user
}

// CreateTestCohort creates a cohort run by the given coach.
func CreateTestCohort(t *testing.T, pool *pgxpool.Pool, coachID uuid.UUID, name string) *domain.Cohort {
	t.Helper()

	repo := NewCohortRepo(pool)
	cohort := &domain.Cohort{
		Name:     name,
		CoachID:  coachID,
		StartsOn: time.Now().UTC().AddDate(0, 0, -30),
		EndsOn:   time.Now().UTC().AddDate(0, 0, 60),
	}
	require.NoError(t, repo.Create(context.Background(), cohort))

	return cohort
}

// CreateTestPlan creates a plan of the given kind with sensible defaults.
func CreateTestPlan(t *testing.T, pool *pgxpool.Pool, kind domain.PlanKind) *domain.Plan {
	t.Helper()

	plan := &domain.Plan{
		Name:       "test " + string(kind),
		Kind:       kind,
		PriceCents: 4900,
		Currency:   "EUR",
		Active:     true,
	}
	switch kind {
	case domain.PlanRecurring:
		perWeek := 3
		plan.SessionsPerWeek = &perWeek
	case domain.PlanPack:
		count := 10
		plan.SessionCount = &count
	case domain.PlanPrepaid:
		days := 30
		plan.DurationDays = &days
	}
	require.NoError(t, NewPlanRepo(pool).Create(context.Background(), plan))

	return plan
}

// CreateTestMembership grants userID an active membership on the plan,
// deriving balance and expiry from the plan kind.
func CreateTestMembership(t *testing.T, pool *pgxpool.Pool, userID uuid.UUID, plan *domain.Plan) *domain.Membership {
	t.Helper()

	m := &domain.Membership{
		UserID:    userID,
		PlanID:    plan.ID,
		Status:    domain.MembershipActive,
		StartedAt: time.Now().UTC(),
	}
	if plan.SessionCount != nil {
		remaining := *plan.SessionCount
		m.RemainingSessions = &remaining
	}
	if plan.DurationDays != nil {
		expires := time.Now().UTC().AddDate(0, 0, *plan.DurationDays)
		m.ExpiresAt = &expires
	}
	require.NoError(t, NewMembershipRepo(pool).Create(context.Background(), m))

	return m
}

// CreateTestSession creates a session with the given capacity starting 48h
// from now, far enough out that pack cancellations are refundable.
func CreateTestSession(t *testing.T, pool *pgxpool.Pool, coachID uuid.UUID, capacity int) *domain.Session {
	t.Helper()

	starts := time.Now().UTC().Add(48 * time.Hour)
	session := &domain.Session{
		CoachID:  coachID,
		Title:    "test session",
		StartsAt: starts,
		EndsAt:   starts.Add(time.Hour),
		Capacity: capacity,
	}
	require.NoError(t, NewSessionRepo(pool).Create(context.Background(), session))

	return session
}
