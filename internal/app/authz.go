package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/strenly/coachpulse/internal/domain"
	apperrors "github.com/strenly/coachpulse/internal/errors"
)

// Authorization helpers shared by the services. The rule everywhere is
// self / own-cohort coach / admin; anything else is a 403.

func requireRole(actor *domain.User, required domain.Role) error {
	if actor == nil || !actor.Role.Covers(required) {
		return apperrors.ForbiddenError("Forbidden")
	}
	return nil
}

// canAccessUser reports whether actor may read userID's data: self always,
// admins always, coaches when the user belongs to one of their cohorts.
func canAccessUser(ctx context.Context, cohorts domain.CohortRepository, actor *domain.User, userID uuid.UUID) (bool, error) {
	if actor.ID == userID || actor.Role == domain.RoleAdmin {
		return true, nil
	}
	if actor.Role != domain.RoleCoach {
		return false, nil
	}
	coaches, err := cohorts.IsCoachOf(ctx, actor.ID, userID)
	if err != nil {
		return false, fmt.Errorf("failed to check coach relationship: %w", err)
	}
	return coaches, nil
}

func requireUserAccess(ctx context.Context, cohorts domain.CohortRepository, actor *domain.User, userID uuid.UUID) error {
	ok, err := canAccessUser(ctx, cohorts, actor, userID)
	if err != nil {
		return apperrors.InternalError("authorization check failed", err)
	}
	if !ok {
		return apperrors.ForbiddenError("Forbidden")
	}
	return nil
}

// requireCohortAccess allows the cohort's coach and admins.
func requireCohortAccess(actor *domain.User, cohort *domain.Cohort) error {
	if actor.Role == domain.RoleAdmin || (actor.Role == domain.RoleCoach && cohort.CoachID == actor.ID) {
		return nil
	}
	return apperrors.ForbiddenError("Forbidden")
}

// translate maps domain sentinel errors to their HTTP-facing structured
// equivalents. Unrecognized errors become 500s.
func translate(err error, notFoundMessage string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, domain.ErrUserNotFound),
		errors.Is(err, domain.ErrCohortNotFound),
		errors.Is(err, domain.ErrEntryNotFound),
		errors.Is(err, domain.ErrSessionNotFound),
		errors.Is(err, domain.ErrRegistrationNotFound),
		errors.Is(err, domain.ErrPlanNotFound),
		errors.Is(err, domain.ErrMembershipNotFound),
		errors.Is(err, domain.ErrInvoiceNotFound),
		errors.Is(err, domain.ErrQuestionnaireNotFound),
		errors.Is(err, domain.ErrResponseNotFound),
		errors.Is(err, domain.ErrScoreNotFound):
		return apperrors.NotFoundError(notFoundMessage)
	case errors.Is(err, domain.ErrDuplicateMember),
		errors.Is(err, domain.ErrDuplicateRegistration),
		errors.Is(err, domain.ErrSessionStarted),
		errors.Is(err, domain.ErrNoActiveMembership),
		errors.Is(err, domain.ErrAllowanceExhausted):
		return apperrors.ConflictError(err.Error())
	default:
		return apperrors.InternalError("internal server error", err)
	}
}
