package app

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"

	"github.com/strenly/coachpulse/internal/domain"
	apperrors "github.com/strenly/coachpulse/internal/errors"
)

// CohortService implements domain.CohortService.
type CohortService struct {
	cohorts   domain.CohortRepository
	users     domain.UserRepository
	attention domain.AttentionRepository
	audit     domain.AuditService
}

var _ domain.CohortService = (*CohortService)(nil)

func NewCohortService(cohorts domain.CohortRepository, users domain.UserRepository, attention domain.AttentionRepository, audit domain.AuditService) *CohortService {
	return &CohortService{cohorts: cohorts, users: users, attention: attention, audit: audit}
}

func (s *CohortService) CreateCohort(ctx context.Context, actor *domain.User, cohort *domain.Cohort) (*domain.Cohort, error) {
	if err := requireRole(actor, domain.RoleAdmin); err != nil {
		return nil, err
	}
	if cohort.Name == "" {
		return nil, apperrors.ValidationError("cohort name cannot be empty")
	}
	if cohort.EndsOn.Before(cohort.StartsOn) {
		return nil, apperrors.ValidationError("cohort end date must not be before start date")
	}
	if err := s.requireCoachRole(ctx, cohort.CoachID); err != nil {
		return nil, err
	}

	if err := s.cohorts.Create(ctx, cohort); err != nil {
		return nil, apperrors.InternalError("failed to create cohort", err)
	}
	return cohort, nil
}

func (s *CohortService) GetCohort(ctx context.Context, actor *domain.User, cohortID uuid.UUID) (*domain.Cohort, error) {
	cohort, err := s.cohorts.GetByID(ctx, cohortID)
	if err != nil {
		return nil, translate(err, "Cohort not found")
	}

	if requireCohortAccess(actor, cohort) == nil {
		return cohort, nil
	}

	// Members may read their own cohort.
	member, err := s.cohorts.IsMember(ctx, cohortID, actor.ID)
	if err != nil {
		return nil, apperrors.InternalError("failed to check cohort membership", err)
	}
	if !member {
		return nil, apperrors.ForbiddenError("Forbidden")
	}
	return cohort, nil
}

func (s *CohortService) ListCohorts(ctx context.Context, actor *domain.User) ([]domain.Cohort, error) {
	var (
		cohorts []domain.Cohort
		err     error
	)
	switch actor.Role {
	case domain.RoleAdmin:
		cohorts, err = s.cohorts.List(ctx)
	case domain.RoleCoach:
		cohorts, err = s.cohorts.ListByCoach(ctx, actor.ID)
	default:
		cohorts, err = s.cohorts.ListForMember(ctx, actor.ID)
	}
	if err != nil {
		return nil, apperrors.InternalError("failed to list cohorts", err)
	}
	return cohorts, nil
}

func (s *CohortService) UpdateCohort(ctx context.Context, actor *domain.User, cohortID uuid.UUID, update domain.CohortUpdate) (*domain.Cohort, error) {
	cohort, err := s.cohorts.GetByID(ctx, cohortID)
	if err != nil {
		return nil, translate(err, "Cohort not found")
	}
	if err := requireCohortAccess(actor, cohort); err != nil {
		return nil, err
	}

	startsOn := cohort.StartsOn
	if update.StartsOn != nil {
		startsOn = *update.StartsOn
	}
	endsOn := cohort.EndsOn
	if update.EndsOn != nil {
		endsOn = *update.EndsOn
	}
	if endsOn.Before(startsOn) {
		return nil, apperrors.ValidationError("cohort end date must not be before start date")
	}
	if update.Name != nil && *update.Name == "" {
		return nil, apperrors.ValidationError("cohort name cannot be empty")
	}

	updated, err := s.cohorts.Update(ctx, cohortID, update)
	if err != nil {
		return nil, translate(err, "Cohort not found")
	}
	return updated, nil
}

func (s *CohortService) AssignCoach(ctx context.Context, actor *domain.User, cohortID, coachID uuid.UUID) error {
	if err := requireRole(actor, domain.RoleAdmin); err != nil {
		return err
	}
	if err := s.requireCoachRole(ctx, coachID); err != nil {
		return err
	}

	if err := s.cohorts.SetCoach(ctx, cohortID, coachID); err != nil {
		return translate(err, "Cohort not found")
	}
	return nil
}

func (s *CohortService) DeleteCohort(ctx context.Context, actor *domain.User, cohortID uuid.UUID) error {
	if err := requireRole(actor, domain.RoleAdmin); err != nil {
		return err
	}

	// Memberships and cached cohort scores go in one transaction; class
	// sessions keep a NULL cohort reference as historical record.
	if err := s.cohorts.Delete(ctx, cohortID); err != nil {
		return translate(err, "Cohort not found")
	}

	s.audit.Record(ctx, actor.ID, "cohort.deleted", "cohort", cohortID.String(), nil)
	return nil
}

func (s *CohortService) AddMember(ctx context.Context, actor *domain.User, cohortID, userID uuid.UUID) error {
	cohort, err := s.cohorts.GetByID(ctx, cohortID)
	if err != nil {
		return translate(err, "Cohort not found")
	}
	if err := requireCohortAccess(actor, cohort); err != nil {
		return err
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return translate(err, "User not found")
	}
	if user.Role != domain.RoleClient {
		return apperrors.ValidationError("only clients can join a cohort")
	}

	if err := s.cohorts.AddMember(ctx, cohortID, userID); err != nil {
		if errors.Is(err, domain.ErrDuplicateMember) {
			return apperrors.ConflictError("user is already a member of this cohort")
		}
		return apperrors.InternalError("failed to add cohort member", err)
	}

	s.invalidateCohortScore(ctx, cohortID)
	return nil
}

func (s *CohortService) RemoveMember(ctx context.Context, actor *domain.User, cohortID, userID uuid.UUID) error {
	cohort, err := s.cohorts.GetByID(ctx, cohortID)
	if err != nil {
		return translate(err, "Cohort not found")
	}
	if err := requireCohortAccess(actor, cohort); err != nil {
		return err
	}

	if err := s.cohorts.RemoveMember(ctx, cohortID, userID); err != nil {
		if errors.Is(err, domain.ErrNotCohortMember) {
			return apperrors.NotFoundError("user is not a member of the cohort")
		}
		return apperrors.InternalError("failed to remove cohort member", err)
	}

	s.invalidateCohortScore(ctx, cohortID)
	return nil
}

// ListRoster returns the member list with last check-in dates, decorated
// with whatever attention buckets are currently cached. Missing or stale
// cache rows leave the bucket empty rather than forcing a recompute here.
func (s *CohortService) ListRoster(ctx context.Context, actor *domain.User, cohortID uuid.UUID) ([]domain.RosterEntry, error) {
	cohort, err := s.cohorts.GetByID(ctx, cohortID)
	if err != nil {
		return nil, translate(err, "Cohort not found")
	}
	if err := requireCohortAccess(actor, cohort); err != nil {
		return nil, err
	}

	roster, err := s.cohorts.ListMembers(ctx, cohortID)
	if err != nil {
		return nil, apperrors.InternalError("failed to list cohort members", err)
	}

	for i := range roster {
		score, err := s.attention.Get(ctx, domain.EntityClient, roster[i].UserID)
		if err != nil {
			continue
		}
		roster[i].Bucket = score.Bucket
	}
	return roster, nil
}

func (s *CohortService) requireCoachRole(ctx context.Context, coachID uuid.UUID) error {
	coach, err := s.users.GetByID(ctx, coachID)
	if err != nil {
		return translate(err, "User not found")
	}
	if !coach.Role.Covers(domain.RoleCoach) {
		return apperrors.ValidationError("assigned coach must hold the coach role")
	}
	return nil
}

// invalidateCohortScore drops the cached cohort score after a membership
// change. Best-effort: the cache is advisory.
func (s *CohortService) invalidateCohortScore(ctx context.Context, cohortID uuid.UUID) {
	if err := s.attention.Invalidate(ctx, domain.EntityCohort, cohortID); err != nil {
		slog.Warn("failed to invalidate cohort attention score", "cohort_id", cohortID, "error", err)
	}
}
