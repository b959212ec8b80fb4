package app

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"

	"github.com/strenly/coachpulse/internal/domain"
	apperrors "github.com/strenly/coachpulse/internal/errors"
)

// UserService implements domain.UserService.
type UserService struct {
	users    domain.UserRepository
	cohorts  domain.CohortRepository
	notifier domain.Notifier
	audit    domain.AuditService
}

var _ domain.UserService = (*UserService)(nil)

func NewUserService(users domain.UserRepository, cohorts domain.CohortRepository, notifier domain.Notifier, audit domain.AuditService) *UserService {
	return &UserService{users: users, cohorts: cohorts, notifier: notifier, audit: audit}
}

// CompleteLogin upserts the user for a verified provider identity. First-ever
// logins create a client user and trigger the welcome email; deactivated
// accounts are rejected even though the provider authenticated them.
func (s *UserService) CompleteLogin(ctx context.Context, login domain.ProviderLogin) (*domain.User, error) {
	user, created, err := s.users.UpsertFromLogin(ctx, login)
	if err != nil {
		return nil, apperrors.InternalError("failed to complete login", err)
	}

	if !user.Active {
		return nil, apperrors.ForbiddenError("Forbidden")
	}

	if created {
		slog.Info("first login created user", "user_id", user.ID, "email", user.Email)
		s.notifier.SendWelcome(ctx, user)
	}

	return user, nil
}

func (s *UserService) GetUser(ctx context.Context, actor *domain.User, userID uuid.UUID) (*domain.User, error) {
	if err := requireUserAccess(ctx, s.cohorts, actor, userID); err != nil {
		return nil, err
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, translate(err, "User not found")
	}
	return user, nil
}

func (s *UserService) ListUsers(ctx context.Context, actor *domain.User, filter domain.UserListFilter) ([]domain.User, error) {
	switch actor.Role {
	case domain.RoleAdmin:
		// Admins see everything the filter allows.
	case domain.RoleCoach:
		// Coaches only see clients of their own cohorts.
		filter.CoachID = actor.ID
		filter.Role = domain.RoleClient
	default:
		return nil, apperrors.ForbiddenError("Forbidden")
	}

	users, err := s.users.List(ctx, filter)
	if err != nil {
		return nil, apperrors.InternalError("failed to list users", err)
	}
	return users, nil
}

func (s *UserService) UpdateProfile(ctx context.Context, actor *domain.User, userID uuid.UUID, update domain.ProfileUpdate) (*domain.User, error) {
	if actor.ID != userID && actor.Role != domain.RoleAdmin {
		return nil, apperrors.ForbiddenError("Forbidden")
	}

	if update.CheckinTarget != nil && (*update.CheckinTarget < 1 || *update.CheckinTarget > 7) {
		return nil, apperrors.ValidationError("check-in target must be between 1 and 7")
	}
	if update.DisplayName != nil && *update.DisplayName == "" {
		return nil, apperrors.ValidationError("display name cannot be empty")
	}

	user, err := s.users.UpdateProfile(ctx, userID, update)
	if err != nil {
		return nil, translate(err, "User not found")
	}
	return user, nil
}

func (s *UserService) SetRole(ctx context.Context, actor *domain.User, userID uuid.UUID, role domain.Role) error {
	if err := requireRole(actor, domain.RoleAdmin); err != nil {
		return err
	}
	if !role.Valid() {
		return apperrors.ValidationError("invalid role")
	}

	if err := s.users.SetRole(ctx, userID, role); err != nil {
		return translate(err, "User not found")
	}

	s.audit.Record(ctx, actor.ID, "user.role_changed", "user", userID.String(), map[string]any{"role": string(role)})
	return nil
}

func (s *UserService) SetActive(ctx context.Context, actor *domain.User, userID uuid.UUID, active bool) error {
	if err := requireRole(actor, domain.RoleAdmin); err != nil {
		return err
	}

	if err := s.users.SetActive(ctx, userID, active); err != nil {
		return translate(err, "User not found")
	}

	action := "user.deactivated"
	if active {
		action = "user.activated"
	}
	s.audit.Record(ctx, actor.ID, action, "user", userID.String(), nil)
	return nil
}

// ResolveSessionUser loads the user behind a session cookie, used by the
// auth middleware. Deactivated users are treated as logged out.
func (s *UserService) ResolveSessionUser(ctx context.Context, userID uuid.UUID) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if errors.Is(err, domain.ErrUserNotFound) {
		return nil, apperrors.UnauthorizedError("unauthorized")
	}
	if err != nil {
		return nil, apperrors.InternalError("failed to resolve session user", err)
	}
	if !user.Active {
		return nil, apperrors.UnauthorizedError("unauthorized")
	}
	return user, nil
}
