package app

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/strenly/coachpulse/internal/domain"
	apperrors "github.com/strenly/coachpulse/internal/errors"
	"github.com/strenly/coachpulse/internal/logging"
	"github.com/strenly/coachpulse/internal/metrics"
)

// SessionService implements domain.SessionService. Calendar sync is
// best-effort: session writes never fail because the calendar provider is
// down, a nightly job reconciles missing events.
type SessionService struct {
	sessions domain.SessionRepository
	cohorts  domain.CohortRepository
	users    domain.UserRepository
	calendar domain.CalendarClient
	notifier domain.Notifier
	audit    domain.AuditService
	clock    clockwork.Clock
}

var _ domain.SessionService = (*SessionService)(nil)

func NewSessionService(
	sessions domain.SessionRepository,
	cohorts domain.CohortRepository,
	users domain.UserRepository,
	calendar domain.CalendarClient,
	notifier domain.Notifier,
	audit domain.AuditService,
	clock clockwork.Clock,
) *SessionService {
	return &SessionService{
		sessions: sessions,
		cohorts:  cohorts,
		users:    users,
		calendar: calendar,
		notifier: notifier,
		audit:    audit,
		clock:    clock,
	}
}

func (s *SessionService) CreateSession(ctx context.Context, actor *domain.User, session *domain.Session) (*domain.Session, error) {
	if err := requireRole(actor, domain.RoleCoach); err != nil {
		return nil, err
	}
	if actor.Role == domain.RoleCoach {
		session.CoachID = actor.ID
	} else if session.CoachID == uuid.Nil {
		session.CoachID = actor.ID
	}
	if err := validateSessionTimes(session.Title, session.StartsAt, session.EndsAt, session.Capacity); err != nil {
		return nil, err
	}

	if session.CohortID != nil {
		cohort, err := s.cohorts.GetByID(ctx, *session.CohortID)
		if err != nil {
			return nil, translate(err, "Cohort not found")
		}
		if err := requireCohortAccess(actor, cohort); err != nil {
			return nil, err
		}
	}

	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, apperrors.InternalError("failed to create session", err)
	}

	s.pushCalendarEvent(ctx, session)
	return session, nil
}

func (s *SessionService) GetSession(ctx context.Context, actor *domain.User, sessionID uuid.UUID) (*domain.Session, error) {
	session, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		return nil, translate(err, "Session not found")
	}
	return session, nil
}

func (s *SessionService) ListSessions(ctx context.Context, actor *domain.User, filter domain.SessionListFilter) ([]domain.Session, error) {
	sessions, err := s.sessions.List(ctx, filter)
	if err != nil {
		return nil, apperrors.InternalError("failed to list sessions", err)
	}
	return sessions, nil
}

func (s *SessionService) UpdateSession(ctx context.Context, actor *domain.User, sessionID uuid.UUID, update domain.SessionUpdate) (*domain.Session, error) {
	session, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		return nil, translate(err, "Session not found")
	}
	if err := s.requireSessionWrite(actor, session); err != nil {
		return nil, err
	}

	title := session.Title
	if update.Title != nil {
		title = *update.Title
	}
	startsAt := session.StartsAt
	if update.StartsAt != nil {
		startsAt = *update.StartsAt
	}
	endsAt := session.EndsAt
	if update.EndsAt != nil {
		endsAt = *update.EndsAt
	}
	capacity := session.Capacity
	if update.Capacity != nil {
		capacity = *update.Capacity
	}
	if err := validateSessionTimes(title, startsAt, endsAt, capacity); err != nil {
		return nil, err
	}

	updated, err := s.sessions.Update(ctx, sessionID, update)
	if err != nil {
		return nil, translate(err, "Session not found")
	}

	if updated.CalendarEventID != "" {
		event := domain.CalendarEvent{Title: updated.Title, StartsAt: updated.StartsAt, EndsAt: updated.EndsAt}
		if err := s.calendar.UpdateEvent(ctx, updated.CalendarEventID, event); err != nil {
			logging.WithSession(updated.ID.String()).Warn("failed to update calendar event", "event_id", updated.CalendarEventID, "error", err)
		}
	} else {
		s.pushCalendarEvent(ctx, updated)
	}
	return updated, nil
}

func (s *SessionService) DeleteSession(ctx context.Context, actor *domain.User, sessionID uuid.UUID) error {
	session, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		return translate(err, "Session not found")
	}
	if err := s.requireSessionWrite(actor, session); err != nil {
		return err
	}

	if err := s.sessions.Delete(ctx, sessionID); err != nil {
		return translate(err, "Session not found")
	}

	if session.CalendarEventID != "" {
		if err := s.calendar.DeleteEvent(ctx, session.CalendarEventID); err != nil {
			logging.WithSession(sessionID.String()).Warn("failed to delete calendar event", "event_id", session.CalendarEventID, "error", err)
		}
	}

	s.audit.Record(ctx, actor.ID, "session.deleted", "session", sessionID.String(), nil)
	return nil
}

func (s *SessionService) Register(ctx context.Context, actor *domain.User, sessionID, userID uuid.UUID) (*domain.RegistrationOutcome, error) {
	if err := s.requireRegistrationAccess(ctx, actor, userID); err != nil {
		return nil, err
	}

	outcome, err := s.sessions.Register(ctx, sessionID, userID, s.clock.Now().UTC())
	if err != nil {
		metrics.RegistrationsTotal.WithLabelValues(registrationErrorOutcome(err)).Inc()
		return nil, translate(err, "Session not found")
	}

	if outcome.Waitlisted {
		metrics.RegistrationsTotal.WithLabelValues("waitlisted").Inc()
	} else {
		metrics.RegistrationsTotal.WithLabelValues("registered").Inc()
	}
	return outcome, nil
}

func (s *SessionService) CancelRegistration(ctx context.Context, actor *domain.User, sessionID, userID uuid.UUID) (*domain.CancellationOutcome, error) {
	if err := s.requireRegistrationAccess(ctx, actor, userID); err != nil {
		return nil, err
	}

	outcome, err := s.sessions.CancelRegistration(ctx, sessionID, userID, s.clock.Now().UTC())
	if err != nil {
		return nil, translate(err, "Registration not found")
	}

	if outcome.Promoted != nil {
		metrics.WaitlistPromotionsTotal.Inc()
		s.notifyPromotion(ctx, sessionID, outcome.Promoted.UserID)
	}
	return outcome, nil
}

func (s *SessionService) Roster(ctx context.Context, actor *domain.User, sessionID uuid.UUID) ([]domain.RosterRegistration, error) {
	session, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		return nil, translate(err, "Session not found")
	}
	if err := s.requireSessionWrite(actor, session); err != nil {
		return nil, err
	}

	roster, err := s.sessions.Roster(ctx, sessionID)
	if err != nil {
		return nil, apperrors.InternalError("failed to list session roster", err)
	}
	return roster, nil
}

func (s *SessionService) ListOwnUpcoming(ctx context.Context, actor *domain.User) ([]domain.UpcomingRegistration, error) {
	upcoming, err := s.sessions.ListUpcomingForUser(ctx, actor.ID, s.clock.Now().UTC())
	if err != nil {
		return nil, apperrors.InternalError("failed to list upcoming registrations", err)
	}
	return upcoming, nil
}

// requireSessionWrite allows the owning coach and admins.
func (s *SessionService) requireSessionWrite(actor *domain.User, session *domain.Session) error {
	if actor.Role == domain.RoleAdmin || session.CoachID == actor.ID {
		return nil
	}
	return apperrors.ForbiddenError("Forbidden")
}

// requireRegistrationAccess allows self-registration plus coaches and admins
// registering a client they may manage.
func (s *SessionService) requireRegistrationAccess(ctx context.Context, actor *domain.User, userID uuid.UUID) error {
	return requireUserAccess(ctx, s.cohorts, actor, userID)
}

func (s *SessionService) pushCalendarEvent(ctx context.Context, session *domain.Session) {
	event := domain.CalendarEvent{Title: session.Title, StartsAt: session.StartsAt, EndsAt: session.EndsAt}
	eventID, err := s.calendar.CreateEvent(ctx, event)
	if err != nil {
		logging.WithSession(session.ID.String()).Warn("failed to create calendar event", "error", err)
		return
	}
	if eventID == "" {
		return
	}
	if err := s.sessions.SetCalendarEventID(ctx, session.ID, eventID); err != nil {
		logging.WithSession(session.ID.String()).Error("failed to store calendar event id", "event_id", eventID, "error", err)
		return
	}
	session.CalendarEventID = eventID
}

func (s *SessionService) notifyPromotion(ctx context.Context, sessionID, userID uuid.UUID) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		logging.WithSession(sessionID.String()).Warn("failed to load promoted user for notification", "user_id", userID, "error", err)
		return
	}
	session, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		logging.WithSession(sessionID.String()).Warn("failed to load session for promotion notification", "error", err)
		return
	}
	s.notifier.SendWaitlistPromotion(ctx, user, session)
}

func validateSessionTimes(title string, startsAt, endsAt time.Time, capacity int) error {
	if title == "" {
		return apperrors.ValidationError("session title cannot be empty")
	}
	if !endsAt.After(startsAt) {
		return apperrors.ValidationError("session must end after it starts")
	}
	if capacity < 1 {
		return apperrors.ValidationError("session capacity must be at least 1")
	}
	return nil
}

func registrationErrorOutcome(err error) string {
	switch {
	case err == nil:
		return "registered"
	default:
		return "rejected"
	}
}
