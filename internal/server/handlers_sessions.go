package server

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/strenly/coachpulse/internal/domain"
	apperrors "github.com/strenly/coachpulse/internal/errors"
	"github.com/strenly/coachpulse/internal/validation"
)

type createSessionRequest struct {
	CohortID *uuid.UUID `json:"cohort_id"`
	Title    string     `json:"title" validate:"required,min=1,max=200"`
	StartsAt time.Time  `json:"starts_at" validate:"required"`
	EndsAt   time.Time  `json:"ends_at" validate:"required"`
	Capacity int        `json:"capacity" validate:"required,min=1"`
}

func (s *Server) handleCreateSession(c echo.Context) error {
	actor, err := currentUser(c)
	if err != nil {
		return err
	}

	var req createSessionRequest
	if err := c.Bind(&req); err != nil {
		return apperrors.ValidationError("invalid request body")
	}
	if err := validation.Struct(req); err != nil {
		return err
	}

	session, err := s.services.Sessions.CreateSession(c.Request().Context(), actor, &domain.Session{
		CoachID:  actor.ID,
		CohortID: req.CohortID,
		Title:    req.Title,
		StartsAt: req.StartsAt,
		EndsAt:   req.EndsAt,
		Capacity: req.Capacity,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, sessionResponseFrom(session))
}

func (s *Server) handleListSessions(c echo.Context) error {
	actor, err := currentUser(c)
	if err != nil {
		return err
	}

	var filter domain.SessionListFilter
	if raw := c.QueryParam("coach_id"); raw != "" {
		coachID, err := uuid.Parse(raw)
		if err != nil {
			return apperrors.ValidationError("invalid coach_id").WithField("coach_id", raw)
		}
		filter.CoachID = coachID
	}
	if raw := c.QueryParam("cohort_id"); raw != "" {
		cohortID, err := uuid.Parse(raw)
		if err != nil {
			return apperrors.ValidationError("invalid cohort_id").WithField("cohort_id", raw)
		}
		filter.CohortID = cohortID
	}
	if raw := c.QueryParam("from"); raw != "" {
		from, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return apperrors.ValidationError("from must be RFC 3339").WithField("from", raw)
		}
		filter.From = from
	}
	if raw := c.QueryParam("to"); raw != "" {
		to, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return apperrors.ValidationError("to must be RFC 3339").WithField("to", raw)
		}
		filter.To = to
	}

	sessions, err := s.services.Sessions.ListSessions(c.Request().Context(), actor, filter)
	if err != nil {
		return err
	}

	out := make([]sessionResponse, len(sessions))
	for i := range sessions {
		out[i] = sessionResponseFrom(&sessions[i])
	}
	return c.JSON(http.StatusOK, out)
}

func (s *Server) handleGetSession(c echo.Context) error {
	actor, err := currentUser(c)
	if err != nil {
		return err
	}
	sessionID, err := uuidParam(c, "id")
	if err != nil {
		return err
	}

	session, err := s.services.Sessions.GetSession(c.Request().Context(), actor, sessionID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, sessionResponseFrom(session))
}

type updateSessionRequest struct {
	Title    *string    `json:"title" validate:"omitempty,min=1,max=200"`
	StartsAt *time.Time `json:"starts_at"`
	EndsAt   *time.Time `json:"ends_at"`
	Capacity *int       `json:"capacity" validate:"omitempty,min=1"`
}

func (s *Server) handleUpdateSession(c echo.Context) error {
	actor, err := currentUser(c)
	if err != nil {
		return err
	}
	sessionID, err := uuidParam(c, "id")
	if err != nil {
		return err
	}

	var req updateSessionRequest
	if err := c.Bind(&req); err != nil {
		return apperrors.ValidationError("invalid request body")
	}
	if err := validation.Struct(req); err != nil {
		return err
	}

	session, err := s.services.Sessions.UpdateSession(c.Request().Context(), actor, sessionID, domain.SessionUpdate{
		Title:    req.Title,
		StartsAt: req.StartsAt,
		EndsAt:   req.EndsAt,
		Capacity: req.Capacity,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, sessionResponseFrom(session))
}

func (s *Server) handleDeleteSession(c echo.Context) error {
	actor, err := currentUser(c)
	if err != nil {
		return err
	}
	sessionID, err := uuidParam(c, "id")
	if err != nil {
		return err
	}

	if err := s.services.Sessions.DeleteSession(c.Request().Context(), actor, sessionID); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

type registerRequest struct {
	// UserID defaults to the acting user; coaches and admins may register
	// clients on their behalf.
	UserID *uuid.UUID `json:"user_id"`
}

func (s *Server) handleRegister(c echo.Context) error {
	actor, err := currentUser(c)
	if err != nil {
		return err
	}
	sessionID, err := uuidParam(c, "id")
	if err != nil {
		return err
	}

	var req registerRequest
	if err := c.Bind(&req); err != nil {
		return apperrors.ValidationError("invalid request body")
	}
	userID := actor.ID
	if req.UserID != nil {
		userID = *req.UserID
	}

	outcome, err := s.services.Sessions.Register(c.Request().Context(), actor, sessionID, userID)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, map[string]any{
		"registration": registrationResponseFrom(outcome.Registration),
		"waitlisted":   outcome.Waitlisted,
	})
}

func (s *Server) handleCancelRegistration(c echo.Context) error {
	actor, err := currentUser(c)
	if err != nil {
		return err
	}
	sessionID, err := uuidParam(c, "id")
	if err != nil {
		return err
	}
	userID, err := uuidParam(c, "userID")
	if err != nil {
		return err
	}

	outcome, err := s.services.Sessions.CancelRegistration(c.Request().Context(), actor, sessionID, userID)
	if err != nil {
		return err
	}

	resp := map[string]any{
		"cancelled": registrationResponseFrom(outcome.Cancelled),
		"refunded":  outcome.Refunded,
	}
	if outcome.Promoted != nil {
		resp["promoted"] = registrationResponseFrom(outcome.Promoted)
	}
	return c.JSON(http.StatusOK, resp)
}

func (s *Server) handleSessionRoster(c echo.Context) error {
	actor, err := currentUser(c)
	if err != nil {
		return err
	}
	sessionID, err := uuidParam(c, "id")
	if err != nil {
		return err
	}

	roster, err := s.services.Sessions.Roster(c.Request().Context(), actor, sessionID)
	if err != nil {
		return err
	}

	out := make([]map[string]any, len(roster))
	for i, row := range roster {
		out[i] = map[string]any{
			"registration": registrationResponseFrom(&row.Registration),
			"display_name": row.DisplayName,
			"email":        row.Email,
		}
	}
	return c.JSON(http.StatusOK, out)
}

func (s *Server) handleUpcomingRegistrations(c echo.Context) error {
	actor, err := currentUser(c)
	if err != nil {
		return err
	}

	upcoming, err := s.services.Sessions.ListOwnUpcoming(c.Request().Context(), actor)
	if err != nil {
		return err
	}

	out := make([]map[string]any, len(upcoming))
	for i, row := range upcoming {
		out[i] = map[string]any{
			"session":  sessionResponseFrom(&row.Session),
			"status":   string(row.Status),
			"position": row.Position,
		}
	}
	return c.JSON(http.StatusOK, out)
}
