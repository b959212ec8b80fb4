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

type createCohortRequest struct {
	Name        string    `json:"name" validate:"required,min=1,max=200"`
	Description string    `json:"description" validate:"max=2000"`
	CoachID     uuid.UUID `json:"coach_id" validate:"required"`
	StartsOn    time.Time `json:"starts_on" validate:"required"`
	EndsOn      time.Time `json:"ends_on" validate:"required"`
}

func (s *Server) handleCreateCohort(c echo.Context) error {
	actor, err := currentUser(c)
	if err != nil {
		return err
	}

	var req createCohortRequest
	if err := c.Bind(&req); err != nil {
		return apperrors.ValidationError("invalid request body")
	}
	if err := validation.Struct(req); err != nil {
		return err
	}

	cohort, err := s.services.Cohorts.CreateCohort(c.Request().Context(), actor, &domain.Cohort{
		Name:        req.Name,
		Description: req.Description,
		CoachID:     req.CoachID,
		StartsOn:    req.StartsOn,
		EndsOn:      req.EndsOn,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, cohortResponseFrom(cohort))
}

func (s *Server) handleListCohorts(c echo.Context) error {
	actor, err := currentUser(c)
	if err != nil {
		return err
	}

	cohorts, err := s.services.Cohorts.ListCohorts(c.Request().Context(), actor)
	if err != nil {
		return err
	}

	out := make([]cohortResponse, len(cohorts))
	for i := range cohorts {
		out[i] = cohortResponseFrom(&cohorts[i])
	}
	return c.JSON(http.StatusOK, out)
}

func (s *Server) handleGetCohort(c echo.Context) error {
	actor, err := currentUser(c)
	if err != nil {
		return err
	}
	cohortID, err := uuidParam(c, "id")
	if err != nil {
		return err
	}

	cohort, err := s.services.Cohorts.GetCohort(c.Request().Context(), actor, cohortID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, cohortResponseFrom(cohort))
}

type updateCohortRequest struct {
	Name        *string    `json:"name" validate:"omitempty,min=1,max=200"`
	Description *string    `json:"description" validate:"omitempty,max=2000"`
	StartsOn    *time.Time `json:"starts_on"`
	EndsOn      *time.Time `json:"ends_on"`
}

func (s *Server) handleUpdateCohort(c echo.Context) error {
	actor, err := currentUser(c)
	if err != nil {
		return err
	}
	cohortID, err := uuidParam(c, "id")
	if err != nil {
		return err
	}

	var req updateCohortRequest
	if err := c.Bind(&req); err != nil {
		return apperrors.ValidationError("invalid request body")
	}
	if err := validation.Struct(req); err != nil {
		return err
	}

	cohort, err := s.services.Cohorts.UpdateCohort(c.Request().Context(), actor, cohortID, domain.CohortUpdate{
		Name:        req.Name,
		Description: req.Description,
		StartsOn:    req.StartsOn,
		EndsOn:      req.EndsOn,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, cohortResponseFrom(cohort))
}

func (s *Server) handleDeleteCohort(c echo.Context) error {
	actor, err := currentUser(c)
	if err != nil {
		return err
	}
	cohortID, err := uuidParam(c, "id")
	if err != nil {
		return err
	}

	if err := s.services.Cohorts.DeleteCohort(c.Request().Context(), actor, cohortID); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

type assignCoachRequest struct {
	CoachID uuid.UUID `json:"coach_id" validate:"required"`
}

func (s *Server) handleAssignCoach(c echo.Context) error {
	actor, err := currentUser(c)
	if err != nil {
		return err
	}
	cohortID, err := uuidParam(c, "id")
	if err != nil {
		return err
	}

	var req assignCoachRequest
	if err := c.Bind(&req); err != nil {
		return apperrors.ValidationError("invalid request body")
	}
	if err := validation.Struct(req); err != nil {
		return err
	}

	if err := s.services.Cohorts.AssignCoach(c.Request().Context(), actor, cohortID, req.CoachID); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

type addMemberRequest struct {
	UserID uuid.UUID `json:"user_id" validate:"required"`
}

func (s *Server) handleAddMember(c echo.Context) error {
	actor, err := currentUser(c)
	if err != nil {
		return err
	}
	cohortID, err := uuidParam(c, "id")
	if err != nil {
		return err
	}

	var req addMemberRequest
	if err := c.Bind(&req); err != nil {
		return apperrors.ValidationError("invalid request body")
	}
	if err := validation.Struct(req); err != nil {
		return err
	}

	if err := s.services.Cohorts.AddMember(c.Request().Context(), actor, cohortID, req.UserID); err != nil {
		return err
	}
	return c.NoContent(http.StatusCreated)
}

func (s *Server) handleRemoveMember(c echo.Context) error {
	actor, err := currentUser(c)
	if err != nil {
		return err
	}
	cohortID, err := uuidParam(c, "id")
	if err != nil {
		return err
	}
	userID, err := uuidParam(c, "userID")
	if err != nil {
		return err
	}

	if err := s.services.Cohorts.RemoveMember(c.Request().Context(), actor, cohortID, userID); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) handleCohortRoster(c echo.Context) error {
	actor, err := currentUser(c)
	if err != nil {
		return err
	}
	cohortID, err := uuidParam(c, "id")
	if err != nil {
		return err
	}

	roster, err := s.services.Cohorts.ListRoster(c.Request().Context(), actor, cohortID)
	if err != nil {
		return err
	}

	out := make([]rosterEntryResponse, len(roster))
	for i, entry := range roster {
		out[i] = rosterEntryResponse{
			UserID:        entry.UserID,
			DisplayName:   entry.DisplayName,
			Email:         entry.Email,
			JoinedAt:      entry.JoinedAt,
			LastEntryDate: entry.LastEntryDate,
			Bucket:        string(entry.Bucket),
		}
	}
	return c.JSON(http.StatusOK, out)
}
