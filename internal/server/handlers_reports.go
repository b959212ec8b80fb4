package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/strenly/coachpulse/internal/domain"
	apperrors "github.com/strenly/coachpulse/internal/errors"
)

func (s *Server) handleCohortCheckinReport(c echo.Context) error {
	actor, err := currentUser(c)
	if err != nil {
		return err
	}
	cohortID, err := uuidParam(c, "id")
	if err != nil {
		return err
	}

	points, err := s.services.Reports.CohortWeeklyCheckins(c.Request().Context(), actor, cohortID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, points)
}

func (s *Server) handleCohortAttendanceReport(c echo.Context) error {
	actor, err := currentUser(c)
	if err != nil {
		return err
	}
	cohortID, err := uuidParam(c, "id")
	if err != nil {
		return err
	}

	points, err := s.services.Reports.CohortAttendance(c.Request().Context(), actor, cohortID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, points)
}

func (s *Server) handleWeightTrend(c echo.Context) error {
	actor, err := currentUser(c)
	if err != nil {
		return err
	}
	userID, err := uuidParam(c, "id")
	if err != nil {
		return err
	}

	var from, to time.Time
	if raw := c.QueryParam("from"); raw != "" {
		from, err = time.Parse(entryDateLayout, raw)
		if err != nil {
			return apperrors.ValidationError("from must be YYYY-MM-DD").WithField("from", raw)
		}
	}
	if raw := c.QueryParam("to"); raw != "" {
		to, err = time.Parse(entryDateLayout, raw)
		if err != nil {
			return apperrors.ValidationError("to must be YYYY-MM-DD").WithField("to", raw)
		}
	}

	points, err := s.services.Reports.ClientWeightTrend(c.Request().Context(), actor, userID, from, to)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, points)
}

func (s *Server) handleRevenueReport(c echo.Context) error {
	actor, err := currentUser(c)
	if err != nil {
		return err
	}

	points, err := s.services.Reports.MonthlyRevenue(c.Request().Context(), actor)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, points)
}

func (s *Server) handleMembershipReport(c echo.Context) error {
	actor, err := currentUser(c)
	if err != nil {
		return err
	}

	points, err := s.services.Reports.ActiveMembershipsPerPlan(c.Request().Context(), actor)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, points)
}

func (s *Server) handleListAudit(c echo.Context) error {
	actor, err := currentUser(c)
	if err != nil {
		return err
	}

	filter := domain.AuditFilter{
		Action:     c.QueryParam("action"),
		EntityType: c.QueryParam("entity_type"),
		EntityID:   c.QueryParam("entity_id"),
	}
	if raw := c.QueryParam("actor_id"); raw != "" {
		actorID, err := uuid.Parse(raw)
		if err != nil {
			return apperrors.ValidationError("invalid actor_id").WithField("actor_id", raw)
		}
		filter.ActorID = actorID
	}
	if raw := c.QueryParam("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 {
			return apperrors.ValidationError("invalid limit").WithField("limit", raw)
		}
		filter.Limit = limit
	}

	records, err := s.services.Audit.List(c.Request().Context(), actor, filter)
	if err != nil {
		return err
	}

	out := make([]auditResponse, len(records))
	for i, record := range records {
		out[i] = auditResponse{
			ID:         record.ID,
			ActorID:    record.ActorID,
			Action:     record.Action,
			EntityType: record.EntityType,
			EntityID:   record.EntityID,
			Metadata:   record.Metadata,
			CreatedAt:  record.CreatedAt,
		}
	}
	return c.JSON(http.StatusOK, out)
}
