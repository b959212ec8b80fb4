package server

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/strenly/coachpulse/internal/domain"
	apperrors "github.com/strenly/coachpulse/internal/errors"
	"github.com/strenly/coachpulse/internal/validation"
)

type upsertEntryRequest struct {
	EntryDate  string   `json:"entry_date" validate:"required"`
	WeightKg   *float64 `json:"weight_kg"`
	Steps      *int     `json:"steps"`
	SleepHours *float64 `json:"sleep_hours"`
	Energy     *int     `json:"energy"`
	Mood       *int     `json:"mood"`
	Notes      string   `json:"notes" validate:"max=4000"`
}

func (s *Server) handleUpsertEntry(c echo.Context) error {
	actor, err := currentUser(c)
	if err != nil {
		return err
	}

	var req upsertEntryRequest
	if err := c.Bind(&req); err != nil {
		return apperrors.ValidationError("invalid request body")
	}
	if err := validation.Struct(req); err != nil {
		return err
	}

	entryDate, err := time.Parse(entryDateLayout, req.EntryDate)
	if err != nil {
		return apperrors.ValidationError("entry_date must be YYYY-MM-DD").WithField("entry_date", req.EntryDate)
	}

	entry, err := s.services.Entries.UpsertEntry(c.Request().Context(), actor, &domain.Entry{
		UserID:     actor.ID,
		EntryDate:  entryDate,
		WeightKg:   req.WeightKg,
		Steps:      req.Steps,
		SleepHours: req.SleepHours,
		Energy:     req.Energy,
		Mood:       req.Mood,
		Notes:      req.Notes,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, entryResponseFrom(entry))
}

func (s *Server) handleListEntries(c echo.Context) error {
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

	entries, err := s.services.Entries.ListEntries(c.Request().Context(), actor, userID, from, to)
	if err != nil {
		return err
	}

	out := make([]entryResponse, len(entries))
	for i := range entries {
		out[i] = entryResponseFrom(&entries[i])
	}
	return c.JSON(http.StatusOK, out)
}

func (s *Server) handleStreak(c echo.Context) error {
	actor, err := currentUser(c)
	if err != nil {
		return err
	}
	userID, err := uuidParam(c, "id")
	if err != nil {
		return err
	}

	streak, err := s.services.Entries.Streak(c.Request().Context(), actor, userID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]int{"streak": streak})
}
