package server

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/strenly/coachpulse/internal/domain"
	apperrors "github.com/strenly/coachpulse/internal/errors"
)

func attentionParams(c echo.Context) (domain.EntityType, error) {
	entityType := domain.EntityType(c.Param("entityType"))
	if !entityType.Valid() {
		return "", apperrors.ValidationError("invalid entity type").WithField("entity_type", c.Param("entityType"))
	}
	return entityType, nil
}

func (s *Server) handleAttentionScore(c echo.Context) error {
	actor, err := currentUser(c)
	if err != nil {
		return err
	}
	entityType, err := attentionParams(c)
	if err != nil {
		return err
	}
	entityID, err := uuidParam(c, "id")
	if err != nil {
		return err
	}

	score, err := s.services.Attention.Score(c.Request().Context(), actor, entityType, entityID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, scoreResponseFrom(score))
}

func (s *Server) handleAttentionRefresh(c echo.Context) error {
	actor, err := currentUser(c)
	if err != nil {
		return err
	}
	entityType, err := attentionParams(c)
	if err != nil {
		return err
	}
	entityID, err := uuidParam(c, "id")
	if err != nil {
		return err
	}

	score, err := s.services.Attention.Refresh(c.Request().Context(), actor, entityType, entityID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, scoreResponseFrom(score))
}

func (s *Server) handleAttentionQueue(c echo.Context) error {
	actor, err := currentUser(c)
	if err != nil {
		return err
	}

	limit := 0
	if raw := c.QueryParam("limit"); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil || limit < 1 {
			return apperrors.ValidationError("invalid limit").WithField("limit", raw)
		}
	}

	queue, err := s.services.Attention.Queue(c.Request().Context(), actor, limit)
	if err != nil {
		return err
	}

	out := make([]map[string]any, len(queue))
	for i, entry := range queue {
		out[i] = map[string]any{
			"user_id":      entry.UserID,
			"display_name": entry.DisplayName,
			"email":        entry.Email,
			"score":        entry.Score,
			"bucket":       string(entry.Bucket),
		}
	}
	return c.JSON(http.StatusOK, out)
}
