package server

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/strenly/coachpulse/internal/domain"
	apperrors "github.com/strenly/coachpulse/internal/errors"
	"github.com/strenly/coachpulse/internal/validation"
)

func (s *Server) handleMe(c echo.Context) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, userResponseFrom(user))
}

func (s *Server) handleListUsers(c echo.Context) error {
	actor, err := currentUser(c)
	if err != nil {
		return err
	}

	filter := domain.UserListFilter{
		Role:   domain.Role(c.QueryParam("role")),
		Search: c.QueryParam("search"),
	}
	if raw := c.QueryParam("active"); raw != "" {
		active, err := strconv.ParseBool(raw)
		if err != nil {
			return apperrors.ValidationError("invalid active flag").WithField("active", raw)
		}
		filter.Active = &active
	}
	if raw := c.QueryParam("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 {
			return apperrors.ValidationError("invalid limit").WithField("limit", raw)
		}
		filter.Limit = limit
	}

	users, err := s.services.Users.ListUsers(c.Request().Context(), actor, filter)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, userResponsesFrom(users))
}

func (s *Server) handleGetUser(c echo.Context) error {
	actor, err := currentUser(c)
	if err != nil {
		return err
	}
	userID, err := uuidParam(c, "id")
	if err != nil {
		return err
	}

	user, err := s.services.Users.GetUser(c.Request().Context(), actor, userID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, userResponseFrom(user))
}

type updateProfileRequest struct {
	DisplayName   *string `json:"display_name" validate:"omitempty,min=1,max=100"`
	Timezone      *string `json:"timezone" validate:"omitempty,max=64"`
	CheckinTarget *int    `json:"checkin_target" validate:"omitempty,min=1,max=7"`
}

func (s *Server) handleUpdateProfile(c echo.Context) error {
	actor, err := currentUser(c)
	if err != nil {
		return err
	}
	userID, err := uuidParam(c, "id")
	if err != nil {
		return err
	}

	var req updateProfileRequest
	if err := c.Bind(&req); err != nil {
		return apperrors.ValidationError("invalid request body")
	}
	if err := validation.Struct(req); err != nil {
		return err
	}

	user, err := s.services.Users.UpdateProfile(c.Request().Context(), actor, userID, domain.ProfileUpdate{
		DisplayName:   req.DisplayName,
		Timezone:      req.Timezone,
		CheckinTarget: req.CheckinTarget,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, userResponseFrom(user))
}

type setRoleRequest struct {
	Role string `json:"role" validate:"required,oneof=client coach admin"`
}

func (s *Server) handleSetRole(c echo.Context) error {
	actor, err := currentUser(c)
	if err != nil {
		return err
	}
	userID, err := uuidParam(c, "id")
	if err != nil {
		return err
	}

	var req setRoleRequest
	if err := c.Bind(&req); err != nil {
		return apperrors.ValidationError("invalid request body")
	}
	if err := validation.Struct(req); err != nil {
		return err
	}

	if err := s.services.Users.SetRole(c.Request().Context(), actor, userID, domain.Role(req.Role)); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

type setActiveRequest struct {
	Active *bool `json:"active" validate:"required"`
}

func (s *Server) handleSetActive(c echo.Context) error {
	actor, err := currentUser(c)
	if err != nil {
		return err
	}
	userID, err := uuidParam(c, "id")
	if err != nil {
		return err
	}

	var req setActiveRequest
	if err := c.Bind(&req); err != nil {
		return apperrors.ValidationError("invalid request body")
	}
	if err := validation.Struct(req); err != nil {
		return err
	}

	if err := s.services.Users.SetActive(c.Request().Context(), actor, userID, *req.Active); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
