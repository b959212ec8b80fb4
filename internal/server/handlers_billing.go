package server

import (
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/strenly/coachpulse/internal/domain"
	apperrors "github.com/strenly/coachpulse/internal/errors"
	"github.com/strenly/coachpulse/internal/validation"
)

type createPlanRequest struct {
	Name            string `json:"name" validate:"required,min=1,max=200"`
	Kind            string `json:"kind" validate:"required,oneof=recurring pack prepaid"`
	PriceCents      int    `json:"price_cents" validate:"min=0"`
	Currency        string `json:"currency" validate:"required,len=3"`
	SessionsPerWeek *int   `json:"sessions_per_week" validate:"omitempty,min=1"`
	SessionCount    *int   `json:"session_count" validate:"omitempty,min=1"`
	DurationDays    *int   `json:"duration_days" validate:"omitempty,min=1"`
	ProviderPriceID string `json:"provider_price_id" validate:"max=200"`
}

func (s *Server) handleCreatePlan(c echo.Context) error {
	actor, err := currentUser(c)
	if err != nil {
		return err
	}

	var req createPlanRequest
	if err := c.Bind(&req); err != nil {
		return apperrors.ValidationError("invalid request body")
	}
	if err := validation.Struct(req); err != nil {
		return err
	}

	plan, err := s.services.Billing.CreatePlan(c.Request().Context(), actor, &domain.Plan{
		Name:            req.Name,
		Kind:            domain.PlanKind(req.Kind),
		PriceCents:      req.PriceCents,
		Currency:        req.Currency,
		SessionsPerWeek: req.SessionsPerWeek,
		SessionCount:    req.SessionCount,
		DurationDays:    req.DurationDays,
		ProviderPriceID: req.ProviderPriceID,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, planResponseFrom(plan))
}

func (s *Server) handleListPlans(c echo.Context) error {
	actor, err := currentUser(c)
	if err != nil {
		return err
	}

	activeOnly := false
	if raw := c.QueryParam("active_only"); raw != "" {
		activeOnly, err = strconv.ParseBool(raw)
		if err != nil {
			return apperrors.ValidationError("invalid active_only flag").WithField("active_only", raw)
		}
	}

	plans, err := s.services.Billing.ListPlans(c.Request().Context(), actor, activeOnly)
	if err != nil {
		return err
	}

	out := make([]planResponse, len(plans))
	for i := range plans {
		out[i] = planResponseFrom(&plans[i])
	}
	return c.JSON(http.StatusOK, out)
}

func (s *Server) handleGetPlan(c echo.Context) error {
	actor, err := currentUser(c)
	if err != nil {
		return err
	}
	planID, err := uuidParam(c, "id")
	if err != nil {
		return err
	}

	plan, err := s.services.Billing.GetPlan(c.Request().Context(), actor, planID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, planResponseFrom(plan))
}

type updatePlanRequest struct {
	Name            *string `json:"name" validate:"omitempty,min=1,max=200"`
	PriceCents      *int    `json:"price_cents" validate:"omitempty,min=0"`
	SessionsPerWeek *int    `json:"sessions_per_week" validate:"omitempty,min=1"`
	SessionCount    *int    `json:"session_count" validate:"omitempty,min=1"`
	DurationDays    *int    `json:"duration_days" validate:"omitempty,min=1"`
	ProviderPriceID *string `json:"provider_price_id" validate:"omitempty,max=200"`
	Active          *bool   `json:"active"`
}

func (s *Server) handleUpdatePlan(c echo.Context) error {
	actor, err := currentUser(c)
	if err != nil {
		return err
	}
	planID, err := uuidParam(c, "id")
	if err != nil {
		return err
	}

	var req updatePlanRequest
	if err := c.Bind(&req); err != nil {
		return apperrors.ValidationError("invalid request body")
	}
	if err := validation.Struct(req); err != nil {
		return err
	}

	plan, err := s.services.Billing.UpdatePlan(c.Request().Context(), actor, planID, domain.PlanUpdate{
		Name:            req.Name,
		PriceCents:      req.PriceCents,
		SessionsPerWeek: req.SessionsPerWeek,
		SessionCount:    req.SessionCount,
		DurationDays:    req.DurationDays,
		ProviderPriceID: req.ProviderPriceID,
		Active:          req.Active,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, planResponseFrom(plan))
}

type grantMembershipRequest struct {
	UserID uuid.UUID `json:"user_id" validate:"required"`
	PlanID uuid.UUID `json:"plan_id" validate:"required"`
}

func (s *Server) handleGrantMembership(c echo.Context) error {
	actor, err := currentUser(c)
	if err != nil {
		return err
	}

	var req grantMembershipRequest
	if err := c.Bind(&req); err != nil {
		return apperrors.ValidationError("invalid request body")
	}
	if err := validation.Struct(req); err != nil {
		return err
	}

	membership, err := s.services.Billing.GrantMembership(c.Request().Context(), actor, req.UserID, req.PlanID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, map[string]any{
		"id":                 membership.ID,
		"user_id":            membership.UserID,
		"plan_id":            membership.PlanID,
		"status":             string(membership.Status),
		"remaining_sessions": membership.RemainingSessions,
		"expires_at":         membership.ExpiresAt,
	})
}

func (s *Server) handleListMemberships(c echo.Context) error {
	actor, err := currentUser(c)
	if err != nil {
		return err
	}
	userID, err := uuidParam(c, "id")
	if err != nil {
		return err
	}

	memberships, err := s.services.Billing.ListMemberships(c.Request().Context(), actor, userID)
	if err != nil {
		return err
	}

	out := make([]membershipResponse, len(memberships))
	for i := range memberships {
		out[i] = membershipResponseFrom(&memberships[i])
	}
	return c.JSON(http.StatusOK, out)
}

func (s *Server) handleListInvoices(c echo.Context) error {
	actor, err := currentUser(c)
	if err != nil {
		return err
	}
	userID, err := uuidParam(c, "id")
	if err != nil {
		return err
	}

	invoices, err := s.services.Billing.ListInvoices(c.Request().Context(), actor, userID)
	if err != nil {
		return err
	}

	out := make([]invoiceResponse, len(invoices))
	for i := range invoices {
		out[i] = invoiceResponseFrom(&invoices[i])
	}
	return c.JSON(http.StatusOK, out)
}
