package server

import (
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/strenly/coachpulse/internal/domain"
	apperrors "github.com/strenly/coachpulse/internal/errors"
	"github.com/strenly/coachpulse/internal/metrics"
)

const contextKeyUser = "user"

// requestLogger emits one slog line per request and feeds the HTTP metrics.
func requestLogger() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			duration := time.Since(start)

			req := c.Request()
			status := c.Response().Status
			path := c.Path()
			if path == "" {
				path = req.URL.Path
			}

			metrics.HTTPRequestsTotal.WithLabelValues(req.Method, path, httpStatusLabel(status)).Inc()
			metrics.HTTPRequestDuration.WithLabelValues(req.Method, path).Observe(duration.Seconds())

			slog.Info("request",
				"method", req.Method,
				"path", req.URL.Path,
				"status", status,
				"duration_ms", duration.Milliseconds(),
				"request_id", c.Response().Header().Get(echo.HeaderXRequestID),
				"remote_ip", c.RealIP(),
			)
			return err
		}
	}
}

func httpStatusLabel(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}

// requireAuth resolves the session cookie into the acting user. API clients
// get a 401 JSON body rather than a redirect.
func (s *Server) requireAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		session, err := s.sessionStore.Get(c.Request(), sessionName)
		if err != nil {
			return apperrors.UnauthorizedError("invalid session")
		}

		rawID, ok := session.Values[sessionKeyUserID].(string)
		if !ok {
			return apperrors.UnauthorizedError("authentication required")
		}
		userID, err := uuid.Parse(rawID)
		if err != nil {
			return apperrors.UnauthorizedError("invalid session")
		}

		user, err := s.services.Users.ResolveSessionUser(c.Request().Context(), userID)
		if err != nil {
			return err
		}

		c.Set(contextKeyUser, user)
		c.Set("userID", user.ID)
		return next(c)
	}
}

// requireRole gates a route on a minimum role. Must run after requireAuth.
func (s *Server) requireRole(role domain.Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			user, err := currentUser(c)
			if err != nil {
				return err
			}
			if !user.Role.Covers(role) {
				return apperrors.ForbiddenError("insufficient role")
			}
			return next(c)
		}
	}
}

func currentUser(c echo.Context) (*domain.User, error) {
	user, ok := c.Get(contextKeyUser).(*domain.User)
	if !ok || user == nil {
		return nil, apperrors.UnauthorizedError("authentication required")
	}
	return user, nil
}

// rateLimitAuth rejects clients that hammer the login endpoints.
func (s *Server) rateLimitAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if !s.loginLimiter.Allow(c.RealIP()) {
			metrics.LoginAttemptsTotal.WithLabelValues("rate_limited").Inc()
			return echo.NewHTTPError(429, "too many login attempts")
		}
		return next(c)
	}
}
