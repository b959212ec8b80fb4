package server

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	apperrors "github.com/strenly/coachpulse/internal/errors"
	"github.com/strenly/coachpulse/internal/metrics"
)

func generateOAuthState() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate OAuth state: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// handleLogin stores a random state in the cookie session and redirects to
// the identity provider.
func (s *Server) handleLogin(c echo.Context) error {
	state, err := generateOAuthState()
	if err != nil {
		return apperrors.InternalError("failed to start login", err)
	}

	session, err := s.sessionStore.Get(c.Request(), sessionName)
	if err != nil {
		// Corrupt cookie: start over with a fresh session.
		session, _ = s.sessionStore.New(c.Request(), sessionName)
	}
	session.Values[sessionKeyOAuthState] = state
	if err := session.Save(c.Request(), c.Response().Writer); err != nil {
		return apperrors.InternalError("failed to save session", err)
	}

	return c.Redirect(http.StatusFound, s.identity.AuthorizeURL(state))
}

// handleCallback verifies the OAuth state, exchanges the code and completes
// the local login.
func (s *Server) handleCallback(c echo.Context) error {
	code := c.QueryParam("code")
	if code == "" {
		metrics.LoginAttemptsTotal.WithLabelValues("provider_error").Inc()
		return apperrors.ValidationError("missing code parameter")
	}

	session, err := s.sessionStore.Get(c.Request(), sessionName)
	if err != nil {
		metrics.LoginAttemptsTotal.WithLabelValues("state_mismatch").Inc()
		return apperrors.ValidationError("invalid session")
	}
	expectedState, ok := session.Values[sessionKeyOAuthState].(string)
	if !ok || expectedState == "" || c.QueryParam("state") != expectedState {
		metrics.LoginAttemptsTotal.WithLabelValues("state_mismatch").Inc()
		return apperrors.ValidationError("OAuth state mismatch")
	}
	delete(session.Values, sessionKeyOAuthState)

	ctx := c.Request().Context()

	login, err := s.identity.ExchangeCode(ctx, code)
	if err != nil {
		slog.Error("identity code exchange failed", "error", err)
		metrics.LoginAttemptsTotal.WithLabelValues("provider_error").Inc()
		return apperrors.ExternalError("failed to authenticate with identity provider", err)
	}

	user, err := s.services.Users.CompleteLogin(ctx, *login)
	if err != nil {
		if apperrors.AsStructuredError(err).Type == apperrors.TypeForbidden {
			metrics.LoginAttemptsTotal.WithLabelValues("deactivated").Inc()
		} else {
			metrics.LoginAttemptsTotal.WithLabelValues("provider_error").Inc()
		}
		return err
	}

	session.Values[sessionKeyUserID] = user.ID.String()
	if err := session.Save(c.Request(), c.Response().Writer); err != nil {
		return apperrors.InternalError("failed to save session", err)
	}

	metrics.LoginAttemptsTotal.WithLabelValues("success").Inc()
	return c.JSON(http.StatusOK, userResponseFrom(user))
}

func (s *Server) handleLogout(c echo.Context) error {
	session, err := s.sessionStore.Get(c.Request(), sessionName)
	if err != nil {
		session, err = s.sessionStore.New(c.Request(), sessionName)
		if err != nil {
			return apperrors.InternalError("failed to reset session", err)
		}
	}
	session.Options.MaxAge = -1

	if err := session.Save(c.Request(), c.Response().Writer); err != nil {
		return apperrors.InternalError("failed to clear session", err)
	}

	return c.NoContent(http.StatusNoContent)
}
