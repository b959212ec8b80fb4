package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gorilla/sessions"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/strenly/coachpulse/internal/config"
	"github.com/strenly/coachpulse/internal/domain"
	apperrors "github.com/strenly/coachpulse/internal/errors"
	"github.com/strenly/coachpulse/internal/identity"
)

const sessionMaxAgeDays = 7

// Session keys
const (
	sessionName          = "coachpulse-session"
	sessionKeyUserID     = "user_id"
	sessionKeyOAuthState = "oauth_state"
)

// webhookHandler handles billing provider deliveries (nil if webhooks not configured)
type webhookHandler interface {
	Handle(c echo.Context) error
}

// Pinger is the readiness-check surface shared by the Postgres pool and the
// Redis client wrapper.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Services bundles the domain services the handlers dispatch into.
type Services struct {
	Users          domain.UserService
	Cohorts        domain.CohortService
	Entries        domain.EntryService
	Sessions       domain.SessionService
	Billing        domain.BillingService
	Attention      domain.AttentionService
	Questionnaires domain.QuestionnaireService
	Reports        domain.ReportService
	Audit          domain.AuditService
}

type Server struct {
	echo           *echo.Echo
	config         *config.Config
	services       Services
	identity       identity.Client
	webhook        webhookHandler
	sessionStore   *sessions.CookieStore
	loginLimiter   *loginRateLimiter
	csrfMiddleware echo.MiddlewareFunc
	postgresPing   Pinger
	redisPing      Pinger
}

func NewServer(cfg *config.Config, services Services, identityClient identity.Client, webhook webhookHandler, postgresPing, redisPing Pinger) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.RequestID())
	e.Use(middleware.Recover())
	e.Use(requestLogger())
	e.Use(apperrors.Middleware())

	sessionStore := sessions.NewCookieStore([]byte(cfg.SessionSecret))
	sessionStore.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   86400 * sessionMaxAgeDays,
		HttpOnly: true,
		Secure:   cfg.AppEnv == "production",
		SameSite: http.SameSiteLaxMode,
	}

	srv := &Server{
		echo:         e,
		config:       cfg,
		services:     services,
		identity:     identityClient,
		webhook:      webhook,
		sessionStore: sessionStore,
		loginLimiter: newLoginRateLimiter(loginRatePerSecond, loginRateBurst),
		csrfMiddleware: middleware.CSRFWithConfig(middleware.CSRFConfig{
			TokenLookup:    "header:X-CSRF-Token",
			CookieName:     "_csrf",
			CookieHTTPOnly: false,
			CookieSecure:   cfg.AppEnv == "production",
			CookieSameSite: http.SameSiteLaxMode,
		}),
		postgresPing: postgresPing,
		redisPing:    redisPing,
	}

	srv.registerRoutes()

	return srv
}

func (s *Server) Start() error {
	slog.Info("starting server", "port", s.config.Port)
	return s.echo.Start(fmt.Sprintf(":%s", s.config.Port))
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}
