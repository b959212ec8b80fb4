package server

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/strenly/coachpulse/internal/domain"
)

func (s *Server) registerRoutes() {
	// Observability endpoints (no auth required)
	s.echo.GET("/health/live", s.handleLiveness)
	s.echo.GET("/health/ready", s.handleReadiness)
	s.echo.GET("/version", s.handleVersion)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	// Auth routes (rate limited; logout requires a session and CSRF)
	s.echo.GET("/auth/login", s.handleLogin, s.rateLimitAuth)
	s.echo.GET("/auth/callback", s.handleCallback, s.rateLimitAuth)
	s.echo.POST("/auth/logout", s.handleLogout, s.requireAuth, s.csrfMiddleware)

	// Webhook route (provider-signed, NO session auth or CSRF)
	if s.webhook != nil {
		s.echo.POST("/webhooks/billing", s.webhook.Handle)
	}

	api := s.echo.Group("/api/v1", s.requireAuth, s.csrfMiddleware)

	api.GET("/me", s.handleMe)

	// Users
	api.GET("/users", s.handleListUsers)
	api.GET("/users/:id", s.handleGetUser)
	api.PATCH("/users/:id", s.handleUpdateProfile)
	api.PUT("/users/:id/role", s.handleSetRole, s.requireRole(domain.RoleAdmin))
	api.PUT("/users/:id/active", s.handleSetActive, s.requireRole(domain.RoleAdmin))

	// Daily check-ins
	api.PUT("/entries", s.handleUpsertEntry)
	api.GET("/users/:id/entries", s.handleListEntries)
	api.GET("/users/:id/streak", s.handleStreak)
	api.GET("/users/:id/reports/weight", s.handleWeightTrend)

	// Cohorts
	api.POST("/cohorts", s.handleCreateCohort, s.requireRole(domain.RoleAdmin))
	api.GET("/cohorts", s.handleListCohorts)
	api.GET("/cohorts/:id", s.handleGetCohort)
	api.PATCH("/cohorts/:id", s.handleUpdateCohort)
	api.DELETE("/cohorts/:id", s.handleDeleteCohort, s.requireRole(domain.RoleAdmin))
	api.PUT("/cohorts/:id/coach", s.handleAssignCoach, s.requireRole(domain.RoleAdmin))
	api.POST("/cohorts/:id/members", s.handleAddMember)
	api.DELETE("/cohorts/:id/members/:userID", s.handleRemoveMember)
	api.GET("/cohorts/:id/roster", s.handleCohortRoster)
	api.GET("/cohorts/:id/questionnaires", s.handleListCohortQuestionnaires)
	api.GET("/cohorts/:id/reports/checkins", s.handleCohortCheckinReport)
	api.GET("/cohorts/:id/reports/attendance", s.handleCohortAttendanceReport)

	// Class sessions and registration
	api.POST("/sessions", s.handleCreateSession, s.requireRole(domain.RoleCoach))
	api.GET("/sessions", s.handleListSessions)
	api.GET("/sessions/:id", s.handleGetSession)
	api.PATCH("/sessions/:id", s.handleUpdateSession, s.requireRole(domain.RoleCoach))
	api.DELETE("/sessions/:id", s.handleDeleteSession, s.requireRole(domain.RoleCoach))
	api.POST("/sessions/:id/registrations", s.handleRegister)
	api.DELETE("/sessions/:id/registrations/:userID", s.handleCancelRegistration)
	api.GET("/sessions/:id/roster", s.handleSessionRoster)
	api.GET("/registrations/upcoming", s.handleUpcomingRegistrations)

	// Plans and billing
	api.POST("/plans", s.handleCreatePlan, s.requireRole(domain.RoleAdmin))
	api.GET("/plans", s.handleListPlans)
	api.GET("/plans/:id", s.handleGetPlan)
	api.PATCH("/plans/:id", s.handleUpdatePlan, s.requireRole(domain.RoleAdmin))
	api.POST("/memberships", s.handleGrantMembership, s.requireRole(domain.RoleAdmin))
	api.GET("/users/:id/memberships", s.handleListMemberships)
	api.GET("/users/:id/invoices", s.handleListInvoices)

	// Attention scoring
	api.GET("/attention/queue", s.handleAttentionQueue, s.requireRole(domain.RoleCoach))
	api.GET("/attention/:entityType/:id", s.handleAttentionScore)
	api.POST("/attention/:entityType/:id/refresh", s.handleAttentionRefresh, s.requireRole(domain.RoleCoach))

	// Questionnaires
	api.POST("/questionnaires", s.handleCreateQuestionnaire, s.requireRole(domain.RoleCoach))
	api.GET("/questionnaires", s.handleListAssignedQuestionnaires)
	api.GET("/questionnaires/:id", s.handleGetQuestionnaire)
	api.PUT("/questionnaires/:id", s.handleUpdateQuestionnaire, s.requireRole(domain.RoleCoach))
	api.DELETE("/questionnaires/:id", s.handleDeleteQuestionnaire, s.requireRole(domain.RoleCoach))
	api.POST("/questionnaires/:id/responses", s.handleSubmitResponse)
	api.GET("/questionnaires/:id/responses", s.handleListResponses, s.requireRole(domain.RoleCoach))

	// Admin reports and audit log
	api.GET("/reports/revenue", s.handleRevenueReport, s.requireRole(domain.RoleAdmin))
	api.GET("/reports/memberships", s.handleMembershipReport, s.requireRole(domain.RoleAdmin))
	api.GET("/audit", s.handleListAudit, s.requireRole(domain.RoleAdmin))
}
