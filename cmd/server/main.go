package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jonboulle/clockwork"
	goredis "github.com/redis/go-redis/v9"

	"github.com/strenly/coachpulse/internal/app"
	"github.com/strenly/coachpulse/internal/billing"
	"github.com/strenly/coachpulse/internal/calendar"
	"github.com/strenly/coachpulse/internal/config"
	"github.com/strenly/coachpulse/internal/crypto"
	"github.com/strenly/coachpulse/internal/database"
	"github.com/strenly/coachpulse/internal/domain"
	"github.com/strenly/coachpulse/internal/email"
	"github.com/strenly/coachpulse/internal/identity"
	"github.com/strenly/coachpulse/internal/jobs"
	"github.com/strenly/coachpulse/internal/logging"
	"github.com/strenly/coachpulse/internal/redis"
	"github.com/strenly/coachpulse/internal/server"
	"github.com/strenly/coachpulse/internal/version"
)

func setupConfig() *config.Config {
	cfg, err := config.Load()
	if err != nil {
		// Use log before slog is initialized
		log.Fatalf("Failed to load config: %v", err)
	}
	return cfg
}

func setupDB(cfg *config.Config) *pgxpool.Pool {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	db, err := database.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}

	if err := database.RunMigrations(ctx, db); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		os.Exit(1)
	}

	return db
}

func setupRedis(ctx context.Context, cfg *config.Config) *goredis.Client {
	client, err := redis.NewClient(ctx, cfg.RedisURL)
	if err != nil {
		slog.Error("Failed to connect to Redis", "error", err)
		os.Exit(1)
	}
	return client
}

func setupCrypto(cfg *config.Config) crypto.Service {
	if cfg.TokenEncryptionKey == "" {
		return crypto.NoopService{}
	}
	svc, err := crypto.NewAESGCMService(cfg.TokenEncryptionKey)
	if err != nil {
		slog.Error("Failed to create crypto service", "error", err)
		os.Exit(1)
	}
	return svc
}

func setupNotifier(cfg *config.Config) *email.Notifier {
	var sender domain.EmailSender = email.ConsoleSender{}
	if cfg.SendgridAPIKey != "" {
		sender = email.NewSendgridSender(cfg.SendgridAPIKey, cfg.EmailFrom)
	}
	return email.NewNotifier(sender)
}

func setupCalendar(cfg *config.Config) domain.CalendarClient {
	if cfg.CalendarAPIURL == "" {
		return calendar.NoopClient{}
	}
	return calendar.NewClient(cfg.CalendarAPIURL, cfg.CalendarAPIToken)
}

func instanceID() string {
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return uuid.NewString()
}

func runGracefulShutdown(srv *server.Server, scheduler *jobs.Scheduler) <-chan struct{} {
	done := make(chan struct{})
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		slog.Info("Shutdown signal received, cleaning up...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("Server shutdown error", "error", err)
		}

		scheduler.Stop()
		logging.Flush()

		close(done)
	}()

	return done
}

func main() {
	clock := clockwork.NewRealClock()

	cfg := setupConfig()

	logging.InitLogger(cfg.LogLevel, cfg.LogFormat)
	if cfg.RollbarToken != "" {
		logging.EnableRollbar(cfg.RollbarToken, cfg.AppEnv, version.Version)
	}
	slog.Info("Application starting", "env", cfg.AppEnv, "port", cfg.Port)

	pool := setupDB(cfg)
	defer pool.Close()

	redisClient := setupRedis(context.Background(), cfg)
	defer func() { _ = redisClient.Close() }()

	cryptoSvc := setupCrypto(cfg)

	userRepo := database.NewUserRepo(pool, cryptoSvc)
	cohortRepo := database.NewCohortRepo(pool)
	entryRepo := database.NewEntryRepo(pool)
	sessionRepo := database.NewSessionRepo(pool)
	planRepo := database.NewPlanRepo(pool)
	membershipRepo := database.NewMembershipRepo(pool)
	invoiceRepo := database.NewInvoiceRepo(pool)
	attentionRepo := database.NewAttentionRepo(pool)
	questionnaireRepo := database.NewQuestionnaireRepo(pool)
	reportRepo := database.NewReportRepo(pool)
	auditRepo := database.NewAuditRepo(pool)

	notifier := setupNotifier(cfg)
	calendarClient := setupCalendar(cfg)

	auditSvc := app.NewAuditService(auditRepo)
	userSvc := app.NewUserService(userRepo, cohortRepo, notifier, auditSvc)
	cohortSvc := app.NewCohortService(cohortRepo, userRepo, attentionRepo, auditSvc)
	entrySvc := app.NewEntryService(entryRepo, cohortRepo, attentionRepo, clock)
	sessionSvc := app.NewSessionService(sessionRepo, cohortRepo, userRepo, calendarClient, notifier, auditSvc, clock)
	billingSvc := app.NewBillingService(planRepo, membershipRepo, invoiceRepo, userRepo, notifier, auditSvc, clock)
	attentionSvc := app.NewAttentionService(attentionRepo, entryRepo, userRepo, cohortRepo, membershipRepo, clock)
	questionnaireSvc := app.NewQuestionnaireService(questionnaireRepo, cohortRepo, clock)
	reportSvc := app.NewReportService(reportRepo, cohortRepo, clock)

	identityClient := identity.NewHTTPClient(
		cfg.IdentityClientID,
		cfg.IdentityClientSecret,
		cfg.IdentityAuthURL,
		cfg.IdentityTokenURL,
		cfg.IdentityRedirectURI,
	)

	// Webhook ingestion is optional: without a shared secret the route is
	// not registered at all.
	var webhook *billing.WebhookHandler
	if cfg.BillingWebhookSecret != "" {
		deduper := redis.NewEventDeduper(redisClient)
		webhook = billing.NewWebhookHandler(cfg.BillingWebhookSecret, deduper, billingSvc, clock)
	}

	scheduler := jobs.NewScheduler(
		redisClient,
		instanceID(),
		attentionRepo,
		sessionRepo,
		membershipRepo,
		userRepo,
		calendarClient,
		notifier,
		clock,
	)
	if err := scheduler.Start(); err != nil {
		slog.Error("Failed to start job scheduler", "error", err)
		os.Exit(1)
	}

	services := server.Services{
		Users:          userSvc,
		Cohorts:        cohortSvc,
		Entries:        entrySvc,
		Sessions:       sessionSvc,
		Billing:        billingSvc,
		Attention:      attentionSvc,
		Questionnaires: questionnaireSvc,
		Reports:        reportSvc,
		Audit:          auditSvc,
	}

	// Pass nil explicitly when webhooks are disabled to avoid a typed-nil
	// interface inside the server.
	var srv *server.Server
	if webhook != nil {
		srv = server.NewServer(cfg, services, identityClient, webhook, pool, server.RedisPinger(redisClient))
	} else {
		srv = server.NewServer(cfg, services, identityClient, nil, pool, server.RedisPinger(redisClient))
	}

	done := runGracefulShutdown(srv, scheduler)

	slog.Info("Server starting", "port", cfg.Port)
	if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("Server error", "error", err)
		os.Exit(1)
	}

	<-done
}
