package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP Request Metrics
var (
	// HTTPRequestsTotal tracks HTTP requests by method, path and status
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total HTTP requests by method, path and status",
		},
		[]string{"method", "path", "status"},
	)

	// HTTPRequestDuration tracks HTTP request latency by method and path
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		},
		[]string{"method", "path"},
	)
)

// Attention Scoring Metrics
var (
	// AttentionCacheHits tracks score reads served from the cache table
	AttentionCacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "attention_cache_hits_total",
			Help: "Total attention score reads served from a fresh cache row",
		},
	)

	// AttentionCacheMisses tracks score reads that forced a recompute
	AttentionCacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "attention_cache_misses_total",
			Help: "Total attention score reads with a stale or missing cache row",
		},
	)

	// AttentionRecomputeDuration tracks recompute latency by entity type
	AttentionRecomputeDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "attention_recompute_duration_seconds",
			Help:    "Attention score recompute duration in seconds",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"entity_type"},
	)

	// AttentionRowsPurged tracks expired cache rows deleted by purges and sweeps
	AttentionRowsPurged = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "attention_rows_purged_total",
			Help: "Total expired attention rows deleted, by trigger (opportunistic/sweep)",
		},
		[]string{"trigger"},
	)
)

// Session Registration Metrics
var (
	// RegistrationsTotal tracks registration attempts by outcome
	RegistrationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "session_registrations_total",
			Help: "Total session registration attempts by outcome (registered/waitlisted/no_allowance/conflict/started)",
		},
		[]string{"outcome"},
	)

	// WaitlistPromotionsTotal tracks waitlist promotions after cancellations
	WaitlistPromotionsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "waitlist_promotions_total",
			Help: "Total waitlisted registrants promoted to registered",
		},
	)
)

// Billing Webhook Metrics
var (
	// WebhookEventsTotal tracks billing webhook deliveries by event type and result
	WebhookEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "billing_webhook_events_total",
			Help: "Total billing webhook deliveries by event type and result (processed/duplicate/invalid_signature/unknown_reference/error)",
		},
		[]string{"event_type", "result"},
	)

	// WebhookProcessingDuration tracks webhook handler latency
	WebhookProcessingDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "billing_webhook_duration_seconds",
			Help:    "Billing webhook processing duration in seconds",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1},
		},
	)
)

// Calendar Sync Metrics
var (
	// CalendarSyncTotal tracks calendar API calls by operation and status
	CalendarSyncTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "calendar_sync_total",
			Help: "Total calendar event operations by operation and status (success/error/skipped)",
		},
		[]string{"operation", "status"},
	)

	// CircuitBreakerStateChanges tracks circuit breaker state transitions
	CircuitBreakerStateChanges = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_state_changes_total",
			Help: "Circuit breaker state transitions by component and new state",
		},
		[]string{"component", "state"},
	)

	// CircuitBreakerState tracks current circuit breaker state (0=closed, 1=half-open, 2=open)
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Current circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"component"},
	)
)

// Email Metrics
var (
	// EmailsSentTotal tracks transactional emails by message kind and status
	EmailsSentTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "emails_sent_total",
			Help: "Total transactional emails by message kind and status (sent/error)",
		},
		[]string{"message", "status"},
	)
)

// Authentication Metrics
var (
	// LoginAttemptsTotal tracks login flow outcomes
	LoginAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "login_attempts_total",
			Help: "Total login attempts by result (success/provider_error/state_mismatch/deactivated/rate_limited)",
		},
		[]string{"result"},
	)
)

// Audit Metrics
var (
	// AuditWritesTotal tracks audit log writes by status
	AuditWritesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "audit_writes_total",
			Help: "Total audit log writes by status (ok/error)",
		},
		[]string{"status"},
	)
)

// Scheduled Job Metrics
var (
	// JobRunsTotal tracks scheduled job executions by job name and status
	JobRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "job_runs_total",
			Help: "Total scheduled job runs by job and status (ok/error/skipped_not_leader)",
		},
		[]string{"job", "status"},
	)

	// JobDuration tracks scheduled job run duration by job name
	JobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "job_duration_seconds",
			Help:    "Scheduled job run duration in seconds",
			Buckets: []float64{.01, .05, .1, .5, 1, 5, 15, 60},
		},
		[]string{"job"},
	)

	// LeaderElections tracks successful leader elections by key
	LeaderElections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "leader_elections_total",
			Help: "Total successful leader elections by key",
		},
		[]string{"key"},
	)

	// IsLeader tracks whether this instance is the leader for a given key
	IsLeader = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "is_leader",
			Help: "1 if this instance is the leader for the given key, 0 otherwise",
		},
		[]string{"key"},
	)
)

// Redis Operations Metrics
var (
	// RedisOpsTotal tracks total Redis operations by operation type and status
	RedisOpsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "redis_operations_total",
			Help: "Total Redis operations by operation and status",
		},
		[]string{"operation", "status"},
	)

	// RedisOpDuration tracks Redis operation latency in seconds
	RedisOpDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "redis_operation_duration_seconds",
			Help:    "Redis operation duration in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"operation"},
	)

	// RedisConnectionErrors tracks Redis connection errors
	RedisConnectionErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "redis_connection_errors_total",
			Help: "Total Redis connection errors",
		},
	)
)

// Database Metrics
var (
	// DBQueryDuration tracks database query duration by query name
	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "db_query_duration_seconds",
			Help:    "Database query duration in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"query"},
	)

	// DBConnectionsCurrent tracks current database connections by state
	DBConnectionsCurrent = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "db_connections_current",
			Help: "Current database connections by state (active/idle)",
		},
		[]string{"state"},
	)

	// DBErrorsTotal tracks database errors by query name
	DBErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "db_errors_total",
			Help: "Total database errors by query",
		},
		[]string{"query"},
	)
)

// Build Information Metrics
var (
	// BuildInfo is a gauge that always returns 1, with build metadata as labels
	BuildInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "build_info",
			Help: "Build information with version, commit, build_time, and go_version labels (value is always 1)",
		},
		[]string{"version", "commit", "build_time", "go_version"},
	)
)

// HTTP Error Metrics
// Note: http_errors_total{type} is provided by internal/errors package
