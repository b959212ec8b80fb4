// Package server implements the HTTP JSON API using Echo.
//
// Routes: auth (OAuth login/callback/logout), /api/v1 resources (users,
// cohorts, entries, sessions, billing, attention, questionnaires, reports,
// audit), billing webhooks, health and metrics. Handlers are split by
// resource: handlers_auth.go, handlers_users.go, handlers_cohorts.go, and so
// on.
package server
