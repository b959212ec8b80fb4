// Package app is the application layer: one service per business capability
// (users, cohorts, entries, sessions, billing, attention, questionnaires,
// reports, audit) orchestrating the repositories and integrations. Services
// enforce row-level authorization and return typed errors for the HTTP
// middleware to translate.
package app
