// Package config provides environment-based configuration.
//
// Loads from the process environment with optional .env support (godotenv).
// Validates required fields, paired settings, and secret formats at startup.
package config
