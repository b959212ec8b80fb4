package config

import (
	"encoding/hex"
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

type Config struct {
	AppEnv    string
	Port      string
	LogLevel  string
	LogFormat string

	DatabaseURL string
	RedisURL    string

	IdentityClientID     string
	IdentityClientSecret string
	IdentityAuthURL      string
	IdentityTokenURL     string
	IdentityRedirectURI  string

	SessionSecret      string
	TokenEncryptionKey string

	BillingWebhookSecret string

	CalendarAPIURL   string
	CalendarAPIToken string

	SendgridAPIKey string
	EmailFrom      string

	RollbarToken string
}

func Load() (*Config, error) {
	// Optional .env for local development; missing file is fine.
	_ = godotenv.Load()

	cfg := &Config{
		AppEnv:               getEnv("APP_ENV", "development"),
		Port:                 getEnv("PORT", "8080"),
		LogLevel:             getEnv("LOG_LEVEL", "info"),
		LogFormat:            getEnv("LOG_FORMAT", "json"),
		DatabaseURL:          getEnv("DATABASE_URL", ""),
		RedisURL:             getEnv("REDIS_URL", ""),
		IdentityClientID:     getEnv("IDENTITY_CLIENT_ID", ""),
		IdentityClientSecret: getEnv("IDENTITY_CLIENT_SECRET", ""),
		IdentityAuthURL:      getEnv("IDENTITY_AUTH_URL", ""),
		IdentityTokenURL:     getEnv("IDENTITY_TOKEN_URL", ""),
		IdentityRedirectURI:  getEnv("IDENTITY_REDIRECT_URI", ""),
		SessionSecret:        getEnv("SESSION_SECRET", ""),
		TokenEncryptionKey:   getEnv("TOKEN_ENCRYPTION_KEY", ""),
		BillingWebhookSecret: getEnv("BILLING_WEBHOOK_SECRET", ""),
		CalendarAPIURL:       getEnv("CALENDAR_API_URL", ""),
		CalendarAPIToken:     getEnv("CALENDAR_API_TOKEN", ""),
		SendgridAPIKey:       getEnv("SENDGRID_API_KEY", ""),
		EmailFrom:            getEnv("EMAIL_FROM", ""),
		RollbarToken:         getEnv("ROLLBAR_TOKEN", ""),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.RedisURL == "" {
		return nil, fmt.Errorf("REDIS_URL is required")
	}
	if cfg.SessionSecret == "" {
		return nil, fmt.Errorf("SESSION_SECRET is required")
	}
	if cfg.IdentityClientID == "" {
		return nil, fmt.Errorf("IDENTITY_CLIENT_ID is required")
	}
	if cfg.IdentityClientSecret == "" {
		return nil, fmt.Errorf("IDENTITY_CLIENT_SECRET is required")
	}
	if cfg.IdentityAuthURL == "" {
		return nil, fmt.Errorf("IDENTITY_AUTH_URL is required")
	}
	if cfg.IdentityTokenURL == "" {
		return nil, fmt.Errorf("IDENTITY_TOKEN_URL is required")
	}
	if cfg.IdentityRedirectURI == "" {
		return nil, fmt.Errorf("IDENTITY_REDIRECT_URI is required")
	}

	if cfg.BillingWebhookSecret != "" {
		if len(cfg.BillingWebhookSecret) < 10 || len(cfg.BillingWebhookSecret) > 100 {
			return nil, fmt.Errorf("BILLING_WEBHOOK_SECRET must be between 10 and 100 characters")
		}
	}

	// Calendar config: both must be set together
	if cfg.CalendarAPIURL != "" || cfg.CalendarAPIToken != "" {
		if cfg.CalendarAPIURL == "" {
			return nil, fmt.Errorf("CALENDAR_API_URL is required when CALENDAR_API_TOKEN is set")
		}
		if cfg.CalendarAPIToken == "" {
			return nil, fmt.Errorf("CALENDAR_API_TOKEN is required when CALENDAR_API_URL is set")
		}
	}

	if cfg.SendgridAPIKey != "" && cfg.EmailFrom == "" {
		return nil, fmt.Errorf("EMAIL_FROM is required when SENDGRID_API_KEY is set")
	}

	if cfg.TokenEncryptionKey != "" {
		keyBytes, err := hex.DecodeString(cfg.TokenEncryptionKey)
		if err != nil {
			return nil, fmt.Errorf("TOKEN_ENCRYPTION_KEY must be valid hex: %w", err)
		}
		if len(keyBytes) != 32 {
			return nil, fmt.Errorf("TOKEN_ENCRYPTION_KEY must be exactly 64 hex characters (32 bytes), got %d bytes", len(keyBytes))
		}
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
