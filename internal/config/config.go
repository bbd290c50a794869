package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration, read from environment variables.
type Config struct {
	Env         string
	Port        string
	DatabaseURL string
	SentryDSN   string

	// SecretsEncryptionKey is the hex-encoded 32-byte AES key used to
	// encrypt OAuth client secrets at rest. When empty, secrets are stored
	// as provided (plaintext fallback).
	SecretsEncryptionKey string

	// OutboundTimeout bounds OAuth provider and email provider HTTP calls.
	OutboundTimeout time.Duration

	// Optional admin bootstrap; applied once when no admin user exists.
	BootstrapAdminEmail    string
	BootstrapAdminPassword string
}

// Load reads configuration from environment variables.
func Load() Config {
	return Config{
		Env:                    getEnv("APP_ENV", "development"),
		Port:                   getEnv("PORT", "8080"),
		DatabaseURL:            os.Getenv("DATABASE_URL"),
		SentryDSN:              os.Getenv("SENTRY_DSN"),
		SecretsEncryptionKey:   os.Getenv("SECRETS_ENCRYPTION_KEY"),
		OutboundTimeout:        getEnvAsDuration("OUTBOUND_TIMEOUT", 10*time.Second),
		BootstrapAdminEmail:    os.Getenv("BOOTSTRAP_ADMIN_EMAIL"),
		BootstrapAdminPassword: os.Getenv("BOOTSTRAP_ADMIN_PASSWORD"),
	}
}

func getEnv(name, defaultVal string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return defaultVal
}

func getEnvAsDuration(name string, defaultVal time.Duration) time.Duration {
	valStr := os.Getenv(name)
	if valStr == "" {
		return defaultVal
	}
	if d, err := time.ParseDuration(valStr); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(valStr); err == nil {
		return time.Duration(secs) * time.Second
	}
	return defaultVal
}
