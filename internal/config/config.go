// Copyright (c) 2025-2026 KS Foundation
// SPDX-License-Identifier: GPL-3.0-or-later

package config

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/caarlos0/env/v11"
)

// knownWeakSecrets contains default/example secrets that must be rejected.
var knownWeakSecrets = []string{
	"change-me-to-32-byte-secret-key!",
	"REPLACE_WITH_YOUR_OWN_SECRET_KEY!",
}

// Config holds the application configuration loaded from environment variables.
type Config struct {
	// APIBaseURL is the base URL of the content API, e.g. http://host:8000/api.
	// When empty it is derived from ServerHost, matching the original
	// deployment convention of running the API on port 8000 of the same host.
	APIBaseURL string `env:"KSF_API_BASE_URL"`

	SessionDBPath string `env:"KSF_SESSION_DB_PATH" envDefault:"./data/sessions.db"`
	SessionSecret string `env:"KSF_SESSION_SECRET,required"`
	ServerHost    string `env:"KSF_SERVER_HOST" envDefault:"localhost"`
	ServerPort    int    `env:"KSF_SERVER_PORT" envDefault:"8080"`
	Env           string `env:"KSF_ENV" envDefault:"development"`
	LogLevel      string `env:"KSF_LOG_LEVEL" envDefault:"info"`

	// RecaptchaSiteKey is rendered into the login, registration and contact
	// forms. The response token is forwarded to the content API, which owns
	// verification; an empty key disables the widget.
	RecaptchaSiteKey string `env:"KSF_RECAPTCHA_SITE_KEY"`

	// Cache configuration
	RedisURL     string `env:"KSF_REDIS_URL"`                        // Optional Redis URL for distributed caching
	CachePrefix  string `env:"KSF_CACHE_PREFIX" envDefault:"ksf:"`   // Redis key prefix
	CacheTTL     int    `env:"KSF_CACHE_TTL" envDefault:"300"`       // Default cache TTL in seconds
	CacheMaxSize int    `env:"KSF_CACHE_MAX_SIZE" envDefault:"5000"` // Max memory cache entries

	// UploadMaxBytes caps image/attachment uploads before they are forwarded
	// to the content API (which enforces its own limit server-side).
	UploadMaxBytes int64 `env:"KSF_UPLOAD_MAX_BYTES" envDefault:"5242880"`
}

// IsDevelopment returns true if the application is running in development mode.
func (c Config) IsDevelopment() bool {
	return c.Env == "development"
}

// ServerAddr returns the full server address in host:port format.
func (c Config) ServerAddr() string {
	return fmt.Sprintf("%s:%d", c.ServerHost, c.ServerPort)
}

// APIURL returns the configured content API base URL, deriving the
// same-host default when unset.
func (c Config) APIURL() string {
	if c.APIBaseURL != "" {
		return strings.TrimRight(c.APIBaseURL, "/")
	}
	return fmt.Sprintf("http://%s:8000/api", c.ServerHost)
}

// UseRedisCache returns true if Redis caching is configured.
func (c Config) UseRedisCache() bool {
	return c.RedisURL != ""
}

// RecaptchaEnabled returns true if the bot-mitigation widget is configured.
func (c Config) RecaptchaEnabled() bool {
	return c.RecaptchaSiteKey != ""
}

// MinSessionSecretLength is the minimum required length for the session
// secret used to key CSRF token authentication.
const MinSessionSecretLength = 32

// Load parses environment variables and returns a Config struct.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if len(cfg.SessionSecret) < MinSessionSecretLength {
		return nil, fmt.Errorf("KSF_SESSION_SECRET must be at least %d bytes long, got %d bytes; "+
			"generate a secure secret with: openssl rand -base64 32",
			MinSessionSecretLength, len(cfg.SessionSecret))
	}

	for _, weak := range knownWeakSecrets {
		if cfg.SessionSecret == weak {
			return nil, fmt.Errorf("KSF_SESSION_SECRET is a known default value and must not be used; " +
				"generate a secure secret with: openssl rand -base64 32")
		}
	}

	if !hasMinimumEntropy(cfg.SessionSecret) {
		slog.Warn("KSF_SESSION_SECRET has low character diversity; " +
			"consider generating a random secret with: openssl rand -base64 32")
	}

	return cfg, nil
}

// hasMinimumEntropy checks that a secret contains at least 3 character classes
// (lowercase, uppercase, digits, special characters).
func hasMinimumEntropy(s string) bool {
	charTypes := 0
	if strings.ContainsAny(s, "abcdefghijklmnopqrstuvwxyz") {
		charTypes++
	}
	if strings.ContainsAny(s, "ABCDEFGHIJKLMNOPQRSTUVWXYZ") {
		charTypes++
	}
	if strings.ContainsAny(s, "0123456789") {
		charTypes++
	}
	if strings.ContainsAny(s, "!@#$%^&*()-_=+[]{}|;:,.<>?/~`'\"\\") {
		charTypes++
	}
	return charTypes >= 3
}
