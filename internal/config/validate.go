package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
)

// Validate checks Config for production-critical problems.
// It collects all errors into a single joined error.
func (c *Config) Validate() error {
	var errs []string

	// Remote config source
	if u, err := url.Parse(c.Provision.URL); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, fmt.Sprintf("PROVISION_URL must be an absolute URL, got %q", c.Provision.URL))
	} else if u.Scheme != "https" && u.Host != "localhost" && !strings.HasPrefix(u.Host, "localhost:") {
		errs = append(errs, "PROVISION_URL must use https (plain http only allowed for localhost)")
	}
	if c.Provision.MaxAttempts < 1 {
		errs = append(errs, fmt.Sprintf("PROVISION_MAX_ATTEMPTS must be >= 1, got %d", c.Provision.MaxAttempts))
	}
	if c.Provision.Timeout <= 0 {
		errs = append(errs, "PROVISION_TIMEOUT must be positive")
	}
	if c.Provision.Interval <= 0 {
		errs = append(errs, "PROVISION_INTERVAL must be positive")
	}

	// Admin auth
	if len(c.Auth.JWTSecret) < 32 {
		errs = append(errs, "AUTH_JWT_SECRET must be at least 32 characters")
	}
	if c.Auth.AdminKeyHash == "" {
		errs = append(errs, "AUTH_ADMIN_KEY_HASH is required")
	} else if !strings.HasPrefix(c.Auth.AdminKeyHash, "$2") {
		errs = append(errs, "AUTH_ADMIN_KEY_HASH must be a bcrypt hash")
	}

	// DB password
	if c.DB.Password == "" {
		errs = append(errs, "DB_PASSWORD is required")
	}

	// Port ranges
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("SERVER_PORT must be 1–65535, got %d", c.Server.Port))
	}
	if c.DB.Port < 1 || c.DB.Port > 65535 {
		errs = append(errs, fmt.Sprintf("DB_PORT must be 1–65535, got %d", c.DB.Port))
	}
	if c.Redis.Port < 1 || c.Redis.Port > 65535 {
		errs = append(errs, fmt.Sprintf("REDIS_PORT must be 1–65535, got %d", c.Redis.Port))
	}

	// Kill switch: warn only, baseline-only mode is a valid deployment
	if c.Provision.Disabled {
		slog.Warn("PROVISION_DISABLED is set — remote provisioning off, baseline-only mode")
	}

	if len(errs) > 0 {
		return errors.New("config validation failed:\n  " + strings.Join(errs, "\n  "))
	}
	return nil
}
