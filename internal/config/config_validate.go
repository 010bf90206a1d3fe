// Pipewatch - CI/CD Pipeline Monitoring and Deployment Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pipewatch

package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Validate checks that required configuration is present and valid.
func (c *Config) Validate() error {
	if err := c.validateServer(); err != nil {
		return err
	}
	if err := c.validateGitHub(); err != nil {
		return err
	}
	if err := c.validateDatabase(); err != nil {
		return err
	}
	if err := c.validateStream(); err != nil {
		return err
	}
	if err := c.validateSecurity(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateServer() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("HTTP_PORT must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.Server.Timeout <= 0 {
		return fmt.Errorf("HTTP_TIMEOUT must be positive, got %s", c.Server.Timeout)
	}
	switch c.Server.Environment {
	case "development", "production":
		return nil
	default:
		return fmt.Errorf("ENVIRONMENT must be development or production, got %q", c.Server.Environment)
	}
}

func (c *Config) validateGitHub() error {
	if c.GitHub.APIBaseURL == "" {
		return fmt.Errorf("GITHUB_API_URL must not be empty")
	}
	if err := validateHTTPURL(c.GitHub.APIBaseURL, "GITHUB_API_URL"); err != nil {
		return err
	}
	// Owner and repo travel together.
	if (c.GitHub.Owner == "") != (c.GitHub.Repo == "") {
		return fmt.Errorf("GITHUB_OWNER and GITHUB_REPO must both be set or both be empty")
	}
	if c.GitHub.RequestTimeout <= 0 {
		return fmt.Errorf("GITHUB_REQUEST_TIMEOUT must be positive, got %s", c.GitHub.RequestTimeout)
	}
	if c.GitHub.RateLimit <= 0 {
		return fmt.Errorf("GITHUB_RATE_LIMIT must be positive, got %g", c.GitHub.RateLimit)
	}
	if c.GitHub.RateBurst < 1 {
		return fmt.Errorf("GITHUB_RATE_BURST must be at least 1, got %d", c.GitHub.RateBurst)
	}
	if c.GitHub.OAuthClientID != "" && c.GitHub.OAuthClientSecret == "" {
		return fmt.Errorf("GITHUB_OAUTH_CLIENT_SECRET is required when GITHUB_OAUTH_CLIENT_ID is set")
	}
	return nil
}

func (c *Config) validateDatabase() error {
	if c.Database.Path == "" {
		return fmt.Errorf("DUCKDB_PATH must not be empty")
	}
	if c.Database.Threads < 0 {
		return fmt.Errorf("DUCKDB_THREADS must not be negative, got %d", c.Database.Threads)
	}
	if c.Database.RetentionDays < 1 {
		return fmt.Errorf("RETENTION_DAYS must be at least 1, got %d", c.Database.RetentionDays)
	}
	if c.Database.PruneInterval < time.Minute {
		return fmt.Errorf("PRUNE_INTERVAL must be at least 1m, got %s", c.Database.PruneInterval)
	}
	return nil
}

func (c *Config) validateStream() error {
	if c.Stream.HeartbeatInterval < time.Second {
		return fmt.Errorf("STREAM_HEARTBEAT_INTERVAL must be at least 1s, got %s", c.Stream.HeartbeatInterval)
	}
	if c.Stream.BufferSize < 1 {
		return fmt.Errorf("STREAM_BUFFER_SIZE must be at least 1, got %d", c.Stream.BufferSize)
	}
	return nil
}

func (c *Config) validateSecurity() error {
	switch c.Security.AuthMode {
	case "jwt", "none":
	default:
		return fmt.Errorf("AUTH_MODE must be jwt or none, got %q", c.Security.AuthMode)
	}
	if c.IsProduction() {
		if c.Security.AuthMode == "jwt" && len(c.Security.JWTSecret) < 32 {
			return fmt.Errorf("JWT_SECRET must be at least 32 characters in production")
		}
		for _, origin := range c.Security.CORSOrigins {
			if origin == "*" {
				return fmt.Errorf("CORS_ORIGINS must not contain the wildcard origin in production")
			}
		}
	}
	if c.Security.SessionTimeout <= 0 {
		return fmt.Errorf("SESSION_TIMEOUT must be positive, got %s", c.Security.SessionTimeout)
	}
	if (c.Security.AdminUsername == "") != (c.Security.AdminPassword == "") {
		return fmt.Errorf("ADMIN_USERNAME and ADMIN_PASSWORD must both be set or both be empty")
	}
	if !c.Security.RateLimitDisabled {
		if c.Security.RateLimitReqs < 1 {
			return fmt.Errorf("RATE_LIMIT_REQUESTS must be at least 1, got %d", c.Security.RateLimitReqs)
		}
		if c.Security.RateLimitWindow <= 0 {
			return fmt.Errorf("RATE_LIMIT_WINDOW must be positive, got %s", c.Security.RateLimitWindow)
		}
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch strings.ToLower(c.Logging.Level) {
	case "trace", "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("LOG_LEVEL must be one of trace, debug, info, warn, error; got %q", c.Logging.Level)
	}
	switch strings.ToLower(c.Logging.Format) {
	case "json", "console":
		return nil
	default:
		return fmt.Errorf("LOG_FORMAT must be json or console, got %q", c.Logging.Format)
	}
}

func validateHTTPURL(raw, name string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%s is not a valid URL: %w", name, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%s must use http or https scheme, got %q", name, u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("%s must include a host", name)
	}
	return nil
}
