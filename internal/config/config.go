// Pipewatch - CI/CD Pipeline Monitoring and Deployment Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pipewatch

// Package config loads and validates pipewatch configuration from
// layered sources: built-in defaults, an optional YAML file, and
// environment variables, with environment taking the highest
// precedence.
package config

import "time"

// Config is the root configuration for a pipewatch instance.
type Config struct {
	Server   ServerConfig   `koanf:"server"`
	GitHub   GitHubConfig   `koanf:"github"`
	Database DatabaseConfig `koanf:"database"`
	Stream   StreamConfig   `koanf:"stream"`
	Security SecurityConfig `koanf:"security"`
	API      APIConfig      `koanf:"api"`
	Logging  LoggingConfig  `koanf:"logging"`
}

// ServerConfig controls the HTTP listener.
type ServerConfig struct {
	Host string `koanf:"host"`
	Port int    `koanf:"port"`

	// Timeout is applied as both read and write timeout on the server.
	// Streaming responses override the write timeout per connection.
	Timeout time.Duration `koanf:"timeout"`

	// Environment is "development" or "production". Production enables
	// stricter validation of secrets.
	Environment string `koanf:"environment"`
}

// GitHubConfig controls the upstream GitHub API client and webhook
// verification.
type GitHubConfig struct {
	// Token is a personal access token used for API reads. Optional
	// when OAuth login is configured.
	Token string `koanf:"token"`

	// Owner and Repo identify the repository whose pipelines are
	// monitored.
	Owner string `koanf:"owner"`
	Repo  string `koanf:"repo"`

	// APIBaseURL allows pointing at GitHub Enterprise instances.
	APIBaseURL string `koanf:"api_base_url"`

	// WebhookSecret enables HMAC verification of inbound deliveries
	// when non-empty.
	WebhookSecret string `koanf:"webhook_secret"`

	// OAuth app credentials for dashboard login.
	OAuthClientID     string `koanf:"oauth_client_id"`
	OAuthClientSecret string `koanf:"oauth_client_secret"`
	OAuthRedirectURL  string `koanf:"oauth_redirect_url"`

	// RequestTimeout bounds each upstream API call.
	RequestTimeout time.Duration `koanf:"request_timeout"`

	// RateLimit and RateBurst feed the client-side token bucket that
	// keeps pipewatch inside GitHub's secondary rate limits.
	RateLimit float64 `koanf:"rate_limit"`
	RateBurst int     `koanf:"rate_burst"`
}

// DatabaseConfig controls the DuckDB store.
type DatabaseConfig struct {
	Path      string `koanf:"path"`
	MaxMemory string `koanf:"max_memory"`

	// Threads caps DuckDB worker threads. 0 means runtime.NumCPU().
	Threads int `koanf:"threads"`

	// RetentionDays bounds how long webhook deliveries are kept.
	RetentionDays int `koanf:"retention_days"`

	// PruneInterval is how often the retention service runs.
	PruneInterval time.Duration `koanf:"prune_interval"`
}

// StreamConfig controls the event stream endpoint.
type StreamConfig struct {
	// HeartbeatInterval is the period between heartbeat frames on each
	// streaming connection.
	HeartbeatInterval time.Duration `koanf:"heartbeat_interval"`

	// BufferSize is the per-subscriber channel capacity. When a slow
	// client falls this far behind, its oldest pending event is
	// dropped.
	BufferSize int `koanf:"buffer_size"`
}

// SecurityConfig controls authentication and request limits.
type SecurityConfig struct {
	// AuthMode is "jwt" (default) or "none". In "none" mode every
	// endpoint is publicly accessible.
	AuthMode string `koanf:"auth_mode"`

	JWTSecret      string        `koanf:"jwt_secret"`
	SessionTimeout time.Duration `koanf:"session_timeout"`

	// AdminUsername and AdminPassword enable local password login as a
	// fallback when GitHub OAuth is not configured.
	AdminUsername string `koanf:"admin_username"`
	AdminPassword string `koanf:"admin_password"`

	RateLimitReqs     int           `koanf:"rate_limit_reqs"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`

	CORSOrigins []string `koanf:"cors_origins"`

	// SessionStorePath is the Badger directory holding server-side
	// session state.
	SessionStorePath string `koanf:"session_store_path"`
}

// APIConfig controls pagination bounds for list endpoints.
type APIConfig struct {
	DefaultPageSize int `koanf:"default_page_size"`
	MaxPageSize     int `koanf:"max_page_size"`
}

// LoggingConfig controls log output.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// IsProduction reports whether the instance runs in production mode.
func (c *Config) IsProduction() bool {
	return c.Server.Environment == "production"
}
