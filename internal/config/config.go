// GeoCity - Citizen Incident Reporting and Live City Map
// Copyright 2026 GeoCity contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/geocity-dev/geocity

// Package config holds all application configuration, loaded in layers
// (defaults, optional YAML file, environment variables) via koanf v2.
//
// Configuration Loading Order:
//  1. Defaults: built-in sensible defaults for all optional settings
//  2. Config File: optional YAML file (config.yaml) for persistent settings
//  3. Environment Variables: override any setting
//
// Config is immutable after Load() and safe for concurrent reads.
package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Config is the root configuration for the GeoCity server.
type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Database DatabaseConfig `koanf:"database"`
	Security SecurityConfig `koanf:"security"`
	Geocode  GeocodeConfig  `koanf:"geocode"`
	Classify ClassifyConfig `koanf:"classify"`
	Notify   NotifyConfig   `koanf:"notify"`
	Reports  ReportsConfig  `koanf:"reports"`
	Cron     CronConfig     `koanf:"cron"`
	API      APIConfig      `koanf:"api"`
	Logging  LoggingConfig  `koanf:"logging"`
}

// ServerConfig holds HTTP server settings.
//
// Environment Variables:
//   - HTTP_HOST, HTTP_PORT, HTTP_TIMEOUT
//   - ENVIRONMENT: "development" or "production"
type ServerConfig struct {
	Host        string        `koanf:"host"`
	Port        int           `koanf:"port"`
	Timeout     time.Duration `koanf:"timeout"`
	Environment string        `koanf:"environment"`
}

// IsProduction reports whether the server runs with production hardening.
func (s *ServerConfig) IsProduction() bool {
	return strings.EqualFold(s.Environment, "production")
}

// DatabaseConfig holds Badger document store settings.
type DatabaseConfig struct {
	// Path is the Badger data directory. Empty selects in-memory mode,
	// which tests rely on.
	Path       string        `koanf:"path"`
	GCInterval time.Duration `koanf:"gc_interval"`
}

// SecurityConfig holds authentication and access control settings.
type SecurityConfig struct {
	// JWTSecret signs session tokens. Required; 32+ bytes in production.
	JWTSecret      string        `koanf:"jwt_secret"`
	SessionTimeout time.Duration `koanf:"session_timeout"`

	// AdminEmail/AdminPassword bootstrap the first admin account on an
	// empty store. Ignored once the account exists.
	AdminEmail    string `koanf:"admin_email"`
	AdminPassword string `koanf:"admin_password"`

	// Account lockout after repeated failed logins.
	LockoutThreshold int           `koanf:"lockout_threshold"`
	LockoutWindow    time.Duration `koanf:"lockout_window"`

	// Rate limiting for the API route groups.
	RateLimitReqs     int           `koanf:"rate_limit_reqs"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`

	CORSOrigins []string `koanf:"cors_origins"`

	Google GoogleOAuthConfig `koanf:"google"`
}

// GoogleOAuthConfig holds the Google OIDC relying-party settings.
// Login via Google is disabled when ClientID is empty.
type GoogleOAuthConfig struct {
	Issuer       string   `koanf:"issuer"`
	ClientID     string   `koanf:"client_id"`
	ClientSecret string   `koanf:"client_secret"`
	RedirectURL  string   `koanf:"redirect_url"`
	Scopes       []string `koanf:"scopes"`
}

// Enabled reports whether Google sign-in is configured.
func (g *GoogleOAuthConfig) Enabled() bool {
	return g.ClientID != ""
}

// GeocodeConfig holds the Google Maps Geocoding client settings.
// Geocoding is skipped entirely when APIKey is empty; reports then keep
// their submitted coordinates with no address.
type GeocodeConfig struct {
	APIKey  string        `koanf:"api_key"`
	Region  string        `koanf:"region"`
	Timeout time.Duration `koanf:"timeout"`
}

// ClassifyConfig holds the Gemini classifier settings. Classification
// falls back to a default category when APIKey is empty or calls fail.
type ClassifyConfig struct {
	APIKey     string        `koanf:"api_key"`
	Model      string        `koanf:"model"`
	Timeout    time.Duration `koanf:"timeout"`
	MaxRetries int           `koanf:"max_retries"`
}

// NotifyConfig holds webhook notification settings.
type NotifyConfig struct {
	DiscordWebhookURL string        `koanf:"discord_webhook_url"`
	RateLimit         time.Duration `koanf:"rate_limit"`

	// Generic JSON webhook, optional.
	WebhookURL     string            `koanf:"webhook_url"`
	WebhookHeaders map[string]string `koanf:"webhook_headers"`
}

// ReportsConfig holds report lifecycle settings.
type ReportsConfig struct {
	// ExpiryWindows maps category to how long a report stays on the map.
	ExpiryWindows map[string]time.Duration `koanf:"expiry_windows"`
	DefaultExpiry time.Duration            `koanf:"default_expiry"`

	// ClusterRadiusMeters groups active markers within this distance.
	ClusterRadiusMeters float64 `koanf:"cluster_radius_meters"`

	MaxPhotoBytes  int64         `koanf:"max_photo_bytes"`
	PruneBatchSize int           `koanf:"prune_batch_size"`
	PruneInterval  time.Duration `koanf:"prune_interval"`
}

// ExpiryFor returns the expiry window for a category, falling back to
// the default window for unknown categories.
func (r *ReportsConfig) ExpiryFor(category string) time.Duration {
	if d, ok := r.ExpiryWindows[category]; ok && d > 0 {
		return d
	}
	return r.DefaultExpiry
}

// CronConfig guards the maintenance endpoints.
type CronConfig struct {
	// Secret must match the X-Cron-Secret request header. Maintenance
	// endpoints return 403 when unset.
	Secret string `koanf:"secret"`
}

// APIConfig holds pagination limits.
type APIConfig struct {
	DefaultPageSize int `koanf:"default_page_size"`
	MaxPageSize     int `koanf:"max_page_size"`
}

// LoggingConfig holds log output settings.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// Validate checks that required configuration is present and valid.
func (c *Config) Validate() error {
	if err := c.validateServer(); err != nil {
		return err
	}
	if err := c.validateSecurity(); err != nil {
		return err
	}
	if err := c.validateReports(); err != nil {
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
	switch strings.ToLower(c.Server.Environment) {
	case "development", "production":
	default:
		return fmt.Errorf("ENVIRONMENT must be development or production, got %q", c.Server.Environment)
	}
	return nil
}

func (c *Config) validateSecurity() error {
	if c.Security.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if c.Server.IsProduction() && len(c.Security.JWTSecret) < 32 {
		return fmt.Errorf("JWT_SECRET must be at least 32 characters in production")
	}
	if c.Security.SessionTimeout <= 0 {
		return fmt.Errorf("SESSION_TIMEOUT must be positive, got %s", c.Security.SessionTimeout)
	}
	if c.Security.LockoutThreshold < 0 {
		return fmt.Errorf("LOCKOUT_THRESHOLD must be non-negative, got %d", c.Security.LockoutThreshold)
	}
	if c.Server.IsProduction() {
		for _, origin := range c.Security.CORSOrigins {
			if origin == "*" {
				return fmt.Errorf("CORS_ORIGINS must not contain a wildcard in production")
			}
		}
	}
	if c.Security.Google.Enabled() {
		if c.Security.Google.ClientSecret == "" {
			return fmt.Errorf("GOOGLE_CLIENT_SECRET is required when GOOGLE_CLIENT_ID is set")
		}
		if err := validateHTTPURL(c.Security.Google.RedirectURL, "GOOGLE_REDIRECT_URL"); err != nil {
			return err
		}
	}
	return nil
}

func (c *Config) validateReports() error {
	if c.Reports.DefaultExpiry <= 0 {
		return fmt.Errorf("REPORTS_DEFAULT_EXPIRY must be positive, got %s", c.Reports.DefaultExpiry)
	}
	for category, window := range c.Reports.ExpiryWindows {
		if window <= 0 {
			return fmt.Errorf("expiry window for category %q must be positive, got %s", category, window)
		}
	}
	if c.Reports.ClusterRadiusMeters <= 0 {
		return fmt.Errorf("REPORTS_CLUSTER_RADIUS_METERS must be positive, got %f", c.Reports.ClusterRadiusMeters)
	}
	if c.Reports.PruneBatchSize <= 0 {
		return fmt.Errorf("REPORTS_PRUNE_BATCH_SIZE must be positive, got %d", c.Reports.PruneBatchSize)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch strings.ToLower(c.Logging.Level) {
	case "trace", "debug", "info", "warn", "warning", "error", "fatal", "disabled":
	default:
		return fmt.Errorf("LOG_LEVEL %q is invalid", c.Logging.Level)
	}
	switch strings.ToLower(c.Logging.Format) {
	case "json", "console":
	default:
		return fmt.Errorf("LOG_FORMAT must be json or console, got %q", c.Logging.Format)
	}
	return nil
}

// validateHTTPURL ensures a value parses as an absolute http(s) URL.
func validateHTTPURL(raw, name string) error {
	if raw == "" {
		return fmt.Errorf("%s is required", name)
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%s is invalid: %w", name, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%s must use http or https, got %q", name, u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("%s is missing a host", name)
	}
	return nil
}
