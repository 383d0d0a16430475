// GeoCity - Citizen Incident Reporting and Live City Map
// Copyright 2026 GeoCity contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/geocity-dev/geocity

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"

	"github.com/geocity-dev/geocity/internal/models"
)

// DefaultConfigPaths lists the paths where config files are searched in
// order of priority. The first file found is used.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/geocity/config.yaml",
	"/etc/geocity/config.yml",
}

// ConfigPathEnvVar overrides the config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

// defaultConfig returns a Config with all default values. Defaults are
// applied first, then overridden by the config file and env vars.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:        "0.0.0.0",
			Port:        8420,
			Timeout:     30 * time.Second,
			Environment: "development",
		},
		Database: DatabaseConfig{
			Path:       "/data/geocity",
			GCInterval: 10 * time.Minute,
		},
		Security: SecurityConfig{
			JWTSecret:        "",
			SessionTimeout:   24 * time.Hour,
			AdminEmail:       "",
			AdminPassword:    "",
			LockoutThreshold: 5,
			LockoutWindow:    15 * time.Minute,
			RateLimitReqs:    100,
			RateLimitWindow:  1 * time.Minute,
			CORSOrigins:      []string{"*"},
			Google: GoogleOAuthConfig{
				Issuer:      "https://accounts.google.com",
				Scopes:      []string{"openid", "profile", "email"},
				RedirectURL: "",
			},
		},
		Geocode: GeocodeConfig{
			APIKey:  "",
			Region:  "",
			Timeout: 10 * time.Second,
		},
		Classify: ClassifyConfig{
			APIKey:     "",
			Model:      "gemini-2.0-flash",
			Timeout:    20 * time.Second,
			MaxRetries: 3,
		},
		Notify: NotifyConfig{
			DiscordWebhookURL: "",
			RateLimit:         5 * time.Second,
			WebhookURL:        "",
		},
		Reports: ReportsConfig{
			ExpiryWindows: map[string]time.Duration{
				models.CategoryTraffic:       4 * time.Hour,
				models.CategoryFire:          12 * time.Hour,
				models.CategoryMedical:       6 * time.Hour,
				models.CategoryEnvironmental: 48 * time.Hour,
				models.CategoryOther:         24 * time.Hour,
			},
			DefaultExpiry:       24 * time.Hour,
			ClusterRadiusMeters: 150,
			MaxPhotoBytes:       8 << 20, // 8MB
			PruneBatchSize:      500,
			PruneInterval:       5 * time.Minute,
		},
		Cron: CronConfig{
			Secret: "",
		},
		API: APIConfig{
			DefaultPageSize: 50,
			MaxPageSize:     500,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
	}
}

// Load loads configuration using koanf v2 with layered sources:
//  1. Defaults: built-in sensible defaults
//  2. Config File: optional YAML config file (if exists)
//  3. Environment Variables: override any setting
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if configPath := findConfigFile(); configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	// Environment variables take highest priority. Names are mapped to
	// koanf paths via envTransformFunc; unmapped vars are ignored.
	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// findConfigFile searches for a config file in the default paths.
// Returns the first file found, or empty string if none exists.
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// sliceConfigPaths lists config paths parsed as comma-separated slices
// when they arrive as env var strings.
var sliceConfigPaths = []string{
	"security.cors_origins",
	"security.google.scopes",
}

// processSliceFields converts comma-separated strings to slices for known
// slice fields. Env vars come in as strings but the config expects slices.
func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		val := k.Get(path)
		if val == nil {
			continue
		}

		// Already a slice (from YAML or defaults)
		if _, ok := val.([]interface{}); ok {
			continue
		}
		if _, ok := val.([]string); ok {
			continue
		}

		strVal, ok := val.(string)
		if !ok || strVal == "" {
			continue
		}
		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if len(trimmed) > 0 {
			if err := k.Set(path, trimmed); err != nil {
				return fmt.Errorf("failed to set %s: %w", path, err)
			}
		}
	}
	return nil
}

// envTransformFunc maps environment variable names to koanf config paths.
// Unmapped variables return "" and are dropped, so unrelated environment
// noise never leaks into the config tree.
//
// Examples:
//   - HTTP_PORT -> server.port
//   - JWT_SECRET -> security.jwt_secret
//   - GEMINI_API_KEY -> classify.api_key
func envTransformFunc(key string) string {
	key = strings.ToLower(key)

	envMappings := map[string]string{
		// Server
		"http_host":    "server.host",
		"http_port":    "server.port",
		"http_timeout": "server.timeout",
		"environment":  "server.environment",

		// Database
		"badger_path":        "database.path",
		"badger_gc_interval": "database.gc_interval",

		// Security
		"jwt_secret":           "security.jwt_secret",
		"session_timeout":      "security.session_timeout",
		"admin_email":          "security.admin_email",
		"admin_password":       "security.admin_password",
		"lockout_threshold":    "security.lockout_threshold",
		"lockout_window":       "security.lockout_window",
		"rate_limit_reqs":      "security.rate_limit_reqs",
		"rate_limit_window":    "security.rate_limit_window",
		"rate_limit_disabled":  "security.rate_limit_disabled",
		"cors_origins":         "security.cors_origins",
		"google_issuer":        "security.google.issuer",
		"google_client_id":     "security.google.client_id",
		"google_client_secret": "security.google.client_secret",
		"google_redirect_url":  "security.google.redirect_url",
		"google_scopes":        "security.google.scopes",

		// Geocoding
		"maps_api_key":    "geocode.api_key",
		"geocode_region":  "geocode.region",
		"geocode_timeout": "geocode.timeout",

		// Classification
		"gemini_api_key":       "classify.api_key",
		"gemini_model":         "classify.model",
		"classify_timeout":     "classify.timeout",
		"classify_max_retries": "classify.max_retries",

		// Notifications
		"discord_webhook_url": "notify.discord_webhook_url",
		"notify_rate_limit":   "notify.rate_limit",
		"webhook_url":         "notify.webhook_url",

		// Reports
		"reports_default_expiry":        "reports.default_expiry",
		"reports_cluster_radius_meters": "reports.cluster_radius_meters",
		"reports_max_photo_bytes":       "reports.max_photo_bytes",
		"reports_prune_batch_size":      "reports.prune_batch_size",
		"reports_prune_interval":        "reports.prune_interval",

		// Cron
		"cron_secret": "cron.secret",

		// API
		"api_default_page_size": "api.default_page_size",
		"api_max_page_size":     "api.max_page_size",

		// Logging
		"log_level":  "logging.level",
		"log_format": "logging.format",
		"log_caller": "logging.caller",
	}

	if path, ok := envMappings[key]; ok {
		return path
	}
	return ""
}
