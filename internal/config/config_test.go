// GeoCity - Citizen Incident Reporting and Live City Map
// Copyright 2026 GeoCity contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/geocity-dev/geocity

package config

import (
	"testing"
	"time"

	"github.com/geocity-dev/geocity/internal/models"
)

// validConfig returns a default config made valid by setting the
// required secret.
func validConfig() *Config {
	cfg := defaultConfig()
	cfg.Security.JWTSecret = "this_is_a_very_long_secret_key_with_32_plus_characters"
	return cfg
}

func TestValidateDefaults(t *testing.T) {
	if err := validConfig().Validate(); err != nil {
		t.Errorf("Validate() with defaults error = %v", err)
	}
}

func TestValidateFailures(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"missing jwt secret", func(c *Config) { c.Security.JWTSecret = "" }},
		{"port zero", func(c *Config) { c.Server.Port = 0 }},
		{"port too high", func(c *Config) { c.Server.Port = 70000 }},
		{"non-positive timeout", func(c *Config) { c.Server.Timeout = 0 }},
		{"bad environment", func(c *Config) { c.Server.Environment = "staging" }},
		{"non-positive session timeout", func(c *Config) { c.Security.SessionTimeout = 0 }},
		{"negative lockout threshold", func(c *Config) { c.Security.LockoutThreshold = -1 }},
		{"non-positive default expiry", func(c *Config) { c.Reports.DefaultExpiry = 0 }},
		{"non-positive expiry window", func(c *Config) {
			c.Reports.ExpiryWindows[models.CategoryFire] = -time.Hour
		}},
		{"non-positive cluster radius", func(c *Config) { c.Reports.ClusterRadiusMeters = 0 }},
		{"non-positive prune batch", func(c *Config) { c.Reports.PruneBatchSize = 0 }},
		{"bad log level", func(c *Config) { c.Logging.Level = "verbose" }},
		{"bad log format", func(c *Config) { c.Logging.Format = "xml" }},
		{"google enabled without secret", func(c *Config) {
			c.Security.Google.ClientID = "id"
			c.Security.Google.RedirectURL = "https://example.com/callback"
		}},
		{"google enabled without redirect", func(c *Config) {
			c.Security.Google.ClientID = "id"
			c.Security.Google.ClientSecret = "secret"
		}},
		{"google redirect not http", func(c *Config) {
			c.Security.Google.ClientID = "id"
			c.Security.Google.ClientSecret = "secret"
			c.Security.Google.RedirectURL = "ftp://example.com/cb"
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("Validate() expected error, got nil")
			}
		})
	}
}

func TestValidateProductionHardenings(t *testing.T) {
	t.Run("short jwt secret rejected", func(t *testing.T) {
		cfg := validConfig()
		cfg.Server.Environment = "production"
		cfg.Security.JWTSecret = "short"
		if err := cfg.Validate(); err == nil {
			t.Error("Validate() expected error for short production secret")
		}
	})

	t.Run("wildcard cors rejected", func(t *testing.T) {
		cfg := validConfig()
		cfg.Server.Environment = "production"
		cfg.Security.CORSOrigins = []string{"*"}
		if err := cfg.Validate(); err == nil {
			t.Error("Validate() expected error for wildcard CORS in production")
		}
	})

	t.Run("wildcard cors allowed in development", func(t *testing.T) {
		cfg := validConfig()
		cfg.Security.CORSOrigins = []string{"*"}
		if err := cfg.Validate(); err != nil {
			t.Errorf("Validate() error = %v", err)
		}
	})
}

func TestExpiryFor(t *testing.T) {
	cfg := &ReportsConfig{
		ExpiryWindows: map[string]time.Duration{
			models.CategoryTraffic: 4 * time.Hour,
		},
		DefaultExpiry: 24 * time.Hour,
	}

	if got := cfg.ExpiryFor(models.CategoryTraffic); got != 4*time.Hour {
		t.Errorf("ExpiryFor(traffic) = %s, want 4h", got)
	}
	if got := cfg.ExpiryFor(models.CategoryFire); got != 24*time.Hour {
		t.Errorf("ExpiryFor(fire) = %s, want default 24h", got)
	}
	if got := cfg.ExpiryFor("unknown"); got != 24*time.Hour {
		t.Errorf("ExpiryFor(unknown) = %s, want default 24h", got)
	}
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("JWT_SECRET", "this_is_a_very_long_secret_key_with_32_plus_characters")
	t.Setenv("HTTP_PORT", "9000")
	t.Setenv("BADGER_PATH", "/tmp/geocity-test")
	t.Setenv("GEMINI_API_KEY", "test-gemini-key")
	t.Setenv("CORS_ORIGINS", "https://a.example.com, https://b.example.com")
	t.Setenv("REPORTS_DEFAULT_EXPIRY", "12h")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != 9000 {
		t.Errorf("Server.Port = %d, want 9000", cfg.Server.Port)
	}
	if cfg.Database.Path != "/tmp/geocity-test" {
		t.Errorf("Database.Path = %q, want /tmp/geocity-test", cfg.Database.Path)
	}
	if cfg.Classify.APIKey != "test-gemini-key" {
		t.Errorf("Classify.APIKey = %q, want test-gemini-key", cfg.Classify.APIKey)
	}
	if cfg.Reports.DefaultExpiry != 12*time.Hour {
		t.Errorf("Reports.DefaultExpiry = %s, want 12h", cfg.Reports.DefaultExpiry)
	}

	want := []string{"https://a.example.com", "https://b.example.com"}
	if len(cfg.Security.CORSOrigins) != len(want) {
		t.Fatalf("CORSOrigins = %v, want %v", cfg.Security.CORSOrigins, want)
	}
	for i := range want {
		if cfg.Security.CORSOrigins[i] != want[i] {
			t.Errorf("CORSOrigins[%d] = %q, want %q", i, cfg.Security.CORSOrigins[i], want[i])
		}
	}
}

func TestLoadRequiresJWTSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	if _, err := Load(); err == nil {
		t.Error("Load() without JWT_SECRET expected error, got nil")
	}
}

func TestEnvTransformFunc(t *testing.T) {
	tests := []struct {
		env  string
		want string
	}{
		{"HTTP_PORT", "server.port"},
		{"JWT_SECRET", "security.jwt_secret"},
		{"MAPS_API_KEY", "geocode.api_key"},
		{"GEMINI_API_KEY", "classify.api_key"},
		{"DISCORD_WEBHOOK_URL", "notify.discord_webhook_url"},
		{"CRON_SECRET", "cron.secret"},
		{"PATH", ""},
		{"HOME", ""},
	}

	for _, tt := range tests {
		if got := envTransformFunc(tt.env); got != tt.want {
			t.Errorf("envTransformFunc(%q) = %q, want %q", tt.env, got, tt.want)
		}
	}
}
