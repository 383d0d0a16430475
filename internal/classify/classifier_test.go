// GeoCity - Citizen Incident Reporting and Live City Map
// Copyright 2026 GeoCity contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/geocity-dev/geocity

package classify

import (
	"context"
	"io"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/geocity-dev/geocity/internal/logging"
	"github.com/geocity-dev/geocity/internal/models"
)

//nolint:gochecknoinits // init ensures consistent logging for tests
func init() {
	logging.Init(logging.Config{
		Level:  "info",
		Format: "console",
		Output: io.Discard,
	})
}

func TestFallbackClassification(t *testing.T) {
	tests := []struct {
		name         string
		hint         string
		wantCategory string
	}{
		{"valid hint kept", models.CategoryFire, models.CategoryFire},
		{"empty hint falls back to other", "", models.CategoryOther},
		{"unknown hint falls back to other", "earthquake", models.CategoryOther},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FallbackClassification(tt.hint)
			if got.Category != tt.wantCategory {
				t.Errorf("FallbackClassification(%q).Category = %q, want %q", tt.hint, got.Category, tt.wantCategory)
			}
			if got.Severity != fallbackSeverity {
				t.Errorf("FallbackClassification(%q).Severity = %d, want %d", tt.hint, got.Severity, fallbackSeverity)
			}
		})
	}
}

func TestSanitize(t *testing.T) {
	tests := []struct {
		name    string
		in      Classification
		wantErr bool
	}{
		{"valid", Classification{Category: "traffic", Severity: 3, Summary: "Stalled truck"}, false},
		{"category normalized", Classification{Category: "  FIRE ", Severity: 4}, false},
		{"unknown category", Classification{Category: "volcano", Severity: 3}, true},
		{"severity too low", Classification{Category: "traffic", Severity: 0}, true},
		{"severity too high", Classification{Category: "traffic", Severity: 6}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := sanitize(tt.in)
			if tt.wantErr {
				if err == nil {
					t.Errorf("sanitize(%+v) expected error, got nil", tt.in)
				}
				return
			}
			if err != nil {
				t.Fatalf("sanitize(%+v) unexpected error: %v", tt.in, err)
			}
			if !models.ValidCategory(got.Category) {
				t.Errorf("sanitize returned invalid category %q", got.Category)
			}
		})
	}
}

func TestSanitizeTruncatesSummary(t *testing.T) {
	long := strings.Repeat("a", 500)
	got, err := sanitize(Classification{Category: "medical", Severity: 2, Summary: long})
	if err != nil {
		t.Fatalf("sanitize unexpected error: %v", err)
	}
	if len(got.Summary) != 200 {
		t.Errorf("summary length = %d, want 200", len(got.Summary))
	}
}

func TestSanitizeTruncatesSummaryOnRuneBoundary(t *testing.T) {
	long := strings.Repeat("é", 500)
	got, err := sanitize(Classification{Category: "medical", Severity: 2, Summary: long})
	if err != nil {
		t.Fatalf("sanitize unexpected error: %v", err)
	}
	if !utf8.ValidString(got.Summary) {
		t.Error("truncated summary is not valid UTF-8")
	}
	if n := utf8.RuneCountInString(got.Summary); n != 200 {
		t.Errorf("summary rune count = %d, want 200", n)
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("short", 10); got != "short" {
		t.Errorf("truncate(short, 10) = %q", got)
	}
	if got := truncate("0123456789abc", 10); got != "0123456789..." {
		t.Errorf("truncate long = %q", got)
	}
}

func TestNoopClassifier(t *testing.T) {
	c := NoopClassifier{}
	got := c.Classify(context.Background(), "a large pothole on main street", models.CategoryTraffic)

	if got.Category != models.CategoryTraffic {
		t.Errorf("Category = %q, want %q", got.Category, models.CategoryTraffic)
	}
	if got.Severity != fallbackSeverity {
		t.Errorf("Severity = %d, want %d", got.Severity, fallbackSeverity)
	}
}
