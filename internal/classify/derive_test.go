// GeoCity - Citizen Incident Reporting and Live City Map
// Copyright 2026 GeoCity contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/geocity-dev/geocity

package classify

import (
	"testing"

	"github.com/geocity-dev/geocity/internal/models"
)

func TestDerivePriority(t *testing.T) {
	tests := []struct {
		name     string
		category string
		severity int
		want     string
	}{
		{"traffic minor", models.CategoryTraffic, 1, models.PriorityLow},
		{"traffic moderate", models.CategoryTraffic, 3, models.PriorityMedium},
		{"traffic severe", models.CategoryTraffic, 4, models.PriorityHigh},
		{"traffic critical", models.CategoryTraffic, 5, models.PriorityCritical},
		{"environmental default", models.CategoryEnvironmental, 2, models.PriorityLow},
		{"other moderate", models.CategoryOther, 3, models.PriorityMedium},

		// Fire and medical are bumped one level.
		{"fire minor bumps to medium", models.CategoryFire, 1, models.PriorityMedium},
		{"fire moderate bumps to high", models.CategoryFire, 3, models.PriorityHigh},
		{"fire severe bumps to critical", models.CategoryFire, 4, models.PriorityCritical},
		{"fire critical stays critical", models.CategoryFire, 5, models.PriorityCritical},
		{"medical minor bumps to medium", models.CategoryMedical, 2, models.PriorityMedium},
		{"medical severe bumps to critical", models.CategoryMedical, 5, models.PriorityCritical},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DerivePriority(tt.category, tt.severity)
			if got != tt.want {
				t.Errorf("DerivePriority(%q, %d) = %q, want %q", tt.category, tt.severity, got, tt.want)
			}
		})
	}
}

func TestPriorityRank(t *testing.T) {
	// Rank must strictly increase with urgency so cluster markers pick
	// the most urgent member.
	order := []string{models.PriorityLow, models.PriorityMedium, models.PriorityHigh, models.PriorityCritical}
	for i := 1; i < len(order); i++ {
		if PriorityRank(order[i]) <= PriorityRank(order[i-1]) {
			t.Errorf("PriorityRank(%q) = %d should be greater than PriorityRank(%q) = %d",
				order[i], PriorityRank(order[i]), order[i-1], PriorityRank(order[i-1]))
		}
	}

	if PriorityRank("unknown") != 0 {
		t.Errorf("PriorityRank(unknown) = %d, want 0", PriorityRank("unknown"))
	}
}

func TestDeriveIcon(t *testing.T) {
	tests := []struct {
		category string
		severity int
		want     string
	}{
		{models.CategoryTraffic, 2, "traffic"},
		{models.CategoryTraffic, 4, "traffic-major"},
		{models.CategoryFire, 1, "fire"},
		{models.CategoryFire, 5, "fire-major"},
		{models.CategoryMedical, 3, "medical"},
		{models.CategoryEnvironmental, 4, "environment"},
		{models.CategoryOther, 3, "pin"},
		{"garbage", 5, "pin"},
	}

	for _, tt := range tests {
		got := DeriveIcon(tt.category, tt.severity)
		if got != tt.want {
			t.Errorf("DeriveIcon(%q, %d) = %q, want %q", tt.category, tt.severity, got, tt.want)
		}
	}
}
