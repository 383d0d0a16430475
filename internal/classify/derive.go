// GeoCity - Citizen Incident Reporting and Live City Map
// Copyright 2026 GeoCity contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/geocity-dev/geocity

package classify

import (
	"github.com/geocity-dev/geocity/internal/models"
)

// DerivePriority maps (category, severity) to a display priority.
//
// Severity drives the base priority; fire and medical incidents are
// bumped one level because response time matters more for them.
func DerivePriority(category string, severity int) string {
	base := basePriority(severity)

	switch category {
	case models.CategoryFire, models.CategoryMedical:
		return bumpPriority(base)
	}
	return base
}

func basePriority(severity int) string {
	switch {
	case severity >= 5:
		return models.PriorityCritical
	case severity >= 4:
		return models.PriorityHigh
	case severity >= 3:
		return models.PriorityMedium
	default:
		return models.PriorityLow
	}
}

func bumpPriority(p string) string {
	switch p {
	case models.PriorityLow:
		return models.PriorityMedium
	case models.PriorityMedium:
		return models.PriorityHigh
	default:
		return models.PriorityCritical
	}
}

// PriorityRank orders priorities for comparisons; higher is more urgent.
func PriorityRank(p string) int {
	switch p {
	case models.PriorityCritical:
		return 3
	case models.PriorityHigh:
		return 2
	case models.PriorityMedium:
		return 1
	default:
		return 0
	}
}

// DeriveIcon maps a category and severity to the map marker icon name
// served by the web client.
func DeriveIcon(category string, severity int) string {
	switch category {
	case models.CategoryTraffic:
		if severity >= 4 {
			return "traffic-major"
		}
		return "traffic"
	case models.CategoryFire:
		if severity >= 4 {
			return "fire-major"
		}
		return "fire"
	case models.CategoryMedical:
		return "medical"
	case models.CategoryEnvironmental:
		return "environment"
	default:
		return "pin"
	}
}
