// GeoCity - Citizen Incident Reporting and Live City Map
// Copyright 2026 GeoCity contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/geocity-dev/geocity

// Package models defines the core domain types shared across GeoCity:
// incident reports, users, and the standard API response envelope.
package models

import (
	"time"
)

// Report categories. Submitted reports carry a citizen-chosen category;
// the classifier may override it when its confidence is higher.
const (
	CategoryTraffic       = "traffic"
	CategoryFire          = "fire"
	CategoryMedical       = "medical"
	CategoryEnvironmental = "environmental"
	CategoryOther         = "other"
)

// Report statuses.
const (
	StatusOpen     = "open"
	StatusResolved = "resolved"
	StatusExpired  = "expired"
)

// Report priorities, derived from (category, severity).
const (
	PriorityLow      = "low"
	PriorityMedium   = "medium"
	PriorityHigh     = "high"
	PriorityCritical = "critical"
)

// Categories lists every valid report category.
func Categories() []string {
	return []string{
		CategoryTraffic,
		CategoryFire,
		CategoryMedical,
		CategoryEnvironmental,
		CategoryOther,
	}
}

// ValidCategory reports whether c is a known report category.
func ValidCategory(c string) bool {
	switch c {
	case CategoryTraffic, CategoryFire, CategoryMedical, CategoryEnvironmental, CategoryOther:
		return true
	}
	return false
}

// Location is a geocoded report position. Normalized is a locality key
// (lowercased "locality, country") used to group nearby reports; it is
// empty when reverse geocoding failed and only raw coordinates are known.
type Location struct {
	Latitude   float64 `json:"latitude"`
	Longitude  float64 `json:"longitude"`
	Address    string  `json:"address,omitempty"`
	Normalized string  `json:"normalized,omitempty"`
}

// Report is a citizen incident report.
//
// Severity is the classifier's 1 (minor) to 5 (life-threatening) rating.
// Priority and Icon are derived from (Category, Severity) and stored so
// clients never re-derive them. ExpiresAt is CreatedAt plus the
// per-category expiry window in effect at submission time.
type Report struct {
	ID          string    `json:"id"`
	AuthorID    string    `json:"author_id"`
	AuthorName  string    `json:"author_name,omitempty"`
	Category    string    `json:"category"`
	Severity    int       `json:"severity"`
	Priority    string    `json:"priority"`
	Icon        string    `json:"icon"`
	Description string    `json:"description"`
	Summary     string    `json:"summary,omitempty"`
	PhotoURL    string    `json:"photo_url,omitempty"`
	Location    Location  `json:"location"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	ExpiresAt   time.Time `json:"expires_at"`
	ResolvedAt  time.Time `json:"resolved_at,omitempty"`
	ResolvedBy  string    `json:"resolved_by,omitempty"`
}

// Active reports whether the report should appear on the live map:
// it is open and its expiry window has not elapsed.
func (r *Report) Active(now time.Time) bool {
	return r.Status == StatusOpen && now.Before(r.ExpiresAt)
}

// ReportFilter narrows ListReports results. Zero values mean "no filter".
// Bounding box fields are only applied when HasBBox is true, since 0 is a
// valid coordinate.
type ReportFilter struct {
	Category string
	Status   string
	AuthorID string
	HasBBox  bool
	MinLat   float64
	MaxLat   float64
	MinLng   float64
	MaxLng   float64
	Limit    int
}

// Matches reports whether r passes every set filter field, bbox aside
// from limit handling which callers apply.
func (f *ReportFilter) Matches(r *Report) bool {
	if f.Category != "" && r.Category != f.Category {
		return false
	}
	if f.Status != "" && r.Status != f.Status {
		return false
	}
	if f.AuthorID != "" && r.AuthorID != f.AuthorID {
		return false
	}
	if f.HasBBox {
		if r.Location.Latitude < f.MinLat || r.Location.Latitude > f.MaxLat {
			return false
		}
		if r.Location.Longitude < f.MinLng || r.Location.Longitude > f.MaxLng {
			return false
		}
	}
	return true
}

// MarkerCluster is a group of nearby active reports rendered as a single
// map marker. Priority is the highest priority among member reports.
type MarkerCluster struct {
	Latitude  float64  `json:"latitude"`
	Longitude float64  `json:"longitude"`
	Count     int      `json:"count"`
	Priority  string   `json:"priority"`
	Icon      string   `json:"icon"`
	ReportIDs []string `json:"report_ids"`
}

// ReportStats summarizes active reports for the dashboard.
type ReportStats struct {
	Total      int            `json:"total"`
	ByCategory map[string]int `json:"by_category"`
	ByPriority map[string]int `json:"by_priority"`
	UpdatedAt  time.Time      `json:"updated_at"`
}
