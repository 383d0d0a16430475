// GeoCity - Citizen Incident Reporting and Live City Map
// Copyright 2026 GeoCity contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/geocity-dev/geocity

package reports

import (
	"context"
	"math"
	"testing"

	"github.com/geocity-dev/geocity/internal/models"
)

func TestHaversineMeters(t *testing.T) {
	tests := []struct {
		name                   string
		lat1, lng1, lat2, lng2 float64
		want                   float64
		tolerance              float64
	}{
		{"zero distance", 40.4168, -3.7038, 40.4168, -3.7038, 0, 0.001},
		// Madrid to Barcelona, roughly 505 km.
		{"madrid to barcelona", 40.4168, -3.7038, 41.3874, 2.1686, 505000, 5000},
		// One degree of latitude is about 111.2 km.
		{"one degree latitude", 0, 0, 1, 0, 111195, 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := haversineMeters(tt.lat1, tt.lng1, tt.lat2, tt.lng2)
			if math.Abs(got-tt.want) > tt.tolerance {
				t.Errorf("haversineMeters() = %f, want %f +/- %f", got, tt.want, tt.tolerance)
			}
		})
	}
}

func clusterTestReport(id string, lat, lng float64, priority, icon string) *models.Report {
	return &models.Report{
		ID:       id,
		Priority: priority,
		Icon:     icon,
		Location: models.Location{Latitude: lat, Longitude: lng},
	}
}

func TestClusterReportsGroupsNearby(t *testing.T) {
	// Two reports ~60m apart, one far away.
	reports := []*models.Report{
		clusterTestReport("a", 40.41680, -3.70380, models.PriorityLow, "pin"),
		clusterTestReport("b", 40.41730, -3.70380, models.PriorityLow, "pin"),
		clusterTestReport("c", 41.00000, -3.70380, models.PriorityLow, "pin"),
	}

	clusters := clusterReports(reports, 150)
	if len(clusters) != 2 {
		t.Fatalf("clusterReports() = %d clusters, want 2", len(clusters))
	}

	// Largest cluster first.
	if clusters[0].Count != 2 {
		t.Errorf("clusters[0].Count = %d, want 2", clusters[0].Count)
	}
	if len(clusters[0].ReportIDs) != 2 {
		t.Errorf("clusters[0].ReportIDs = %v, want 2 entries", clusters[0].ReportIDs)
	}

	// Centroid is the mean of member coordinates.
	wantLat := (40.41680 + 40.41730) / 2
	if math.Abs(clusters[0].Latitude-wantLat) > 1e-9 {
		t.Errorf("clusters[0].Latitude = %f, want %f", clusters[0].Latitude, wantLat)
	}

	if clusters[1].Count != 1 || clusters[1].ReportIDs[0] != "c" {
		t.Errorf("clusters[1] = %+v, want singleton c", clusters[1])
	}
}

func TestClusterReportsPriorityFromTopMember(t *testing.T) {
	reports := []*models.Report{
		clusterTestReport("a", 40.4168, -3.7038, models.PriorityLow, "traffic"),
		clusterTestReport("b", 40.4169, -3.7038, models.PriorityCritical, "fire-major"),
		clusterTestReport("c", 40.4170, -3.7038, models.PriorityMedium, "medical"),
	}

	clusters := clusterReports(reports, 150)
	if len(clusters) != 1 {
		t.Fatalf("clusterReports() = %d clusters, want 1", len(clusters))
	}
	if clusters[0].Priority != models.PriorityCritical {
		t.Errorf("Priority = %q, want critical", clusters[0].Priority)
	}
	if clusters[0].Icon != "fire-major" {
		t.Errorf("Icon = %q, want fire-major", clusters[0].Icon)
	}
}

func TestClusterReportsEmpty(t *testing.T) {
	clusters := clusterReports(nil, 150)
	if len(clusters) != 0 {
		t.Errorf("clusterReports(nil) = %d clusters, want 0", len(clusters))
	}
}

func TestBBoxKey(t *testing.T) {
	if got := bboxKey(models.ReportFilter{}); got != "all" {
		t.Errorf("bboxKey(no bbox) = %q, want all", got)
	}

	f := models.ReportFilter{HasBBox: true, MinLat: 40.123456, MaxLat: 41.2, MinLng: -3.987, MaxLng: -3.0}
	if got := bboxKey(f); got != "40.12,41.20,-3.99,-3.00" {
		t.Errorf("bboxKey() = %q, want rounded coordinates", got)
	}

	// Jittery viewports inside the rounding share a key.
	g := f
	g.MinLat = 40.121111
	if bboxKey(f) != bboxKey(g) {
		t.Error("bboxKey() should round away viewport jitter")
	}
}

func TestClustersEndToEnd(t *testing.T) {
	svc, _ := newTestService(t, nil, nil)
	ctx := context.Background()

	submit := func(lat, lng float64) {
		t.Helper()
		_, err := svc.Submit(ctx, citizen("u1"), SubmitInput{
			Description: "incident somewhere in the city center",
			Latitude:    floatPtr(lat),
			Longitude:   floatPtr(lng),
		})
		if err != nil {
			t.Fatalf("Submit() error = %v", err)
		}
	}

	submit(40.41680, -3.70380)
	submit(40.41690, -3.70380)
	submit(41.00000, -3.70380)

	clusters, cached, err := svc.Clusters(ctx, models.ReportFilter{})
	if err != nil {
		t.Fatalf("Clusters() error = %v", err)
	}
	if cached {
		t.Error("first Clusters() call reported a cache hit")
	}
	if len(clusters) != 2 {
		t.Fatalf("Clusters() = %d clusters, want 2", len(clusters))
	}

	// Second call hits the cache and returns the same result.
	again, cached, err := svc.Clusters(ctx, models.ReportFilter{})
	if err != nil {
		t.Fatalf("Clusters() cached error = %v", err)
	}
	if !cached {
		t.Error("second Clusters() call missed the cache")
	}
	if len(again) != len(clusters) {
		t.Errorf("cached Clusters() = %d clusters, want %d", len(again), len(clusters))
	}

	// A new submission invalidates the cache.
	submit(42.00000, -3.70380)
	updated, cached, err := svc.Clusters(ctx, models.ReportFilter{})
	if err != nil {
		t.Fatalf("Clusters() after submit error = %v", err)
	}
	if cached {
		t.Error("Clusters() after submit reported a cache hit")
	}
	if len(updated) != 3 {
		t.Errorf("Clusters() after submit = %d clusters, want 3", len(updated))
	}
}

func TestClustersCacheKeyedByLimit(t *testing.T) {
	svc, _ := newTestService(t, nil, nil)
	ctx := context.Background()

	// Five reports far enough apart that each forms its own cluster.
	for i := 0; i < 5; i++ {
		_, err := svc.Submit(ctx, citizen("u1"), SubmitInput{
			Description: "incident somewhere in the city center",
			Latitude:    floatPtr(40.0 + float64(i)),
			Longitude:   floatPtr(-3.70380),
		})
		if err != nil {
			t.Fatalf("Submit() error = %v", err)
		}
	}

	small, _, err := svc.Clusters(ctx, models.ReportFilter{Limit: 1})
	if err != nil {
		t.Fatalf("Clusters(limit=1) error = %v", err)
	}
	if len(small) != 1 {
		t.Fatalf("Clusters(limit=1) = %d clusters, want 1", len(small))
	}

	// A wider page must not be served from the narrow page's cache entry.
	large, cached, err := svc.Clusters(ctx, models.ReportFilter{Limit: 100})
	if err != nil {
		t.Fatalf("Clusters(limit=100) error = %v", err)
	}
	if cached {
		t.Error("Clusters(limit=100) served from the limit=1 cache entry")
	}
	if len(large) != 5 {
		t.Errorf("Clusters(limit=100) = %d clusters, want 5", len(large))
	}
}
