// GeoCity - Citizen Incident Reporting and Live City Map
// Copyright 2026 GeoCity contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/geocity-dev/geocity

package store

import (
	"context"
	"errors"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/geocity-dev/geocity/internal/config"
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

// newTestStore opens an in-memory store.
func newTestStore(t *testing.T) *Store {
	t.Helper()
	st, err := Open(config.DatabaseConfig{Path: ""})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	return st
}

// testReport builds a minimal open report.
func testReport(id, authorID, category string, createdAt time.Time) *models.Report {
	return &models.Report{
		ID:          id,
		AuthorID:    authorID,
		Category:    category,
		Severity:    2,
		Priority:    models.PriorityLow,
		Icon:        "pin",
		Description: "something happened on the corner",
		Location:    models.Location{Latitude: 40.4168, Longitude: -3.7038},
		Status:      models.StatusOpen,
		CreatedAt:   createdAt,
		UpdatedAt:   createdAt,
		ExpiresAt:   createdAt.Add(24 * time.Hour),
	}
}

func TestReportCRUD(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	report := testReport("r1", "u1", models.CategoryTraffic, now)
	if err := st.CreateReport(ctx, report); err != nil {
		t.Fatalf("CreateReport() error = %v", err)
	}

	got, err := st.GetReport(ctx, "r1")
	if err != nil {
		t.Fatalf("GetReport() error = %v", err)
	}
	if got.Category != models.CategoryTraffic || got.AuthorID != "u1" {
		t.Errorf("GetReport() = %+v, round-trip mismatch", got)
	}

	got.Status = models.StatusResolved
	if err := st.UpdateReport(ctx, got); err != nil {
		t.Fatalf("UpdateReport() error = %v", err)
	}
	updated, err := st.GetReport(ctx, "r1")
	if err != nil {
		t.Fatalf("GetReport() after update error = %v", err)
	}
	if updated.Status != models.StatusResolved {
		t.Errorf("Status = %q, want resolved", updated.Status)
	}

	if err := st.DeleteReport(ctx, "r1"); err != nil {
		t.Fatalf("DeleteReport() error = %v", err)
	}
	if _, err := st.GetReport(ctx, "r1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetReport() after delete = %v, want ErrNotFound", err)
	}

	// Deleting a missing report is a no-op.
	if err := st.DeleteReport(ctx, "r1"); err != nil {
		t.Errorf("DeleteReport() missing report error = %v", err)
	}
}

func TestUpdateReportNotFound(t *testing.T) {
	st := newTestStore(t)
	report := testReport("ghost", "u1", models.CategoryOther, time.Now().UTC())
	if err := st.UpdateReport(context.Background(), report); !errors.Is(err, ErrNotFound) {
		t.Errorf("UpdateReport() = %v, want ErrNotFound", err)
	}
}

func TestListReportsFilterAndOrder(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		category := models.CategoryTraffic
		if i%2 == 1 {
			category = models.CategoryFire
		}
		r := testReport(fmt.Sprintf("r%d", i), "u1", category, base.Add(time.Duration(i)*time.Minute))
		if err := st.CreateReport(ctx, r); err != nil {
			t.Fatalf("CreateReport() error = %v", err)
		}
	}

	all, err := st.ListReports(ctx, models.ReportFilter{})
	if err != nil {
		t.Fatalf("ListReports() error = %v", err)
	}
	if len(all) != 5 {
		t.Fatalf("ListReports() = %d reports, want 5", len(all))
	}
	for i := 1; i < len(all); i++ {
		if all[i].CreatedAt.After(all[i-1].CreatedAt) {
			t.Error("ListReports() not ordered newest first")
			break
		}
	}

	fires, err := st.ListReports(ctx, models.ReportFilter{Category: models.CategoryFire})
	if err != nil {
		t.Fatalf("ListReports(fire) error = %v", err)
	}
	if len(fires) != 2 {
		t.Errorf("ListReports(fire) = %d reports, want 2", len(fires))
	}

	limited, err := st.ListReports(ctx, models.ReportFilter{Limit: 3})
	if err != nil {
		t.Fatalf("ListReports(limit) error = %v", err)
	}
	if len(limited) != 3 {
		t.Errorf("ListReports(limit 3) = %d reports, want 3", len(limited))
	}
	// The limit keeps the newest reports.
	if limited[0].ID != "r4" {
		t.Errorf("limited[0].ID = %q, want r4", limited[0].ID)
	}
}

func TestDeleteExpired(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	fresh := testReport("fresh", "u1", models.CategoryTraffic, now.Add(-time.Hour))
	stale := testReport("stale", "u1", models.CategoryTraffic, now.Add(-48*time.Hour))
	stale.ExpiresAt = now.Add(-24 * time.Hour)
	resolved := testReport("resolved", "u1", models.CategoryFire, now.Add(-48*time.Hour))
	resolved.ExpiresAt = now.Add(-24 * time.Hour)
	resolved.Status = models.StatusResolved

	for _, r := range []*models.Report{fresh, stale, resolved} {
		if err := st.CreateReport(ctx, r); err != nil {
			t.Fatalf("CreateReport(%s) error = %v", r.ID, err)
		}
	}

	expired, err := st.DeleteExpired(ctx, now, 100)
	if err != nil {
		t.Fatalf("DeleteExpired() error = %v", err)
	}
	if len(expired) != 1 || expired[0].ID != "stale" {
		t.Fatalf("DeleteExpired() = %v, want only stale", expired)
	}

	got, err := st.GetReport(ctx, "stale")
	if err != nil {
		t.Fatalf("GetReport(stale) error = %v", err)
	}
	if got.Status != models.StatusExpired {
		t.Errorf("stale status = %q, want expired", got.Status)
	}

	// Resolved reports are never transitioned.
	got, err = st.GetReport(ctx, "resolved")
	if err != nil {
		t.Fatalf("GetReport(resolved) error = %v", err)
	}
	if got.Status != models.StatusResolved {
		t.Errorf("resolved status = %q, want resolved", got.Status)
	}

	// A second pass finds nothing.
	expired, err = st.DeleteExpired(ctx, now, 100)
	if err != nil {
		t.Fatalf("DeleteExpired() second pass error = %v", err)
	}
	if len(expired) != 0 {
		t.Errorf("DeleteExpired() second pass = %d reports, want 0", len(expired))
	}
}

func TestDeleteExpiredBatches(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 7; i++ {
		r := testReport(fmt.Sprintf("r%d", i), "u1", models.CategoryOther, now.Add(-48*time.Hour))
		r.ExpiresAt = now.Add(-time.Hour)
		if err := st.CreateReport(ctx, r); err != nil {
			t.Fatalf("CreateReport() error = %v", err)
		}
	}

	expired, err := st.DeleteExpired(ctx, now, 3)
	if err != nil {
		t.Fatalf("DeleteExpired() error = %v", err)
	}
	if len(expired) != 7 {
		t.Errorf("DeleteExpired() = %d reports, want 7", len(expired))
	}
}

func TestRunGCOnceInMemory(t *testing.T) {
	st := newTestStore(t)
	// In-memory mode has no value log; the call must not error or spin.
	if reclaimed := st.RunGCOnce(); reclaimed {
		t.Error("RunGCOnce() on in-memory store reported reclaimed space")
	}
}
