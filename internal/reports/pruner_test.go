// GeoCity - Citizen Incident Reporting and Live City Map
// Copyright 2026 GeoCity contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/geocity-dev/geocity

package reports

import (
	"context"
	"testing"
	"time"

	"github.com/geocity-dev/geocity/internal/models"
)

func TestPruneExpired(t *testing.T) {
	svc, st := newTestService(t, nil, nil)
	ctx := context.Background()

	mk := func(id string, expires time.Time) {
		r := &models.Report{
			ID:          id,
			AuthorID:    "u1",
			Category:    models.CategoryTraffic,
			Severity:    2,
			Priority:    models.PriorityLow,
			Description: "incident " + id + " on the ring road",
			Location:    models.Location{Latitude: 40, Longitude: -3},
			Status:      models.StatusOpen,
			CreatedAt:   testClock.Add(-48 * time.Hour),
			UpdatedAt:   testClock.Add(-48 * time.Hour),
			ExpiresAt:   expires,
		}
		if err := st.CreateReport(ctx, r); err != nil {
			t.Fatalf("CreateReport(%s) error = %v", id, err)
		}
	}

	mk("stale1", testClock.Add(-time.Hour))
	mk("stale2", testClock.Add(-time.Minute))
	mk("fresh", testClock.Add(time.Hour))

	pruned, err := svc.PruneExpired(ctx)
	if err != nil {
		t.Fatalf("PruneExpired() error = %v", err)
	}
	if pruned != 2 {
		t.Errorf("PruneExpired() = %d, want 2", pruned)
	}

	for _, id := range []string{"stale1", "stale2"} {
		got, err := st.GetReport(ctx, id)
		if err != nil {
			t.Fatalf("GetReport(%s) error = %v", id, err)
		}
		if got.Status != models.StatusExpired {
			t.Errorf("%s status = %q, want expired", id, got.Status)
		}
	}

	got, err := st.GetReport(ctx, "fresh")
	if err != nil {
		t.Fatalf("GetReport(fresh) error = %v", err)
	}
	if got.Status != models.StatusOpen {
		t.Errorf("fresh status = %q, want open", got.Status)
	}

	// Nothing left to prune.
	pruned, err = svc.PruneExpired(ctx)
	if err != nil {
		t.Fatalf("PruneExpired() second pass error = %v", err)
	}
	if pruned != 0 {
		t.Errorf("PruneExpired() second pass = %d, want 0", pruned)
	}
}

func TestRunPrunerStopsOnContextCancel(t *testing.T) {
	svc, _ := newTestService(t, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- svc.RunPruner(ctx)
	}()

	cancel()
	select {
	case err := <-done:
		if err != context.Canceled {
			t.Errorf("RunPruner() = %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("RunPruner() did not stop after cancel")
	}
}
