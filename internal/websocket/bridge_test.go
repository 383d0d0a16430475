// GeoCity - Citizen Incident Reporting and Live City Map
// Copyright 2026 GeoCity contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/geocity-dev/geocity

package websocket

import (
	"context"
	"testing"
	"time"

	"github.com/geocity-dev/geocity/internal/events"
	"github.com/geocity-dev/geocity/internal/models"
)

// startBridge wires a bus, router, and the bridge to a running hub.
func startBridge(t *testing.T, hub *Hub, stats StatsFunc) *events.Bus {
	t.Helper()

	bus := events.NewBus()
	t.Cleanup(func() { _ = bus.Close() })

	router, err := events.NewRouter(bus)
	if err != nil {
		t.Fatalf("events.NewRouter() error = %v", err)
	}
	RegisterBridge(router, hub, stats)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go func() { _ = router.Run(ctx) }()
	time.Sleep(50 * time.Millisecond)

	return bus
}

func collectFrames(t *testing.T, client *Client, n int) map[string]Message {
	t.Helper()

	got := make(map[string]Message, n)
	timeout := time.After(2 * time.Second)
	for len(got) < n {
		select {
		case msg := <-client.send:
			got[msg.Type] = msg
		case <-timeout:
			t.Fatalf("timed out waiting for %d frames, have %d", n, len(got))
		}
	}
	return got
}

func TestRegisterBridgeBroadcastsReportAndStats(t *testing.T) {
	hub := setupHub(t)
	client := createTestClient(hub)
	registerClient(hub, client)

	wantStats := &models.ReportStats{
		Total:      3,
		ByCategory: map[string]int{models.CategoryFire: 3},
	}
	bus := startBridge(t, hub, func(context.Context) (*models.ReportStats, error) {
		return wantStats, nil
	})

	report := testWSReport()
	if err := bus.PublishReport(context.Background(), events.TopicReportCreated, report); err != nil {
		t.Fatalf("PublishReport() error = %v", err)
	}

	got := collectFrames(t, client, 2)

	frame, ok := got[MessageTypeReportNew]
	if !ok {
		t.Fatal("no report_new frame delivered")
	}
	if r, ok := frame.Data.(*models.Report); !ok || r.ID != report.ID {
		t.Errorf("report_new data = %+v, want report %s", frame.Data, report.ID)
	}

	frame, ok = got[MessageTypeStatsUpdate]
	if !ok {
		t.Fatal("no stats_update frame delivered")
	}
	if s, ok := frame.Data.(*models.ReportStats); !ok || s.Total != wantStats.Total {
		t.Errorf("stats_update data = %+v, want total %d", frame.Data, wantStats.Total)
	}
}

func TestRegisterBridgeWithoutStats(t *testing.T) {
	hub := setupHub(t)
	client := createTestClient(hub)
	registerClient(hub, client)

	bus := startBridge(t, hub, nil)

	report := testWSReport()
	if err := bus.PublishReport(context.Background(), events.TopicReportResolved, report); err != nil {
		t.Fatalf("PublishReport() error = %v", err)
	}

	got := collectFrames(t, client, 1)
	if _, ok := got[MessageTypeReportResolved]; !ok {
		t.Error("no report_resolved frame delivered")
	}

	// No stats function, no stats frame.
	select {
	case msg := <-client.send:
		t.Errorf("unexpected extra frame %q", msg.Type)
	case <-time.After(100 * time.Millisecond):
	}
}
