// GeoCity - Citizen Incident Reporting and Live City Map
// Copyright 2026 GeoCity contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/geocity-dev/geocity

package events

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"

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

func testEventReport() *models.Report {
	return &models.Report{
		ID:       "r1",
		Category: models.CategoryFire,
		Priority: models.PriorityHigh,
		Status:   models.StatusOpen,
	}
}

func TestPublishSubscribeRoundTrip(t *testing.T) {
	bus := NewBus()
	defer func() { _ = bus.Close() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	messages, err := bus.Subscribe(ctx, TopicReportCreated)
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}

	if err := bus.PublishReport(ctx, TopicReportCreated, testEventReport()); err != nil {
		t.Fatalf("PublishReport() error = %v", err)
	}

	select {
	case msg := <-messages:
		event, err := DecodeReportEvent(msg)
		if err != nil {
			t.Fatalf("DecodeReportEvent() error = %v", err)
		}
		if event.Report.ID != "r1" {
			t.Errorf("Report.ID = %q, want r1", event.Report.ID)
		}
		if got := msg.Metadata.Get("report_id"); got != "r1" {
			t.Errorf("metadata report_id = %q, want r1", got)
		}
		if got := msg.Metadata.Get("category"); got != models.CategoryFire {
			t.Errorf("metadata category = %q, want fire", got)
		}
		msg.Ack()
	case <-time.After(2 * time.Second):
		t.Fatal("no message received within timeout")
	}
}

func TestSubscribersEachGetACopy(t *testing.T) {
	bus := NewBus()
	defer func() { _ = bus.Close() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	first, err := bus.Subscribe(ctx, TopicReportResolved)
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}
	second, err := bus.Subscribe(ctx, TopicReportResolved)
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}

	if err := bus.PublishReport(ctx, TopicReportResolved, testEventReport()); err != nil {
		t.Fatalf("PublishReport() error = %v", err)
	}

	for i, ch := range []<-chan *message.Message{first, second} {
		select {
		case msg := <-ch:
			msg.Ack()
		case <-time.After(2 * time.Second):
			t.Fatalf("subscriber %d received no message", i)
		}
	}
}

func TestDecodeReportEventErrors(t *testing.T) {
	if _, err := DecodeReportEvent(message.NewMessage("1", []byte("not json"))); err == nil {
		t.Error("DecodeReportEvent(garbage) expected error")
	}
	if _, err := DecodeReportEvent(message.NewMessage("2", []byte("{}"))); err == nil {
		t.Error("DecodeReportEvent(empty object) expected error for missing report")
	}
}
