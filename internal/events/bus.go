// GeoCity - Citizen Incident Reporting and Live City Map
// Copyright 2026 GeoCity contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/geocity-dev/geocity

// Package events is the in-process event bus connecting the report
// lifecycle to its consumers (the websocket hub and the webhook
// notifiers). It runs on Watermill's gochannel Pub/Sub; every consumer
// subscription receives its own copy of each message.
package events

import (
	"context"
	"fmt"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/goccy/go-json"

	"github.com/geocity-dev/geocity/internal/models"
)

// Topics published by the reports service.
const (
	TopicReportCreated  = "report.created"
	TopicReportResolved = "report.resolved"
	TopicReportExpired  = "report.expired"
)

// ReportEvent is the payload carried on every report topic.
type ReportEvent struct {
	Report *models.Report `json:"report"`
}

// Bus is the in-process Pub/Sub for report lifecycle events.
type Bus struct {
	pubsub *gochannel.GoChannel
}

// NewBus creates the event bus.
func NewBus() *Bus {
	pubsub := gochannel.NewGoChannel(gochannel.Config{
		OutputChannelBuffer: 64,
	}, newWatermillLogger())
	return &Bus{pubsub: pubsub}
}

// PublishReport publishes a report event on the given topic.
func (b *Bus) PublishReport(ctx context.Context, topic string, report *models.Report) error {
	data, err := json.Marshal(ReportEvent{Report: report})
	if err != nil {
		return fmt.Errorf("marshal report event: %w", err)
	}

	msg := message.NewMessage(watermill.NewUUID(), data)
	msg.SetContext(ctx)
	msg.Metadata.Set("report_id", report.ID)
	msg.Metadata.Set("category", report.Category)

	if err := b.pubsub.Publish(topic, msg); err != nil {
		return fmt.Errorf("publish %s: %w", topic, err)
	}
	return nil
}

// Subscribe returns a channel of messages for a topic. Each call gets
// an independent subscription.
func (b *Bus) Subscribe(ctx context.Context, topic string) (<-chan *message.Message, error) {
	ch, err := b.pubsub.Subscribe(ctx, topic)
	if err != nil {
		return nil, fmt.Errorf("subscribe %s: %w", topic, err)
	}
	return ch, nil
}

// Publisher exposes the native Watermill publisher for router wiring.
func (b *Bus) Publisher() message.Publisher {
	return b.pubsub
}

// Subscriber exposes the native Watermill subscriber for router wiring.
func (b *Bus) Subscriber() message.Subscriber {
	return b.pubsub
}

// Close shuts down the bus; pending subscriptions drain and close.
func (b *Bus) Close() error {
	return b.pubsub.Close()
}

// DecodeReportEvent parses a report event payload.
func DecodeReportEvent(msg *message.Message) (*ReportEvent, error) {
	var event ReportEvent
	if err := json.Unmarshal(msg.Payload, &event); err != nil {
		return nil, fmt.Errorf("decode report event: %w", err)
	}
	if event.Report == nil {
		return nil, fmt.Errorf("report event has no report")
	}
	return &event, nil
}
