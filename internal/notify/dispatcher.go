// GeoCity - Citizen Incident Reporting and Live City Map
// Copyright 2026 GeoCity contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/geocity-dev/geocity

package notify

import (
	"context"

	"github.com/geocity-dev/geocity/internal/events"
	"github.com/geocity-dev/geocity/internal/logging"
	"github.com/geocity-dev/geocity/internal/metrics"
)

// Dispatcher fans report events out to the configured notifiers. It
// registers itself on the event router; delivery errors are logged and
// counted but never returned, so a failing webhook cannot poison the
// event stream.
type Dispatcher struct {
	notifiers []Notifier
}

// NewDispatcher creates a dispatcher over the given notifiers.
func NewDispatcher(notifiers ...Notifier) *Dispatcher {
	return &Dispatcher{notifiers: notifiers}
}

// Register subscribes the dispatcher to the report topics on the router.
func (d *Dispatcher) Register(router *events.Router) {
	router.AddHandler("notify-created", events.TopicReportCreated, d.handle)
	router.AddHandler("notify-resolved", events.TopicReportResolved, d.handle)
	router.AddHandler("notify-expired", events.TopicReportExpired, d.handle)
}

func (d *Dispatcher) handle(ctx context.Context, topic string, event *events.ReportEvent) error {
	for _, notifier := range d.notifiers {
		if err := notifier.Send(ctx, topic, event.Report); err != nil {
			metrics.NotificationsFailed.WithLabelValues(notifier.Name()).Inc()
			logging.CtxErr(ctx, err).
				Str("notifier", notifier.Name()).
				Str("topic", topic).
				Str("report_id", event.Report.ID).
				Msg("Notification delivery failed")
			continue
		}
		metrics.NotificationsSent.WithLabelValues(notifier.Name()).Inc()
	}
	return nil
}
