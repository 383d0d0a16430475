// GeoCity - Citizen Incident Reporting and Live City Map
// Copyright 2026 GeoCity contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/geocity-dev/geocity

package websocket

import (
	"context"

	"github.com/geocity-dev/geocity/internal/events"
	"github.com/geocity-dev/geocity/internal/logging"
	"github.com/geocity-dev/geocity/internal/models"
)

// topicMessageTypes maps bus topics to the websocket message types
// pushed to map clients.
var topicMessageTypes = map[string]string{
	events.TopicReportCreated:  MessageTypeReportNew,
	events.TopicReportResolved: MessageTypeReportResolved,
	events.TopicReportExpired:  MessageTypeReportExpired,
}

// StatsFunc returns current aggregate report counts for the dashboard.
type StatsFunc func(ctx context.Context) (*models.ReportStats, error)

// RegisterBridge subscribes the hub to the report lifecycle topics so
// every connected map client sees report changes as they happen. Each
// report event is followed by a stats_update frame so dashboards stay
// current without polling; stats may be nil to disable that.
func RegisterBridge(router *events.Router, hub *Hub, stats StatsFunc) {
	for topic, msgType := range topicMessageTypes {
		messageType := msgType
		router.AddHandler("ws-"+topic, topic, func(ctx context.Context, _ string, event *events.ReportEvent) error {
			hub.BroadcastJSON(messageType, event.Report)

			if stats == nil {
				return nil
			}
			current, err := stats(ctx)
			if err != nil {
				// The report frame already went out; a missing stats
				// refresh is not worth a redelivery.
				logging.Ctx(ctx).Warn().Err(err).Msg("stats refresh for websocket clients failed")
				return nil
			}
			hub.BroadcastStats(current)
			return nil
		})
	}
}
