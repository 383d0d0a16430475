// GeoCity - Citizen Incident Reporting and Live City Map
// Copyright 2026 GeoCity contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/geocity-dev/geocity

package events

import (
	"context"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"

	"github.com/geocity-dev/geocity/internal/logging"
)

// Handler consumes a decoded report event.
type Handler func(ctx context.Context, topic string, event *ReportEvent) error

// Router dispatches bus messages to registered handlers through a
// Watermill router with panic recovery and bounded retries. It runs as
// a supervised service.
type Router struct {
	router *message.Router
	bus    *Bus
}

// NewRouter creates the consumer router.
func NewRouter(bus *Bus) (*Router, error) {
	logger := newWatermillLogger()

	wmRouter, err := message.NewRouter(message.RouterConfig{
		CloseTimeout: 10 * time.Second,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("create watermill router: %w", err)
	}

	wmRouter.AddMiddleware(middleware.Recoverer)

	retry := middleware.Retry{
		MaxRetries:      3,
		InitialInterval: 100 * time.Millisecond,
		MaxInterval:     5 * time.Second,
		Multiplier:      2,
		Logger:          logger,
	}
	wmRouter.AddMiddleware(retry.Middleware)

	return &Router{router: wmRouter, bus: bus}, nil
}

// AddHandler subscribes a named handler to a topic.
func (r *Router) AddHandler(name, topic string, handler Handler) {
	r.router.AddNoPublisherHandler(
		name,
		topic,
		r.bus.Subscriber(),
		func(msg *message.Message) error {
			event, err := DecodeReportEvent(msg)
			if err != nil {
				// Malformed payloads are dropped, not retried.
				logging.Warn().Err(err).Str("topic", topic).Msg("Dropping malformed event")
				return nil
			}
			return handler(msg.Context(), topic, event)
		},
	)
}

// Run runs the router until the context is canceled. Blocks; intended
// for the supervisor.
func (r *Router) Run(ctx context.Context) error {
	return r.router.Run(ctx)
}

// Close stops the router and waits for in-flight handlers.
func (r *Router) Close() error {
	return r.router.Close()
}
