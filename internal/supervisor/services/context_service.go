// GeoCity - Citizen Incident Reporting and Live City Map
// Copyright 2026 GeoCity contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/geocity-dev/geocity

package services

import (
	"context"
)

// ContextRunner matches any component whose run loop blocks until its
// context is canceled: the websocket hub's RunWithContext, the store's
// RunGC, the event router's Run, and the report pruner.
type ContextRunner func(ctx context.Context) error

// ContextService adapts a ContextRunner into a supervised service.
type ContextService struct {
	run  ContextRunner
	name string
}

// NewContextService wraps a run loop as a named suture service.
func NewContextService(name string, run ContextRunner) *ContextService {
	return &ContextService{
		run:  run,
		name: name,
	}
}

// Serve implements suture.Service.
func (s *ContextService) Serve(ctx context.Context) error {
	return s.run(ctx)
}

// String implements fmt.Stringer; suture uses it in log messages.
func (s *ContextService) String() string {
	return s.name
}
