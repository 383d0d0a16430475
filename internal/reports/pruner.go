// GeoCity - Citizen Incident Reporting and Live City Map
// Copyright 2026 GeoCity contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/geocity-dev/geocity

package reports

import (
	"context"
	"time"

	"github.com/geocity-dev/geocity/internal/events"
	"github.com/geocity-dev/geocity/internal/logging"
	"github.com/geocity-dev/geocity/internal/metrics"
)

// PruneExpired marks every open report past its expiry window as
// expired and publishes report.expired for each one. Returns the number
// of reports pruned. Also reachable on demand through the cron endpoint.
func (s *Service) PruneExpired(ctx context.Context) (int, error) {
	expired, err := s.store.DeleteExpired(ctx, s.now().UTC(), s.cfg.PruneBatchSize)
	if err != nil {
		return len(expired), err
	}
	if len(expired) == 0 {
		return 0, nil
	}

	s.cache.Clear()
	for _, report := range expired {
		metrics.ReportsExpired.WithLabelValues(report.Category).Inc()
		s.publish(ctx, events.TopicReportExpired, report)
	}

	logging.Ctx(ctx).Info().
		Int("pruned", len(expired)).
		Msg("expired reports pruned")

	return len(expired), nil
}

// RunPruner prunes on the configured interval until the context is
// canceled. Blocks; intended for the supervisor.
func (s *Service) RunPruner(ctx context.Context) error {
	interval := s.cfg.PruneInterval
	if interval <= 0 {
		interval = 5 * time.Minute
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logging.Info().
				Str("component", "report-pruner").
				Msg("report pruner stopped")
			return ctx.Err()
		case <-ticker.C:
			if _, err := s.PruneExpired(ctx); err != nil {
				logging.Error().Err(err).Msg("report pruning failed")
			}
		}
	}
}
