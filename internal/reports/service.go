// GeoCity - Citizen Incident Reporting and Live City Map
// Copyright 2026 GeoCity contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/geocity-dev/geocity

// Package reports implements the report lifecycle: submission with
// geocoding and classification, resolution, listing, marker clustering,
// statistics, and expiry pruning.
package reports

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/geocity-dev/geocity/internal/authz"
	"github.com/geocity-dev/geocity/internal/cache"
	"github.com/geocity-dev/geocity/internal/classify"
	"github.com/geocity-dev/geocity/internal/config"
	"github.com/geocity-dev/geocity/internal/events"
	"github.com/geocity-dev/geocity/internal/geocode"
	"github.com/geocity-dev/geocity/internal/logging"
	"github.com/geocity-dev/geocity/internal/metrics"
	"github.com/geocity-dev/geocity/internal/models"
	"github.com/geocity-dev/geocity/internal/store"
	"github.com/geocity-dev/geocity/internal/validation"
)

var (
	// ErrForbidden is returned when the actor's role does not permit
	// the operation on the target report.
	ErrForbidden = errors.New("operation not permitted")

	// ErrNotOpen is returned when resolving a report that is already
	// resolved or expired.
	ErrNotOpen = errors.New("report is not open")

	// ErrNoLocation is returned when a submission carries neither
	// coordinates nor a geocodable address.
	ErrNoLocation = errors.New("report needs coordinates or an address")

	// ErrNotFound mirrors the store sentinel for callers that only
	// import this package.
	ErrNotFound = store.ErrNotFound
)

const cacheTTL = 30 * time.Second

// SubmitInput is a citizen report submission. Category is a hint; the
// classifier has the final say. Either both coordinates or an address
// must be present.
type SubmitInput struct {
	Category    string   `json:"category" validate:"omitempty,oneof=traffic fire medical environmental other"`
	Description string   `json:"description" validate:"required,min=10,max=2000"`
	PhotoURL    string   `json:"photo_url" validate:"omitempty,url,max=2048"`
	Latitude    *float64 `json:"latitude" validate:"omitempty,latitude"`
	Longitude   *float64 `json:"longitude" validate:"omitempty,longitude"`
	Address     string   `json:"address" validate:"omitempty,max=512"`
}

// Service owns the report lifecycle. The geocoder may be nil when no
// Maps API key is configured; submissions then require raw coordinates.
type Service struct {
	store      *store.Store
	geocoder   geocode.Geocoder
	classifier classify.Classifier
	enforcer   *authz.Enforcer
	bus        *events.Bus
	cfg        *config.ReportsConfig
	cache      *cache.Cache

	now func() time.Time
}

// NewService wires the report service.
func NewService(
	st *store.Store,
	geocoder geocode.Geocoder,
	classifier classify.Classifier,
	enforcer *authz.Enforcer,
	bus *events.Bus,
	cfg *config.ReportsConfig,
) *Service {
	return &Service{
		store:      st,
		geocoder:   geocoder,
		classifier: classifier,
		enforcer:   enforcer,
		bus:        bus,
		cfg:        cfg,
		cache:      cache.New("reports", cacheTTL),
		now:        time.Now,
	}
}

// Submit validates, geocodes, classifies, and persists a new report,
// then publishes report.created for the websocket hub and notifiers.
func (s *Service) Submit(ctx context.Context, author *models.User, input SubmitInput) (*models.Report, error) {
	if err := validation.ValidateStruct(&input); err != nil {
		return nil, err
	}

	location, err := s.resolveLocation(ctx, input)
	if err != nil {
		return nil, err
	}

	classification := s.classifier.Classify(ctx, input.Description, input.Category)
	priority := classify.DerivePriority(classification.Category, classification.Severity)
	icon := classify.DeriveIcon(classification.Category, classification.Severity)

	now := s.now().UTC()
	report := &models.Report{
		ID:          uuid.New().String(),
		AuthorID:    author.ID,
		AuthorName:  author.DisplayName,
		Category:    classification.Category,
		Severity:    classification.Severity,
		Priority:    priority,
		Icon:        icon,
		Description: input.Description,
		Summary:     classification.Summary,
		PhotoURL:    input.PhotoURL,
		Location:    *location,
		Status:      models.StatusOpen,
		CreatedAt:   now,
		UpdatedAt:   now,
		ExpiresAt:   now.Add(s.cfg.ExpiryFor(classification.Category)),
	}

	if err := s.store.CreateReport(ctx, report); err != nil {
		return nil, fmt.Errorf("persist report: %w", err)
	}
	s.cache.Clear()
	metrics.ReportsCreated.WithLabelValues(report.Category, report.Priority).Inc()

	s.publish(ctx, events.TopicReportCreated, report)

	logging.Ctx(ctx).Info().
		Str("report_id", report.ID).
		Str("category", report.Category).
		Str("priority", report.Priority).
		Msg("report submitted")

	return report, nil
}

// resolveLocation turns submission coordinates or a free-form address
// into a geocoded Location. Reverse geocoding is best effort; a
// coordinate-only report still goes on the map when the vendor is down.
func (s *Service) resolveLocation(ctx context.Context, input SubmitInput) (*models.Location, error) {
	if input.Latitude != nil && input.Longitude != nil {
		location := &models.Location{
			Latitude:  *input.Latitude,
			Longitude: *input.Longitude,
			Address:   input.Address,
		}
		if s.geocoder != nil {
			result, err := s.geocoder.ReverseGeocode(ctx, location.Latitude, location.Longitude)
			if err != nil {
				logging.Ctx(ctx).Warn().Err(err).Msg("reverse geocoding failed, keeping raw coordinates")
				return location, nil
			}
			if location.Address == "" {
				location.Address = result.Address
			}
			location.Normalized = result.Normalized
		}
		return location, nil
	}

	if input.Address == "" {
		return nil, ErrNoLocation
	}
	if s.geocoder == nil {
		return nil, ErrNoLocation
	}

	result, err := s.geocoder.Geocode(ctx, input.Address)
	if err != nil {
		return nil, fmt.Errorf("geocode address: %w", err)
	}
	return &models.Location{
		Latitude:   result.Latitude,
		Longitude:  result.Longitude,
		Address:    result.Address,
		Normalized: result.Normalized,
	}, nil
}

// Get returns a single report by ID.
func (s *Service) Get(ctx context.Context, id string) (*models.Report, error) {
	return s.store.GetReport(ctx, id)
}

// List returns reports matching the filter, newest first.
func (s *Service) List(ctx context.Context, filter models.ReportFilter) ([]*models.Report, error) {
	return s.store.ListReports(ctx, filter)
}

// Active returns reports currently visible on the live map: open and
// inside their expiry window. The page limit is applied after the
// expiry check; otherwise stale open reports crowd newer active ones
// out of the page.
func (s *Service) Active(ctx context.Context, filter models.ReportFilter) ([]*models.Report, error) {
	limit := filter.Limit
	filter.Status = models.StatusOpen
	filter.Limit = 0
	all, err := s.store.ListReports(ctx, filter)
	if err != nil {
		return nil, err
	}

	now := s.now()
	active := all[:0]
	for _, r := range all {
		if r.Active(now) {
			active = append(active, r)
		}
	}
	if limit > 0 && len(active) > limit {
		active = active[:limit]
	}
	return active, nil
}

// Resolve marks a report resolved. Authors may resolve their own
// reports; moderators and admins may resolve any.
func (s *Service) Resolve(ctx context.Context, actor *models.User, id string) (*models.Report, error) {
	report, err := s.store.GetReport(ctx, id)
	if err != nil {
		return nil, err
	}

	allowed, err := s.enforcer.CanModifyReport(actor.Role, actor.ID, report.AuthorID, authz.ActionResolve)
	if err != nil {
		return nil, fmt.Errorf("authorize resolve: %w", err)
	}
	if !allowed {
		return nil, ErrForbidden
	}

	if report.Status != models.StatusOpen {
		return nil, ErrNotOpen
	}

	now := s.now().UTC()
	report.Status = models.StatusResolved
	report.ResolvedAt = now
	report.ResolvedBy = actor.ID
	report.UpdatedAt = now

	if err := s.store.UpdateReport(ctx, report); err != nil {
		return nil, fmt.Errorf("persist resolution: %w", err)
	}
	s.cache.Clear()
	metrics.ReportsResolved.WithLabelValues(report.Category).Inc()

	s.publish(ctx, events.TopicReportResolved, report)

	logging.Ctx(ctx).Info().
		Str("report_id", report.ID).
		Str("resolved_by", actor.ID).
		Msg("report resolved")

	return report, nil
}

// Delete removes a report entirely. Authors may delete their own;
// moderators and admins may delete any.
func (s *Service) Delete(ctx context.Context, actor *models.User, id string) error {
	report, err := s.store.GetReport(ctx, id)
	if err != nil {
		return err
	}

	allowed, err := s.enforcer.CanModifyReport(actor.Role, actor.ID, report.AuthorID, authz.ActionDelete)
	if err != nil {
		return fmt.Errorf("authorize delete: %w", err)
	}
	if !allowed {
		return ErrForbidden
	}

	if err := s.store.DeleteReport(ctx, id); err != nil {
		return err
	}
	s.cache.Clear()

	logging.Ctx(ctx).Info().
		Str("report_id", id).
		Str("deleted_by", actor.ID).
		Msg("report deleted")

	return nil
}

// Stats aggregates active reports for the dashboard. Results are cached
// briefly; any report write clears the cache. The second return reports
// whether the result came from cache.
func (s *Service) Stats(ctx context.Context) (*models.ReportStats, bool, error) {
	if cached, ok := s.cache.Get("stats"); ok {
		if stats, ok := cached.(*models.ReportStats); ok {
			return stats, true, nil
		}
	}

	active, err := s.Active(ctx, models.ReportFilter{})
	if err != nil {
		return nil, false, err
	}

	stats := &models.ReportStats{
		Total:      len(active),
		ByCategory: make(map[string]int),
		ByPriority: make(map[string]int),
		UpdatedAt:  s.now().UTC(),
	}
	for _, r := range active {
		stats.ByCategory[r.Category]++
		stats.ByPriority[r.Priority]++
	}
	metrics.ReportsActive.Set(float64(stats.Total))

	s.cache.Set("stats", stats)
	return stats, false, nil
}

// publish sends a lifecycle event. Failures are logged and do not fail
// the originating write; the store is the source of truth.
func (s *Service) publish(ctx context.Context, topic string, report *models.Report) {
	if s.bus == nil {
		return
	}
	if err := s.bus.PublishReport(ctx, topic, report); err != nil {
		logging.Ctx(ctx).Error().Err(err).Str("topic", topic).Msg("failed to publish report event")
	}
}
