// GeoCity - Citizen Incident Reporting and Live City Map
// Copyright 2026 GeoCity contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/geocity-dev/geocity

package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"

	"github.com/geocity-dev/geocity/internal/models"
	"github.com/geocity-dev/geocity/internal/reports"
	"github.com/geocity-dev/geocity/internal/validation"
)

// SubmitReport accepts a new citizen report.
func (h *Handler) SubmitReport(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	user, ok := h.currentUser(r.Context())
	if !ok {
		rw.Unauthorized("authentication required")
		return
	}

	var input reports.SubmitInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		rw.BadRequest("invalid JSON body")
		return
	}

	report, err := h.reports.Submit(r.Context(), user, input)
	if err != nil {
		var verr *validation.RequestValidationError
		if errors.As(err, &verr) {
			rw.ErrorWithDetails(http.StatusBadRequest, ErrCodeValidation, verr.Error(), validationDetails(verr))
			return
		}
		if errors.Is(err, reports.ErrNoLocation) {
			rw.BadRequest("report needs coordinates or a geocodable address")
			return
		}
		rw.InternalError(err)
		return
	}

	rw.Created(report)
}

// ListReports returns reports matching the query filters, newest first.
// Defaults to active reports only; status=all includes everything.
func (h *Handler) ListReports(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	filter, err := h.filterFromQuery(r)
	if err != nil {
		rw.BadRequest(err.Error())
		return
	}

	var list []*models.Report
	switch r.URL.Query().Get("status") {
	case "", "active":
		list, err = h.reports.Active(r.Context(), filter)
	case "all":
		list, err = h.reports.List(r.Context(), filter)
	default:
		filter.Status = r.URL.Query().Get("status")
		list, err = h.reports.List(r.Context(), filter)
	}
	if err != nil {
		rw.InternalError(err)
		return
	}

	rw.Success(map[string]interface{}{
		"total":   len(list),
		"reports": list,
	})
}

// GetReport returns a single report.
func (h *Handler) GetReport(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	report, err := h.reports.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, reports.ErrNotFound) {
			rw.NotFound("report not found")
			return
		}
		rw.InternalError(err)
		return
	}
	rw.Success(report)
}

// ResolveReport marks a report resolved.
func (h *Handler) ResolveReport(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	user, ok := h.currentUser(r.Context())
	if !ok {
		rw.Unauthorized("authentication required")
		return
	}

	report, err := h.reports.Resolve(r.Context(), user, chi.URLParam(r, "id"))
	if err != nil {
		switch {
		case errors.Is(err, reports.ErrNotFound):
			rw.NotFound("report not found")
		case errors.Is(err, reports.ErrForbidden):
			rw.Forbidden("you may only resolve your own reports")
		case errors.Is(err, reports.ErrNotOpen):
			rw.Conflict("report is not open")
		default:
			rw.InternalError(err)
		}
		return
	}
	rw.Success(report)
}

// DeleteReport removes a report.
func (h *Handler) DeleteReport(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	user, ok := h.currentUser(r.Context())
	if !ok {
		rw.Unauthorized("authentication required")
		return
	}

	err := h.reports.Delete(r.Context(), user, chi.URLParam(r, "id"))
	if err != nil {
		switch {
		case errors.Is(err, reports.ErrNotFound):
			rw.NotFound("report not found")
		case errors.Is(err, reports.ErrForbidden):
			rw.Forbidden("you may only delete your own reports")
		default:
			rw.InternalError(err)
		}
		return
	}
	rw.NoContent()
}

// ReportClusters returns live map markers for the requested viewport.
func (h *Handler) ReportClusters(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	filter, err := h.filterFromQuery(r)
	if err != nil {
		rw.BadRequest(err.Error())
		return
	}

	clusters, cached, err := h.reports.Clusters(r.Context(), filter)
	if err != nil {
		rw.InternalError(err)
		return
	}

	payload := map[string]interface{}{
		"total":    len(clusters),
		"clusters": clusters,
	}
	if cached {
		rw.SuccessCached(payload)
		return
	}
	rw.Success(payload)
}

// ReportStats returns aggregate counts for the dashboard.
func (h *Handler) ReportStats(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	stats, cached, err := h.reports.Stats(r.Context())
	if err != nil {
		rw.InternalError(err)
		return
	}
	if cached {
		rw.SuccessCached(stats)
		return
	}
	rw.Success(stats)
}

// filterFromQuery parses category, bbox, and limit query parameters.
func (h *Handler) filterFromQuery(r *http.Request) (models.ReportFilter, error) {
	q := r.URL.Query()
	filter := models.ReportFilter{
		Category: q.Get("category"),
	}

	if filter.Category != "" && !models.ValidCategory(filter.Category) {
		return filter, errors.New("unknown category")
	}

	if bbox := q.Get("bbox"); bbox != "" {
		coords, err := parseBBox(bbox)
		if err != nil {
			return filter, err
		}
		filter.HasBBox = true
		filter.MinLat, filter.MaxLat = coords[0], coords[2]
		filter.MinLng, filter.MaxLng = coords[1], coords[3]
	}

	limit := h.cfg.API.DefaultPageSize
	if raw := q.Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			return filter, errors.New("limit must be a positive integer")
		}
		limit = parsed
	}
	if h.cfg.API.MaxPageSize > 0 && limit > h.cfg.API.MaxPageSize {
		limit = h.cfg.API.MaxPageSize
	}
	filter.Limit = limit

	return filter, nil
}

// parseBBox parses "minLat,minLng,maxLat,maxLng".
func parseBBox(raw string) ([4]float64, error) {
	var coords [4]float64

	parts := strings.Split(raw, ",")
	if len(parts) != 4 {
		return coords, errors.New("bbox must be minLat,minLng,maxLat,maxLng")
	}

	for i, part := range parts {
		val, err := strconv.ParseFloat(part, 64)
		if err != nil {
			return coords, errors.New("bbox coordinates must be numbers")
		}
		coords[i] = val
	}

	if coords[0] > coords[2] || coords[1] > coords[3] {
		return coords, errors.New("bbox min must not exceed max")
	}
	if coords[0] < -90 || coords[2] > 90 || coords[1] < -180 || coords[3] > 180 {
		return coords, errors.New("bbox out of range")
	}
	return coords, nil
}
