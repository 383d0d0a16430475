// GeoCity - Citizen Incident Reporting and Live City Map
// Copyright 2026 GeoCity contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/geocity-dev/geocity

package api

import (
	"context"
	"net/http"
	"time"

	"github.com/geocity-dev/geocity/internal/auth"
	"github.com/geocity-dev/geocity/internal/authz"
	"github.com/geocity-dev/geocity/internal/config"
	"github.com/geocity-dev/geocity/internal/models"
	"github.com/geocity-dev/geocity/internal/reports"
	"github.com/geocity-dev/geocity/internal/store"
	"github.com/geocity-dev/geocity/internal/websocket"
)

// Handler holds the services the HTTP endpoints call into.
type Handler struct {
	cfg      *config.Config
	store    *store.Store
	auth     *auth.Service
	enforcer *authz.Enforcer
	reports  *reports.Service
	hub      *websocket.Hub

	startTime time.Time
}

// NewHandler creates the API handler.
func NewHandler(
	cfg *config.Config,
	st *store.Store,
	authSvc *auth.Service,
	enforcer *authz.Enforcer,
	reportSvc *reports.Service,
	hub *websocket.Hub,
) *Handler {
	return &Handler{
		cfg:       cfg,
		store:     st,
		auth:      authSvc,
		enforcer:  enforcer,
		reports:   reportSvc,
		hub:       hub,
		startTime: time.Now(),
	}
}

// currentUser loads the authenticated user behind the request claims.
func (h *Handler) currentUser(ctx context.Context) (*models.User, bool) {
	claims, ok := auth.ClaimsFromContext(ctx)
	if !ok {
		return nil, false
	}
	user, err := h.store.GetUser(ctx, claims.UserID())
	if err != nil {
		return nil, false
	}
	return user, true
}

// HealthLive reports process liveness.
func (h *Handler) HealthLive(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	rw.Success(map[string]string{"status": "alive"})
}

// HealthReady reports readiness: the store must answer.
func (h *Handler) HealthReady(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	if _, err := h.store.ListUsers(r.Context()); err != nil {
		rw.Error(http.StatusServiceUnavailable, ErrCodeStorage, "store not ready")
		return
	}
	rw.Success(map[string]string{"status": "ready"})
}

// Health reports overall status with uptime and feature flags.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	rw.Success(map[string]interface{}{
		"status":            "healthy",
		"uptime_seconds":    int64(time.Since(h.startTime).Seconds()),
		"websocket_clients": h.hub.GetClientCount(),
		"features": map[string]bool{
			"google_oauth":   h.auth.GoogleEnabled(),
			"geocoding":      h.cfg.Geocode.APIKey != "",
			"classification": h.cfg.Classify.APIKey != "",
		},
	})
}
