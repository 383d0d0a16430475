// GeoCity - Citizen Incident Reporting and Live City Map
// Copyright 2026 GeoCity contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/geocity-dev/geocity

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/geocity-dev/geocity/internal/auth"
	"github.com/geocity-dev/geocity/internal/middleware"
)

// Router assembles the HTTP surface: handlers plus the Chi middleware
// stack.
type Router struct {
	handler *Handler
	chimw   *ChiMiddleware
}

// NewRouter creates the router.
func NewRouter(handler *Handler) *Router {
	return &Router{
		handler: handler,
		chimw:   NewChiMiddleware(NewChiMiddlewareConfig(&handler.cfg.Security)),
	}
}

// Setup configures all HTTP routes.
func (router *Router) Setup() http.Handler {
	r := chi.NewRouter()

	// Global middleware, applied to every route in order.
	r.Use(RequestIDWithLogging())
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Compress(5))
	r.Use(router.chimw.CORS())

	// Health endpoints: permissive rate limit for monitoring probes.
	r.Route("/api/v1/health", func(r chi.Router) {
		r.Use(router.chimw.RateLimitHealth())
		r.Get("/live", router.handler.HealthLive)
		r.Get("/ready", router.handler.HealthReady)
		r.Get("/", router.handler.Health)
	})

	// Authentication: strict rate limits against brute forcing.
	r.Route("/api/v1/auth", func(r chi.Router) {
		r.Use(router.chimw.RateLimitAuth())
		r.Use(chiMiddleware(middleware.PrometheusMetrics))

		r.With(router.chimw.RateLimitLogin()).Post("/register", router.handler.Register)
		r.With(router.chimw.RateLimitLogin()).Post("/login", router.handler.Login)
		r.Post("/logout", router.handler.Logout)

		r.Get("/google/start", router.handler.GoogleStart)
		r.Get("/google/callback", router.handler.GoogleCallback)
	})

	// Reports: the live map reads are public, writes need a session.
	r.Route("/api/v1/reports", func(r chi.Router) {
		r.Use(router.chimw.RateLimit())
		r.Use(chiMiddleware(middleware.PrometheusMetrics))
		r.Use(router.handler.auth.Middleware)

		r.Get("/", router.handler.ListReports)
		r.Get("/clusters", router.handler.ReportClusters)
		r.Get("/stats", router.handler.ReportStats)
		r.Get("/{id}", router.handler.GetReport)

		r.Group(func(r chi.Router) {
			r.Use(auth.RequireAuth)
			r.Post("/", router.handler.SubmitReport)
			r.Post("/{id}/resolve", router.handler.ResolveReport)
			r.Delete("/{id}", router.handler.DeleteReport)
		})
	})

	// Profile: always authenticated.
	r.Route("/api/v1/profile", func(r chi.Router) {
		r.Use(router.chimw.RateLimit())
		r.Use(chiMiddleware(middleware.PrometheusMetrics))
		r.Use(router.handler.auth.Middleware)
		r.Use(auth.RequireAuth)

		r.Get("/", router.handler.GetProfile)
		r.Put("/", router.handler.UpdateProfile)
		r.Delete("/", router.handler.DeleteProfile)
	})

	// User administration.
	r.Route("/api/v1/users", func(r chi.Router) {
		r.Use(router.chimw.RateLimit())
		r.Use(chiMiddleware(middleware.PrometheusMetrics))
		r.Use(router.handler.auth.Middleware)
		r.Use(auth.RequireAuth)

		r.Get("/", router.handler.ListUsers)
		r.Put("/{id}/role", router.handler.UpdateUserRole)
		r.Delete("/{id}", router.handler.DeleteUser)
	})

	// Maintenance endpoints for external schedulers, guarded by
	// X-Cron-Secret rather than a session.
	r.Route("/api/v1/cron", func(r chi.Router) {
		r.Use(router.chimw.RateLimit())
		r.Post("/prune", router.handler.CronPrune)
		r.Post("/gc", router.handler.CronGC)
	})

	// Live map socket.
	r.Get("/api/v1/ws", router.handler.WebSocket)

	// Prometheus scrape endpoint.
	r.Handle("/metrics", promhttp.Handler())

	return r
}
