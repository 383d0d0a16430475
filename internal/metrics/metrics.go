// GeoCity - Citizen Incident Reporting and Live City Map
// Copyright 2026 GeoCity contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/geocity-dev/geocity

// Package metrics provides Prometheus instrumentation for:
//   - API endpoint latency and throughput
//   - Report lifecycle (created, resolved, expired)
//   - Vendor calls (geocoding, classification) and circuit breakers
//   - WebSocket connections
//   - Notification delivery
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// API Endpoint Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "endpoint"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "api_active_requests",
			Help: "Current number of active API requests",
		},
	)

	// Report Lifecycle Metrics
	ReportsCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reports_created_total",
			Help: "Total number of reports created",
		},
		[]string{"category", "priority"},
	)

	ReportsResolved = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reports_resolved_total",
			Help: "Total number of reports resolved",
		},
		[]string{"category"},
	)

	ReportsExpired = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reports_expired_total",
			Help: "Total number of reports expired by pruning",
		},
		[]string{"category"},
	)

	ReportsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "reports_active",
			Help: "Current number of active reports on the map",
		},
	)

	// Vendor Call Metrics
	VendorCallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "vendor_call_duration_seconds",
			Help:    "Duration of vendor API calls",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"vendor", "operation"}, // vendor: "maps", "gemini"
	)

	VendorCallErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vendor_call_errors_total",
			Help: "Total number of failed vendor API calls",
		},
		[]string{"vendor", "operation"},
	)

	ClassifyFallbacks = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "classify_fallbacks_total",
			Help: "Total number of classifications that fell back to the default category",
		},
	)

	// Circuit Breaker Metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_requests_total",
			Help: "Total number of requests through circuit breaker",
		},
		[]string{"name", "result"}, // result: "success", "failure", "rejected"
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_state_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"name", "from_state", "to_state"},
	)

	// WebSocket Metrics
	WSConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "websocket_connections",
			Help: "Current number of active WebSocket connections",
		},
	)

	WSMessagesSent = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "websocket_messages_sent_total",
			Help: "Total number of WebSocket messages sent",
		},
	)

	WSMessagesReceived = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "websocket_messages_received_total",
			Help: "Total number of WebSocket messages received",
		},
	)

	WSErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "websocket_errors_total",
			Help: "Total number of WebSocket errors",
		},
		[]string{"error_type"},
	)

	// Notification Metrics
	NotificationsSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifications_sent_total",
			Help: "Total number of webhook notifications sent",
		},
		[]string{"channel"}, // "discord", "webhook"
	)

	NotificationsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifications_failed_total",
			Help: "Total number of failed webhook notifications",
		},
		[]string{"channel"},
	)

	// Cache Metrics
	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_hits_total",
			Help: "Total number of cache hits",
		},
		[]string{"cache_type"},
	)

	CacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_misses_total",
			Help: "Total number of cache misses",
		},
		[]string{"cache_type"},
	)

	// Store Metrics
	StoreOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "store_operation_duration_seconds",
			Help:    "Duration of document store operations",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation", "bucket"},
	)

	StoreOperationErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "store_operation_errors_total",
			Help: "Total number of document store errors",
		},
		[]string{"operation", "bucket"},
	)

	// Auth Metrics
	AuthLogins = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_logins_total",
			Help: "Total number of login attempts",
		},
		[]string{"provider", "result"}, // result: "success", "failure", "locked"
	)
)

// RecordAPIRequest records an API request with its duration.
func RecordAPIRequest(method, endpoint, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// RecordStoreOperation records a store operation with its duration and outcome.
func RecordStoreOperation(operation, bucket string, duration time.Duration, err error) {
	StoreOperationDuration.WithLabelValues(operation, bucket).Observe(duration.Seconds())
	if err != nil {
		StoreOperationErrors.WithLabelValues(operation, bucket).Inc()
	}
}

// RecordVendorCall records a vendor API call with its duration and outcome.
func RecordVendorCall(vendor, operation string, duration time.Duration, err error) {
	VendorCallDuration.WithLabelValues(vendor, operation).Observe(duration.Seconds())
	if err != nil {
		VendorCallErrors.WithLabelValues(vendor, operation).Inc()
	}
}

// TrackActiveRequest increments or decrements the active request gauge.
func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}
