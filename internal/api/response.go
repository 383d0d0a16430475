// GeoCity - Citizen Incident Reporting and Live City Map
// Copyright 2026 GeoCity contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/geocity-dev/geocity

// Package api provides HTTP routing and handlers for the GeoCity server.
package api

import (
	"net/http"
	"time"

	"github.com/goccy/go-json"

	"github.com/geocity-dev/geocity/internal/logging"
	"github.com/geocity-dev/geocity/internal/models"
)

// Error codes for API responses
const (
	ErrCodeValidation     = "VALIDATION_ERROR"
	ErrCodeAuthentication = "AUTHENTICATION_ERROR"
	ErrCodeAuthorization  = "AUTHORIZATION_ERROR"
	ErrCodeNotFound       = "NOT_FOUND"
	ErrCodeConflict       = "CONFLICT"
	ErrCodeRateLimited    = "RATE_LIMIT_EXCEEDED"
	ErrCodeStorage        = "STORAGE_ERROR"
	ErrCodeVendor         = "VENDOR_ERROR"
	ErrCodeInternal       = "INTERNAL_ERROR"
)

// ResponseWriter writes the standard response envelope.
type ResponseWriter struct {
	w         http.ResponseWriter
	r         *http.Request
	startTime time.Time
}

// NewResponseWriter creates a response writer for one request.
func NewResponseWriter(w http.ResponseWriter, r *http.Request) *ResponseWriter {
	return &ResponseWriter{
		w:         w,
		r:         r,
		startTime: time.Now(),
	}
}

// Success writes a 200 response with data.
func (rw *ResponseWriter) Success(data interface{}) {
	rw.writeJSON(http.StatusOK, rw.envelope(data, false))
}

// SuccessCached writes a 200 response served from cache.
func (rw *ResponseWriter) SuccessCached(data interface{}) {
	rw.writeJSON(http.StatusOK, rw.envelope(data, true))
}

// Created writes a 201 Created response.
func (rw *ResponseWriter) Created(data interface{}) {
	rw.writeJSON(http.StatusCreated, rw.envelope(data, false))
}

// NoContent writes a 204 No Content response.
func (rw *ResponseWriter) NoContent() {
	rw.w.WriteHeader(http.StatusNoContent)
}

// Error writes an error response with the given status code.
func (rw *ResponseWriter) Error(statusCode int, code, message string) {
	rw.ErrorWithDetails(statusCode, code, message, nil)
}

// ErrorWithDetails writes an error response with additional details.
func (rw *ResponseWriter) ErrorWithDetails(statusCode int, code, message string, details map[string]interface{}) {
	response := models.APIResponse{
		Status: "error",
		Metadata: models.Metadata{
			Timestamp:   time.Now().UTC(),
			QueryTimeMS: time.Since(rw.startTime).Milliseconds(),
		},
		Error: &models.APIError{
			Code:    code,
			Message: message,
			Details: details,
		},
	}
	rw.writeJSON(statusCode, response)
}

// BadRequest writes a 400 validation error.
func (rw *ResponseWriter) BadRequest(message string) {
	rw.Error(http.StatusBadRequest, ErrCodeValidation, message)
}

// Unauthorized writes a 401 error.
func (rw *ResponseWriter) Unauthorized(message string) {
	rw.Error(http.StatusUnauthorized, ErrCodeAuthentication, message)
}

// Forbidden writes a 403 error.
func (rw *ResponseWriter) Forbidden(message string) {
	rw.Error(http.StatusForbidden, ErrCodeAuthorization, message)
}

// NotFound writes a 404 error.
func (rw *ResponseWriter) NotFound(message string) {
	rw.Error(http.StatusNotFound, ErrCodeNotFound, message)
}

// Conflict writes a 409 error.
func (rw *ResponseWriter) Conflict(message string) {
	rw.Error(http.StatusConflict, ErrCodeConflict, message)
}

// InternalError writes a 500 error. The cause is logged, never leaked.
func (rw *ResponseWriter) InternalError(err error) {
	logging.CtxErr(rw.r.Context(), err).Msg("internal server error")
	rw.Error(http.StatusInternalServerError, ErrCodeInternal, "internal server error")
}

func (rw *ResponseWriter) envelope(data interface{}, cached bool) models.APIResponse {
	queryTime := time.Since(rw.startTime).Milliseconds()
	if cached {
		queryTime = 0
	}
	return models.APIResponse{
		Status: "success",
		Data:   data,
		Metadata: models.Metadata{
			Timestamp:   time.Now().UTC(),
			QueryTimeMS: queryTime,
			Cached:      cached,
		},
	}
}

func (rw *ResponseWriter) writeJSON(statusCode int, response models.APIResponse) {
	rw.w.Header().Set("Content-Type", "application/json")
	rw.w.WriteHeader(statusCode)

	if err := json.NewEncoder(rw.w).Encode(response); err != nil {
		logging.CtxErr(rw.r.Context(), err).Msg("failed to encode response")
	}
}
