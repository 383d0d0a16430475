// GeoCity - Citizen Incident Reporting and Live City Map
// Copyright 2026 GeoCity contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/geocity-dev/geocity

package api

import (
	"crypto/subtle"
	"net/http"

	"github.com/geocity-dev/geocity/internal/logging"
)

// CronSecretHeader authenticates external schedulers calling the
// maintenance endpoints.
const CronSecretHeader = "X-Cron-Secret"

// requireCronSecret guards maintenance endpoints. Requests fail closed
// when no secret is configured.
func (h *Handler) requireCronSecret(rw *ResponseWriter, r *http.Request) bool {
	secret := h.cfg.Cron.Secret
	if secret == "" {
		rw.Forbidden("maintenance endpoints are not configured")
		return false
	}

	provided := r.Header.Get(CronSecretHeader)
	if subtle.ConstantTimeCompare([]byte(provided), []byte(secret)) != 1 {
		logging.Ctx(r.Context()).Warn().Msg("maintenance request with bad cron secret")
		rw.Forbidden("invalid cron secret")
		return false
	}
	return true
}

// CronPrune expires open reports past their window. Idempotent; safe to
// call on any schedule.
func (h *Handler) CronPrune(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	if !h.requireCronSecret(rw, r) {
		return
	}

	pruned, err := h.reports.PruneExpired(r.Context())
	if err != nil {
		rw.InternalError(err)
		return
	}

	rw.Success(map[string]int{"pruned": pruned})
}

// CronGC runs one Badger value-log GC cycle.
func (h *Handler) CronGC(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	if !h.requireCronSecret(rw, r) {
		return
	}

	reclaimed := h.store.RunGCOnce()
	rw.Success(map[string]bool{"reclaimed": reclaimed})
}
