// GeoCity - Citizen Incident Reporting and Live City Map
// Copyright 2026 GeoCity contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/geocity-dev/geocity

package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/goccy/go-json"

	"github.com/geocity-dev/geocity/internal/auth"
	"github.com/geocity-dev/geocity/internal/logging"
	"github.com/geocity-dev/geocity/internal/models"
	"github.com/geocity-dev/geocity/internal/store"
	"github.com/geocity-dev/geocity/internal/validation"
)

type updateProfileRequest struct {
	DisplayName *string `json:"display_name" validate:"omitempty,max=100"`
	AvatarURL   *string `json:"avatar_url" validate:"omitempty,url,max=2048"`
	Email       *string `json:"email" validate:"omitempty,email,max=254"`
	Password    *string `json:"password" validate:"omitempty,min=8,max=72"`
}

// GetProfile returns the authenticated user's profile.
func (h *Handler) GetProfile(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	user, ok := h.currentUser(r.Context())
	if !ok {
		rw.Unauthorized("authentication required")
		return
	}
	rw.Success(user.ToProfile())
}

// UpdateProfile applies partial updates to the authenticated user.
// Password changes are rejected for Google accounts, which have no
// local credential.
func (h *Handler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	user, ok := h.currentUser(r.Context())
	if !ok {
		rw.Unauthorized("authentication required")
		return
	}

	var req updateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		rw.BadRequest("invalid JSON body")
		return
	}
	if verr := validation.ValidateStruct(&req); verr != nil {
		rw.ErrorWithDetails(http.StatusBadRequest, ErrCodeValidation, verr.Error(), validationDetails(verr))
		return
	}

	if req.DisplayName != nil {
		user.DisplayName = *req.DisplayName
	}
	if req.AvatarURL != nil {
		user.AvatarURL = *req.AvatarURL
	}
	if req.Email != nil {
		user.Email = *req.Email
	}
	if req.Password != nil {
		if user.Provider != models.ProviderLocal {
			rw.BadRequest("password cannot be set on a google account")
			return
		}
		hash, err := auth.HashPassword(*req.Password)
		if err != nil {
			rw.BadRequest(err.Error())
			return
		}
		user.PasswordHash = hash
	}
	user.UpdatedAt = time.Now().UTC()

	if err := h.store.UpdateUser(r.Context(), user); err != nil {
		if errors.Is(err, store.ErrDuplicateEmail) {
			rw.Conflict("email already registered")
			return
		}
		rw.InternalError(err)
		return
	}

	rw.Success(user.ToProfile())
}

// DeleteProfile removes the authenticated user's account and their
// reports.
func (h *Handler) DeleteProfile(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	user, ok := h.currentUser(r.Context())
	if !ok {
		rw.Unauthorized("authentication required")
		return
	}

	owned, err := h.store.ListReports(r.Context(), models.ReportFilter{AuthorID: user.ID})
	if err != nil {
		rw.InternalError(err)
		return
	}
	for _, report := range owned {
		if err := h.reports.Delete(r.Context(), user, report.ID); err != nil {
			logging.CtxErr(r.Context(), err).Str("report_id", report.ID).Msg("failed to delete report during account removal")
		}
	}

	if err := h.store.DeleteUser(r.Context(), user.ID); err != nil {
		rw.InternalError(err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     auth.SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   h.cfg.Server.IsProduction(),
	})
	rw.NoContent()
}
