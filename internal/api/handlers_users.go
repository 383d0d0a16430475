// GeoCity - Citizen Incident Reporting and Live City Map
// Copyright 2026 GeoCity contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/geocity-dev/geocity

package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"

	"github.com/geocity-dev/geocity/internal/authz"
	"github.com/geocity-dev/geocity/internal/models"
	"github.com/geocity-dev/geocity/internal/store"
)

type updateUserRequest struct {
	Role string `json:"role"`
}

// requireAdminAction checks the actor's role against the users object.
func (h *Handler) requireAdminAction(rw *ResponseWriter, r *http.Request, action string) (*models.User, bool) {
	user, ok := h.currentUser(r.Context())
	if !ok {
		rw.Unauthorized("authentication required")
		return nil, false
	}

	allowed, err := h.enforcer.Enforce(user.Role, authz.ObjectUsers, action)
	if err != nil {
		rw.InternalError(err)
		return nil, false
	}
	if !allowed {
		rw.Forbidden("admin role required")
		return nil, false
	}
	return user, true
}

// ListUsers returns all accounts. Admin only.
func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	if _, ok := h.requireAdminAction(rw, r, authz.ActionList); !ok {
		return
	}

	users, err := h.store.ListUsers(r.Context())
	if err != nil {
		rw.InternalError(err)
		return
	}

	profiles := make([]models.Profile, 0, len(users))
	for _, u := range users {
		profiles = append(profiles, u.ToProfile())
	}

	rw.Success(map[string]interface{}{
		"total": len(profiles),
		"users": profiles,
	})
}

// UpdateUserRole changes an account's role. Admin only; admins cannot
// demote themselves, which keeps at least one admin around.
func (h *Handler) UpdateUserRole(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	actor, ok := h.requireAdminAction(rw, r, authz.ActionUpdate)
	if !ok {
		return
	}

	var req updateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		rw.BadRequest("invalid JSON body")
		return
	}
	if !authz.ValidRole(req.Role) {
		rw.BadRequest("role must be citizen, moderator, or admin")
		return
	}

	targetID := chi.URLParam(r, "id")
	if targetID == actor.ID && req.Role != models.RoleAdmin {
		rw.Conflict("admins cannot demote themselves")
		return
	}

	target, err := h.store.GetUser(r.Context(), targetID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			rw.NotFound("user not found")
			return
		}
		rw.InternalError(err)
		return
	}

	target.Role = req.Role
	target.UpdatedAt = time.Now().UTC()
	if err := h.store.UpdateUser(r.Context(), target); err != nil {
		rw.InternalError(err)
		return
	}

	rw.Success(target.ToProfile())
}

// DeleteUser removes an account. Admin only.
func (h *Handler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	actor, ok := h.requireAdminAction(rw, r, authz.ActionDelete)
	if !ok {
		return
	}

	targetID := chi.URLParam(r, "id")
	if targetID == actor.ID {
		rw.Conflict("admins cannot delete their own account")
		return
	}

	if _, err := h.store.GetUser(r.Context(), targetID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			rw.NotFound("user not found")
			return
		}
		rw.InternalError(err)
		return
	}

	if err := h.store.DeleteUser(r.Context(), targetID); err != nil {
		rw.InternalError(err)
		return
	}
	rw.NoContent()
}
