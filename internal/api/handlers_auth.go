// GeoCity - Citizen Incident Reporting and Live City Map
// Copyright 2026 GeoCity contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/geocity-dev/geocity

package api

import (
	"errors"
	"net/http"

	"github.com/goccy/go-json"

	"github.com/geocity-dev/geocity/internal/auth"
	"github.com/geocity-dev/geocity/internal/logging"
	"github.com/geocity-dev/geocity/internal/models"
	"github.com/geocity-dev/geocity/internal/validation"
)

type registerRequest struct {
	Email       string `json:"email" validate:"required,email,max=254"`
	Password    string `json:"password" validate:"required,min=8,max=72"`
	DisplayName string `json:"display_name" validate:"omitempty,max=100"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type sessionResponse struct {
	Token string         `json:"token"`
	User  models.Profile `json:"user"`
}

// Register creates a local account and starts a session.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		rw.BadRequest("invalid JSON body")
		return
	}
	if verr := validation.ValidateStruct(&req); verr != nil {
		rw.ErrorWithDetails(http.StatusBadRequest, ErrCodeValidation, verr.Error(), validationDetails(verr))
		return
	}

	user, token, err := h.auth.Register(r.Context(), req.Email, req.Password, req.DisplayName)
	if err != nil {
		if errors.Is(err, auth.ErrEmailTaken) {
			rw.Conflict("email already registered")
			return
		}
		rw.InternalError(err)
		return
	}

	h.setSessionCookie(w, token)
	rw.Created(sessionResponse{Token: token, User: user.ToProfile()})
}

// Login authenticates a local account and starts a session.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		rw.BadRequest("invalid JSON body")
		return
	}
	if verr := validation.ValidateStruct(&req); verr != nil {
		rw.ErrorWithDetails(http.StatusBadRequest, ErrCodeValidation, verr.Error(), validationDetails(verr))
		return
	}

	user, token, err := h.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrAccountLocked) {
			rw.Error(http.StatusTooManyRequests, ErrCodeRateLimited, "account temporarily locked")
			return
		}
		if errors.Is(err, auth.ErrInvalidCredentials) {
			rw.Unauthorized("invalid email or password")
			return
		}
		rw.InternalError(err)
		return
	}

	h.setSessionCookie(w, token)
	rw.Success(sessionResponse{Token: token, User: user.ToProfile()})
}

// Logout clears the session cookie. The JWT itself stays valid until
// expiry; there is no server-side revocation list.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	http.SetCookie(w, &http.Cookie{
		Name:     auth.SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   h.cfg.Server.IsProduction(),
	})
	rw.Success(map[string]string{"status": "logged_out"})
}

// GoogleStart redirects the browser to Google's consent screen.
func (h *Handler) GoogleStart(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	if !h.auth.GoogleEnabled() {
		rw.NotFound("google sign-in is not configured")
		return
	}

	url, err := h.auth.GoogleAuthURL()
	if err != nil {
		rw.InternalError(err)
		return
	}
	http.Redirect(w, r, url, http.StatusFound)
}

// GoogleCallback completes the OAuth code exchange and starts a session.
func (h *Handler) GoogleCallback(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	if !h.auth.GoogleEnabled() {
		rw.NotFound("google sign-in is not configured")
		return
	}

	code := r.URL.Query().Get("code")
	state := r.URL.Query().Get("state")
	if code == "" || state == "" {
		rw.BadRequest("missing code or state")
		return
	}

	user, token, err := h.auth.LoginWithGoogle(r.Context(), code, state)
	if err != nil {
		if errors.Is(err, auth.ErrOAuthStateInvalid) {
			rw.BadRequest("oauth state invalid or expired")
			return
		}
		logging.CtxErr(r.Context(), err).Msg("google login failed")
		rw.Unauthorized("google sign-in failed")
		return
	}

	h.setSessionCookie(w, token)

	logging.Ctx(r.Context()).Info().Str("user_id", user.ID).Msg("google login completed")
	http.Redirect(w, r, "/", http.StatusFound)
}

func (h *Handler) setSessionCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     auth.SessionCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(h.cfg.Security.SessionTimeout.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   h.cfg.Server.IsProduction(),
	})
}

// validationDetails flattens field errors for the response envelope.
func validationDetails(verr *validation.RequestValidationError) map[string]interface{} {
	details := make(map[string]interface{}, len(verr.Errors()))
	for _, fe := range verr.Errors() {
		details[fe.Field()] = fe.Error()
	}
	return details
}
