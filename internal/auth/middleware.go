// GeoCity - Citizen Incident Reporting and Live City Map
// Copyright 2026 GeoCity contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/geocity-dev/geocity

package auth

import (
	"context"
	"net/http"
	"strings"
)

// SessionCookieName is the cookie carrying the session token for
// browser clients. API clients use the Authorization header instead.
const SessionCookieName = "geocity_session"

type claimsContextKey struct{}

// ClaimsFromContext returns the authenticated claims, if any.
func ClaimsFromContext(ctx context.Context) (*Claims, bool) {
	claims, ok := ctx.Value(claimsContextKey{}).(*Claims)
	return claims, ok
}

// ContextWithClaims stores claims in the context. Exported for handler
// tests that need an authenticated request.
func ContextWithClaims(ctx context.Context, claims *Claims) context.Context {
	return context.WithValue(ctx, claimsContextKey{}, claims)
}

// ExtractToken pulls the session token from the Authorization header
// (Bearer scheme) or the session cookie. Returns "" when absent.
func ExtractToken(r *http.Request) string {
	if header := r.Header.Get("Authorization"); header != "" {
		if token, ok := strings.CutPrefix(header, "Bearer "); ok {
			return strings.TrimSpace(token)
		}
	}
	if cookie, err := r.Cookie(SessionCookieName); err == nil {
		return cookie.Value
	}
	return ""
}

// Middleware validates the session token when present and stores the
// claims in the request context. Requests without a token pass through
// unauthenticated; RequireAuth gates protected routes.
func (s *Service) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := ExtractToken(r)
		if token != "" {
			if claims, err := s.jwt.ValidateToken(token); err == nil {
				r = r.WithContext(ContextWithClaims(r.Context(), claims))
			}
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAuth rejects requests that carry no valid claims. The handler
// chain must include Middleware first.
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := ClaimsFromContext(r.Context()); !ok {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"status":"error","error":{"code":"AUTHENTICATION_ERROR","message":"Authentication required"}}`))
			return
		}
		next.ServeHTTP(w, r)
	})
}
