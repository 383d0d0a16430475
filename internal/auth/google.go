// GeoCity - Citizen Incident Reporting and Live City Map
// Copyright 2026 GeoCity contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/geocity-dev/geocity

package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/zitadel/oidc/v3/pkg/client/rp"
	"github.com/zitadel/oidc/v3/pkg/oidc"

	"github.com/geocity-dev/geocity/internal/config"
	"github.com/geocity-dev/geocity/internal/logging"
)

// State lifetime for the OAuth round trip. Logins slower than this
// must restart the flow.
const oauthStateTTL = 10 * time.Minute

// Errors returned by the Google sign-in flow.
var (
	ErrOAuthStateInvalid = errors.New("oauth state invalid or expired")
	ErrOAuthDisabled     = errors.New("google sign-in is not configured")
)

// GoogleIdentity is the subset of ID-token claims GeoCity maps to a
// local account.
type GoogleIdentity struct {
	Subject string
	Email   string
	Name    string
	Picture string
}

// GoogleProvider wraps an OIDC relying party against Google's issuer.
type GoogleProvider struct {
	rp     rp.RelyingParty
	states *stateStore
}

// NewGoogleProvider creates a relying party for Google sign-in.
// Returns ErrOAuthDisabled when no client ID is configured.
func NewGoogleProvider(ctx context.Context, cfg *config.GoogleOAuthConfig) (*GoogleProvider, error) {
	if !cfg.Enabled() {
		return nil, ErrOAuthDisabled
	}

	httpClient := &http.Client{Timeout: 30 * time.Second}
	relyingParty, err := rp.NewRelyingPartyOIDC(ctx,
		cfg.Issuer,
		cfg.ClientID,
		cfg.ClientSecret,
		cfg.RedirectURL,
		cfg.Scopes,
		rp.WithHTTPClient(httpClient),
	)
	if err != nil {
		return nil, fmt.Errorf("create relying party: %w", err)
	}

	logging.Info().
		Str("issuer", cfg.Issuer).
		Str("redirect_url", cfg.RedirectURL).
		Msg("Google sign-in configured")

	return &GoogleProvider{
		rp:     relyingParty,
		states: newStateStore(oauthStateTTL),
	}, nil
}

// AuthURL generates a fresh state token and returns the Google
// authorization URL to redirect the browser to.
func (p *GoogleProvider) AuthURL() (string, error) {
	state, err := generateState()
	if err != nil {
		return "", err
	}
	p.states.put(state)
	return rp.AuthURL(state, p.rp), nil
}

// Exchange validates the returned state and exchanges the authorization
// code for tokens, returning the verified identity claims.
func (p *GoogleProvider) Exchange(ctx context.Context, code, state string) (*GoogleIdentity, error) {
	if !p.states.consume(state) {
		return nil, ErrOAuthStateInvalid
	}

	tokens, err := rp.CodeExchange[*oidc.IDTokenClaims](ctx, code, p.rp)
	if err != nil {
		return nil, fmt.Errorf("code exchange: %w", err)
	}
	if tokens.IDTokenClaims == nil {
		return nil, fmt.Errorf("code exchange returned no ID token claims")
	}

	claims := tokens.IDTokenClaims
	if claims.Email == "" {
		return nil, fmt.Errorf("ID token is missing the email claim")
	}

	return &GoogleIdentity{
		Subject: claims.Subject,
		Email:   claims.Email,
		Name:    claims.Name,
		Picture: claims.Picture,
	}, nil
}

// generateState returns a URL-safe random state token.
func generateState() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate state: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// stateStore holds pending OAuth states with expiry. Single-use:
// consume removes the state whether or not it was valid.
type stateStore struct {
	mu     sync.Mutex
	states map[string]time.Time
	ttl    time.Duration
}

func newStateStore(ttl time.Duration) *stateStore {
	return &stateStore{
		states: make(map[string]time.Time),
		ttl:    ttl,
	}
}

func (s *stateStore) put(state string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	// Opportunistic cleanup of expired states.
	for k, expiry := range s.states {
		if now.After(expiry) {
			delete(s.states, k)
		}
	}
	s.states[state] = now.Add(s.ttl)
}

func (s *stateStore) consume(state string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	expiry, ok := s.states[state]
	if !ok {
		return false
	}
	delete(s.states, state)
	return time.Now().Before(expiry)
}
