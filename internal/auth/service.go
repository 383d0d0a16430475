// GeoCity - Citizen Incident Reporting and Live City Map
// Copyright 2026 GeoCity contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/geocity-dev/geocity

package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/geocity-dev/geocity/internal/config"
	"github.com/geocity-dev/geocity/internal/logging"
	"github.com/geocity-dev/geocity/internal/metrics"
	"github.com/geocity-dev/geocity/internal/models"
	"github.com/geocity-dev/geocity/internal/store"
)

// ErrEmailTaken is returned when registering an already-known email.
var ErrEmailTaken = errors.New("email already registered")

// Service orchestrates registration, login and Google sign-in against
// the user store.
type Service struct {
	store   *store.Store
	jwt     *JWTManager
	lockout *LockoutTracker
	google  *GoogleProvider // nil when Google sign-in is not configured
}

// NewService builds the auth service. The Google provider is optional.
func NewService(st *store.Store, cfg *config.SecurityConfig, google *GoogleProvider) (*Service, error) {
	jwtManager, err := NewJWTManager(cfg)
	if err != nil {
		return nil, err
	}

	return &Service{
		store:   st,
		jwt:     jwtManager,
		lockout: NewLockoutTracker(cfg.LockoutThreshold, cfg.LockoutWindow),
		google:  google,
	}, nil
}

// JWT exposes the token manager for middleware.
func (s *Service) JWT() *JWTManager {
	return s.jwt
}

// GoogleEnabled reports whether Google sign-in is available.
func (s *Service) GoogleEnabled() bool {
	return s.google != nil
}

// GoogleAuthURL starts the Google sign-in flow.
func (s *Service) GoogleAuthURL() (string, error) {
	if s.google == nil {
		return "", ErrOAuthDisabled
	}
	return s.google.AuthURL()
}

// Register creates a local account and returns the user with a session
// token. New accounts get the citizen role.
func (s *Service) Register(ctx context.Context, email, password, displayName string) (*models.User, string, error) {
	hash, err := HashPassword(password)
	if err != nil {
		return nil, "", err
	}

	now := time.Now().UTC()
	user := &models.User{
		ID:           uuid.New().String(),
		Email:        strings.ToLower(strings.TrimSpace(email)),
		PasswordHash: hash,
		Provider:     models.ProviderLocal,
		DisplayName:  displayName,
		Role:         models.RoleCitizen,
		CreatedAt:    now,
		UpdatedAt:    now,
		LastLoginAt:  now,
	}

	if err := s.store.CreateUser(ctx, user); err != nil {
		if errors.Is(err, store.ErrDuplicateEmail) {
			return nil, "", ErrEmailTaken
		}
		return nil, "", fmt.Errorf("create user: %w", err)
	}

	token, err := s.jwt.GenerateToken(user.ID, user.Email, user.Role)
	if err != nil {
		return nil, "", err
	}

	logging.Ctx(ctx).Info().
		Str("user_id", user.ID).
		Msg("User registered")

	return user, token, nil
}

// Login authenticates a local account and returns the user with a
// session token. Failed attempts count toward account lockout.
func (s *Service) Login(ctx context.Context, email, password string) (*models.User, string, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	if err := s.lockout.Check(email); err != nil {
		metrics.AuthLogins.WithLabelValues(models.ProviderLocal, "locked").Inc()
		return nil, "", err
	}

	user, err := s.store.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			// Burn a bcrypt comparison so unknown emails take as long
			// as wrong passwords.
			_ = VerifyPassword("$2a$12$C6UzMDM.H6dfI/f/IKcEeO7VVbzrGGJOGsrk0Jb7Ap0PKB8rsdW0u", password)
			s.lockout.RecordFailure(email)
			metrics.AuthLogins.WithLabelValues(models.ProviderLocal, "failure").Inc()
			return nil, "", ErrInvalidCredentials
		}
		return nil, "", fmt.Errorf("lookup user: %w", err)
	}

	if user.PasswordHash == "" {
		// OAuth-only account.
		s.lockout.RecordFailure(email)
		metrics.AuthLogins.WithLabelValues(models.ProviderLocal, "failure").Inc()
		return nil, "", ErrInvalidCredentials
	}

	if err := VerifyPassword(user.PasswordHash, password); err != nil {
		s.lockout.RecordFailure(email)
		metrics.AuthLogins.WithLabelValues(models.ProviderLocal, "failure").Inc()
		return nil, "", err
	}

	s.lockout.RecordSuccess(email)

	user.LastLoginAt = time.Now().UTC()
	if err := s.store.UpdateUser(ctx, user); err != nil {
		logging.CtxErr(ctx, err).Msg("Failed to record last login")
	}

	token, err := s.jwt.GenerateToken(user.ID, user.Email, user.Role)
	if err != nil {
		return nil, "", err
	}

	metrics.AuthLogins.WithLabelValues(models.ProviderLocal, "success").Inc()
	return user, token, nil
}

// LoginWithGoogle completes the OAuth callback: it validates state,
// exchanges the code, and maps the identity to a local user, creating
// the account on first login.
func (s *Service) LoginWithGoogle(ctx context.Context, code, state string) (*models.User, string, error) {
	if s.google == nil {
		return nil, "", ErrOAuthDisabled
	}

	identity, err := s.google.Exchange(ctx, code, state)
	if err != nil {
		metrics.AuthLogins.WithLabelValues(models.ProviderGoogle, "failure").Inc()
		return nil, "", err
	}

	now := time.Now().UTC()
	user, err := s.store.GetUserByEmail(ctx, identity.Email)
	switch {
	case errors.Is(err, store.ErrNotFound):
		user = &models.User{
			ID:          uuid.New().String(),
			Email:       strings.ToLower(identity.Email),
			Provider:    models.ProviderGoogle,
			DisplayName: identity.Name,
			AvatarURL:   identity.Picture,
			Role:        models.RoleCitizen,
			CreatedAt:   now,
			UpdatedAt:   now,
			LastLoginAt: now,
		}
		if err := s.store.CreateUser(ctx, user); err != nil {
			return nil, "", fmt.Errorf("create user: %w", err)
		}
		logging.Ctx(ctx).Info().
			Str("user_id", user.ID).
			Msg("User created via Google sign-in")
	case err != nil:
		return nil, "", fmt.Errorf("lookup user: %w", err)
	default:
		user.LastLoginAt = now
		if user.AvatarURL == "" {
			user.AvatarURL = identity.Picture
		}
		if err := s.store.UpdateUser(ctx, user); err != nil {
			logging.CtxErr(ctx, err).Msg("Failed to record last login")
		}
	}

	token, err := s.jwt.GenerateToken(user.ID, user.Email, user.Role)
	if err != nil {
		return nil, "", err
	}

	metrics.AuthLogins.WithLabelValues(models.ProviderGoogle, "success").Inc()
	return user, token, nil
}

// BootstrapAdmin creates the configured admin account if no account
// with that email exists yet. Called once at startup.
func (s *Service) BootstrapAdmin(ctx context.Context, cfg *config.SecurityConfig) error {
	if cfg.AdminEmail == "" || cfg.AdminPassword == "" {
		return nil
	}

	_, err := s.store.GetUserByEmail(ctx, cfg.AdminEmail)
	if err == nil {
		return nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("lookup admin account: %w", err)
	}

	hash, err := HashPassword(cfg.AdminPassword)
	if err != nil {
		return fmt.Errorf("hash admin password: %w", err)
	}

	now := time.Now().UTC()
	admin := &models.User{
		ID:           uuid.New().String(),
		Email:        strings.ToLower(strings.TrimSpace(cfg.AdminEmail)),
		PasswordHash: hash,
		Provider:     models.ProviderLocal,
		DisplayName:  "Administrator",
		Role:         models.RoleAdmin,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.store.CreateUser(ctx, admin); err != nil {
		return fmt.Errorf("create admin account: %w", err)
	}

	logging.Info().
		Str("user_id", admin.ID).
		Msg("Bootstrapped admin account")
	return nil
}
