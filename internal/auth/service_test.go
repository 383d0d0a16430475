// GeoCity - Citizen Incident Reporting and Live City Map
// Copyright 2026 GeoCity contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/geocity-dev/geocity

package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/geocity-dev/geocity/internal/config"
	"github.com/geocity-dev/geocity/internal/models"
	"github.com/geocity-dev/geocity/internal/store"
)

func newTestService(t *testing.T) (*Service, *store.Store) {
	t.Helper()

	st, err := store.Open(config.DatabaseConfig{Path: ""})
	if err != nil {
		t.Fatalf("store.Open() error = %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	svc, err := NewService(st, &config.SecurityConfig{
		JWTSecret:        "this_is_a_very_long_secret_key_with_32_plus_characters",
		SessionTimeout:   time.Hour,
		LockoutThreshold: 3,
		LockoutWindow:    15 * time.Minute,
	}, nil)
	if err != nil {
		t.Fatalf("NewService() error = %v", err)
	}
	return svc, st
}

func TestRegisterAndLogin(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	user, token, err := svc.Register(ctx, "Citizen@Example.com", "correct-horse-battery", "Cleo")
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if token == "" {
		t.Error("Register() returned empty token")
	}
	if user.Email != "citizen@example.com" {
		t.Errorf("Register() email = %q, want lowercased", user.Email)
	}
	if user.Role != models.RoleCitizen {
		t.Errorf("Register() role = %q, want %q", user.Role, models.RoleCitizen)
	}
	if user.Provider != models.ProviderLocal {
		t.Errorf("Register() provider = %q, want %q", user.Provider, models.ProviderLocal)
	}

	// Login exercises the persisted password hash, not the in-flight one.
	loggedIn, token, err := svc.Login(ctx, "citizen@example.com", "correct-horse-battery")
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if loggedIn.ID != user.ID {
		t.Errorf("Login() user ID = %q, want %q", loggedIn.ID, user.ID)
	}

	claims, err := svc.JWT().ValidateToken(token)
	if err != nil {
		t.Fatalf("ValidateToken() error = %v", err)
	}
	if claims.UserID() != user.ID {
		t.Errorf("claims.UserID() = %q, want %q", claims.UserID(), user.ID)
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	if _, _, err := svc.Register(ctx, "dup@example.com", "correct-horse-battery", ""); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	_, _, err := svc.Register(ctx, "DUP@example.com", "another-password-8", "")
	if !errors.Is(err, ErrEmailTaken) {
		t.Errorf("Register() duplicate = %v, want ErrEmailTaken", err)
	}
}

func TestLoginWrongPassword(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	if _, _, err := svc.Register(ctx, "citizen@example.com", "correct-horse-battery", ""); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	_, _, err := svc.Login(ctx, "citizen@example.com", "wrong-password-here")
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("Login() wrong password = %v, want ErrInvalidCredentials", err)
	}
}

func TestLoginUnknownEmail(t *testing.T) {
	svc, _ := newTestService(t)

	_, _, err := svc.Login(context.Background(), "nobody@example.com", "whatever-password")
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("Login() unknown email = %v, want ErrInvalidCredentials", err)
	}
}

func TestLoginLockoutAfterRepeatedFailures(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	if _, _, err := svc.Register(ctx, "citizen@example.com", "correct-horse-battery", ""); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	for i := 0; i < 3; i++ {
		_, _, err := svc.Login(ctx, "citizen@example.com", "wrong-password-here")
		if !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("Login() attempt %d = %v, want ErrInvalidCredentials", i+1, err)
		}
	}

	// Even the correct password is refused while locked.
	_, _, err := svc.Login(ctx, "citizen@example.com", "correct-horse-battery")
	if !errors.Is(err, ErrAccountLocked) {
		t.Errorf("Login() while locked = %v, want ErrAccountLocked", err)
	}
}

func TestBootstrapAdmin(t *testing.T) {
	svc, st := newTestService(t)
	ctx := context.Background()

	cfg := &config.SecurityConfig{
		AdminEmail:    "admin@example.com",
		AdminPassword: "admin-password-123",
	}
	if err := svc.BootstrapAdmin(ctx, cfg); err != nil {
		t.Fatalf("BootstrapAdmin() error = %v", err)
	}

	admin, err := st.GetUserByEmail(ctx, "admin@example.com")
	if err != nil {
		t.Fatalf("GetUserByEmail() error = %v", err)
	}
	if admin.Role != models.RoleAdmin {
		t.Errorf("admin role = %q, want %q", admin.Role, models.RoleAdmin)
	}

	// A second call is a no-op.
	if err := svc.BootstrapAdmin(ctx, cfg); err != nil {
		t.Fatalf("BootstrapAdmin() second call error = %v", err)
	}
	users, err := st.ListUsers(ctx)
	if err != nil {
		t.Fatalf("ListUsers() error = %v", err)
	}
	if len(users) != 1 {
		t.Errorf("ListUsers() = %d users, want 1", len(users))
	}

	// And lets the admin log in afterwards.
	if _, _, err := svc.Login(ctx, "admin@example.com", "admin-password-123"); err != nil {
		t.Errorf("Login() as bootstrapped admin error = %v", err)
	}
}

func TestBootstrapAdminDisabled(t *testing.T) {
	svc, st := newTestService(t)
	ctx := context.Background()

	if err := svc.BootstrapAdmin(ctx, &config.SecurityConfig{}); err != nil {
		t.Fatalf("BootstrapAdmin() error = %v", err)
	}
	users, err := st.ListUsers(ctx)
	if err != nil {
		t.Fatalf("ListUsers() error = %v", err)
	}
	if len(users) != 0 {
		t.Errorf("ListUsers() = %d users, want 0", len(users))
	}
}
