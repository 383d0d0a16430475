// GeoCity - Citizen Incident Reporting and Live City Map
// Copyright 2026 GeoCity contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/geocity-dev/geocity

package models

import (
	"time"
)

// Auth providers.
const (
	ProviderLocal  = "local"
	ProviderGoogle = "google"
)

// Roles. Casbin policy references these names.
const (
	RoleCitizen   = "citizen"
	RoleModerator = "moderator"
	RoleAdmin     = "admin"
)

// User is a registered account. PasswordHash is empty for OAuth-only
// accounts and is never serialized.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Provider     string    `json:"provider"`
	DisplayName  string    `json:"display_name"`
	AvatarURL    string    `json:"avatar_url,omitempty"`
	Role         string    `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	LastLoginAt  time.Time `json:"last_login_at,omitempty"`
}

// Profile is the public view of a user returned by the profile API.
type Profile struct {
	ID          string    `json:"id"`
	Email       string    `json:"email"`
	Provider    string    `json:"provider"`
	DisplayName string    `json:"display_name"`
	AvatarURL   string    `json:"avatar_url,omitempty"`
	Role        string    `json:"role"`
	CreatedAt   time.Time `json:"created_at"`
}

// ToProfile strips credential fields for API responses.
func (u *User) ToProfile() Profile {
	return Profile{
		ID:          u.ID,
		Email:       u.Email,
		Provider:    u.Provider,
		DisplayName: u.DisplayName,
		AvatarURL:   u.AvatarURL,
		Role:        u.Role,
		CreatedAt:   u.CreatedAt,
	}
}
