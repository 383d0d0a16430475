// GeoCity - Citizen Incident Reporting and Live City Map
// Copyright 2026 GeoCity contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/geocity-dev/geocity

// Package authz provides role-based authorization using Casbin.
//
// The model and policy are embedded: roles citizen, moderator and admin
// form a hierarchy (admin > moderator > citizen). Objects are logical
// resources ("reports", "users", "maintenance") rather than URL paths.
package authz

import (
	_ "embed"
	"fmt"
	"strings"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"

	"github.com/geocity-dev/geocity/internal/models"
)

//go:embed model.conf
var embeddedModel string

//go:embed policy.csv
var embeddedPolicy string

// Actions used throughout the API.
const (
	ActionSubmit  = "submit"
	ActionRead    = "read"
	ActionResolve = "resolve"
	ActionDelete  = "delete"
	ActionList    = "list"
	ActionUpdate  = "update"
	ActionRun     = "run"
)

// Objects used throughout the API.
const (
	ObjectReports     = "reports"
	ObjectUsers       = "users"
	ObjectMaintenance = "maintenance"
)

// Enforcer wraps a Casbin SyncedEnforcer over the embedded model and
// policy.
type Enforcer struct {
	enforcer *casbin.SyncedEnforcer
}

// NewEnforcer creates the authorization enforcer from the embedded
// model and policy.
func NewEnforcer() (*Enforcer, error) {
	m, err := model.NewModelFromString(embeddedModel)
	if err != nil {
		return nil, fmt.Errorf("failed to load casbin model: %w", err)
	}

	enforcer, err := casbin.NewSyncedEnforcer(m)
	if err != nil {
		return nil, fmt.Errorf("failed to create casbin enforcer: %w", err)
	}
	if err := loadEmbeddedPolicy(enforcer, embeddedPolicy); err != nil {
		return nil, err
	}

	return &Enforcer{enforcer: enforcer}, nil
}

// loadEmbeddedPolicy parses and loads the embedded policy CSV.
func loadEmbeddedPolicy(enforcer *casbin.SyncedEnforcer, policy string) error {
	for _, line := range strings.Split(policy, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.Split(line, ",")
		if len(parts) < 2 {
			continue
		}
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}

		ptype := parts[0]
		rule := parts[1:]

		switch ptype {
		case "p":
			if len(rule) >= 3 {
				if _, err := enforcer.AddPolicy(rule[0], rule[1], rule[2]); err != nil {
					return fmt.Errorf("failed to add policy %v: %w", rule, err)
				}
			}
		case "g":
			if len(rule) >= 2 {
				if _, err := enforcer.AddGroupingPolicy(rule[0], rule[1]); err != nil {
					return fmt.Errorf("failed to add grouping policy %v: %w", rule, err)
				}
			}
		}
	}
	return nil
}

// Enforce checks whether the role can perform the action on the object.
func (e *Enforcer) Enforce(role, object, action string) (bool, error) {
	allowed, err := e.enforcer.Enforce(role, object, action)
	if err != nil {
		return false, fmt.Errorf("enforcement failed: %w", err)
	}
	return allowed, nil
}

// CanModifyReport reports whether a user may resolve or delete a
// report. Moderators and admins may act on any report; citizens only on
// their own.
func (e *Enforcer) CanModifyReport(role, userID, authorID, action string) (bool, error) {
	if allowed, err := e.Enforce(role, "reports:*", action); err != nil {
		return false, err
	} else if allowed {
		return true, nil
	}
	if userID != "" && userID == authorID {
		return e.Enforce(role, "reports:own", action)
	}
	return false, nil
}

// IsAdmin reports whether the role carries admin privileges.
func (e *Enforcer) IsAdmin(role string) bool {
	allowed, err := e.Enforce(role, ObjectUsers, ActionList)
	return err == nil && allowed
}

// ValidRole reports whether a role name is known.
func ValidRole(role string) bool {
	switch role {
	case models.RoleCitizen, models.RoleModerator, models.RoleAdmin:
		return true
	}
	return false
}
