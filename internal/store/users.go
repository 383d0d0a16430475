// GeoCity - Citizen Incident Reporting and Live City Map
// Copyright 2026 GeoCity contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/geocity-dev/geocity

package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/geocity-dev/geocity/internal/metrics"
	"github.com/geocity-dev/geocity/internal/models"
)

// normalizeEmail lowercases and trims an email for index keys.
func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// storedUser is the persisted form of a user. The model excludes the
// password hash from JSON so it can never leak through an API response;
// the store has to carry it explicitly.
type storedUser struct {
	models.User
	PasswordHash string `json:"password_hash,omitempty"`
}

func marshalUser(user *models.User) ([]byte, error) {
	return json.Marshal(storedUser{User: *user, PasswordHash: user.PasswordHash})
}

func unmarshalUser(data []byte, user *models.User) error {
	var stored storedUser
	if err := json.Unmarshal(data, &stored); err != nil {
		return err
	}
	*user = stored.User
	user.PasswordHash = stored.PasswordHash
	return nil
}

// CreateUser stores a new user and its email index entry. Returns
// ErrDuplicateEmail when the email is already registered.
func (s *Store) CreateUser(ctx context.Context, user *models.User) error {
	start := time.Now()
	data, err := marshalUser(user)
	if err != nil {
		return fmt.Errorf("marshal user: %w", err)
	}

	email := normalizeEmail(user.Email)
	err = s.db.Update(func(txn *badger.Txn) error {
		emailKey := []byte(userEmailKeyPrefix + email)
		if _, err := txn.Get(emailKey); err == nil {
			return ErrDuplicateEmail
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("check email index: %w", err)
		}

		if err := txn.Set([]byte(userKeyPrefix+user.ID), data); err != nil {
			return fmt.Errorf("set user: %w", err)
		}
		if err := txn.Set(emailKey, []byte(user.ID)); err != nil {
			return fmt.Errorf("set email index: %w", err)
		}
		return nil
	})
	metrics.RecordStoreOperation("create", "user", time.Since(start), err)
	return err
}

// GetUser retrieves a user by ID.
func (s *Store) GetUser(ctx context.Context, id string) (*models.User, error) {
	var user models.User

	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(userKeyPrefix + id))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("get user: %w", err)
		}
		return item.Value(func(val []byte) error {
			return unmarshalUser(val, &user)
		})
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetUserByEmail retrieves a user via the email index.
func (s *Store) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var userID string

	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(userEmailKeyPrefix + normalizeEmail(email)))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("get email index: %w", err)
		}
		return item.Value(func(val []byte) error {
			userID = string(val)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return s.GetUser(ctx, userID)
}

// UpdateUser replaces an existing user. The email index is rewritten
// when the email changed. Returns ErrNotFound for unknown users and
// ErrDuplicateEmail when the new email belongs to another account.
func (s *Store) UpdateUser(ctx context.Context, user *models.User) error {
	existing, err := s.GetUser(ctx, user.ID)
	if err != nil {
		return err
	}

	data, err := marshalUser(user)
	if err != nil {
		return fmt.Errorf("marshal user: %w", err)
	}

	oldEmail := normalizeEmail(existing.Email)
	newEmail := normalizeEmail(user.Email)

	return s.db.Update(func(txn *badger.Txn) error {
		if oldEmail != newEmail {
			newKey := []byte(userEmailKeyPrefix + newEmail)
			if item, err := txn.Get(newKey); err == nil {
				var ownerID string
				if verr := item.Value(func(val []byte) error {
					ownerID = string(val)
					return nil
				}); verr != nil {
					return verr
				}
				if ownerID != user.ID {
					return ErrDuplicateEmail
				}
			} else if !errors.Is(err, badger.ErrKeyNotFound) {
				return fmt.Errorf("check email index: %w", err)
			}

			if err := txn.Delete([]byte(userEmailKeyPrefix + oldEmail)); err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
				return fmt.Errorf("delete old email index: %w", err)
			}
			if err := txn.Set(newKey, []byte(user.ID)); err != nil {
				return fmt.Errorf("set email index: %w", err)
			}
		}
		return txn.Set([]byte(userKeyPrefix+user.ID), data)
	})
}

// DeleteUser removes a user and its email index entry.
func (s *Store) DeleteUser(ctx context.Context, id string) error {
	user, err := s.GetUser(ctx, id)
	if err != nil {
		return err
	}

	return s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Delete([]byte(userKeyPrefix + id)); err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("delete user: %w", err)
		}
		emailKey := []byte(userEmailKeyPrefix + normalizeEmail(user.Email))
		if err := txn.Delete(emailKey); err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("delete email index: %w", err)
		}
		return nil
	})
}

// ListUsers returns all users ordered by creation time, newest first.
func (s *Store) ListUsers(ctx context.Context) ([]*models.User, error) {
	var users []*models.User

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = true
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(userKeyPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var user models.User
			err := it.Item().Value(func(val []byte) error {
				return unmarshalUser(val, &user)
			})
			if err != nil {
				return fmt.Errorf("unmarshal user: %w", err)
			}
			users = append(users, &user)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(users, func(i, j int) bool {
		return users[i].CreatedAt.After(users[j].CreatedAt)
	})
	return users, nil
}
