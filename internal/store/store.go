// GeoCity - Citizen Incident Reporting and Live City Map
// Copyright 2026 GeoCity contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/geocity-dev/geocity

// Package store implements the GeoCity document store on BadgerDB.
//
// Documents are JSON-encoded and bucketed by key prefix:
//
//	report:<id>           incident reports
//	user:<id>             user accounts
//	user_email:<email>    email -> user ID index
//
// All operations run inside Badger transactions. A value-log GC loop
// runs as a supervised service (see RunGC).
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/geocity-dev/geocity/internal/config"
	"github.com/geocity-dev/geocity/internal/logging"
)

// Key prefixes for BadgerDB buckets.
const (
	reportKeyPrefix    = "report:"
	userKeyPrefix      = "user:"
	userEmailKeyPrefix = "user_email:"
)

// Sentinel errors returned by store operations.
var (
	ErrNotFound       = errors.New("document not found")
	ErrDuplicateEmail = errors.New("email already registered")
)

// Store is a BadgerDB-backed document store for reports and users.
type Store struct {
	db         *badger.DB
	gcInterval time.Duration
}

// Open opens (or creates) the store at the configured path. An empty
// path opens an in-memory store, used by tests.
func Open(cfg config.DatabaseConfig) (*Store, error) {
	var opts badger.Options
	if cfg.Path == "" {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		opts = badger.DefaultOptions(cfg.Path)
	}
	opts.Logger = nil // Suppress BadgerDB logs

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger db: %w", err)
	}

	gcInterval := cfg.GCInterval
	if gcInterval <= 0 {
		gcInterval = 10 * time.Minute
	}

	logging.Info().
		Str("path", cfg.Path).
		Bool("in_memory", cfg.Path == "").
		Msg("Document store opened")

	return &Store{db: db, gcInterval: gcInterval}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// RunGC runs the Badger value-log GC loop until the context is
// canceled. Intended to run under the supervisor.
func (s *Store) RunGC(ctx context.Context) error {
	ticker := time.NewTicker(s.gcInterval)
	defer ticker.Stop()

	logging.Debug().
		Dur("interval", s.gcInterval).
		Msg("Badger GC loop started")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.RunGCOnce()
		}
	}
}

// RunGCOnce repeatedly rewrites value-log files until nothing is left
// to reclaim. Reports whether any file was rewritten. Also reachable
// on demand through the cron endpoint.
func (s *Store) RunGCOnce() bool {
	reclaimed := false
	for {
		err := s.db.RunValueLogGC(0.5)
		if errors.Is(err, badger.ErrNoRewrite) {
			return reclaimed
		}
		if err != nil {
			// In-memory mode has no value log; any other error is
			// worth surfacing.
			if !errors.Is(err, badger.ErrGCInMemoryMode) {
				logging.Warn().Err(err).Msg("Badger value-log GC failed")
			}
			return reclaimed
		}
		reclaimed = true
	}
}
