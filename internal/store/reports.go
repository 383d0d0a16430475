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
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/geocity-dev/geocity/internal/metrics"
	"github.com/geocity-dev/geocity/internal/models"
)

// CreateReport stores a new report.
func (s *Store) CreateReport(ctx context.Context, report *models.Report) error {
	start := time.Now()
	err := s.putReport(report)
	metrics.RecordStoreOperation("create", "report", time.Since(start), err)
	return err
}

// UpdateReport replaces an existing report. Returns ErrNotFound when the
// report does not exist.
func (s *Store) UpdateReport(ctx context.Context, report *models.Report) error {
	start := time.Now()
	err := s.db.Update(func(txn *badger.Txn) error {
		key := []byte(reportKeyPrefix + report.ID)
		if _, err := txn.Get(key); err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return ErrNotFound
			}
			return fmt.Errorf("get report: %w", err)
		}
		data, err := json.Marshal(report)
		if err != nil {
			return fmt.Errorf("marshal report: %w", err)
		}
		return txn.Set(key, data)
	})
	metrics.RecordStoreOperation("update", "report", time.Since(start), err)
	return err
}

func (s *Store) putReport(report *models.Report) error {
	data, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(reportKeyPrefix+report.ID), data)
	})
}

// GetReport retrieves a report by ID.
func (s *Store) GetReport(ctx context.Context, id string) (*models.Report, error) {
	var report models.Report

	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(reportKeyPrefix + id))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("get report: %w", err)
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &report)
		})
	})
	if err != nil {
		return nil, err
	}
	return &report, nil
}

// DeleteReport removes a report by ID. Deleting a missing report is a no-op.
func (s *Store) DeleteReport(ctx context.Context, id string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		err := txn.Delete([]byte(reportKeyPrefix + id))
		if err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("delete report: %w", err)
		}
		return nil
	})
}

// ListReports returns reports matching the filter, newest first.
// A zero or negative limit returns all matches.
func (s *Store) ListReports(ctx context.Context, filter models.ReportFilter) ([]*models.Report, error) {
	start := time.Now()
	var reports []*models.Report

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = true
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(reportKeyPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var report models.Report
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &report)
			})
			if err != nil {
				return fmt.Errorf("unmarshal report: %w", err)
			}
			if filter.Matches(&report) {
				reports = append(reports, &report)
			}
		}
		return nil
	})
	metrics.RecordStoreOperation("list", "report", time.Since(start), err)
	if err != nil {
		return nil, err
	}

	sortReportsByCreatedDesc(reports)
	if filter.Limit > 0 && len(reports) > filter.Limit {
		reports = reports[:filter.Limit]
	}
	return reports, nil
}

// DeleteExpired marks open reports whose expiry window has elapsed as
// expired, in batches of at most batchSize per transaction. Returns the
// expired reports so callers can publish events for them.
func (s *Store) DeleteExpired(ctx context.Context, now time.Time, batchSize int) ([]*models.Report, error) {
	if batchSize <= 0 {
		batchSize = 500
	}

	filter := models.ReportFilter{Status: models.StatusOpen}
	open, err := s.ListReports(ctx, filter)
	if err != nil {
		return nil, err
	}

	var expired []*models.Report
	for _, report := range open {
		if !now.Before(report.ExpiresAt) {
			expired = append(expired, report)
		}
	}

	for i := 0; i < len(expired); i += batchSize {
		end := i + batchSize
		if end > len(expired) {
			end = len(expired)
		}
		batch := expired[i:end]

		err := s.db.Update(func(txn *badger.Txn) error {
			for _, report := range batch {
				report.Status = models.StatusExpired
				report.UpdatedAt = now
				data, err := json.Marshal(report)
				if err != nil {
					return fmt.Errorf("marshal report: %w", err)
				}
				if err := txn.Set([]byte(reportKeyPrefix+report.ID), data); err != nil {
					return fmt.Errorf("set report: %w", err)
				}
			}
			return nil
		})
		if err != nil {
			return expired[:i], err
		}
	}

	return expired, nil
}

// sortReportsByCreatedDesc orders reports newest first.
func sortReportsByCreatedDesc(reports []*models.Report) {
	sort.Slice(reports, func(i, j int) bool {
		return reports[i].CreatedAt.After(reports[j].CreatedAt)
	})
}
