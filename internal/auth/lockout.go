// GeoCity - Citizen Incident Reporting and Live City Map
// Copyright 2026 GeoCity contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/geocity-dev/geocity

package auth

import (
	"errors"
	"sync"
	"time"
)

// ErrAccountLocked is returned when an account has too many recent
// failed login attempts.
var ErrAccountLocked = errors.New("account temporarily locked")

// lockoutEntry tracks failed attempts for a single account.
type lockoutEntry struct {
	failures    int
	lockedUntil time.Time
	lastFailure time.Time
}

// LockoutTracker blocks login attempts after repeated failures.
// Each failure past the threshold doubles the lock window. State is
// in-memory; a restart clears it, which is acceptable for a
// rate-limiting defense rather than an audit mechanism.
type LockoutTracker struct {
	mu        sync.Mutex
	entries   map[string]*lockoutEntry
	threshold int
	window    time.Duration

	// now is replaceable in tests.
	now func() time.Time
}

// NewLockoutTracker creates a tracker. A threshold of 0 disables locking.
func NewLockoutTracker(threshold int, window time.Duration) *LockoutTracker {
	return &LockoutTracker{
		entries:   make(map[string]*lockoutEntry),
		threshold: threshold,
		window:    window,
		now:       time.Now,
	}
}

// Check returns ErrAccountLocked if the account is currently locked.
func (t *LockoutTracker) Check(email string) error {
	if t.threshold <= 0 {
		return nil
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	entry, ok := t.entries[email]
	if !ok {
		return nil
	}
	if t.now().Before(entry.lockedUntil) {
		return ErrAccountLocked
	}
	return nil
}

// RecordFailure registers a failed login. Once failures reach the
// threshold the account locks for the window, doubling on each further
// failure. Stale entries older than the window reset first.
func (t *LockoutTracker) RecordFailure(email string) {
	if t.threshold <= 0 {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	entry, ok := t.entries[email]
	if !ok || now.Sub(entry.lastFailure) > t.window {
		entry = &lockoutEntry{}
		t.entries[email] = entry
	}

	entry.failures++
	entry.lastFailure = now

	if entry.failures >= t.threshold {
		// Exponential backoff: window * 2^(failures - threshold)
		excess := entry.failures - t.threshold
		if excess > 6 {
			excess = 6
		}
		entry.lockedUntil = now.Add(t.window << excess)
	}
}

// RecordSuccess clears failure state after a successful login.
func (t *LockoutTracker) RecordSuccess(email string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.entries, email)
}

// Failures returns the current failure count for an account.
func (t *LockoutTracker) Failures(email string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	if entry, ok := t.entries[email]; ok {
		return entry.failures
	}
	return 0
}
