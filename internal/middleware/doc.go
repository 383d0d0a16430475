// GeoCity - Citizen Incident Reporting and Live City Map
// Copyright 2026 GeoCity contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/geocity-dev/geocity

// Package middleware provides HTTP middleware shared across route
// groups: request ID propagation and Prometheus instrumentation.
// Rate limiting, CORS, and compression come from the Chi ecosystem and
// are wired in the api package.
package middleware
