// GeoCity - Citizen Incident Reporting and Live City Map
// Copyright 2026 GeoCity contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/geocity-dev/geocity

// Package geocode wraps the Google Maps Geocoding API behind a circuit
// breaker. Vendor failures never block report submission: callers fall
// back to the submitted coordinates with an empty address.
package geocode

import (
	"context"
	"fmt"
	"strings"
	"time"

	"googlemaps.github.io/maps"

	"github.com/geocity-dev/geocity/internal/config"
	"github.com/geocity-dev/geocity/internal/metrics"
)

// Result is a geocoded position. Normalized is a lowercased
// "locality, country" key used to group nearby reports.
type Result struct {
	Latitude   float64
	Longitude  float64
	Address    string
	Normalized string
}

// Geocoder resolves addresses and coordinates. The reports service
// depends on this interface; tests substitute a stub.
type Geocoder interface {
	// Geocode resolves an address to coordinates.
	Geocode(ctx context.Context, address string) (*Result, error)
	// ReverseGeocode resolves coordinates to a formatted address.
	ReverseGeocode(ctx context.Context, lat, lng float64) (*Result, error)
}

// Client calls the Google Maps Geocoding API through a circuit breaker.
type Client struct {
	maps    *maps.Client
	breaker *breaker
	region  string
	timeout time.Duration
}

// NewClient creates a geocoding client. Returns an error when the API
// key is missing; callers should treat geocoding as disabled then.
func NewClient(cfg *config.GeocodeConfig) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("MAPS_API_KEY is required for geocoding")
	}

	mapsClient, err := maps.NewClient(maps.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, fmt.Errorf("create maps client: %w", err)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &Client{
		maps:    mapsClient,
		breaker: newBreaker("google-maps"),
		region:  cfg.Region,
		timeout: timeout,
	}, nil
}

// Geocode resolves an address to coordinates.
func (c *Client) Geocode(ctx context.Context, address string) (*Result, error) {
	start := time.Now()
	result, err := c.breaker.execute(func() (interface{}, error) {
		callCtx, cancel := context.WithTimeout(ctx, c.timeout)
		defer cancel()

		results, err := c.maps.Geocode(callCtx, &maps.GeocodingRequest{
			Address: address,
			Region:  c.region,
		})
		if err != nil {
			return nil, fmt.Errorf("geocode %q: %w", address, err)
		}
		if len(results) == 0 {
			return nil, fmt.Errorf("geocode %q: no results", address)
		}
		return resultFromGeocoding(&results[0]), nil
	})
	metrics.RecordVendorCall("maps", "geocode", time.Since(start), err)
	if err != nil {
		return nil, err
	}
	return result.(*Result), nil
}

// ReverseGeocode resolves coordinates to a formatted address and
// normalized locality key.
func (c *Client) ReverseGeocode(ctx context.Context, lat, lng float64) (*Result, error) {
	start := time.Now()
	result, err := c.breaker.execute(func() (interface{}, error) {
		callCtx, cancel := context.WithTimeout(ctx, c.timeout)
		defer cancel()

		results, err := c.maps.ReverseGeocode(callCtx, &maps.GeocodingRequest{
			LatLng: &maps.LatLng{Lat: lat, Lng: lng},
		})
		if err != nil {
			return nil, fmt.Errorf("reverse geocode (%f,%f): %w", lat, lng, err)
		}
		if len(results) == 0 {
			return nil, fmt.Errorf("reverse geocode (%f,%f): no results", lat, lng)
		}
		r := resultFromGeocoding(&results[0])
		// Keep the caller's coordinates; the vendor rounds them.
		r.Latitude = lat
		r.Longitude = lng
		return r, nil
	})
	metrics.RecordVendorCall("maps", "reverse_geocode", time.Since(start), err)
	if err != nil {
		return nil, err
	}
	return result.(*Result), nil
}

// resultFromGeocoding maps a vendor result to ours.
func resultFromGeocoding(g *maps.GeocodingResult) *Result {
	return &Result{
		Latitude:   g.Geometry.Location.Lat,
		Longitude:  g.Geometry.Location.Lng,
		Address:    g.FormattedAddress,
		Normalized: normalizedLocality(g.AddressComponents),
	}
}

// normalizedLocality builds the "locality, country" grouping key from
// address components. Empty when neither component is present.
func normalizedLocality(components []maps.AddressComponent) string {
	var locality, country string
	for _, comp := range components {
		for _, t := range comp.Types {
			switch t {
			case "locality":
				locality = comp.LongName
			case "country":
				country = comp.LongName
			}
		}
	}

	switch {
	case locality != "" && country != "":
		return strings.ToLower(locality + ", " + country)
	case locality != "":
		return strings.ToLower(locality)
	case country != "":
		return strings.ToLower(country)
	}
	return ""
}
