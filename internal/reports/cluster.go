// GeoCity - Citizen Incident Reporting and Live City Map
// Copyright 2026 GeoCity contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/geocity-dev/geocity

package reports

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/geocity-dev/geocity/internal/cache"
	"github.com/geocity-dev/geocity/internal/classify"
	"github.com/geocity-dev/geocity/internal/models"
)

const earthRadiusMeters = 6371000

// haversineMeters returns the great-circle distance between two
// coordinates in meters.
func haversineMeters(lat1, lng1, lat2, lng2 float64) float64 {
	phi1 := lat1 * math.Pi / 180
	phi2 := lat2 * math.Pi / 180
	dPhi := (lat2 - lat1) * math.Pi / 180
	dLambda := (lng2 - lng1) * math.Pi / 180

	a := math.Sin(dPhi/2)*math.Sin(dPhi/2) +
		math.Cos(phi1)*math.Cos(phi2)*math.Sin(dLambda/2)*math.Sin(dLambda/2)
	return earthRadiusMeters * 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}

// Clusters groups active reports within the configured radius into map
// markers. Results are cached briefly; any report write clears the
// cache. The second return reports whether the result came from cache.
func (s *Service) Clusters(ctx context.Context, filter models.ReportFilter) ([]*models.MarkerCluster, bool, error) {
	key := cacheKeyForClusters(filter)
	if cached, ok := s.cache.Get(key); ok {
		if clusters, ok := cached.([]*models.MarkerCluster); ok {
			return clusters, true, nil
		}
	}

	active, err := s.Active(ctx, filter)
	if err != nil {
		return nil, false, err
	}

	clusters := clusterReports(active, s.cfg.ClusterRadiusMeters)
	s.cache.Set(key, clusters)
	return clusters, false, nil
}

// cacheKeyForClusters hashes every filter field that changes the
// clustered result set, including the page limit. The bbox is rounded
// first so jittery viewports still share entries.
func cacheKeyForClusters(filter models.ReportFilter) string {
	return cache.GenerateKey("clusters", struct {
		Category string
		BBox     string
		Limit    int
	}{filter.Category, bboxKey(filter), filter.Limit})
}

func bboxKey(filter models.ReportFilter) string {
	if !filter.HasBBox {
		return "all"
	}
	// Coordinates rounded to two decimals so jittery viewports still
	// share cache entries.
	return fmt.Sprintf("%.2f,%.2f,%.2f,%.2f",
		filter.MinLat, filter.MaxLat, filter.MinLng, filter.MaxLng)
}

// clusterReports greedily assigns each report to the first cluster whose
// centroid is within radius meters, creating a new cluster otherwise.
// Reports arrive newest first; within a cluster the highest-priority
// member determines the marker's priority and icon.
func clusterReports(reports []*models.Report, radiusMeters float64) []*models.MarkerCluster {
	type working struct {
		cluster *models.MarkerCluster
		sumLat  float64
		sumLng  float64
		topRank int
	}

	var groups []*working

	for _, r := range reports {
		lat := r.Location.Latitude
		lng := r.Location.Longitude

		var target *working
		for _, g := range groups {
			if haversineMeters(g.cluster.Latitude, g.cluster.Longitude, lat, lng) <= radiusMeters {
				target = g
				break
			}
		}

		if target == nil {
			groups = append(groups, &working{
				cluster: &models.MarkerCluster{
					Latitude:  lat,
					Longitude: lng,
					Count:     1,
					Priority:  r.Priority,
					Icon:      r.Icon,
					ReportIDs: []string{r.ID},
				},
				sumLat:  lat,
				sumLng:  lng,
				topRank: classify.PriorityRank(r.Priority),
			})
			continue
		}

		target.sumLat += lat
		target.sumLng += lng
		target.cluster.Count++
		target.cluster.ReportIDs = append(target.cluster.ReportIDs, r.ID)
		target.cluster.Latitude = target.sumLat / float64(target.cluster.Count)
		target.cluster.Longitude = target.sumLng / float64(target.cluster.Count)

		if rank := classify.PriorityRank(r.Priority); rank > target.topRank {
			target.topRank = rank
			target.cluster.Priority = r.Priority
			target.cluster.Icon = r.Icon
		}
	}

	clusters := make([]*models.MarkerCluster, 0, len(groups))
	for _, g := range groups {
		clusters = append(clusters, g.cluster)
	}

	// Largest clusters first so dense areas render on top.
	sort.SliceStable(clusters, func(i, j int) bool {
		return clusters[i].Count > clusters[j].Count
	})

	return clusters
}
