// Streetcast - Fleet Display Advertising Dispatch
// Copyright 2026 Streetcast Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/streetcast/streetcast

// Package geofence implements point-in-polygon containment over campaign
// geo-fence rings and the index that answers "which campaigns cover this
// point for these device groups".
//
// Rings are plain ordered coordinate sequences; no geometry engine is
// involved. Antimeridian-crossing rings are not supported.
package geofence

import (
	"math"

	"github.com/streetcast/streetcast/internal/models"
)

// onSegmentEpsilon bounds the cross-product test for a point lying on a
// ring edge. Coordinates are degrees, so this is far below GPS precision.
const onSegmentEpsilon = 1e-9

// Contains reports whether p lies inside the closed ring, using a crossing
// number test. Points on the ring boundary count as inside. Rings with
// fewer than 3 vertices contain nothing.
func Contains(ring models.Polygon, p models.Point) bool {
	n := len(ring)
	if n >= 2 && ring[0] == ring[n-1] {
		// Drop an explicit closing vertex; the loop below closes the ring.
		ring = ring[:n-1]
		n--
	}
	if n < 3 {
		return false
	}

	inside := false
	j := n - 1
	for i := 0; i < n; i++ {
		a, b := ring[j], ring[i]
		if onSegment(a, b, p) {
			return true
		}
		if (b.Latitude > p.Latitude) != (a.Latitude > p.Latitude) {
			crossLon := a.Longitude +
				(p.Latitude-a.Latitude)*(b.Longitude-a.Longitude)/(b.Latitude-a.Latitude)
			if p.Longitude < crossLon {
				inside = !inside
			}
		}
		j = i
	}
	return inside
}

// onSegment reports whether p lies on the segment from a to b.
func onSegment(a, b, p models.Point) bool {
	cross := (b.Longitude-a.Longitude)*(p.Latitude-a.Latitude) -
		(b.Latitude-a.Latitude)*(p.Longitude-a.Longitude)
	if math.Abs(cross) > onSegmentEpsilon {
		return false
	}
	return p.Longitude >= math.Min(a.Longitude, b.Longitude)-onSegmentEpsilon &&
		p.Longitude <= math.Max(a.Longitude, b.Longitude)+onSegmentEpsilon &&
		p.Latitude >= math.Min(a.Latitude, b.Latitude)-onSegmentEpsilon &&
		p.Latitude <= math.Max(a.Latitude, b.Latitude)+onSegmentEpsilon
}
