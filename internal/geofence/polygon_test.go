// Streetcast - Fleet Display Advertising Dispatch
// Copyright 2026 Streetcast Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/streetcast/streetcast

package geofence

import (
	"testing"

	"github.com/streetcast/streetcast/internal/models"
)

func square(minLon, minLat, maxLon, maxLat float64) models.Polygon {
	return models.Polygon{
		{Longitude: minLon, Latitude: minLat},
		{Longitude: maxLon, Latitude: minLat},
		{Longitude: maxLon, Latitude: maxLat},
		{Longitude: minLon, Latitude: maxLat},
		{Longitude: minLon, Latitude: minLat},
	}
}

func TestContainsInterior(t *testing.T) {
	ring := square(121.55, 25.02, 121.58, 25.05)

	if !Contains(ring, models.Point{Longitude: 121.567, Latitude: 25.035}) {
		t.Error("interior point must be inside")
	}
	if Contains(ring, models.Point{Longitude: 121.50, Latitude: 25.035}) {
		t.Error("point west of ring must be outside")
	}
	if Contains(ring, models.Point{Longitude: 121.567, Latitude: 25.10}) {
		t.Error("point north of ring must be outside")
	}
}

func TestContainsBoundary(t *testing.T) {
	ring := square(0, 0, 10, 10)

	boundary := []models.Point{
		{Longitude: 0, Latitude: 5},   // west edge
		{Longitude: 10, Latitude: 5},  // east edge
		{Longitude: 5, Latitude: 0},   // south edge
		{Longitude: 5, Latitude: 10},  // north edge
		{Longitude: 0, Latitude: 0},   // vertex
		{Longitude: 10, Latitude: 10}, // vertex
	}
	for _, p := range boundary {
		if !Contains(ring, p) {
			t.Errorf("boundary point %+v must count as inside", p)
		}
	}
}

func TestContainsOpenRing(t *testing.T) {
	// Same square without the repeated closing vertex.
	ring := square(0, 0, 10, 10)[:4]

	if !Contains(ring, models.Point{Longitude: 5, Latitude: 5}) {
		t.Error("open ring must be treated as closed")
	}
	if Contains(ring, models.Point{Longitude: 15, Latitude: 5}) {
		t.Error("point outside open ring classified as inside")
	}
}

func TestContainsTranslationInvariance(t *testing.T) {
	ring := models.Polygon{
		{Longitude: 0, Latitude: 0},
		{Longitude: 4, Latitude: 1},
		{Longitude: 3, Latitude: 5},
		{Longitude: -1, Latitude: 3},
		{Longitude: 0, Latitude: 0},
	}
	points := []models.Point{
		{Longitude: 2, Latitude: 2},
		{Longitude: 5, Latitude: 5},
		{Longitude: -0.5, Latitude: 1},
		{Longitude: 1, Latitude: 4},
	}
	offsets := []models.Point{
		{Longitude: 100, Latitude: 20},
		{Longitude: -50, Latitude: -10},
		{Longitude: 0.25, Latitude: 0.75},
	}

	for _, off := range offsets {
		shifted := make(models.Polygon, len(ring))
		for i, v := range ring {
			shifted[i] = models.Point{
				Longitude: v.Longitude + off.Longitude,
				Latitude:  v.Latitude + off.Latitude,
			}
		}
		for _, p := range points {
			sp := models.Point{
				Longitude: p.Longitude + off.Longitude,
				Latitude:  p.Latitude + off.Latitude,
			}
			if Contains(ring, p) != Contains(shifted, sp) {
				t.Errorf("classification of %+v changed under translation %+v", p, off)
			}
		}
	}
}

func TestContainsDegenerateRing(t *testing.T) {
	if Contains(models.Polygon{{Longitude: 1, Latitude: 1}}, models.Point{Longitude: 1, Latitude: 1}) {
		t.Error("single-vertex ring contains nothing")
	}
	two := models.Polygon{{Longitude: 0, Latitude: 0}, {Longitude: 1, Latitude: 1}}
	if Contains(two, models.Point{Longitude: 0.5, Latitude: 0.5}) {
		t.Error("two-vertex ring contains nothing")
	}
}

func TestContainsConcavePolygon(t *testing.T) {
	// L-shape: notch cut from the top right.
	ring := models.Polygon{
		{Longitude: 0, Latitude: 0},
		{Longitude: 10, Latitude: 0},
		{Longitude: 10, Latitude: 5},
		{Longitude: 5, Latitude: 5},
		{Longitude: 5, Latitude: 10},
		{Longitude: 0, Latitude: 10},
		{Longitude: 0, Latitude: 0},
	}

	if !Contains(ring, models.Point{Longitude: 2, Latitude: 8}) {
		t.Error("point in upper-left arm must be inside")
	}
	if Contains(ring, models.Point{Longitude: 8, Latitude: 8}) {
		t.Error("point in the notch must be outside")
	}
	if !Contains(ring, models.Point{Longitude: 8, Latitude: 2}) {
		t.Error("point in lower-right arm must be inside")
	}
}
