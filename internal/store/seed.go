// Streetcast - Fleet Display Advertising Dispatch
// Copyright 2026 Streetcast Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/streetcast/streetcast

package store

import (
	"context"
	"fmt"
	"time"

	"github.com/streetcast/streetcast/internal/logging"
	"github.com/streetcast/streetcast/internal/models"
)

// SeedSampleData loads the bundled Taipei demo fleet: three taxis, four
// advertisements, and four geo-fenced campaigns around Xinyi, Taipei 101,
// Ximending, and a premium-fleet zone. Only runs when the store is empty.
func (s *Store) SeedSampleData(ctx context.Context) error {
	empty, err := s.Empty()
	if err != nil {
		return fmt.Errorf("check store empty: %w", err)
	}
	if !empty {
		logging.Debug().Msg("store not empty, skipping sample data")
		return nil
	}

	now := time.Now().UTC()

	devices := []*models.Device{
		{
			ID:           "taxi-AAB-1234-rooftop",
			Class:        "rooftop",
			Groups:       []string{"taipei-taxis", "all-rooftops"},
			LastLocation: &models.Point{Longitude: 121.5644, Latitude: 25.0340},
			CreatedAt:    now,
		},
		{
			ID:           "taxi-XYZ-5678-rooftop",
			Class:        "rooftop",
			Groups:       []string{"taipei-taxis", "all-rooftops"},
			LastLocation: &models.Point{Longitude: 121.570, Latitude: 25.030},
			CreatedAt:    now,
		},
		{
			ID:           "taxi-DEF-9999-rooftop",
			Class:        "rooftop",
			Groups:       []string{"taipei-taxis", "premium-fleet"},
			LastLocation: &models.Point{Longitude: 121.520, Latitude: 25.050},
			CreatedAt:    now,
		},
	}

	ads := []*models.Advertisement{
		{
			ID:            "adv-001",
			Name:          "Ximending Cinema Feature",
			VideoFilename: "movie_ad_15s.mp4",
			FileSize:      15 << 20,
			Duration:      15 * time.Second,
			Priority:      5,
			Active:        true,
		},
		{
			ID:            "adv-002",
			Name:          "Xinyi District Shopping Promo",
			VideoFilename: "shopping_promo_20s.mp4",
			FileSize:      20 << 20,
			Duration:      20 * time.Second,
			Priority:      5,
			Active:        true,
		},
		{
			ID:            "adv-003",
			Name:          "Taipei 101 Sightseeing",
			VideoFilename: "taipei101_tour_30s.mp4",
			FileSize:      30 << 20,
			Duration:      30 * time.Second,
			Priority:      5,
			Active:        true,
		},
		{
			ID:            "adv-004",
			Name:          "Restaurant Gourmet Spot",
			VideoFilename: "restaurant_ad_25s.mp4",
			FileSize:      25 << 20,
			Duration:      25 * time.Second,
			Priority:      5,
			Active:        true,
		},
	}

	campaigns := []*models.Campaign{
		{
			ID:              "campaign-001",
			Name:            "Xinyi Evening Promotion",
			AdvertisementID: "adv-001",
			Priority:        10,
			TargetGroups:    []string{"taipei-taxis"},
			Active:          true,
			GeoFence: models.Polygon{
				{Longitude: 121.56, Latitude: 25.04},
				{Longitude: 121.58, Latitude: 25.04},
				{Longitude: 121.58, Latitude: 25.02},
				{Longitude: 121.56, Latitude: 25.02},
				{Longitude: 121.56, Latitude: 25.04},
			},
		},
		{
			ID:              "campaign-002",
			Name:            "Taipei 101 Zone",
			AdvertisementID: "adv-003",
			Priority:        15,
			TargetGroups:    []string{"taipei-taxis", "all-rooftops"},
			Active:          true,
			GeoFence: models.Polygon{
				{Longitude: 121.560, Latitude: 25.030},
				{Longitude: 121.570, Latitude: 25.030},
				{Longitude: 121.570, Latitude: 25.037},
				{Longitude: 121.560, Latitude: 25.037},
				{Longitude: 121.560, Latitude: 25.030},
			},
		},
		{
			ID:              "campaign-003",
			Name:            "Ximending Area Promotion",
			AdvertisementID: "adv-002",
			Priority:        8,
			TargetGroups:    []string{"taipei-taxis"},
			Active:          true,
			GeoFence: models.Polygon{
				{Longitude: 121.500, Latitude: 25.040},
				{Longitude: 121.510, Latitude: 25.040},
				{Longitude: 121.510, Latitude: 25.048},
				{Longitude: 121.500, Latitude: 25.048},
				{Longitude: 121.500, Latitude: 25.040},
			},
		},
		{
			ID:              "campaign-004",
			Name:            "Premium Fleet Exclusive",
			AdvertisementID: "adv-004",
			Priority:        20,
			TargetGroups:    []string{"premium-fleet"},
			Active:          true,
			GeoFence: models.Polygon{
				{Longitude: 121.515, Latitude: 25.045},
				{Longitude: 121.525, Latitude: 25.045},
				{Longitude: 121.525, Latitude: 25.055},
				{Longitude: 121.515, Latitude: 25.055},
				{Longitude: 121.515, Latitude: 25.045},
			},
		},
	}

	for _, d := range devices {
		if err := s.PutDevice(ctx, d); err != nil {
			return fmt.Errorf("seed device %s: %w", d.ID, err)
		}
	}
	for _, a := range ads {
		if err := s.PutAdvertisement(ctx, a); err != nil {
			return fmt.Errorf("seed advertisement %s: %w", a.ID, err)
		}
	}
	for _, c := range campaigns {
		if err := s.PutCampaign(ctx, c); err != nil {
			return fmt.Errorf("seed campaign %s: %w", c.ID, err)
		}
	}

	logging.Info().
		Int("devices", len(devices)).
		Int("advertisements", len(ads)).
		Int("campaigns", len(campaigns)).
		Msg("sample data seeded")
	return nil
}
