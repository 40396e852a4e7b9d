// Streetcast - Fleet Display Advertising Dispatch
// Copyright 2026 Streetcast Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/streetcast/streetcast

// Package decision selects the advertisement to show for a device at a
// point. Given the device's groups and the campaigns covering the point it
// picks the highest-priority campaign, breaking ties by lexicographically
// smallest campaign identifier so the choice is total and reproducible.
//
// Store reads go through a circuit breaker; while the store is down the
// engine degrades to "no match" rather than failing location updates.
package decision

import (
	"context"
	"errors"
	"sort"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/streetcast/streetcast/internal/geofence"
	"github.com/streetcast/streetcast/internal/logging"
	"github.com/streetcast/streetcast/internal/metrics"
	"github.com/streetcast/streetcast/internal/models"
	"github.com/streetcast/streetcast/internal/store"
)

// EntityReader is the narrow store surface the engine needs.
type EntityReader interface {
	FindDevice(ctx context.Context, id string) (*models.Device, error)
	FindAdvertisement(ctx context.Context, id string) (*models.Advertisement, error)
}

// CampaignIndex answers covering-campaign queries. Implemented by
// geofence.Index.
type CampaignIndex interface {
	CoveringCampaigns(ctx context.Context, p models.Point, groups []string) ([]*models.Campaign, error)
}

var _ CampaignIndex = (*geofence.Index)(nil)

// Engine is the advertisement decision engine. Decide is pure given its
// store reads and safe for concurrent use across devices.
type Engine struct {
	entities EntityReader
	index    CampaignIndex
	cb       *gobreaker.CircuitBreaker[*models.Advertisement]
}

// NewEngine creates a decision engine over the given store surfaces.
func NewEngine(entities EntityReader, index CampaignIndex) *Engine {
	cb := gobreaker.NewCircuitBreaker[*models.Advertisement](gobreaker.Settings{
		Name:        "entity-store",
		MaxRequests: 3,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.Requests >= 5 &&
				float64(counts.TotalFailures)/float64(counts.Requests) >= 0.6
		},
		// Absent entities are valid outcomes, not store failures.
		IsSuccessful: func(err error) bool {
			return err == nil ||
				errors.Is(err, store.ErrUnknownDevice) ||
				errors.Is(err, store.ErrUnknownAdvertisement)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Warn().
				Str("breaker", name).
				Str("from", stateString(from)).
				Str("to", stateString(to)).
				Msg("store breaker state change")
			metrics.StoreBreakerState.Set(stateFloat(to))
		},
	})
	return &Engine{entities: entities, index: index, cb: cb}
}

// Decide returns the advertisement to show for the device at p, or nil when
// no eligible campaign covers the point. Unknown devices return
// store.ErrUnknownDevice. Store outages degrade to (nil, nil).
func (e *Engine) Decide(ctx context.Context, deviceID string, p models.Point) (*models.Advertisement, error) {
	start := time.Now()
	defer func() {
		metrics.DecisionDuration.Observe(time.Since(start).Seconds())
	}()

	ad, err := e.cb.Execute(func() (*models.Advertisement, error) {
		return e.decide(ctx, deviceID, p)
	})
	if err != nil {
		if errors.Is(err, store.ErrUnknownDevice) {
			return nil, err
		}
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			logging.Warn().
				Str("device_id", deviceID).
				Msg("store breaker open, treating location update as no-match")
			return nil, nil
		}
		logging.Error().Err(err).
			Str("device_id", deviceID).
			Msg("decision failed, degrading to no-match")
		return nil, nil
	}
	return ad, nil
}

func (e *Engine) decide(ctx context.Context, deviceID string, p models.Point) (*models.Advertisement, error) {
	device, err := e.entities.FindDevice(ctx, deviceID)
	if err != nil {
		return nil, err
	}

	covering, err := e.index.CoveringCampaigns(ctx, p, device.Groups)
	if err != nil {
		return nil, err
	}
	if len(covering) == 0 {
		return nil, nil
	}

	// Highest priority wins; ties go to the smallest campaign identifier.
	sort.Slice(covering, func(i, j int) bool {
		if covering[i].Priority != covering[j].Priority {
			return covering[i].Priority > covering[j].Priority
		}
		return covering[i].ID < covering[j].ID
	})

	// Walk candidates until one resolves to an active advertisement.
	for _, c := range covering {
		ad, err := e.entities.FindAdvertisement(ctx, c.AdvertisementID)
		if errors.Is(err, store.ErrUnknownAdvertisement) {
			logging.Warn().
				Str("campaign_id", c.ID).
				Str("advertisement_id", c.AdvertisementID).
				Msg("campaign references missing advertisement")
			continue
		}
		if err != nil {
			return nil, err
		}
		if !ad.Active {
			continue
		}
		return ad, nil
	}
	return nil, nil
}

func stateString(s gobreaker.State) string {
	switch s {
	case gobreaker.StateClosed:
		return "closed"
	case gobreaker.StateHalfOpen:
		return "half-open"
	case gobreaker.StateOpen:
		return "open"
	default:
		return "unknown"
	}
}

func stateFloat(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}
