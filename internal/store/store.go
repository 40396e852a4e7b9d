// Streetcast - Fleet Display Advertising Dispatch
// Copyright 2026 Streetcast Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/streetcast/streetcast

// Package store persists Streetcast entities (devices, advertisements,
// campaigns) in BadgerDB. Entities are stored as JSON under typed key
// prefixes. The dispatch core only needs narrow reads; writes happen at
// provisioning time and on device location updates.
package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/streetcast/streetcast/internal/config"
	"github.com/streetcast/streetcast/internal/logging"
	"github.com/streetcast/streetcast/internal/models"
)

// Key prefixes for BadgerDB storage.
const (
	deviceKeyPrefix   = "device:"
	adKeyPrefix       = "ad:"
	campaignKeyPrefix = "campaign:"
)

// Sentinel errors for absent entities.
var (
	ErrUnknownDevice        = errors.New("unknown device")
	ErrUnknownAdvertisement = errors.New("unknown advertisement")
	ErrUnknownCampaign      = errors.New("unknown campaign")
)

// Store is the BadgerDB-backed entity store.
type Store struct {
	db *badger.DB
}

// Open opens (or creates) the store at the configured path. With
// cfg.InMemory set, Badger runs without disk persistence.
func Open(cfg config.StoreConfig) (*Store, error) {
	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		opts = badger.DefaultOptions(cfg.Path)
	}
	// Badger's own logger is noisy; all store logging goes through zerolog.
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open BadgerDB: %w", err)
	}

	logging.Info().
		Str("path", cfg.Path).
		Bool("in_memory", cfg.InMemory).
		Msg("entity store opened")
	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// RunGC runs Badger value-log garbage collection until ctx is cancelled.
// Intended to run as a supervised background service.
func (s *Store) RunGC(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			// Re-run while GC keeps finding work.
			for {
				if err := s.db.RunValueLogGC(0.5); err != nil {
					break
				}
			}
		}
	}
}

// FindDevice returns the device with the given identifier, or
// ErrUnknownDevice.
func (s *Store) FindDevice(_ context.Context, id string) (*models.Device, error) {
	var d models.Device
	err := s.get(deviceKeyPrefix+id, &d)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrUnknownDevice
	}
	if err != nil {
		return nil, fmt.Errorf("get device %s: %w", id, err)
	}
	return &d, nil
}

// PutDevice inserts or replaces a device record.
func (s *Store) PutDevice(_ context.Context, d *models.Device) error {
	return s.put(deviceKeyPrefix+d.ID, d)
}

// UpdateDeviceLocation records the device's last known location and
// last-seen timestamp. Returns ErrUnknownDevice for unprovisioned devices.
func (s *Store) UpdateDeviceLocation(ctx context.Context, id string, p models.Point, at time.Time) error {
	d, err := s.FindDevice(ctx, id)
	if err != nil {
		return err
	}
	d.LastLocation = &p
	d.LastSeenAt = &at
	return s.put(deviceKeyPrefix+id, d)
}

// ListDevices returns all provisioned devices ordered by identifier.
func (s *Store) ListDevices(_ context.Context) ([]*models.Device, error) {
	var devices []*models.Device
	err := s.scan(deviceKeyPrefix, func(val []byte) error {
		var d models.Device
		if err := json.Unmarshal(val, &d); err != nil {
			return err
		}
		devices = append(devices, &d)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list devices: %w", err)
	}
	sort.Slice(devices, func(i, j int) bool { return devices[i].ID < devices[j].ID })
	return devices, nil
}

// FindAdvertisement returns the advertisement with the given identifier, or
// ErrUnknownAdvertisement.
func (s *Store) FindAdvertisement(_ context.Context, id string) (*models.Advertisement, error) {
	var a models.Advertisement
	err := s.get(adKeyPrefix+id, &a)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrUnknownAdvertisement
	}
	if err != nil {
		return nil, fmt.Errorf("get advertisement %s: %w", id, err)
	}
	return &a, nil
}

// PutAdvertisement inserts or replaces an advertisement record.
func (s *Store) PutAdvertisement(_ context.Context, a *models.Advertisement) error {
	return s.put(adKeyPrefix+a.ID, a)
}

// ListAdvertisements returns all advertisements ordered by identifier.
func (s *Store) ListAdvertisements(_ context.Context) ([]*models.Advertisement, error) {
	var ads []*models.Advertisement
	err := s.scan(adKeyPrefix, func(val []byte) error {
		var a models.Advertisement
		if err := json.Unmarshal(val, &a); err != nil {
			return err
		}
		ads = append(ads, &a)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list advertisements: %w", err)
	}
	sort.Slice(ads, func(i, j int) bool { return ads[i].ID < ads[j].ID })
	return ads, nil
}

// FindCampaign returns the campaign with the given identifier, or
// ErrUnknownCampaign.
func (s *Store) FindCampaign(_ context.Context, id string) (*models.Campaign, error) {
	var c models.Campaign
	err := s.get(campaignKeyPrefix+id, &c)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrUnknownCampaign
	}
	if err != nil {
		return nil, fmt.Errorf("get campaign %s: %w", id, err)
	}
	return &c, nil
}

// PutCampaign inserts or replaces a campaign record.
func (s *Store) PutCampaign(_ context.Context, c *models.Campaign) error {
	return s.put(campaignKeyPrefix+c.ID, c)
}

// ListCampaigns returns all campaigns ordered by identifier. Satisfies
// geofence.CampaignSource; eligibility filtering happens in the index.
func (s *Store) ListCampaigns(_ context.Context) ([]*models.Campaign, error) {
	var campaigns []*models.Campaign
	err := s.scan(campaignKeyPrefix, func(val []byte) error {
		var c models.Campaign
		if err := json.Unmarshal(val, &c); err != nil {
			return err
		}
		campaigns = append(campaigns, &c)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list campaigns: %w", err)
	}
	sort.Slice(campaigns, func(i, j int) bool { return campaigns[i].ID < campaigns[j].ID })
	return campaigns, nil
}

// Counts returns entity counts for the stats endpoint.
func (s *Store) Counts(ctx context.Context) (devices, ads, activeCampaigns int, err error) {
	ds, err := s.ListDevices(ctx)
	if err != nil {
		return 0, 0, 0, err
	}
	as, err := s.ListAdvertisements(ctx)
	if err != nil {
		return 0, 0, 0, err
	}
	cs, err := s.ListCampaigns(ctx)
	if err != nil {
		return 0, 0, 0, err
	}
	now := time.Now()
	for _, c := range cs {
		if c.EligibleAt(now) {
			activeCampaigns++
		}
	}
	return len(ds), len(as), activeCampaigns, nil
}

// Empty reports whether the store holds no entities at all. Used to decide
// whether to load seed data.
func (s *Store) Empty() (bool, error) {
	empty := true
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()
		it.Rewind()
		empty = !it.Valid()
		return nil
	})
	return empty, err
}

func (s *Store) get(key string, out interface{}) error {
	return s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, out)
		})
	})
}

func (s *Store) put(key string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", key, err)
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), data)
	})
}

func (s *Store) scan(prefix string, fn func(val []byte) error) error {
	return s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = true
		it := txn.NewIterator(opts)
		defer it.Close()

		p := []byte(prefix)
		for it.Seek(p); it.ValidForPrefix(p); it.Next() {
			if err := it.Item().Value(fn); err != nil {
				return err
			}
		}
		return nil
	})
}
