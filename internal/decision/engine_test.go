// Streetcast - Fleet Display Advertising Dispatch
// Copyright 2026 Streetcast Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/streetcast/streetcast

package decision

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/streetcast/streetcast/internal/logging"
	"github.com/streetcast/streetcast/internal/models"
	"github.com/streetcast/streetcast/internal/store"
)

func init() {
	logging.Init(logging.Config{Level: "disabled", Output: io.Discard})
}

type fakeEntities struct {
	devices map[string]*models.Device
	ads     map[string]*models.Advertisement
	fail    error
}

func (f *fakeEntities) FindDevice(_ context.Context, id string) (*models.Device, error) {
	if f.fail != nil {
		return nil, f.fail
	}
	d, ok := f.devices[id]
	if !ok {
		return nil, store.ErrUnknownDevice
	}
	return d, nil
}

func (f *fakeEntities) FindAdvertisement(_ context.Context, id string) (*models.Advertisement, error) {
	if f.fail != nil {
		return nil, f.fail
	}
	a, ok := f.ads[id]
	if !ok {
		return nil, store.ErrUnknownAdvertisement
	}
	return a, nil
}

type fakeIndex struct {
	campaigns []*models.Campaign
	fail      error
}

func (f *fakeIndex) CoveringCampaigns(_ context.Context, _ models.Point, _ []string) ([]*models.Campaign, error) {
	if f.fail != nil {
		return nil, f.fail
	}
	return f.campaigns, nil
}

func activeAd(id string) *models.Advertisement {
	return &models.Advertisement{ID: id, Name: id, VideoFilename: id + ".mp4", Active: true}
}

func testEngine(campaigns []*models.Campaign, ads ...*models.Advertisement) *Engine {
	adMap := make(map[string]*models.Advertisement)
	for _, a := range ads {
		adMap[a.ID] = a
	}
	entities := &fakeEntities{
		devices: map[string]*models.Device{
			"taxi-001": {ID: "taxi-001", Groups: []string{"general"}},
		},
		ads: adMap,
	}
	return NewEngine(entities, &fakeIndex{campaigns: campaigns})
}

var anyPoint = models.Point{Longitude: 121.5, Latitude: 25.0}

func TestDecidePriorityWins(t *testing.T) {
	// Insertion order must not matter, only priority.
	for _, order := range [][2]int{{0, 1}, {1, 0}} {
		low := &models.Campaign{ID: "campaign-a", AdvertisementID: "adv-low", Priority: 5, Active: true}
		high := &models.Campaign{ID: "campaign-b", AdvertisementID: "adv-high", Priority: 9, Active: true}
		pair := []*models.Campaign{low, high}
		campaigns := []*models.Campaign{pair[order[0]], pair[order[1]]}

		e := testEngine(campaigns, activeAd("adv-low"), activeAd("adv-high"))
		ad, err := e.Decide(context.Background(), "taxi-001", anyPoint)
		if err != nil {
			t.Fatalf("Decide: %v", err)
		}
		if ad == nil || ad.ID != "adv-high" {
			t.Errorf("order %v: selected %v, want adv-high", order, ad)
		}
	}
}

func TestDecideTieBreakLexicographic(t *testing.T) {
	a := &models.Campaign{ID: "campaign-b", AdvertisementID: "adv-b", Priority: 7, Active: true}
	b := &models.Campaign{ID: "campaign-a", AdvertisementID: "adv-a", Priority: 7, Active: true}
	e := testEngine([]*models.Campaign{a, b}, activeAd("adv-a"), activeAd("adv-b"))

	for i := 0; i < 5; i++ {
		ad, err := e.Decide(context.Background(), "taxi-001", anyPoint)
		if err != nil {
			t.Fatalf("Decide: %v", err)
		}
		if ad == nil || ad.ID != "adv-a" {
			t.Fatalf("call %d: selected %v, want adv-a (smaller campaign id)", i, ad)
		}
	}
}

func TestDecideNoMatch(t *testing.T) {
	e := testEngine(nil)
	ad, err := e.Decide(context.Background(), "taxi-001", anyPoint)
	if err != nil {
		t.Fatalf("Decide: %v", err)
	}
	if ad != nil {
		t.Errorf("expected no selection, got %s", ad.ID)
	}
}

func TestDecideUnknownDevice(t *testing.T) {
	e := testEngine(nil)
	_, err := e.Decide(context.Background(), "taxi-404", anyPoint)
	if !errors.Is(err, store.ErrUnknownDevice) {
		t.Errorf("err = %v, want ErrUnknownDevice", err)
	}
}

func TestDecideSkipsInactiveAdvertisement(t *testing.T) {
	inactive := activeAd("adv-top")
	inactive.Active = false
	campaigns := []*models.Campaign{
		{ID: "campaign-a", AdvertisementID: "adv-top", Priority: 9, Active: true},
		{ID: "campaign-b", AdvertisementID: "adv-fallback", Priority: 3, Active: true},
	}
	e := testEngine(campaigns, inactive, activeAd("adv-fallback"))

	ad, err := e.Decide(context.Background(), "taxi-001", anyPoint)
	if err != nil {
		t.Fatalf("Decide: %v", err)
	}
	if ad == nil || ad.ID != "adv-fallback" {
		t.Errorf("selected %v, want adv-fallback", ad)
	}
}

func TestDecideSkipsDanglingAdvertisementReference(t *testing.T) {
	campaigns := []*models.Campaign{
		{ID: "campaign-a", AdvertisementID: "adv-missing", Priority: 9, Active: true},
		{ID: "campaign-b", AdvertisementID: "adv-ok", Priority: 3, Active: true},
	}
	e := testEngine(campaigns, activeAd("adv-ok"))

	ad, err := e.Decide(context.Background(), "taxi-001", anyPoint)
	if err != nil {
		t.Fatalf("Decide: %v", err)
	}
	if ad == nil || ad.ID != "adv-ok" {
		t.Errorf("selected %v, want adv-ok", ad)
	}
}

func TestDecideStoreFailureDegradesToNoMatch(t *testing.T) {
	entities := &fakeEntities{fail: errors.New("store unavailable")}
	e := NewEngine(entities, &fakeIndex{})

	ad, err := e.Decide(context.Background(), "taxi-001", anyPoint)
	if err != nil {
		t.Fatalf("store failure must not surface: %v", err)
	}
	if ad != nil {
		t.Errorf("expected degraded no-match, got %s", ad.ID)
	}
}

func TestDecideDeterministic(t *testing.T) {
	campaigns := []*models.Campaign{
		{ID: "campaign-x", AdvertisementID: "adv-x", Priority: 4, Active: true},
		{ID: "campaign-y", AdvertisementID: "adv-y", Priority: 4, Active: true},
		{ID: "campaign-z", AdvertisementID: "adv-z", Priority: 2, Active: true},
	}
	e := testEngine(campaigns, activeAd("adv-x"), activeAd("adv-y"), activeAd("adv-z"))

	first, err := e.Decide(context.Background(), "taxi-001", anyPoint)
	if err != nil {
		t.Fatalf("Decide: %v", err)
	}
	for i := 0; i < 10; i++ {
		again, err := e.Decide(context.Background(), "taxi-001", anyPoint)
		if err != nil {
			t.Fatalf("Decide: %v", err)
		}
		if again.ID != first.ID {
			t.Fatalf("selection changed across calls: %s then %s", first.ID, again.ID)
		}
	}
}
