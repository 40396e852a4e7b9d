// Streetcast - Fleet Display Advertising Dispatch
// Copyright 2026 Streetcast Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/streetcast/streetcast

package geofence

import (
	"context"
	"time"

	"github.com/streetcast/streetcast/internal/models"
)

// CampaignSource lists campaigns for the index to filter. Backed by the
// entity store in production and by fixed slices in tests.
type CampaignSource interface {
	ListCampaigns(ctx context.Context) ([]*models.Campaign, error)
}

// Index answers covering-campaign queries against a CampaignSource.
// It holds no mutable state and is safe for unlimited concurrent reads.
type Index struct {
	source CampaignSource
	now    func() time.Time
}

// NewIndex creates an Index over the given campaign source.
func NewIndex(source CampaignSource) *Index {
	return &Index{source: source, now: time.Now}
}

// CoveringCampaigns returns the campaigns whose geo-fence contains p,
// restricted to campaigns that are active, inside their schedule window,
// and whose target groups intersect groups (an empty campaign target list
// applies to all groups). Order is unspecified; an empty result is a valid
// outcome meaning no applicable campaign.
func (ix *Index) CoveringCampaigns(ctx context.Context, p models.Point, groups []string) ([]*models.Campaign, error) {
	campaigns, err := ix.source.ListCampaigns(ctx)
	if err != nil {
		return nil, err
	}

	now := ix.now()
	var covering []*models.Campaign
	for _, c := range campaigns {
		if !c.EligibleAt(now) {
			continue
		}
		if !groupsIntersect(c.TargetGroups, groups) {
			continue
		}
		if !Contains(c.GeoFence, p) {
			continue
		}
		covering = append(covering, c)
	}
	return covering, nil
}

// groupsIntersect reports whether target and groups share a label. An empty
// target list matches everything.
func groupsIntersect(target, groups []string) bool {
	if len(target) == 0 {
		return true
	}
	for _, t := range target {
		for _, g := range groups {
			if t == g {
				return true
			}
		}
	}
	return false
}
