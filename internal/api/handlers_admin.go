// Streetcast - Fleet Display Advertising Dispatch
// Copyright 2026 Streetcast Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/streetcast/streetcast

package api

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/streetcast/streetcast/internal/dispatch"
	"github.com/streetcast/streetcast/internal/models"
	"github.com/streetcast/streetcast/internal/store"
)

// AdminOverride pushes one advertisement to specific devices, bypassing
// geo-fence matching. The batch is not atomic: offline targets are reported,
// never retried.
//
// POST /api/v1/admin/override
func (h *Handler) AdminOverride(w http.ResponseWriter, r *http.Request) {
	started := time.Now()

	var req models.OverrideRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	ad, err := h.store.FindAdvertisement(r.Context(), req.AdvertisementID)
	if err != nil {
		if errors.Is(err, store.ErrUnknownAdvertisement) {
			respondError(w, http.StatusNotFound, "UNKNOWN_ADVERTISEMENT",
				fmt.Sprintf("unknown advertisement: %s", req.AdvertisementID), nil)
			return
		}
		respondError(w, http.StatusInternalServerError, "STORE_ERROR", "advertisement lookup failed", err)
		return
	}

	results := h.dispatcher.DeliverOverride(req.TargetDeviceIDs, ad)
	respondData(w, http.StatusOK, models.OverrideResponse{
		Status:        "completed",
		Advertisement: ad,
		Results:       results,
		Summary: models.OverrideSummary{
			TotalTargets: len(req.TargetDeviceIDs),
			SentCount:    len(results.Sent),
			OfflineCount: len(results.Offline),
		},
		Timestamp: time.Now().UTC(),
	}, started)
}

// AdminPushDownload fans a download_video command out to target devices so
// they prefetch an advertisement's video.
//
// POST /api/v1/admin/push-download
func (h *Handler) AdminPushDownload(w http.ResponseWriter, r *http.Request) {
	started := time.Now()

	var req models.PushDownloadRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	ad, err := h.store.FindAdvertisement(r.Context(), req.AdvertisementID)
	if err != nil {
		if errors.Is(err, store.ErrUnknownAdvertisement) {
			respondError(w, http.StatusNotFound, "UNKNOWN_ADVERTISEMENT",
				fmt.Sprintf("unknown advertisement: %s", req.AdvertisementID), nil)
			return
		}
		respondError(w, http.StatusInternalServerError, "STORE_ERROR", "advertisement lookup failed", err)
		return
	}

	chunkSize := req.ChunkSize
	if chunkSize <= 0 {
		chunkSize = h.config.Assets.DefaultChunkSize
	}
	if max := h.config.Assets.MaxChunkSize; max > 0 && chunkSize > max {
		chunkSize = max
	}

	results := models.OverrideResults{Sent: []string{}, Offline: []string{}}
	for _, deviceID := range req.TargetDeviceIDs {
		if h.dispatcher.PushDownload(deviceID, ad, chunkSize, models.TriggerAdminOverride) == dispatch.Sent {
			results.Sent = append(results.Sent, deviceID)
		} else {
			results.Offline = append(results.Offline, deviceID)
		}
	}

	respondData(w, http.StatusOK, models.OverrideResponse{
		Status:        "completed",
		Advertisement: ad,
		Results:       results,
		Summary: models.OverrideSummary{
			TotalTargets: len(req.TargetDeviceIDs),
			SentCount:    len(results.Sent),
			OfflineCount: len(results.Offline),
		},
		Timestamp: time.Now().UTC(),
	}, started)
}

// AdminConnections reports the live connection table.
//
// GET /api/v1/admin/connections
func (h *Handler) AdminConnections(w http.ResponseWriter, r *http.Request) {
	started := time.Now()
	snapshot := h.registry.Snapshot()
	respondData(w, http.StatusOK, map[string]interface{}{
		"connections": snapshot,
		"online":      len(snapshot),
	}, started)
}

// AdminDevices lists all known devices.
//
// GET /api/v1/admin/devices
func (h *Handler) AdminDevices(w http.ResponseWriter, r *http.Request) {
	started := time.Now()
	devices, err := h.store.ListDevices(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "STORE_ERROR", "failed to list devices", err)
		return
	}

	type deviceView struct {
		*models.Device
		Online bool `json:"online"`
	}
	views := make([]deviceView, 0, len(devices))
	for _, d := range devices {
		views = append(views, deviceView{Device: d, Online: h.registry.IsOnline(d.ID)})
	}
	respondData(w, http.StatusOK, views, started)
}

// AdminDevice fetches one device.
//
// GET /api/v1/admin/devices/{device_id}
func (h *Handler) AdminDevice(w http.ResponseWriter, r *http.Request) {
	started := time.Now()
	id := chi.URLParam(r, "device_id")

	device, err := h.store.FindDevice(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrUnknownDevice) {
			respondError(w, http.StatusNotFound, "UNKNOWN_DEVICE",
				fmt.Sprintf("unknown device: %s", id), nil)
			return
		}
		respondError(w, http.StatusInternalServerError, "STORE_ERROR", "device lookup failed", err)
		return
	}

	respondData(w, http.StatusOK, map[string]interface{}{
		"device": device,
		"online": h.registry.IsOnline(device.ID),
	}, started)
}

// AdminAdvertisements lists all advertisements.
//
// GET /api/v1/admin/advertisements
func (h *Handler) AdminAdvertisements(w http.ResponseWriter, r *http.Request) {
	started := time.Now()
	ads, err := h.store.ListAdvertisements(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "STORE_ERROR", "failed to list advertisements", err)
		return
	}
	respondData(w, http.StatusOK, ads, started)
}

// AdminAdvertisement fetches one advertisement.
//
// GET /api/v1/admin/advertisements/{advertisement_id}
func (h *Handler) AdminAdvertisement(w http.ResponseWriter, r *http.Request) {
	started := time.Now()
	id := chi.URLParam(r, "advertisement_id")

	ad, err := h.store.FindAdvertisement(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrUnknownAdvertisement) {
			respondError(w, http.StatusNotFound, "UNKNOWN_ADVERTISEMENT",
				fmt.Sprintf("unknown advertisement: %s", id), nil)
			return
		}
		respondError(w, http.StatusInternalServerError, "STORE_ERROR", "advertisement lookup failed", err)
		return
	}
	respondData(w, http.StatusOK, ad, started)
}

// campaignView joins a campaign with its advertisement's display fields.
type campaignView struct {
	*models.Campaign
	AdvertisementName string `json:"advertisement_name,omitempty"`
	VideoFilename     string `json:"video_filename,omitempty"`
}

func (h *Handler) campaignView(r *http.Request, c *models.Campaign) campaignView {
	view := campaignView{Campaign: c}
	if ad, err := h.store.FindAdvertisement(r.Context(), c.AdvertisementID); err == nil {
		view.AdvertisementName = ad.Name
		view.VideoFilename = ad.VideoFilename
	}
	return view
}

// AdminCampaigns lists all campaigns joined with advertisement names.
//
// GET /api/v1/admin/campaigns
func (h *Handler) AdminCampaigns(w http.ResponseWriter, r *http.Request) {
	started := time.Now()
	campaigns, err := h.store.ListCampaigns(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "STORE_ERROR", "failed to list campaigns", err)
		return
	}

	views := make([]campaignView, 0, len(campaigns))
	for _, c := range campaigns {
		views = append(views, h.campaignView(r, c))
	}
	respondData(w, http.StatusOK, views, started)
}

// AdminCampaign fetches one campaign.
//
// GET /api/v1/admin/campaigns/{campaign_id}
func (h *Handler) AdminCampaign(w http.ResponseWriter, r *http.Request) {
	started := time.Now()
	id := chi.URLParam(r, "campaign_id")

	campaign, err := h.store.FindCampaign(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrUnknownCampaign) {
			respondError(w, http.StatusNotFound, "UNKNOWN_CAMPAIGN",
				fmt.Sprintf("unknown campaign: %s", id), nil)
			return
		}
		respondError(w, http.StatusInternalServerError, "STORE_ERROR", "campaign lookup failed", err)
		return
	}
	respondData(w, http.StatusOK, h.campaignView(r, campaign), started)
}

// AdminTransfers reports all tracked transfer sessions.
//
// GET /api/v1/admin/transfers
func (h *Handler) AdminTransfers(w http.ResponseWriter, r *http.Request) {
	started := time.Now()
	respondData(w, http.StatusOK, h.transfers.Snapshot(), started)
}

// AdminStatsOverview reports registry occupancy, entity counts, and the raw
// process-lifetime counters.
//
// GET /api/v1/admin/stats/overview
func (h *Handler) AdminStatsOverview(w http.ResponseWriter, r *http.Request) {
	started := time.Now()

	devices, ads, activeCampaigns, err := h.store.Counts(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "STORE_ERROR", "failed to count entities", err)
		return
	}

	respondData(w, http.StatusOK, models.StatsOverview{
		OnlineDevices:      h.registry.Len(),
		KnownDevices:       devices,
		ActiveCampaigns:    activeCampaigns,
		Advertisements:     ads,
		LocationUpdates:    h.stats.LocationUpdates.Load(),
		AdsDispatched:      h.stats.AdsDispatched.Load(),
		OverridesDelivered: h.stats.OverridesDelivered.Load(),
		ChunksServed:       h.stats.ChunksServed.Load(),
	}, started)
}
