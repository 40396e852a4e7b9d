// Streetcast - Fleet Display Advertising Dispatch
// Copyright 2026 Streetcast Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/streetcast/streetcast

package models

import (
	"time"
)

// APIResponse is the standard envelope returned by every HTTP endpoint.
//
// Status is "success" or "error"; Error is populated only on "error".
//
// Example:
//
//	{
//	  "status": "success",
//	  "data": {"sent": ["taxi-001"], "offline": []},
//	  "metadata": {"timestamp": "2026-09-01T12:00:00Z", "query_time_ms": 3}
//	}
type APIResponse struct {
	Status   string      `json:"status"`
	Data     interface{} `json:"data"`
	Metadata Metadata    `json:"metadata"`
	Error    *APIError   `json:"error,omitempty"`
}

// Metadata carries per-response observability fields.
type Metadata struct {
	Timestamp   time.Time `json:"timestamp"`
	QueryTimeMS int64     `json:"query_time_ms,omitempty"`
}

// APIError is the structured error body inside an APIResponse.
//
// Common codes: VALIDATION_ERROR, UNKNOWN_DEVICE, UNKNOWN_ADVERTISEMENT,
// CHUNK_OUT_OF_RANGE, STORE_ERROR, RATE_LIMIT_EXCEEDED.
type APIError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// OverrideRequest is the admin override body: push one advertisement to a
// list of target devices, bypassing geo-fence matching.
type OverrideRequest struct {
	TargetDeviceIDs []string `json:"target_device_ids" validate:"required,min=1,dive,required"`
	AdvertisementID string   `json:"advertisement_id" validate:"required"`
}

// PushDownloadRequest is the admin push-download body: instruct target
// devices to fetch one advertisement's video ahead of playback.
type PushDownloadRequest struct {
	TargetDeviceIDs []string `json:"target_device_ids" validate:"required,min=1,dive,required"`
	AdvertisementID string   `json:"advertisement_id" validate:"required"`
	ChunkSize       int64    `json:"chunk_size,omitempty" validate:"omitempty,min=1"`
}

// OverrideResults lists per-device delivery outcomes for one override.
type OverrideResults struct {
	Sent    []string `json:"sent"`
	Offline []string `json:"offline"`
}

// OverrideSummary aggregates an override's outcome counts.
type OverrideSummary struct {
	TotalTargets int `json:"total_targets"`
	SentCount    int `json:"sent_count"`
	OfflineCount int `json:"offline_count"`
}

// OverrideResponse is the data payload returned by the override endpoints.
type OverrideResponse struct {
	Status        string          `json:"status"`
	Advertisement *Advertisement  `json:"advertisement,omitempty"`
	Results       OverrideResults `json:"results"`
	Summary       OverrideSummary `json:"summary"`
	Timestamp     time.Time       `json:"timestamp"`
}

// StatsOverview is the payload of the stats overview endpoint: raw counters
// plus current registry occupancy.
type StatsOverview struct {
	OnlineDevices      int   `json:"online_devices"`
	KnownDevices       int   `json:"known_devices"`
	ActiveCampaigns    int   `json:"active_campaigns"`
	Advertisements     int   `json:"advertisements"`
	LocationUpdates    int64 `json:"location_updates"`
	AdsDispatched      int64 `json:"ads_dispatched"`
	OverridesDelivered int64 `json:"overrides_delivered"`
	ChunksServed       int64 `json:"chunks_served"`
}
