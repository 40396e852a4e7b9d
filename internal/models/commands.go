// Streetcast - Fleet Display Advertising Dispatch
// Copyright 2026 Streetcast Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/streetcast/streetcast

package models

import (
	"time"
)

// Command verbs carried in outbound device payloads.
const (
	CommandPlayVideo     = "PLAY_VIDEO"
	CommandDownloadVideo = "DOWNLOAD_VIDEO"
)

// Trigger values tag outbound commands with their cause so the device can
// distinguish a geo-fence match from an operator push.
const (
	TriggerLocationBased     = "location_based"
	TriggerAdminOverride     = "admin_override"
	TriggerHeartbeatFallback = "heartbeat_fallback"
	TriggerDeviceRequest     = "device_request"
)

// PlayAdCommand is the play_ad payload pushed to a device when a campaign
// matches its location or an operator issues an override.
//
// Priority is only set for admin overrides; Location only for
// location-triggered plays. Field names are part of the device protocol and
// must not change.
type PlayAdCommand struct {
	Command           string    `json:"command"`
	VideoFilename     string    `json:"video_filename"`
	AdvertisementID   string    `json:"advertisement_id"`
	AdvertisementName string    `json:"advertisement_name"`
	Trigger           string    `json:"trigger"`
	Priority          *int      `json:"priority,omitempty"`
	DeviceID          string    `json:"device_id"`
	Location          *Point    `json:"location,omitempty"`
	Timestamp         time.Time `json:"timestamp"`
}

// NewPlayAdCommand builds a play_ad payload for the given advertisement.
func NewPlayAdCommand(deviceID string, ad *Advertisement, trigger string) PlayAdCommand {
	return PlayAdCommand{
		Command:           CommandPlayVideo,
		VideoFilename:     ad.VideoFilename,
		AdvertisementID:   ad.ID,
		AdvertisementName: ad.Name,
		Trigger:           trigger,
		DeviceID:          deviceID,
		Timestamp:         time.Now().UTC(),
	}
}

// DownloadVideoCommand is the download_video payload instructing a device to
// fetch an advertisement's video over the chunked HTTP endpoints.
type DownloadVideoCommand struct {
	Command           string    `json:"command"`
	AdvertisementID   string    `json:"advertisement_id"`
	AdvertisementName string    `json:"advertisement_name"`
	VideoFilename     string    `json:"video_filename"`
	FileSize          int64     `json:"file_size"`
	ChunkSize         int64     `json:"chunk_size"`
	TotalChunks       int       `json:"total_chunks"`
	DownloadURL       string    `json:"download_url"`
	DownloadInfoURL   string    `json:"download_info_url"`
	Priority          *int      `json:"priority,omitempty"`
	Trigger           string    `json:"trigger"`
	Timestamp         time.Time `json:"timestamp"`
}

// ForceDisconnect tells a device its connection is being closed by the
// server, either because a newer connection superseded it or the liveness
// sweep evicted it.
type ForceDisconnect struct {
	Reason string `json:"reason"`
}

// Supersession and eviction reasons for ForceDisconnect.
const (
	DisconnectReasonSuperseded       = "superseded_by_new_connection"
	DisconnectReasonHeartbeatTimeout = "heartbeat_timeout"
)

// DownloadInfo describes a chunked download of one advertisement's video.
// Returned by the download-info HTTP endpoint and embedded in
// DownloadVideoCommand.
type DownloadInfo struct {
	AdvertisementID string `json:"advertisement_id"`
	Filename        string `json:"filename"`
	FileSize        int64  `json:"file_size"`
	ChunkSize       int64  `json:"chunk_size"`
	TotalChunks     int    `json:"total_chunks"`
	DownloadURL     string `json:"download_url"`
	DownloadMode    string `json:"download_mode"`
}
