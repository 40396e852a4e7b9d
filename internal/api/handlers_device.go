// Streetcast - Fleet Display Advertising Dispatch
// Copyright 2026 Streetcast Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/streetcast/streetcast

package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"

	"github.com/streetcast/streetcast/internal/assets"
	"github.com/streetcast/streetcast/internal/logging"
	"github.com/streetcast/streetcast/internal/metrics"
	"github.com/streetcast/streetcast/internal/models"
	"github.com/streetcast/streetcast/internal/store"
	"github.com/streetcast/streetcast/internal/transfer"
)

// chunkSizeParam resolves the requested chunk size against the configured
// default and ceiling.
func (h *Handler) chunkSizeParam(r *http.Request) (int64, error) {
	raw := r.URL.Query().Get("chunk_size")
	if raw == "" {
		return h.config.Assets.DefaultChunkSize, nil
	}
	size, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || size <= 0 {
		return 0, fmt.Errorf("invalid chunk_size %q", raw)
	}
	if max := h.config.Assets.MaxChunkSize; max > 0 && size > max {
		size = max
	}
	return size, nil
}

// assetSize reports the byte size used for chunk math. The on-disk file is
// authoritative; stored metadata covers assets not yet synced to this node.
func (h *Handler) assetSize(ad *models.Advertisement) (int64, error) {
	size, err := h.library.Size(ad.VideoFilename)
	if err == nil {
		return size, nil
	}
	if errors.Is(err, assets.ErrAssetNotFound) && ad.FileSize > 0 {
		return ad.FileSize, nil
	}
	return 0, err
}

// DeviceDownloadInfo describes a chunked download and opens a transfer
// session for the requesting device.
//
// GET /api/v1/device/videos/{advertisement_id}/download?chunk_size=N&device_id=D
func (h *Handler) DeviceDownloadInfo(w http.ResponseWriter, r *http.Request) {
	adID := chi.URLParam(r, "advertisement_id")

	ad, err := h.store.FindAdvertisement(r.Context(), adID)
	if err != nil {
		if errors.Is(err, store.ErrUnknownAdvertisement) {
			respondError(w, http.StatusNotFound, "UNKNOWN_ADVERTISEMENT",
				fmt.Sprintf("unknown advertisement: %s", adID), nil)
			return
		}
		respondError(w, http.StatusInternalServerError, "STORE_ERROR", "advertisement lookup failed", err)
		return
	}

	chunkSize, err := h.chunkSizeParam(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error(), nil)
		return
	}

	fileSize, err := h.assetSize(ad)
	if err != nil {
		respondError(w, http.StatusNotFound, "ASSET_NOT_FOUND",
			fmt.Sprintf("no video asset for advertisement %s", adID), err)
		return
	}

	totalChunks := transfer.ChunkCount(fileSize, chunkSize)
	if deviceID := r.URL.Query().Get("device_id"); deviceID != "" {
		h.transfers.Track(deviceID, adID, totalChunks, chunkSize)
	}

	info := models.DownloadInfo{
		AdvertisementID: ad.ID,
		Filename:        ad.VideoFilename,
		FileSize:        fileSize,
		ChunkSize:       chunkSize,
		TotalChunks:     totalChunks,
		DownloadURL:     fmt.Sprintf("%s/api/v1/device/videos/%s/chunk", h.config.BaseURL(), ad.ID),
		DownloadMode:    "chunked",
	}

	// Devices parse this shape directly; it is not wrapped in the admin
	// envelope.
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]models.DownloadInfo{"download_info": info}); err != nil {
		logging.Error().Err(err).Msg("failed to write download info")
	}
}

// DeviceChunk serves one byte range of an advertisement's video.
//
// GET /api/v1/device/videos/{advertisement_id}/chunk?chunk=I&chunk_size=N&device_id=D
func (h *Handler) DeviceChunk(w http.ResponseWriter, r *http.Request) {
	adID := chi.URLParam(r, "advertisement_id")

	ad, err := h.store.FindAdvertisement(r.Context(), adID)
	if err != nil {
		if errors.Is(err, store.ErrUnknownAdvertisement) {
			respondError(w, http.StatusNotFound, "UNKNOWN_ADVERTISEMENT",
				fmt.Sprintf("unknown advertisement: %s", adID), nil)
			return
		}
		respondError(w, http.StatusInternalServerError, "STORE_ERROR", "advertisement lookup failed", err)
		return
	}

	chunkRaw := r.URL.Query().Get("chunk")
	chunkIndex, err := strconv.Atoi(chunkRaw)
	if err != nil || chunkIndex < 0 {
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR",
			fmt.Sprintf("invalid chunk index %q", chunkRaw), nil)
		return
	}

	chunkSize, err := h.chunkSizeParam(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error(), nil)
		return
	}

	fileSize, err := h.library.Size(ad.VideoFilename)
	if err != nil {
		respondError(w, http.StatusNotFound, "ASSET_NOT_FOUND",
			fmt.Sprintf("no video asset for advertisement %s", adID), err)
		return
	}

	offset, length, err := transfer.ChunkRange(fileSize, chunkSize, chunkIndex)
	if err != nil {
		if errors.Is(err, transfer.ErrChunkOutOfRange) {
			respondError(w, http.StatusRequestedRangeNotSatisfiable, "CHUNK_OUT_OF_RANGE",
				fmt.Sprintf("chunk %d out of range for %d chunks", chunkIndex,
					transfer.ChunkCount(fileSize, chunkSize)), nil)
			return
		}
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error(), nil)
		return
	}

	data, err := h.library.ReadRange(ad.VideoFilename, offset, length)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "ASSET_READ_ERROR", "failed to read video chunk", err)
		return
	}

	if deviceID := r.URL.Query().Get("device_id"); deviceID != "" {
		h.transfers.Touch(deviceID, adID)
	}

	totalChunks := transfer.ChunkCount(fileSize, chunkSize)
	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Range", fmt.Sprintf("bytes %d-%d/%d", offset, offset+length-1, fileSize))
	w.Header().Set("Content-Length", strconv.FormatInt(length, 10))
	w.Header().Set("X-Chunk-Number", strconv.Itoa(chunkIndex))
	w.Header().Set("X-Total-Chunks", strconv.Itoa(totalChunks))
	w.Header().Set("X-Advertisement-ID", ad.ID)
	w.Header().Set("X-File-Size", strconv.FormatInt(fileSize, 10))

	metrics.ChunksServedTotal.Inc()
	metrics.ChunkBytesTotal.Add(float64(length))
	h.stats.ChunksServed.Add(1)

	if _, err := w.Write(data); err != nil {
		logging.Debug().Err(err).Str("advertisement_id", adID).Msg("chunk write aborted by client")
	}
}

type heartbeatFallbackRequest struct {
	DeviceID string `json:"device_id" validate:"required"`
	Location *struct {
		Longitude float64 `json:"longitude"`
		Latitude  float64 `json:"latitude"`
	} `json:"location" validate:"required"`
}

// DeviceHeartbeat is the HTTP fallback for devices without a live socket:
// it records liveness, runs a decision, and answers with a play command
// inline. If the device does have a socket, the command is also pushed with
// the heartbeat_fallback trigger.
//
// POST /api/v1/device/heartbeat
func (h *Handler) DeviceHeartbeat(w http.ResponseWriter, r *http.Request) {
	started := time.Now()

	var req heartbeatFallbackRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	point := models.Point{Longitude: req.Location.Longitude, Latitude: req.Location.Latitude}
	if !point.Valid() {
		respondError(w, http.StatusBadRequest, "MALFORMED_LOCATION",
			fmt.Sprintf("location out of range: (%f, %f)", point.Longitude, point.Latitude), nil)
		return
	}

	h.registry.Touch(req.DeviceID)
	metrics.HeartbeatsTotal.Inc()

	ad, err := h.engine.Decide(r.Context(), req.DeviceID, point)
	if err != nil {
		if errors.Is(err, store.ErrUnknownDevice) {
			respondError(w, http.StatusNotFound, "UNKNOWN_DEVICE",
				fmt.Sprintf("unknown device: %s", req.DeviceID), nil)
			return
		}
		respondError(w, http.StatusInternalServerError, "DECISION_ERROR", "decision failed", err)
		return
	}

	if ad == nil {
		respondData(w, http.StatusOK, map[string]interface{}{
			"message": "no matching campaign",
		}, started)
		return
	}

	h.dispatcher.NotifyLocationMatch(req.DeviceID, ad, point, models.TriggerHeartbeatFallback)
	respondData(w, http.StatusOK, map[string]interface{}{
		"command":            models.CommandPlayVideo,
		"video_filename":     ad.VideoFilename,
		"advertisement_id":   ad.ID,
		"advertisement_name": ad.Name,
		"trigger":            models.TriggerHeartbeatFallback,
	}, started)
}
