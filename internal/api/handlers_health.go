// Streetcast - Fleet Display Advertising Dispatch
// Copyright 2026 Streetcast Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/streetcast/streetcast

package api

import (
	"net/http"
	"time"
)

// Health reports overall server health including a store ping.
//
// GET /api/v1/health
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	started := time.Now()

	status := "healthy"
	httpStatus := http.StatusOK
	storeStatus := "ok"
	if _, _, _, err := h.store.Counts(r.Context()); err != nil {
		status = "degraded"
		httpStatus = http.StatusServiceUnavailable
		storeStatus = "unreachable"
	}

	respondData(w, httpStatus, map[string]interface{}{
		"status":         status,
		"store":          storeStatus,
		"online_devices": h.registry.Len(),
		"uptime_seconds": int64(time.Since(h.startTime).Seconds()),
	}, started)
}

// HealthLive is the liveness probe; it answers as long as the process can
// serve HTTP.
//
// GET /api/v1/health/live
func (h *Handler) HealthLive(w http.ResponseWriter, r *http.Request) {
	respondData(w, http.StatusOK, map[string]string{"status": "alive"}, time.Now())
}

// HealthReady is the readiness probe; not ready until the store answers.
//
// GET /api/v1/health/ready
func (h *Handler) HealthReady(w http.ResponseWriter, r *http.Request) {
	started := time.Now()
	if _, _, _, err := h.store.Counts(r.Context()); err != nil {
		respondError(w, http.StatusServiceUnavailable, "NOT_READY", "entity store unreachable", err)
		return
	}
	respondData(w, http.StatusOK, map[string]string{"status": "ready"}, started)
}
