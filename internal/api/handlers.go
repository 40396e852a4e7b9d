// Streetcast - Fleet Display Advertising Dispatch
// Copyright 2026 Streetcast Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/streetcast/streetcast

// Package api provides the HTTP surface: device download endpoints, the
// admin boundary, health, and the websocket upgrade route.
//
// Handler methods are split across files:
//   - handlers.go: Handler struct, constructor, respond helpers (this file)
//   - handlers_device.go: device-facing download and heartbeat endpoints
//   - handlers_admin.go: admin override, push-download, and read endpoints
//   - handlers_health.go: health and readiness endpoints
package api

import (
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"

	"github.com/streetcast/streetcast/internal/assets"
	"github.com/streetcast/streetcast/internal/config"
	"github.com/streetcast/streetcast/internal/decision"
	"github.com/streetcast/streetcast/internal/dispatch"
	"github.com/streetcast/streetcast/internal/gateway"
	"github.com/streetcast/streetcast/internal/logging"
	"github.com/streetcast/streetcast/internal/models"
	"github.com/streetcast/streetcast/internal/registry"
	"github.com/streetcast/streetcast/internal/store"
	"github.com/streetcast/streetcast/internal/transfer"
)

// Handler contains dependencies for all API handlers.
type Handler struct {
	config     *config.Config
	store      *store.Store
	registry   *registry.Registry
	dispatcher *dispatch.Dispatcher
	engine     *decision.Engine
	transfers  *transfer.Manager
	library    *assets.Library
	gateway    *gateway.Gateway
	stats      *dispatch.Stats
	validate   *validator.Validate
	startTime  time.Time
}

// NewHandler wires an API handler over the server's collaborators.
func NewHandler(cfg *config.Config, st *store.Store, reg *registry.Registry,
	disp *dispatch.Dispatcher, engine *decision.Engine, transfers *transfer.Manager,
	library *assets.Library, gw *gateway.Gateway, stats *dispatch.Stats) *Handler {
	return &Handler{
		config:     cfg,
		store:      st,
		registry:   reg,
		dispatcher: disp,
		engine:     engine,
		transfers:  transfers,
		library:    library,
		gateway:    gw,
		stats:      stats,
		validate:   validator.New(),
		startTime:  time.Now(),
	}
}

// WebSocket hands the request to the device gateway.
func (h *Handler) WebSocket(w http.ResponseWriter, r *http.Request) {
	h.gateway.HandleWS(w, r)
}

// respondJSON sends the standard envelope with proper headers.
func respondJSON(w http.ResponseWriter, status int, response *models.APIResponse) {
	w.Header().Set("Content-Type", "application/json")

	data, err := json.Marshal(response)
	if err != nil {
		logging.Error().Err(err).Msg("failed to marshal JSON response")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.WriteHeader(status)
	if _, err := w.Write(data); err != nil {
		logging.Error().Err(err).Msg("failed to write JSON response")
	}
}

// respondData wraps a success payload in the envelope.
func respondData(w http.ResponseWriter, status int, data interface{}, started time.Time) {
	respondJSON(w, status, &models.APIResponse{
		Status: "success",
		Data:   data,
		Metadata: models.Metadata{
			Timestamp:   time.Now().UTC(),
			QueryTimeMS: time.Since(started).Milliseconds(),
		},
	})
}

// respondError sends an error envelope.
func respondError(w http.ResponseWriter, status int, code, message string, err error) {
	if err != nil {
		logging.Error().Str("code", code).Err(err).Msg("api error")
	}

	respondJSON(w, status, &models.APIResponse{
		Status: "error",
		Metadata: models.Metadata{
			Timestamp: time.Now().UTC(),
		},
		Error: &models.APIError{
			Code:    code,
			Message: message,
		},
	})
}

// decodeAndValidate parses a JSON request body and runs struct validation.
// Writes the error response itself; callers just return on false.
func (h *Handler) decodeAndValidate(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", "malformed JSON body", err)
		return false
	}
	if err := h.validate.Struct(v); err != nil {
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error(), nil)
		return false
	}
	return true
}
