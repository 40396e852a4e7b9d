// Streetcast - Fleet Display Advertising Dispatch
// Copyright 2026 Streetcast Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/streetcast/streetcast

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/streetcast/streetcast/internal/config"
	"github.com/streetcast/streetcast/internal/middleware"
)

// Router assembles the HTTP surface over a Handler.
type Router struct {
	handler *Handler
	config  *config.Config
}

// NewRouter creates a router for the given handler.
func NewRouter(handler *Handler, cfg *config.Config) *Router {
	return &Router{handler: handler, config: cfg}
}

// Setup configures all routes and returns the root http.Handler.
func (router *Router) Setup() http.Handler {
	r := chi.NewRouter()

	// Global middleware, applied to all routes in order.
	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   router.config.Security.CORSOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	rateLimit := func() func(http.Handler) http.Handler {
		reqs := router.config.Security.RateLimitReqs
		window := router.config.Security.RateLimitWindow
		if reqs <= 0 {
			reqs = 300
		}
		if window <= 0 {
			window = time.Minute
		}
		return httprate.LimitByIP(reqs, window)
	}

	// Device websocket endpoint. No rate limit: one long-lived upgrade per
	// device, throttling happens per-event inside the gateway.
	r.Get("/ws", router.handler.WebSocket)

	// Prometheus scrape endpoint.
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1/health", func(r chi.Router) {
		r.Use(httprate.LimitByIP(1000, time.Minute))
		r.Get("/", router.handler.Health)
		r.Get("/live", router.handler.HealthLive)
		r.Get("/ready", router.handler.HealthReady)
	})

	// Device-facing endpoints: chunked downloads and the HTTP heartbeat
	// fallback.
	r.Route("/api/v1/device", func(r chi.Router) {
		r.Use(rateLimit())
		r.Use(middleware.PrometheusMetrics)

		r.Get("/videos/{advertisement_id}/download", router.handler.DeviceDownloadInfo)
		r.Get("/videos/{advertisement_id}/chunk", router.handler.DeviceChunk)
		r.Post("/heartbeat", router.handler.DeviceHeartbeat)
	})

	// Admin boundary. Operator authentication is out of scope; deployments
	// front this with their own access control.
	r.Route("/api/v1/admin", func(r chi.Router) {
		r.Use(rateLimit())
		r.Use(middleware.PrometheusMetrics)

		r.Post("/override", router.handler.AdminOverride)
		r.Post("/push-download", router.handler.AdminPushDownload)

		r.Get("/connections", router.handler.AdminConnections)
		r.Get("/devices", router.handler.AdminDevices)
		r.Get("/devices/{device_id}", router.handler.AdminDevice)
		r.Get("/advertisements", router.handler.AdminAdvertisements)
		r.Get("/advertisements/{advertisement_id}", router.handler.AdminAdvertisement)
		r.Get("/campaigns", router.handler.AdminCampaigns)
		r.Get("/campaigns/{campaign_id}", router.handler.AdminCampaign)
		r.Get("/transfers", router.handler.AdminTransfers)
		r.Get("/stats/overview", router.handler.AdminStatsOverview)
	})

	return r
}
