// Streetcast - Fleet Display Advertising Dispatch
// Copyright 2026 Streetcast Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/streetcast/streetcast

// Package metrics defines the Prometheus instrumentation for the dispatch
// server: connection registry occupancy, decision outcomes, push delivery
// results, chunk serving, and HTTP surface latency.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Connection registry metrics
	ConnectedDevices = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "streetcast_connected_devices",
			Help: "Current number of devices with a live connection",
		},
	)

	RegistrationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "streetcast_registrations_total",
			Help: "Total device registration attempts",
		},
		[]string{"result"}, // "success", "unknown_device", "superseded"
	)

	ForceDisconnectsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "streetcast_force_disconnects_total",
			Help: "Total force_disconnect notices sent to devices",
		},
		[]string{"reason"}, // "superseded_by_new_connection", "heartbeat_timeout"
	)

	HeartbeatsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "streetcast_heartbeats_total",
			Help: "Total heartbeats received from devices",
		},
	)

	// Decision engine metrics
	LocationUpdatesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "streetcast_location_updates_total",
			Help: "Total location updates processed",
		},
		[]string{"result"}, // "matched", "no_match", "invalid", "error"
	)

	DecisionDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "streetcast_decision_duration_seconds",
			Help:    "Duration of advertisement decisions in seconds",
			Buckets: []float64{0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		},
	)

	StoreBreakerState = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "streetcast_store_breaker_state",
			Help: "Entity store circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
	)

	// Push delivery metrics
	DeliveriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "streetcast_deliveries_total",
			Help: "Total push command deliveries by trigger and outcome",
		},
		[]string{"trigger", "outcome"}, // outcome: "sent", "offline"
	)

	OverridesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "streetcast_overrides_total",
			Help: "Total admin override pushes processed",
		},
	)

	// Transfer metrics
	ChunksServedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "streetcast_chunks_served_total",
			Help: "Total video chunks served over HTTP",
		},
	)

	ChunkBytesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "streetcast_chunk_bytes_total",
			Help: "Total video bytes served over HTTP",
		},
	)

	TransferSessionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "streetcast_transfer_sessions_active",
			Help: "Current number of tracked transfer sessions",
		},
	)

	TransferSessionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "streetcast_transfer_sessions_total",
			Help: "Total transfer session terminal transitions",
		},
		[]string{"state"}, // "completed", "abandoned"
	)

	// WebSocket gateway metrics
	GatewayMessagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "streetcast_gateway_messages_total",
			Help: "Total WebSocket messages by direction and event type",
		},
		[]string{"direction", "event"}, // direction: "in", "out"
	)

	GatewayRateLimitedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "streetcast_gateway_rate_limited_total",
			Help: "Total inbound events dropped by per-connection rate limiting",
		},
	)

	// HTTP surface metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "streetcast_api_requests_total",
			Help: "Total API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "streetcast_api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "endpoint"},
	)
)

// RecordAPIRequest records one completed HTTP request.
func RecordAPIRequest(method, endpoint string, statusCode int, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, strconv.Itoa(statusCode)).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// RecordDelivery records one push delivery outcome.
func RecordDelivery(trigger string, sent bool) {
	outcome := "offline"
	if sent {
		outcome = "sent"
	}
	DeliveriesTotal.WithLabelValues(trigger, outcome).Inc()
}
