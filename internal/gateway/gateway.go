// Streetcast - Fleet Display Advertising Dispatch
// Copyright 2026 Streetcast Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/streetcast/streetcast

// Package gateway terminates device websocket connections and translates the
// bidirectional event protocol into registry, decision, and transfer calls.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"github.com/streetcast/streetcast/internal/dispatch"
	"github.com/streetcast/streetcast/internal/logging"
	"github.com/streetcast/streetcast/internal/metrics"
	"github.com/streetcast/streetcast/internal/models"
	"github.com/streetcast/streetcast/internal/registry"
	"github.com/streetcast/streetcast/internal/store"
	"github.com/streetcast/streetcast/internal/transfer"
)

// EntityReader is the slice of the store the gateway needs.
type EntityReader interface {
	FindDevice(ctx context.Context, id string) (*models.Device, error)
	FindAdvertisement(ctx context.Context, id string) (*models.Advertisement, error)
	UpdateDeviceLocation(ctx context.Context, id string, p models.Point, at time.Time) error
}

// Decider selects an advertisement for a device location.
type Decider interface {
	Decide(ctx context.Context, deviceID string, p models.Point) (*models.Advertisement, error)
}

// Config carries the gateway's tunables.
type Config struct {
	// DefaultChunkSize is used for download_request when the device does
	// not ask for a specific chunk size.
	DefaultChunkSize int64

	// LocationRatePerSec and LocationBurst bound per-connection decision
	// work. Zero values disable limiting.
	LocationRatePerSec float64
	LocationBurst      int
}

// Gateway owns the websocket endpoint for devices.
type Gateway struct {
	cfg        Config
	registry   *registry.Registry
	entities   EntityReader
	engine     Decider
	dispatcher *dispatch.Dispatcher
	transfers  *transfer.Manager
	stats      *dispatch.Stats
	upgrader   websocket.Upgrader
}

// New wires a gateway over the given collaborators.
func New(cfg Config, reg *registry.Registry, entities EntityReader, engine Decider,
	dispatcher *dispatch.Dispatcher, transfers *transfer.Manager, stats *dispatch.Stats) *Gateway {
	if cfg.DefaultChunkSize <= 0 {
		cfg.DefaultChunkSize = 1 << 20
	}
	return &Gateway{
		cfg:        cfg,
		registry:   reg,
		entities:   entities,
		engine:     engine,
		dispatcher: dispatcher,
		transfers:  transfers,
		stats:      stats,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// Devices are headless embedded clients without an Origin
			// header worth checking. Auth is out of scope here.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

// HandleWS upgrades an HTTP request to a device socket and starts its pumps.
func (g *Gateway) HandleWS(w http.ResponseWriter, r *http.Request) {
	sock, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.Warn().Err(err).Str("remote_addr", r.RemoteAddr).Msg("websocket upgrade failed")
		return
	}

	limit := rate.Limit(g.cfg.LocationRatePerSec)
	burst := g.cfg.LocationBurst
	if limit <= 0 {
		limit = rate.Inf
		burst = 1
	}

	c := newConn(g, sock, limit, burst)
	c.start()

	_ = c.Send(EventConnectionEstablished, connectionEstablished{
		Message:      "connected, awaiting registration",
		ConnectionID: c.id,
		Timestamp:    time.Now().UTC(),
	})
	logging.Debug().Str("connection_id", c.id).Str("remote_addr", c.RemoteAddr()).Msg("device socket opened")
}

func (g *Gateway) handleMessage(c *Conn, env inboundEnvelope) {
	switch env.Type {
	case EventRegister:
		g.handleRegister(c, env.Data)
	case EventLocationUpdate:
		g.handleLocationUpdate(c, env.Data)
	case EventHeartbeat:
		g.handleHeartbeat(c, env.Data)
	case EventDownloadStatus:
		g.handleDownloadStatus(c, env.Data)
	case EventDownloadRequest:
		g.handleDownloadRequest(c, env.Data)
	case EventPing:
		_ = c.Send(EventPong, nil)
	default:
		logging.Debug().Str("type", env.Type).Msg("unknown gateway event")
	}
}

func (g *Gateway) handleRegister(c *Conn, data json.RawMessage) {
	var p registerPayload
	if err := json.Unmarshal(data, &p); err != nil || p.DeviceID == "" {
		metrics.RegistrationsTotal.WithLabelValues("invalid").Inc()
		_ = c.Send(EventRegistrationError, errorPayload{Error: "device_id is required"})
		return
	}

	ctx := context.Background()
	if _, err := g.entities.FindDevice(ctx, p.DeviceID); err != nil {
		if errors.Is(err, store.ErrUnknownDevice) {
			metrics.RegistrationsTotal.WithLabelValues("unknown_device").Inc()
			_ = c.Send(EventRegistrationError, errorPayload{
				Error: fmt.Sprintf("unknown device: %s", p.DeviceID),
			})
			return
		}
		metrics.RegistrationsTotal.WithLabelValues("error").Inc()
		logging.Error().Err(err).Str("device_id", p.DeviceID).Msg("device lookup failed during registration")
		_ = c.Send(EventRegistrationError, errorPayload{Error: "registration failed, try again"})
		return
	}

	c.setDeviceID(p.DeviceID)
	superseded := g.registry.Register(p.DeviceID, c)
	if superseded != nil {
		old, sameKind := superseded.(*Conn)
		if !sameKind || old != c {
			g.dispatcher.ForceDisconnect(superseded, p.DeviceID, models.DisconnectReasonSuperseded)
			if sameKind {
				// Let the write pump flush the notice before the socket
				// is torn down.
				old.setDeviceID("")
				time.AfterFunc(writeWait, old.close)
			}
		}
	}

	metrics.RegistrationsTotal.WithLabelValues("success").Inc()
	_ = c.Send(EventRegistrationSuccess, registrationSuccess{
		DeviceID:  p.DeviceID,
		Message:   "device registered",
		Timestamp: time.Now().UTC(),
	})
	logging.Info().
		Str("device_id", p.DeviceID).
		Str("connection_id", c.id).
		Bool("superseded", superseded != nil).
		Msg("device registered")
}

const noMatchMessage = "location processed, no matching campaign"

func (g *Gateway) handleLocationUpdate(c *Conn, data json.RawMessage) {
	g.stats.LocationUpdates.Add(1)

	var p locationUpdatePayload
	if err := json.Unmarshal(data, &p); err != nil {
		metrics.LocationUpdatesTotal.WithLabelValues("invalid").Inc()
		_ = c.Send(EventLocationError, errorPayload{Error: "malformed location payload"})
		return
	}

	deviceID := c.DeviceID()
	if deviceID == "" || (p.DeviceID != "" && p.DeviceID != deviceID) {
		metrics.LocationUpdatesTotal.WithLabelValues("invalid").Inc()
		_ = c.Send(EventLocationError, errorPayload{Error: "connection is not registered for this device"})
		return
	}

	// A malformed location is discarded without disconnecting the device
	// and without attempting a decision.
	if p.Longitude == nil || p.Latitude == nil {
		metrics.LocationUpdatesTotal.WithLabelValues("invalid").Inc()
		_ = c.Send(EventLocationError, errorPayload{Error: "longitude and latitude are required"})
		return
	}
	point := models.Point{Longitude: *p.Longitude, Latitude: *p.Latitude}
	if !point.Valid() {
		metrics.LocationUpdatesTotal.WithLabelValues("invalid").Inc()
		_ = c.Send(EventLocationError, errorPayload{
			Error: fmt.Sprintf("location out of range: (%f, %f)", point.Longitude, point.Latitude),
		})
		return
	}

	g.registry.Touch(deviceID)

	// Over the rate limit the update still gets an ack so the device does
	// not retry, but no decision runs.
	if !c.limiter.Allow() {
		metrics.GatewayRateLimitedTotal.Inc()
		_ = c.Send(EventLocationAck, locationAck{
			Message:   noMatchMessage,
			Timestamp: time.Now().UTC(),
		})
		return
	}

	ctx := context.Background()
	if err := g.entities.UpdateDeviceLocation(ctx, deviceID, point, time.Now().UTC()); err != nil {
		logging.Warn().Err(err).Str("device_id", deviceID).Msg("device location persist failed")
	}

	ad, err := g.engine.Decide(ctx, deviceID, point)
	if err != nil {
		if errors.Is(err, store.ErrUnknownDevice) {
			metrics.LocationUpdatesTotal.WithLabelValues("error").Inc()
			_ = c.Send(EventLocationError, errorPayload{Error: fmt.Sprintf("unknown device: %s", deviceID)})
			return
		}
		metrics.LocationUpdatesTotal.WithLabelValues("error").Inc()
		logging.Error().Err(err).Str("device_id", deviceID).Msg("decision failed")
		_ = c.Send(EventLocationAck, locationAck{Message: noMatchMessage, Timestamp: time.Now().UTC()})
		return
	}

	if ad == nil {
		metrics.LocationUpdatesTotal.WithLabelValues("no_match").Inc()
		_ = c.Send(EventLocationAck, locationAck{Message: noMatchMessage, Timestamp: time.Now().UTC()})
		return
	}

	metrics.LocationUpdatesTotal.WithLabelValues("matched").Inc()
	g.dispatcher.NotifyLocationMatch(deviceID, ad, point, models.TriggerLocationBased)
	_ = c.Send(EventLocationAck, locationAck{
		Message:       "advertisement dispatched",
		VideoFilename: ad.VideoFilename,
		Timestamp:     time.Now().UTC(),
	})
}

func (g *Gateway) handleHeartbeat(c *Conn, data json.RawMessage) {
	var p heartbeatPayload
	_ = json.Unmarshal(data, &p)

	deviceID := c.DeviceID()
	if deviceID == "" {
		_ = c.Send(EventRegistrationError, errorPayload{Error: "heartbeat before registration"})
		return
	}

	g.registry.Touch(deviceID)
	metrics.HeartbeatsTotal.Inc()
	_ = c.Send(EventHeartbeatAck, heartbeatAck{
		DeviceID:  deviceID,
		Timestamp: time.Now().UTC(),
	})
}

func (g *Gateway) handleDownloadStatus(c *Conn, data json.RawMessage) {
	var p downloadStatusPayload
	if err := json.Unmarshal(data, &p); err != nil || p.AdvertisementID == "" {
		logging.Debug().Msg("malformed download_status payload")
		return
	}

	deviceID := c.DeviceID()
	if deviceID == "" {
		return
	}
	g.registry.Touch(deviceID)

	info, ok := g.transfers.Acknowledge(deviceID, p.AdvertisementID, p.DownloadedChunks)
	if !ok {
		// Status for a session the server never tracked; harmless, the
		// device may be reporting a sideloaded file.
		logging.Debug().
			Str("device_id", deviceID).
			Str("advertisement_id", p.AdvertisementID).
			Msg("download_status for untracked session")
		return
	}

	_ = c.Send(EventDownloadStatusAck, downloadStatusAck{
		AdvertisementID: p.AdvertisementID,
		Status:          string(info.State),
		AckedChunks:     info.AckedChunks,
		TotalChunks:     info.TotalChunks,
		Timestamp:       time.Now().UTC(),
	})
}

func (g *Gateway) handleDownloadRequest(c *Conn, data json.RawMessage) {
	var p downloadRequestPayload
	if err := json.Unmarshal(data, &p); err != nil || p.AdvertisementID == "" {
		_ = c.Send(EventDownloadRequestError, downloadRequestError{Error: "advertisement_id is required"})
		return
	}

	deviceID := c.DeviceID()
	if deviceID == "" {
		_ = c.Send(EventDownloadRequestError, downloadRequestError{
			Error:           "connection is not registered",
			AdvertisementID: p.AdvertisementID,
		})
		return
	}
	g.registry.Touch(deviceID)

	ad, err := g.entities.FindAdvertisement(context.Background(), p.AdvertisementID)
	if err != nil {
		if errors.Is(err, store.ErrUnknownAdvertisement) {
			_ = c.Send(EventDownloadRequestError, downloadRequestError{
				Error:           fmt.Sprintf("unknown advertisement: %s", p.AdvertisementID),
				AdvertisementID: p.AdvertisementID,
			})
			return
		}
		logging.Error().Err(err).Str("advertisement_id", p.AdvertisementID).Msg("advertisement lookup failed")
		_ = c.Send(EventDownloadRequestError, downloadRequestError{
			Error:           "download request failed, try again",
			AdvertisementID: p.AdvertisementID,
		})
		return
	}

	chunkSize := p.ChunkSize
	if chunkSize <= 0 {
		chunkSize = g.cfg.DefaultChunkSize
	}
	g.transfers.Track(deviceID, ad.ID, transfer.ChunkCount(ad.FileSize, chunkSize), chunkSize)
	g.dispatcher.PushDownload(deviceID, ad, chunkSize, models.TriggerDeviceRequest)
}

// handleClose runs when a socket's read pump exits. Only the transport that
// still owns the registry entry evicts it, so a superseded socket closing
// late cannot unregister its successor.
func (g *Gateway) handleClose(c *Conn) {
	deviceID := c.DeviceID()
	if deviceID == "" {
		logging.Debug().Str("connection_id", c.id).Msg("unregistered socket closed")
		return
	}
	if g.registry.UnregisterTransport(deviceID, c) {
		logging.Info().
			Str("device_id", deviceID).
			Str("connection_id", c.id).
			Msg("device disconnected")
	}
}
