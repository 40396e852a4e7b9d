// Streetcast - Fleet Display Advertising Dispatch
// Copyright 2026 Streetcast Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/streetcast/streetcast

// Package dispatch delivers playback and download commands to devices over
// their live connections. Delivery is fire-and-forget at the transport
// layer; playback acknowledgments arrive asynchronously as separate inbound
// events and are never awaited here.
package dispatch

import (
	"fmt"
	"time"

	"github.com/streetcast/streetcast/internal/logging"
	"github.com/streetcast/streetcast/internal/metrics"
	"github.com/streetcast/streetcast/internal/models"
	"github.com/streetcast/streetcast/internal/registry"
	"github.com/streetcast/streetcast/internal/transfer"
)

// Outcome is the result of one delivery attempt. Offline is a normal
// outcome, not an error; the core never retries automatically.
type Outcome int

// Delivery outcomes.
const (
	Sent Outcome = iota
	Offline
)

// Outbound event names on the device channel.
const (
	EventPlayAd          = "play_ad"
	EventDownloadVideo   = "download_video"
	EventForceDisconnect = "force_disconnect"
)

// Dispatcher pushes commands to devices through the connection registry.
type Dispatcher struct {
	registry *registry.Registry
	baseURL  string
	stats    *Stats
}

// NewDispatcher creates a dispatcher. baseURL is the externally visible
// prefix for chunk download links embedded in download_video commands.
func NewDispatcher(reg *registry.Registry, baseURL string, stats *Stats) *Dispatcher {
	return &Dispatcher{registry: reg, baseURL: baseURL, stats: stats}
}

// Deliver sends one event to the device's live connection, or reports
// Offline without side effect when no connection exists.
func (d *Dispatcher) Deliver(deviceID, event string, payload interface{}) Outcome {
	t, ok := d.registry.Transport(deviceID)
	if !ok {
		return Offline
	}
	if err := t.Send(event, payload); err != nil {
		// The connection is going away; the liveness sweep or the close
		// handler will clean it up. The device counts as offline now.
		logging.Warn().Err(err).
			Str("device_id", deviceID).
			Str("event", event).
			Msg("transport send failed")
		return Offline
	}
	return Sent
}

// NotifyLocationMatch pushes a play_ad command for a geo-fence match,
// tagging it with the trigger so the device can distinguish causes.
// Returns the delivery outcome.
func (d *Dispatcher) NotifyLocationMatch(deviceID string, ad *models.Advertisement, p models.Point, trigger string) Outcome {
	cmd := models.NewPlayAdCommand(deviceID, ad, trigger)
	cmd.Location = &p

	outcome := d.Deliver(deviceID, EventPlayAd, cmd)
	metrics.RecordDelivery(trigger, outcome == Sent)
	if outcome == Sent {
		d.stats.AdsDispatched.Add(1)
		logging.Info().
			Str("device_id", deviceID).
			Str("advertisement_id", ad.ID).
			Str("trigger", trigger).
			Msg("play command delivered")
	}
	return outcome
}

// DeliverOverride pushes one advertisement to each target device,
// aggregating per-device outcomes. A device being offline never blocks or
// rolls back delivery to the rest; the batch is explicitly not atomic.
func (d *Dispatcher) DeliverOverride(deviceIDs []string, ad *models.Advertisement) models.OverrideResults {
	results := models.OverrideResults{
		Sent:    []string{},
		Offline: []string{},
	}

	for _, id := range deviceIDs {
		cmd := models.NewPlayAdCommand(id, ad, models.TriggerAdminOverride)
		priority := ad.Priority
		cmd.Priority = &priority

		outcome := d.Deliver(id, EventPlayAd, cmd)
		metrics.RecordDelivery(models.TriggerAdminOverride, outcome == Sent)
		if outcome == Sent {
			results.Sent = append(results.Sent, id)
		} else {
			results.Offline = append(results.Offline, id)
		}
	}

	metrics.OverridesTotal.Inc()
	d.stats.OverridesDelivered.Add(int64(len(results.Sent)))
	logging.Info().
		Str("advertisement_id", ad.ID).
		Int("sent", len(results.Sent)).
		Int("offline", len(results.Offline)).
		Msg("override delivered")
	return results
}

// PushDownload sends a download_video command instructing the device to
// fetch the advertisement's video over the chunked HTTP endpoints.
func (d *Dispatcher) PushDownload(deviceID string, ad *models.Advertisement, chunkSize int64, trigger string) Outcome {
	cmd := models.DownloadVideoCommand{
		Command:           models.CommandDownloadVideo,
		AdvertisementID:   ad.ID,
		AdvertisementName: ad.Name,
		VideoFilename:     ad.VideoFilename,
		FileSize:          ad.FileSize,
		ChunkSize:         chunkSize,
		TotalChunks:       transfer.ChunkCount(ad.FileSize, chunkSize),
		DownloadURL:       d.chunkURL(ad.ID),
		DownloadInfoURL:   d.downloadInfoURL(ad.ID),
		Trigger:           trigger,
		Timestamp:         time.Now().UTC(),
	}
	if trigger == models.TriggerAdminOverride {
		priority := ad.Priority
		cmd.Priority = &priority
	}

	outcome := d.Deliver(deviceID, EventDownloadVideo, cmd)
	metrics.RecordDelivery(trigger, outcome == Sent)
	return outcome
}

// ForceDisconnect sends a force_disconnect notice to a transport that is no
// longer (or about to stop) being the device's live connection. Takes the
// transport directly because the registry may already hold a successor.
func (d *Dispatcher) ForceDisconnect(t registry.Transport, deviceID, reason string) {
	if err := t.Send(EventForceDisconnect, models.ForceDisconnect{Reason: reason}); err != nil {
		logging.Debug().Err(err).
			Str("device_id", deviceID).
			Msg("force_disconnect send failed")
	}
	metrics.ForceDisconnectsTotal.WithLabelValues(reason).Inc()
}

func (d *Dispatcher) downloadInfoURL(adID string) string {
	return fmt.Sprintf("%s/api/v1/device/videos/%s/download", d.baseURL, adID)
}

func (d *Dispatcher) chunkURL(adID string) string {
	return fmt.Sprintf("%s/api/v1/device/videos/%s/chunk", d.baseURL, adID)
}
