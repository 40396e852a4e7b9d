// Streetcast - Fleet Display Advertising Dispatch
// Copyright 2026 Streetcast Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/streetcast/streetcast

package dispatch

import (
	"errors"
	"sync"
	"testing"

	"github.com/streetcast/streetcast/internal/logging"
	"github.com/streetcast/streetcast/internal/models"
	"github.com/streetcast/streetcast/internal/registry"
)

func init() {
	logging.SetLogger(logging.NewTestLogger())
}

type sentMessage struct {
	event   string
	payload interface{}
}

type fakeTransport struct {
	mu     sync.Mutex
	sent   []sentMessage
	failed bool
}

func (f *fakeTransport) Send(event string, payload interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failed {
		return errors.New("connection closed")
	}
	f.sent = append(f.sent, sentMessage{event: event, payload: payload})
	return nil
}

func (f *fakeTransport) RemoteAddr() string { return "10.0.0.1:1234" }

func (f *fakeTransport) messages() []sentMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]sentMessage, len(f.sent))
	copy(out, f.sent)
	return out
}

func testAd() *models.Advertisement {
	return &models.Advertisement{
		ID:            "adv-001",
		Name:          "movie-trailer",
		VideoFilename: "movie_ad_15s.mp4",
		FileSize:      15 << 20,
		Priority:      10,
		Active:        true,
	}
}

func TestDeliverOffline(t *testing.T) {
	d := NewDispatcher(registry.New(), "http://127.0.0.1:8080", NewStats(0))

	if got := d.Deliver("taxi-AAB-1234-rooftop", EventPlayAd, nil); got != Offline {
		t.Fatalf("Deliver to unconnected device = %v, want Offline", got)
	}
}

func TestDeliverSendFailureReportsOffline(t *testing.T) {
	reg := registry.New()
	tr := &fakeTransport{failed: true}
	reg.Register("taxi-AAB-1234-rooftop", tr)

	d := NewDispatcher(reg, "http://127.0.0.1:8080", NewStats(0))
	if got := d.Deliver("taxi-AAB-1234-rooftop", EventPlayAd, nil); got != Offline {
		t.Fatalf("Deliver over failed transport = %v, want Offline", got)
	}
}

func TestNotifyLocationMatch(t *testing.T) {
	reg := registry.New()
	tr := &fakeTransport{}
	reg.Register("taxi-AAB-1234-rooftop", tr)

	stats := NewStats(0)
	d := NewDispatcher(reg, "http://127.0.0.1:8080", stats)

	p := models.Point{Longitude: 121.567, Latitude: 25.035}
	if got := d.NotifyLocationMatch("taxi-AAB-1234-rooftop", testAd(), p, models.TriggerLocationBased); got != Sent {
		t.Fatalf("NotifyLocationMatch = %v, want Sent", got)
	}

	msgs := tr.messages()
	if len(msgs) != 1 {
		t.Fatalf("got %d messages, want 1", len(msgs))
	}
	if msgs[0].event != EventPlayAd {
		t.Fatalf("event = %q, want %q", msgs[0].event, EventPlayAd)
	}
	cmd, ok := msgs[0].payload.(models.PlayAdCommand)
	if !ok {
		t.Fatalf("payload is %T, want PlayAdCommand", msgs[0].payload)
	}
	if cmd.Command != models.CommandPlayVideo {
		t.Errorf("command = %q, want %q", cmd.Command, models.CommandPlayVideo)
	}
	if cmd.Trigger != models.TriggerLocationBased {
		t.Errorf("trigger = %q, want %q", cmd.Trigger, models.TriggerLocationBased)
	}
	if cmd.Priority != nil {
		t.Errorf("priority should be absent on location-triggered plays, got %d", *cmd.Priority)
	}
	if cmd.Location == nil || cmd.Location.Longitude != p.Longitude {
		t.Errorf("location not echoed: %+v", cmd.Location)
	}
	if stats.AdsDispatched.Load() != 1 {
		t.Errorf("AdsDispatched = %d, want 1", stats.AdsDispatched.Load())
	}
}

func TestDeliverOverrideMixedTargets(t *testing.T) {
	reg := registry.New()
	online := &fakeTransport{}
	reg.Register("taxi-AAB-1234-rooftop", online)
	reg.Register("taxi-XYZ-5678-rooftop", &fakeTransport{failed: true})

	d := NewDispatcher(reg, "http://127.0.0.1:8080", NewStats(0))
	ad := testAd()
	results := d.DeliverOverride([]string{
		"taxi-AAB-1234-rooftop",
		"taxi-XYZ-5678-rooftop",
		"taxi-DEF-9999-rooftop",
	}, ad)

	if len(results.Sent) != 1 || results.Sent[0] != "taxi-AAB-1234-rooftop" {
		t.Fatalf("sent = %v, want [taxi-AAB-1234-rooftop]", results.Sent)
	}
	if len(results.Offline) != 2 {
		t.Fatalf("offline = %v, want 2 devices", results.Offline)
	}

	msgs := online.messages()
	if len(msgs) != 1 {
		t.Fatalf("online device got %d messages, want 1", len(msgs))
	}
	cmd := msgs[0].payload.(models.PlayAdCommand)
	if cmd.Trigger != models.TriggerAdminOverride {
		t.Errorf("trigger = %q, want %q", cmd.Trigger, models.TriggerAdminOverride)
	}
	if cmd.Priority == nil || *cmd.Priority != ad.Priority {
		t.Errorf("priority = %v, want %d", cmd.Priority, ad.Priority)
	}
}

func TestPushDownloadComposesURLs(t *testing.T) {
	reg := registry.New()
	tr := &fakeTransport{}
	reg.Register("taxi-AAB-1234-rooftop", tr)

	d := NewDispatcher(reg, "http://media.example.com", NewStats(0))
	ad := testAd()
	if got := d.PushDownload("taxi-AAB-1234-rooftop", ad, 1<<20, models.TriggerAdminOverride); got != Sent {
		t.Fatalf("PushDownload = %v, want Sent", got)
	}

	cmd := tr.messages()[0].payload.(models.DownloadVideoCommand)
	if cmd.Command != models.CommandDownloadVideo {
		t.Errorf("command = %q, want %q", cmd.Command, models.CommandDownloadVideo)
	}
	if cmd.TotalChunks != 15 {
		t.Errorf("total_chunks = %d, want 15", cmd.TotalChunks)
	}
	wantInfo := "http://media.example.com/api/v1/device/videos/adv-001/download"
	if cmd.DownloadInfoURL != wantInfo {
		t.Errorf("download_info_url = %q, want %q", cmd.DownloadInfoURL, wantInfo)
	}
	wantChunk := "http://media.example.com/api/v1/device/videos/adv-001/chunk"
	if cmd.DownloadURL != wantChunk {
		t.Errorf("download_url = %q, want %q", cmd.DownloadURL, wantChunk)
	}
	if cmd.Priority == nil || *cmd.Priority != ad.Priority {
		t.Errorf("priority = %v, want %d on override pushes", cmd.Priority, ad.Priority)
	}
}

func TestForceDisconnectNotifiesTransport(t *testing.T) {
	tr := &fakeTransport{}
	d := NewDispatcher(registry.New(), "http://127.0.0.1:8080", NewStats(0))

	d.ForceDisconnect(tr, "taxi-AAB-1234-rooftop", models.DisconnectReasonSuperseded)

	msgs := tr.messages()
	if len(msgs) != 1 || msgs[0].event != EventForceDisconnect {
		t.Fatalf("messages = %+v, want one force_disconnect", msgs)
	}
	fd := msgs[0].payload.(models.ForceDisconnect)
	if fd.Reason != models.DisconnectReasonSuperseded {
		t.Errorf("reason = %q, want %q", fd.Reason, models.DisconnectReasonSuperseded)
	}
}
