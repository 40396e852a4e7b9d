// Streetcast - Fleet Display Advertising Dispatch
// Copyright 2026 Streetcast Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/streetcast/streetcast

package transfer

import (
	"io"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/streetcast/streetcast/internal/logging"
	"github.com/streetcast/streetcast/internal/metrics"
)

func init() {
	logging.Init(logging.Config{Level: "disabled", Output: io.Discard})
}

func TestSessionLifecycle(t *testing.T) {
	m := NewManager()

	info := m.Track("taxi-001", "adv-001", 3, 10)
	if info.State != StateInitiated {
		t.Errorf("new session state = %s, want %s", info.State, StateInitiated)
	}

	info, ok := m.Acknowledge("taxi-001", "adv-001", []int{0})
	if !ok {
		t.Fatal("Acknowledge returned no session")
	}
	if info.State != StateInProgress || info.AckedChunks != 1 {
		t.Errorf("after one ack: state = %s, acked = %d", info.State, info.AckedChunks)
	}

	info, _ = m.Acknowledge("taxi-001", "adv-001", []int{1, 2})
	if info.State != StateCompleted {
		t.Errorf("after all acks: state = %s, want %s", info.State, StateCompleted)
	}
}

func TestAcknowledgeOutOfOrder(t *testing.T) {
	m := NewManager()
	m.Track("taxi-001", "adv-001", 3, 10)

	info, _ := m.Acknowledge("taxi-001", "adv-001", []int{2, 0, 1})
	if info.State != StateCompleted {
		t.Errorf("out-of-order acks: state = %s, want %s", info.State, StateCompleted)
	}
}

func TestAcknowledgeIdempotentAndBounded(t *testing.T) {
	m := NewManager()
	m.Track("taxi-001", "adv-001", 3, 10)

	// Repeats and out-of-range indices never inflate the acked set.
	info, _ := m.Acknowledge("taxi-001", "adv-001", []int{0, 0, 0, 5, -1, 99})
	if info.AckedChunks != 1 {
		t.Errorf("acked = %d, want 1", info.AckedChunks)
	}
	if info.State != StateInProgress {
		t.Errorf("state = %s, want %s", info.State, StateInProgress)
	}
}

func TestAcknowledgeUnknownSession(t *testing.T) {
	m := NewManager()
	if _, ok := m.Acknowledge("taxi-404", "adv-001", []int{0}); ok {
		t.Error("acknowledging an untracked session must report no session")
	}
}

func TestTrackPreservesProgress(t *testing.T) {
	m := NewManager()
	m.Track("taxi-001", "adv-001", 3, 10)
	m.Acknowledge("taxi-001", "adv-001", []int{0, 2})

	// Device reconnects and re-requests download info.
	info := m.Track("taxi-001", "adv-001", 3, 10)
	if info.AckedChunks != 2 {
		t.Errorf("re-track lost progress: acked = %d, want 2", info.AckedChunks)
	}
	if info.State != StateInProgress {
		t.Errorf("state = %s, want %s", info.State, StateInProgress)
	}
}

func TestSweepAbandonsAndCollects(t *testing.T) {
	m := NewManager()
	current := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return current }

	m.Track("taxi-001", "adv-001", 3, 10)
	m.Acknowledge("taxi-001", "adv-001", []int{0})

	// Idle past the TTL: incomplete session becomes abandoned.
	current = current.Add(31 * time.Minute)
	m.sweep(30 * time.Minute)

	info, ok := m.Get("taxi-001", "adv-001")
	if !ok {
		t.Fatal("session removed too early")
	}
	if info.State != StateAbandoned {
		t.Errorf("state = %s, want %s", info.State, StateAbandoned)
	}

	// Another TTL later the abandoned session is collected.
	current = current.Add(31 * time.Minute)
	m.sweep(30 * time.Minute)
	if _, ok := m.Get("taxi-001", "adv-001"); ok {
		t.Error("abandoned session not collected")
	}
}

func TestSessionMetrics(t *testing.T) {
	m := NewManager()
	current := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return current }

	activeBefore := testutil.ToFloat64(metrics.TransferSessionsActive)
	completedBefore := testutil.ToFloat64(metrics.TransferSessionsTotal.WithLabelValues("completed"))
	abandonedBefore := testutil.ToFloat64(metrics.TransferSessionsTotal.WithLabelValues("abandoned"))

	m.Track("taxi-001", "adv-001", 3, 10)
	m.Track("taxi-002", "adv-001", 3, 10)
	if got := testutil.ToFloat64(metrics.TransferSessionsActive); got != activeBefore+2 {
		t.Errorf("active gauge after two tracks = %v, want %v", got, activeBefore+2)
	}

	// Re-tracking and repeated completion acks must not double count.
	m.Track("taxi-001", "adv-001", 3, 10)
	m.Acknowledge("taxi-001", "adv-001", []int{0, 1, 2})
	m.Acknowledge("taxi-001", "adv-001", []int{2})
	if got := testutil.ToFloat64(metrics.TransferSessionsTotal.WithLabelValues("completed")); got != completedBefore+1 {
		t.Errorf("completed counter = %v, want %v", got, completedBefore+1)
	}

	// First sweep abandons the idle incomplete session, second collects both.
	current = current.Add(31 * time.Minute)
	m.sweep(30 * time.Minute)
	if got := testutil.ToFloat64(metrics.TransferSessionsTotal.WithLabelValues("abandoned")); got != abandonedBefore+1 {
		t.Errorf("abandoned counter = %v, want %v", got, abandonedBefore+1)
	}

	current = current.Add(31 * time.Minute)
	m.sweep(30 * time.Minute)
	if got := testutil.ToFloat64(metrics.TransferSessionsActive); got != activeBefore {
		t.Errorf("active gauge after collection = %v, want %v", got, activeBefore)
	}
}

func TestSnapshotOrdering(t *testing.T) {
	m := NewManager()
	m.Track("taxi-b", "adv-002", 1, 10)
	m.Track("taxi-a", "adv-001", 1, 10)
	m.Track("taxi-a", "adv-002", 1, 10)

	snap := m.Snapshot()
	if len(snap) != 3 {
		t.Fatalf("snapshot len = %d, want 3", len(snap))
	}
	if snap[0].DeviceID != "taxi-a" || snap[0].AdvertisementID != "adv-001" {
		t.Errorf("snapshot[0] = %s/%s", snap[0].DeviceID, snap[0].AdvertisementID)
	}
	if snap[2].DeviceID != "taxi-b" {
		t.Errorf("snapshot[2] device = %s, want taxi-b", snap[2].DeviceID)
	}
}
