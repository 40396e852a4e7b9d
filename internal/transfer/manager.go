// Streetcast - Fleet Display Advertising Dispatch
// Copyright 2026 Streetcast Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/streetcast/streetcast

package transfer

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/streetcast/streetcast/internal/logging"
	"github.com/streetcast/streetcast/internal/metrics"
)

// Manager owns all live transfer sessions, keyed by (device,
// advertisement). Sessions require no cross-device coordination; one mutex
// over the map is enough at fleet scale.
type Manager struct {
	mu       sync.Mutex
	sessions map[sessionKey]*Session
	now      func() time.Time
}

type sessionKey struct {
	deviceID string
	adID     string
}

// NewManager creates an empty session manager.
func NewManager() *Manager {
	return &Manager{
		sessions: make(map[sessionKey]*Session),
		now:      time.Now,
	}
}

// Track creates the session for (deviceID, adID) if absent and returns its
// current view. Re-tracking an existing session only refreshes activity,
// preserving acknowledged chunks so devices can resume after reconnecting.
func (m *Manager) Track(deviceID, adID string, totalChunks int, chunkSize int64) SessionInfo {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := sessionKey{deviceID: deviceID, adID: adID}
	s, ok := m.sessions[key]
	if !ok {
		s = newSession(deviceID, adID, totalChunks, chunkSize, m.now())
		m.sessions[key] = s
		metrics.TransferSessionsActive.Inc()
		logging.Debug().
			Str("device_id", deviceID).
			Str("advertisement_id", adID).
			Int("total_chunks", totalChunks).
			Msg("transfer session created")
	} else {
		s.LastActivity = m.now()
	}
	return s.info()
}

// Acknowledge records delivered chunk indices for the session. Unknown
// sessions are ignored (the device may have restarted mid-transfer after a
// server restart; chunk retrieval still works without a session). Returns
// the session view after the update, or false if no session exists.
func (m *Manager) Acknowledge(deviceID, adID string, indices []int) (SessionInfo, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[sessionKey{deviceID: deviceID, adID: adID}]
	if !ok {
		return SessionInfo{}, false
	}
	wasCompleted := s.State() == StateCompleted
	now := m.now()
	for _, i := range indices {
		s.acknowledge(i, now)
	}
	if !wasCompleted && s.State() == StateCompleted {
		metrics.TransferSessionsTotal.WithLabelValues("completed").Inc()
		logging.Info().
			Str("device_id", deviceID).
			Str("advertisement_id", adID).
			Int("total_chunks", s.TotalChunks).
			Msg("transfer completed")
	}
	return s.info(), true
}

// Touch refreshes a session's activity timestamp, keeping it clear of the
// abandonment sweep while the device is still fetching chunks.
func (m *Manager) Touch(deviceID, adID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sessions[sessionKey{deviceID: deviceID, adID: adID}]; ok {
		s.LastActivity = m.now()
	}
}

// Get returns the session view for (deviceID, adID).
func (m *Manager) Get(deviceID, adID string) (SessionInfo, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[sessionKey{deviceID: deviceID, adID: adID}]
	if !ok {
		return SessionInfo{}, false
	}
	return s.info(), true
}

// Snapshot returns all sessions ordered by device then advertisement.
func (m *Manager) Snapshot() []SessionInfo {
	m.mu.Lock()
	defer m.mu.Unlock()

	infos := make([]SessionInfo, 0, len(m.sessions))
	for _, s := range m.sessions {
		infos = append(infos, s.info())
	}
	sort.Slice(infos, func(i, j int) bool {
		if infos[i].DeviceID != infos[j].DeviceID {
			return infos[i].DeviceID < infos[j].DeviceID
		}
		return infos[i].AdvertisementID < infos[j].AdvertisementID
	})
	return infos
}

// sweep marks incomplete sessions idle past ttl as abandoned and removes
// terminal sessions (completed or abandoned) idle past ttl.
func (m *Manager) sweep(ttl time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := m.now().Add(-ttl)
	for key, s := range m.sessions {
		idle := s.LastActivity.Before(cutoff)
		switch s.State() {
		case StateCompleted, StateAbandoned:
			if idle {
				delete(m.sessions, key)
				metrics.TransferSessionsActive.Dec()
			}
		default:
			if idle {
				s.abandoned = true
				metrics.TransferSessionsTotal.WithLabelValues("abandoned").Inc()
				logging.Warn().
					Str("device_id", s.DeviceID).
					Str("advertisement_id", s.AdvertisementID).
					Int("acked_chunks", len(s.acked)).
					Int("total_chunks", s.TotalChunks).
					Msg("transfer session abandoned")
			}
		}
	}
}

// RunGC sweeps sessions every interval until ctx is cancelled. Intended to
// run as a supervised background service.
func (m *Manager) RunGC(ctx context.Context, ttl, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			m.sweep(ttl)
		}
	}
}
