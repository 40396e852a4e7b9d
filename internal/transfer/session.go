// Streetcast - Fleet Display Advertising Dispatch
// Copyright 2026 Streetcast Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/streetcast/streetcast

package transfer

import (
	"time"
)

// State is the lifecycle state of one transfer session.
type State string

// Session lifecycle states. Initiated moves to InProgress on the first
// acknowledgment and to Completed when every chunk is acknowledged.
// Abandoned is reached by the GC sweep after the inactivity TTL.
const (
	StateInitiated  State = "initiated"
	StateInProgress State = "in_progress"
	StateCompleted  State = "completed"
	StateAbandoned  State = "abandoned"
)

// Session tracks one device's download of one advertisement's video. The
// session is advisory state, not a gatekeeper: chunk retrieval stays
// stateless and idempotent whether or not a session exists.
type Session struct {
	DeviceID        string    `json:"device_id"`
	AdvertisementID string    `json:"advertisement_id"`
	TotalChunks     int       `json:"total_chunks"`
	ChunkSize       int64     `json:"chunk_size"`
	CreatedAt       time.Time `json:"created_at"`
	LastActivity    time.Time `json:"last_activity"`

	acked     map[int]struct{}
	abandoned bool
}

func newSession(deviceID, adID string, totalChunks int, chunkSize int64, now time.Time) *Session {
	return &Session{
		DeviceID:        deviceID,
		AdvertisementID: adID,
		TotalChunks:     totalChunks,
		ChunkSize:       chunkSize,
		CreatedAt:       now,
		LastActivity:    now,
		acked:           make(map[int]struct{}),
	}
}

// acknowledge records one delivered chunk index. Indices outside
// [0, TotalChunks) are ignored; repeats are harmless. Acknowledgment order
// is irrelevant.
func (s *Session) acknowledge(index int, now time.Time) {
	if index < 0 || index >= s.TotalChunks {
		return
	}
	s.acked[index] = struct{}{}
	s.LastActivity = now
}

// State derives the session state from the acknowledged set.
func (s *Session) State() State {
	switch {
	case s.abandoned:
		return StateAbandoned
	case s.TotalChunks > 0 && len(s.acked) >= s.TotalChunks:
		return StateCompleted
	case len(s.acked) > 0:
		return StateInProgress
	default:
		return StateInitiated
	}
}

// AckedChunks returns how many distinct chunks have been acknowledged.
func (s *Session) AckedChunks() int {
	return len(s.acked)
}

// MissingChunks returns the chunk indices not yet acknowledged, ascending.
func (s *Session) MissingChunks() []int {
	var missing []int
	for i := 0; i < s.TotalChunks; i++ {
		if _, ok := s.acked[i]; !ok {
			missing = append(missing, i)
		}
	}
	return missing
}

// SessionInfo is the JSON-safe view of a session for admin endpoints.
type SessionInfo struct {
	DeviceID        string    `json:"device_id"`
	AdvertisementID string    `json:"advertisement_id"`
	State           State     `json:"state"`
	TotalChunks     int       `json:"total_chunks"`
	AckedChunks     int       `json:"acked_chunks"`
	ChunkSize       int64     `json:"chunk_size"`
	CreatedAt       time.Time `json:"created_at"`
	LastActivity    time.Time `json:"last_activity"`
}

func (s *Session) info() SessionInfo {
	return SessionInfo{
		DeviceID:        s.DeviceID,
		AdvertisementID: s.AdvertisementID,
		State:           s.State(),
		TotalChunks:     s.TotalChunks,
		AckedChunks:     len(s.acked),
		ChunkSize:       s.ChunkSize,
		CreatedAt:       s.CreatedAt,
		LastActivity:    s.LastActivity,
	}
}
