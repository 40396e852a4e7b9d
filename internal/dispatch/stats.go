// Streetcast - Fleet Display Advertising Dispatch
// Copyright 2026 Streetcast Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/streetcast/streetcast

package dispatch

import "sync/atomic"

// Stats holds process-lifetime counters surfaced by the stats overview
// endpoint. Separate from the Prometheus metrics, which are scrape-oriented
// and not readable back.
type Stats struct {
	LocationUpdates    atomic.Int64
	AdsDispatched      atomic.Int64
	OverridesDelivered atomic.Int64
	ChunksServed       atomic.Int64
	startedAt          atomic.Int64
}

// NewStats creates a counter set anchored at startUnix for uptime
// computation.
func NewStats(startUnix int64) *Stats {
	s := &Stats{}
	s.startedAt.Store(startUnix)
	return s
}

// StartedAt returns the Unix timestamp the counters were anchored at.
func (s *Stats) StartedAt() int64 {
	return s.startedAt.Load()
}
