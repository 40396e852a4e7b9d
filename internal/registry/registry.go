// Streetcast - Fleet Display Advertising Dispatch
// Copyright 2026 Streetcast Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/streetcast/streetcast

// Package registry tracks live device connections. It is the single source
// of truth for "is this device online" and holds at most one connection per
// device identifier. A new registration for the same identifier supersedes
// the previous connection, which silently stops receiving deliveries.
//
// All map mutation happens under one mutex, serializing register and
// unregister per key. Reads may be one event stale, which is acceptable for
// snapshots and online checks.
package registry

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/streetcast/streetcast/internal/logging"
	"github.com/streetcast/streetcast/internal/metrics"
	"github.com/streetcast/streetcast/internal/models"
)

// Transport is the send side of one live device connection. Send must not
// block on the device; implementations enqueue and drop when the peer
// cannot keep up.
type Transport interface {
	Send(event string, payload interface{}) error
	RemoteAddr() string
}

type connection struct {
	deviceID     string
	transport    Transport
	connectedAt  time.Time
	lastActivity time.Time
}

// EvictFunc is called for each connection removed by the liveness sweep,
// exactly once per eviction, outside the registry lock.
type EvictFunc func(deviceID string, t Transport)

// Registry is the process-wide device connection table.
type Registry struct {
	mu    sync.RWMutex
	conns map[string]*connection
	now   func() time.Time
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{
		conns: make(map[string]*connection),
		now:   time.Now,
	}
}

// Register inserts or overwrites the connection for deviceID. When a prior
// connection existed its transport is returned so the caller can notify it;
// the prior handle is already removed and can never receive deliveries
// through the registry again.
func (r *Registry) Register(deviceID string, t Transport) (superseded Transport) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if prev, ok := r.conns[deviceID]; ok {
		superseded = prev.transport
	}
	now := r.now()
	r.conns[deviceID] = &connection{
		deviceID:     deviceID,
		transport:    t,
		connectedAt:  now,
		lastActivity: now,
	}
	metrics.ConnectedDevices.Set(float64(len(r.conns)))
	return superseded
}

// Touch updates the last-activity timestamp for deviceID. Called on
// heartbeat and on any inbound traffic. Absent entries are ignored.
func (r *Registry) Touch(deviceID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.conns[deviceID]; ok {
		c.lastActivity = r.now()
	}
}

// Unregister removes the entry for deviceID. Idempotent.
func (r *Registry) Unregister(deviceID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.conns, deviceID)
	metrics.ConnectedDevices.Set(float64(len(r.conns)))
}

// UnregisterTransport removes the entry for deviceID only while it still
// owns transport t. A superseded connection closing late must not evict its
// successor. Reports whether an entry was removed.
func (r *Registry) UnregisterTransport(deviceID string, t Transport) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.conns[deviceID]
	if !ok || c.transport != t {
		return false
	}
	delete(r.conns, deviceID)
	metrics.ConnectedDevices.Set(float64(len(r.conns)))
	return true
}

// IsOnline reports whether deviceID has a live connection.
func (r *Registry) IsOnline(deviceID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.conns[deviceID]
	return ok
}

// Transport returns the current live transport for deviceID. Superseded
// handles are never returned.
func (r *Registry) Transport(deviceID string) (Transport, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.conns[deviceID]
	if !ok {
		return nil, false
	}
	return c.transport, true
}

// Len returns the number of live connections.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}

// Snapshot returns connection metadata ordered by device identifier.
func (r *Registry) Snapshot() []models.ConnectionInfo {
	r.mu.RLock()
	infos := make([]models.ConnectionInfo, 0, len(r.conns))
	for _, c := range r.conns {
		infos = append(infos, models.ConnectionInfo{
			DeviceID:     c.deviceID,
			RemoteAddr:   c.transport.RemoteAddr(),
			ConnectedAt:  c.connectedAt,
			LastActivity: c.lastActivity,
		})
	}
	r.mu.RUnlock()

	sort.Slice(infos, func(i, j int) bool { return infos[i].DeviceID < infos[j].DeviceID })
	return infos
}

// EvictStale removes every connection idle longer than timeout and invokes
// onEvict for each, outside the lock. Returns the number evicted.
func (r *Registry) EvictStale(timeout time.Duration, onEvict EvictFunc) int {
	cutoff := r.now().Add(-timeout)

	r.mu.Lock()
	var evicted []*connection
	for id, c := range r.conns {
		if c.lastActivity.Before(cutoff) {
			evicted = append(evicted, c)
			delete(r.conns, id)
		}
	}
	metrics.ConnectedDevices.Set(float64(len(r.conns)))
	r.mu.Unlock()

	for _, c := range evicted {
		logging.Info().
			Str("device_id", c.deviceID).
			Time("last_activity", c.lastActivity).
			Msg("connection evicted by liveness sweep")
		if onEvict != nil {
			onEvict(c.deviceID, c.transport)
		}
	}
	return len(evicted)
}

// RunSweeper evicts stale connections every interval until ctx is
// cancelled. Intended to run as a supervised background service.
func (r *Registry) RunSweeper(ctx context.Context, timeout, interval time.Duration, onEvict EvictFunc) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			r.EvictStale(timeout, onEvict)
		}
	}
}
