// Streetcast - Fleet Display Advertising Dispatch
// Copyright 2026 Streetcast Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/streetcast/streetcast

// Package models defines the core Streetcast entities (devices,
// advertisements, campaigns), the wire command payloads pushed to devices,
// and the standard HTTP response envelope.
package models

import (
	"time"
)

// Point is a WGS84 coordinate pair.
type Point struct {
	Longitude float64 `json:"longitude"`
	Latitude  float64 `json:"latitude"`
}

// Valid reports whether the coordinates fall within WGS84 bounds.
func (p Point) Valid() bool {
	return p.Longitude >= -180 && p.Longitude <= 180 &&
		p.Latitude >= -90 && p.Latitude <= 90
}

// Polygon is a closed ring of coordinates. The first and last vertices are
// logically coincident; Contains treats the ring as closed whether or not
// the closing vertex is repeated. A valid ring has at least 3 distinct
// vertices. Antimeridian-crossing rings are not supported.
type Polygon []Point

// Device is a fleet-mounted display unit.
//
// Devices are provisioned out of band; the dispatch core only reads them and
// updates LastLocation as location updates arrive. Online state is never
// stored here, it is derived from the connection registry.
type Device struct {
	ID           string     `json:"device_id" validate:"required"`
	Class        string     `json:"device_class"`
	Groups       []string   `json:"groups"`
	LastLocation *Point     `json:"last_location,omitempty"`
	LastSeenAt   *time.Time `json:"last_seen_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}

// InGroups reports whether the device belongs to at least one of the given
// target groups. An empty target list means "applies to all devices".
func (d *Device) InGroups(targets []string) bool {
	if len(targets) == 0 {
		return true
	}
	for _, t := range targets {
		for _, g := range d.Groups {
			if g == t {
				return true
			}
		}
	}
	return false
}

// Advertisement is a video asset that can be pushed to devices.
type Advertisement struct {
	ID            string        `json:"advertisement_id" validate:"required"`
	Name          string        `json:"advertisement_name"`
	VideoFilename string        `json:"video_filename" validate:"required"`
	FileSize      int64         `json:"file_size"`
	Duration      time.Duration `json:"duration"`
	TargetGroups  []string      `json:"target_groups"`
	Priority      int           `json:"priority"`
	Active        bool          `json:"active"`
}

// ScheduleWindow bounds when a campaign is eligible. A nil window means
// always eligible.
type ScheduleWindow struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Contains reports whether t falls inside the window, inclusive at both
// ends.
func (w *ScheduleWindow) Contains(t time.Time) bool {
	return !t.Before(w.Start) && !t.After(w.End)
}

// Campaign binds one advertisement to a geo-fenced region, a target group
// filter, and a priority. It is the join between "where/when" and "what to
// show".
type Campaign struct {
	ID              string          `json:"campaign_id" validate:"required"`
	Name            string          `json:"name"`
	AdvertisementID string          `json:"advertisement_id" validate:"required"`
	GeoFence        Polygon         `json:"geo_fence" validate:"min=3"`
	TargetGroups    []string        `json:"target_groups"`
	Priority        int             `json:"priority"`
	Active          bool            `json:"active"`
	Schedule        *ScheduleWindow `json:"schedule,omitempty"`
}

// EligibleAt reports whether the campaign is active and inside its schedule
// window (if any) at time t.
func (c *Campaign) EligibleAt(t time.Time) bool {
	if !c.Active {
		return false
	}
	if c.Schedule == nil {
		return true
	}
	return c.Schedule.Contains(t)
}

// ConnectionInfo is the observable metadata of one live device connection,
// as returned by registry snapshots. The transport handle itself is never
// exposed.
type ConnectionInfo struct {
	DeviceID     string    `json:"device_id"`
	RemoteAddr   string    `json:"remote_addr"`
	ConnectedAt  time.Time `json:"connected_at"`
	LastActivity time.Time `json:"last_activity"`
}
