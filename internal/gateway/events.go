// Streetcast - Fleet Display Advertising Dispatch
// Copyright 2026 Streetcast Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/streetcast/streetcast

package gateway

import (
	"time"

	"github.com/goccy/go-json"
)

// Envelope is the wire framing for every message in both directions.
type Envelope struct {
	Type string      `json:"type"`
	Data interface{} `json:"data,omitempty"`
}

// inboundEnvelope defers payload decoding until the event type is known.
type inboundEnvelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// Inbound event types.
const (
	EventRegister        = "register"
	EventLocationUpdate  = "location_update"
	EventHeartbeat       = "heartbeat"
	EventDownloadStatus  = "download_status"
	EventDownloadRequest = "download_request"
	EventPing            = "ping"
)

// Outbound event types.
const (
	EventConnectionEstablished = "connection_established"
	EventRegistrationSuccess   = "registration_success"
	EventRegistrationError     = "registration_error"
	EventLocationAck           = "location_ack"
	EventLocationError         = "location_error"
	EventHeartbeatAck          = "heartbeat_ack"
	EventDownloadStatusAck     = "download_status_ack"
	EventDownloadRequestError  = "download_request_error"
	EventPong                  = "pong"
)

type registerPayload struct {
	DeviceID string `json:"device_id"`
}

type locationUpdatePayload struct {
	DeviceID  string   `json:"device_id"`
	Longitude *float64 `json:"longitude"`
	Latitude  *float64 `json:"latitude"`
}

type heartbeatPayload struct {
	DeviceID string `json:"device_id"`
}

type downloadStatusPayload struct {
	DeviceID         string  `json:"device_id"`
	AdvertisementID  string  `json:"advertisement_id"`
	Status           string  `json:"status"`
	Progress         float64 `json:"progress"`
	DownloadedChunks []int   `json:"downloaded_chunks"`
	TotalChunks      int     `json:"total_chunks"`
	ErrorMessage     string  `json:"error_message,omitempty"`
}

type downloadRequestPayload struct {
	DeviceID        string `json:"device_id"`
	AdvertisementID string `json:"advertisement_id"`
	ChunkSize       int64  `json:"chunk_size,omitempty"`
}

type connectionEstablished struct {
	Message      string    `json:"message"`
	ConnectionID string    `json:"connection_id"`
	Timestamp    time.Time `json:"timestamp"`
}

type registrationSuccess struct {
	DeviceID  string    `json:"device_id"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

type errorPayload struct {
	Error string `json:"error"`
}

type locationAck struct {
	Message       string    `json:"message"`
	VideoFilename string    `json:"video_filename,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
}

type heartbeatAck struct {
	DeviceID  string    `json:"device_id"`
	Timestamp time.Time `json:"timestamp"`
}

type downloadStatusAck struct {
	AdvertisementID string    `json:"advertisement_id"`
	Status          string    `json:"status"`
	AckedChunks     int       `json:"acked_chunks"`
	TotalChunks     int       `json:"total_chunks"`
	Timestamp       time.Time `json:"timestamp"`
}

type downloadRequestError struct {
	Error           string `json:"error"`
	AdvertisementID string `json:"advertisement_id,omitempty"`
}
