// Streetcast - Fleet Display Advertising Dispatch
// Copyright 2026 Streetcast Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/streetcast/streetcast

// Package config loads and validates Streetcast server configuration from
// layered sources: built-in defaults, an optional YAML file, and environment
// variables, in increasing order of precedence.
package config

import (
	"time"
)

// Config is the root configuration for the dispatch server.
type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Store     StoreConfig     `koanf:"store"`
	Assets    AssetsConfig    `koanf:"assets"`
	Heartbeat HeartbeatConfig `koanf:"heartbeat"`
	Transfer  TransferConfig  `koanf:"transfer"`
	Security  SecurityConfig  `koanf:"security"`
	Logging   LoggingConfig   `koanf:"logging"`
}

// ServerConfig holds the HTTP/WebSocket listener settings.
type ServerConfig struct {
	Host    string        `koanf:"host"`
	Port    int           `koanf:"port"`
	Timeout time.Duration `koanf:"timeout"`
	// PublicURL is the base URL devices use to reach the chunk download
	// endpoints, e.g. "http://ads.example.com:8080". Empty means derive
	// from Host and Port.
	PublicURL string `koanf:"public_url"`
}

// StoreConfig holds the Badger entity store settings.
type StoreConfig struct {
	Path string `koanf:"path"`
	// InMemory runs Badger without disk persistence. Used by tests and
	// throwaway deployments.
	InMemory bool `koanf:"in_memory"`
	// SeedSampleData loads the bundled Taipei sample fleet on first start
	// when the store is empty.
	SeedSampleData bool `koanf:"seed_sample_data"`
	// GCInterval is how often Badger value-log garbage collection runs.
	GCInterval time.Duration `koanf:"gc_interval"`
}

// AssetsConfig locates video files and bounds chunked downloads.
type AssetsConfig struct {
	Dir              string `koanf:"dir"`
	DefaultChunkSize int64  `koanf:"default_chunk_size"`
	MaxChunkSize     int64  `koanf:"max_chunk_size"`
}

// HeartbeatConfig controls device liveness tracking.
type HeartbeatConfig struct {
	// Interval is how often devices are expected to send heartbeats.
	Interval time.Duration `koanf:"interval"`
	// Timeout is how long a connection may go without activity before the
	// liveness sweep evicts it. Recommended: 3x Interval.
	Timeout time.Duration `koanf:"timeout"`
	// SweepInterval is how often the eviction sweep runs.
	SweepInterval time.Duration `koanf:"sweep_interval"`
}

// TransferConfig controls chunked download session bookkeeping.
type TransferConfig struct {
	// SessionTTL is how long an incomplete transfer session survives
	// without activity before it is marked abandoned and collected.
	SessionTTL time.Duration `koanf:"session_ttl"`
	// GCInterval is how often abandoned and completed sessions are swept.
	GCInterval time.Duration `koanf:"gc_interval"`
}

// SecurityConfig holds CORS and rate-limit settings. Device and operator
// authentication is out of scope; these are transport-level guards only.
type SecurityConfig struct {
	CORSOrigins     []string      `koanf:"cors_origins"`
	RateLimitReqs   int           `koanf:"rate_limit_reqs"`
	RateLimitWindow time.Duration `koanf:"rate_limit_window"`
	// LocationRatePerSec bounds location_update events per device
	// connection; excess updates are dropped without disconnecting.
	LocationRatePerSec float64 `koanf:"location_rate_per_sec"`
	LocationBurst      int     `koanf:"location_burst"`
}

// LoggingConfig mirrors logging.Config for the koanf layer.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// defaultConfig returns the built-in defaults, applied before file and
// environment layers.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:      "0.0.0.0",
			Port:      8080,
			Timeout:   30 * time.Second,
			PublicURL: "",
		},
		Store: StoreConfig{
			Path:           "/data/streetcast",
			InMemory:       false,
			SeedSampleData: false,
			GCInterval:     10 * time.Minute,
		},
		Assets: AssetsConfig{
			Dir:              "/data/videos",
			DefaultChunkSize: 1 << 20,  // 1MB
			MaxChunkSize:     16 << 20, // 16MB
		},
		Heartbeat: HeartbeatConfig{
			Interval:      30 * time.Second,
			Timeout:       90 * time.Second,
			SweepInterval: 15 * time.Second,
		},
		Transfer: TransferConfig{
			SessionTTL: 30 * time.Minute,
			GCInterval: 5 * time.Minute,
		},
		Security: SecurityConfig{
			CORSOrigins:        []string{"*"},
			RateLimitReqs:      100,
			RateLimitWindow:    time.Minute,
			LocationRatePerSec: 2,
			LocationBurst:      5,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
	}
}
