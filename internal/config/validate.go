// Streetcast - Fleet Display Advertising Dispatch
// Copyright 2026 Streetcast Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/streetcast/streetcast

package config

import (
	"fmt"
	"strings"
)

// Validate checks that the configuration is internally consistent. It is
// called by Load after all layers are applied.
func (c *Config) Validate() error {
	if err := c.validateServer(); err != nil {
		return err
	}
	if err := c.validateStore(); err != nil {
		return err
	}
	if err := c.validateAssets(); err != nil {
		return err
	}
	if err := c.validateHeartbeat(); err != nil {
		return err
	}
	if err := c.validateTransfer(); err != nil {
		return err
	}
	if err := c.validateSecurity(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateServer() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("HTTP_PORT must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.Server.Timeout <= 0 {
		return fmt.Errorf("HTTP_TIMEOUT must be positive, got %s", c.Server.Timeout)
	}
	if c.Server.PublicURL != "" &&
		!strings.HasPrefix(c.Server.PublicURL, "http://") &&
		!strings.HasPrefix(c.Server.PublicURL, "https://") {
		return fmt.Errorf("SERVER_PUBLIC_URL must start with http:// or https://")
	}
	return nil
}

func (c *Config) validateStore() error {
	if !c.Store.InMemory && c.Store.Path == "" {
		return fmt.Errorf("STORE_PATH is required unless STORE_IN_MEMORY=true")
	}
	if c.Store.GCInterval <= 0 {
		return fmt.Errorf("STORE_GC_INTERVAL must be positive, got %s", c.Store.GCInterval)
	}
	return nil
}

func (c *Config) validateAssets() error {
	if c.Assets.Dir == "" {
		return fmt.Errorf("ASSETS_DIR is required")
	}
	if c.Assets.DefaultChunkSize <= 0 {
		return fmt.Errorf("DEFAULT_CHUNK_SIZE must be positive, got %d", c.Assets.DefaultChunkSize)
	}
	if c.Assets.MaxChunkSize < c.Assets.DefaultChunkSize {
		return fmt.Errorf("MAX_CHUNK_SIZE (%d) must be >= DEFAULT_CHUNK_SIZE (%d)",
			c.Assets.MaxChunkSize, c.Assets.DefaultChunkSize)
	}
	return nil
}

func (c *Config) validateHeartbeat() error {
	if c.Heartbeat.Interval <= 0 {
		return fmt.Errorf("HEARTBEAT_INTERVAL must be positive, got %s", c.Heartbeat.Interval)
	}
	if c.Heartbeat.Timeout < c.Heartbeat.Interval {
		return fmt.Errorf("HEARTBEAT_TIMEOUT (%s) must be >= HEARTBEAT_INTERVAL (%s)",
			c.Heartbeat.Timeout, c.Heartbeat.Interval)
	}
	if c.Heartbeat.SweepInterval <= 0 {
		return fmt.Errorf("HEARTBEAT_SWEEP_INTERVAL must be positive, got %s", c.Heartbeat.SweepInterval)
	}
	return nil
}

func (c *Config) validateTransfer() error {
	if c.Transfer.SessionTTL <= 0 {
		return fmt.Errorf("TRANSFER_SESSION_TTL must be positive, got %s", c.Transfer.SessionTTL)
	}
	if c.Transfer.GCInterval <= 0 {
		return fmt.Errorf("TRANSFER_GC_INTERVAL must be positive, got %s", c.Transfer.GCInterval)
	}
	return nil
}

func (c *Config) validateSecurity() error {
	if c.Security.RateLimitReqs < 1 {
		return fmt.Errorf("RATE_LIMIT_REQUESTS must be at least 1, got %d", c.Security.RateLimitReqs)
	}
	if c.Security.RateLimitWindow <= 0 {
		return fmt.Errorf("RATE_LIMIT_WINDOW must be positive, got %s", c.Security.RateLimitWindow)
	}
	if c.Security.LocationRatePerSec <= 0 {
		return fmt.Errorf("LOCATION_RATE_PER_SEC must be positive, got %g", c.Security.LocationRatePerSec)
	}
	if c.Security.LocationBurst < 1 {
		return fmt.Errorf("LOCATION_BURST must be at least 1, got %d", c.Security.LocationBurst)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch strings.ToLower(c.Logging.Level) {
	case "trace", "debug", "info", "warn", "warning", "error", "fatal", "disabled":
	default:
		return fmt.Errorf("LOG_LEVEL must be one of trace/debug/info/warn/error/fatal, got %q", c.Logging.Level)
	}
	switch strings.ToLower(c.Logging.Format) {
	case "json", "console":
	default:
		return fmt.Errorf("LOG_FORMAT must be json or console, got %q", c.Logging.Format)
	}
	return nil
}

// ListenAddr returns the host:port pair for the HTTP listener.
func (c *Config) ListenAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// BaseURL returns the externally visible base URL for download links.
func (c *Config) BaseURL() string {
	if c.Server.PublicURL != "" {
		return strings.TrimRight(c.Server.PublicURL, "/")
	}
	host := c.Server.Host
	if host == "0.0.0.0" || host == "::" || host == "" {
		host = "127.0.0.1"
	}
	return fmt.Sprintf("http://%s:%d", host, c.Server.Port)
}
