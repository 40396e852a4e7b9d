// Streetcast - Fleet Display Advertising Dispatch
// Copyright 2026 Streetcast Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/streetcast/streetcast

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load with defaults: %v", err)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("default port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Heartbeat.Timeout != 3*cfg.Heartbeat.Interval {
		t.Errorf("default heartbeat timeout %s is not 3x interval %s",
			cfg.Heartbeat.Timeout, cfg.Heartbeat.Interval)
	}
	if cfg.Assets.DefaultChunkSize != 1<<20 {
		t.Errorf("default chunk size = %d, want 1MB", cfg.Assets.DefaultChunkSize)
	}
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("HTTP_PORT", "9090")
	t.Setenv("HEARTBEAT_INTERVAL", "10s")
	t.Setenv("HEARTBEAT_TIMEOUT", "30s")
	t.Setenv("CORS_ORIGINS", "https://ops.example.com, https://admin.example.com")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("port = %d, want 9090", cfg.Server.Port)
	}
	if cfg.Heartbeat.Interval != 10*time.Second {
		t.Errorf("heartbeat interval = %s, want 10s", cfg.Heartbeat.Interval)
	}
	if len(cfg.Security.CORSOrigins) != 2 || cfg.Security.CORSOrigins[0] != "https://ops.example.com" {
		t.Errorf("cors origins = %v", cfg.Security.CORSOrigins)
	}
}

func TestLoadConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yaml := []byte(`
server:
  port: 7171
assets:
  dir: /srv/videos
  default_chunk_size: 524288
`)
	if err := os.WriteFile(path, yaml, 0o600); err != nil {
		t.Fatalf("write config file: %v", err)
	}
	t.Setenv(ConfigPathEnvVar, path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 7171 {
		t.Errorf("port = %d, want 7171", cfg.Server.Port)
	}
	if cfg.Assets.Dir != "/srv/videos" {
		t.Errorf("assets dir = %q", cfg.Assets.Dir)
	}
	if cfg.Assets.DefaultChunkSize != 524288 {
		t.Errorf("chunk size = %d", cfg.Assets.DefaultChunkSize)
	}
	// Unset sections keep their defaults.
	if cfg.Heartbeat.SweepInterval != 15*time.Second {
		t.Errorf("sweep interval = %s, want default 15s", cfg.Heartbeat.SweepInterval)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero port", func(c *Config) { c.Server.Port = 0 }},
		{"timeout below interval", func(c *Config) {
			c.Heartbeat.Interval = time.Minute
			c.Heartbeat.Timeout = time.Second
		}},
		{"empty assets dir", func(c *Config) { c.Assets.Dir = "" }},
		{"max chunk below default", func(c *Config) {
			c.Assets.DefaultChunkSize = 1 << 20
			c.Assets.MaxChunkSize = 1 << 10
		}},
		{"bad log level", func(c *Config) { c.Logging.Level = "verbose" }},
		{"bad public url", func(c *Config) { c.Server.PublicURL = "ads.example.com" }},
		{"zero session ttl", func(c *Config) { c.Transfer.SessionTTL = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error, got nil")
			}
		})
	}
}

func TestBaseURL(t *testing.T) {
	cfg := defaultConfig()
	cfg.Server.PublicURL = "https://ads.example.com/"
	if got := cfg.BaseURL(); got != "https://ads.example.com" {
		t.Errorf("BaseURL() = %q", got)
	}

	cfg.Server.PublicURL = ""
	cfg.Server.Host = "0.0.0.0"
	cfg.Server.Port = 8080
	if got := cfg.BaseURL(); got != "http://127.0.0.1:8080" {
		t.Errorf("BaseURL() = %q", got)
	}
}
