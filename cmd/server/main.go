// Streetcast - Fleet Display Advertising Dispatch
// Copyright 2026 Streetcast Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/streetcast/streetcast

// Command server runs the fleet display advertising dispatch server: the
// device websocket gateway, the decision engine over geo-fenced campaigns,
// the chunked video download endpoints, and the admin boundary.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/streetcast/streetcast/internal/api"
	"github.com/streetcast/streetcast/internal/assets"
	"github.com/streetcast/streetcast/internal/config"
	"github.com/streetcast/streetcast/internal/decision"
	"github.com/streetcast/streetcast/internal/dispatch"
	"github.com/streetcast/streetcast/internal/gateway"
	"github.com/streetcast/streetcast/internal/geofence"
	"github.com/streetcast/streetcast/internal/logging"
	"github.com/streetcast/streetcast/internal/models"
	"github.com/streetcast/streetcast/internal/registry"
	"github.com/streetcast/streetcast/internal/store"
	"github.com/streetcast/streetcast/internal/supervisor"
	"github.com/streetcast/streetcast/internal/transfer"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	logging.Info().
		Str("listen_addr", cfg.ListenAddr()).
		Str("store_path", cfg.Store.Path).
		Str("assets_dir", cfg.Assets.Dir).
		Msg("starting streetcast dispatch server")

	st, err := store.Open(cfg.Store)
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to open entity store")
	}
	defer func() {
		if err := st.Close(); err != nil {
			logging.Error().Err(err).Msg("error closing entity store")
		}
	}()

	if cfg.Store.SeedSampleData {
		if err := st.SeedSampleData(context.Background()); err != nil {
			logging.Fatal().Err(err).Msg("failed to seed sample data")
		}
	}

	// Core wiring: registry -> dispatcher -> decision engine -> gateway.
	reg := registry.New()
	stats := dispatch.NewStats(time.Now().Unix())
	dispatcher := dispatch.NewDispatcher(reg, cfg.BaseURL(), stats)
	engine := decision.NewEngine(st, geofence.NewIndex(st))
	transfers := transfer.NewManager()
	library := assets.NewLibrary(cfg.Assets.Dir)

	gw := gateway.New(gateway.Config{
		DefaultChunkSize:   cfg.Assets.DefaultChunkSize,
		LocationRatePerSec: cfg.Security.LocationRatePerSec,
		LocationBurst:      cfg.Security.LocationBurst,
	}, reg, st, engine, dispatcher, transfers, stats)

	handler := api.NewHandler(cfg, st, reg, dispatcher, engine, transfers, library, gw, stats)
	server := &http.Server{
		Addr:              cfg.ListenAddr(),
		Handler:           api.NewRouter(handler, cfg).Setup(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	tree := supervisor.NewTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())

	// Stale connections get a force_disconnect notice exactly once before
	// eviction.
	onEvict := func(deviceID string, t registry.Transport) {
		dispatcher.ForceDisconnect(t, deviceID, models.DisconnectReasonHeartbeatTimeout)
	}
	tree.AddMaintenanceService(supervisor.NewLoopService("registry-sweeper", func(ctx context.Context) error {
		return reg.RunSweeper(ctx, cfg.Heartbeat.Timeout, cfg.Heartbeat.SweepInterval, onEvict)
	}))
	tree.AddMaintenanceService(supervisor.NewLoopService("transfer-gc", func(ctx context.Context) error {
		return transfers.RunGC(ctx, cfg.Transfer.SessionTTL, cfg.Transfer.GCInterval)
	}))
	tree.AddMaintenanceService(supervisor.NewLoopService("store-gc", func(ctx context.Context) error {
		return st.RunGC(ctx, cfg.Store.GCInterval)
	}))

	tree.AddAPIService(supervisor.NewHTTPServerService(server, 10*time.Second))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("received shutdown signal")
		cancel()
	}()

	errCh := tree.ServeBackground(ctx)

	select {
	case <-ctx.Done():
		logging.Info().Msg("shutting down, waiting for supervised services")
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("supervisor tree error")
		}
	}

	for err := range errCh {
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("supervisor shutdown error")
		}
	}

	if unstopped, err := tree.UnstoppedServiceReport(); err == nil && len(unstopped) > 0 {
		for _, svc := range unstopped {
			logging.Warn().Str("service", svc.Name).Msg("service failed to stop within timeout")
		}
	}

	logging.Info().Msg("server stopped")
}
