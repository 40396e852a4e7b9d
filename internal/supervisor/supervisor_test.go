// Streetcast - Fleet Display Advertising Dispatch
// Copyright 2026 Streetcast Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/streetcast/streetcast

package supervisor

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/streetcast/streetcast/internal/logging"
)

func init() {
	logging.SetLogger(logging.NewTestLogger())
}

func testTree(t *testing.T) *Tree {
	t.Helper()
	return NewTree(logging.NewSlogLogger(), DefaultTreeConfig())
}

func TestLoopServiceStopsWithContext(t *testing.T) {
	var entered atomic.Bool
	svc := NewLoopService("test-loop", func(ctx context.Context) error {
		entered.Store(true)
		<-ctx.Done()
		return ctx.Err()
	})
	if svc.String() != "test-loop" {
		t.Errorf("String() = %q", svc.String())
	}

	tree := testTree(t)
	tree.AddMaintenanceService(svc)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := tree.ServeBackground(ctx)

	deadline := time.Now().Add(2 * time.Second)
	for !entered.Load() {
		if time.Now().After(deadline) {
			t.Fatal("loop service never started")
		}
		time.Sleep(10 * time.Millisecond)
	}

	cancel()
	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			t.Errorf("tree stopped with %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("tree did not stop after cancel")
	}
}

func TestLoopServiceRestartsAfterFailure(t *testing.T) {
	var runs atomic.Int32
	svc := NewLoopService("flaky-loop", func(ctx context.Context) error {
		if runs.Add(1) == 1 {
			return errors.New("transient failure")
		}
		<-ctx.Done()
		return ctx.Err()
	})

	tree := testTree(t)
	tree.AddMaintenanceService(svc)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	errCh := tree.ServeBackground(ctx)

	deadline := time.Now().Add(5 * time.Second)
	for runs.Load() < 2 {
		if time.Now().After(deadline) {
			t.Fatal("service was not restarted after failure")
		}
		time.Sleep(20 * time.Millisecond)
	}

	cancel()
	<-errCh
}

func TestHTTPServerServiceGracefulShutdown(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := ln.Addr().String()
	_ = ln.Close()

	server := &http.Server{
		Addr: addr,
		Handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNoContent)
		}),
	}
	svc := NewHTTPServerService(server, 2*time.Second)

	tree := testTree(t)
	tree.AddAPIService(svc)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := tree.ServeBackground(ctx)

	deadline := time.Now().Add(3 * time.Second)
	for {
		resp, err := http.Get("http://" + addr + "/")
		if err == nil {
			_ = resp.Body.Close()
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("server never came up: %v", err)
		}
		time.Sleep(25 * time.Millisecond)
	}

	cancel()
	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			t.Errorf("tree stopped with %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("tree did not stop after cancel")
	}
}
