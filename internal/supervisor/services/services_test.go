// CTGP Popularity - Track Popularity Aggregation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/ctgp-popularity

package services

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/thejerf/suture/v4"
)

var (
	_ suture.Service = (*RefreshService)(nil)
	_ suture.Service = (*WebSocketHubService)(nil)
	_ suture.Service = (*EventForwarderService)(nil)
	_ suture.Service = (*DetailCacheGCService)(nil)
)

type mockManager struct {
	startErr   error
	stopErr    error
	startCount atomic.Int32
	stopCount  atomic.Int32
	started    chan struct{}
}

func newMockManager() *mockManager {
	return &mockManager{started: make(chan struct{}, 8)}
}

func (m *mockManager) Start(ctx context.Context) error {
	m.startCount.Add(1)
	if m.startErr != nil {
		return m.startErr
	}
	m.started <- struct{}{}
	return nil
}

func (m *mockManager) Stop() error {
	m.stopCount.Add(1)
	return m.stopErr
}

func serveAndCancel(t *testing.T, svc suture.Service, started <-chan struct{}) error {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- svc.Serve(ctx) }()

	select {
	case <-started:
	case <-time.After(time.Second):
		t.Fatal("service did not start")
	}
	cancel()

	select {
	case err := <-errCh:
		return err
	case <-time.After(2 * time.Second):
		t.Fatal("Serve did not return after cancellation")
		return nil
	}
}

func TestRefreshService(t *testing.T) {
	t.Run("starts and stops the manager", func(t *testing.T) {
		m := newMockManager()
		svc := NewRefreshService(m)

		err := serveAndCancel(t, svc, m.started)
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Serve() = %v, want context.Canceled", err)
		}
		if m.startCount.Load() != 1 || m.stopCount.Load() != 1 {
			t.Errorf("start = %d, stop = %d", m.startCount.Load(), m.stopCount.Load())
		}
	})

	t.Run("returns start error without stopping", func(t *testing.T) {
		m := newMockManager()
		m.startErr = errors.New("already running")

		err := NewRefreshService(m).Serve(context.Background())
		if !errors.Is(err, m.startErr) {
			t.Errorf("Serve() = %v, want wrapped start error", err)
		}
		if m.stopCount.Load() != 0 {
			t.Error("Stop should not be called after a failed Start")
		}
	})

	t.Run("returns stop error", func(t *testing.T) {
		m := newMockManager()
		m.stopErr = errors.New("stop timed out")

		err := serveAndCancel(t, NewRefreshService(m), m.started)
		if !errors.Is(err, m.stopErr) {
			t.Errorf("Serve() = %v, want wrapped stop error", err)
		}
	})

	t.Run("restarted by supervisor after start failure", func(t *testing.T) {
		m := &flakyManager{failures: 2, started: make(chan struct{}, 1)}
		sup := suture.New("test", suture.Spec{FailureThreshold: 5, FailureBackoff: 10 * time.Millisecond, Timeout: time.Second})
		sup.Add(NewRefreshService(m))

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		sup.ServeBackground(ctx)

		select {
		case <-m.started:
		case <-time.After(2 * time.Second):
			t.Fatal("manager never started")
		}
		if got := m.calls.Load(); got != 3 {
			t.Errorf("Start called %d times, want 3", got)
		}
	})

	if got := NewRefreshService(newMockManager()).String(); got != "refresh-manager" {
		t.Errorf("String() = %q", got)
	}
}

type flakyManager struct {
	failures int32
	calls    atomic.Int32
	started  chan struct{}
}

func (m *flakyManager) Start(ctx context.Context) error {
	if m.calls.Add(1) <= m.failures {
		return errors.New("transient")
	}
	m.started <- struct{}{}
	return nil
}

func (m *flakyManager) Stop() error { return nil }

type mockContextHub struct {
	runErr  error
	runs    atomic.Int32
	started chan struct{}
}

func (m *mockContextHub) RunWithContext(ctx context.Context) error {
	m.runs.Add(1)
	if m.runErr != nil {
		return m.runErr
	}
	m.started <- struct{}{}
	<-ctx.Done()
	return ctx.Err()
}

func TestWebSocketHubService(t *testing.T) {
	hub := &mockContextHub{started: make(chan struct{}, 1)}
	svc := NewWebSocketHubService(hub)

	if err := serveAndCancel(t, svc, hub.started); !errors.Is(err, context.Canceled) {
		t.Errorf("Serve() = %v, want context.Canceled", err)
	}

	failing := &mockContextHub{runErr: errors.New("boom")}
	if err := NewWebSocketHubService(failing).Serve(context.Background()); !errors.Is(err, failing.runErr) {
		t.Errorf("Serve() = %v, want hub error", err)
	}

	if svc.String() != "websocket-hub" {
		t.Errorf("String() = %q", svc.String())
	}
}

type mockForwarder struct {
	startErr error
	stopped  atomic.Bool
	started  chan struct{}
}

func (m *mockForwarder) Start(ctx context.Context) error {
	if m.startErr != nil {
		return m.startErr
	}
	m.started <- struct{}{}
	return nil
}

func (m *mockForwarder) Stop() { m.stopped.Store(true) }

func TestEventForwarderService(t *testing.T) {
	fwd := &mockForwarder{started: make(chan struct{}, 1)}
	svc := NewEventForwarderService(fwd)

	if err := serveAndCancel(t, svc, fwd.started); !errors.Is(err, context.Canceled) {
		t.Errorf("Serve() = %v, want context.Canceled", err)
	}
	if !fwd.stopped.Load() {
		t.Error("forwarder was not stopped")
	}

	failing := &mockForwarder{startErr: errors.New("subscribe failed")}
	if err := NewEventForwarderService(failing).Serve(context.Background()); !errors.Is(err, failing.startErr) {
		t.Errorf("Serve() = %v, want start error", err)
	}

	if svc.String() != "event-forwarder" {
		t.Errorf("String() = %q", svc.String())
	}
}

type mockGC struct {
	runs atomic.Int32
	err  error
}

func (m *mockGC) RunGC() error {
	m.runs.Add(1)
	return m.err
}

func TestDetailCacheGCService(t *testing.T) {
	t.Run("default interval", func(t *testing.T) {
		svc := NewDetailCacheGCService(&mockGC{}, 0)
		if svc.interval != DefaultGCInterval {
			t.Errorf("interval = %v, want %v", svc.interval, DefaultGCInterval)
		}
	})

	t.Run("runs on every tick and survives errors", func(t *testing.T) {
		gc := &mockGC{err: errors.New("value log busy")}
		svc := NewDetailCacheGCService(gc, 5*time.Millisecond)

		ctx, cancel := context.WithCancel(context.Background())
		errCh := make(chan error, 1)
		go func() { errCh <- svc.Serve(ctx) }()

		deadline := time.Now().Add(2 * time.Second)
		for gc.runs.Load() < 3 {
			if time.Now().After(deadline) {
				t.Fatalf("RunGC called %d times, want at least 3", gc.runs.Load())
			}
			time.Sleep(time.Millisecond)
		}
		cancel()

		if err := <-errCh; !errors.Is(err, context.Canceled) {
			t.Errorf("Serve() = %v, want context.Canceled", err)
		}
	})

	if got := NewDetailCacheGCService(&mockGC{}, time.Minute).String(); got != "detail-cache-gc" {
		t.Errorf("String() = %q", got)
	}
}
