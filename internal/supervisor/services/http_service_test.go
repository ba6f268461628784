// CTGP Popularity - Track Popularity Aggregation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/ctgp-popularity

package services

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/thejerf/suture/v4"

	"github.com/tomtom215/ctgp-popularity/internal/api"
	"github.com/tomtom215/ctgp-popularity/internal/config"
	"github.com/tomtom215/ctgp-popularity/internal/models"
	"github.com/tomtom215/ctgp-popularity/internal/popularity"
)

var _ suture.Service = (*HTTPServerService)(nil)

type idleRefresh struct{}

func (idleRefresh) TriggerSync() error                 { return nil }
func (idleRefresh) IsRefreshing() bool                 { return false }
func (idleRefresh) LastSyncTime() time.Time            { return time.Time{} }
func (idleRefresh) LastResult() *models.RefreshSummary { return nil }

func loopbackServerConfig() config.ServerConfig {
	return config.ServerConfig{
		Host:            "127.0.0.1",
		Port:            0,
		Timeout:         5 * time.Second,
		ShutdownTimeout: 2 * time.Second,
	}
}

// apiRouter is the production router over an empty snapshot publisher.
func apiRouter() http.Handler {
	cfg := &config.Config{
		Server:   loopbackServerConfig(),
		Security: config.SecurityConfig{RateLimitDisabled: true, CORSOrigins: []string{"*"}},
	}
	handler := api.NewHandler(cfg, popularity.NewPublisher(), idleRefresh{}, nil, nil)
	mw := api.NewChiMiddleware(api.NewChiMiddlewareConfig(cfg.Security))
	return api.NewRouter(handler, mw).SetupChi()
}

func waitForAddr(t *testing.T, svc *HTTPServerService) string {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for svc.Addr() == nil {
		if time.Now().After(deadline) {
			t.Fatal("server did not start listening")
		}
		time.Sleep(5 * time.Millisecond)
	}
	return svc.Addr().String()
}

func TestHTTPServerService_ServesRouter(t *testing.T) {
	svc := NewHTTPServerService(apiRouter(), loopbackServerConfig())

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- svc.Serve(ctx) }()

	addr := waitForAddr(t, svc)

	resp, err := http.Get("http://" + addr + "/api/v1/health/live")
	if err != nil {
		t.Fatalf("GET /health/live: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
	if !strings.Contains(string(body), `"alive":true`) {
		t.Errorf("body = %s, want alive:true", body)
	}

	resp, err = http.Get("http://" + addr + "/api/v1/health/ready")
	if err != nil {
		t.Fatalf("GET /health/ready: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("ready before first snapshot = %d, want 503", resp.StatusCode)
	}

	cancel()
	select {
	case err := <-errCh:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Serve() = %v, want context.Canceled", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}

	if svc.Addr() != nil {
		t.Error("Addr() should be nil once stopped")
	}
	if _, err := net.DialTimeout("tcp", addr, 200*time.Millisecond); err == nil {
		t.Error("listener still accepting after shutdown")
	}
}

func TestHTTPServerService_DrainsInFlightRequest(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	slow := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		close(entered)
		<-release
		_, _ = io.WriteString(w, "done")
	})
	svc := NewHTTPServerService(slow, loopbackServerConfig())

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- svc.Serve(ctx) }()
	addr := waitForAddr(t, svc)

	type result struct {
		body string
		err  error
	}
	respCh := make(chan result, 1)
	go func() {
		resp, err := http.Get("http://" + addr + "/refresh")
		if err != nil {
			respCh <- result{err: err}
			return
		}
		defer resp.Body.Close()
		b, err := io.ReadAll(resp.Body)
		respCh <- result{body: string(b), err: err}
	}()

	<-entered
	cancel()
	time.Sleep(50 * time.Millisecond)
	close(release)

	r := <-respCh
	if r.err != nil || r.body != "done" {
		t.Errorf("in-flight request = %q, %v; want done", r.body, r.err)
	}
	if err := <-errCh; !errors.Is(err, context.Canceled) {
		t.Errorf("Serve() = %v, want context.Canceled", err)
	}
}

func TestHTTPServerService_ShutdownTimeoutBoundsDrain(t *testing.T) {
	entered := make(chan struct{})
	stuck := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		close(entered)
		<-r.Context().Done()
	})
	cfg := loopbackServerConfig()
	cfg.ShutdownTimeout = 50 * time.Millisecond
	svc := NewHTTPServerService(stuck, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- svc.Serve(ctx) }()
	addr := waitForAddr(t, svc)

	go func() {
		resp, err := http.Get("http://" + addr + "/")
		if err == nil {
			resp.Body.Close()
		}
	}()
	<-entered
	cancel()

	select {
	case err := <-errCh:
		if !errors.Is(err, context.DeadlineExceeded) {
			t.Errorf("Serve() = %v, want context.DeadlineExceeded", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("shutdown was not bounded by ShutdownTimeout")
	}
}

func TestHTTPServerService_ListenFailure(t *testing.T) {
	busy, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer busy.Close()

	cfg := loopbackServerConfig()
	cfg.Port = busy.Addr().(*net.TCPAddr).Port
	svc := NewHTTPServerService(http.NotFoundHandler(), cfg)

	err = svc.Serve(context.Background())
	if err == nil || !strings.Contains(err.Error(), "listen") {
		t.Errorf("Serve() = %v, want listen error", err)
	}
}

func TestHTTPServerService_RestartsUnderSupervisor(t *testing.T) {
	svc := NewHTTPServerService(apiRouter(), loopbackServerConfig())

	sup := suture.New("api-layer", suture.Spec{
		FailureBackoff: 10 * time.Millisecond,
		Timeout:        2 * time.Second,
		EventHook:      func(suture.Event) {},
	})
	sup.Add(svc)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := sup.ServeBackground(ctx)

	addr := waitForAddr(t, svc)
	resp, err := http.Get("http://" + addr + "/api/v1/health/live")
	if err != nil {
		t.Fatalf("GET under supervisor: %v", err)
	}
	resp.Body.Close()

	cancel()
	<-errCh
	if svc.Addr() != nil {
		t.Error("server still bound after supervisor stopped")
	}
}

func TestHTTPServerService_String(t *testing.T) {
	if got := NewHTTPServerService(nil, config.ServerConfig{}).String(); got != "http-server" {
		t.Errorf("String() = %q, want http-server", got)
	}
}
