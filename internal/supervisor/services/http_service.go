// CTGP Popularity - Track Popularity Aggregation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/ctgp-popularity

package services

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/tomtom215/ctgp-popularity/internal/config"
	"github.com/tomtom215/ctgp-popularity/internal/logging"
)

const idleTimeout = 60 * time.Second

// HTTPServerService serves the API router under supervision.
//
// A stopped http.Server cannot be started again, so every Serve call binds
// a fresh listener and server. That lets suture restart the API layer after
// a listener failure.
//
//	tree.Add(supervisor.LayerAPI, services.NewHTTPServerService(router.SetupChi(), cfg.Server))
type HTTPServerService struct {
	handler http.Handler
	cfg     config.ServerConfig

	mu   sync.Mutex
	addr net.Addr
}

// NewHTTPServerService serves handler on cfg.Addr() with cfg's timeouts.
func NewHTTPServerService(handler http.Handler, cfg config.ServerConfig) *HTTPServerService {
	return &HTTPServerService{handler: handler, cfg: cfg}
}

func (h *HTTPServerService) newServer() *http.Server {
	return &http.Server{
		Handler:           h.handler,
		ReadHeaderTimeout: h.cfg.Timeout,
		ReadTimeout:       h.cfg.Timeout,
		WriteTimeout:      h.cfg.Timeout,
		IdleTimeout:       idleTimeout,
	}
}

// Addr is the bound address of the running server, or nil between runs.
// With port 0 it reports the port the kernel picked.
func (h *HTTPServerService) Addr() net.Addr {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.addr
}

func (h *HTTPServerService) setAddr(a net.Addr) {
	h.mu.Lock()
	h.addr = a
	h.mu.Unlock()
}

// Serve listens until ctx is canceled, then drains open connections for at
// most cfg.ShutdownTimeout.
func (h *HTTPServerService) Serve(ctx context.Context) error {
	ln, err := net.Listen("tcp", h.cfg.Addr())
	if err != nil {
		return fmt.Errorf("http server listen on %s: %w", h.cfg.Addr(), err)
	}
	h.setAddr(ln.Addr())
	defer h.setAddr(nil)

	srv := h.newServer()
	serveErr := make(chan error, 1)
	go func() {
		serveErr <- srv.Serve(ln)
	}()

	logging.Info().Str("addr", ln.Addr().String()).Msg("HTTP server listening")

	select {
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http server failed: %w", err)

	case <-ctx.Done():
	}

	drainCtx, cancel := context.WithTimeout(context.Background(), h.cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(drainCtx); err != nil {
		_ = srv.Close()
		return fmt.Errorf("http server shutdown: %w", err)
	}
	<-serveErr
	return ctx.Err()
}

func (h *HTTPServerService) String() string {
	return "http-server"
}
