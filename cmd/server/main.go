// CTGP Popularity - Track Popularity Aggregation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/ctgp-popularity

package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/thejerf/suture/v4"

	"github.com/tomtom215/ctgp-popularity/internal/api"
	"github.com/tomtom215/ctgp-popularity/internal/config"
	"github.com/tomtom215/ctgp-popularity/internal/events"
	"github.com/tomtom215/ctgp-popularity/internal/logging"
	"github.com/tomtom215/ctgp-popularity/internal/supervisor"
	"github.com/tomtom215/ctgp-popularity/internal/supervisor/services"
	ws "github.com/tomtom215/ctgp-popularity/internal/websocket"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		logging.Warn().Err(err).Msg("Failed to read .env file")
	}

	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		Caller:    cfg.Logging.Caller,
		Timestamp: true,
	})

	if err := run(cfg); err != nil {
		logging.Fatal().Err(err).Msg("Server stopped with error")
	}
	logging.Info().Msg("Application stopped gracefully")
}

func run(cfg *config.Config) error {
	logEnabledSets(cfg)

	eng, err := initEngine(cfg)
	if err != nil {
		return err
	}
	defer eng.Close()

	bus := events.NewBus(cfg.Events.BufferSize, nil)
	defer func() {
		if err := bus.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing event bus")
		}
	}()
	eng.manager.SetEventPublisher(bus)

	wsHub := ws.NewHub()
	forwarder := ws.NewEventForwarder(wsHub, bus)

	var wikiCatalogue api.WikiCatalogue
	if eng.wiki != nil {
		wikiCatalogue = eng.wiki
	}
	handler := api.NewHandler(cfg, eng.publisher, eng.manager, wikiCatalogue, wsHub)
	eng.manager.SetOnSyncCompleted(handler.OnRefreshCompleted)

	router := api.NewRouter(handler, api.NewChiMiddleware(api.NewChiMiddlewareConfig(cfg.Security)))
	if cfg.Security.AdminSecret == "" {
		logging.Warn().Msg("ADMIN_JWT_SECRET not set, POST /api/v1/refresh is only rate limited")
	}

	tree := supervisor.NewSupervisorTree(logging.NewSlogLogger(), cfg.Supervisor)

	var svcs []layeredService
	if eng.persistentCache {
		svcs = append(svcs, layeredService{supervisor.LayerData,
			services.NewDetailCacheGCService(eng.detailCache, services.DefaultGCInterval)})
	}
	svcs = append(svcs,
		layeredService{supervisor.LayerMessaging, services.NewWebSocketHubService(wsHub)},
		layeredService{supervisor.LayerMessaging, services.NewEventForwarderService(forwarder)},
		layeredService{supervisor.LayerMessaging, services.NewRefreshService(eng.manager)},
		layeredService{supervisor.LayerAPI, services.NewHTTPServerService(router.SetupChi(), cfg.Server)},
	)
	for _, ls := range svcs {
		if _, err := tree.Add(ls.layer, ls.svc); err != nil {
			return fmt.Errorf("add %s: %w", ls.svc, err)
		}
	}
	logging.Info().Str("addr", cfg.Server.Addr()).Int("services", len(svcs)).Msg("Services added to supervisor tree")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	logging.Info().Msg("Starting supervisor tree...")
	errCh := tree.ServeBackground(ctx)

	select {
	case <-ctx.Done():
		logging.Info().Msg("Context canceled, waiting for supervisor to finish...")
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor tree error")
		}
	}

	for err := range errCh {
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor shutdown error")
		}
	}

	unstopped, _ := tree.UnstoppedServiceReport()
	if len(unstopped) > 0 {
		logging.Warn().Int("count", len(unstopped)).Msg("Services failed to stop within timeout")
		for _, svc := range unstopped {
			logging.Warn().Str("service", svc.Name).Msg("Service failed to stop")
		}
	}

	return nil
}

type layeredService struct {
	layer supervisor.Layer
	svc   suture.Service
}

func logEnabledSets(cfg *config.Config) {
	for _, ts := range cfg.TrackSets.All() {
		logging.Info().
			Str("track_set", ts.Name).
			Bool("enabled", ts.Enabled).
			Int("target_count", ts.TargetCount).
			Msg("Track set configured")
	}
	logging.Info().
		Dur("refresh_interval", cfg.Refresh.Interval).
		Bool("wiki_enabled", cfg.Wiki.Enabled).
		Str("detail_cache_path", cfg.Sources.DetailCachePath).
		Msg("Configuration loaded")
}
