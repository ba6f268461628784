// CTGP Popularity - Track Popularity Aggregation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/ctgp-popularity

package services

import (
	"context"
	"fmt"
)

// StartStopManager is the lifecycle of *sync.Manager.
type StartStopManager interface {
	Start(ctx context.Context) error
	Stop() error
}

// RefreshService runs the refresh manager under supervision.
//
// Serve calls Start, waits for ctx, then calls Stop. Stop waits for the
// manager's goroutines, so an in-flight cycle finishes or observes the
// canceled context before Serve returns.
type RefreshService struct {
	manager StartStopManager
	name    string
}

// NewRefreshService wraps manager.
//
//	manager := sync.NewManager(cfg, feed, usage, scorer, publisher)
//	tree.Add(supervisor.LayerMessaging, services.NewRefreshService(manager))
func NewRefreshService(manager StartStopManager) *RefreshService {
	return &RefreshService{
		manager: manager,
		name:    "refresh-manager",
	}
}

// Serve implements suture.Service. A failed Start is returned so suture
// restarts the service with backoff.
func (s *RefreshService) Serve(ctx context.Context) error {
	if err := s.manager.Start(ctx); err != nil {
		return fmt.Errorf("refresh manager start failed: %w", err)
	}

	<-ctx.Done()

	if err := s.manager.Stop(); err != nil {
		return fmt.Errorf("refresh manager stop failed: %w", err)
	}

	return ctx.Err()
}

func (s *RefreshService) String() string {
	return s.name
}
