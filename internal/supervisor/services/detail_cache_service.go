// CTGP Popularity - Track Popularity Aggregation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/ctgp-popularity

package services

import (
	"context"
	"time"

	"github.com/tomtom215/ctgp-popularity/internal/logging"
)

// DefaultGCInterval is how often the detail cache value log is collected.
const DefaultGCInterval = 30 * time.Minute

// GarbageCollector is satisfied by *sync.BadgerDetailCache.
type GarbageCollector interface {
	RunGC() error
}

// DetailCacheGCService periodically reclaims space in the on-disk detail
// token cache. GC errors are logged and do not stop the service.
type DetailCacheGCService struct {
	cache    GarbageCollector
	interval time.Duration
	name     string
}

// NewDetailCacheGCService wraps cache. A zero interval means DefaultGCInterval.
func NewDetailCacheGCService(cache GarbageCollector, interval time.Duration) *DetailCacheGCService {
	if interval <= 0 {
		interval = DefaultGCInterval
	}
	return &DetailCacheGCService{
		cache:    cache,
		interval: interval,
		name:     "detail-cache-gc",
	}
}

// Serve implements suture.Service.
func (s *DetailCacheGCService) Serve(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			start := time.Now()
			if err := s.cache.RunGC(); err != nil {
				logging.Warn().Err(err).Msg("Detail cache GC failed")
				continue
			}
			logging.Debug().Dur("duration", time.Since(start)).Msg("Detail cache GC completed")
		}
	}
}

func (s *DetailCacheGCService) String() string {
	return s.name
}
