// CTGP Popularity - Track Popularity Aggregation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/ctgp-popularity

package config

import (
	"fmt"
	"time"
)

const (
	minRefreshInterval   = time.Minute
	minRateLimitRequests = 1
	maxRateLimitRequests = 100000
	minRateLimitWindow   = time.Second
	maxRateLimitWindow   = time.Hour
	maxPageSize          = 1000
	minAdminSecretLength = 32
)

// Validate checks the configuration after loading. Errors name the
// environment variable that controls the offending value.
func (c *Config) Validate() error {
	validators := []func() error{
		c.validateRefresh,
		c.validateDecay,
		c.validateSources,
		c.validateTrackSets,
		c.validateWiki,
		c.validateServer,
		c.validateSecurity,
		c.validateLogging,
		c.validateSupervisor,
	}
	for _, validate := range validators {
		if err := validate(); err != nil {
			return err
		}
	}
	return nil
}

func (c *Config) validateRefresh() error {
	if c.Refresh.Interval < minRefreshInterval {
		return fmt.Errorf("REFRESH_INTERVAL must be at least %v", minRefreshInterval)
	}
	if c.Refresh.Timeout <= 0 {
		return fmt.Errorf("REFRESH_TIMEOUT must be positive")
	}
	if c.Refresh.RetryAttempts < 1 {
		return fmt.Errorf("REFRESH_RETRY_ATTEMPTS must be at least 1")
	}
	if c.Refresh.RetryDelay < 0 {
		return fmt.Errorf("REFRESH_RETRY_DELAY must not be negative")
	}
	return nil
}

func (c *Config) validateDecay() error {
	if c.Decay.HalfLife < 24*time.Hour {
		return fmt.Errorf("DECAY_HALF_LIFE must be at least one day")
	}
	if c.Decay.Cap < 0 {
		return fmt.Errorf("DECAY_CAP must not be negative")
	}
	return nil
}

func (c *Config) validateSources() error {
	s := c.Sources
	if s.RequestTimeout <= 0 {
		return fmt.Errorf("SOURCE_REQUEST_TIMEOUT must be positive")
	}
	if s.RequestsPerSecond < 0 {
		return fmt.Errorf("SOURCE_REQUESTS_PER_SECOND must not be negative")
	}
	if s.RequestsPerSecond > 0 && s.Burst < 1 {
		return fmt.Errorf("SOURCE_BURST must be at least 1 when the limiter is enabled")
	}
	if s.PageSize < 1 || s.PageSize > maxPageSize {
		return fmt.Errorf("USAGE_PAGE_SIZE must be between 1 and %d", maxPageSize)
	}
	if s.MaxPages < 1 {
		return fmt.Errorf("USAGE_MAX_PAGES must be at least 1")
	}
	if s.NameColumn < 0 || s.UsageColumn < 0 || s.AddedColumn < 0 {
		return fmt.Errorf("usage table column positions must not be negative")
	}
	if s.NameColumn == s.UsageColumn || s.NameColumn == s.AddedColumn || s.UsageColumn == s.AddedColumn {
		return fmt.Errorf("usage table column positions must be distinct")
	}
	if s.DetailCacheTTL <= 0 {
		return fmt.Errorf("DETAIL_CACHE_TTL must be positive")
	}
	return nil
}

func (c *Config) validateTrackSets() error {
	enabled := 0
	for _, ts := range c.TrackSets.All() {
		if !ts.Enabled {
			continue
		}
		enabled++

		prefix := "track_sets." + ts.Name
		if err := validateSourceURL(ts.FeedURL, envNameFor(prefix+".feed_url")); err != nil {
			return err
		}
		if err := validateSourceURL(ts.UsageURL, envNameFor(prefix+".usage_url")); err != nil {
			return err
		}
		if ts.TargetCount < 0 {
			return fmt.Errorf("%s must not be negative", envNameFor(prefix+".target_count"))
		}
	}
	if enabled == 0 {
		return fmt.Errorf("at least one of NINTENDO_ENABLED or CTGP_ENABLED must be true")
	}
	return nil
}

func (c *Config) validateWiki() error {
	if !c.Wiki.Enabled {
		return nil
	}
	if err := validateSourceURL(c.Wiki.APIURL, "WIKI_API_URL"); err != nil {
		return err
	}
	if err := validateSourceURL(c.Wiki.PageURL, "WIKI_PAGE_URL"); err != nil {
		return err
	}
	if len(c.Wiki.Categories) == 0 {
		return fmt.Errorf("WIKI_CATEGORIES must list at least one category when WIKI_ENABLED=true")
	}
	if c.Wiki.PageCacheSize < 1 {
		return fmt.Errorf("WIKI_PAGE_CACHE_SIZE must be at least 1")
	}
	return nil
}

func (c *Config) validateServer() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("HTTP_PORT must be between 1 and 65535")
	}
	if c.Server.Timeout <= 0 {
		return fmt.Errorf("HTTP_TIMEOUT must be positive")
	}
	if c.Server.ShutdownTimeout <= 0 {
		return fmt.Errorf("HTTP_SHUTDOWN_TIMEOUT must be positive")
	}
	return nil
}

func (c *Config) validateSecurity() error {
	if err := c.validateAdminSecret(); err != nil {
		return err
	}
	if c.Security.RateLimitDisabled {
		return nil
	}
	if c.Security.RateLimitReqs < minRateLimitRequests || c.Security.RateLimitReqs > maxRateLimitRequests {
		return fmt.Errorf("RATE_LIMIT_REQUESTS must be between %d and %d", minRateLimitRequests, maxRateLimitRequests)
	}
	if c.Security.RateLimitWindow < minRateLimitWindow || c.Security.RateLimitWindow > maxRateLimitWindow {
		return fmt.Errorf("RATE_LIMIT_WINDOW must be between %v and %v", minRateLimitWindow, maxRateLimitWindow)
	}
	return nil
}

func (c *Config) validateAdminSecret() error {
	secret := c.Security.AdminSecret
	if secret == "" {
		if c.IsProduction() {
			return fmt.Errorf("ADMIN_JWT_SECRET is required when ENVIRONMENT=production")
		}
		return nil
	}
	if len(secret) < minAdminSecretLength {
		return fmt.Errorf("ADMIN_JWT_SECRET must be at least %d characters", minAdminSecretLength)
	}
	if c.Security.AdminTokenTTL <= 0 {
		return fmt.Errorf("ADMIN_TOKEN_TTL must be positive")
	}
	return nil
}

var validLogLevels = map[string]bool{
	"trace": true,
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

var validLogFormats = map[string]bool{
	"json":    true,
	"console": true,
}

func (c *Config) validateLogging() error {
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("LOG_LEVEL must be one of: trace, debug, info, warn, error")
	}
	if c.Logging.Format != "" && !validLogFormats[c.Logging.Format] {
		return fmt.Errorf("LOG_FORMAT must be one of: json, console")
	}
	return nil
}

func (c *Config) validateSupervisor() error {
	s := c.Supervisor
	if s.FailureThreshold <= 0 {
		return fmt.Errorf("SUPERVISOR_FAILURE_THRESHOLD must be positive")
	}
	if s.FailureDecay <= 0 {
		return fmt.Errorf("SUPERVISOR_FAILURE_DECAY must be positive")
	}
	if s.FailureBackoff <= 0 {
		return fmt.Errorf("SUPERVISOR_FAILURE_BACKOFF must be positive")
	}
	if s.ShutdownTimeout <= 0 {
		return fmt.Errorf("SUPERVISOR_SHUTDOWN_TIMEOUT must be positive")
	}
	return nil
}

// IsProduction reports whether ENVIRONMENT=production.
func (c *Config) IsProduction() bool {
	return c.Server.Environment == "production"
}
