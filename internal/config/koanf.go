// CTGP Popularity - Track Popularity Aggregation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/ctgp-popularity

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists where a config file is looked for, in order.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/ctgp-popularity/config.yaml",
	"/etc/ctgp-popularity/config.yml",
}

// ConfigPathEnvVar overrides the config file location.
const ConfigPathEnvVar = "CONFIG_PATH"

// Track set names. These are also the URL path segments of the API.
const (
	TrackSetNintendo = "nintendo"
	TrackSetCTGP     = "ctgp"
)

func defaultConfig() *Config {
	return &Config{
		Refresh: RefreshConfig{
			Interval:      55 * time.Minute,
			Timeout:       10 * time.Minute,
			OnStartup:     true,
			RetryAttempts: 3,
			RetryDelay:    2 * time.Second,
		},
		Decay: DecayConfig{
			HalfLife: 28 * 24 * time.Hour,
			Cap:      84 * 24 * time.Hour,
		},
		Sources: SourcesConfig{
			UserAgent:           "ctgp-popularity/1.0 (+https://github.com/tomtom215/ctgp-popularity)",
			RequestTimeout:      30 * time.Second,
			RequestsPerSecond:   2,
			Burst:               1,
			MaxRateLimitRetries: 5,
			PageSize:            100,
			MaxPages:            20,
			NameColumn:          2,
			UsageColumn:         7,
			AddedColumn:         8,
			DetailCachePath:     "",
			DetailCacheTTL:      7 * 24 * time.Hour,
		},
		TrackSets: TrackSetsConfig{
			Nintendo: TrackSetConfig{
				Name:        TrackSetNintendo,
				Title:       "Nintendo Tracks",
				Enabled:     true,
				FeedURL:     "http://tt.chadsoft.co.uk/original-track-leaderboards.json",
				UsageURL:    "https://wiimmfi.de/stats/track/wv/all?p=std,c0,0,",
				TargetCount: 32,
			},
			CTGP: TrackSetConfig{
				Name:        TrackSetCTGP,
				Title:       "CTGP Tracks",
				Enabled:     true,
				FeedURL:     "http://tt.chadsoft.co.uk/ctgp-leaderboards.json",
				UsageURL:    "https://wiimmfi.de/stats/track/wv/ctgp?p=std,c0,0,",
				TargetCount: 218,
			},
		},
		Wiki: WikiConfig{
			Enabled:       true,
			APIURL:        "http://wiki.tockdom.com/w/api.php",
			PageURL:       "http://wiki.tockdom.com/wiki/",
			Categories:    []string{"Track/Custom", "Track/Import", "Track/Retro"},
			PageCacheTTL:  time.Hour,
			PageCacheSize: 256,
		},
		Events: EventsConfig{
			BufferSize: 64,
		},
		Server: ServerConfig{
			Port:            8080,
			Host:            "0.0.0.0",
			Timeout:         30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			Environment:     "development",
		},
		Security: SecurityConfig{
			RateLimitReqs:     120,
			RateLimitWindow:   time.Minute,
			RateLimitDisabled: false,
			CORSOrigins:       []string{"*"},
			AdminTokenTTL:     24 * time.Hour,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
		Supervisor: SupervisorConfig{
			FailureThreshold: 5,
			FailureDecay:     30,
			FailureBackoff:   15 * time.Second,
			ShutdownTimeout:  10 * time.Second,
		},
	}
}

// LoadWithKoanf loads configuration with precedence ENV > file > defaults,
// then validates it.
func LoadWithKoanf() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if configPath := findConfigFile(); configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	// The set names are the API path segments; a file cannot rename them.
	cfg.TrackSets.Nintendo.Name = TrackSetNintendo
	cfg.TrackSets.CTGP.Name = TrackSetCTGP

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// findConfigFile returns CONFIG_PATH if it exists, else the first existing
// default path, else "".
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}

	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// sliceConfigPaths are split on commas when they arrive as a single string.
var sliceConfigPaths = []string{
	"wiki.categories",
	"security.cors_origins",
}

// processSliceFields turns comma-separated env values into slices.
func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		strVal, ok := k.Get(path).(string)
		if !ok || strVal == "" {
			continue
		}

		var parts []string
		for _, p := range strings.Split(strVal, ",") {
			if p = strings.TrimSpace(p); p != "" {
				parts = append(parts, p)
			}
		}
		if len(parts) == 0 {
			continue
		}
		if err := k.Set(path, parts); err != nil {
			return fmt.Errorf("failed to set %s: %w", path, err)
		}
	}
	return nil
}

// envMappings maps lower-cased environment variable names to config keys.
// Variables not listed here are ignored.
var envMappings = map[string]string{
	// Refresh
	"refresh_interval":       "refresh.interval",
	"refresh_timeout":        "refresh.timeout",
	"refresh_on_startup":     "refresh.on_startup",
	"refresh_retry_attempts": "refresh.retry_attempts",
	"refresh_retry_delay":    "refresh.retry_delay",

	// Decay
	"decay_half_life": "decay.half_life",
	"decay_cap":       "decay.cap",

	// Sources
	"source_user_agent":          "sources.user_agent",
	"source_request_timeout":     "sources.request_timeout",
	"source_requests_per_second": "sources.requests_per_second",
	"source_burst":               "sources.burst",
	"source_max_429_retries":     "sources.max_rate_limit_retries",
	"usage_page_size":            "sources.page_size",
	"usage_max_pages":            "sources.max_pages",
	"usage_name_column":          "sources.name_column",
	"usage_usage_column":         "sources.usage_column",
	"usage_added_column":         "sources.added_column",
	"detail_cache_path":          "sources.detail_cache_path",
	"detail_cache_ttl":           "sources.detail_cache_ttl",

	// Track sets
	"nintendo_enabled":      "track_sets.nintendo.enabled",
	"nintendo_title":        "track_sets.nintendo.title",
	"nintendo_feed_url":     "track_sets.nintendo.feed_url",
	"nintendo_usage_url":    "track_sets.nintendo.usage_url",
	"nintendo_target_count": "track_sets.nintendo.target_count",
	"ctgp_enabled":          "track_sets.ctgp.enabled",
	"ctgp_title":            "track_sets.ctgp.title",
	"ctgp_feed_url":         "track_sets.ctgp.feed_url",
	"ctgp_usage_url":        "track_sets.ctgp.usage_url",
	"ctgp_target_count":     "track_sets.ctgp.target_count",

	// Wiki
	"wiki_enabled":         "wiki.enabled",
	"wiki_api_url":         "wiki.api_url",
	"wiki_page_url":        "wiki.page_url",
	"wiki_categories":      "wiki.categories",
	"wiki_page_cache_ttl":  "wiki.page_cache_ttl",
	"wiki_page_cache_size": "wiki.page_cache_size",

	// Events
	"events_buffer_size": "events.buffer_size",

	// Server
	"http_port":             "server.port",
	"http_host":             "server.host",
	"http_timeout":          "server.timeout",
	"http_shutdown_timeout": "server.shutdown_timeout",
	"environment":           "server.environment",

	// Security
	"rate_limit_requests": "security.rate_limit_reqs",
	"rate_limit_window":   "security.rate_limit_window",
	"disable_rate_limit":  "security.rate_limit_disabled",
	"cors_origins":        "security.cors_origins",
	"admin_jwt_secret":    "security.admin_secret",
	"admin_token_ttl":     "security.admin_token_ttl",

	// Logging
	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",

	// Supervisor
	"supervisor_failure_threshold": "supervisor.failure_threshold",
	"supervisor_failure_decay":     "supervisor.failure_decay",
	"supervisor_failure_backoff":   "supervisor.failure_backoff",
	"supervisor_shutdown_timeout":  "supervisor.shutdown_timeout",
}

// envTransformFunc maps an environment variable name to its config key.
//
//	REFRESH_INTERVAL -> refresh.interval
//	CTGP_USAGE_URL   -> track_sets.ctgp.usage_url
//	HTTP_PORT        -> server.port
func envTransformFunc(key string) string {
	return envMappings[strings.ToLower(key)]
}

// envNameFor returns the environment variable that sets a config key, for
// error messages.
func envNameFor(configKey string) string {
	for envName, key := range envMappings {
		if key == configKey {
			return strings.ToUpper(envName)
		}
	}
	return configKey
}
