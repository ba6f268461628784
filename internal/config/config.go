// CTGP Popularity - Track Popularity Aggregation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/ctgp-popularity

package config

import (
	"net"
	"strconv"
	"time"
)

// Config holds all application configuration.
//
// Loading order (Koanf v2):
//  1. Defaults from defaultConfig()
//  2. Optional YAML file (CONFIG_PATH or one of DefaultConfigPaths)
//  3. Environment variables (see envTransformFunc for the names)
//
// Config is immutable after Load() and safe for concurrent reads.
type Config struct {
	Refresh    RefreshConfig    `koanf:"refresh"`
	Decay      DecayConfig      `koanf:"decay"`
	Sources    SourcesConfig    `koanf:"sources"`
	TrackSets  TrackSetsConfig  `koanf:"track_sets"`
	Wiki       WikiConfig       `koanf:"wiki"`
	Events     EventsConfig     `koanf:"events"`
	Server     ServerConfig     `koanf:"server"`
	Security   SecurityConfig   `koanf:"security"`
	Logging    LoggingConfig    `koanf:"logging"`
	Supervisor SupervisorConfig `koanf:"supervisor"`
}

// RefreshConfig controls the periodic refresh cycle.
//
// Environment Variables:
//   - REFRESH_INTERVAL: time between cycles (default: 55m)
//   - REFRESH_TIMEOUT: upper bound for one cycle (default: 10m)
//   - REFRESH_ON_STARTUP: run a cycle immediately on start (default: true)
//   - REFRESH_RETRY_ATTEMPTS: attempts per upstream request (default: 3)
//   - REFRESH_RETRY_DELAY: first retry delay, doubled each attempt (default: 2s)
type RefreshConfig struct {
	Interval      time.Duration `koanf:"interval"`
	Timeout       time.Duration `koanf:"timeout"`
	OnStartup     bool          `koanf:"on_startup"`
	RetryAttempts int           `koanf:"retry_attempts"`
	RetryDelay    time.Duration `koanf:"retry_delay"`
}

// DecayConfig sets the usage decay curve.
type DecayConfig struct {
	HalfLife time.Duration `koanf:"half_life"`
	Cap      time.Duration `koanf:"cap"`
}

// SourcesConfig holds settings shared by the upstream clients.
type SourcesConfig struct {
	UserAgent      string        `koanf:"user_agent"`
	RequestTimeout time.Duration `koanf:"request_timeout"`

	// RequestsPerSecond throttles requests to the usage site. 0 disables the limiter.
	RequestsPerSecond float64 `koanf:"requests_per_second"`
	Burst             int     `koanf:"burst"`

	// MaxRateLimitRetries bounds retries on HTTP 429.
	MaxRateLimitRetries int `koanf:"max_rate_limit_retries"`

	// Usage table pagination.
	PageSize int `koanf:"page_size"`
	MaxPages int `koanf:"max_pages"`

	// Usage table column positions (zero based).
	NameColumn  int `koanf:"name_column"`
	UsageColumn int `koanf:"usage_column"`
	AddedColumn int `koanf:"added_column"`

	// DetailCachePath is the badger directory for cached detail tokens.
	// Empty keeps the cache in memory.
	DetailCachePath string        `koanf:"detail_cache_path"`
	DetailCacheTTL  time.Duration `koanf:"detail_cache_ttl"`
}

// TrackSetConfig describes one family of tracks and where its data lives.
type TrackSetConfig struct {
	Name     string `koanf:"name"`
	Title    string `koanf:"title"`
	Enabled  bool   `koanf:"enabled"`
	FeedURL  string `koanf:"feed_url"`
	UsageURL string `koanf:"usage_url"`

	// TargetCount stops usage pagination once this many distinct records
	// were updated. 0 means "every record from the feed".
	TargetCount int `koanf:"target_count"`
}

// TrackSetsConfig lists the configured track sets.
type TrackSetsConfig struct {
	Nintendo TrackSetConfig `koanf:"nintendo"`
	CTGP     TrackSetConfig `koanf:"ctgp"`
}

// All returns the track sets in publication order.
func (t TrackSetsConfig) All() []TrackSetConfig {
	return []TrackSetConfig{t.Nintendo, t.CTGP}
}

// Enabled returns only the enabled track sets, in publication order.
func (t TrackSetsConfig) Enabled() []TrackSetConfig {
	var out []TrackSetConfig
	for _, ts := range t.All() {
		if ts.Enabled {
			out = append(out, ts)
		}
	}
	return out
}

// WikiConfig controls the custom track wiki catalogue.
//
// Environment Variables:
//   - WIKI_ENABLED (default: true)
//   - WIKI_API_URL: MediaWiki api.php endpoint
//   - WIKI_PAGE_URL: base URL that page titles are appended to
//   - WIKI_CATEGORIES: comma-separated category names
//   - WIKI_PAGE_CACHE_TTL / WIKI_PAGE_CACHE_SIZE
type WikiConfig struct {
	Enabled       bool          `koanf:"enabled"`
	APIURL        string        `koanf:"api_url"`
	PageURL       string        `koanf:"page_url"`
	Categories    []string      `koanf:"categories"`
	PageCacheTTL  time.Duration `koanf:"page_cache_ttl"`
	PageCacheSize int           `koanf:"page_cache_size"`
}

// EventsConfig sizes the in-process event bus.
type EventsConfig struct {
	BufferSize int64 `koanf:"buffer_size"`
}

// ServerConfig holds HTTP server settings.
//
// Environment Variables:
//   - HTTP_PORT / HTTP_HOST
//   - HTTP_TIMEOUT: read and write timeout per request (default: 30s)
//   - HTTP_SHUTDOWN_TIMEOUT: connection drain on shutdown (default: 10s)
type ServerConfig struct {
	Port            int           `koanf:"port"`
	Host            string        `koanf:"host"`
	Timeout         time.Duration `koanf:"timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
	Environment     string        `koanf:"environment"`
}

// Addr is the listen address.
func (s ServerConfig) Addr() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

// SecurityConfig holds request throttling, CORS and the admin token secret.
// Reads are public; only POST /api/v1/refresh checks AdminSecret.
type SecurityConfig struct {
	RateLimitReqs     int           `koanf:"rate_limit_reqs"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`
	CORSOrigins       []string      `koanf:"cors_origins"`

	// AdminSecret signs the HS256 bearer tokens accepted by the refresh
	// endpoint. Empty leaves the endpoint open (not allowed in production).
	AdminSecret   string        `koanf:"admin_secret"`
	AdminTokenTTL time.Duration `koanf:"admin_token_ttl"`
}

// SupervisorConfig tunes restart behaviour of the supervision tree.
//
// Environment Variables:
//   - SUPERVISOR_FAILURE_THRESHOLD: failures before backing off (default: 5)
//   - SUPERVISOR_FAILURE_DECAY: seconds for the failure count to decay (default: 30)
//   - SUPERVISOR_FAILURE_BACKOFF: pause once the threshold is hit (default: 15s)
//   - SUPERVISOR_SHUTDOWN_TIMEOUT: per-service stop deadline (default: 10s)
type SupervisorConfig struct {
	FailureThreshold float64       `koanf:"failure_threshold"`
	FailureDecay     float64       `koanf:"failure_decay"`
	FailureBackoff   time.Duration `koanf:"failure_backoff"`
	ShutdownTimeout  time.Duration `koanf:"shutdown_timeout"`
}

// LoggingConfig mirrors logging.Config.
type LoggingConfig struct {
	// Level: trace, debug, info, warn, error.
	Level string `koanf:"level"`

	// Format: json or console.
	Format string `koanf:"format"`

	// Caller adds file:line to each entry.
	Caller bool `koanf:"caller"`
}

// Load reads configuration from defaults, file and environment.
func Load() (*Config, error) {
	return LoadWithKoanf()
}
