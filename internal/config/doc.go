// CTGP Popularity - Track Popularity Aggregation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/ctgp-popularity

/*
Package config loads and validates the service configuration.

Configuration is layered with Koanf v2: struct defaults, then an optional
YAML file (CONFIG_PATH, ./config.yaml, /etc/ctgp-popularity/config.yaml),
then environment variables. Only the variables listed in envMappings are
read; anything else in the environment is ignored.

# Sections

  - refresh: cycle interval (REFRESH_INTERVAL, default 55m), per-cycle timeout
    (REFRESH_TIMEOUT, default 10m) and upstream retry policy
  - decay: half-life (DECAY_HALF_LIFE, default 672h) and age cap (DECAY_CAP,
    default 2016h) of the usage decay curve
  - sources: user agent, request timeout, politeness limiter, usage table
    pagination and column layout, detail token cache
  - track_sets.nintendo / track_sets.ctgp: feed URL, usage URL prefix and
    target count per track set (NINTENDO_FEED_URL, CTGP_USAGE_URL, ...)
  - wiki: MediaWiki API and page URLs, categories (WIKI_CATEGORIES, comma
    separated), page cache
  - events: in-process event bus buffer
  - server: HTTP listener (HTTP_HOST, HTTP_PORT)
  - security: API rate limiting and CORS origins
  - logging: LOG_LEVEL, LOG_FORMAT, LOG_CALLER

# Example YAML

	refresh:
	  interval: 30m
	track_sets:
	  nintendo:
	    enabled: false
	wiki:
	  categories: ["Track/Custom"]
*/
package config
