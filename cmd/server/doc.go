// CTGP Popularity - Track Popularity Aggregation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/ctgp-popularity

/*
Package main is the ctgp-popularity server.

It periodically pulls the Time Trial ranking feed and the Wiimmfi usage
tables, merges them into ranked track sets, and serves the latest snapshot
over a JSON API and a WebSocket feed.

# Process Layout

	RootSupervisor ("ctgp-popularity")
	├── DataSupervisor ("data-layer")
	│   └── Detail cache GC (only with DETAIL_CACHE_PATH)
	├── MessagingSupervisor ("messaging-layer")
	│   ├── WebSocket hub
	│   ├── Event forwarder (bus -> hub)
	│   └── Refresh manager
	└── APISupervisor ("api-layer")
	    └── HTTP server

Startup order:

 1. .env file, if present (joho/godotenv)
 2. Configuration: defaults, config.yaml, environment (Koanf v2)
 3. Logging (zerolog)
 4. Fetcher chains per upstream: retry, circuit breaker, rate limited HTTP
 5. Detail token cache (BadgerDB)
 6. Refresh manager, wiki catalogue, event bus
 7. WebSocket hub, event forwarder, API router
 8. Supervisor tree, then wait for SIGINT or SIGTERM

# Configuration

Common environment variables:

	REFRESH_INTERVAL=55m      time between refresh cycles
	REFRESH_ON_STARTUP=true   refresh immediately on start
	DETAIL_CACHE_PATH=        badger directory; empty keeps it in memory
	WIKI_ENABLED=true         load the custom track wiki catalogue
	HTTP_PORT=8080
	LOG_LEVEL=info
	LOG_FORMAT=json

See internal/config for the full list.

# Example

	export REFRESH_INTERVAL=30m
	export LOG_FORMAT=console
	./ctgp-popularity

	curl localhost:8080/api/v1/tracksets/ctgp/top?count=5&sort=wf
*/
package main
