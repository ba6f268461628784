// CTGP Popularity - Track Popularity Aggregation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/ctgp-popularity

/*
Package supervisor runs the long-lived services under a suture v4 tree.

# Overview

Services are grouped into three layers so a failure in one does not take
the others down:

	RootSupervisor ("ctgp-popularity")
	├── DataSupervisor ("data-layer")
	│   └── DetailCacheGCService (on-disk detail cache only)
	├── MessagingSupervisor ("messaging-layer")
	│   ├── WebSocketHubService
	│   ├── EventForwarderService
	│   └── RefreshService
	└── APISupervisor ("api-layer")
	    └── HTTPServerService

A refresh manager that keeps failing backs off inside the messaging layer;
the HTTP server keeps answering from the last published snapshot.

# Usage

	tree := supervisor.NewSupervisorTree(logging.NewSlogLogger(), cfg.Supervisor)
	tree.Add(supervisor.LayerMessaging, services.NewWebSocketHubService(hub))
	tree.Add(supervisor.LayerMessaging, services.NewRefreshService(manager))
	tree.Add(supervisor.LayerAPI, services.NewHTTPServerService(router, cfg.Server))

	errCh := tree.ServeBackground(ctx)

Restart policy (failure threshold, decay, backoff, stop deadline) comes from
the SUPERVISOR_* settings.

Supervisor events (start, failure, backoff) are logged through sutureslog
into the zerolog output via logging.NewSlogLogger.

# Return Values

	nil        service finished, not restarted
	error      service failed, restarted after backoff
	ctx.Err()  shutdown requested
*/
package supervisor
