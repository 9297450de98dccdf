// Copyright (c) 2026 Alignparty.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package router defines HTTP routes for the specvote API.

# Route Registration

NewRouter creates a configured http.ServeMux with all endpoints:

	mux := router.NewRouter(svc)

# Endpoints

Health:

	GET /health

Session lifecycle (host, requires X-Host-Key):

	POST /sessions                - Create session
	POST /sessions/{code}/lock    - Freeze the final config
	POST /sessions/{code}/end     - End a locked session

Participation (public, uses join code):

	POST /sessions/{code}/join      - Join or refresh presence
	POST /sessions/{code}/heartbeat - Refresh last-seen
	PUT  /sessions/{code}/selection - Submit/overwrite selection

Reads (public unless noted):

	GET /sessions/{code}                 - Session info
	GET /sessions/{code}/players         - Player list
	GET /sessions/{code}/selection       - Caller's selection
	GET /sessions/{code}/selection-count - Submission count
	GET /sessions/{code}/result          - Final config (locked only)
	GET /sessions/{code}/preview         - Live aggregate (host only)
	GET /sessions/{code}/live            - WebSocket stream

# Handler Initialization

The router creates handler instances with dependency injection:

	sessionHandler := handlers.NewSessionHandler(svc)
	playerHandler := handlers.NewPlayerHandler(svc)
	selectionHandler := handlers.NewSelectionHandler(svc)
	liveHandler := handlers.NewLiveHandler(svc)

All handlers receive the session service.
*/
package router
