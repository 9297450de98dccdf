// Copyright (c) 2026 Alignparty.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package handlers contains HTTP request handlers for the specvote API.

# Handler Types

Each handler is a struct holding the session service:

  - SessionHandler: session lifecycle (create, lock, end, result)
  - PlayerHandler: joining, heartbeats, player listing
  - SelectionHandler: selection submission, counts, host preview
  - LiveHandler: WebSocket streaming of session state

Handlers are created via constructor functions that accept the service:

	sessionHandler := handlers.NewSessionHandler(svc)

# Session Lifecycle

Sessions progress through three states: lobby → locked → ended

	POST /sessions               → CreateSession (returns join_code, host_key)
	POST /sessions/{code}/lock   → LockSession (freezes the final config)
	POST /sessions/{code}/end    → EndSession
	GET  /sessions/{code}/result → GetResult (locked sessions only)

Host operations require the X-Host-Key header.

# Voting Flow

Participants interact via the join code:

	POST /sessions/{code}/join      → Join (returns participant_id)
	PUT  /sessions/{code}/selection → Submit (create or overwrite)

Participant operations require the X-Participant-ID header.

# Live Streaming

GET /sessions/{code}/live upgrades to a WebSocket and pushes session,
player, and selection-count frames on every store change. With
?host_key= the stream adds preview frames: the would-be final config,
computed by the same aggregator the lock uses.
*/
package handlers
