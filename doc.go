// Copyright (c) 2026 Alignparty.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package main provides the entry point for the specvote API server.

Specvote is the session backend for a group exercise in configuring a
simulated AI agent: participants vote on the agent's model, goal, and
permission dials, and a host locks the converged configuration for
downstream gameplay.

# Starting the Server

The server requires environment variables or CLI flags for configuration:

	STORE_URL=redis://localhost:6379 go run main.go

Or with flags:

	go run main.go -p 3419 -s "redis://localhost:6379"

# Configuration

Required settings:

  - STORE_URL (-s): Redis or PostgreSQL connection string

Optional settings:

  - STORE_TYPE (-t): "redis" (default) or "postgres"
  - PORT (-p): Server port (default: 3419)

A .env file in the working directory is loaded if present.

# Architecture

The server uses a handler-based architecture with dependency injection:

  - specs: configuration shape, deterministic aggregation, config hashing
  - session: session state machine (create, join, submit, lock, end)
  - store: document-store boundary with Redis and Postgres backends
  - handlers: HTTP request handlers (sessions, players, selections, live)
  - router: Route definitions using Go 1.22+ routing
  - middleware: CORS, logging, JSON helpers
  - models: Request/response and domain types
  - identity: participant/host ids and join codes
  - cliparse: Configuration parsing

See package documentation for each component.
*/
package main
