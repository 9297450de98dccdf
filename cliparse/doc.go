// Copyright (c) 2026 Alignparty.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package cliparse handles command-line argument parsing and configuration.

# Configuration

ParseFlags returns a Config struct with all settings:

	cfg, err := cliparse.ParseFlags(os.Args[1:])

# Config Fields

  - Port: Server listen port (default: 3419)
  - StoreURL: Redis or PostgreSQL connection string (required)
  - StoreType: "redis" (default) or "postgres"

# CLI Flags

	-p  Server port
	-s  Store URL
	-t  Store type

# Environment Variables

Flags fall back to environment variables:

	PORT       → -p
	STORE_URL  → -s
	STORE_TYPE → -t

CLI flags take precedence over environment variables.

# Validation

ParseFlags returns an error if STORE_URL is missing or STORE_TYPE is
not one of redis, postgres.
*/
package cliparse
