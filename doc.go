// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package main provides the entry point for the school election API server.

Students log in with their student ID, receive an anonymous voter token and
cast one vote per role. Results stay sealed until an admin makes them
visible or a scheduled release date passes. Admins watch a live tally in the
meantime and can apply manual adjustments, which are audited.

# Starting the Server

The server requires environment variables or CLI flags for configuration:

	DATABASE_URL=file:election.db go run .

Or with flags:

	go run . -p 3318 -t postgres -d "postgres://..."

Print the admin key for ADMIN_EMAIL:

	go run . adminkey

# Configuration

Required settings:

  - DATABASE_URL (-d): sqlite file or PostgreSQL connection string
  - ADMIN_EMAIL (--admin-email): the admin account
  - ADMIN_KEY_SALT (--admin-salt): Secret for admin key HMAC
  - VOTER_TOKEN_SALT (--voter-salt): Secret for voter token HMAC

Optional settings:

  - PORT (-p): Server port (default: 3318)
  - DATABASE_TYPE (-t): sqlite or postgres (default: sqlite)
  - LOG_LEVEL, LOG_FORMAT, FEED_POLL_INTERVAL, BALLOT_RATE, BALLOT_BURST,
    TRUST_PROXY

A .env file in the working directory is loaded first.

# Architecture

  - tally: pure tabulation of votes and adjustments
  - gate: decides whether results may be disclosed
  - store: database reads and transactional writes
  - feed: change notifications and the watcher that re-tabulates
  - live: server-sent event hub
  - handlers, router: HTTP surface
  - middleware: logging, admin auth, rate limits, CORS, JSON helpers
  - validation, ratelimit, metrics: supporting infrastructure
  - models, auth, db, cliparse: types, tokens, schema, configuration

See package documentation for each component.
*/
package main
