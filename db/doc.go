// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package db opens the database and creates the schema.

# Drivers

Two database types are supported:

  - postgres: github.com/lib/pq
  - sqlite: modernc.org/sqlite (pure Go, used by tests)

	conn, err := db.Open(db.TypeSQLite, "file:election.db")

# Schema Creation

CreateSchema initializes all required tables for the given dialect:

	if err := db.CreateSchema(conn, cfg.DatabaseType); err != nil {
		log.Fatal(err)
	}

Safe to call multiple times - uses IF NOT EXISTS for all tables and indexes.

# Tables

  - election_role: electable positions
  - candidate: candidates with manual_adjustment (never negative)
  - vote: one row per (voter_token, role)
  - election_settings: singleton (id = 1), not created by the schema
  - admin_audit: administrative mutations

# Change Notifications

On postgres, statement triggers call pg_notify on NotifyChannel whenever
vote, candidate or election_settings change. On sqlite, triggers bump
feed_revision.rev, which the feed package polls.
*/
package db
