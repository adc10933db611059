// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package db

import (
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// Database types
const (
	TypePostgres = "postgres"
	TypeSQLite   = "sqlite"
)

// NotifyChannel is the postgres LISTEN channel fired on election changes.
const NotifyChannel = "election_changes"

// Open connects to the database and verifies the connection.
func Open(dbType, url string) (*sql.DB, error) {
	var driver string
	switch dbType {
	case TypePostgres:
		driver = "postgres"
	case TypeSQLite:
		driver = "sqlite"
	default:
		return nil, fmt.Errorf("unsupported database type %q", dbType)
	}

	conn, err := sql.Open(driver, url)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", dbType, err)
	}

	if dbType == TypeSQLite {
		// One writer; also keeps ":memory:" databases on a single connection
		conn.SetMaxOpenConns(1)
	}

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping %s database: %w", dbType, err)
	}

	return conn, nil
}

// CreateSchema creates all tables needed for the application.
// Safe to call multiple times - uses IF NOT EXISTS.
func CreateSchema(db *sql.DB, dbType string) error {
	schema := postgresSchema
	if dbType == TypeSQLite {
		schema = sqliteSchema
	}

	_, err := db.Exec(schema)
	if err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	return nil
}

// Votes and candidates carry no foreign keys: votes are an append-only log
// and may outlive a removed candidate.
const postgresSchema = `
-- Roles
CREATE TABLE IF NOT EXISTS election_role (
    id TEXT PRIMARY KEY,
    title TEXT NOT NULL,
    category TEXT NOT NULL CHECK (category IN ('Leadership', 'House Captains')),
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

-- Candidates
CREATE TABLE IF NOT EXISTS candidate (
    id TEXT PRIMARY KEY,
    role_id TEXT NOT NULL,
    name TEXT NOT NULL,
    description TEXT,
    manual_adjustment INTEGER NOT NULL DEFAULT 0 CHECK (manual_adjustment >= 0),
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_candidate_role_id ON candidate(role_id);

-- Votes
CREATE TABLE IF NOT EXISTS vote (
    id TEXT PRIMARY KEY,
    candidate_id TEXT NOT NULL,
    role_id TEXT NOT NULL,
    voter_token TEXT NOT NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    UNIQUE (voter_token, role_id)
);

CREATE INDEX IF NOT EXISTS idx_vote_candidate_id ON vote(candidate_id);
CREATE INDEX IF NOT EXISTS idx_vote_created_at ON vote(created_at);

-- Settings singleton
CREATE TABLE IF NOT EXISTS election_settings (
    id INTEGER PRIMARY KEY CHECK (id = 1),
    voting_open BOOLEAN NOT NULL DEFAULT TRUE,
    results_visible BOOLEAN NOT NULL DEFAULT FALSE,
    results_release_date TIMESTAMPTZ,
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

-- Admin audit log
CREATE TABLE IF NOT EXISTS admin_audit (
    id TEXT PRIMARY KEY,
    actor TEXT NOT NULL,
    action TEXT NOT NULL,
    target TEXT NOT NULL,
    detail TEXT NOT NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_admin_audit_created_at ON admin_audit(created_at);

-- Change notifications
CREATE OR REPLACE FUNCTION notify_election_change() RETURNS trigger AS $$
BEGIN
    PERFORM pg_notify('election_changes', TG_TABLE_NAME);
    RETURN NULL;
END;
$$ LANGUAGE plpgsql;

DROP TRIGGER IF EXISTS vote_changed ON vote;
CREATE TRIGGER vote_changed AFTER INSERT OR UPDATE OR DELETE ON vote
    FOR EACH STATEMENT EXECUTE FUNCTION notify_election_change();

DROP TRIGGER IF EXISTS role_changed ON election_role;
CREATE TRIGGER role_changed AFTER INSERT OR UPDATE OR DELETE ON election_role
    FOR EACH STATEMENT EXECUTE FUNCTION notify_election_change();

DROP TRIGGER IF EXISTS candidate_changed ON candidate;
CREATE TRIGGER candidate_changed AFTER INSERT OR UPDATE OR DELETE ON candidate
    FOR EACH STATEMENT EXECUTE FUNCTION notify_election_change();

DROP TRIGGER IF EXISTS settings_changed ON election_settings;
CREATE TRIGGER settings_changed AFTER INSERT OR UPDATE OR DELETE ON election_settings
    FOR EACH STATEMENT EXECUTE FUNCTION notify_election_change();
`

// SQLite has no LISTEN/NOTIFY; triggers bump feed_revision instead and the
// feed polls it.
const sqliteSchema = `
CREATE TABLE IF NOT EXISTS election_role (
    id TEXT PRIMARY KEY,
    title TEXT NOT NULL,
    category TEXT NOT NULL CHECK (category IN ('Leadership', 'House Captains')),
    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS candidate (
    id TEXT PRIMARY KEY,
    role_id TEXT NOT NULL,
    name TEXT NOT NULL,
    description TEXT,
    manual_adjustment INTEGER NOT NULL DEFAULT 0 CHECK (manual_adjustment >= 0),
    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_candidate_role_id ON candidate(role_id);

CREATE TABLE IF NOT EXISTS vote (
    id TEXT PRIMARY KEY,
    candidate_id TEXT NOT NULL,
    role_id TEXT NOT NULL,
    voter_token TEXT NOT NULL,
    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    UNIQUE (voter_token, role_id)
);

CREATE INDEX IF NOT EXISTS idx_vote_candidate_id ON vote(candidate_id);
CREATE INDEX IF NOT EXISTS idx_vote_created_at ON vote(created_at);

CREATE TABLE IF NOT EXISTS election_settings (
    id INTEGER PRIMARY KEY CHECK (id = 1),
    voting_open BOOLEAN NOT NULL DEFAULT 1,
    results_visible BOOLEAN NOT NULL DEFAULT 0,
    results_release_date TIMESTAMP,
    updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS admin_audit (
    id TEXT PRIMARY KEY,
    actor TEXT NOT NULL,
    action TEXT NOT NULL,
    target TEXT NOT NULL,
    detail TEXT NOT NULL,
    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_admin_audit_created_at ON admin_audit(created_at);

CREATE TABLE IF NOT EXISTS feed_revision (
    id INTEGER PRIMARY KEY CHECK (id = 1),
    rev INTEGER NOT NULL
);

INSERT OR IGNORE INTO feed_revision (id, rev) VALUES (1, 0);

CREATE TRIGGER IF NOT EXISTS vote_insert_rev AFTER INSERT ON vote
BEGIN UPDATE feed_revision SET rev = rev + 1 WHERE id = 1; END;
CREATE TRIGGER IF NOT EXISTS vote_delete_rev AFTER DELETE ON vote
BEGIN UPDATE feed_revision SET rev = rev + 1 WHERE id = 1; END;
CREATE TRIGGER IF NOT EXISTS role_insert_rev AFTER INSERT ON election_role
BEGIN UPDATE feed_revision SET rev = rev + 1 WHERE id = 1; END;
CREATE TRIGGER IF NOT EXISTS candidate_insert_rev AFTER INSERT ON candidate
BEGIN UPDATE feed_revision SET rev = rev + 1 WHERE id = 1; END;
CREATE TRIGGER IF NOT EXISTS candidate_update_rev AFTER UPDATE ON candidate
BEGIN UPDATE feed_revision SET rev = rev + 1 WHERE id = 1; END;
CREATE TRIGGER IF NOT EXISTS candidate_delete_rev AFTER DELETE ON candidate
BEGIN UPDATE feed_revision SET rev = rev + 1 WHERE id = 1; END;
CREATE TRIGGER IF NOT EXISTS settings_insert_rev AFTER INSERT ON election_settings
BEGIN UPDATE feed_revision SET rev = rev + 1 WHERE id = 1; END;
CREATE TRIGGER IF NOT EXISTS settings_update_rev AFTER UPDATE ON election_settings
BEGIN UPDATE feed_revision SET rev = rev + 1 WHERE id = 1; END;
`
