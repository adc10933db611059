// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package testutil

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/danielhkuo/school-election/auth"
	"github.com/danielhkuo/school-election/cliparse"
	"github.com/danielhkuo/school-election/db"
)

// TestAdminEmail is the admin account used by GetTestConfig
const TestAdminEmail = "admin@school.example"

// SetupTestDB creates a fresh in-memory sqlite database with the full schema.
// The connection is closed when the test finishes.
func SetupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	conn, err := db.Open(db.TypeSQLite, "file::memory:")
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	if err := db.CreateSchema(conn, db.TypeSQLite); err != nil {
		t.Fatalf("Failed to create schema: %v", err)
	}

	return conn
}

// GetTestConfig returns a standard test configuration
func GetTestConfig() cliparse.Config {
	return cliparse.Config{
		Port:             3318,
		DatabaseURL:      "file::memory:",
		DatabaseType:     db.TypeSQLite,
		AdminEmail:       TestAdminEmail,
		AdminKeySalt:     "test-admin-salt",
		VoterTokenSalt:   "test-voter-salt",
		LogLevel:         "error",
		LogFormat:        "text",
		FeedPollInterval: 10 * time.Millisecond,
		BallotRate:       1000,
		BallotBurst:      1000,
	}
}

// AdminHeaders returns valid admin credentials for cfg
func AdminHeaders(cfg cliparse.Config) map[string]string {
	return map[string]string{
		"X-Admin-Email": cfg.AdminEmail,
		"X-Admin-Key":   auth.GenerateAdminKey(cfg.AdminEmail, cfg.AdminKeySalt),
	}
}

// CreateTestRole inserts a role and returns its ID
func CreateTestRole(t *testing.T, conn *sql.DB, title, category string) string {
	t.Helper()

	roleID, _ := auth.GenerateID(12)
	_, err := conn.Exec(`
		INSERT INTO election_role (id, title, category, created_at)
		VALUES ($1, $2, $3, $4)
	`, roleID, title, category, time.Now())
	if err != nil {
		t.Fatalf("Failed to create test role: %v", err)
	}

	return roleID
}

// CreateTestCandidate inserts a candidate for roleID and returns its ID
func CreateTestCandidate(t *testing.T, conn *sql.DB, roleID, name string, adjustment int) string {
	t.Helper()

	candidateID, _ := auth.GenerateID(12)
	_, err := conn.Exec(`
		INSERT INTO candidate (id, role_id, name, manual_adjustment, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, candidateID, roleID, name, adjustment, time.Now())
	if err != nil {
		t.Fatalf("Failed to create test candidate: %v", err)
	}

	return candidateID
}

// CastTestVote inserts a vote row directly, bypassing ballot checks.
// roleID does not need to exist.
func CastTestVote(t *testing.T, conn *sql.DB, voterToken, roleID, candidateID string) string {
	t.Helper()

	voteID := uuid.NewString()
	_, err := conn.Exec(`
		INSERT INTO vote (id, candidate_id, role_id, voter_token, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, voteID, candidateID, roleID, voterToken, time.Now())
	if err != nil {
		t.Fatalf("Failed to create test vote: %v", err)
	}

	return voteID
}

// SetTestSettings writes the settings singleton
func SetTestSettings(t *testing.T, conn *sql.DB, votingOpen, resultsVisible bool, release *time.Time) {
	t.Helper()

	_, err := conn.Exec(`
		INSERT INTO election_settings (id, voting_open, results_visible, results_release_date, updated_at)
		VALUES (1, $1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET
			voting_open = excluded.voting_open,
			results_visible = excluded.results_visible,
			results_release_date = excluded.results_release_date,
			updated_at = excluded.updated_at
	`, votingOpen, resultsVisible, release, time.Now())
	if err != nil {
		t.Fatalf("Failed to set test settings: %v", err)
	}
}

// MakeRequest creates an HTTP test request
func MakeRequest(method, path string, body interface{}, headers map[string]string) *http.Request {
	var req *http.Request
	if body != nil {
		jsonBody, _ := json.Marshal(body)
		req = httptest.NewRequest(method, path, bytes.NewReader(jsonBody))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}

	for k, v := range headers {
		req.Header.Set(k, v)
	}

	return req
}

// AssertStatus checks that the response has the expected status code
func AssertStatus(t *testing.T, w *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if w.Code != expected {
		t.Errorf("Expected status %d, got %d. Body: %s", expected, w.Code, w.Body.String())
	}
}

// AssertJSON decodes the response body into the provided struct
func AssertJSON(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.NewDecoder(w.Body).Decode(v); err != nil {
		t.Fatalf("Failed to decode JSON response: %v", err)
	}
}
