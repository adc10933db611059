// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/danielhkuo/school-election/cliparse"
	"github.com/danielhkuo/school-election/db"
	"github.com/danielhkuo/school-election/gate"
	"github.com/danielhkuo/school-election/live"
	"github.com/danielhkuo/school-election/metrics"
	"github.com/danielhkuo/school-election/models"
	"github.com/danielhkuo/school-election/store"
	"github.com/danielhkuo/school-election/testutil"
	"github.com/danielhkuo/school-election/validation"
)

// testEnv wires every handler to one in-memory database
type testEnv struct {
	db       *sql.DB
	store    *store.SQLStore
	cfg      cliparse.Config
	metrics  *metrics.Metrics
	hub      *live.Hub
	election *ElectionHandler
	voting   *VotingHandler
	results  *ResultsHandler
	admin    *AdminHandler
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	conn := testutil.SetupTestDB(t)
	cfg := testutil.GetTestConfig()
	s := store.NewSQLStore(conn, db.TypeSQLite)
	m := metrics.New()
	hub := live.NewHub(m)
	t.Cleanup(hub.Close)
	v := validation.New()

	return &testEnv{
		db:       conn,
		store:    s,
		cfg:      cfg,
		metrics:  m,
		hub:      hub,
		election: NewElectionHandler(s, cfg, v),
		voting:   NewVotingHandler(s, cfg, v, m),
		results:  NewResultsHandler(s, hub, m),
		admin:    NewAdminHandler(s, hub, v, m),
	}
}

// seed creates the scenario used across handler tests: one leadership role
// with two candidates and one house captain role with one candidate.
func (e *testEnv) seed(t *testing.T) (head, house, alice, bob, cai string) {
	t.Helper()
	head = testutil.CreateTestRole(t, e.db, "Head Student", models.CategoryLeadership)
	house = testutil.CreateTestRole(t, e.db, "Red House Captain", models.CategoryHouseCaptains)
	alice = testutil.CreateTestCandidate(t, e.db, head, "Alice", 0)
	bob = testutil.CreateTestCandidate(t, e.db, head, "Bob", 0)
	cai = testutil.CreateTestCandidate(t, e.db, house, "Cai", 0)
	return
}

// brokenStore fails every read, as a dropped database connection would
type brokenStore struct {
	store.Store
}

var errConnection = errors.New("connection refused")

func (brokenStore) Snapshot(ctx context.Context) (gate.Snapshot, error) {
	return gate.Snapshot{}, errConnection
}

func (brokenStore) Election(ctx context.Context) (gate.Snapshot, error) {
	return gate.Snapshot{}, errConnection
}

func (brokenStore) VotedRoles(ctx context.Context, voterToken string) ([]string, error) {
	return nil, errConnection
}

func (brokenStore) AuditLog(ctx context.Context, limit int) ([]models.AuditEntry, error) {
	return nil, errConnection
}
