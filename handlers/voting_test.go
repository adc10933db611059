// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"

	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danielhkuo/school-election/auth"
	"github.com/danielhkuo/school-election/models"
	"github.com/danielhkuo/school-election/testutil"
)

func submit(env *testEnv, token string, selections map[string]string) *httptest.ResponseRecorder {
	headers := map[string]string{}
	if token != "" {
		headers["X-Voter-Token"] = token
	}
	req := testutil.MakeRequest("POST", "/ballots", models.SubmitBallotRequest{Selections: selections}, headers)
	w := httptest.NewRecorder()
	env.voting.SubmitBallot(w, req)
	return w
}

func TestSubmitBallot(t *testing.T) {
	env := newTestEnv(t)
	head, house, alice, bob, cai := env.seed(t)

	voter := auth.VoterToken("1000001", env.cfg.VoterTokenSalt)
	other := auth.VoterToken("1000002", env.cfg.VoterTokenSalt)

	tests := []struct {
		name           string
		token          string
		selections     map[string]string
		expectedStatus int
	}{
		{"full ballot", voter, map[string]string{head: alice, house: cai}, http.StatusCreated},
		{"same role again", voter, map[string]string{head: bob}, http.StatusConflict},
		{"missing token", "", map[string]string{head: alice}, http.StatusUnauthorized},
		{"forged token", "not-a-token", map[string]string{head: alice}, http.StatusUnauthorized},
		{"token from another server", auth.VoterToken("1000002", "other-salt"), map[string]string{head: alice}, http.StatusUnauthorized},
		{"candidate from other role", other, map[string]string{house: bob}, http.StatusBadRequest},
		{"unknown candidate", other, map[string]string{head: "missing"}, http.StatusNotFound},
		{"empty selections", other, map[string]string{}, http.StatusBadRequest},
		{"one role at a time", other, map[string]string{head: bob}, http.StatusCreated},
		{"second role later", other, map[string]string{house: cai}, http.StatusCreated},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := submit(env, tt.token, tt.selections)
			testutil.AssertStatus(t, w, tt.expectedStatus)
		})
	}

	var count int
	require.NoError(t, env.db.QueryRow(`SELECT COUNT(*) FROM vote`).Scan(&count))
	assert.Equal(t, 4, count)

	assert.Equal(t, 3.0, promtest.ToFloat64(env.metrics.BallotsCast))
	assert.Equal(t, 1.0, promtest.ToFloat64(env.metrics.BallotsRefused.WithLabelValues("already_voted")))
	assert.Equal(t, 2.0, promtest.ToFloat64(env.metrics.BallotsRefused.WithLabelValues("bad_token")))
}

func TestSubmitBallot_Response(t *testing.T) {
	env := newTestEnv(t)
	head, house, alice, _, cai := env.seed(t)

	w := submit(env, auth.VoterToken("1000001", env.cfg.VoterTokenSalt), map[string]string{head: alice, house: cai})
	testutil.AssertStatus(t, w, http.StatusCreated)

	var resp models.SubmitBallotResponse
	testutil.AssertJSON(t, w, &resp)
	assert.Len(t, resp.VoteIDs, 2)
	assert.NotEmpty(t, resp.Message)
}

func TestSubmitBallot_VotingClosed(t *testing.T) {
	env := newTestEnv(t)
	head, _, alice, _, _ := env.seed(t)
	testutil.SetTestSettings(t, env.db, false, false, nil)

	w := submit(env, auth.VoterToken("1000001", env.cfg.VoterTokenSalt), map[string]string{head: alice})

	testutil.AssertStatus(t, w, http.StatusConflict)
	var resp models.ErrorResponse
	testutil.AssertJSON(t, w, &resp)
	assert.Equal(t, "Voting is closed", resp.Message)
}

func TestSubmitBallot_PartialFailureWritesNothing(t *testing.T) {
	env := newTestEnv(t)
	head, house, alice, bob, _ := env.seed(t)
	token := auth.VoterToken("1000001", env.cfg.VoterTokenSalt)

	w := submit(env, token, map[string]string{head: alice, house: bob})
	testutil.AssertStatus(t, w, http.StatusBadRequest)

	voted, err := env.store.VotedRoles(t.Context(), token)
	require.NoError(t, err)
	assert.Empty(t, voted)
}

// Many voters at once all land; one voter racing themselves lands once.
func TestConcurrentBallotSubmissions(t *testing.T) {
	env := newTestEnv(t)
	head, _, alice, bob, _ := env.seed(t)

	const numVoters = 10
	var wg sync.WaitGroup
	var successCount atomic.Int32

	for i := 0; i < numVoters; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			token := auth.VoterToken(strconv.Itoa(2000000+i), env.cfg.VoterTokenSalt)
			choice := alice
			if i%2 == 1 {
				choice = bob
			}
			if submit(env, token, map[string]string{head: choice}).Code == http.StatusCreated {
				successCount.Add(1)
			}
		}(i)
	}
	wg.Wait()
	assert.Equal(t, int32(numVoters), successCount.Load())

	successCount.Store(0)
	var conflictCount atomic.Int32
	token := auth.VoterToken("3000000", env.cfg.VoterTokenSalt)
	for i := 0; i < numVoters; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			switch submit(env, token, map[string]string{head: alice}).Code {
			case http.StatusCreated:
				successCount.Add(1)
			case http.StatusConflict:
				conflictCount.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), successCount.Load())
	assert.Equal(t, int32(numVoters-1), conflictCount.Load())

	var count int
	require.NoError(t, env.db.QueryRow(`SELECT COUNT(*) FROM vote`).Scan(&count))
	assert.Equal(t, numVoters+1, count)
}
