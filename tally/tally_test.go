// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package tally

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danielhkuo/school-election/models"
)

func vote(id, candidateID string) models.Vote {
	return models.Vote{ID: id, CandidateID: candidateID, VoterToken: "v-" + id}
}

func TestTabulate_AdjustmentAndVotes(t *testing.T) {
	roles := []models.Role{{ID: "R", Title: "Head Student", Category: models.CategoryLeadership}}
	candidates := []models.Candidate{
		{ID: "a1", Name: "Ava", RoleID: "R", ManualAdjustment: 0},
		{ID: "a2", Name: "Ben", RoleID: "R", ManualAdjustment: 5},
	}
	votes := []models.Vote{vote("v1", "a1")}

	res := Tabulate(roles, candidates, votes)

	require.Contains(t, res.Roles, "R")
	role := res.Roles["R"]
	require.NotNil(t, role.Title)
	assert.Equal(t, "Head Student", *role.Title)
	assert.Equal(t, 6, role.TotalVotes)
	require.Len(t, role.Candidates, 2)
	assert.Equal(t, "a2", role.Candidates[0].CandidateID)
	assert.Equal(t, 5, role.Candidates[0].EffectiveVotes)
	assert.Equal(t, "a1", role.Candidates[1].CandidateID)
	assert.Equal(t, 1, role.Candidates[1].EffectiveVotes)
	assert.Empty(t, res.Gaps)
}

func TestTabulate_ZeroVoteCandidatesAppear(t *testing.T) {
	roles := []models.Role{{ID: "R", Title: "Captain"}}
	candidates := []models.Candidate{
		{ID: "c1", Name: "Cai", RoleID: "R"},
		{ID: "c2", Name: "Dee", RoleID: "R"},
	}

	res := Tabulate(roles, candidates, nil)

	role := res.Roles["R"]
	require.Len(t, role.Candidates, 2)
	for _, c := range role.Candidates {
		assert.Equal(t, 0, c.EffectiveVotes)
	}
	assert.Equal(t, 0, role.TotalVotes)
}

func TestTabulate_StableTieBreak(t *testing.T) {
	roles := []models.Role{{ID: "R", Title: "Captain"}}
	candidates := []models.Candidate{
		{ID: "z", Name: "Zed", RoleID: "R", ManualAdjustment: 2},
		{ID: "m", Name: "Mo", RoleID: "R", ManualAdjustment: 3},
		{ID: "a", Name: "Al", RoleID: "R", ManualAdjustment: 2},
		{ID: "k", Name: "Kit", RoleID: "R", ManualAdjustment: 2},
	}

	res := Tabulate(roles, candidates, nil)

	var order []string
	for _, c := range res.Roles["R"].Candidates {
		order = append(order, c.CandidateID)
	}
	assert.Equal(t, []string{"m", "z", "a", "k"}, order)
}

func TestTabulate_UnknownCandidateExcluded(t *testing.T) {
	roles := []models.Role{{ID: "R", Title: "Captain"}}
	candidates := []models.Candidate{{ID: "c1", Name: "Cai", RoleID: "R"}}
	votes := []models.Vote{
		vote("v1", "c1"),
		vote("v2", "deleted"),
	}

	res := Tabulate(roles, candidates, votes)

	assert.Equal(t, 1, res.Roles["R"].TotalVotes)
	assert.Equal(t, 1, res.Total())
	require.Len(t, res.Gaps, 1)
	assert.Equal(t, Gap{Kind: GapUnknownCandidate, RowID: "v2", Target: "deleted"}, res.Gaps[0])
}

func TestTabulate_UnknownRoleHasNilTitle(t *testing.T) {
	candidates := []models.Candidate{
		{ID: "c1", Name: "Cai", RoleID: "ghost"},
		{ID: "c2", Name: "Dee", RoleID: "ghost", ManualAdjustment: 1},
	}
	votes := []models.Vote{vote("v1", "c1")}

	res := Tabulate(nil, candidates, votes)

	role, ok := res.Roles["ghost"]
	require.True(t, ok)
	assert.Nil(t, role.Title)
	assert.Equal(t, 2, role.TotalVotes)
	assert.Len(t, res.Gaps, 2)
	for _, g := range res.Gaps {
		assert.Equal(t, GapUnknownRole, g.Kind)
		assert.Equal(t, "ghost", g.Target)
	}
}

func TestTabulate_NegativeAdjustmentTreatedAsZero(t *testing.T) {
	candidates := []models.Candidate{{ID: "c1", Name: "Cai", RoleID: "R", ManualAdjustment: -4}}
	res := Tabulate([]models.Role{{ID: "R", Title: "Captain"}}, candidates, nil)
	assert.Equal(t, 0, res.Roles["R"].Candidates[0].EffectiveVotes)
}

func TestTabulate_SumInvariant(t *testing.T) {
	roles := []models.Role{{ID: "R1", Title: "One"}, {ID: "R2", Title: "Two"}}
	var candidates []models.Candidate
	adjSum := 0
	for i := 0; i < 8; i++ {
		adj := (i * 7) % 5
		adjSum += adj
		candidates = append(candidates, models.Candidate{
			ID:               fmt.Sprintf("c%d", i),
			Name:             fmt.Sprintf("Candidate %d", i),
			RoleID:           roles[i%2].ID,
			ManualAdjustment: adj,
		})
	}

	var votes []models.Vote
	known := 0
	for i := 0; i < 50; i++ {
		target := fmt.Sprintf("c%d", (i*3)%11) // c8..c10 do not exist
		if (i*3)%11 < 8 {
			known++
		}
		votes = append(votes, vote(fmt.Sprintf("v%d", i), target))
	}

	res := Tabulate(roles, candidates, votes)

	assert.Equal(t, adjSum+known, res.Total())
	sum := 0
	for _, role := range res.Roles {
		roleSum := 0
		for _, c := range role.Candidates {
			roleSum += c.EffectiveVotes
		}
		assert.Equal(t, roleSum, role.TotalVotes)
		sum += roleSum
	}
	assert.Equal(t, adjSum+known, sum)
}

func TestTabulate_Idempotent(t *testing.T) {
	roles := []models.Role{{ID: "R", Title: "Captain"}}
	candidates := []models.Candidate{
		{ID: "c1", Name: "Cai", RoleID: "R", ManualAdjustment: 1},
		{ID: "c2", Name: "Dee", RoleID: "R"},
	}
	votes := []models.Vote{vote("v1", "c2"), vote("v2", "c2"), vote("v3", "c1")}

	first := Tabulate(roles, candidates, votes)
	second := Tabulate(roles, candidates, votes)

	assert.Equal(t, first, second)
	assert.Equal(t, first.Ordered(), second.Ordered())
}

func TestResult_Ordered(t *testing.T) {
	candidates := []models.Candidate{
		{ID: "c1", RoleID: "r2"},
		{ID: "c2", RoleID: "r1"},
		{ID: "c3", RoleID: "r3"},
	}
	roles := []models.Role{{ID: "r1"}, {ID: "r2"}, {ID: "r3"}}

	ordered := Tabulate(roles, candidates, nil).Ordered()

	require.Len(t, ordered, 3)
	assert.Equal(t, "r1", ordered[0].RoleID)
	assert.Equal(t, "r2", ordered[1].RoleID)
	assert.Equal(t, "r3", ordered[2].RoleID)
}

func TestLive(t *testing.T) {
	roles := []models.Role{{ID: "R", Title: "Captain"}}
	candidates := []models.Candidate{
		{ID: "c1", Name: "Cai", RoleID: "R", ManualAdjustment: 10},
		{ID: "c2", Name: "Dee", RoleID: "R"},
	}
	base := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	votes := []models.Vote{
		{ID: "v1", CandidateID: "c1", CreatedAt: base},
		{ID: "v2", CandidateID: "c2", CreatedAt: base.Add(time.Minute)},
		{ID: "v3", CandidateID: "gone", CreatedAt: base.Add(2 * time.Minute)},
	}

	live := Live(roles, candidates, votes)

	assert.Equal(t, 3, live.TotalVotes)
	assert.Equal(t, 1, live.VotesByRole["Captain"]["Cai"])
	assert.Equal(t, 1, live.VotesByRole["Captain"]["Dee"])
	assert.Equal(t, 1, live.VotesByRole[unknownRole][unknownCandidate])
	require.Len(t, live.RecentVotes, 3)
	assert.Equal(t, "v3", live.RecentVotes[0].ID)
	assert.Equal(t, "v1", live.RecentVotes[2].ID)
}

func TestLive_RecentVotesCapped(t *testing.T) {
	candidates := []models.Candidate{{ID: "c1", Name: "Cai", RoleID: "R"}}
	var votes []models.Vote
	base := time.Now()
	for i := 0; i < RecentVoteLimit+5; i++ {
		votes = append(votes, models.Vote{
			ID:          fmt.Sprintf("v%d", i),
			CandidateID: "c1",
			CreatedAt:   base.Add(time.Duration(i) * time.Second),
		})
	}

	live := Live([]models.Role{{ID: "R", Title: "Captain"}}, candidates, votes)

	assert.Equal(t, RecentVoteLimit+5, live.TotalVotes)
	assert.Len(t, live.RecentVotes, RecentVoteLimit)
	assert.Equal(t, fmt.Sprintf("v%d", RecentVoteLimit+4), live.RecentVotes[0].ID)
}
