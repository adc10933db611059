// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package tally

import (
	"sort"

	"github.com/danielhkuo/school-election/models"
)

// Gap kinds
const (
	GapUnknownCandidate = "unknown_candidate"
	GapUnknownRole      = "unknown_role"
)

// Gap is a row that referenced a parent missing from the snapshot.
type Gap struct {
	Kind   string // GapUnknownCandidate or GapUnknownRole
	RowID  string // vote ID or candidate ID
	Target string // the missing candidate or role ID
}

// Result holds aggregated results keyed by role ID.
type Result struct {
	Roles map[string]models.AggregatedRoleResult
	Gaps  []Gap
}

// Tabulate aggregates votes into per-role results.
// Every candidate starts at its manual adjustment and gains one per vote.
// Votes for candidates missing from the snapshot are skipped and reported in
// Result.Gaps, as are candidates whose role is missing; those candidates are
// still grouped under their raw role ID with a nil title.
func Tabulate(roles []models.Role, candidates []models.Candidate, votes []models.Vote) Result {
	titles := make(map[string]string, len(roles))
	for _, role := range roles {
		titles[role.ID] = role.Title
	}

	// Effective counts, indexed like candidates
	counts := make([]int, len(candidates))
	index := make(map[string]int, len(candidates))
	for i, c := range candidates {
		adj := c.ManualAdjustment
		if adj < 0 {
			adj = 0
		}
		counts[i] = adj
		index[c.ID] = i
	}

	var gaps []Gap
	for _, v := range votes {
		i, ok := index[v.CandidateID]
		if !ok {
			gaps = append(gaps, Gap{Kind: GapUnknownCandidate, RowID: v.ID, Target: v.CandidateID})
			continue
		}
		counts[i]++
	}

	result := Result{Roles: make(map[string]models.AggregatedRoleResult)}
	for i, c := range candidates {
		agg, exists := result.Roles[c.RoleID]
		if !exists {
			agg = models.AggregatedRoleResult{
				RoleID:     c.RoleID,
				Candidates: []models.AggregatedCandidateResult{},
			}
			if title, ok := titles[c.RoleID]; ok {
				agg.Title = &title
			}
		}
		if agg.Title == nil {
			gaps = append(gaps, Gap{Kind: GapUnknownRole, RowID: c.ID, Target: c.RoleID})
		}

		agg.Candidates = append(agg.Candidates, models.AggregatedCandidateResult{
			CandidateID:    c.ID,
			Name:           c.Name,
			EffectiveVotes: counts[i],
		})
		agg.TotalVotes += counts[i]
		result.Roles[c.RoleID] = agg
	}

	for id, agg := range result.Roles {
		sort.SliceStable(agg.Candidates, func(a, b int) bool {
			return agg.Candidates[a].EffectiveVotes > agg.Candidates[b].EffectiveVotes
		})
		result.Roles[id] = agg
	}

	result.Gaps = gaps
	return result
}

// Ordered returns role results sorted by role ID.
func (r Result) Ordered() []models.AggregatedRoleResult {
	ids := make([]string, 0, len(r.Roles))
	for id := range r.Roles {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	ordered := make([]models.AggregatedRoleResult, 0, len(ids))
	for _, id := range ids {
		ordered = append(ordered, r.Roles[id])
	}
	return ordered
}

// Total returns the sum of effective votes across all roles.
func (r Result) Total() int {
	total := 0
	for _, agg := range r.Roles {
		total += agg.TotalVotes
	}
	return total
}
