// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package tally

import (
	"sort"

	"github.com/danielhkuo/school-election/models"
)

const (
	unknownRole      = "Unknown Role"
	unknownCandidate = "Unknown Candidate"

	// RecentVoteLimit caps LiveTally.RecentVotes
	RecentVoteLimit = 20
)

// Live counts raw votes for the admin dashboard. Unlike Tabulate it ignores
// manual adjustments and keeps votes with missing parents under placeholder
// names, so admins see every row that was cast.
func Live(roles []models.Role, candidates []models.Candidate, votes []models.Vote) models.LiveTally {
	roleTitles := make(map[string]string, len(roles))
	for _, r := range roles {
		roleTitles[r.ID] = r.Title
	}
	byID := make(map[string]models.Candidate, len(candidates))
	for _, c := range candidates {
		byID[c.ID] = c
	}

	// Newest first; stable so equal timestamps keep snapshot order
	sorted := make([]models.Vote, len(votes))
	copy(sorted, votes)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].CreatedAt.After(sorted[j].CreatedAt)
	})

	live := models.LiveTally{
		TotalVotes:  len(votes),
		VotesByRole: make(map[string]map[string]int),
		RecentVotes: []models.RecentVote{},
	}

	for _, v := range sorted {
		candidateName := unknownCandidate
		roleName := unknownRole
		if c, ok := byID[v.CandidateID]; ok {
			candidateName = c.Name
			if title, ok := roleTitles[c.RoleID]; ok {
				roleName = title
			}
		}

		if live.VotesByRole[roleName] == nil {
			live.VotesByRole[roleName] = make(map[string]int)
		}
		live.VotesByRole[roleName][candidateName]++

		if len(live.RecentVotes) < RecentVoteLimit {
			live.RecentVotes = append(live.RecentVotes, models.RecentVote{
				ID:            v.ID,
				CandidateName: candidateName,
				RoleName:      roleName,
				Timestamp:     v.CreatedAt,
			})
		}
	}

	return live
}
