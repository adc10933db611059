// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package tally turns raw vote rows into per-role results.

# Tabulation

Tabulate is a pure function over a full snapshot:

	res := tally.Tabulate(roles, candidates, votes)
	for _, role := range res.Ordered() {
		...
	}

Each candidate's effective_votes is its manual_adjustment plus one per
vote. Candidates with no votes still appear. Within a role, candidates are
ordered by effective_votes descending; ties keep snapshot order.

# Referential Gaps

Votes that point at a missing candidate are left out of every total.
Candidates that point at a missing role are grouped under the raw role ID
with a nil title. Both are reported in Result.Gaps for diagnostics; neither
is an error.

# Live Tally

Live produces the admin dashboard view: raw counts by role title and
candidate name plus the 20 most recent votes.
*/
package tally
