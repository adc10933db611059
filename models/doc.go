// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package models defines request, response, and domain types for the API.

# Request Types

Types for parsing incoming JSON:

  - LoginRequest: student_id (7 digits)
  - SubmitBallotRequest: selections (map role_id -> candidate_id)
  - SetAdjustmentRequest: value
  - UpdateSettingsRequest: partial settings patch
  - CreateRoleRequest, CreateCandidateRequest

Validation rules live in `validate` struct tags.

# Domain Types

Rows owned by the database:

  - Role: electable position with a category
  - Candidate: person running for a role, with manual_adjustment
  - Vote: one selection of one candidate by one voter token
  - Settings: the election settings singleton
  - AuditEntry: record of an administrative mutation

# Result Types

Derived values recomputed on every tabulation:

  - AggregatedCandidateResult: effective_votes = votes + manual_adjustment
  - AggregatedRoleResult: ordered candidates and total_votes

# Constants

Categories:

	CategoryLeadership    = "Leadership"
	CategoryHouseCaptains = "House Captains"
*/
package models
