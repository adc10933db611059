// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package handlers contains HTTP request handlers for the school election API.

# Handler Types

Each handler is a struct holding a store.Store and whatever else it needs:

  - ElectionHandler: voter login and the public election listing
  - VotingHandler: ballot submission
  - ResultsHandler: gated results and the public result stream
  - AdminHandler: live tally, adjustments, settings, roles, candidates, audit

Handlers are created via constructor functions:

	votingHandler := handlers.NewVotingHandler(store, cfg, validator, metrics)

# Voter Identity

Login derives a voter token from the student ID and VOTER_TOKEN_SALT. The
student ID itself is never stored. Ballots carry the token in X-Voter-Token
and are rejected with 401 when the token does not verify.

# Ballot Errors

	400 - selection names a candidate from another role, or is empty
	401 - missing or invalid voter token
	404 - unknown candidate
	409 - voting closed, or the voter already voted for the role

A ballot is all or nothing: when one selection fails no votes are written.

# Results Gate

GET /results always answers 200. The body's disclosed field says whether
roles are included. Withheld responses carry the release date and a human
readable countdown when one is scheduled. Store failures answer 503 and
never fall through to disclosure.

# Admin

Admin handlers sit behind middleware.RequireAdmin, which puts the caller's
email in the request context. Mutations pass it to the store as the audit
actor.
*/
package handlers
