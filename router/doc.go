// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package router defines HTTP routes for the school election API.

# Route Registration

NewRouter creates a configured http.ServeMux with all endpoints:

	mux := router.NewRouter(store, cfg, hub, limiter, metrics)

# Endpoints

Health and metrics:

	GET /health
	GET /metrics

Voting (public, ballots use X-Voter-Token):

	POST /login    - Exchange a student ID for a voter token
	GET  /election - Roles, candidates and settings
	POST /ballots  - Cast selections (rate limited per IP)

Results (public, gated):

	GET /results        - Final results once disclosed
	GET /results/stream - Server-sent result updates

Admin (requires X-Admin-Email and X-Admin-Key):

	GET    /admin/live                       - Live tally
	GET    /admin/live/stream                - Server-sent live tally
	PUT    /admin/candidates/{id}/adjustment - Set manual adjustment
	DELETE /admin/candidates/{id}            - Remove a candidate
	POST   /admin/candidates                 - Add a candidate
	POST   /admin/roles                      - Add a role
	PATCH  /admin/settings                   - Voting and disclosure switches
	GET    /admin/audit                      - Recent admin actions

Every admin route is logged and records an audit entry on mutation.
*/
package router
