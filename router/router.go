// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package router

import (
	"net/http"

	"github.com/danielhkuo/school-election/cliparse"
	"github.com/danielhkuo/school-election/handlers"
	"github.com/danielhkuo/school-election/live"
	"github.com/danielhkuo/school-election/metrics"
	"github.com/danielhkuo/school-election/middleware"
	"github.com/danielhkuo/school-election/ratelimit"
	"github.com/danielhkuo/school-election/store"
	"github.com/danielhkuo/school-election/validation"
)

func NewRouter(s store.Store, cfg cliparse.Config, hub *live.Hub, limiter *ratelimit.KeyedRateLimiter, m *metrics.Metrics) *http.ServeMux {
	mux := http.NewServeMux()

	// Initialize handlers
	v := validation.New()
	electionHandler := handlers.NewElectionHandler(s, cfg, v)
	votingHandler := handlers.NewVotingHandler(s, cfg, v, m)
	resultsHandler := handlers.NewResultsHandler(s, hub, m)
	adminHandler := handlers.NewAdminHandler(s, hub, v, m)

	admin := func(next http.HandlerFunc) http.HandlerFunc {
		return middleware.WithLogging(middleware.RequireAdmin(cfg.AdminEmail, cfg.AdminKeySalt, next))
	}

	// Health check
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	// Voters (public)
	mux.HandleFunc("POST /login", middleware.WithLogging(electionHandler.Login))
	mux.HandleFunc("GET /election", middleware.WithLogging(electionHandler.GetElection))
	mux.HandleFunc("POST /ballots", middleware.WithLogging(
		middleware.RateLimited(limiter, cfg.VoterTokenSalt, cfg.TrustProxy, votingHandler.SubmitBallot)))

	// Results (public, gated)
	mux.HandleFunc("GET /results", middleware.WithLogging(resultsHandler.GetResults))
	mux.HandleFunc("GET /results/stream", middleware.WithLogging(resultsHandler.Stream))

	// Admin
	mux.HandleFunc("GET /admin/live", admin(adminHandler.Live))
	mux.HandleFunc("GET /admin/live/stream", admin(adminHandler.LiveStream))
	mux.HandleFunc("PUT /admin/candidates/{id}/adjustment", admin(adminHandler.SetAdjustment))
	mux.HandleFunc("DELETE /admin/candidates/{id}", admin(adminHandler.DeleteCandidate))
	mux.HandleFunc("POST /admin/candidates", admin(adminHandler.CreateCandidate))
	mux.HandleFunc("POST /admin/roles", admin(adminHandler.CreateRole))
	mux.HandleFunc("PATCH /admin/settings", admin(adminHandler.UpdateSettings))
	mux.HandleFunc("GET /admin/audit", admin(adminHandler.Audit))

	mux.Handle("GET /metrics", m.Handler())

	// Root endpoint
	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("school-election API v1"))
	})

	return mux
}
