// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/danielhkuo/school-election/auth"
	"github.com/danielhkuo/school-election/cliparse"
	"github.com/danielhkuo/school-election/metrics"
	"github.com/danielhkuo/school-election/middleware"
	"github.com/danielhkuo/school-election/models"
	"github.com/danielhkuo/school-election/store"
	"github.com/danielhkuo/school-election/validation"
)

type VotingHandler struct {
	store     store.Store
	cfg       cliparse.Config
	validator *validation.Validator
	metrics   *metrics.Metrics
}

func NewVotingHandler(s store.Store, cfg cliparse.Config, v *validation.Validator, m *metrics.Metrics) *VotingHandler {
	return &VotingHandler{store: s, cfg: cfg, validator: v, metrics: m}
}

// SubmitBallot handles POST /ballots
// Body maps role IDs to the chosen candidate. The ballot is all or nothing.
func (h *VotingHandler) SubmitBallot(w http.ResponseWriter, r *http.Request) {
	voterToken := r.Header.Get("X-Voter-Token")
	if voterToken == "" {
		middleware.ErrorResponse(w, http.StatusUnauthorized, "X-Voter-Token header required")
		return
	}
	if err := auth.ValidateVoterToken(voterToken, h.cfg.VoterTokenSalt); err != nil {
		h.refuse("bad_token")
		middleware.ErrorResponse(w, http.StatusUnauthorized, "Invalid voter token")
		return
	}

	var req models.SubmitBallotRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if !validateRequest(w, h.validator, req) {
		return
	}

	voteIDs, err := h.store.CastBallot(r.Context(), voterToken, req.Selections)
	switch {
	case err == nil:
	case errors.Is(err, store.ErrVotingClosed):
		h.refuse("voting_closed")
		middleware.ErrorResponse(w, http.StatusConflict, "Voting is closed")
		return
	case errors.Is(err, store.ErrAlreadyVoted):
		h.refuse("already_voted")
		middleware.ErrorResponse(w, http.StatusConflict, "Already voted for this role")
		return
	case errors.Is(err, store.ErrRoleMismatch):
		h.refuse("role_mismatch")
		middleware.ErrorResponse(w, http.StatusBadRequest, "Candidate does not belong to role")
		return
	case errors.Is(err, store.ErrNotFound):
		h.refuse("unknown_candidate")
		middleware.ErrorResponse(w, http.StatusNotFound, "Candidate not found")
		return
	case errors.Is(err, store.ErrEmptySelection):
		middleware.ErrorResponse(w, http.StatusBadRequest, "selections is required")
		return
	default:
		slog.Error("failed to cast ballot", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to submit ballot")
		return
	}

	if h.metrics != nil {
		h.metrics.BallotsCast.Inc()
	}
	slog.Info("ballot submitted", "roles", len(voteIDs))

	middleware.JSONResponse(w, http.StatusCreated, models.SubmitBallotResponse{
		VoteIDs: voteIDs,
		Message: "Ballot submitted successfully",
	})
}

func (h *VotingHandler) refuse(reason string) {
	if h.metrics != nil {
		h.metrics.BallotsRefused.WithLabelValues(reason).Inc()
	}
}
