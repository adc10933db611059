// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/danielhkuo/school-election/auth"
	"github.com/danielhkuo/school-election/cliparse"
	"github.com/danielhkuo/school-election/middleware"
	"github.com/danielhkuo/school-election/models"
	"github.com/danielhkuo/school-election/store"
	"github.com/danielhkuo/school-election/validation"
)

type ElectionHandler struct {
	store     store.Store
	cfg       cliparse.Config
	validator *validation.Validator
}

func NewElectionHandler(s store.Store, cfg cliparse.Config, v *validation.Validator) *ElectionHandler {
	return &ElectionHandler{store: s, cfg: cfg, validator: v}
}

// Login handles POST /login
func (h *ElectionHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if !validateRequest(w, h.validator, req) {
		return
	}

	voterToken := auth.VoterToken(req.StudentID, h.cfg.VoterTokenSalt)

	voted, err := h.store.VotedRoles(r.Context(), voterToken)
	if err != nil {
		slog.Error("failed to load voted roles", "error", err)
		middleware.ErrorResponse(w, http.StatusServiceUnavailable, "Unable to load election")
		return
	}

	middleware.JSONResponse(w, http.StatusOK, models.LoginResponse{
		VoterToken: voterToken,
		VotedRoles: voted,
	})
}

// GetElection handles GET /election
// Lists roles with their candidates and the current settings. Vote counts and
// adjustments are never included.
func (h *ElectionHandler) GetElection(w http.ResponseWriter, r *http.Request) {
	snap, err := h.store.Election(r.Context())
	if err != nil {
		slog.Error("failed to load election", "error", err)
		middleware.ErrorResponse(w, http.StatusServiceUnavailable, "Unable to load election")
		return
	}

	byRole := make(map[string][]models.CandidateSummary, len(snap.Roles))
	for _, c := range snap.Candidates {
		byRole[c.RoleID] = append(byRole[c.RoleID], models.CandidateSummary{
			ID:          c.ID,
			Name:        c.Name,
			Description: c.Description,
		})
	}

	roles := make([]models.RoleWithCandidates, 0, len(snap.Roles))
	for _, role := range snap.Roles {
		candidates := byRole[role.ID]
		if candidates == nil {
			candidates = []models.CandidateSummary{}
		}
		roles = append(roles, models.RoleWithCandidates{Role: role, Candidates: candidates})
	}

	middleware.JSONResponse(w, http.StatusOK, models.ElectionResponse{
		Roles:    roles,
		Settings: snap.Settings,
	})
}

// validateRequest writes a 400 with per-field messages and returns false when
// req is invalid.
func validateRequest(w http.ResponseWriter, v *validation.Validator, req any) bool {
	err := v.Validate(req)
	if err == nil {
		return true
	}

	var verr *validation.Error
	if errors.As(err, &verr) {
		middleware.FieldErrorResponse(w, "Validation failed", verr.Fields)
		return false
	}

	slog.Error("request validation error", "error", err)
	middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid request")
	return false
}
