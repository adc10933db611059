// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/danielhkuo/school-election/live"
	"github.com/danielhkuo/school-election/metrics"
	"github.com/danielhkuo/school-election/middleware"
	"github.com/danielhkuo/school-election/models"
	"github.com/danielhkuo/school-election/store"
	"github.com/danielhkuo/school-election/tally"
	"github.com/danielhkuo/school-election/validation"
)

const (
	defaultAuditLimit = 100
	maxAuditLimit     = 500
)

// AdminHandler serves the admin routes. Every route is wrapped in
// middleware.RequireAdmin, so the actor is always present in the context.
type AdminHandler struct {
	store     store.Store
	hub       *live.Hub
	validator *validation.Validator
	metrics   *metrics.Metrics
}

func NewAdminHandler(s store.Store, hub *live.Hub, v *validation.Validator, m *metrics.Metrics) *AdminHandler {
	return &AdminHandler{store: s, hub: hub, validator: v, metrics: m}
}

// Live handles GET /admin/live
// Raw vote counts, shown whether or not results are disclosed.
func (h *AdminHandler) Live(w http.ResponseWriter, r *http.Request) {
	snap, err := h.store.Snapshot(r.Context())
	if err != nil {
		slog.Error("failed to load live tally", "error", err)
		middleware.ErrorResponse(w, http.StatusServiceUnavailable, "Unable to load live tally")
		return
	}

	middleware.JSONResponse(w, http.StatusOK, tally.Live(snap.Roles, snap.Candidates, snap.Votes))
}

// LiveStream handles GET /admin/live/stream
func (h *AdminHandler) LiveStream(w http.ResponseWriter, r *http.Request) {
	h.hub.Stream(w, r, true)
}

// SetAdjustment handles PUT /admin/candidates/{id}/adjustment
func (h *AdminHandler) SetAdjustment(w http.ResponseWriter, r *http.Request) {
	candidateID := r.PathValue("id")
	if candidateID == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "candidate id is required")
		return
	}

	var req models.SetAdjustmentRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if !validateRequest(w, h.validator, req) {
		return
	}

	value, err := h.store.SetAdjustment(r.Context(), middleware.Actor(r.Context()), candidateID, *req.Value)
	if errors.Is(err, store.ErrNotFound) {
		middleware.ErrorResponse(w, http.StatusNotFound, "Candidate not found")
		return
	}
	if err != nil {
		slog.Error("failed to set adjustment", "error", err, "candidate_id", candidateID)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to set adjustment")
		return
	}

	if h.metrics != nil {
		h.metrics.Adjustments.Inc()
	}

	middleware.JSONResponse(w, http.StatusOK, models.AdjustmentResponse{
		CandidateID:      candidateID,
		ManualAdjustment: value,
	})
}

// UpdateSettings handles PATCH /admin/settings
// Only the fields present in the body change.
func (h *AdminHandler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	var req models.UpdateSettingsRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	if req.ResultsReleaseDate != nil && req.ClearReleaseDate {
		middleware.ErrorResponse(w, http.StatusBadRequest, "results_release_date and clear_release_date are mutually exclusive")
		return
	}
	if req.VotingOpen == nil && req.ResultsVisible == nil && req.ResultsReleaseDate == nil && !req.ClearReleaseDate {
		middleware.ErrorResponse(w, http.StatusBadRequest, "No settings to update")
		return
	}

	settings, err := h.store.UpdateSettings(r.Context(), middleware.Actor(r.Context()), req)
	if err != nil {
		slog.Error("failed to update settings", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to update settings")
		return
	}

	middleware.JSONResponse(w, http.StatusOK, settings)
}

// CreateRole handles POST /admin/roles
func (h *AdminHandler) CreateRole(w http.ResponseWriter, r *http.Request) {
	var req models.CreateRoleRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if !validateRequest(w, h.validator, req) {
		return
	}

	roleID, err := h.store.CreateRole(r.Context(), middleware.Actor(r.Context()), req)
	if err != nil {
		slog.Error("failed to create role", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to create role")
		return
	}

	slog.Info("role created", "role_id", roleID, "title", req.Title)
	middleware.JSONResponse(w, http.StatusCreated, models.CreatedResponse{ID: roleID})
}

// CreateCandidate handles POST /admin/candidates
func (h *AdminHandler) CreateCandidate(w http.ResponseWriter, r *http.Request) {
	var req models.CreateCandidateRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if !validateRequest(w, h.validator, req) {
		return
	}

	candidateID, err := h.store.CreateCandidate(r.Context(), middleware.Actor(r.Context()), req)
	if errors.Is(err, store.ErrUnknownRole) {
		middleware.ErrorResponse(w, http.StatusNotFound, "Role not found")
		return
	}
	if err != nil {
		slog.Error("failed to create candidate", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to create candidate")
		return
	}

	slog.Info("candidate created", "candidate_id", candidateID, "role_id", req.RoleID)
	middleware.JSONResponse(w, http.StatusCreated, models.CreatedResponse{ID: candidateID})
}

// DeleteCandidate handles DELETE /admin/candidates/{id}
func (h *AdminHandler) DeleteCandidate(w http.ResponseWriter, r *http.Request) {
	candidateID := r.PathValue("id")

	err := h.store.DeleteCandidate(r.Context(), middleware.Actor(r.Context()), candidateID)
	if errors.Is(err, store.ErrNotFound) {
		middleware.ErrorResponse(w, http.StatusNotFound, "Candidate not found")
		return
	}
	if err != nil {
		slog.Error("failed to delete candidate", "error", err, "candidate_id", candidateID)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to delete candidate")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Audit handles GET /admin/audit?limit=N
func (h *AdminHandler) Audit(w http.ResponseWriter, r *http.Request) {
	limit := defaultAuditLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			middleware.ErrorResponse(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(n, maxAuditLimit)
	}

	entries, err := h.store.AuditLog(r.Context(), limit)
	if err != nil {
		slog.Error("failed to load audit log", "error", err)
		middleware.ErrorResponse(w, http.StatusServiceUnavailable, "Unable to load audit log")
		return
	}

	middleware.JSONResponse(w, http.StatusOK, entries)
}
