// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/danielhkuo/school-election/gate"
	"github.com/danielhkuo/school-election/live"
	"github.com/danielhkuo/school-election/metrics"
	"github.com/danielhkuo/school-election/middleware"
	"github.com/danielhkuo/school-election/store"
)

type ResultsHandler struct {
	store   store.Store
	hub     *live.Hub
	metrics *metrics.Metrics
	now     func() time.Time
}

func NewResultsHandler(s store.Store, hub *live.Hub, m *metrics.Metrics) *ResultsHandler {
	return &ResultsHandler{store: s, hub: hub, metrics: m, now: time.Now}
}

// GetResults handles GET /results
// Withheld results answer 200 with disclosed=false and nothing else but the
// release countdown. A failed read is a 503, never an empty tally.
func (h *ResultsHandler) GetResults(w http.ResponseWriter, r *http.Request) {
	snap, err := h.store.Snapshot(r.Context())
	if err != nil {
		slog.Error("failed to load results snapshot", "error", err)
		middleware.ErrorResponse(w, http.StatusServiceUnavailable, "Unable to load results")
		return
	}

	resp, gaps := gate.Response(snap, h.now())
	if resp.Disclosed {
		h.metrics.ObserveTabulation(gaps)
	}

	middleware.JSONResponse(w, http.StatusOK, resp)
}

// Stream handles GET /results/stream
func (h *ResultsHandler) Stream(w http.ResponseWriter, r *http.Request) {
	h.hub.Stream(w, r, false)
}
