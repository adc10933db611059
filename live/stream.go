// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package live

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

// Stream serves the hub as server-sent events until the client goes away or
// the hub closes. Admin streams include the live tally.
func (h *Hub) Stream(w http.ResponseWriter, r *http.Request, isAdmin bool) {
	if r.Context().Err() != nil {
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	rc := http.NewResponseController(w)
	if err := rc.Flush(); err != nil {
		slog.Error("failed to flush stream headers", "error", err)
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		return
	}

	client := h.Connect(isAdmin)
	if client == nil {
		http.Error(w, "Server shutting down", http.StatusServiceUnavailable)
		return
	}
	defer h.Disconnect(client.ID)

	logger := slog.With("client_id", client.ID)

	heartbeat := time.NewTicker(h.heartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case update := <-client.Events:
			if err := writeEvent(rc, w, "update", update); err != nil {
				logger.Info("live client gone during send")
				return
			}

		case <-heartbeat.C:
			if _, err := fmt.Fprint(w, ": heartbeat\n\n"); err != nil {
				logger.Info("live client gone during heartbeat")
				return
			}
			if err := rc.Flush(); err != nil {
				return
			}

		case <-client.Done:
			logger.Info("live client closed by hub")
			return

		case <-r.Context().Done():
			return
		}
	}
}

func writeEvent(rc *http.ResponseController, w http.ResponseWriter, event string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal event data: %w", err)
	}

	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, payload); err != nil {
		return err
	}
	if err := rc.Flush(); err != nil {
		return err
	}

	// Not every ResponseWriter supports deadlines
	if err := rc.SetWriteDeadline(time.Now().Add(60 * time.Second)); err != nil {
		slog.Debug("failed to set write deadline", "error", err)
	}
	return nil
}
