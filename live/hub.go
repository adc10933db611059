// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package live

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/danielhkuo/school-election/metrics"
	"github.com/danielhkuo/school-election/models"
)

// Client is one connected stream.
type Client struct {
	ID          string
	IsAdmin     bool
	Events      chan models.LiveUpdate
	Done        chan struct{}
	ConnectedAt time.Time
}

// Hub fans live updates out to connected stream clients.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*Client
	latest  *models.LiveUpdate
	closed  bool
	metrics *metrics.Metrics

	heartbeatInterval time.Duration
}

func NewHub(m *metrics.Metrics) *Hub {
	return &Hub{
		clients:           make(map[string]*Client),
		metrics:           m,
		heartbeatInterval: 30 * time.Second,
	}
}

// view strips the admin-only tally for public clients.
func view(update models.LiveUpdate, isAdmin bool) models.LiveUpdate {
	if !isAdmin {
		update.Live = nil
	}
	return update
}

// Publish records update as the latest and sends it to every client.
// Updates older than the latest one seen are ignored. Clients whose buffer
// is full miss the update.
func (h *Hub) Publish(update models.LiveUpdate) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return
	}
	if h.latest != nil && update.Seq <= h.latest.Seq {
		slog.Debug("stale live update ignored", "seq", update.Seq, "latest", h.latest.Seq)
		return
	}
	h.latest = &update

	var delivered, dropped int
	for _, client := range h.clients {
		select {
		case client.Events <- view(update, client.IsAdmin):
			delivered++
		default:
			dropped++
			slog.Warn("dropped live update for slow client",
				"client_id", client.ID,
				"seq", update.Seq,
			)
		}
	}

	slog.Debug("live update broadcast",
		"seq", update.Seq,
		"delivered", delivered,
		"dropped", dropped,
	)
}

// Latest returns the most recent update, if any has been published.
func (h *Hub) Latest() (models.LiveUpdate, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.latest == nil {
		return models.LiveUpdate{}, false
	}
	return *h.latest, true
}

// Connect registers a client. The latest update, if any, is queued for it
// immediately. Returns nil once the hub is closed.
func (h *Hub) Connect(isAdmin bool) *Client {
	client := &Client{
		ID:          uuid.NewString(),
		IsAdmin:     isAdmin,
		Events:      make(chan models.LiveUpdate, 16),
		Done:        make(chan struct{}),
		ConnectedAt: time.Now(),
	}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil
	}
	if h.latest != nil {
		client.Events <- view(*h.latest, isAdmin)
	}
	h.clients[client.ID] = client
	total := len(h.clients)
	h.mu.Unlock()

	if h.metrics != nil {
		h.metrics.LiveClients.Inc()
	}
	slog.Info("live client connected",
		"client_id", client.ID,
		"is_admin", isAdmin,
		"total_clients", total,
	)
	return client
}

// Disconnect removes a client and closes its channels.
func (h *Hub) Disconnect(clientID string) {
	h.mu.Lock()
	client, ok := h.clients[clientID]
	if !ok {
		h.mu.Unlock()
		return
	}
	delete(h.clients, clientID)
	total := len(h.clients)
	h.mu.Unlock()

	close(client.Done)
	if h.metrics != nil {
		h.metrics.LiveClients.Dec()
	}
	slog.Info("live client disconnected",
		"client_id", clientID,
		"duration", time.Since(client.ConnectedAt),
		"total_clients", total,
	)
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close disconnects every client and rejects new ones.
func (h *Hub) Close() {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	h.closed = true
	clients := h.clients
	h.clients = make(map[string]*Client)
	h.mu.Unlock()

	for _, client := range clients {
		close(client.Done)
		if h.metrics != nil {
			h.metrics.LiveClients.Dec()
		}
	}
	slog.Info("all live clients disconnected", "count", len(clients))
}
