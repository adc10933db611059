// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package live

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danielhkuo/school-election/metrics"
	"github.com/danielhkuo/school-election/models"
)

func update(seq uint64) models.LiveUpdate {
	return models.LiveUpdate{
		Seq:       seq,
		Available: true,
		Results:   &models.ResultsResponse{Disclosed: false},
		Live:      &models.LiveTally{TotalVotes: int(seq)},
	}
}

func TestHub_ConnectReceivesLatest(t *testing.T) {
	h := NewHub(nil)

	h.Publish(update(1))
	h.Publish(update(2))

	c := h.Connect(true)
	require.NotNil(t, c)
	defer h.Disconnect(c.ID)

	got := <-c.Events
	assert.Equal(t, uint64(2), got.Seq)
	require.NotNil(t, got.Live)
	assert.Equal(t, 2, got.Live.TotalVotes)
}

func TestHub_PublicClientsNeverSeeLiveTally(t *testing.T) {
	h := NewHub(nil)
	public := h.Connect(false)
	admin := h.Connect(true)

	h.Publish(update(1))

	pu := <-public.Events
	au := <-admin.Events
	assert.Nil(t, pu.Live)
	assert.NotNil(t, au.Live)
	assert.NotNil(t, pu.Results)
}

func TestHub_IgnoresStaleUpdates(t *testing.T) {
	h := NewHub(nil)
	c := h.Connect(false)

	h.Publish(update(5))
	h.Publish(update(3))
	h.Publish(update(5))

	assert.Equal(t, uint64(5), (<-c.Events).Seq)
	select {
	case u := <-c.Events:
		t.Fatalf("unexpected update %d", u.Seq)
	default:
	}

	latest, ok := h.Latest()
	require.True(t, ok)
	assert.Equal(t, uint64(5), latest.Seq)
}

func TestHub_DropsForSlowClient(t *testing.T) {
	h := NewHub(nil)
	slow := h.Connect(false)

	for i := 1; i <= cap(slow.Events)+5; i++ {
		h.Publish(update(uint64(i)))
	}

	assert.Len(t, slow.Events, cap(slow.Events))
	latest, _ := h.Latest()
	assert.Equal(t, uint64(cap(slow.Events)+5), latest.Seq, "publishing never blocks on a slow client")
}

func TestHub_DisconnectAndClose(t *testing.T) {
	m := metrics.New()
	h := NewHub(m)

	a := h.Connect(false)
	b := h.Connect(true)
	assert.Equal(t, 2, h.ClientCount())
	assert.Equal(t, 2.0, promtest.ToFloat64(m.LiveClients))

	h.Disconnect(a.ID)
	h.Disconnect(a.ID)
	assert.Equal(t, 1, h.ClientCount())

	h.Close()
	select {
	case <-b.Done:
	default:
		t.Fatal("close should signal remaining clients")
	}
	assert.Equal(t, 0, h.ClientCount())
	assert.Equal(t, 0.0, promtest.ToFloat64(m.LiveClients))
	assert.Nil(t, h.Connect(false))

	h.Publish(update(1))
	_, ok := h.Latest()
	assert.False(t, ok, "closed hub ignores updates")
}

func streamFor(t *testing.T, h *Hub, isAdmin bool, during func()) string {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	req := httptest.NewRequest("GET", "/results/stream", nil).WithContext(ctx)
	w := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		h.Stream(w, req, isAdmin)
		close(done)
	}()

	require.Eventually(t, func() bool { return h.ClientCount() == 1 }, time.Second, 5*time.Millisecond)
	during()
	time.Sleep(50 * time.Millisecond)
	cancel()
	<-done

	assert.Equal(t, "text/event-stream", w.Header().Get("Content-Type"))
	return w.Body.String()
}

func TestStream_Public(t *testing.T) {
	h := NewHub(nil)
	h.Publish(update(1))

	body := streamFor(t, h, false, func() { h.Publish(update(2)) })

	assert.Equal(t, 2, strings.Count(body, "event: update\n"))
	assert.Contains(t, body, `"seq":1`)
	assert.Contains(t, body, `"seq":2`)
	assert.NotContains(t, body, `"live"`)
	assert.Equal(t, 0, h.ClientCount(), "client removed after disconnect")
}

func TestStream_AdminAndHeartbeat(t *testing.T) {
	h := NewHub(nil)
	h.heartbeatInterval = 10 * time.Millisecond

	body := streamFor(t, h, true, func() { h.Publish(update(1)) })

	assert.Contains(t, body, `"live":{"total_votes":1`)
	assert.Contains(t, body, ": heartbeat\n\n")
}
