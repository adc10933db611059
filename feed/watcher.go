// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package feed

import (
	"context"
	"log/slog"
	"time"

	"github.com/danielhkuo/school-election/gate"
	"github.com/danielhkuo/school-election/metrics"
	"github.com/danielhkuo/school-election/models"
	"github.com/danielhkuo/school-election/tally"
)

// SnapshotSource is the part of the store the watcher reads.
type SnapshotSource interface {
	Snapshot(ctx context.Context) (gate.Snapshot, error)
}

// Publisher receives every update the watcher produces.
type Publisher interface {
	Publish(update models.LiveUpdate)
}

// Watcher turns change notifications into live updates. Each update is built
// from a fresh snapshot and carries an increasing sequence number.
type Watcher struct {
	source   SnapshotSource
	notifier Notifier
	pub      Publisher
	metrics  *metrics.Metrics
	now      func() time.Time
	seq      uint64
}

func NewWatcher(source SnapshotSource, notifier Notifier, pub Publisher, m *metrics.Metrics) *Watcher {
	return &Watcher{
		source:   source,
		notifier: notifier,
		pub:      pub,
		metrics:  m,
		now:      time.Now,
	}
}

// Run publishes an initial update, then one per notification until ctx is
// done or the notifier closes its channel. While results are withheld behind
// a future release date, a timer re-evaluates the gate when it passes.
func (w *Watcher) Run(ctx context.Context) {
	var (
		timer   *time.Timer
		timerC  <-chan time.Time
		pending time.Time
	)
	arm := func(update models.LiveUpdate) {
		if update.Results == nil || update.Results.Disclosed || update.Results.ReleaseDate == nil {
			return
		}
		release := *update.Results.ReleaseDate
		if timer != nil && release.Equal(pending) {
			return
		}
		if timer != nil {
			timer.Stop()
		}
		pending = release
		timer = time.NewTimer(max(release.Sub(w.now()), 0))
		timerC = timer.C
	}
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	arm(w.Refresh(ctx))

	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-w.notifier.Notifications():
			if !ok {
				slog.Warn("change feed closed")
				return
			}
			arm(w.Refresh(ctx))
		case <-timerC:
			timer, timerC = nil, nil
			arm(w.Refresh(ctx))
		}
	}
}

// Refresh builds and publishes one update. Not safe for concurrent use.
func (w *Watcher) Refresh(ctx context.Context) models.LiveUpdate {
	w.seq++
	now := w.now()
	update := models.LiveUpdate{Seq: w.seq, At: now}

	snap, err := w.source.Snapshot(ctx)
	if err != nil {
		slog.Error("change feed failed to load snapshot", "seq", w.seq, "error", err)
		if w.metrics != nil {
			w.metrics.FeedErrors.Inc()
		}
		w.pub.Publish(update)
		return update
	}

	resp, gaps := gate.Response(snap, now)
	if resp.Disclosed {
		w.metrics.ObserveTabulation(gaps)
	}
	live := tally.Live(snap.Roles, snap.Candidates, snap.Votes)

	update.Available = true
	update.Results = &resp
	update.Live = &live

	slog.Debug("change feed published", "seq", update.Seq, "disclosed", resp.Disclosed, "votes", live.TotalVotes)
	w.pub.Publish(update)
	return update
}
