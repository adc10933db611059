// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package feed

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/lib/pq"

	"github.com/danielhkuo/school-election/db"
)

// Notifier signals that election rows may have changed. Signals carry no
// payload and may be coalesced; a receiver should re-read everything.
type Notifier interface {
	Notifications() <-chan struct{}
	Close() error
}

// signal does a non-blocking send on a 1-buffered channel, so bursts of
// changes collapse into one pending notification.
func signal(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}

// PQNotifier listens on the postgres election channel.
type PQNotifier struct {
	listener *pq.Listener
	out      chan struct{}
	done     chan struct{}
	wg       sync.WaitGroup
	once     sync.Once
}

// NewPQNotifier opens a dedicated LISTEN connection to url.
func NewPQNotifier(url string) (*PQNotifier, error) {
	listener := pq.NewListener(url, time.Second, time.Minute, func(ev pq.ListenerEventType, err error) {
		switch ev {
		case pq.ListenerEventDisconnected:
			slog.Warn("change feed disconnected", "error", err)
		case pq.ListenerEventReconnected:
			slog.Info("change feed reconnected")
		case pq.ListenerEventConnectionAttemptFailed:
			slog.Warn("change feed reconnect failed", "error", err)
		}
	})

	if err := listener.Listen(db.NotifyChannel); err != nil {
		listener.Close()
		return nil, fmt.Errorf("failed to listen on %s: %w", db.NotifyChannel, err)
	}

	n := &PQNotifier{
		listener: listener,
		out:      make(chan struct{}, 1),
		done:     make(chan struct{}),
	}

	n.wg.Add(1)
	go n.run()

	return n, nil
}

func (n *PQNotifier) run() {
	defer n.wg.Done()

	// Ping an idle connection so a dead socket is noticed
	idle := time.NewTicker(90 * time.Second)
	defer idle.Stop()

	for {
		select {
		case <-n.listener.Notify:
			// nil after a reconnect: changes may have been missed, so
			// signal either way
			signal(n.out)
		case <-idle.C:
			if err := n.listener.Ping(); err != nil {
				slog.Warn("change feed ping failed", "error", err)
			}
		case <-n.done:
			return
		}
	}
}

func (n *PQNotifier) Notifications() <-chan struct{} {
	return n.out
}

func (n *PQNotifier) Close() error {
	var err error
	n.once.Do(func() {
		close(n.done)
		n.wg.Wait()
		err = n.listener.Close()
	})
	return err
}

// PollNotifier watches the sqlite feed_revision counter, which triggers bump
// on every change to roles, candidates, votes and settings.
type PollNotifier struct {
	conn     *sql.DB
	interval time.Duration
	out      chan struct{}
	cancel   context.CancelFunc
	wg       sync.WaitGroup
}

// NewPollNotifier starts polling conn every interval.
func NewPollNotifier(conn *sql.DB, interval time.Duration) (*PollNotifier, error) {
	rev, err := readRevision(context.Background(), conn)
	if err != nil {
		return nil, fmt.Errorf("failed to read feed revision: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	n := &PollNotifier{
		conn:     conn,
		interval: interval,
		out:      make(chan struct{}, 1),
		cancel:   cancel,
	}

	n.wg.Add(1)
	go n.run(ctx, rev)

	return n, nil
}

func (n *PollNotifier) run(ctx context.Context, last int64) {
	defer n.wg.Done()

	ticker := time.NewTicker(n.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rev, err := readRevision(ctx, n.conn)
			if err != nil {
				if ctx.Err() == nil {
					slog.Warn("change feed poll failed", "error", err)
				}
				continue
			}
			if rev != last {
				last = rev
				signal(n.out)
			}
		case <-ctx.Done():
			return
		}
	}
}

func readRevision(ctx context.Context, conn *sql.DB) (int64, error) {
	var rev int64
	err := conn.QueryRowContext(ctx, `SELECT rev FROM feed_revision WHERE id = 1`).Scan(&rev)
	return rev, err
}

func (n *PollNotifier) Notifications() <-chan struct{} {
	return n.out
}

func (n *PollNotifier) Close() error {
	n.cancel()
	n.wg.Wait()
	return nil
}

// Open picks the notifier for dbType.
func Open(dbType, url string, conn *sql.DB, pollInterval time.Duration) (Notifier, error) {
	switch dbType {
	case db.TypePostgres:
		return NewPQNotifier(url)
	case db.TypeSQLite:
		return NewPollNotifier(conn, pollInterval)
	default:
		return nil, fmt.Errorf("unsupported database type %q", dbType)
	}
}
