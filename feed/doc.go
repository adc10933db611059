// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package feed turns database changes into live result updates.

# Notifiers

A Notifier signals that rows may have changed:

  - PQNotifier: LISTEN on the postgres election_changes channel, fed by
    statement triggers on every table a tally reads.
  - PollNotifier: polls the sqlite feed_revision counter, which triggers
    bump on the same tables.

Open picks one by database type.

# Watcher

The Watcher re-reads a full snapshot on every signal, runs it through the
result gate, and publishes a models.LiveUpdate. Updates are numbered so
subscribers can drop stale ones. A failed read publishes an update with
Available=false instead of empty results.
*/
package feed
