// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package live pushes result updates to browsers over server-sent events.

The change feed publishes into a Hub; each HTTP stream is one Client:

	hub := live.NewHub(m)
	watcher := feed.NewWatcher(store, notifier, hub, m)
	go watcher.Run(ctx)

	mux.HandleFunc("GET /results/stream", func(w http.ResponseWriter, r *http.Request) {
		hub.Stream(w, r, false)
	})

New clients get the most recent update straight away. Public clients receive
only the gated results; admin clients also receive the raw live tally. A
client that cannot keep up misses updates rather than slowing the hub, and a
": heartbeat" comment is written every 30 seconds to keep proxies from
closing idle streams.

Event format:

	event: update
	data: {"seq":7,"available":true,"results":{...},"at":"..."}
*/
package live
