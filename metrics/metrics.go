// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

// Package metrics exposes Prometheus counters for the election server.
package metrics

import (
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/danielhkuo/school-election/tally"
)

// Metrics holds every collector on its own registry so tests can build
// independent instances.
type Metrics struct {
	registry *prometheus.Registry

	Tabulations    prometheus.Counter
	Gaps           *prometheus.CounterVec
	BallotsCast    prometheus.Counter
	BallotsRefused *prometheus.CounterVec
	Adjustments    prometheus.Counter
	FeedErrors     prometheus.Counter
	LiveClients    prometheus.Gauge
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		Tabulations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "election",
			Name:      "tabulations_total",
			Help:      "Number of tally computations.",
		}),
		Gaps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "election",
			Name:      "referential_gaps_total",
			Help:      "Rows skipped during tabulation because they reference a missing record.",
		}, []string{"kind"}),
		BallotsCast: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "election",
			Name:      "ballots_cast_total",
			Help:      "Ballots accepted.",
		}),
		BallotsRefused: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "election",
			Name:      "ballots_refused_total",
			Help:      "Ballots rejected, by reason.",
		}, []string{"reason"}),
		Adjustments: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "election",
			Name:      "manual_adjustments_total",
			Help:      "Manual adjustment changes made by the admin.",
		}),
		FeedErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "election",
			Name:      "feed_fetch_errors_total",
			Help:      "Failed snapshot fetches in the change feed.",
		}),
		LiveClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "election",
			Name:      "live_clients",
			Help:      "Connected live stream clients.",
		}),
	}

	m.registry.MustRegister(
		m.Tabulations,
		m.Gaps,
		m.BallotsCast,
		m.BallotsRefused,
		m.Adjustments,
		m.FeedErrors,
		m.LiveClients,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveTabulation counts one tabulation and logs each referential gap.
// Safe to call on a nil *Metrics.
func (m *Metrics) ObserveTabulation(gaps []tally.Gap) {
	for _, g := range gaps {
		slog.Warn("referential gap skipped during tabulation",
			"kind", g.Kind,
			"row_id", g.RowID,
			"missing", g.Target,
		)
	}
	if m == nil {
		return
	}
	m.Tabulations.Inc()
	for _, g := range gaps {
		m.Gaps.WithLabelValues(g.Kind).Inc()
	}
}
