// Copyright (C) 2019-2025, Serval Project Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package metrics registers the fetch engine's prometheus collectors,
// following the same reg.Register(...)-or-bubble-the-error pattern the
// teacher's poll package uses for its early-termination poll factories.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/servaldna/rhizome-fetch/utils/wrappers"
)

// Metrics holds every collector the fetch engine updates. Construct
// with NewMetrics and pass the same instance into queue.QueueSet and
// slot.Pool; the slot pool records the per-transport byte counts.
type Metrics struct {
	QueueDepth     *prometheus.GaugeVec
	ActiveSlots    prometheus.Gauge
	VersionCacheHits   prometheus.Counter
	VersionCacheMisses prometheus.Counter
	IgnoreCacheHits    prometheus.Counter
	BytesFetched   *prometheus.CounterVec // labeled by transport: "stream" | "datagram"
	FetchCompleted *prometheus.CounterVec // labeled by outcome
}

// NewMetrics builds and registers the fetch engine's collectors against
// reg. Registration failures are collected and returned together so
// callers can decide whether a partial registration (e.g. a name
// collision in a shared registry) is fatal.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		QueueDepth: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "rhizome",
			Subsystem: "fetch",
			Name:      "queue_depth",
			Help:      "Number of queued (non-active) candidates per size tier.",
		}, []string{"tier"}),
		ActiveSlots: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "rhizome",
			Subsystem: "fetch",
			Name:      "active_slots",
			Help:      "Number of fetch slots currently active across all tiers.",
		}),
		VersionCacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "rhizome",
			Subsystem: "fetch",
			Name:      "version_cache_hits_total",
			Help:      "Version-cache lookups resolved without needing a fetch (superseded/duplicate).",
		}),
		VersionCacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "rhizome",
			Subsystem: "fetch",
			Name:      "version_cache_misses_total",
			Help:      "Version-cache lookups that admitted a new candidate.",
		}),
		IgnoreCacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "rhizome",
			Subsystem: "fetch",
			Name:      "ignore_cache_hits_total",
			Help:      "Advertisements dropped because the bundle ID is ignore-listed.",
		}),
		BytesFetched: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "rhizome",
			Subsystem: "fetch",
			Name:      "bytes_fetched_total",
			Help:      "Payload bytes written to scratch files, by transport.",
		}, []string{"transport"}),
		FetchCompleted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "rhizome",
			Subsystem: "fetch",
			Name:      "fetch_completed_total",
			Help:      "Slot completions, by outcome.",
		}, []string{"outcome"}),
	}

	collectors := []prometheus.Collector{
		m.QueueDepth, m.ActiveSlots, m.VersionCacheHits, m.VersionCacheMisses,
		m.IgnoreCacheHits, m.BytesFetched, m.FetchCompleted,
	}
	var errs wrappers.Errs
	for _, c := range collectors {
		errs.Add(reg.Register(c))
	}
	if errs.Errored() {
		return nil, errs.Err()
	}
	return m, nil
}
