// Copyright (C) 2019-2025, Serval Project Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

func TestNewMetricsRegistersEveryCollector(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := NewMetrics(reg)
	require.NoError(t, err)
	require.NotNil(t, m)

	families, err := reg.Gather()
	require.NoError(t, err)
	// Every collector is registered, but Gather only reports a Vec
	// collector once it has a labelled child; touch every collector so
	// all of them show up.
	m.ActiveSlots.Set(1)
	m.VersionCacheHits.Inc()
	m.QueueDepth.WithLabelValues("A").Set(1)
	m.BytesFetched.WithLabelValues("stream").Add(1)
	m.FetchCompleted.WithLabelValues("completed").Inc()
	m.IgnoreCacheHits.Inc()
	m.VersionCacheMisses.Inc()

	families, err = reg.Gather()
	require.NoError(t, err)
	require.Len(t, families, 7)
}

func TestNewMetricsCollectsAllRegistrationErrors(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := NewMetrics(reg)
	require.NoError(t, err)

	// Registering a second time against the same registry collides on
	// every collector name; NewMetrics should report all of them
	// together rather than stopping at the first.
	_, err = NewMetrics(reg)
	require.Error(t, err)
	require.Contains(t, err.Error(), "7 errors occurred")
}
