// Copyright (C) 2019-2025, Serval Project Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/servaldna/rhizome-fetch/types"
)

func TestIgnoreCacheExpiry(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	c := NewIgnoreCache(clock)

	bid := bidFor(0x40)
	require.False(t, c.IsIgnored(bid))

	c.MarkIgnored(bid, "10.0.0.1:4110", types.SID{}, 60*time.Second)
	require.True(t, c.IsIgnored(bid))

	now = now.Add(61 * time.Second)
	require.False(t, c.IsIgnored(bid))
}

func TestIgnoreCacheRefreshSameBID(t *testing.T) {
	now := time.Now()
	clock := func() time.Time { return now }
	c := NewIgnoreCache(clock)

	bid := bidFor(0x44)
	c.MarkIgnored(bid, "a", types.SID{}, time.Second)
	c.MarkIgnored(bid, "b", types.SID{}, time.Hour)

	now = now.Add(2 * time.Second)
	require.True(t, c.IsIgnored(bid), "refreshed entry should extend expiry")
}
