// Copyright (C) 2019-2025, Serval Project Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package cache

import (
	"math/rand"
	"time"

	"github.com/servaldna/rhizome-fetch/types"
)

const (
	ignoreBins = 64
	ignoreWays = 8
)

type ignoreEntry struct {
	valid      bool
	bid        types.BID
	streamAddr string // empty if the peer advertised no direct route
	sid        types.SID
	expiresAt  time.Time
}

// IgnoreCache is the negative cache of misbehaving (bid, peer) pairs
// described in §3/§4.B: entries expire naturally and are never swept.
type IgnoreCache struct {
	now  func() time.Time
	rand *rand.Rand
	bins [ignoreBins][ignoreWays]ignoreEntry
}

// NewIgnoreCache builds an empty ignore cache. now defaults to
// time.Now; tests may override it to control expiry deterministically.
func NewIgnoreCache(now func() time.Time) *IgnoreCache {
	if now == nil {
		now = time.Now
	}
	return &IgnoreCache{
		now:  now,
		rand: rand.New(rand.NewSource(2)), //nolint:gosec // replacement policy only
	}
}

// IsIgnored reports whether an unexpired ignore entry exists for bid
// (§4.B contract).
func (c *IgnoreCache) IsIgnored(bid types.BID) bool {
	bin := &c.bins[bid.IgnoreBinIndex()]
	now := c.now()
	for i := range bin {
		if bin[i].valid && bin[i].bid == bid {
			return now.Before(bin[i].expiresAt)
		}
	}
	return false
}

// MarkIgnored inserts or refreshes an ignore entry for bid with the
// given peer and TTL (§4.B). On insert, an existing entry for the same
// BID is refreshed; otherwise a slot is picked by random replacement.
func (c *IgnoreCache) MarkIgnored(bid types.BID, streamAddr string, sid types.SID, ttl time.Duration) {
	bin := &c.bins[bid.IgnoreBinIndex()]
	expires := c.now().Add(ttl)

	for i := range bin {
		if bin[i].valid && bin[i].bid == bid {
			bin[i] = ignoreEntry{valid: true, bid: bid, streamAddr: streamAddr, sid: sid, expiresAt: expires}
			return
		}
	}
	for i := range bin {
		if !bin[i].valid {
			bin[i] = ignoreEntry{valid: true, bid: bid, streamAddr: streamAddr, sid: sid, expiresAt: expires}
			return
		}
	}
	victim := c.rand.Intn(ignoreWays)
	bin[victim] = ignoreEntry{valid: true, bid: bid, streamAddr: streamAddr, sid: sid, expiresAt: expires}
}
