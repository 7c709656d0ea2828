// Copyright (C) 2019-2025, Serval Project Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package config

import (
	"fmt"
	"time"
)

// Tier describes one size-stratified queue tier (§3). Bound is the
// payload-length upper bound a candidate must be strictly under to be
// admitted; a Bound <= 0 marks the unbounded last tier. Capacity bounds
// how many queued (non-active) candidates the tier holds at once.
type Tier struct {
	Bound    int64
	Capacity int
}

// Config holds everything the core reads from the outside: the size-tier
// table and the handful of durations named in §6 ("Configuration inputs
// used by the core"). All other configuration (CLI, DB DSN, logging
// setup) is outside the core per spec.md §1.
type Config struct {
	Tiers []Tier

	// IdleTimeout is RHIZOME_IDLE_TIMEOUT (§4.C/§5): the stream dial,
	// send, and receive idle timeout, re-armed on every observed byte.
	IdleTimeout time.Duration

	// FetchDelay is the one-shot activator debounce armed by
	// SuggestQueue (§4.E step 7), up to ~500ms in the reference.
	FetchDelay time.Duration

	// IgnoreTTL is the mark-ignored duration used for malformed-manifest
	// and verification-failure drops (§4.E steps 2/4/6, §7).
	IgnoreTTL time.Duration

	// Datagram transport tunables (§4.D).
	DatagramBlockSize          int
	DatagramWindowBlocks       int
	DatagramPayloadRetransmit  time.Duration
	DatagramManifestRetransmit time.Duration
	DatagramPayloadIdle        time.Duration
	DatagramManifestIdle       time.Duration

	// StreamReadChunk is the per-read cap during RX_STREAM (§4.C step 4,
	// "8 KB at a time" in the reference).
	StreamReadChunk int
}

// Default returns the reference parameterisation from spec.md §§4,6:
// tier bounds {10KB,100KB,1MB,10MB,∞} with capacities {5,4,3,2,1}, a
// 5000ms idle timeout, 133ms/100ms datagram retransmit cadences, and a
// 200-byte/32-block datagram window.
func Default() Config {
	return Config{
		Tiers: []Tier{
			{Bound: 10_000, Capacity: 5},
			{Bound: 100_000, Capacity: 4},
			{Bound: 1_000_000, Capacity: 3},
			{Bound: 10_000_000, Capacity: 2},
			{Bound: 0, Capacity: 1},
		},
		IdleTimeout:                5000 * time.Millisecond,
		FetchDelay:                 500 * time.Millisecond,
		IgnoreTTL:                  60 * time.Second,
		DatagramBlockSize:          200,
		DatagramWindowBlocks:       32,
		DatagramPayloadRetransmit:  133 * time.Millisecond,
		DatagramManifestRetransmit: 100 * time.Millisecond,
		DatagramPayloadIdle:        5000 * time.Millisecond,
		DatagramManifestIdle:       2000 * time.Millisecond,
		StreamReadChunk:            8192,
	}
}

// Valid returns an error if the configuration cannot schedule fetches
// correctly, following the teacher's switch-based Parameters.Valid.
func (c Config) Valid() error {
	switch {
	case len(c.Tiers) == 0:
		return ErrNoTiers
	case c.Tiers[len(c.Tiers)-1].Bound > 0:
		return ErrLastTierNotUnbounded
	case c.IdleTimeout <= 0:
		return fmt.Errorf("idleTimeout = %s: fails the condition that: 0 < idleTimeout", c.IdleTimeout)
	case c.FetchDelay <= 0:
		return fmt.Errorf("fetchDelay = %s: fails the condition that: 0 < fetchDelay", c.FetchDelay)
	case c.IgnoreTTL <= 0:
		return fmt.Errorf("ignoreTTL = %s: fails the condition that: 0 < ignoreTTL", c.IgnoreTTL)
	case c.DatagramBlockSize <= 0:
		return fmt.Errorf("datagramBlockSize = %d: fails the condition that: 0 < datagramBlockSize", c.DatagramBlockSize)
	case c.DatagramWindowBlocks <= 0 || c.DatagramWindowBlocks > 32:
		return fmt.Errorf("datagramWindowBlocks = %d: fails the condition that: 0 < datagramWindowBlocks <= 32", c.DatagramWindowBlocks)
	case c.DatagramPayloadRetransmit <= 0 || c.DatagramManifestRetransmit <= 0:
		return fmt.Errorf("datagram retransmit intervals must be positive")
	case c.DatagramPayloadIdle <= 0 || c.DatagramManifestIdle <= 0:
		return fmt.Errorf("datagram idle timeouts must be positive")
	case c.StreamReadChunk <= 0:
		return fmt.Errorf("streamReadChunk = %d: fails the condition that: 0 < streamReadChunk", c.StreamReadChunk)
	}

	prev := int64(-1)
	for i, t := range c.Tiers {
		if t.Capacity <= 0 {
			return fmt.Errorf("tier %d: capacity = %d: fails the condition that: 0 < capacity", i, t.Capacity)
		}
		if t.Bound > 0 && t.Bound <= prev {
			return ErrTierBoundsNotSorted
		}
		if t.Bound > 0 {
			prev = t.Bound
		}
	}
	return nil
}

// TierIndex returns the index of the unique tier whose bound accepts
// payloadLength, or -1 if none accepts it (§4.E step 3: "Select the
// unique tier whose size bound accepts payload_length").
func (c Config) TierIndex(payloadLength uint64) int {
	for i, t := range c.Tiers {
		if t.Bound <= 0 {
			return i // unbounded last tier accepts everything remaining
		}
		if payloadLength < uint64(t.Bound) {
			return i
		}
	}
	return -1
}
