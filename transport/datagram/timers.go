// Copyright (C) 2019-2025, Serval Project Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package datagram

import "time"

// Kind distinguishes a payload fetch from a manifest-by-prefix fetch;
// the two carry different retransmit cadences and idle timeouts
// (spec.md §4.D).
type Kind int

const (
	KindPayload Kind = iota
	KindManifest
)

// Cadence holds the retransmit interval and idle timeout for a datagram
// fetch of the given kind.
type Cadence struct {
	Retransmit time.Duration
	Idle       time.Duration
}

// CadenceFor returns the reference cadence for kind: 133ms/5000ms for
// payload fetches, 100ms/2000ms for manifest fetches (spec.md §4.D).
// Callers normally source these from config.Config instead of this
// fixed table, which exists for tests and documentation.
func CadenceFor(kind Kind) Cadence {
	switch kind {
	case KindManifest:
		return Cadence{Retransmit: 100 * time.Millisecond, Idle: 2000 * time.Millisecond}
	default:
		return Cadence{Retransmit: 133 * time.Millisecond, Idle: 5000 * time.Millisecond}
	}
}
