// Copyright (C) 2019-2025, Serval Project Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package queue implements the size-tiered fetch scheduler: per-tier
// candidate queues, admission, duplicate suppression, priority
// insertion, and cascaded slot feeding (spec.md §4.E).
package queue

import "github.com/servaldna/rhizome-fetch/types"

// tier is one size-stratified candidate queue (§3). candidates is kept
// packed (no holes) and in priority+arrival order; a Go slice already
// guarantees "no holes" for free, so the invariant in §3
// ("candidate[i] == nil implies candidate[j] == nil for j > i") holds
// structurally rather than needing to be checked.
type tier struct {
	bound      int64
	capacity   int
	candidates []*types.Candidate
}

func newTier(bound int64, capacity int) *tier {
	return &tier{
		bound:      bound,
		capacity:   capacity,
		candidates: make([]*types.Candidate, 0, capacity),
	}
}

// accepts reports whether payloadLength is strictly under this tier's
// bound (§3: "A tier accepts a candidate iff payload length < tier bound").
// The unbounded last tier (bound <= 0) accepts everything.
func (t *tier) accepts(payloadLength uint64) bool {
	return t.bound <= 0 || payloadLength < uint64(t.bound)
}

// findBID returns the index of the candidate for bid, or -1.
func (t *tier) findBID(bid types.BID) int {
	for i, c := range t.candidates {
		if c.Manifest.BID == bid {
			return i
		}
	}
	return -1
}

// insertIndex returns the index at which a candidate with the given
// priority should be inserted (§4.E step 5): the first existing
// candidate whose priority is strictly greater (lower-importance), or
// the first empty slot. reject is true iff the tier is full at
// equal-or-higher priority everywhere.
func (t *tier) insertIndex(priority int) (idx int, reject bool) {
	for i, c := range t.candidates {
		if c.Priority > priority {
			return i, false
		}
	}
	if len(t.candidates) < t.capacity {
		return len(t.candidates), false
	}
	return 0, true
}

// insert places cand at idx, shifting later candidates right. If the
// tier were already at capacity (which insertIndex's reject case
// prevents in normal use) the displaced tail candidate is dropped, per
// spec.md §4.E step 6's defensive note.
func (t *tier) insert(idx int, cand *types.Candidate) {
	t.candidates = append(t.candidates, nil)
	copy(t.candidates[idx+1:], t.candidates[idx:])
	t.candidates[idx] = cand
	if len(t.candidates) > t.capacity {
		t.candidates = t.candidates[:t.capacity]
	}
}

// remove deletes the candidate at idx, shifting later candidates left
// so the array stays packed.
func (t *tier) remove(idx int) {
	copy(t.candidates[idx:], t.candidates[idx+1:])
	t.candidates[len(t.candidates)-1] = nil
	t.candidates = t.candidates[:len(t.candidates)-1]
}
