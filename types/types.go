// Copyright (C) 2019-2025, Serval Project Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package types holds the value types shared by every fetch-engine
// component: bundle and subscriber identifiers, the manifest the core
// treats as exclusively owned once queued, and the queued/active fetch
// records built on top of it.
package types

import (
	"encoding/hex"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/luxfi/ids"
)

// BID is a bundle ID: a 32-byte content-addressed public key identifying
// a bundle across all of its versions. Defined directly over ids.ID's
// byte-array representation (the teacher's ubiquitous identifier type)
// rather than a bare [32]byte, so the same comparable, zero-value-aware
// identifier the teacher uses throughout poll/networking backs this
// domain's identifiers too; BID keeps its own String/BinIndex/etc.
// methods since those must live in this package.
type BID ids.ID

// String returns the lowercase hex encoding of the BID.
func (b BID) String() string {
	return hex.EncodeToString(b[:])
}

// IsZero reports whether b is the zero BID.
func (b BID) IsZero() bool {
	return b == BID{}
}

// BinIndex returns the version-cache bin index for b: the first two hex
// nybbles of the BID, shifted right by one (§3, 128 bins).
func (b BID) BinIndex(bins int) int {
	return int(b[0]) >> 1 % bins
}

// IgnoreBinIndex returns the ignore-cache bin index for b: the high 6
// bits of BID[0] (§3, 64 bins).
func (b BID) IgnoreBinIndex() int {
	return int(b[0] >> 2)
}

// SID is a subscriber ID: the 32-byte overlay identity of a mesh node.
// Also defined over ids.ID rather than ids.NodeID: this domain's SID is
// a 32-byte Ed25519-sized key (spec.md GLOSSARY), while ids.NodeID is
// sized for Avalanche's 20-byte node identity and would truncate it.
type SID ids.ID

func (s SID) String() string {
	return hex.EncodeToString(s[:])
}

// PeerID is an overlay peer identity paired with its direct stream
// address, as carried on a fetch candidate or slot.
type PeerID struct {
	SID        SID
	StreamAddr *net.TCPAddr // nil if the peer advertised no direct route
}

// ErrNoPayloadHash is returned when a manifest with a non-zero payload
// length has no payload_hash: try_start_fetch cannot proceed (§4.C).
var ErrNoPayloadHash = errors.New("manifest has payload_length > 0 but no payload_hash")

// Manifest is the subset of the (external, opaque) bundle manifest the
// fetch engine reads. Once accepted into a queue or a slot it is
// exclusively owned by that queue/slot (§3); ownership transfer is
// modeled in Go by moving the pointer and by callers not retaining it
// past a STARTED result.
type Manifest struct {
	BID           BID
	Version       uint64
	PayloadLength uint64
	PayloadHash   string // hex, content address of the payload file; "" if unknown
	SelfSigned    bool
	TTL           time.Duration

	// Verify performs the (expensive) signature/structure check. nil
	// means "already verified" (e.g. produced internally).
	Verify func() error
}

// Verified reports whether the manifest needs no further verification.
func (m *Manifest) Verified() bool {
	return m.Verify == nil
}

// EnsureVerified runs Verify exactly once and clears it on success so a
// later call is a no-op, matching the "unless already self-signed /
// already verified" language of §4.E step 4 and step 6.
func (m *Manifest) EnsureVerified() error {
	if m.Verify == nil {
		return nil
	}
	if err := m.Verify(); err != nil {
		return fmt.Errorf("verify manifest %s: %w", m.BID, err)
	}
	m.Verify = nil
	return nil
}

// Candidate is a queued, not-yet-active fetch: an owned manifest plus
// the peer it was advertised from and a scheduling priority (§3).
type Candidate struct {
	Manifest *Manifest
	Peer     PeerID
	// Priority: smaller is more important. Default 100.
	Priority int
}

const DefaultPriority = 100

// FetchOutcome is the discriminated result of try_start_fetch (§4.C).
// Ownership of the manifest transfers to the slot iff the outcome is
// Started; for every other outcome the caller retains ownership. This
// is, per spec.md §9, "the single most important ownership contract in
// the core" — encoding it as an enum with an explicit doc comment on
// each value lets callers not guess.
type FetchOutcome int

const (
	// Imported: payload_length == 0 (manifest imported directly) or
	// payload_hash already present in local store.
	Imported FetchOutcome = iota
	// Superseded: version cache says have_same_or_newer.
	Superseded
	// SameBundle: another active slot holds the same BID at the same version.
	SameBundle
	// OlderBundle: another active slot holds the same BID at a newer version.
	OlderBundle
	// NewerBundle: another active slot holds the same BID at an older version.
	NewerBundle
	// SamePayload: another active slot is fetching the same payload_hash
	// under a different BID.
	SamePayload
	// SlotBusy: the slot was not FREE.
	SlotBusy
	// Started: the fetch has begun (stream dial, or the datagram transport
	// when no stream address is known); the manifest is now owned by the slot.
	Started
)

func (o FetchOutcome) String() string {
	switch o {
	case Imported:
		return "IMPORTED"
	case Superseded:
		return "SUPERSEDED"
	case SameBundle:
		return "SAMEBUNDLE"
	case OlderBundle:
		return "OLDERBUNDLE"
	case NewerBundle:
		return "NEWERBUNDLE"
	case SamePayload:
		return "SAMEPAYLOAD"
	case SlotBusy:
		return "SLOTBUSY"
	case Started:
		return "STARTED"
	default:
		return "UNKNOWN"
	}
}

// EnqueueOutcome is the result of suggest_queue_manifest_import (§4.G).
type EnqueueOutcome int

const (
	Queued EnqueueOutcome = iota
	ImportedDirectly
	Rejected
)

func (o EnqueueOutcome) String() string {
	switch o {
	case Queued:
		return "queued"
	case ImportedDirectly:
		return "imported"
	case Rejected:
		return "rejected"
	default:
		return "unknown"
	}
}
