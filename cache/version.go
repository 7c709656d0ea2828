// Copyright (C) 2019-2025, Serval Project Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package cache implements the two in-memory associative caches that
// make the fetch scheduler cheap: the manifest-version cache (§4.A) and
// the recently-ignored-manifest cache (§4.B).
package cache

import (
	"math/rand"

	"github.com/servaldna/rhizome-fetch/types"
)

// VersionLookupResult is the discriminated outcome of a version-cache
// lookup (§4.A contract). "New" means the caller should pursue the
// fetch.
type VersionLookupResult int

const (
	VersionNew VersionLookupResult = iota
	VersionHaveSameOrNewer
	VersionHaveStrictlyNewer
	VersionBadManifest
)

func (r VersionLookupResult) String() string {
	switch r {
	case VersionNew:
		return "new"
	case VersionHaveSameOrNewer:
		return "have_same_or_newer"
	case VersionHaveStrictlyNewer:
		return "have_strictly_newer"
	case VersionBadManifest:
		return "bad_manifest"
	default:
		return "unknown"
	}
}

// VersionDB is the external bundle database boundary consulted by the
// version cache: "SELECT version FROM manifests WHERE id = ?" (§6).
// lookups against it are authoritative; the in-memory table is only an
// optimisation (§4.A).
type VersionDB interface {
	// StoredVersion returns the highest version of bid known to be
	// stored locally, and ok=false if none is stored.
	StoredVersion(bid types.BID) (version uint64, ok bool)
}

const (
	versionBins = 128
	versionWays = 16
)

type versionEntry struct {
	valid   bool
	prefix  [24]byte // first 24 bytes of the BID
	version uint64
}

func versionPrefix(bid types.BID) (p [24]byte) {
	copy(p[:], bid[:24])
	return p
}

// VersionCache is the set-associative "known bundle id -> highest
// stored version" table described in §3/§4.A. It is an optimisation
// layer in front of a VersionDB: Lookup always asks the DB and only
// uses the table to decide whether a refresh is warranted, matching the
// "authoritative against the database" contract.
type VersionCache struct {
	db    VersionDB
	bins  [versionBins][versionWays]versionEntry
	rand  *rand.Rand
}

// NewVersionCache builds a version cache backed by db.
func NewVersionCache(db VersionDB) *VersionCache {
	return &VersionCache{
		db:   db,
		rand: rand.New(rand.NewSource(1)), //nolint:gosec // replacement policy only, not security-sensitive
	}
}

// Lookup classifies a candidate manifest against what is already stored
// (§4.A). The manifest must carry a BID; a missing BID is reported as
// VersionBadManifest.
func (c *VersionCache) Lookup(m *types.Manifest) VersionLookupResult {
	if m == nil || m.BID.IsZero() {
		return VersionBadManifest
	}

	storedVersion, ok := c.db.StoredVersion(m.BID)
	if !ok {
		c.store(m.BID, 0, false)
		return VersionNew
	}

	c.store(m.BID, storedVersion, true)

	if storedVersion > m.Version {
		return VersionHaveStrictlyNewer
	}
	if storedVersion == m.Version {
		return VersionHaveSameOrNewer
	}
	return VersionNew
}

// Store records bid/version for future lookups without a DB round
// trip, e.g. right after a fetch completes and the bundle is imported.
func (c *VersionCache) Store(bid types.BID, version uint64) {
	c.store(bid, version, true)
}

func (c *VersionCache) store(bid types.BID, version uint64, stored bool) {
	if !stored {
		return
	}
	bin := &c.bins[bid.BinIndex(versionBins)]
	prefix := versionPrefix(bid)

	for i := range bin {
		if bin[i].valid && bin[i].prefix == prefix {
			if version > bin[i].version {
				bin[i].version = version
			}
			return
		}
	}

	// No match: random-replacement into a free or random way.
	for i := range bin {
		if !bin[i].valid {
			bin[i] = versionEntry{valid: true, prefix: prefix, version: version}
			return
		}
	}
	victim := c.rand.Intn(versionWays)
	bin[victim] = versionEntry{valid: true, prefix: prefix, version: version}
}

// cached returns the table's idea of bid's version, for tests that want
// to observe the optimisation layer directly without a DB round trip.
func (c *VersionCache) cached(bid types.BID) (uint64, bool) {
	bin := &c.bins[bid.BinIndex(versionBins)]
	prefix := versionPrefix(bid)
	for i := range bin {
		if bin[i].valid && bin[i].prefix == prefix {
			return bin[i].version, true
		}
	}
	return 0, false
}
