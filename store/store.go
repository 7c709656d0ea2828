// Copyright (C) 2019-2025, Serval Project Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package store names the bundle-database boundary the fetch engine
// reads from (spec.md §1, §6): "the manifest parser/verifier and the
// bundle database" are out of scope for the core and touched only
// through the two read-only queries named in §6.
package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/servaldna/rhizome-fetch/types"
)

// ManifestStore is the subset of the bundle database the fetch engine
// consults. It implements cache.VersionDB directly.
type ManifestStore interface {
	// StoredVersion implements cache.VersionDB:
	// "SELECT version FROM manifests WHERE id = ?" (§6).
	StoredVersion(bid types.BID) (version uint64, ok bool)

	// HasValidPayload reports whether a payload with this hash is
	// already present and valid locally:
	// "SELECT COUNT(*) FROM files WHERE id = ? AND datavalid = 1" (§6).
	HasValidPayload(payloadHash string) bool
}

// SQLStore is a database/sql-backed ManifestStore. The fetch engine's
// core treats the bundle database purely as an external collaborator
// (spec.md §1), so this is a thin reference adapter rather than a
// modeled domain component; see DESIGN.md for why it is built on
// database/sql directly instead of a third-party query layer.
type SQLStore struct {
	db  *sql.DB
	ctx context.Context
}

// NewSQLStore wraps db. ctx bounds every query issued through it.
func NewSQLStore(ctx context.Context, db *sql.DB) *SQLStore {
	return &SQLStore{db: db, ctx: ctx}
}

func (s *SQLStore) StoredVersion(bid types.BID) (uint64, bool) {
	row := s.db.QueryRowContext(s.ctx, `SELECT version FROM manifests WHERE id = ?`, bid[:])
	var version uint64
	if err := row.Scan(&version); err != nil {
		return 0, false
	}
	return version, true
}

func (s *SQLStore) HasValidPayload(payloadHash string) bool {
	row := s.db.QueryRowContext(s.ctx, `SELECT COUNT(*) FROM files WHERE id = ? AND datavalid = 1`, payloadHash)
	var count int
	if err := row.Scan(&count); err != nil {
		return false
	}
	return count > 0
}

// ErrStoreUnavailable is returned by callers that need to distinguish
// "not found" from "query failed"; SQLStore collapses both to false/ok
// per the contract in §4.A, matching the reference implementation's
// indifference between the two for scheduling purposes.
var ErrStoreUnavailable = fmt.Errorf("manifest store unavailable")
