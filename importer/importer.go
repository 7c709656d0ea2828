// Copyright (C) 2019-2025, Serval Project Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package importer names the bundle-importer boundary: the component
// that takes ownership of a completed scratch file (or a directly
// importable zero-length-payload manifest) and folds it into local
// storage (spec.md §1, §3, §4.C step 4, §4.E step 2).
package importer

import "github.com/servaldna/rhizome-fetch/types"

// Importer is the external collaborator that accepts a finished fetch.
// The core calls exactly one of these per successful slot completion or
// per zero-payload manifest; the core never touches the file again
// after a successful call.
type Importer interface {
	// ImportManifestOnly imports a manifest whose payload_length is 0
	// (spec.md §4.E step 2; the IMPORTED outcome of try_start_fetch,
	// spec.md §4.C). The importer takes ownership of m.
	ImportManifestOnly(m *types.Manifest) error

	// ImportPayload imports m together with the scratch file at
	// payloadPath, whose contents are exactly m.PayloadLength bytes
	// addressed by m.PayloadHash (spec.md §4.C step 4, §4.D
	// completion, §8 property 5). The importer takes ownership of both
	// m and the file; on success the fetch engine does not unlink it.
	ImportPayload(m *types.Manifest, payloadPath string) error

	// ImportManifestByPrefix imports bytes read back from a completed
	// manifest-by-prefix fetch (spec.md §4.C "try_start_manifest_by_prefix")
	// and returns the parsed manifest. The slot pool discards the
	// returned manifest: it is not re-submitted to the queue set.
	ImportManifestByPrefix(raw []byte) (*types.Manifest, error)
}
