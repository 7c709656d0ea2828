// Copyright (C) 2019-2025, Serval Project Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package stream implements the direct-peer HTTP/1.0-like byte stream
// transport: the request line builder and minimal response parser
// (spec.md §4.F, §6).
package stream

import "fmt"

// PayloadRequest builds the exact request line for fetching a payload
// by its hex content hash (spec.md §6).
func PayloadRequest(hexPayloadHash string) []byte {
	return []byte(fmt.Sprintf("GET /rhizome/file/%s HTTP/1.0\r\n\r\n", hexPayloadHash))
}

// ManifestByPrefixRequest builds the exact request line for fetching a
// manifest by its hex BID prefix (spec.md §6).
func ManifestByPrefixRequest(hexPrefix string) []byte {
	return []byte(fmt.Sprintf("GET /rhizome/manifestbyprefix/%s HTTP/1.0\r\n\r\n", hexPrefix))
}
