// Copyright (C) 2019-2025, Serval Project Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package slot implements the per-slot fetch state machine (spec.md
// §3, §4.C): dial, send request, read headers, stream payload into a
// scratch file, with transparent fallback to the windowed datagram
// transport on any stream failure.
package slot

import (
	"net"
	"time"

	"github.com/servaldna/rhizome-fetch/eventloop"
	"github.com/servaldna/rhizome-fetch/transport/datagram"
	"github.com/servaldna/rhizome-fetch/types"
)

// State is a slot's position in the lifecycle diagram of spec.md §3.
type State int

const (
	StateFree State = iota
	StateConnecting
	StateSendingRequest
	StateRxHeaders
	StateRxStream
	StateRxDatagram
)

func (s State) String() string {
	switch s {
	case StateFree:
		return "FREE"
	case StateConnecting:
		return "CONNECTING"
	case StateSendingRequest:
		return "SENDING_REQUEST"
	case StateRxHeaders:
		return "RX_HEADERS"
	case StateRxStream:
		return "RX_STREAM"
	case StateRxDatagram:
		return "RX_DATAGRAM"
	default:
		return "UNKNOWN"
	}
}

// requestFetchKind distinguishes a payload fetch from a
// manifest-by-prefix fetch; it picks the request line, the scratch file
// name, and the datagram retransmit/idle cadence.
type requestFetchKind int

const (
	fetchKindPayload requestFetchKind = iota
	fetchKindManifestByPrefix
)

// Slot is one entry in a tier's single active-fetch seat (spec.md §3's
// "fetch slot"). Its back-pointer to the owning Pool and its own index
// are explicit fields, per §9's slot/event-loop linkage note, rather
// than relying on a cast from an embedded event-loop record.
type Slot struct {
	pool    *Pool
	tierIdx int

	state State
	kind  requestFetchKind

	manifest *types.Manifest
	peer     types.PeerID

	// Scratch file, shared verbatim across the stream and datagram
	// transports (spec.md §9 "scratch-file sharing").
	file           scratchFile
	path           string
	expectedLength int64
	bytesWritten   int64

	// Stream transport.
	conn      net.Conn
	reqBuf    []byte
	reqOffset int
	headerBuf []byte

	// Datagram transport.
	bidPrefix    [32]byte
	bidPrefixLen int
	window       *datagram.ReceiveWindow
	blockSize    uint16
	lastReceive  time.Time

	timer eventloop.TimerHandle
}

// State reports the slot's current lifecycle position.
func (s *Slot) State() State { return s.state }

// BID reports the BID under fetch, or the zero BID if none (e.g. a
// manifest-by-prefix fetch has no BID until the manifest is parsed).
func (s *Slot) BID() types.BID {
	if s.manifest == nil {
		return types.BID{}
	}
	return s.manifest.BID
}

// PayloadHash reports the payload hash under fetch, or "" if none.
func (s *Slot) PayloadHash() string {
	if s.manifest == nil {
		return ""
	}
	return s.manifest.PayloadHash
}

// idle reports whether the slot is unused (spec.md §3 invariant: a
// freed slot has no open file handle, no watched descriptor, no
// scheduled timer, an empty scratch path, state = FREE).
func (s *Slot) idle() bool {
	return s.state == StateFree
}
