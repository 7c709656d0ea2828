// Copyright (C) 2019-2025, Serval Project Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package slot

import (
	"fmt"

	"github.com/servaldna/rhizome-fetch/eventloop"
	"github.com/servaldna/rhizome-fetch/transport/stream"
)

// startStream begins the direct-peer stream transport for s (spec.md
// §4.C steps 1-2). If the dial fails it falls straight back to the
// datagram transport rather than reporting an error, matching the
// "transient peer failure -> try the alternate transport" policy of
// §7: a connection refusal is not distinguishable in kind from a
// mid-stream failure as far as the slot is concerned.
func (p *Pool) startStream(s *Slot) {
	conn, err := p.dial("tcp", s.peer.StreamAddr.String())
	if err != nil {
		p.log.Debug("slot: dial failed, falling back to datagram transport", "peer", s.peer.StreamAddr, "err", err)
		p.switchToDatagram(s)
		return
	}
	s.conn = conn
	s.state = StateConnecting

	switch s.kind {
	case fetchKindManifestByPrefix:
		s.reqBuf = stream.ManifestByPrefixRequest(fmt.Sprintf("%x", s.bidPrefix[:s.bidPrefixLen]))
	default:
		s.reqBuf = stream.PayloadRequest(s.manifest.PayloadHash)
	}
	s.reqOffset = 0

	p.armIdleTimer(s)
	if err := p.scheduler.Watch(conn, eventloop.Writable, func() { p.onWritable(s) }); err != nil {
		p.log.Error("slot: watch writable failed", "err", err)
		p.switchToDatagram(s)
	}
}

func (p *Pool) armIdleTimer(s *Slot) {
	if s.timer != nil {
		s.timer.Cancel()
	}
	s.timer = p.scheduler.AfterFunc(p.cfg.IdleTimeout, func() { p.onIdleTimeout(s) })
}

// onIdleTimeout fires RHIZOME_IDLE_TIMEOUT after the slot's last
// observed byte, for either transport (spec.md §5: "Idle timers
// (stream and datagram) trigger close_slot").
func (p *Pool) onIdleTimeout(s *Slot) {
	p.CloseSlot(s)
}

// onWritable drives CONNECTING -> SENDING_REQUEST -> RX_HEADERS
// (spec.md §4.C step 2).
func (p *Pool) onWritable(s *Slot) {
	if s.state == StateConnecting {
		s.state = StateSendingRequest
	}
	n, err := s.conn.Write(s.reqBuf[s.reqOffset:])
	if err != nil {
		p.switchToDatagram(s)
		return
	}
	s.reqOffset += n
	p.armIdleTimer(s)

	if s.reqOffset < len(s.reqBuf) {
		if werr := p.scheduler.Watch(s.conn, eventloop.Writable, func() { p.onWritable(s) }); werr != nil {
			p.switchToDatagram(s)
		}
		return
	}

	s.state = StateRxHeaders
	s.headerBuf = make([]byte, 0, 4096)
	if werr := p.scheduler.Watch(s.conn, eventloop.Readable, func() { p.onReadable(s) }); werr != nil {
		p.switchToDatagram(s)
	}
}

func (p *Pool) onReadable(s *Slot) {
	switch s.state {
	case StateRxHeaders:
		p.readHeaders(s)
	case StateRxStream:
		p.readStream(s)
	}
}

// readHeaders implements RX_HEADERS (spec.md §4.C step 3): accumulate
// bytes until a full header block is seen, then parse it.
func (p *Pool) readHeaders(s *Slot) {
	buf := make([]byte, 4096)
	n, err := s.conn.Read(buf)
	if n == 0 || err != nil {
		p.switchToDatagram(s)
		return
	}
	s.headerBuf = append(s.headerBuf, buf[:n]...)

	resp, perr := stream.ParseResponse(s.headerBuf)
	if perr == stream.ErrIncompleteHeaders {
		p.armIdleTimer(s)
		if werr := p.scheduler.Watch(s.conn, eventloop.Readable, func() { p.onReadable(s) }); werr != nil {
			p.switchToDatagram(s)
		}
		return
	}
	if perr != nil || !resp.Ok() {
		p.switchToDatagram(s)
		return
	}

	s.expectedLength = resp.ContentLength
	s.state = StateRxStream
	p.armIdleTimer(s)

	if body := s.headerBuf[resp.BodyStart:]; len(body) > 0 {
		if err := p.writeBody(s, body); err != nil {
			p.switchToDatagram(s)
			return
		}
	}
	s.headerBuf = nil

	if s.bytesWritten == s.expectedLength {
		p.complete(s)
		return
	}
	if werr := p.scheduler.Watch(s.conn, eventloop.Readable, func() { p.onReadable(s) }); werr != nil {
		p.switchToDatagram(s)
	}
}

// readStream implements RX_STREAM (spec.md §4.C step 4): read up to a
// fixed chunk at a time straight into the scratch file.
func (p *Pool) readStream(s *Slot) {
	buf := make([]byte, p.cfg.StreamReadChunk)
	n, err := s.conn.Read(buf)
	if n == 0 || err != nil {
		p.switchToDatagram(s)
		return
	}
	if err := p.writeBody(s, buf[:n]); err != nil {
		p.switchToDatagram(s)
		return
	}
	p.armIdleTimer(s)

	if s.bytesWritten == s.expectedLength {
		p.complete(s)
		return
	}
	if werr := p.scheduler.Watch(s.conn, eventloop.Readable, func() { p.onReadable(s) }); werr != nil {
		p.switchToDatagram(s)
	}
}

func (p *Pool) writeBody(s *Slot, data []byte) error {
	if _, err := s.file.WriteAt(data, s.bytesWritten); err != nil {
		return fmt.Errorf("slot: write scratch file: %w", err)
	}
	s.bytesWritten += int64(len(data))
	if p.metrics != nil {
		p.metrics.BytesFetched.WithLabelValues("stream").Add(float64(len(data)))
	}
	return nil
}
