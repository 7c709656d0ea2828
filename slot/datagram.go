// Copyright (C) 2019-2025, Serval Project Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package slot

import (
	"time"

	"github.com/servaldna/rhizome-fetch/transport/datagram"
)

// switchToDatagram falls back from the stream transport to the
// windowed datagram transport without losing bytes already written
// (spec.md §4.C step 5, §4.D), or starts there directly when no direct
// peer stream address was supplied.
func (p *Pool) switchToDatagram(s *Slot) {
	if s.conn != nil {
		p.scheduler.Unwatch(s.conn)
		s.conn.Close()
		s.conn = nil
	}
	if s.timer != nil {
		s.timer.Cancel()
		s.timer = nil
	}

	s.state = StateRxDatagram
	s.blockSize = uint16(p.cfg.DatagramBlockSize)
	s.window = datagram.NewReceiveWindow(s.blockSize, uint64(s.bytesWritten))
	s.lastReceive = time.Now()

	if err := p.sendDatagramRequest(s); err != nil {
		p.log.Error("slot: send datagram request", "err", err)
	}
	s.timer = p.scheduler.AfterFunc(p.datagramRetransmit(s), func() { p.onDatagramTick(s) })
}

func (p *Pool) datagramRetransmit(s *Slot) time.Duration {
	if s.kind == fetchKindManifestByPrefix {
		return p.cfg.DatagramManifestRetransmit
	}
	return p.cfg.DatagramPayloadRetransmit
}

func (p *Pool) datagramIdle(s *Slot) time.Duration {
	if s.kind == fetchKindManifestByPrefix {
		return p.cfg.DatagramManifestIdle
	}
	return p.cfg.DatagramPayloadIdle
}

func (p *Pool) sendDatagramRequest(s *Slot) error {
	switch s.kind {
	case fetchKindManifestByPrefix:
		body, err := datagram.ManifestRequest(s.bidPrefix[:s.bidPrefixLen])
		if err != nil {
			return err
		}
		return p.sender.SendManifestBlockRequest(s.peer, body)
	default:
		body, err := datagram.PayloadRequest(s.manifest.BID[:], s.manifest.Version, s.window.WindowStart(), s.window.Bitmap(), s.blockSize)
		if err != nil {
			return err
		}
		return p.sender.SendPayloadBlockRequest(s.peer, body)
	}
}

// onDatagramTick re-checks the idle deadline and, if still within it,
// re-sends the request and re-arms itself (spec.md §4.D: "On each
// tick, re-check idle timer"). The retransmit timer doubles as the
// idle timer per §5: there is exactly one timer armed per slot.
func (p *Pool) onDatagramTick(s *Slot) {
	if time.Since(s.lastReceive) >= p.datagramIdle(s) {
		p.CloseSlot(s)
		return
	}
	if err := p.sendDatagramRequest(s); err != nil {
		p.log.Error("slot: retransmit datagram request", "err", err)
	}
	s.timer = p.scheduler.AfterFunc(p.datagramRetransmit(s), func() { p.onDatagramTick(s) })
}

// activePrefix16 returns the 16-byte identifying prefix the arrival
// path matches incoming blocks against: the active BID's first 16
// bytes for a payload fetch, or the requested prefix (zero-padded) for
// a manifest-by-prefix fetch.
func (s *Slot) activePrefix16() (prefix [16]byte, ok bool) {
	if s.state != StateRxDatagram {
		return prefix, false
	}
	if s.manifest != nil {
		copy(prefix[:], s.manifest.BID[:16])
		return prefix, true
	}
	if s.bidPrefixLen > 0 {
		n := s.bidPrefixLen
		if n > 16 {
			n = 16
		}
		copy(prefix[:n], s.bidPrefix[:n])
		return prefix, true
	}
	return prefix, false
}

// ReceivedContent implements the datagram arrival path (spec.md §4.D
// "received_content"): it locates the slot (across all tiers) whose
// active identifying prefix matches bidPrefix16, accepts the block into
// the receive window, writes it to the scratch file at its declared
// offset, and completes the fetch once the window has advanced past a
// declared tail block.
func (p *Pool) ReceivedContent(blk datagram.IncomingBlock) {
	var s *Slot
	for _, candidate := range p.slots {
		prefix, ok := candidate.activePrefix16()
		if ok && prefix == blk.BIDPrefix {
			s = candidate
			break
		}
	}
	if s == nil {
		return
	}

	if !s.window.Accept(blk.Offset, uint64(len(blk.Data))) {
		return
	}
	if _, err := s.file.WriteAt(blk.Data, int64(blk.Offset)); err != nil {
		p.log.Error("slot: write datagram block", "err", err)
		p.CloseSlot(s)
		return
	}
	if p.metrics != nil {
		p.metrics.BytesFetched.WithLabelValues("datagram").Add(float64(len(blk.Data)))
	}
	s.lastReceive = time.Now()

	if blk.Type == datagram.BlockTypeTail {
		s.expectedLength = int64(blk.Offset) + int64(len(blk.Data))
	}
	if advanced := s.window.Advance(); advanced > 0 {
		s.bytesWritten = int64(s.window.WindowStart())
	}

	if s.expectedLength >= 0 && s.bytesWritten >= s.expectedLength {
		p.complete(s)
	}
}
