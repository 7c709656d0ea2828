// Copyright (C) 2019-2025, Serval Project Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package datagram implements the windowed block-request overlay
// transport ("MDP", spec.md §4.D, §6): the wire codec for payload and
// manifest block requests, the incoming-block parser, and the sliding
// receive window used to reassemble a scratch file out of order.
package datagram

import (
	"errors"
	"fmt"

	"github.com/servaldna/rhizome-fetch/utils/wrappers"
)

// BlockSize is the fixed MDP block size (spec.md §4.D): chosen so
// several blocks fit in a typical datagram.
const BlockSize = 200

// WindowBlocks is the number of blocks tracked by the receive window's
// bitmap (spec.md §4.D).
const WindowBlocks = 32

// BlockType distinguishes an ordinary block from the final block of a
// transfer (spec.md §6).
type BlockType byte

const (
	BlockTypeOrdinary BlockType = 'B'
	BlockTypeTail     BlockType = 'T'
)

// BIDSize is the length in bytes of a full bundle ID.
const BIDSize = 32

// PayloadRequest builds the wire body of a payload block request
// (spec.md §6): BID ‖ version ‖ window_start ‖ bitmap ‖ block_size, all
// big-endian. bid must be exactly BIDSize bytes.
func PayloadRequest(bid []byte, version, windowStart uint64, bitmap uint32, blockSize uint16) ([]byte, error) {
	if len(bid) != BIDSize {
		return nil, fmt.Errorf("datagram: bid must be %d bytes, got %d", BIDSize, len(bid))
	}
	p := wrappers.NewPacker(BIDSize + 8 + 8 + 4 + 2)
	p.PackBytes(bid)
	p.PackLong(version)
	p.PackLong(windowStart)
	p.PackInt(bitmap)
	p.PackByte(byte(blockSize >> 8))
	p.PackByte(byte(blockSize))
	if p.Err != nil {
		return nil, p.Err
	}
	return p.Bytes, nil
}

// ManifestRequest builds the wire body of a manifest-by-prefix block
// request: the raw prefix bytes, 1 to 32 of them (spec.md §6).
func ManifestRequest(prefix []byte) ([]byte, error) {
	if len(prefix) < 1 || len(prefix) > BIDSize {
		return nil, fmt.Errorf("datagram: prefix length must be 1..%d, got %d", BIDSize, len(prefix))
	}
	out := make([]byte, len(prefix))
	copy(out, prefix)
	return out, nil
}

// ErrShortBlock is returned when a received datagram is too small to
// contain a valid incoming-block header.
var ErrShortBlock = errors.New("datagram: block shorter than header")

// ErrUnknownBlockType is returned when the trailing type byte is
// neither 'T' nor 'B'.
var ErrUnknownBlockType = errors.New("datagram: unknown block type byte")

// IncomingBlock is a parsed block arrival (spec.md §6): bid_prefix[16],
// version, offset, count, bytes, type.
type IncomingBlock struct {
	BIDPrefix [16]byte
	Version   uint64
	Offset    uint64
	Count     uint32
	Data      []byte
	Type      BlockType
}

// headerLen is the fixed-size prefix of an incoming block datagram:
// 16-byte bid prefix, u64 version, u64 offset, u32 count. The trailing
// 1-byte type after the payload bytes is not counted in it.
const headerLen = 16 + 8 + 8 + 4

// ParseIncomingBlock parses buf as a block arrival. buf must hold the
// fixed header, then exactly Count payload bytes, then one type byte.
func ParseIncomingBlock(buf []byte) (IncomingBlock, error) {
	if len(buf) < headerLen+1 {
		return IncomingBlock{}, ErrShortBlock
	}
	u := newUnpacker(buf)
	var blk IncomingBlock
	copy(blk.BIDPrefix[:], u.unpackBytes(16))
	blk.Version = u.unpackLong()
	blk.Offset = u.unpackLong()
	blk.Count = u.unpackInt()
	if u.err != nil {
		return IncomingBlock{}, u.err
	}
	if uint32(len(buf)-u.pos) < blk.Count+1 {
		return IncomingBlock{}, ErrShortBlock
	}
	blk.Data = append([]byte(nil), u.unpackBytes(int(blk.Count))...)
	typeByte := u.unpackByte()
	if u.err != nil {
		return IncomingBlock{}, u.err
	}
	switch BlockType(typeByte) {
	case BlockTypeOrdinary, BlockTypeTail:
		blk.Type = BlockType(typeByte)
	default:
		return IncomingBlock{}, ErrUnknownBlockType
	}
	return blk, nil
}

// EncodeIncomingBlock is the inverse of ParseIncomingBlock, used by
// test fixtures and by a datagram sender adapter framing a block it
// read off the overlay transport.
func EncodeIncomingBlock(blk IncomingBlock) []byte {
	p := wrappers.NewPacker(headerLen + len(blk.Data) + 1)
	p.PackBytes(blk.BIDPrefix[:])
	p.PackLong(blk.Version)
	p.PackLong(blk.Offset)
	p.PackInt(uint32(len(blk.Data)))
	p.PackBytes(blk.Data)
	p.PackByte(byte(blk.Type))
	return p.Bytes
}

// unpacker mirrors wrappers.Packer's sticky-error idiom for the
// reverse direction, which the teacher's package does not provide.
type unpacker struct {
	buf []byte
	pos int
	err error
}

func newUnpacker(buf []byte) *unpacker {
	return &unpacker{buf: buf}
}

func (u *unpacker) need(n int) bool {
	if u.err != nil {
		return false
	}
	if u.pos+n > len(u.buf) {
		u.err = ErrShortBlock
		return false
	}
	return true
}

func (u *unpacker) unpackByte() byte {
	if !u.need(1) {
		return 0
	}
	b := u.buf[u.pos]
	u.pos++
	return b
}

func (u *unpacker) unpackBytes(n int) []byte {
	if !u.need(n) {
		return nil
	}
	b := u.buf[u.pos : u.pos+n]
	u.pos += n
	return b
}

func (u *unpacker) unpackInt() uint32 {
	b := u.unpackBytes(4)
	if b == nil {
		return 0
	}
	return uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])
}

func (u *unpacker) unpackLong() uint64 {
	b := u.unpackBytes(8)
	if b == nil {
		return 0
	}
	return uint64(b[0])<<56 | uint64(b[1])<<48 | uint64(b[2])<<40 | uint64(b[3])<<32 |
		uint64(b[4])<<24 | uint64(b[5])<<16 | uint64(b[6])<<8 | uint64(b[7])
}
