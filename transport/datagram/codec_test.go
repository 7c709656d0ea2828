// Copyright (C) 2019-2025, Serval Project Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package datagram

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPayloadRequestRoundTrip(t *testing.T) {
	bid := bytes.Repeat([]byte{0xAB}, BIDSize)
	buf, err := PayloadRequest(bid, 7, 1000, 0x0000FFFF, BlockSize)
	require.NoError(t, err)
	require.Len(t, buf, BIDSize+8+8+4+2)
	require.True(t, bytes.Equal(buf[:BIDSize], bid))
}

func TestPayloadRequestRejectsBadBIDLength(t *testing.T) {
	_, err := PayloadRequest([]byte{1, 2, 3}, 1, 0, 0, BlockSize)
	require.Error(t, err)
}

func TestManifestRequest(t *testing.T) {
	buf, err := ManifestRequest([]byte{0xDE, 0xAD})
	require.NoError(t, err)
	require.Equal(t, []byte{0xDE, 0xAD}, buf)

	_, err = ManifestRequest(nil)
	require.Error(t, err)
}

func TestIncomingBlockRoundTrip(t *testing.T) {
	want := IncomingBlock{
		Version: 42,
		Offset:  1200,
		Data:    []byte("hello datagram"),
		Type:    BlockTypeTail,
	}
	copy(want.BIDPrefix[:], bytes.Repeat([]byte{0x11}, 16))

	wire := EncodeIncomingBlock(want)
	got, err := ParseIncomingBlock(wire)
	require.NoError(t, err)
	require.Equal(t, want.BIDPrefix, got.BIDPrefix)
	require.Equal(t, want.Version, got.Version)
	require.Equal(t, want.Offset, got.Offset)
	require.Equal(t, uint32(len(want.Data)), got.Count)
	require.Equal(t, want.Data, got.Data)
	require.Equal(t, want.Type, got.Type)
}

func TestParseIncomingBlockShort(t *testing.T) {
	_, err := ParseIncomingBlock([]byte{1, 2, 3})
	require.ErrorIs(t, err, ErrShortBlock)
}

func TestParseIncomingBlockUnknownType(t *testing.T) {
	blk := IncomingBlock{Type: BlockTypeOrdinary, Data: []byte("x")}
	wire := EncodeIncomingBlock(blk)
	wire[len(wire)-1] = 'Q'
	_, err := ParseIncomingBlock(wire)
	require.ErrorIs(t, err, ErrUnknownBlockType)
}
