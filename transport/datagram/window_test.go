// Copyright (C) 2019-2025, Serval Project Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package datagram

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestReceiveWindowInOrder(t *testing.T) {
	w := NewReceiveWindow(BlockSize, 0)
	ok := w.Accept(0, BlockSize)
	require.True(t, ok)
	require.Equal(t, 1, w.Advance())
	require.EqualValues(t, BlockSize, w.WindowStart())
}

func TestReceiveWindowOutOfOrder(t *testing.T) {
	w := NewReceiveWindow(BlockSize, 0)
	ok := w.Accept(2*BlockSize, BlockSize)
	require.True(t, ok)
	require.Equal(t, 0, w.Advance()) // gap at block 0 still open

	ok = w.Accept(BlockSize, BlockSize)
	require.True(t, ok)
	require.Equal(t, 0, w.Advance()) // still waiting on block 0

	ok = w.Accept(0, BlockSize)
	require.True(t, ok)
	require.Equal(t, 3, w.Advance())
	require.EqualValues(t, 3*BlockSize, w.WindowStart())
}

func TestReceiveWindowMultiBlockArrival(t *testing.T) {
	// A single arrival spanning several nominal blocks (e.g. the first
	// block of a transfer, which may be larger than BlockSize) must
	// advance file_offset by its full byte count, not one block's worth.
	w := NewReceiveWindow(BlockSize, 0)
	ok := w.Accept(0, 5*BlockSize)
	require.True(t, ok)
	require.Equal(t, 1, w.Advance())
	require.EqualValues(t, 5*BlockSize, w.WindowStart())

	ok = w.Accept(5*BlockSize, BlockSize)
	require.True(t, ok)
	ok = w.Accept(6*BlockSize, 34)
	require.True(t, ok)
	require.Equal(t, 2, w.Advance())
	require.EqualValues(t, 6*BlockSize+34, w.WindowStart())
}

func TestReceiveWindowRejectsStaleOrMisaligned(t *testing.T) {
	w := NewReceiveWindow(BlockSize, BlockSize)
	ok := w.Accept(0, BlockSize)
	require.False(t, ok, "offset before window start is stale")

	ok = w.Accept(BlockSize+5, BlockSize)
	require.False(t, ok, "offset not on a block boundary")

	ok = w.Accept(BlockSize*(WindowBlocks+1), BlockSize)
	require.False(t, ok, "offset beyond window")
}

func TestReceiveWindowDuplicateAcceptIsIdempotent(t *testing.T) {
	w := NewReceiveWindow(BlockSize, 0)
	ok := w.Accept(0, BlockSize)
	require.True(t, ok)
	ok = w.Accept(0, BlockSize)
	require.True(t, ok)
	require.Equal(t, 1, w.Advance())
}
