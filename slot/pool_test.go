// Copyright (C) 2019-2025, Serval Project Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package slot

import (
	"net"
	"testing"
	"time"

	"github.com/luxfi/log"
	"github.com/stretchr/testify/require"

	"github.com/servaldna/rhizome-fetch/cache"
	"github.com/servaldna/rhizome-fetch/config"
	"github.com/servaldna/rhizome-fetch/eventloop"
	"github.com/servaldna/rhizome-fetch/transport/datagram"
	"github.com/servaldna/rhizome-fetch/types"
)

// fakeTimer is an eventloop.TimerHandle that records cancellation but
// never fires on its own; tests fire callbacks explicitly.
type fakeTimer struct {
	cancelled bool
}

func (t *fakeTimer) Cancel() { t.cancelled = true }

type fakeScheduler struct {
	watches map[net.Conn]func()
	timers  []*fakeTimer
}

func newFakeScheduler() *fakeScheduler {
	return &fakeScheduler{watches: make(map[net.Conn]func())}
}

func (f *fakeScheduler) Watch(conn net.Conn, dir eventloop.Readiness, cb func()) error {
	f.watches[conn] = cb
	return nil
}

func (f *fakeScheduler) Unwatch(conn net.Conn) { delete(f.watches, conn) }

func (f *fakeScheduler) AfterFunc(d time.Duration, cb func()) eventloop.TimerHandle {
	t := &fakeTimer{}
	f.timers = append(f.timers, t)
	return t
}

type fakeStore struct {
	validPayloads map[string]bool
}

func (s *fakeStore) StoredVersion(types.BID) (uint64, bool) { return 0, false }
func (s *fakeStore) HasValidPayload(hash string) bool       { return s.validPayloads[hash] }

type fakeVersionDB struct {
	versions map[types.BID]uint64
}

func (d *fakeVersionDB) StoredVersion(bid types.BID) (uint64, bool) {
	v, ok := d.versions[bid]
	return v, ok
}

type fakeImporter struct {
	manifestOnly    []*types.Manifest
	payloadImported []*types.Manifest
}

func (i *fakeImporter) ImportManifestOnly(m *types.Manifest) error {
	i.manifestOnly = append(i.manifestOnly, m)
	return nil
}
func (i *fakeImporter) ImportPayload(m *types.Manifest, path string) error {
	i.payloadImported = append(i.payloadImported, m)
	return nil
}
func (i *fakeImporter) ImportManifestByPrefix(raw []byte) (*types.Manifest, error) {
	return nil, nil
}

type fakeSender struct {
	payloadRequests  int
	manifestRequests int
}

func (s *fakeSender) SendPayloadBlockRequest(peer types.PeerID, body []byte) error {
	s.payloadRequests++
	return nil
}
func (s *fakeSender) SendManifestBlockRequest(peer types.PeerID, body []byte) error {
	s.manifestRequests++
	return nil
}

func bidOf(b byte) types.BID {
	var id types.BID
	id[0] = b
	return id
}

func newTestPool(t *testing.T) (*Pool, *fakeScheduler, *fakeStore, *fakeImporter, *fakeSender) {
	t.Helper()
	sched := newFakeScheduler()
	st := &fakeStore{validPayloads: map[string]bool{}}
	versions := cache.NewVersionCache(&fakeVersionDB{versions: map[types.BID]uint64{}})
	imp := &fakeImporter{}
	sender := &fakeSender{}
	cfg := config.Default()
	p := NewPool(cfg, t.TempDir(), sched, st, versions, imp, sender, nil, log.NewNoOpLogger())
	return p, sched, st, imp, sender
}

func TestTryStartFetchImportsZeroLengthPayload(t *testing.T) {
	p, _, _, imp, _ := newTestPool(t)
	m := &types.Manifest{BID: bidOf(1), Version: 1}
	outcome, err := p.TryStartFetch(0, m, types.PeerID{})
	require.NoError(t, err)
	require.Equal(t, types.Imported, outcome)
	require.Len(t, imp.manifestOnly, 1)
}

func TestTryStartFetchImportsAlreadyStoredPayload(t *testing.T) {
	p, _, st, imp, _ := newTestPool(t)
	st.validPayloads["abcd"] = true
	m := &types.Manifest{BID: bidOf(1), Version: 1, PayloadLength: 10, PayloadHash: "abcd"}
	outcome, err := p.TryStartFetch(0, m, types.PeerID{})
	require.NoError(t, err)
	require.Equal(t, types.Imported, outcome)
	require.Len(t, imp.manifestOnly, 1)
}

func TestTryStartFetchMissingPayloadHashIsError(t *testing.T) {
	p, _, _, _, _ := newTestPool(t)
	m := &types.Manifest{BID: bidOf(1), Version: 1, PayloadLength: 10}
	_, err := p.TryStartFetch(0, m, types.PeerID{})
	require.ErrorIs(t, err, types.ErrNoPayloadHash)
}

func TestTryStartFetchSlotBusy(t *testing.T) {
	p, _, _, _, _ := newTestPool(t)
	m1 := &types.Manifest{BID: bidOf(1), Version: 1, PayloadLength: 10, PayloadHash: "a"}
	_, err := p.TryStartFetch(0, m1, types.PeerID{})
	require.NoError(t, err)

	m2 := &types.Manifest{BID: bidOf(2), Version: 1, PayloadLength: 10, PayloadHash: "b"}
	outcome, err := p.TryStartFetch(0, m2, types.PeerID{})
	require.NoError(t, err)
	require.Equal(t, types.SlotBusy, outcome)
}

func TestTryStartFetchVersionConflicts(t *testing.T) {
	p, _, _, _, _ := newTestPool(t)
	active := &types.Manifest{BID: bidOf(1), Version: 5, PayloadLength: 10, PayloadHash: "a"}
	outcome, err := p.TryStartFetch(0, active, types.PeerID{})
	require.NoError(t, err)
	require.Equal(t, types.Started, outcome)

	same := &types.Manifest{BID: bidOf(1), Version: 5, PayloadLength: 10, PayloadHash: "z"}
	outcome, err = p.TryStartFetch(1, same, types.PeerID{})
	require.NoError(t, err)
	require.Equal(t, types.SameBundle, outcome)

	older := &types.Manifest{BID: bidOf(1), Version: 3, PayloadLength: 10, PayloadHash: "y"}
	outcome, err = p.TryStartFetch(1, older, types.PeerID{})
	require.NoError(t, err)
	require.Equal(t, types.OlderBundle, outcome)

	newer := &types.Manifest{BID: bidOf(1), Version: 9, PayloadLength: 10, PayloadHash: "x"}
	outcome, err = p.TryStartFetch(1, newer, types.PeerID{})
	require.NoError(t, err)
	require.Equal(t, types.NewerBundle, outcome)
}

func TestTryStartFetchSamePayloadDifferentBID(t *testing.T) {
	p, _, _, _, _ := newTestPool(t)
	first := &types.Manifest{BID: bidOf(1), Version: 1, PayloadLength: 10, PayloadHash: "shared"}
	_, err := p.TryStartFetch(0, first, types.PeerID{})
	require.NoError(t, err)

	second := &types.Manifest{BID: bidOf(2), Version: 1, PayloadLength: 10, PayloadHash: "shared"}
	outcome, err := p.TryStartFetch(1, second, types.PeerID{})
	require.NoError(t, err)
	require.Equal(t, types.SamePayload, outcome)
}

func TestTryStartFetchNoPeerAddrGoesStraightToDatagram(t *testing.T) {
	p, _, _, _, sender := newTestPool(t)
	m := &types.Manifest{BID: bidOf(1), Version: 1, PayloadLength: 10, PayloadHash: "a"}
	outcome, err := p.TryStartFetch(0, m, types.PeerID{})
	require.NoError(t, err)
	require.Equal(t, types.Started, outcome)
	require.Equal(t, StateRxDatagram, p.slots[0].state)
	require.Equal(t, 1, sender.payloadRequests)
}

// TestStreamHappyPath drives S2 from spec.md §8: a manifest with a
// known payload length, served in full over the direct stream
// transport, completes with the importer called exactly once and the
// slot released.
func TestStreamHappyPath(t *testing.T) {
	p, sched, _, imp, _ := newTestPool(t)

	var serverConn net.Conn
	ready := make(chan struct{})
	p.dial = func(network, addr string) (net.Conn, error) {
		client, server := net.Pipe()
		serverConn = server
		close(ready)
		return client, nil
	}

	done := make(chan struct{})
	go func() {
		<-ready
		buf := make([]byte, 4096)
		serverConn.Read(buf)
		serverConn.Write([]byte("HTTP/1.0 200 OK\r\nContent-Length: 5\r\n\r\nhello"))
		close(done)
	}()

	m := &types.Manifest{BID: bidOf(1), Version: 1, PayloadLength: 5, PayloadHash: "deadbeef"}
	peer := types.PeerID{StreamAddr: &net.TCPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 4110}}

	outcome, err := p.TryStartFetch(0, m, peer)
	require.NoError(t, err)
	require.Equal(t, types.Started, outcome)

	s := p.slots[0]
	require.Equal(t, StateConnecting, s.state)

	writableCB := sched.watches[s.conn]
	require.NotNil(t, writableCB)
	writableCB()
	require.Equal(t, StateRxHeaders, s.state)

	// net.Pipe is unbuffered: the fake peer's reply write only returns
	// once the readable callback has read it, so wait on done afterwards.
	readableCB := sched.watches[s.conn]
	require.NotNil(t, readableCB)
	readableCB()
	<-done

	require.Equal(t, StateFree, s.state)
	require.Len(t, imp.payloadImported, 1)
	require.False(t, p.AnyFetchActive())
}

// TestStreamFallbackThenDatagramCompletion drives S3 from spec.md §8:
// the peer replies with a non-200 status, the slot falls back to the
// datagram transport, and three received_content calls complete it.
func TestStreamFallbackThenDatagramCompletion(t *testing.T) {
	p, sched, _, imp, sender := newTestPool(t)

	var serverConn net.Conn
	ready := make(chan struct{})
	p.dial = func(network, addr string) (net.Conn, error) {
		client, server := net.Pipe()
		serverConn = server
		close(ready)
		return client, nil
	}
	done := make(chan struct{})
	go func() {
		<-ready
		buf := make([]byte, 4096)
		serverConn.Read(buf)
		serverConn.Write([]byte("HTTP/1.0 404 Not Found\r\n\r\n"))
		close(done)
	}()

	m := &types.Manifest{BID: bidOf(3), Version: 1, PayloadLength: 1234, PayloadHash: "deadbeef"}
	peer := types.PeerID{StreamAddr: &net.TCPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 4110}}

	_, err := p.TryStartFetch(0, m, peer)
	require.NoError(t, err)
	s := p.slots[0]

	sched.watches[s.conn]()
	sched.watches[s.conn]()
	<-done

	require.Equal(t, StateRxDatagram, s.state)
	require.Equal(t, 1, sender.payloadRequests)

	p.ReceivedContent(datagram.IncomingBlock{
		BIDPrefix: prefix16(bidOf(3)),
		Version:   1,
		Offset:    0,
		Data:      make([]byte, 1000),
		Type:      datagram.BlockTypeOrdinary,
	})
	p.ReceivedContent(datagram.IncomingBlock{
		BIDPrefix: prefix16(bidOf(3)),
		Version:   1,
		Offset:    1000,
		Data:      make([]byte, 200),
		Type:      datagram.BlockTypeOrdinary,
	})
	p.ReceivedContent(datagram.IncomingBlock{
		BIDPrefix: prefix16(bidOf(3)),
		Version:   1,
		Offset:    1200,
		Data:      make([]byte, 34),
		Type:      datagram.BlockTypeTail,
	})

	require.Equal(t, StateFree, s.state)
	require.Len(t, imp.payloadImported, 1)
}

func prefix16(bid types.BID) (p [16]byte) {
	copy(p[:], bid[:16])
	return p
}
