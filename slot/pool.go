// Copyright (C) 2019-2025, Serval Project Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package slot

import (
	"fmt"
	"net"
	"os"
	"path/filepath"

	"github.com/luxfi/log"

	"github.com/servaldna/rhizome-fetch/cache"
	"github.com/servaldna/rhizome-fetch/config"
	"github.com/servaldna/rhizome-fetch/eventloop"
	"github.com/servaldna/rhizome-fetch/importer"
	"github.com/servaldna/rhizome-fetch/metrics"
	"github.com/servaldna/rhizome-fetch/store"
	"github.com/servaldna/rhizome-fetch/types"
)

// scratchFile is the subset of *os.File the slot needs; an interface so
// tests can substitute an in-memory fake without touching disk.
type scratchFile interface {
	WriteAt(p []byte, off int64) (int, error)
	Close() error
}

// DatagramSender is the single callback the core uses to emit MDP
// request datagrams (spec.md §1: "the core emits datagrams ... via a
// single callback"). Framing, routing, and neighbour tables are the
// overlay transport's job, not the core's.
type DatagramSender interface {
	SendPayloadBlockRequest(peer types.PeerID, body []byte) error
	SendManifestBlockRequest(peer types.PeerID, body []byte) error
}

// Dialer opens the direct stream connection to a peer. Swappable for
// tests; defaults to net.Dial in NewPool.
type Dialer func(network, address string) (net.Conn, error)

// Pool owns every fetch slot: one per size tier (spec.md §3: "each
// [tier] with ... one active slot"), plus the cross-tier bookkeeping
// that enforces the single-active-fetch-per-BID and
// single-active-fetch-per-payload-hash invariants (spec.md §3, §8
// properties 1-2).
type Pool struct {
	cfg        config.Config
	scratchDir string

	slots []*Slot

	scheduler eventloop.Scheduler
	store     store.ManifestStore
	versions  *cache.VersionCache
	importer  importer.Importer
	sender    DatagramSender
	metrics   *metrics.Metrics
	log       log.Logger
	dial      Dialer

	activeByBID         map[types.BID]*Slot
	activeByPayloadHash map[string]*Slot

	// Cascade is called after a slot is released, with that slot's tier
	// index, so the queue set can feed it the next queued candidate
	// (spec.md §4.E "Cascade"). Set by package engine after both the
	// pool and the queue set exist.
	Cascade func(tierIdx int)
}

// NewPool builds one slot per tier in cfg.
func NewPool(
	cfg config.Config,
	scratchDir string,
	scheduler eventloop.Scheduler,
	st store.ManifestStore,
	versions *cache.VersionCache,
	imp importer.Importer,
	sender DatagramSender,
	m *metrics.Metrics,
	logger log.Logger,
) *Pool {
	p := &Pool{
		cfg:                 cfg,
		scratchDir:          scratchDir,
		scheduler:           scheduler,
		store:               st,
		versions:            versions,
		importer:            imp,
		sender:              sender,
		metrics:             m,
		log:                 logger,
		dial:                net.Dial,
		activeByBID:         make(map[types.BID]*Slot),
		activeByPayloadHash: make(map[string]*Slot),
	}
	p.slots = make([]*Slot, len(cfg.Tiers))
	for i := range p.slots {
		p.slots[i] = &Slot{pool: p, tierIdx: i, state: StateFree}
	}
	return p
}

// AnyFetchActive reports whether any slot holds an active fetch
// (spec.md §4.G any_fetch_active).
func (p *Pool) AnyFetchActive() bool {
	for _, s := range p.slots {
		if !s.idle() {
			return true
		}
	}
	return false
}

// TryStartFetch implements try_start_fetch for the slot backing
// tierIdx (spec.md §4.C). On types.Started the slot now owns m; for
// every other outcome the caller retains ownership.
func (p *Pool) TryStartFetch(tierIdx int, m *types.Manifest, peer types.PeerID) (types.FetchOutcome, error) {
	if tierIdx < 0 || tierIdx >= len(p.slots) {
		return 0, fmt.Errorf("slot: tier index %d out of range", tierIdx)
	}
	s := p.slots[tierIdx]
	if !s.idle() {
		return types.SlotBusy, nil
	}

	if m.PayloadLength > 0 && m.PayloadHash == "" {
		return 0, types.ErrNoPayloadHash
	}

	if m.PayloadLength == 0 || (m.PayloadHash != "" && p.store.HasValidPayload(m.PayloadHash)) {
		if err := p.importer.ImportManifestOnly(m); err != nil {
			return 0, fmt.Errorf("slot: import manifest-only: %w", err)
		}
		p.versions.Store(m.BID, m.Version)
		return types.Imported, nil
	}

	switch p.versions.Lookup(m) {
	case cache.VersionHaveSameOrNewer, cache.VersionHaveStrictlyNewer:
		return types.Superseded, nil
	case cache.VersionBadManifest:
		return 0, fmt.Errorf("slot: manifest missing bid")
	}

	if active := p.activeByBID[m.BID]; active != nil {
		switch {
		case active.manifest.Version == m.Version:
			return types.SameBundle, nil
		case active.manifest.Version > m.Version:
			return types.OlderBundle, nil
		default:
			return types.NewerBundle, nil
		}
	}

	if m.PayloadHash != "" {
		if active := p.activeByPayloadHash[m.PayloadHash]; active != nil && active.manifest.BID != m.BID {
			return types.SamePayload, nil
		}
	}

	if err := p.startFetch(s, fetchKindPayload, m, peer); err != nil {
		return 0, err
	}
	return types.Started, nil
}

// TryStartManifestByPrefix implements try_start_manifest_by_prefix
// (spec.md §4.C, §4.G fetch_request_manifest_by_prefix): it allocates
// the first free slot in any tier (manifests are small, so every tier
// qualifies) and fetches the manifest bytes identified by prefix.
func (p *Pool) TryStartManifestByPrefix(peer types.PeerID, prefix []byte) (types.FetchOutcome, error) {
	var s *Slot
	for _, candidate := range p.slots {
		if candidate.idle() {
			s = candidate
			break
		}
	}
	if s == nil {
		return types.SlotBusy, nil
	}

	s.bidPrefixLen = copy(s.bidPrefix[:], prefix)
	if err := p.startFetch(s, fetchKindManifestByPrefix, nil, peer); err != nil {
		return 0, err
	}
	return types.Started, nil
}

// startFetch allocates the scratch file and either dials the peer's
// direct stream address or, if none was advertised, goes straight to
// the datagram transport (spec.md §4.D: "invoked ... initially if no
// IPv4 peer address was supplied").
func (p *Pool) startFetch(s *Slot, kind requestFetchKind, m *types.Manifest, peer types.PeerID) error {
	s.kind = kind
	s.manifest = m
	s.peer = peer
	s.bytesWritten = 0
	s.expectedLength = -1

	path, err := p.scratchPath(s)
	if err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("slot: open scratch file %s: %w", path, err)
	}
	s.file = f
	s.path = path

	if m != nil {
		p.activeByBID[m.BID] = s
		if m.PayloadHash != "" {
			p.activeByPayloadHash[m.PayloadHash] = s
		}
	}
	p.updateActiveGauge()

	if peer.StreamAddr == nil {
		p.switchToDatagram(s)
		return nil
	}
	p.startStream(s)
	return nil
}

func (p *Pool) scratchPath(s *Slot) (string, error) {
	switch s.kind {
	case fetchKindManifestByPrefix:
		return filepath.Join(p.scratchDir, fmt.Sprintf("manifest.%x", s.bidPrefix[:s.bidPrefixLen])), nil
	default:
		if s.manifest == nil {
			return "", fmt.Errorf("slot: payload fetch missing manifest")
		}
		return filepath.Join(p.scratchDir, fmt.Sprintf("payload.%s", s.manifest.BID)), nil
	}
}

// CloseSlot releases s: idempotent, per spec.md §4.C "Release" and the
// §3/§8 invariant that a freed slot has no open file handle, no watched
// descriptor, no scheduled timer, an empty path, and state FREE.
// Cascaded activation is triggered last, in the same callback turn
// (spec.md §5).
func (p *Pool) CloseSlot(s *Slot) {
	if s.idle() {
		return
	}
	if s.conn != nil {
		p.scheduler.Unwatch(s.conn)
		s.conn.Close()
		s.conn = nil
	}
	if s.timer != nil {
		s.timer.Cancel()
		s.timer = nil
	}
	if s.file != nil {
		s.file.Close()
		s.file = nil
	}
	if s.path != "" {
		os.Remove(s.path)
		s.path = ""
	}
	if s.manifest != nil {
		delete(p.activeByBID, s.manifest.BID)
		if s.manifest.PayloadHash != "" {
			delete(p.activeByPayloadHash, s.manifest.PayloadHash)
		}
		s.manifest = nil
	}
	s.state = StateFree
	s.window = nil
	s.reqBuf = nil
	s.headerBuf = nil
	s.bidPrefixLen = 0
	s.expectedLength = 0
	s.bytesWritten = 0

	p.updateActiveGauge()
	tierIdx := s.tierIdx
	if p.Cascade != nil {
		p.Cascade(tierIdx)
	}
}

// complete hands s's scratch file to the importer and releases the
// slot (spec.md §4.C step 4, §4.D completion).
func (p *Pool) complete(s *Slot) {
	if s.file != nil {
		s.file.Close()
		s.file = nil
	}
	path := s.path
	// Prevent CloseSlot from unlinking a file the importer now owns.
	s.path = ""

	switch s.kind {
	case fetchKindManifestByPrefix:
		raw, err := os.ReadFile(path)
		os.Remove(path)
		if err != nil {
			p.log.Error("slot: read completed manifest-by-prefix file", "path", path, "err", err)
			p.CloseSlot(s)
			return
		}
		if _, err := p.importer.ImportManifestByPrefix(raw); err != nil {
			p.log.Error("slot: import manifest-by-prefix", "err", err)
		}
	default:
		if err := p.importer.ImportPayload(s.manifest, path); err != nil {
			p.log.Error("slot: import payload", "bid", s.manifest.BID, "err", err)
			os.Remove(path)
		} else if p.versions != nil {
			p.versions.Store(s.manifest.BID, s.manifest.Version)
		}
	}
	if p.metrics != nil {
		p.metrics.FetchCompleted.WithLabelValues("completed").Inc()
	}
	p.CloseSlot(s)
}

func (p *Pool) updateActiveGauge() {
	if p.metrics == nil {
		return
	}
	n := 0
	for _, s := range p.slots {
		if !s.idle() {
			n++
		}
	}
	p.metrics.ActiveSlots.Set(float64(n))
}
