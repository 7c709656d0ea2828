// Copyright (C) 2019-2025, Serval Project Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package engine wires the fetch engine's components together and
// exposes the public entry points named in spec.md §4.G:
// suggest_queue_manifest_import, received_content, any_fetch_active,
// any_fetch_queued, and fetch_request_manifest_by_prefix.
package engine

import (
	"github.com/luxfi/log"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/servaldna/rhizome-fetch/cache"
	"github.com/servaldna/rhizome-fetch/config"
	"github.com/servaldna/rhizome-fetch/eventloop"
	"github.com/servaldna/rhizome-fetch/importer"
	"github.com/servaldna/rhizome-fetch/metrics"
	"github.com/servaldna/rhizome-fetch/queue"
	"github.com/servaldna/rhizome-fetch/slot"
	"github.com/servaldna/rhizome-fetch/store"
	"github.com/servaldna/rhizome-fetch/transport/datagram"
	"github.com/servaldna/rhizome-fetch/types"
)

// Engine is the assembled fetch engine (spec.md §2 data flow): the
// queue set and the slot pool, cross-wired so that cascaded activation
// (slot release -> queue feed) and the ownership-transferring
// try_start_fetch call (queue feed -> slot) both hold.
type Engine struct {
	cfg      config.Config
	versions *cache.VersionCache
	ignored  *cache.IgnoreCache
	pool     *slot.Pool
	queue    *queue.QueueSet
	log      log.Logger
}

// New assembles an Engine. scratchDir is where scratch files are
// created (spec.md §6 "Filesystem"); sched is the host event loop;
// st is the bundle-database boundary; imp is the bundle importer; sender
// emits MDP request datagrams; reg is the prometheus registerer metrics
// are installed into (nil disables metrics).
func New(
	cfg config.Config,
	scratchDir string,
	sched eventloop.Scheduler,
	st store.ManifestStore,
	imp importer.Importer,
	sender slot.DatagramSender,
	reg prometheus.Registerer,
	logger log.Logger,
) (*Engine, error) {
	if err := cfg.Valid(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = log.NewNoOpLogger()
	}

	var m *metrics.Metrics
	if reg != nil {
		var err error
		m, err = metrics.NewMetrics(reg)
		if err != nil {
			return nil, err
		}
	}

	versions := cache.NewVersionCache(st)
	ignored := cache.NewIgnoreCache(nil)
	pool := slot.NewPool(cfg, scratchDir, sched, st, versions, imp, sender, m, logger)

	e := &Engine{
		cfg:      cfg,
		versions: versions,
		ignored:  ignored,
		pool:     pool,
		log:      logger,
	}
	e.queue = queue.New(cfg, versions, ignored, pool, imp, sched, m, logger)
	pool.Cascade = e.queue.ActivateSlot
	return e, nil
}

// SuggestQueue implements suggest_queue_manifest_import (spec.md §4.E,
// §4.G). On types.Rejected or types.ImportedDirectly the caller's
// manifest has already been consumed or dropped; on types.Queued the
// manifest is now owned by the queue set.
func (e *Engine) SuggestQueue(m *types.Manifest, peer types.PeerID) types.EnqueueOutcome {
	return e.queue.SuggestQueue(m, peer)
}

// ReceivedContent implements the datagram arrival path (spec.md §4.D,
// §4.G received_content).
func (e *Engine) ReceivedContent(blk datagram.IncomingBlock) {
	e.pool.ReceivedContent(blk)
}

// AnyFetchActive implements any_fetch_active (spec.md §4.G).
func (e *Engine) AnyFetchActive() bool {
	return e.pool.AnyFetchActive()
}

// AnyFetchQueued implements any_fetch_queued (spec.md §4.G).
func (e *Engine) AnyFetchQueued() bool {
	return e.queue.AnyQueued()
}

// FetchRequestManifestByPrefix implements fetch_request_manifest_by_prefix
// (spec.md §4.C, §4.G).
func (e *Engine) FetchRequestManifestByPrefix(peer types.PeerID, prefix []byte) (types.FetchOutcome, error) {
	return e.pool.TryStartManifestByPrefix(peer, prefix)
}
