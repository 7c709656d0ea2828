// Copyright (C) 2019-2025, Serval Project Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package queue

import (
	"github.com/luxfi/log"

	"github.com/servaldna/rhizome-fetch/cache"
	"github.com/servaldna/rhizome-fetch/config"
	"github.com/servaldna/rhizome-fetch/eventloop"
	"github.com/servaldna/rhizome-fetch/importer"
	"github.com/servaldna/rhizome-fetch/metrics"
	"github.com/servaldna/rhizome-fetch/set"
	"github.com/servaldna/rhizome-fetch/types"
)

// SlotStarter is the slot pool as seen by the queue: per §4.C,
// try_start_fetch is the one operation that moves a candidate from
// "queued" to "active". Taking this as an interface (rather than
// importing package slot directly) keeps slot free of any dependency
// on queue, so the cascade wiring in engine can go the other way.
type SlotStarter interface {
	TryStartFetch(tierIdx int, m *types.Manifest, peer types.PeerID) (types.FetchOutcome, error)
}

// QueueSet is the size-tiered fetch scheduler (§3, §4.E): the fixed
// ordered list of tiers plus the version/ignore caches and activator
// alarm that make SuggestQueue cheap.
type QueueSet struct {
	cfg       config.Config
	tiers     []*tier
	versions  *cache.VersionCache
	ignored   *cache.IgnoreCache
	starter   SlotStarter
	importer  importer.Importer
	scheduler eventloop.Scheduler
	metrics   *metrics.Metrics
	log       log.Logger

	activatorArmed bool
	activatorTimer eventloop.TimerHandle

	// queuedBIDs mirrors the BIDs present across every tier (§4.E step
	// 4's "at most one queued candidate per BID" invariant), so the
	// common case of a never-before-seen BID skips the per-tier scan.
	queuedBIDs set.Set[types.BID]
}

// New builds a QueueSet from cfg's tier table. starter is consulted by
// the activator to move candidates into slots; it is normally a
// *slot.Pool wired up in package engine.
func New(
	cfg config.Config,
	versions *cache.VersionCache,
	ignored *cache.IgnoreCache,
	starter SlotStarter,
	imp importer.Importer,
	scheduler eventloop.Scheduler,
	m *metrics.Metrics,
	logger log.Logger,
) *QueueSet {
	q := &QueueSet{
		cfg:        cfg,
		versions:   versions,
		ignored:    ignored,
		starter:    starter,
		importer:   imp,
		scheduler:  scheduler,
		metrics:    m,
		log:        logger,
		queuedBIDs: set.Set[types.BID]{},
	}
	for _, t := range cfg.Tiers {
		q.tiers = append(q.tiers, newTier(t.Bound, t.Capacity))
	}
	return q
}

// NumTiers returns the number of size tiers.
func (q *QueueSet) NumTiers() int { return len(q.tiers) }

// AnyQueued reports whether any tier holds a queued candidate (§4.G
// any_fetch_queued).
func (q *QueueSet) AnyQueued() bool {
	for _, t := range q.tiers {
		if len(t.candidates) > 0 {
			return true
		}
	}
	return false
}

// SuggestQueue implements §4.E's enqueue algorithm end to end.
func (q *QueueSet) SuggestQueue(m *types.Manifest, peer types.PeerID) types.EnqueueOutcome {
	// Step 1: fast reject via version cache.
	switch q.versions.Lookup(m) {
	case cache.VersionBadManifest:
		q.log.Debug("suggest_queue: bad manifest, missing bid")
		return types.Rejected
	case cache.VersionHaveSameOrNewer, cache.VersionHaveStrictlyNewer:
		q.recordCacheHit()
		return types.Rejected
	}
	q.recordCacheMiss()

	// A BID marked ignored after a failed verification is dropped
	// without spending another verification on it (§4.B).
	if q.ignored.IsIgnored(m.BID) {
		if q.metrics != nil {
			q.metrics.IgnoreCacheHits.Inc()
		}
		return types.Rejected
	}

	// Step 2: zero-length payload imports directly.
	if m.PayloadLength == 0 {
		if err := m.EnsureVerified(); err != nil {
			q.markIgnored(m, peer)
			return types.Rejected
		}
		if err := q.importer.ImportManifestOnly(m); err != nil {
			q.log.Error("suggest_queue: import manifest-only failed", "bid", m.BID, "err", err)
			return types.Rejected
		}
		q.versions.Store(m.BID, m.Version)
		return types.ImportedDirectly
	}

	// Step 3: select the unique tier whose size bound accepts this payload.
	tierIdx := q.cfg.TierIndex(m.PayloadLength)
	if tierIdx < 0 {
		q.log.Debug("suggest_queue: no tier accepts payload length", "length", m.PayloadLength)
		return types.Rejected
	}

	// Step 4: scan all tiers for a candidate with the same BID. The
	// queuedBIDs set short-circuits the overwhelmingly common case of a
	// BID that is not queued anywhere yet.
	if q.queuedBIDs.Contains(m.BID) {
		for tIdx, t := range q.tiers {
			i := t.findBID(m.BID)
			if i < 0 {
				continue
			}
			existing := t.candidates[i]
			if existing.Manifest.Version >= m.Version {
				return types.Rejected
			}
			if !m.SelfSigned {
				if err := m.EnsureVerified(); err != nil {
					q.markIgnored(m, peer)
					return types.Rejected
				}
			}
			t.remove(i)
			q.queuedBIDs.Remove(m.BID)
			q.updateDepthMetric(tIdx)
			break
		}
	}

	// Step 5: find an insertion index in the target tier.
	target := q.tiers[tierIdx]
	idx, reject := target.insertIndex(types.DefaultPriority)
	if reject {
		q.log.Debug("suggest_queue: tier full at equal-or-higher priority", "tier", tierIdx)
		return types.Rejected
	}

	// Step 6: verify (if needed) and insert.
	if err := m.EnsureVerified(); err != nil {
		q.markIgnored(m, peer)
		return types.Rejected
	}
	target.insert(idx, &types.Candidate{Manifest: m, Peer: peer, Priority: types.DefaultPriority})
	q.queuedBIDs.Add(m.BID)
	q.updateDepthMetric(tierIdx)

	// Step 7: arm the activator if not already armed.
	q.armActivator()
	return types.Queued
}

func (q *QueueSet) markIgnored(m *types.Manifest, peer types.PeerID) {
	addr := ""
	if peer.StreamAddr != nil {
		addr = peer.StreamAddr.String()
	}
	q.ignored.MarkIgnored(m.BID, addr, peer.SID, q.cfg.IgnoreTTL)
}

func (q *QueueSet) armActivator() {
	if q.activatorArmed {
		return
	}
	q.activatorArmed = true
	q.activatorTimer = q.scheduler.AfterFunc(q.cfg.FetchDelay, func() {
		q.activatorArmed = false
		q.Activate()
	})
}

// Activate iterates all tiers calling the per-slot activator (§4.E
// "Activator").
func (q *QueueSet) Activate() {
	for i := range q.tiers {
		q.ActivateSlot(i)
	}
}

// ActivateSlot implements start_next_queued_fetch for the slot backing
// tier tierIdx (§4.E): it considers that tier's own candidates and
// every smaller tier's candidates (lower index), smallest first, so
// that an idle large-tier slot cannot starve small-tier work (§5).
func (q *QueueSet) ActivateSlot(tierIdx int) {
	for t := 0; t <= tierIdx; t++ {
		if q.activateFromTier(tierIdx, t) {
			return
		}
	}
}

// activateFromTier tries every candidate in tier t against the slot for
// tierIdx, in array order, applying the result policy from §4.E. It
// returns true once the slot has been taken (or found busy).
func (q *QueueSet) activateFromTier(tierIdx, t int) bool {
	tr := q.tiers[t]
	i := 0
	for i < len(tr.candidates) {
		cand := tr.candidates[i]
		outcome, err := q.starter.TryStartFetch(tierIdx, cand.Manifest, cand.Peer)
		if err != nil {
			q.log.Error("activate: try_start_fetch failed", "bid", cand.Manifest.BID, "err", err)
			tr.remove(i)
			q.queuedBIDs.Remove(cand.Manifest.BID)
			q.updateDepthMetric(t)
			continue
		}
		switch outcome {
		case types.SlotBusy:
			return true
		case types.Started:
			tr.remove(i)
			q.queuedBIDs.Remove(cand.Manifest.BID)
			q.updateDepthMetric(t)
			return true
		case types.OlderBundle, types.NewerBundle:
			// Neither outcome displaces the active slot or the queued
			// candidate (§5: no pre-emption). OLDERBUNDLE leaves our
			// candidate queued behind the active fetch; NEWERBUNDLE
			// leaves it queued ahead of one that is already in flight
			// and will itself be superseded once that fetch completes.
			i++
			continue
		default:
			tr.remove(i)
			q.queuedBIDs.Remove(cand.Manifest.BID)
			q.updateDepthMetric(t)
			continue
		}
	}
	return false
}

func (q *QueueSet) updateDepthMetric(tierIdx int) {
	if q.metrics == nil {
		return
	}
	q.metrics.QueueDepth.WithLabelValues(tierName(tierIdx)).Set(float64(len(q.tiers[tierIdx].candidates)))
}

func (q *QueueSet) recordCacheHit() {
	if q.metrics != nil {
		q.metrics.VersionCacheHits.Inc()
	}
}

func (q *QueueSet) recordCacheMiss() {
	if q.metrics != nil {
		q.metrics.VersionCacheMisses.Inc()
	}
}

func tierName(i int) string {
	const alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	if i < len(alphabet) {
		return string(alphabet[i])
	}
	return "overflow"
}
