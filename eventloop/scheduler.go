// Copyright (C) 2019-2025, Serval Project Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package eventloop names the host event-loop boundary the fetch engine
// is built against (spec.md §1, §5, §9): file-descriptor readiness and
// one-shot timers. Apart from the stream dial, which calls the slot
// pool's Dialer (net.Dial by default) synchronously and blocks until it
// connects or fails, every socket is driven by callbacks registered
// here. Per §9's "Slot <-> event-loop linkage" note, callbacks are
// plain closures over the slot they serve rather than relying on
// struct-embedding tricks.
package eventloop

import (
	"net"
	"time"
)

// Readiness is the direction a descriptor is being watched for.
type Readiness int

const (
	Readable Readiness = iota
	Writable
)

// TimerHandle identifies an armed one-shot timer so it can be
// cancelled or re-armed.
type TimerHandle interface {
	// Cancel cancels the timer if it has not already fired. Safe to
	// call more than once.
	Cancel()
}

// Scheduler is the host loop's boundary: it watches descriptors for
// readiness and arms one-shot timers, delivering both back as plain
// callbacks. A single-threaded cooperative implementation (spec.md §5)
// needs no synchronisation between callback and registration calls.
type Scheduler interface {
	// Watch arms a one-shot readiness callback for conn in direction
	// dir. The callback fires at most once; re-arm by calling Watch
	// again from inside the callback.
	Watch(conn net.Conn, dir Readiness, cb func()) error

	// Unwatch removes any pending readiness callback for conn. Safe to
	// call when nothing is registered.
	Unwatch(conn net.Conn)

	// AfterFunc arms a one-shot timer that calls cb after d elapses.
	AfterFunc(d time.Duration, cb func()) TimerHandle
}
