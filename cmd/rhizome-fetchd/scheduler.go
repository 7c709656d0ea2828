// Copyright (C) 2019-2025, Serval Project Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package main

import (
	"errors"
	"net"
	"sync"
	"syscall"
	"time"

	"github.com/servaldna/rhizome-fetch/eventloop"
)

// errNotSyscallConn is returned by Watch for a net.Conn whose
// implementation does not expose its file descriptor (e.g. net.Pipe,
// used only in tests).
var errNotSyscallConn = errors.New("rhizome-fetchd: conn does not support raw fd access")

// pollScheduler is a minimal, real eventloop.Scheduler for demo/dev use:
// the fetch engine's core never implements one itself (spec.md §1, §9 —
// "the core assumes a host loop that delivers readiness events"), so a
// concrete host loop lives here, outside the core, rather than in any
// package the core depends on.
//
// Watch does not wait for readiness: the function it passes to
// syscall.RawConn.Read/Write returns true on its first call, so the
// wait completes at once and cb runs immediately on its own goroutine.
// The Read or Write that cb then performs on the net.Conn blocks that
// goroutine until the descriptor is ready.
type pollScheduler struct {
	mu sync.Mutex
}

func newPollScheduler() *pollScheduler { return &pollScheduler{} }

func (p *pollScheduler) Watch(conn net.Conn, dir eventloop.Readiness, cb func()) error {
	sc, ok := conn.(syscall.Conn)
	if !ok {
		return errNotSyscallConn
	}
	rc, err := sc.SyscallConn()
	if err != nil {
		return err
	}
	go func() {
		wait := rc.Read
		if dir == eventloop.Writable {
			wait = rc.Write
		}
		_ = wait(func(fd uintptr) bool { return true })
		cb()
	}()
	return nil
}

func (p *pollScheduler) Unwatch(conn net.Conn) {
	// The goroutines spawned by Watch exit on their own once cb
	// returns; closing conn (done by slot.Pool.CloseSlot right after
	// Unwatch) unblocks a Read or Write still pending inside cb.
}

func (p *pollScheduler) AfterFunc(d time.Duration, cb func()) eventloop.TimerHandle {
	return &stdTimer{t: time.AfterFunc(d, cb)}
}

type stdTimer struct {
	t *time.Timer
}

func (s *stdTimer) Cancel() { s.t.Stop() }
