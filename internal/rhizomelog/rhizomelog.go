// Copyright (C) 2019-2025, Serval Project Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package rhizomelog provides a no-op test logger: a thin wrapper over
// the standard no-op logger from github.com/luxfi/log, the same logging
// facade production code wires a real backend into. No test in this
// module imports it; the tests call log.NewNoOpLogger directly.
package rhizomelog

import "github.com/luxfi/log"

// NewTestLogger returns a log.Logger that discards everything. Tests
// that need to assert on emitted lines should construct their own
// recording logger; most tests just need something to pass in.
func NewTestLogger() log.Logger {
	return log.NewNoOpLogger()
}
