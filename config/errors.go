// Copyright (C) 2019-2025, Serval Project Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package config

import "errors"

var (
	ErrNoTiers            = errors.New("size-tier table must have at least one tier")
	ErrTierBoundsNotSorted = errors.New("tier bounds must be strictly increasing")
	ErrLastTierNotUnbounded = errors.New("the last tier must be unbounded (bound <= 0)")
)
