// Copyright (C) 2019-2025, Serval Project Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package config

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestConfigValid(t *testing.T) {
	tests := []struct {
		name          string
		mutate        func(*Config)
		expectedError error
	}{
		{name: "default is valid"},
		{
			name:          "no tiers",
			mutate:        func(c *Config) { c.Tiers = nil },
			expectedError: ErrNoTiers,
		},
		{
			name: "last tier bounded",
			mutate: func(c *Config) {
				c.Tiers[len(c.Tiers)-1].Bound = 1_000_000_000
			},
			expectedError: ErrLastTierNotUnbounded,
		},
		{
			name: "bounds not sorted",
			mutate: func(c *Config) {
				c.Tiers[0].Bound = c.Tiers[1].Bound + 1
			},
			expectedError: ErrTierBoundsNotSorted,
		},
		{
			name:   "zero idle timeout",
			mutate: func(c *Config) { c.IdleTimeout = 0 },
		},
		{
			name:   "window too large",
			mutate: func(c *Config) { c.DatagramWindowBlocks = 33 },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			if tt.mutate != nil {
				tt.mutate(&cfg)
			}
			err := cfg.Valid()
			if tt.expectedError != nil {
				require.ErrorIs(t, err, tt.expectedError)
				return
			}
			if tt.name == "default is valid" {
				require.NoError(t, err)
			} else {
				require.Error(t, err)
			}
		})
	}
}

func TestConfigValidRejectsZeroCapacityLastTier(t *testing.T) {
	cfg := Default()
	cfg.Tiers[len(cfg.Tiers)-1].Capacity = 0
	require.Error(t, cfg.Valid())
}

func TestConfigTierIndex(t *testing.T) {
	cfg := Default()

	require.Equal(t, 0, cfg.TierIndex(5_000))
	require.Equal(t, 1, cfg.TierIndex(50_000))
	require.Equal(t, 2, cfg.TierIndex(500_000))
	require.Equal(t, 3, cfg.TierIndex(5_000_000))
	require.Equal(t, 4, cfg.TierIndex(50_000_000))
	require.Equal(t, 0, cfg.TierIndex(0))
}
