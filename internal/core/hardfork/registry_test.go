// Copyright (c) 2024-2025. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package hardfork

import (
	"testing"

	"github.com/aurumchain/go-aurum/internal/core/protocol"
)

func TestVersionAtBoundaries(t *testing.T) {
	tests := []struct {
		network protocol.Network
		height  uint64
		want    uint64
	}{
		{protocol.MainNet, 0, VersionGenesis},
		{protocol.MainNet, 249_999, VersionGenesis},
		{protocol.MainNet, 250_000, VersionConversion},
		{protocol.MainNet, 719_999, VersionConversion},
		{protocol.MainNet, 720_000, VersionYield},
		{protocol.MainNet, ^uint64(0), VersionYield},
		{protocol.TestNet, 999, VersionGenesis},
		{protocol.TestNet, 1_000, VersionConversion},
		{protocol.TestNet, 5_000, VersionYield},
		{protocol.StageNet, 1_999, VersionGenesis},
		{protocol.StageNet, 2_000, VersionConversion},
		{protocol.StageNet, 10_000, VersionYield},
	}
	for _, tc := range tests {
		got := VersionAt(tc.network, tc.height)
		if got != tc.want {
			t.Errorf("VersionAt(%s, %d) = %d, want %d", tc.network, tc.height, got, tc.want)
		}
	}
}

func TestVersionAtUnknownNetwork(t *testing.T) {
	if got := VersionAt(protocol.Network(200), 1_000_000); got != 0 {
		t.Errorf("expected version 0 for unregistered network, got %d", got)
	}
}

func TestActivationHeight(t *testing.T) {
	h, ok := ActivationHeight(protocol.MainNet, VersionConversion)
	if !ok {
		t.Fatal("conversion fork not found on mainnet")
	}
	if h != 250_000 {
		t.Errorf("expected activation at 250000, got %d", h)
	}

	if _, ok := ActivationHeight(protocol.MainNet, 99); ok {
		t.Error("unknown version should not resolve")
	}
}

func TestIsActive(t *testing.T) {
	if IsActive(protocol.MainNet, VersionConversion, 249_999) {
		t.Error("conversion must not be active below its height")
	}
	if !IsActive(protocol.MainNet, VersionConversion, 250_000) {
		t.Error("conversion must be active at its height")
	}
	// An older version stays active once superseded.
	if !IsActive(protocol.MainNet, VersionGenesis, 720_000) {
		t.Error("genesis rules remain covered by later versions")
	}
}

func TestLatestVersion(t *testing.T) {
	for _, n := range protocol.Networks() {
		if got := LatestVersion(n); got != VersionYield {
			t.Errorf("LatestVersion(%s) = %d, want %d", n, got, VersionYield)
		}
	}
	if got := LatestVersion(protocol.Network(200)); got != 0 {
		t.Errorf("expected 0 for unregistered network, got %d", got)
	}
}

func TestScheduleReturnsCopy(t *testing.T) {
	s := Schedule(protocol.MainNet)
	if len(s) != 3 {
		t.Fatalf("expected 3 forks, got %d", len(s))
	}

	s[0].Height = 12345
	if got := Schedule(protocol.MainNet)[0].Height; got != 0 {
		t.Errorf("registry mutated through returned slice: height %d", got)
	}
}

func TestScheduleOrdering(t *testing.T) {
	for _, n := range protocol.Networks() {
		s := Schedule(n)
		for i := 1; i < len(s); i++ {
			if s[i].Version <= s[i-1].Version || s[i].Height <= s[i-1].Height {
				t.Errorf("%s schedule not strictly ascending at %q", n, s[i].Name)
			}
		}
	}
}
