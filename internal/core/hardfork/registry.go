// Copyright (c) 2024-2025. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package hardfork

import (
	"fmt"
	"sync"

	"github.com/aurumchain/go-aurum/internal/core/protocol"
)

// Global fork schedule registry
var (
	registryMu sync.RWMutex
	schedules  = make(map[protocol.Network][]Fork)
)

func init() {
	registerSchedule(protocol.MainNet,
		Fork{Version: VersionGenesis, Height: 0, Name: "genesis"},
		Fork{Version: VersionConversion, Height: 250_000, Name: "conversion"},
		Fork{Version: VersionYield, Height: 720_000, Name: "yield"},
	)

	// Test networks activate early so feature paths get exercised.
	registerSchedule(protocol.TestNet,
		Fork{Version: VersionGenesis, Height: 0, Name: "genesis"},
		Fork{Version: VersionConversion, Height: 1_000, Name: "conversion"},
		Fork{Version: VersionYield, Height: 5_000, Name: "yield"},
	)

	registerSchedule(protocol.StageNet,
		Fork{Version: VersionGenesis, Height: 0, Name: "genesis"},
		Fork{Version: VersionConversion, Height: 2_000, Name: "conversion"},
		Fork{Version: VersionYield, Height: 10_000, Name: "yield"},
	)
}

// registerSchedule installs a network's fork schedule. Entries must be
// strictly ascending in both version and height; violations panic at init
// because a malformed schedule is a build defect, not a runtime condition.
func registerSchedule(network protocol.Network, forks ...Fork) {
	for i := 1; i < len(forks); i++ {
		if forks[i].Version <= forks[i-1].Version {
			panic(fmt.Sprintf("hardfork: %s schedule versions not ascending at %q", network, forks[i].Name))
		}
		if forks[i].Height <= forks[i-1].Height {
			panic(fmt.Sprintf("hardfork: %s schedule heights not ascending at %q", network, forks[i].Name))
		}
	}

	registryMu.Lock()
	schedules[network] = forks
	registryMu.Unlock()
}

// Schedule returns a copy of the fork schedule for network, oldest first.
func Schedule(network protocol.Network) []Fork {
	registryMu.RLock()
	defer registryMu.RUnlock()

	forks := schedules[network]
	out := make([]Fork, len(forks))
	copy(out, forks)
	return out
}

// VersionAt returns the protocol version governing blocks at height on
// network: the version of the highest fork whose activation height is at or
// below height. Returns 0 for a network with no registered schedule.
func VersionAt(network protocol.Network, height uint64) uint64 {
	registryMu.RLock()
	defer registryMu.RUnlock()

	var version uint64
	for _, f := range schedules[network] {
		if f.Height > height {
			break
		}
		version = f.Version
	}
	return version
}

// ActivationHeight returns the height at which version activates on network,
// and whether the version appears in the schedule at all.
func ActivationHeight(network protocol.Network, version uint64) (uint64, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()

	for _, f := range schedules[network] {
		if f.Version == version {
			return f.Height, true
		}
	}
	return 0, false
}

// IsActive reports whether version is in force at height on network.
func IsActive(network protocol.Network, version, height uint64) bool {
	return VersionAt(network, height) >= version
}

// LatestVersion returns the highest version in the network's schedule.
func LatestVersion(network protocol.Network) uint64 {
	registryMu.RLock()
	defer registryMu.RUnlock()

	forks := schedules[network]
	if len(forks) == 0 {
		return 0
	}
	return forks[len(forks)-1].Version
}
