// Copyright (c) 2024-2025. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package hardfork holds the per-network fork schedule: which protocol
// version applies at which block height. Validation code consults the
// schedule through VersionAt and the Version* gate constants.
package hardfork

// Protocol versions in activation order. A version gates the rules that
// apply from its activation height onward.
const (
	// VersionGenesis is the launch rule set.
	VersionGenesis uint64 = 1

	// VersionConversion activates pricing records and the on-chain
	// conversion mechanism. Blocks below this version must not carry a
	// non-empty pricing record.
	VersionConversion uint64 = 2

	// VersionYield activates yield accrual on converted balances. It does
	// not change pricing record acceptance rules.
	VersionYield uint64 = 3
)

// Fork is one entry in a network's schedule: Version becomes the active
// protocol version at Height.
type Fork struct {
	// Version is the protocol version this fork activates.
	Version uint64

	// Height is the first block height governed by Version.
	Height uint64

	// Name is the human-readable fork name used in logs and status output.
	Name string
}
