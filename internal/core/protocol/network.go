// Package protocol defines the Aurum network identifiers and the per-network
// chain parameters consumed by validation and configuration.
package protocol

import (
	"errors"
	"fmt"
	"strings"
)

// Network identifies which Aurum chain a node participates in.
type Network uint8

const (
	// MainNet is the production network.
	MainNet Network = iota
	// TestNet is the public test network.
	TestNet
	// StageNet is the pre-release staging network.
	StageNet
)

// ErrUnknownNetwork is returned when a network name or id does not match any
// known chain.
var ErrUnknownNetwork = errors.New("unknown network")

// String returns the lowercase network name.
func (n Network) String() string {
	switch n {
	case MainNet:
		return "mainnet"
	case TestNet:
		return "testnet"
	case StageNet:
		return "stagenet"
	default:
		return fmt.Sprintf("network(%d)", uint8(n))
	}
}

// Valid reports whether n names a known chain.
func (n Network) Valid() bool {
	switch n {
	case MainNet, TestNet, StageNet:
		return true
	default:
		return false
	}
}

// ParseNetwork resolves a case-insensitive network name.
func ParseNetwork(s string) (Network, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "mainnet", "main":
		return MainNet, nil
	case "testnet", "test":
		return TestNet, nil
	case "stagenet", "stage":
		return StageNet, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownNetwork, s)
	}
}

// Networks returns all known networks in declaration order.
func Networks() []Network {
	return []Network{MainNet, TestNet, StageNet}
}
