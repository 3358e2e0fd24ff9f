package protocol

// Consensus constants shared by every network. These are policy values fixed
// by the protocol, not operator-tunable settings.
const (
	// MaxRecordTimeSkew is the maximum number of seconds a pricing record's
	// timestamp may run ahead of the block timestamp that carries it.
	MaxRecordTimeSkew uint64 = 120

	// AtomicUnits is the number of atomic units per whole coin. Pricing
	// record rate fields are denominated in atomic units.
	AtomicUnits uint64 = 1_000_000_000_000

	// AtomicUnitDigits is the decimal exponent of AtomicUnits, used when
	// scaling rates for display.
	AtomicUnitDigits int32 = 12
)

// Params holds the per-network parameter set.
type Params struct {
	// Name is the canonical network name.
	Name string

	// DefaultRPCPort is the default JSON-RPC listen port.
	DefaultRPCPort uint16

	// DefaultGRPCPort is the default admin gRPC listen port.
	DefaultGRPCPort uint16

	// GenesisTimestamp anchors the chain's first block time; pricing record
	// timestamps before it are nonsensical but are rejected by the
	// monotonicity rule rather than a separate check.
	GenesisTimestamp uint64
}

// MainNetParams returns the production network parameters.
func MainNetParams() Params {
	return Params{
		Name:             "mainnet",
		DefaultRPCPort:   18081,
		DefaultGRPCPort:  18084,
		GenesisTimestamp: 1614556800, // 2021-03-01 00:00:00 UTC
	}
}

// TestNetParams returns the public test network parameters.
func TestNetParams() Params {
	return Params{
		Name:             "testnet",
		DefaultRPCPort:   28081,
		DefaultGRPCPort:  28084,
		GenesisTimestamp: 1609459200, // 2021-01-01 00:00:00 UTC
	}
}

// StageNetParams returns the staging network parameters.
func StageNetParams() Params {
	return Params{
		Name:             "stagenet",
		DefaultRPCPort:   38081,
		DefaultGRPCPort:  38084,
		GenesisTimestamp: 1612137600, // 2021-02-01 00:00:00 UTC
	}
}

// NetworkParams returns the parameter set for n. Unknown networks fall back
// to mainnet parameters; callers are expected to have validated n.
func NetworkParams(n Network) Params {
	switch n {
	case TestNet:
		return TestNetParams()
	case StageNet:
		return StageNetParams()
	default:
		return MainNetParams()
	}
}
