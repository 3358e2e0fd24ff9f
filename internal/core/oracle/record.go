// Package oracle implements the pricing record embedded in Aurum blocks: the
// fixed-layout value types, their wire codec, the canonical signature
// pre-image, and the block-level acceptance rules.
//
// A pricing record is an oracle-signed snapshot of the tracked asset's spot
// price and moving average. Every byte-level and ordering decision in this
// package is consensus-critical: two nodes that disagree on any of them will
// fork.
package oracle

// SignatureSize is the size of the raw oracle signature carried by a record.
const SignatureSize = 64

// PricingRecord is the oracle price snapshot for one block. The zero value is
// the "empty" sentinel meaning no quote was attached. Fixed layout, no
// internal pointers; plain value copies are full copies.
type PricingRecord struct {
	// Version is the record schema/policy version tag, compared against
	// hard-fork thresholds by the caller.
	Version uint64

	// Spot is the fixed-point spot price in atomic units. 0 means absent.
	Spot uint64

	// MovingAverage is the fixed-point smoothed price. 0 means absent.
	MovingAverage uint64

	// Timestamp is the oracle-asserted unix time the quote was produced.
	Timestamp uint64

	// Signature holds the raw signature bytes over the canonical message.
	Signature [SignatureSize]byte
}

// Equal reports whether r and other match exactly: all four numeric fields
// and all 64 signature bytes. Never approximate.
func (r *PricingRecord) Equal(other *PricingRecord) bool {
	return r.Version == other.Version &&
		r.Spot == other.Spot &&
		r.MovingAverage == other.MovingAverage &&
		r.Timestamp == other.Timestamp &&
		r.Signature == other.Signature
}

// Empty reports whether r is the all-zero sentinel.
func (r *PricingRecord) Empty() bool {
	var zero PricingRecord
	return r.Equal(&zero)
}

// HasMissingRates reports whether either rate field is absent. A non-empty
// record must carry both rates to be acceptable.
func (r *PricingRecord) HasMissingRates() bool {
	return r.Spot == 0 || r.MovingAverage == 0
}

// SupplyData is the per-block tally of minted and burnt amounts on both sides
// of the conversion mechanism. The record core does not interpret these
// fields; it only round-trips them faithfully.
type SupplyData struct {
	CoinBurnt   uint64
	CoinMinted  uint64
	AssetBurnt  uint64
	AssetMinted uint64
}

// Equal reports exact field equality.
func (s *SupplyData) Equal(other *SupplyData) bool {
	return *s == *other
}

// Empty reports whether s is the zero value.
func (s *SupplyData) Empty() bool {
	return *s == SupplyData{}
}

// AssetData carries the per-asset rate pair for chains tracking more than one
// asset. Opaque to the record core beyond faithful round-trip.
type AssetData struct {
	AssetID       uint64
	Spot          uint64
	MovingAverage uint64
}

// Equal reports exact field equality.
func (a *AssetData) Equal(other *AssetData) bool {
	return *a == *other
}

// Empty reports whether a is the zero value.
func (a *AssetData) Empty() bool {
	return *a == AssetData{}
}
