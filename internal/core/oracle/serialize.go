package oracle

import (
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/aurumchain/go-aurum/internal/codec"
)

// Blob sizes of the fixed wire layouts. Decoding demands at least this many
// bytes remaining; encoding writes exactly this many, independent of field
// values.
const (
	// RecordBlobSize is four little-endian uint64 fields followed by the
	// 64-byte signature.
	RecordBlobSize = 4*8 + SignatureSize

	// SupplyDataBlobSize is four little-endian uint64 fields.
	SupplyDataBlobSize = 4 * 8

	// AssetDataBlobSize is three little-endian uint64 fields.
	AssetDataBlobSize = 3 * 8
)

// SignatureHexLen is the length of the lowercase-hex signature form used at
// API boundaries.
const SignatureHexLen = SignatureSize * 2

var (
	// ErrShortBuffer is returned when a decode finds fewer bytes remaining
	// than the structure's fixed size. Nothing is consumed on failure.
	ErrShortBuffer = errors.New("buffer too short for pricing record blob")

	// ErrBadSignatureHex is returned for a signature hex string that is not
	// exactly 128 hex characters. Decoding is case-insensitive.
	ErrBadSignatureHex = errors.New("malformed signature hex")
)

// EncodeBlob writes the wire form of r: version, spot, moving average and
// timestamp as little-endian uint64 in that order, then the raw signature.
func (r *PricingRecord) EncodeBlob() []byte {
	s := codec.NewSerializer(RecordBlobSize)
	s.PutUint64(r.Version)
	s.PutUint64(r.Spot)
	s.PutUint64(r.MovingAverage)
	s.PutUint64(r.Timestamp)
	s.PutBytes(r.Signature[:])
	return s.Bytes()
}

// DecodeBlob reads the wire form of a record from p. The parser must have at
// least RecordBlobSize bytes remaining; otherwise the record is untouched and
// ErrShortBuffer is returned. No partial object is ever produced.
func (r *PricingRecord) DecodeBlob(p *codec.Parser) error {
	if p.Remaining() < RecordBlobSize {
		return fmt.Errorf("%w: have %d, need %d", ErrShortBuffer, p.Remaining(), RecordBlobSize)
	}

	var dec PricingRecord
	dec.Version, _ = p.ReadUint64()
	dec.Spot, _ = p.ReadUint64()
	dec.MovingAverage, _ = p.ReadUint64()
	dec.Timestamp, _ = p.ReadUint64()
	sig, _ := p.ReadBytes(SignatureSize)
	copy(dec.Signature[:], sig)

	*r = dec
	return nil
}

// DecodeRecordBlob decodes a record from raw bytes, requiring data to hold a
// full blob.
func DecodeRecordBlob(data []byte) (PricingRecord, error) {
	var r PricingRecord
	err := r.DecodeBlob(codec.NewParser(data))
	return r, err
}

// EncodeBlob writes the supply tallies as four little-endian uint64 fields.
func (s *SupplyData) EncodeBlob() []byte {
	w := codec.NewSerializer(SupplyDataBlobSize)
	w.PutUint64(s.CoinBurnt)
	w.PutUint64(s.CoinMinted)
	w.PutUint64(s.AssetBurnt)
	w.PutUint64(s.AssetMinted)
	return w.Bytes()
}

// DecodeBlob reads the supply tallies, demanding a full blob remaining.
func (s *SupplyData) DecodeBlob(p *codec.Parser) error {
	if p.Remaining() < SupplyDataBlobSize {
		return fmt.Errorf("%w: have %d, need %d", ErrShortBuffer, p.Remaining(), SupplyDataBlobSize)
	}

	var dec SupplyData
	dec.CoinBurnt, _ = p.ReadUint64()
	dec.CoinMinted, _ = p.ReadUint64()
	dec.AssetBurnt, _ = p.ReadUint64()
	dec.AssetMinted, _ = p.ReadUint64()

	*s = dec
	return nil
}

// DecodeSupplyBlob decodes supply tallies from raw bytes, requiring data to
// hold a full blob.
func DecodeSupplyBlob(data []byte) (SupplyData, error) {
	var s SupplyData
	err := s.DecodeBlob(codec.NewParser(data))
	return s, err
}

// EncodeBlob writes the asset rate triple as three little-endian uint64 fields.
func (a *AssetData) EncodeBlob() []byte {
	w := codec.NewSerializer(AssetDataBlobSize)
	w.PutUint64(a.AssetID)
	w.PutUint64(a.Spot)
	w.PutUint64(a.MovingAverage)
	return w.Bytes()
}

// DecodeBlob reads the asset rate triple, demanding a full blob remaining.
func (a *AssetData) DecodeBlob(p *codec.Parser) error {
	if p.Remaining() < AssetDataBlobSize {
		return fmt.Errorf("%w: have %d, need %d", ErrShortBuffer, p.Remaining(), AssetDataBlobSize)
	}

	var dec AssetData
	dec.AssetID, _ = p.ReadUint64()
	dec.Spot, _ = p.ReadUint64()
	dec.MovingAverage, _ = p.ReadUint64()

	*a = dec
	return nil
}

// DecodeAssetBlob decodes an asset rate triple from raw bytes, requiring
// data to hold a full blob.
func DecodeAssetBlob(data []byte) (AssetData, error) {
	var a AssetData
	err := a.DecodeBlob(codec.NewParser(data))
	return a, err
}

// SignatureHex returns the lowercase hex form of the signature, 128
// characters, each byte zero-padded to two digits.
func (r *PricingRecord) SignatureHex() string {
	return hex.EncodeToString(r.Signature[:])
}

// ParseSignatureHex decodes a 128-character hex signature. Odd-length,
// wrong-length and non-hex input is rejected outright; consensus data never
// passes through a lossy parser.
func ParseSignatureHex(s string) ([SignatureSize]byte, error) {
	var sig [SignatureSize]byte
	if len(s) != SignatureHexLen {
		return sig, fmt.Errorf("%w: length %d, want %d", ErrBadSignatureHex, len(s), SignatureHexLen)
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return sig, fmt.Errorf("%w: %v", ErrBadSignatureHex, err)
	}
	copy(sig[:], b)
	return sig, nil
}

// APIForm is the ordered key/value representation exchanged with external
// callers (RPC, status reporting). Field order matches the canonical message
// order; the signature travels as lowercase hex.
type APIForm struct {
	Version       uint64 `json:"pr_version"`
	Spot          uint64 `json:"spot"`
	MovingAverage uint64 `json:"moving_average"`
	Timestamp     uint64 `json:"timestamp"`
	Signature     string `json:"signature"`
}

// ToAPI converts r to its API form.
func (r *PricingRecord) ToAPI() APIForm {
	return APIForm{
		Version:       r.Version,
		Spot:          r.Spot,
		MovingAverage: r.MovingAverage,
		Timestamp:     r.Timestamp,
		Signature:     r.SignatureHex(),
	}
}

// FromAPI rebuilds a record from its API form, rejecting malformed signature
// hex. An empty signature string maps to the all-zero signature so that empty
// records round-trip through the API form.
func FromAPI(f APIForm) (PricingRecord, error) {
	r := PricingRecord{
		Version:       f.Version,
		Spot:          f.Spot,
		MovingAverage: f.MovingAverage,
		Timestamp:     f.Timestamp,
	}
	if f.Signature == "" {
		return r, nil
	}
	sig, err := ParseSignatureHex(f.Signature)
	if err != nil {
		return PricingRecord{}, err
	}
	r.Signature = sig
	return r, nil
}
