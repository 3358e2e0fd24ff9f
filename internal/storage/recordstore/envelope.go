package recordstore

import (
	"fmt"

	"github.com/aurumchain/go-aurum/internal/codec"
	"github.com/aurumchain/go-aurum/internal/core/oracle"
)

// envelopeVersion tags the stored value layout so future format changes
// can coexist with old entries.
const envelopeVersion byte = 1

// maxAssetsPerEntry bounds the asset list so a corrupt count cannot force
// a huge allocation.
const maxAssetsPerEntry = 4096

// encodeEntry serializes an entry into its storage envelope. The height is
// not part of the envelope; the key carries it.
func encodeEntry(e *Entry) []byte {
	size := 1 + oracle.RecordBlobSize + oracle.SupplyDataBlobSize + 4 +
		len(e.Assets)*oracle.AssetDataBlobSize
	s := codec.NewSerializer(size)

	s.PutByte(envelopeVersion)
	s.PutBytes(e.Record.EncodeBlob())
	s.PutBytes(e.Supply.EncodeBlob())
	s.PutUint32(uint32(len(e.Assets)))
	for i := range e.Assets {
		s.PutBytes(e.Assets[i].EncodeBlob())
	}
	return s.Bytes()
}

// decodeEntry parses a storage envelope. The height is supplied by the
// caller from the key.
func decodeEntry(height uint64, value []byte) (*Entry, error) {
	p := codec.NewParser(value)

	version, err := p.ReadByte()
	if err != nil {
		return nil, fmt.Errorf("%w: empty envelope", ErrDataCorrupt)
	}
	if version != envelopeVersion {
		return nil, fmt.Errorf("%w: unsupported envelope version %d", ErrDataCorrupt, version)
	}

	e := &Entry{Height: height}
	if err := e.Record.DecodeBlob(p); err != nil {
		return nil, fmt.Errorf("%w: record: %v", ErrDataCorrupt, err)
	}
	if err := e.Supply.DecodeBlob(p); err != nil {
		return nil, fmt.Errorf("%w: supply: %v", ErrDataCorrupt, err)
	}

	count, err := p.ReadUint32()
	if err != nil {
		return nil, fmt.Errorf("%w: asset count: %v", ErrDataCorrupt, err)
	}
	if count > maxAssetsPerEntry {
		return nil, fmt.Errorf("%w: asset count %d exceeds limit", ErrDataCorrupt, count)
	}
	if count > 0 {
		e.Assets = make([]oracle.AssetData, count)
		for i := range e.Assets {
			if err := e.Assets[i].DecodeBlob(p); err != nil {
				return nil, fmt.Errorf("%w: asset %d: %v", ErrDataCorrupt, i, err)
			}
		}
	}

	if p.HasMore() {
		return nil, fmt.Errorf("%w: %d trailing bytes", ErrDataCorrupt, p.Remaining())
	}
	return e, nil
}
