package compression

import (
	"fmt"

	"github.com/pierrec/lz4"
)

// LZ4Name is the lz4 block compressor name.
const LZ4Name = "lz4"

func init() {
	Register(lz4Compressor{})
}

// lz4Compressor encodes blocks with lz4. Record dumps of similar entries
// compress well; incompressible blocks are reported so callers store them
// raw.
type lz4Compressor struct{}

func (lz4Compressor) Name() string { return LZ4Name }

func (lz4Compressor) Compress(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, ErrIncompressible
	}

	buf := make([]byte, lz4.CompressBlockBound(len(data)))
	n, err := lz4.CompressBlock(data, buf, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCompressionFailed, err)
	}
	if n == 0 || n >= len(data) {
		return nil, ErrIncompressible
	}
	return buf[:n], nil
}

func (lz4Compressor) Decompress(data []byte, uncompressedSize int) ([]byte, error) {
	if uncompressedSize <= 0 {
		return nil, fmt.Errorf("%w: invalid uncompressed size %d", ErrDecompressionFailed, uncompressedSize)
	}

	buf := make([]byte, uncompressedSize)
	n, err := lz4.UncompressBlock(data, buf)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecompressionFailed, err)
	}
	if n != uncompressedSize {
		return nil, fmt.Errorf("%w: decoded %d bytes, expected %d", ErrDecompressionFailed, n, uncompressedSize)
	}
	return buf, nil
}
