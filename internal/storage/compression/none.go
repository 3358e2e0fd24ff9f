package compression

import "fmt"

// NoneName is the pass-through compressor name.
const NoneName = "none"

func init() {
	Register(noneCompressor{})
}

// noneCompressor copies data unchanged. It keeps the frame format uniform
// for dumps written without compression.
type noneCompressor struct{}

func (noneCompressor) Name() string { return NoneName }

func (noneCompressor) Compress(data []byte) ([]byte, error) {
	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

func (noneCompressor) Decompress(data []byte, uncompressedSize int) ([]byte, error) {
	if len(data) != uncompressedSize {
		return nil, fmt.Errorf("%w: have %d bytes, expected %d", ErrDecompressionFailed, len(data), uncompressedSize)
	}
	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}
