// Package compression provides the block compressors used by record dump
// and snapshot files. Frames store their uncompressed size, so Decompress
// takes the exact output size instead of guessing buffers.
package compression

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

var (
	// ErrUnsupportedCompressor is returned when looking up a compressor
	// that is not registered.
	ErrUnsupportedCompressor = errors.New("unsupported compressor")

	// ErrCompressionFailed is returned when a compressor cannot encode
	// its input.
	ErrCompressionFailed = errors.New("compression failed")

	// ErrDecompressionFailed is returned when compressed data cannot be
	// decoded to the expected size.
	ErrDecompressionFailed = errors.New("decompression failed")

	// ErrIncompressible is returned by Compress when the output would not
	// be smaller than the input. Callers store such data raw.
	ErrIncompressible = errors.New("data is incompressible")
)

// Compressor encodes and decodes opaque blocks.
type Compressor interface {
	// Name returns the registered compressor name.
	Name() string

	// Compress encodes data. Returns ErrIncompressible when encoding
	// would not shrink the input.
	Compress(data []byte) ([]byte, error)

	// Decompress decodes data into exactly uncompressedSize bytes.
	Decompress(data []byte, uncompressedSize int) ([]byte, error)
}

var (
	compressorMu sync.RWMutex
	compressors  = make(map[string]Compressor)
)

// Register makes a compressor available under its name. Duplicate
// registration panics; compressors register from init.
func Register(c Compressor) {
	compressorMu.Lock()
	defer compressorMu.Unlock()

	if c == nil {
		panic("compression: nil compressor")
	}
	if _, dup := compressors[c.Name()]; dup {
		panic("compression: duplicate compressor registration for " + c.Name())
	}
	compressors[c.Name()] = c
}

// Get returns the compressor registered under name.
func Get(name string) (Compressor, error) {
	compressorMu.RLock()
	defer compressorMu.RUnlock()

	c, ok := compressors[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedCompressor, name)
	}
	return c, nil
}

// Available returns the registered compressor names, sorted.
func Available() []string {
	compressorMu.RLock()
	defer compressorMu.RUnlock()

	names := make([]string, 0, len(compressors))
	for name := range compressors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// IsAvailable reports whether a compressor is registered under name.
func IsAvailable(name string) bool {
	compressorMu.RLock()
	defer compressorMu.RUnlock()

	_, ok := compressors[name]
	return ok
}
