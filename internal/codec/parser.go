// Package codec provides the low-level binary reader and writer used by the
// fixed-layout wire formats. All multi-byte integers are little-endian.
package codec

import (
	"encoding/binary"
	"errors"
)

var (
	// ErrUnexpectedEOF is returned when a read runs past the end of the input.
	ErrUnexpectedEOF = errors.New("unexpected end of input")
	// ErrInvalidLength is returned when a read is requested with a negative length.
	ErrInvalidLength = errors.New("invalid read length")
)

// Parser reads fixed-layout values from a byte slice. It never reads past the
// end of the input: callers can probe Remaining before decoding a fixed-size
// structure so that a short buffer fails before any field is consumed.
type Parser struct {
	data []byte
	pos  int
}

// NewParser creates a Parser over data. The slice is not copied.
func NewParser(data []byte) *Parser {
	return &Parser{data: data}
}

// ReadByte reads a single byte.
func (p *Parser) ReadByte() (byte, error) {
	if p.pos >= len(p.data) {
		return 0, ErrUnexpectedEOF
	}
	b := p.data[p.pos]
	p.pos++
	return b, nil
}

// Peek returns the next byte without consuming it.
func (p *Parser) Peek() (byte, error) {
	if p.pos >= len(p.data) {
		return 0, ErrUnexpectedEOF
	}
	return p.data[p.pos], nil
}

// ReadBytes reads exactly n bytes. The returned slice aliases the input.
func (p *Parser) ReadBytes(n int) ([]byte, error) {
	if n < 0 {
		return nil, ErrInvalidLength
	}
	if p.pos+n > len(p.data) {
		return nil, ErrUnexpectedEOF
	}
	b := p.data[p.pos : p.pos+n]
	p.pos += n
	return b, nil
}

// ReadUint32 reads a little-endian uint32.
func (p *Parser) ReadUint32() (uint32, error) {
	b, err := p.ReadBytes(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

// ReadUint64 reads a little-endian uint64.
func (p *Parser) ReadUint64() (uint64, error) {
	b, err := p.ReadBytes(8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b), nil
}

// Remaining returns the number of unread bytes.
func (p *Parser) Remaining() int {
	return len(p.data) - p.pos
}

// HasMore reports whether any unread bytes remain.
func (p *Parser) HasMore() bool {
	return p.pos < len(p.data)
}

// Pos returns the current read offset.
func (p *Parser) Pos() int {
	return p.pos
}
