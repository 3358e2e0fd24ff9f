package codec

import "encoding/binary"

// Serializer accumulates fixed-layout values into a byte sink.
type Serializer struct {
	sink []byte
}

// NewSerializer creates a Serializer with the given initial capacity.
func NewSerializer(capacity int) *Serializer {
	return &Serializer{sink: make([]byte, 0, capacity)}
}

// PutByte appends a single byte.
func (s *Serializer) PutByte(b byte) {
	s.sink = append(s.sink, b)
}

// PutBytes appends raw bytes.
func (s *Serializer) PutBytes(b []byte) {
	s.sink = append(s.sink, b...)
}

// PutUint32 appends a little-endian uint32.
func (s *Serializer) PutUint32(v uint32) {
	s.sink = binary.LittleEndian.AppendUint32(s.sink, v)
}

// PutUint64 appends a little-endian uint64.
func (s *Serializer) PutUint64(v uint64) {
	s.sink = binary.LittleEndian.AppendUint64(s.sink, v)
}

// Bytes returns the accumulated sink. The slice is owned by the Serializer
// until the caller stops writing.
func (s *Serializer) Bytes() []byte {
	return s.sink
}

// Len returns the number of bytes written so far.
func (s *Serializer) Len() int {
	return len(s.sink)
}
