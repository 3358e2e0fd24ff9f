package codec

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParserReadByte(t *testing.T) {
	p := NewParser([]byte{0x01, 0x02})

	b, err := p.ReadByte()
	require.NoError(t, err)
	require.Equal(t, byte(0x01), b)

	b, err = p.ReadByte()
	require.NoError(t, err)
	require.Equal(t, byte(0x02), b)

	_, err = p.ReadByte()
	require.ErrorIs(t, err, ErrUnexpectedEOF)
}

func TestParserPeek(t *testing.T) {
	p := NewParser([]byte{0xAB})

	b, err := p.Peek()
	require.NoError(t, err)
	require.Equal(t, byte(0xAB), b)
	require.Equal(t, 1, p.Remaining(), "peek must not consume")

	_, err = p.ReadByte()
	require.NoError(t, err)
	_, err = p.Peek()
	require.ErrorIs(t, err, ErrUnexpectedEOF)
}

func TestParserReadBytes(t *testing.T) {
	t.Run("exact", func(t *testing.T) {
		p := NewParser([]byte{1, 2, 3, 4})
		b, err := p.ReadBytes(4)
		require.NoError(t, err)
		require.Equal(t, []byte{1, 2, 3, 4}, b)
		require.False(t, p.HasMore())
	})

	t.Run("short buffer", func(t *testing.T) {
		p := NewParser([]byte{1, 2, 3})
		_, err := p.ReadBytes(4)
		require.ErrorIs(t, err, ErrUnexpectedEOF)
		require.Equal(t, 3, p.Remaining(), "failed read must not consume")
	})

	t.Run("negative length", func(t *testing.T) {
		p := NewParser([]byte{1})
		_, err := p.ReadBytes(-1)
		require.ErrorIs(t, err, ErrInvalidLength)
	})

	t.Run("zero length", func(t *testing.T) {
		p := NewParser(nil)
		b, err := p.ReadBytes(0)
		require.NoError(t, err)
		require.Empty(t, b)
	})
}

func TestParserLittleEndian(t *testing.T) {
	p := NewParser([]byte{
		0x78, 0x56, 0x34, 0x12,
		0xEF, 0xCD, 0xAB, 0x89, 0x67, 0x45, 0x23, 0x01,
	})

	v32, err := p.ReadUint32()
	require.NoError(t, err)
	require.Equal(t, uint32(0x12345678), v32)

	v64, err := p.ReadUint64()
	require.NoError(t, err)
	require.Equal(t, uint64(0x0123456789ABCDEF), v64)

	require.False(t, p.HasMore())
	require.Equal(t, 12, p.Pos())
}

func TestSerializerRoundTrip(t *testing.T) {
	s := NewSerializer(16)
	s.PutByte(0x7F)
	s.PutUint32(0xDEADBEEF)
	s.PutUint64(0x0102030405060708)
	s.PutBytes([]byte{0xAA, 0xBB})

	require.Equal(t, 15, s.Len())

	p := NewParser(s.Bytes())

	b, err := p.ReadByte()
	require.NoError(t, err)
	require.Equal(t, byte(0x7F), b)

	v32, err := p.ReadUint32()
	require.NoError(t, err)
	require.Equal(t, uint32(0xDEADBEEF), v32)

	v64, err := p.ReadUint64()
	require.NoError(t, err)
	require.Equal(t, uint64(0x0102030405060708), v64)

	tail, err := p.ReadBytes(2)
	require.NoError(t, err)
	require.Equal(t, []byte{0xAA, 0xBB}, tail)
	require.False(t, p.HasMore())
}
