package memfile

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildBlock() []byte {
	b := make([]byte, 0, 32)
	b = append(b, 0x7A)                                 // marker byte
	b = binary.LittleEndian.AppendUint64(b, 42)          // u64
	b = binary.LittleEndian.AppendUint32(b, 7)           // u32
	b = append(b, []byte("hi")...)                       // raw bytes
	return b
}

func TestCursorReadsSequentially(t *testing.T) {
	mf := OpenBytes(buildBlock())
	c, err := mf.NewCursor(0)
	require.NoError(t, err)

	marker, err := c.ReadU8()
	require.NoError(t, err)
	assert.Equal(t, uint8(0x7A), marker)

	v64, err := c.ReadU64()
	require.NoError(t, err)
	assert.Equal(t, uint64(42), v64)

	v32, err := c.ReadU32()
	require.NoError(t, err)
	assert.Equal(t, uint32(7), v32)

	raw, err := c.ReadBytes(2)
	require.NoError(t, err)
	assert.Equal(t, "hi", string(raw))
}

func TestCursorOutOfBounds(t *testing.T) {
	mf := OpenBytes(buildBlock())
	c, err := mf.NewCursor(0)
	require.NoError(t, err)

	err = c.Skip(int64(mf.Len()) + 1)
	assert.Error(t, err)

	_, err = c.ReadBytes(int64(mf.Len()) + 1)
	assert.Error(t, err)
}

func TestIndependentCursors(t *testing.T) {
	mf := OpenBytes(buildBlock())
	a, err := mf.NewCursor(0)
	require.NoError(t, err)
	b, err := mf.NewCursor(9)
	require.NoError(t, err)

	_, err = a.ReadU8()
	require.NoError(t, err)

	v, err := b.ReadU32()
	require.NoError(t, err)
	assert.Equal(t, uint32(7), v)
	assert.Equal(t, int64(1), a.Pos())
}

func TestCloneIsIndependent(t *testing.T) {
	mf := OpenBytes(buildBlock())
	c, err := mf.NewCursor(0)
	require.NoError(t, err)

	clone := c.Clone()
	_, err = clone.ReadU8()
	require.NoError(t, err)

	assert.Equal(t, int64(0), c.Pos())
	assert.Equal(t, int64(1), clone.Pos())
}
