package memfile

import (
	"encoding/binary"
	"math"

	"github.com/carbonarchive/carbon/pkg/errors"
)

// Cursor is a positioned reader over a borrowed, immutable byte block.
// All integers on the wire are fixed-width little-endian (spec §6). A
// Cursor is cheap to copy and is the unit of "iterator state" the rest of
// the package builds on: each property-iterator or collection-iterator
// layer carries its own Cursor rather than sharing position with siblings.
type Cursor struct {
	block []byte
	pos   int64
}

// Pos returns the current read position.
func (c *Cursor) Pos() int64 { return c.pos }

// Clone returns an independent copy of the cursor at the same position,
// borrowing the same block.
func (c *Cursor) Clone() *Cursor {
	return &Cursor{block: c.block, pos: c.pos}
}

// Seek repositions the cursor to an absolute offset.
func (c *Cursor) Seek(offset int64) error {
	if offset < 0 || offset > int64(len(c.block)) {
		return errors.New(errors.CodeMemfileSeekFailed, "seek out of bounds")
	}
	c.pos = offset
	return nil
}

// Skip advances the cursor by n bytes relative to its current position.
func (c *Cursor) Skip(n int64) error {
	next := c.pos + n
	if next < 0 || next > int64(len(c.block)) {
		return errors.New(errors.CodeMemfileSkipFailed, "skip out of bounds")
	}
	c.pos = next
	return nil
}

func (c *Cursor) require(n int64) error {
	if c.pos+n > int64(len(c.block)) {
		return errors.New(errors.CodeMemfileSeekFailed, "read past end of block")
	}
	return nil
}

// ReadBytes returns a zero-copy slice of n bytes at the current position
// and advances the cursor.
func (c *Cursor) ReadBytes(n int64) ([]byte, error) {
	if err := c.require(n); err != nil {
		return nil, err
	}
	b := c.block[c.pos : c.pos+n]
	c.pos += n
	return b, nil
}

// PeekBytes returns a zero-copy slice at offset without moving the cursor.
func (c *Cursor) PeekBytes(offset, n int64) ([]byte, error) {
	if offset < 0 || offset+n > int64(len(c.block)) {
		return nil, errors.New(errors.CodeMemfileSeekFailed, "peek out of bounds")
	}
	return c.block[offset : offset+n], nil
}

func (c *Cursor) ReadU8() (uint8, error) {
	b, err := c.ReadBytes(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (c *Cursor) ReadI8() (int8, error) {
	v, err := c.ReadU8()
	return int8(v), err
}

func (c *Cursor) ReadBool() (bool, error) {
	v, err := c.ReadU8()
	return v != 0, err
}

func (c *Cursor) ReadU16() (uint16, error) {
	b, err := c.ReadBytes(2)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b), nil
}

func (c *Cursor) ReadI16() (int16, error) {
	v, err := c.ReadU16()
	return int16(v), err
}

func (c *Cursor) ReadU32() (uint32, error) {
	b, err := c.ReadBytes(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

func (c *Cursor) ReadI32() (int32, error) {
	v, err := c.ReadU32()
	return int32(v), err
}

func (c *Cursor) ReadF32() (float32, error) {
	v, err := c.ReadU32()
	if err != nil {
		return 0, err
	}
	return math.Float32frombits(v), nil
}

func (c *Cursor) ReadU64() (uint64, error) {
	b, err := c.ReadBytes(8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b), nil
}

func (c *Cursor) ReadI64() (int64, error) {
	v, err := c.ReadU64()
	return int64(v), err
}

// ReadU64Slice reads n consecutive u64 values without materializing an
// intermediate byte copy beyond the returned slice.
func (c *Cursor) ReadU64Slice(n int) ([]uint64, error) {
	out := make([]uint64, n)
	for i := 0; i < n; i++ {
		v, err := c.ReadU64()
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// ReadU32Slice reads n consecutive u32 values.
func (c *Cursor) ReadU32Slice(n int) ([]uint32, error) {
	out := make([]uint32, n)
	for i := 0; i < n; i++ {
		v, err := c.ReadU32()
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}
