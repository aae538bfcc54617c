package archive

import (
	"github.com/carbonarchive/carbon/internal/memfile"
	"github.com/carbonarchive/carbon/pkg/errors"
)

// Archive wraps a memory-mapped archive file: a fixed magic header, an
// 8-byte pointer to the root directory, the record table (the object
// graph), and a trailing root directory listing every sibling chain's head
// object (spec §6: "the record table is a sequence of objects").
type Archive struct {
	mf *memfile.MemFile
}

// headerSize is the fixed prefix: the magic bytes plus the 8-byte
// directory-offset pointer.
const headerSize = int64(len(Magic)) + 8

// Open memory-maps the archive file at path and validates its magic
// header.
func Open(path string) (*Archive, error) {
	mf, err := memfile.Open(path)
	if err != nil {
		return nil, err
	}
	a := &Archive{mf: mf}
	if err := a.validateMagic(); err != nil {
		mf.Close()
		return nil, err
	}
	return a, nil
}

// OpenBytes wraps an in-memory archive byte block, as produced by Writer or
// by a test fixture.
func OpenBytes(data []byte) (*Archive, error) {
	a := &Archive{mf: memfile.OpenBytes(data)}
	if err := a.validateMagic(); err != nil {
		return nil, err
	}
	return a, nil
}

func (a *Archive) validateMagic() error {
	if a.mf.Len() < headerSize {
		return errors.New(errors.CodeCorruptedHeader, "archive shorter than magic header")
	}
	got := a.mf.Bytes()[:len(Magic)]
	for i, b := range Magic {
		if got[i] != b {
			return errors.New(errors.CodeCorruptedHeader, "magic header mismatch")
		}
	}
	return nil
}

// Close releases the underlying memory mapping.
func (a *Archive) Close() error {
	return a.mf.Close()
}

// Roots reads the trailing root directory and returns the record-table
// offset of each root object's header, in document order.
func (a *Archive) Roots() ([]int64, error) {
	c, err := a.cursorAt(int64(len(Magic)))
	if err != nil {
		return nil, err
	}
	dirOff, err := c.ReadU64()
	if err != nil {
		return nil, err
	}
	dc, err := a.cursorAt(int64(dirOff))
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeCorruptedHeader, "seek to root directory")
	}
	count, err := dc.ReadU32()
	if err != nil {
		return nil, err
	}
	offsets := make([]int64, count)
	for i := range offsets {
		v, err := dc.ReadI64()
		if err != nil {
			return nil, err
		}
		offsets[i] = v
	}
	return offsets, nil
}

// ObjectHeader is one archive object's fixed-layout header: object id,
// flags, sibling link, and the 26-slot property-offset table (spec §3).
type ObjectHeader struct {
	Offset     int64
	ObjectID   uint64
	Flags      uint32
	NextObjOff int64
	Slots      [numSlots]int64
}

// IsReadOptimized reports whether this object's properties are stored
// sorted (spec §4.1 sort discipline).
func (h *ObjectHeader) IsReadOptimized() bool {
	return h.Flags&FlagReadOptimized != 0
}

// OpenObject reads the object header at offset, validating its marker
// byte.
func (a *Archive) OpenObject(offset int64) (*ObjectHeader, error) {
	c, err := a.mf.NewCursor(offset)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeMemfileSeekFailed, "seek to object header")
	}
	marker, err := c.ReadU8()
	if err != nil {
		return nil, err
	}
	if marker != MarkerObjectBegin {
		return nil, errors.New(errors.CodeMarkerMismatch, "expected OBJECT_BEGIN marker")
	}
	oid, err := c.ReadU64()
	if err != nil {
		return nil, err
	}
	flags, err := c.ReadU32()
	if err != nil {
		return nil, err
	}
	nextObjOff, err := c.ReadI64()
	if err != nil {
		return nil, err
	}
	h := &ObjectHeader{Offset: offset, ObjectID: oid, Flags: flags, NextObjOff: nextObjOff}
	for i := 0; i < numSlots; i++ {
		v, err := c.ReadI64()
		if err != nil {
			return nil, err
		}
		h.Slots[i] = v
	}
	return h, nil
}

// objectHeaderSize is the fixed byte length of one object header,
// including its property-offset table but excluding property group
// payloads.
const objectHeaderSize = 1 + 8 + 4 + 8 + numSlots*8

// cursorAt returns a fresh cursor positioned at offset.
func (a *Archive) cursorAt(offset int64) (*memfile.Cursor, error) {
	return a.mf.NewCursor(offset)
}
