package archive

import (
	"github.com/carbonarchive/carbon/internal/fieldtype"
	"github.com/carbonarchive/carbon/pkg/errors"
)

// CollectionIter is the outermost layer of the four-layer collection
// iterator chain (spec §4.5): it walks the column groups of one
// ObjectArrays property group, one per array-of-objects field.
type CollectionIter struct {
	archive  *Archive
	objectID uint64
	keys     []uint64
	offsets  []int64
	pos      int
}

func (a *Archive) openCollectionIter(offset int64, objectID uint64) (*CollectionIter, error) {
	c, err := a.cursorAt(offset)
	if err != nil {
		return nil, err
	}
	marker, err := c.ReadU8()
	if err != nil {
		return nil, err
	}
	if marker != MarkerObjectArray {
		return nil, errors.New(errors.CodeMarkerMismatch, "expected OBJECT_ARRAY marker")
	}
	count, err := c.ReadU32()
	if err != nil {
		return nil, err
	}
	keys := make([]uint64, count)
	offsets := make([]int64, count)
	for i := 0; i < int(count); i++ {
		k, err := c.ReadU64()
		if err != nil {
			return nil, err
		}
		off, err := c.ReadI64()
		if err != nil {
			return nil, err
		}
		keys[i] = k
		offsets[i] = off
	}
	return &CollectionIter{archive: a, objectID: objectID, keys: keys, offsets: offsets, pos: -1}, nil
}

// Len reports the number of column groups (array-of-objects fields) in this
// collection.
func (it *CollectionIter) Len() int { return len(it.keys) }

// Next advances to the next column group, returning its field key and a
// ColumnGroupIter over its columns. Returns ok=false once exhausted.
func (it *CollectionIter) Next() (key uint64, group *ColumnGroupIter, ok bool, err error) {
	it.pos++
	if it.pos >= len(it.keys) {
		return 0, nil, false, nil
	}
	g, err := it.archive.openColumnGroupIter(it.offsets[it.pos])
	if err != nil {
		return 0, nil, false, err
	}
	return it.keys[it.pos], g, true, nil
}

// ColumnGroupIter is the second layer: the group-local object ids and the
// columns decomposed from them.
type ColumnGroupIter struct {
	archive        *Archive
	ObjectIDs      []uint64
	columnOffsets  []int64
	pos            int
}

func (a *Archive) openColumnGroupIter(offset int64) (*ColumnGroupIter, error) {
	c, err := a.cursorAt(offset)
	if err != nil {
		return nil, err
	}
	marker, err := c.ReadU8()
	if err != nil {
		return nil, err
	}
	if marker != MarkerColumnGroup {
		return nil, errors.New(errors.CodeMarkerMismatch, "expected COLUMN_GROUP marker")
	}
	numObjects, err := c.ReadU32()
	if err != nil {
		return nil, err
	}
	objectIDs, err := c.ReadU64Slice(int(numObjects))
	if err != nil {
		return nil, err
	}
	numColumns, err := c.ReadU32()
	if err != nil {
		return nil, err
	}
	colOffsets := make([]int64, numColumns)
	for i := range colOffsets {
		off, err := c.ReadI64()
		if err != nil {
			return nil, err
		}
		colOffsets[i] = off
	}
	return &ColumnGroupIter{archive: a, ObjectIDs: objectIDs, columnOffsets: colOffsets, pos: -1}, nil
}

// NumObjects is the number of group-local object positions (spec §8
// invariant 6: every entry_position must stay under this).
func (g *ColumnGroupIter) NumObjects() int { return len(g.ObjectIDs) }

// Next advances to the next column.
func (g *ColumnGroupIter) Next() (*ColumnIter, bool, error) {
	g.pos++
	if g.pos >= len(g.columnOffsets) {
		return nil, false, nil
	}
	c, err := g.archive.openColumnIter(g.columnOffsets[g.pos])
	if err != nil {
		return nil, false, err
	}
	return c, true, nil
}

// ColumnIter is the third layer: one (nested-key, type) column's entries.
type ColumnIter struct {
	archive        *Archive
	NameKey        uint64
	Type           fieldtype.Type
	EntryPositions []uint32

	// EntryOffsets is spec.md:198's persisted entry_offsets table: for an
	// Object column, entry i's absolute sibling-chain head offset; for a
	// scalar column, entry i's byte offset of its {array_length,
	// array_bytes} chunk within the payload region. Invariant 6 (spec.md:228)
	// requires len(EntryOffsets) == len(EntryPositions).
	EntryOffsets []int64

	// scalar payload, reconstructed while walking the self-describing
	// payload chunks EntryOffsets locates
	lengths    []uint32
	elemWidth  int
	rawPayload []byte

	// object payload: alias of EntryOffsets, kept for ObjectAt's callers
	objectOffsets []int64
}

func (a *Archive) openColumnIter(offset int64) (*ColumnIter, error) {
	c, err := a.cursorAt(offset)
	if err != nil {
		return nil, err
	}
	marker, err := c.ReadU8()
	if err != nil {
		return nil, err
	}
	if marker != MarkerColumn {
		return nil, errors.New(errors.CodeMarkerMismatch, "expected COLUMN marker")
	}
	nameKey, err := c.ReadU64()
	if err != nil {
		return nil, err
	}
	typByte, err := c.ReadU8()
	if err != nil {
		return nil, err
	}
	t := fieldtype.Type(typByte)
	numEntries, err := c.ReadU32()
	if err != nil {
		return nil, err
	}

	offsets := make([]int64, numEntries)
	for i := range offsets {
		off, err := c.ReadI64()
		if err != nil {
			return nil, err
		}
		offsets[i] = off
	}
	positions, err := c.ReadU32Slice(int(numEntries))
	if err != nil {
		return nil, err
	}
	col := &ColumnIter{archive: a, NameKey: nameKey, Type: t, EntryPositions: positions, EntryOffsets: offsets}

	if t == fieldtype.Object {
		col.objectOffsets = offsets
		return col, nil
	}

	width, err := requireWidth(t)
	if err != nil {
		return nil, err
	}
	lengths := make([]uint32, numEntries)
	var rawPayload []byte
	for i := 0; i < int(numEntries); i++ {
		l, err := c.ReadU32()
		if err != nil {
			return nil, err
		}
		lengths[i] = l
		chunk, err := c.ReadBytes(int64(l) * int64(width))
		if err != nil {
			return nil, err
		}
		rawPayload = append(rawPayload, chunk...)
	}
	col.lengths = lengths
	col.elemWidth = width
	col.rawPayload = rawPayload
	return col, nil
}

// Len is the number of entries in this column.
func (c *ColumnIter) Len() int { return len(c.EntryPositions) }

// EntryAt decodes the scalar entry values at index i (fourth layer: the
// entry iterator is just this accessor, since every entry is already a
// fully-decoded slice once the column's bytes are parsed).
func (c *ColumnIter) EntryAt(i int) ([]any, error) {
	if c.Type == fieldtype.Object {
		return nil, errors.New(errors.CodeTypeMismatch, "column holds nested objects, not scalars")
	}
	if i < 0 || i >= len(c.lengths) {
		return nil, errors.New(errors.CodeOutOfBounds, "column entry index out of bounds")
	}
	start := 0
	for j := 0; j < i; j++ {
		start += int(c.lengths[j])
	}
	n := int(c.lengths[i])
	out := make([]any, n)
	for k := 0; k < n; k++ {
		off := (start + k) * c.elemWidth
		out[k] = decodeScalar(c.rawPayload[off:off+c.elemWidth], c.Type)
	}
	return out, nil
}

// ObjectAt opens the nested object chain rooted at entry i of an Object
// column, for the visitor to recurse into via the same prop-iterator
// mechanism.
func (c *ColumnIter) ObjectAt(i int) (*ObjectHeader, error) {
	if c.Type != fieldtype.Object {
		return nil, errors.New(errors.CodeTypeMismatch, "column does not hold nested objects")
	}
	if i < 0 || i >= len(c.objectOffsets) {
		return nil, errors.New(errors.CodeOutOfBounds, "column entry index out of bounds")
	}
	return c.archive.OpenObject(c.objectOffsets[i])
}
