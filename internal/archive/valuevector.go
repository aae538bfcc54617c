package archive

import (
	"github.com/carbonarchive/carbon/internal/fieldtype"
	"github.com/carbonarchive/carbon/pkg/errors"
)

// ValueVector is positioned at one property group's data region and answers
// the accessors of spec §4.4. Exactly one of the payload shapes below is
// populated, matching the group it was read from (invariant 2, §8).
type ValueVector struct {
	archive  *Archive
	objectID uint64
	keys     []uint64
	typ      fieldtype.Type
	isArray  bool

	values        []any   // primitive, non-object
	objectOffsets []int64 // primitive object group: offset of each nested object

	lengths    []uint32 // array group: element count per entry
	elemWidth  int
	rawPayload []byte // array group: concatenated little-endian elements

	nullCounts []uint32 // null-array group
}

func (v *ValueVector) Len() int            { return len(v.keys) }
func (v *ValueVector) ObjectID() uint64    { return v.objectID }
func (v *ValueVector) Keys() []uint64      { return v.keys }
func (v *ValueVector) BaseType() fieldtype.Type { return v.typ }
func (v *ValueVector) IsArray() bool       { return v.isArray }

// AsPrimitives returns the scalar values of a non-array, non-object group.
func (v *ValueVector) AsPrimitives() ([]any, error) {
	if v.isArray || v.typ == fieldtype.Object {
		return nil, errors.New(errors.CodeTypeMismatch, "group is not a scalar primitive group")
	}
	return v.values, nil
}

// ArrayLengths returns the per-entry element counts of an array group.
func (v *ValueVector) ArrayLengths() ([]uint32, error) {
	if !v.isArray {
		return nil, errors.New(errors.CodeTypeMismatch, "group is not an array group")
	}
	return v.lengths, nil
}

// ArrayAt returns the decoded element slice for entry i, computing its
// start offset by summing the preceding entries' lengths — O(i), matching
// spec §4.4's intentional non-materialization of the prefix sum.
func (v *ValueVector) ArrayAt(i int) ([]any, error) {
	if !v.isArray {
		return nil, errors.New(errors.CodeTypeMismatch, "group is not an array group")
	}
	if i < 0 || i >= len(v.lengths) {
		return nil, errors.New(errors.CodeOutOfBounds, "array entry index out of bounds")
	}
	start := 0
	for j := 0; j < i; j++ {
		start += int(v.lengths[j])
	}
	n := int(v.lengths[i])
	out := make([]any, n)
	for k := 0; k < n; k++ {
		off := (start + k) * v.elemWidth
		out[k] = decodeScalar(v.rawPayload[off:off+v.elemWidth], v.typ)
	}
	return out, nil
}

// NullArrayCounts returns the per-entry null counts of an array-of-null
// group.
func (v *ValueVector) NullArrayCounts() ([]uint32, error) {
	if v.typ != fieldtype.Null || !v.isArray {
		return nil, errors.New(errors.CodeTypeMismatch, "group is not an array-of-null group")
	}
	return v.nullCounts, nil
}

// ObjectAt reads and returns the nested object header for entry i of a
// primitive object group.
func (v *ValueVector) ObjectAt(i int) (*ObjectHeader, error) {
	if v.isArray || v.typ != fieldtype.Object {
		return nil, errors.New(errors.CodeTypeMismatch, "group is not a primitive object group")
	}
	if i < 0 || i >= len(v.objectOffsets) {
		return nil, errors.New(errors.CodeOutOfBounds, "object entry index out of bounds")
	}
	return v.archive.OpenObject(v.objectOffsets[i])
}

func (a *Archive) readPrimitiveGroup(offset int64, t fieldtype.Type) (*ValueVector, error) {
	c, err := a.cursorAt(offset)
	if err != nil {
		return nil, err
	}
	marker, err := c.ReadU8()
	if err != nil {
		return nil, err
	}
	if marker != MarkerPrimitive {
		return nil, errors.New(errors.CodeMarkerMismatch, "expected PRIMITIVE marker")
	}
	if _, err := c.ReadU8(); err != nil { // stored type byte, redundant with caller's t
		return nil, err
	}
	count, err := c.ReadU32()
	if err != nil {
		return nil, err
	}
	keys, err := c.ReadU64Slice(int(count))
	if err != nil {
		return nil, err
	}
	v := &ValueVector{keys: keys, typ: t, archive: a}

	if t == fieldtype.Object {
		offsets := make([]int64, count)
		for i := range offsets {
			off, err := c.ReadI64()
			if err != nil {
				return nil, err
			}
			offsets[i] = off
		}
		v.objectOffsets = offsets
		return v, nil
	}

	if t == fieldtype.Null {
		v.values = make([]any, count)
		return v, nil
	}

	width, err := requireWidth(t)
	if err != nil {
		return nil, err
	}
	values := make([]any, count)
	for i := range values {
		b, err := c.ReadBytes(int64(width))
		if err != nil {
			return nil, err
		}
		values[i] = decodeScalar(b, t)
	}
	v.values = values
	return v, nil
}

func (a *Archive) readArrayGroup(offset int64, t fieldtype.Type) (*ValueVector, error) {
	c, err := a.cursorAt(offset)
	if err != nil {
		return nil, err
	}
	marker, err := c.ReadU8()
	if err != nil {
		return nil, err
	}
	if marker != MarkerArray {
		return nil, errors.New(errors.CodeMarkerMismatch, "expected ARRAY marker")
	}
	if _, err := c.ReadU8(); err != nil {
		return nil, err
	}
	count, err := c.ReadU32()
	if err != nil {
		return nil, err
	}
	keys, err := c.ReadU64Slice(int(count))
	if err != nil {
		return nil, err
	}
	lengths, err := c.ReadU32Slice(int(count))
	if err != nil {
		return nil, err
	}
	width, err := requireWidth(t)
	if err != nil {
		return nil, err
	}
	total := 0
	for _, l := range lengths {
		total += int(l)
	}
	payload, err := c.ReadBytes(int64(total * width))
	if err != nil {
		return nil, err
	}
	return &ValueVector{
		archive: a, keys: keys, typ: t, isArray: true,
		lengths: lengths, elemWidth: width, rawPayload: payload,
	}, nil
}

func (a *Archive) readNullArrayGroup(offset int64) (*ValueVector, error) {
	c, err := a.cursorAt(offset)
	if err != nil {
		return nil, err
	}
	marker, err := c.ReadU8()
	if err != nil {
		return nil, err
	}
	if marker != MarkerNullArray {
		return nil, errors.New(errors.CodeMarkerMismatch, "expected NULL_ARRAY marker")
	}
	count, err := c.ReadU32()
	if err != nil {
		return nil, err
	}
	keys, err := c.ReadU64Slice(int(count))
	if err != nil {
		return nil, err
	}
	counts, err := c.ReadU32Slice(int(count))
	if err != nil {
		return nil, err
	}
	return &ValueVector{
		archive: a, keys: keys, typ: fieldtype.Null, isArray: true, nullCounts: counts,
	}, nil
}
