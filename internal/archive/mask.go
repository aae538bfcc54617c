package archive

import "github.com/carbonarchive/carbon/internal/fieldtype"

// Mask is a user-supplied visit mask: a bit for "primitives", a bit for
// "arrays", and one bit per primitive type (spec §4.3, §6). A group passes
// the mask iff its primitive-or-array bit is set and its type bit is set.
type Mask uint32

const (
	MaskPrimitives Mask = 1 << 0
	MaskArrays     Mask = 1 << 1

	maskTypeBase = 2

	MaskNull     Mask = 1 << (maskTypeBase + 0)
	MaskBool     Mask = 1 << (maskTypeBase + 1)
	MaskI8       Mask = 1 << (maskTypeBase + 2)
	MaskI16      Mask = 1 << (maskTypeBase + 3)
	MaskI32      Mask = 1 << (maskTypeBase + 4)
	MaskI64      Mask = 1 << (maskTypeBase + 5)
	MaskU8       Mask = 1 << (maskTypeBase + 6)
	MaskU16      Mask = 1 << (maskTypeBase + 7)
	MaskU32      Mask = 1 << (maskTypeBase + 8)
	MaskU64      Mask = 1 << (maskTypeBase + 9)
	MaskF32      Mask = 1 << (maskTypeBase + 10)
	MaskString   Mask = 1 << (maskTypeBase + 11)
	MaskObject   Mask = 1 << (maskTypeBase + 12)

	// MaskNumber is a convenience covering every numeric type bit.
	MaskNumber = MaskI8 | MaskI16 | MaskI32 | MaskI64 | MaskU8 | MaskU16 | MaskU32 | MaskU64 | MaskF32

	// MaskAny combines every modifier and type bit.
	MaskAny = MaskPrimitives | MaskArrays | MaskNull | MaskBool | MaskNumber | MaskString | MaskObject
)

var typeMaskBit = map[fieldtype.Type]Mask{
	fieldtype.Null:     MaskNull,
	fieldtype.Bool:     MaskBool,
	fieldtype.I8:       MaskI8,
	fieldtype.I16:      MaskI16,
	fieldtype.I32:      MaskI32,
	fieldtype.I64:      MaskI64,
	fieldtype.U8:       MaskU8,
	fieldtype.U16:      MaskU16,
	fieldtype.U32:      MaskU32,
	fieldtype.U64:      MaskU64,
	fieldtype.F32:      MaskF32,
	fieldtype.StringID: MaskString,
	fieldtype.Object:   MaskObject,
}

// Passes reports whether a group of the given type and array-ness is
// admitted by the mask (spec §4.3 transition rule, §8 invariant 4).
func (m Mask) Passes(t fieldtype.Type, isArray bool) bool {
	modifier := MaskPrimitives
	if isArray {
		modifier = MaskArrays
	}
	if m&modifier == 0 {
		return false
	}
	return m&typeMaskBit[t] != 0
}

// PassesObjectArrays reports whether the distinguished object-arrays group
// is admitted: it requires both the arrays and object bits.
func (m Mask) PassesObjectArrays() bool {
	return m&MaskArrays != 0 && m&MaskObject != 0
}
