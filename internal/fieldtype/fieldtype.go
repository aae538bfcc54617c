// Package fieldtype enumerates the closed set of primitive column types used
// throughout the columnar intermediate model and the archive, and the null
// sentinel each numeric type reserves for "no value" inside a typed array.
package fieldtype

import (
	"fmt"
	"math"
)

// Type tags one of the 13 primitive value kinds a column can hold. A 14th
// "kind" — array-of-T — is not a distinct Type value; it is carried
// alongside a Type as a separate is-array flag wherever a group is described
// (see archive.GroupDescriptor).
type Type uint8

const (
	Null Type = iota
	Bool
	I8
	I16
	I32
	I64
	U8
	U16
	U32
	U64
	F32
	StringID
	Object
)

// numTypes is the count of distinct Type values, used to size per-type
// tables (mask bits, property-offset slots).
const numTypes = 13

func (t Type) String() string {
	switch t {
	case Null:
		return "null"
	case Bool:
		return "bool"
	case I8:
		return "i8"
	case I16:
		return "i16"
	case I32:
		return "i32"
	case I64:
		return "i64"
	case U8:
		return "u8"
	case U16:
		return "u16"
	case U32:
		return "u32"
	case U64:
		return "u64"
	case F32:
		return "f32"
	case StringID:
		return "string_id"
	case Object:
		return "object"
	default:
		return fmt.Sprintf("fieldtype(%d)", uint8(t))
	}
}

// ByteWidth returns the fixed on-disk width of one scalar of this type.
// Object has no fixed width (it is a nested offset chain) and returns 0.
func (t Type) ByteWidth() int {
	switch t {
	case Null:
		return 0
	case Bool, I8, U8:
		return 1
	case I16, U16:
		return 2
	case I32, U32, F32:
		return 4
	case I64, U64, StringID:
		return 8
	default:
		return 0
	}
}

// IsNumeric reports whether t participates in the widening lattice of §4.1.
func (t Type) IsNumeric() bool {
	switch t {
	case I8, I16, I32, I64, U8, U16, U32, U64, F32:
		return true
	default:
		return false
	}
}

// IsSigned reports whether t is one of the signed integer types.
func (t Type) IsSigned() bool {
	switch t {
	case I8, I16, I32, I64:
		return true
	default:
		return false
	}
}

// IsUnsigned reports whether t is one of the unsigned integer types.
func (t Type) IsUnsigned() bool {
	switch t {
	case U8, U16, U32, U64:
		return true
	default:
		return false
	}
}

// Null sentinels, per spec §6: the fixed bit pattern a typed array stores in
// place of a JSON null so array payloads never need an out-of-band bitmap.
const (
	NullI8       int8    = math.MinInt8
	NullI16      int16   = math.MinInt16
	NullI32      int32   = math.MinInt32
	NullI64      int64   = math.MinInt64
	NullU8       uint8   = math.MaxUint8
	NullU16      uint16  = math.MaxUint16
	NullU32      uint32  = math.MaxUint32
	NullU64      uint64  = math.MaxUint64
	NullBool     uint8   = 0xFF
	NullStringID uint64  = 0
)

// NullF32 is the float32 null sentinel. NaN never compares equal to itself,
// so callers must test with IsNullF32 rather than ==.
var NullF32 = float32(math.NaN())

// IsNullF32 reports whether v is the f32 null sentinel.
func IsNullF32(v float32) bool {
	return math.IsNaN(float64(v))
}
