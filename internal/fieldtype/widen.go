package fieldtype

import "github.com/carbonarchive/carbon/pkg/errors"

// signedRank and unsignedRank give each integer family's widening order,
// per the lattice in spec §9: i8<i16<i32<i64, u8<u16<u32<u64, with f32
// absorbing any integer. Declarative by rank, not by an if/else chain, so
// the lattice is the single source of truth for Widen and Infer.
var signedRank = map[Type]int{I8: 0, I16: 1, I32: 2, I64: 3}
var unsignedRank = map[Type]int{U8: 0, U16: 1, U32: 2, U64: 3}

// Widen returns the smallest type in the lattice that admits both a and b.
// Signed and unsigned families never merge; f32 absorbs either family.
func Widen(a, b Type) (Type, error) {
	if a == b {
		return a, nil
	}
	if a == F32 || b == F32 {
		if (a.IsSigned() || a.IsUnsigned() || a == F32) && (b.IsSigned() || b.IsUnsigned() || b == F32) {
			return F32, nil
		}
		return 0, errors.New(errors.CodeMixedArrayTypes, "cannot widen "+a.String()+" and "+b.String())
	}
	if ra, ok := signedRank[a]; ok {
		if rb, ok := signedRank[b]; ok {
			if rb > ra {
				return b, nil
			}
			return a, nil
		}
		return 0, errors.New(errors.CodeMixedArrayTypes, "cannot widen "+a.String()+" and "+b.String())
	}
	if ra, ok := unsignedRank[a]; ok {
		if rb, ok := unsignedRank[b]; ok {
			if rb > ra {
				return b, nil
			}
			return a, nil
		}
		return 0, errors.New(errors.CodeMixedArrayTypes, "cannot widen "+a.String()+" and "+b.String())
	}
	return 0, errors.New(errors.CodeMixedArrayTypes, "cannot widen "+a.String()+" and "+b.String())
}

// InferArrayType picks the single CIM column type for a JSON array of
// scalar element type tags, per spec §4.1. Leading JSON nulls (represented
// here by the caller omitting them from elems) are skipped by construction;
// callers should filter them out before calling Infer and push the
// remaining non-null element types in source order.
func InferArrayType(elems []Type) (Type, error) {
	if len(elems) == 0 {
		return Null, nil
	}
	result := elems[0]
	if !result.IsNumeric() && result != StringID && result != Bool && result != Object {
		return 0, errors.New(errors.CodeNoType, "unsupported element type "+result.String())
	}
	for _, t := range elems[1:] {
		if t == result {
			continue
		}
		if !result.IsNumeric() || !t.IsNumeric() {
			return 0, errors.New(errors.CodeMixedArrayTypes, "mixed array element types "+result.String()+" and "+t.String())
		}
		widened, err := Widen(result, t)
		if err != nil {
			return 0, err
		}
		result = widened
	}
	return result, nil
}
