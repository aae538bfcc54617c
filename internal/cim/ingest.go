package cim

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"

	"github.com/carbonarchive/carbon/internal/fieldtype"
	"github.com/carbonarchive/carbon/pkg/errors"
)

// IngestJSON parses a JSON document and ingests every top-level object into
// a chain of sibling Nodes (spec §3: "next object offset forms a singly
// linked list of siblings"). The root must be a JSON object or an array of
// JSON objects; anything else is JsonTypeUnsupportedAtRoot.
func (b *Builder) IngestJSON(data []byte) ([]*Node, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw any
	if err := dec.Decode(&raw); err != nil {
		return nil, errors.Wrap(err, errors.CodeNoJSONToken, "invalid json document")
	}

	switch v := raw.(type) {
	case map[string]any:
		n, err := b.IngestObject(v)
		if err != nil {
			return nil, err
		}
		return []*Node{n}, nil
	case []any:
		nodes := make([]*Node, 0, len(v))
		for _, elem := range v {
			m, ok := elem.(map[string]any)
			if !ok {
				return nil, errors.New(errors.CodeJSONTypeUnsupportedAtRoot, "root array must contain only objects")
			}
			n, err := b.IngestObject(m)
			if err != nil {
				return nil, err
			}
			nodes = append(nodes, n)
		}
		return nodes, nil
	default:
		return nil, errors.New(errors.CodeJSONTypeUnsupportedAtRoot, "root json value must be an object or array of objects")
	}
}

// IngestObject ingests one parsed JSON object into a fresh Node.
func (b *Builder) IngestObject(raw map[string]any) (*Node, error) {
	n := b.NewObject()
	for name, v := range raw {
		key := b.AddKey(name)
		if err := b.ingestField(n, key, v); err != nil {
			return nil, err
		}
	}
	return n, nil
}

func (b *Builder) ingestField(n *Node, key uint64, v any) error {
	switch val := v.(type) {
	case nil:
		n.PushPrimitive(fieldtype.Null, key, nil)
	case bool:
		n.PushPrimitive(fieldtype.Bool, key, boolToU8(val))
	case json.Number:
		t, gv, err := classifyScalarNumber(val)
		if err != nil {
			return err
		}
		n.PushPrimitive(t, key, gv)
	case string:
		id := b.dict.Insert(val)
		n.PushPrimitive(fieldtype.StringID, key, id)
	case map[string]any:
		child, err := b.IngestObject(val)
		if err != nil {
			return err
		}
		n.PushObject(key, child)
	case []any:
		return b.ingestArray(n, key, val)
	default:
		return errors.New(errors.CodeNoType, fmt.Sprintf("unsupported json value type %T", v))
	}
	return nil
}

type arrayKind int

const (
	arrayKindScalar arrayKind = iota
	arrayKindObjects
	arrayKindAllNull
)

func classifyArrayKind(arr []any) (arrayKind, error) {
	hasMap, hasScalar, hasNonNull := false, false, false
	for _, elem := range arr {
		switch elem.(type) {
		case nil:
			continue
		case []any:
			return 0, errors.New(errors.CodeMixedArrayOrArrayOfArrays, "array of arrays is not supported")
		case map[string]any:
			hasMap = true
			hasNonNull = true
		default:
			hasScalar = true
			hasNonNull = true
		}
	}
	if !hasNonNull {
		return arrayKindAllNull, nil
	}
	if hasMap && hasScalar {
		return 0, errors.New(errors.CodeMixedArrayTypes, "array mixes objects and scalars")
	}
	if hasMap {
		return arrayKindObjects, nil
	}
	return arrayKindScalar, nil
}

func (b *Builder) ingestArray(n *Node, key uint64, arr []any) error {
	if len(arr) == 0 {
		n.PushNullArray(key, 0)
		return nil
	}
	kind, err := classifyArrayKind(arr)
	if err != nil {
		return err
	}
	switch kind {
	case arrayKindAllNull:
		n.PushNullArray(key, uint32(len(arr)))
		return nil
	case arrayKindObjects:
		group := n.NewColumnGroup(key)
		return b.ingestObjectArray(group, arr)
	default:
		t, values, err := b.materializeScalarArray(arr)
		if err != nil {
			return err
		}
		n.PushArray(t, key, values)
		return nil
	}
}

// materializeScalarArray infers the single CIM element type for a JSON
// array of scalars and converts every element (including null, which
// becomes the type's sentinel) to that type's Go representation.
func (b *Builder) materializeScalarArray(arr []any) (fieldtype.Type, []any, error) {
	hasString, hasBool, nums := false, false, 0
	for _, elem := range arr {
		switch elem.(type) {
		case nil:
		case string:
			hasString = true
		case bool:
			hasBool = true
		case json.Number:
			nums++
		}
	}
	kinds := 0
	if hasString {
		kinds++
	}
	if hasBool {
		kinds++
	}
	if nums > 0 {
		kinds++
	}
	if kinds > 1 {
		return 0, nil, errors.New(errors.CodeMixedArrayTypes, "array mixes incompatible scalar types")
	}

	switch {
	case hasString:
		values := make([]any, len(arr))
		for i, elem := range arr {
			if elem == nil {
				values[i] = fieldtype.NullStringID
				continue
			}
			values[i] = b.dict.Insert(elem.(string))
		}
		return fieldtype.StringID, values, nil
	case hasBool:
		values := make([]any, len(arr))
		for i, elem := range arr {
			if elem == nil {
				values[i] = fieldtype.NullBool
				continue
			}
			if elem.(bool) {
				values[i] = uint8(1)
			} else {
				values[i] = uint8(0)
			}
		}
		return fieldtype.Bool, values, nil
	default:
		nums := make([]json.Number, 0, len(arr))
		for _, elem := range arr {
			if elem == nil {
				continue
			}
			nums = append(nums, elem.(json.Number))
		}
		t, err := widenNumbers(nums)
		if err != nil {
			return 0, nil, err
		}
		values := make([]any, len(arr))
		for i, elem := range arr {
			if elem == nil {
				values[i] = sentinelFor(t)
				continue
			}
			v, err := convertNumber(elem.(json.Number), t)
			if err != nil {
				return 0, nil, err
			}
			values[i] = v
		}
		return t, values, nil
	}
}

func (b *Builder) ingestObjectArray(group *ColumnGroup, arr []any) error {
	for position, elem := range arr {
		m, _ := elem.(map[string]any)
		rowID := b.alloc.Next()
		group.ObjectIDs = append(group.ObjectIDs, rowID)
		for name, v := range m {
			nameKey := b.dict.Insert(name)
			if err := b.ingestRowField(group, uint32(position), nameKey, v); err != nil {
				return err
			}
		}
	}
	return nil
}

func (b *Builder) ingestRowField(group *ColumnGroup, position uint32, nameKey uint64, v any) error {
	switch val := v.(type) {
	case nil:
		group.PushEntry(position, nameKey, fieldtype.Null, nil)
	case bool:
		group.PushEntry(position, nameKey, fieldtype.Bool, []any{boolToU8(val)})
	case json.Number:
		t, gv, err := classifyScalarNumber(val)
		if err != nil {
			return err
		}
		group.PushEntry(position, nameKey, t, []any{gv})
	case string:
		id := b.dict.Insert(val)
		group.PushEntry(position, nameKey, fieldtype.StringID, []any{id})
	case map[string]any:
		child, err := b.IngestObject(val)
		if err != nil {
			return err
		}
		group.PushObjectEntry(position, nameKey, []*Node{child})
	case []any:
		if len(val) == 0 {
			group.PushEntry(position, nameKey, fieldtype.Null, nil)
			return nil
		}
		kind, err := classifyArrayKind(val)
		if err != nil {
			return err
		}
		if kind != arrayKindScalar && kind != arrayKindAllNull {
			return errors.New(errors.CodeMixedArrayOrArrayOfArrays, "nested object-array fields are not supported")
		}
		t, values, err := b.materializeScalarArray(val)
		if err != nil {
			return err
		}
		group.PushEntry(position, nameKey, t, values)
	default:
		return errors.New(errors.CodeNoType, fmt.Sprintf("unsupported json value type %T", v))
	}
	return nil
}

func classifyScalarNumber(num json.Number) (fieldtype.Type, any, error) {
	s := string(num)
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		if i < 0 {
			t := signedTypeFor(i)
			v, _ := convertSignedTo(i, t)
			return t, v, nil
		}
		t := unsignedTypeFor(uint64(i))
		v, _ := convertUnsignedTo(uint64(i), t)
		return t, v, nil
	}
	if u, err := strconv.ParseUint(s, 10, 64); err == nil {
		v, _ := convertUnsignedTo(u, fieldtype.U64)
		return fieldtype.U64, v, nil
	}
	f, err := num.Float64()
	if err != nil {
		return 0, nil, errors.Wrap(err, errors.CodeNoType, "invalid json number literal")
	}
	return fieldtype.F32, float32(f), nil
}

func signedTypeFor(i int64) fieldtype.Type {
	switch {
	case i >= math.MinInt8 && i <= math.MaxInt8:
		return fieldtype.I8
	case i >= math.MinInt16 && i <= math.MaxInt16:
		return fieldtype.I16
	case i >= math.MinInt32 && i <= math.MaxInt32:
		return fieldtype.I32
	default:
		return fieldtype.I64
	}
}

func unsignedTypeFor(u uint64) fieldtype.Type {
	switch {
	case u <= math.MaxUint8:
		return fieldtype.U8
	case u <= math.MaxUint16:
		return fieldtype.U16
	case u <= math.MaxUint32:
		return fieldtype.U32
	default:
		return fieldtype.U64
	}
}

// widenNumbers implements the array-type-inference rule from spec §4.1: the
// smallest type in the signed/unsigned/float lattice that admits every
// element, with the sign family decided by whether any element is negative.
func widenNumbers(nums []json.Number) (fieldtype.Type, error) {
	if len(nums) == 0 {
		return fieldtype.Null, nil
	}
	floatSeen := false
	negSeen := false
	hugeUnsigned := false
	var minI, maxI int64
	first := true

	for _, num := range nums {
		s := string(num)
		if i, err := strconv.ParseInt(s, 10, 64); err == nil {
			if i < 0 {
				negSeen = true
			}
			if first {
				minI, maxI, first = i, i, false
			} else {
				if i < minI {
					minI = i
				}
				if i > maxI {
					maxI = i
				}
			}
			continue
		}
		if _, err := strconv.ParseUint(s, 10, 64); err == nil {
			hugeUnsigned = true
			continue
		}
		floatSeen = true
	}

	if floatSeen {
		return fieldtype.F32, nil
	}
	if hugeUnsigned {
		if negSeen {
			return 0, errors.New(errors.CodeMixedArrayTypes, "array mixes large unsigned and negative values")
		}
		return fieldtype.U64, nil
	}
	if negSeen {
		return widenSignedRange(minI, maxI), nil
	}
	return unsignedTypeFor(uint64(maxI)), nil
}

func widenSignedRange(minI, maxI int64) fieldtype.Type {
	lo, hi := signedTypeFor(minI), signedTypeFor(maxI)
	return wideSignedOf(lo, hi)
}

func wideSignedOf(a, b fieldtype.Type) fieldtype.Type {
	rank := map[fieldtype.Type]int{fieldtype.I8: 0, fieldtype.I16: 1, fieldtype.I32: 2, fieldtype.I64: 3}
	if rank[a] >= rank[b] {
		return a
	}
	return b
}

func convertNumber(num json.Number, t fieldtype.Type) (any, error) {
	if t == fieldtype.F32 {
		f, err := num.Float64()
		if err != nil {
			return nil, errors.Wrap(err, errors.CodeNoType, "invalid float literal")
		}
		return float32(f), nil
	}
	s := string(num)
	if t.IsSigned() {
		i, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return nil, errors.Wrap(err, errors.CodeNoType, "invalid integer literal")
		}
		return convertSignedTo(i, t)
	}
	u, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeNoType, "invalid integer literal")
	}
	return convertUnsignedTo(u, t)
}

func convertSignedTo(i int64, t fieldtype.Type) (any, error) {
	switch t {
	case fieldtype.I8:
		return int8(i), nil
	case fieldtype.I16:
		return int16(i), nil
	case fieldtype.I32:
		return int32(i), nil
	case fieldtype.I64:
		return i, nil
	default:
		return nil, errors.New(errors.CodeInternalInvariant, "not a signed type")
	}
}

func convertUnsignedTo(u uint64, t fieldtype.Type) (any, error) {
	switch t {
	case fieldtype.U8:
		return uint8(u), nil
	case fieldtype.U16:
		return uint16(u), nil
	case fieldtype.U32:
		return uint32(u), nil
	case fieldtype.U64:
		return u, nil
	default:
		return nil, errors.New(errors.CodeInternalInvariant, "not an unsigned type")
	}
}

func boolToU8(b bool) uint8 {
	if b {
		return 1
	}
	return 0
}

func sentinelFor(t fieldtype.Type) any {
	switch t {
	case fieldtype.I8:
		return fieldtype.NullI8
	case fieldtype.I16:
		return fieldtype.NullI16
	case fieldtype.I32:
		return fieldtype.NullI32
	case fieldtype.I64:
		return fieldtype.NullI64
	case fieldtype.U8:
		return fieldtype.NullU8
	case fieldtype.U16:
		return fieldtype.NullU16
	case fieldtype.U32:
		return fieldtype.NullU32
	case fieldtype.U64:
		return fieldtype.NullU64
	case fieldtype.F32:
		return fieldtype.NullF32
	default:
		return nil
	}
}
