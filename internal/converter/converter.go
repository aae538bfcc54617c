// Package converter rematerializes a document from an archive traversal:
// it drives a visitor.Driver and reassembles the property groups and
// column groups it reports back into plain Go values (map[string]any /
// []any / scalars) suitable for encoding/json, undoing the null-sentinel
// substitution of spec §6 along the way (spec §4.6's closing paragraph,
// §8 invariant 1).
package converter

import (
	"github.com/carbonarchive/carbon/internal/archive"
	"github.com/carbonarchive/carbon/internal/fieldtype"
	"github.com/carbonarchive/carbon/internal/visitor"
)

// Converter rebuilds documents from an archive using dict to resolve
// interned string ids.
type Converter struct {
	dict visitor.KeyText
}

// New creates a Converter bound to the string dictionary the archive's
// string and key ids were allocated from.
func New(dict visitor.KeyText) *Converter {
	return &Converter{dict: dict}
}

type attachKind int

const (
	attachRoot attachKind = iota
	attachField
	attachRow
)

type attachDesc struct {
	kind  attachKind
	field string
	row   *rowSet
	index int
}

// rowSet accumulates the sparse rows of one array-of-objects field (one
// per BeforeVisitObjectArray/AfterVisitObjectArray bracket), keyed by
// group-local position rather than append order, since a row with no
// properties set in a given column never visits that column at all.
type rowSet struct {
	parent map[string]any
	field  string
	rows   []map[string]any
}

func (r *rowSet) at(i int) map[string]any {
	for len(r.rows) <= i {
		r.rows = append(r.rows, nil)
	}
	if r.rows[i] == nil {
		r.rows[i] = map[string]any{}
	}
	return r.rows[i]
}

func (r *rowSet) finish() []any {
	out := make([]any, len(r.rows))
	for i, row := range r.rows {
		if row == nil {
			row = map[string]any{}
		}
		out[i] = row
	}
	r.parent[r.field] = out
	return out
}

// Decode walks the whole archive and returns one decoded value per root
// object, in document order.
func (c *Converter) Decode(a *archive.Archive) ([]any, error) {
	var results []any
	var frames []map[string]any
	var attach []attachDesc
	var rowStack []*rowSet
	attachPending := attachDesc{kind: attachRoot}

	cb := visitor.Callbacks{
		BeforeObjectVisit: func(path string, objectID uint64) visitor.Result {
			frames = append(frames, map[string]any{})
			attach = append(attach, attachPending)
			attachPending = attachDesc{kind: attachRoot}
			return visitor.Continue
		},
		AfterObjectVisit: func(path string, objectID uint64) {
			frame := frames[len(frames)-1]
			frames = frames[:len(frames)-1]
			desc := attach[len(attach)-1]
			attach = attach[:len(attach)-1]
			switch desc.kind {
			case attachRoot:
				results = append(results, frame)
			case attachField:
				frames[len(frames)-1][desc.field] = frame
			case attachRow:
				desc.row.at(desc.index)[desc.field] = frame
			}
		},
		VisitObjectProperty: func(path, key string) {
			attachPending = attachDesc{kind: attachField, field: key}
		},
		PrimitiveGroup: func(path string, t fieldtype.Type, keys []string, values []any) {
			frame := frames[len(frames)-1]
			for i, k := range keys {
				frame[k] = decodeScalarValue(c.dict, t, values[i])
			}
		},
		ArrayEntry: func(path string, t fieldtype.Type, key string, index int, values []any) {
			frame := frames[len(frames)-1]
			out := make([]any, len(values))
			for i, v := range values {
				out[i] = decodeScalarValue(c.dict, t, v)
			}
			frame[key] = out
		},
		BeforeVisitObjectArray: func(path, key string) visitor.Result {
			frame := frames[len(frames)-1]
			rs := &rowSet{parent: frame, field: key}
			rowStack = append(rowStack, rs)
			return visitor.Continue
		},
		AfterVisitObjectArray: func(path, key string) {
			rs := rowStack[len(rowStack)-1]
			rowStack = rowStack[:len(rowStack)-1]
			rs.finish()
		},
		VisitObjectArrayProp: func(path, columnName string, t fieldtype.Type, groupObjectIndex int, values []any) {
			rs := rowStack[len(rowStack)-1]
			row := rs.at(groupObjectIndex)
			if len(values) == 1 {
				row[columnName] = decodeScalarValue(c.dict, t, values[0])
			} else {
				out := make([]any, len(values))
				for i, v := range values {
					out[i] = decodeScalarValue(c.dict, t, v)
				}
				row[columnName] = out
			}
		},
		BeforeObjectArrayObjectPropertyObject: func(path, columnName string, groupIndex int, objectID uint64) visitor.Result {
			rs := rowStack[len(rowStack)-1]
			attachPending = attachDesc{kind: attachRow, row: rs, index: groupIndex, field: columnName}
			return visitor.Continue
		},
	}

	d := visitor.New(a, c.dict, cb, archive.MaskAny)
	if err := d.Walk(); err != nil {
		return nil, err
	}
	return results, nil
}

func decodeScalarValue(dict visitor.KeyText, t fieldtype.Type, v any) any {
	switch t {
	case fieldtype.Null:
		return nil
	case fieldtype.Bool:
		return v.(uint8) != 0
	case fieldtype.StringID:
		s, _ := dict.Extract(v.(uint64))
		return s
	case fieldtype.I8:
		if n := v.(int8); n == fieldtype.NullI8 {
			return nil
		} else {
			return n
		}
	case fieldtype.I16:
		if n := v.(int16); n == fieldtype.NullI16 {
			return nil
		} else {
			return n
		}
	case fieldtype.I32:
		if n := v.(int32); n == fieldtype.NullI32 {
			return nil
		} else {
			return n
		}
	case fieldtype.I64:
		if n := v.(int64); n == fieldtype.NullI64 {
			return nil
		} else {
			return n
		}
	case fieldtype.U8:
		if n := v.(uint8); n == fieldtype.NullU8 {
			return nil
		} else {
			return n
		}
	case fieldtype.U16:
		if n := v.(uint16); n == fieldtype.NullU16 {
			return nil
		} else {
			return n
		}
	case fieldtype.U32:
		if n := v.(uint32); n == fieldtype.NullU32 {
			return nil
		} else {
			return n
		}
	case fieldtype.U64:
		if n := v.(uint64); n == fieldtype.NullU64 {
			return nil
		} else {
			return n
		}
	case fieldtype.F32:
		if n := v.(float32); fieldtype.IsNullF32(n) {
			return nil
		} else {
			return n
		}
	default:
		return v
	}
}
