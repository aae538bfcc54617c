// Package cim implements the columnar intermediate model: the in-memory,
// per-type decomposition of one parsed JSON object into key/value columns,
// built during ingest and normalized by Sort for read-optimized archives
// (spec §4.1).
package cim

import (
	"github.com/carbonarchive/carbon/internal/fieldtype"
	"github.com/carbonarchive/carbon/internal/oid"
)

// Node holds the per-type columns for one logical JSON object. A nested
// object value's Node is owned by the parent column's entry (spec §3
// Lifecycles); there are no back-pointers, so dropping a root Node drops its
// whole subtree.
type Node struct {
	ObjectID oid.ID

	// Primitives holds one bucket per primitive type actually used by this
	// object. A key may appear in more than one bucket simultaneously — the
	// heterogeneous-field case from §4.1 — because each add_key(type, key)
	// call opens a distinct entry keyed by (type, key-name).
	Primitives map[fieldtype.Type]*PrimitiveColumn

	// Arrays holds one bucket per array element type, excluding arrays of
	// null (tracked separately in NullArrays) and arrays of objects
	// (tracked in ObjectArrayGroups, since they decompose into column
	// groups rather than staying a flat array bucket).
	Arrays map[fieldtype.Type]*ArrayColumn

	NullArrays *NullArrayColumn
	Objects    *ObjectColumn

	ObjectArrayGroups []*ColumnGroup
}

// NewNode creates an empty node for the given object id.
func NewNode(id oid.ID) *Node {
	return &Node{
		ObjectID:   id,
		Primitives: make(map[fieldtype.Type]*PrimitiveColumn),
		Arrays:     make(map[fieldtype.Type]*ArrayColumn),
	}
}

// PrimitiveColumn is the key/value pair of vectors for one primitive type
// bucket (spec §4.1: "per primitive type the CIM holds a key vector and a
// matching value vector").
type PrimitiveColumn struct {
	Type   fieldtype.Type
	Keys   []uint64 // string_id of each key
	Values []any    // concrete Go value per entry, matching Type
}

func (c *PrimitiveColumn) push(key uint64, value any) {
	c.Keys = append(c.Keys, key)
	c.Values = append(c.Values, value)
}

// ArrayColumn is the key/vector-of-vectors pair for one array element type
// bucket.
type ArrayColumn struct {
	Type   fieldtype.Type
	Keys   []uint64
	Values [][]any // one slice of typed scalars per entry
}

func (c *ArrayColumn) push(key uint64, values []any) {
	c.Keys = append(c.Keys, key)
	c.Values = append(c.Values, values)
}

// NullArrayColumn tracks array-of-null entries by count only (spec §4.1:
// "if type is null, only the count is retained").
type NullArrayColumn struct {
	Keys   []uint64
	Counts []uint32
}

// ObjectColumn is the key/vector pair for nested (non-array) object values.
type ObjectColumn struct {
	Keys     []uint64
	Children []*Node
}

// ColumnGroup is one array-of-objects field, decomposed into columns keyed
// by (nested-key, nested-type) per spec §4.1 / §3.
type ColumnGroup struct {
	Key       uint64   // the array field's own key
	ObjectIDs []uint64 // group-local object ids, index = array position
	Columns   []*ObjectArrayColumn
}

// ObjectArrayColumn is one (nested-key, type) column inside a column group.
// Entries are parallel to EntryPositions: EntryPositions[i] is the
// group-local index into the owning ColumnGroup.ObjectIDs that contributed
// Values[i]. A scalar nested field stores one-element Values; an
// array-valued nested field stores its full array as one entry.
type ObjectArrayColumn struct {
	NameKey        uint64
	Type           fieldtype.Type
	EntryPositions []uint32
	Values         [][]any  // nil for Type == Object
	Children       [][]*Node // populated only for Type == Object: the nested object chain per entry
}
