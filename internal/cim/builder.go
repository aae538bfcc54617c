package cim

import (
	"github.com/carbonarchive/carbon/internal/fieldtype"
	"github.com/carbonarchive/carbon/internal/oid"
)

// Interner maps strings to stable ids. internal/strdict.Dictionary
// satisfies this; tests may supply a trivial map-backed stand-in.
type Interner interface {
	Insert(s string) uint64
}

// Builder assembles one Node at a time, mirroring the teacher's narrow
// domain-object builders: a thin wrapper that encapsulates the id allocator
// and string interner so callers never juggle them directly.
type Builder struct {
	dict  Interner
	alloc *oid.Allocator
}

// NewBuilder returns a Builder sharing the given interner and id allocator
// across every Node it creates, so that field names intern to the same id
// and objects get monotonically increasing ids across an ingest run.
func NewBuilder(dict Interner, alloc *oid.Allocator) *Builder {
	return &Builder{dict: dict, alloc: alloc}
}

// NewObject allocates a fresh, empty Node.
func (b *Builder) NewObject() *Node {
	return NewNode(b.alloc.Next())
}

// AddKey interns a field name (spec §4.1's add_key).
func (b *Builder) AddKey(name string) uint64 {
	return b.dict.Insert(name)
}

// PushPrimitive records a scalar field under its type's bucket, opening the
// bucket on first use. Pushing the same key under a second type is legal and
// expected: it is how the CIM represents heterogeneous-typed fields across
// sibling objects (spec §4.1, §8 E1).
func (n *Node) PushPrimitive(t fieldtype.Type, key uint64, value any) {
	bucket, ok := n.Primitives[t]
	if !ok {
		bucket = &PrimitiveColumn{Type: t}
		n.Primitives[t] = bucket
	}
	bucket.push(key, value)
}

// PushArray records an array-of-scalars field. elemType must already be the
// widened type for the whole array (see fieldtype.InferArrayType).
func (n *Node) PushArray(elemType fieldtype.Type, key uint64, values []any) {
	bucket, ok := n.Arrays[elemType]
	if !ok {
		bucket = &ArrayColumn{Type: elemType}
		n.Arrays[elemType] = bucket
	}
	bucket.push(key, values)
}

// PushNullArray records an array-of-null field by its length only.
func (n *Node) PushNullArray(key uint64, count uint32) {
	if n.NullArrays == nil {
		n.NullArrays = &NullArrayColumn{}
	}
	n.NullArrays.Keys = append(n.NullArrays.Keys, key)
	n.NullArrays.Counts = append(n.NullArrays.Counts, count)
}

// PushObject records a nested (non-array) object field.
func (n *Node) PushObject(key uint64, child *Node) {
	if n.Objects == nil {
		n.Objects = &ObjectColumn{}
	}
	n.Objects.Keys = append(n.Objects.Keys, key)
	n.Objects.Children = append(n.Objects.Children, child)
}

// NewColumnGroup opens a column group for an array-of-objects field and
// appends it to the node, returning it for the caller to populate.
func (n *Node) NewColumnGroup(key uint64) *ColumnGroup {
	g := &ColumnGroup{Key: key}
	n.ObjectArrayGroups = append(n.ObjectArrayGroups, g)
	return g
}

// column locates or opens the (nameKey, type) column within the group,
// matching the original's "same nested key, different type opens a
// different column" rule (spec §4.1).
func (g *ColumnGroup) column(nameKey uint64, t fieldtype.Type) *ObjectArrayColumn {
	for _, c := range g.Columns {
		if c.NameKey == nameKey && c.Type == t {
			return c
		}
	}
	c := &ObjectArrayColumn{NameKey: nameKey, Type: t}
	g.Columns = append(g.Columns, c)
	return c
}

// PushEntry appends one entry to the (nameKey, type) column, recording which
// group-local object position it belongs to.
func (g *ColumnGroup) PushEntry(position uint32, nameKey uint64, t fieldtype.Type, values []any) {
	c := g.column(nameKey, t)
	c.EntryPositions = append(c.EntryPositions, position)
	c.Values = append(c.Values, values)
}

// PushObjectEntry appends a nested-object entry to the (nameKey, Object)
// column.
func (g *ColumnGroup) PushObjectEntry(position uint32, nameKey uint64, children []*Node) {
	c := g.column(nameKey, fieldtype.Object)
	c.EntryPositions = append(c.EntryPositions, position)
	c.Children = append(c.Children, children)
}
