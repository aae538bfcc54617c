package cim

import (
	"sort"
	"sync/atomic"

	"github.com/carbonarchive/carbon/internal/fieldtype"
)

// comparisons counts the less-than calls made by the most recent Sort
// calls. It is process-global and atomic so concurrent Sort calls on
// independent roots still add up to one honest total; callers that care
// (cmd/carbon's build step, which sorts roots one after another) reset it
// with ResetComparisonCount before sorting.
var comparisons atomic.Int64

// ResetComparisonCount zeroes the comparison counter.
func ResetComparisonCount() { comparisons.Store(0) }

// ComparisonCount returns the number of comparator calls since the last
// reset.
func ComparisonCount() int64 { return comparisons.Load() }

// KeyText resolves a string_id back to its decoded bytes for comparison.
// *internal/strdict.Dictionary satisfies it directly.
type KeyText interface {
	Extract(id uint64) (string, bool)
}

// Sort normalizes a Node tree into read-optimized order, recursively,
// top-down, per spec §4.1's four-step sort discipline. It mutates n and its
// descendants in place.
func Sort(n *Node, dict KeyText) {
	for _, bucket := range n.Primitives {
		sortPrimitiveBucket(bucket, dict)
	}
	for _, bucket := range n.Arrays {
		sortArrayBucket(bucket, dict)
	}
	if n.NullArrays != nil {
		sortNullArrayBucket(n.NullArrays, dict)
	}
	if n.Objects != nil {
		sortObjectBucket(n.Objects, dict)
		for _, child := range n.Objects.Children {
			Sort(child, dict)
		}
	}
	for _, group := range n.ObjectArrayGroups {
		sortColumnGroup(group, dict)
	}
	sortColumnGroups(n.ObjectArrayGroups, dict)
}

func keyText(dict KeyText, id uint64) string {
	s, _ := dict.Extract(id)
	return s
}

// sortPrimitiveBucket co-sorts (keys, values) by value ascending (step 1).
func sortPrimitiveBucket(b *PrimitiveColumn, dict KeyText) {
	idx := make([]int, len(b.Keys))
	for i := range idx {
		idx[i] = i
	}
	less := valueLess(b.Type, dict, func(i int) any { return b.Values[i] })
	sort.SliceStable(idx, func(i, j int) bool {
		comparisons.Add(1)
		return less(idx[i], idx[j])
	})
	b.Keys = permuteU64(b.Keys, idx)
	b.Values = permuteAny(b.Values, idx)
}

// sortArrayBucket co-sorts (keys, array-values) by element-wise comparison
// of the array payloads (step 2).
func sortArrayBucket(b *ArrayColumn, dict KeyText) {
	idx := make([]int, len(b.Keys))
	for i := range idx {
		idx[i] = i
	}
	elemLess := scalarLess(b.Type, dict)
	sort.SliceStable(idx, func(i, j int) bool {
		comparisons.Add(1)
		a, c := b.Values[idx[i]], b.Values[idx[j]]
		for k := 0; k < len(a) && k < len(c); k++ {
			if elemLess(a[k], c[k]) {
				return true
			}
			if elemLess(c[k], a[k]) {
				return false
			}
		}
		return len(a) < len(c)
	})
	b.Keys = permuteU64(b.Keys, idx)
	b.Values = permuteAnySlice(b.Values, idx)
}

func sortNullArrayBucket(b *NullArrayColumn, dict KeyText) {
	idx := make([]int, len(b.Keys))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(i, j int) bool {
		comparisons.Add(1)
		return keyText(dict, b.Keys[idx[i]]) < keyText(dict, b.Keys[idx[j]])
	})
	b.Keys = permuteU64(b.Keys, idx)
	counts := make([]uint32, len(b.Counts))
	for newPos, old := range idx {
		counts[newPos] = b.Counts[old]
	}
	b.Counts = counts
}

func sortObjectBucket(b *ObjectColumn, dict KeyText) {
	idx := make([]int, len(b.Keys))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(i, j int) bool {
		comparisons.Add(1)
		return keyText(dict, b.Keys[idx[i]]) < keyText(dict, b.Keys[idx[j]])
	})
	b.Keys = permuteU64(b.Keys, idx)
	children := make([]*Node, len(b.Children))
	for newPos, old := range idx {
		children[newPos] = b.Children[old]
	}
	b.Children = children
}

// sortColumnGroups orders column groups by decoded key name (step 3).
func sortColumnGroups(groups []*ColumnGroup, dict KeyText) {
	sort.SliceStable(groups, func(i, j int) bool {
		comparisons.Add(1)
		return keyText(dict, groups[i].Key) < keyText(dict, groups[j].Key)
	})
}

// sortColumnGroup sorts a group's columns by (decoded column-name, type)
// and, within each column, co-sorts (array_position, entry) by entry value
// using the column's type comparator (step 3).
func sortColumnGroup(g *ColumnGroup, dict KeyText) {
	sort.SliceStable(g.Columns, func(i, j int) bool {
		comparisons.Add(1)
		a, b := g.Columns[i], g.Columns[j]
		an, bn := keyText(dict, a.NameKey), keyText(dict, b.NameKey)
		if an != bn {
			return an < bn
		}
		return a.Type < b.Type
	})
	for _, col := range g.Columns {
		sortObjectArrayColumn(col, dict)
	}
}

func sortObjectArrayColumn(c *ObjectArrayColumn, dict KeyText) {
	idx := make([]int, len(c.EntryPositions))
	for i := range idx {
		idx[i] = i
	}
	if c.Type == fieldtype.Object {
		for _, kids := range c.Children {
			for _, k := range kids {
				Sort(k, dict)
			}
		}
		sort.SliceStable(idx, func(i, j int) bool {
			comparisons.Add(1)
			return c.EntryPositions[idx[i]] < c.EntryPositions[idx[j]]
		})
		c.EntryPositions = permuteU32(c.EntryPositions, idx)
		children := make([][]*Node, len(c.Children))
		for newPos, old := range idx {
			children[newPos] = c.Children[old]
		}
		c.Children = children
		return
	}

	elemLess := scalarLess(c.Type, dict)
	sort.SliceStable(idx, func(i, j int) bool {
		comparisons.Add(1)
		a, b := c.Values[idx[i]], c.Values[idx[j]]
		for k := 0; k < len(a) && k < len(b); k++ {
			if elemLess(a[k], b[k]) {
				return true
			}
			if elemLess(b[k], a[k]) {
				return false
			}
		}
		return len(a) < len(b)
	})
	c.EntryPositions = permuteU32(c.EntryPositions, idx)
	c.Values = permuteAnySlice(c.Values, idx)
}

func valueLess(t fieldtype.Type, dict KeyText, at func(int) any) func(i, j int) bool {
	less := scalarLess(t, dict)
	return func(i, j int) bool { return less(at(i), at(j)) }
}

// scalarLess returns a comparator for two values of the same CIM type,
// ordering by decoded byte content for strings and natural order otherwise.
func scalarLess(t fieldtype.Type, dict KeyText) func(a, b any) bool {
	switch t {
	case fieldtype.StringID:
		return func(a, b any) bool { return keyText(dict, a.(uint64)) < keyText(dict, b.(uint64)) }
	case fieldtype.Bool:
		return func(a, b any) bool { return toU8(a) < toU8(b) }
	case fieldtype.I8:
		return func(a, b any) bool { return a.(int8) < b.(int8) }
	case fieldtype.I16:
		return func(a, b any) bool { return a.(int16) < b.(int16) }
	case fieldtype.I32:
		return func(a, b any) bool { return a.(int32) < b.(int32) }
	case fieldtype.I64:
		return func(a, b any) bool { return a.(int64) < b.(int64) }
	case fieldtype.U8:
		return func(a, b any) bool { return a.(uint8) < b.(uint8) }
	case fieldtype.U16:
		return func(a, b any) bool { return a.(uint16) < b.(uint16) }
	case fieldtype.U32:
		return func(a, b any) bool { return a.(uint32) < b.(uint32) }
	case fieldtype.U64:
		return func(a, b any) bool { return a.(uint64) < b.(uint64) }
	case fieldtype.F32:
		return func(a, b any) bool { return a.(float32) < b.(float32) }
	default:
		return func(a, b any) bool { return false }
	}
}

func toU8(v any) uint8 {
	switch x := v.(type) {
	case uint8:
		return x
	case bool:
		if x {
			return 1
		}
		return 0
	default:
		return 0
	}
}

func permuteU64(s []uint64, idx []int) []uint64 {
	out := make([]uint64, len(s))
	for newPos, old := range idx {
		out[newPos] = s[old]
	}
	return out
}

func permuteU32(s []uint32, idx []int) []uint32 {
	out := make([]uint32, len(s))
	for newPos, old := range idx {
		out[newPos] = s[old]
	}
	return out
}

func permuteAny(s []any, idx []int) []any {
	out := make([]any, len(s))
	for newPos, old := range idx {
		out[newPos] = s[old]
	}
	return out
}

func permuteAnySlice(s [][]any, idx []int) [][]any {
	out := make([][]any, len(s))
	for newPos, old := range idx {
		out[newPos] = s[old]
	}
	return out
}
