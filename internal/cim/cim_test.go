package cim

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carbonarchive/carbon/internal/fieldtype"
	"github.com/carbonarchive/carbon/internal/oid"
)

// testDict is a trivial, non-thread-safe string<->id table standing in for
// internal/strdict.Dictionary in tests that don't need the cache.
type testDict struct {
	byStr map[string]uint64
	byID  map[uint64]string
	next  uint64
}

func newTestDict() *testDict {
	return &testDict{byStr: map[string]uint64{}, byID: map[uint64]string{}, next: 1}
}

func (d *testDict) Insert(s string) uint64 {
	if id, ok := d.byStr[s]; ok {
		return id
	}
	id := d.next
	d.next++
	d.byStr[s] = id
	d.byID[id] = s
	return id
}

func (d *testDict) Extract(id uint64) (string, bool) {
	s, ok := d.byID[id]
	return s, ok
}

func newBuilder() (*Builder, *testDict) {
	dict := newTestDict()
	return NewBuilder(dict, oid.NewAllocatorFrom(0)), dict
}

func findPrimitive(n *Node, t fieldtype.Type) *PrimitiveColumn {
	return n.Primitives[t]
}

func TestIngestHeterogeneousScalars(t *testing.T) {
	b, dict := newBuilder()
	nodes, err := b.IngestJSON([]byte(`{"a":1, "b":"x", "c":true, "d":null}`))
	require.NoError(t, err)
	require.Len(t, nodes, 1)
	n := nodes[0]

	u8 := findPrimitive(n, fieldtype.U8)
	require.NotNil(t, u8)
	assert.Equal(t, []any{uint8(1)}, u8.Values)

	strs := findPrimitive(n, fieldtype.StringID)
	require.NotNil(t, strs)
	text, ok := dict.Extract(strs.Values[0].(uint64))
	require.True(t, ok)
	assert.Equal(t, "x", text)

	boolCol := findPrimitive(n, fieldtype.Bool)
	require.NotNil(t, boolCol)
	assert.Equal(t, uint8(1), boolCol.Values[0])

	nullCol := findPrimitive(n, fieldtype.Null)
	require.NotNil(t, nullCol)
	assert.Len(t, nullCol.Keys, 1)
}

func TestIngestNumberWideningInArrays(t *testing.T) {
	b, _ := newBuilder()
	nodes, err := b.IngestJSON([]byte(`{"xs":[1, -2, 300000, null]}`))
	require.NoError(t, err)
	n := nodes[0]

	arr := n.Arrays[fieldtype.I32]
	require.NotNil(t, arr)
	require.Len(t, arr.Values, 1)
	got := arr.Values[0]
	require.Len(t, got, 4)
	assert.Equal(t, int32(1), got[0])
	assert.Equal(t, int32(-2), got[1])
	assert.Equal(t, int32(300000), got[2])
	assert.Equal(t, fieldtype.NullI32, got[3])
}

func TestIngestMixedArrayRejected(t *testing.T) {
	b, _ := newBuilder()
	_, err := b.IngestJSON([]byte(`{"xs":[1, "a"]}`))
	require.Error(t, err)
}

func TestIngestArrayOfObjectsBecomesColumnGroup(t *testing.T) {
	b, dict := newBuilder()
	nodes, err := b.IngestJSON([]byte(`{"rows":[{"k":1,"v":"a"},{"k":2,"v":"b"},{"k":3}]}`))
	require.NoError(t, err)
	n := nodes[0]

	require.Len(t, n.ObjectArrayGroups, 1)
	group := n.ObjectArrayGroups[0]
	assert.Equal(t, "rows", keyText(dict, group.Key))
	assert.Len(t, group.ObjectIDs, 3)

	var kCol, vCol *ObjectArrayColumn
	for _, c := range group.Columns {
		switch keyText(dict, c.NameKey) {
		case "k":
			kCol = c
		case "v":
			vCol = c
		}
	}
	require.NotNil(t, kCol)
	require.NotNil(t, vCol)
	assert.Equal(t, fieldtype.U8, kCol.Type)
	assert.Equal(t, []uint32{0, 1, 2}, kCol.EntryPositions)
	assert.Equal(t, fieldtype.StringID, vCol.Type)
	assert.Equal(t, []uint32{0, 1}, vCol.EntryPositions)
}

func TestSortPrimitiveBucketAscending(t *testing.T) {
	b, dict := newBuilder()
	nodes, err := b.IngestJSON([]byte(`{"a":3,"b":1,"c":2}`))
	require.NoError(t, err)
	n := nodes[0]
	Sort(n, dict)

	u8 := n.Primitives[fieldtype.U8]
	require.NotNil(t, u8)
	for i := 1; i < len(u8.Values); i++ {
		assert.LessOrEqual(t, u8.Values[i-1].(uint8), u8.Values[i].(uint8))
	}
}

func TestSortComparisonCounterAdvances(t *testing.T) {
	b, dict := newBuilder()
	nodes, err := b.IngestJSON([]byte(`{"a":3,"b":1,"c":2}`))
	require.NoError(t, err)

	ResetComparisonCount()
	Sort(nodes[0], dict)
	assert.Greater(t, ComparisonCount(), int64(0))
}
