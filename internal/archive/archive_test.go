package archive

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carbonarchive/carbon/internal/cim"
	"github.com/carbonarchive/carbon/internal/fieldtype"
	"github.com/carbonarchive/carbon/internal/oid"
)

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

func buildArchive(t *testing.T, doc string) (*Archive, *testDict) {
	t.Helper()
	dict := newTestDict()
	b := cim.NewBuilder(dict, oid.NewAllocatorFrom(0))
	nodes, err := b.IngestJSON([]byte(doc))
	require.NoError(t, err)
	for _, n := range nodes {
		cim.Sort(n, dict)
	}
	data, err := Write(nodes)
	require.NoError(t, err)
	a, err := OpenBytes(data)
	require.NoError(t, err)
	return a, dict
}

func TestRoundTripHeterogeneousScalars(t *testing.T) {
	a, dict := buildArchive(t, `{"a":1, "b":"x", "c":true, "d":null}`)
	roots, err := a.Roots()
	require.NoError(t, err)
	require.Len(t, roots, 1)

	it, err := a.OpenPropIter(roots[0], MaskAny)
	require.NoError(t, err)

	seen := map[string]bool{}
	for {
		mode, payload, err := it.Next()
		require.NoError(t, err)
		if mode == ModeNone {
			break
		}
		require.Equal(t, ModeObject, mode)
		vv := payload.(*ValueVector)
		switch vv.BaseType() {
		case fieldtype.U8:
			vals, err := vv.AsPrimitives()
			require.NoError(t, err)
			assert.Equal(t, uint8(1), vals[0])
			seen["a"] = true
		case fieldtype.StringID:
			vals, err := vv.AsPrimitives()
			require.NoError(t, err)
			text, _ := dict.Extract(vals[0].(uint64))
			assert.Equal(t, "x", text)
			seen["b"] = true
		case fieldtype.Bool:
			vals, err := vv.AsPrimitives()
			require.NoError(t, err)
			assert.Equal(t, uint8(1), vals[0])
			seen["c"] = true
		case fieldtype.Null:
			seen["d"] = true
		}
	}
	assert.True(t, seen["a"] && seen["b"] && seen["c"] && seen["d"])
}

func TestRoundTripArrayWidening(t *testing.T) {
	a, _ := buildArchive(t, `{"xs":[1, -2, 300000, null]}`)
	roots, err := a.Roots()
	require.NoError(t, err)

	it, err := a.OpenPropIter(roots[0], MaskAny)
	require.NoError(t, err)

	found := false
	for {
		mode, payload, err := it.Next()
		require.NoError(t, err)
		if mode == ModeNone {
			break
		}
		vv := payload.(*ValueVector)
		if mode == ModeObject && vv.IsArray() && vv.BaseType() == fieldtype.I32 {
			found = true
			entry, err := vv.ArrayAt(0)
			require.NoError(t, err)
			require.Len(t, entry, 4)
			assert.Equal(t, int32(1), entry[0])
			assert.Equal(t, int32(-2), entry[1])
			assert.Equal(t, int32(300000), entry[2])
			assert.Equal(t, fieldtype.NullI32, entry[3])
		}
	}
	assert.True(t, found)
}

func TestRoundTripColumnGroup(t *testing.T) {
	a, dict := buildArchive(t, `{"rows":[{"k":1,"v":"a"},{"k":2,"v":"b"},{"k":3}]}`)
	roots, err := a.Roots()
	require.NoError(t, err)

	it, err := a.OpenPropIter(roots[0], MaskAny)
	require.NoError(t, err)

	var coll *CollectionIter
	for {
		mode, payload, err := it.Next()
		require.NoError(t, err)
		if mode == ModeNone {
			break
		}
		if mode == ModeCollection {
			coll = payload.(*CollectionIter)
		}
	}
	require.NotNil(t, coll)

	key, group, ok, err := coll.Next()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "rows", mustExtract(dict, key))
	assert.Equal(t, 3, group.NumObjects())

	kSeen, vSeen := false, false
	for {
		col, ok, err := group.Next()
		require.NoError(t, err)
		if !ok {
			break
		}
		name := mustExtract(dict, col.NameKey)
		switch name {
		case "k":
			kSeen = true
			assert.Equal(t, fieldtype.U8, col.Type)
			assert.Equal(t, []uint32{0, 1, 2}, col.EntryPositions)
			e0, err := col.EntryAt(0)
			require.NoError(t, err)
			assert.Equal(t, []any{uint8(1)}, e0)
		case "v":
			vSeen = true
			assert.Equal(t, fieldtype.StringID, col.Type)
			assert.Equal(t, []uint32{0, 1}, col.EntryPositions)
		}
		assertColumnArity(t, col, group.NumObjects())
	}
	assert.True(t, kSeen && vSeen)
}

// assertColumnArity checks invariant 6 (spec.md:228): a column's persisted
// entry_offsets and entry_positions tables are the same length, and every
// entry_positions value indexes a real group-local object.
func assertColumnArity(t *testing.T, col *ColumnIter, numObjects int) {
	t.Helper()
	require.Equal(t, len(col.EntryPositions), len(col.EntryOffsets))
	for _, p := range col.EntryPositions {
		assert.Less(t, int(p), numObjects)
	}
}

// TestColumnEntryOffsetsAddressPayloadChunks builds a column whose entries
// carry differently-sized arrays and checks that each entry decodes to its
// own array and that the persisted entry_offsets table (spec.md:198) is
// strictly increasing, rather than merely matching EntryPositions in length.
func TestColumnEntryOffsetsAddressPayloadChunks(t *testing.T) {
	a, dict := buildArchive(t, `{"rows":[{"tags":[1,2,3]},{"tags":[4,5]},{"tags":[6]}]}`)
	roots, err := a.Roots()
	require.NoError(t, err)

	it, err := a.OpenPropIter(roots[0], MaskAny)
	require.NoError(t, err)

	var coll *CollectionIter
	for {
		mode, payload, err := it.Next()
		require.NoError(t, err)
		if mode == ModeNone {
			break
		}
		if mode == ModeCollection {
			coll = payload.(*CollectionIter)
		}
	}
	require.NotNil(t, coll)

	_, group, ok, err := coll.Next()
	require.NoError(t, err)
	require.True(t, ok)

	col, ok, err := group.Next()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "tags", mustExtract(dict, col.NameKey))
	assertColumnArity(t, col, group.NumObjects())

	want := [][]any{
		{uint8(1), uint8(2), uint8(3)},
		{uint8(4), uint8(5)},
		{uint8(6)},
	}
	for i := range want {
		got, err := col.EntryAt(i)
		require.NoError(t, err)
		assert.Equal(t, want[i], got)
	}

	// entry_offsets must be strictly increasing: each chunk's length prefix
	// plus its payload bytes advances past the previous entry's offset.
	for i := 1; i < len(col.EntryOffsets); i++ {
		assert.Greater(t, col.EntryOffsets[i], col.EntryOffsets[i-1])
	}
}

func mustExtract(dict *testDict, id uint64) string {
	s, _ := dict.Extract(id)
	return s
}

func TestMaskFiltersGroups(t *testing.T) {
	a, _ := buildArchive(t, `{"a":1, "b":"x"}`)
	roots, err := a.Roots()
	require.NoError(t, err)

	it, err := a.OpenPropIter(roots[0], MaskPrimitives|MaskString)
	require.NoError(t, err)

	for {
		mode, payload, err := it.Next()
		require.NoError(t, err)
		if mode == ModeNone {
			break
		}
		vv := payload.(*ValueVector)
		assert.Equal(t, fieldtype.StringID, vv.BaseType())
	}
}
