package converter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carbonarchive/carbon/internal/archive"
	"github.com/carbonarchive/carbon/internal/cim"
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

func buildArchive(t *testing.T, doc string) (*archive.Archive, *testDict) {
	t.Helper()
	dict := newTestDict()
	b := cim.NewBuilder(dict, oid.NewAllocatorFrom(0))
	nodes, err := b.IngestJSON([]byte(doc))
	require.NoError(t, err)
	for _, n := range nodes {
		cim.Sort(n, dict)
	}
	data, err := archive.Write(nodes)
	require.NoError(t, err)
	a, err := archive.OpenBytes(data)
	require.NoError(t, err)
	return a, dict
}

func TestDecodeHeterogeneousScalars(t *testing.T) {
	a, dict := buildArchive(t, `{"a":1, "b":"x", "c":true, "d":null}`)
	docs, err := New(dict).Decode(a)
	require.NoError(t, err)
	require.Len(t, docs, 1)

	doc := docs[0].(map[string]any)
	assert.Equal(t, uint8(1), doc["a"])
	assert.Equal(t, "x", doc["b"])
	assert.Equal(t, true, doc["c"])
	assert.Nil(t, doc["d"])
	_, hasD := doc["d"]
	assert.True(t, hasD)
}

// TestDecodeArrayNullsBecomeJSONNull verifies the null sentinel a typed
// array stores in place of a JSON null is translated back to nil on
// decode (spec §8 invariant 1, scenario E2).
func TestDecodeArrayNullsBecomeJSONNull(t *testing.T) {
	a, dict := buildArchive(t, `{"xs":[1, -2, 300000, null]}`)
	docs, err := New(dict).Decode(a)
	require.NoError(t, err)
	doc := docs[0].(map[string]any)

	xs := doc["xs"].([]any)
	require.Len(t, xs, 4)
	assert.Equal(t, int32(1), xs[0])
	assert.Equal(t, int32(-2), xs[1])
	assert.Equal(t, int32(300000), xs[2])
	assert.Nil(t, xs[3])
}

func TestDecodeNestedObject(t *testing.T) {
	a, dict := buildArchive(t, `{"outer":{"inner":7}}`)
	docs, err := New(dict).Decode(a)
	require.NoError(t, err)
	doc := docs[0].(map[string]any)

	outer, ok := doc["outer"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, uint8(7), outer["inner"])
}

// TestDecodeColumnGroupRowsSparse verifies the column-group decomposition
// is reassembled back into an array of row objects, including a row
// missing a property that other rows have (spec scenario E4).
func TestDecodeColumnGroupRowsSparse(t *testing.T) {
	a, dict := buildArchive(t, `{"rows":[{"k":1,"v":"a"},{"k":2,"v":"b"},{"k":3}]}`)
	docs, err := New(dict).Decode(a)
	require.NoError(t, err)
	doc := docs[0].(map[string]any)

	rows, ok := doc["rows"].([]any)
	require.True(t, ok)
	require.Len(t, rows, 3)

	r0 := rows[0].(map[string]any)
	assert.Equal(t, uint8(1), r0["k"])
	assert.Equal(t, "a", r0["v"])

	r2 := rows[2].(map[string]any)
	assert.Equal(t, uint8(3), r2["k"])
	_, hasV := r2["v"]
	assert.False(t, hasV)
}

// TestDecodeColumnGroupNestedObjectColumn verifies a row field that is
// itself an object (one column of the column group holding type Object)
// is reassembled as a nested map within its row.
func TestDecodeColumnGroupNestedObjectColumn(t *testing.T) {
	a, dict := buildArchive(t, `{"rows":[{"child":{"v":1}},{"child":{"v":2}}]}`)
	docs, err := New(dict).Decode(a)
	require.NoError(t, err)
	doc := docs[0].(map[string]any)

	rows := doc["rows"].([]any)
	require.Len(t, rows, 2)
	r0 := rows[0].(map[string]any)
	child, ok := r0["child"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, uint8(1), child["v"])
}

func TestDecodeMultipleRoots(t *testing.T) {
	a, dict := buildArchive(t, `[{"a":1},{"a":2}]`)
	docs, err := New(dict).Decode(a)
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, uint8(1), docs[0].(map[string]any)["a"])
	assert.Equal(t, uint8(2), docs[1].(map[string]any)["a"])
}
