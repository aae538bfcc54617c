package visitor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carbonarchive/carbon/internal/archive"
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

func TestWalkVisitsAllScalarProperties(t *testing.T) {
	a, dict := buildArchive(t, `{"a":1, "b":"x", "c":true, "d":null}`)

	var seen []string
	cb := Callbacks{
		PrimitiveGroup: func(path string, t fieldtype.Type, keys []string, values []any) {
			seen = append(seen, keys...)
		},
	}
	d := New(a, dict, cb, archive.MaskAny)
	require.NoError(t, d.Walk())

	assert.ElementsMatch(t, []string{"a", "b", "c", "d"}, seen)
}

// TestWalkSkipExcludesSubtree verifies the Exclude skip semantics: a
// BeforeObjectVisit that returns Exclude on a nested object must prevent
// that object's own properties from ever reaching PrimitiveGroup, while
// leaving sibling properties untouched.
func TestWalkSkipExcludesSubtree(t *testing.T) {
	a, dict := buildArchive(t, `{"keep":1, "nested":{"hidden":42}, "after":"z"}`)

	var seen []string
	cb := Callbacks{
		BeforeObjectVisit: func(path string, objectID uint64) Result {
			if path == "/nested" {
				return Exclude
			}
			return Continue
		},
		PrimitiveGroup: func(path string, t fieldtype.Type, keys []string, values []any) {
			seen = append(seen, keys...)
		},
	}
	d := New(a, dict, cb, archive.MaskAny)
	require.NoError(t, d.Walk())

	assert.Contains(t, seen, "keep")
	assert.Contains(t, seen, "after")
	assert.NotContains(t, seen, "hidden")
}

// TestWalkSkipObjectArrayRow verifies the per-row skip mask returned from
// BeforeVisitObjectArrayObjects suppresses exactly the masked row's
// column entries.
func TestWalkSkipObjectArrayRow(t *testing.T) {
	a, dict := buildArchive(t, `{"rows":[{"k":1,"v":"a"},{"k":2,"v":"b"},{"k":3,"v":"c"}]}`)

	var entries []int
	cb := Callbacks{
		BeforeVisitObjectArrayObjects: func(path string, numObjects int) []bool {
			skip := make([]bool, numObjects)
			skip[1] = true
			return skip
		},
		VisitObjectArrayProp: func(path, columnName string, t fieldtype.Type, groupObjectIndex int, values []any) {
			if columnName == "k" {
				entries = append(entries, groupObjectIndex)
			}
		},
	}
	d := New(a, dict, cb, archive.MaskAny)
	require.NoError(t, d.Walk())

	assert.ElementsMatch(t, []int{0, 2}, entries)
}

// TestWalkMaskFiltersGroups verifies a restrictive mask suppresses
// property groups of excluded types entirely.
func TestWalkMaskFiltersGroups(t *testing.T) {
	a, dict := buildArchive(t, `{"a":1, "b":"x"}`)

	var sawTypes []fieldtype.Type
	cb := Callbacks{
		PrimitiveGroup: func(path string, t fieldtype.Type, keys []string, values []any) {
			sawTypes = append(sawTypes, t)
		},
	}
	d := New(a, dict, cb, archive.MaskPrimitives|archive.MaskString)
	require.NoError(t, d.Walk())

	for _, typ := range sawTypes {
		assert.Equal(t, fieldtype.StringID, typ)
	}
}

// TestWalkPathStackDiscipline verifies the path stack is always restored
// after descending into and returning from a nested object, including
// when a sibling is visited afterward at the root path.
func TestWalkPathStackDiscipline(t *testing.T) {
	a, dict := buildArchive(t, `{"nested":{"x":1}, "after":2}`)

	var paths []string
	cb := Callbacks{
		PrimitiveGroup: func(path string, t fieldtype.Type, keys []string, values []any) {
			paths = append(paths, path)
		},
	}
	d := New(a, dict, cb, archive.MaskAny)
	require.NoError(t, d.Walk())

	assert.Contains(t, paths, "/nested")
	assert.Contains(t, paths, "/")
}

func TestWalkColumnGroupNestedObjectParentID(t *testing.T) {
	a, dict := buildArchive(t, `{"rows":[{"child":{"v":1}}]}`)

	var parentID, nestedID uint64
	cb := Callbacks{
		VisitObjectArrayNestedProperty: func(parentPath string, parent, nested uint64, columnName string) {
			parentID = parent
			nestedID = nested
		},
	}
	d := New(a, dict, cb, archive.MaskAny)
	require.NoError(t, d.Walk())

	assert.NotEqual(t, nestedID, parentID)
}

func TestAfterVisitObjectArrayFiresOncePerGroup(t *testing.T) {
	a, dict := buildArchive(t, `{"rows":[{"k":1},{"k":2}]}`)

	count := 0
	cb := Callbacks{
		AfterVisitObjectArray: func(path, key string) {
			count++
		},
	}
	d := New(a, dict, cb, archive.MaskAny)
	require.NoError(t, d.Walk())

	assert.Equal(t, 1, count)
}
