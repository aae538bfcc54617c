package archive_test

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/carbonarchive/carbon/internal/archive"
	"github.com/carbonarchive/carbon/internal/cim"
	"github.com/carbonarchive/carbon/internal/fieldtype"
	"github.com/carbonarchive/carbon/internal/oid"
	"github.com/carbonarchive/carbon/internal/visitor"
)

type concurrentTestDict struct {
	byStr map[string]uint64
	byID  map[uint64]string
	next  uint64
}

func newConcurrentTestDict() *concurrentTestDict {
	return &concurrentTestDict{byStr: map[string]uint64{}, byID: map[uint64]string{}, next: 1}
}

func (d *concurrentTestDict) Insert(s string) uint64 {
	if id, ok := d.byStr[s]; ok {
		return id
	}
	id := d.next
	d.next++
	d.byStr[s] = id
	d.byID[id] = s
	return id
}

func (d *concurrentTestDict) Extract(id uint64) (string, bool) {
	s, ok := d.byID[id]
	return s, ok
}

// keysOf walks a single root in document order and returns the scalar key
// names it observed, in visit order.
func keysOf(t *testing.T, a *archive.Archive, dict *concurrentTestDict, offset int64) []string {
	t.Helper()
	var keys []string
	cb := visitor.Callbacks{
		PrimitiveGroup: func(path string, typ fieldtype.Type, ks []string, values []any) {
			keys = append(keys, ks...)
		},
	}
	d := visitor.New(a, dict, cb, archive.MaskAny)
	require.NoError(t, d.WalkRoot(offset))
	return keys
}

// TestConcurrentIteratorsMatchSequential builds an archive with several
// independent root objects and walks them both sequentially and
// concurrently (one Driver per goroutine, errgroup-fanned), asserting the
// two produce the same per-root key names, each root's list sorted before
// comparison (spec §8 invariant 9).
func TestConcurrentIteratorsMatchSequential(t *testing.T) {
	dict := newConcurrentTestDict()
	b := cim.NewBuilder(dict, oid.NewAllocatorFrom(0))
	nodes, err := b.IngestJSON([]byte(`[
		{"a":1,"b":"x","c":[1,2,3]},
		{"a":2,"b":"y","c":[4,5]},
		{"a":3,"b":"z","c":[]},
		{"a":4,"b":"w","c":[6]}
	]`))
	require.NoError(t, err)
	for _, n := range nodes {
		cim.Sort(n, dict)
	}
	data, err := archive.Write(nodes)
	require.NoError(t, err)
	a, err := archive.OpenBytes(data)
	require.NoError(t, err)

	roots, err := a.Roots()
	require.NoError(t, err)
	require.Len(t, roots, 4)

	sequential := make([][]string, len(roots))
	for i, off := range roots {
		sequential[i] = keysOf(t, a, dict, off)
	}

	concurrent := make([][]string, len(roots))
	var g errgroup.Group
	for i, off := range roots {
		i, off := i, off
		g.Go(func() error {
			concurrent[i] = keysOf(t, a, dict, off)
			return nil
		})
	}
	require.NoError(t, g.Wait())

	for i := range roots {
		sort.Strings(sequential[i])
		sort.Strings(concurrent[i])
		assert.Equal(t, sequential[i], concurrent[i])
	}
}
