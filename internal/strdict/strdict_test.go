package strdict

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInsertDedupes(t *testing.T) {
	d, err := New()
	require.NoError(t, err)
	defer d.Free()

	id1 := d.Insert("hello")
	id2 := d.Insert("hello")
	assert.Equal(t, id1, id2)
	assert.Equal(t, 1, d.Len())
}

func TestLocateFast(t *testing.T) {
	d, err := New()
	require.NoError(t, err)
	defer d.Free()

	_, ok := d.LocateFast("missing")
	assert.False(t, ok)

	id := d.Insert("present")
	got, ok := d.LocateFast("present")
	require.True(t, ok)
	assert.Equal(t, id, got)
}

func TestExtractRoundTrip(t *testing.T) {
	d, err := New()
	require.NoError(t, err)
	defer d.Free()

	id := d.Insert("round-trip")
	s, ok := d.Extract(id)
	require.True(t, ok)
	assert.Equal(t, "round-trip", s)
}

func TestExtractUnknownID(t *testing.T) {
	d, err := New()
	require.NoError(t, err)
	defer d.Free()

	_, ok := d.Extract(999999)
	assert.False(t, ok)
}

func TestConcurrentInsert(t *testing.T) {
	d, err := New()
	require.NoError(t, err)
	defer d.Free()

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			d.Insert("shared")
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, d.Len())
}
