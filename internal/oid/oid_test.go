package oid

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAllocatorMonotonic(t *testing.T) {
	a := NewAllocatorFrom(0)
	first := a.Next()
	second := a.Next()
	assert.Less(t, first, second)
}

func TestAllocatorUniqueConcurrent(t *testing.T) {
	a := NewAllocatorFrom(0)
	const n = 1000

	seen := make(chan ID, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			seen <- a.Next()
		}()
	}
	wg.Wait()
	close(seen)

	ids := make(map[ID]bool, n)
	for id := range seen {
		assert.False(t, ids[id], "duplicate id allocated")
		ids[id] = true
	}
	assert.Len(t, ids, n)
}

func TestNewAllocatorSeeded(t *testing.T) {
	a := NewAllocator()
	assert.NotZero(t, a.Next())
}
