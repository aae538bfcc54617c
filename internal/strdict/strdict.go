// Package strdict implements the string interning dictionary the archive
// core treats as an out-of-scope collaborator (spec §1): every key name and
// string value is assigned a 64-bit string_id here before it ever reaches a
// CIM column or an archive property group.
//
// This is a minimal, concrete collaborator built only so the CLI and
// converter have something to decode against — it is not part of the core's
// tested invariants, and the core never imports it directly; it is passed in
// through the small interface each package actually needs.
package strdict

import (
	"sync"

	"github.com/dgraph-io/ristretto"

	"github.com/carbonarchive/carbon/internal/fieldtype"
)

// Dictionary interns strings to ids and decodes ids back to strings. All
// methods are safe for concurrent use, per spec §5's requirement that the
// string dictionary and its optional cache implement their own locking.
type Dictionary struct {
	mu      sync.RWMutex
	strToID map[string]uint64
	idToStr map[uint64]string
	nextID  uint64

	// cache fronts Extract with a hot id->string lookup path, per SPEC_FULL's
	// "optional string-id cache" wired to ristretto. It is strictly an
	// accelerator: idToStr remains the source of truth so a cache miss or
	// eviction never loses data.
	cache *ristretto.Cache
}

// New creates an empty dictionary. string_id 0 is reserved as the null
// sentinel (fieldtype.NullStringID) and is never assigned to real content.
func New() (*Dictionary, error) {
	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: 1e5,
		MaxCost:     1 << 20,
		BufferItems: 64,
	})
	if err != nil {
		return nil, err
	}

	return &Dictionary{
		strToID: make(map[string]uint64),
		idToStr: make(map[uint64]string),
		nextID:  fieldtype.NullStringID + 1,
		cache:   cache,
	}, nil
}

// Insert interns s, returning its existing id if already present or a fresh
// one otherwise.
func (d *Dictionary) Insert(s string) uint64 {
	d.mu.RLock()
	if id, ok := d.strToID[s]; ok {
		d.mu.RUnlock()
		return id
	}
	d.mu.RUnlock()

	d.mu.Lock()
	defer d.mu.Unlock()
	if id, ok := d.strToID[s]; ok {
		return id
	}
	id := d.nextID
	d.nextID++
	d.strToID[s] = id
	d.idToStr[id] = s
	d.cache.Set(id, s, int64(len(s)))
	return id
}

// LocateFast returns the id already assigned to s, if any, without
// inserting.
func (d *Dictionary) LocateFast(s string) (uint64, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	id, ok := d.strToID[s]
	return id, ok
}

// Extract decodes id back to its interned string.
func (d *Dictionary) Extract(id uint64) (string, bool) {
	if v, ok := d.cache.Get(id); ok {
		return v.(string), true
	}

	d.mu.RLock()
	s, ok := d.idToStr[id]
	d.mu.RUnlock()
	if ok {
		d.cache.Set(id, s, int64(len(s)))
	}
	return s, ok
}

// Len returns the number of distinct strings interned so far.
func (d *Dictionary) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.strToID)
}

// Free releases the dictionary's cache resources.
func (d *Dictionary) Free() {
	d.cache.Close()
}
