// Package visitor implements the archive traversal driver: a depth-first
// walk over one object's property groups and nested/array-of-object
// subtrees, dispatching to an optional-callback bundle and maintaining a
// path stack (spec §4.6).
package visitor

import (
	"strconv"
	"strings"

	"github.com/carbonarchive/carbon/internal/archive"
	"github.com/carbonarchive/carbon/internal/fieldtype"
)

// Result controls descent after a before_* callback fires.
type Result int

const (
	// Continue descends normally.
	Continue Result = iota
	// Exclude skips the subtree the callback guards.
	Exclude
)

// KeyText resolves interned string ids back to their decoded text, both
// for path construction and for string-valued scalars.
type KeyText interface {
	Extract(id uint64) (string, bool)
}

// Callbacks is a capability bundle: every field is optional, and the driver
// treats a nil callback as a no-op (spec §9 design note on dynamic
// dispatch). Scalar/array groups are reported generically via PrimitiveGroup
// and the BeforeArrayGroup/ArrayEntry/AfterArrayGroup trio rather than one
// family per type — the closed FieldType enum
// already gives callers what they need to specialize, without 13 duplicated
// callback fields apiece.
type Callbacks struct {
	BeforeVisitStarts func()
	AfterVisitEnds    func()

	VisitRootObject  func(objectID uint64)
	BeforeObjectVisit func(path string, objectID uint64) Result
	AfterObjectVisit  func(path string, objectID uint64)

	// PrimitiveGroup is called once per scalar property group.
	PrimitiveGroup func(path string, t fieldtype.Type, keys []string, values []any)

	// Array property groups: BeforeArrayGroup fires before the per-entry
	// callback, ArrayEntry fires once per array entry, AfterArrayGroup fires
	// after the last entry.
	BeforeArrayGroup func(path string, t fieldtype.Type) Result
	ArrayEntry       func(path string, t fieldtype.Type, key string, index int, values []any)
	AfterArrayGroup  func(path string, t fieldtype.Type)

	// Object-array (column group) callbacks.
	BeforeVisitObjectArray        func(path string, key string) Result
	AfterVisitObjectArray         func(path string, key string)
	BeforeVisitObjectArrayObjects func(path string, numObjects int) []bool // returned slice, if non-nil, is the per-object skip mask
	BeforeVisitObjectArrayObjectProperty func(path string, columnName string, t fieldtype.Type) Result
	BeforeObjectArrayObjectPropertyObject func(path string, columnName string, groupIndex int, objectID uint64) Result
	GetColumnEntryCount                  func(path string, columnName string, count int) bool
	VisitObjectArrayProp                 func(path string, columnName string, t fieldtype.Type, groupObjectIndex int, values []any)
	VisitObjectArrayNestedProperty        func(parentPath string, parentObjectID, nestedObjectID uint64, columnName string)

	VisitObjectProperty func(path string, key string)

	FirstPropTypeGroup func(path string, t fieldtype.Type)
	NextPropTypeGroup  func(path string, t fieldtype.Type)
}

// Driver walks an archive with a fixed callback bundle and mask.
type Driver struct {
	a     *archive.Archive
	dict  KeyText
	cb    Callbacks
	mask  archive.Mask
	stack []string
	objs  []uint64
}

// New creates a traversal driver. A zero-value cb is treated as an
// all-no-op bundle.
func New(a *archive.Archive, dict KeyText, cb Callbacks, mask archive.Mask) *Driver {
	return &Driver{a: a, dict: dict, cb: cb, mask: mask}
}

func (d *Driver) keyText(id uint64) string {
	s, _ := d.dict.Extract(id)
	return s
}

func (d *Driver) push(name string) { d.stack = append(d.stack, name) }
func (d *Driver) pop()             { d.stack = d.stack[:len(d.stack)-1] }

func (d *Driver) currentObjectID() uint64 {
	if len(d.objs) == 0 {
		return 0
	}
	return d.objs[len(d.objs)-1]
}

// Path serializes the current stack per spec §6: "/" for the root,
// otherwise "/key1/key2/…".
func (d *Driver) Path() string {
	if len(d.stack) == 0 {
		return "/"
	}
	return "/" + strings.Join(d.stack, "/")
}

// Walk traverses every root object's subtree in document order.
func (d *Driver) Walk() error {
	if d.cb.BeforeVisitStarts != nil {
		d.cb.BeforeVisitStarts()
	}
	defer func() {
		if d.cb.AfterVisitEnds != nil {
			d.cb.AfterVisitEnds()
		}
	}()

	roots, err := d.a.Roots()
	if err != nil {
		return err
	}
	for _, off := range roots {
		if err := d.walkObjectAt(off); err != nil {
			return err
		}
	}
	return nil
}

// WalkRoot walks a single root object, identified by its record-table
// offset (as returned by Archive.Roots), inside the same
// BeforeVisitStarts/AfterVisitEnds bracket Walk uses. It lets a caller fan
// independent root objects out across goroutines, one Driver per root,
// while sharing the same read-only Archive (invariant 9, §8: concurrent
// iterators over one archive must be independent of each other).
func (d *Driver) WalkRoot(offset int64) error {
	if d.cb.BeforeVisitStarts != nil {
		d.cb.BeforeVisitStarts()
	}
	defer func() {
		if d.cb.AfterVisitEnds != nil {
			d.cb.AfterVisitEnds()
		}
	}()
	return d.walkObjectAt(offset)
}

func (d *Driver) walkObjectAt(offset int64) error {
	header, err := d.a.OpenObject(offset)
	if err != nil {
		return err
	}
	if d.cb.VisitRootObject != nil && len(d.stack) == 0 {
		d.cb.VisitRootObject(header.ObjectID)
	}
	return d.walkObject(header)
}

// walkObject drives one object's property iterator, honoring the skip
// semantics of spec §4.6. Every push is paired with a pop on every exit
// path, including early Exclude and error returns.
func (d *Driver) walkObject(header *archive.ObjectHeader) error {
	path := d.Path()
	if d.cb.BeforeObjectVisit != nil {
		if d.cb.BeforeObjectVisit(path, header.ObjectID) == Exclude {
			return nil
		}
	}
	defer func() {
		if d.cb.AfterObjectVisit != nil {
			d.cb.AfterObjectVisit(path, header.ObjectID)
		}
	}()

	d.objs = append(d.objs, header.ObjectID)
	defer func() { d.objs = d.objs[:len(d.objs)-1] }()

	it := archive.NewPropIter(d.a, header, d.mask)
	firstOfGroup := true
	var lastType fieldtype.Type
	for {
		mode, payload, err := it.Next()
		if err != nil {
			return err
		}
		if mode == archive.ModeNone {
			return nil
		}
		if mode == archive.ModeCollection {
			if err := d.walkCollection(payload.(*archive.CollectionIter)); err != nil {
				return err
			}
			continue
		}
		vv := payload.(*archive.ValueVector)
		if firstOfGroup || vv.BaseType() != lastType {
			if d.cb.FirstPropTypeGroup != nil && firstOfGroup {
				d.cb.FirstPropTypeGroup(path, vv.BaseType())
			} else if d.cb.NextPropTypeGroup != nil {
				d.cb.NextPropTypeGroup(path, vv.BaseType())
			}
			firstOfGroup = false
			lastType = vv.BaseType()
		}
		if err := d.walkValueVector(vv); err != nil {
			return err
		}
	}
}

func (d *Driver) walkValueVector(vv *archive.ValueVector) error {
	path := d.Path()
	keys := make([]string, vv.Len())
	for i, k := range vv.Keys() {
		keys[i] = d.keyText(k)
	}

	if !vv.IsArray() {
		if vv.BaseType() == fieldtype.Object {
			for i, k := range keys {
				if d.cb.VisitObjectProperty != nil {
					d.cb.VisitObjectProperty(path, k)
				}
				child, err := vv.ObjectAt(i)
				if err != nil {
					return err
				}
				d.push(k)
				err = d.walkObject(child)
				d.pop()
				if err != nil {
					return err
				}
			}
			return nil
		}
		values, err := vv.AsPrimitives()
		if err != nil {
			return err
		}
		if d.cb.PrimitiveGroup != nil {
			d.cb.PrimitiveGroup(path, vv.BaseType(), keys, values)
		}
		return nil
	}

	if d.cb.BeforeArrayGroup != nil {
		if d.cb.BeforeArrayGroup(path, vv.BaseType()) == Exclude {
			return nil
		}
	}
	defer func() {
		if d.cb.AfterArrayGroup != nil {
			d.cb.AfterArrayGroup(path, vv.BaseType())
		}
	}()

	if vv.BaseType() == fieldtype.Null {
		counts, err := vv.NullArrayCounts()
		if err != nil {
			return err
		}
		for i, k := range keys {
			if d.cb.ArrayEntry != nil {
				nulls := make([]any, counts[i])
				d.cb.ArrayEntry(path, fieldtype.Null, k, i, nulls)
			}
		}
		return nil
	}

	for i, k := range keys {
		entry, err := vv.ArrayAt(i)
		if err != nil {
			return err
		}
		if d.cb.ArrayEntry != nil {
			d.cb.ArrayEntry(path, vv.BaseType(), k, i, entry)
		}
	}
	return nil
}

func (d *Driver) walkCollection(coll *archive.CollectionIter) error {
	path := d.Path()
	for {
		key, group, ok, err := coll.Next()
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		keyName := d.keyText(key)
		if d.cb.BeforeVisitObjectArray != nil {
			if d.cb.BeforeVisitObjectArray(path, keyName) == Exclude {
				continue
			}
		}
		d.push(keyName)
		err = d.walkColumnGroup(group)
		d.pop()
		if d.cb.AfterVisitObjectArray != nil {
			d.cb.AfterVisitObjectArray(path, keyName)
		}
		if err != nil {
			return err
		}
	}
}

func (d *Driver) walkColumnGroup(group *archive.ColumnGroupIter) error {
	path := d.Path()
	numObjects := group.NumObjects()
	var skip []bool
	if d.cb.BeforeVisitObjectArrayObjects != nil {
		skip = d.cb.BeforeVisitObjectArrayObjects(path, numObjects)
	}
	isSkipped := func(i int) bool { return skip != nil && i < len(skip) && skip[i] }

	for {
		col, ok, err := group.Next()
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		colName := d.keyText(col.NameKey)
		if d.cb.BeforeVisitObjectArrayObjectProperty != nil {
			if d.cb.BeforeVisitObjectArrayObjectProperty(path, colName, col.Type) == Exclude {
				continue
			}
		}
		if err := d.walkColumn(path, col, colName, isSkipped); err != nil {
			return err
		}
	}
}

func (d *Driver) walkColumn(path string, col *archive.ColumnIter, colName string, isSkipped func(int) bool) error {
	n := col.Len()
	if d.cb.GetColumnEntryCount != nil {
		if !d.cb.GetColumnEntryCount(path, colName, n) {
			return nil
		}
	}
	for i := 0; i < n; i++ {
		groupIdx := int(col.EntryPositions[i])
		if isSkipped(groupIdx) {
			continue
		}
		entryPath := path + "/" + colName + "[" + strconv.Itoa(groupIdx) + "]"
		if col.Type == fieldtype.Object {
			if d.cb.BeforeObjectArrayObjectPropertyObject != nil {
				child, err := col.ObjectAt(i)
				if err != nil {
					return err
				}
				if d.cb.BeforeObjectArrayObjectPropertyObject(path, colName, groupIdx, child.ObjectID) == Exclude {
					continue
				}
				if d.cb.VisitObjectArrayNestedProperty != nil {
					d.cb.VisitObjectArrayNestedProperty(path, d.currentObjectID(), child.ObjectID, colName)
				}
				d.push(colName + "[" + strconv.Itoa(groupIdx) + "]")
				err = d.walkObject(child)
				d.pop()
				if err != nil {
					return err
				}
				continue
			}
			child, err := col.ObjectAt(i)
			if err != nil {
				return err
			}
			d.push(colName + "[" + strconv.Itoa(groupIdx) + "]")
			err = d.walkObject(child)
			d.pop()
			if err != nil {
				return err
			}
			continue
		}
		values, err := col.EntryAt(i)
		if err != nil {
			return err
		}
		if d.cb.VisitObjectArrayProp != nil {
			d.cb.VisitObjectArrayProp(entryPath, colName, col.Type, groupIdx, values)
		}
	}
	return nil
}
