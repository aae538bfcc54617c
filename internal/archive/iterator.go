package archive

import (
	"github.com/carbonarchive/carbon/internal/fieldtype"
	"github.com/carbonarchive/carbon/pkg/errors"
)

// PropState is one state of the property iterator state machine (spec
// §4.3). States appear in a fixed order that consumers may rely on
// (invariant 3, §8): Init, 13 primitive-group states, 13 array-group states
// ending in ObjectArrays, then Done.
type PropState int

const (
	StateInit PropState = iota
	StateNulls
	StateBools
	StateI8s
	StateI16s
	StateI32s
	StateI64s
	StateU8s
	StateU16s
	StateU32s
	StateU64s
	StateFloats
	StateStrings
	StateObjects
	StateArrNulls
	StateArrBools
	StateArrI8s
	StateArrI16s
	StateArrI32s
	StateArrI64s
	StateArrU8s
	StateArrU16s
	StateArrU32s
	StateArrU64s
	StateArrFloats
	StateArrStrings
	StateObjectArrays
	StateDone
)

type stateInfo struct {
	state   PropState
	typ     fieldtype.Type
	isArray bool
	slot    int
}

// propOrder is the fixed traversal order, built once from fieldtype's type
// order so the primitive and array sections stay in lockstep with the
// slot-table layout in format.go.
var propOrder = buildPropOrder()

func buildPropOrder() []stateInfo {
	primitiveStates := []PropState{
		StateNulls, StateBools, StateI8s, StateI16s, StateI32s, StateI64s,
		StateU8s, StateU16s, StateU32s, StateU64s, StateFloats, StateStrings, StateObjects,
	}
	arrayStates := []PropState{
		StateArrNulls, StateArrBools, StateArrI8s, StateArrI16s, StateArrI32s, StateArrI64s,
		StateArrU8s, StateArrU16s, StateArrU32s, StateArrU64s, StateArrFloats, StateArrStrings,
	}
	out := make([]stateInfo, 0, numSlots)
	for i, st := range primitiveStates {
		t := fieldtype.Type(i)
		out = append(out, stateInfo{state: st, typ: t, isArray: false, slot: primitiveSlot(t)})
	}
	for i, st := range arrayStates {
		t := fieldtype.Type(i)
		out = append(out, stateInfo{state: st, typ: t, isArray: true, slot: arraySlot(t)})
	}
	out = append(out, stateInfo{state: StateObjectArrays, typ: fieldtype.Object, isArray: true, slot: objectArraysSlot()})
	return out
}

// Mode reports whether a Next call landed the iterator in object mode
// (a value vector) or collection mode (the ObjectArrays column-group
// chain).
type Mode int

const (
	ModeNone Mode = iota
	ModeObject
	ModeCollection
)

// PropIter walks one object's property groups in the fixed §4.3 order,
// skipping empty slots and anything the mask excludes.
type PropIter struct {
	archive *Archive
	header  *ObjectHeader
	mask    Mask
	pos     int // index into propOrder of the last state visited; -1 before Init
}

// NewPropIter opens a property iterator over header's groups, admitting
// only groups that pass mask.
func NewPropIter(a *Archive, header *ObjectHeader, mask Mask) *PropIter {
	return &PropIter{archive: a, header: header, mask: mask, pos: -1}
}

// State reports the state the iterator is currently positioned at.
func (it *PropIter) State() PropState {
	if it.pos < 0 {
		return StateInit
	}
	if it.pos >= len(propOrder) {
		return StateDone
	}
	return propOrder[it.pos].state
}

// Next advances to the next admitted, non-empty group and returns its mode
// and payload. At end of groups it returns ModeNone, nil, nil and State()
// reports StateDone.
func (it *PropIter) Next() (Mode, any, error) {
	for it.pos++; it.pos < len(propOrder); it.pos++ {
		info := propOrder[it.pos]
		offset := it.header.Slots[info.slot]
		if offset == 0 {
			continue
		}
		if info.state == StateObjectArrays {
			if !it.mask.PassesObjectArrays() {
				continue
			}
			coll, err := it.archive.openCollectionIter(offset, it.header.ObjectID)
			if err != nil {
				return ModeNone, nil, err
			}
			return ModeCollection, coll, nil
		}
		if !it.mask.Passes(info.typ, info.isArray) {
			continue
		}
		vv, err := it.readGroup(info, offset)
		if err != nil {
			return ModeNone, nil, err
		}
		vv.objectID = it.header.ObjectID
		return ModeObject, vv, nil
	}
	return ModeNone, nil, nil
}

func (it *PropIter) readGroup(info stateInfo, offset int64) (*ValueVector, error) {
	if info.isArray {
		if info.typ == fieldtype.Null {
			return it.archive.readNullArrayGroup(offset)
		}
		return it.archive.readArrayGroup(offset, info.typ)
	}
	return it.archive.readPrimitiveGroup(offset, info.typ)
}

// OpenPropIter builds a property iterator for the object at offset.
func (a *Archive) OpenPropIter(offset int64, mask Mask) (*PropIter, error) {
	h, err := a.OpenObject(offset)
	if err != nil {
		return nil, err
	}
	return NewPropIter(a, h, mask), nil
}

// errNotObjectMode describes an iterator that last yielded ModeCollection or
// has not yet been advanced. No function in this package returns it.
var errNotObjectMode = errors.New(errors.CodeIteratorNotInObjectMode, "iterator is not positioned on an object-mode group")
