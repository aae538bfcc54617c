// Package archive implements the read side of the carbon archive format: a
// record table of fixed-layout object headers, each carrying a 26-slot
// property-offset table, plus the property iterator state machine, the
// value vector, and the four-layer collection iterator chain that walks
// array-of-objects column groups (spec §3-§6).
package archive

import "github.com/carbonarchive/carbon/internal/fieldtype"

// Marker bytes identify the kind of record at a given memfile offset. Every
// property group, object header, and column structure starts with one.
const (
	MarkerObjectBegin  byte = 0xB0
	MarkerColumnGroup  byte = 0xB1
	MarkerColumn       byte = 0xB2
	MarkerPrimitive    byte = 0xB3
	MarkerArray        byte = 0xB4
	MarkerNullArray    byte = 0xB5
	MarkerObjectArray  byte = 0xB6
)

// numTypes is the size of fieldtype's closed type enum (13: Null through
// Object).
const numTypes = 13

// numSlots is the fixed property-offset table width: one primitive slot and
// one array slot per type, except Object's array slot is structurally
// impossible (arrays of objects decompose into column groups, never a flat
// "array of Object" property group) and is repurposed as the single
// distinguished object-arrays slot. 13 + 13 stays 26 (spec §3, §6:
// "prop_offsets:26x8").
const numSlots = 2 * numTypes

// primitiveSlot returns the property-offset table index for a scalar group
// of type t.
func primitiveSlot(t fieldtype.Type) int {
	return int(t)
}

// arraySlot returns the property-offset table index for an array group of
// type t. t must not be fieldtype.Object; use objectArraysSlot instead.
func arraySlot(t fieldtype.Type) int {
	return numTypes + int(t)
}

// objectArraysSlot is the slot repurposed for array-of-objects column
// groups — the structurally unused "array of Object" position.
func objectArraysSlot() int {
	return numTypes + int(fieldtype.Object)
}

// Magic is the fixed header every archive file begins with.
var Magic = [8]byte{'C', 'A', 'R', 'B', 'O', 'N', 0x01, 0x00}

// Flags bits on an object header.
const (
	FlagReadOptimized uint32 = 1 << 0
)
