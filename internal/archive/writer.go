package archive

import (
	"encoding/binary"
	"os"

	"github.com/carbonarchive/carbon/internal/cim"
	"github.com/carbonarchive/carbon/internal/fieldtype"
	"github.com/carbonarchive/carbon/pkg/errors"
)

// Write serializes a forest of ingested CIM nodes into an archive byte
// block matching the layout format.go/header.go/collection.go expect to
// read back. The on-disk archive writer is an external collaborator in the
// upstream design (spec §1 non-goals); this is the module's own
// self-contained counterpart, needed so the reader side has real bytes to
// exercise end to end.
func Write(roots []*cim.Node) ([]byte, error) {
	return write(roots)
}

// WriteFile serializes roots and writes the result to path.
func WriteFile(path string, roots []*cim.Node) error {
	data, err := write(roots)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func write(roots []*cim.Node) ([]byte, error) {
	buf := make([]byte, 0, 4096)
	buf = append(buf, Magic[:]...)
	dirOffPos := len(buf)
	buf = appendU64(buf, 0) // patched below

	headOffsets, err := writeSiblingChain(&buf, roots)
	if err != nil {
		return nil, err
	}

	dirOffset := uint64(len(buf))
	buf = appendU32(buf, uint32(len(headOffsets)))
	for _, off := range headOffsets {
		buf = appendI64(buf, off)
	}
	binary.LittleEndian.PutUint64(buf[dirOffPos:dirOffPos+8], dirOffset)
	return buf, nil
}

func writeSiblingChain(buf *[]byte, nodes []*cim.Node) ([]int64, error) {
	offsets := make([]int64, len(nodes))
	patchPos := make([]int64, len(nodes))
	for i, n := range nodes {
		off, pos, err := writeNode(buf, n)
		if err != nil {
			return nil, err
		}
		offsets[i] = off
		patchPos[i] = pos
	}
	for i := 0; i < len(nodes)-1; i++ {
		patchI64At(*buf, patchPos[i], offsets[i+1])
	}
	return offsets, nil
}

// writeNode writes one node's full subtree (nested objects and column
// groups first, then this node's property groups, then its own header) and
// returns the header's offset and the byte position of its nextObjOff
// field, for the caller to patch once the sibling's offset is known.
func writeNode(buf *[]byte, n *cim.Node) (headerOffset int64, nextObjOffPos int64, err error) {
	var slots [numSlots]int64

	for t, bucket := range n.Primitives {
		off, err := writePrimitiveGroup(buf, t, bucket)
		if err != nil {
			return 0, 0, err
		}
		slots[primitiveSlot(t)] = off
	}
	if n.Objects != nil {
		off, err := writeObjectBucket(buf, n.Objects)
		if err != nil {
			return 0, 0, err
		}
		slots[primitiveSlot(fieldtype.Object)] = off
	}
	for t, bucket := range n.Arrays {
		off := writeArrayGroup(buf, t, bucket)
		slots[arraySlot(t)] = off
	}
	if n.NullArrays != nil {
		off := writeNullArrayGroup(buf, n.NullArrays)
		slots[arraySlot(fieldtype.Null)] = off
	}
	if len(n.ObjectArrayGroups) > 0 {
		off, err := writeObjectArrayGroups(buf, n.ObjectArrayGroups)
		if err != nil {
			return 0, 0, err
		}
		slots[objectArraysSlot()] = off
	}

	headerOffset = int64(len(*buf))
	*buf = append(*buf, MarkerObjectBegin)
	*buf = appendU64(*buf, n.ObjectID)
	*buf = appendU32(*buf, 0) // flags
	nextObjOffPos = int64(len(*buf))
	*buf = appendI64(*buf, 0) // nextObjOff placeholder
	for _, s := range slots {
		*buf = appendI64(*buf, s)
	}
	return headerOffset, nextObjOffPos, nil
}

func writePrimitiveGroup(buf *[]byte, t fieldtype.Type, col *cim.PrimitiveColumn) (int64, error) {
	off := int64(len(*buf))
	*buf = append(*buf, MarkerPrimitive, byte(t))
	*buf = appendU32(*buf, uint32(len(col.Keys)))
	for _, k := range col.Keys {
		*buf = appendU64(*buf, k)
	}
	if t == fieldtype.Object {
		return 0, errors.New(errors.CodeInternalInvariant, "object primitives must use writeObjectBucket")
	}
	for _, v := range col.Values {
		*buf = encodeScalar(*buf, t, v)
	}
	return off, nil
}

func writeObjectBucket(buf *[]byte, col *cim.ObjectColumn) (int64, error) {
	childOffsets := make([]int64, len(col.Children))
	for i, child := range col.Children {
		childOff, _, err := writeNode(buf, child)
		if err != nil {
			return 0, err
		}
		childOffsets[i] = childOff
	}
	off := int64(len(*buf))
	*buf = append(*buf, MarkerPrimitive, byte(fieldtype.Object))
	*buf = appendU32(*buf, uint32(len(col.Keys)))
	for _, k := range col.Keys {
		*buf = appendU64(*buf, k)
	}
	for _, co := range childOffsets {
		*buf = appendI64(*buf, co)
	}
	return off, nil
}

func writeArrayGroup(buf *[]byte, t fieldtype.Type, col *cim.ArrayColumn) int64 {
	off := int64(len(*buf))
	*buf = append(*buf, MarkerArray, byte(t))
	*buf = appendU32(*buf, uint32(len(col.Keys)))
	for _, k := range col.Keys {
		*buf = appendU64(*buf, k)
	}
	for _, entry := range col.Values {
		*buf = appendU32(*buf, uint32(len(entry)))
	}
	for _, entry := range col.Values {
		for _, v := range entry {
			*buf = encodeScalar(*buf, t, v)
		}
	}
	return off
}

func writeNullArrayGroup(buf *[]byte, col *cim.NullArrayColumn) int64 {
	off := int64(len(*buf))
	*buf = append(*buf, MarkerNullArray)
	*buf = appendU32(*buf, uint32(len(col.Keys)))
	for _, k := range col.Keys {
		*buf = appendU64(*buf, k)
	}
	for _, c := range col.Counts {
		*buf = appendU32(*buf, c)
	}
	return off
}

func writeObjectArrayGroups(buf *[]byte, groups []*cim.ColumnGroup) (int64, error) {
	groupOffsets := make([]int64, len(groups))
	for i, g := range groups {
		off, err := writeColumnGroup(buf, g)
		if err != nil {
			return 0, err
		}
		groupOffsets[i] = off
	}
	off := int64(len(*buf))
	*buf = append(*buf, MarkerObjectArray)
	*buf = appendU32(*buf, uint32(len(groups)))
	for i, g := range groups {
		*buf = appendU64(*buf, g.Key)
		*buf = appendI64(*buf, groupOffsets[i])
	}
	return off, nil
}

func writeColumnGroup(buf *[]byte, g *cim.ColumnGroup) (int64, error) {
	colOffsets := make([]int64, len(g.Columns))
	for i, col := range g.Columns {
		off, err := writeObjectArrayColumn(buf, col)
		if err != nil {
			return 0, err
		}
		colOffsets[i] = off
	}
	off := int64(len(*buf))
	*buf = append(*buf, MarkerColumnGroup)
	*buf = appendU32(*buf, uint32(len(g.ObjectIDs)))
	for _, id := range g.ObjectIDs {
		*buf = appendU64(*buf, id)
	}
	*buf = appendU32(*buf, uint32(len(g.Columns)))
	for _, co := range colOffsets {
		*buf = appendI64(*buf, co)
	}
	return off, nil
}

// writeObjectArrayColumn emits one column exactly as spec.md:198 lays it
// out: { marker, name, value_type, num_entries, entry_offsets[num_entries],
// entry_positions[num_entries], payload }. entry_offsets[i] is, for an
// Object column, the absolute archive offset of entry i's nested sibling
// chain head (0 if empty); for a scalar column, the byte offset of entry
// i's self-describing {array_length, array_bytes} chunk within the
// payload region that follows entry_positions.
func writeObjectArrayColumn(buf *[]byte, col *cim.ObjectArrayColumn) (int64, error) {
	if col.Type == fieldtype.Object {
		objectHeads := make([]int64, len(col.Children))
		for i, chain := range col.Children {
			head, err := writeSiblingChain(buf, chain)
			if err != nil {
				return 0, err
			}
			if len(head) == 0 {
				objectHeads[i] = 0
			} else {
				objectHeads[i] = head[0]
			}
		}

		off := int64(len(*buf))
		*buf = append(*buf, MarkerColumn)
		*buf = appendU64(*buf, col.NameKey)
		*buf = append(*buf, byte(col.Type))
		*buf = appendU32(*buf, uint32(len(col.EntryPositions)))
		for _, h := range objectHeads {
			*buf = appendI64(*buf, h)
		}
		for _, p := range col.EntryPositions {
			*buf = appendU32(*buf, p)
		}
		return off, nil
	}

	var payload []byte
	offsets := make([]int64, len(col.Values))
	for i, entry := range col.Values {
		offsets[i] = int64(len(payload))
		payload = appendU32(payload, uint32(len(entry)))
		for _, v := range entry {
			payload = encodeScalar(payload, col.Type, v)
		}
	}

	off := int64(len(*buf))
	*buf = append(*buf, MarkerColumn)
	*buf = appendU64(*buf, col.NameKey)
	*buf = append(*buf, byte(col.Type))
	*buf = appendU32(*buf, uint32(len(col.EntryPositions)))
	for _, o := range offsets {
		*buf = appendI64(*buf, o)
	}
	for _, p := range col.EntryPositions {
		*buf = appendU32(*buf, p)
	}
	*buf = append(*buf, payload...)
	return off, nil
}

func appendU32(buf []byte, v uint32) []byte { return binary.LittleEndian.AppendUint32(buf, v) }
func appendU64(buf []byte, v uint64) []byte { return binary.LittleEndian.AppendUint64(buf, v) }
func appendI64(buf []byte, v int64) []byte  { return binary.LittleEndian.AppendUint64(buf, uint64(v)) }

func patchI64At(buf []byte, pos int64, v int64) {
	binary.LittleEndian.PutUint64(buf[pos:pos+8], uint64(v))
}
