package archive

import (
	"encoding/binary"
	"math"

	"github.com/carbonarchive/carbon/internal/fieldtype"
	"github.com/carbonarchive/carbon/pkg/errors"
)

// GroupDescriptor identifies a property group's shape: its value type and
// whether it is a primitive group or an array group. Referenced by
// fieldtype's docs as the consumer of the is-array flag the Type enum
// itself doesn't carry.
type GroupDescriptor struct {
	Type    fieldtype.Type
	IsArray bool
}

// encodeScalar appends the little-endian fixed-width encoding of v (which
// must already be v's Go representation for t, as produced by cim's
// ingest) to buf.
func encodeScalar(buf []byte, t fieldtype.Type, v any) []byte {
	switch t {
	case fieldtype.Bool:
		return append(buf, v.(uint8))
	case fieldtype.I8:
		return append(buf, byte(v.(int8)))
	case fieldtype.U8:
		return append(buf, v.(uint8))
	case fieldtype.I16:
		return binary.LittleEndian.AppendUint16(buf, uint16(v.(int16)))
	case fieldtype.U16:
		return binary.LittleEndian.AppendUint16(buf, v.(uint16))
	case fieldtype.I32:
		return binary.LittleEndian.AppendUint32(buf, uint32(v.(int32)))
	case fieldtype.U32:
		return binary.LittleEndian.AppendUint32(buf, v.(uint32))
	case fieldtype.F32:
		return binary.LittleEndian.AppendUint32(buf, math.Float32bits(v.(float32)))
	case fieldtype.I64:
		return binary.LittleEndian.AppendUint64(buf, uint64(v.(int64)))
	case fieldtype.U64:
		return binary.LittleEndian.AppendUint64(buf, v.(uint64))
	case fieldtype.StringID:
		return binary.LittleEndian.AppendUint64(buf, v.(uint64))
	default:
		return buf
	}
}

// decodeScalar reads one t-typed scalar from b[0:width] and returns it as
// the same Go representation encodeScalar accepts.
func decodeScalar(b []byte, t fieldtype.Type) any {
	switch t {
	case fieldtype.Bool:
		return b[0]
	case fieldtype.I8:
		return int8(b[0])
	case fieldtype.U8:
		return b[0]
	case fieldtype.I16:
		return int16(binary.LittleEndian.Uint16(b))
	case fieldtype.U16:
		return binary.LittleEndian.Uint16(b)
	case fieldtype.I32:
		return int32(binary.LittleEndian.Uint32(b))
	case fieldtype.U32:
		return binary.LittleEndian.Uint32(b)
	case fieldtype.F32:
		return math.Float32frombits(binary.LittleEndian.Uint32(b))
	case fieldtype.I64:
		return int64(binary.LittleEndian.Uint64(b))
	case fieldtype.U64:
		return binary.LittleEndian.Uint64(b)
	case fieldtype.StringID:
		return binary.LittleEndian.Uint64(b)
	default:
		return nil
	}
}

func requireWidth(t fieldtype.Type) (int, error) {
	w := t.ByteWidth()
	if w == 0 {
		return 0, errors.New(errors.CodeInternalInvariant, "type has no fixed scalar width")
	}
	return w, nil
}
