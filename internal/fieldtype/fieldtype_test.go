package fieldtype

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestByteWidth(t *testing.T) {
	tests := []struct {
		typ   Type
		width int
	}{
		{Null, 0},
		{Bool, 1},
		{I8, 1},
		{U8, 1},
		{I16, 2},
		{U16, 2},
		{I32, 4},
		{U32, 4},
		{F32, 4},
		{I64, 8},
		{U64, 8},
		{StringID, 8},
		{Object, 0},
	}

	for _, tt := range tests {
		t.Run(tt.typ.String(), func(t *testing.T) {
			assert.Equal(t, tt.width, tt.typ.ByteWidth())
		})
	}
}

func TestNullSentinels(t *testing.T) {
	assert.Equal(t, int8(-128), NullI8)
	assert.Equal(t, uint8(255), NullU8)
	assert.True(t, IsNullF32(NullF32))
	assert.False(t, IsNullF32(0))
	assert.Equal(t, uint64(0), NullStringID)
}

func TestWiden(t *testing.T) {
	tests := []struct {
		name    string
		a, b    Type
		want    Type
		wantErr bool
	}{
		{"same signed", I8, I8, I8, false},
		{"widen signed up", I8, I32, I32, false},
		{"widen signed down commutative", I32, I8, I32, false},
		{"widen unsigned", U8, U64, U64, false},
		{"f32 absorbs int", I32, F32, F32, false},
		{"f32 absorbs uint", U16, F32, F32, false},
		{"signed and unsigned reject", I8, U8, 0, true},
		{"string and number reject", StringID, I8, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Widen(tt.a, tt.b)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestInferArrayType(t *testing.T) {
	tests := []struct {
		name    string
		elems   []Type
		want    Type
		wantErr bool
	}{
		{"empty", nil, Null, false},
		{"all i8", []Type{I8, I8}, I8, false},
		{"widening chain", []Type{I8, I16, I32}, I32, false},
		{"absorbs float", []Type{I8, F32}, F32, false},
		{"mixed string and number", []Type{I8, StringID}, 0, true},
		{"mixed signed unsigned", []Type{I8, U8}, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := InferArrayType(tt.elems)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
