package tileio

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/tilestore/tile"
)

func testHeader() Header {
	return Header{
		FormatVersion: tile.CurrentFormatVersion,
		PersistedSize: 123,
		TileSize:      400,
		Datatype:      tile.Float64,
		CellSize:      8,
		DimNum:        2,
		Pipeline:      []byte{1, 2, 1, 3},
	}
}

func TestHeader_EncodeDecode(t *testing.T) {
	h := testHeader()
	buf := h.Encode(nil)
	require.Len(t, buf, int(h.Size()))
	assert.Equal(t, "TDBT", string(buf[:4]))

	got, err := DecodeHeader(buf)
	require.NoError(t, err)
	assert.Equal(t, h, *got)
	assert.Equal(t, h.Size()+123, got.RecordSize())
}

func TestHeader_EncodeAppends(t *testing.T) {
	h := testHeader()
	buf := h.Encode([]byte("prefix"))

	got, err := DecodeHeader(buf[len("prefix"):])
	require.NoError(t, err)
	assert.Equal(t, h, *got)
}

func TestHeader_Corruption(t *testing.T) {
	h := testHeader()

	tests := []struct {
		name   string
		mutate func([]byte) []byte
		want   error
	}{
		{"short", func(b []byte) []byte { return b[:FixedHeaderSize-1] }, ErrCorrupt},
		{"truncated descriptor", func(b []byte) []byte { return b[:FixedHeaderSize+2] }, ErrCorrupt},
		{"bad magic", func(b []byte) []byte { b[0] = 'X'; return b }, ErrCorrupt},
		{"flipped bit", func(b []byte) []byte { b[10] ^= 1; return b }, ErrCorrupt},
		{"bad datatype", func(b []byte) []byte { b[24] = 0xff; return b }, ErrCorrupt},
		{"future version", func(b []byte) []byte { b[4] = byte(tile.CurrentFormatVersion + 1); return b }, ErrUnsupportedVersion},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := tt.mutate(h.Encode(nil))
			_, err := DecodeHeader(buf)
			require.ErrorIs(t, err, tt.want)
		})
	}
}
