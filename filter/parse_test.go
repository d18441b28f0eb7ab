package filter

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	filters, err := Parse("shuffle, zstd:7,gzip,lz4,s2,crc32c,blake3,none")
	require.NoError(t, err)

	var types []Type
	for _, f := range filters {
		types = append(types, f.Type())
	}
	assert.Equal(t, []Type{TypeShuffle, TypeZSTD, TypeGZIP, TypeLZ4, TypeS2, TypeCRC32C, TypeBLAKE3, TypeNone}, types)
	assert.Equal(t, NewZSTD(7).Params(), filters[1].Params())

	empty, err := Parse("")
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		in   string
		want error
	}{
		{"brotli", ErrUnknownFilter},
		{"xchacha20poly1305", ErrMissingKey},
	}
	for _, tt := range tests {
		_, err := Parse(tt.in)
		assert.ErrorIs(t, err, tt.want, tt.in)
	}

	for _, in := range []string{"lz4:3", "zstd:fast", "gzip:12"} {
		_, err := Parse(in)
		assert.Error(t, err, in)
	}
}

func TestDescriptorTypes(t *testing.T) {
	enc, err := NewXChaCha20Poly1305(bytes.Repeat([]byte{2}, KeySize))
	require.NoError(t, err)
	desc, err := NewPipeline([]Filter{Shuffle{}, NewGZIP(4), enc}).MarshalBinary()
	require.NoError(t, err)

	types, err := DescriptorTypes(desc)
	require.NoError(t, err)
	assert.Equal(t, []Type{TypeShuffle, TypeGZIP, TypeXChaCha20Poly1305}, types)

	_, err = DescriptorTypes(desc[:len(desc)-1])
	assert.ErrorIs(t, err, ErrCorrupt)
	_, err = DescriptorTypes(append(bytes.Clone(desc), 0))
	assert.ErrorIs(t, err, ErrCorrupt)
}
