package filter

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleChunk() []byte {
	out := make([]byte, 0, 4096)
	for i := 0; i < 1024; i++ {
		out = binary.LittleEndian.AppendUint32(out, uint32(i/3))
	}
	return out
}

func allFilters(t *testing.T) []Filter {
	t.Helper()

	enc, err := NewXChaCha20Poly1305(bytes.Repeat([]byte{7}, KeySize))
	require.NoError(t, err)

	return []Filter{
		None{},
		LZ4{},
		NewZSTD(0),
		NewZSTD(19),
		NewGZIP(0),
		NewGZIP(9),
		S2{},
		Shuffle{},
		CRC32C{},
		BLAKE3{},
		enc,
	}
}

func TestFilters_RoundTrip(t *testing.T) {
	inputs := map[string][]byte{
		"compressible": sampleChunk(),
		"random-ish":   []byte("q8#jd0!kz,mA^2"),
		"empty":        {},
		"single":       {42},
	}

	for _, f := range allFilters(t) {
		for name, in := range inputs {
			t.Run(f.Type().String()+"/"+name, func(t *testing.T) {
				orig := bytes.Clone(in)

				out, meta, err := f.Forward(in, 4)
				require.NoError(t, err)
				assert.Equal(t, orig, in, "Forward must not modify its input")

				got, err := f.Reverse(out, meta, 4)
				require.NoError(t, err)
				assert.Equal(t, len(orig), len(got))
				if len(orig) > 0 {
					assert.Equal(t, orig, got)
				}
			})
		}
	}
}

func TestCompression_Shrinks(t *testing.T) {
	in := sampleChunk()
	for _, f := range []Filter{LZ4{}, NewZSTD(0), NewGZIP(0), S2{}} {
		out, meta, err := f.Forward(in, 4)
		require.NoError(t, err)
		assert.Less(t, len(out), len(in), f.Type().String())
		assert.Equal(t, blockCompressed, meta[0])
	}
}

func TestCompression_IncompressibleStoredRaw(t *testing.T) {
	in := []byte{1, 2, 3}
	out, meta, err := LZ4{}.Forward(in, 1)
	require.NoError(t, err)
	assert.Equal(t, in, out)
	assert.Equal(t, blockRaw, meta[0])
}

func TestCompression_CorruptMeta(t *testing.T) {
	_, err := LZ4{}.Reverse([]byte{1}, []byte{0, 1}, 1)
	require.ErrorIs(t, err, ErrCorrupt)

	_, err = S2{}.Reverse([]byte{0xff, 0xff, 0xff}, blockMeta(blockCompressed, 10), 1)
	require.ErrorIs(t, err, ErrCorrupt)
}

func TestShuffle(t *testing.T) {
	in := []byte{1, 2, 3, 4, 5, 6, 7, 8, 9}
	out, _, err := Shuffle{}.Forward(in, 4)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 5, 2, 6, 3, 7, 4, 8, 9}, out)

	back, err := Shuffle{}.Reverse(out, nil, 4)
	require.NoError(t, err)
	assert.Equal(t, in, back)

	single, _, err := Shuffle{}.Forward(in, 1)
	require.NoError(t, err)
	assert.Equal(t, in, single)
}

func TestChecksum_DetectsCorruption(t *testing.T) {
	for _, f := range []Filter{CRC32C{}, BLAKE3{}} {
		in := sampleChunk()
		out, meta, err := f.Forward(in, 4)
		require.NoError(t, err)

		tampered := bytes.Clone(out)
		tampered[10] ^= 0x01
		_, err = f.Reverse(tampered, meta, 4)
		require.ErrorIs(t, err, ErrChecksum, f.Type().String())
	}
}

func TestEncryption(t *testing.T) {
	_, err := NewXChaCha20Poly1305(nil)
	require.ErrorIs(t, err, ErrMissingKey)

	_, err = NewXChaCha20Poly1305([]byte("short"))
	require.Error(t, err)

	enc, err := NewXChaCha20Poly1305(bytes.Repeat([]byte{1}, KeySize))
	require.NoError(t, err)

	in := []byte("attribute values")
	out, nonce, err := enc.Forward(in, 1)
	require.NoError(t, err)
	assert.NotContains(t, string(out), "attribute")

	other, err := NewXChaCha20Poly1305(bytes.Repeat([]byte{2}, KeySize))
	require.NoError(t, err)
	_, err = other.Reverse(out, nonce, 1)
	require.ErrorIs(t, err, ErrChecksum)

	_, err = enc.Reverse(out, nonce[:3], 1)
	require.ErrorIs(t, err, ErrCorrupt)
}

func TestTypeString(t *testing.T) {
	assert.Equal(t, "zstd", TypeZSTD.String())
	assert.Equal(t, "filter(200)", Type(200).String())
}
