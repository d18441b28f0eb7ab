package filter

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"sync"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/s2"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Compression filters record the input length and whether the chunk was
// stored raw, which happens when compression does not shrink it.
const (
	blockCompressed byte = 0
	blockRaw        byte = 1
)

func blockMeta(flag byte, n int) []byte {
	meta := make([]byte, 5)
	meta[0] = flag
	binary.LittleEndian.PutUint32(meta[1:], uint32(n))
	return meta
}

func parseBlockMeta(meta []byte) (flag byte, n int, err error) {
	if len(meta) != 5 {
		return 0, 0, corruptf("compression metadata of %d bytes", len(meta))
	}
	return meta[0], int(binary.LittleEndian.Uint32(meta[1:])), nil
}

// finishBlock keeps compressed only when it is smaller than in.
func finishBlock(in, compressed []byte) ([]byte, []byte) {
	if len(compressed) == 0 || len(compressed) >= len(in) {
		return in, blockMeta(blockRaw, len(in))
	}
	return compressed, blockMeta(blockCompressed, len(in))
}

func reverseBlock(in, meta []byte, decode func(in []byte, n int) ([]byte, error)) ([]byte, error) {
	flag, n, err := parseBlockMeta(meta)
	if err != nil {
		return nil, err
	}
	if flag == blockRaw {
		if len(in) != n {
			return nil, corruptf("raw block of %d bytes, want %d", len(in), n)
		}
		return in, nil
	}
	out, err := decode(in, n)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	if len(out) != n {
		return nil, corruptf("decompressed %d bytes, want %d", len(out), n)
	}
	return out, nil
}

// LZ4 is LZ4 block compression. Fast, good for hot data.
type LZ4 struct{}

func (LZ4) Type() Type { return TypeLZ4 }

func (LZ4) Forward(in []byte, _ int) ([]byte, []byte, error) {
	if len(in) == 0 {
		return in, blockMeta(blockRaw, 0), nil
	}
	compressed := make([]byte, lz4.CompressBlockBound(len(in)))
	n, err := lz4.CompressBlock(in, compressed, nil)
	if err != nil {
		return nil, nil, err
	}
	out, meta := finishBlock(in, compressed[:n])
	return out, meta, nil
}

func (LZ4) Reverse(in, meta []byte, _ int) ([]byte, error) {
	return reverseBlock(in, meta, func(in []byte, n int) ([]byte, error) {
		out := make([]byte, n)
		m, err := lz4.UncompressBlock(in, out)
		if err != nil {
			return nil, err
		}
		return out[:m], nil
	})
}

func (LZ4) Params() []byte { return nil }

// zstd decoders are level independent and shared across filters.
var zstdDecoderPool sync.Pool

func getZstdDecoder() *zstd.Decoder {
	if v := zstdDecoderPool.Get(); v != nil {
		return v.(*zstd.Decoder)
	}
	dec, _ := zstd.NewReader(nil)
	return dec
}

func putZstdDecoder(dec *zstd.Decoder) {
	zstdDecoderPool.Put(dec)
}

// ZSTD is Zstandard compression. Better ratio than LZ4, good for cold data.
type ZSTD struct {
	level   zstd.EncoderLevel
	encoder sync.Pool
}

// NewZSTD returns a ZSTD filter. level follows the zstd command line scale
// (1 fastest, 22 best); 0 selects the default.
func NewZSTD(level int) *ZSTD {
	l := zstd.SpeedDefault
	if level > 0 {
		l = zstd.EncoderLevelFromZstd(level)
	}
	return &ZSTD{level: l}
}

func (z *ZSTD) getEncoder() *zstd.Encoder {
	if v := z.encoder.Get(); v != nil {
		return v.(*zstd.Encoder)
	}
	enc, _ := zstd.NewWriter(nil, zstd.WithEncoderLevel(z.level))
	return enc
}

func (z *ZSTD) Type() Type { return TypeZSTD }

func (z *ZSTD) Forward(in []byte, _ int) ([]byte, []byte, error) {
	enc := z.getEncoder()
	defer z.encoder.Put(enc)

	out, meta := finishBlock(in, enc.EncodeAll(in, nil))
	return out, meta, nil
}

func (z *ZSTD) Reverse(in, meta []byte, _ int) ([]byte, error) {
	return reverseBlock(in, meta, func(in []byte, n int) ([]byte, error) {
		dec := getZstdDecoder()
		defer putZstdDecoder(dec)
		return dec.DecodeAll(in, make([]byte, 0, n))
	})
}

func (z *ZSTD) Params() []byte { return []byte{byte(z.level)} }

// GZIP is deflate compression in gzip framing.
type GZIP struct {
	level int
}

// NewGZIP returns a GZIP filter. level is a gzip compression level;
// 0 selects the default.
func NewGZIP(level int) *GZIP {
	if level == 0 {
		level = gzip.DefaultCompression
	}
	return &GZIP{level: level}
}

func (g *GZIP) Type() Type { return TypeGZIP }

func (g *GZIP) Forward(in []byte, _ int) ([]byte, []byte, error) {
	var buf bytes.Buffer
	w, err := gzip.NewWriterLevel(&buf, g.level)
	if err != nil {
		return nil, nil, err
	}
	if _, err := w.Write(in); err != nil {
		return nil, nil, err
	}
	if err := w.Close(); err != nil {
		return nil, nil, err
	}
	out, meta := finishBlock(in, buf.Bytes())
	return out, meta, nil
}

func (g *GZIP) Reverse(in, meta []byte, _ int) ([]byte, error) {
	return reverseBlock(in, meta, func(in []byte, n int) ([]byte, error) {
		r, err := gzip.NewReader(bytes.NewReader(in))
		if err != nil {
			return nil, err
		}
		defer r.Close()

		out := bytes.NewBuffer(make([]byte, 0, n))
		if _, err := io.Copy(out, io.LimitReader(r, int64(n)+1)); err != nil {
			return nil, err
		}
		return out.Bytes(), nil
	})
}

func (g *GZIP) Params() []byte { return []byte{byte(int8(g.level))} }

// S2 is Snappy-compatible S2 block compression.
type S2 struct{}

func (S2) Type() Type { return TypeS2 }

func (S2) Forward(in []byte, _ int) ([]byte, []byte, error) {
	out, meta := finishBlock(in, s2.Encode(nil, in))
	return out, meta, nil
}

func (S2) Reverse(in, meta []byte, _ int) ([]byte, error) {
	return reverseBlock(in, meta, func(in []byte, _ int) ([]byte, error) {
		return s2.Decode(nil, in)
	})
}

func (S2) Params() []byte { return nil }
