package filter

import (
	"encoding/binary"
	"fmt"
	"log/slog"

	"github.com/klauspost/compress/zstd"
)

// MarshalBinary encodes the pipeline descriptor:
//
//	[numFilters u8] numFilters x [type u8][paramLen u8][params]
func (p *Pipeline) MarshalBinary() ([]byte, error) {
	if len(p.filters) > 255 {
		return nil, fmt.Errorf("filter: %d filters exceed the descriptor limit", len(p.filters))
	}
	out := []byte{byte(len(p.filters))}
	for _, f := range p.filters {
		params := f.Params()
		if len(params) > 255 {
			return nil, fmt.Errorf("filter: %s parameters of %d bytes", f.Type(), len(params))
		}
		out = append(out, byte(f.Type()), byte(len(params)))
		out = append(out, params...)
	}
	return out, nil
}

// UnmarshalPipeline rebuilds a pipeline from its descriptor. Pipelines with
// an encryption filter need WithKey.
func UnmarshalPipeline(desc []byte, optFns ...Option) (*Pipeline, error) {
	opts := options{logger: slog.New(slog.DiscardHandler)}
	for _, fn := range optFns {
		fn(&opts)
	}

	r := &reader{data: desc}
	n := int(r.u8())
	filters := make([]Filter, 0, n)
	for i := 0; i < n && r.err == nil; i++ {
		typ := Type(r.u8())
		params := r.bytes(int(r.u8()))
		if r.err != nil {
			break
		}
		f, err := newFilter(typ, params, opts.key)
		if err != nil {
			return nil, err
		}
		filters = append(filters, f)
	}
	if r.err != nil {
		return nil, r.err
	}
	if len(r.data) != 0 {
		return nil, corruptf("%d trailing descriptor bytes", len(r.data))
	}
	return &Pipeline{filters: filters, opts: opts}, nil
}

func newFilter(typ Type, params, key []byte) (Filter, error) {
	switch typ {
	case TypeNone:
		return None{}, nil
	case TypeLZ4:
		return LZ4{}, nil
	case TypeZSTD:
		if len(params) != 1 {
			return nil, corruptf("zstd parameters of %d bytes", len(params))
		}
		return &ZSTD{level: zstd.EncoderLevel(params[0])}, nil
	case TypeGZIP:
		if len(params) != 1 {
			return nil, corruptf("gzip parameters of %d bytes", len(params))
		}
		return &GZIP{level: int(int8(params[0]))}, nil
	case TypeS2:
		return S2{}, nil
	case TypeShuffle:
		return Shuffle{}, nil
	case TypeCRC32C:
		return CRC32C{}, nil
	case TypeBLAKE3:
		return BLAKE3{}, nil
	case TypeXChaCha20Poly1305:
		return NewXChaCha20Poly1305(key)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownFilter, typ)
	}
}

// reader consumes little-endian fields and remembers the first error.
type reader struct {
	data []byte
	err  error
}

func (r *reader) bytes(n int) []byte {
	if r.err != nil {
		return nil
	}
	if n < 0 || n > len(r.data) {
		r.err = corruptf("truncated: need %d bytes, have %d", n, len(r.data))
		return nil
	}
	b := r.data[:n:n]
	r.data = r.data[n:]
	return b
}

func (r *reader) u8() uint8 {
	if b := r.bytes(1); r.err == nil {
		return b[0]
	}
	return 0
}

func (r *reader) u32() uint32 {
	if b := r.bytes(4); r.err == nil {
		return binary.LittleEndian.Uint32(b)
	}
	return 0
}

func (r *reader) u64() uint64 {
	if b := r.bytes(8); r.err == nil {
		return binary.LittleEndian.Uint64(b)
	}
	return 0
}

// DescriptorTypes lists the filter types of a descriptor without building
// the filters, so encrypted pipelines can be inspected without a key.
func DescriptorTypes(desc []byte) ([]Type, error) {
	r := &reader{data: desc}
	n := int(r.u8())
	types := make([]Type, 0, n)
	for i := 0; i < n && r.err == nil; i++ {
		typ := Type(r.u8())
		r.bytes(int(r.u8()))
		types = append(types, typ)
	}
	if r.err != nil {
		return nil, r.err
	}
	if len(r.data) != 0 {
		return nil, corruptf("%d trailing descriptor bytes", len(r.data))
	}
	return types, nil
}
