package filter

import "fmt"

// Type identifies a filter in a pipeline descriptor. The values are persisted.
type Type uint8

const (
	TypeNone Type = iota
	TypeLZ4
	TypeZSTD
	TypeGZIP
	TypeS2
	TypeShuffle
	TypeCRC32C
	TypeBLAKE3
	TypeXChaCha20Poly1305
)

func (t Type) String() string {
	switch t {
	case TypeNone:
		return "none"
	case TypeLZ4:
		return "lz4"
	case TypeZSTD:
		return "zstd"
	case TypeGZIP:
		return "gzip"
	case TypeS2:
		return "s2"
	case TypeShuffle:
		return "shuffle"
	case TypeCRC32C:
		return "crc32c"
	case TypeBLAKE3:
		return "blake3"
	case TypeXChaCha20Poly1305:
		return "xchacha20poly1305"
	default:
		return fmt.Sprintf("filter(%d)", uint8(t))
	}
}

// Filter transforms one chunk of tile data.
//
// Implementations must not modify in and must be safe for concurrent use,
// since chunks are filtered in parallel.
type Filter interface {
	// Type returns the descriptor tag of the filter.
	Type() Type

	// Forward filters in. meta is stored next to the chunk and handed back
	// to Reverse.
	Forward(in []byte, elemSize int) (out, meta []byte, err error)

	// Reverse undoes Forward.
	Reverse(in, meta []byte, elemSize int) ([]byte, error)

	// Params returns the filter parameters stored in the pipeline descriptor.
	Params() []byte
}

// None passes chunks through unchanged.
type None struct{}

func (None) Type() Type { return TypeNone }

func (None) Forward(in []byte, _ int) ([]byte, []byte, error) { return in, nil, nil }

func (None) Reverse(in, _ []byte, _ int) ([]byte, error) { return in, nil }

func (None) Params() []byte { return nil }
