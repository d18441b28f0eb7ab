package filter

import (
	"bytes"
	"fmt"

	"github.com/zeebo/blake3"

	"github.com/hupe1980/tilestore/internal/hash"
)

// CRC32C stores a CRC32-Castagnoli checksum of each chunk and verifies it on
// the reverse path. The chunk bytes pass through unchanged.
type CRC32C struct{}

func (CRC32C) Type() Type { return TypeCRC32C }

func (CRC32C) Forward(in []byte, _ int) ([]byte, []byte, error) {
	return in, hash.AppendCRC32C(nil, in), nil
}

func (CRC32C) Reverse(in, meta []byte, _ int) ([]byte, error) {
	if len(meta) != hash.Size {
		return nil, corruptf("crc32c metadata of %d bytes", len(meta))
	}
	if err := hash.VerifyCRC32C(in, meta); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrChecksum, err)
	}
	return in, nil
}

func (CRC32C) Params() []byte { return nil }

// BLAKE3 stores a 256-bit BLAKE3 digest of each chunk.
type BLAKE3 struct{}

func (BLAKE3) Type() Type { return TypeBLAKE3 }

func (BLAKE3) Forward(in []byte, _ int) ([]byte, []byte, error) {
	sum := blake3.Sum256(in)
	return in, sum[:], nil
}

func (BLAKE3) Reverse(in, meta []byte, _ int) ([]byte, error) {
	sum := blake3.Sum256(in)
	if !bytes.Equal(sum[:], meta) {
		return nil, fmt.Errorf("%w: blake3 digest differs", ErrChecksum)
	}
	return in, nil
}

func (BLAKE3) Params() []byte { return nil }
