package hash

import (
	"encoding/binary"
	"fmt"
	"hash/crc32"
)

// Size is the encoded checksum length in bytes.
const Size = 4

var castagnoli = crc32.MakeTable(crc32.Castagnoli)

// CRC32C returns the checksum of data.
func CRC32C(data []byte) uint32 {
	return crc32.Checksum(data, castagnoli)
}

// AppendCRC32C appends the encoded checksum of data to dst. data may alias dst.
func AppendCRC32C(dst, data []byte) []byte {
	return binary.LittleEndian.AppendUint32(dst, CRC32C(data))
}

// MismatchError reports a checksum that does not match the data.
type MismatchError struct {
	Got, Want uint32
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("crc32c %08x, want %08x", e.Got, e.Want)
}

// VerifyCRC32C checks data against an encoded checksum.
func VerifyCRC32C(data, sum []byte) error {
	if len(sum) != Size {
		return fmt.Errorf("crc32c checksum of %d bytes", len(sum))
	}
	want := binary.LittleEndian.Uint32(sum)
	if got := CRC32C(data); got != want {
		return &MismatchError{Got: got, Want: want}
	}
	return nil
}
