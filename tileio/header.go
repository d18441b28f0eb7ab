package tileio

import (
	"encoding/binary"

	"github.com/hupe1980/tilestore/internal/hash"
	"github.com/hupe1980/tilestore/tile"
)

var magic = [4]byte{'T', 'D', 'B', 'T'}

const (
	// FixedHeaderSize is the header length before the pipeline descriptor.
	FixedHeaderSize = 4 + 4 + 8 + 8 + 1 + 8 + 4 + 4

	checksumSize = hash.Size
)

// Header describes one persisted tile.
type Header struct {
	FormatVersion uint32
	PersistedSize uint64
	TileSize      uint64
	Datatype      tile.Datatype
	CellSize      uint64
	DimNum        uint32
	Pipeline      []byte
}

// Size returns the encoded header length.
func (h *Header) Size() uint64 {
	return FixedHeaderSize + uint64(len(h.Pipeline)) + checksumSize
}

// RecordSize returns the length of the whole record: header and filtered bytes.
func (h *Header) RecordSize() uint64 {
	return h.Size() + h.PersistedSize
}

// Encode appends the encoded header to dst.
func (h *Header) Encode(dst []byte) []byte {
	start := len(dst)
	dst = append(dst, magic[:]...)
	dst = binary.LittleEndian.AppendUint32(dst, h.FormatVersion)
	dst = binary.LittleEndian.AppendUint64(dst, h.PersistedSize)
	dst = binary.LittleEndian.AppendUint64(dst, h.TileSize)
	dst = append(dst, byte(h.Datatype))
	dst = binary.LittleEndian.AppendUint64(dst, h.CellSize)
	dst = binary.LittleEndian.AppendUint32(dst, h.DimNum)
	dst = binary.LittleEndian.AppendUint32(dst, uint32(len(h.Pipeline)))
	dst = append(dst, h.Pipeline...)
	return hash.AppendCRC32C(dst, dst[start:])
}

// decodeFixed parses the fixed part of a header. The descriptor and checksum
// are filled in by DecodeHeader once their length is known.
func decodeFixed(buf []byte) (*Header, uint32, error) {
	if len(buf) < FixedHeaderSize {
		return nil, 0, corruptf("header of %d bytes", len(buf))
	}
	if [4]byte(buf[:4]) != magic {
		return nil, 0, corruptf("bad magic %q", buf[:4])
	}

	h := &Header{
		FormatVersion: binary.LittleEndian.Uint32(buf[4:]),
		PersistedSize: binary.LittleEndian.Uint64(buf[8:]),
		TileSize:      binary.LittleEndian.Uint64(buf[16:]),
		Datatype:      tile.Datatype(buf[24]),
		CellSize:      binary.LittleEndian.Uint64(buf[25:]),
		DimNum:        binary.LittleEndian.Uint32(buf[33:]),
	}
	descLen := binary.LittleEndian.Uint32(buf[37:])

	if h.FormatVersion > tile.CurrentFormatVersion {
		return nil, 0, ErrUnsupportedVersion
	}
	if !h.Datatype.Valid() {
		return nil, 0, corruptf("datatype %d", h.Datatype)
	}
	return h, descLen, nil
}

// DecodeHeader parses and verifies a header at the start of buf.
func DecodeHeader(buf []byte) (*Header, error) {
	h, descLen, err := decodeFixed(buf)
	if err != nil {
		return nil, err
	}

	end := uint64(FixedHeaderSize) + uint64(descLen)
	if uint64(len(buf)) < end+checksumSize {
		return nil, corruptf("truncated header")
	}
	if err := hash.VerifyCRC32C(buf[:end], buf[end:end+checksumSize]); err != nil {
		return nil, corruptf("header: %v", err)
	}

	h.Pipeline = append([]byte(nil), buf[FixedHeaderSize:end]...)
	return h, nil
}
