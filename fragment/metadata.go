package fragment

import (
	"errors"
	"fmt"
	"time"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/hupe1980/tilestore/codec"
)

const (
	// CurrentName is the blob holding the id of the committed fragment.
	CurrentName = "CURRENT"

	// CurrentVersion is the metadata format version.
	CurrentVersion = 1

	tilesSuffix = "/tiles"
	metaSuffix  = "/meta"
)

// TileInfo locates one tile record inside the tiles blob.
type TileInfo struct {
	ID         uint32 `json:"id"`
	Offset     uint64 `json:"offset"`
	RecordSize uint64 `json:"record_size"`
	TileSize   uint64 `json:"tile_size"`
}

// Metadata describes a committed fragment.
type Metadata struct {
	Version   int        `json:"version"`
	ID        string     `json:"id"`
	CreatedAt time.Time  `json:"created_at"`
	Pipeline  []byte     `json:"pipeline"`
	Tiles     []TileInfo `json:"tiles"`
	Present   []byte     `json:"present"`
	TotalSize uint64     `json:"total_size"`

	present *roaring.Bitmap
	index   map[uint32]int
}

// Bitmap returns the set of tile ids present in the fragment.
// The bitmap is shared; callers must not modify it.
func (m *Metadata) Bitmap() *roaring.Bitmap {
	return m.present
}

// Tile returns the index entry for id.
func (m *Metadata) Tile(id uint32) (TileInfo, bool) {
	i, ok := m.index[id]
	if !ok {
		return TileInfo{}, false
	}
	return m.Tiles[i], true
}

func (m *Metadata) buildIndex() {
	m.index = make(map[uint32]int, len(m.Tiles))
	for i, ti := range m.Tiles {
		m.index[ti.ID] = i
	}
}

func encodeMetadata(c codec.Codec, m *Metadata) ([]byte, error) {
	present, err := m.present.ToBytes()
	if err != nil {
		return nil, fmt.Errorf("fragment: encode bitmap: %w", err)
	}
	m.Present = present

	data, err := codec.EncodeTagged(c, m)
	if err != nil {
		return nil, fmt.Errorf("fragment: encode metadata: %w", err)
	}
	return data, nil
}

func decodeMetadata(data []byte) (*Metadata, error) {
	m := &Metadata{}
	if _, err := codec.DecodeTagged(data, m); err != nil {
		if errors.Is(err, codec.ErrUnknownCodec) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	if m.Version > CurrentVersion {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrCorrupt, m.Version)
	}

	m.present = roaring.New()
	if len(m.Present) > 0 {
		if err := m.present.UnmarshalBinary(m.Present); err != nil {
			return nil, fmt.Errorf("%w: bitmap: %v", ErrCorrupt, err)
		}
	}
	if m.present.GetCardinality() != uint64(len(m.Tiles)) {
		return nil, fmt.Errorf("%w: bitmap holds %d tiles, index %d", ErrCorrupt, m.present.GetCardinality(), len(m.Tiles))
	}
	m.buildIndex()
	for _, ti := range m.Tiles {
		if !m.present.Contains(ti.ID) {
			return nil, fmt.Errorf("%w: tile %d missing from bitmap", ErrCorrupt, ti.ID)
		}
	}
	return m, nil
}

// TilesBlob returns the name of the tiles blob of fragment id.
func TilesBlob(id string) string { return id + tilesSuffix }

// MetaBlob returns the name of the metadata blob of fragment id.
func MetaBlob(id string) string { return id + metaSuffix }
