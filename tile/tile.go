package tile

import (
	"github.com/hupe1980/tilestore/buffer"
	"github.com/hupe1980/tilestore/resource"
)

// filteredReserve is the capacity given to the filtered container of a tile
// initialized in filtered mode, so Filtered reports true before any filtered
// bytes arrive.
const filteredReserve = 64

// Tile is the unit of array data moved between the write/read path and the
// filter pipeline. It holds either unfiltered bytes in an owned or borrowed
// buffer, or filtered bytes in a container it always owns, never both.
//
// A Tile is not safe for concurrent use. Hand it to another goroutine by
// moving it (MoveFrom) or by deep-cloning it.
type Tile struct {
	buf             bufferHandle
	filtered        buffer.Buffer
	cellSize        uint64
	dimNum          uint32
	formatVersion   uint32
	preFilteredSize uint64
	typ             Datatype
	rc              *resource.Controller
}

// Option configures a Tile.
type Option func(*Tile)

// WithController charges the tile's allocations, including coordinate
// scratch copies, against rc.
func WithController(rc *resource.Controller) Option {
	return func(t *Tile) {
		t.rc = rc
	}
}

// New returns an empty tile with zeroed metadata and no buffer.
func New(opts ...Option) *Tile {
	t := &Tile{typ: Int32}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// NewFromBuffer returns a tile over an existing buffer. With owns set the
// tile adopts buf and clears it on Release; otherwise it is a view and buf
// stays the caller's. The buffer's cursor is reset to zero.
func NewFromBuffer(formatVersion uint32, typ Datatype, cellSize uint64, dimNum uint32, buf *buffer.Buffer, owns bool, opts ...Option) *Tile {
	t := New(opts...)
	t.formatVersion = formatVersion
	t.typ = typ
	t.cellSize = cellSize
	t.dimNum = dimNum
	if owns {
		t.buf = ownedHandle(buf)
	} else {
		t.buf = borrowedHandle(buf)
	}
	if buf != nil {
		buf.ResetOffset()
	}
	return t
}

// InitUnfiltered prepares a fresh tile for tileSize bytes of raw cells.
// With fillWithZeros the tile reports tileSize bytes of zeros instead of
// empty reserved capacity.
func (t *Tile) InitUnfiltered(formatVersion uint32, typ Datatype, tileSize, cellSize uint64, dimNum uint32, fillWithZeros bool) error {
	t.requireFresh("InitUnfiltered")
	t.setMetadata(formatVersion, typ, cellSize, dimNum)

	b := buffer.New(buffer.WithController(t.rc))
	if err := b.Realloc(tileSize); err != nil {
		return &AllocationError{Op: "InitUnfiltered", Bytes: tileSize, Err: err}
	}
	if fillWithZeros && tileSize > 0 {
		b.SetSize(tileSize)
		clear(b.Data())
	}
	t.buf = ownedHandle(b)
	return nil
}

// InitFiltered prepares a fresh tile to receive filtered bytes.
// The unfiltered buffer stays absent.
func (t *Tile) InitFiltered(formatVersion uint32, typ Datatype, cellSize uint64, dimNum uint32) error {
	t.requireFresh("InitFiltered")
	t.setMetadata(formatVersion, typ, cellSize, dimNum)

	t.filtered = *buffer.New(buffer.WithController(t.rc))
	if err := t.filtered.Realloc(filteredReserve); err != nil {
		return &AllocationError{Op: "InitFiltered", Bytes: filteredReserve, Err: err}
	}
	return nil
}

func (t *Tile) setMetadata(formatVersion uint32, typ Datatype, cellSize uint64, dimNum uint32) {
	t.formatVersion = formatVersion
	t.typ = typ
	t.cellSize = cellSize
	t.dimNum = dimNum
}

func (t *Tile) requireFresh(op string) {
	if t.buf.get() != nil || t.filtered.AllocedSize() > 0 {
		invalidState(op, "tile is already initialized")
	}
}

// Release frees the owned unfiltered buffer and the filtered container.
// A borrowed buffer is left untouched. Release is idempotent.
func (t *Tile) Release() {
	t.buf.release()
	t.filtered.Clear()
}

// Clone returns a copy of t. A deep clone duplicates an owned buffer into a
// new owned buffer and re-shares a borrowed view. A shallow clone is always a
// view over t's buffer. The filtered container is copied in both modes.
func (t *Tile) Clone(deepCopy bool) (*Tile, error) {
	c := &Tile{
		cellSize:        t.cellSize,
		dimNum:          t.dimNum,
		formatVersion:   t.formatVersion,
		preFilteredSize: t.preFilteredSize,
		typ:             t.typ,
		rc:              t.rc,
	}

	filtered, err := t.filtered.Clone()
	if err != nil {
		return nil, &AllocationError{Op: "Clone", Bytes: t.filtered.AllocedSize(), Err: err}
	}
	c.filtered = *filtered

	src := t.buf.get()
	switch {
	case !deepCopy:
		c.buf = borrowedHandle(src)
	case t.buf.kind == handleOwned && src != nil:
		dup, err := src.Clone()
		if err != nil {
			c.filtered.Clear()
			return nil, &AllocationError{Op: "Clone", Bytes: src.AllocedSize(), Err: err}
		}
		c.buf = ownedHandle(dup)
	default:
		c.buf = t.buf
	}
	return c, nil
}

// Copy returns a deep clone of t.
func (t *Tile) Copy() (*Tile, error) {
	return t.Clone(true)
}

// CopyFrom replaces t's contents with a deep clone of src, freeing what t
// owned before. A src that views t's own buffer gets its bytes duplicated.
func (t *Tile) CopyFrom(src *Tile) error {
	if src == t {
		return nil
	}
	c, err := src.Clone(true)
	if err != nil {
		return err
	}
	// src may view the buffer t is about to free.
	if b := c.buf.get(); b != nil && !c.buf.owns() && t.buf.owns() && b == t.buf.get() {
		dup, err := b.Clone()
		if err != nil {
			c.Release()
			return &AllocationError{Op: "CopyFrom", Bytes: b.AllocedSize(), Err: err}
		}
		c.buf = ownedHandle(dup)
	}
	t.Swap(c)
	c.Release()
	return nil
}

// MoveFrom transfers src's contents into t. src receives t's previous
// contents and stays safe to Release.
func (t *Tile) MoveFrom(src *Tile) {
	if src == t {
		return
	}
	t.Swap(src)
}

// Swap exchanges every field of t and o, ownership included.
func (t *Tile) Swap(o *Tile) {
	*t, *o = *o, *t
}

// Buffer returns the unfiltered buffer, or nil.
func (t *Tile) Buffer() *buffer.Buffer {
	return t.buf.get()
}

// FilteredBuffer returns the filtered container. The tile keeps ownership.
func (t *Tile) FilteredBuffer() *buffer.Buffer {
	return &t.filtered
}

// OwnsBuffer reports whether Release frees the unfiltered buffer.
func (t *Tile) OwnsBuffer() bool {
	return t.buf.owns()
}

// DisownBuffer turns the unfiltered buffer into a view the tile never frees.
func (t *Tile) DisownBuffer() {
	t.buf.disown()
}

// DropUnfiltered releases or forgets the unfiltered buffer. The filter
// pipeline calls it once the filtered bytes are produced.
func (t *Tile) DropUnfiltered() {
	t.buf.release()
}

// AdoptUnfiltered installs b as the tile's owned unfiltered buffer and
// clears the filtered container. The filter pipeline calls it on the reverse
// path.
func (t *Tile) AdoptUnfiltered(b *buffer.Buffer) {
	t.filtered.Clear()
	t.buf.release()
	t.buf = ownedHandle(b)
	if b != nil {
		b.ResetOffset()
	}
}

// Controller returns the resource controller charged for the tile.
func (t *Tile) Controller() *resource.Controller {
	return t.rc
}

// CellSize returns the bytes per cell.
func (t *Tile) CellSize() uint64 {
	return t.cellSize
}

// DimNum returns the number of coordinate dimensions, 0 for attribute tiles.
func (t *Tile) DimNum() uint32 {
	return t.dimNum
}

// Type returns the element datatype.
func (t *Tile) Type() Datatype {
	return t.typ
}

// FormatVersion returns the storage format version of the tile's bytes.
func (t *Tile) FormatVersion() uint32 {
	return t.formatVersion
}

// PreFilteredSize returns the size of the data before filtering.
func (t *Tile) PreFilteredSize() uint64 {
	return t.preFilteredSize
}

// SetPreFilteredSize records the size of the data before filtering.
func (t *Tile) SetPreFilteredSize(n uint64) {
	t.preFilteredSize = n
}

// StoresCoords reports whether the tile holds coordinates.
func (t *Tile) StoresCoords() bool {
	return t.dimNum > 0
}

// Filtered reports whether the tile holds filtered bytes.
// It panics if the tile also holds unfiltered bytes.
func (t *Tile) Filtered() bool {
	filtered := t.filtered.AllocedSize() > 0
	if filtered {
		if b := t.buf.get(); b != nil && b.Size() > 0 {
			invalidState("Filtered", "tile holds both filtered and unfiltered data")
		}
	}
	return filtered
}

// Empty reports whether the tile holds no unfiltered bytes.
func (t *Tile) Empty() bool {
	t.requireUnfiltered("Empty")
	b := t.buf.get()
	return b == nil || b.Size() == 0
}

// Full reports whether the cursor has reached the allocated capacity.
func (t *Tile) Full() bool {
	t.requireUnfiltered("Full")
	return !t.Empty() && t.buf.get().Offset() >= t.buf.get().AllocedSize()
}

// Size returns the unfiltered size in bytes.
func (t *Tile) Size() uint64 {
	t.requireUnfiltered("Size")
	if b := t.buf.get(); b != nil {
		return b.Size()
	}
	return 0
}

// CellNum returns the number of whole cells in the tile.
func (t *Tile) CellNum() uint64 {
	if t.cellSize == 0 {
		invalidState("CellNum", "cell size is zero")
	}
	return t.Size() / t.cellSize
}

// Offset returns the unfiltered buffer's cursor.
func (t *Tile) Offset() uint64 {
	return t.buffer("Offset").Offset()
}

// SetOffset moves the unfiltered buffer's cursor.
func (t *Tile) SetOffset(n uint64) {
	t.buffer("SetOffset").SetOffset(n)
}

// AdvanceOffset moves the cursor forward by n bytes.
func (t *Tile) AdvanceOffset(n uint64) {
	t.buffer("AdvanceOffset").AdvanceOffset(n)
}

// ResetOffset moves the cursor to the start.
func (t *Tile) ResetOffset() {
	t.buffer("ResetOffset").ResetOffset()
}

// ResetSize marks the tile empty, keeping its capacity.
func (t *Tile) ResetSize() {
	t.requireUnfiltered("ResetSize")
	t.buffer("ResetSize").SetSize(0)
}

// Reset rewinds the cursor and empties the tile.
func (t *Tile) Reset() {
	t.ResetOffset()
	t.ResetSize()
}

// Read fills dst from the cursor and advances it.
func (t *Tile) Read(dst []byte) error {
	t.requireUnfiltered("Read")
	b := t.buffer("Read")
	offset := b.Offset()
	if err := b.Read(dst); err != nil {
		return &RangeError{Op: "read", Offset: offset, Bytes: uint64(len(dst)), Err: err}
	}
	return nil
}

// ReadAt fills dst from offset without moving the cursor.
func (t *Tile) ReadAt(dst []byte, offset uint64) error {
	t.requireUnfiltered("ReadAt")
	if err := t.buffer("ReadAt").ReadAt(dst, offset); err != nil {
		return &RangeError{Op: "read", Offset: offset, Bytes: uint64(len(dst)), Err: err}
	}
	return nil
}

// Write appends src at the cursor, growing the buffer if needed.
func (t *Tile) Write(src []byte) error {
	t.requireUnfiltered("Write")
	b := t.buffer("Write")
	offset := b.Offset()
	if err := b.Write(src); err != nil {
		return writeError(offset, uint64(len(src)), err)
	}
	return nil
}

// WriteAt writes src at offset without moving the cursor.
func (t *Tile) WriteAt(src []byte, offset uint64) error {
	t.requireUnfiltered("WriteAt")
	if err := t.buffer("WriteAt").WriteAt(src, offset); err != nil {
		return writeError(offset, uint64(len(src)), err)
	}
	return nil
}

// WriteBuffer appends the next n bytes of src at the cursor and advances
// both cursors.
func (t *Tile) WriteBuffer(src *buffer.ConstBuffer, n uint64) error {
	t.requireUnfiltered("WriteBuffer")
	p, err := src.Next(n)
	if err != nil {
		return &RangeError{Op: "read", Offset: src.Offset(), Bytes: n, Err: err}
	}
	return t.Write(p)
}

// writeError wraps a failed grow. The buffer only fails a write when the end
// position cannot be allocated.
func writeError(offset, n uint64, err error) error {
	return &AllocationError{Op: "write", Bytes: offset + n, Err: err}
}

func (t *Tile) requireUnfiltered(op string) {
	if t.Filtered() {
		invalidState(op, "tile is filtered")
	}
}

func (t *Tile) buffer(op string) *buffer.Buffer {
	b := t.buf.get()
	if b == nil {
		invalidState(op, "tile has no unfiltered buffer")
	}
	return b
}
