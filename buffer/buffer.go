package buffer

import (
	"fmt"
	"math"
	"sync/atomic"

	"github.com/hupe1980/tilestore/internal/mem"
	"github.com/hupe1980/tilestore/resource"
)

// MaxSize is the largest capacity a Buffer can allocate.
const MaxSize = uint64(math.MaxInt) - mem.Alignment

// live counts owned allocations that have not been cleared yet.
var live atomic.Int64

// LiveAllocations returns the number of owned buffer allocations that are
// currently alive process-wide. Views created by Wrap are not counted.
func LiveAllocations() int64 {
	return live.Load()
}

// Buffer is a growable byte container with a logical size and a cursor.
//
// Invariant: Offset <= AllocedSize and Size <= AllocedSize.
// A Buffer is not safe for concurrent use.
type Buffer struct {
	data    []byte // len(data) is the allocated capacity
	size    uint64
	offset  uint64
	wrapped bool // data is caller memory
	rc      *resource.Controller
}

// Option configures a Buffer.
type Option func(*Buffer)

// WithController charges allocations against rc's memory limit.
func WithController(rc *resource.Controller) Option {
	return func(b *Buffer) {
		b.rc = rc
	}
}

// New returns an empty buffer with no allocation.
func New(opts ...Option) *Buffer {
	b := &Buffer{}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Wrap returns a buffer viewing p. Size and AllocedSize are len(p).
// Writes go straight into p until the buffer has to grow, at which point the
// contents move into an owned allocation.
func Wrap(p []byte) *Buffer {
	return &Buffer{
		data:    p,
		size:    uint64(len(p)),
		wrapped: len(p) > 0,
	}
}

// Controller returns the resource controller charged for this buffer, if any.
func (b *Buffer) Controller() *resource.Controller {
	return b.rc
}

// Realloc ensures an allocated capacity of at least n bytes.
// It never shrinks the buffer; contents up to Size are preserved.
func (b *Buffer) Realloc(n uint64) error {
	if n <= b.AllocedSize() {
		return nil
	}
	return b.grow(n)
}

func (b *Buffer) grow(n uint64) error {
	if n > MaxSize {
		return fmt.Errorf("%w: requested %d bytes", ErrTooLarge, n)
	}

	old := b.AllocedSize()
	charge := n
	if !b.wrapped {
		charge = n - old
	}
	if err := b.rc.AcquireMemory(int64(charge)); err != nil {
		return fmt.Errorf("buffer: reserve %d bytes: %w", charge, err)
	}

	data := mem.GrowAligned(b.data, int(b.size), int(n))
	if old == 0 || b.wrapped {
		live.Add(1)
	}
	b.data = data
	b.wrapped = false
	return nil
}

// growAtLeast doubles the capacity when it can and otherwise grows to
// exactly n, so neither MaxSize nor a memory limit rejects a write that fits.
func (b *Buffer) growAtLeast(n uint64) error {
	target := max(n, min(2*b.AllocedSize(), MaxSize))
	err := b.grow(target)
	if err != nil && target > n {
		err = b.grow(n)
	}
	return err
}

// Write copies p at the cursor, growing the buffer when needed, and advances
// the cursor. Size becomes at least the new cursor position.
func (b *Buffer) Write(p []byte) error {
	end := b.offset + uint64(len(p))
	if end > b.AllocedSize() {
		if err := b.growAtLeast(end); err != nil {
			return err
		}
	}
	copy(b.data[b.offset:end], p)
	b.offset = end
	b.size = max(b.size, end)
	return nil
}

// WriteAt copies p at the given position without moving the cursor.
func (b *Buffer) WriteAt(p []byte, offset uint64) error {
	end := offset + uint64(len(p))
	if end < offset {
		return fmt.Errorf("%w: write of %d bytes at %d overflows", ErrTooLarge, len(p), offset)
	}
	if end > b.AllocedSize() {
		if err := b.grow(end); err != nil {
			return err
		}
	}
	copy(b.data[offset:end], p)
	b.size = max(b.size, end)
	return nil
}

// Read fills p from the cursor and advances it.
func (b *Buffer) Read(p []byte) error {
	if err := b.checkRange(b.offset, uint64(len(p))); err != nil {
		return err
	}
	copy(p, b.data[b.offset:])
	b.offset += uint64(len(p))
	return nil
}

// ReadAt fills p from the given position without moving the cursor.
func (b *Buffer) ReadAt(p []byte, offset uint64) error {
	if err := b.checkRange(offset, uint64(len(p))); err != nil {
		return err
	}
	copy(p, b.data[offset:])
	return nil
}

func (b *Buffer) checkRange(offset, n uint64) error {
	if offset > b.size || n > b.size-offset {
		return fmt.Errorf("%w: read of %d bytes at offset %d, size %d", ErrOutOfRange, n, offset, b.size)
	}
	return nil
}

// Data returns the logical contents, data[:Size]. The slice aliases the buffer.
func (b *Buffer) Data() []byte {
	return b.data[:b.size]
}

// CurData returns the unread contents, data[Offset:Size].
func (b *Buffer) CurData() []byte {
	if b.offset >= b.size {
		return nil
	}
	return b.data[b.offset:b.size]
}

// Size returns the logical size in bytes.
func (b *Buffer) Size() uint64 {
	return b.size
}

// SetSize sets the logical size. n must not exceed AllocedSize.
func (b *Buffer) SetSize(n uint64) {
	if n > b.AllocedSize() {
		panic(fmt.Sprintf("buffer: size %d exceeds allocated %d", n, b.AllocedSize()))
	}
	b.size = n
}

// AllocedSize returns the allocated capacity in bytes.
func (b *Buffer) AllocedSize() uint64 {
	return uint64(len(b.data))
}

// Offset returns the cursor position.
func (b *Buffer) Offset() uint64 {
	return b.offset
}

// SetOffset moves the cursor. n must not exceed AllocedSize.
func (b *Buffer) SetOffset(n uint64) {
	if n > b.AllocedSize() {
		panic(fmt.Sprintf("buffer: offset %d exceeds allocated %d", n, b.AllocedSize()))
	}
	b.offset = n
}

// AdvanceOffset moves the cursor forward by n bytes.
func (b *Buffer) AdvanceOffset(n uint64) {
	b.SetOffset(b.offset + n)
}

// ResetOffset moves the cursor to the start.
func (b *Buffer) ResetOffset() {
	b.offset = 0
}

// Clear releases the allocation and resets size and cursor.
// Wrapped caller memory is dropped, never released.
func (b *Buffer) Clear() {
	if n := len(b.data); n > 0 && !b.wrapped {
		b.rc.ReleaseMemory(int64(n))
		live.Add(-1)
	}
	b.data = nil
	b.size = 0
	b.offset = 0
	b.wrapped = false
}

// Clone returns a deep copy with the same capacity, size and cursor.
// The copy is always owned, even when b wraps caller memory.
func (b *Buffer) Clone() (*Buffer, error) {
	c := &Buffer{rc: b.rc}
	if n := b.AllocedSize(); n > 0 {
		if err := c.grow(n); err != nil {
			return nil, err
		}
		copy(c.data, b.data)
	}
	c.size = b.size
	c.offset = b.offset
	return c, nil
}

// Swap exchanges the contents of b and o.
func (b *Buffer) Swap(o *Buffer) {
	*b, *o = *o, *b
}
