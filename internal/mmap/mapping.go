package mmap

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sync/atomic"
)

var (
	// ErrClosed is returned when a closed mapping is read.
	ErrClosed = errors.New("mmap: mapping is closed")

	// ErrOutOfBounds is returned for a range outside the mapping.
	ErrOutOfBounds = errors.New("mmap: out of bounds")
)

// Hint tells the kernel how a range will be read.
type Hint int

const (
	// Normal gives no advice.
	Normal Hint = iota
	// Sequential expects one front-to-back pass, as for a streamed range.
	Sequential
	// WillNeed expects the range to be read soon, as for a tile record
	// about to be decoded.
	WillNeed
)

// Mapping is a read-only memory map of one file.
type Mapping struct {
	data   []byte
	closed atomic.Bool
	unmap  func([]byte) error
}

// Open maps the file at path. An empty file yields an empty mapping.
func Open(path string) (*Mapping, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		return nil, err
	}
	size := fi.Size()
	if size == 0 {
		return &Mapping{}, nil
	}
	if int64(int(size)) != size {
		return nil, fmt.Errorf("mmap: %s: %d bytes exceed the address space", path, size)
	}

	data, unmap, err := osMap(f, int(size))
	if err != nil {
		return nil, fmt.Errorf("mmap: %s: %w", path, err)
	}
	return &Mapping{data: data, unmap: unmap}, nil
}

// Close unmaps the file. It is idempotent.
func (m *Mapping) Close() error {
	if m.closed.Swap(true) || m.data == nil {
		return nil
	}
	return m.unmap(m.data)
}

// Bytes returns the whole mapping, or nil once closed.
func (m *Mapping) Bytes() []byte {
	if m.closed.Load() {
		return nil
	}
	return m.data
}

// Size returns the mapped size in bytes.
func (m *Mapping) Size() int64 {
	return int64(len(m.data))
}

// ReadAt copies from the mapping. It returns io.EOF with a short count when
// the mapping ends first.
func (m *Mapping) ReadAt(p []byte, off int64) (int, error) {
	if m.closed.Load() {
		return 0, ErrClosed
	}
	if off < 0 {
		return 0, fmt.Errorf("%w: offset %d", ErrOutOfBounds, off)
	}
	if off >= m.Size() {
		return 0, io.EOF
	}
	n := copy(p, m.data[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

// Slice returns n bytes at off without copying and passes hint to the
// kernel for those pages.
func (m *Mapping) Slice(off, n int64, hint Hint) ([]byte, error) {
	if m.closed.Load() {
		return nil, ErrClosed
	}
	if off < 0 || n < 0 || n > m.Size()-off {
		return nil, fmt.Errorf("%w: [%d, %d+%d) of %d", ErrOutOfBounds, off, off, n, m.Size())
	}
	s := m.data[off : off+n : off+n]
	if hint != Normal && n > 0 {
		// madvise wants a page-aligned start; the mapping itself is aligned.
		start := off &^ int64(pageSize-1)
		_ = osAdvise(m.data[start:off+n], hint)
	}
	return s, nil
}
