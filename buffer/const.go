package buffer

import "fmt"

// ConstBuffer is a read-only cursor over caller memory.
type ConstBuffer struct {
	data   []byte
	offset uint64
}

// NewConstBuffer returns a cursor over p.
func NewConstBuffer(p []byte) *ConstBuffer {
	return &ConstBuffer{data: p}
}

// Size returns the total number of bytes.
func (c *ConstBuffer) Size() uint64 {
	return uint64(len(c.data))
}

// Offset returns the cursor position.
func (c *ConstBuffer) Offset() uint64 {
	return c.offset
}

// NBytesLeft returns the number of unread bytes.
func (c *ConstBuffer) NBytesLeft() uint64 {
	return c.Size() - c.offset
}

// CurData returns the unread bytes.
func (c *ConstBuffer) CurData() []byte {
	return c.data[c.offset:]
}

// Read fills p from the cursor and advances it.
func (c *ConstBuffer) Read(p []byte) error {
	if uint64(len(p)) > c.NBytesLeft() {
		return fmt.Errorf("%w: read of %d bytes, %d left", ErrOutOfRange, len(p), c.NBytesLeft())
	}
	copy(p, c.data[c.offset:])
	c.offset += uint64(len(p))
	return nil
}

// Next returns the next n bytes without copying and advances the cursor.
func (c *ConstBuffer) Next(n uint64) ([]byte, error) {
	if n > c.NBytesLeft() {
		return nil, fmt.Errorf("%w: read of %d bytes, %d left", ErrOutOfRange, n, c.NBytesLeft())
	}
	p := c.data[c.offset : c.offset+n]
	c.offset += n
	return p, nil
}
