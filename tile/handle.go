package tile

import "github.com/hupe1980/tilestore/buffer"

type handleKind uint8

const (
	handleNone handleKind = iota
	handleOwned
	handleBorrowed
)

// bufferHandle is the ownership-tagged reference a Tile holds to its
// unfiltered buffer. Only an owned handle ever clears the buffer.
type bufferHandle struct {
	kind handleKind
	buf  *buffer.Buffer
}

func ownedHandle(b *buffer.Buffer) bufferHandle {
	if b == nil {
		return bufferHandle{}
	}
	return bufferHandle{kind: handleOwned, buf: b}
}

func borrowedHandle(b *buffer.Buffer) bufferHandle {
	return bufferHandle{kind: handleBorrowed, buf: b}
}

func (h bufferHandle) get() *buffer.Buffer {
	return h.buf
}

// owns reports whether the tile is responsible for freeing the buffer.
// A tile without any buffer counts as owning, so that a later allocation is
// released with it.
func (h bufferHandle) owns() bool {
	return h.kind != handleBorrowed
}

// release frees an owned buffer and forgets a borrowed one.
func (h *bufferHandle) release() {
	if h.kind == handleOwned && h.buf != nil {
		h.buf.Clear()
	}
	*h = bufferHandle{}
}

// disown turns an owned handle into a view over the same buffer.
func (h *bufferHandle) disown() {
	h.kind = handleBorrowed
}
