// Package buffer provides the growable, offset-tracked byte container that
// backs tiles.
//
// A Buffer distinguishes its allocated capacity (AllocedSize) from its
// logical size (Size) and keeps a cursor (Offset) for sequential reads and
// writes:
//
//	b := buffer.New()
//	_ = b.Write(cells)          // appends at the cursor, growing as needed
//	b.ResetOffset()
//	_ = b.Read(dst)             // reads from the cursor, fails past Size
//	_ = b.ReadAt(dst, 16)       // positioned, cursor untouched
//
// Allocations are 64-byte aligned and, when a resource.Controller is
// attached, charged against its memory limit. Wrap creates a view over caller
// memory that is never charged and never counted as an allocation.
package buffer
