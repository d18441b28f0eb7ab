// Package mmap maps blob files read-only so tile records can be read
// without copying.
//
//	m, err := mmap.Open(path)
//	if err != nil { ... }
//	defer m.Close()
//
//	rec, err := m.Slice(offset, size, mmap.Sequential)
//
// Unix systems use mmap(2) and madvise(2). Windows uses
// CreateFileMapping/MapViewOfFile and ignores hints.
//
// A Mapping is safe for concurrent reads. Slices returned by Bytes and Slice
// must not be used after Close.
package mmap
