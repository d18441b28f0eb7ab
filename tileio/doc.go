// Package tileio persists generic tiles to a blobstore.
//
// A persisted tile is a self-describing record:
//
//	[header][filtered bytes]
//
// The header (little endian) carries everything needed to rebuild the tile
// and reverse its filter pipeline:
//
//	magic "TDBT"        4
//	format version      u32
//	persisted size      u64  length of the filtered bytes
//	tile size           u64  pre-filtered length
//	datatype            u8
//	cell size           u64
//	dim num             u32
//	descriptor length   u32
//	pipeline descriptor
//	header crc32c       u32  over everything above
//
// Several records may be appended to one blob; a record is addressed by the
// blob name and its byte offset. Reads go through an optional LRU cache keyed
// the same way, with concurrent misses for one record collapsed into a single
// fetch.
package tileio
