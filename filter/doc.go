// Package filter implements the tile filter pipeline.
//
// A Pipeline turns an unfiltered tile into a filtered one and back. The
// unfiltered bytes are cut into chunks sized by tile.ComputeChunkSize and every
// chunk runs through the filters in order, in parallel across chunks. The
// filtered buffer has the layout
//
//	[numChunks u64]
//	numChunks x [origLen u32][filteredLen u32][metaLen u32][meta][data]
//
// where meta holds one length-prefixed record per filter. All integers are
// little endian.
//
// Available filters:
//
//   - LZ4, ZSTD, GZIP and S2 compression
//   - Shuffle, a byte transpose by element size that helps compression
//   - CRC32C and BLAKE3 checksums, verified on the reverse path
//   - XChaCha20-Poly1305 authenticated encryption
//
// A pipeline serializes to a descriptor with MarshalBinary so readers can
// rebuild it. Encryption keys are never part of the descriptor; supply them
// with WithKey when decoding.
package filter
