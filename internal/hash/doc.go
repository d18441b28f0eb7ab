// Package hash provides the CRC32-Castagnoli checksum shared by tile record
// headers and the CRC32C filter. Checksums are stored as 4 little-endian
// bytes.
//
//	rec = hash.AppendCRC32C(rec, rec[start:])
//	...
//	if err := hash.VerifyCRC32C(body, sum); err != nil { ... }
//
// Go's crc32 package uses the SSE4.2 and ARM CRC instructions when available.
package hash
