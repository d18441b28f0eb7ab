// Package blobstore provides the storage abstraction tiles and fragments are
// persisted to.
//
// BlobStore reads and writes whole or streamed blobs. Implementations must be
// safe for concurrent use.
//
// # Built-in Implementations
//
//   - MemoryStore: in-memory, for tests and ephemeral arrays
//   - LocalStore: local file system with mmap reads and atomic renames
//   - s3.Store: Amazon S3 with range reads and multipart uploads
//   - s3.DDBCommitStore: S3 plus DynamoDB for atomic CURRENT commits
//   - minio.Store: MinIO and other S3-compatible services
//
// # Custom Implementations
//
//	type BlobStore interface {
//	    Open(ctx, name) (Blob, error)
//	    Create(ctx, name) (WritableBlob, error)
//	    Put(ctx, name, data) error
//	    Delete(ctx, name) error
//	    List(ctx, prefix) ([]string, error)
//	}
//
// Cloud backends should serve ReadRange with ranged GETs, since tile reads
// fetch one persisted tile at a time.
package blobstore
