// Package minio provides a BlobStore implementation using the MinIO client.
//
// It works with MinIO and other S3-compatible systems such as Ceph, Garage
// and SeaweedFS without pulling in the AWS SDK.
//
// # Basic Usage
//
//	store, err := minio.New("localhost:9000", "tiles",
//	    minio.WithStaticCredentials("minioadmin", "minioadmin"),
//	    minio.WithRootPrefix("arrays/dense"),
//	    minio.WithSecure(false))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	ts, err := tilestore.Open(ctx, store)
//
// Blobs written with Create are streamed as multipart uploads of unknown
// size and appear atomically when Close returns. Open pins the object's
// ETag, so a handle never mixes bytes of two versions.
package minio
