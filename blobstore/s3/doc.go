// Package s3 stores blobs in Amazon S3 or an S3 compatible service.
//
//	store, err := s3.New(ctx, "tiles", s3.WithPrefix("arrays/dense"), s3.WithRegion("eu-central-1"))
//	if err != nil {
//	    return err
//	}
//	ts, err := tilestore.Open(ctx, store)
//
// Reads are ranged GETs pinned to the ETag seen by Open, so a handle fails
// with ErrModified rather than mixing two versions of an object. Create
// streams through the upload manager with CRC32C part checksums.
//
// S3 has no compare-and-swap for the CURRENT pointer. Arrays with more than
// one writer wrap the store in a DDBCommitStore, which versions CURRENT in a
// DynamoDB table with conditional puts.
package s3
