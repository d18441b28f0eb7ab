// Package fragment groups generic tiles into immutable fragments.
//
// A fragment is two blobs under its id:
//
//	<id>/tiles  concatenated generic tile records
//	<id>/meta   codec-encoded Metadata (tile index and present-tile bitmap)
//
// Commit writes the metadata blob and then points CURRENT at the fragment id,
// so readers see either the previous fragment or the complete new one.
package fragment
