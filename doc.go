// Package tilestore stores filtered data tiles in blob storage.
//
// A tile is a typed byte buffer of fixed-size cells. Tiles are filtered
// (shuffled, compressed, checksummed, optionally encrypted) and written as
// self-describing records, either one per blob or grouped into fragments
// that are committed atomically.
//
// # Quick Start
//
//	ctx := context.Background()
//	st, _ := tilestore.Open(ctx, blobstore.NewLocalStore("./data"),
//	    tilestore.WithFilters(filter.Shuffle{}, filter.NewZSTD(3), filter.CRC32C{}),
//	)
//	defer st.Close()
//
//	_ = st.PutBytes(ctx, "__schema", schemaBytes)
//	b, _ := st.GetBytes(ctx, "__schema")
//
// Fragments group many tiles under one commit:
//
//	w, _ := st.NewFragment(ctx)
//	_ = w.WriteTile(ctx, 0, t0)
//	_ = w.WriteTile(ctx, 1, t1)
//	_, _ = st.Commit(ctx, w)
//
//	t, _ := st.ReadTile(ctx, 1)
//	defer t.Release()
//
// Remote stores plug in through blobstore.BlobStore:
//
//	s3Store, _ := s3.New(ctx, "my-bucket", s3.WithPrefix("arrays/a1"))
//	st, _ := tilestore.Open(ctx, s3Store, tilestore.WithCacheSize(256<<20))
//
// # Packages
//
//   - tile: the Tile type, chunk sizing and coordinate zipping
//   - buffer: growable byte buffers charged to a resource.Controller
//   - filter: the filter pipeline and its filters
//   - tileio: generic tile records
//   - fragment: fragment commits and reads
//   - cellutil: grouping helpers for cell data
//   - blobstore: local, memory, S3 and MinIO stores
package tilestore
