package cache

// Key identifies a persisted record: the blob it lives in and its byte
// offset there.
type Key struct {
	Blob   string
	Offset uint64
}

// Stats is a snapshot of cache activity.
type Stats struct {
	Hits    int64
	Misses  int64
	Bytes   int64
	Entries int
}

func (s *Stats) add(o Stats) {
	s.Hits += o.Hits
	s.Misses += o.Misses
	s.Bytes += o.Bytes
	s.Entries += o.Entries
}

// Cache holds persisted records. Returned slices are shared with the cache
// and must not be modified.
type Cache interface {
	Get(key Key) ([]byte, bool)
	// Put caches rec. The cache retains rec; the caller must not modify it.
	Put(key Key, rec []byte)
	// DropBlob removes every record of blob.
	DropBlob(blob string)
	Stats() Stats
	// Close drops all records and returns their memory to the controller.
	Close() error
}
