package cache

import (
	"hash/maphash"

	"github.com/hupe1980/tilestore/resource"
)

// DefaultShards is the shard count used when NewSharded is given zero.
const DefaultShards = 16

// Sharded spreads records over several LRU caches by key hash so concurrent
// readers of different tiles rarely contend on one mutex.
type Sharded struct {
	shards []*LRU
	mask   uint64
	seed   maphash.Seed
}

var _ Cache = (*Sharded)(nil)

// NewSharded splits capacity evenly over shards LRU caches. shards is
// rounded up to a power of two; zero or less means DefaultShards.
func NewSharded(capacity int64, shards int, rc *resource.Controller) *Sharded {
	if shards <= 0 {
		shards = DefaultShards
	}
	n := 1
	for n < shards {
		n <<= 1
	}

	s := &Sharded{
		shards: make([]*LRU, n),
		mask:   uint64(n - 1),
		seed:   maphash.MakeSeed(),
	}
	per := max(capacity/int64(n), 1)
	for i := range s.shards {
		s.shards[i] = NewLRU(per, rc)
	}
	return s
}

func (s *Sharded) shard(key Key) *LRU {
	return s.shards[maphash.Comparable(s.seed, key)&s.mask]
}

func (s *Sharded) Get(key Key) ([]byte, bool) { return s.shard(key).Get(key) }
func (s *Sharded) Put(key Key, rec []byte)    { s.shard(key).Put(key, rec) }

// DropBlob visits every shard; a blob's records are spread over all of them.
func (s *Sharded) DropBlob(blob string) {
	for _, c := range s.shards {
		c.DropBlob(blob)
	}
}

func (s *Sharded) Stats() Stats {
	var total Stats
	for _, c := range s.shards {
		total.add(c.Stats())
	}
	return total
}

func (s *Sharded) Close() error {
	for _, c := range s.shards {
		_ = c.Close()
	}
	return nil
}
