package cache

import (
	"sync"

	"github.com/hupe1980/tilestore/resource"
)

type node struct {
	key        Key
	rec        []byte
	prev, next *node
}

// LRU is a byte-bounded least recently used Cache.
type LRU struct {
	mu       sync.Mutex
	capacity int64
	size     int64
	nodes    map[Key]*node
	root     node // root.next is the most recently used record
	rc       *resource.Controller

	hits, misses int64
}

var _ Cache = (*LRU)(nil)

// NewLRU returns a cache holding at most capacity bytes, charged to rc.
// rc may be nil.
func NewLRU(capacity int64, rc *resource.Controller) *LRU {
	c := &LRU{
		capacity: capacity,
		nodes:    make(map[Key]*node),
		rc:       rc,
	}
	c.root.next = &c.root
	c.root.prev = &c.root
	return c
}

func (c *LRU) Get(key Key) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	n, ok := c.nodes[key]
	if !ok {
		c.misses++
		return nil, false
	}
	c.hits++
	c.unlink(n)
	c.pushFront(n)
	return n.rec, true
}

// Put caches rec, replacing any record under key. Records larger than the
// capacity are ignored.
func (c *LRU) Put(key Key, rec []byte) {
	size := int64(len(rec))
	if size > c.capacity {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if old, ok := c.nodes[key]; ok {
		c.remove(old)
	}
	// Evict before charging so released bytes are available to rc.
	for c.size+size > c.capacity && c.root.prev != &c.root {
		c.remove(c.root.prev)
	}
	if c.rc.AcquireMemory(size) != nil {
		return
	}

	n := &node{key: key, rec: rec}
	c.nodes[key] = n
	c.pushFront(n)
	c.size += size
}

func (c *LRU) DropBlob(blob string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for key, n := range c.nodes {
		if key.Blob == blob {
			c.remove(n)
		}
	}
}

func (c *LRU) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Stats{Hits: c.hits, Misses: c.misses, Bytes: c.size, Entries: len(c.nodes)}
}

func (c *LRU) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for c.root.next != &c.root {
		c.remove(c.root.next)
	}
	return nil
}

func (c *LRU) pushFront(n *node) {
	n.prev = &c.root
	n.next = c.root.next
	c.root.next.prev = n
	c.root.next = n
}

func (c *LRU) unlink(n *node) {
	n.prev.next = n.next
	n.next.prev = n.prev
	n.prev, n.next = nil, nil
}

func (c *LRU) remove(n *node) {
	c.unlink(n)
	delete(c.nodes, n.key)
	size := int64(len(n.rec))
	c.size -= size
	c.rc.ReleaseMemory(size)
}
