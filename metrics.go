package tilestore

import (
	"sync/atomic"
	"time"
)

// MetricsCollector receives one call per store operation. Implement it to
// feed a monitoring system; implementations must be safe for concurrent use.
type MetricsCollector interface {
	// RecordTileWrite reports a tile write. bytes is the record size on
	// storage.
	RecordTileWrite(bytes uint64, duration time.Duration, err error)

	// RecordTileRead reports a tile read. bytes is the unfiltered tile size.
	RecordTileRead(bytes uint64, duration time.Duration, err error)

	// RecordCommit reports a fragment commit of tiles tiles.
	RecordCommit(tiles int, duration time.Duration, err error)

	// RecordCacheLookup reports a tile cache lookup.
	RecordCacheLookup(hit bool)
}

// NoopMetricsCollector discards all metrics.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordTileWrite(uint64, time.Duration, error) {}
func (NoopMetricsCollector) RecordTileRead(uint64, time.Duration, error)  {}
func (NoopMetricsCollector) RecordCommit(int, time.Duration, error)       {}
func (NoopMetricsCollector) RecordCacheLookup(bool)                       {}

// opCounter accumulates one kind of operation. units counts bytes for tile
// I/O and tiles for commits.
type opCounter struct {
	count  atomic.Int64
	errors atomic.Int64
	units  atomic.Int64
	nanos  atomic.Int64
}

func (c *opCounter) record(units int64, d time.Duration, err error) {
	c.count.Add(1)
	c.nanos.Add(d.Nanoseconds())
	if err != nil {
		c.errors.Add(1)
		return
	}
	c.units.Add(units)
}

func (c *opCounter) snapshot() OpStats {
	s := OpStats{
		Count:  c.count.Load(),
		Errors: c.errors.Load(),
		Units:  c.units.Load(),
	}
	if s.Count > 0 {
		s.AvgLatency = time.Duration(c.nanos.Load() / s.Count)
	}
	return s
}

// BasicMetricsCollector keeps counters in memory. The zero value is ready to
// use.
type BasicMetricsCollector struct {
	writes, reads, commits opCounter
	hits, misses           atomic.Int64
}

var _ MetricsCollector = (*BasicMetricsCollector)(nil)

func (b *BasicMetricsCollector) RecordTileWrite(bytes uint64, d time.Duration, err error) {
	b.writes.record(int64(bytes), d, err)
}

func (b *BasicMetricsCollector) RecordTileRead(bytes uint64, d time.Duration, err error) {
	b.reads.record(int64(bytes), d, err)
}

func (b *BasicMetricsCollector) RecordCommit(tiles int, d time.Duration, err error) {
	b.commits.record(int64(tiles), d, err)
}

func (b *BasicMetricsCollector) RecordCacheLookup(hit bool) {
	if hit {
		b.hits.Add(1)
		return
	}
	b.misses.Add(1)
}

// OpStats summarizes one kind of operation. Units are bytes for writes and
// reads and tiles for commits; failed operations add none.
type OpStats struct {
	Count      int64
	Errors     int64
	Units      int64
	AvgLatency time.Duration
}

// MetricsStats is a snapshot of a BasicMetricsCollector.
type MetricsStats struct {
	Writes      OpStats
	Reads       OpStats
	Commits     OpStats
	CacheHits   int64
	CacheMisses int64
}

// HitRatio returns the share of cache lookups that hit, or 0 without lookups.
func (s MetricsStats) HitRatio() float64 {
	total := s.CacheHits + s.CacheMisses
	if total == 0 {
		return 0
	}
	return float64(s.CacheHits) / float64(total)
}

// Stats returns a snapshot of the counters.
func (b *BasicMetricsCollector) Stats() MetricsStats {
	return MetricsStats{
		Writes:      b.writes.snapshot(),
		Reads:       b.reads.snapshot(),
		Commits:     b.commits.snapshot(),
		CacheHits:   b.hits.Load(),
		CacheMisses: b.misses.Load(),
	}
}
