package resource

import (
	"context"
	"errors"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

// ErrMemoryLimitExceeded is returned when a reservation would exceed the memory limit.
var ErrMemoryLimitExceeded = errors.New("memory limit exceeded")

// Config holds resource limits. Zero means unlimited, except MaxWorkers
// which defaults to 1.
type Config struct {
	// MemoryLimitBytes caps the bytes held by tile buffers, coordinate
	// scratch copies and cached records.
	MemoryLimitBytes int64

	// MaxWorkers caps the number of chunks filtered at the same time across
	// every pipeline sharing the controller.
	MaxWorkers int64

	// IOLimitBytesPerSec caps blob store throughput.
	IOLimitBytesPerSec int64
}

// Usage is a snapshot of a controller's accounting.
type Usage struct {
	MemoryBytes      int64
	PeakMemoryBytes  int64
	MemoryLimitBytes int64
	Workers          int
}

// Controller accounts memory, worker slots and IO throughput.
type Controller struct {
	memLimit int64
	mem      *semaphore.Weighted // nil when unlimited
	used     atomic.Int64
	peak     atomic.Int64

	workers int
	slots   *semaphore.Weighted

	io *rate.Limiter // nil when unlimited
}

// NewController creates a controller enforcing cfg.
func NewController(cfg Config) *Controller {
	workers := max(cfg.MaxWorkers, 1)
	c := &Controller{
		memLimit: max(cfg.MemoryLimitBytes, 0),
		workers:  int(workers),
		slots:    semaphore.NewWeighted(workers),
	}
	if c.memLimit > 0 {
		c.mem = semaphore.NewWeighted(c.memLimit)
	}
	if cfg.IOLimitBytesPerSec > 0 {
		c.io = rate.NewLimiter(rate.Limit(cfg.IOLimitBytesPerSec), int(cfg.IOLimitBytesPerSec))
	}
	return c
}

// AcquireMemory reserves bytes without blocking. It returns
// ErrMemoryLimitExceeded and reserves nothing if the limit would be exceeded.
func (c *Controller) AcquireMemory(bytes int64) error {
	if c == nil || bytes <= 0 {
		return nil
	}
	if c.mem != nil && !c.mem.TryAcquire(bytes) {
		return ErrMemoryLimitExceeded
	}
	used := c.used.Add(bytes)
	for {
		peak := c.peak.Load()
		if used <= peak || c.peak.CompareAndSwap(peak, used) {
			return nil
		}
	}
}

// ReleaseMemory returns bytes reserved by AcquireMemory.
func (c *Controller) ReleaseMemory(bytes int64) {
	if c == nil || bytes <= 0 {
		return
	}
	if c.mem != nil {
		c.mem.Release(bytes)
	}
	c.used.Add(-bytes)
}

// MemoryUsage returns the bytes currently reserved.
func (c *Controller) MemoryUsage() int64 {
	if c == nil {
		return 0
	}
	return c.used.Load()
}

// MaxWorkers returns the worker limit, or 0 for a nil controller.
func (c *Controller) MaxWorkers() int {
	if c == nil {
		return 0
	}
	return c.workers
}

// Usage returns a snapshot of the current accounting.
func (c *Controller) Usage() Usage {
	if c == nil {
		return Usage{}
	}
	return Usage{
		MemoryBytes:      c.used.Load(),
		PeakMemoryBytes:  c.peak.Load(),
		MemoryLimitBytes: c.memLimit,
		Workers:          c.workers,
	}
}

// AcquireWorker takes a worker slot, blocking until one is free or ctx is
// done.
func (c *Controller) AcquireWorker(ctx context.Context) error {
	if c == nil {
		return ctx.Err()
	}
	return c.slots.Acquire(ctx, 1)
}

// ReleaseWorker returns a slot taken by AcquireWorker.
func (c *Controller) ReleaseWorker() {
	if c == nil {
		return
	}
	c.slots.Release(1)
}

// AcquireIO waits until the IO limit admits bytes. Requests larger than the
// bucket wait for several refills.
func (c *Controller) AcquireIO(ctx context.Context, bytes int) error {
	if c == nil || c.io == nil {
		return nil
	}
	burst := c.io.Burst()
	for bytes > 0 {
		n := min(bytes, burst)
		if err := c.io.WaitN(ctx, n); err != nil {
			return err
		}
		bytes -= n
	}
	return nil
}
