package tilestore

import (
	"log/slog"
	"os"

	"github.com/hupe1980/tilestore/codec"
	"github.com/hupe1980/tilestore/filter"
	"github.com/hupe1980/tilestore/resource"
	"github.com/hupe1980/tilestore/tile"
)

type options struct {
	codec            codec.Codec
	filters          []filter.Filter
	rc               *resource.Controller
	cacheSize        int64
	metricsCollector MetricsCollector
	logger           *Logger
	formatVersion    uint32
	key              []byte
}

// Option configures a Store.
type Option func(*options)

// WithCodec sets the codec fragment metadata is written with. The codec name
// is stored in front of the metadata, so stores opened with another codec
// still read it. nil selects codec.Default.
func WithCodec(c codec.Codec) Option {
	return func(o *options) {
		if c == nil {
			c = codec.Default
		}
		o.codec = c
	}
}

// WithFilters sets the filter pipeline tiles are written through.
// Readers always use the pipeline recorded with each tile.
//
// Example:
//
//	st, _ := tilestore.Open(ctx, store,
//	    tilestore.WithFilters(filter.Shuffle{}, filter.NewZSTD(3), filter.CRC32C{}),
//	)
func WithFilters(filters ...filter.Filter) Option {
	return func(o *options) {
		o.filters = filters
	}
}

// WithResourceController charges tile memory, filter workers and blob IO to rc.
//
// Example:
//
//	rc := resource.NewController(resource.Config{
//	    MemoryLimitBytes:   1 << 30,
//	    MaxWorkers:         4,
//	    IOLimitBytesPerSec: 200 << 20,
//	})
//	st, _ := tilestore.Open(ctx, store, tilestore.WithResourceController(rc))
func WithResourceController(rc *resource.Controller) Option {
	return func(o *options) {
		o.rc = rc
	}
}

// WithCacheSize enables a cache of persisted tile records of up to n bytes.
// Zero disables caching.
func WithCacheSize(n int64) Option {
	return func(o *options) {
		o.cacheSize = n
	}
}

// WithMetricsCollector reports every tile write, tile read, commit and cache
// lookup to mc. nil disables metrics.
//
//	metrics := &tilestore.BasicMetricsCollector{}
//	st, _ := tilestore.Open(ctx, store, tilestore.WithMetricsCollector(metrics))
//	...
//	fmt.Printf("reads: %d, hit ratio: %.2f\n", metrics.Stats().Reads.Count, metrics.Stats().HitRatio())
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		if mc == nil {
			mc = NoopMetricsCollector{}
		}
		o.metricsCollector = mc
	}
}

// WithLogger sets the logger for the store and everything it builds. nil
// disables logging.
func WithLogger(logger *Logger) Option {
	return func(o *options) {
		if logger == nil {
			logger = NoopLogger()
		}
		o.logger = logger
	}
}

// WithLogLevel logs text at or above level to stderr.
func WithLogLevel(level slog.Level) Option {
	return func(o *options) {
		o.logger = NewTextLogger(os.Stderr, level)
	}
}

// WithFormatVersion sets the format version stamped on tiles built by the
// store. Defaults to tile.CurrentFormatVersion.
func WithFormatVersion(v uint32) Option {
	return func(o *options) {
		o.formatVersion = v
	}
}

// WithKey encrypts written tiles with XChaCha20-Poly1305 and decrypts
// encrypted tiles on read. The key must be filter.KeySize bytes.
func WithKey(key []byte) Option {
	return func(o *options) {
		o.key = key
	}
}

func applyOptions(optFns []Option) options {
	o := options{
		codec:            codec.Default,
		metricsCollector: NoopMetricsCollector{},
		logger:           NoopLogger(),
		formatVersion:    tile.CurrentFormatVersion,
	}
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}
	return o
}
