package trajstore

import (
	"log/slog"

	"github.com/hupe1980/trajstore/internal/fs"
	"github.com/hupe1980/trajstore/internal/grid"
	"github.com/hupe1980/trajstore/internal/reconstruct"
	"github.com/hupe1980/trajstore/internal/video"
)

// Compression selects the codec used for stored grid frames.
type Compression = video.Compression

const (
	CompressionNone = video.CompressionNone
	CompressionLZ4  = video.CompressionLZ4
	CompressionZSTD = video.CompressionZSTD
)

// ChannelLayout describes the memory order of observation frames.
type ChannelLayout = grid.Layout

const (
	// LayoutHWC is interleaved RGB, row by row.
	LayoutHWC = grid.LayoutHWC
	// LayoutCHW is planar: all red values, then green, then blue.
	LayoutCHW = grid.LayoutCHW
)

// SliceOrder selects how GetSlice orders frames from different segments.
type SliceOrder int

const (
	// SliceOrderChronological returns frames oldest first: sealed segments
	// by ordinal, then the open segment.
	SliceOrderChronological SliceOrder = iota
	// SliceOrderActiveFirst returns the open segment's frames before those
	// of sealed segments.
	SliceOrderActiveFirst
)

func (o SliceOrder) String() string {
	switch o {
	case SliceOrderChronological:
		return "chronological"
	case SliceOrderActiveFirst:
		return "active-first"
	default:
		return "unknown"
	}
}

// DefaultIndexCacheSize is the number of index rows kept in memory across
// all cached sealed segments.
const DefaultIndexCacheSize = 1 << 20

type options struct {
	logger            *Logger
	metricsCollector  MetricsCollector
	fps               int
	compression       Compression
	layout            ChannelLayout
	order             SliceOrder
	fsys              fs.FileSystem
	indexCacheSize    int64
	decodeConcurrency int
	overwrite         bool
}

// Option configures a Store or Archive.
type Option func(*options)

// WithLogger configures structured logging. Pass nil to disable logging.
//
//	logger := trajstore.NewJSONLogger(slog.LevelInfo)
//	store, _ := trajstore.New(cfg, trajstore.WithLogger(logger))
func WithLogger(logger *Logger) Option {
	return func(o *options) {
		if logger == nil {
			logger = NoopLogger()
		}
		o.logger = logger
	}
}

// WithLogLevel creates a text logger with the specified level and sets it.
// Convenience wrapper for WithLogger(NewTextLogger(level)).
func WithLogLevel(level slog.Level) Option {
	return func(o *options) {
		o.logger = NewTextLogger(level)
	}
}

// WithMetricsCollector configures a metrics collector. Pass nil to disable
// metrics collection.
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		if mc == nil {
			mc = NoopMetricsCollector{}
		}
		o.metricsCollector = mc
	}
}

// WithFPS sets the playback rate stamped into segment headers (default 20).
func WithFPS(fps int) Option {
	return func(o *options) {
		if fps > 0 {
			o.fps = fps
		}
	}
}

// WithCompression sets the frame codec (default LZ4).
func WithCompression(c Compression) Option {
	return func(o *options) {
		o.compression = c
	}
}

// WithChannelLayout sets the memory order of observation frames (default
// HWC).
func WithChannelLayout(l ChannelLayout) Option {
	return func(o *options) {
		o.layout = l
	}
}

// WithSliceOrder sets the frame order of GetSlice results.
func WithSliceOrder(order SliceOrder) Option {
	return func(o *options) {
		o.order = order
	}
}

// WithFileSystem replaces the file system used for segment and index files.
// Sealed segments are always memory-mapped from the local file system.
func WithFileSystem(fsys fs.FileSystem) Option {
	return func(o *options) {
		if fsys != nil {
			o.fsys = fsys
		}
	}
}

// WithIndexCacheSize bounds the number of sealed index rows kept in memory.
// Zero disables the cache.
func WithIndexCacheSize(rows int64) Option {
	return func(o *options) {
		o.indexCacheSize = rows
	}
}

// WithDecodeConcurrency bounds the number of segments decoded in parallel
// by GetSlice.
func WithDecodeConcurrency(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.decodeConcurrency = n
		}
	}
}

// WithOverwrite lets New delete the segments of an earlier run found in the
// output folder.
func WithOverwrite(overwrite bool) Option {
	return func(o *options) {
		o.overwrite = overwrite
	}
}

func applyOptions(optFns []Option) options {
	o := options{
		logger:            NoopLogger(),
		metricsCollector:  NoopMetricsCollector{},
		fps:               video.DefaultFPS,
		compression:       CompressionLZ4,
		layout:            LayoutHWC,
		order:             SliceOrderChronological,
		fsys:              fs.Default,
		indexCacheSize:    DefaultIndexCacheSize,
		decodeConcurrency: reconstruct.DefaultConcurrency,
	}
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}
	return o
}
