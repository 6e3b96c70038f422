package trajstore

import (
	"context"
	"fmt"
	"time"

	"github.com/hupe1980/trajstore/internal/cache"
	"github.com/hupe1980/trajstore/internal/episode"
	"github.com/hupe1980/trajstore/internal/fs"
	"github.com/hupe1980/trajstore/internal/grid"
	"github.com/hupe1980/trajstore/internal/reconstruct"
	"github.com/hupe1980/trajstore/internal/segment"
	"github.com/hupe1980/trajstore/internal/video"
)

// Segment describes one stored segment.
type Segment = segment.Segment

// SegmentHeader is the self-describing header of a segment video file.
type SegmentHeader = video.Header

// retriever resolves episodes against sealed index files and decodes tiles.
// It is shared by Store and Archive.
type retriever struct {
	fsys    fs.FileSystem
	geom    grid.Geometry
	tables  *cache.LRU[string, *episode.Table]
	decoder *reconstruct.Reconstructor
	logger  *Logger
	metrics MetricsCollector
}

func newRetriever(geom grid.Geometry, o options) *retriever {
	return &retriever{
		fsys: o.fsys,
		geom: geom,
		tables: cache.NewLRU[string, *episode.Table](o.indexCacheSize, func(t *episode.Table) int64 {
			return int64(t.Len())
		}),
		decoder: &reconstruct.Reconstructor{
			FS:          o.fsys,
			Geometry:    geom,
			Concurrency: o.decodeConcurrency,
		},
		logger:  o.logger,
		metrics: o.metricsCollector,
	}
}

// table returns the parsed index of a sealed segment.
func (r *retriever) table(seg Segment) (*episode.Table, error) {
	if t, ok := r.tables.Get(seg.IndexPath); ok {
		return t, nil
	}
	t, err := episode.ReadTable(r.fsys, seg.IndexPath, r.geom.NumEnvs)
	if err != nil {
		return nil, fmt.Errorf("trajstore: index of segment %d: %w", seg.Ordinal, err)
	}
	r.tables.Set(seg.IndexPath, t)
	return t, nil
}

// sealedSources matches every sealed segment, oldest first.
func (r *retriever) sealedSources(segs []Segment, env, ep int) ([]reconstruct.Source, error) {
	var sources []reconstruct.Source
	for _, seg := range segs {
		if !seg.Sealed {
			continue
		}
		t, err := r.table(seg)
		if err != nil {
			return nil, err
		}
		sources = append(sources, reconstruct.Source{
			Ordinal: seg.Ordinal,
			Path:    seg.VideoPath,
			Sealed:  true,
			Offsets: episode.Match(t.Rows, env, ep),
		})
	}
	return sources, nil
}

func (r *retriever) checkEnv(env int) error {
	if env < 0 || env >= r.geom.NumEnvs {
		return fmt.Errorf("%w: %d not in [0,%d)", ErrInvalidEnv, env, r.geom.NumEnvs)
	}
	return nil
}

// decode turns matched sources into a Slice, logging every dropped tile.
func (r *retriever) decode(ctx context.Context, sources []reconstruct.Source, env, ep int, start time.Time) (*Slice, error) {
	res, err := r.decoder.Run(ctx, sources, env)
	if err != nil {
		return nil, r.fail(ctx, env, ep, start, err)
	}

	s := &Slice{
		EnvID:     env,
		EpisodeID: ep,
		Width:     r.geom.TileWidth,
		Height:    r.geom.TileHeight,
		Tiles:     res.Tiles,
		Refs:      make([]FrameRef, len(res.Refs)),
		Dropped:   len(res.Failures),
	}
	for i, ref := range res.Refs {
		s.Refs[i] = FrameRef{Ordinal: ref.Ordinal, Offset: ref.Offset}
	}
	for _, f := range res.Failures {
		r.logger.LogTileDropped(ctx, f.Ordinal, f.Offset, f.Err)
	}
	r.logger.LogSlice(ctx, env, ep, s.Len(), s.Dropped, nil)
	r.metrics.RecordSlice(s.Len(), s.Dropped, time.Since(start), nil)
	return s, nil
}

func (r *retriever) fail(ctx context.Context, env, ep int, start time.Time, err error) error {
	r.logger.LogSlice(ctx, env, ep, 0, 0, err)
	r.metrics.RecordSlice(0, 0, time.Since(start), err)
	return err
}
