package trajstore

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/hupe1980/trajstore/internal/episode"
	"github.com/hupe1980/trajstore/internal/grid"
	"github.com/hupe1980/trajstore/internal/segment"
	"github.com/hupe1980/trajstore/internal/video"
)

// Archive gives read-only access to the output folder of a closed Store.
// Only sealed segments can be searched; a segment left open by a crash has
// no index and is listed but skipped.
type Archive struct {
	dir      string
	header   SegmentHeader
	segments []Segment
	reader   *retriever

	mu     sync.Mutex
	closed bool
}

// EpisodeSummary describes one episode of one environment.
type EpisodeSummary struct {
	Episode int
	Frames  int
	First   FrameRef
	Last    FrameRef
}

// OpenArchive discovers the segments in dir and reads the grid geometry
// from the first segment header.
func OpenArchive(dir string, optFns ...Option) (*Archive, error) {
	o := applyOptions(optFns)
	segs, err := segment.Discover(o.fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("trajstore: discover segments: %w", err)
	}
	if len(segs) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoSegments, dir)
	}

	r, err := video.OpenFile(o.fsys, segs[0].VideoPath)
	if err != nil {
		return nil, err
	}
	hdr := r.Header()
	r.Close()

	geom := grid.Geometry{
		GridSize:   int(hdr.GridSize),
		TileHeight: int(hdr.TileHeight),
		TileWidth:  int(hdr.TileWidth),
		NumEnvs:    int(hdr.NumEnvs),
	}
	if err := geom.Validate(); err != nil {
		return nil, fmt.Errorf("trajstore: segment %d header: %w", segs[0].Ordinal, err)
	}
	return &Archive{
		dir:      dir,
		header:   hdr,
		segments: segs,
		reader:   newRetriever(geom, o),
	}, nil
}

// Dir returns the archive folder.
func (a *Archive) Dir() string { return a.dir }

// Header returns the header of the first segment.
func (a *Archive) Header() SegmentHeader { return a.header }

// NumEnvs returns the number of recorded environments.
func (a *Archive) NumEnvs() int { return a.reader.geom.NumEnvs }

// Segments returns the discovered segments, oldest first.
func (a *Archive) Segments() []Segment { return slices.Clone(a.segments) }

// GetSlice returns the tiles of env during episode from all sealed segments,
// oldest first.
func (a *Archive) GetSlice(ctx context.Context, env, ep int) (*Slice, error) {
	start := time.Now()
	if err := a.check(env); err != nil {
		return nil, a.reader.fail(ctx, env, ep, start, err)
	}
	sources, err := a.reader.sealedSources(a.segments, env, ep)
	if err != nil {
		return nil, a.reader.fail(ctx, env, ep, start, err)
	}
	return a.reader.decode(ctx, sources, env, ep, start)
}

// Episodes summarizes every episode of env found in sealed segments, in
// order of first appearance.
func (a *Archive) Episodes(env int) ([]EpisodeSummary, error) {
	if err := a.check(env); err != nil {
		return nil, err
	}
	var (
		out   []EpisodeSummary
		index = make(map[int]int)
	)
	for _, seg := range a.segments {
		if !seg.Sealed {
			continue
		}
		t, err := a.reader.table(seg)
		if err != nil {
			return nil, err
		}
		for _, sp := range episode.Spans(t.Rows, env) {
			first := FrameRef{Ordinal: seg.Ordinal, Offset: sp.First}
			last := FrameRef{Ordinal: seg.Ordinal, Offset: sp.Last}
			i, ok := index[sp.Episode]
			if !ok {
				index[sp.Episode] = len(out)
				out = append(out, EpisodeSummary{Episode: sp.Episode, Frames: sp.Frames, First: first, Last: last})
				continue
			}
			out[i].Frames += sp.Frames
			out[i].Last = last
		}
	}
	return out, nil
}

func (a *Archive) check(env int) error {
	a.mu.Lock()
	closed := a.closed
	a.mu.Unlock()
	if closed {
		return ErrClosed
	}
	return a.reader.checkEnv(env)
}

// Close releases the archive. Further calls return ErrClosed.
func (a *Archive) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.closed = true
	a.reader.tables.Invalidate(func(string) bool { return true })
	return nil
}
