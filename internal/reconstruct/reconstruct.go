package reconstruct

import (
	"context"
	"fmt"

	"github.com/RoaringBitmap/roaring/v2"
	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/trajstore/internal/fs"
	"github.com/hupe1980/trajstore/internal/grid"
	"github.com/hupe1980/trajstore/internal/video"
)

// DefaultConcurrency bounds the number of segments decoded at once.
const DefaultConcurrency = 4

// Source is one segment to read and the frame offsets wanted from it.
type Source struct {
	Ordinal uint64
	Path    string
	// Sealed segments are memory-mapped; the open segment is read through
	// the file system because it is still growing.
	Sealed  bool
	Offsets *roaring.Bitmap
}

// Ref locates a frame.
type Ref struct {
	Ordinal uint64
	Offset  int
}

// Failure records a frame that could not be decoded.
type Failure struct {
	Ref
	Err error
}

// Result holds the tiles in output order. A failed frame keeps a zero tile
// and appears in Failures.
type Result struct {
	Tiles    [][]byte
	Refs     []Ref
	Failures []Failure
}

// Reconstructor decodes tiles for one grid geometry.
type Reconstructor struct {
	FS          fs.FileSystem
	Geometry    grid.Geometry
	Concurrency int
}

// Run decodes the tile of env for every offset of every source. It only
// fails when ctx is done.
func (r *Reconstructor) Run(ctx context.Context, sources []Source, env int) (*Result, error) {
	if env < 0 || env >= r.Geometry.NumEnvs {
		return nil, fmt.Errorf("reconstruct: env %d out of range [0,%d)", env, r.Geometry.NumEnvs)
	}

	bases := make([]int, len(sources))
	total := 0
	for i, src := range sources {
		bases[i] = total
		if src.Offsets != nil {
			total += int(src.Offsets.GetCardinality())
		}
	}

	res := &Result{
		Tiles: make([][]byte, total),
		Refs:  make([]Ref, total),
	}
	failures := make([][]Failure, len(sources))

	limit := r.Concurrency
	if limit <= 0 {
		limit = DefaultConcurrency
	}
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)

	for i, src := range sources {
		if src.Offsets == nil || src.Offsets.IsEmpty() {
			continue
		}
		g.Go(func() error {
			var err error
			failures[i], err = r.decodeSource(ctx, src, env, res.Tiles[bases[i]:], res.Refs[bases[i]:])
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	for _, f := range failures {
		res.Failures = append(res.Failures, f...)
	}
	return res, nil
}

func (r *Reconstructor) decodeSource(ctx context.Context, src Source, env int, tiles [][]byte, refs []Ref) ([]Failure, error) {
	var failures []Failure

	rd, openErr := r.open(src)
	if rd != nil {
		defer rd.Close()
	}

	slot := 0
	it := src.Offsets.Iterator()
	for it.HasNext() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		off := int(it.Next())
		ref := Ref{Ordinal: src.Ordinal, Offset: off}
		refs[slot] = ref
		tiles[slot] = make([]byte, r.Geometry.TileBytes())

		err := openErr
		if err == nil {
			err = r.decodeTile(rd, off, env, tiles[slot])
		}
		if err != nil {
			failures = append(failures, Failure{Ref: ref, Err: err})
		}
		slot++
	}
	return failures, nil
}

func (r *Reconstructor) open(src Source) (*video.Reader, error) {
	var (
		rd  *video.Reader
		err error
	)
	if src.Sealed {
		rd, err = video.OpenMapped(src.Path)
	} else {
		rd, err = video.OpenFile(r.FS, src.Path)
	}
	if err != nil {
		return nil, err
	}
	h := rd.Header()
	if int(h.TileWidth) != r.Geometry.TileWidth || int(h.TileHeight) != r.Geometry.TileHeight ||
		int(h.GridSize) != r.Geometry.GridSize {
		rd.Close()
		return nil, fmt.Errorf("reconstruct: segment %d has tiling %dx%d grid %d", src.Ordinal, h.TileWidth, h.TileHeight, h.GridSize)
	}
	return rd, nil
}

func (r *Reconstructor) decodeTile(rd *video.Reader, off, env int, dst []byte) error {
	frame, err := rd.Frame(off)
	if err != nil {
		return err
	}
	return r.Geometry.CropInto(dst, frame, env)
}
