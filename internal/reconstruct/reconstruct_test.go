package reconstruct

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/trajstore/internal/grid"
	"github.com/hupe1980/trajstore/internal/video"
)

var geom = grid.Geometry{GridSize: 2, TileHeight: 3, TileWidth: 4, NumEnvs: 4}

// tileValue gives every tile a distinct fill so crops can be identified.
func tileValue(frame, env int) byte { return byte(frame*10 + env + 1) }

func writeSegment(t *testing.T, path string, ordinal uint64, frames int, seal bool) {
	t.Helper()
	w, err := video.Create(nil, path, video.Header{
		TileWidth:   uint32(geom.TileWidth),
		TileHeight:  uint32(geom.TileHeight),
		GridSize:    uint32(geom.GridSize),
		NumEnvs:     uint32(geom.NumEnvs),
		Compression: video.CompressionLZ4,
		Ordinal:     ordinal,
	})
	require.NoError(t, err)
	for f := 0; f < frames; f++ {
		tiles := make([][]byte, geom.NumEnvs)
		for e := range tiles {
			tiles[e] = filled(tileValue(f, e))
		}
		g, err := geom.Compose(tiles, grid.LayoutHWC)
		require.NoError(t, err)
		require.NoError(t, w.Append(g))
	}
	if seal {
		require.NoError(t, w.Close())
		return
	}
	require.NoError(t, w.Flush())
	t.Cleanup(func() { w.Close() })
}

func filled(v byte) []byte {
	b := make([]byte, geom.TileBytes())
	for i := range b {
		b[i] = v
	}
	return b
}

func TestRun_OrderAndContent(t *testing.T) {
	dir := t.TempDir()
	p1 := filepath.Join(dir, "frames_1.trjv")
	p2 := filepath.Join(dir, "frames_2.trjv")
	writeSegment(t, p1, 1, 3, true)
	writeSegment(t, p2, 2, 2, false)

	r := &Reconstructor{Geometry: geom, Concurrency: 2}
	res, err := r.Run(context.Background(), []Source{
		{Ordinal: 1, Path: p1, Sealed: true, Offsets: roaring.BitmapOf(2, 0)},
		{Ordinal: 2, Path: p2, Offsets: roaring.BitmapOf(1)},
	}, 3)
	require.NoError(t, err)
	require.Empty(t, res.Failures)
	assert.Equal(t, []Ref{{1, 0}, {1, 2}, {2, 1}}, res.Refs)
	assert.Equal(t, [][]byte{filled(tileValue(0, 3)), filled(tileValue(2, 3)), filled(tileValue(1, 3))}, res.Tiles)
}

func TestRun_Empty(t *testing.T) {
	r := &Reconstructor{Geometry: geom}
	res, err := r.Run(context.Background(), []Source{{Ordinal: 1, Path: "missing", Offsets: roaring.New()}}, 0)
	require.NoError(t, err)
	assert.Empty(t, res.Tiles)
	assert.Empty(t, res.Failures)

	_, err = r.Run(context.Background(), nil, 4)
	assert.Error(t, err)
}

func TestRun_FailuresLeaveZeroTiles(t *testing.T) {
	dir := t.TempDir()
	p1 := filepath.Join(dir, "frames_1.trjv")
	writeSegment(t, p1, 1, 2, true)

	// Corrupt the first frame record's checksum.
	data, err := os.ReadFile(p1)
	require.NoError(t, err)
	data[video.HeaderSize+8] ^= 0xff
	require.NoError(t, os.WriteFile(p1, data, 0o644))

	r := &Reconstructor{Geometry: geom}
	res, err := r.Run(context.Background(), []Source{
		{Ordinal: 1, Path: p1, Sealed: true, Offsets: roaring.BitmapOf(0, 1)},
		{Ordinal: 2, Path: filepath.Join(dir, "frames_2.trjv"), Sealed: true, Offsets: roaring.BitmapOf(0)},
	}, 1)
	require.NoError(t, err)
	require.Len(t, res.Tiles, 3)
	assert.Equal(t, make([]byte, geom.TileBytes()), res.Tiles[0])
	assert.Equal(t, filled(tileValue(1, 1)), res.Tiles[1])
	assert.Equal(t, make([]byte, geom.TileBytes()), res.Tiles[2])

	require.Len(t, res.Failures, 2)
	assert.Equal(t, Ref{1, 0}, res.Failures[0].Ref)
	assert.ErrorIs(t, res.Failures[0].Err, video.ErrCorruptFrame)
	assert.Equal(t, Ref{2, 0}, res.Failures[1].Ref)
}

func TestRun_GeometryMismatch(t *testing.T) {
	p := filepath.Join(t.TempDir(), "frames_1.trjv")
	writeSegment(t, p, 1, 1, true)

	other := geom
	other.TileWidth = 2
	r := &Reconstructor{Geometry: other}
	res, err := r.Run(context.Background(), []Source{{Ordinal: 1, Path: p, Sealed: true, Offsets: roaring.BitmapOf(0)}}, 0)
	require.NoError(t, err)
	require.Len(t, res.Failures, 1)
}

func TestRun_Canceled(t *testing.T) {
	p := filepath.Join(t.TempDir(), "frames_1.trjv")
	writeSegment(t, p, 1, 2, true)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	r := &Reconstructor{Geometry: geom}
	_, err := r.Run(ctx, []Source{{Ordinal: 1, Path: p, Sealed: true, Offsets: roaring.BitmapOf(0, 1)}}, 0)
	assert.ErrorIs(t, err, context.Canceled)
}
