package trajstore

import (
	"context"
	"math/rand"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/trajstore/internal/episode"
	"github.com/hupe1980/trajstore/internal/fs"
	"github.com/hupe1980/trajstore/internal/video"
)

func testConfig(t *testing.T) Config {
	return Config{
		OutputFolder:        filepath.Join(t.TempDir(), "videos"),
		MaxFramesPerSegment: 3,
		GridSize:            2,
		FrameHeight:         4,
		FrameWidth:          5,
		NumEnvs:             4,
	}
}

// stepValue is the fill byte of env's frame at step.
func stepValue(step, env int) byte { return byte(step*16 + env + 1) }

func tile(cfg Config, v byte) []byte {
	b := make([]byte, cfg.FrameHeight*cfg.FrameWidth*3)
	for i := range b {
		b[i] = v
	}
	return b
}

func observations(cfg Config, step int) [][]byte {
	obs := make([][]byte, cfg.NumEnvs)
	for e := range obs {
		obs[e] = tile(cfg, stepValue(step, e))
	}
	return obs
}

func dones(flags string) []bool {
	out := make([]bool, len(flags))
	for i, c := range flags {
		out[i] = c == 'T'
	}
	return out
}

func readIndex(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

// recordScenario writes the five steps of the reference scenario.
func recordScenario(t *testing.T, s *Store) {
	t.Helper()
	cfg := s.Config()
	for step, flags := range []string{"FFFF", "TFFF", "FFFF", "FFFF", "FTFF"} {
		require.NoError(t, s.UpdateAndSaveFrame(observations(cfg, step), dones(flags)))
	}
}

func TestStore_Scenario(t *testing.T) {
	cfg := testConfig(t)
	s, err := New(cfg)
	require.NoError(t, err)
	defer s.Close()
	recordScenario(t, s)

	segs := s.Segments()
	require.Len(t, segs, 2)
	assert.True(t, segs[0].Sealed)
	assert.Equal(t, 3, segs[0].Frames)
	assert.False(t, segs[1].Sealed)
	assert.Equal(t, 2, segs[1].Frames)
	assert.Equal(t, []int{1, 1, 0, 0}, s.Counters())

	assert.Equal(t, "0,0,0,0\n0,0,0,0\n1,0,0,0\n", readIndex(t, segs[0].IndexPath))
	assert.NoFileExists(t, segs[1].IndexPath)

	ctx := context.Background()

	sl, err := s.GetSlice(ctx, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, []FrameRef{{1, 0}, {1, 1}}, sl.Refs)
	assert.Equal(t, [][]byte{tile(cfg, stepValue(0, 0)), tile(cfg, stepValue(1, 0))}, sl.Tiles)
	assert.Zero(t, sl.Dropped)

	// Episode 1 of env 0 spans the sealed and the open segment.
	sl, err = s.GetSlice(ctx, 0, 1)
	require.NoError(t, err)
	assert.Equal(t, []FrameRef{{1, 2}, {2, 0}, {2, 1}}, sl.Refs)
	assert.Equal(t, [][]byte{tile(cfg, stepValue(2, 0)), tile(cfg, stepValue(3, 0)), tile(cfg, stepValue(4, 0))}, sl.Tiles)

	// The frame on which env 1 finished still belongs to episode 0.
	sl, err = s.GetSlice(ctx, 1, 0)
	require.NoError(t, err)
	assert.Equal(t, 5, sl.Len())
	sl, err = s.GetSlice(ctx, 1, 1)
	require.NoError(t, err)
	assert.Equal(t, 0, sl.Len())

	sl, err = s.GetSlice(ctx, 2, 99)
	require.NoError(t, err)
	assert.Equal(t, 0, sl.Len())
	assert.Empty(t, sl.Refs)

	_, err = s.GetSlice(ctx, 4, 0)
	assert.ErrorIs(t, err, ErrInvalidEnv)
	_, err = s.GetSlice(ctx, -1, 0)
	assert.ErrorIs(t, err, ErrInvalidEnv)

	require.NoError(t, s.Close())
	assert.Equal(t, "1,0,0,0\n1,0,0,0\n", readIndex(t, segs[1].IndexPath))
}

func TestStore_ActiveFirstOrder(t *testing.T) {
	cfg := testConfig(t)
	s, err := New(cfg, WithSliceOrder(SliceOrderActiveFirst))
	require.NoError(t, err)
	defer s.Close()
	recordScenario(t, s)

	sl, err := s.GetSlice(context.Background(), 0, 1)
	require.NoError(t, err)
	assert.Equal(t, []FrameRef{{2, 0}, {2, 1}, {1, 2}}, sl.Refs)
	assert.Equal(t, tile(cfg, stepValue(3, 0)), sl.Tiles[0])
}

func TestStore_FewerFramesThanSegment(t *testing.T) {
	cfg := testConfig(t)
	cfg.MaxFramesPerSegment = 10
	s, err := New(cfg)
	require.NoError(t, err)
	for step := 0; step < 4; step++ {
		require.NoError(t, s.UpdateAndSaveFrame(observations(cfg, step), dones("FFFF")))
	}
	require.NoError(t, s.Close())

	segs := s.Segments()
	require.Len(t, segs, 1)
	assert.True(t, segs[0].Sealed)

	r, err := video.OpenMapped(segs[0].VideoPath)
	require.NoError(t, err)
	defer r.Close()
	assert.Equal(t, 4, r.Frames())
	assert.Equal(t, "0,0,0,0\n0,0,0,0\n0,0,0,0\n0,0,0,0\n", readIndex(t, segs[0].IndexPath))
}

func TestStore_RolloverCounts(t *testing.T) {
	cfg := testConfig(t)
	m := cfg.MaxFramesPerSegment
	s, err := New(cfg)
	require.NoError(t, err)
	defer s.Close()

	for step := 0; step < m; step++ {
		require.NoError(t, s.UpdateAndSaveFrame(observations(cfg, step), dones("FFFF")))
	}
	// Rollover is eager: the next segment is open as soon as one is full.
	segs := s.Segments()
	require.Len(t, segs, 2)
	assert.Equal(t, 0, segs[1].Frames)

	require.NoError(t, s.UpdateAndSaveFrame(observations(cfg, m), dones("FFFF")))
	segs = s.Segments()
	require.Len(t, segs, 2)
	assert.True(t, segs[0].Sealed)
	assert.Equal(t, m, segs[0].Frames)
	assert.False(t, segs[1].Sealed)
	assert.Equal(t, 1, segs[1].Frames)
}

func TestStore_CloseAfterRolloverSealsEmptySegment(t *testing.T) {
	cfg := testConfig(t)
	s, err := New(cfg)
	require.NoError(t, err)
	for step := 0; step < cfg.MaxFramesPerSegment; step++ {
		require.NoError(t, s.UpdateAndSaveFrame(observations(cfg, step), dones("FFFF")))
	}
	require.NoError(t, s.Close())

	segs := s.Segments()
	require.Len(t, segs, 2)
	assert.True(t, segs[1].Sealed)
	assert.Equal(t, 0, segs[1].Frames)
	assert.Equal(t, "", readIndex(t, segs[1].IndexPath))
}

func TestStore_CounterTiming(t *testing.T) {
	cfg := testConfig(t)
	cfg.MaxFramesPerSegment = 100
	s, err := New(cfg)
	require.NoError(t, err)

	rng := rand.New(rand.NewSource(7))
	var wantRows [][]int
	for step := 0; step < 40; step++ {
		flags := make([]bool, cfg.NumEnvs)
		for e := range flags {
			flags[e] = rng.Intn(4) == 0
		}
		prev := s.Counters()
		wantRows = append(wantRows, prev)
		require.NoError(t, s.UpdateAndSaveFrame(observations(cfg, step), flags))

		cur := s.Counters()
		for e := range flags {
			want := prev[e]
			if flags[e] {
				want++
			}
			assert.Equal(t, want, cur[e], "step %d env %d", step, e)
		}
	}
	require.NoError(t, s.Close())

	tbl, err := episode.ReadTable(nil, s.Segments()[0].IndexPath, cfg.NumEnvs)
	require.NoError(t, err)
	assert.Equal(t, wantRows, tbl.Rows)
}

func toCHW(hwc []byte, h, w int) []byte {
	chw := make([]byte, len(hwc))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			for c := 0; c < 3; c++ {
				chw[c*h*w+y*w+x] = hwc[(y*w+x)*3+c]
			}
		}
	}
	return chw
}

func TestStore_RoundTripPixelExact(t *testing.T) {
	tests := []struct {
		name   string
		opts   []Option
		planar bool
	}{
		{"lz4", nil, false},
		{"zstd", []Option{WithCompression(CompressionZSTD)}, false},
		{"none", []Option{WithCompression(CompressionNone)}, false},
		{"chw", []Option{WithChannelLayout(LayoutCHW)}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig(t)
			cfg.NumEnvs = 3
			s, err := New(cfg, tt.opts...)
			require.NoError(t, err)
			defer s.Close()

			rng := rand.New(rand.NewSource(1))
			var want [][]byte // env 2 tiles, all in episode 0
			for step := 0; step < 7; step++ {
				obs := make([][]byte, cfg.NumEnvs)
				for e := range obs {
					hwc := make([]byte, cfg.FrameHeight*cfg.FrameWidth*3)
					rng.Read(hwc)
					if e == 2 {
						want = append(want, hwc)
					}
					if tt.planar {
						obs[e] = toCHW(hwc, cfg.FrameHeight, cfg.FrameWidth)
					} else {
						obs[e] = hwc
					}
				}
				require.NoError(t, s.UpdateAndSaveFrame(obs, []bool{false, false, false}))
			}

			sl, err := s.GetSlice(context.Background(), 2, 0)
			require.NoError(t, err)
			assert.Equal(t, want, sl.Tiles)
			assert.Equal(t, cfg.FrameWidth, sl.Width)

			img := sl.Image(0)
			assert.Equal(t, cfg.FrameWidth, img.Bounds().Dx())
			assert.Equal(t, cfg.FrameHeight, img.Bounds().Dy())
			px := img.RGBAAt(0, 0)
			assert.Equal(t, []byte{want[0][0], want[0][1], want[0][2], 255}, []byte{px.R, px.G, px.B, px.A})
		})
	}
}

func TestStore_ShapeMismatch(t *testing.T) {
	cfg := testConfig(t)
	s, err := New(cfg)
	require.NoError(t, err)
	defer s.Close()

	var sm *ErrShapeMismatch

	err = s.UpdateAndSaveFrame(observations(cfg, 0)[:3], dones("FFFF"))
	require.ErrorAs(t, err, &sm)
	assert.Equal(t, "observations", sm.Input)
	assert.Equal(t, -1, sm.Index)

	obs := observations(cfg, 0)
	obs[2] = obs[2][:10]
	err = s.UpdateAndSaveFrame(obs, dones("FFFF"))
	require.ErrorAs(t, err, &sm)
	assert.Equal(t, 2, sm.Index)
	assert.Equal(t, 10, sm.Actual)

	err = s.UpdateAndSaveFrame(observations(cfg, 0), dones("FFF"))
	require.ErrorAs(t, err, &sm)
	assert.Equal(t, "dones", sm.Input)

	// Rejected calls write nothing and leave the counters alone.
	assert.Equal(t, 0, s.Segments()[0].Frames)
	assert.Equal(t, []int{0, 0, 0, 0}, s.Counters())
	require.NoError(t, s.UpdateAndSaveFrame(observations(cfg, 0), dones("TFFF")))
	assert.Equal(t, 1, s.Segments()[0].Frames)
}

func TestStore_Close(t *testing.T) {
	cfg := testConfig(t)
	s, err := New(cfg)
	require.NoError(t, err)
	require.NoError(t, s.UpdateAndSaveFrame(observations(cfg, 0), dones("FFFF")))

	require.NoError(t, s.Close())
	require.NoError(t, s.Close())

	assert.ErrorIs(t, s.UpdateAndSaveFrame(observations(cfg, 1), dones("FFFF")), ErrClosed)
	sl, err := s.GetSlice(context.Background(), 0, 0)
	require.NoError(t, err)
	assert.Equal(t, []FrameRef{{1, 0}}, sl.Refs)

	var nilStore *Store
	assert.NoError(t, nilStore.Close())
}

func TestNew_InvalidConfig(t *testing.T) {
	cfg := testConfig(t)
	cfg.NumEnvs = 5
	_, err := New(cfg)
	var ic *ErrInvalidConfig
	require.ErrorAs(t, err, &ic)
	assert.Equal(t, "NumEnvs", ic.Field)
	assert.NoDirExists(t, cfg.OutputFolder)
}

func TestNew_Locked(t *testing.T) {
	cfg := testConfig(t)
	s, err := New(cfg)
	require.NoError(t, err)

	_, err = New(cfg, WithOverwrite(true))
	assert.ErrorIs(t, err, ErrLocked)

	require.NoError(t, s.Close())
	s2, err := New(cfg, WithOverwrite(true))
	require.NoError(t, err)
	require.NoError(t, s2.Close())
}

func TestNew_ExistingSegments(t *testing.T) {
	cfg := testConfig(t)
	s, err := New(cfg)
	require.NoError(t, err)
	recordScenario(t, s)
	require.NoError(t, s.Close())

	_, err = New(cfg)
	require.ErrorIs(t, err, ErrExistingSegments)
	assert.NoFileExists(t, filepath.Join(cfg.OutputFolder, LockFileName))
	assert.FileExists(t, filepath.Join(cfg.OutputFolder, "frames_2.trjv"))

	// The failed New released the lock.
	s, err = New(cfg, WithOverwrite(true))
	require.NoError(t, err)
	defer s.Close()
	segs := s.Segments()
	require.Len(t, segs, 1)
	assert.NoFileExists(t, filepath.Join(cfg.OutputFolder, "frames_2.trjv"))
	assert.NoFileExists(t, filepath.Join(cfg.OutputFolder, "episodes_1.csv"))
}

func TestNew_SetupFailure(t *testing.T) {
	cfg := testConfig(t)
	ffs := fs.NewFaultyFS(nil)
	ffs.AddRule("frames_1", fs.Fault{FailOnOpen: true})

	_, err := New(cfg, WithFileSystem(ffs))
	require.ErrorIs(t, err, fs.ErrInjected)
	assert.NoDirExists(t, cfg.OutputFolder)

	// No lock is left behind.
	s, err := New(cfg)
	require.NoError(t, err)
	require.NoError(t, s.Close())
}

func TestNew_SetupFailureKeepsExistingFolder(t *testing.T) {
	cfg := testConfig(t)
	require.NoError(t, os.MkdirAll(cfg.OutputFolder, 0o755))
	keep := filepath.Join(cfg.OutputFolder, "notes.txt")
	require.NoError(t, os.WriteFile(keep, []byte("x"), 0o644))

	ffs := fs.NewFaultyFS(nil)
	ffs.AddRule("frames_1", fs.Fault{FailOnOpen: true})
	_, err := New(cfg, WithFileSystem(ffs))
	require.ErrorIs(t, err, fs.ErrInjected)

	assert.FileExists(t, keep)
	assert.NoFileExists(t, filepath.Join(cfg.OutputFolder, LockFileName))
}

func TestStore_CorruptFrameIsDropped(t *testing.T) {
	cfg := testConfig(t)
	metrics := &BasicMetricsCollector{}
	s, err := New(cfg, WithCompression(CompressionNone), WithMetricsCollector(metrics))
	require.NoError(t, err)
	defer s.Close()
	recordScenario(t, s)

	// Flip a payload byte of frame 0 in the sealed first segment.
	path := s.Segments()[0].VideoPath
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	data[video.HeaderSize+video.RecordHeaderSize] ^= 0xff
	require.NoError(t, os.WriteFile(path, data, 0o644))

	sl, err := s.GetSlice(context.Background(), 0, 0)
	require.NoError(t, err)
	require.Equal(t, 2, sl.Len())
	assert.Equal(t, 1, sl.Dropped)
	assert.Equal(t, make([]byte, len(sl.Tiles[0])), sl.Tiles[0])
	assert.Equal(t, tile(cfg, stepValue(1, 0)), sl.Tiles[1])

	stats := metrics.GetStats()
	assert.Equal(t, int64(5), stats.FrameCount)
	assert.Equal(t, int64(1), stats.RolloverCount)
	assert.Equal(t, int64(1), stats.SliceCount)
	assert.Equal(t, int64(1), stats.SliceDropped)
}

func TestStore_FailedRolloverIsSticky(t *testing.T) {
	cfg := testConfig(t)
	ffs := fs.NewFaultyFS(nil)
	ffs.AddRule("episodes_1.csv", fs.Fault{FailOnRename: true})
	s, err := New(cfg, WithFileSystem(ffs))
	require.NoError(t, err)

	require.NoError(t, s.UpdateAndSaveFrame(observations(cfg, 0), dones("FFFF")))
	require.NoError(t, s.UpdateAndSaveFrame(observations(cfg, 1), dones("FFFF")))
	err = s.UpdateAndSaveFrame(observations(cfg, 2), dones("FFFF"))
	require.ErrorIs(t, err, fs.ErrInjected)

	ffs.ClearRules()
	err2 := s.UpdateAndSaveFrame(observations(cfg, 3), dones("FFFF"))
	assert.Equal(t, err, err2)
	sl, err := s.GetSlice(context.Background(), 0, 0)
	require.NoError(t, err)
	assert.Zero(t, sl.Len())

	require.NoError(t, s.Close())
	assert.NoFileExists(t, filepath.Join(cfg.OutputFolder, "episodes_1.csv"))
}

func TestStore_GetSliceAfterClose(t *testing.T) {
	cfg := testConfig(t)
	s, err := New(cfg)
	require.NoError(t, err)
	recordScenario(t, s)
	require.NoError(t, s.Close())

	ctx := context.Background()
	sl, err := s.GetSlice(ctx, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, []FrameRef{{1, 0}, {1, 1}}, sl.Refs)
	assert.Equal(t, [][]byte{tile(cfg, stepValue(0, 0)), tile(cfg, stepValue(1, 0))}, sl.Tiles)

	sl, err = s.GetSlice(ctx, 0, 1)
	require.NoError(t, err)
	assert.Equal(t, []FrameRef{{1, 2}, {2, 0}, {2, 1}}, sl.Refs)
	assert.Equal(t, [][]byte{tile(cfg, stepValue(2, 0)), tile(cfg, stepValue(3, 0)), tile(cfg, stepValue(4, 0))}, sl.Tiles)
	assert.Zero(t, sl.Dropped)

	sl, err = s.GetSlice(ctx, 1, 0)
	require.NoError(t, err)
	assert.Equal(t, 5, sl.Len())
}

func TestStore_GetSliceAfterWriteFailure(t *testing.T) {
	cfg := testConfig(t)
	ffs := fs.NewFaultyFS(nil)
	ffs.AddRule("episodes_2.csv", fs.Fault{FailOnRename: true})
	s, err := New(cfg, WithFileSystem(ffs))
	require.NoError(t, err)
	recordScenario(t, s)

	// The sixth frame fills segment 2, whose index cannot be written.
	require.ErrorIs(t, s.UpdateAndSaveFrame(observations(cfg, 5), dones("FFFF")), fs.ErrInjected)

	ctx := context.Background()
	sl, err := s.GetSlice(ctx, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, []FrameRef{{1, 0}, {1, 1}}, sl.Refs)

	sl, err = s.GetSlice(ctx, 0, 1)
	require.NoError(t, err)
	assert.Equal(t, []FrameRef{{1, 2}}, sl.Refs)
	assert.Equal(t, [][]byte{tile(cfg, stepValue(2, 0))}, sl.Tiles)

	require.NoError(t, s.Close())
}

func TestStore_ConcurrentReads(t *testing.T) {
	cfg := testConfig(t)
	s, err := New(cfg, WithDecodeConcurrency(2))
	require.NoError(t, err)
	defer s.Close()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for step := 0; step < 20; step++ {
			flags := "FFFF"
			if step%5 == 4 {
				flags = "TFFF"
			}
			assert.NoError(t, s.UpdateAndSaveFrame(observations(cfg, step), dones(flags)))
		}
	}()
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				sl, err := s.GetSlice(context.Background(), 0, j%4)
				if assert.NoError(t, err) {
					assert.Zero(t, sl.Dropped)
					assert.LessOrEqual(t, sl.Len(), 5)
				}
			}
		}()
	}
	wg.Wait()

	sl, err := s.GetSlice(context.Background(), 0, 1)
	require.NoError(t, err)
	assert.Equal(t, 5, sl.Len())
	for i, ref := range sl.Refs {
		step := int(ref.Ordinal-1)*cfg.MaxFramesPerSegment + ref.Offset
		assert.Equal(t, 5+i, step)
		assert.Equal(t, tile(cfg, stepValue(step, 0)), sl.Tiles[i])
	}
}
