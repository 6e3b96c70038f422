package trajstore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"github.com/hupe1980/trajstore/internal/episode"
	"github.com/hupe1980/trajstore/internal/grid"
	"github.com/hupe1980/trajstore/internal/reconstruct"
	"github.com/hupe1980/trajstore/internal/segment"
	"github.com/hupe1980/trajstore/internal/video"
)

// LockFileName is the name of the writer lock created in the output folder.
const LockFileName = ".trajstore.lock"

// Store records grid frames and episode indexes for one training run. All
// methods are safe for concurrent use; ingestion calls are serialized.
type Store struct {
	mu sync.Mutex

	cfg   Config
	geom  grid.Geometry
	opts  options
	runID uuid.UUID
	lock  *flock.Flock

	segments *segment.Manager
	counters *episode.Counters
	rows     *episode.Log
	reader   *retriever

	frame  []byte // composition buffer, reused across steps
	closed bool
	err    error // sticky failure of a write or rollover
}

// New validates cfg, locks and prepares the output folder, and opens the
// first segment.
func New(cfg Config, optFns ...Option) (*Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	o := applyOptions(optFns)
	geom := cfg.geometry()

	_, statErr := o.fsys.Stat(cfg.OutputFolder)
	created := errors.Is(statErr, os.ErrNotExist)
	if err := o.fsys.MkdirAll(cfg.OutputFolder, 0o755); err != nil {
		return nil, fmt.Errorf("trajstore: create output folder: %w", err)
	}

	lockPath := filepath.Join(cfg.OutputFolder, LockFileName)
	lock := flock.New(lockPath)
	ok, err := lock.TryLock()
	if err != nil {
		discardFolder(o, cfg.OutputFolder, created, lockPath)
		return nil, fmt.Errorf("trajstore: acquire lock: %w", err)
	}
	if !ok {
		return nil, ErrLocked
	}

	s, err := newStore(cfg, geom, o, lock)
	if err != nil {
		discardFolder(o, cfg.OutputFolder, created, lockPath)
		_ = lock.Unlock()
		return nil, err
	}
	return s, nil
}

// discardFolder undoes the setup of a failed New: the lock file goes, and
// a folder New created goes with whatever segment files it received.
func discardFolder(o options, dir string, created bool, lockPath string) {
	_ = o.fsys.Remove(lockPath)
	if created {
		_ = segment.RemoveAll(o.fsys, dir)
		_ = o.fsys.Remove(dir)
	}
}

func newStore(cfg Config, geom grid.Geometry, o options, lock *flock.Flock) (*Store, error) {
	exists, err := segment.Exists(o.fsys, cfg.OutputFolder)
	if err != nil {
		return nil, err
	}
	if exists {
		if !o.overwrite {
			return nil, fmt.Errorf("%w: %s", ErrExistingSegments, cfg.OutputFolder)
		}
		if err := segment.RemoveAll(o.fsys, cfg.OutputFolder); err != nil {
			return nil, fmt.Errorf("trajstore: remove old segments: %w", err)
		}
	}

	runID := uuid.New()
	mgr, err := segment.New(segment.Options{
		FS:        o.fsys,
		Dir:       cfg.OutputFolder,
		MaxFrames: cfg.MaxFramesPerSegment,
		Header: video.Header{
			TileWidth:   uint32(cfg.FrameWidth),
			TileHeight:  uint32(cfg.FrameHeight),
			GridSize:    uint32(cfg.GridSize),
			NumEnvs:     uint32(cfg.NumEnvs),
			FPS:         uint32(o.fps),
			Compression: o.compression,
			RunID:       runID,
		},
	})
	if err != nil {
		return nil, err
	}

	o.logger = o.logger.WithRun(runID)
	s := &Store{
		cfg:      cfg,
		geom:     geom,
		opts:     o,
		runID:    runID,
		lock:     lock,
		segments: mgr,
		counters: episode.NewCounters(cfg.NumEnvs),
		rows:     episode.NewLog(cfg.NumEnvs),
		reader:   newRetriever(geom, o),
		frame:    make([]byte, geom.FrameBytes()),
	}
	if active, ok := mgr.Active(); ok {
		o.logger.LogSegmentOpened(context.Background(), active.Ordinal, active.VideoPath)
	}
	return s, nil
}

// UpdateAndSaveFrame stores the observations of one step and applies its
// done flags. observations holds one frame of FrameHeight x FrameWidth x 3
// bytes per environment in the configured channel layout.
//
// The index row of this frame is taken before the done flags are applied.
// When the frame fills the open segment, the segment is sealed and the next
// one opened before the call returns.
func (s *Store) UpdateAndSaveFrame(observations [][]byte, dones []bool) (err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}
	if s.err != nil {
		return s.err
	}
	if err := s.checkBatch(observations, dones); err != nil {
		return err
	}

	start := time.Now()
	defer func() { s.opts.metricsCollector.RecordFrame(time.Since(start), err) }()

	if err := s.geom.ComposeInto(s.frame, observations, s.opts.layout); err != nil {
		return err
	}
	full, err := s.segments.Append(s.frame)
	if err != nil {
		return s.fail(fmt.Errorf("trajstore: write frame: %w", err))
	}
	if err := s.rows.Record(s.counters.Snapshot()); err != nil {
		return s.fail(err)
	}
	if err := s.counters.Increment(dones); err != nil {
		return s.fail(err)
	}
	if full {
		if err := s.rollover(); err != nil {
			return s.fail(err)
		}
	}
	return nil
}

func (s *Store) checkBatch(observations [][]byte, dones []bool) error {
	if len(dones) != s.cfg.NumEnvs {
		return &ErrShapeMismatch{Input: "dones", Index: -1, Expected: s.cfg.NumEnvs, Actual: len(dones)}
	}
	if err := s.geom.CheckBatch(observations); err != nil {
		var se *grid.ShapeError
		if errors.As(err, &se) {
			return &ErrShapeMismatch{Input: "observations", Index: se.Index, Expected: se.Expected, Actual: se.Actual, cause: err}
		}
		return err
	}
	return nil
}

func (s *Store) rollover() error {
	ctx := context.Background()
	active, _ := s.segments.Active()
	start := time.Now()

	err := s.segments.Rollover(s.sealIndex)
	s.opts.logger.LogRollover(ctx, active.Ordinal, active.Frames, err)
	s.opts.metricsCollector.RecordRollover(active.Ordinal, active.Frames, time.Since(start), err)
	if err != nil {
		return err
	}
	if next, ok := s.segments.Active(); ok {
		s.opts.logger.LogSegmentOpened(ctx, next.Ordinal, next.VideoPath)
	}
	return nil
}

// sealIndex writes the buffered rows as the index of seg.
func (s *Store) sealIndex(seg segment.Segment) error {
	return s.rows.Flush(s.opts.fsys, seg.IndexPath)
}

func (s *Store) fail(err error) error {
	s.err = err
	return err
}

// GetSlice returns the tiles of env during episode, read from all sealed
// segments and the open segment. It keeps working after Close and after a
// failed write, reading sealed segments only. An episode without frames yields an empty
// Slice. Frames that cannot be decoded are returned as black tiles and
// counted in Slice.Dropped.
func (s *Store) GetSlice(ctx context.Context, env, ep int) (*Slice, error) {
	start := time.Now()
	if err := s.reader.checkEnv(env); err != nil {
		return nil, s.reader.fail(ctx, env, ep, start, err)
	}

	s.mu.Lock()
	segs := s.segments.Segments()
	// A closed store has no open segment. After a failed write the open
	// segment is left out.
	active, hasActive := s.segments.Active()
	hasActive = hasActive && !s.closed && s.err == nil
	var activeRows [][]int
	var flushErr error
	if hasActive && s.rows.Len() > 0 {
		activeRows = s.rows.Rows()
		flushErr = s.segments.FlushActive()
	}
	s.mu.Unlock()
	if flushErr != nil {
		return nil, s.reader.fail(ctx, env, ep, start, flushErr)
	}

	sources, err := s.reader.sealedSources(segs, env, ep)
	if err != nil {
		return nil, s.reader.fail(ctx, env, ep, start, err)
	}
	if hasActive {
		src := reconstruct.Source{
			Ordinal: active.Ordinal,
			Path:    active.VideoPath,
			Offsets: episode.Match(activeRows, env, ep),
		}
		if s.opts.order == SliceOrderActiveFirst {
			sources = append([]reconstruct.Source{src}, sources...)
		} else {
			sources = append(sources, src)
		}
	}
	return s.reader.decode(ctx, sources, env, ep, start)
}

// Segments returns the segments written so far, oldest first. The last one
// is open unless the store is closed.
func (s *Store) Segments() []Segment {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.segments.Segments()
}

// Counters returns the current episode id of every environment.
func (s *Store) Counters() []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.counters.Snapshot()
}

// RunID returns the id stamped into every segment of this store.
func (s *Store) RunID() uuid.UUID { return s.runID }

// Config returns the construction parameters.
func (s *Store) Config() Config { return s.cfg }
