package segment

import (
	"errors"
	"fmt"

	"github.com/hupe1980/trajstore/internal/fs"
	"github.com/hupe1980/trajstore/internal/video"
)

// SealFunc is called after a segment's video file has been closed and
// before the segment is marked sealed. It writes the segment's index.
type SealFunc func(seg Segment) error

// Options configures a Manager.
type Options struct {
	FS        fs.FileSystem
	Dir       string
	MaxFrames int
	// Header is the template for every segment header. Ordinal is set by
	// the manager.
	Header video.Header
}

// Manager owns the segment registry and the writer of the open segment. It
// is not safe for concurrent use.
type Manager struct {
	fsys      fs.FileSystem
	dir       string
	maxFrames int
	header    video.Header

	segments []Segment // append-only; the last entry is the open segment while open
	writer   *video.Writer
	closed   bool
}

// New creates dir if needed and opens segment 1.
func New(opts Options) (*Manager, error) {
	if opts.MaxFrames <= 0 {
		return nil, fmt.Errorf("segment: max frames must be positive, got %d", opts.MaxFrames)
	}
	if opts.FS == nil {
		opts.FS = fs.Default
	}
	if err := opts.FS.MkdirAll(opts.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("segment: create directory: %w", err)
	}
	m := &Manager{
		fsys:      opts.FS,
		dir:       opts.Dir,
		maxFrames: opts.MaxFrames,
		header:    opts.Header,
	}
	if err := m.open(1); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Manager) open(k uint64) error {
	hdr := m.header
	hdr.Ordinal = k
	seg := newSegment(m.dir, k)
	w, err := video.Create(m.fsys, seg.VideoPath, hdr)
	if err != nil {
		return fmt.Errorf("segment: open %d: %w", k, err)
	}
	m.writer = w
	m.segments = append(m.segments, seg)
	return nil
}

// Append writes one grid frame to the open segment and reports whether the
// segment has reached MaxFrames.
func (m *Manager) Append(frame []byte) (bool, error) {
	if m.closed {
		return false, ErrClosed
	}
	if m.writer == nil {
		return false, errors.New("segment: no open segment")
	}
	if err := m.writer.Append(frame); err != nil {
		return false, err
	}
	active := &m.segments[len(m.segments)-1]
	active.Frames++
	return active.Frames >= m.maxFrames, nil
}

// FlushActive makes all appended frames of the open segment readable.
func (m *Manager) FlushActive() error {
	if m.closed || m.writer == nil {
		return ErrClosed
	}
	return m.writer.Flush()
}

// Active returns the open segment.
func (m *Manager) Active() (Segment, bool) {
	if m.closed || m.writer == nil {
		return Segment{}, false
	}
	return m.segments[len(m.segments)-1], true
}

// Segments returns a copy of the registry, oldest first.
func (m *Manager) Segments() []Segment {
	out := make([]Segment, len(m.segments))
	copy(out, m.segments)
	return out
}

// Rollover seals the open segment and opens the next ordinal.
func (m *Manager) Rollover(seal SealFunc) error {
	if m.closed {
		return ErrClosed
	}
	next := m.segments[len(m.segments)-1].Ordinal + 1
	if err := m.seal(seal); err != nil {
		return err
	}
	return m.open(next)
}

// Close seals the open segment. The manager cannot be reopened; a second
// Close returns nil.
func (m *Manager) Close(seal SealFunc) error {
	if m.closed {
		return nil
	}
	err := m.seal(seal)
	m.closed = true
	return err
}

// Abort releases the open writer without sealing. Used after an
// unrecoverable write error.
func (m *Manager) Abort() {
	if m.writer != nil {
		_ = m.writer.Close()
		m.writer = nil
	}
	m.closed = true
}

func (m *Manager) seal(seal SealFunc) error {
	if m.writer == nil {
		return errors.New("segment: no open segment")
	}
	active := &m.segments[len(m.segments)-1]
	err := m.writer.Close()
	m.writer = nil
	if err != nil {
		return fmt.Errorf("segment: close %d: %w", active.Ordinal, err)
	}
	if seal != nil {
		if err := seal(*active); err != nil {
			return fmt.Errorf("segment: seal %d: %w", active.Ordinal, err)
		}
	}
	active.Sealed = true
	return nil
}
