package segment

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/hupe1980/trajstore/internal/fs"
	"github.com/hupe1980/trajstore/internal/video"
)

const (
	videoPrefix = "frames_"
	videoExt    = ".trjv"
	indexPrefix = "episodes_"
	indexExt    = ".csv"
)

// ErrClosed is returned when the manager has been closed.
var ErrClosed = errors.New("segment: manager is closed")

// Segment describes one segment file pair.
type Segment struct {
	Ordinal   uint64
	VideoPath string
	IndexPath string
	Frames    int
	Sealed    bool
}

// VideoPath returns the video file path of segment k.
func VideoPath(dir string, k uint64) string {
	return filepath.Join(dir, videoPrefix+strconv.FormatUint(k, 10)+videoExt)
}

// IndexPath returns the index file path of segment k.
func IndexPath(dir string, k uint64) string {
	return filepath.Join(dir, indexPrefix+strconv.FormatUint(k, 10)+indexExt)
}

func newSegment(dir string, k uint64) Segment {
	return Segment{Ordinal: k, VideoPath: VideoPath(dir, k), IndexPath: IndexPath(dir, k)}
}

// parseOrdinal extracts k from a file named prefix+k+ext.
func parseOrdinal(name, prefix, ext string) (uint64, bool) {
	if !strings.HasPrefix(name, prefix) || !strings.HasSuffix(name, ext) {
		return 0, false
	}
	k, err := strconv.ParseUint(strings.TrimSuffix(strings.TrimPrefix(name, prefix), ext), 10, 64)
	if err != nil || k == 0 {
		return 0, false
	}
	return k, true
}

// Discover lists the segments found in dir, ordered by ordinal. A segment is
// sealed when its index file exists. Frame counts are read from the video
// files.
func Discover(fsys fs.FileSystem, dir string) ([]Segment, error) {
	if fsys == nil {
		fsys = fs.Default
	}
	entries, err := fsys.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	indexes := make(map[uint64]bool)
	var ordinals []uint64
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if k, ok := parseOrdinal(e.Name(), videoPrefix, videoExt); ok {
			ordinals = append(ordinals, k)
		} else if k, ok := parseOrdinal(e.Name(), indexPrefix, indexExt); ok {
			indexes[k] = true
		}
	}
	slices.Sort(ordinals)

	segs := make([]Segment, 0, len(ordinals))
	for _, k := range ordinals {
		s := newSegment(dir, k)
		s.Sealed = indexes[k]
		r, err := video.OpenFile(fsys, s.VideoPath)
		if err != nil {
			return nil, fmt.Errorf("segment %d: %w", k, err)
		}
		s.Frames = r.Frames()
		r.Close()
		segs = append(segs, s)
	}
	return segs, nil
}

// Exists reports whether dir holds any segment video or index files.
func Exists(fsys fs.FileSystem, dir string) (bool, error) {
	if fsys == nil {
		fsys = fs.Default
	}
	entries, err := fsys.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	for _, e := range entries {
		if _, ok := parseOrdinal(e.Name(), videoPrefix, videoExt); ok {
			return true, nil
		}
		if _, ok := parseOrdinal(e.Name(), indexPrefix, indexExt); ok {
			return true, nil
		}
	}
	return false, nil
}

// RemoveAll deletes every segment video and index file in dir.
func RemoveAll(fsys fs.FileSystem, dir string) error {
	if fsys == nil {
		fsys = fs.Default
	}
	entries, err := fsys.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	for _, e := range entries {
		_, isVideo := parseOrdinal(e.Name(), videoPrefix, videoExt)
		_, isIndex := parseOrdinal(e.Name(), indexPrefix, indexExt)
		if !isVideo && !isIndex {
			continue
		}
		if err := fsys.Remove(filepath.Join(dir, e.Name())); err != nil {
			return err
		}
	}
	return nil
}
