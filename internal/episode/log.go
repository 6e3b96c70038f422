package episode

import (
	"fmt"
	"path/filepath"

	"github.com/hupe1980/trajstore/internal/fs"
)

// Log buffers the index rows of the open segment. There is exactly one
// buffer; it is written out and cleared when the segment is sealed.
type Log struct {
	numEnvs int
	rows    [][]int
}

// NewLog creates an empty log for numEnvs environments.
func NewLog(numEnvs int) *Log {
	return &Log{numEnvs: numEnvs}
}

// Record appends the row of the next frame.
func (l *Log) Record(snapshot []int) error {
	if len(snapshot) != l.numEnvs {
		return fmt.Errorf("episode: row has %d ids, expected %d", len(snapshot), l.numEnvs)
	}
	l.rows = append(l.rows, snapshot)
	return nil
}

// Len returns the number of buffered rows.
func (l *Log) Len() int { return len(l.rows) }

// Rows returns a copy of the buffered rows. Row slices are shared; callers
// must not modify them.
func (l *Log) Rows() [][]int {
	out := make([][]int, len(l.rows))
	copy(out, l.rows)
	return out
}

// Flush writes the buffered rows to path and clears the buffer. The file is
// replaced atomically; on error the buffer is kept.
func (l *Log) Flush(fsys fs.FileSystem, path string) error {
	if err := WriteTable(fsys, path, l.rows); err != nil {
		return fmt.Errorf("episode: flush %s: %w", filepath.Base(path), err)
	}
	l.rows = nil
	return nil
}
