package episode

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/hupe1980/trajstore/internal/fs"
)

// ErrMalformedIndex is returned when an index file cannot be parsed.
var ErrMalformedIndex = errors.New("episode: malformed index")

// Table is the parsed content of a sealed index file. Row j belongs to frame
// offset j of the segment.
type Table struct {
	NumEnvs int
	Rows    [][]int
}

// Len returns the number of rows.
func (t *Table) Len() int { return len(t.Rows) }

// ReadTable parses the index file at path.
func ReadTable(fsys fs.FileSystem, path string, numEnvs int) (*Table, error) {
	if fsys == nil {
		fsys = fs.Default
	}
	f, err := fs.Open(fsys, path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ParseTable(f, numEnvs)
}

// ParseTable parses index rows from r.
func ParseTable(r io.Reader, numEnvs int) (*Table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = numEnvs
	cr.ReuseRecord = true

	t := &Table{NumEnvs: numEnvs}
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedIndex, err)
		}
		row := make([]int, numEnvs)
		for i, field := range rec {
			v, err := strconv.Atoi(field)
			if err != nil || v < 0 {
				return nil, fmt.Errorf("%w: row %d column %d: %q", ErrMalformedIndex, len(t.Rows), i, field)
			}
			row[i] = v
		}
		t.Rows = append(t.Rows, row)
	}
	return t, nil
}

// WriteTable writes rows to path through a temporary file that is synced and
// then renamed over the target.
func WriteTable(fsys fs.FileSystem, path string, rows [][]int) error {
	if fsys == nil {
		fsys = fs.Default
	}
	var buf bytes.Buffer
	cw := csv.NewWriter(&buf)
	rec := make([]string, 0, 8)
	for _, row := range rows {
		rec = rec[:0]
		for _, v := range row {
			rec = append(rec, strconv.Itoa(v))
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return err
	}

	tmp := path + ".tmp"
	f, err := fs.Create(fsys, tmp)
	if err != nil {
		return err
	}
	if _, err := f.Write(buf.Bytes()); err != nil {
		f.Close()
		_ = fsys.Remove(tmp)
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		_ = fsys.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		_ = fsys.Remove(tmp)
		return err
	}
	if err := fsys.Rename(tmp, path); err != nil {
		_ = fsys.Remove(tmp)
		return err
	}
	return nil
}
