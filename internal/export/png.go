package export

import (
	"errors"
	"fmt"
	"image/png"
	"os"
	"path/filepath"

	"github.com/hupe1980/trajstore/internal/grid"
)

// WritePNGs writes one PNG per tile as <dir>/<prefix>_<i>.png and returns
// the file paths. Tiles are interleaved RGB of w x h pixels.
func WritePNGs(dir, prefix string, tiles [][]byte, w, h int) ([]string, error) {
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("export: invalid tile size %dx%d", w, h)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("export: create directory: %w", err)
	}
	width := len(fmt.Sprint(len(tiles)))
	paths := make([]string, 0, len(tiles))
	for i, tile := range tiles {
		if len(tile) != w*h*grid.Channels {
			return paths, fmt.Errorf("export: tile %d has %d bytes, expected %d", i, len(tile), w*h*grid.Channels)
		}
		path := filepath.Join(dir, fmt.Sprintf("%s_%0*d.png", prefix, width, i))
		if err := writePNG(path, tile, w, h); err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}

func writePNG(path string, tile []byte, w, h int) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("export: %w", err)
	}
	defer func() {
		err = errors.Join(err, f.Close())
	}()
	if err := png.Encode(f, grid.ToRGBA(tile, w, h)); err != nil {
		return fmt.Errorf("export: encode %s: %w", filepath.Base(path), err)
	}
	return nil
}
