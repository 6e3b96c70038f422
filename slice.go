package trajstore

import (
	"image"

	"github.com/hupe1980/trajstore/internal/grid"
)

// FrameRef locates a stored grid frame.
type FrameRef struct {
	Ordinal uint64
	Offset  int
}

// Slice is the tile sequence of one episode of one environment.
type Slice struct {
	EnvID     int
	EpisodeID int
	Width     int
	Height    int
	// Tiles holds interleaved RGB tiles of Width x Height pixels.
	Tiles [][]byte
	// Refs[i] is the stored frame Tiles[i] was cropped from.
	Refs []FrameRef
	// Dropped counts tiles that could not be decoded and were left black.
	Dropped int
}

// Len returns the number of tiles.
func (s *Slice) Len() int { return len(s.Tiles) }

// Image returns tile i as an image.
func (s *Slice) Image(i int) *image.RGBA {
	return grid.ToRGBA(s.Tiles[i], s.Width, s.Height)
}
