package trajstore

import (
	"fmt"

	"github.com/hupe1980/trajstore/internal/grid"
)

// Config holds the required construction parameters of a Store.
type Config struct {
	OutputFolder        string `toml:"output_folder"`
	MaxFramesPerSegment int    `toml:"max_frames_per_segment"`
	GridSize            int    `toml:"grid_size"`
	FrameHeight         int    `toml:"frame_height"`
	FrameWidth          int    `toml:"frame_width"`
	NumEnvs             int    `toml:"num_envs"`
}

// Validate checks every field.
func (c Config) Validate() error {
	if c.OutputFolder == "" {
		return &ErrInvalidConfig{Field: "OutputFolder", Reason: "must not be empty"}
	}
	positive := []struct {
		name string
		v    int
	}{
		{"MaxFramesPerSegment", c.MaxFramesPerSegment},
		{"GridSize", c.GridSize},
		{"FrameHeight", c.FrameHeight},
		{"FrameWidth", c.FrameWidth},
		{"NumEnvs", c.NumEnvs},
	}
	for _, p := range positive {
		if p.v <= 0 {
			return &ErrInvalidConfig{Field: p.name, Reason: fmt.Sprintf("must be positive, got %d", p.v)}
		}
	}
	if c.NumEnvs > c.GridSize*c.GridSize {
		return &ErrInvalidConfig{
			Field:  "NumEnvs",
			Reason: fmt.Sprintf("%d does not fit a %dx%d grid", c.NumEnvs, c.GridSize, c.GridSize),
		}
	}
	return nil
}

func (c Config) geometry() grid.Geometry {
	return grid.Geometry{
		GridSize:   c.GridSize,
		TileHeight: c.FrameHeight,
		TileWidth:  c.FrameWidth,
		NumEnvs:    c.NumEnvs,
	}
}
