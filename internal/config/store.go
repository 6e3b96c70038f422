package config

import (
	"fmt"

	"github.com/hupe1980/trajstore"
	"github.com/hupe1980/trajstore/internal/grid"
	"github.com/hupe1980/trajstore/internal/video"
)

// StoreConfig returns the construction parameters of a trajstore.Store.
func (c *Config) StoreConfig() trajstore.Config {
	return trajstore.Config{
		OutputFolder:        c.Storage.OutputFolder,
		MaxFramesPerSegment: c.Storage.MaxFramesPerSegment,
		GridSize:            c.Video.GridSize,
		FrameHeight:         c.Video.FrameHeight,
		FrameWidth:          c.Video.FrameWidth,
		NumEnvs:             c.Video.NumEnvs,
	}
}

// StoreOptions translates the file settings into store options. Logging
// and metrics are left to the caller.
func (c *Config) StoreOptions() ([]trajstore.Option, error) {
	compression, err := video.ParseCompression(c.Video.Compression)
	if err != nil {
		return nil, err
	}
	layout, err := grid.ParseLayout(c.Video.ChannelLayout)
	if err != nil {
		return nil, err
	}
	order, err := parseSliceOrder(c.Retrieval.SliceOrder)
	if err != nil {
		return nil, err
	}
	return []trajstore.Option{
		trajstore.WithFPS(c.Video.FPS),
		trajstore.WithCompression(compression),
		trajstore.WithChannelLayout(layout),
		trajstore.WithSliceOrder(order),
		trajstore.WithIndexCacheSize(c.Storage.IndexCacheRows),
		trajstore.WithDecodeConcurrency(c.Retrieval.DecodeConcurrency),
		trajstore.WithOverwrite(c.Storage.Overwrite),
	}, nil
}

func parseSliceOrder(s string) (trajstore.SliceOrder, error) {
	switch s {
	case "", "chronological":
		return trajstore.SliceOrderChronological, nil
	case "active-first":
		return trajstore.SliceOrderActiveFirst, nil
	default:
		return 0, fmt.Errorf("retrieval.slice_order must be chronological or active-first, got %q", s)
	}
}
