package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"github.com/hupe1980/trajstore/internal/grid"
)

//go:embed sample_config.toml
var sampleConfig string

// Storage contains output folder and segment settings.
type Storage struct {
	OutputFolder        string `toml:"output_folder"`
	MaxFramesPerSegment int    `toml:"max_frames_per_segment"`
	Overwrite           bool   `toml:"overwrite"`
	IndexCacheRows      int64  `toml:"index_cache_rows"`
}

// Video contains the grid geometry and encoding settings.
type Video struct {
	NumEnvs       int    `toml:"num_envs"`
	FrameHeight   int    `toml:"frame_height"`
	FrameWidth    int    `toml:"frame_width"`
	GridSize      int    `toml:"grid_size"`
	FPS           int    `toml:"fps"`
	Compression   string `toml:"compression"`
	ChannelLayout string `toml:"channel_layout"`
}

// Retrieval contains episode retrieval settings.
type Retrieval struct {
	SliceOrder        string `toml:"slice_order"`
	DecodeConcurrency int    `toml:"decode_concurrency"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Metrics contains the Prometheus endpoint settings.
type Metrics struct {
	Enabled bool   `toml:"enabled"`
	Listen  string `toml:"listen"`
}

// Simulation drives the synthetic recorder.
type Simulation struct {
	Steps           int     `toml:"steps"`
	DoneProbability float64 `toml:"done_probability"`
	Seed            int64   `toml:"seed"`
}

// Config encapsulates all configuration values of the trajstore command.
type Config struct {
	Storage    Storage    `toml:"storage"`
	Video      Video      `toml:"video"`
	Retrieval  Retrieval  `toml:"retrieval"`
	Logging    Logging    `toml:"logging"`
	Metrics    Metrics    `toml:"metrics"`
	Simulation Simulation `toml:"simulation"`
}

// Load parses, normalizes and validates the configuration at path. A
// missing file is not an error; defaults are used. The second result
// reports whether the file existed.
func Load(path string) (*Config, bool, error) {
	cfg := Default()

	exists := false
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return nil, false, err
		}
		file, err := os.Open(expanded)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return nil, false, fmt.Errorf("open config: %w", err)
		default:
			defer file.Close()
			exists = true
			decoder := toml.NewDecoder(file)
			decoder.DisallowUnknownFields()
			if err := decoder.Decode(&cfg); err != nil {
				return nil, false, fmt.Errorf("parse config: %w", err)
			}
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, false, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, false, err
	}
	return &cfg, exists, nil
}

// Parse decodes a TOML document on top of the defaults without touching the
// file system.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Sample returns the annotated sample configuration.
func Sample() string { return sampleConfig }

// CreateSample writes the sample configuration file to path.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

// Encode renders cfg as TOML.
func (c *Config) Encode() ([]byte, error) {
	return toml.Marshal(c)
}

func (c *Config) normalize() error {
	var err error
	if c.Storage.OutputFolder, err = expandPath(strings.TrimSpace(c.Storage.OutputFolder)); err != nil {
		return fmt.Errorf("storage.output_folder: %w", err)
	}
	c.Video.Compression = strings.ToLower(strings.TrimSpace(c.Video.Compression))
	c.Video.ChannelLayout = strings.ToLower(strings.TrimSpace(c.Video.ChannelLayout))
	c.Retrieval.SliceOrder = strings.ToLower(strings.TrimSpace(c.Retrieval.SliceOrder))
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Video.GridSize == 0 && c.Video.NumEnvs > 0 {
		c.Video.GridSize = grid.GridSizeFor(c.Video.NumEnvs)
	}
	return nil
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	absolute, err := filepath.Abs(filepath.Clean(pathValue))
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", pathValue, err)
	}
	return absolute, nil
}
