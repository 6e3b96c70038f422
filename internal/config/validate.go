package config

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/hupe1980/trajstore/internal/grid"
	"github.com/hupe1980/trajstore/internal/video"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.StoreConfig().Validate(); err != nil {
		return err
	}
	if err := c.validateVideo(); err != nil {
		return err
	}
	if err := c.validateRetrieval(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	if err := c.validateMetrics(); err != nil {
		return err
	}
	return c.validateSimulation()
}

func (c *Config) validateVideo() error {
	if c.Video.FPS <= 0 {
		return errors.New("video.fps must be positive")
	}
	if _, err := video.ParseCompression(c.Video.Compression); err != nil {
		return fmt.Errorf("video.compression: %w", err)
	}
	if _, err := grid.ParseLayout(c.Video.ChannelLayout); err != nil {
		return fmt.Errorf("video.channel_layout: %w", err)
	}
	return nil
}

func (c *Config) validateRetrieval() error {
	if _, err := parseSliceOrder(c.Retrieval.SliceOrder); err != nil {
		return err
	}
	if c.Retrieval.DecodeConcurrency <= 0 {
		return errors.New("retrieval.decode_concurrency must be positive")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "auto", "console", "json":
	default:
		return fmt.Errorf("logging.format must be auto, console or json, got %q", c.Logging.Format)
	}
	if _, err := c.LogLevel(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateMetrics() error {
	if c.Metrics.Enabled && c.Metrics.Listen == "" {
		return errors.New("metrics.listen must be set when metrics are enabled")
	}
	return nil
}

func (c *Config) validateSimulation() error {
	if c.Simulation.Steps < 0 {
		return errors.New("simulation.steps must not be negative")
	}
	if c.Simulation.DoneProbability < 0 || c.Simulation.DoneProbability > 1 {
		return errors.New("simulation.done_probability must be between 0 and 1")
	}
	return nil
}

// LogLevel parses logging.level.
func (c *Config) LogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Logging.Level)); err != nil {
		return 0, fmt.Errorf("logging.level: %w", err)
	}
	return level, nil
}
