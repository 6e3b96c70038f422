package export

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"github.com/hupe1980/trajstore/internal/grid"
)

// ErrFFmpegNotFound is returned when the ffmpeg binary cannot be located.
var ErrFFmpegNotFound = errors.New("export: ffmpeg not found")

// FFmpeg encodes clips with an external ffmpeg binary.
type FFmpeg struct {
	// Binary is the executable name or path; empty means "ffmpeg".
	Binary string
}

func (f FFmpeg) binary() string {
	if b := strings.TrimSpace(f.Binary); b != "" {
		return b
	}
	return "ffmpeg"
}

// Available reports whether the binary can be found.
func (f FFmpeg) Available() bool {
	_, err := exec.LookPath(f.binary())
	return err == nil
}

// EncodeMP4 pipes tiles as raw RGB frames into ffmpeg and writes an H.264
// clip to path.
func (f FFmpeg) EncodeMP4(ctx context.Context, path string, tiles [][]byte, w, h, fps int) error {
	if len(tiles) == 0 {
		return errors.New("export: no frames to encode")
	}
	bin, err := exec.LookPath(f.binary())
	if err != nil {
		return fmt.Errorf("%w: %v", ErrFFmpegNotFound, err)
	}

	var input bytes.Buffer
	input.Grow(len(tiles) * w * h * grid.Channels)
	for i, tile := range tiles {
		if len(tile) != w*h*grid.Channels {
			return fmt.Errorf("export: tile %d has %d bytes, expected %d", i, len(tile), w*h*grid.Channels)
		}
		input.Write(tile)
	}

	cmd := exec.CommandContext(ctx, bin, encodeArgs(path, w, h, fps)...)
	cmd.Stdin = &input
	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("ffmpeg encode: %w: %s", err, strings.TrimSpace(string(output)))
	}
	return nil
}

func encodeArgs(path string, w, h, fps int) []string {
	if fps <= 0 {
		fps = 20
	}
	// yuv420p needs even dimensions; pad by one pixel when required.
	return []string{
		"-v", "error", "-hide_banner", "-y",
		"-f", "rawvideo",
		"-pix_fmt", "rgb24",
		"-s", strconv.Itoa(w) + "x" + strconv.Itoa(h),
		"-r", strconv.Itoa(fps),
		"-i", "-",
		"-vf", "pad=ceil(iw/2)*2:ceil(ih/2)*2",
		"-c:v", "libx264",
		"-pix_fmt", "yuv420p",
		"-movflags", "+faststart",
		"--", path,
	}
}
