package grid

import (
	"errors"
	"fmt"
	"image"
	"math"
)

// Channels is the number of bytes per pixel (RGB).
const Channels = 3

// ErrInvalidGeometry is returned by Validate for unusable geometries.
var ErrInvalidGeometry = errors.New("grid: invalid geometry")

// Layout describes the memory order of an input frame.
type Layout uint8

const (
	// LayoutHWC is row-major interleaved RGB (height, width, channel).
	LayoutHWC Layout = iota
	// LayoutCHW is planar RGB (channel, height, width).
	LayoutCHW
)

func (l Layout) String() string {
	switch l {
	case LayoutHWC:
		return "hwc"
	case LayoutCHW:
		return "chw"
	default:
		return fmt.Sprintf("layout(%d)", uint8(l))
	}
}

// ParseLayout parses "hwc" or "chw".
func ParseLayout(s string) (Layout, error) {
	switch s {
	case "", "hwc":
		return LayoutHWC, nil
	case "chw":
		return LayoutCHW, nil
	default:
		return 0, fmt.Errorf("grid: unknown channel layout %q", s)
	}
}

// ShapeError reports an input batch that does not match the geometry.
type ShapeError struct {
	Index    int // Offending frame, or -1 for the batch itself.
	Expected int
	Actual   int
}

func (e *ShapeError) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("grid: expected %d frames, got %d", e.Expected, e.Actual)
	}
	return fmt.Sprintf("grid: frame %d has %d bytes, expected %d", e.Index, e.Actual, e.Expected)
}

// Geometry is the immutable tiling of NumEnvs frames of TileHeight x
// TileWidth pixels into a GridSize x GridSize grid.
type Geometry struct {
	GridSize   int
	TileHeight int
	TileWidth  int
	NumEnvs    int
}

// GridSizeFor returns the smallest square grid side that fits numEnvs tiles.
func GridSizeFor(numEnvs int) int {
	if numEnvs <= 0 {
		return 0
	}
	return int(math.Ceil(math.Sqrt(float64(numEnvs))))
}

// Validate checks that all dimensions are positive and the environments fit.
func (g Geometry) Validate() error {
	switch {
	case g.GridSize <= 0:
		return fmt.Errorf("%w: grid size must be positive, got %d", ErrInvalidGeometry, g.GridSize)
	case g.TileHeight <= 0 || g.TileWidth <= 0:
		return fmt.Errorf("%w: frame size must be positive, got %dx%d", ErrInvalidGeometry, g.TileWidth, g.TileHeight)
	case g.NumEnvs <= 0:
		return fmt.Errorf("%w: num envs must be positive, got %d", ErrInvalidGeometry, g.NumEnvs)
	case g.NumEnvs > g.GridSize*g.GridSize:
		return fmt.Errorf("%w: %d envs do not fit a %dx%d grid", ErrInvalidGeometry, g.NumEnvs, g.GridSize, g.GridSize)
	}
	return nil
}

// GridWidth is the grid frame width in pixels.
func (g Geometry) GridWidth() int { return g.GridSize * g.TileWidth }

// GridHeight is the grid frame height in pixels.
func (g Geometry) GridHeight() int { return g.GridSize * g.TileHeight }

// TileBytes is the size of one environment frame.
func (g Geometry) TileBytes() int { return g.TileHeight * g.TileWidth * Channels }

// FrameBytes is the size of one grid frame.
func (g Geometry) FrameBytes() int { return g.GridHeight() * g.GridWidth() * Channels }

// Rect returns the pixel rectangle of env's tile inside the grid frame.
func (g Geometry) Rect(env int) image.Rectangle {
	row, col := env/g.GridSize, env%g.GridSize
	x0, y0 := col*g.TileWidth, row*g.TileHeight
	return image.Rect(x0, y0, x0+g.TileWidth, y0+g.TileHeight)
}

// CheckBatch validates frame count and sizes without composing.
func (g Geometry) CheckBatch(frames [][]byte) error {
	if len(frames) != g.NumEnvs {
		return &ShapeError{Index: -1, Expected: g.NumEnvs, Actual: len(frames)}
	}
	want := g.TileBytes()
	for i, f := range frames {
		if len(f) != want {
			return &ShapeError{Index: i, Expected: want, Actual: len(f)}
		}
	}
	return nil
}

// Compose tiles frames into a newly allocated grid frame.
func (g Geometry) Compose(frames [][]byte, layout Layout) ([]byte, error) {
	dst := make([]byte, g.FrameBytes())
	if err := g.ComposeInto(dst, frames, layout); err != nil {
		return nil, err
	}
	return dst, nil
}

// ComposeInto tiles frames into dst, which must be FrameBytes long. Unused
// cells are zeroed.
func (g Geometry) ComposeInto(dst []byte, frames [][]byte, layout Layout) error {
	if len(dst) != g.FrameBytes() {
		return &ShapeError{Index: -1, Expected: g.FrameBytes(), Actual: len(dst)}
	}
	if err := g.CheckBatch(frames); err != nil {
		return err
	}
	if g.NumEnvs < g.GridSize*g.GridSize {
		clear(dst)
	}

	stride := g.GridWidth() * Channels
	rowBytes := g.TileWidth * Channels
	plane := g.TileHeight * g.TileWidth
	for env, src := range frames {
		r := g.Rect(env)
		for y := 0; y < g.TileHeight; y++ {
			off := (r.Min.Y+y)*stride + r.Min.X*Channels
			line := dst[off : off+rowBytes]
			switch layout {
			case LayoutCHW:
				base := y * g.TileWidth
				for x := 0; x < g.TileWidth; x++ {
					line[x*3] = src[base+x]
					line[x*3+1] = src[plane+base+x]
					line[x*3+2] = src[2*plane+base+x]
				}
			default:
				copy(line, src[y*rowBytes:(y+1)*rowBytes])
			}
		}
	}
	return nil
}

// Crop copies env's tile out of a grid frame as interleaved RGB.
func (g Geometry) Crop(frame []byte, env int) ([]byte, error) {
	tile := make([]byte, g.TileBytes())
	if err := g.CropInto(tile, frame, env); err != nil {
		return nil, err
	}
	return tile, nil
}

// CropInto copies env's tile into dst.
func (g Geometry) CropInto(dst, frame []byte, env int) error {
	if env < 0 || env >= g.NumEnvs {
		return fmt.Errorf("grid: env %d out of range [0,%d)", env, g.NumEnvs)
	}
	if len(frame) != g.FrameBytes() {
		return &ShapeError{Index: -1, Expected: g.FrameBytes(), Actual: len(frame)}
	}
	if len(dst) != g.TileBytes() {
		return &ShapeError{Index: env, Expected: g.TileBytes(), Actual: len(dst)}
	}
	r := g.Rect(env)
	stride := g.GridWidth() * Channels
	rowBytes := g.TileWidth * Channels
	for y := 0; y < g.TileHeight; y++ {
		off := (r.Min.Y+y)*stride + r.Min.X*Channels
		copy(dst[y*rowBytes:], frame[off:off+rowBytes])
	}
	return nil
}

// ToRGBA converts an interleaved RGB frame of w x h pixels to an image.
func ToRGBA(rgb []byte, w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i, j := 0, 0; i+2 < len(rgb) && j+3 < len(img.Pix); i, j = i+3, j+4 {
		img.Pix[j] = rgb[i]
		img.Pix[j+1] = rgb[i+1]
		img.Pix[j+2] = rgb[i+2]
		img.Pix[j+3] = 0xff
	}
	return img
}
