// Package grid tiles per-environment frames into a single grid frame and
// crops them back out.
//
// Environment i occupies row i/GridSize and column i%GridSize:
//
//	+-------+-------+
//	| env 0 | env 1 |
//	+-------+-------+
//	| env 2 | (off) |
//	+-------+-------+
//
// Frames are packed 8-bit RGB. Grid frames are always interleaved (HWC);
// inputs may be interleaved or planar (CHW), see [Layout]. Cells beyond
// NumEnvs stay black.
package grid
