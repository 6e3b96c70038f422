// Package export writes retrieved episode tiles to viewable files: a PNG per
// tile, or an MP4 clip encoded by an external ffmpeg binary.
package export
