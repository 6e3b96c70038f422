// Package segment manages the on-disk segments of a recording.
//
// A segment is a video file holding at most MaxFrames grid frames plus an
// index file written when the segment is sealed. Segment k lives at
//
//	<dir>/frames_<k>.trjv
//	<dir>/episodes_<k>.csv
//
// Ordinals start at 1 and increase by one on every rollover. Exactly one
// segment is open at a time.
package segment
