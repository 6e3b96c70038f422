// Package episode tracks per-environment episode ids and the index that maps
// every stored grid frame to the episode each environment was in when the
// frame was captured.
//
// An index file holds one row per frame of a segment, in frame order. Row j
// lists, for each environment, the episode id at the time frame j was
// captured:
//
//	0,0,0,0
//	1,0,0,0
//	1,0,0,0
//
// Files are plain CSV without a header so they can be inspected with
// standard tools.
package episode
