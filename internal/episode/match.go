package episode

import "github.com/RoaringBitmap/roaring/v2"

// Match returns the offsets of the rows in which env was in episode.
func Match(rows [][]int, env, episode int) *roaring.Bitmap {
	bm := roaring.New()
	for off, row := range rows {
		if env < len(row) && row[env] == episode {
			bm.Add(uint32(off))
		}
	}
	return bm
}

// Span summarizes the frames of one episode of one environment inside a
// single segment.
type Span struct {
	Episode int
	Frames  int
	First   int
	Last    int
}

// Spans groups the rows of env by episode id, in order of first appearance.
func Spans(rows [][]int, env int) []Span {
	var (
		spans []Span
		index = make(map[int]int)
	)
	for off, row := range rows {
		if env >= len(row) {
			continue
		}
		ep := row[env]
		i, ok := index[ep]
		if !ok {
			index[ep] = len(spans)
			spans = append(spans, Span{Episode: ep, Frames: 1, First: off, Last: off})
			continue
		}
		spans[i].Frames++
		spans[i].Last = off
	}
	return spans
}
