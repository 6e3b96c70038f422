package main

import (
	"path/filepath"
	"strconv"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/hupe1980/trajstore"
)

// column renders one field of T.
type column[T any] struct {
	title string
	align text.Align
	value func(T) string
}

// renderTable draws items with one row per item and an optional footer.
func renderTable[T any](cols []column[T], items []T, footer table.Row) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	header := make(table.Row, len(cols))
	configs := make([]table.ColumnConfig, len(cols))
	for i, c := range cols {
		header[i] = c.title
		configs[i] = table.ColumnConfig{
			Number:      i + 1,
			Align:       c.align,
			AlignFooter: c.align,
			AlignHeader: text.AlignLeft,
		}
	}
	tw.AppendHeader(header)
	tw.SetColumnConfigs(configs)

	for _, item := range items {
		row := make(table.Row, len(cols))
		for i, c := range cols {
			row[i] = c.value(item)
		}
		tw.AppendRow(row)
	}
	if footer != nil {
		tw.AppendFooter(footer)
	}
	return tw.Render()
}

var segmentColumns = []column[trajstore.Segment]{
	{"Segment", text.AlignRight, func(s trajstore.Segment) string { return strconv.FormatUint(s.Ordinal, 10) }},
	{"Frames", text.AlignRight, func(s trajstore.Segment) string { return strconv.Itoa(s.Frames) }},
	{"State", text.AlignLeft, func(s trajstore.Segment) string {
		if s.Sealed {
			return "sealed"
		}
		return "open"
	}},
	{"Video", text.AlignLeft, func(s trajstore.Segment) string { return filepath.Base(s.VideoPath) }},
}

func segmentTable(segments []trajstore.Segment) string {
	frames := 0
	for _, s := range segments {
		frames += s.Frames
	}
	return renderTable(segmentColumns, segments, table.Row{"Total", frames, "", ""})
}

var episodeColumns = []column[trajstore.EpisodeSummary]{
	{"Episode", text.AlignRight, func(e trajstore.EpisodeSummary) string { return strconv.Itoa(e.Episode) }},
	{"Frames", text.AlignRight, func(e trajstore.EpisodeSummary) string { return strconv.Itoa(e.Frames) }},
	{"First", text.AlignLeft, func(e trajstore.EpisodeSummary) string { return formatRef(e.First) }},
	{"Last", text.AlignLeft, func(e trajstore.EpisodeSummary) string { return formatRef(e.Last) }},
}

func episodeTable(episodes []trajstore.EpisodeSummary) string {
	return renderTable(episodeColumns, episodes, nil)
}

// formatRef renders a frame location as segment:offset.
func formatRef(ref trajstore.FrameRef) string {
	return strconv.FormatUint(ref.Ordinal, 10) + ":" + strconv.Itoa(ref.Offset)
}
