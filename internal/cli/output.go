package cli

import (
	"fmt"
	"strconv"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/alnah/go-tracksplit/internal/format"
	"github.com/alnah/go-tracksplit/internal/segment"
	"github.com/alnah/go-tracksplit/internal/track"
)

// renderPlan renders one row per planned descriptor.
func renderPlan(plan *segment.Plan) string {
	tw := newTable("#", "Track", "Start", "End", "Delta", "Status", "File")
	for _, d := range plan.Descriptors {
		tw.AppendRow(table.Row{
			d.Number,
			d.Label(),
			format.Timestamp(d.StartMs),
			format.Timestamp(d.EndMs),
			format.Timestamp(d.DeltaMs),
			d.Status.String(),
			d.Prefix() + d.Stem,
		})
	}
	for _, m := range plan.Skipped {
		tw.AppendRow(table.Row{m.Position, m.Label(), "", "", "", "Skipped", ""})
	}
	return tw.Render()
}

// renderTracks renders a track list the way it will be numbered on export.
func renderTracks(tracks []track.Metadata) string {
	tw := newTable("#", "Artist", "Title", "Album", "Duration")
	total := 0
	for _, m := range tracks {
		total += m.DurationMs
		tw.AppendRow(table.Row{m.Position, m.Artist(), m.Title, m.Album, minutes(m.DurationMs)})
	}
	tw.AppendFooter(table.Row{"", "", strconv.Itoa(len(tracks)) + " tracks", "", minutes(total)})
	return tw.Render()
}

func newTable(headers ...string) table.Writer {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	header := make(table.Row, len(headers))
	for i, h := range headers {
		header[i] = h
	}
	tw.AppendHeader(header)
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Align: text.AlignRight, AlignHeader: text.AlignLeft},
	})
	return tw
}

// minutes formats ms as m:ss, rounding down.
func minutes(ms int) string {
	s := ms / 1000
	return fmt.Sprintf("%d:%02d", s/60, s%60)
}
