package main

import (
	"strconv"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/agenthands/ambridge/internal/core"
	"github.com/agenthands/ambridge/internal/core/cleanup"
	"github.com/agenthands/ambridge/internal/core/link"
)

func renderCounts(title string, rows [][2]string) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.SetTitle(title)
	tw.AppendHeader(table.Row{"Step", "Count"})
	for _, r := range rows {
		tw.AppendRow(table.Row{r[0], r[1]})
	}
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Align: text.AlignLeft},
		{Number: 2, Align: text.AlignRight, AlignHeader: text.AlignRight},
	})
	return tw.Render()
}

func itoa(n int) string {
	return strconv.Itoa(n)
}

func cleanupRows(r cleanup.Report) [][2]string {
	return [][2]string{
		{"Orphans removed", itoa(r.Orphans)},
		{"Exact duplicates removed", itoa(r.ExactDuplicates)},
		{"Thin repeats removed", itoa(r.ThinRepeats)},
		{"Dates shifted", itoa(r.DateShifts)},
	}
}

func linkRows(r link.Result) [][2]string {
	return [][2]string{
		{"Pass 1 links created", itoa(r.Pass1.Created)},
		{"Pass 2 links created", itoa(r.Pass2.Created)},
		{"Pass 2 unresolved candidates", itoa(r.Pass2.Unresolved)},
	}
}

func reportRows(r core.Report) [][2]string {
	rows := [][2]string{
		{"Records", itoa(r.Records)},
		{"Segmented", itoa(r.Segmented)},
		{"Skipped (no text)", itoa(r.Skipped)},
		{"Nodes created", itoa(r.Ingest.NodesCreated)},
	}
	rows = append(rows, cleanupRows(r.Cleanup)...)
	return append(rows, linkRows(r.Link)...)
}
