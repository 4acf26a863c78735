package main

import (
	"fmt"
	"io"

	"github.com/olekukonko/tablewriter"
)

// Renderer is the grid the operator looks at.
type Renderer interface {
	RenderSnapshot(snap *TableSnapshot, view RenderState)
}

// RenderState is passed explicitly to each render so the grid never needs a shared
// "editable" flag to suppress edit callbacks while it repaints.
type RenderState struct {
	Engine   string
	ReadOnly bool
	Limit    int // 0 renders every row
}

// tableRenderer draws snapshots as text tables.
type tableRenderer struct {
	w io.Writer
}

func newTableRenderer(w io.Writer) *tableRenderer {
	return &tableRenderer{w: w}
}

func (r *tableRenderer) RenderSnapshot(snap *TableSnapshot, view RenderState) {
	rows := snap.Rows
	truncated := 0
	if view.Limit > 0 && len(rows) > view.Limit {
		truncated = len(rows) - view.Limit
		rows = rows[:view.Limit]
	}

	mode := "editable"
	if view.ReadOnly {
		mode = "read-only"
	}
	fmt.Fprintf(r.w, "%s.%s (%d rows, %s)\n", view.Engine, snap.Table, len(snap.Rows), mode)

	table := tablewriter.NewWriter(r.w)
	table.SetAutoFormatHeaders(false)
	table.SetAlignment(tablewriter.ALIGN_CENTER)
	table.SetHeader(append([]string{"#"}, snap.ColumnNames()...))
	for i, row := range rows {
		cells := make([]string, 0, len(row)+1)
		cells = append(cells, fmt.Sprint(i))
		for _, v := range row {
			cells = append(cells, displayText(v))
		}
		table.Append(cells)
	}
	table.Render()

	if truncated > 0 {
		fmt.Fprintf(r.w, "... %d more rows not shown\n", truncated)
	}
}
