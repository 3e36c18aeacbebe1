package renderer

import (
	"fmt"
	"io"
	"strings"
)

// table accumulates rows and writes an aligned markdown table. Columns are
// padded to the widest cell so the raw text stays readable without rendering.
type table struct {
	headers []string
	rows    [][]string
}

func newTable(headers ...string) *table {
	return &table{headers: headers}
}

func (t *table) row(cells ...string) {
	// Short rows are padded with empty cells.
	for len(cells) < len(t.headers) {
		cells = append(cells, "")
	}
	t.rows = append(t.rows, cells)
}

func (t *table) write(w io.Writer) {
	widths := make([]int, len(t.headers))
	for i, h := range t.headers {
		widths[i] = len(h)
	}
	for _, row := range t.rows {
		for i, c := range row {
			if i < len(widths) && len(c) > widths[i] {
				widths[i] = len(c)
			}
		}
	}

	writeRow := func(cells []string) {
		for i, c := range cells {
			fmt.Fprintf(w, "| %-*s ", widths[i], c)
		}
		fmt.Fprintln(w, "|")
	}

	writeRow(t.headers)
	for i := range t.headers {
		fmt.Fprintf(w, "|%s", strings.Repeat("-", widths[i]+2))
	}
	fmt.Fprintln(w, "|")
	for _, row := range t.rows {
		writeRow(row)
	}
}
