package main

import (
	"io"
	"strconv"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

const (
	formatTable    = "table"
	formatMarkdown = "markdown"
	formatCSV      = "csv"
)

// report is one rendered result table.
type report struct {
	title  string
	header table.Row
	rows   []table.Row
	footer table.Row
	// numeric columns are right aligned
	numeric []int
}

func (r *report) add(row ...interface{}) { r.rows = append(r.rows, row) }

func (r *report) render(w io.Writer, format string) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	if r.title != "" && format == formatTable {
		t.SetTitle(r.title)
	}
	t.AppendHeader(r.header)
	t.AppendRows(r.rows)
	if r.footer != nil {
		t.AppendFooter(r.footer)
	}

	configs := make([]table.ColumnConfig, 0, len(r.numeric))
	for _, n := range r.numeric {
		configs = append(configs, table.ColumnConfig{Number: n, Align: text.AlignRight, AlignFooter: text.AlignRight})
	}
	t.SetColumnConfigs(configs)

	switch format {
	case formatMarkdown:
		t.RenderMarkdown()
	case formatCSV:
		t.RenderCSV()
	default:
		t.Render()
	}
}

func f1(v float64) string { return strconv.FormatFloat(v, 'f', 1, 64) }

func f3(v float64) string { return strconv.FormatFloat(v, 'f', 3, 64) }

func pct(v float64) string { return strconv.FormatFloat(v*100, 'f', 1, 64) + "%" }
