package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/mattn/go-isatty"
)

// statusKind colors a labeled status field.
type statusKind int

const (
	statusInfo statusKind = iota
	statusOK
	statusWarn
)

const (
	ansiReset  = "\x1b[0m"
	ansiGreen  = "\x1b[32m"
	ansiYellow = "\x1b[33m"
	ansiBlue   = "\x1b[34m"
)

const fieldLabelWidth = 18

// console renders the human-facing command output: section headers, labeled
// status fields, and rounded tables. Color is applied only when the writer
// is a terminal, so piped output stays plain.
type console struct {
	out   io.Writer
	color bool
}

func newConsole(out io.Writer) *console {
	return &console{out: out, color: writerIsTerminal(out)}
}

func writerIsTerminal(w io.Writer) bool {
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func (c *console) paint(color, s string) string {
	if !c.color || color == "" {
		return s
	}
	return color + s + ansiReset
}

func (c *console) header(title string) {
	line := fmt.Sprintf("== %s ==", strings.TrimSpace(title))
	fmt.Fprintln(c.out, c.paint(ansiBlue, line))
	fmt.Fprintln(c.out, c.paint(ansiBlue, strings.Repeat("-", len(line))))
}

func (c *console) field(kind statusKind, label, value string) {
	tag, color := "INFO", ansiBlue
	switch kind {
	case statusOK:
		tag, color = "OK", ansiGreen
	case statusWarn:
		tag, color = "WARN", ansiYellow
	}
	line := fmt.Sprintf("  %-*s [%s] %s", fieldLabelWidth, label+":", tag, value)
	fmt.Fprintln(c.out, c.paint(color, line))
}

func (c *console) blank() {
	fmt.Fprintln(c.out)
}

// column heads a table. Numeric columns are right-aligned.
type column struct {
	name    string
	numeric bool
}

func (c *console) table(columns []column, rows [][]string) {
	tw := table.NewWriter()
	tw.SetOutputMirror(c.out)
	tw.SetStyle(table.StyleRounded)

	header := make(table.Row, len(columns))
	configs := make([]table.ColumnConfig, len(columns))
	for i, col := range columns {
		header[i] = col.name
		align := text.AlignLeft
		if col.numeric {
			align = text.AlignRight
		}
		configs[i] = table.ColumnConfig{Number: i + 1, Align: align, AlignHeader: text.AlignLeft}
	}
	tw.AppendHeader(header)
	tw.SetColumnConfigs(configs)

	for _, row := range rows {
		r := make(table.Row, len(columns))
		for i := range r {
			r[i] = ""
			if i < len(row) {
				r[i] = row[i]
			}
		}
		tw.AppendRow(r)
	}
	tw.Render()
}
