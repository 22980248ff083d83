// Package ui renders command output for terminals.
package ui

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
)

// Table represents a simple table for displaying tabular data
type Table struct {
	writer    io.Writer
	headers   []string
	rows      [][]string
	noColor   bool
	highlight HighlightFunc
}

// HighlightFunc picks the color of a body cell, nil leaves it plain
type HighlightFunc func(column int, cell string) *color.Color

// TableOptions configures table behavior
type TableOptions struct {
	NoColor   bool
	Highlight HighlightFunc
}

// NewTable creates a new table with the given headers
func NewTable(w io.Writer, headers []string, opts *TableOptions) *Table {
	t := &Table{
		writer:  w,
		headers: headers,
		rows:    make([][]string, 0),
	}
	if opts != nil {
		t.noColor = opts.NoColor
		t.highlight = opts.Highlight
	}
	return t
}

// AddRow adds a row to the table
func (t *Table) AddRow(cells ...string) {
	t.rows = append(t.rows, cells)
}

// Len returns the number of body rows
func (t *Table) Len() int {
	return len(t.rows)
}

// Render renders the table to the writer
func (t *Table) Render() {
	if len(t.headers) == 0 {
		return
	}

	// Widths are measured before color codes are added
	widths := make([]int, len(t.headers))
	for i, header := range t.headers {
		widths[i] = len(header)
	}
	for _, row := range t.rows {
		for i, cell := range row {
			if i < len(widths) && len(cell) > widths[i] {
				widths[i] = len(cell)
			}
		}
	}

	bold := t.color(color.Bold, color.FgCyan)
	for i, header := range t.headers {
		bold.Fprint(t.writer, t.pad(header, widths[i], i == len(t.headers)-1))
		if i < len(t.headers)-1 {
			fmt.Fprint(t.writer, "  ")
		}
	}
	fmt.Fprintln(t.writer)

	gray := t.color(color.FgHiBlack)
	for i, width := range widths {
		gray.Fprint(t.writer, strings.Repeat("─", width))
		if i < len(widths)-1 {
			gray.Fprint(t.writer, "  ")
		}
	}
	fmt.Fprintln(t.writer)

	for _, row := range t.rows {
		for i, cell := range row {
			if i >= len(widths) {
				break
			}
			last := i == len(row)-1 || i == len(widths)-1
			text := t.pad(cell, widths[i], last)
			if c := t.cellColor(i, cell); c != nil {
				c.Fprint(t.writer, text)
			} else {
				fmt.Fprint(t.writer, text)
			}
			if !last {
				fmt.Fprint(t.writer, "  ")
			}
		}
		fmt.Fprintln(t.writer)
	}
}

func (t *Table) color(attrs ...color.Attribute) *color.Color {
	c := color.New(attrs...)
	if t.noColor {
		c.DisableColor()
	}
	return c
}

func (t *Table) cellColor(column int, cell string) *color.Color {
	if t.highlight == nil {
		return nil
	}
	c := t.highlight(column, cell)
	if c != nil && t.noColor {
		c.DisableColor()
	}
	return c
}

// pad fills s to width, leaving the last column unpadded
func (t *Table) pad(s string, width int, last bool) string {
	if last {
		return s
	}
	return padRight(s, width)
}

// padRight pads a string with spaces on the right to reach the target width
func padRight(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return s + strings.Repeat(" ", width-len(s))
}

// Header renders a styled header
func Header(w io.Writer, title string, noColor bool) {
	bold := color.New(color.Bold, color.FgCyan)
	gray := color.New(color.FgHiBlack)
	if noColor {
		bold.DisableColor()
		gray.DisableColor()
	}
	bold.Fprintln(w, title)
	gray.Fprintln(w, strings.Repeat("─", len(title)))
}
