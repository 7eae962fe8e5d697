package ui

import (
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/fatih/color"

	"github.com/conduit-lang/mirror/runtime/decl"
)

// Align positions a cell within its column.
type Align int

const (
	AlignLeft Align = iota
	AlignRight
)

// Column describes one table column. Style, when set, picks the colour of
// each cell from its value.
type Column struct {
	Title string
	Align Align
	Style func(cell string) *color.Color
}

// Text is a left-aligned, unstyled column.
func Text(title string) Column { return Column{Title: title} }

// Count is a right-aligned numeric column.
func Count(title string) Column { return Column{Title: title, Align: AlignRight} }

// Kind is a column of declaration kinds, coloured by kind.
func Kind(title string) Column { return Column{Title: title, Style: KindColor} }

// Table renders rows under bold headers. Cells beyond the declared
// columns are dropped; missing cells render empty.
type Table struct {
	writer  io.Writer
	columns []Column
	rows    [][]string
	footer  string
	noColor bool
}

// NewTable creates a table with the given columns.
func NewTable(w io.Writer, noColor bool, columns ...Column) *Table {
	return &Table{writer: w, columns: columns, noColor: noColor}
}

// AddRow appends a row.
func (t *Table) AddRow(cells ...string) {
	t.rows = append(t.rows, cells)
}

// Len returns the number of rows added so far.
func (t *Table) Len() int { return len(t.rows) }

// SetFooter sets a line printed after the rows, e.g. a count.
func (t *Table) SetFooter(format string, args ...any) {
	t.footer = fmt.Sprintf(format, args...)
}

func (t *Table) widths() []int {
	widths := make([]int, len(t.columns))
	for i, c := range t.columns {
		widths[i] = utf8.RuneCountInString(c.Title)
	}
	for _, row := range t.rows {
		for i := range widths {
			if i < len(row) {
				widths[i] = max(widths[i], utf8.RuneCountInString(row[i]))
			}
		}
	}
	return widths
}

// Render writes the table. Nothing is written for a table without columns.
func (t *Table) Render() {
	if len(t.columns) == 0 {
		return
	}
	widths := t.widths()
	last := len(t.columns) - 1

	bold := t.style(color.New(color.Bold, color.FgCyan))
	gray := t.style(color.New(color.FgHiBlack))

	headers := make([]string, len(t.columns))
	for i, c := range t.columns {
		headers[i] = bold.Sprint(t.pad(c.Title, widths[i], c.Align, i == last))
	}
	fmt.Fprintln(t.writer, strings.Join(headers, "  "))

	rules := make([]string, len(widths))
	for i, w := range widths {
		rules[i] = strings.Repeat("─", w)
	}
	gray.Fprintln(t.writer, strings.Join(rules, "  "))

	if len(t.rows) == 0 {
		gray.Fprintln(t.writer, "(no results)")
	}
	for _, row := range t.rows {
		cells := make([]string, len(t.columns))
		for i, c := range t.columns {
			cell := ""
			if i < len(row) {
				cell = row[i]
			}
			padded := t.pad(cell, widths[i], c.Align, i == last)
			if c.Style != nil {
				padded = t.style(c.Style(cell)).Sprint(padded)
			}
			cells[i] = padded
		}
		fmt.Fprintln(t.writer, strings.Join(cells, "  "))
	}

	if t.footer != "" {
		fmt.Fprintln(t.writer)
		fmt.Fprintln(t.writer, t.footer)
	}
}

// pad fits s to width. The last left-aligned column is not padded so rows
// carry no trailing blanks.
func (t *Table) pad(s string, width int, align Align, last bool) string {
	n := utf8.RuneCountInString(s)
	if n >= width {
		return s
	}
	fill := strings.Repeat(" ", width-n)
	if align == AlignRight {
		return fill + s
	}
	if last {
		return s
	}
	return s + fill
}

func (t *Table) style(c *color.Color) *color.Color {
	if t.noColor {
		c.DisableColor()
	}
	return c
}

// KindColor colours a declaration kind: nominal types cyan, aliases and
// records yellow, predeclared and structural kinds gray.
func KindColor(kind string) *color.Color {
	switch decl.TypeKind(kind) {
	case decl.KindClass, decl.KindEnum, decl.KindMixin, decl.KindExtension:
		return color.New(color.FgCyan)
	case decl.KindTypedef, decl.KindRecord:
		return color.New(color.FgYellow)
	case decl.KindUnknown:
		return color.New(color.FgRed)
	default:
		return color.New(color.FgHiBlack)
	}
}

// padRight pads a string with spaces on the right to reach the target width
func padRight(s string, width int) string {
	n := utf8.RuneCountInString(s)
	if n >= width {
		return s
	}
	return s + strings.Repeat(" ", width-n)
}

// KeyValueTable renders labelled values in two columns. Consecutive rows
// with the same key are grouped under one label, as for the interfaces of
// a type.
type KeyValueTable struct {
	writer  io.Writer
	rows    [][2]string
	noColor bool
}

// NewKeyValueTable creates a new key-value table
func NewKeyValueTable(w io.Writer, noColor bool) *KeyValueTable {
	return &KeyValueTable{writer: w, noColor: noColor}
}

// AddRow adds a key-value pair to the table
func (t *KeyValueTable) AddRow(key, value string) {
	t.rows = append(t.rows, [2]string{key, value})
}

// Render renders the key-value table
func (t *KeyValueTable) Render() {
	width := 0
	for _, row := range t.rows {
		width = max(width, utf8.RuneCountInString(row[0]))
	}

	cyan := color.New(color.FgCyan)
	if t.noColor {
		cyan.DisableColor()
	}
	for i, row := range t.rows {
		label := row[0] + ":"
		if i > 0 && t.rows[i-1][0] == row[0] {
			label = ""
		}
		cyan.Fprint(t.writer, padRight(label, width+1))
		fmt.Fprintf(t.writer, " %s\n", row[1])
	}
}

// Header renders a title underlined to its width.
func Header(w io.Writer, title string, noColor bool) {
	bold := color.New(color.Bold, color.FgCyan)
	gray := color.New(color.FgHiBlack)
	if noColor {
		bold.DisableColor()
		gray.DisableColor()
	}
	bold.Fprintln(w, title)
	gray.Fprintln(w, strings.Repeat("─", utf8.RuneCountInString(title)))
}
