// Package terminal renders query results and drives the interactive
// resume SQL session.
package terminal

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/Zachkp/resume-terminal/internal/sqlengine"
)

type Format string

const (
	FormatTable    Format = "table"
	FormatJSON     Format = "json"
	FormatCSV      Format = "csv"
	FormatMarkdown Format = "markdown"
	FormatHTML     Format = "html"
)

// Formats lists the accepted format names.
var Formats = []Format{FormatTable, FormatJSON, FormatCSV, FormatMarkdown, FormatHTML}

// ParseFormat validates a format name. "md" is accepted for markdown.
func ParseFormat(s string) (Format, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "md" {
		return FormatMarkdown, nil
	}
	for _, f := range Formats {
		if string(f) == s {
			return f, nil
		}
	}
	names := make([]string, len(Formats))
	for i, f := range Formats {
		names[i] = string(f)
	}
	return "", fmt.Errorf("unknown format %q (want one of %s)", s, strings.Join(names, ", "))
}

// Renderer writes results to one output. Colours follow what the output
// supports, so writing to a buffer or a pipe yields plain text.
type Renderer struct {
	w      io.Writer
	errS   lipgloss.Style
	noteS  lipgloss.Style
	title  lipgloss.Style
	accent lipgloss.Style
}

func NewRenderer(w io.Writer) *Renderer {
	lr := lipgloss.NewRenderer(w)
	return &Renderer{
		w:      w,
		errS:   lr.NewStyle().Foreground(lipgloss.Color("9")).Bold(true),
		noteS:  lr.NewStyle().Foreground(lipgloss.Color("8")).Italic(true),
		title:  lr.NewStyle().Foreground(lipgloss.Color("10")).Bold(true),
		accent: lr.NewStyle().Foreground(lipgloss.Color("14")),
	}
}

// Render writes res to w in format f.
func Render(w io.Writer, res sqlengine.Result, f Format) error {
	return NewRenderer(w).Render(res, f)
}

func (r *Renderer) Render(res sqlengine.Result, f Format) error {
	if f == FormatJSON {
		enc := json.NewEncoder(r.w)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}

	if !res.Success {
		return r.Error(res.Message)
	}
	if len(res.Data) == 0 {
		msg := res.Message
		if msg == "" {
			msg = "(0 rows)"
		}
		return r.Note(msg)
	}

	if f == FormatCSV {
		return writeCSV(r.w, res)
	}

	t := NewTable(res)
	var out string
	switch f {
	case FormatMarkdown:
		out = t.RenderMarkdown()
	case FormatHTML:
		out = t.RenderHTML()
	default:
		out = t.Render()
		out += "\n" + r.noteS.Render(rowCount(len(res.Data)))
	}
	_, err := fmt.Fprintln(r.w, out)
	return err
}

// writeCSV writes RFC 4180 records. go-pretty's CSV renderer escapes
// commas with a backslash inside quoted fields, which readers keep.
func writeCSV(w io.Writer, res sqlengine.Result) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(res.Columns); err != nil {
		return err
	}
	row := make([]string, len(res.Columns))
	for _, rec := range res.Data {
		for i, c := range res.Columns {
			row[i] = Cell(rec, c)
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// Error writes an error line.
func (r *Renderer) Error(msg string) error {
	_, err := fmt.Fprintln(r.w, r.errS.Render("Error: "+msg))
	return err
}

// Note writes a dimmed informational line.
func (r *Renderer) Note(msg string) error {
	_, err := fmt.Fprintln(r.w, r.noteS.Render(msg))
	return err
}

// NewTable builds a go-pretty table for res. Absent values show as NULL.
func NewTable(res sqlengine.Result) table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleLight)
	t.Style().HTML.CSSClass = "terminal-table"

	header := make(table.Row, len(res.Columns))
	for i, c := range res.Columns {
		header[i] = c
	}
	t.AppendHeader(header)

	for _, rec := range res.Data {
		row := make(table.Row, len(res.Columns))
		for i, c := range res.Columns {
			row[i] = Cell(rec, c)
		}
		t.AppendRow(row)
	}
	return t
}

// Cell renders one field of rec for display.
func Cell(rec sqlengine.Record, column string) string {
	v, ok := rec.Get(column)
	if !ok || v.Type == sqlengine.TypeNull {
		return "NULL"
	}
	return v.String()
}

func rowCount(n int) string {
	if n == 1 {
		return "(1 row)"
	}
	return fmt.Sprintf("(%d rows)", n)
}
