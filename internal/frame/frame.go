// Package frame provides the concrete in-memory table produced by every
// source decoder.
//
// A Frame is rows × columns of arbitrary cells plus an attribute map. It
// satisfies catalog.Table and catalog.Attributed; the catalog never looks at
// cell values, only the web layer does when it renders or exports a grid.
package frame

import (
	"errors"
	"fmt"
)

var (
	// ErrRaggedRow is returned by New when a row length differs from the
	// column count.
	ErrRaggedRow = errors.New("row length does not match column count")

	// ErrInvalidRow is returned when a row index is out of range.
	ErrInvalidRow = errors.New("invalid row index")

	// ErrInvalidColumn is returned when a column index is out of range.
	ErrInvalidColumn = errors.New("invalid column index")
)

// Frame is an immutable table of cells.
type Frame struct {
	columns []string
	rows    [][]any
	attrs   map[string]string
}

// New builds a Frame. Every row must have len(columns) cells. attrs may be nil.
func New(columns []string, rows [][]any, attrs map[string]string) (*Frame, error) {
	for i, row := range rows {
		if len(row) != len(columns) {
			return nil, fmt.Errorf("%w: row %d has %d cells, want %d", ErrRaggedRow, i, len(row), len(columns))
		}
	}

	a := make(map[string]string, len(attrs))
	for k, v := range attrs {
		a[k] = v
	}

	cols := make([]string, len(columns))
	copy(cols, columns)

	return &Frame{columns: cols, rows: rows, attrs: a}, nil
}

// Shape returns the row and column counts.
func (f *Frame) Shape() (rows, cols int) {
	return len(f.rows), len(f.columns)
}

// Attrs returns a copy of the attribute map.
func (f *Frame) Attrs() map[string]string {
	out := make(map[string]string, len(f.attrs))
	for k, v := range f.attrs {
		out[k] = v
	}
	return out
}

// WithAttr returns a copy of f with attribute key set to value. Cells are shared.
func (f *Frame) WithAttr(key, value string) *Frame {
	attrs := f.Attrs()
	attrs[key] = value
	return &Frame{columns: f.columns, rows: f.rows, attrs: attrs}
}

// ColumnNames returns a copy of the column headers.
func (f *Frame) ColumnNames() []string {
	out := make([]string, len(f.columns))
	copy(out, f.columns)
	return out
}

// Cell returns the raw value at (row, col).
func (f *Frame) Cell(row, col int) (any, error) {
	if row < 0 || row >= len(f.rows) {
		return nil, ErrInvalidRow
	}
	if col < 0 || col >= len(f.columns) {
		return nil, ErrInvalidColumn
	}
	return f.rows[row][col], nil
}

// Text returns the display string for the cell at (row, col).
// Out-of-range positions render as "".
func (f *Frame) Text(row, col int) string {
	v, err := f.Cell(row, col)
	if err != nil {
		return ""
	}
	return FormatCell(v)
}

// TextRow returns every cell of row formatted for display.
func (f *Frame) TextRow(row int) ([]string, error) {
	if row < 0 || row >= len(f.rows) {
		return nil, ErrInvalidRow
	}
	out := make([]string, len(f.columns))
	for c, v := range f.rows[row] {
		out[c] = FormatCell(v)
	}
	return out, nil
}

// Page is one window of formatted rows.
type Page struct {
	Columns    []string   `json:"columns"`
	Rows       [][]string `json:"rows"`
	Page       int        `json:"page"`
	PageSize   int        `json:"page_size"`
	TotalRows  int        `json:"total_rows"`
	TotalPages int        `json:"total_pages"`
	FirstRow   int        `json:"first_row"`
}

// Page returns the 1-based page of size rows. Pages past the end are
// clamped to the last page.
func (f *Frame) Page(page, size int) Page {
	if size <= 0 {
		size = 100
	}
	total := len(f.rows)
	totalPages := (total + size - 1) / size
	if totalPages == 0 {
		totalPages = 1
	}
	if page < 1 {
		page = 1
	}
	if page > totalPages {
		page = totalPages
	}

	start := (page - 1) * size
	end := start + size
	if end > total {
		end = total
	}

	rows := make([][]string, 0, end-start)
	for r := start; r < end; r++ {
		row, _ := f.TextRow(r)
		rows = append(rows, row)
	}

	return Page{
		Columns:    f.ColumnNames(),
		Rows:       rows,
		Page:       page,
		PageSize:   size,
		TotalRows:  total,
		TotalPages: totalPages,
		FirstRow:   start,
	}
}
