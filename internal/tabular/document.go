// Package tabular holds the in-memory form of a delimited document and the
// codec that reads and writes it.
package tabular

import (
	"errors"
	"fmt"
)

// ErrCardinalityMismatch is returned when a column does not have one value per row.
var ErrCardinalityMismatch = errors.New("column length does not match row count")

// ErrRowTooWide is returned when a row has more cells than the header has columns.
var ErrRowTooWide = errors.New("row has more fields than the header")

// ErrColumnExists is returned when appending a column the header already names.
var ErrColumnExists = errors.New("column already exists")

// Document is an ordered table: a header naming the columns and rows whose
// cells line up positionally with the header.
type Document struct {
	Header []string
	Rows   [][]string
}

// Len returns the number of data rows.
func (d *Document) Len() int {
	return len(d.Rows)
}

// ColumnIndex returns the position of name in the header, or -1.
func (d *Document) ColumnIndex(name string) int {
	for i, h := range d.Header {
		if h == name {
			return i
		}
	}
	return -1
}

// Column returns a copy of the named column's values in row order.
// Short rows yield empty strings.
func (d *Document) Column(name string) ([]string, error) {
	idx := d.ColumnIndex(name)
	if idx < 0 {
		return nil, fmt.Errorf("column %q not found", name)
	}
	values := make([]string, len(d.Rows))
	for i, row := range d.Rows {
		if idx < len(row) {
			values[i] = row[idx]
		}
	}
	return values, nil
}

// AppendColumn adds name as the last column. values must hold exactly one
// entry per row, and no row may be wider than the header.
func (d *Document) AppendColumn(name string, values []string) error {
	if d.ColumnIndex(name) >= 0 {
		return fmt.Errorf("column %q: %w", name, ErrColumnExists)
	}
	if len(values) != len(d.Rows) {
		return fmt.Errorf("column %q: %w: got %d values for %d rows", name, ErrCardinalityMismatch, len(values), len(d.Rows))
	}
	for i, row := range d.Rows {
		if len(row) > len(d.Header) {
			return fmt.Errorf("column %q: row %d: %w", name, i+1, ErrRowTooWide)
		}
	}
	d.Header = append(d.Header, name)
	width := len(d.Header)
	for i := range d.Rows {
		for len(d.Rows[i]) < width {
			d.Rows[i] = append(d.Rows[i], "")
		}
		d.Rows[i][width-1] = values[i]
	}
	return nil
}
