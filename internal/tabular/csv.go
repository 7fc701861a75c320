package tabular

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
)

const utf8BOM = "\ufeff"

// ReadHeader reads only the first record of r and returns the column names.
// The caller can close the stream right after; the body is never parsed.
func ReadHeader(r io.Reader) ([]string, error) {
	cr := newReader(r)
	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("document is empty: no header row")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read header row: %w", err)
	}
	return normalizeHeader(header), nil
}

// Read parses a complete delimited document. Rows may be shorter than the
// header but never wider.
func Read(r io.Reader) (*Document, error) {
	cr := newReader(r)
	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("document is empty: no header row")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read header row: %w", err)
	}

	doc := &Document{Header: normalizeHeader(header)}
	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read row %d: %w", len(doc.Rows)+1, err)
		}
		if len(record) > len(doc.Header) {
			return nil, fmt.Errorf("row %d: %w: %d fields for %d columns", len(doc.Rows)+1, ErrRowTooWide, len(record), len(doc.Header))
		}
		doc.Rows = append(doc.Rows, record)
	}
	return doc, nil
}

// Write encodes doc with a header row followed by every data row.
func Write(w io.Writer, doc *Document) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(doc.Header); err != nil {
		return fmt.Errorf("failed to write header row: %w", err)
	}
	if err := cw.WriteAll(doc.Rows); err != nil {
		return fmt.Errorf("failed to write rows: %w", err)
	}
	return nil
}

func newReader(r io.Reader) *csv.Reader {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.ReuseRecord = false
	return cr
}

func normalizeHeader(header []string) []string {
	out := make([]string, len(header))
	for i, h := range header {
		if i == 0 {
			h = strings.TrimPrefix(h, utf8BOM)
		}
		out[i] = strings.TrimSpace(h)
	}
	return out
}
