// Package table reads and writes the CSV tables the jobs enrich.
package table

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

var bom = []byte{0xEF, 0xBB, 0xBF}

// ErrMissingColumn is returned when a required column is absent.
var ErrMissingColumn = errors.New("missing column")

// Table is a header plus rows. Every cell is text; rows are padded to the
// header width on read.
type Table struct {
	Header []string
	Rows   [][]string
}

// Read parses CSV from r. A leading UTF-8 BOM is dropped.
func Read(r io.Reader) (*Table, error) {
	br := bufio.NewReader(r)
	if head, err := br.Peek(len(bom)); err == nil && bytes.Equal(head, bom) {
		_, _ = br.Discard(len(bom))
	}

	cr := csv.NewReader(br)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse csv: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("failed to parse csv: no header")
	}

	t := &Table{Header: records[0], Rows: records[1:]}
	for i, row := range t.Rows {
		if len(row) < len(t.Header) {
			t.Rows[i] = append(row, make([]string, len(t.Header)-len(row))...)
		}
	}
	return t, nil
}

// ReadFile reads the table at path.
func ReadFile(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()
	return Read(f)
}

// Index returns the position of col, or -1.
func (t *Table) Index(col string) int {
	for i, h := range t.Header {
		if h == col {
			return i
		}
	}
	return -1
}

// Require returns the positions of cols or ErrMissingColumn naming the
// first absent one.
func (t *Table) Require(cols ...string) ([]int, error) {
	idx := make([]int, len(cols))
	for i, c := range cols {
		idx[i] = t.Index(c)
		if idx[i] < 0 {
			return nil, fmt.Errorf("%w: %q", ErrMissingColumn, c)
		}
	}
	return idx, nil
}

// SetColumn replaces the values of col, appending the column if absent.
// values must hold one entry per row.
func (t *Table) SetColumn(col string, values []string) error {
	if len(values) != len(t.Rows) {
		return fmt.Errorf("column %q: %d values for %d rows", col, len(values), len(t.Rows))
	}
	i := t.Index(col)
	if i < 0 {
		t.Header = append(t.Header, col)
		for r := range t.Rows {
			t.Rows[r] = append(t.Rows[r], values[r])
		}
		return nil
	}
	for r := range t.Rows {
		t.Rows[r][i] = values[r]
	}
	return nil
}

// Write renders the table as CSV prefixed with a UTF-8 BOM.
func (t *Table) Write(w io.Writer) error {
	if _, err := w.Write(bom); err != nil {
		return err
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Header); err != nil {
		return err
	}
	if err := cw.WriteAll(t.Rows); err != nil {
		return err
	}
	return cw.Error()
}

// WriteFile writes the table to path, replacing it atomically.
func (t *Table) WriteFile(path string) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-table-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := t.Write(tmp); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}
	return nil
}
