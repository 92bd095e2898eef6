// Package usagecsv reads and rewrites usage export tables.
//
// A table is always read completely into memory before it is written back,
// so the same path can serve as both source and destination.
package usagecsv

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
)

// ErrEmptyTable is returned when a file has no header row.
var ErrEmptyTable = errors.New("empty table")

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Table is a header row plus data rows. Rows may be shorter or longer than
// the header.
type Table struct {
	Header []string
	Rows   [][]string

	// CRLF and BOM record the input's line endings and byte order mark so
	// that Encode reproduces them.
	CRLF bool
	BOM  bool
}

// Read loads a whole table from path.
func Read(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read table: %w", err)
	}
	t, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return t, nil
}

// Parse decodes comma-separated data. The first record is the header.
func Parse(data []byte) (*Table, error) {
	t := &Table{}
	if bytes.HasPrefix(data, utf8BOM) {
		t.BOM = true
		data = data[len(utf8BOM):]
	}

	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, ErrEmptyTable
	}
	t.CRLF = headerEndsCRLF(data)
	t.Header = records[0]
	t.Rows = records[1:]
	return t, nil
}

// headerEndsCRLF reports whether the first record is terminated by CRLF.
// Quoted fields may contain line breaks, so quote state is tracked while
// scanning for the terminator.
func headerEndsCRLF(data []byte) bool {
	quoted := false
	for i, b := range data {
		switch {
		case b == '"':
			quoted = !quoted
		case b == '\n' && !quoted:
			return i > 0 && data[i-1] == '\r'
		}
	}
	return false
}

// ColumnIndex returns the header position of name, or -1.
func (t *Table) ColumnIndex(name string) int {
	return slices.Index(t.Header, name)
}

// EnsureColumn returns the index of name, appending it to the header first
// if it is not already present.
func (t *Table) EnsureColumn(name string) int {
	if idx := t.ColumnIndex(name); idx >= 0 {
		return idx
	}
	t.Header = append(t.Header, name)
	return len(t.Header) - 1
}

// SetCell sets row[col]. The row is first padded with empty cells so that
// it is at least as wide as the header and long enough to hold col.
func (t *Table) SetCell(row, col int, value string) {
	width := max(len(t.Header), col+1)
	for len(t.Rows[row]) < width {
		t.Rows[row] = append(t.Rows[row], "")
	}
	t.Rows[row][col] = value
}

// Encode renders the table in CSV form.
func (t *Table) Encode() ([]byte, error) {
	var buf bytes.Buffer
	if t.BOM {
		buf.Write(utf8BOM)
	}
	w := csv.NewWriter(&buf)
	w.UseCRLF = t.CRLF
	if err := w.Write(t.Header); err != nil {
		return nil, fmt.Errorf("encode header: %w", err)
	}
	if err := w.WriteAll(t.Rows); err != nil {
		return nil, fmt.Errorf("encode rows: %w", err)
	}
	return buf.Bytes(), nil
}

// Write replaces the file at path with the encoded table. The content is
// written to a temporary file in the same directory and renamed over path,
// keeping the original file mode.
func Write(path string, t *Table) error {
	data, err := t.Encode()
	if err != nil {
		return err
	}

	mode := fs.FileMode(0o644)
	if info, err := os.Stat(path); err == nil {
		mode = info.Mode().Perm()
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp table: %w", err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write table: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close table: %w", err)
	}
	if err := os.Chmod(tmpName, mode); err != nil {
		return fmt.Errorf("chmod table: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("replace table: %w", err)
	}
	return nil
}
