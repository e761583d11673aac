package models

import (
	"strings"

	"claims-reconciliation-service/pkg/errors"
)

// Table is a parsed sheet: ordered header names and ordered rows of cell
// text. Rows may be shorter than the header; missing trailing cells read as
// blank.
type Table struct {
	Name    string
	Columns []string
	Rows    [][]string

	index map[string]int
}

// NewTable creates a Table and indexes its header
func NewTable(name string, columns []string, rows [][]string) *Table {
	t := &Table{Name: name, Columns: columns, Rows: rows}
	t.buildIndex()
	return t
}

func (t *Table) buildIndex() {
	t.index = make(map[string]int, len(t.Columns))
	for i, col := range t.Columns {
		if _, exists := t.index[col]; !exists {
			t.index[col] = i
		}
	}
}

// Len returns the number of data rows
func (t *Table) Len() int {
	return len(t.Rows)
}

// ColumnIndex returns the position of the exactly named column
func (t *Table) ColumnIndex(name string) (int, bool) {
	if t.index == nil {
		t.buildIndex()
	}
	if i, ok := t.index[name]; ok {
		return i, true
	}
	return -1, false
}

// FindColumn is ColumnIndex with a trimmed case-insensitive fallback, for
// headers typed by hand in source workbooks
func (t *Table) FindColumn(name string) (int, bool) {
	if i, ok := t.ColumnIndex(name); ok {
		return i, true
	}
	want := strings.ToLower(strings.TrimSpace(name))
	for i, col := range t.Columns {
		if strings.ToLower(strings.TrimSpace(col)) == want {
			return i, true
		}
	}
	return -1, false
}

// HasColumn reports whether the header contains name
func (t *Table) HasColumn(name string) bool {
	_, ok := t.ColumnIndex(name)
	return ok
}

// RequireColumn returns the column index or a missing-column error
func (t *Table) RequireColumn(name string) (int, error) {
	i, ok := t.ColumnIndex(name)
	if !ok {
		return -1, errors.ColumnNotFound(name, t.Columns).WithContext("table", t.Name)
	}
	return i, nil
}

// Cell returns the text at (row, col), or "" when the row is short
func (t *Table) Cell(row, col int) string {
	if row < 0 || row >= len(t.Rows) || col < 0 {
		return ""
	}
	cells := t.Rows[row]
	if col >= len(cells) {
		return ""
	}
	return cells[col]
}

// Value returns the text of the named column in row, or "" when the column
// does not exist
func (t *Table) Value(row int, column string) string {
	i, ok := t.ColumnIndex(column)
	if !ok {
		return ""
	}
	return t.Cell(row, i)
}

// NonEmptyCells counts the cells in row that are not blank after trimming
func (t *Table) NonEmptyCells(row int) int {
	if row < 0 || row >= len(t.Rows) {
		return 0
	}
	n := 0
	for _, cell := range t.Rows[row] {
		if strings.TrimSpace(cell) != "" {
			n++
		}
	}
	return n
}
