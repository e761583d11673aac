// Package dbload bulk-loads spreadsheet rows into fixed relational staging
// tables. Each TableSpec maps sheet headers onto database columns; the loader
// generates the CREATE TABLE and INSERT statements from the spec and inserts
// every row inside one transaction.
package dbload

import (
	"fmt"
	"strings"

	"claims-reconciliation-service/internal/models"
)

// ColumnMapping maps a sheet header onto a database column
type ColumnMapping struct {
	Source string
	Column string
}

// TableSpec describes one staging table
type TableSpec struct {
	Name    string
	Columns []ColumnMapping

	// DateColumns are stored as DATETIME; unparseable dates load as NULL
	DateColumns []string
	// NumericColumns have thousands separators stripped and load as numbers
	// when they parse
	NumericColumns []string
	// RequireAllColumns rejects a sheet missing any mapped header
	RequireAllColumns bool
	DateLayouts       []string
}

// ColumnNames returns the database columns in insertion order
func (s *TableSpec) ColumnNames() []string {
	out := make([]string, len(s.Columns))
	for i, c := range s.Columns {
		out[i] = c.Column
	}
	return out
}

// IsDate reports whether column holds dates
func (s *TableSpec) IsDate(column string) bool {
	return contains(s.DateColumns, column)
}

// IsNumeric reports whether column holds numbers
func (s *TableSpec) IsNumeric(column string) bool {
	return contains(s.NumericColumns, column)
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

// Validate checks the spec for empty and duplicate names
func (s *TableSpec) Validate() error {
	if s.Name == "" {
		return fmt.Errorf("table name is required")
	}
	if len(s.Columns) == 0 {
		return fmt.Errorf("table %s has no columns", s.Name)
	}
	seen := make(map[string]struct{}, len(s.Columns))
	for _, c := range s.Columns {
		if c.Source == "" || c.Column == "" {
			return fmt.Errorf("table %s has an incomplete column mapping %+v", s.Name, c)
		}
		if _, ok := seen[c.Column]; ok {
			return fmt.Errorf("table %s maps column %s twice", s.Name, c.Column)
		}
		seen[c.Column] = struct{}{}
	}
	return nil
}

// MissingColumns returns the mapped headers table does not have
func (s *TableSpec) MissingColumns(table *models.Table) []string {
	var out []string
	for _, c := range s.Columns {
		if _, ok := table.ColumnIndex(c.Source); !ok {
			out = append(out, c.Source)
		}
	}
	return out
}

// UnmappedColumns returns the table headers no mapping reads
func (s *TableSpec) UnmappedColumns(table *models.Table) []string {
	mapped := make(map[string]struct{}, len(s.Columns))
	for _, c := range s.Columns {
		mapped[strings.ToLower(c.Source)] = struct{}{}
	}
	var out []string
	for _, name := range table.Columns {
		if _, ok := mapped[strings.ToLower(name)]; !ok {
			out = append(out, name)
		}
	}
	return out
}

func quote(identifier string) string {
	return "`" + strings.ReplaceAll(identifier, "`", "``") + "`"
}

// CreateTableSQL returns the statement creating the table when it does not
// exist. Date columns are DATETIME, everything else TEXT.
func CreateTableSQL(spec *TableSpec) string {
	defs := make([]string, len(spec.Columns))
	for i, c := range spec.Columns {
		kind := "TEXT"
		if spec.IsDate(c.Column) {
			kind = "DATETIME"
		}
		defs[i] = quote(c.Column) + " " + kind
	}
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", quote(spec.Name), strings.Join(defs, ", "))
}

// InsertSQL returns the parameterized single-row INSERT statement
func InsertSQL(spec *TableSpec) string {
	cols := make([]string, len(spec.Columns))
	marks := make([]string, len(spec.Columns))
	for i, c := range spec.Columns {
		cols[i] = quote(c.Column)
		marks[i] = "?"
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", quote(spec.Name), strings.Join(cols, ", "), strings.Join(marks, ", "))
}
