package dbload

import (
	"strings"

	"claims-reconciliation-service/internal/models"

	"github.com/shopspring/decimal"
)

// CleanValue converts one sheet cell into the value bound for column.
// Blank and NIL cells become NULL. Date columns yield a time.Time, or NULL
// when no layout matches. Numeric columns yield a float64 when the cell
// parses once separators are removed and the trimmed text otherwise.
func CleanValue(spec *TableSpec, column, raw string) interface{} {
	s := strings.TrimSpace(raw)
	if models.IsBlankValue(s) {
		return nil
	}

	if spec.IsDate(column) {
		t, ok := models.ParseDate(s, spec.DateLayouts)
		if !ok {
			return nil
		}
		return t
	}

	if spec.IsNumeric(column) {
		if d, err := decimal.NewFromString(strings.ReplaceAll(s, ",", "")); err == nil {
			return d.InexactFloat64()
		}
	}

	return s
}

// RowValues cleans row of table into INSERT arguments in spec column order.
// Mapped headers the table lacks bind NULL.
func RowValues(spec *TableSpec, table *models.Table, row int) []interface{} {
	values := make([]interface{}, len(spec.Columns))
	for i, c := range spec.Columns {
		idx, ok := table.ColumnIndex(c.Source)
		if !ok {
			continue
		}
		values[i] = CleanValue(spec, c.Column, table.Cell(row, idx))
	}
	return values
}
