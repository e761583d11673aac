// Package workbook reads uploaded Claims, Finance and appeals spreadsheets
// into models.Table values and writes the reconciliation exports.
//
// Supported inputs:
//   - .xlsx / .xlsm workbooks, read through excelize with raw cell values so
//     dates arrive as serial numbers and amounts without display formatting
//   - .csv files, treated as a workbook with a single sheet
//
// Header handling follows what spreadsheet users expect from the desktop
// tools: headers are trimmed, blank headers become "Unnamed: N", and
// repeated headers are suffixed ".1", ".2" in order of appearance.
package workbook

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"claims-reconciliation-service/internal/models"
	"claims-reconciliation-service/pkg/errors"
	"claims-reconciliation-service/pkg/logger"

	"github.com/xuri/excelize/v2"
)

// ReadOptions selects the sheet and header row to read
type ReadOptions struct {
	// Sheet is the worksheet name; empty selects the first sheet
	Sheet string

	// HeaderRow is the 1-based row holding column names; 0 means 1
	HeaderRow int
}

func (o ReadOptions) headerIndex() int {
	if o.HeaderRow <= 1 {
		return 0
	}
	return o.HeaderRow - 1
}

// Workbook is an opened spreadsheet
type Workbook struct {
	name   string
	file   *excelize.File
	sheets []string
	// rows of a csv file, served as its only sheet
	records [][]string
	logger  logger.Logger
}

// Open opens a workbook from disk
func Open(path string) (*Workbook, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.FileError(errors.CodeFileNotFound, path, err)
		}
		if os.IsPermission(err) {
			return nil, errors.FileError(errors.CodeFilePermission, path, err)
		}
		return nil, errors.FileError(errors.CodeFileCorrupted, path, err)
	}
	defer f.Close()

	return OpenReader(f, path)
}

// OpenReader opens a workbook from r. The filename extension selects the
// format.
func OpenReader(r io.Reader, filename string) (*Workbook, error) {
	log := logger.WithComponent("workbook").WithField("file", filepath.Base(filename))
	wb := &Workbook{name: filepath.Base(filename), logger: log}

	switch ext := strings.ToLower(filepath.Ext(filename)); ext {
	case ".xlsx", ".xlsm":
		f, err := excelize.OpenReader(r)
		if err != nil {
			log.WithError(err).Error("Failed to open workbook")
			return nil, errors.FileError(errors.CodeFileCorrupted, filename, err)
		}
		wb.file = f
		wb.sheets = f.GetSheetList()
	case ".csv":
		records, err := readCSV(r)
		if err != nil {
			log.WithError(err).Error("Failed to read CSV file")
			return nil, errors.FileError(errors.CodeFileCorrupted, filename, err)
		}
		wb.records = records
		wb.sheets = []string{strings.TrimSuffix(wb.name, filepath.Ext(wb.name))}
	default:
		return nil, errors.FileError(errors.CodeUnsupportedExt, filename, nil)
	}

	log.WithField("sheets", len(wb.sheets)).Debug("Opened workbook")
	return wb, nil
}

func readCSV(r io.Reader) ([][]string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	data = bytes.TrimPrefix(data, []byte("\ufeff"))

	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	return reader.ReadAll()
}

// Name returns the base filename
func (w *Workbook) Name() string {
	return w.name
}

// Sheets returns the sheet names in workbook order
func (w *Workbook) Sheets() []string {
	return append([]string(nil), w.sheets...)
}

// HasSheet reports whether the workbook contains the named sheet
func (w *Workbook) HasSheet(sheet string) bool {
	for _, s := range w.sheets {
		if s == sheet {
			return true
		}
	}
	return false
}

// Close releases the workbook
func (w *Workbook) Close() error {
	if w.file != nil {
		return w.file.Close()
	}
	return nil
}

// Table reads one sheet. Rows above the header row are ignored.
func (w *Workbook) Table(opts ReadOptions) (*models.Table, error) {
	if len(w.sheets) == 0 {
		return nil, errors.SheetNotFound(w.name, opts.Sheet)
	}
	sheet := opts.Sheet
	if sheet == "" {
		sheet = w.sheets[0]
	}

	var rows [][]string
	if w.file != nil {
		if !w.HasSheet(sheet) {
			return nil, errors.SheetNotFound(w.name, sheet).WithContext("available", strings.Join(w.sheets, ", "))
		}
		var err error
		rows, err = w.file.GetRows(sheet, excelize.Options{RawCellValue: true})
		if err != nil {
			return nil, errors.FileError(errors.CodeFileCorrupted, w.name, err).WithContext("sheet", sheet)
		}
	} else {
		rows = w.records
	}

	header := opts.headerIndex()
	if header >= len(rows) {
		return nil, errors.ParseError(errors.CodeInvalidData, w.name, opts.HeaderRow, "header", "",
			fmt.Errorf("sheet %q has %d rows, no header at row %d", sheet, len(rows), header+1))
	}

	columns := CleanHeaders(rows[header])
	data := trimTrailingEmpty(rows[header+1:])

	w.logger.WithFields(logger.Fields{
		"sheet":   sheet,
		"columns": len(columns),
		"rows":    len(data),
	}).Debug("Read sheet")

	return models.NewTable(sheet, columns, data), nil
}

// ReadTable opens path and reads one sheet
func ReadTable(path string, opts ReadOptions) (*models.Table, error) {
	wb, err := Open(path)
	if err != nil {
		return nil, err
	}
	defer wb.Close()
	return wb.Table(opts)
}

// CleanHeaders trims header names, names blank headers "Unnamed: N" and
// suffixes repeats with ".1", ".2", ...
func CleanHeaders(headers []string) []string {
	out := make([]string, len(headers))
	seen := make(map[string]int, len(headers))
	for i, h := range headers {
		h = strings.TrimSpace(h)
		if h == "" {
			h = fmt.Sprintf("Unnamed: %d", i)
		}
		if n, dup := seen[h]; dup {
			seen[h] = n + 1
			h = fmt.Sprintf("%s.%d", h, n+1)
		} else {
			seen[h] = 0
		}
		out[i] = h
	}
	return out
}

func trimTrailingEmpty(rows [][]string) [][]string {
	end := len(rows)
	for end > 0 && isEmptyRow(rows[end-1]) {
		end--
	}
	return rows[:end]
}

func isEmptyRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

// ResolveColumn returns the first candidate present in the table, as the
// table spells it
func ResolveColumn(table *models.Table, candidates []string) (string, bool) {
	for _, name := range candidates {
		if i, ok := table.FindColumn(name); ok {
			return table.Columns[i], true
		}
	}
	return "", false
}
