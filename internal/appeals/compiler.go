// Package appeals compiles weekly appeals workbooks into a single sheet and
// compares the appealed totals per schedule against the Finance report.
package appeals

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"claims-reconciliation-service/internal/models"
	"claims-reconciliation-service/pkg/errors"
	"claims-reconciliation-service/pkg/logger"

	"github.com/shopspring/decimal"
)

const (
	// PaymentSummarySheet is the sheet read from every appeals workbook
	PaymentSummarySheet = "PAYMENT SUMMARY"

	// PaymentSummaryHeaderRow is the 1-based row holding the sheet header
	PaymentSummaryHeaderRow = 2

	// SourceFileColumn carries the originating filename on compiled rows
	SourceFileColumn = "Source_File"

	// DefaultAmountColumn is summed per schedule when comparing with Finance
	DefaultAmountColumn = "AMOUNT_RECOMMENDED_FOR_PAYMENT_N"

	serialColumn = "S_N"
)

// TemplateColumns is the layout of the compiled appeals sheet
var TemplateColumns = []string{
	"S_N", "CLAIM_TYPE", "BATCH_NUMBER", "HOSPITAL", "NUMBER_OF_CLAIMS",
	"ENCOUNTER_MONTH", "DATE_OF_RECEIPT", "APPROVED_PA_VALUE_N",
	"AMOUNT_RECOMMENDED_FOR_PAYMENT_N", "VARIANCE", "VARIANCE1",
	"NARRATION", "Source_File", "PROVIDER_CODE", "Paiddate",
	"SCH_NO", "APPEAL_NO", "SCH_NUM",
}

// ManualColumns are left blank on compiled rows and filled in by hand later
var ManualColumns = []string{"PROVIDER_CODE", "Paiddate", "SCH_NO", "APPEAL_NO", "SCH_NUM"}

var totalRowMarkers = []string{"TOTAL", "SUM", "GRAND", "SUBTOTAL", "SUMMARY"}

var scheduleInFilename = regexp.MustCompile(`(?i)(?:Schedule|SCH)\s*(\d+)`)

// ColumnAlias maps one spelling of a payment summary header onto a template
// column
type ColumnAlias struct {
	Source    string `mapstructure:"source"`
	Canonical string `mapstructure:"canonical"`
}

// Config controls compilation
type Config struct {
	// ColumnAliases are applied in order; when two aliases for the same
	// template column are both present, the later one wins
	ColumnAliases []ColumnAlias

	// AmountColumn is the template column summed per schedule
	AmountColumn string
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if len(c.ColumnAliases) == 0 {
		return fmt.Errorf("at least one column alias is required")
	}
	if !isTemplateColumn(c.AmountColumn) {
		return fmt.Errorf("amount column %q is not a template column", c.AmountColumn)
	}
	for _, a := range c.ColumnAliases {
		if strings.TrimSpace(a.Source) == "" {
			return fmt.Errorf("column alias for %q has an empty source", a.Canonical)
		}
		if !isTemplateColumn(a.Canonical) {
			return fmt.Errorf("column alias %q targets unknown column %q", a.Source, a.Canonical)
		}
	}
	return nil
}

func isTemplateColumn(name string) bool {
	for _, col := range TemplateColumns {
		if col == name {
			return true
		}
	}
	return false
}

func isManualColumn(name string) bool {
	for _, col := range ManualColumns {
		if col == name {
			return true
		}
	}
	return false
}

// AppealSource is one uploaded appeals workbook. Table is the parsed payment
// summary sheet; Err is set when the workbook could not be read. A
// missing-sheet error (errors.CodeMissingSheet) is reported separately from
// other failures.
type AppealSource struct {
	Filename string
	Table    *models.Table
	Err      error
}

// Status is the outcome of compiling one file
type Status string

const (
	StatusSuccess Status = "Success"
	StatusNoSheet Status = "No PAYMENT SUMMARY sheet found"
	StatusError   Status = "Error"
)

// FileStatus summarizes one compiled file
type FileStatus struct {
	File             string `json:"file"`
	Rows             int    `json:"rows"`
	Status           Status `json:"status"`
	Message          string `json:"message,omitempty"`
	ScheduleNumber   string `json:"schedule_number,omitempty"`
	NoScheduleNumber bool   `json:"no_schedule_number"`
}

// Label renders the status the way it is shown to users
func (f FileStatus) Label() string {
	if f.Status == StatusError && f.Message != "" {
		return "Error: " + f.Message
	}
	return string(f.Status)
}

// Compilation is the combined appeals sheet plus one status per input file,
// in input order
type Compilation struct {
	Table *models.Table `json:"-"`
	Files []FileStatus  `json:"files"`
}

// Succeeded counts the files that contributed rows
func (c *Compilation) Succeeded() int {
	n := 0
	for _, f := range c.Files {
		if f.Status == StatusSuccess {
			n++
		}
	}
	return n
}

// Compiler compiles appeals workbooks
type Compiler struct {
	config *Config
	logger logger.Logger
}

// NewCompiler creates a Compiler
func NewCompiler(config *Config) (*Compiler, error) {
	if config == nil {
		return nil, errors.ConfigurationError(errors.CodeMissingConfig, "appeals", nil, nil)
	}
	if err := config.Validate(); err != nil {
		return nil, errors.ConfigurationError(errors.CodeInvalidConfig, "appeals.column_aliases", nil, err)
	}
	return &Compiler{
		config: config,
		logger: logger.WithComponent("appeals"),
	}, nil
}

// Compile normalizes every source onto TemplateColumns. A file that cannot
// be read is recorded in its FileStatus and does not stop the batch.
func (c *Compiler) Compile(sources []AppealSource) *Compilation {
	out := &Compilation{Files: make([]FileStatus, 0, len(sources))}
	var rows [][]string

	for _, src := range sources {
		status := FileStatus{File: src.Filename}
		if schedule, ok := ExtractScheduleNumber(src.Filename); ok {
			status.ScheduleNumber = schedule
		} else {
			status.NoScheduleNumber = true
		}

		switch {
		case src.Err != nil && errors.IsCode(src.Err, errors.CodeMissingSheet):
			status.Status = StatusNoSheet
		case src.Err != nil:
			status.Status = StatusError
			status.Message = src.Err.Error()
		case src.Table == nil:
			status.Status = StatusNoSheet
		default:
			fileRows := c.normalize(src.Filename, src.Table)
			rows = append(rows, fileRows...)
			status.Status = StatusSuccess
			status.Rows = len(fileRows)
		}

		log := c.logger.WithFields(logger.Fields{
			"file":   src.Filename,
			"status": string(status.Status),
			"rows":   status.Rows,
		})
		if status.NoScheduleNumber {
			log.Warn("No schedule number in appeals filename")
		} else {
			log.Debug("Compiled appeals file")
		}
		out.Files = append(out.Files, status)
	}

	out.Table = models.NewTable("Compiled Appeals", append([]string(nil), TemplateColumns...), rows)
	return out
}

// normalize keeps the data rows of one sheet and projects them onto the
// template columns
func (c *Compiler) normalize(filename string, table *models.Table) [][]string {
	// template column position -> source column position
	sourceOf := make(map[int]int)
	for _, alias := range c.config.ColumnAliases {
		if isManualColumn(alias.Canonical) {
			continue
		}
		src, ok := table.FindColumn(alias.Source)
		if !ok {
			continue
		}
		for i, col := range TemplateColumns {
			if col == alias.Canonical {
				sourceOf[i] = src
			}
		}
	}

	var out [][]string
	for row := 0; row < table.Len(); row++ {
		if !isDataRow(table, row) {
			continue
		}

		values := make([]string, len(TemplateColumns))
		for i, col := range TemplateColumns {
			switch {
			case col == SourceFileColumn:
				values[i] = filename
			case col == serialColumn:
				if src, ok := sourceOf[i]; ok {
					values[i] = normalizeSerial(table.Cell(row, src))
				}
			default:
				if src, ok := sourceOf[i]; ok {
					values[i] = strings.TrimSpace(table.Cell(row, src))
				}
			}
		}
		out = append(out, values)
	}
	return out
}

// isDataRow drops empty rows and total lines, then keeps rows whose first
// cell is a number or that have at least three filled cells
func isDataRow(table *models.Table, row int) bool {
	filled := table.NonEmptyCells(row)
	if filled == 0 {
		return false
	}

	first := strings.ToUpper(strings.TrimSpace(table.Cell(row, 0)))
	for _, marker := range totalRowMarkers {
		if strings.Contains(first, marker) {
			return false
		}
	}

	if _, err := strconv.ParseFloat(first, 64); err == nil {
		return true
	}
	return filled >= 3
}

// normalizeSerial renders whole-number serials without a fractional part
func normalizeSerial(s string) string {
	s = strings.TrimSpace(s)
	digits := strings.ReplaceAll(s, ".", "")
	if digits == "" {
		return s
	}
	for _, r := range digits {
		if r < '0' || r > '9' {
			return s
		}
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return s
	}
	return d.Truncate(0).String()
}

// ExtractScheduleNumber returns the digits after the first "Schedule" or
// "SCH" token in a filename
func ExtractScheduleNumber(filename string) (string, bool) {
	m := scheduleInFilename.FindStringSubmatch(filename)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// Totals sums the amount column of the compiled rows per schedule number
// taken from each row's source file. Rows from files without a schedule
// number and rows whose amount does not parse are skipped. Output is
// sorted by schedule number; source files are unique and sorted.
func (c *Compiler) Totals(comp *Compilation) []models.AppealScheduleTotal {
	if comp == nil || comp.Table == nil {
		return nil
	}
	table := comp.Table
	amountIdx, ok := table.ColumnIndex(c.config.AmountColumn)
	if !ok {
		return nil
	}
	fileIdx, ok := table.ColumnIndex(SourceFileColumn)
	if !ok {
		return nil
	}

	type group struct {
		amount decimal.Decimal
		files  map[string]struct{}
	}
	groups := make(map[string]*group)
	skipped := 0

	for row := 0; row < table.Len(); row++ {
		file := table.Cell(row, fileIdx)
		schedule, ok := ExtractScheduleNumber(file)
		if !ok {
			continue
		}
		amount, err := models.ParseAmount(table.Cell(row, amountIdx))
		if err != nil {
			skipped++
			continue
		}

		g, exists := groups[schedule]
		if !exists {
			g = &group{files: make(map[string]struct{})}
			groups[schedule] = g
		}
		g.amount = g.amount.Add(amount)
		g.files[file] = struct{}{}
	}

	out := make([]models.AppealScheduleTotal, 0, len(groups))
	for schedule, g := range groups {
		files := make([]string, 0, len(g.files))
		for f := range g.files {
			files = append(files, f)
		}
		sort.Strings(files)
		out = append(out, models.AppealScheduleTotal{
			ScheduleNumber: schedule,
			AppealsAmount:  g.amount,
			SourceFiles:    files,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].ScheduleNumber < out[j].ScheduleNumber
	})

	c.logger.WithFields(logger.Fields{
		"schedules":       len(out),
		"skipped_amounts": skipped,
	}).Debug("Totalled appeals by schedule")

	return out
}
