package workbook

import (
	"io"
	"time"

	"claims-reconciliation-service/internal/appeals"
	"claims-reconciliation-service/internal/models"
	"claims-reconciliation-service/internal/reconciler"
	"claims-reconciliation-service/pkg/errors"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

// Sheet names used by the exports
const (
	ReportSheet           = "Claims Reconciliation Report"
	MissingInFinanceSheet = "Missing in Finance"
	MissingInClaimsSheet  = "Missing in Claims"
	DiscrepanciesSheet    = "Amount Discrepancies"
	EnhancedClaimsSheet   = "Enhanced Claims Data"
	CompiledAppealsSheet  = "Compiled Appeals"
	ComparisonSheet       = "Finance Comparison"

	ReportTitle        = "BI Unit - Claims Received Weekly Report"
	ProcessingPlatform = "MANUAL"
	ClaimType          = "FRESH CLAIM"
)

// ReportColumns is the header of the reconciliation report sheet
var ReportColumns = []string{
	"Claim Batch No/Sch No", "Year", "Week Period", "Processing Platform", "Claim Type",
	"Claims_Advised_Amount", "Finance_Recognized_Amount", "Variance", "Comments", "Status",
}

// EnhancedClaimsColumns are added to the Claims sheet by WriteEnhancedClaims
var EnhancedClaimsColumns = []string{
	"ReviewedDate", "PostedDate", "PaidDate",
	"ClaimBatch", "ClaimNoFnx", "ClaimNo", "Correct_ClaimNo",
	"Benefits", "ProviderClass", "OpdIpd",
}

// WeekPeriod renders the seven days starting at now, e.g. "02 Jan - 08 Jan"
func WeekPeriod(now time.Time) string {
	return now.Format("02 Jan") + " - " + now.AddDate(0, 0, 6).Format("02 Jan")
}

// ReportFilename is the download name of the reconciliation report
func ReportFilename(now time.Time) string {
	return "BI Unit - Claims Reconciliation Weekly Report " + now.Format("02 Jan 2006") + ".xlsx"
}

// EnhancedClaimsFilename is the download name of the enhanced Claims sheet
func EnhancedClaimsFilename(now time.Time) string {
	return "Enhanced Claims Data with Formulas " + now.Format("02 Jan 2006") + ".xlsx"
}

// WriteReconciliationReport writes the weekly report workbook: the schedules
// present on both sides under a bold title, followed by detail sheets for
// each kind of discrepancy that occurred.
func WriteReconciliationReport(w io.Writer, result *reconciler.Result, now time.Time) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", ReportSheet); err != nil {
		return writeError(ReportSheet, err)
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return writeError(ReportSheet, err)
	}
	if err := f.SetCellValue(ReportSheet, "A1", ReportTitle); err != nil {
		return writeError(ReportSheet, err)
	}
	if err := f.SetCellStyle(ReportSheet, "A1", "A1", bold); err != nil {
		return writeError(ReportSheet, err)
	}

	period := WeekPeriod(now)
	var rows [][]interface{}
	for _, row := range reconciler.CommonRows(result.Rows) {
		comments, status := "", ""
		if s := result.Status(row); s == reconciler.StatusAmountMismatch {
			comments, status = s.Comment(), s.String()
		}
		rows = append(rows, []interface{}{
			row.ScheduleNumber,
			now.Year(),
			period,
			ProcessingPlatform,
			ClaimType,
			nullableAmount(row.ClaimsAmount),
			nullableAmount(row.FinanceAmount),
			nullableFixed(row.Difference),
			comments,
			status,
		})
	}
	if err := writeRows(f, ReportSheet, 2, ReportColumns, rows); err != nil {
		return err
	}

	if len(result.MissingInFinance) > 0 {
		if err := writeRecordsSheet(f, MissingInFinanceSheet, result.MissingInFinance); err != nil {
			return err
		}
	}
	if len(result.MissingInClaims) > 0 {
		if err := writeRecordsSheet(f, MissingInClaimsSheet, result.MissingInClaims); err != nil {
			return err
		}
	}
	if len(result.AmountMismatches) > 0 {
		var mismatch [][]interface{}
		for _, row := range result.AmountMismatches {
			mismatch = append(mismatch, []interface{}{
				row.ScheduleNumber,
				nullableAmount(row.ClaimsAmount),
				nullableAmount(row.FinanceAmount),
				nullableAmount(row.Difference),
			})
		}
		if err := addSheet(f, DiscrepanciesSheet); err != nil {
			return err
		}
		header := []string{"Schedule Number", "Claims Amount", "Finance Amount", "Difference"}
		if err := writeRows(f, DiscrepanciesSheet, 1, header, mismatch); err != nil {
			return err
		}
	}

	return save(f, w, ReportSheet)
}

// WriteEnhancedClaims writes the Claims sheet with the derived claim number
// columns filled in from rows. Columns from EnhancedClaimsColumns that the
// sheet already has are overwritten in place; the rest are appended.
func WriteEnhancedClaims(w io.Writer, table *models.Table, rows []models.ClaimSequenceRow) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", EnhancedClaimsSheet); err != nil {
		return writeError(EnhancedClaimsSheet, err)
	}

	columns := append([]string(nil), table.Columns...)
	position := make(map[string]int, len(EnhancedClaimsColumns))
	for _, name := range EnhancedClaimsColumns {
		if i, ok := table.ColumnIndex(name); ok {
			position[name] = i
			continue
		}
		position[name] = len(columns)
		columns = append(columns, name)
	}

	derived := make(map[int]models.ClaimSequenceRow, len(rows))
	for _, r := range rows {
		derived[r.Row] = r
	}

	out := make([][]interface{}, table.Len())
	for i := 0; i < table.Len(); i++ {
		values := make([]interface{}, len(columns))
		for c := range table.Columns {
			values[c] = table.Cell(i, c)
		}
		for _, name := range EnhancedClaimsColumns {
			values[position[name]] = ""
		}
		if d, ok := derived[i]; ok {
			values[position["ClaimBatch"]] = d.BatchCode
			values[position["ClaimNoFnx"]] = d.ClaimNoFnx
			values[position["ClaimNo"]] = d.ClaimNo
			values[position["Correct_ClaimNo"]] = d.CorrectClaimNo
		}
		out[i] = values
	}

	if err := writeRows(f, EnhancedClaimsSheet, 1, columns, out); err != nil {
		return err
	}
	return save(f, w, EnhancedClaimsSheet)
}

// WriteCompiledAppeals writes the compiled appeals sheet and, when a
// comparison is given, a Finance comparison sheet
func WriteCompiledAppeals(w io.Writer, comp *appeals.Compilation, comparison *appeals.Comparison) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", CompiledAppealsSheet); err != nil {
		return writeError(CompiledAppealsSheet, err)
	}

	table := comp.Table
	rows := make([][]interface{}, table.Len())
	for i := range rows {
		values := make([]interface{}, len(table.Columns))
		for c := range table.Columns {
			values[c] = table.Cell(i, c)
		}
		rows[i] = values
	}
	if err := writeRows(f, CompiledAppealsSheet, 1, table.Columns, rows); err != nil {
		return err
	}

	if comparison != nil && len(comparison.Rows) > 0 {
		if err := addSheet(f, ComparisonSheet); err != nil {
			return err
		}
		header := []string{"Schedule_Number", "Appeals_Amount", "Finance_Amount", "Variance", "Source_Files", "Status"}
		var out [][]interface{}
		for _, r := range comparison.Rows {
			out = append(out, []interface{}{
				r.ScheduleNumber,
				r.AppealsAmount.InexactFloat64(),
				r.FinanceAmount.InexactFloat64(),
				r.Variance.InexactFloat64(),
				r.SourceFilesString(),
				string(r.Status),
			})
		}
		if err := writeRows(f, ComparisonSheet, 1, header, out); err != nil {
			return err
		}
	}

	return save(f, w, CompiledAppealsSheet)
}

func writeRecordsSheet(f *excelize.File, sheet string, records []models.ScheduleRecord) error {
	if err := addSheet(f, sheet); err != nil {
		return err
	}
	rows := make([][]interface{}, len(records))
	for i, r := range records {
		rows[i] = []interface{}{r.ScheduleNumber, r.Amount.InexactFloat64()}
	}
	return writeRows(f, sheet, 1, []string{"Schedule Number", "Amount"}, rows)
}

func addSheet(f *excelize.File, sheet string) error {
	if _, err := f.NewSheet(sheet); err != nil {
		return writeError(sheet, err)
	}
	return nil
}

// writeRows writes the header at headerRow (1-based) and the rows below it
func writeRows(f *excelize.File, sheet string, headerRow int, header []string, rows [][]interface{}) error {
	cells := make([]interface{}, len(header))
	for i, h := range header {
		cells[i] = h
	}
	if err := setRow(f, sheet, headerRow, cells); err != nil {
		return err
	}
	for i, row := range rows {
		if err := setRow(f, sheet, headerRow+1+i, row); err != nil {
			return err
		}
	}
	return nil
}

func setRow(f *excelize.File, sheet string, row int, values []interface{}) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return writeError(sheet, err)
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return writeError(sheet, err)
	}
	return nil
}

func save(f *excelize.File, w io.Writer, sheet string) error {
	if idx, err := f.GetSheetIndex(sheet); err == nil && idx >= 0 {
		f.SetActiveSheet(idx)
	}
	if err := f.Write(w); err != nil {
		return writeError(sheet, err)
	}
	return nil
}

func writeError(sheet string, err error) error {
	return errors.StorageError(errors.CodeStorageIO, sheet, err)
}

func nullableAmount(d decimal.NullDecimal) interface{} {
	if !d.Valid {
		return nil
	}
	return d.Decimal.InexactFloat64()
}

func nullableFixed(d decimal.NullDecimal) string {
	if !d.Valid {
		return ""
	}
	return d.Decimal.StringFixed(2)
}
