package workbook

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"claims-reconciliation-service/internal/appeals"
	"claims-reconciliation-service/internal/models"
	"claims-reconciliation-service/internal/reconciler"
	"claims-reconciliation-service/pkg/errors"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

// Helper function to create a workbook file with the given sheets
func createWorkbook(t *testing.T, dir, name string, sheets map[string][][]interface{}) string {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	for sheet, rows := range sheets {
		if _, err := f.NewSheet(sheet); err != nil {
			t.Fatalf("Failed to create sheet: %v", err)
		}
		for i, row := range rows {
			cell, _ := excelize.CoordinatesToCellName(1, i+1)
			values := row
			if err := f.SetSheetRow(sheet, cell, &values); err != nil {
				t.Fatalf("Failed to write row: %v", err)
			}
		}
	}
	if _, ok := sheets["Sheet1"]; !ok {
		if err := f.DeleteSheet("Sheet1"); err != nil {
			t.Fatalf("Failed to delete default sheet: %v", err)
		}
	}

	path := filepath.Join(dir, name)
	if err := f.SaveAs(path); err != nil {
		t.Fatalf("Failed to save workbook: %v", err)
	}
	return path
}

func createCSVFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "claims.csv")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to write temp file: %v", err)
	}
	return path
}

func TestCleanHeaders(t *testing.T) {
	got := CleanHeaders([]string{" S/N ", "AMOUNT", "", "AMOUNT", "COMMENT", "AMOUNT"})
	want := []string{"S/N", "AMOUNT", "Unnamed: 2", "AMOUNT.1", "COMMENT", "AMOUNT.2"}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("header %d: got %q, want %q", i, got[i], want[i])
		}
	}
}

func TestReadTableCSV(t *testing.T) {
	path := createCSVFile(t, "\ufeffSCH NO,AMOUNT , COMMENT\n100,\"1,000.50\",first\n101,300,\n,,\n")

	table, err := ReadTable(path, ReadOptions{})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if table.Columns[0] != "SCH NO" || table.Columns[1] != "AMOUNT" {
		t.Errorf("Unexpected columns %v", table.Columns)
	}
	if table.Len() != 2 {
		t.Fatalf("Expected trailing empty row dropped, got %d rows", table.Len())
	}
	if got := table.Value(0, "AMOUNT"); got != "1,000.50" {
		t.Errorf("Expected quoted amount preserved, got %q", got)
	}
}

func TestReadTableErrors(t *testing.T) {
	dir := t.TempDir()

	if _, err := ReadTable(filepath.Join(dir, "missing.xlsx"), ReadOptions{}); !errors.IsCode(err, errors.CodeFileNotFound) {
		t.Errorf("Expected file not found, got %v", err)
	}

	txt := filepath.Join(dir, "notes.txt")
	if err := os.WriteFile(txt, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := ReadTable(txt, ReadOptions{}); !errors.IsCode(err, errors.CodeUnsupportedExt) {
		t.Errorf("Expected unsupported extension, got %v", err)
	}

	path := createWorkbook(t, dir, "claims.xlsx", map[string][][]interface{}{
		"Claims": {{"SCH NO", "AMOUNT"}, {"100", 5}},
	})
	if _, err := ReadTable(path, ReadOptions{Sheet: "Finance"}); !errors.IsCode(err, errors.CodeMissingSheet) {
		t.Errorf("Expected missing sheet, got %v", err)
	}
}

func TestReadTableWorkbookHeaderRow(t *testing.T) {
	path := createWorkbook(t, t.TempDir(), "Payment Schedule 9497_APPEAL.xlsx", map[string][][]interface{}{
		"PAYMENT SUMMARY": {
			{"AXA MANSARD APPEALS"},
			{"S/N", "HOSPITAL NAME", "AMOUNT RECOMMENDED FOR PAYMENT (N)"},
			{1, "Hospital A", 1000.5},
			{2, "Hospital B", 250},
		},
	})

	wb, err := Open(path)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	defer wb.Close()

	if !wb.HasSheet("PAYMENT SUMMARY") || len(wb.Sheets()) != 1 {
		t.Errorf("Unexpected sheets %v", wb.Sheets())
	}

	table, err := wb.Table(ReadOptions{Sheet: "PAYMENT SUMMARY", HeaderRow: 2})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if table.Len() != 2 {
		t.Fatalf("Expected 2 rows, got %d", table.Len())
	}
	if got := table.Value(0, "AMOUNT RECOMMENDED FOR PAYMENT (N)"); got != "1000.5" {
		t.Errorf("Expected raw amount, got %q", got)
	}
	if got := table.Value(1, "S/N"); got != "2" {
		t.Errorf("Expected serial 2, got %q", got)
	}
}

func TestResolveColumn(t *testing.T) {
	table := models.NewTable("claims", []string{"Provider Code", "MEMBER NO"}, nil)

	got, ok := ResolveColumn(table, []string{"PROVIDER_CODE", "PROVIDER CODE", "Provider Code"})
	if !ok || got != "Provider Code" {
		t.Errorf("Expected table spelling of provider column, got %q, %v", got, ok)
	}
	if _, ok := ResolveColumn(table, []string{"ENROLLEE NAME"}); ok {
		t.Errorf("Expected no match")
	}
}

func TestLoadAppealSources(t *testing.T) {
	dir := t.TempDir()
	summary := [][]interface{}{
		{"APPEALS"},
		{"S/N", "HOSPITAL NAME", "AMOUNT RECOMMENDED FOR PAYMENT (N)"},
		{1, "Hospital A", 1000},
	}

	paths := []string{
		createWorkbook(t, dir, "Payment Schedule 9497_APPEAL (BUPA).xlsx", map[string][][]interface{}{"PAYMENT SUMMARY": summary}),
		createWorkbook(t, dir, "SCH 12.xlsx", map[string][][]interface{}{"Sheet1": {{"x"}}}),
		filepath.Join(dir, "gone.xlsx"),
		createWorkbook(t, dir, "Payment Schedule 9497_APPEAL (AXA).xlsx", map[string][][]interface{}{"PAYMENT SUMMARY": summary}),
	}

	sources := LoadAppealSources(context.Background(), paths, 2)
	if len(sources) != len(paths) {
		t.Fatalf("Expected %d sources, got %d", len(paths), len(sources))
	}
	for i, src := range sources {
		if src.Filename != filepath.Base(paths[i]) {
			t.Errorf("Source %d out of order: %s", i, src.Filename)
		}
	}

	if sources[0].Err != nil || sources[0].Table.Len() != 1 {
		t.Errorf("Expected first file loaded, got %+v", sources[0])
	}
	if !errors.IsCode(sources[1].Err, errors.CodeMissingSheet) {
		t.Errorf("Expected missing sheet, got %v", sources[1].Err)
	}
	if !errors.IsCode(sources[2].Err, errors.CodeFileNotFound) {
		t.Errorf("Expected file not found, got %v", sources[2].Err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	for _, src := range LoadAppealSources(ctx, paths[:1], 1) {
		if src.Err == nil {
			t.Errorf("Expected cancelled load to fail")
		}
	}
}

func runReconciliation(t *testing.T) *reconciler.Result {
	t.Helper()
	service, err := reconciler.NewService(nil)
	if err != nil {
		t.Fatal(err)
	}
	claims := models.NewTable("claims", []string{"SCH", "AMT"}, [][]string{
		{"100", "500"}, {"101", "300"}, {"102", "50"},
	})
	finance := models.NewTable("finance", []string{"Claim Batch No/Sch No", "Claims_Advised_Amount"}, [][]string{
		{"100", "500"}, {"102", "40"}, {"200", "10"},
	})
	result, err := service.Run(context.Background(), reconciler.Request{
		Claims:  reconciler.Source{Table: claims, ScheduleColumn: "SCH", AmountColumn: "AMT"},
		Finance: reconciler.Source{Table: finance, ScheduleColumn: "Claim Batch No/Sch No", AmountColumn: "Claims_Advised_Amount"},
	})
	if err != nil {
		t.Fatal(err)
	}
	return result
}

func TestWriteReconciliationReport(t *testing.T) {
	result := runReconciliation(t)
	now := time.Date(2024, time.January, 2, 9, 0, 0, 0, time.UTC)

	var buf bytes.Buffer
	if err := WriteReconciliationReport(&buf, result, now); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	wb, err := OpenReader(bytes.NewReader(buf.Bytes()), ReportFilename(now))
	if err != nil {
		t.Fatalf("Failed to reopen report: %v", err)
	}
	defer wb.Close()

	wantSheets := []string{ReportSheet, MissingInFinanceSheet, MissingInClaimsSheet, DiscrepanciesSheet}
	for _, s := range wantSheets {
		if !wb.HasSheet(s) {
			t.Errorf("Expected sheet %q, got %v", s, wb.Sheets())
		}
	}

	title, err := wb.Table(ReadOptions{Sheet: ReportSheet})
	if err != nil {
		t.Fatal(err)
	}
	if title.Columns[0] != ReportTitle {
		t.Errorf("Expected title in A1, got %q", title.Columns[0])
	}

	report, err := wb.Table(ReadOptions{Sheet: ReportSheet, HeaderRow: 2})
	if err != nil {
		t.Fatal(err)
	}
	if strings.Join(report.Columns, "|") != strings.Join(ReportColumns, "|") {
		t.Errorf("Unexpected header %v", report.Columns)
	}
	// only schedules on both sides
	if report.Len() != 2 {
		t.Fatalf("Expected 2 common rows, got %d", report.Len())
	}

	first := map[string]string{
		"Claim Batch No/Sch No": "100",
		"Year":                  "2024",
		"Week Period":           "02 Jan - 08 Jan",
		"Processing Platform":   "MANUAL",
		"Claim Type":            "FRESH CLAIM",
		"Variance":              "0.00",
		"Status":                "",
	}
	for col, want := range first {
		if got := report.Value(0, col); got != want {
			t.Errorf("row 100 %s: got %q, want %q", col, got, want)
		}
	}

	if got := report.Value(1, "Status"); got != "Amount Mismatch" {
		t.Errorf("Expected mismatch status on 102, got %q", got)
	}
	if got := report.Value(1, "Comments"); got != "Variance in reported amounts" {
		t.Errorf("Unexpected comment %q", got)
	}
	if got := report.Value(1, "Variance"); got != "10.00" {
		t.Errorf("Expected variance 10.00, got %q", got)
	}
}

func TestWriteEnhancedClaims(t *testing.T) {
	table := models.NewTable("claims", []string{"ENROLLEE NAME", "ClaimNo"}, [][]string{
		{"A", "old"},
		{"A", "old"},
	})
	rows := []models.ClaimSequenceRow{
		{Row: 0, Sequence: 1, BatchCode: "P0424", ClaimNoFnx: "1", ClaimNo: "M104241", CorrectClaimNo: "M10503241"},
		{Row: 1, Sequence: 2, ClaimNoFnx: "2"},
	}

	var buf bytes.Buffer
	if err := WriteEnhancedClaims(&buf, table, rows); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	wb, err := OpenReader(&buf, "enhanced.xlsx")
	if err != nil {
		t.Fatal(err)
	}
	defer wb.Close()
	out, err := wb.Table(ReadOptions{Sheet: EnhancedClaimsSheet})
	if err != nil {
		t.Fatal(err)
	}

	// ClaimNo existed and is overwritten in place
	if len(out.Columns) != 2+len(EnhancedClaimsColumns)-1 {
		t.Errorf("Unexpected columns %v", out.Columns)
	}
	if out.Columns[1] != "ClaimNo" {
		t.Errorf("Expected ClaimNo kept in position, got %v", out.Columns)
	}
	if got := out.Value(0, "ClaimNo"); got != "M104241" {
		t.Errorf("Expected derived claim number, got %q", got)
	}
	if got := out.Value(1, "ClaimNoFnx"); got != "2" {
		t.Errorf("Expected running index, got %q", got)
	}
	if got := out.Value(0, "ClaimBatch"); got != "P0424" {
		t.Errorf("Expected batch code, got %q", got)
	}
}

func TestWriteCompiledAppeals(t *testing.T) {
	comp := &appeals.Compilation{
		Table: models.NewTable(CompiledAppealsSheet, appeals.TemplateColumns, [][]string{
			{"1", "", "", "Hospital A", "", "", "", "", "1000", "", "", "", "SCH 1.xlsx", "", "", "", "", ""},
		}),
	}
	comparison := &appeals.Comparison{Rows: []appeals.ComparisonRow{{
		ScheduleNumber: "1",
		AppealsAmount:  decimal.NewFromInt(1000),
		FinanceAmount:  decimal.Zero,
		Variance:       decimal.NewFromInt(1000),
		SourceFiles:    []string{"SCH 1.xlsx"},
		Status:         appeals.ComparisonMissingInFinance,
	}}}

	var buf bytes.Buffer
	if err := WriteCompiledAppeals(&buf, comp, comparison); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	wb, err := OpenReader(&buf, "compiled_appeals.xlsx")
	if err != nil {
		t.Fatal(err)
	}
	defer wb.Close()

	compiled, err := wb.Table(ReadOptions{Sheet: CompiledAppealsSheet})
	if err != nil {
		t.Fatal(err)
	}
	if compiled.Len() != 1 || compiled.Value(0, appeals.SourceFileColumn) != "SCH 1.xlsx" {
		t.Errorf("Unexpected compiled sheet %+v", compiled.Rows)
	}

	cmp, err := wb.Table(ReadOptions{Sheet: ComparisonSheet})
	if err != nil {
		t.Fatal(err)
	}
	if got := cmp.Value(0, "Status"); got != string(appeals.ComparisonMissingInFinance) {
		t.Errorf("Unexpected comparison status %q", got)
	}
}
