package reporter

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"claims-reconciliation-service/internal/appeals"
	"claims-reconciliation-service/internal/models"
	"claims-reconciliation-service/internal/reconciler"
	"claims-reconciliation-service/pkg/errors"
	"claims-reconciliation-service/pkg/logger"

	"github.com/shopspring/decimal"
)

func createTestResult(t *testing.T) *reconciler.Result {
	t.Helper()
	claims := models.NewTable("claims", []string{"SCH NO", "AMOUNT"}, [][]string{
		{"A", "100"},
		{"B", "1,200"},
		{"C", "50"},
	})
	finance := models.NewTable("finance", []string{"SCH NO", "AMOUNT"}, [][]string{
		{"A", "100"},
		{"B", "1,150"},
		{"D", "75"},
	})

	svc, err := reconciler.NewService(reconciler.DefaultConfig())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	result, err := svc.Run(context.Background(), reconciler.Request{
		Claims:  reconciler.Source{Table: claims, ScheduleColumn: "SCH NO", AmountColumn: "AMOUNT"},
		Finance: reconciler.Source{Table: finance, ScheduleColumn: "SCH NO", AmountColumn: "AMOUNT"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return result
}

func TestNewReportGenerator(t *testing.T) {
	tests := []struct {
		name        string
		config      *ReportConfig
		expectError bool
	}{
		{"default config", nil, false},
		{"valid config", DefaultReportConfig(), false},
		{"invalid format", &ReportConfig{Format: "invalid"}, true},
		{"negative list limit", &ReportConfig{Format: FormatConsole, MaxListItems: -1}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			generator, err := NewReportGenerator(tt.config)
			if tt.expectError {
				if err == nil {
					t.Errorf("expected error but got none")
				}
				return
			}
			if err != nil {
				t.Errorf("unexpected error: %v", err)
			}
			if generator == nil {
				t.Errorf("expected generator but got nil")
			}
		})
	}
}

func TestOutputFormatValidation(t *testing.T) {
	tests := []struct {
		format OutputFormat
		valid  bool
	}{
		{FormatConsole, true},
		{FormatJSON, true},
		{FormatCSV, true},
		{"invalid", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(string(tt.format), func(t *testing.T) {
			if got := tt.format.IsValid(); got != tt.valid {
				t.Errorf("expected %v, got %v", tt.valid, got)
			}
		})
	}
}

func TestConsoleReport(t *testing.T) {
	generator, err := NewReportGenerator(DefaultReportConfig())
	if err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	if err := generator.GenerateReport(createTestResult(t), &buf); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	output := buf.String()

	for _, want := range []string{
		"CLAIMS RECONCILIATION REPORT",
		"=== KEY METRICS ===",
		"Total Claims Schedules:  3",
		"Matching Amounts:        1 (33.3%)",
		"Discrepancies:           2 (66.7%)",
		"=== FINANCIAL SUMMARY ===",
		"Total Claims Amount:     1,350.00",
		"Matching Finance Amount: 1,250.00",
		"=== CLAIMS SCHEDULES MISSING IN FINANCE (CRITICAL) ===",
		"=== FINANCE SCHEDULES MISSING IN CLAIMS ===",
		"=== AMOUNT MISMATCHES ===",
		"=== EXTRACTION STATISTICS ===",
	} {
		if !strings.Contains(output, want) {
			t.Errorf("expected output to contain %q\n%s", want, output)
		}
	}
	if strings.Contains(output, "=== AMOUNT RECONCILIATION ===") {
		t.Errorf("full row listing should be off by default")
	}
}

func TestConsoleReportTruncatesLists(t *testing.T) {
	config := DefaultReportConfig()
	config.MaxListItems = 1
	config.IncludeRows = true
	generator, err := NewReportGenerator(config)
	if err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	if err := generator.GenerateReport(createTestResult(t), &buf); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(buf.String(), "... and 3 more") {
		t.Errorf("expected truncated row listing\n%s", buf.String())
	}
}

func TestJSONReport(t *testing.T) {
	generator, err := NewReportGenerator(&ReportConfig{Format: FormatJSON, IncludeMissing: true})
	if err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	if err := generator.GenerateReport(createTestResult(t), &buf); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var decoded map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("invalid JSON output: %v", err)
	}
	for _, key := range []string{"summary", "processed_at", "missing_in_finance", "missing_in_claims"} {
		if _, ok := decoded[key]; !ok {
			t.Errorf("expected key %q in JSON output", key)
		}
	}
	if _, ok := decoded["rows"]; ok {
		t.Errorf("rows should be omitted when not requested")
	}
}

func TestCSVReport(t *testing.T) {
	generator, err := NewReportGenerator(&ReportConfig{Format: FormatCSV, CSVHeaders: true})
	if err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	if err := generator.GenerateReport(createTestResult(t), &buf); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	records, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("invalid CSV output: %v", err)
	}
	if len(records) != 5 {
		t.Fatalf("expected header plus 4 rows, got %d", len(records))
	}
	if records[0][0] != "Schedule_Number" {
		t.Errorf("unexpected header %v", records[0])
	}

	want := map[string][]string{
		"A": {"A", "100.00", "100.00", "0.00", "Matched", ""},
		"B": {"B", "1200.00", "1150.00", "50.00", "Amount Mismatch", "Variance in reported amounts"},
		"C": {"C", "50.00", "", "", "Missing in Finance", "Schedule not received by Finance"},
		"D": {"D", "", "75.00", "", "Missing in Claims", "Schedule not reported by Claims"},
	}
	for _, rec := range records[1:] {
		expected := want[rec[0]]
		if strings.Join(rec, "|") != strings.Join(expected, "|") {
			t.Errorf("row %s: expected %v, got %v", rec[0], expected, rec)
		}
	}
}

func createTestComparison() (*appeals.Compilation, *appeals.Comparison) {
	comp := &appeals.Compilation{
		Table: models.NewTable("Compiled Appeals", []string{"S_N"}, [][]string{{"1"}, {"2"}}),
		Files: []appeals.FileStatus{
			{File: "Schedule 101.xlsx", Rows: 2, Status: appeals.StatusSuccess, ScheduleNumber: "101"},
			{File: "notes.xlsx", Status: appeals.StatusNoSheet, NoScheduleNumber: true},
		},
	}
	cmp := &appeals.Comparison{Rows: []appeals.ComparisonRow{
		{ScheduleNumber: "101", AppealsAmount: decimal.NewFromInt(2500), Variance: decimal.NewFromInt(2500), SourceFiles: []string{"Schedule 101.xlsx"}, Status: appeals.ComparisonMissingInFinance},
	}}
	return comp, cmp
}

func TestAppealsConsoleReport(t *testing.T) {
	generator, err := NewReportGenerator(nil)
	if err != nil {
		t.Fatal(err)
	}
	comp, cmp := createTestComparison()

	var buf bytes.Buffer
	if err := generator.GenerateAppealsReport(comp, cmp, &buf); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	output := buf.String()
	for _, want := range []string{
		"Files: 2, succeeded: 1, compiled rows: 2",
		"No PAYMENT SUMMARY sheet found",
		"Missing in Finance:        1",
		"Total amount missing:      2,500.00",
		"=== SCHEDULES IN APPEALS BUT NOT IN FINANCE ===",
	} {
		if !strings.Contains(output, want) {
			t.Errorf("expected output to contain %q\n%s", want, output)
		}
	}
}

func TestAppealsCSVReport(t *testing.T) {
	generator, err := NewReportGenerator(&ReportConfig{Format: FormatCSV, CSVHeaders: true})
	if err != nil {
		t.Fatal(err)
	}
	comp, cmp := createTestComparison()

	var buf bytes.Buffer
	if err := generator.GenerateAppealsReport(comp, cmp, &buf); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	records, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 2 || records[1][5] != "Missing in Finance" || records[1][1] != "2500.00" {
		t.Errorf("unexpected comparison CSV %v", records)
	}

	buf.Reset()
	if err := generator.GenerateAppealsReport(comp, nil, &buf); err != nil {
		t.Fatal(err)
	}
	records, err = csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 3 || records[0][0] != "File" {
		t.Errorf("unexpected file status CSV %v", records)
	}
}

type failingWriter struct{ failed bool }

func (w *failingWriter) Write(p []byte) (int, error) {
	// fail only the first write so the fallback can succeed
	if !w.failed {
		w.failed = true
		return 0, fmt.Errorf("write refused")
	}
	return len(p), nil
}

func TestSafeReportGenerator(t *testing.T) {
	srg, err := NewSafeReportGenerator(&ReportConfig{Format: FormatJSON}, logger.Discard())
	if err != nil {
		t.Fatal(err)
	}

	if err := srg.GenerateReportSafely(nil, &bytes.Buffer{}); !errors.IsCode(err, errors.CodeMissingField) {
		t.Errorf("expected missing field error, got %v", err)
	}

	if err := srg.GenerateReportSafely(createTestResult(t), &failingWriter{}); err != nil {
		t.Errorf("expected console fallback to succeed, got %v", err)
	}

	if _, err := NewSafeReportGenerator(&ReportConfig{Format: "xml"}, logger.Discard()); !errors.IsCode(err, errors.CodeInvalidConfig) {
		t.Errorf("expected invalid config error, got %v", err)
	}
}

func TestCreateOutputFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reports", "out.csv")
	f, err := CreateOutputFile(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	f.Close()
}
