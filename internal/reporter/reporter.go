// Package reporter renders reconciliation and appeals comparison results for
// the terminal and for other programs.
//
// Supported output formats:
//   - Console: sectioned, human-readable text with thousands separators
//   - JSON: indented structured data
//   - CSV: one line per schedule for spreadsheet tools
//
// Example usage:
//
//	generator, err := reporter.NewReportGenerator(&reporter.ReportConfig{Format: reporter.FormatJSON})
//	err = generator.GenerateReport(result, os.Stdout)
package reporter

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"time"

	"claims-reconciliation-service/internal/models"
	"claims-reconciliation-service/internal/reconciler"

	"github.com/shopspring/decimal"
)

// OutputFormat represents the supported report output formats
type OutputFormat string

const (
	FormatConsole OutputFormat = "console"
	FormatJSON    OutputFormat = "json"
	FormatCSV     OutputFormat = "csv"
)

// IsValid checks if the output format is supported
func (f OutputFormat) IsValid() bool {
	switch f {
	case FormatConsole, FormatJSON, FormatCSV:
		return true
	default:
		return false
	}
}

// ReportConfig holds configuration options for report generation
type ReportConfig struct {
	Format OutputFormat `json:"format" mapstructure:"format"`

	// Detail level options
	IncludeRows            bool `json:"include_rows" mapstructure:"include_rows"`
	IncludeMissing         bool `json:"include_missing" mapstructure:"include_missing"`
	IncludeMismatches      bool `json:"include_mismatches" mapstructure:"include_mismatches"`
	IncludeExtractionStats bool `json:"include_extraction_stats" mapstructure:"include_extraction_stats"`

	// MaxListItems caps console lists; 0 prints everything
	MaxListItems int `json:"max_list_items" mapstructure:"max_list_items"`
	// SortByAmount orders console lists by descending absolute amount
	SortByAmount bool `json:"sort_by_amount" mapstructure:"sort_by_amount"`

	// CSV options
	CSVDelimiter rune `json:"csv_delimiter" mapstructure:"-"`
	CSVHeaders   bool `json:"csv_headers" mapstructure:"csv_headers"`
}

// DefaultReportConfig returns a default report configuration
func DefaultReportConfig() *ReportConfig {
	return &ReportConfig{
		Format:                 FormatConsole,
		IncludeRows:            false,
		IncludeMissing:         true,
		IncludeMismatches:      true,
		IncludeExtractionStats: true,
		MaxListItems:           50,
		CSVDelimiter:           ',',
		CSVHeaders:             true,
	}
}

// Validate validates the report configuration
func (c *ReportConfig) Validate() error {
	if !c.Format.IsValid() {
		return fmt.Errorf("invalid output format: %s", c.Format)
	}
	if c.MaxListItems < 0 {
		return fmt.Errorf("max list items cannot be negative, got %d", c.MaxListItems)
	}
	if c.CSVDelimiter == 0 {
		c.CSVDelimiter = ','
	}
	return nil
}

// ReportGenerator generates reports in the configured format
type ReportGenerator struct {
	config *ReportConfig
}

// NewReportGenerator creates a new report generator with the specified configuration
func NewReportGenerator(config *ReportConfig) (*ReportGenerator, error) {
	if config == nil {
		config = DefaultReportConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid report configuration: %w", err)
	}
	return &ReportGenerator{config: config}, nil
}

// GenerateReport writes the report of a reconciliation run to writer
func (rg *ReportGenerator) GenerateReport(result *reconciler.Result, writer io.Writer) error {
	if result == nil {
		return fmt.Errorf("reconciliation result cannot be nil")
	}

	switch rg.config.Format {
	case FormatConsole:
		return rg.generateConsoleReport(result, writer)
	case FormatJSON:
		return rg.generateJSONReport(result, writer)
	case FormatCSV:
		return rg.generateCSVReport(result, writer)
	default:
		return fmt.Errorf("unsupported output format: %s", rg.config.Format)
	}
}

func (rg *ReportGenerator) generateConsoleReport(result *reconciler.Result, writer io.Writer) error {
	s := result.Summary

	fmt.Fprintf(writer, "CLAIMS RECONCILIATION REPORT\n")
	fmt.Fprintf(writer, "Generated: %s\n", result.ProcessedAt.Format(time.RFC3339))
	fmt.Fprintf(writer, "Processing Duration: %v\n", result.Duration)
	fmt.Fprintf(writer, "Tolerance: %s\n\n", s.Tolerance.String())

	fmt.Fprintf(writer, "=== KEY METRICS ===\n")
	fmt.Fprintf(writer, "Total Claims Schedules:  %d\n", s.TotalClaimsSchedules)
	fmt.Fprintf(writer, "Total Finance Schedules: %d\n", s.TotalFinanceSchedules)
	fmt.Fprintf(writer, "Matching Amounts:        %d (%.1f%%)\n",
		s.MatchingSchedules, percentage(s.MatchingSchedules, s.TotalClaimsSchedules))
	fmt.Fprintf(writer, "Discrepancies:           %d (%.1f%%)\n",
		s.Discrepancies, percentage(s.Discrepancies, s.TotalClaimsSchedules))
	fmt.Fprintf(writer, "  Missing in Finance:    %d\n", s.MissingInFinance)
	fmt.Fprintf(writer, "  Amount Mismatches:     %d\n", s.AmountMismatches)
	fmt.Fprintf(writer, "Missing in Claims:       %d\n\n", s.MissingInClaims)

	fmt.Fprintf(writer, "=== FINANCIAL SUMMARY ===\n")
	fmt.Fprintf(writer, "Total Claims Amount:     %s\n", models.FormatAmount(s.TotalClaimsAmount))
	fmt.Fprintf(writer, "Matching Finance Amount: %s\n", models.FormatAmount(s.MatchingFinanceAmount))
	fmt.Fprintf(writer, "Total Variance:          %s (%s%%)\n",
		models.FormatAmount(s.TotalVariance), s.VariancePercent.StringFixed(2))
	fmt.Fprintf(writer, "Amount Missing:          %s\n\n", models.FormatAmount(s.MissingInFinanceTotal))

	if rg.config.IncludeMissing && len(result.MissingInFinance) > 0 {
		fmt.Fprintf(writer, "=== CLAIMS SCHEDULES MISSING IN FINANCE (CRITICAL) ===\n")
		rg.printRecords(result.MissingInFinance, writer)
		fmt.Fprintf(writer, "\n")
	}

	if rg.config.IncludeMissing && len(result.MissingInClaims) > 0 {
		fmt.Fprintf(writer, "=== FINANCE SCHEDULES MISSING IN CLAIMS ===\n")
		rg.printRecords(result.MissingInClaims, writer)
		fmt.Fprintf(writer, "\n")
	}

	if rg.config.IncludeMismatches && len(result.AmountMismatches) > 0 {
		fmt.Fprintf(writer, "=== AMOUNT MISMATCHES ===\n")
		rg.printRows(result.AmountMismatches, writer)
		fmt.Fprintf(writer, "\n")
	}

	if rg.config.IncludeRows && len(result.Rows) > 0 {
		fmt.Fprintf(writer, "=== AMOUNT RECONCILIATION ===\n")
		rg.printRows(result.Rows, writer)
		fmt.Fprintf(writer, "\n")
	}

	if rg.config.IncludeExtractionStats {
		fmt.Fprintf(writer, "=== EXTRACTION STATISTICS ===\n")
		printStats("Claims", result.ClaimsStats, writer)
		printStats("Finance", result.FinanceStats, writer)
	}

	return nil
}

func (rg *ReportGenerator) generateJSONReport(result *reconciler.Result, writer io.Writer) error {
	encoder := json.NewEncoder(writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(rg.filterResultForOutput(result))
}

func (rg *ReportGenerator) generateCSVReport(result *reconciler.Result, writer io.Writer) error {
	csvWriter := csv.NewWriter(writer)
	csvWriter.Comma = rg.config.CSVDelimiter

	if rg.config.CSVHeaders {
		headers := []string{"Schedule_Number", "Claims_Amount", "Finance_Amount", "Difference", "Status", "Comment"}
		if err := csvWriter.Write(headers); err != nil {
			return fmt.Errorf("failed to write CSV headers: %w", err)
		}
	}

	for _, row := range result.Rows {
		status := result.Status(row)
		record := []string{
			row.ScheduleNumber,
			fixed(row.ClaimsAmount),
			fixed(row.FinanceAmount),
			fixed(row.Difference),
			status.String(),
			status.Comment(),
		}
		if err := csvWriter.Write(record); err != nil {
			return fmt.Errorf("failed to write record for %s: %w", row.ScheduleNumber, err)
		}
	}

	csvWriter.Flush()
	return csvWriter.Error()
}

func (rg *ReportGenerator) printRecords(records []models.ScheduleRecord, writer io.Writer) {
	list := append([]models.ScheduleRecord(nil), records...)
	if rg.config.SortByAmount {
		sort.SliceStable(list, func(i, j int) bool {
			return list[i].Amount.Abs().GreaterThan(list[j].Amount.Abs())
		})
	}

	fmt.Fprintf(writer, "Total: %d, Amount: %s\n\n", len(list), models.FormatAmount(reconciler.SumAmounts(list)))
	for i, r := range list {
		if rg.truncated(writer, i, len(list)) {
			break
		}
		fmt.Fprintf(writer, "  %d. %-24s %18s\n", i+1, r.ScheduleNumber, models.FormatAmount(r.Amount))
	}
}

func (rg *ReportGenerator) printRows(rows []models.ReconciliationRow, writer io.Writer) {
	list := append([]models.ReconciliationRow(nil), rows...)
	if rg.config.SortByAmount {
		sort.SliceStable(list, func(i, j int) bool {
			return absOrZero(list[i].Difference).GreaterThan(absOrZero(list[j].Difference))
		})
	}

	fmt.Fprintf(writer, "  %-24s %18s %18s %18s\n", "Schedule Number", "Claims Amount", "Finance Amount", "Difference")
	for i, r := range list {
		if rg.truncated(writer, i, len(list)) {
			break
		}
		fmt.Fprintf(writer, "  %-24s %18s %18s %18s\n",
			r.ScheduleNumber,
			models.FormatNullAmount(r.ClaimsAmount),
			models.FormatNullAmount(r.FinanceAmount),
			models.FormatNullAmount(r.Difference))
	}
}

// truncated prints the overflow line once i reaches the list limit
func (rg *ReportGenerator) truncated(writer io.Writer, i, total int) bool {
	limit := rg.config.MaxListItems
	if limit == 0 || i < limit {
		return false
	}
	fmt.Fprintf(writer, "  ... and %d more\n", total-limit)
	return true
}

func printStats(side string, stats reconciler.ExtractStats, writer io.Writer) {
	fmt.Fprintf(writer, "%s: read %d, kept %d, blank schedule %d, invalid amount %d\n",
		side, stats.RowsRead, stats.RowsKept, stats.EmptySchedule, stats.InvalidAmount)
}

func (rg *ReportGenerator) filterResultForOutput(result *reconciler.Result) map[string]interface{} {
	output := map[string]interface{}{
		"summary":      result.Summary,
		"processed_at": result.ProcessedAt,
		"duration":     result.Duration.String(),
	}

	if rg.config.IncludeRows {
		output["rows"] = result.Rows
	}
	if rg.config.IncludeMissing {
		output["missing_in_finance"] = result.MissingInFinance
		output["missing_in_claims"] = result.MissingInClaims
	}
	if rg.config.IncludeMismatches {
		output["amount_mismatches"] = result.AmountMismatches
	}
	if rg.config.IncludeExtractionStats {
		output["claims_extraction"] = result.ClaimsStats
		output["finance_extraction"] = result.FinanceStats
	}

	return output
}

// GetConfiguration returns the current configuration
func (rg *ReportGenerator) GetConfiguration() *ReportConfig {
	return rg.config
}

func percentage(part, total int) float64 {
	if total == 0 {
		return 0.0
	}
	return float64(part) / float64(total) * 100.0
}

func fixed(d decimal.NullDecimal) string {
	if !d.Valid {
		return ""
	}
	return d.Decimal.StringFixed(2)
}

func absOrZero(d decimal.NullDecimal) decimal.Decimal {
	if !d.Valid {
		return decimal.Zero
	}
	return d.Decimal.Abs()
}
