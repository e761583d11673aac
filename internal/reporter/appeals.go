package reporter

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"

	"claims-reconciliation-service/internal/appeals"
	"claims-reconciliation-service/internal/models"
)

// GenerateAppealsReport writes the per-file compilation status and, when
// comparison is not nil, the Finance comparison
func (rg *ReportGenerator) GenerateAppealsReport(comp *appeals.Compilation, comparison *appeals.Comparison, writer io.Writer) error {
	if comp == nil {
		return fmt.Errorf("appeals compilation cannot be nil")
	}

	switch rg.config.Format {
	case FormatConsole:
		return rg.appealsConsole(comp, comparison, writer)
	case FormatJSON:
		encoder := json.NewEncoder(writer)
		encoder.SetIndent("", "  ")
		output := map[string]interface{}{
			"files":         comp.Files,
			"compiled_rows": comp.Table.Len(),
		}
		if comparison != nil {
			output["comparison"] = comparison
		}
		return encoder.Encode(output)
	case FormatCSV:
		return rg.appealsCSV(comp, comparison, writer)
	default:
		return fmt.Errorf("unsupported output format: %s", rg.config.Format)
	}
}

func (rg *ReportGenerator) appealsConsole(comp *appeals.Compilation, comparison *appeals.Comparison, writer io.Writer) error {
	fmt.Fprintf(writer, "APPEALS COMPILATION REPORT\n\n")

	fmt.Fprintf(writer, "=== PROCESSING SUMMARY ===\n")
	fmt.Fprintf(writer, "Files: %d, succeeded: %d, compiled rows: %d\n\n",
		len(comp.Files), comp.Succeeded(), comp.Table.Len())
	for _, f := range comp.Files {
		schedule := f.ScheduleNumber
		if f.NoScheduleNumber {
			schedule = "-"
		}
		fmt.Fprintf(writer, "  %-40s %6d  %-10s %s\n", f.File, f.Rows, schedule, f.Label())
	}
	fmt.Fprintf(writer, "\n")

	if comparison == nil {
		return nil
	}

	missing := comparison.Missing()
	mismatches := comparison.Mismatches()

	fmt.Fprintf(writer, "=== FINANCE COMPARISON ===\n")
	fmt.Fprintf(writer, "Schedules compared:        %d\n", len(comparison.Rows))
	fmt.Fprintf(writer, "Matched:                   %d\n", len(comparison.Matched()))
	fmt.Fprintf(writer, "Missing in Finance:        %d\n", len(missing))
	fmt.Fprintf(writer, "Amount mismatches:         %d\n", len(mismatches))
	fmt.Fprintf(writer, "Total amount missing:      %s\n", models.FormatAmount(comparison.TotalMissingAmount()))
	fmt.Fprintf(writer, "Total variance:            %s\n\n", models.FormatAmount(comparison.TotalVariance()))

	if len(missing) > 0 {
		fmt.Fprintf(writer, "=== SCHEDULES IN APPEALS BUT NOT IN FINANCE ===\n")
		rg.printComparisonRows(missing, writer)
		fmt.Fprintf(writer, "\n")
	}
	if len(mismatches) > 0 {
		fmt.Fprintf(writer, "=== AMOUNT MISMATCHES ===\n")
		rg.printComparisonRows(mismatches, writer)
		fmt.Fprintf(writer, "\n")
	}
	return nil
}

func (rg *ReportGenerator) printComparisonRows(rows []appeals.ComparisonRow, writer io.Writer) {
	fmt.Fprintf(writer, "  %-12s %18s %18s %18s  %s\n", "Schedule", "Appeals Amount", "Finance Amount", "Variance", "Source Files")
	for i, r := range rows {
		if rg.truncated(writer, i, len(rows)) {
			break
		}
		fmt.Fprintf(writer, "  %-12s %18s %18s %18s  %s\n",
			r.ScheduleNumber,
			models.FormatAmount(r.AppealsAmount),
			models.FormatAmount(r.FinanceAmount),
			models.FormatAmount(r.Variance),
			r.SourceFilesString())
	}
}

func (rg *ReportGenerator) appealsCSV(comp *appeals.Compilation, comparison *appeals.Comparison, writer io.Writer) error {
	csvWriter := csv.NewWriter(writer)
	csvWriter.Comma = rg.config.CSVDelimiter

	if comparison != nil {
		if rg.config.CSVHeaders {
			if err := csvWriter.Write([]string{"Schedule_Number", "Appeals_Amount", "Finance_Amount", "Variance", "Source_Files", "Status"}); err != nil {
				return fmt.Errorf("failed to write CSV headers: %w", err)
			}
		}
		for _, r := range comparison.Rows {
			record := []string{
				r.ScheduleNumber,
				r.AppealsAmount.StringFixed(2),
				r.FinanceAmount.StringFixed(2),
				r.Variance.StringFixed(2),
				r.SourceFilesString(),
				string(r.Status),
			}
			if err := csvWriter.Write(record); err != nil {
				return fmt.Errorf("failed to write record for %s: %w", r.ScheduleNumber, err)
			}
		}
	} else {
		if rg.config.CSVHeaders {
			if err := csvWriter.Write([]string{"File", "Rows", "Schedule_Number", "Status"}); err != nil {
				return fmt.Errorf("failed to write CSV headers: %w", err)
			}
		}
		for _, f := range comp.Files {
			if err := csvWriter.Write([]string{f.File, fmt.Sprint(f.Rows), f.ScheduleNumber, f.Label()}); err != nil {
				return fmt.Errorf("failed to write record for %s: %w", f.File, err)
			}
		}
	}

	csvWriter.Flush()
	return csvWriter.Error()
}
