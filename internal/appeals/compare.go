package appeals

import (
	"strings"

	"claims-reconciliation-service/internal/models"

	"github.com/shopspring/decimal"
)

// Finance sheets are recognized by any of these name fragments
var financeSheetMarkers = []string{"CLAIMS RECEIVED", "WEEKLY REPORT"}

// FindFinanceSheet returns the first sheet whose name contains one of the
// Finance report markers, case-insensitively
func FindFinanceSheet(sheets []string) (string, bool) {
	for _, sheet := range sheets {
		upper := strings.ToUpper(sheet)
		for _, marker := range financeSheetMarkers {
			if strings.Contains(upper, marker) {
				return sheet, true
			}
		}
	}
	return "", false
}

// FinanceColumns names the Finance report columns used by CompareWithFinance
type FinanceColumns struct {
	ScheduleNumber string `mapstructure:"schedule_column"`
	Amount         string `mapstructure:"amount_column"`
}

// DefaultFinanceColumns returns the Finance weekly report headers
func DefaultFinanceColumns() FinanceColumns {
	return FinanceColumns{
		ScheduleNumber: "Claim Batch No/Sch No",
		Amount:         "Claims_Advised_Amount",
	}
}

// ComparisonStatus classifies one appealed schedule
type ComparisonStatus string

const (
	ComparisonMatched          ComparisonStatus = "Matched"
	ComparisonAmountMismatch   ComparisonStatus = "Amount Mismatch"
	ComparisonMissingInFinance ComparisonStatus = "Missing in Finance"
)

// ComparisonRow is one appealed schedule set against the Finance report
type ComparisonRow struct {
	ScheduleNumber     string           `json:"schedule_number"`
	AppealsAmount      decimal.Decimal  `json:"appeals_amount"`
	FinanceAmount      decimal.Decimal  `json:"finance_amount"`
	Variance           decimal.Decimal  `json:"variance"`
	SourceFiles        []string         `json:"source_files"`
	FinanceRowsMatched int              `json:"finance_rows_matched"`
	Status             ComparisonStatus `json:"status"`
}

// SourceFilesString joins the source files for display
func (r ComparisonRow) SourceFilesString() string {
	return strings.Join(r.SourceFiles, ", ")
}

// Comparison is the result of CompareWithFinance
type Comparison struct {
	Rows      []ComparisonRow `json:"rows"`
	Tolerance decimal.Decimal `json:"tolerance"`
}

func (c *Comparison) filter(status ComparisonStatus) []ComparisonRow {
	var out []ComparisonRow
	for _, r := range c.Rows {
		if r.Status == status {
			out = append(out, r)
		}
	}
	return out
}

// Missing returns the schedules Finance has no amount for
func (c *Comparison) Missing() []ComparisonRow {
	return c.filter(ComparisonMissingInFinance)
}

// Mismatches returns the schedules whose amounts differ beyond tolerance
func (c *Comparison) Mismatches() []ComparisonRow {
	return c.filter(ComparisonAmountMismatch)
}

// Matched returns the schedules that agree within tolerance
func (c *Comparison) Matched() []ComparisonRow {
	return c.filter(ComparisonMatched)
}

// HasDiscrepancies reports whether any schedule is missing or mismatched
func (c *Comparison) HasDiscrepancies() bool {
	for _, r := range c.Rows {
		if r.Status != ComparisonMatched {
			return true
		}
	}
	return false
}

// TotalVariance sums the variance over every row
func (c *Comparison) TotalVariance() decimal.Decimal {
	total := decimal.Zero
	for _, r := range c.Rows {
		total = total.Add(r.Variance)
	}
	return total
}

// TotalMissingAmount sums the appealed amounts of the missing schedules
func (c *Comparison) TotalMissingAmount() decimal.Decimal {
	total := decimal.Zero
	for _, r := range c.Missing() {
		total = total.Add(r.AppealsAmount)
	}
	return total
}

// CompareWithFinance sums, for every appealed schedule, the Finance rows whose
// schedule column contains the schedule number as a substring. A schedule
// with no Finance amount is missing; otherwise a variance beyond tolerance is
// a mismatch. Finance amounts that do not parse are skipped.
func CompareWithFinance(totals []models.AppealScheduleTotal, finance *models.Table, cols FinanceColumns, tolerance decimal.Decimal) (*Comparison, error) {
	schedIdx, err := finance.RequireColumn(cols.ScheduleNumber)
	if err != nil {
		return nil, err
	}
	amountIdx, err := finance.RequireColumn(cols.Amount)
	if err != nil {
		return nil, err
	}

	out := &Comparison{
		Rows:      make([]ComparisonRow, 0, len(totals)),
		Tolerance: tolerance,
	}

	for _, total := range totals {
		row := ComparisonRow{
			ScheduleNumber: total.ScheduleNumber,
			AppealsAmount:  total.AppealsAmount,
			FinanceAmount:  decimal.Zero,
			SourceFiles:    total.SourceFiles,
		}

		for i := 0; i < finance.Len(); i++ {
			if !strings.Contains(finance.Cell(i, schedIdx), total.ScheduleNumber) {
				continue
			}
			row.FinanceRowsMatched++
			if amount, err := models.ParseAmount(finance.Cell(i, amountIdx)); err == nil {
				row.FinanceAmount = row.FinanceAmount.Add(amount)
			}
		}

		row.Variance = row.AppealsAmount.Sub(row.FinanceAmount)
		switch {
		case row.FinanceRowsMatched == 0 || row.FinanceAmount.IsZero():
			row.Status = ComparisonMissingInFinance
		case row.Variance.Abs().GreaterThan(tolerance):
			row.Status = ComparisonAmountMismatch
		default:
			row.Status = ComparisonMatched
		}
		out.Rows = append(out.Rows, row)
	}
	return out, nil
}
