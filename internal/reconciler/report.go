package reconciler

import (
	"sort"

	"claims-reconciliation-service/internal/models"

	"github.com/shopspring/decimal"
)

// Status classifies one reconciliation row
type Status string

const (
	StatusMatched          Status = "Matched"
	StatusAmountMismatch   Status = "Amount Mismatch"
	StatusMissingInFinance Status = "Missing in Finance"
	StatusMissingInClaims  Status = "Missing in Claims"
)

// String returns the string representation of Status
func (s Status) String() string {
	return string(s)
}

// Comment returns the note written next to the status in exported reports
func (s Status) Comment() string {
	switch s {
	case StatusAmountMismatch:
		return "Variance in reported amounts"
	case StatusMissingInFinance:
		return "Schedule not received by Finance"
	case StatusMissingInClaims:
		return "Schedule not reported by Claims"
	default:
		return ""
	}
}

// Reconcile outer-joins the Claims and Finance totals on schedule number.
// Rows are sorted by schedule number compared as strings. Duplicate keys on
// one side are summed.
func Reconcile(claims, finance []models.AggregatedSchedule) []models.ReconciliationRow {
	claimsTotals := indexTotals(claims)
	financeTotals := indexTotals(finance)

	keys := make([]string, 0, len(claimsTotals)+len(financeTotals))
	for k := range claimsTotals {
		keys = append(keys, k)
	}
	for k := range financeTotals {
		if _, ok := claimsTotals[k]; !ok {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	rows := make([]models.ReconciliationRow, 0, len(keys))
	for _, k := range keys {
		row := models.ReconciliationRow{ScheduleNumber: k}
		c, inClaims := claimsTotals[k]
		f, inFinance := financeTotals[k]
		if inClaims {
			row.ClaimsAmount = decimal.NewNullDecimal(c)
		}
		if inFinance {
			row.FinanceAmount = decimal.NewNullDecimal(f)
		}
		if inClaims && inFinance {
			row.Difference = decimal.NewNullDecimal(c.Sub(f))
		}
		rows = append(rows, row)
	}
	return rows
}

func indexTotals(totals []models.AggregatedSchedule) map[string]decimal.Decimal {
	m := make(map[string]decimal.Decimal, len(totals))
	for _, t := range totals {
		m[t.ScheduleNumber] = m[t.ScheduleNumber].Add(t.TotalAmount)
	}
	return m
}

// Classify returns the status of row under tolerance
func Classify(row models.ReconciliationRow, tolerance decimal.Decimal) Status {
	switch {
	case !row.InFinance():
		return StatusMissingInFinance
	case !row.InClaims():
		return StatusMissingInClaims
	case row.IsMatching(tolerance):
		return StatusMatched
	default:
		return StatusAmountMismatch
	}
}

// AmountMismatches returns the rows present on both sides whose difference
// exceeds tolerance
func AmountMismatches(rows []models.ReconciliationRow, tolerance decimal.Decimal) []models.ReconciliationRow {
	var out []models.ReconciliationRow
	for _, row := range rows {
		if Classify(row, tolerance) == StatusAmountMismatch {
			out = append(out, row)
		}
	}
	return out
}

// CommonRows returns the rows present on both sides
func CommonRows(rows []models.ReconciliationRow) []models.ReconciliationRow {
	var out []models.ReconciliationRow
	for _, row := range rows {
		if row.BothPresent() {
			out = append(out, row)
		}
	}
	return out
}

// Summary holds the headline figures of a reconciliation
type Summary struct {
	TotalClaimsSchedules  int             `json:"total_claims_schedules"`
	TotalFinanceSchedules int             `json:"total_finance_schedules"`
	CommonSchedules       int             `json:"common_schedules"`
	MatchingSchedules     int             `json:"matching_schedules"`
	Discrepancies         int             `json:"discrepancies"`
	AmountMismatches      int             `json:"amount_mismatches"`
	MissingInFinance      int             `json:"missing_in_finance"`
	MissingInClaims       int             `json:"missing_in_claims"`
	TotalClaimsAmount     decimal.Decimal `json:"total_claims_amount"`
	TotalFinanceAmount    decimal.Decimal `json:"total_finance_amount"`
	MatchingFinanceAmount decimal.Decimal `json:"matching_finance_amount"`
	TotalVariance         decimal.Decimal `json:"total_variance"`
	VariancePercent       decimal.Decimal `json:"variance_percent"`
	MissingInFinanceTotal decimal.Decimal `json:"missing_in_finance_total"`
	Tolerance             decimal.Decimal `json:"tolerance"`
}

// Summarize computes the summary figures from reconciliation rows.
// Discrepancies counts every Claims schedule that is not matching, so it
// includes schedules missing in Finance. MatchingFinanceAmount is the Finance
// total over schedules present on both sides, and TotalVariance is the Claims
// total minus that amount.
func Summarize(rows []models.ReconciliationRow, tolerance decimal.Decimal) Summary {
	s := Summary{
		TotalClaimsAmount:     decimal.Zero,
		TotalFinanceAmount:    decimal.Zero,
		MatchingFinanceAmount: decimal.Zero,
		MissingInFinanceTotal: decimal.Zero,
		VariancePercent:       decimal.Zero,
		Tolerance:             tolerance,
	}

	for _, row := range rows {
		if row.InClaims() {
			s.TotalClaimsSchedules++
			s.TotalClaimsAmount = s.TotalClaimsAmount.Add(row.ClaimsAmount.Decimal)
		}
		if row.InFinance() {
			s.TotalFinanceSchedules++
			s.TotalFinanceAmount = s.TotalFinanceAmount.Add(row.FinanceAmount.Decimal)
		}

		switch Classify(row, tolerance) {
		case StatusMatched:
			s.MatchingSchedules++
		case StatusAmountMismatch:
			s.AmountMismatches++
		case StatusMissingInFinance:
			s.MissingInFinance++
			s.MissingInFinanceTotal = s.MissingInFinanceTotal.Add(row.ClaimsAmount.Decimal)
		case StatusMissingInClaims:
			s.MissingInClaims++
		}

		if row.BothPresent() {
			s.CommonSchedules++
			s.MatchingFinanceAmount = s.MatchingFinanceAmount.Add(row.FinanceAmount.Decimal)
		}
	}

	s.Discrepancies = s.TotalClaimsSchedules - s.MatchingSchedules
	s.TotalVariance = s.TotalClaimsAmount.Sub(s.MatchingFinanceAmount)
	if !s.TotalClaimsAmount.IsZero() {
		s.VariancePercent = s.TotalVariance.Div(s.TotalClaimsAmount).Mul(decimal.NewFromInt(100)).Round(2)
	}
	return s
}
