package models

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// DefaultTolerance is the largest absolute difference between two totals that
// still counts as matching.
var DefaultTolerance = decimal.NewFromFloat(0.01)

// ScheduleRecord is one row of a Claims or Finance sheet projected onto the
// schedule number and amount columns.
type ScheduleRecord struct {
	ScheduleNumber string          `json:"schedule_number"`
	Amount         decimal.Decimal `json:"amount"`
}

// NewScheduleRecord creates a ScheduleRecord with a trimmed schedule number
func NewScheduleRecord(schedule string, amount decimal.Decimal) ScheduleRecord {
	return ScheduleRecord{
		ScheduleNumber: strings.TrimSpace(schedule),
		Amount:         amount,
	}
}

// Validate checks the record invariants
func (r ScheduleRecord) Validate() error {
	if strings.TrimSpace(r.ScheduleNumber) == "" {
		return fmt.Errorf("schedule number cannot be empty")
	}
	if r.ScheduleNumber != strings.TrimSpace(r.ScheduleNumber) {
		return fmt.Errorf("schedule number %q is not trimmed", r.ScheduleNumber)
	}
	return nil
}

func (r ScheduleRecord) String() string {
	return fmt.Sprintf("ScheduleRecord{Schedule: %s, Amount: %s}", r.ScheduleNumber, r.Amount.StringFixed(2))
}

// AggregatedSchedule is the summed amount for one distinct schedule number
type AggregatedSchedule struct {
	ScheduleNumber string          `json:"schedule_number"`
	TotalAmount    decimal.Decimal `json:"total_amount"`
}

func (a AggregatedSchedule) String() string {
	return fmt.Sprintf("AggregatedSchedule{Schedule: %s, Total: %s}", a.ScheduleNumber, a.TotalAmount.StringFixed(2))
}

// ReconciliationRow is one line of the outer join between the Claims and
// Finance totals. A side that has no entry for the schedule is invalid
// (absent), never zero. Difference is only valid when both sides are.
type ReconciliationRow struct {
	ScheduleNumber string              `json:"schedule_number"`
	ClaimsAmount   decimal.NullDecimal `json:"claims_amount"`
	FinanceAmount  decimal.NullDecimal `json:"finance_amount"`
	Difference     decimal.NullDecimal `json:"difference"`
}

// InClaims reports whether the schedule appears on the Claims side
func (r ReconciliationRow) InClaims() bool {
	return r.ClaimsAmount.Valid
}

// InFinance reports whether the schedule appears on the Finance side
func (r ReconciliationRow) InFinance() bool {
	return r.FinanceAmount.Valid
}

// BothPresent reports whether the schedule appears on both sides
func (r ReconciliationRow) BothPresent() bool {
	return r.ClaimsAmount.Valid && r.FinanceAmount.Valid
}

// IsMatching reports whether both sides are present and agree within tolerance
func (r ReconciliationRow) IsMatching(tolerance decimal.Decimal) bool {
	return r.BothPresent() && r.Difference.Valid && r.Difference.Decimal.Abs().LessThanOrEqual(tolerance)
}

// ClaimSequenceRow holds the claim identifiers derived for one input row.
// Blank strings mean the inputs needed for that field were missing or
// unparseable.
type ClaimSequenceRow struct {
	Row            int    `json:"row"`
	Sequence       int    `json:"sequence"`
	BatchCode      string `json:"claim_batch"`
	ClaimNoFnx     string `json:"claim_no_fnx"`
	ClaimNo        string `json:"claim_no"`
	CorrectClaimNo string `json:"correct_claim_no"`
}

// AppealScheduleTotal is the appeals amount collected for one schedule number
// across every appeals file that names it.
type AppealScheduleTotal struct {
	ScheduleNumber string          `json:"schedule_number"`
	AppealsAmount  decimal.Decimal `json:"appeals_amount"`
	SourceFiles    []string        `json:"source_files"`
}

// SourceFilesString joins the source files for display
func (a AppealScheduleTotal) SourceFilesString() string {
	return strings.Join(a.SourceFiles, ", ")
}

// CompareAmountsWithTolerance reports whether |a - b| <= tolerance
func CompareAmountsWithTolerance(a, b, tolerance decimal.Decimal) bool {
	return a.Sub(b).Abs().LessThanOrEqual(tolerance)
}
