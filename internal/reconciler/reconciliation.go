// Package reconciler compares the weekly Claims and Finance schedule reports.
//
// The package is a chain of small pure functions over parsed tables:
//
//	Extract    table + column names -> []ScheduleRecord (bad rows dropped)
//	Aggregate  []ScheduleRecord -> one total per schedule number
//	Missing    records on one side whose schedule is absent on the other
//	Reconcile  outer join of both totals, sorted by schedule number
//	Summarize  headline counts and amounts under a tolerance
//
// Service runs the whole chain for one Claims/Finance pair and returns a
// Result for the reporter, the workbook exporter and the notifier.
package reconciler

import (
	"context"
	"fmt"
	"time"

	"claims-reconciliation-service/internal/models"
	"claims-reconciliation-service/pkg/errors"
	"claims-reconciliation-service/pkg/logger"

	"github.com/shopspring/decimal"
)

// Config holds configuration options for the reconciliation service
type Config struct {
	// Tolerance is the largest absolute difference still treated as matching
	Tolerance decimal.Decimal

	// AllowEmpty lets a side produce zero usable records without failing
	AllowEmpty bool
}

// DefaultConfig returns a default configuration for the reconciliation service
func DefaultConfig() *Config {
	return &Config{
		Tolerance: models.DefaultTolerance,
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Tolerance.IsNegative() {
		return fmt.Errorf("tolerance cannot be negative, got %s", c.Tolerance)
	}
	return nil
}

// Source names a parsed table and the two columns to read from it
type Source struct {
	Table          *models.Table
	ScheduleColumn string
	AmountColumn   string
}

// Request carries both sides of one reconciliation
type Request struct {
	Claims  Source
	Finance Source
}

// Result is the outcome of one reconciliation run
type Result struct {
	ClaimsRecords    []models.ScheduleRecord     `json:"-"`
	FinanceRecords   []models.ScheduleRecord     `json:"-"`
	ClaimsTotals     []models.AggregatedSchedule `json:"claims_totals"`
	FinanceTotals    []models.AggregatedSchedule `json:"finance_totals"`
	MissingInFinance []models.ScheduleRecord     `json:"missing_in_finance"`
	MissingInClaims  []models.ScheduleRecord     `json:"missing_in_claims"`
	Rows             []models.ReconciliationRow  `json:"rows"`
	AmountMismatches []models.ReconciliationRow  `json:"amount_mismatches"`
	Summary          Summary                     `json:"summary"`
	ClaimsStats      ExtractStats                `json:"claims_extraction"`
	FinanceStats     ExtractStats                `json:"finance_extraction"`
	ProcessedAt      time.Time                   `json:"processed_at"`
	Duration         time.Duration               `json:"duration"`
}

// MissingInFinanceSchedules returns the distinct schedule numbers Claims sent
// that Finance does not have
func (r *Result) MissingInFinanceSchedules() []string {
	return DistinctSchedules(r.MissingInFinance)
}

// MissingInClaimsSchedules returns the distinct schedule numbers Finance has
// that Claims did not report
func (r *Result) MissingInClaimsSchedules() []string {
	return DistinctSchedules(r.MissingInClaims)
}

// Status returns the classification of row under the run's tolerance
func (r *Result) Status(row models.ReconciliationRow) Status {
	return Classify(row, r.Summary.Tolerance)
}

// Service runs reconciliations
type Service struct {
	config *Config
	logger logger.Logger
}

// NewService creates a reconciliation service
func NewService(config *Config) (*Service, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, errors.ConfigurationError(errors.CodeInvalidConfig, "tolerance", config.Tolerance.String(), err)
	}

	return &Service{
		config: config,
		logger: logger.WithComponent("reconciler"),
	}, nil
}

// Run reconciles the Claims source against the Finance source
func (s *Service) Run(ctx context.Context, req Request) (*Result, error) {
	start := time.Now()
	log := s.logger.WithField("tolerance", s.config.Tolerance.String())

	claimsRecords, claimsStats, err := s.extractSide(ctx, "claims", req.Claims)
	if err != nil {
		return nil, err
	}
	financeRecords, financeStats, err := s.extractSide(ctx, "finance", req.Finance)
	if err != nil {
		return nil, err
	}

	claimsTotals := Aggregate(claimsRecords)
	financeTotals := Aggregate(financeRecords)
	log.WithFields(logger.Fields{
		"claims_schedules":  len(claimsTotals),
		"finance_schedules": len(financeTotals),
	}).Debug("Aggregated schedule totals")

	if err := ctx.Err(); err != nil {
		return nil, errors.ReconciliationError(errors.CodeProcessingError, "reconcile", err)
	}

	rows := Reconcile(claimsTotals, financeTotals)
	result := &Result{
		ClaimsRecords:    claimsRecords,
		FinanceRecords:   financeRecords,
		ClaimsTotals:     claimsTotals,
		FinanceTotals:    financeTotals,
		MissingInFinance: Missing(claimsRecords, financeRecords),
		MissingInClaims:  Missing(financeRecords, claimsRecords),
		Rows:             rows,
		AmountMismatches: AmountMismatches(rows, s.config.Tolerance),
		Summary:          Summarize(rows, s.config.Tolerance),
		ClaimsStats:      claimsStats,
		FinanceStats:     financeStats,
		ProcessedAt:      start,
	}
	result.Duration = time.Since(start)

	log.WithFields(logger.Fields{
		"matching":           result.Summary.MatchingSchedules,
		"discrepancies":      result.Summary.Discrepancies,
		"missing_in_finance": result.Summary.MissingInFinance,
		"missing_in_claims":  result.Summary.MissingInClaims,
		"amount_mismatches":  result.Summary.AmountMismatches,
		"duration":           result.Duration.String(),
	}).Info("Reconciliation completed")

	return result, nil
}

func (s *Service) extractSide(ctx context.Context, side string, src Source) ([]models.ScheduleRecord, ExtractStats, error) {
	if err := ctx.Err(); err != nil {
		return nil, ExtractStats{}, errors.ReconciliationError(errors.CodeProcessingError, side+" extraction", err)
	}
	if src.Table == nil {
		return nil, ExtractStats{}, errors.ValidationError(errors.CodeMissingField, side+" table", nil, nil)
	}

	records, stats, err := Extract(src.Table, src.ScheduleColumn, src.AmountColumn)
	if err != nil {
		if appErr, ok := errors.AsAppError(err); ok {
			appErr.WithContext("side", side)
		}
		return nil, stats, err
	}

	s.logger.WithFields(logger.Fields{
		"side":           side,
		"rows_read":      stats.RowsRead,
		"rows_kept":      stats.RowsKept,
		"empty_schedule": stats.EmptySchedule,
		"invalid_amount": stats.InvalidAmount,
	}).Info("Extracted schedule records")

	if len(records) == 0 && !s.config.AllowEmpty {
		return nil, stats, errors.ReconciliationError(errors.CodeEmptyInput, side+" extraction", nil).
			WithContext("schedule_column", src.ScheduleColumn).
			WithContext("amount_column", src.AmountColumn)
	}
	return records, stats, nil
}
