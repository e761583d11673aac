package dbload

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"claims-reconciliation-service/internal/models"
	"claims-reconciliation-service/pkg/errors"
	"claims-reconciliation-service/pkg/logger"

	"github.com/go-sql-driver/mysql"
)

// DBTX is satisfied by *sql.DB and *sql.Tx
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// Tx is one open transaction
type Tx interface {
	DBTX
	Commit() error
	Rollback() error
}

// Beginner opens transactions
type Beginner interface {
	Begin(ctx context.Context) (Tx, error)
}

// SQLDB adapts *sql.DB to Beginner
type SQLDB struct {
	DB *sql.DB
}

// Begin starts a transaction on the underlying pool
func (s SQLDB) Begin(ctx context.Context) (Tx, error) {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return tx, nil
}

// Open connects to the MySQL server named by dsn and verifies the connection
func Open(ctx context.Context, dsn string) (*sql.DB, error) {
	if dsn == "" {
		return nil, errors.ConfigurationError(errors.CodeMissingConfig, "database.dsn", dsn, nil).
			WithSuggestion("set DATABASE_DSN in secrets.env")
	}
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return nil, errors.ConfigurationError(errors.CodeInvalidConfig, "database.dsn", "<redacted>", err)
	}
	cfg.ParseTime = true

	db, err := sql.Open("mysql", cfg.FormatDSN())
	if err != nil {
		return nil, errors.DatabaseError(errors.CodeConnectionFailed, cfg.DBName, err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, errors.DatabaseError(errors.CodeConnectionFailed, cfg.DBName, err)
	}
	return db, nil
}

// RowError records one row that failed to insert
type RowError struct {
	Row int
	Err error
}

func (e RowError) Error() string {
	return fmt.Sprintf("row %d: %v", e.Row, e.Err)
}

// Result summarizes one load
type Result struct {
	Table    string
	Total    int
	Inserted int
	Failed   []RowError
	// Missing are mapped headers absent from the sheet; they loaded as NULL
	Missing []string
	// Unmapped are sheet headers no column reads
	Unmapped []string
	Duration time.Duration
}

// Options tunes a load
type Options struct {
	// StopOnError ends the load at the first failed row. Rows inserted
	// before it are still committed.
	StopOnError bool
	// ProgressInterval is how often progress is logged
	ProgressInterval time.Duration
}

// Loader inserts tables into staging tables
type Loader struct {
	db      Beginner
	options Options
	logger  logger.Logger
}

// NewLoader creates a loader over db
func NewLoader(db Beginner, options Options) *Loader {
	return &Loader{
		db:      db,
		options: options,
		logger:  logger.WithComponent("dbload"),
	}
}

// Load creates the staging table when needed and inserts every row of table
// in a single transaction. Per-row failures are collected on the result.
func (l *Loader) Load(ctx context.Context, spec *TableSpec, table *models.Table) (*Result, error) {
	if err := spec.Validate(); err != nil {
		return nil, errors.ConfigurationError(errors.CodeInvalidConfig, "table spec", spec.Name, err)
	}

	start := time.Now()
	result := &Result{
		Table:    spec.Name,
		Total:    table.Len(),
		Missing:  spec.MissingColumns(table),
		Unmapped: spec.UnmappedColumns(table),
	}
	log := l.logger.WithFields(logger.Fields{"table": spec.Name, "rows": table.Len()})

	if len(result.Missing) > 0 {
		if spec.RequireAllColumns {
			return nil, errors.ValidationError(errors.CodeMissingColumn, "columns", strings.Join(result.Missing, ", "),
				fmt.Errorf("%s requires every mapped column", spec.Name)).
				WithContext("available", table.Columns)
		}
		log.WithField("missing", result.Missing).Warn("Mapped columns not found in sheet, loading as NULL")
	}
	if len(result.Unmapped) > 0 {
		log.WithField("unmapped", result.Unmapped).Warn("Sheet columns not mapped to the table")
	}

	tx, err := l.db.Begin(ctx)
	if err != nil {
		return nil, errors.DatabaseError(errors.CodeConnectionFailed, spec.Name, err)
	}
	// no-op after Commit
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, CreateTableSQL(spec)); err != nil {
		return nil, errors.DatabaseError(errors.CodeStatementFailed, spec.Name, err)
	}

	progress := logger.NewProgressTracker(logger.ProgressConfig{
		Operation:   "load " + spec.Name,
		Total:       int64(table.Len()),
		LogInterval: l.options.ProgressInterval,
		Logger:      l.logger,
	})

	insert := InsertSQL(spec)
	for i := 0; i < table.Len(); i++ {
		if err := ctx.Err(); err != nil {
			progress.CompleteWithError(err)
			return nil, errors.DatabaseError(errors.CodeStatementFailed, spec.Name, err)
		}
		if _, err := tx.ExecContext(ctx, insert, RowValues(spec, table, i)...); err != nil {
			progress.Fail()
			result.Failed = append(result.Failed, RowError{Row: i + 1, Err: err})
			if len(result.Failed) <= 5 {
				log.WithError(err).WithField("row", i+1).Warn("Row insert failed")
			}
			if l.options.StopOnError {
				break
			}
			continue
		}
		result.Inserted++
		progress.Increment()
	}

	if err := tx.Commit(); err != nil {
		progress.CompleteWithError(err)
		return nil, errors.DatabaseError(errors.CodeStatementFailed, spec.Name, err)
	}
	progress.Complete()

	result.Duration = time.Since(start)
	log.WithFields(logger.Fields{
		"inserted": result.Inserted,
		"failed":   len(result.Failed),
		"duration": result.Duration.String(),
	}).Info("Load committed")

	return result, nil
}
