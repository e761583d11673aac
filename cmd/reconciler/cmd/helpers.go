package cmd

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"claims-reconciliation-service/cmd/reconciler/config"
	"claims-reconciliation-service/internal/claims"
	"claims-reconciliation-service/internal/models"
	"claims-reconciliation-service/internal/reconciler"
	"claims-reconciliation-service/internal/reporter"
	"claims-reconciliation-service/internal/session"
	"claims-reconciliation-service/internal/workbook"
	"claims-reconciliation-service/pkg/errors"

	"github.com/spf13/cobra"
)

var validFormats = map[string]bool{"console": true, "json": true, "csv": true}

// departmentReport is one department's parsed sheet and the columns read
// from it
type departmentReport struct {
	FileName       string
	Table          *models.Table
	ScheduleColumn string
	AmountColumn   string
}

func (r *departmentReport) source() reconciler.Source {
	return reconciler.Source{
		Table:          r.Table,
		ScheduleColumn: r.ScheduleColumn,
		AmountColumn:   r.AmountColumn,
	}
}

func validateFileExists(filePath, description string) error {
	if filePath == "" {
		return errors.ValidationError(errors.CodeMissingField, description, nil,
			fmt.Errorf("%s path cannot be empty", description))
	}

	info, err := os.Stat(filePath)
	if os.IsNotExist(err) {
		return errors.FileError(errors.CodeFileNotFound, filePath, err).WithContext("file", description)
	}
	if err != nil {
		return errors.FileError(errors.CodeFilePermission, filePath, err).WithContext("file", description)
	}

	if info.IsDir() {
		return errors.FileError(errors.CodeUnsupportedExt, filePath,
			fmt.Errorf("%s is a directory, expected a file", description))
	}

	// Check if file is readable
	file, err := os.Open(filePath)
	if err != nil {
		return errors.FileError(errors.CodeFilePermission, filePath, err).WithContext("file", description)
	}
	file.Close()

	return nil
}

func validateOutputFormat(format string) error {
	if !validFormats[format] {
		return errors.ValidationError(errors.CodeInvalidData, "output-format", format,
			fmt.Errorf("invalid output format '%s'. Valid formats: console, json, csv", format))
	}
	return nil
}

// resolveColumn returns explicit when set and present, else the first alias
// found in the table header
func resolveColumn(table *models.Table, explicit string, aliases []string, what string) (string, error) {
	if explicit != "" {
		if _, err := table.RequireColumn(explicit); err != nil {
			return "", err
		}
		return explicit, nil
	}
	if col, ok := workbook.ResolveColumn(table, aliases); ok {
		return col, nil
	}
	return "", errors.ColumnNotFound(strings.Join(aliases, " / "), table.Columns).
		WithContext("table", table.Name).
		WithSuggestion(fmt.Sprintf("pass the %s column name explicitly", what))
}

// optionalColumn returns the first alias found, or "" when none is present
func optionalColumn(table *models.Table, aliases []string) string {
	col, _ := workbook.ResolveColumn(table, aliases)
	return col
}

func sequenceColumns(table *models.Table, aliases config.ColumnAliases) claims.SequenceColumns {
	return claims.SequenceColumns{
		ProviderCode:      optionalColumn(table, aliases.ProviderCode),
		EncounterDate:     optionalColumn(table, aliases.EncounterDate),
		ClaimReceivedDate: optionalColumn(table, aliases.ClaimReceivedDate),
		EnrolleeName:      optionalColumn(table, aliases.EnrolleeName),
		MemberNo:          optionalColumn(table, aliases.MemberNo),
	}
}

// checkClaimDates groups the rows whose encounter date is after the received
// date. It returns nil when either date column is absent.
func checkClaimDates(table *models.Table, aliases config.ColumnAliases, scheduleColumn string, layouts []string) ([]claims.DateErrorGroup, error) {
	cols := claims.DateCheckColumns{
		ScheduleNumber:    scheduleColumn,
		EncounterDate:     optionalColumn(table, aliases.EncounterDate),
		ClaimReceivedDate: optionalColumn(table, aliases.ClaimReceivedDate),
	}
	if cols.EncounterDate == "" || cols.ClaimReceivedDate == "" {
		return nil, nil
	}
	errs, err := claims.CheckDates(table, cols, layouts)
	if err != nil {
		return nil, err
	}
	return claims.GroupDateErrors(errs), nil
}

// readUpload parses a stored upload with the sheet chosen when it was saved
func readUpload(record *session.UploadRecord, data []byte) (*models.Table, error) {
	wb, err := workbook.OpenReader(bytes.NewReader(data), record.FileName)
	if err != nil {
		return nil, err
	}
	defer wb.Close()
	return wb.Table(workbook.ReadOptions{Sheet: record.Sheet})
}

// openOutput returns stdout of cmd when path is empty or "-"
func openOutput(cmd *cobra.Command, path string) (io.Writer, func() error, error) {
	if path == "" || path == "-" {
		return cmd.OutOrStdout(), func() error { return nil }, nil
	}
	f, err := reporter.CreateOutputFile(path)
	if err != nil {
		return nil, nil, err
	}
	return f, f.Close, nil
}

// exportPath places name inside path when path is an existing directory
func exportPath(path, name string) string {
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		return filepath.Join(path, name)
	}
	return path
}

// writeFile creates path and hands it to write, closing it afterwards
func writeFile(path string, write func(io.Writer) error) error {
	f, err := reporter.CreateOutputFile(path)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return errors.FileError(errors.CodeFilePermission, path, err)
	}
	return nil
}
