package reporter

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"claims-reconciliation-service/internal/appeals"
	"claims-reconciliation-service/internal/reconciler"
	"claims-reconciliation-service/pkg/errors"
	"claims-reconciliation-service/pkg/logger"
)

// SafeReportGenerator wraps ReportGenerator with input validation, logging
// and a console fallback for structured formats
type SafeReportGenerator struct {
	*ReportGenerator
	logger logger.Logger
}

// NewSafeReportGenerator creates a new safe report generator with error handling
func NewSafeReportGenerator(config *ReportConfig, log logger.Logger) (*SafeReportGenerator, error) {
	if log == nil {
		log = logger.GetGlobalLogger()
	}

	generator, err := NewReportGenerator(config)
	if err != nil {
		return nil, errors.ConfigurationError(errors.CodeInvalidConfig, "report", config, err).
			WithSuggestion("use --format console, json or csv")
	}

	return &SafeReportGenerator{
		ReportGenerator: generator,
		logger:          log.WithComponent("reporter"),
	}, nil
}

// GenerateReportSafely writes the reconciliation report, falling back to the
// console format when a structured format fails
func (srg *SafeReportGenerator) GenerateReportSafely(result *reconciler.Result, writer io.Writer) error {
	if err := validateInputs(result == nil, writer); err != nil {
		srg.logger.WithError(err).Error("Report generation failed: input validation")
		return err
	}

	return srg.run("reconciliation", writer, func(g *ReportGenerator) error {
		return g.GenerateReport(result, writer)
	})
}

// GenerateAppealsReportSafely is GenerateReportSafely for appeals results
func (srg *SafeReportGenerator) GenerateAppealsReportSafely(comp *appeals.Compilation, comparison *appeals.Comparison, writer io.Writer) error {
	if err := validateInputs(comp == nil, writer); err != nil {
		srg.logger.WithError(err).Error("Report generation failed: input validation")
		return err
	}

	return srg.run("appeals", writer, func(g *ReportGenerator) error {
		return g.GenerateAppealsReport(comp, comparison, writer)
	})
}

func validateInputs(missingResult bool, writer io.Writer) error {
	if missingResult {
		return errors.ValidationError(errors.CodeMissingField, "result", nil, nil).
			WithSuggestion("run the reconciliation before generating a report")
	}
	if writer == nil {
		return errors.ValidationError(errors.CodeMissingField, "writer", nil, nil).
			WithSuggestion("provide a valid output writer")
	}
	return nil
}

func (srg *SafeReportGenerator) run(report string, writer io.Writer, generate func(*ReportGenerator) error) error {
	log := srg.logger.WithFields(logger.Fields{
		"report": report,
		"format": string(srg.config.Format),
		"output": getWriterDescription(writer),
	})
	log.Debug("Starting report generation")

	err := generate(srg.ReportGenerator)
	if err == nil {
		log.Debug("Report generation completed")
		return nil
	}
	if srg.config.Format == FormatConsole {
		log.WithError(err).Error("Report generation failed")
		return wrapGenerationError(err)
	}

	log.WithError(err).Warn("Report generation failed, falling back to console format")
	fallbackConfig := *srg.config
	fallbackConfig.Format = FormatConsole
	fallback, ferr := NewReportGenerator(&fallbackConfig)
	if ferr != nil {
		return wrapGenerationError(err)
	}

	fmt.Fprintf(writer, "NOTE: Report generated in console format due to an error with %s output\n", srg.config.Format)
	fmt.Fprintf(writer, "Original error: %v\n\n", err)
	if ferr := generate(fallback); ferr != nil {
		return errors.InternalError("report fallback",
			fmt.Errorf("both primary and fallback generation failed: primary=%v, fallback=%v", err, ferr))
	}
	return nil
}

func wrapGenerationError(err error) error {
	if appErr, ok := errors.AsAppError(err); ok {
		return appErr
	}
	return errors.InternalError("report generation", err).
		WithSuggestion("check the output destination and report format settings")
}

// CreateOutputFile creates path and its parent directories for writing a
// report or workbook
func CreateOutputFile(path string) (*os.File, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, errors.FileError(errors.CodeFilePermission, dir, err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		code := errors.CodeFilePermission
		if os.IsNotExist(err) {
			code = errors.CodeFileNotFound
		}
		return nil, errors.FileError(code, path, err)
	}
	return f, nil
}

func getWriterDescription(writer io.Writer) string {
	switch w := writer.(type) {
	case *os.File:
		if w.Name() != "" {
			return fmt.Sprintf("file:%s", w.Name())
		}
		return "file:unnamed"
	default:
		return fmt.Sprintf("writer:%T", writer)
	}
}
