package cmd

import (
	"fmt"
	"io"
	"os"
	"time"

	"claims-reconciliation-service/cmd/reconciler/config"
	"claims-reconciliation-service/internal/claims"
	"claims-reconciliation-service/internal/reconciler"
	"claims-reconciliation-service/internal/reporter"
	"claims-reconciliation-service/internal/session"
	"claims-reconciliation-service/internal/workbook"
	"claims-reconciliation-service/pkg/errors"
	"claims-reconciliation-service/pkg/logger"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Flags for the reconcile command
var (
	claimsFile          string
	financeFile         string
	claimsSheet         string
	financeSheet        string
	week                string
	scheduleColumn      string
	claimsAmountColumn  string
	financeAmountColumn string
	outputFormat        string
	outputFile          string
	exportReport        string
	enhancedClaims      string
	checkDates          bool
	sendNotifications   bool
	dryRun              bool
)

// reconcileCmd represents the reconcile command
var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Reconcile the Claims schedule report with the Finance report",
	Long: `Reconcile compares the schedule numbers and amounts reported by Claims
with those recognized by Finance. It lists schedules missing on either side
and schedules whose totals differ by more than the tolerance.

The two reports are read either from files given on the command line or from
the uploads stored for a week with 'reconciler upload'.

Examples:
  # Reconcile two files
  reconciler reconcile --claims-file claims.xlsx --finance-file finance.xlsx

  # Reconcile this week's uploads and email the departments
  reconciler reconcile --notify

  # Reconcile a past week, write the weekly workbook and preview the emails
  reconciler reconcile --week 2024-W32 --export reports/ --dry-run

  # Generate claim numbers alongside the reconciliation
  reconciler reconcile --claims-file claims.xlsx --finance-file finance.xlsx \
    --enhanced-claims enhanced.xlsx --output-format json`,

	PreRunE: validateReconcileFlags,
	RunE:    runReconcile,
}

func init() {
	rootCmd.AddCommand(reconcileCmd)

	// Input flags
	reconcileCmd.Flags().StringVar(&claimsFile, "claims-file", "", "path to the Claims report (.xlsx, .xlsm or .csv)")
	reconcileCmd.Flags().StringVar(&financeFile, "finance-file", "", "path to the Finance report (.xlsx, .xlsm or .csv)")
	reconcileCmd.Flags().StringVar(&claimsSheet, "claims-sheet", "", "sheet to read from the Claims report (default first sheet)")
	reconcileCmd.Flags().StringVar(&financeSheet, "finance-sheet", "", "sheet to read from the Finance report (default first sheet)")
	reconcileCmd.Flags().StringVarP(&week, "week", "w", "", "reconcile the uploads stored for a week, e.g. 2024-W32 (default current week)")

	// Column flags
	reconcileCmd.Flags().StringVar(&scheduleColumn, "schedule-column", "", "schedule number column in both reports (default detected)")
	reconcileCmd.Flags().StringVar(&claimsAmountColumn, "claims-amount-column", "", "amount column in the Claims report (default detected)")
	reconcileCmd.Flags().StringVar(&financeAmountColumn, "finance-amount-column", "", "amount column in the Finance report (default detected)")

	// Output flags
	reconcileCmd.Flags().StringVarP(&outputFormat, "output-format", "f", "console", "output format: console, json, csv")
	reconcileCmd.Flags().StringVarP(&outputFile, "output-file", "o", "", "output file path (default: stdout)")
	reconcileCmd.Flags().StringVar(&exportReport, "export", "", "write the weekly report workbook to this file or directory")
	reconcileCmd.Flags().StringVar(&enhancedClaims, "enhanced-claims", "", "write the Claims sheet with generated claim numbers to this file or directory")
	reconcileCmd.Flags().BoolVar(&checkDates, "check-dates", true, "report claims whose encounter date is after the date received")

	// Notification flags
	reconcileCmd.Flags().BoolVar(&sendNotifications, "notify", false, "email the alerts raised by the run")
	reconcileCmd.Flags().BoolVar(&dryRun, "dry-run", false, "log the alert emails instead of sending them")

	// Bind flags to viper
	viper.BindPFlag("reconcile.claims-file", reconcileCmd.Flags().Lookup("claims-file"))
	viper.BindPFlag("reconcile.finance-file", reconcileCmd.Flags().Lookup("finance-file"))
	viper.BindPFlag("reconcile.claims-sheet", reconcileCmd.Flags().Lookup("claims-sheet"))
	viper.BindPFlag("reconcile.finance-sheet", reconcileCmd.Flags().Lookup("finance-sheet"))
	viper.BindPFlag("reconcile.week", reconcileCmd.Flags().Lookup("week"))
	viper.BindPFlag("reconcile.schedule-column", reconcileCmd.Flags().Lookup("schedule-column"))
	viper.BindPFlag("reconcile.claims-amount-column", reconcileCmd.Flags().Lookup("claims-amount-column"))
	viper.BindPFlag("reconcile.finance-amount-column", reconcileCmd.Flags().Lookup("finance-amount-column"))
	viper.BindPFlag("reconcile.output-format", reconcileCmd.Flags().Lookup("output-format"))
	viper.BindPFlag("reconcile.output-file", reconcileCmd.Flags().Lookup("output-file"))
	viper.BindPFlag("reconcile.export", reconcileCmd.Flags().Lookup("export"))
	viper.BindPFlag("reconcile.enhanced-claims", reconcileCmd.Flags().Lookup("enhanced-claims"))
	viper.BindPFlag("reconcile.check-dates", reconcileCmd.Flags().Lookup("check-dates"))
	viper.BindPFlag("reconcile.notify", reconcileCmd.Flags().Lookup("notify"))
	viper.BindPFlag("reconcile.dry-run", reconcileCmd.Flags().Lookup("dry-run"))
}

func validateReconcileFlags(cmd *cobra.Command, args []string) error {
	// Get values from viper (allows override from config file)
	claimsFile = viper.GetString("reconcile.claims-file")
	financeFile = viper.GetString("reconcile.finance-file")
	claimsSheet = viper.GetString("reconcile.claims-sheet")
	financeSheet = viper.GetString("reconcile.finance-sheet")
	week = viper.GetString("reconcile.week")
	scheduleColumn = viper.GetString("reconcile.schedule-column")
	claimsAmountColumn = viper.GetString("reconcile.claims-amount-column")
	financeAmountColumn = viper.GetString("reconcile.finance-amount-column")
	outputFormat = viper.GetString("reconcile.output-format")
	outputFile = viper.GetString("reconcile.output-file")
	exportReport = viper.GetString("reconcile.export")
	enhancedClaims = viper.GetString("reconcile.enhanced-claims")
	checkDates = viper.GetBool("reconcile.check-dates")
	sendNotifications = viper.GetBool("reconcile.notify")
	dryRun = viper.GetBool("reconcile.dry-run")

	if outputFormat == "" {
		outputFormat = "console"
	}
	if dryRun {
		sendNotifications = true
	}

	// Files come in pairs; with neither, the stored uploads are used
	if (claimsFile == "") != (financeFile == "") {
		return errors.ValidationError(errors.CodeMissingField, "input", nil,
			fmt.Errorf("claims-file and finance-file must be given together")).
			WithSuggestion("pass both files, or neither to use the uploads stored for --week")
	}
	if claimsFile != "" {
		if week != "" {
			return errors.ValidationError(errors.CodeInvalidData, "week", week,
				fmt.Errorf("--week cannot be combined with input files"))
		}
		if err := validateFileExists(claimsFile, "claims report"); err != nil {
			return err
		}
		if err := validateFileExists(financeFile, "finance report"); err != nil {
			return err
		}
	}

	if err := validateOutputFormat(outputFormat); err != nil {
		return err
	}
	if _, err := config.Tolerance(viper.GetViper()); err != nil {
		return err
	}

	return nil
}

// loadReconcileInputs reads both reports from the flags or from the session
// store and resolves the columns to reconcile
func loadReconcileInputs(aliases config.ColumnAliases) (*departmentReport, *departmentReport, error) {
	if claimsFile != "" {
		claimsReport, err := loadReportFile(claimsFile, claimsSheet, aliases.Schedule, aliases.ClaimsAmount, claimsAmountColumn)
		if err != nil {
			return nil, nil, err
		}
		financeReport, err := loadReportFile(financeFile, financeSheet, aliases.Schedule, aliases.FinanceAmount, financeAmountColumn)
		if err != nil {
			return nil, nil, err
		}
		return claimsReport, financeReport, nil
	}

	store, err := config.CreateSessionStore(viper.GetViper())
	if err != nil {
		return nil, nil, err
	}
	if week == "" {
		week = store.CurrentWeek()
	}
	claimsReport, err := loadStoredReport(store, session.RoleClaims, aliases.Schedule, aliases.ClaimsAmount, claimsAmountColumn)
	if err != nil {
		return nil, nil, err
	}
	financeReport, err := loadStoredReport(store, session.RoleFinance, aliases.Schedule, aliases.FinanceAmount, financeAmountColumn)
	if err != nil {
		return nil, nil, err
	}
	return claimsReport, financeReport, nil
}

func loadReportFile(path, sheet string, scheduleAliases, amountAliases []string, amountColumn string) (*departmentReport, error) {
	table, err := workbook.ReadTable(path, workbook.ReadOptions{Sheet: sheet})
	if err != nil {
		return nil, err
	}
	report := &departmentReport{FileName: path, Table: table}
	if report.ScheduleColumn, err = resolveColumn(table, scheduleColumn, scheduleAliases, "--schedule-column"); err != nil {
		return nil, err
	}
	if report.AmountColumn, err = resolveColumn(table, amountColumn, amountAliases, "amount"); err != nil {
		return nil, err
	}
	return report, nil
}

func loadStoredReport(store *session.Store, role session.Role, scheduleAliases, amountAliases []string, amountColumn string) (*departmentReport, error) {
	record, data, err := store.Load(week, role)
	if err != nil {
		if errors.IsCode(err, errors.CodeSessionNotFound) {
			if appErr, ok := errors.AsAppError(err); ok {
				return nil, appErr.WithSuggestion(fmt.Sprintf("upload the %s report with 'reconciler upload --role %s'", role.Title(), role))
			}
		}
		return nil, err
	}
	table, err := readUpload(record, data)
	if err != nil {
		return nil, err
	}

	report := &departmentReport{FileName: record.FileName, Table: table}
	schedule := scheduleColumn
	if schedule == "" {
		schedule = record.ScheduleColumn
	}
	if amountColumn == "" {
		amountColumn = record.AmountColumn
	}
	if report.ScheduleColumn, err = resolveColumn(table, schedule, scheduleAliases, "--schedule-column"); err != nil {
		return nil, err
	}
	if report.AmountColumn, err = resolveColumn(table, amountColumn, amountAliases, "amount"); err != nil {
		return nil, err
	}
	return report, nil
}

func runReconcile(cmd *cobra.Command, args []string) error {
	ctx := commandContext(cmd)
	v := viper.GetViper()
	log := logger.WithComponent("cli").WithField("command", "reconcile")

	aliases, err := config.CreateColumnAliases(v)
	if err != nil {
		return err
	}
	claimsReport, financeReport, err := loadReconcileInputs(aliases)
	if err != nil {
		return err
	}

	log.WithFields(logger.Fields{
		"claims_file":    claimsReport.FileName,
		"finance_file":   financeReport.FileName,
		"schedule":       claimsReport.ScheduleColumn,
		"claims_amount":  claimsReport.AmountColumn,
		"finance_amount": financeReport.AmountColumn,
	}).Info("Starting reconciliation")

	// Create the reconciliation service
	serviceConfig, err := config.CreateReconcilerConfig(v)
	if err != nil {
		return err
	}
	service, err := reconciler.NewService(serviceConfig)
	if err != nil {
		return err
	}

	var result *reconciler.Result
	err = logger.TimedOperation("reconciliation", log, func() error {
		var runErr error
		result, runErr = service.Run(ctx, reconciler.Request{
			Claims:  claimsReport.source(),
			Finance: financeReport.source(),
		})
		return runErr
	})
	if err != nil {
		return errors.WrapIfNeeded(err, errors.CategoryReconciliation, errors.CodeProcessingError, "reconciliation failed")
	}

	// Generate report
	generator, err := reporter.NewSafeReportGenerator(config.CreateReportConfig(outputFormat, v), log)
	if err != nil {
		return err
	}
	output, closeOutput, err := openOutput(cmd, outputFile)
	if err != nil {
		return err
	}
	if err := generator.GenerateReportSafely(result, output); err != nil {
		closeOutput()
		return err
	}
	if err := closeOutput(); err != nil {
		return errors.FileError(errors.CodeFilePermission, outputFile, err)
	}

	now := time.Now()
	if exportReport != "" {
		path := exportPath(exportReport, workbook.ReportFilename(now))
		if err := writeFile(path, func(w io.Writer) error {
			return workbook.WriteReconciliationReport(w, result, now)
		}); err != nil {
			return err
		}
		log.WithField("file", path).Info("Wrote reconciliation workbook")
	}

	var dateErrors []claims.DateErrorGroup
	if checkDates {
		dateErrors, err = checkClaimDates(claimsReport.Table, aliases, claimsReport.ScheduleColumn, config.DateLayouts(v))
		if err != nil {
			return err
		}
		if len(dateErrors) > 0 {
			log.WithField("groups", len(dateErrors)).Warn("Claims with encounter date after date received")
		}
	}

	if enhancedClaims != "" {
		rows, err := config.CreateSequencer(v).Sequence(claimsReport.Table, sequenceColumns(claimsReport.Table, aliases))
		if err != nil {
			return err
		}
		path := exportPath(enhancedClaims, workbook.EnhancedClaimsFilename(now))
		if err := writeFile(path, func(w io.Writer) error {
			return workbook.WriteEnhancedClaims(w, claimsReport.Table, rows)
		}); err != nil {
			return err
		}
		log.WithFields(logger.Fields{"file": path, "rows": len(rows)}).Info("Wrote enhanced claims workbook")
	}

	if sendNotifications {
		notifier, err := config.CreateNotifier(v, dryRun)
		if err != nil {
			return err
		}
		messages := notifier.ReconciliationAlerts(result, dateErrors)
		sent, err := notifier.Send(ctx, messages...)
		fmt.Fprintf(os.Stderr, "Sent %d of %d notifications\n", sent, len(messages))
		if err != nil {
			return err
		}
	}

	// Show completion message
	if viper.GetBool("verbose") {
		s := result.Summary
		fmt.Fprintf(os.Stderr, "\nReconciliation completed successfully.\n")
		fmt.Fprintf(os.Stderr, "Compared %d Claims schedules with %d Finance schedules.\n",
			s.TotalClaimsSchedules, s.TotalFinanceSchedules)
		fmt.Fprintf(os.Stderr, "Found %d matching, %d amount mismatches, %d missing in Finance, %d missing in Claims.\n",
			s.MatchingSchedules, s.AmountMismatches, s.MissingInFinance, s.MissingInClaims)
		if len(dateErrors) > 0 {
			fmt.Fprintf(os.Stderr, "Detected %d date validation error groups.\n", len(dateErrors))
		}
		fmt.Fprintf(os.Stderr, "Processing time: %v\n", result.Duration)
	}

	return nil
}
