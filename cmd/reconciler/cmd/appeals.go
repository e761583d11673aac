package cmd

import (
	"fmt"
	"io"
	"os"
	"time"

	"claims-reconciliation-service/cmd/reconciler/config"
	"claims-reconciliation-service/internal/appeals"
	"claims-reconciliation-service/internal/models"
	"claims-reconciliation-service/internal/reporter"
	"claims-reconciliation-service/internal/workbook"
	"claims-reconciliation-service/pkg/errors"
	"claims-reconciliation-service/pkg/logger"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	appealsFinanceFile  string
	appealsFinanceSheet string
	appealsOutput       string
	appealsFormat       string
	appealsReportFile   string
	appealsWorkers      int
	appealsNotify       bool
	appealsDryRun       bool
)

// appealsCmd represents the appeals command
var appealsCmd = &cobra.Command{
	Use:   "appeals [flags] FILE...",
	Short: "Compile appeals workbooks and compare them with Finance",
	Long: `Appeals reads the PAYMENT SUMMARY sheet of every appeals workbook, drops
total rows, maps the columns onto the compiled appeals layout and writes the
compiled workbook. With a Finance report, the appealed amount of every
schedule is compared with the amount Finance advised.

Examples:
  reconciler appeals appeals/*.xlsx
  reconciler appeals --finance-file finance.xlsx --output compiled.xlsx "Schedule 101.xlsx" "SCH 102.xlsx"
  reconciler appeals --finance-file finance.xlsx --notify --dry-run appeals/*.xlsx`,

	Args:    cobra.MinimumNArgs(1),
	PreRunE: validateAppealsFlags,
	RunE:    runAppeals,
}

func init() {
	rootCmd.AddCommand(appealsCmd)

	appealsCmd.Flags().StringVar(&appealsFinanceFile, "finance-file", "", "Finance report to compare the appeals against")
	appealsCmd.Flags().StringVar(&appealsFinanceSheet, "finance-sheet", "", "Finance sheet (default the CLAIMS RECEIVED or WEEKLY REPORT sheet)")
	appealsCmd.Flags().StringVar(&appealsOutput, "output", ".", "compiled workbook file or directory")
	appealsCmd.Flags().StringVarP(&appealsFormat, "output-format", "f", "console", "output format: console, json, csv")
	appealsCmd.Flags().StringVarP(&appealsReportFile, "output-file", "o", "", "report file path (default: stdout)")
	appealsCmd.Flags().IntVar(&appealsWorkers, "workers", 4, "workbooks parsed at once")
	appealsCmd.Flags().BoolVar(&appealsNotify, "notify", false, "email the comparison when discrepancies are found")
	appealsCmd.Flags().BoolVar(&appealsDryRun, "dry-run", false, "log the comparison email instead of sending it")

	viper.BindPFlag("appeals-cmd.finance-file", appealsCmd.Flags().Lookup("finance-file"))
	viper.BindPFlag("appeals-cmd.finance-sheet", appealsCmd.Flags().Lookup("finance-sheet"))
	viper.BindPFlag("appeals-cmd.output", appealsCmd.Flags().Lookup("output"))
	viper.BindPFlag("appeals-cmd.output-format", appealsCmd.Flags().Lookup("output-format"))
	viper.BindPFlag("appeals-cmd.output-file", appealsCmd.Flags().Lookup("output-file"))
	viper.BindPFlag(config.KeyAppealsWorkers, appealsCmd.Flags().Lookup("workers"))
	viper.BindPFlag("appeals-cmd.notify", appealsCmd.Flags().Lookup("notify"))
	viper.BindPFlag("appeals-cmd.dry-run", appealsCmd.Flags().Lookup("dry-run"))
}

func validateAppealsFlags(cmd *cobra.Command, args []string) error {
	appealsFinanceFile = viper.GetString("appeals-cmd.finance-file")
	appealsFinanceSheet = viper.GetString("appeals-cmd.finance-sheet")
	appealsOutput = viper.GetString("appeals-cmd.output")
	appealsFormat = viper.GetString("appeals-cmd.output-format")
	appealsReportFile = viper.GetString("appeals-cmd.output-file")
	appealsWorkers = viper.GetInt(config.KeyAppealsWorkers)
	appealsDryRun = viper.GetBool("appeals-cmd.dry-run")
	appealsNotify = viper.GetBool("appeals-cmd.notify") || appealsDryRun

	if appealsFormat == "" {
		appealsFormat = "console"
	}
	if appealsOutput == "" {
		appealsOutput = "."
	}
	if err := validateOutputFormat(appealsFormat); err != nil {
		return err
	}
	if appealsWorkers < 1 {
		return errors.ValidationError(errors.CodeInvalidData, "workers", appealsWorkers,
			fmt.Errorf("workers must be at least 1"))
	}
	if appealsNotify && appealsFinanceFile == "" {
		return errors.ValidationError(errors.CodeMissingField, "finance-file", nil,
			fmt.Errorf("--notify needs a Finance report to compare against"))
	}
	if appealsFinanceFile != "" {
		if err := validateFileExists(appealsFinanceFile, "finance report"); err != nil {
			return err
		}
	}
	for _, f := range args {
		if err := validateFileExists(f, "appeals workbook"); err != nil {
			return err
		}
	}
	return nil
}

// readFinanceSheet reads the named sheet, or the first sheet that looks like
// the Finance weekly report
func readFinanceSheet(path, sheet string) (*models.Table, error) {
	wb, err := workbook.Open(path)
	if err != nil {
		return nil, err
	}
	defer wb.Close()

	if sheet == "" {
		var ok bool
		if sheet, ok = appeals.FindFinanceSheet(wb.Sheets()); !ok {
			return nil, errors.SheetNotFound(path, "CLAIMS RECEIVED / WEEKLY REPORT").
				WithSuggestion("name the Finance sheet with --finance-sheet")
		}
	}
	return wb.Table(workbook.ReadOptions{Sheet: sheet})
}

func runAppeals(cmd *cobra.Command, args []string) error {
	ctx := commandContext(cmd)
	v := viper.GetViper()
	log := logger.WithComponent("cli").WithField("command", "appeals")

	compilerConfig, err := config.CreateAppealsConfig(v)
	if err != nil {
		return err
	}
	compiler, err := appeals.NewCompiler(compilerConfig)
	if err != nil {
		return err
	}

	sources := workbook.LoadAppealSources(ctx, args, appealsWorkers)
	if err := ctx.Err(); err != nil {
		return errors.WrapIfNeeded(err, errors.CategoryInternal, errors.CodeUnexpectedError, "appeals compilation interrupted")
	}
	compilation := compiler.Compile(sources)

	var comparison *appeals.Comparison
	if appealsFinanceFile != "" {
		finance, err := readFinanceSheet(appealsFinanceFile, appealsFinanceSheet)
		if err != nil {
			return err
		}
		cols, err := config.CreateFinanceColumns(v)
		if err != nil {
			return err
		}
		tolerance, err := config.Tolerance(v)
		if err != nil {
			return err
		}
		comparison, err = appeals.CompareWithFinance(compiler.Totals(compilation), finance, cols, tolerance)
		if err != nil {
			return err
		}
	}

	if compilation.Table.Len() > 0 {
		path := exportPath(appealsOutput, "Compiled_Appeals_"+time.Now().Format("20060102")+".xlsx")
		if err := writeFile(path, func(w io.Writer) error {
			return workbook.WriteCompiledAppeals(w, compilation, comparison)
		}); err != nil {
			return err
		}
		log.WithFields(logger.Fields{"file": path, "rows": compilation.Table.Len()}).Info("Wrote compiled appeals workbook")
	} else {
		log.Warn("No appeals rows compiled, workbook not written")
	}

	generator, err := reporter.NewSafeReportGenerator(config.CreateReportConfig(appealsFormat, v), log)
	if err != nil {
		return err
	}
	output, closeOutput, err := openOutput(cmd, appealsReportFile)
	if err != nil {
		return err
	}
	if err := generator.GenerateAppealsReportSafely(compilation, comparison, output); err != nil {
		closeOutput()
		return err
	}
	if err := closeOutput(); err != nil {
		return errors.FileError(errors.CodeFilePermission, appealsReportFile, err)
	}

	if appealsNotify && comparison != nil {
		notifier, err := config.CreateNotifier(v, appealsDryRun)
		if err != nil {
			return err
		}
		msg, err := notifier.Composer().AppealsComparison(comparison)
		if err != nil {
			return err
		}
		if msg == nil {
			fmt.Fprintf(os.Stderr, "No discrepancies found, no notification sent\n")
			return nil
		}
		if _, err := notifier.Send(ctx, msg); err != nil {
			return err
		}
	}
	return nil
}
