package cmd

import (
	"fmt"
	"time"

	"claims-reconciliation-service/cmd/reconciler/config"
	"claims-reconciliation-service/internal/dbload"
	"claims-reconciliation-service/internal/workbook"
	"claims-reconciliation-service/pkg/errors"
	"claims-reconciliation-service/pkg/logger"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	loadTable      string
	loadFile       string
	loadSheet      string
	loadHeaderRow  int
	loadDSN        string
	loadStopOnFail bool
)

// dbloadCmd represents the dbload command
var dbloadCmd = &cobra.Command{
	Use:   "dbload",
	Short: "Load a Claims or appeals sheet into the database",
	Long: `Dbload inserts every row of a sheet into the claims (claimstbl) or appeals
(appealstbl) table in one transaction, creating the table when needed. Dates
and amounts are cleaned on the way in; blank and NIL cells are stored as NULL.

The MySQL connection string is read from DATABASE_DSN, usually set in
secrets.env.

Examples:
  reconciler dbload --table claims --file enhanced_claims.xlsx
  reconciler dbload --table appeals --file compiled.xlsx --sheet "Compiled Appeals"`,

	PreRunE: validateDBLoadFlags,
	RunE:    runDBLoad,
}

func init() {
	rootCmd.AddCommand(dbloadCmd)

	dbloadCmd.Flags().StringVarP(&loadTable, "table", "t", "", "target table: claims or appeals (required)")
	dbloadCmd.Flags().StringVar(&loadFile, "file", "", "workbook to load (required)")
	dbloadCmd.Flags().StringVar(&loadSheet, "sheet", "", "sheet to load (default first sheet)")
	dbloadCmd.Flags().IntVar(&loadHeaderRow, "header-row", 1, "row holding the column names")
	dbloadCmd.Flags().StringVar(&loadDSN, "dsn", "", "MySQL DSN (default DATABASE_DSN)")
	dbloadCmd.Flags().BoolVar(&loadStopOnFail, "stop-on-error", false, "stop at the first row that fails to insert")
	dbloadCmd.MarkFlagRequired("table")
	dbloadCmd.MarkFlagRequired("file")

	viper.BindPFlag("dbload.table", dbloadCmd.Flags().Lookup("table"))
	viper.BindPFlag("dbload.file", dbloadCmd.Flags().Lookup("file"))
	viper.BindPFlag("dbload.sheet", dbloadCmd.Flags().Lookup("sheet"))
	viper.BindPFlag("dbload.header-row", dbloadCmd.Flags().Lookup("header-row"))
	viper.BindPFlag("dbload.stop-on-error", dbloadCmd.Flags().Lookup("stop-on-error"))
	viper.BindPFlag(config.KeyDatabaseDSN, dbloadCmd.Flags().Lookup("dsn"))
}

func validateDBLoadFlags(cmd *cobra.Command, args []string) error {
	loadTable = viper.GetString("dbload.table")
	loadFile = viper.GetString("dbload.file")
	loadSheet = viper.GetString("dbload.sheet")
	loadHeaderRow = viper.GetInt("dbload.header-row")
	loadStopOnFail = viper.GetBool("dbload.stop-on-error")

	if _, err := config.TableSpec(loadTable); err != nil {
		return err
	}
	if loadHeaderRow < 1 {
		return errors.ValidationError(errors.CodeInvalidData, "header-row", loadHeaderRow,
			fmt.Errorf("header row must be at least 1"))
	}
	if err := validateFileExists(loadFile, "workbook"); err != nil {
		return err
	}

	dsn, err := config.DatabaseDSN(viper.GetViper())
	if err != nil {
		return err
	}
	loadDSN = dsn
	return nil
}

func runDBLoad(cmd *cobra.Command, args []string) error {
	ctx := commandContext(cmd)
	log := logger.WithComponent("cli").WithField("command", "dbload")

	spec, err := config.TableSpec(loadTable)
	if err != nil {
		return err
	}
	table, err := workbook.ReadTable(loadFile, workbook.ReadOptions{Sheet: loadSheet, HeaderRow: loadHeaderRow})
	if err != nil {
		return err
	}

	db, err := dbload.Open(ctx, loadDSN)
	if err != nil {
		return err
	}
	defer db.Close()

	loader := dbload.NewLoader(dbload.SQLDB{DB: db}, dbload.Options{
		StopOnError:      loadStopOnFail,
		ProgressInterval: 5 * time.Second,
	})
	result, err := loader.Load(ctx, spec, table)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Loaded %d of %d rows into %s in %v\n", result.Inserted, result.Total, result.Table, result.Duration.Round(time.Millisecond))
	if len(result.Missing) > 0 {
		fmt.Fprintf(out, "Columns not in the sheet, stored as NULL: %v\n", result.Missing)
	}
	if len(result.Unmapped) > 0 {
		log.WithField("columns", result.Unmapped).Debug("Sheet columns not loaded")
	}
	if len(result.Failed) > 0 {
		errs := make([]error, len(result.Failed))
		for i, f := range result.Failed {
			errs[i] = f
		}
		fmt.Fprintf(out, "%s\n", FormatValidationErrors(errs))
	}
	return nil
}
