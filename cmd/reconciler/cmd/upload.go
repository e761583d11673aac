package cmd

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"claims-reconciliation-service/cmd/reconciler/config"
	"claims-reconciliation-service/internal/notify"
	"claims-reconciliation-service/internal/session"
	"claims-reconciliation-service/internal/workbook"
	"claims-reconciliation-service/pkg/errors"
	"claims-reconciliation-service/pkg/logger"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Flags for the upload command
var (
	uploadRole           string
	uploadFile           string
	uploadSheet          string
	uploadScheduleColumn string
	uploadAmountColumn   string
	uploadNotify         bool
	uploadDryRun         bool
)

// uploadCmd represents the upload command
var uploadCmd = &cobra.Command{
	Use:   "upload",
	Short: "Store a department's weekly report for reconciliation",
	Long: `Upload stores the Claims or Finance report for the current week together
with the sheet and columns to reconcile. Once both departments have uploaded,
'reconciler reconcile' without input files reconciles the stored reports.

Examples:
  reconciler upload --role claims --file claims_week32.xlsx
  reconciler upload --role finance --file finance.xlsx --sheet "WEEKLY REPORT" --notify`,

	PreRunE: validateUploadFlags,
	RunE:    runUpload,
}

func init() {
	rootCmd.AddCommand(uploadCmd)

	uploadCmd.Flags().StringVarP(&uploadRole, "role", "r", "", "uploading department: claims or finance (required)")
	uploadCmd.Flags().StringVar(&uploadFile, "file", "", "path to the report (required)")
	uploadCmd.Flags().StringVar(&uploadSheet, "sheet", "", "sheet holding the schedules (default first sheet)")
	uploadCmd.Flags().StringVar(&uploadScheduleColumn, "schedule-column", "", "schedule number column (default detected)")
	uploadCmd.Flags().StringVar(&uploadAmountColumn, "amount-column", "", "amount column (default detected)")
	uploadCmd.Flags().BoolVar(&uploadNotify, "notify", false, "email the upload notice")
	uploadCmd.Flags().BoolVar(&uploadDryRun, "dry-run", false, "log the upload notice instead of sending it")

	uploadCmd.MarkFlagRequired("role")
	uploadCmd.MarkFlagRequired("file")

	viper.BindPFlag("upload.role", uploadCmd.Flags().Lookup("role"))
	viper.BindPFlag("upload.file", uploadCmd.Flags().Lookup("file"))
	viper.BindPFlag("upload.sheet", uploadCmd.Flags().Lookup("sheet"))
	viper.BindPFlag("upload.schedule-column", uploadCmd.Flags().Lookup("schedule-column"))
	viper.BindPFlag("upload.amount-column", uploadCmd.Flags().Lookup("amount-column"))
	viper.BindPFlag("upload.notify", uploadCmd.Flags().Lookup("notify"))
	viper.BindPFlag("upload.dry-run", uploadCmd.Flags().Lookup("dry-run"))
}

func validateUploadFlags(cmd *cobra.Command, args []string) error {
	uploadRole = viper.GetString("upload.role")
	uploadFile = viper.GetString("upload.file")
	uploadSheet = viper.GetString("upload.sheet")
	uploadScheduleColumn = viper.GetString("upload.schedule-column")
	uploadAmountColumn = viper.GetString("upload.amount-column")
	uploadNotify = viper.GetBool("upload.notify") || viper.GetBool("upload.dry-run")
	uploadDryRun = viper.GetBool("upload.dry-run")

	if _, err := session.ParseRole(uploadRole); err != nil {
		return err
	}
	return validateFileExists(uploadFile, "upload")
}

func otherRole(role session.Role) session.Role {
	if role == session.RoleClaims {
		return session.RoleFinance
	}
	return session.RoleClaims
}

func runUpload(cmd *cobra.Command, args []string) error {
	v := viper.GetViper()
	role, err := session.ParseRole(uploadRole)
	if err != nil {
		return err
	}
	log := logger.WithComponent("cli").WithFields(logger.Fields{"command": "upload", "role": string(role)})

	data, err := os.ReadFile(uploadFile)
	if err != nil {
		return errors.FileError(errors.CodeFilePermission, uploadFile, err)
	}

	// Parse before storing so a bad sheet or column is caught at hand-over
	wb, err := workbook.OpenReader(bytes.NewReader(data), uploadFile)
	if err != nil {
		return err
	}
	table, err := wb.Table(workbook.ReadOptions{Sheet: uploadSheet})
	wb.Close()
	if err != nil {
		return err
	}

	aliases, err := config.CreateColumnAliases(v)
	if err != nil {
		return err
	}
	amountAliases := aliases.ClaimsAmount
	if role == session.RoleFinance {
		amountAliases = aliases.FinanceAmount
	}
	schedule, err := resolveColumn(table, uploadScheduleColumn, aliases.Schedule, "--schedule-column")
	if err != nil {
		return err
	}
	amount, err := resolveColumn(table, uploadAmountColumn, amountAliases, "--amount-column")
	if err != nil {
		return err
	}

	store, err := config.CreateSessionStore(v)
	if err != nil {
		return err
	}
	saved, err := store.Save(role, session.Upload{
		FileName:       filepath.Base(uploadFile),
		Sheet:          table.Name,
		ScheduleColumn: schedule,
		AmountColumn:   amount,
	}, data)
	if err != nil {
		return err
	}

	log.WithFields(logger.Fields{
		"week": saved.Week,
		"rows": table.Len(),
		"id":   saved.Record.ID.String(),
	}).Info("Stored upload")

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Stored %s report %s for week %s (sheet %q, %d rows, schedule %q, amount %q)\n",
		role.Title(), saved.Record.FileName, saved.Week, table.Name, table.Len(), schedule, amount)
	if saved.Complete {
		fmt.Fprintf(out, "Both departments have uploaded. Run 'reconciler reconcile --week %s' to reconcile.\n", saved.Week)
	} else {
		fmt.Fprintf(out, "Waiting for the %s report.\n", otherRole(role).Title())
	}

	if !uploadNotify {
		return nil
	}
	notifier, err := config.CreateNotifier(v, uploadDryRun)
	if err != nil {
		return err
	}
	messages, err := uploadNotices(notifier.Composer(), role, saved)
	if err != nil {
		return err
	}
	_, err = notifier.Send(commandContext(cmd), messages...)
	return err
}

func uploadNotices(composer *notify.Composer, role session.Role, saved *session.SaveResult) ([]*notify.Message, error) {
	notice, err := composer.DepartmentUpload(role.Title(), otherRole(role).Title(), saved.Record.UploadedAt)
	if err != nil {
		return nil, err
	}
	messages := []*notify.Message{notice}
	if saved.Complete {
		ready, err := composer.AllFilesReady()
		if err != nil {
			return nil, err
		}
		messages = append(messages, ready)
	}
	return messages, nil
}
