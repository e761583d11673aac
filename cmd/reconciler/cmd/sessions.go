package cmd

import (
	"fmt"
	"io"

	"claims-reconciliation-service/cmd/reconciler/config"
	"claims-reconciliation-service/internal/session"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions [week]",
	Short: "List stored upload sessions",
	Long: `Sessions lists the weeks with stored uploads, newest first. Given a week
id it shows the uploads of that week.

Examples:
  reconciler sessions
  reconciler sessions 2024-W32`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSessions,
}

func init() {
	rootCmd.AddCommand(sessionsCmd)
}

func runSessions(cmd *cobra.Command, args []string) error {
	store, err := config.CreateSessionStore(viper.GetViper())
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()

	if len(args) == 1 {
		sess, err := store.Get(args[0])
		if err != nil {
			return err
		}
		printSession(out, sess)
		return nil
	}

	weeks, err := store.List()
	if err != nil {
		return err
	}
	if len(weeks) == 0 {
		fmt.Fprintf(out, "No sessions stored. Current week is %s.\n", store.CurrentWeek())
		return nil
	}
	for _, w := range weeks {
		sess, err := store.Get(w)
		if err != nil {
			return err
		}
		status := "waiting"
		if sess.Complete() {
			status = "ready"
		}
		fmt.Fprintf(out, "%-10s %-8s claims: %-30s finance: %s\n",
			w, status, uploadName(sess.Claims), uploadName(sess.Finance))
	}
	return nil
}

func uploadName(record *session.UploadRecord) string {
	if record == nil {
		return "-"
	}
	return record.FileName
}

func printSession(out io.Writer, sess *session.Session) {
	fmt.Fprintf(out, "Week: %s\n", sess.Week)
	for _, role := range []session.Role{session.RoleClaims, session.RoleFinance} {
		record := sess.Upload(role)
		if record == nil {
			fmt.Fprintf(out, "  %-8s not uploaded\n", role.Title())
			continue
		}
		fmt.Fprintf(out, "  %-8s %s (sheet %q, schedule %q, amount %q, %d bytes, uploaded %s)\n",
			role.Title(), record.FileName, record.Sheet, record.ScheduleColumn, record.AmountColumn,
			record.Size, record.UploadedAt.Format("2006-01-02 15:04:05"))
	}
	if sess.Complete() {
		fmt.Fprintf(out, "Ready for reconciliation.\n")
	}
}
