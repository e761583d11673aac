package cmd

import (
	"fmt"

	"claims-reconciliation-service/internal/appeals"
	"claims-reconciliation-service/internal/workbook"

	"github.com/spf13/cobra"
)

var sheetsCmd = &cobra.Command{
	Use:   "sheets FILE...",
	Short: "List the sheets of workbooks",
	Long: `Sheets prints the worksheet names of each workbook. The sheet picked by
default as the Finance weekly report is marked with '*'.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSheets,
}

func init() {
	rootCmd.AddCommand(sheetsCmd)
}

func runSheets(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	for _, path := range args {
		wb, err := workbook.Open(path)
		if err != nil {
			return err
		}
		sheets := wb.Sheets()
		wb.Close()

		finance, _ := appeals.FindFinanceSheet(sheets)
		fmt.Fprintf(out, "%s:\n", path)
		for _, s := range sheets {
			marker := " "
			if s == finance {
				marker = "*"
			}
			fmt.Fprintf(out, "  %s %s\n", marker, s)
		}
	}
	return nil
}
