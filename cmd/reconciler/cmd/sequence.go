package cmd

import (
	"fmt"
	"io"
	"time"

	"claims-reconciliation-service/cmd/reconciler/config"
	"claims-reconciliation-service/internal/workbook"
	"claims-reconciliation-service/pkg/logger"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	sequenceFile   string
	sequenceSheet  string
	sequenceOutput string
)

// sequenceCmd represents the sequence command
var sequenceCmd = &cobra.Command{
	Use:   "sequence",
	Short: "Generate claim numbers for a Claims report",
	Long: `Sequence numbers the claims of each enrollee and derives the batch code and
claim numbers from the provider code, member number and claim dates. The
result is the Claims sheet with the generated columns appended.

Claims whose encounter date is after the date received are listed.

Examples:
  reconciler sequence --file claims.xlsx
  reconciler sequence --file claims.xlsx --sheet Sheet1 --output enhanced.xlsx`,

	PreRunE: func(cmd *cobra.Command, args []string) error {
		sequenceFile = viper.GetString("sequence.file")
		sequenceSheet = viper.GetString("sequence.sheet")
		sequenceOutput = viper.GetString("sequence.output")
		return validateFileExists(sequenceFile, "claims report")
	},
	RunE: runSequence,
}

func init() {
	rootCmd.AddCommand(sequenceCmd)

	sequenceCmd.Flags().StringVar(&sequenceFile, "file", "", "path to the Claims report (required)")
	sequenceCmd.Flags().StringVar(&sequenceSheet, "sheet", "", "sheet to read (default first sheet)")
	sequenceCmd.Flags().StringVarP(&sequenceOutput, "output", "o", ".", "output workbook file or directory")
	sequenceCmd.MarkFlagRequired("file")

	viper.BindPFlag("sequence.file", sequenceCmd.Flags().Lookup("file"))
	viper.BindPFlag("sequence.sheet", sequenceCmd.Flags().Lookup("sheet"))
	viper.BindPFlag("sequence.output", sequenceCmd.Flags().Lookup("output"))
}

func runSequence(cmd *cobra.Command, args []string) error {
	v := viper.GetViper()
	log := logger.WithComponent("cli").WithField("command", "sequence")

	table, err := workbook.ReadTable(sequenceFile, workbook.ReadOptions{Sheet: sequenceSheet})
	if err != nil {
		return err
	}
	aliases, err := config.CreateColumnAliases(v)
	if err != nil {
		return err
	}

	cols := sequenceColumns(table, aliases)
	log.WithFields(logger.Fields{
		"provider_code":  cols.ProviderCode,
		"encounter_date": cols.EncounterDate,
		"received_date":  cols.ClaimReceivedDate,
		"enrollee_name":  cols.EnrolleeName,
		"member_no":      cols.MemberNo,
	}).Debug("Resolved sequence columns")

	rows, err := config.CreateSequencer(v).Sequence(table, cols)
	if err != nil {
		return err
	}

	if sequenceOutput == "" {
		sequenceOutput = "."
	}
	path := exportPath(sequenceOutput, workbook.EnhancedClaimsFilename(time.Now()))
	if err := writeFile(path, func(w io.Writer) error {
		return workbook.WriteEnhancedClaims(w, table, rows)
	}); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Generated claim numbers for %d rows: %s\n", len(rows), path)

	schedule := optionalColumn(table, aliases.Schedule)
	groups, err := checkClaimDates(table, aliases, schedule, config.DateLayouts(v))
	if err != nil {
		return err
	}
	if len(groups) > 0 {
		fmt.Fprintf(out, "\nClaims with encounter date after date received:\n")
		for _, g := range groups {
			fmt.Fprintf(out, "  %-12s encounter %s, received %s (%d claims)\n",
				g.ScheduleNumber, g.EncounterDate.Format("02/01/2006"), g.ClaimReceivedDate.Format("02/01/2006"), g.Count)
		}
	}
	return nil
}
