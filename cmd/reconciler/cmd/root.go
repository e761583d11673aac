package cmd

import (
	"context"
	"fmt"
	"os"

	"claims-reconciliation-service/cmd/reconciler/config"
	"claims-reconciliation-service/pkg/logger"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile string
	envFile string
	verbose bool
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "reconciler",
	Short: "Claims and Finance schedule reconciliation tool",
	Long: `Reconciler compares the weekly Claims and Finance schedule reports,
flags schedules missing on either side and amounts that disagree, and emails
the departments about what it found. It also compiles appeals workbooks,
generates claim numbers, and loads spreadsheets into the claims database.

Examples:
  reconciler upload --role claims --file claims_week32.xlsx
  reconciler reconcile --claims-file claims.xlsx --finance-file finance.xlsx
  reconciler reconcile --week 2024-W32 --notify
  reconciler appeals --finance-file finance.xlsx "Schedule 101.xlsx" "Schedule 102.xlsx"
  reconciler --version`,
	Version:       getVersionString(),
	SilenceErrors: true,
	SilenceUsage:  true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (optional)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", "", "secrets file with SMTP and database credentials (default secrets.env)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().String("tolerance", "0.01", "largest amount difference treated as matching")

	// Bind flags to viper
	viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
	viper.BindPFlag(config.KeyTolerance, rootCmd.PersistentFlags().Lookup("tolerance"))
}

// initConfig loads secrets, reads in config file and ENV variables.
func initConfig() {
	// Secrets go into the environment before viper binds to it
	if err := config.LoadEnvFile(envFile, envFile != ""); err != nil {
		fmt.Fprintf(os.Stderr, "Error loading env file: %s\n", err)
		os.Exit(1)
	}

	if cfgFile != "" {
		// Use config file from the flag.
		viper.SetConfigFile(cfgFile)

		// If a config file is specified, read it in.
		if err := viper.ReadInConfig(); err != nil {
			fmt.Fprintf(os.Stderr, "Error reading config file: %s\n", err)
			os.Exit(1)
		}
	}

	// Read environment variables that match
	viper.SetEnvPrefix("RECONCILER")
	viper.AutomaticEnv()
	config.SetDefaults(viper.GetViper())

	if err := setupLogger(viper.GetBool("verbose")); err != nil {
		fmt.Fprintf(os.Stderr, "Error configuring logger: %s\n", err)
		os.Exit(1)
	}

	if viper.ConfigFileUsed() != "" {
		logger.GetGlobalLogger().WithField("file", viper.ConfigFileUsed()).Debug("Using config file")
	}
}

func setupLogger(verbose bool) error {
	logConfig, err := config.CreateLoggerConfig(viper.GetViper(), verbose)
	if err != nil {
		return err
	}
	log, err := logger.NewLogger(logConfig)
	if err != nil {
		return err
	}
	logger.SetGlobalLogger(log)
	return nil
}

// commandContext returns the context cobra carries, or Background when the
// command runs outside Execute
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// SetVersionInfo sets the version information for the CLI
func SetVersionInfo(v, c, d string) {
	version = v
	commit = c
	date = d
	rootCmd.Version = getVersionString()
}

func getVersionString() string {
	if version == "dev" {
		return fmt.Sprintf("%s (commit %s, built %s)", version, commit, date)
	}
	return version
}
