package config

import (
	"fmt"
	"os"
	"strings"

	"claims-reconciliation-service/internal/appeals"
	"claims-reconciliation-service/internal/claims"
	"claims-reconciliation-service/internal/dbload"
	"claims-reconciliation-service/internal/notify"
	"claims-reconciliation-service/internal/reconciler"
	"claims-reconciliation-service/internal/reporter"
	"claims-reconciliation-service/internal/session"
	"claims-reconciliation-service/pkg/errors"
	"claims-reconciliation-service/pkg/logger"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/spf13/afero"
	"github.com/spf13/viper"
)

// Configuration keys shared by the commands and the config file
const (
	KeyTolerance        = "tolerance"
	KeySessionDir       = "session.dir"
	KeyDateLayouts      = "claims.date_layouts"
	KeyColumns          = "columns"
	KeyAppealsAliases   = "appeals.column_aliases"
	KeyAppealsAmount    = "appeals.amount_column"
	KeyAppealsFinance   = "appeals.finance"
	KeyAppealsWorkers   = "appeals.workers"
	KeyReportMaxItems   = "report.max_list_items"
	KeyReportSortAmount = "report.sort_by_amount"
	KeyRecipients       = "notify.recipients"
	KeySignature        = "notify.signature"
	KeySMTP             = "notify.smtp"
	KeySMTPUsername     = "notify.smtp.username"
	KeySMTPPassword     = "notify.smtp.password"
	KeyDatabaseDSN      = "database.dsn"
	KeyLog              = "log"
)

// Environment variables read without the RECONCILER_ prefix. They normally
// come from secrets.env.
const (
	EnvSenderEmail = "OFFICE_SENDER_EMAIL"
	EnvAppPassword = "OUTLOOK_APP_PASSWORD"
	EnvDatabaseDSN = "DATABASE_DSN"
)

// DefaultEnvFile is loaded when present and --env-file is not given
const DefaultEnvFile = "secrets.env"

// DefaultSessionDir is where upload sessions are kept
const DefaultSessionDir = ".reconciler/sessions"

// SetDefaults registers defaults and the explicit secret env bindings on v
func SetDefaults(v *viper.Viper) {
	smtp := notify.DefaultSMTPConfig()

	v.SetDefault(KeyTolerance, "0.01")
	v.SetDefault(KeySessionDir, DefaultSessionDir)
	v.SetDefault(KeyAppealsAmount, appeals.DefaultAmountColumn)
	v.SetDefault(KeyAppealsWorkers, 4)
	v.SetDefault(KeyReportMaxItems, 50)
	v.SetDefault(KeySMTP+".host", smtp.Host)
	v.SetDefault(KeySMTP+".port", smtp.Port)
	v.SetDefault(KeySMTP+".timeout", smtp.Timeout)

	_ = v.BindEnv(KeySMTPUsername, EnvSenderEmail)
	_ = v.BindEnv(KeySMTPPassword, EnvAppPassword)
	_ = v.BindEnv(KeyDatabaseDSN, EnvDatabaseDSN)
}

// LoadEnvFile loads secrets from path into the process environment.
// Variables already set are kept. A missing file is an error only when
// required is true.
func LoadEnvFile(path string, required bool) error {
	if path == "" {
		path = DefaultEnvFile
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) && !required {
			return nil
		}
		return errors.FileError(errors.CodeFileNotFound, path, err)
	}
	if err := godotenv.Load(path); err != nil {
		return errors.ConfigurationError(errors.CodeInvalidConfig, "env-file", path, err)
	}
	return nil
}

// CreateLoggerConfig creates the logger configuration; verbose forces debug
func CreateLoggerConfig(v *viper.Viper, verbose bool) (*logger.Config, error) {
	config := logger.DefaultConfig()
	if verbose {
		config = logger.DebugConfig()
	}
	if v.IsSet(KeyLog) {
		if err := v.UnmarshalKey(KeyLog, config); err != nil {
			return nil, errors.ConfigurationError(errors.CodeInvalidConfig, KeyLog, nil, err)
		}
		if verbose {
			config.Level = logger.DebugLevel
		}
	}
	return config, nil
}

// Tolerance returns the configured matching tolerance
func Tolerance(v *viper.Viper) (decimal.Decimal, error) {
	raw := strings.TrimSpace(v.GetString(KeyTolerance))
	tolerance, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, errors.ConfigurationError(errors.CodeInvalidConfig, KeyTolerance, raw, err).
			WithSuggestion("use a decimal such as 0.01")
	}
	if tolerance.IsNegative() {
		return decimal.Zero, errors.ConfigurationError(errors.CodeInvalidConfig, KeyTolerance, raw,
			fmt.Errorf("tolerance cannot be negative"))
	}
	return tolerance, nil
}

// CreateReconcilerConfig creates the reconciliation service configuration
func CreateReconcilerConfig(v *viper.Viper) (*reconciler.Config, error) {
	tolerance, err := Tolerance(v)
	if err != nil {
		return nil, err
	}
	config := reconciler.DefaultConfig()
	config.Tolerance = tolerance
	return config, nil
}

// ColumnAliases lists the header spellings tried, in order, for each column
// the reconciliation and the claims sequencer read
type ColumnAliases struct {
	Schedule          []string `mapstructure:"schedule"`
	ClaimsAmount      []string `mapstructure:"claims_amount"`
	FinanceAmount     []string `mapstructure:"finance_amount"`
	ProviderCode      []string `mapstructure:"provider_code"`
	EncounterDate     []string `mapstructure:"encounter_date"`
	ClaimReceivedDate []string `mapstructure:"claim_received_date"`
	EnrolleeName      []string `mapstructure:"enrollee_name"`
	MemberNo          []string `mapstructure:"member_no"`
}

// DefaultColumnAliases returns the header spellings seen in the weekly reports
func DefaultColumnAliases() ColumnAliases {
	return ColumnAliases{
		Schedule:          []string{"SCH NO", "Claim Batch No/Sch No", "Schedule No", "Schedule Number", "SCH_NO"},
		ClaimsAmount:      []string{"HOD RECOMMD. AMOUNT", "HOD AMOUNT", "RECOMMENDED AMOUNT", "AMOUNT"},
		FinanceAmount:     []string{"Claims_Advised_Amount", "Advised_Amount", "Claim Amount", "AMOUNT"},
		ProviderCode:      []string{"PROVIDER CODE", "PROVIDER_CODE", "Provider Code", "Provider_Code", "ProviderCode"},
		EncounterDate:     []string{"ENCOUNTER DATE (DD/MM/YYYY)", "ENCOUNTER_DATE_DD_MM_YYYY", "ENCOUNTER_DATE", "Encounter Date", "Encounter_Date", "ENC_DATE"},
		ClaimReceivedDate: []string{"DATE CLAIM RECEIVED", "DATE_CLAIM_RECEIVED", "Date Claim Received", "Date_Claim_Received", "CLAIM_RECEIVED_DATE"},
		EnrolleeName:      []string{"ENROLLEE NAME", "ENROLLEE_NAME", "Enrollee Name", "Enrollee_Name", "EnrolleeName"},
		MemberNo:          []string{"MEMBER NO", "MEMBER_NO", "Member No", "Member_No", "MemberNo", "Member Number"},
	}
}

// CreateColumnAliases returns the default aliases with any list set under
// "columns" replacing the default list
func CreateColumnAliases(v *viper.Viper) (ColumnAliases, error) {
	aliases := DefaultColumnAliases()
	if !v.IsSet(KeyColumns) {
		return aliases, nil
	}
	var override ColumnAliases
	if err := v.UnmarshalKey(KeyColumns, &override); err != nil {
		return aliases, errors.ConfigurationError(errors.CodeInvalidConfig, KeyColumns, nil, err)
	}
	replace(&aliases.Schedule, override.Schedule)
	replace(&aliases.ClaimsAmount, override.ClaimsAmount)
	replace(&aliases.FinanceAmount, override.FinanceAmount)
	replace(&aliases.ProviderCode, override.ProviderCode)
	replace(&aliases.EncounterDate, override.EncounterDate)
	replace(&aliases.ClaimReceivedDate, override.ClaimReceivedDate)
	replace(&aliases.EnrolleeName, override.EnrolleeName)
	replace(&aliases.MemberNo, override.MemberNo)
	return aliases, nil
}

func replace(dst *[]string, src []string) {
	if len(src) > 0 {
		*dst = src
	}
}

// DateLayouts returns the layouts used to read claims dates; nil selects the
// package defaults
func DateLayouts(v *viper.Viper) []string {
	return v.GetStringSlice(KeyDateLayouts)
}

// CreateSequencer creates the claim number sequencer
func CreateSequencer(v *viper.Viper) *claims.Sequencer {
	return claims.NewSequencer(DateLayouts(v))
}

// DefaultAppealsAliases maps the payment summary headers onto the compiled
// template. Order matters: later aliases for the same column win.
func DefaultAppealsAliases() []appeals.ColumnAlias {
	return []appeals.ColumnAlias{
		{Source: "S/N", Canonical: "S_N"},
		{Source: "AMOUNT RECOMMENDED FOR PAYMENT (N)", Canonical: "AMOUNT_RECOMMENDED_FOR_PAYMENT_N"},
		{Source: "ENROLLEE NAME", Canonical: "HOSPITAL"},
		{Source: "PROVIDER NAME", Canonical: "HOSPITAL"},
		{Source: "HOSPITAL NAME", Canonical: "HOSPITAL"},
		{Source: "CLAIM TYPE", Canonical: "CLAIM_TYPE"},
		{Source: "BATCH NUMBER", Canonical: "BATCH_NUMBER"},
		{Source: "BATCH NO", Canonical: "BATCH_NUMBER"},
		{Source: "NUMBER OF CLAIMS", Canonical: "NUMBER_OF_CLAIMS"},
		{Source: "NO OF CLAIMS", Canonical: "NUMBER_OF_CLAIMS"},
		{Source: "ENCOUNTER MONTH", Canonical: "ENCOUNTER_MONTH"},
		{Source: "DATE OF RECEIPT", Canonical: "DATE_OF_RECEIPT"},
		{Source: "APPROVED PA VALUE (N)", Canonical: "APPROVED_PA_VALUE_N"},
		{Source: "VARIANCE", Canonical: "VARIANCE"},
		{Source: "VARIANCE1", Canonical: "VARIANCE1"},
		{Source: "NARRATION", Canonical: "NARRATION"},
		{Source: "NARRATIVE", Canonical: "NARRATION"},
	}
}

// CreateAppealsConfig creates the appeals compiler configuration
func CreateAppealsConfig(v *viper.Viper) (*appeals.Config, error) {
	config := &appeals.Config{
		ColumnAliases: DefaultAppealsAliases(),
		AmountColumn:  v.GetString(KeyAppealsAmount),
	}
	if v.IsSet(KeyAppealsAliases) {
		var aliases []appeals.ColumnAlias
		if err := v.UnmarshalKey(KeyAppealsAliases, &aliases); err != nil {
			return nil, errors.ConfigurationError(errors.CodeInvalidConfig, KeyAppealsAliases, nil, err)
		}
		config.ColumnAliases = aliases
	}
	if err := config.Validate(); err != nil {
		return nil, errors.ConfigurationError(errors.CodeInvalidConfig, "appeals", nil, err)
	}
	return config, nil
}

// CreateFinanceColumns returns the Finance columns read by the appeals
// comparison
func CreateFinanceColumns(v *viper.Viper) (appeals.FinanceColumns, error) {
	cols := appeals.DefaultFinanceColumns()
	if v.IsSet(KeyAppealsFinance) {
		if err := v.UnmarshalKey(KeyAppealsFinance, &cols); err != nil {
			return cols, errors.ConfigurationError(errors.CodeInvalidConfig, KeyAppealsFinance, nil, err)
		}
	}
	return cols, nil
}

// CreateReportConfig creates a report configuration for the specified output format
func CreateReportConfig(format string, v *viper.Viper) *reporter.ReportConfig {
	config := reporter.DefaultReportConfig()
	config.MaxListItems = v.GetInt(KeyReportMaxItems)
	config.SortByAmount = v.GetBool(KeyReportSortAmount)

	switch format {
	case "console":
		config.Format = reporter.FormatConsole
		config.IncludeMissing = true
		config.IncludeMismatches = true
		config.IncludeExtractionStats = true
	case "json":
		config.Format = reporter.FormatJSON
		config.IncludeMissing = true
		config.IncludeMismatches = true
		config.IncludeExtractionStats = true
		config.IncludeRows = true
	case "csv":
		config.Format = reporter.FormatCSV
		config.CSVHeaders = true
		config.CSVDelimiter = ','
		config.IncludeRows = true
		config.IncludeExtractionStats = false
	default:
		config.Format = reporter.OutputFormat(format)
	}

	return config
}

// CreateRecipients returns who receives each kind of message
func CreateRecipients(v *viper.Viper) (notify.Recipients, error) {
	var recipients notify.Recipients
	if v.IsSet(KeyRecipients) {
		if err := v.UnmarshalKey(KeyRecipients, &recipients); err != nil {
			return recipients, errors.ConfigurationError(errors.CodeInvalidConfig, KeyRecipients, nil, err)
		}
	}
	return recipients, nil
}

// CreateComposer creates the message composer
func CreateComposer(v *viper.Viper) (*notify.Composer, error) {
	recipients, err := CreateRecipients(v)
	if err != nil {
		return nil, err
	}
	return notify.NewComposer(recipients, v.GetString(KeySignature)), nil
}

// CreateSMTPConfig returns the SMTP settings. The username and password come
// from OFFICE_SENDER_EMAIL and OUTLOOK_APP_PASSWORD unless set in the config
// file.
func CreateSMTPConfig(v *viper.Viper) (notify.SMTPConfig, error) {
	config := notify.DefaultSMTPConfig()
	if err := v.UnmarshalKey(KeySMTP, &config); err != nil {
		return config, errors.ConfigurationError(errors.CodeInvalidConfig, KeySMTP, nil, err)
	}
	// UnmarshalKey does not see explicit env bindings of nested keys
	config.Username = v.GetString(KeySMTPUsername)
	config.Password = v.GetString(KeySMTPPassword)
	return config, nil
}

// CreateSender returns the SMTP sender, or a log-only sender for dry runs
func CreateSender(v *viper.Viper, dryRun bool) (notify.Sender, error) {
	if dryRun {
		return notify.LogSender{Logger: logger.WithComponent("notify")}, nil
	}
	config, err := CreateSMTPConfig(v)
	if err != nil {
		return nil, err
	}
	sender, err := notify.NewSMTPSender(config)
	if err != nil {
		return nil, err
	}
	return sender, nil
}

// CreateNotifier wires the composer and sender
func CreateNotifier(v *viper.Viper, dryRun bool) (*notify.Notifier, error) {
	composer, err := CreateComposer(v)
	if err != nil {
		return nil, err
	}
	sender, err := CreateSender(v, dryRun)
	if err != nil {
		return nil, err
	}
	return notify.NewNotifier(sender, composer), nil
}

// CreateSessionStore opens the upload session store on the local disk
func CreateSessionStore(v *viper.Viper) (*session.Store, error) {
	return session.NewStore(afero.NewOsFs(), v.GetString(KeySessionDir))
}

// DatabaseDSN returns the MySQL DSN or a configuration error when unset
func DatabaseDSN(v *viper.Viper) (string, error) {
	dsn := strings.TrimSpace(v.GetString(KeyDatabaseDSN))
	if dsn == "" {
		return "", errors.ConfigurationError(errors.CodeMissingConfig, EnvDatabaseDSN, nil, nil).
			WithSuggestion("set DATABASE_DSN in secrets.env or pass --dsn")
	}
	return dsn, nil
}

// TableSpec returns the fixed load specification for a target table name
func TableSpec(name string) (*dbload.TableSpec, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "claims", dbload.ClaimsTable:
		return dbload.ClaimsTableSpec(), nil
	case "appeals", dbload.AppealsTable:
		return dbload.AppealsTableSpec(), nil
	default:
		return nil, errors.ValidationError(errors.CodeInvalidData, "table", name,
			fmt.Errorf("table must be claims or appeals"))
	}
}

// ValidateConfig validates every configuration the commands build from v
func ValidateConfig(v *viper.Viper) error {
	if _, err := CreateReconcilerConfig(v); err != nil {
		return err
	}
	if _, err := CreateColumnAliases(v); err != nil {
		return err
	}
	if _, err := CreateAppealsConfig(v); err != nil {
		return err
	}
	if _, err := CreateFinanceColumns(v); err != nil {
		return err
	}
	if _, err := CreateRecipients(v); err != nil {
		return err
	}
	if v.GetInt(KeyReportMaxItems) < 0 {
		return errors.ConfigurationError(errors.CodeInvalidConfig, KeyReportMaxItems, v.GetInt(KeyReportMaxItems),
			fmt.Errorf("cannot be negative"))
	}
	return nil
}
