// Package errors defines the categorized error type used across the service.
//
// Every error that reaches the CLI carries a category (which selects the
// process exit code and the help text shown to the operator), a stable code,
// a human message, an optional suggestion, and free-form context. Stack traces
// are captured through github.com/pkg/errors at construction time.
package errors

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// ErrorCategory groups errors by the layer that produced them
type ErrorCategory string

const (
	CategoryFile           ErrorCategory = "file"
	CategoryParse          ErrorCategory = "parse"
	CategoryValidation     ErrorCategory = "validation"
	CategoryConfiguration  ErrorCategory = "configuration"
	CategoryReconciliation ErrorCategory = "reconciliation"
	CategoryStorage        ErrorCategory = "storage"
	CategoryNotification   ErrorCategory = "notification"
	CategoryDatabase       ErrorCategory = "database"
	CategoryInternal       ErrorCategory = "internal"
)

// ErrorCode identifies a specific failure within a category
type ErrorCode string

const (
	// File errors
	CodeFileNotFound   ErrorCode = "file_not_found"
	CodeFilePermission ErrorCode = "file_permission"
	CodeFileCorrupted  ErrorCode = "file_corrupted"
	CodeUnsupportedExt ErrorCode = "unsupported_extension"

	// Parse errors
	CodeMissingColumn ErrorCode = "missing_column"
	CodeMissingSheet  ErrorCode = "missing_sheet"
	CodeInvalidData   ErrorCode = "invalid_data"

	// Validation errors
	CodeInvalidAmount ErrorCode = "invalid_amount"
	CodeInvalidDate   ErrorCode = "invalid_date"
	CodeMissingField  ErrorCode = "missing_field"

	// Configuration errors
	CodeInvalidConfig ErrorCode = "invalid_config"
	CodeMissingConfig ErrorCode = "missing_config"

	// Reconciliation errors
	CodeEmptyInput      ErrorCode = "empty_input"
	CodeProcessingError ErrorCode = "processing_error"

	// Storage errors
	CodeSessionNotFound ErrorCode = "session_not_found"
	CodeStorageIO       ErrorCode = "storage_io"

	// Notification errors
	CodeMissingCredentials ErrorCode = "missing_credentials"
	CodeDeliveryFailed     ErrorCode = "delivery_failed"

	// Database errors
	CodeConnectionFailed ErrorCode = "connection_failed"
	CodeStatementFailed  ErrorCode = "statement_failed"

	// Internal errors
	CodeUnexpectedError ErrorCode = "unexpected_error"
)

// AppError is the base error type for all application errors
type AppError struct {
	Category   ErrorCategory     `json:"category"`
	Code       ErrorCode         `json:"code"`
	Message    string            `json:"message"`
	Suggestion string            `json:"suggestion,omitempty"`
	Context    Context           `json:"context,omitempty"`
	Cause      error             `json:"-"`
	StackTrace errors.StackTrace `json:"-"`
}

// Context provides additional information about the error
type Context map[string]interface{}

// Error implements the error interface
func (e *AppError) Error() string {
	msg := e.Message
	if e.Cause != nil {
		msg = fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	if e.Suggestion != "" {
		return fmt.Sprintf("%s (suggestion: %s)", msg, e.Suggestion)
	}
	return msg
}

// Unwrap returns the underlying cause error
func (e *AppError) Unwrap() error {
	return e.Cause
}

// GetExitCode returns the process exit code for the error's category
func (e *AppError) GetExitCode() int {
	switch e.Category {
	case CategoryFile:
		return 2
	case CategoryParse, CategoryValidation:
		return 3
	case CategoryConfiguration:
		return 4
	case CategoryReconciliation, CategoryInternal:
		return 5
	case CategoryStorage, CategoryDatabase:
		return 6
	case CategoryNotification:
		return 7
	default:
		return 1
	}
}

// WithContext adds context information to the error
func (e *AppError) WithContext(key string, value interface{}) *AppError {
	if e.Context == nil {
		e.Context = make(Context)
	}
	e.Context[key] = value
	return e
}

// WithSuggestion adds a suggestion for fixing the error
func (e *AppError) WithSuggestion(suggestion string) *AppError {
	e.Suggestion = suggestion
	return e
}

// New creates a new AppError
func New(category ErrorCategory, code ErrorCode, message string) *AppError {
	return &AppError{
		Category:   category,
		Code:       code,
		Message:    message,
		StackTrace: errors.New("").(stackTracer).StackTrace(),
	}
}

// Wrap wraps an existing error with AppError context
func Wrap(err error, category ErrorCategory, code ErrorCode, message string) *AppError {
	if err == nil {
		return nil
	}

	return &AppError{
		Category:   category,
		Code:       code,
		Message:    message,
		Cause:      err,
		StackTrace: errors.WithStack(err).(stackTracer).StackTrace(),
	}
}

type stackTracer interface {
	StackTrace() errors.StackTrace
}

func newOrWrap(err error, category ErrorCategory, code ErrorCode, message string) *AppError {
	if err != nil {
		return Wrap(err, category, code, message)
	}
	return New(category, code, message)
}

// FileError creates a file-related error
func FileError(code ErrorCode, path string, err error) *AppError {
	var message, suggestion string

	switch code {
	case CodeFileNotFound:
		message = fmt.Sprintf("file not found: %s", path)
		suggestion = "check if the file path is correct and the file exists"
	case CodeFilePermission:
		message = fmt.Sprintf("permission denied accessing file: %s", path)
		suggestion = "check file permissions and ensure you have read access"
	case CodeFileCorrupted:
		message = fmt.Sprintf("file could not be read as a workbook: %s", path)
		suggestion = "open the file in a spreadsheet application and save it again as .xlsx"
	case CodeUnsupportedExt:
		message = fmt.Sprintf("unsupported file type: %s", path)
		suggestion = "use an .xlsx, .xlsm or .csv file"
	default:
		message = fmt.Sprintf("file error: %s", path)
		suggestion = "check the file and try again"
	}

	return newOrWrap(err, CategoryFile, code, message).
		WithSuggestion(suggestion).
		WithContext("file_path", path)
}

// ColumnNotFound reports a column name that is not part of a table's header
func ColumnNotFound(column string, available []string) *AppError {
	return New(CategoryParse, CodeMissingColumn, fmt.Sprintf("column '%s' not found", column)).
		WithSuggestion("choose one of the columns present in the sheet header").
		WithContext("column", column).
		WithContext("available", strings.Join(available, ", "))
}

// SheetNotFound reports a missing worksheet
func SheetNotFound(path, sheet string) *AppError {
	return New(CategoryParse, CodeMissingSheet, fmt.Sprintf("sheet '%s' not found in %s", sheet, path)).
		WithSuggestion("run 'reconciler sheets <file>' and pick one of the listed sheets").
		WithContext("file_path", path).
		WithContext("sheet", sheet)
}

// ParseError creates a parsing-related error
func ParseError(code ErrorCode, file string, row int, column, value string, err error) *AppError {
	var message string
	switch code {
	case CodeInvalidData:
		message = fmt.Sprintf("invalid data in %s at row %d, column '%s': '%s'", file, row, column, value)
	default:
		message = fmt.Sprintf("parse error in %s at row %d", file, row)
	}

	return newOrWrap(err, CategoryParse, code, message).
		WithSuggestion("check the sheet layout and header row").
		WithContext("file", file).
		WithContext("row", row).
		WithContext("column", column)
}

// ValidationError creates a validation-related error
func ValidationError(code ErrorCode, field string, value interface{}, err error) *AppError {
	var message, suggestion string

	switch code {
	case CodeInvalidAmount:
		message = fmt.Sprintf("invalid amount in field '%s': %v", field, value)
		suggestion = "amounts must be plain numbers, thousands separators are allowed"
	case CodeInvalidDate:
		message = fmt.Sprintf("invalid date in field '%s': %v", field, value)
		suggestion = "use DD/MM/YYYY or YYYY-MM-DD"
	case CodeMissingField:
		message = fmt.Sprintf("required field '%s' is missing or empty", field)
		suggestion = "provide a value for this required field"
	default:
		message = fmt.Sprintf("validation error in field '%s': %v", field, value)
		suggestion = "check the field value and format"
	}

	return newOrWrap(err, CategoryValidation, code, message).
		WithSuggestion(suggestion).
		WithContext("field", field).
		WithContext("value", value)
}

// ConfigurationError creates a configuration-related error
func ConfigurationError(code ErrorCode, setting string, value interface{}, err error) *AppError {
	var message, suggestion string

	switch code {
	case CodeInvalidConfig:
		message = fmt.Sprintf("invalid configuration for '%s': %v", setting, value)
		suggestion = "check the flag or config file value"
	case CodeMissingConfig:
		message = fmt.Sprintf("missing required configuration: %s", setting)
		suggestion = "set it in the config file, secrets.env or as a RECONCILER_ environment variable"
	default:
		message = fmt.Sprintf("configuration error: %s", setting)
		suggestion = "check your configuration and try again"
	}

	return newOrWrap(err, CategoryConfiguration, code, message).
		WithSuggestion(suggestion).
		WithContext("setting", setting).
		WithContext("value", value)
}

// ReconciliationError creates a reconciliation-related error
func ReconciliationError(code ErrorCode, operation string, err error) *AppError {
	var message string
	switch code {
	case CodeEmptyInput:
		message = fmt.Sprintf("no usable rows during %s", operation)
	default:
		message = fmt.Sprintf("reconciliation error during %s", operation)
	}

	return newOrWrap(err, CategoryReconciliation, code, message).
		WithSuggestion("review the selected schedule and amount columns").
		WithContext("operation", operation)
}

// StorageError creates a session store error
func StorageError(code ErrorCode, key string, err error) *AppError {
	var message string
	switch code {
	case CodeSessionNotFound:
		message = fmt.Sprintf("no uploads stored for %s", key)
	default:
		message = fmt.Sprintf("session store failure for %s", key)
	}

	return newOrWrap(err, CategoryStorage, code, message).
		WithSuggestion("run 'reconciler sessions' to list the stored weeks").
		WithContext("key", key)
}

// NotificationError creates a notification error
func NotificationError(code ErrorCode, target string, err error) *AppError {
	var message, suggestion string
	switch code {
	case CodeMissingCredentials:
		message = "email credentials are not configured"
		suggestion = "set OFFICE_SENDER_EMAIL and OUTLOOK_APP_PASSWORD in secrets.env"
	default:
		message = fmt.Sprintf("failed to deliver notification via %s", target)
		suggestion = "check SMTP connectivity and credentials"
	}

	return newOrWrap(err, CategoryNotification, code, message).
		WithSuggestion(suggestion).
		WithContext("target", target)
}

// DatabaseError creates a database error
func DatabaseError(code ErrorCode, table string, err error) *AppError {
	var message string
	switch code {
	case CodeConnectionFailed:
		message = "database connection failed"
	default:
		message = fmt.Sprintf("database statement failed on %s", table)
	}

	return newOrWrap(err, CategoryDatabase, code, message).
		WithSuggestion("check DATABASE_DSN and that the server is reachable").
		WithContext("table", table)
}

// InternalError creates an internal error
func InternalError(operation string, err error) *AppError {
	return newOrWrap(err, CategoryInternal, CodeUnexpectedError, fmt.Sprintf("unexpected error during %s", operation)).
		WithSuggestion("this is likely a bug, please report it with the error details").
		WithContext("operation", operation)
}

// AsAppError extracts an AppError from an error chain
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// Is reports whether any error in err's chain matches target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// IsCode reports whether err carries the given code
func IsCode(err error, code ErrorCode) bool {
	appErr, ok := AsAppError(err)
	return ok && appErr.Code == code
}

// WrapIfNeeded wraps an error if it's not already an AppError
func WrapIfNeeded(err error, category ErrorCategory, code ErrorCode, message string) *AppError {
	if err == nil {
		return nil
	}
	if appErr, ok := AsAppError(err); ok {
		return appErr
	}
	return Wrap(err, category, code, message)
}
