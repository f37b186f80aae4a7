package errors

import (
	"fmt"
	"sort"
	"strings"

	"github.com/pkg/errors"
)

// ErrorCategory groups errors by the layer that produced them
type ErrorCategory string

const (
	CategoryFile          ErrorCategory = "file"
	CategoryParse         ErrorCategory = "parse"
	CategoryValidation    ErrorCategory = "validation"
	CategoryConfiguration ErrorCategory = "configuration"
	CategoryComputation   ErrorCategory = "computation"
	CategoryInternal      ErrorCategory = "internal"
)

// ErrorCode identifies a specific failure within a category
type ErrorCode string

const (
	// File errors
	CodeFileNotFound   ErrorCode = "file_not_found"
	CodeFilePermission ErrorCode = "file_permission"
	CodeFileUnreadable ErrorCode = "file_unreadable"
	CodeDirectoryError ErrorCode = "directory_error"

	// Parse errors
	CodeEmptyInput    ErrorCode = "empty_input"
	CodeEncodingError ErrorCode = "encoding_error"
	CodeNoRecords     ErrorCode = "no_records"

	// Validation errors
	CodeInvalidDate  ErrorCode = "invalid_date"
	CodeInvalidTime  ErrorCode = "invalid_time"
	CodeMissingField ErrorCode = "missing_field"
	CodeOutOfRange   ErrorCode = "out_of_range"

	// Configuration errors
	CodeInvalidConfig  ErrorCode = "invalid_config"
	CodeMissingConfig  ErrorCode = "missing_config"
	CodeConfigConflict ErrorCode = "config_conflict"

	// Computation errors
	CodeNothingToCompute ErrorCode = "nothing_to_compute"
	CodeUnknownEmployee  ErrorCode = "unknown_employee"
	CodeExportFailed     ErrorCode = "export_failed"

	// Internal errors
	CodeUnexpectedError ErrorCode = "unexpected_error"
)

// AppError is the categorized error type returned across package boundaries
type AppError struct {
	Category   ErrorCategory     `json:"category"`
	Code       ErrorCode         `json:"code"`
	Message    string            `json:"message"`
	Suggestion string            `json:"suggestion,omitempty"`
	Context    Context           `json:"context,omitempty"`
	Cause      error             `json:"-"`
	StackTrace errors.StackTrace `json:"-"`
}

// Context carries structured details about an error
type Context map[string]interface{}

func (e *AppError) Error() string {
	if e.Suggestion != "" {
		return fmt.Sprintf("%s (suggestion: %s)", e.Message, e.Suggestion)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// GetExitCode maps the error category to a process exit code
func (e *AppError) GetExitCode() int {
	switch e.Category {
	case CategoryFile:
		return 2
	case CategoryParse, CategoryValidation:
		return 3
	case CategoryConfiguration:
		return 4
	case CategoryComputation, CategoryInternal:
		return 5
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

// WithSuggestion sets a hint for fixing the error
func (e *AppError) WithSuggestion(suggestion string) *AppError {
	e.Suggestion = suggestion
	return e
}

type stackTracer interface {
	StackTrace() errors.StackTrace
}

// New creates an AppError with a stack trace captured at the call site
func New(category ErrorCategory, code ErrorCode, message string) *AppError {
	return &AppError{
		Category:   category,
		Code:       code,
		Message:    message,
		StackTrace: errors.New(message).(stackTracer).StackTrace(),
	}
}

// Wrap wraps err with category and code. Returns nil for a nil err.
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

func build(category ErrorCategory, code ErrorCode, message string, err error) *AppError {
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
		suggestion = "check that the AFD export path is correct"
	case CodeFilePermission:
		message = fmt.Sprintf("permission denied accessing file: %s", path)
		suggestion = "check file permissions and ensure you have read access"
	case CodeDirectoryError:
		message = fmt.Sprintf("directory error: %s", path)
		suggestion = "ensure the directory exists and is writable"
	default:
		message = fmt.Sprintf("cannot read file: %s", path)
		suggestion = "check the file and try again"
	}

	return build(CategoryFile, code, message, err).
		WithSuggestion(suggestion).
		WithContext("file_path", path)
}

// ParseError creates an error for input that yields nothing usable
func ParseError(code ErrorCode, source string, err error) *AppError {
	var message, suggestion string

	switch code {
	case CodeEmptyInput:
		message = fmt.Sprintf("input is empty: %s", source)
		suggestion = "export the AFD file again from the time clock"
	case CodeEncodingError:
		message = fmt.Sprintf("cannot decode input: %s", source)
		suggestion = "save the file as UTF-8 or ISO-8859-1"
	case CodeNoRecords:
		message = fmt.Sprintf("no identity or punch records found in %s", source)
		suggestion = "verify that the file is an AFD export"
	default:
		message = fmt.Sprintf("parse error in %s", source)
		suggestion = "check the file format"
	}

	return build(CategoryParse, code, message, err).
		WithSuggestion(suggestion).
		WithContext("source", source)
}

// ValidationError creates a validation-related error
func ValidationError(code ErrorCode, field string, value interface{}, err error) *AppError {
	var message, suggestion string

	switch code {
	case CodeInvalidDate:
		message = fmt.Sprintf("invalid date in field '%s': %v", field, value)
		suggestion = "use the date format YYYY-MM-DD"
	case CodeInvalidTime:
		message = fmt.Sprintf("invalid time in field '%s': %v", field, value)
		suggestion = "use the time format HH:MM between 00:00 and 23:59"
	case CodeMissingField:
		message = fmt.Sprintf("required field '%s' is missing or empty", field)
		suggestion = "provide a value for this required field"
	case CodeOutOfRange:
		message = fmt.Sprintf("value out of range in field '%s': %v", field, value)
		suggestion = "ensure the value is within the acceptable range"
	default:
		message = fmt.Sprintf("validation error in field '%s': %v", field, value)
		suggestion = "check the field value and format"
	}

	return build(CategoryValidation, code, message, err).
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
		suggestion = "check the schedule settings in the config file"
	case CodeMissingConfig:
		message = fmt.Sprintf("missing required configuration: %s", setting)
		suggestion = "provide this setting with a flag or in the config file"
	case CodeConfigConflict:
		message = fmt.Sprintf("configuration conflict with setting '%s': %v", setting, value)
		suggestion = "resolve the conflicting settings"
	default:
		message = fmt.Sprintf("configuration error: %s", setting)
		suggestion = "check your configuration and try again"
	}

	return build(CategoryConfiguration, code, message, err).
		WithSuggestion(suggestion).
		WithContext("setting", setting).
		WithContext("value", value)
}

// ComputationError creates an error raised while building timesheets or reports
func ComputationError(code ErrorCode, operation string, err error) *AppError {
	var message, suggestion string

	switch code {
	case CodeNothingToCompute:
		message = fmt.Sprintf("nothing to compute during %s", operation)
		suggestion = "load an AFD file and choose a valid date range"
	case CodeUnknownEmployee:
		message = fmt.Sprintf("unknown employee during %s", operation)
		suggestion = "list the parsed employees with the employees command"
	case CodeExportFailed:
		message = fmt.Sprintf("export failed during %s", operation)
		suggestion = "check the output path and format"
	default:
		message = fmt.Sprintf("computation error during %s", operation)
		suggestion = "review the input data and configuration"
	}

	return build(CategoryComputation, code, message, err).
		WithSuggestion(suggestion).
		WithContext("operation", operation)
}

// InternalError creates an internal error
func InternalError(code ErrorCode, operation string, err error) *AppError {
	return build(CategoryInternal, code, fmt.Sprintf("unexpected error during %s", operation), err).
		WithSuggestion("this is likely a bug, please report it with the error details").
		WithContext("operation", operation)
}

// ErrorSummary aggregates several AppErrors
type ErrorSummary struct {
	Total      int                   `json:"total"`
	ByCategory map[ErrorCategory]int `json:"by_category"`
	ByCode     map[ErrorCode]int     `json:"by_code"`
	Errors     []*AppError           `json:"errors"`
}

// NewErrorSummary creates a summary over errs
func NewErrorSummary(errs []*AppError) *ErrorSummary {
	summary := &ErrorSummary{
		Total:      len(errs),
		ByCategory: make(map[ErrorCategory]int),
		ByCode:     make(map[ErrorCode]int),
		Errors:     errs,
	}

	for _, err := range errs {
		summary.ByCategory[err.Category]++
		summary.ByCode[err.Code]++
	}

	return summary
}

func (es *ErrorSummary) Error() string {
	switch es.Total {
	case 0:
		return "no errors"
	case 1:
		return es.Errors[0].Error()
	}

	categories := make([]string, 0, len(es.ByCategory))
	for category, count := range es.ByCategory {
		categories = append(categories, fmt.Sprintf("%s: %d", category, count))
	}
	sort.Strings(categories)

	return fmt.Sprintf("%d errors occurred (%s)", es.Total, strings.Join(categories, ", "))
}

// HasCategory reports whether any error has the given category
func (es *ErrorSummary) HasCategory(category ErrorCategory) bool {
	return es.ByCategory[category] > 0
}

// GetExitCode returns the highest exit code among the errors
func (es *ErrorSummary) GetExitCode() int {
	if es.Total == 0 {
		return 0
	}

	maxCode := 1
	for _, err := range es.Errors {
		if code := err.GetExitCode(); code > maxCode {
			maxCode = code
		}
	}
	return maxCode
}

// AsAppError extracts an AppError from an error chain
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// IsCode reports whether err carries an AppError with the given code
func IsCode(err error, code ErrorCode) bool {
	appErr, ok := AsAppError(err)
	return ok && appErr.Code == code
}

// WrapIfNeeded wraps err unless it already is an AppError
func WrapIfNeeded(err error, category ErrorCategory, code ErrorCode, message string) *AppError {
	if err == nil {
		return nil
	}

	if appErr, ok := AsAppError(err); ok {
		return appErr
	}

	return Wrap(err, category, code, message)
}

// Is reports whether any error in err's chain matches target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
