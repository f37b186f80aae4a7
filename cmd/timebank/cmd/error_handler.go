package cmd

import (
	"fmt"
	"io"
	iofs "io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"syscall"

	"afd-timebank/pkg/errors"
	"afd-timebank/pkg/logger"

	"github.com/spf13/afero"
	"github.com/spf13/viper"
	"go.uber.org/multierr"
)

// CLIErrorHandler provides user-friendly error handling for CLI operations
type CLIErrorHandler struct {
	logger  logger.Logger
	verbose bool
	out     io.Writer
}

// NewCLIErrorHandler creates a new CLI error handler writing to stderr
func NewCLIErrorHandler() *CLIErrorHandler {
	return &CLIErrorHandler{
		logger:  logger.GetGlobalLogger().WithComponent("cli"),
		verbose: viper.GetBool("verbose"),
		out:     os.Stderr,
	}
}

// HandleError prints err for a person and returns the exit code
func (h *CLIErrorHandler) HandleError(err error) int {
	if err == nil {
		return 0
	}

	h.logger.WithError(err).Debug("Command failed")

	var summary *errors.ErrorSummary
	if errors.As(err, &summary) {
		return h.handleErrorSummary(summary)
	}

	if appErr, ok := errors.AsAppError(err); ok {
		return h.handleAppError(appErr)
	}

	return h.handleGenericError(err)
}

// handleAppError prints an AppError with its context and category help
func (h *CLIErrorHandler) handleAppError(err *errors.AppError) int {
	fmt.Fprintf(h.out, "Error: %s\n", err.Message)

	if len(err.Context) > 0 {
		keys := make([]string, 0, len(err.Context))
		for key := range err.Context {
			keys = append(keys, key)
		}
		sort.Strings(keys)

		fmt.Fprintf(h.out, "\nContext:\n")
		for _, key := range keys {
			fmt.Fprintf(h.out, "  %s: %v\n", key, err.Context[key])
		}
	}

	// Schedule validation reports every bad field at once
	if causes := multierr.Errors(err.Cause); len(causes) > 1 {
		fmt.Fprintf(h.out, "\n%s\n", FormatValidationErrors(causes))
	}

	if err.Suggestion != "" {
		fmt.Fprintf(h.out, "\nSuggestion: %s\n", err.Suggestion)
	}

	fmt.Fprintf(h.out, "\n%s\n", h.getCategoryHelp(err.Category))

	if h.verbose && err.Cause != nil {
		fmt.Fprintf(h.out, "\nUnderlying error: %v\n", err.Cause)
	}

	return err.GetExitCode()
}

func (h *CLIErrorHandler) handleErrorSummary(summary *errors.ErrorSummary) int {
	errs := make([]error, len(summary.Errors))
	for i, err := range summary.Errors {
		errs[i] = err
	}
	fmt.Fprintf(h.out, "%s\n", FormatValidationErrors(errs))

	if summary.Total > 0 {
		fmt.Fprintf(h.out, "\n%s\n", h.getCategoryHelp(summary.Errors[0].Category))
	}
	return summary.GetExitCode()
}

// handleGenericError handles errors that carry no category
func (h *CLIErrorHandler) handleGenericError(err error) int {
	var pathErr *iofs.PathError
	if errors.As(err, &pathErr) {
		fmt.Fprint(h.out, FormatFileError(pathErr.Path, pathErr.Err))
		return 2
	}

	if h.isPermissionError(err) {
		fmt.Fprintf(h.out, "Error: Permission denied\n")
		fmt.Fprintf(h.out, "Suggestion: Check file permissions and ensure you have read access\n")
		return 2
	}

	if h.isDiskFullError(err) {
		fmt.Fprintf(h.out, "Error: Insufficient disk space\n")
		fmt.Fprintf(h.out, "Suggestion: Free up disk space and try again\n")
		return 2
	}

	fmt.Fprintf(h.out, "Error: %v\n", err)
	fmt.Fprintf(h.out, "\n%s\n", h.getCategoryHelp(""))

	return 1
}

// getCategoryHelp returns category-specific help text
func (h *CLIErrorHandler) getCategoryHelp(category errors.ErrorCategory) string {
	switch category {
	case errors.CategoryFile:
		return `File error help:
• Check if the AFD file exists and is readable
• Verify the file path is correct (use absolute paths if needed)
• Ensure you have proper permissions to access the file`

	case errors.CategoryParse:
		return `Parse error help:
• Export the AFD file again from the time clock
• Identity records have the type digit 5 and punch records the type digit 3
• Files are read as UTF-8, falling back to ISO-8859-1
• Use 'timebank sample' to see a well-formed export`

	case errors.CategoryValidation:
		return `Validation error help:
• Dates use YYYY-MM-DD or DD/MM/YYYY
• Times of day use HH:MM between 00:00 and 23:59
• Check that all required fields have values`

	case errors.CategoryConfiguration:
		return `Configuration error help:
• Check your command-line flags and arguments
• Verify configuration file syntax if using --config
• Use 'timebank report --help' to see all available options
• Try running with default settings first`

	case errors.CategoryComputation:
		return `Computation error help:
• Choose a start date on or before the end date, at most 730 days apart
• Use 'timebank employees' to list the identifiers found in the file
• Run with --verbose for more detail`

	default:
		return `For more help:
• Use 'timebank --help' for general help
• Use 'timebank <command> --help' for command-specific help`
	}
}

// Error detection helpers

func notExist(err error) bool {
	return errors.Is(err, iofs.ErrNotExist)
}

func (h *CLIErrorHandler) isPermissionError(err error) bool {
	return errors.Is(err, iofs.ErrPermission) ||
		strings.Contains(err.Error(), "permission denied") ||
		strings.Contains(err.Error(), "access denied")
}

func (h *CLIErrorHandler) isDiskFullError(err error) bool {
	if errors.Is(err, syscall.ENOSPC) {
		return true
	}
	errStr := strings.ToLower(err.Error())
	return strings.Contains(errStr, "no space left") ||
		strings.Contains(errStr, "disk full") ||
		strings.Contains(errStr, "device full")
}

// FormatValidationErrors formats validation errors in a user-friendly way
func FormatValidationErrors(errs []error) string {
	if len(errs) == 0 {
		return ""
	}

	if len(errs) == 1 {
		return fmt.Sprintf("Validation error: %v", errs[0])
	}

	var lines []string
	lines = append(lines, fmt.Sprintf("Found %d validation errors:", len(errs)))

	for i, err := range errs {
		lines = append(lines, fmt.Sprintf("  %d. %v", i+1, err))
		// Limit the number of errors shown
		if i >= 9 && len(errs) > 10 {
			lines = append(lines, fmt.Sprintf("  ... and %d more errors", len(errs)-10))
			break
		}
	}

	return strings.Join(lines, "\n")
}

// FormatFileError formats file-related errors with helpful information.
// When the file is missing, similarly named files of the same directory are
// listed.
func FormatFileError(filePath string, err error) string {
	baseName := filepath.Base(filePath)
	dir := filepath.Dir(filePath)

	var message strings.Builder
	message.WriteString(fmt.Sprintf("Error with file '%s':\n", baseName))
	message.WriteString(fmt.Sprintf("  Path: %s\n", filePath))
	message.WriteString(fmt.Sprintf("  Error: %v\n", err))

	switch {
	case notExist(err):
		message.WriteString("  Suggestion: Check if the file exists in the specified location\n")

		prefix := strings.ToLower(baseName[:min(len(baseName), 3)])
		if entries, dirErr := afero.ReadDir(fs, dir); dirErr == nil {
			var similar []string
			for _, entry := range entries {
				if !entry.IsDir() && strings.Contains(strings.ToLower(entry.Name()), prefix) {
					similar = append(similar, entry.Name())
				}
			}
			if len(similar) > 0 {
				message.WriteString("  Similar files found:\n")
				for _, name := range similar[:min(len(similar), 3)] {
					message.WriteString(fmt.Sprintf("    - %s\n", name))
				}
			}
		}
	case errors.Is(err, iofs.ErrPermission):
		message.WriteString("  Suggestion: Check file permissions - you may need read access\n")
	}

	return message.String()
}
