package cmd

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"afd-timebank/cmd/timebank/config"
	"afd-timebank/internal/models"
	"afd-timebank/internal/reporter"
	"afd-timebank/internal/timesheet"
	"afd-timebank/pkg/errors"
	"afd-timebank/pkg/logger"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Flags for the report command
var (
	afdFile        string
	startDate      string
	endDate        string
	outputFormat   string
	outputFile     string
	employeeIDs    []string
	includeSundays bool
	maxConcurrency int
)

// reportCmd represents the report command
var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Compute the time bank of every employee over a date range",
	Long: `Report parses an AFD export, builds one timesheet per employee for every
day of the requested range and renders the result.

Sundays are skipped unless --include-sundays is given. Ranges longer than
730 days are refused. Schedules, per-employee overrides, medical certificates
and punch adjustments are read from the config file.

Examples:
  # Console report for March
  timebank report --file AFD.txt --start 2024-03-01 --end 2024-03-31

  # Workbook with one sheet per employee
  timebank report --file AFD.txt --start 01/03/2024 --end 31/03/2024 --format xlsx

  # Two employees only, as JSON
  timebank report --file AFD.txt --start 2024-03-01 --end 2024-03-31 \
    --employee 1234567890 --employee 9876543210 --format json --output march.json`,

	PreRunE: validateReportFlags,
	RunE:    runReport,
}

func init() {
	rootCmd.AddCommand(reportCmd)

	reportCmd.Flags().StringVarP(&afdFile, "file", "f", "", "path to the AFD export (required)")
	reportCmd.Flags().StringVar(&startDate, "start", "", "first day of the range (YYYY-MM-DD or DD/MM/YYYY)")
	reportCmd.Flags().StringVar(&endDate, "end", "", "last day of the range (YYYY-MM-DD or DD/MM/YYYY)")
	reportCmd.Flags().StringVar(&outputFormat, "format", "console", "output format: console, json, yaml, csv, xlsx")
	reportCmd.Flags().StringVarP(&outputFile, "output", "o", "", "output file path (default: stdout, or a generated name for xlsx)")
	reportCmd.Flags().StringSliceVarP(&employeeIDs, "employee", "e", nil, "restrict the report to these employee identifiers")
	reportCmd.Flags().BoolVar(&includeSundays, "include-sundays", false, "include Sundays in the range")
	reportCmd.Flags().IntVar(&maxConcurrency, "max-concurrency", 4, "number of employees computed in parallel")

	reportCmd.MarkFlagRequired("file")
}

func validateReportFlags(cmd *cobra.Command, args []string) error {
	// Get values from viper (allows override from config file)
	afdFile = viper.GetString("file")
	startDate = viper.GetString("start")
	endDate = viper.GetString("end")
	outputFormat = strings.ToLower(viper.GetString("format"))
	outputFile = viper.GetString("output")
	employeeIDs = viper.GetStringSlice("employee")
	maxConcurrency = viper.GetInt("max-concurrency")

	if afdFile == "" {
		return errors.ValidationError(errors.CodeMissingField, "file", afdFile, nil)
	}
	if err := validateFileExists(afdFile, "AFD file"); err != nil {
		return err
	}

	if !reporter.OutputFormat(outputFormat).IsValid() {
		return errors.ConfigurationError(errors.CodeInvalidConfig, "format", outputFormat, nil).
			WithSuggestion("valid formats: console, json, yaml, csv, xlsx")
	}

	// An unset or inverted range is not an error: the build reports that
	// there is nothing to compute.
	for _, flag := range []struct{ name, value string }{{"start", startDate}, {"end", endDate}} {
		if flag.value == "" {
			continue
		}
		if _, err := models.ParseDate(flag.value); err != nil {
			return errors.ValidationError(errors.CodeInvalidDate, flag.name, flag.value, err)
		}
	}

	if maxConcurrency < 1 {
		return errors.ValidationError(errors.CodeOutOfRange, "max-concurrency", maxConcurrency, nil)
	}

	return validateOutputDir(outputFile)
}

func validateOutputDir(path string) error {
	if path == "" {
		return nil
	}
	dir := filepath.Dir(path)
	if dir == "." {
		return nil
	}
	isDir, err := afero.IsDir(fs, dir)
	if err != nil || !isDir {
		return errors.FileError(errors.CodeDirectoryError, dir, err)
	}
	return nil
}

func validateFileExists(filePath, description string) error {
	if filePath == "" {
		return errors.ValidationError(errors.CodeMissingField, description, filePath, nil)
	}

	info, err := fs.Stat(filePath)
	if err != nil {
		if notExist(err) {
			return errors.FileError(errors.CodeFileNotFound, filePath, err)
		}
		return errors.FileError(errors.CodeFileUnreadable, filePath, err)
	}

	if info.IsDir() {
		return errors.FileError(errors.CodeFileUnreadable, filePath, fmt.Errorf("%s is a directory, expected a file", description))
	}

	// Check if file is readable
	file, err := fs.Open(filePath)
	if err != nil {
		return errors.FileError(errors.CodeFilePermission, filePath, err)
	}
	file.Close()

	return nil
}

// loadService parses the AFD file and installs everything the config file
// carries: schedule, overrides, certificates and adjustments.
func loadService(path string) (*timesheet.Service, error) {
	v := viper.GetViper()

	parseConfig, err := config.CreateParseConfig(v)
	if err != nil {
		return nil, err
	}
	matchingConfig, err := config.CreateMatchingConfig(v)
	if err != nil {
		return nil, err
	}
	serviceConfig, err := config.CreateServiceConfig(v)
	if err != nil {
		return nil, err
	}
	schedule, err := config.CreateScheduleConfig(v)
	if err != nil {
		return nil, err
	}
	overrides, err := config.CreateEmployeeOverrides(v, schedule)
	if err != nil {
		return nil, err
	}
	certificates, err := config.CreateCertificates(v)
	if err != nil {
		return nil, err
	}
	adjustments, err := config.CreateAdjustments(v)
	if err != nil {
		return nil, err
	}

	svc, err := timesheet.NewService(serviceConfig, parseConfig, matchingConfig)
	if err != nil {
		return nil, err
	}
	if err := svc.UpdateConfiguration(schedule); err != nil {
		return nil, err
	}
	if _, err := svc.ParseFile(fs, path); err != nil {
		return nil, err
	}
	if err := config.Apply(svc, overrides, certificates, adjustments); err != nil {
		return nil, err
	}
	return svc, nil
}

func runReport(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	log := logger.GetGlobalLogger().WithComponent("cli")

	log.WithFields(logger.Fields{
		"file":   afdFile,
		"start":  startDate,
		"end":    endDate,
		"format": outputFormat,
	}).Debug("Starting report")

	svc, err := loadService(afdFile)
	if err != nil {
		return err
	}

	// Checked in validateReportFlags. Empty values stay zero.
	start, _ := models.ParseDate(startDate)
	end, _ := models.ParseDate(endDate)

	result, err := svc.BuildTimesheets(ctx, timesheet.NewDateRange(start, end), employeeIDs...)
	if timesheet.IsNothingToCompute(err) {
		if appErr, ok := errors.AsAppError(err); ok {
			log.WithField("reason", appErr.Context["reason"]).Debug("Nothing to compute")
		}
		fmt.Fprintln(cmd.ErrOrStderr(), "nothing to compute")
		return nil
	}
	if err != nil {
		return err
	}

	format := reporter.OutputFormat(outputFormat)
	generator, err := reporter.NewReportGenerator(config.CreateReportConfig(outputFormat))
	if err != nil {
		return errors.ConfigurationError(errors.CodeInvalidConfig, "report", outputFormat, err)
	}

	target := outputFile
	if target == "" && format.IsBinary() {
		target = reporter.DefaultFileName(result, format)
	}

	var output io.Writer = cmd.OutOrStdout()
	if target != "" {
		file, err := fs.Create(target)
		if err != nil {
			return errors.FileError(errors.CodeFilePermission, target, err)
		}
		defer file.Close()
		output = file
	}

	if err := generator.GenerateReport(result, output); err != nil {
		return errors.ComputationError(errors.CodeExportFailed, "report", err).WithContext("format", outputFormat)
	}

	if target != "" {
		fmt.Fprintf(cmd.ErrOrStderr(), "Report written to %s\n", target)
	}

	if viper.GetBool("verbose") {
		withPunches := result.WithPunches()
		fmt.Fprintf(cmd.ErrOrStderr(), "\nProcessed %d employees over %s, %d with punches.\n",
			len(result.Timesheets), result.Range, len(withPunches))
		if len(result.UnresolvedPunches) > 0 {
			fmt.Fprintf(cmd.ErrOrStderr(), "%d punches could not be bound to an employee.\n", len(result.UnresolvedPunches))
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "Processing time: %v\n", result.ProcessingTime)
	}

	return nil
}
