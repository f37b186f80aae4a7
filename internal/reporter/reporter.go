// Package reporter renders timesheet results for people and for other tools.
//
// Supported output formats:
//   - Console: sectioned plain text for terminal display
//   - JSON: the full result, indented
//   - YAML: the full result as a YAML document
//   - CSV: one row per employee day
//   - XLSX: a workbook with a summary sheet and one sheet per employee
//
// Example usage:
//
//	gen, err := reporter.NewReportGenerator(&reporter.ReportConfig{Format: reporter.FormatXLSX})
//	err = gen.GenerateReport(result, file)
package reporter

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"afd-timebank/internal/models"
	"afd-timebank/internal/timesheet"

	"gopkg.in/yaml.v3"
)

// OutputFormat represents the supported report output formats
type OutputFormat string

const (
	FormatConsole OutputFormat = "console"
	FormatJSON    OutputFormat = "json"
	FormatYAML    OutputFormat = "yaml"
	FormatCSV     OutputFormat = "csv"
	FormatXLSX    OutputFormat = "xlsx"
)

// IsValid checks if the output format is supported
func (f OutputFormat) IsValid() bool {
	switch f {
	case FormatConsole, FormatJSON, FormatYAML, FormatCSV, FormatXLSX:
		return true
	default:
		return false
	}
}

// IsBinary reports whether the format must be written to a file
func (f OutputFormat) IsBinary() bool {
	return f == FormatXLSX
}

// Extension returns the file extension used for the format
func (f OutputFormat) Extension() string {
	if f == FormatConsole {
		return "txt"
	}
	return string(f)
}

// ReportConfig holds configuration options for report generation
type ReportConfig struct {
	Format OutputFormat `json:"format" mapstructure:"format"`

	// Detail level options
	IncludeDays          bool `json:"include_days" mapstructure:"include_days"`
	IncludeEmptyEmployee bool `json:"include_empty_employees" mapstructure:"include_empty_employees"`
	IncludeUnresolved    bool `json:"include_unresolved" mapstructure:"include_unresolved"`

	// CSV options
	CSVDelimiter rune `json:"csv_delimiter" mapstructure:"csv_delimiter"`
	CSVHeaders   bool `json:"csv_headers" mapstructure:"csv_headers"`
}

// DefaultReportConfig returns a default report configuration
func DefaultReportConfig() *ReportConfig {
	return &ReportConfig{
		Format:               FormatConsole,
		IncludeDays:          true,
		IncludeEmptyEmployee: false,
		IncludeUnresolved:    true,
		CSVDelimiter:         ',',
		CSVHeaders:           true,
	}
}

// Validate validates the report configuration
func (c *ReportConfig) Validate() error {
	if !c.Format.IsValid() {
		return fmt.Errorf("invalid output format: %s", c.Format)
	}

	if c.Format == FormatCSV && (c.CSVDelimiter == 0 || c.CSVDelimiter == '"' || c.CSVDelimiter == '\n') {
		return fmt.Errorf("invalid CSV delimiter: %q", c.CSVDelimiter)
	}

	return nil
}

// ReportGenerator generates timesheet reports in various formats
type ReportGenerator struct {
	config *ReportConfig
}

// NewReportGenerator creates a new report generator with the specified configuration
func NewReportGenerator(config *ReportConfig) (*ReportGenerator, error) {
	if config == nil {
		config = DefaultReportConfig()
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid report configuration: %w", err)
	}

	return &ReportGenerator{
		config: config,
	}, nil
}

// GenerateReport writes a report of result to writer
func (rg *ReportGenerator) GenerateReport(result *timesheet.Result, writer io.Writer) error {
	if result == nil {
		return fmt.Errorf("timesheet result cannot be nil")
	}

	switch rg.config.Format {
	case FormatConsole:
		return rg.generateConsoleReport(result, writer)
	case FormatJSON:
		return rg.generateJSONReport(result, writer)
	case FormatYAML:
		return rg.generateYAMLReport(result, writer)
	case FormatCSV:
		return rg.generateCSVReport(result, writer)
	case FormatXLSX:
		return rg.generateWorkbook(result, writer)
	default:
		return fmt.Errorf("unsupported output format: %s", rg.config.Format)
	}
}

// DefaultFileName names a report file after the range it covers
func DefaultFileName(result *timesheet.Result, format OutputFormat) string {
	return fmt.Sprintf("Timesheet_%s_to_%s.%s", result.Range.Start.ISO(), result.Range.End.ISO(), format.Extension())
}

// timesheets returns the timesheets to report, sorted by employee name
func (rg *ReportGenerator) timesheets(result *timesheet.Result) []*timesheet.Timesheet {
	var out []*timesheet.Timesheet
	if rg.config.IncludeEmptyEmployee {
		out = append(out, result.Timesheets...)
	} else {
		out = result.WithPunches()
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Employee.Name < out[j].Employee.Name
	})
	return out
}

func (rg *ReportGenerator) generateConsoleReport(result *timesheet.Result, writer io.Writer) error {
	sheets := rg.timesheets(result)

	fmt.Fprintf(writer, "TIME BANK REPORT\n")
	fmt.Fprintf(writer, "Period: %s\n", result.Range)
	fmt.Fprintf(writer, "Generated: %s\n", result.GeneratedAt.Format(time.RFC3339))
	fmt.Fprintf(writer, "Processing Duration: %v\n\n", result.ProcessingTime)

	fmt.Fprintf(writer, "=== SUMMARY ===\n")
	if len(sheets) == 0 {
		fmt.Fprintf(writer, "No employee has punches in this period.\n")
	}
	for _, ts := range sheets {
		rg.printTotals(ts, writer)
	}
	fmt.Fprintf(writer, "\n")

	if rg.config.IncludeDays {
		for _, ts := range sheets {
			fmt.Fprintf(writer, "=== %s (%s) ===\n", strings.ToUpper(ts.Employee.Name), ts.Employee.ID)
			rg.printDays(ts, writer)
			fmt.Fprintf(writer, "\n")
		}
	}

	if rg.config.IncludeUnresolved && len(result.UnresolvedPunches) > 0 {
		fmt.Fprintf(writer, "=== UNRESOLVED PUNCHES ===\n")
		rg.printUnresolved(result.UnresolvedPunches, writer)
	}

	return nil
}

func (rg *ReportGenerator) printTotals(ts *timesheet.Timesheet, writer io.Writer) {
	t := ts.Totals
	fmt.Fprintf(writer, "%s (%s)\n", ts.Employee.Name, ts.Employee.ID)
	fmt.Fprintf(writer, "  Days Worked:       %d of %d\n", t.DaysWorked, t.Days)
	fmt.Fprintf(writer, "  Worked:            %s (%sh)\n", models.FormatMinutes(t.WorkedMinutes), models.MinutesToHours(t.WorkedMinutes).StringFixed(2))
	fmt.Fprintf(writer, "  Balance:           %s (%sh)\n", models.FormatMinutes(t.BalanceMinutes), models.MinutesToHours(t.BalanceMinutes).StringFixed(2))
	fmt.Fprintf(writer, "  Overtime:          %s\n", models.FormatMinutes(t.OvertimeMinutes))
	fmt.Fprintf(writer, "  Lateness:          %s\n", models.FormatMinutes(t.LatenessMinutes))
	fmt.Fprintf(writer, "  Occurrences:       %d\n", t.DaysWithOccurrences)
	if t.Certificates > 0 {
		fmt.Fprintf(writer, "  Certificates:      %d\n", t.Certificates)
	}
}

func (rg *ReportGenerator) printDays(ts *timesheet.Timesheet, writer io.Writer) {
	for _, day := range ts.Days {
		fmt.Fprintf(writer, "  %s %-9s", day.Date, day.Weekday)
		for _, slot := range punchSlots(day) {
			fmt.Fprintf(writer, " %5s", slot)
		}

		worked, balance, notes := dayColumns(day)
		fmt.Fprintf(writer, "  %6s %6s", worked, balance)
		if notes != "" {
			fmt.Fprintf(writer, "  %s", notes)
		}
		fmt.Fprintf(writer, "\n")
	}
}

func (rg *ReportGenerator) printUnresolved(punches []models.Punch, writer io.Writer) {
	fmt.Fprintf(writer, "Total Unresolved Punches: %d\n\n", len(punches))
	for i, p := range punches {
		fmt.Fprintf(writer, "  %d. NSR: %s, Identifier: %s, Date: %s, Time: %s\n",
			i+1, p.SequenceNumber, p.Identifier, p.Date, p.Time)

		if i >= 9 && len(punches) > 10 {
			fmt.Fprintf(writer, "  ... and %d more\n", len(punches)-10)
			break
		}
	}
}

func (rg *ReportGenerator) generateJSONReport(result *timesheet.Result, writer io.Writer) error {
	encoder := json.NewEncoder(writer)
	encoder.SetIndent("", "  ")

	return encoder.Encode(rg.filterResultForOutput(result))
}

func (rg *ReportGenerator) generateYAMLReport(result *timesheet.Result, writer io.Writer) error {
	encoder := yaml.NewEncoder(writer)
	encoder.SetIndent(2)
	defer encoder.Close()

	return encoder.Encode(rg.filterResultForOutput(result))
}

func (rg *ReportGenerator) filterResultForOutput(result *timesheet.Result) *timesheet.Result {
	out := *result
	out.Timesheets = rg.timesheets(result)

	if !rg.config.IncludeDays {
		trimmed := make([]*timesheet.Timesheet, len(out.Timesheets))
		for i, ts := range out.Timesheets {
			copied := *ts
			copied.Days = nil
			trimmed[i] = &copied
		}
		out.Timesheets = trimmed
	}
	if !rg.config.IncludeUnresolved {
		out.UnresolvedPunches = nil
	}
	return &out
}

var csvHeaders = []string{
	"Employee_ID",
	"Employee_Name",
	"Date",
	"Weekday",
	"Punches",
	"Worked",
	"Expected",
	"Balance",
	"Overtime",
	"Lateness",
	"Early_Departure",
	"Medical_Certificate",
	"Observations",
}

func (rg *ReportGenerator) generateCSVReport(result *timesheet.Result, writer io.Writer) error {
	csvWriter := csv.NewWriter(writer)
	csvWriter.Comma = rg.config.CSVDelimiter
	defer csvWriter.Flush()

	if rg.config.CSVHeaders {
		if err := csvWriter.Write(csvHeaders); err != nil {
			return fmt.Errorf("failed to write CSV headers: %w", err)
		}
	}

	for _, ts := range rg.timesheets(result) {
		for _, day := range ts.Days {
			record := []string{
				ts.Employee.ID,
				ts.Employee.Name,
				day.Date.ISO(),
				day.Weekday,
				strings.Join(day.PunchTimes(), " "),
				models.FormatMinutes(day.WorkedMinutes),
				models.FormatMinutes(day.ExpectedMinutes),
				models.FormatMinutes(day.BalanceMinutes),
				models.FormatMinutes(day.OvertimeMinutes),
				models.FormatMinutes(day.LatenessMinutes),
				models.FormatMinutes(day.EarlyDepartureMinutes),
				strconv.FormatBool(day.MedicalCertificate),
				strings.Join(day.Messages(), "; "),
			}
			if err := csvWriter.Write(record); err != nil {
				return fmt.Errorf("failed to write day record: %w", err)
			}
		}
	}

	return csvWriter.Error()
}

// UpdateConfiguration updates the report generator configuration
func (rg *ReportGenerator) UpdateConfiguration(config *ReportConfig) error {
	if err := config.Validate(); err != nil {
		return fmt.Errorf("invalid report configuration: %w", err)
	}

	rg.config = config
	return nil
}

// GetConfiguration returns the current configuration
func (rg *ReportGenerator) GetConfiguration() *ReportConfig {
	return rg.config
}
