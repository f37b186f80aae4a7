package reporter

import (
	"fmt"
	"io"
	"strings"

	"afd-timebank/internal/models"
	"afd-timebank/internal/timesheet"

	"github.com/xuri/excelize/v2"
)

const (
	// SummarySheet is the name of the overview sheet
	SummarySheet = "Summary"

	punchColumns       = 6
	maxSheetNameLength = 30
	emptyPunchSlot     = "--"
)

var (
	summaryHeader = []interface{}{
		"Employee", "Identifier", "Days Worked", "Worked (Total)", "Balance (Total)", "Days With Occurrences",
	}
	detailHeader = []interface{}{
		"Date", "Weekday", "Entry", "Exit", "Entry", "Exit", "Entry", "Exit", "Worked", "Balance", "Observations",
	}
	forbiddenSheetChars = strings.NewReplacer(":", "", "/", "", `\`, "", "?", "", "*", "", "[", "", "]", "")
)

// punchSlots returns the first six punch times, padding with "--"
func punchSlots(day *models.WorkDay) []string {
	slots := make([]string, punchColumns)
	for i := range slots {
		slots[i] = emptyPunchSlot
		if i < len(day.Punches) {
			slots[i] = day.Punches[i].Time.String()
		}
	}
	return slots
}

// dayColumns returns the worked, balance and observations cells of a day
func dayColumns(day *models.WorkDay) (string, string, string) {
	if day.MedicalCertificate {
		return "CERTIFICATE", "00:00", "Medical certificate delivered"
	}
	return models.FormatMinutes(day.WorkedMinutes), models.FormatMinutes(day.BalanceMinutes), strings.Join(day.Messages(), "; ")
}

// SheetName derives a worksheet name from an employee name. Characters
// that workbooks reject are removed and the result is cut to 30 characters.
// Names already in taken get a numeric suffix.
func SheetName(name string, taken map[string]bool) string {
	base := strings.TrimSpace(forbiddenSheetChars.Replace(name))
	if base == "" {
		base = "Employee"
	}
	base = truncate(base, maxSheetNameLength)

	candidate := base
	for n := 1; taken[strings.ToLower(candidate)]; n++ {
		suffix := fmt.Sprint(n)
		candidate = truncate(base, maxSheetNameLength-3) + suffix
	}
	taken[strings.ToLower(candidate)] = true
	return candidate
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return strings.TrimSpace(string(runes[:n]))
}

func (rg *ReportGenerator) generateWorkbook(result *timesheet.Result, writer io.Writer) error {
	sheets := rg.timesheets(result)
	if len(sheets) == 0 {
		return fmt.Errorf("no employee has punches between %s", result.Range)
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SummarySheet); err != nil {
		return fmt.Errorf("failed to create summary sheet: %w", err)
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}

	if err := writeRow(f, SummarySheet, 1, summaryHeader); err != nil {
		return err
	}
	if err := f.SetRowStyle(SummarySheet, 1, 1, bold); err != nil {
		return fmt.Errorf("failed to style summary header: %w", err)
	}
	for i, ts := range sheets {
		t := ts.Totals
		row := []interface{}{
			ts.Employee.Name,
			ts.Employee.ID,
			t.DaysWorked,
			models.FormatMinutes(t.WorkedMinutes),
			models.FormatMinutes(t.BalanceMinutes),
			t.DaysWithOccurrences,
		}
		if err := writeRow(f, SummarySheet, i+2, row); err != nil {
			return err
		}
	}

	taken := map[string]bool{strings.ToLower(SummarySheet): true}
	for _, ts := range sheets {
		name := SheetName(ts.Employee.Name, taken)
		if _, err := f.NewSheet(name); err != nil {
			return fmt.Errorf("failed to create sheet %q: %w", name, err)
		}
		if err := writeDetailSheet(f, name, ts, bold); err != nil {
			return err
		}
	}

	f.SetActiveSheet(0)
	if err := f.Write(writer); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

func writeDetailSheet(f *excelize.File, sheet string, ts *timesheet.Timesheet, headerStyle int) error {
	if err := writeRow(f, sheet, 1, []interface{}{"TIMESHEET: " + strings.ToUpper(ts.Employee.Name)}); err != nil {
		return err
	}
	if err := writeRow(f, sheet, 2, []interface{}{"Identifier: " + ts.Employee.ID}); err != nil {
		return err
	}
	if err := writeRow(f, sheet, 4, detailHeader); err != nil {
		return err
	}
	if err := f.SetRowStyle(sheet, 4, 4, headerStyle); err != nil {
		return fmt.Errorf("failed to style header of %q: %w", sheet, err)
	}

	for i, day := range ts.Days {
		row := []interface{}{day.Date.String(), day.Weekday}
		for _, slot := range punchSlots(day) {
			row = append(row, slot)
		}
		worked, balance, notes := dayColumns(day)
		row = append(row, worked, balance, notes)

		if err := writeRow(f, sheet, i+5, row); err != nil {
			return err
		}
	}

	return f.SetColWidth(sheet, "K", "K", 60)
}

func writeRow(f *excelize.File, sheet string, row int, values []interface{}) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("failed to write row %d of %q: %w", row, sheet, err)
	}
	return nil
}
