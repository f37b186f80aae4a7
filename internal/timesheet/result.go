package timesheet

import (
	"time"

	"afd-timebank/internal/matcher"
	"afd-timebank/internal/models"
	"afd-timebank/internal/parsers"
)

// ParseResult is what Parse learned from an AFD export
type ParseResult struct {
	Employees []*models.Employee   `json:"employees" yaml:"employees"`
	Punches   []models.Punch       `json:"punches" yaml:"punches"`
	Stats     *parsers.ParseStats  `json:"stats" yaml:"stats"`
	Resolve   matcher.ResolveStats `json:"resolve" yaml:"resolve"`
	Bind      matcher.BindStats    `json:"bind" yaml:"bind"`
}

// Totals aggregates the work days of one timesheet
type Totals struct {
	Days                int `json:"days" yaml:"days"`
	DaysWorked          int `json:"daysWorked" yaml:"daysWorked"`
	DaysWithOccurrences int `json:"daysWithOccurrences" yaml:"daysWithOccurrences"`
	Certificates        int `json:"certificates" yaml:"certificates"`
	WorkedMinutes       int `json:"workedMinutes" yaml:"workedMinutes"`
	ExpectedMinutes     int `json:"expectedMinutes" yaml:"expectedMinutes"`
	BalanceMinutes      int `json:"balanceMinutes" yaml:"balanceMinutes"`
	OvertimeMinutes     int `json:"overtimeMinutes" yaml:"overtimeMinutes"`
	LatenessMinutes     int `json:"latenessMinutes" yaml:"latenessMinutes"`
}

// Add accumulates one day. Certificate days count as worked; days with
// notices count as occurrences unless excused.
func (t *Totals) Add(day *models.WorkDay) {
	t.Days++
	if day.WorkedMinutes > 0 || day.MedicalCertificate {
		t.DaysWorked++
	}
	if day.MedicalCertificate {
		t.Certificates++
	} else if day.HasNotices() {
		t.DaysWithOccurrences++
	}
	t.WorkedMinutes += day.WorkedMinutes
	t.ExpectedMinutes += day.ExpectedMinutes
	t.BalanceMinutes += day.BalanceMinutes
	t.OvertimeMinutes += day.OvertimeMinutes
	t.LatenessMinutes += day.LatenessMinutes
}

// Timesheet is one employee's work days over a range
type Timesheet struct {
	Employee *models.Employee  `json:"employee" yaml:"employee"`
	Schedule string            `json:"schedule" yaml:"schedule"`
	Days     []*models.WorkDay `json:"days" yaml:"days"`
	Totals   Totals            `json:"totals" yaml:"totals"`
}

// HasPunches reports whether any day of the timesheet has a punch
func (ts *Timesheet) HasPunches() bool {
	for _, d := range ts.Days {
		if len(d.Punches) > 0 {
			return true
		}
	}
	return false
}

// Day returns the work day for date
func (ts *Timesheet) Day(date models.Date) (*models.WorkDay, bool) {
	for _, d := range ts.Days {
		if d.Date == date {
			return d, true
		}
	}
	return nil, false
}

// Recalculate rebuilds Totals from Days
func (ts *Timesheet) Recalculate() {
	ts.Totals = Totals{}
	for _, d := range ts.Days {
		ts.Totals.Add(d)
	}
}

// Result is the outcome of BuildTimesheets
type Result struct {
	Range             DateRange      `json:"range" yaml:"range"`
	Timesheets        []*Timesheet   `json:"timesheets" yaml:"timesheets"`
	UnresolvedPunches []models.Punch `json:"unresolvedPunches,omitempty" yaml:"unresolvedPunches,omitempty"`
	GeneratedAt       time.Time      `json:"generatedAt" yaml:"generatedAt"`
	ProcessingTime    time.Duration  `json:"processingTime" yaml:"processingTime"`
}

// Timesheet returns the timesheet of an employee
func (r *Result) Timesheet(employeeID string) (*Timesheet, bool) {
	for _, ts := range r.Timesheets {
		if ts.Employee.ID == employeeID {
			return ts, true
		}
	}
	return nil, false
}

// WithPunches returns the timesheets that have at least one punch
func (r *Result) WithPunches() []*Timesheet {
	var out []*Timesheet
	for _, ts := range r.Timesheets {
		if ts.HasPunches() {
			out = append(out, ts)
		}
	}
	return out
}
