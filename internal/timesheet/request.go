package timesheet

import (
	stderrors "errors"
	"fmt"
	"time"

	"afd-timebank/internal/models"
	"afd-timebank/pkg/errors"
)

// ErrNothingToCompute marks a request that yields no work days: no
// employees, a missing or inverted range, or a range that is too long.
var ErrNothingToCompute = stderrors.New("nothing to compute")

// DefaultMaxRangeDays bounds the length of a date range
const DefaultMaxRangeDays = 730

// DateRange is an inclusive span of calendar days
type DateRange struct {
	Start models.Date `json:"start" yaml:"start"`
	End   models.Date `json:"end" yaml:"end"`
}

// NewDateRange creates a range
func NewDateRange(start, end models.Date) DateRange {
	return DateRange{Start: start, End: end}
}

// Validate rejects unset, inverted and over-long ranges with
// ErrNothingToCompute.
func (r DateRange) Validate(maxDays int) error {
	switch {
	case r.Start.IsZero() || r.End.IsZero():
		return nothingToCompute("date range is incomplete")
	case r.End.Before(r.Start):
		return nothingToCompute(fmt.Sprintf("start date %s is after end date %s", r.Start, r.End))
	case maxDays > 0 && r.Start.DaysUntil(r.End) > maxDays:
		return nothingToCompute(fmt.Sprintf("date range spans more than %d days", maxDays))
	}
	return nil
}

// Dates lists every day of the range, skipping Sundays unless asked not to
func (r DateRange) Dates(includeSundays bool) []models.Date {
	var dates []models.Date
	for d := r.Start; !r.End.Before(d); d = d.AddDays(1) {
		if !includeSundays && d.Weekday() == time.Sunday {
			continue
		}
		dates = append(dates, d)
	}
	return dates
}

// Contains reports whether d lies within the range
func (r DateRange) Contains(d models.Date) bool {
	return !d.Before(r.Start) && !r.End.Before(d)
}

func (r DateRange) String() string {
	return fmt.Sprintf("%s - %s", r.Start, r.End)
}

func nothingToCompute(reason string) error {
	return errors.ComputationError(errors.CodeNothingToCompute, "build timesheets", ErrNothingToCompute).
		WithContext("reason", reason)
}

// IsNothingToCompute reports whether err means there was nothing to compute
func IsNothingToCompute(err error) bool {
	return stderrors.Is(err, ErrNothingToCompute)
}

// Adjustment is a manual punch edit applied whenever timesheets are built
type Adjustment struct {
	EmployeeID string      `mapstructure:"employee" json:"employee" yaml:"employee"`
	Date       models.Date `mapstructure:"date" json:"date" yaml:"date"`
	Index      int         `mapstructure:"index" json:"index" yaml:"index"`
	Value      string      `mapstructure:"value" json:"value" yaml:"value"`
}

// Validate checks the adjustment without applying it
func (a Adjustment) Validate() error {
	if a.EmployeeID == "" {
		return errors.ValidationError(errors.CodeMissingField, "employee", a.EmployeeID, nil)
	}
	if a.Date.IsZero() {
		return errors.ValidationError(errors.CodeInvalidDate, "date", a.Date, nil)
	}
	if a.Index < 0 {
		return errors.ValidationError(errors.CodeOutOfRange, "index", a.Index, nil)
	}
	if a.Value != "" {
		if _, err := models.ParseClockTime(a.Value); err != nil {
			return errors.ValidationError(errors.CodeInvalidTime, "value", a.Value, err)
		}
	}
	return nil
}
