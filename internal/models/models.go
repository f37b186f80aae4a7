package models

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ErrInvalidClockTime is returned when a time of day is not a strict HH:MM value
var ErrInvalidClockTime = errors.New("invalid time of day, expected HH:MM between 00:00 and 23:59")

// ErrInvalidDate is returned when a calendar date cannot be parsed
var ErrInvalidDate = errors.New("invalid date")

const minutesPerDay = 24 * 60

// ManualSequenceNumber is the NSR assigned to punches entered by hand
const ManualSequenceNumber = "MANUAL"

var clockTimePattern = regexp.MustCompile(`^([0-1]?[0-9]|2[0-3]):[0-5][0-9]$`)

// ClockTime is a time of day expressed in minutes since midnight
type ClockTime int

// NewClockTime builds a ClockTime from hour and minute components
func NewClockTime(hour, minute int) ClockTime {
	return ClockTime(hour*60 + minute)
}

// ParseClockTime parses a strict H:MM or HH:MM value
func ParseClockTime(s string) (ClockTime, error) {
	s = strings.TrimSpace(s)
	if !clockTimePattern.MatchString(s) {
		return 0, fmt.Errorf("%w: %q", ErrInvalidClockTime, s)
	}

	parts := strings.SplitN(s, ":", 2)
	hour, _ := strconv.Atoi(parts[0])
	minute, _ := strconv.Atoi(parts[1])
	return NewClockTime(hour, minute), nil
}

// MustParseClockTime is ParseClockTime for constants. It panics on bad input.
func MustParseClockTime(s string) ClockTime {
	c, err := ParseClockTime(s)
	if err != nil {
		panic(err)
	}
	return c
}

// Minutes returns the number of minutes since midnight
func (c ClockTime) Minutes() int {
	return int(c)
}

// Hour returns the hour component
func (c ClockTime) Hour() int {
	return int(c) / 60
}

// Minute returns the minute component
func (c ClockTime) Minute() int {
	return int(c) % 60
}

// IsValid reports whether the value lies within a single day
func (c ClockTime) IsValid() bool {
	return c >= 0 && int(c) < minutesPerDay
}

// String returns the HH:MM representation
func (c ClockTime) String() string {
	return fmt.Sprintf("%02d:%02d", c.Hour(), c.Minute())
}

// MarshalText implements encoding.TextMarshaler
func (c ClockTime) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (c *ClockTime) UnmarshalText(text []byte) error {
	parsed, err := ParseClockTime(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// Span returns the minutes from start to end, assuming a midnight crossing
// when end is earlier than start.
func Span(start, end ClockTime) int {
	diff := int(end) - int(start)
	if diff < 0 {
		diff += minutesPerDay
	}
	return diff
}

// Date is a calendar day without time zone
type Date struct {
	Year  int `json:"year"`
	Month int `json:"month"`
	Day   int `json:"day"`
}

// NewDate creates a Date
func NewDate(year, month, day int) Date {
	return Date{Year: year, Month: month, Day: day}
}

// DateOf returns the calendar day of t in its own location
func DateOf(t time.Time) Date {
	return NewDate(t.Year(), int(t.Month()), t.Day())
}

// ParseDate accepts YYYY-MM-DD or DD/MM/YYYY
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{"2006-01-02", "02/01/2006"} {
		if t, err := time.Parse(layout, s); err == nil {
			return DateOf(t), nil
		}
	}
	return Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
}

// Time returns midnight UTC of the date
func (d Date) Time() time.Time {
	return time.Date(d.Year, time.Month(d.Month), d.Day, 0, 0, 0, 0, time.UTC)
}

// IsZero reports whether the date is unset
func (d Date) IsZero() bool {
	return d == Date{}
}

// Weekday returns the day of the week
func (d Date) Weekday() time.Weekday {
	return d.Time().Weekday()
}

// IsWeekend reports whether the date is a Saturday or Sunday
func (d Date) IsWeekend() bool {
	wd := d.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

// AddDays returns the date n days later
func (d Date) AddDays(n int) Date {
	return DateOf(d.Time().AddDate(0, 0, n))
}

// Before reports whether d is earlier than other
func (d Date) Before(other Date) bool {
	return d.Time().Before(other.Time())
}

// DaysUntil returns the number of days from d to other
func (d Date) DaysUntil(other Date) int {
	return int(other.Time().Sub(d.Time()).Hours() / 24)
}

// String returns the DD/MM/YYYY representation
func (d Date) String() string {
	return fmt.Sprintf("%02d/%02d/%04d", d.Day, d.Month, d.Year)
}

// ISO returns the YYYY-MM-DD representation
func (d Date) ISO() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, d.Month, d.Day)
}

// MarshalText implements encoding.TextMarshaler
func (d Date) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (d *Date) UnmarshalText(text []byte) error {
	parsed, err := ParseDate(string(text))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Employee is a person known to the time clock
type Employee struct {
	ID           string   `json:"id" yaml:"id"`
	Name         string   `json:"name" yaml:"name"`
	AlternateIDs []string `json:"alternateIds,omitempty" yaml:"alternateIds,omitempty"`
}

// NewEmployee creates an Employee with the given primary identifier
func NewEmployee(id, name string) *Employee {
	return &Employee{ID: id, Name: name}
}

// AddAlternate records id as an alternate identifier. The primary
// identifier and duplicates are ignored.
func (e *Employee) AddAlternate(id string) {
	if id == "" || id == e.ID {
		return
	}
	for _, alt := range e.AlternateIDs {
		if alt == id {
			return
		}
	}
	e.AlternateIDs = append(e.AlternateIDs, id)
}

// HasIdentifier reports whether id is the primary or an alternate identifier
func (e *Employee) HasIdentifier(id string) bool {
	if id == e.ID {
		return true
	}
	for _, alt := range e.AlternateIDs {
		if alt == id {
			return true
		}
	}
	return false
}

// Identifiers returns the primary identifier followed by the alternates
func (e *Employee) Identifiers() []string {
	return append([]string{e.ID}, e.AlternateIDs...)
}

func (e *Employee) String() string {
	return fmt.Sprintf("Employee{ID: %s, Name: %s, Alternates: %d}", e.ID, e.Name, len(e.AlternateIDs))
}

// PunchOrigin tells where a punch came from
type PunchOrigin string

const (
	OriginFile   PunchOrigin = "file"
	OriginManual PunchOrigin = "manual"
)

// Punch is a single clock-in or clock-out event
type Punch struct {
	ID             string      `json:"id" yaml:"id"`
	SequenceNumber string      `json:"nsr" yaml:"nsr"`
	Identifier     string      `json:"identifier" yaml:"identifier"`
	EmployeeID     string      `json:"employeeId" yaml:"employeeId"`
	EmployeeName   string      `json:"employeeName" yaml:"employeeName"`
	Date           Date        `json:"date" yaml:"date"`
	Time           ClockTime   `json:"time" yaml:"time"`
	Origin         PunchOrigin `json:"origin" yaml:"origin"`
}

// IsResolved reports whether the punch was bound to a known employee
func (p *Punch) IsResolved() bool {
	return p.EmployeeName != ""
}

func (p *Punch) String() string {
	return fmt.Sprintf("Punch{NSR: %s, Employee: %s, Date: %s, Time: %s}", p.SequenceNumber, p.EmployeeID, p.Date, p.Time)
}

// NoticeKind classifies an anomaly found on a work day
type NoticeKind string

const (
	NoticeIntegralAbsence    NoticeKind = "integral_absence"
	NoticeMissingExit        NoticeKind = "missing_exit"
	NoticeLunchNotRegistered NoticeKind = "lunch_not_registered"
)

// Notice is an advisory anomaly attached to a work day
type Notice struct {
	Kind     NoticeKind `json:"kind" yaml:"kind"`
	Expected string     `json:"expected" yaml:"expected"`
	Reason   string     `json:"reason" yaml:"reason"`
}

// MedicalCertificateNote is the observation recorded on excused days
const MedicalCertificateNote = "MEDICAL CERTIFICATE"

// WorkDay aggregates one employee's punches on one calendar date together
// with the values derived from them.
type WorkDay struct {
	ID                 string   `json:"id" yaml:"id"`
	Date               Date     `json:"date" yaml:"date"`
	Weekday            string   `json:"weekday" yaml:"weekday"`
	EmployeeID         string   `json:"employeeId" yaml:"employeeId"`
	EmployeeName       string   `json:"employeeName" yaml:"employeeName"`
	Punches            []Punch  `json:"punches" yaml:"punches"`
	Notices            []Notice `json:"notices" yaml:"notices"`
	Observations       []string `json:"observations" yaml:"observations"`
	MedicalCertificate bool     `json:"medicalCertificate" yaml:"medicalCertificate"`

	WorkedMinutes         int `json:"workedMinutes" yaml:"workedMinutes"`
	LunchMinutes          int `json:"lunchMinutes" yaml:"lunchMinutes"`
	ExpectedMinutes       int `json:"expectedMinutes" yaml:"expectedMinutes"`
	BalanceMinutes        int `json:"balanceMinutes" yaml:"balanceMinutes"`
	OvertimeMinutes       int `json:"overtimeMinutes" yaml:"overtimeMinutes"`
	LatenessMinutes       int `json:"latenessMinutes" yaml:"latenessMinutes"`
	EarlyDepartureMinutes int `json:"earlyDepartureMinutes" yaml:"earlyDepartureMinutes"`
}

// WorkDayID returns the identity of the work day for an employee and date
func WorkDayID(employeeID string, date Date) string {
	return employeeID + "-" + date.String()
}

// NewWorkDay creates an empty work day for an employee
func NewWorkDay(employee *Employee, date Date) *WorkDay {
	return &WorkDay{
		ID:           WorkDayID(employee.ID, date),
		Date:         date,
		Weekday:      date.Weekday().String(),
		EmployeeID:   employee.ID,
		EmployeeName: employee.Name,
	}
}

// HasNotices reports whether any anomaly was detected
func (w *WorkDay) HasNotices() bool {
	return len(w.Notices) > 0
}

// Messages returns the observations followed by the notice reasons
func (w *WorkDay) Messages() []string {
	messages := make([]string, 0, len(w.Observations)+len(w.Notices))
	messages = append(messages, w.Observations...)
	for _, n := range w.Notices {
		messages = append(messages, n.Reason)
	}
	return messages
}

// PunchTimes returns the HH:MM value of every punch in order
func (w *WorkDay) PunchTimes() []string {
	times := make([]string, len(w.Punches))
	for i, p := range w.Punches {
		times[i] = p.Time.String()
	}
	return times
}

// Clone returns a deep copy of the work day
func (w *WorkDay) Clone() *WorkDay {
	clone := *w
	clone.Punches = append([]Punch(nil), w.Punches...)
	clone.Notices = append([]Notice(nil), w.Notices...)
	clone.Observations = append([]string(nil), w.Observations...)
	return &clone
}

// FormatMinutes renders a signed minute count as HH:MM with a leading minus
// for negative values.
func FormatMinutes(minutes int) string {
	sign := ""
	if minutes < 0 {
		sign = "-"
		minutes = -minutes
	}
	return fmt.Sprintf("%s%02d:%02d", sign, minutes/60, minutes%60)
}

// MinutesToHours converts minutes to decimal hours rounded to two places
func MinutesToHours(minutes int) decimal.Decimal {
	return decimal.NewFromInt(int64(minutes)).Div(decimal.NewFromInt(60)).Round(2)
}
