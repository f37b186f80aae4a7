// Package timesheet drives a full time-bank run: it parses an AFD export,
// resolves employees, expands a date range into work days and computes each
// day with the schedule that applies to its employee.
//
// Example usage:
//
//	svc, _ := timesheet.NewService(timesheet.DefaultConfig(), nil, nil)
//	if _, err := svc.Parse(content); err != nil {
//		return err
//	}
//	result, err := svc.BuildTimesheets(ctx, timesheet.NewDateRange(start, end))
package timesheet

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"afd-timebank/internal/matcher"
	"afd-timebank/internal/models"
	"afd-timebank/internal/parsers"
	"afd-timebank/internal/timebank"
	"afd-timebank/pkg/errors"
	"afd-timebank/pkg/logger"

	"github.com/google/uuid"
	"github.com/sourcegraph/conc/pool"
	"github.com/spf13/afero"
)

// Config holds options for building timesheets
type Config struct {
	MaxConcurrency int  `mapstructure:"max_concurrency" json:"max_concurrency"`
	IncludeSundays bool `mapstructure:"include_sundays" json:"include_sundays"`
	MaxRangeDays   int  `mapstructure:"max_range_days" json:"max_range_days"`
}

// DefaultConfig returns the default service configuration
func DefaultConfig() *Config {
	return &Config{
		MaxConcurrency: 4,
		IncludeSundays: false,
		MaxRangeDays:   DefaultMaxRangeDays,
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.MaxConcurrency <= 0 {
		return fmt.Errorf("max concurrency must be positive, got %d", c.MaxConcurrency)
	}
	if c.MaxRangeDays < 0 {
		return fmt.Errorf("max range days cannot be negative, got %d", c.MaxRangeDays)
	}
	return nil
}

// Service keeps the state of one time-bank session. It is safe for
// concurrent use.
type Service struct {
	parser *parsers.AFDParser
	engine *matcher.Engine
	config *Config
	logger logger.Logger

	mu           sync.RWMutex
	schedules    *timebank.Schedules
	certificates map[string]bool
	adjustments  []Adjustment
	parsed       *ParseResult
}

// NewService creates a service. Nil configs fall back to their defaults.
func NewService(config *Config, parseConfig *parsers.ParseConfig, matchingConfig *matcher.MatchingConfig) (*Service, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, errors.ConfigurationError(errors.CodeInvalidConfig, "timesheet", config, err)
	}
	if parseConfig == nil {
		parseConfig = parsers.DefaultParseConfig()
	}
	if err := parseConfig.Validate(); err != nil {
		return nil, errors.ConfigurationError(errors.CodeInvalidConfig, "parser", parseConfig, err)
	}
	if matchingConfig == nil {
		matchingConfig = matcher.DefaultMatchingConfig()
	}
	if err := matchingConfig.Validate(); err != nil {
		return nil, errors.ConfigurationError(errors.CodeInvalidConfig, "matching", matchingConfig, err)
	}

	return &Service{
		parser:       parsers.NewAFDParser(parseConfig),
		engine:       matcher.NewEngine(matchingConfig),
		config:       config,
		logger:       logger.GetGlobalLogger().WithComponent("timesheet_service"),
		schedules:    timebank.NewSchedules(timebank.DefaultConfig()),
		certificates: make(map[string]bool),
	}, nil
}

// Parse extracts and resolves an AFD export held in memory. The previous
// parse result is replaced.
func (s *Service) Parse(content []byte) (*ParseResult, error) {
	extraction, err := s.parser.Parse(content)
	if err != nil {
		return nil, err
	}
	return s.resolve(extraction)
}

// ParseFile reads and parses an AFD export from fs
func (s *Service) ParseFile(fs afero.Fs, path string) (*ParseResult, error) {
	extraction, err := s.parser.ParseFile(fs, path)
	if err != nil {
		return nil, err
	}
	return s.resolve(extraction)
}

func (s *Service) resolve(extraction *parsers.Extraction) (*ParseResult, error) {
	matched, err := s.engine.Process(extraction)
	if err != nil {
		return nil, errors.WrapIfNeeded(err, errors.CategoryInternal, errors.CodeUnexpectedError, "matching failed")
	}

	parsed := &ParseResult{
		Employees: matched.Employees,
		Punches:   matched.Punches,
		Stats:     extraction.Stats,
		Resolve:   matched.Resolve,
		Bind:      matched.Bind,
	}

	s.mu.Lock()
	s.parsed = parsed
	s.mu.Unlock()

	s.logger.WithFields(logger.Fields{
		"employees":  len(parsed.Employees),
		"punches":    len(parsed.Punches),
		"unresolved": parsed.Bind.Unresolved,
	}).Info("AFD export resolved")

	return parsed, nil
}

// Parsed returns the current parse result, or nil before the first parse
func (s *Service) Parsed() *ParseResult {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.parsed
}

// Employees returns the resolved employees sorted by name
func (s *Service) Employees() []*models.Employee {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.parsed == nil {
		return nil
	}

	out := make([]*models.Employee, len(s.parsed.Employees))
	copy(out, s.parsed.Employees)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// FindEmployees filters employees by a case- and accent-insensitive name
// fragment or by any of their identifiers.
func (s *Service) FindEmployees(query string) []*models.Employee {
	all := s.Employees()
	query = strings.TrimSpace(query)
	if query == "" {
		return all
	}

	needle := matcher.NormalizeName(query)
	var out []*models.Employee
	for _, e := range all {
		if strings.Contains(matcher.NormalizeName(e.Name), needle) || e.HasIdentifier(query) {
			out = append(out, e)
		}
	}
	return out
}

// Employee looks an employee up by any of its identifiers
func (s *Service) Employee(id string) (*models.Employee, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.parsed == nil {
		return nil, false
	}
	for _, e := range s.parsed.Employees {
		if e.HasIdentifier(id) {
			return e, true
		}
	}
	return nil, false
}

// Configuration returns a copy of the default schedule
func (s *Service) Configuration() *timebank.Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.schedules.Default.Clone()
}

// UpdateConfiguration replaces the default schedule
func (s *Service) UpdateConfiguration(cfg *timebank.Config) error {
	if cfg == nil {
		return errors.ConfigurationError(errors.CodeMissingConfig, "schedule", nil, nil)
	}
	if err := cfg.Validate(); err != nil {
		return errors.ConfigurationError(errors.CodeInvalidConfig, "schedule", cfg.String(), err)
	}

	s.mu.Lock()
	s.schedules.Default = cfg.Clone()
	s.mu.Unlock()

	s.logger.WithField("schedule", cfg.String()).Info("default schedule updated")
	return nil
}

// SetEmployeeConfiguration overrides the schedule of one employee. A nil
// cfg removes the override.
func (s *Service) SetEmployeeConfiguration(employeeID string, cfg *timebank.Config) error {
	if employeeID == "" {
		return errors.ValidationError(errors.CodeMissingField, "employee", employeeID, nil)
	}
	if cfg != nil {
		if err := cfg.Validate(); err != nil {
			return errors.ConfigurationError(errors.CodeInvalidConfig, "schedule."+employeeID, cfg.String(), err)
		}
		cfg = cfg.Clone()
	}

	employeeID = s.canonicalID(employeeID)
	s.mu.Lock()
	s.schedules.Set(employeeID, cfg)
	s.mu.Unlock()
	return nil
}

// EffectiveConfiguration returns the schedule that applies to an employee
func (s *Service) EffectiveConfiguration(employeeID string) *timebank.Config {
	employeeID = s.canonicalID(employeeID)
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.schedules.For(employeeID).Clone()
}

// SetMedicalCertificate marks or clears the certificate of one day
func (s *Service) SetMedicalCertificate(employeeID string, date models.Date, delivered bool) {
	id := models.WorkDayID(s.canonicalID(employeeID), date)

	s.mu.Lock()
	defer s.mu.Unlock()
	if delivered {
		s.certificates[id] = true
	} else {
		delete(s.certificates, id)
	}
}

// HasMedicalCertificate reports whether a certificate was delivered for a day
func (s *Service) HasMedicalCertificate(employeeID string, date models.Date) bool {
	id := models.WorkDayID(s.canonicalID(employeeID), date)

	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.certificates[id]
}

// canonicalID maps an alternate identifier to the primary one. Unknown ids
// are returned unchanged so settings can be made before parsing.
func (s *Service) canonicalID(id string) string {
	if e, ok := s.Employee(id); ok {
		return e.ID
	}
	return id
}

// AddAdjustment records a manual punch edit to apply on every build
func (s *Service) AddAdjustment(adj Adjustment) error {
	if err := adj.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	s.adjustments = append(s.adjustments, adj)
	s.mu.Unlock()
	return nil
}

// BuildTimesheets expands the range into work days for every employee, or
// only for the given employee ids, and computes them. Days are computed
// concurrently per employee.
func (s *Service) BuildTimesheets(ctx context.Context, dateRange DateRange, employeeIDs ...string) (*Result, error) {
	op := logger.NewOperationLogger("build_timesheets", s.logger).
		WithField("range", dateRange.String())

	if err := dateRange.Validate(s.config.MaxRangeDays); err != nil {
		op.Error(err, "invalid date range")
		return nil, err
	}

	s.mu.RLock()
	parsed := s.parsed
	schedules := s.schedules.Clone()
	certificates := make(map[string]bool, len(s.certificates))
	for k, v := range s.certificates {
		certificates[k] = v
	}
	adjustments := append([]Adjustment(nil), s.adjustments...)
	s.mu.RUnlock()

	if parsed == nil || len(parsed.Employees) == 0 {
		err := nothingToCompute("no employees loaded")
		op.Error(err, "no employees")
		return nil, err
	}

	employees, err := selectEmployees(parsed.Employees, employeeIDs)
	if err != nil {
		op.Error(err, "unknown employee")
		return nil, err
	}

	dates := dateRange.Dates(s.config.IncludeSundays)
	punches := indexPunches(parsed.Punches, dateRange)
	op.WithField("employees", len(employees)).WithField("days", len(dates)).Step("expanding days")

	timesheets := make([]*Timesheet, len(employees))
	p := pool.New().WithContext(ctx).WithMaxGoroutines(s.config.MaxConcurrency).WithCancelOnError()
	for i, employee := range employees {
		p.Go(func(ctx context.Context) error {
			if err := ctx.Err(); err != nil {
				return err
			}
			cfg := schedules.For(employee.ID)
			ts := &Timesheet{Employee: employee, Schedule: cfg.String()}
			for _, date := range dates {
				day := models.NewWorkDay(employee, date)
				day.Punches = append(day.Punches, punches[punchKey{employee.ID, date}]...)
				day.MedicalCertificate = certificates[day.ID]
				timebank.ComputeDay(day, cfg)
				ts.Days = append(ts.Days, day)
			}
			for _, adj := range adjustments {
				if !employee.HasIdentifier(adj.EmployeeID) {
					continue
				}
				if day, ok := ts.Day(adj.Date); ok {
					applyEdit(day, adj.Index, adj.Value, cfg)
				}
			}
			ts.Recalculate()
			timesheets[i] = ts
			return nil
		})
	}
	if err := p.Wait(); err != nil {
		op.Error(err, "timesheet build interrupted")
		return nil, errors.WrapIfNeeded(err, errors.CategoryComputation, errors.CodeUnexpectedError, "timesheet build interrupted")
	}

	result := &Result{
		Range:             dateRange,
		Timesheets:        timesheets,
		UnresolvedPunches: unresolved(parsed.Punches),
		GeneratedAt:       time.Now(),
		ProcessingTime:    op.Elapsed(),
	}
	op.Success(fmt.Sprintf("built %d timesheets", len(timesheets)))
	return result, nil
}

// ComputeDay computes a day with the schedule of its employee
func (s *Service) ComputeDay(day *models.WorkDay) {
	timebank.ComputeDay(day, s.EffectiveConfiguration(day.EmployeeID))
}

// RecomputeDay is ComputeDay on a copy
func (s *Service) RecomputeDay(day *models.WorkDay) *models.WorkDay {
	out := day.Clone()
	s.ComputeDay(out)
	return out
}

// EditPunch edits the punch at index on a copy of day and recomputes it.
// An empty value deletes the punch, an existing index replaces its time and
// any other index appends a manual punch. A value that is neither empty nor
// a valid HH:MM leaves the day unchanged and returns an error.
func (s *Service) EditPunch(day *models.WorkDay, index int, value string) (*models.WorkDay, error) {
	if value != "" {
		if _, err := models.ParseClockTime(value); err != nil {
			return day, errors.ValidationError(errors.CodeInvalidTime, "punch", value, err)
		}
	}
	if index < 0 {
		return day, errors.ValidationError(errors.CodeOutOfRange, "index", index, nil)
	}

	out := day.Clone()
	applyEdit(out, index, value, s.EffectiveConfiguration(out.EmployeeID))
	return out, nil
}

// applyEdit assumes value is empty or a valid clock time
func applyEdit(day *models.WorkDay, index int, value string, cfg *timebank.Config) {
	switch {
	case value == "":
		if index < len(day.Punches) {
			day.Punches = append(day.Punches[:index], day.Punches[index+1:]...)
		}
	case index < len(day.Punches):
		day.Punches[index].Time = models.MustParseClockTime(value)
		day.Punches[index].Origin = models.OriginManual
	default:
		day.Punches = append(day.Punches, models.Punch{
			ID:             uuid.NewString(),
			SequenceNumber: models.ManualSequenceNumber,
			Identifier:     day.EmployeeID,
			EmployeeID:     day.EmployeeID,
			EmployeeName:   day.EmployeeName,
			Date:           day.Date,
			Time:           models.MustParseClockTime(value),
			Origin:         models.OriginManual,
		})
	}
	timebank.ComputeDay(day, cfg)
}

type punchKey struct {
	employeeID string
	date       models.Date
}

func indexPunches(punches []models.Punch, dateRange DateRange) map[punchKey][]models.Punch {
	out := make(map[punchKey][]models.Punch)
	for _, p := range punches {
		if !p.IsResolved() || !dateRange.Contains(p.Date) {
			continue
		}
		key := punchKey{p.EmployeeID, p.Date}
		out[key] = append(out[key], p)
	}
	return out
}

func selectEmployees(all []*models.Employee, ids []string) ([]*models.Employee, error) {
	if len(ids) == 0 {
		return all, nil
	}

	var out []*models.Employee
	for _, id := range ids {
		found := false
		for _, e := range all {
			if e.HasIdentifier(id) {
				out = append(out, e)
				found = true
				break
			}
		}
		if !found {
			return nil, errors.ComputationError(errors.CodeUnknownEmployee, "build timesheets", nil).
				WithContext("employee", id)
		}
	}
	return out, nil
}

func unresolved(punches []models.Punch) []models.Punch {
	var out []models.Punch
	for _, p := range punches {
		if !p.IsResolved() {
			out = append(out, p)
		}
	}
	return out
}
