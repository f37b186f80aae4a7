// Package timebank computes worked time, anomalies and the signed time-bank
// balance of a single work day.
//
// Computation is a pure function of the day's punches, its medical
// certificate flag and the effective schedule. Every call starts from a
// clean slate, so callers may edit punches and recompute as often as they
// like.
package timebank

import (
	"fmt"

	"go.uber.org/multierr"

	"afd-timebank/internal/models"
)

const maxToleranceMinutes = 24 * 60

// Config is the working schedule a day is measured against
type Config struct {
	EntryTime     models.ClockTime `mapstructure:"entry_time" json:"entryTime" yaml:"entryTime"`
	ExitTime      models.ClockTime `mapstructure:"exit_time" json:"exitTime" yaml:"exitTime"`
	LunchStart    models.ClockTime `mapstructure:"lunch_start" json:"lunchStart" yaml:"lunchStart"`
	LunchEnd      models.ClockTime `mapstructure:"lunch_end" json:"lunchEnd" yaml:"lunchEnd"`

	// Tolerance is the margin in minutes before a balance counts as overtime
	// or lateness. Zero is a real setting meaning no margin; it does not fall
	// back to the default of 10.
	Tolerance int `mapstructure:"tolerance" json:"tolerance" yaml:"tolerance"`

	DailyQuota    models.ClockTime `mapstructure:"daily_quota" json:"dailyQuota" yaml:"dailyQuota"`
	LunchRequired bool             `mapstructure:"lunch_required" json:"lunchRequired" yaml:"lunchRequired"`

	// ToleranceAbsorbsBalance zeroes the stored balance when its magnitude
	// is within Tolerance. Off by default: the signed balance is kept.
	ToleranceAbsorbsBalance bool `mapstructure:"tolerance_absorbs_balance" json:"toleranceAbsorbsBalance" yaml:"toleranceAbsorbsBalance"`
}

// DefaultConfig returns a 44 hour week: 08:00 to 17:48 with a one hour lunch
func DefaultConfig() *Config {
	return &Config{
		EntryTime:     models.NewClockTime(8, 0),
		ExitTime:      models.NewClockTime(17, 48),
		LunchStart:    models.NewClockTime(12, 0),
		LunchEnd:      models.NewClockTime(13, 0),
		Tolerance:     10,
		DailyQuota:    models.NewClockTime(8, 48),
		LunchRequired: true,
	}
}

// Validate reports every invalid field at once
func (c *Config) Validate() error {
	var err error

	for name, value := range map[string]models.ClockTime{
		"entry_time":  c.EntryTime,
		"exit_time":   c.ExitTime,
		"lunch_start": c.LunchStart,
		"lunch_end":   c.LunchEnd,
		"daily_quota": c.DailyQuota,
	} {
		if !value.IsValid() {
			err = multierr.Append(err, fmt.Errorf("%s must be between 00:00 and 23:59", name))
		}
	}

	if c.LunchRequired && c.LunchStart >= c.LunchEnd {
		err = multierr.Append(err, fmt.Errorf("lunch_start (%s) must be before lunch_end (%s)", c.LunchStart, c.LunchEnd))
	}
	if c.Tolerance < 0 || c.Tolerance >= maxToleranceMinutes {
		err = multierr.Append(err, fmt.Errorf("tolerance must be between 0 and %d minutes, got %d", maxToleranceMinutes-1, c.Tolerance))
	}

	return err
}

// Clone returns a copy of the configuration
func (c *Config) Clone() *Config {
	clone := *c
	return &clone
}

func (c *Config) String() string {
	return fmt.Sprintf("Config{Entry: %s, Exit: %s, Lunch: %s-%s, Tolerance: %d, Quota: %s, LunchRequired: %t, ToleranceAbsorbsBalance: %t}",
		c.EntryTime, c.ExitTime, c.LunchStart, c.LunchEnd, c.Tolerance, c.DailyQuota, c.LunchRequired, c.ToleranceAbsorbsBalance)
}

// Schedules holds the default configuration and per-employee overrides
type Schedules struct {
	Default     *Config
	PerEmployee map[string]*Config
}

// NewSchedules creates schedules around def. A nil def uses DefaultConfig.
func NewSchedules(def *Config) *Schedules {
	if def == nil {
		def = DefaultConfig()
	}
	return &Schedules{Default: def, PerEmployee: make(map[string]*Config)}
}

// For returns the effective configuration for an employee
func (s *Schedules) For(employeeID string) *Config {
	if c, ok := s.PerEmployee[employeeID]; ok && c != nil {
		return c
	}
	return s.Default
}

// Set installs an override. A nil config removes it.
func (s *Schedules) Set(employeeID string, c *Config) {
	if c == nil {
		delete(s.PerEmployee, employeeID)
		return
	}
	s.PerEmployee[employeeID] = c
}

// Clone returns a deep copy
func (s *Schedules) Clone() *Schedules {
	clone := NewSchedules(s.Default.Clone())
	for id, c := range s.PerEmployee {
		clone.PerEmployee[id] = c.Clone()
	}
	return clone
}
