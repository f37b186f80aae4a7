// Package config turns viper state (flags, config file, environment) into the
// typed configurations the timebank packages expect.
//
// A config file may carry these sections:
//
//	schedule:       default working schedule
//	employees:      schedule overrides keyed by employee identifier
//	certificates:   list of {employee, date} medical certificates
//	adjustments:    list of {employee, date, index, value} punch edits
//	matching:       identity resolution tuning
//	parsing:        AFD decoding options
//	service:        timesheet build options
//	server:         HTTP server options
//	log:            logger options
//
// Times of day are written as "HH:MM" and dates as YYYY-MM-DD or DD/MM/YYYY.
package config

import (
	"fmt"
	"reflect"
	"sort"
	"strings"

	"afd-timebank/internal/matcher"
	"afd-timebank/internal/models"
	"afd-timebank/internal/parsers"
	"afd-timebank/internal/reporter"
	"afd-timebank/internal/server"
	"afd-timebank/internal/timebank"
	"afd-timebank/internal/timesheet"
	"afd-timebank/pkg/errors"
	"afd-timebank/pkg/logger"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/cast"
	"github.com/spf13/viper"
)

// Certificate marks one day of one employee as excused
type Certificate struct {
	EmployeeID string
	Date       models.Date
}

var clockTimeType = reflect.TypeOf(models.ClockTime(0))

// ClockTimeHookFunc decodes "HH:MM" strings into models.ClockTime. Integers
// are taken as minutes since midnight.
func ClockTimeHookFunc() mapstructure.DecodeHookFuncType {
	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to != clockTimeType {
			return data, nil
		}
		switch from.Kind() {
		case reflect.String:
			return models.ParseClockTime(data.(string))
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
			reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Float64:
			minutes, err := cast.ToIntE(data)
			if err != nil {
				return nil, err
			}
			c := models.ClockTime(minutes)
			if !c.IsValid() {
				return nil, fmt.Errorf("%w: %d minutes", models.ErrInvalidClockTime, minutes)
			}
			return c, nil
		}
		return data, nil
	}
}

// DecodeHook is the hook chain used for every section
func DecodeHook() mapstructure.DecodeHookFunc {
	return mapstructure.ComposeDecodeHookFunc(
		ClockTimeHookFunc(),
		mapstructure.TextUnmarshallerHookFunc(),
		mapstructure.StringToTimeDurationHookFunc(),
	)
}

// decode decodes a loose section value into result
func decode(input interface{}, result interface{}) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       DecodeHook(),
		WeaklyTypedInput: true,
		Result:           result,
	})
	if err != nil {
		return err
	}
	return decoder.Decode(input)
}

func unmarshalKey(v *viper.Viper, key string, result interface{}) error {
	if !v.IsSet(key) {
		return nil
	}
	if err := v.UnmarshalKey(key, result, viper.DecodeHook(DecodeHook())); err != nil {
		return errors.ConfigurationError(errors.CodeInvalidConfig, key, v.Get(key), err)
	}
	return nil
}

// CreateParseConfig creates the AFD parsing configuration
func CreateParseConfig(v *viper.Viper) (*parsers.ParseConfig, error) {
	config := parsers.DefaultParseConfig()
	if err := unmarshalKey(v, "parsing", config); err != nil {
		return nil, err
	}
	if err := config.Validate(); err != nil {
		return nil, errors.ConfigurationError(errors.CodeInvalidConfig, "parsing", config, err)
	}
	return config, nil
}

// CreateMatchingConfig creates the identity resolution configuration
func CreateMatchingConfig(v *viper.Viper) (*matcher.MatchingConfig, error) {
	config := matcher.DefaultMatchingConfig()
	if err := unmarshalKey(v, "matching", config); err != nil {
		return nil, err
	}
	if err := config.Validate(); err != nil {
		return nil, errors.ConfigurationError(errors.CodeInvalidConfig, "matching", config.String(), err)
	}
	return config, nil
}

// CreateServiceConfig creates the timesheet service configuration. Flags
// bound to "include-sundays" and "max-concurrency" win over the file.
func CreateServiceConfig(v *viper.Viper) (*timesheet.Config, error) {
	config := timesheet.DefaultConfig()
	if err := unmarshalKey(v, "service", config); err != nil {
		return nil, err
	}

	if v.IsSet("include-sundays") {
		config.IncludeSundays = v.GetBool("include-sundays")
	}
	if v.IsSet("max-concurrency") {
		config.MaxConcurrency = v.GetInt("max-concurrency")
	}

	if err := config.Validate(); err != nil {
		return nil, errors.ConfigurationError(errors.CodeInvalidConfig, "service", config, err)
	}
	return config, nil
}

// CreateScheduleConfig creates the default working schedule
func CreateScheduleConfig(v *viper.Viper) (*timebank.Config, error) {
	config := timebank.DefaultConfig()
	if err := unmarshalKey(v, "schedule", config); err != nil {
		return nil, err
	}
	if err := config.Validate(); err != nil {
		return nil, errors.ConfigurationError(errors.CodeInvalidConfig, "schedule", config.String(), err).
			WithSuggestion("Times use HH:MM and lunch_start must come before lunch_end")
	}
	return config, nil
}

// CreateEmployeeOverrides decodes the employees section. Each override
// starts from base, so a section only needs the fields that differ.
func CreateEmployeeOverrides(v *viper.Viper, base *timebank.Config) (map[string]*timebank.Config, error) {
	overrides := make(map[string]*timebank.Config)
	if !v.IsSet("employees") {
		return overrides, nil
	}

	sections, err := cast.ToStringMapE(v.Get("employees"))
	if err != nil {
		return nil, errors.ConfigurationError(errors.CodeInvalidConfig, "employees", v.Get("employees"), err)
	}

	for id, section := range sections {
		key := "employees." + id
		config := base.Clone()
		if err := decode(section, config); err != nil {
			return nil, errors.ConfigurationError(errors.CodeInvalidConfig, key, section, err)
		}
		if err := config.Validate(); err != nil {
			return nil, errors.ConfigurationError(errors.CodeInvalidConfig, key, config.String(), err)
		}
		overrides[strings.TrimSpace(id)] = config
	}
	return overrides, nil
}

// CreateCertificates decodes the certificates section
func CreateCertificates(v *viper.Viper) ([]Certificate, error) {
	if !v.IsSet("certificates") {
		return nil, nil
	}

	items, err := cast.ToSliceE(v.Get("certificates"))
	if err != nil {
		return nil, errors.ConfigurationError(errors.CodeInvalidConfig, "certificates", v.Get("certificates"), err)
	}

	certificates := make([]Certificate, 0, len(items))
	for i, item := range items {
		key := fmt.Sprintf("certificates[%d]", i)
		fields, err := cast.ToStringMapE(item)
		if err != nil {
			return nil, errors.ConfigurationError(errors.CodeInvalidConfig, key, item, err)
		}

		employee := strings.TrimSpace(cast.ToString(fields["employee"]))
		if employee == "" {
			return nil, errors.ValidationError(errors.CodeMissingField, key+".employee", item, nil)
		}
		date, err := models.ParseDate(cast.ToString(fields["date"]))
		if err != nil {
			return nil, errors.ValidationError(errors.CodeInvalidDate, key+".date", fields["date"], err)
		}

		certificates = append(certificates, Certificate{EmployeeID: employee, Date: date})
	}
	return certificates, nil
}

// CreateAdjustments decodes and validates the adjustments section. Every
// invalid entry is reported in a single ErrorSummary.
func CreateAdjustments(v *viper.Viper) ([]timesheet.Adjustment, error) {
	var adjustments []timesheet.Adjustment
	if err := unmarshalKey(v, "adjustments", &adjustments); err != nil {
		return nil, err
	}

	var invalid []*errors.AppError
	for i, adj := range adjustments {
		if err := adj.Validate(); err != nil {
			appErr := errors.WrapIfNeeded(err, errors.CategoryValidation, errors.CodeUnexpectedError, "invalid adjustment")
			invalid = append(invalid, appErr.WithContext("adjustment", i))
		}
	}
	if len(invalid) > 0 {
		return nil, errors.NewErrorSummary(invalid)
	}
	return adjustments, nil
}

// CreateReportConfig creates a report configuration for the specified output format
func CreateReportConfig(format string) *reporter.ReportConfig {
	config := reporter.DefaultReportConfig()
	config.Format = reporter.OutputFormat(strings.ToLower(format))

	switch config.Format {
	case reporter.FormatConsole:
		config.IncludeDays = true
		config.IncludeUnresolved = true
	case reporter.FormatJSON, reporter.FormatYAML:
		config.IncludeDays = true
		config.IncludeUnresolved = true
		config.IncludeEmptyEmployee = true
	case reporter.FormatCSV:
		config.CSVHeaders = true
		config.CSVDelimiter = ','
		config.IncludeUnresolved = false
	case reporter.FormatXLSX:
		config.IncludeEmptyEmployee = false
	}

	return config
}

// CreateServerConfig creates the HTTP server configuration. The "address"
// flag wins over the file.
func CreateServerConfig(v *viper.Viper) (*server.Config, error) {
	config := server.DefaultConfig()
	if err := unmarshalKey(v, "server", config); err != nil {
		return nil, err
	}
	if addr := v.GetString("address"); addr != "" {
		config.Address = addr
	}
	if err := config.Validate(); err != nil {
		return nil, errors.ConfigurationError(errors.CodeInvalidConfig, "server", config, err)
	}
	return config, nil
}

// CreateLoggerConfig creates the logger configuration. Verbose forces the
// debug level.
func CreateLoggerConfig(v *viper.Viper) (*logger.Config, error) {
	config := logger.DefaultConfig()
	if err := unmarshalKey(v, "log", config); err != nil {
		return nil, err
	}
	if format := v.GetString("log-format"); format != "" {
		config.Format = logger.Format(format)
	}
	if v.GetBool("verbose") {
		config.Level = logger.DebugLevel
	}
	if err := config.Validate(); err != nil {
		return nil, errors.ConfigurationError(errors.CodeInvalidConfig, "log", config, err)
	}
	return config, nil
}

// Apply installs overrides, certificates and adjustments on a service that
// has already parsed its input.
func Apply(svc *timesheet.Service, overrides map[string]*timebank.Config, certificates []Certificate, adjustments []timesheet.Adjustment) error {
	ids := make([]string, 0, len(overrides))
	for id := range overrides {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		if err := svc.SetEmployeeConfiguration(id, overrides[id]); err != nil {
			return err
		}
	}
	for _, cert := range certificates {
		svc.SetMedicalCertificate(cert.EmployeeID, cert.Date, true)
	}
	for _, adj := range adjustments {
		if err := svc.AddAdjustment(adj); err != nil {
			return err
		}
	}
	return nil
}
