package timesheet

import (
	"context"
	"testing"

	"afd-timebank/internal/models"
	"afd-timebank/internal/sample"
	"afd-timebank/internal/timebank"
	"afd-timebank/pkg/errors"

	"github.com/spf13/afero"
)

const (
	mariaID = "1234567890"
	joaoID  = "9876543210"
)

var (
	monday   = models.NewDate(2024, 3, 4)
	tuesday  = models.NewDate(2024, 3, 5)
	thursday = models.NewDate(2024, 3, 7)
	week     = NewDateRange(monday, models.NewDate(2024, 3, 10))
)

func weekExport() []byte {
	return sample.NewBuilder(models.NewDate(2024, 3, 1)).
		Header("ACME LTDA").
		Identity('I', "0"+mariaID, "MARIA DAS NEVES").
		Identity('I', "0"+joaoID, "JOAO DA SILVA").
		Punch("0"+mariaID, monday, "08:00", "12:00", "13:00", "17:48").
		Punch("0"+mariaID, tuesday, "13:00", "08:00", "17:00", "12:00").
		Bytes()
}

func newParsedService(t *testing.T) *Service {
	t.Helper()
	svc, err := NewService(DefaultConfig(), nil, nil)
	if err != nil {
		t.Fatalf("Failed to create service: %v", err)
	}
	if _, err := svc.Parse(weekExport()); err != nil {
		t.Fatalf("Failed to parse export: %v", err)
	}
	return svc
}

func buildWeek(t *testing.T, svc *Service) *Result {
	t.Helper()
	result, err := svc.BuildTimesheets(context.Background(), week)
	if err != nil {
		t.Fatalf("BuildTimesheets failed: %v", err)
	}
	return result
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr bool
	}{
		{"defaults", *DefaultConfig(), false},
		{"zero concurrency", Config{MaxConcurrency: 0}, true},
		{"negative range", Config{MaxConcurrency: 1, MaxRangeDays: -1}, true},
		{"unbounded range", Config{MaxConcurrency: 1}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestDateRange(t *testing.T) {
	dates := week.Dates(false)
	if len(dates) != 6 {
		t.Fatalf("expected 6 dates without Sunday, got %d", len(dates))
	}
	if dates[0] != monday || dates[5] != models.NewDate(2024, 3, 9) {
		t.Errorf("unexpected bounds: %v .. %v", dates[0], dates[5])
	}
	if got := len(week.Dates(true)); got != 7 {
		t.Errorf("expected 7 dates with Sunday, got %d", got)
	}

	tests := []struct {
		name    string
		r       DateRange
		maxDays int
		wantErr bool
	}{
		{"week", week, 730, false},
		{"single day", NewDateRange(monday, monday), 730, false},
		{"inverted", NewDateRange(tuesday, monday), 730, true},
		{"missing end", DateRange{Start: monday}, 730, true},
		{"exactly max", NewDateRange(monday, monday.AddDays(730)), 730, false},
		{"too long", NewDateRange(monday, monday.AddDays(731)), 730, true},
		{"unbounded", NewDateRange(monday, monday.AddDays(5000)), 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.r.Validate(tt.maxDays)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !IsNothingToCompute(err) {
				t.Errorf("expected ErrNothingToCompute, got %v", err)
			}
		})
	}
}

func TestBuildTimesheets(t *testing.T) {
	svc := newParsedService(t)
	result := buildWeek(t, svc)

	if len(result.Timesheets) != 2 {
		t.Fatalf("expected 2 timesheets, got %d", len(result.Timesheets))
	}
	if got := len(result.WithPunches()); got != 1 {
		t.Errorf("expected 1 timesheet with punches, got %d", got)
	}

	maria, ok := result.Timesheet(mariaID)
	if !ok {
		t.Fatal("expected a timesheet for MARIA")
	}
	if len(maria.Days) != 6 {
		t.Fatalf("expected 6 days, got %d", len(maria.Days))
	}

	mon, _ := maria.Day(monday)
	if mon.WorkedMinutes != 528 || mon.BalanceMinutes != 0 || mon.HasNotices() {
		t.Errorf("unexpected Monday: worked %d balance %d notices %v", mon.WorkedMinutes, mon.BalanceMinutes, mon.Notices)
	}

	tue, _ := maria.Day(tuesday)
	if got := tue.PunchTimes(); got[0] != "08:00" || got[3] != "17:00" {
		t.Errorf("expected punches sorted, got %v", got)
	}
	if tue.BalanceMinutes != -48 || tue.LatenessMinutes != 48 || tue.EarlyDepartureMinutes != 48 {
		t.Errorf("unexpected Tuesday: balance %d lateness %d early %d", tue.BalanceMinutes, tue.LatenessMinutes, tue.EarlyDepartureMinutes)
	}

	want := Totals{
		Days:                6,
		DaysWorked:          2,
		DaysWithOccurrences: 3,
		WorkedMinutes:       1008,
		ExpectedMinutes:     528 * 5,
		BalanceMinutes:      -48 - 3*528,
		LatenessMinutes:     48 + 3*528,
	}
	if maria.Totals != want {
		t.Errorf("totals = %+v, want %+v", maria.Totals, want)
	}
}

func TestBuildTimesheets_NothingToCompute(t *testing.T) {
	empty, err := NewService(nil, nil, nil)
	if err != nil {
		t.Fatalf("Failed to create service: %v", err)
	}

	blank, err := NewService(nil, nil, nil)
	if err != nil {
		t.Fatalf("Failed to create service: %v", err)
	}
	if _, err := blank.Parse([]byte("\r\n")); err != nil {
		t.Fatalf("blank export must parse, got %v", err)
	}

	tests := []struct {
		name string
		svc  *Service
		r    DateRange
	}{
		{"no export loaded", empty, week},
		{"blank export", blank, week},
		{"inverted range", newParsedService(t), NewDateRange(tuesday, monday)},
		{"range too long", newParsedService(t), NewDateRange(monday, monday.AddDays(800))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := tt.svc.BuildTimesheets(context.Background(), tt.r)
			if result != nil {
				t.Error("expected no result")
			}
			if !IsNothingToCompute(err) {
				t.Errorf("expected ErrNothingToCompute, got %v", err)
			}
			if !errors.IsCode(err, errors.CodeNothingToCompute) {
				t.Errorf("expected code %s, got %v", errors.CodeNothingToCompute, err)
			}
		})
	}
}

func TestBuildTimesheets_SelectedEmployees(t *testing.T) {
	svc := newParsedService(t)

	result, err := svc.BuildTimesheets(context.Background(), week, joaoID)
	if err != nil {
		t.Fatalf("BuildTimesheets failed: %v", err)
	}
	if len(result.Timesheets) != 1 || result.Timesheets[0].Employee.ID != joaoID {
		t.Fatalf("expected only JOAO, got %d timesheets", len(result.Timesheets))
	}

	_, err = svc.BuildTimesheets(context.Background(), week, "5555555555")
	if !errors.IsCode(err, errors.CodeUnknownEmployee) {
		t.Errorf("expected unknown employee error, got %v", err)
	}
}

func TestBuildTimesheets_Cancelled(t *testing.T) {
	svc := newParsedService(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := svc.BuildTimesheets(ctx, week); err == nil {
		t.Error("expected an error for a cancelled context")
	}
}

func TestMedicalCertificate(t *testing.T) {
	svc := newParsedService(t)
	svc.SetMedicalCertificate(mariaID, thursday, true)

	if !svc.HasMedicalCertificate(mariaID, thursday) {
		t.Fatal("expected certificate to be recorded")
	}

	maria, _ := buildWeek(t, svc).Timesheet(mariaID)
	thu, _ := maria.Day(thursday)
	if !thu.MedicalCertificate || thu.BalanceMinutes != 0 || thu.HasNotices() {
		t.Errorf("unexpected certificate day: %+v", thu)
	}
	if maria.Totals.DaysWorked != 3 || maria.Totals.DaysWithOccurrences != 2 || maria.Totals.Certificates != 1 {
		t.Errorf("unexpected totals: %+v", maria.Totals)
	}

	svc.SetMedicalCertificate(mariaID, thursday, false)
	if svc.HasMedicalCertificate(mariaID, thursday) {
		t.Error("expected certificate to be cleared")
	}
}

func TestEmployeeConfiguration(t *testing.T) {
	svc := newParsedService(t)

	short := timebank.DefaultConfig()
	short.DailyQuota = models.MustParseClockTime("08:00")
	if err := svc.SetEmployeeConfiguration(mariaID, short); err != nil {
		t.Fatalf("SetEmployeeConfiguration failed: %v", err)
	}

	if got := svc.EffectiveConfiguration(mariaID).DailyQuota; got != short.DailyQuota {
		t.Errorf("expected override quota, got %s", got)
	}
	if got := svc.EffectiveConfiguration(joaoID).DailyQuota; got != timebank.DefaultConfig().DailyQuota {
		t.Errorf("expected default quota for JOAO, got %s", got)
	}

	maria, _ := buildWeek(t, svc).Timesheet(mariaID)
	tue, _ := maria.Day(tuesday)
	if tue.BalanceMinutes != 0 {
		t.Errorf("expected balance 0 under the 08:00 quota, got %d", tue.BalanceMinutes)
	}

	invalid := timebank.DefaultConfig()
	invalid.Tolerance = -5
	if err := svc.SetEmployeeConfiguration(mariaID, invalid); err == nil {
		t.Error("expected invalid override to be rejected")
	}

	if err := svc.SetEmployeeConfiguration(mariaID, nil); err != nil {
		t.Fatalf("removing override failed: %v", err)
	}
	if got := svc.EffectiveConfiguration(mariaID).DailyQuota; got != timebank.DefaultConfig().DailyQuota {
		t.Errorf("expected default quota after removal, got %s", got)
	}
}

func TestUpdateConfiguration(t *testing.T) {
	svc := newParsedService(t)

	cfg := timebank.DefaultConfig()
	cfg.Tolerance = 60
	if err := svc.UpdateConfiguration(cfg); err != nil {
		t.Fatalf("UpdateConfiguration failed: %v", err)
	}
	cfg.Tolerance = 0
	if got := svc.Configuration().Tolerance; got != 60 {
		t.Errorf("expected stored copy to keep tolerance 60, got %d", got)
	}

	maria, _ := buildWeek(t, svc).Timesheet(mariaID)
	tue, _ := maria.Day(tuesday)
	if tue.LatenessMinutes != 0 || tue.EarlyDepartureMinutes != 0 {
		t.Errorf("expected -48 to be within tolerance, got lateness %d early %d", tue.LatenessMinutes, tue.EarlyDepartureMinutes)
	}

	if err := svc.UpdateConfiguration(nil); !errors.IsCode(err, errors.CodeMissingConfig) {
		t.Errorf("expected missing config error, got %v", err)
	}
}

func TestEditPunch(t *testing.T) {
	svc := newParsedService(t)
	maria, _ := buildWeek(t, svc).Timesheet(mariaID)
	mon, _ := maria.Day(monday)

	tests := []struct {
		name        string
		index       int
		value       string
		wantErr     bool
		wantTimes   int
		wantBalance int
		check       func(t *testing.T, day *models.WorkDay)
	}{
		{
			name: "invalid value", index: 0, value: "25:00", wantErr: true,
			wantTimes: 4, wantBalance: 0,
		},
		{
			name: "delete last punch", index: 3, value: "",
			wantTimes: 3, wantBalance: 240 - 528,
			check: func(t *testing.T, day *models.WorkDay) {
				if len(day.Notices) != 1 || day.Notices[0].Kind != models.NoticeMissingExit {
					t.Errorf("expected missing exit notice, got %v", day.Notices)
				}
			},
		},
		{
			name: "delete out of range", index: 7, value: "",
			wantTimes: 4, wantBalance: 0,
		},
		{
			name: "replace exit", index: 3, value: "18:48",
			wantTimes: 4, wantBalance: 60,
			check: func(t *testing.T, day *models.WorkDay) {
				if day.Punches[3].Origin != models.OriginManual {
					t.Errorf("expected manual origin, got %s", day.Punches[3].Origin)
				}
				if day.OvertimeMinutes != 60 {
					t.Errorf("expected 60 overtime, got %d", day.OvertimeMinutes)
				}
			},
		},
		{
			name: "append punch", index: 9, value: "18:00",
			wantTimes: 5, wantBalance: 240 + 288 - 528,
			check: func(t *testing.T, day *models.WorkDay) {
				last := day.Punches[4]
				if last.SequenceNumber != models.ManualSequenceNumber || last.EmployeeName != "MARIA DAS NEVES" || last.Date != monday {
					t.Errorf("unexpected appended punch: %+v", last)
				}
				if len(day.Notices) != 1 || day.Notices[0].Kind != models.NoticeMissingExit {
					t.Errorf("expected missing exit notice, got %v", day.Notices)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			edited, err := svc.EditPunch(mon, tt.index, tt.value)
			if (err != nil) != tt.wantErr {
				t.Fatalf("EditPunch() error = %v, wantErr %v", err, tt.wantErr)
			}
			if len(edited.Punches) != tt.wantTimes {
				t.Errorf("expected %d punches, got %d", tt.wantTimes, len(edited.Punches))
			}
			if edited.BalanceMinutes != tt.wantBalance {
				t.Errorf("expected balance %d, got %d", tt.wantBalance, edited.BalanceMinutes)
			}
			if tt.check != nil {
				tt.check(t, edited)
			}
			if len(mon.Punches) != 4 || mon.Punches[3].Time.String() != "17:48" {
				t.Errorf("original day was modified: %v", mon.PunchTimes())
			}
		})
	}
}

func TestAdjustments(t *testing.T) {
	svc := newParsedService(t)

	if err := svc.AddAdjustment(Adjustment{EmployeeID: mariaID, Date: tuesday, Index: 3, Value: "17:48"}); err != nil {
		t.Fatalf("AddAdjustment failed: %v", err)
	}
	if err := svc.AddAdjustment(Adjustment{EmployeeID: mariaID, Date: tuesday, Index: 0, Value: "8h"}); err == nil {
		t.Error("expected invalid adjustment to be rejected")
	}

	maria, _ := buildWeek(t, svc).Timesheet(mariaID)
	tue, _ := maria.Day(tuesday)
	if tue.BalanceMinutes != 0 || tue.Punches[3].Origin != models.OriginManual {
		t.Errorf("expected adjusted Tuesday, got balance %d punches %v", tue.BalanceMinutes, tue.PunchTimes())
	}
	if maria.Totals.BalanceMinutes != -3*528 {
		t.Errorf("expected totals to include the adjustment, got %d", maria.Totals.BalanceMinutes)
	}
}

func TestFindEmployees(t *testing.T) {
	svc := newParsedService(t)

	tests := []struct {
		query string
		want  []string
	}{
		{"", []string{joaoID, mariaID}},
		{"maria", []string{mariaID}},
		{"  joão ", []string{joaoID}},
		{mariaID, []string{mariaID}},
		{"PEDRO", nil},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			got := svc.FindEmployees(tt.query)
			if len(got) != len(tt.want) {
				t.Fatalf("expected %d employees, got %d", len(tt.want), len(got))
			}
			for i, e := range got {
				if e.ID != tt.want[i] {
					t.Errorf("position %d: expected %s, got %s", i, tt.want[i], e.ID)
				}
			}
		})
	}
}

func TestParseFile(t *testing.T) {
	fs := afero.NewMemMapFs()
	if err := afero.WriteFile(fs, "/data/AFD.txt", weekExport(), 0644); err != nil {
		t.Fatalf("Failed to write export: %v", err)
	}

	svc, _ := NewService(nil, nil, nil)
	parsed, err := svc.ParseFile(fs, "/data/AFD.txt")
	if err != nil {
		t.Fatalf("ParseFile failed: %v", err)
	}
	if len(parsed.Employees) != 2 || len(parsed.Punches) != 8 {
		t.Errorf("expected 2 employees and 8 punches, got %d and %d", len(parsed.Employees), len(parsed.Punches))
	}
	if svc.Parsed() != parsed {
		t.Error("expected the parse result to be kept")
	}

	if _, err := svc.ParseFile(fs, "/data/missing.txt"); !errors.IsCode(err, errors.CodeFileNotFound) {
		t.Errorf("expected file not found, got %v", err)
	}
}
