package models

import (
	"encoding/json"
	"errors"
	"testing"
	"time"
)

func TestParseClockTime(t *testing.T) {
	tests := []struct {
		input   string
		want    ClockTime
		wantErr bool
	}{
		{"08:00", 480, false},
		{"8:05", 485, false},
		{"23:59", 1439, false},
		{"00:00", 0, false},
		{" 12:30 ", 750, false},
		{"24:00", 0, true},
		{"12:60", 0, true},
		{"1230", 0, true},
		{"", 0, true},
		{"ab:cd", 0, true},
		{"123:00", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseClockTime(tt.input)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidClockTime) {
					t.Errorf("expected ErrInvalidClockTime, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("expected %d, got %d", tt.want, got)
			}
		})
	}
}

func TestClockTimeString(t *testing.T) {
	if got := NewClockTime(7, 5).String(); got != "07:05" {
		t.Errorf("expected 07:05, got %s", got)
	}
	if got := MustParseClockTime("17:48").Minutes(); got != 1068 {
		t.Errorf("expected 1068, got %d", got)
	}
}

func TestSpan(t *testing.T) {
	tests := []struct {
		start, end string
		want       int
	}{
		{"08:00", "12:00", 240},
		{"22:00", "02:00", 240},
		{"10:00", "10:00", 0},
	}

	for _, tt := range tests {
		got := Span(MustParseClockTime(tt.start), MustParseClockTime(tt.end))
		if got != tt.want {
			t.Errorf("Span(%s, %s) = %d, want %d", tt.start, tt.end, got, tt.want)
		}
	}
}

func TestParseDate(t *testing.T) {
	tests := []struct {
		input   string
		want    Date
		wantErr bool
	}{
		{"2024-03-05", NewDate(2024, 3, 5), false},
		{"05/03/2024", NewDate(2024, 3, 5), false},
		{"2024-13-01", Date{}, true},
		{"yesterday", Date{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseDate(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("expected error=%v, got %v", tt.wantErr, err)
			}
			if got != tt.want {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestDateHelpers(t *testing.T) {
	d := NewDate(2024, 3, 5)

	if d.String() != "05/03/2024" {
		t.Errorf("unexpected String: %s", d.String())
	}
	if d.ISO() != "2024-03-05" {
		t.Errorf("unexpected ISO: %s", d.ISO())
	}
	if d.Weekday() != time.Tuesday {
		t.Errorf("expected Tuesday, got %s", d.Weekday())
	}
	if d.IsWeekend() {
		t.Error("Tuesday is not a weekend")
	}
	if !NewDate(2024, 3, 9).IsWeekend() || !NewDate(2024, 3, 10).IsWeekend() {
		t.Error("expected Saturday and Sunday to be weekend")
	}
	if got := NewDate(2024, 2, 28).AddDays(2); got != NewDate(2024, 3, 1) {
		t.Errorf("expected 01/03/2024, got %s", got)
	}
	if got := d.DaysUntil(NewDate(2024, 4, 5)); got != 31 {
		t.Errorf("expected 31 days, got %d", got)
	}
	if !d.Before(d.AddDays(1)) || d.Before(d) {
		t.Error("unexpected Before result")
	}
}

func TestEmployeeAlternates(t *testing.T) {
	e := NewEmployee("0001234567", "MARIA DAS NEVES")
	e.AddAlternate("0001234567")
	e.AddAlternate("0001234568")
	e.AddAlternate("0001234568")
	e.AddAlternate("")

	if len(e.AlternateIDs) != 1 {
		t.Fatalf("expected 1 alternate, got %v", e.AlternateIDs)
	}
	if !e.HasIdentifier("0001234567") || !e.HasIdentifier("0001234568") {
		t.Error("expected both identifiers to match")
	}
	if e.HasIdentifier("9999999999") {
		t.Error("unexpected identifier match")
	}
	if ids := e.Identifiers(); len(ids) != 2 || ids[0] != e.ID {
		t.Errorf("unexpected identifiers: %v", ids)
	}
}

func TestFormatMinutes(t *testing.T) {
	tests := []struct {
		minutes int
		want    string
	}{
		{0, "00:00"},
		{527, "08:47"},
		{-1, "-00:01"},
		{-528, "-08:48"},
		{1500, "25:00"},
	}

	for _, tt := range tests {
		if got := FormatMinutes(tt.minutes); got != tt.want {
			t.Errorf("FormatMinutes(%d) = %s, want %s", tt.minutes, got, tt.want)
		}
	}
}

func TestMinutesToHours(t *testing.T) {
	if got := MinutesToHours(527).String(); got != "8.78" {
		t.Errorf("expected 8.78, got %s", got)
	}
	if got := MinutesToHours(-90).String(); got != "-1.5" {
		t.Errorf("expected -1.5, got %s", got)
	}
}

func TestWorkDayJSON(t *testing.T) {
	e := NewEmployee("0001234567", "MARIA")
	day := NewWorkDay(e, NewDate(2024, 3, 5))
	day.Punches = []Punch{{SequenceNumber: "1", Time: NewClockTime(8, 0), Date: day.Date}}

	data, err := json.Marshal(day)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var decoded map[string]interface{}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if decoded["id"] != "0001234567-05/03/2024" {
		t.Errorf("unexpected id: %v", decoded["id"])
	}
	if decoded["date"] != "05/03/2024" {
		t.Errorf("unexpected date: %v", decoded["date"])
	}
	if decoded["weekday"] != "Tuesday" {
		t.Errorf("unexpected weekday: %v", decoded["weekday"])
	}
	punch := decoded["punches"].([]interface{})[0].(map[string]interface{})
	if punch["time"] != "08:00" {
		t.Errorf("unexpected punch time: %v", punch["time"])
	}
}

func TestWorkDayClone(t *testing.T) {
	day := &WorkDay{Punches: []Punch{{Time: 1}}, Observations: []string{"x"}}
	clone := day.Clone()
	clone.Punches[0].Time = 2
	clone.Observations[0] = "y"

	if day.Punches[0].Time != 1 || day.Observations[0] != "x" {
		t.Error("clone shares storage with the original")
	}
}
