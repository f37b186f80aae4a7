package timebank

import (
	"sort"

	"afd-timebank/internal/models"
)

// ComputeDay fills the derived fields of day in place. Punches are sorted by
// time first. A nil cfg uses DefaultConfig.
func ComputeDay(day *models.WorkDay, cfg *Config) {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	reset(day)
	if day.Weekday == "" {
		day.Weekday = day.Date.Weekday().String()
	}

	if day.MedicalCertificate {
		day.Observations = append(day.Observations, models.MedicalCertificateNote)
		return
	}

	weekend := day.Date.IsWeekend()
	quota := 0
	if !weekend {
		quota = cfg.DailyQuota.Minutes()
	}
	day.ExpectedMinutes = quota

	sort.SliceStable(day.Punches, func(i, j int) bool {
		return day.Punches[i].Time < day.Punches[j].Time
	})

	if len(day.Punches) == 0 {
		if !weekend {
			day.Notices = DetectNotices(day.Date, day.Punches, cfg)
			day.LatenessMinutes = quota
			day.BalanceMinutes = -quota
		}
		return
	}

	day.Notices = DetectNotices(day.Date, day.Punches, cfg)
	day.WorkedMinutes = WorkedMinutes(day.Punches)

	if cfg.LunchRequired && len(day.Punches) >= 4 {
		day.LunchMinutes = models.Span(day.Punches[1].Time, day.Punches[2].Time)
	}

	balance := day.WorkedMinutes - quota
	day.BalanceMinutes = balance

	switch {
	case balance > cfg.Tolerance:
		day.OvertimeMinutes = balance
	case balance < -cfg.Tolerance:
		day.LatenessMinutes = -balance
	case cfg.ToleranceAbsorbsBalance:
		day.BalanceMinutes = 0
	}

	n := len(day.Punches)
	if !weekend && n%2 == 0 {
		last := day.Punches[n-1].Time
		if last < cfg.ExitTime && balance < -cfg.Tolerance {
			day.EarlyDepartureMinutes = min(int(cfg.ExitTime-last), -balance)
		}
	}
}

// WorkedMinutes sums (entry, exit) pairs of sorted punches. An exit earlier
// than its entry crosses midnight. A trailing unpaired punch is ignored.
func WorkedMinutes(punches []models.Punch) int {
	total := 0
	for i := 0; i+1 < len(punches); i += 2 {
		total += models.Span(punches[i].Time, punches[i+1].Time)
	}
	return total
}

// reset clears everything ComputeDay derives. Caller supplied observations
// other than the certificate note are kept.
func reset(day *models.WorkDay) {
	day.Notices = nil
	day.WorkedMinutes = 0
	day.LunchMinutes = 0
	day.ExpectedMinutes = 0
	day.BalanceMinutes = 0
	day.OvertimeMinutes = 0
	day.LatenessMinutes = 0
	day.EarlyDepartureMinutes = 0

	var kept []string
	for _, o := range day.Observations {
		if o != models.MedicalCertificateNote {
			kept = append(kept, o)
		}
	}
	day.Observations = kept
}
