package timebank

import (
	"fmt"
	"time"

	"afd-timebank/internal/models"
)

// DetectNotices returns the anomalies of a day. punches must be sorted.
// Sundays never have anomalies.
func DetectNotices(date models.Date, punches []models.Punch, cfg *Config) []models.Notice {
	weekday := date.Weekday()
	if weekday == time.Sunday {
		return nil
	}

	if len(punches) == 0 {
		return []models.Notice{{
			Kind:     models.NoticeIntegralAbsence,
			Expected: "full day",
			Reason:   "integral absence",
		}}
	}

	var notices []models.Notice

	if len(punches)%2 != 0 {
		notices = append(notices, models.Notice{
			Kind:     models.NoticeMissingExit,
			Expected: "---",
			Reason:   "odd punch count (missing exit)",
		})
	}

	if cfg.LunchRequired && weekday != time.Saturday && len(punches) == 2 {
		first, last := punches[0].Time, punches[1].Time
		if first < cfg.LunchStart && last > cfg.LunchEnd {
			notices = append(notices, models.Notice{
				Kind:     models.NoticeLunchNotRegistered,
				Expected: fmt.Sprintf("%s - %s", cfg.LunchStart, cfg.LunchEnd),
				Reason:   "lunch break not registered",
			})
		}
	}

	return notices
}
