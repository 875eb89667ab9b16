package scheduler

import (
	"time"

	"leadflow/pkg/models"
)

const (
	dailyPeriod  = 24 * time.Hour
	weeklyPeriod = 7 * 24 * time.Hour
)

// IsDue reports whether a should run at now. Automations outside their
// start/end window are never due. A once automation is due until it has
// run; daily and weekly ones once strictly more than their period has
// elapsed since the last run, or since creation if they never ran.
func IsDue(a models.CampaignAutomation, now time.Time) bool {
	if now.Before(a.Schedule.StartDate) {
		return false
	}
	if a.Schedule.EndDate != nil && now.After(*a.Schedule.EndDate) {
		return false
	}

	if a.Schedule.Frequency == models.FrequencyOnce {
		return a.LastRunAt == nil
	}

	lastRun := a.CreatedAt
	if a.LastRunAt != nil {
		lastRun = *a.LastRunAt
	}
	elapsed := now.Sub(lastRun)

	switch a.Schedule.Frequency {
	case models.FrequencyDaily:
		return elapsed > dailyPeriod
	case models.FrequencyWeekly:
		return elapsed > weeklyPeriod
	default:
		return false
	}
}
