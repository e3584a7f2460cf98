// ABOUTME: Window summaries and weekly health recommendations.
// ABOUTME: Thresholds: fatigue 70, 40 hours per week, more than 5 alerts per week.
package metrics

import (
	"github.com/harperreed/drivewatch/internal/models"
)

const (
	HighFatigueLevel  = 70
	WeeklyHoursLimit  = 40.0
	WeeklyAlertsLimit = 5
)

// Summary totals a window of daily rollups.
type Summary struct {
	Hours      float64 `json:"driving_hours"`
	DistanceKm float64 `json:"distance_km"`
	Alerts     int     `json:"alerts"`
	AvgFatigue float64 `json:"average_fatigue"`
	Sessions   int     `json:"sessions_count"`
	DaysActive int     `json:"days_active"`
}

// Summarize totals days. Average fatigue is the mean of the daily averages.
func Summarize(days []*models.DailyMetrics) Summary {
	var s Summary
	var fatigueSum float64
	for _, m := range days {
		s.Hours += m.Hours
		s.DistanceKm += m.DistanceKm
		s.Alerts += m.AlertCount
		s.Sessions += m.SessionCount
		fatigueSum += m.AvgFatigue
	}
	s.DaysActive = len(days)
	if s.DaysActive > 0 {
		s.AvgFatigue = fatigueSum / float64(s.DaysActive)
	}
	return s
}

// Recommendations advises a driver from their current state and the past week.
func Recommendations(d *models.Driver, week []*models.DailyMetrics) []string {
	var recs []string
	sum := Summarize(week)

	if d.FatigueLevel >= HighFatigueLevel {
		recs = append(recs, "Your fatigue level is high. Take a longer break before driving again.")
	}
	if sum.Hours > WeeklyHoursLimit {
		recs = append(recs, "You've driven more than 40 hours this week. Consider resting more.")
	}
	if sum.Alerts > WeeklyAlertsLimit {
		recs = append(recs, "You've received multiple drowsiness alerts. Get more rest between drives.")
	}
	if len(recs) == 0 {
		recs = append(recs, "You're doing great! Continue maintaining your healthy driving habits.")
	}
	return recs
}
