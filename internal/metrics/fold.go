// ABOUTME: Pure folding of ended sessions into per-day rollups.
// ABOUTME: Sums are additive; average fatigue is a running mean over sessions.
package metrics

import (
	"github.com/harperreed/drivewatch/internal/models"
)

// Fold merges an ended session into the rollup for its end date. existing may be nil.
// The returned value is a new rollup; existing is not modified.
func Fold(existing *models.DailyMetrics, s *models.DrivingSession) (*models.DailyMetrics, error) {
	if s.EndedAt == nil {
		return nil, models.NewValidationError("session", "session %s has not ended", s.ID)
	}

	var m models.DailyMetrics
	if existing != nil {
		m = *existing
	} else {
		m = *models.NewDailyMetrics(s.DriverID, *s.EndedAt)
	}

	n := float64(m.SessionCount)
	m.AvgFatigue = (m.AvgFatigue*n + s.AvgFatigue) / (n + 1)
	m.SessionCount++
	m.Hours += s.DurationHours
	m.DistanceKm += s.DistanceKm
	if s.MaxFatigue > m.MaxFatigue {
		m.MaxFatigue = s.MaxFatigue
	}
	m.AlertCount += s.AlertCount
	m.BreakCount += s.BreaksTaken

	return &m, nil
}
