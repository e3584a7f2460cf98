// ABOUTME: DailyMetrics model, the per-driver per-day rollup of ended sessions.
// ABOUTME: Days are UTC calendar days.
package models

import (
	"time"

	"github.com/google/uuid"
)

// DateLayout is the storage and display format for metric days.
const DateLayout = "2006-01-02"

// DailyMetrics aggregates a driver's sessions for one day.
type DailyMetrics struct {
	DriverID     uuid.UUID `json:"driver_id" yaml:"driver_id"`
	Date         time.Time `json:"date" yaml:"date"`
	Hours        float64   `json:"driving_hours" yaml:"driving_hours"`
	DistanceKm   float64   `json:"distance_km" yaml:"distance_km"`
	SessionCount int       `json:"sessions_count" yaml:"sessions_count"`
	AvgFatigue   float64   `json:"average_fatigue" yaml:"average_fatigue"`
	MaxFatigue   int       `json:"max_fatigue" yaml:"max_fatigue"`
	AlertCount   int       `json:"total_alerts" yaml:"total_alerts"`
	BreakCount   int       `json:"total_breaks" yaml:"total_breaks"`
}

// NewDailyMetrics creates an empty rollup for the day containing t.
func NewDailyMetrics(driverID uuid.UUID, t time.Time) *DailyMetrics {
	return &DailyMetrics{DriverID: driverID, Date: DayOf(t)}
}

// DayOf truncates t to midnight UTC.
func DayOf(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}
