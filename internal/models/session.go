// ABOUTME: DrivingSession model for a single trip from start to end.
// ABOUTME: Tracks running fatigue aggregates while active and duration once ended.
package models

import (
	"time"

	"github.com/google/uuid"
)

// DrivingSession represents one driving trip.
type DrivingSession struct {
	ID              uuid.UUID  `json:"id" yaml:"id"`
	DriverID        uuid.UUID  `json:"driver_id" yaml:"driver_id"`
	StartedAt       time.Time  `json:"started_at" yaml:"started_at"`
	EndedAt         *time.Time `json:"ended_at,omitempty" yaml:"ended_at,omitempty"`
	DurationHours   float64    `json:"duration_hours" yaml:"duration_hours"`
	StartLocation   string     `json:"start_location,omitempty" yaml:"start_location,omitempty"`
	EndLocation     string     `json:"end_location,omitempty" yaml:"end_location,omitempty"`
	Weather         string     `json:"weather,omitempty" yaml:"weather,omitempty"`
	RoadConditions  string     `json:"road_conditions,omitempty" yaml:"road_conditions,omitempty"`
	DistanceKm      float64    `json:"distance_km" yaml:"distance_km"`
	AvgFatigue      float64    `json:"avg_fatigue" yaml:"avg_fatigue"`
	MaxFatigue      int        `json:"max_fatigue" yaml:"max_fatigue"`
	AssessmentCount int        `json:"assessment_count" yaml:"assessment_count"`
	AlertCount      int        `json:"alert_count" yaml:"alert_count"`
	BreaksTaken     int        `json:"breaks_taken" yaml:"breaks_taken"`
}

// NewDrivingSession creates an active session starting now.
func NewDrivingSession(driverID uuid.UUID) *DrivingSession {
	return &DrivingSession{
		ID:        uuid.New(),
		DriverID:  driverID,
		StartedAt: time.Now().UTC(),
	}
}

// WithStartLocation sets where the trip began.
func (s *DrivingSession) WithStartLocation(loc string) *DrivingSession {
	s.StartLocation = loc
	return s
}

// WithConditions sets weather and road conditions at the start of the trip.
func (s *DrivingSession) WithConditions(weather, road string) *DrivingSession {
	s.Weather = weather
	s.RoadConditions = road
	return s
}

// WithStartedAt sets a custom start timestamp.
func (s *DrivingSession) WithStartedAt(t time.Time) *DrivingSession {
	s.StartedAt = t.UTC()
	return s
}

// IsActive reports whether the session has not ended yet.
func (s *DrivingSession) IsActive() bool {
	return s.EndedAt == nil
}

// ObserveFatigue folds one assessment into the running aggregates.
func (s *DrivingSession) ObserveFatigue(level int, alertSent bool) {
	n := float64(s.AssessmentCount)
	s.AvgFatigue = (s.AvgFatigue*n + float64(level)) / (n + 1)
	s.AssessmentCount++
	if level > s.MaxFatigue {
		s.MaxFatigue = level
	}
	if alertSent {
		s.AlertCount++
	}
}

// ElapsedHours returns hours since start, up to the end time if ended.
func (s *DrivingSession) ElapsedHours(now time.Time) float64 {
	end := now
	if s.EndedAt != nil {
		end = *s.EndedAt
	}
	h := end.Sub(s.StartedAt).Hours()
	if h < 0 {
		return 0
	}
	return h
}

// Finish stamps the end time and computes the duration.
func (s *DrivingSession) Finish(at time.Time) {
	end := at.UTC()
	s.EndedAt = &end
	s.DurationHours = s.ElapsedHours(end)
}
