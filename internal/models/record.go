// ABOUTME: HealthRecord model and telemetry enums for fatigue assessments.
// ABOUTME: Records are append-only; one is written per assessment, update, or emergency.
package models

import (
	"time"

	"github.com/google/uuid"
)

// AssessmentKind distinguishes how a health record was produced.
type AssessmentKind string

const (
	KindDrowsiness   AssessmentKind = "drowsiness"
	KindHealthUpdate AssessmentKind = "health_update"
	KindEmergency    AssessmentKind = "emergency"
)

// AllAssessmentKinds lists the accepted record kinds.
var AllAssessmentKinds = []AssessmentKind{KindDrowsiness, KindHealthUpdate, KindEmergency}

// ParseAssessmentKind validates a kind tag.
func ParseAssessmentKind(s string) (AssessmentKind, error) {
	for _, k := range AllAssessmentKinds {
		if string(k) == s {
			return k, nil
		}
	}
	return "", NewValidationError("assessment_kind", "unknown assessment kind %q", s)
}

// HeadPosition is the detected head pose.
type HeadPosition string

const (
	HeadNormal HeadPosition = "normal"
	HeadTilted HeadPosition = "tilted"
	HeadDown   HeadPosition = "down"
)

// ParseHeadPosition validates a head position tag. Empty means normal.
func ParseHeadPosition(s string) (HeadPosition, error) {
	switch HeadPosition(s) {
	case "", HeadNormal:
		return HeadNormal, nil
	case HeadTilted, HeadDown:
		return HeadPosition(s), nil
	}
	return "", NewValidationError("head_position", "unknown head position %q", s)
}

// DriverResponse is how the driver reacted to a recommendation.
type DriverResponse string

const (
	ResponseNone         DriverResponse = ""
	ResponseAcknowledged DriverResponse = "acknowledged"
	ResponseDismissed    DriverResponse = "dismissed"
	ResponseTookBreak    DriverResponse = "took_break"
)

// ParseDriverResponse validates a response tag. Empty is allowed.
func ParseDriverResponse(s string) (DriverResponse, error) {
	switch DriverResponse(s) {
	case ResponseNone, ResponseAcknowledged, ResponseDismissed, ResponseTookBreak:
		return DriverResponse(s), nil
	}
	return "", NewValidationError("driver_response", "unknown driver response %q", s)
}

// Sample is one telemetry snapshot from the driver's device.
type Sample struct {
	EyeClosurePct float64        `json:"eye_closure_pct" yaml:"eye_closure_pct"`
	BlinkFreq     float64        `json:"blink_frequency" yaml:"blink_frequency"`
	HeadPosition  HeadPosition   `json:"head_position" yaml:"head_position"`
	YawnDetected  bool           `json:"yawn_detected" yaml:"yawn_detected"`
	HoursDriven   float64        `json:"hours_driven" yaml:"hours_driven"`
	Response      DriverResponse `json:"driver_response,omitempty" yaml:"driver_response,omitempty"`
}

// HealthRecord is one persisted assessment event.
type HealthRecord struct {
	ID             uuid.UUID      `json:"id" yaml:"id"`
	DriverID       uuid.UUID      `json:"driver_id" yaml:"driver_id"`
	RecordedAt     time.Time      `json:"recorded_at" yaml:"recorded_at"`
	Kind           AssessmentKind `json:"kind" yaml:"kind"`
	Sample         *Sample        `json:"sample,omitempty" yaml:"sample,omitempty"`
	SleepHours     *float64       `json:"sleep_hours,omitempty" yaml:"sleep_hours,omitempty"`
	TirednessLevel *int           `json:"tiredness_level,omitempty" yaml:"tiredness_level,omitempty"`
	HoursSinceRest *float64       `json:"hours_since_rest,omitempty" yaml:"hours_since_rest,omitempty"`
	FatigueLevel   int            `json:"fatigue_level" yaml:"fatigue_level"`
	Tier           AlertTier      `json:"tier" yaml:"tier"`
	Recommendation string         `json:"recommendation" yaml:"recommendation"`
	AlertSent      bool           `json:"alert_sent" yaml:"alert_sent"`
	Notes          string         `json:"notes,omitempty" yaml:"notes,omitempty"`
}

// NewHealthRecord creates a record of the given kind timestamped now.
func NewHealthRecord(driverID uuid.UUID, kind AssessmentKind) *HealthRecord {
	return &HealthRecord{
		ID:         uuid.New(),
		DriverID:   driverID,
		RecordedAt: time.Now().UTC(),
		Kind:       kind,
	}
}

// WithSample attaches raw telemetry.
func (r *HealthRecord) WithSample(s Sample) *HealthRecord {
	r.Sample = &s
	return r
}

// WithOutcome sets the score and alert evaluation.
func (r *HealthRecord) WithOutcome(level int, tier AlertTier, recommendation string) *HealthRecord {
	r.FatigueLevel = level
	r.Tier = tier
	r.Recommendation = recommendation
	r.AlertSent = tier.SendsAlert()
	return r
}

// WithNotes sets free-text notes.
func (r *HealthRecord) WithNotes(notes string) *HealthRecord {
	r.Notes = notes
	return r
}

// WithRecordedAt sets a custom timestamp.
func (r *HealthRecord) WithRecordedAt(t time.Time) *HealthRecord {
	r.RecordedAt = t.UTC()
	return r
}

// AlertEvent is what gets published when a record has alert_sent set.
type AlertEvent struct {
	RecordID       uuid.UUID      `json:"record_id"`
	DriverID       uuid.UUID      `json:"driver_id"`
	Username       string         `json:"username"`
	Kind           AssessmentKind `json:"kind"`
	Tier           AlertTier      `json:"tier"`
	FatigueLevel   int            `json:"fatigue_level"`
	Recommendation string         `json:"recommendation"`
	RecordedAt     time.Time      `json:"recorded_at"`
}

// NewAlertEvent builds the published form of a record.
func NewAlertEvent(d *Driver, r *HealthRecord) AlertEvent {
	return AlertEvent{
		RecordID:       r.ID,
		DriverID:       r.DriverID,
		Username:       d.Username,
		Kind:           r.Kind,
		Tier:           r.Tier,
		FatigueLevel:   r.FatigueLevel,
		Recommendation: r.Recommendation,
		RecordedAt:     r.RecordedAt,
	}
}
