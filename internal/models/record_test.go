// ABOUTME: Tests for HealthRecord, telemetry enums, and daily metric helpers.
// ABOUTME: Covers tag parsing and outcome builders.
package models

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestParseEnums(t *testing.T) {
	if k, err := ParseAssessmentKind("emergency"); err != nil || k != KindEmergency {
		t.Errorf("ParseAssessmentKind(emergency) = %s, %v", k, err)
	}
	if _, err := ParseAssessmentKind("comprehensive"); !IsValidation(err) {
		t.Errorf("ParseAssessmentKind(comprehensive) err = %v, want validation", err)
	}

	if h, err := ParseHeadPosition(""); err != nil || h != HeadNormal {
		t.Errorf("ParseHeadPosition(\"\") = %s, %v", h, err)
	}
	if h, err := ParseHeadPosition("down"); err != nil || h != HeadDown {
		t.Errorf("ParseHeadPosition(down) = %s, %v", h, err)
	}
	if _, err := ParseHeadPosition("sideways"); !IsValidation(err) {
		t.Errorf("ParseHeadPosition(sideways) err = %v, want validation", err)
	}

	if r, err := ParseDriverResponse("took_break"); err != nil || r != ResponseTookBreak {
		t.Errorf("ParseDriverResponse(took_break) = %s, %v", r, err)
	}
	if _, err := ParseDriverResponse("ignored"); !IsValidation(err) {
		t.Errorf("ParseDriverResponse(ignored) err = %v, want validation", err)
	}
}

func TestHealthRecordOutcome(t *testing.T) {
	driverID := uuid.New()
	r := NewHealthRecord(driverID, KindDrowsiness).
		WithSample(Sample{EyeClosurePct: 10, HeadPosition: HeadDown}).
		WithOutcome(84, TierCritical, "pull over")

	if r.DriverID != driverID {
		t.Error("expected DriverID to match")
	}
	if !r.AlertSent {
		t.Error("expected AlertSent for critical tier")
	}
	if r.Sample == nil || r.Sample.HeadPosition != HeadDown {
		t.Errorf("Sample = %+v, want head down", r.Sample)
	}

	r.WithOutcome(30, TierInfo, "stay alert")
	if r.AlertSent {
		t.Error("expected AlertSent to be false for info tier")
	}
}

func TestNewAlertEvent(t *testing.T) {
	d := NewDriver("jdoe", "j@example.com", VehicleBus)
	r := NewHealthRecord(d.ID, KindEmergency).WithOutcome(50, TierCritical, "help")

	ev := NewAlertEvent(d, r)
	if ev.Username != "jdoe" || ev.RecordID != r.ID || ev.Tier != TierCritical {
		t.Errorf("unexpected event: %+v", ev)
	}
}

func TestDayOf(t *testing.T) {
	loc := time.FixedZone("UTC-5", -5*3600)
	in := time.Date(2025, 3, 1, 22, 30, 0, 0, loc)

	got := DayOf(in)
	want := time.Date(2025, 3, 2, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("DayOf = %v, want %v", got, want)
	}
}

func TestErrorKinds(t *testing.T) {
	ve := NewValidationError("eye_closure_pct", "must be between 0 and 100, got %v", 120.0)
	if ve.Error() != "invalid eye_closure_pct: must be between 0 and 100, got 120" {
		t.Errorf("ValidationError message = %q", ve.Error())
	}

	cause := errors.New("disk I/O error: /var/lib/db")
	se := &StorageError{Op: "end session", Err: cause}
	if se.Error() != "storage failure: end session" {
		t.Errorf("StorageError message = %q", se.Error())
	}
	if !errors.Is(se, cause) {
		t.Error("expected StorageError to unwrap to cause")
	}
	if !IsStorage(se) || IsValidation(se) {
		t.Error("error kind predicates mismatch")
	}
}
