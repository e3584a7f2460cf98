// ABOUTME: SessionManager owns the driving-session lifecycle and assessment recording.
// ABOUTME: Every write is one storage unit of work, serialized per driver.
package session

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/harperreed/drivewatch/internal/alert"
	"github.com/harperreed/drivewatch/internal/fatigue"
	"github.com/harperreed/drivewatch/internal/metrics"
	"github.com/harperreed/drivewatch/internal/models"
	"github.com/harperreed/drivewatch/internal/notify"
	"github.com/harperreed/drivewatch/internal/storage"
	"go.uber.org/zap"
)

// Manager applies session and assessment operations against a Repository.
type Manager struct {
	repo      storage.Repository
	publisher notify.Publisher
	logger    *zap.Logger
	now       func() time.Time

	locks sync.Map // uuid.UUID -> *sync.Mutex
}

// NewManager creates a manager. A nil publisher or logger disables that concern.
func NewManager(repo storage.Repository, publisher notify.Publisher, logger *zap.Logger) *Manager {
	if publisher == nil {
		publisher = notify.Nop{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		repo:      repo,
		publisher: publisher,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// WithClock overrides the time source.
func (m *Manager) WithClock(now func() time.Time) *Manager {
	m.now = func() time.Time { return now().UTC() }
	return m
}

// lock serializes writes for one driver. Different drivers never contend.
func (m *Manager) lock(driverID uuid.UUID) func() {
	v, _ := m.locks.LoadOrStore(driverID, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

// StartRequest describes a new driving session.
type StartRequest struct {
	Location       string `json:"location"`
	Weather        string `json:"weather"`
	RoadConditions string `json:"road_conditions"`
}

// StartSession opens a session and marks the driver active.
func (m *Manager) StartSession(ctx context.Context, driverID uuid.UUID, req StartRequest) (*models.DrivingSession, error) {
	unlock := m.lock(driverID)
	defer unlock()

	var s *models.DrivingSession
	err := m.repo.Update(ctx, func(tx storage.Tx) error {
		d, err := tx.GetDriver(driverID)
		if err != nil {
			return err
		}

		if _, err := tx.ActiveSession(driverID); err == nil {
			return fmt.Errorf("driver %s already has an active session: %w", d.Username, models.ErrConflict)
		} else if !errors.Is(err, models.ErrNotFound) {
			return err
		}

		s = models.NewDrivingSession(driverID).
			WithStartLocation(req.Location).
			WithConditions(req.Weather, req.RoadConditions).
			WithStartedAt(m.now())
		if err := tx.CreateSession(s); err != nil {
			return err
		}

		d.Status = models.StatusActive
		return tx.UpdateDriver(d)
	})
	if err != nil {
		return nil, m.fail("start session", driverID, err)
	}

	m.logger.Info("session started",
		zap.String("driver_id", driverID.String()),
		zap.String("session_id", s.ID.String()),
		zap.String("location", req.Location))
	return s, nil
}

// Result is the outcome of recording a health record.
type Result struct {
	Driver  *models.Driver         `json:"driver"`
	Record  *models.HealthRecord   `json:"record"`
	Session *models.DrivingSession `json:"session,omitempty"`
}

// RecordAssessment scores a telemetry sample and persists it with the driver and session updates.
func (m *Manager) RecordAssessment(ctx context.Context, driverID uuid.UUID, sample models.Sample) (*Result, error) {
	if sample.HeadPosition == "" {
		sample.HeadPosition = models.HeadNormal
	}
	if _, err := models.ParseDriverResponse(string(sample.Response)); err != nil {
		return nil, err
	}
	score, err := fatigue.Score(sample)
	if err != nil {
		return nil, err
	}
	outcome := alert.Evaluate(score, alert.Context{HoursDriven: sample.HoursDriven, Yawn: sample.YawnDetected})

	rec := models.NewHealthRecord(driverID, models.KindDrowsiness).
		WithSample(sample).
		WithOutcome(score, outcome.Tier, outcome.Recommendation)

	return m.record(ctx, "record assessment", rec, func(s *models.DrivingSession) {
		s.ObserveFatigue(score, rec.AlertSent)
		if sample.Response == models.ResponseTookBreak {
			s.BreaksTaken++
		}
	})
}

// HealthUpdate is a manual self-report from the driver.
type HealthUpdate struct {
	SleepHours     *float64 `json:"sleep_hours,omitempty"`
	TirednessLevel int      `json:"tiredness_level"`
	HoursSinceRest *float64 `json:"hours_since_rest,omitempty"`
	Notes          string   `json:"notes,omitempty"`
}

// MaxTiredness is the top of the self-reported tiredness scale.
const MaxTiredness = 10

// Validate checks the self-reported ranges.
func (u HealthUpdate) Validate() error {
	if u.TirednessLevel < 0 || u.TirednessLevel > MaxTiredness {
		return models.NewValidationError("tiredness_level", "must be between 0 and %d, got %d", MaxTiredness, u.TirednessLevel)
	}
	if u.SleepHours != nil && (math.IsNaN(*u.SleepHours) || *u.SleepHours < 0 || *u.SleepHours > 24) {
		return models.NewValidationError("sleep_hours", "must be between 0 and 24, got %v", *u.SleepHours)
	}
	if u.HoursSinceRest != nil && (math.IsNaN(*u.HoursSinceRest) || *u.HoursSinceRest < 0) {
		return models.NewValidationError("hours_since_rest", "must not be negative, got %v", *u.HoursSinceRest)
	}
	return nil
}

// RecordHealthUpdate converts tiredness to a fatigue level and records it like an assessment.
func (m *Manager) RecordHealthUpdate(ctx context.Context, driverID uuid.UUID, u HealthUpdate) (*Result, error) {
	if err := u.Validate(); err != nil {
		return nil, err
	}

	level := fatigue.Clamp(float64(u.TirednessLevel * 10))
	var hours float64
	if u.HoursSinceRest != nil {
		hours = *u.HoursSinceRest
	}
	outcome := alert.Evaluate(level, alert.Context{HoursDriven: hours})

	rec := models.NewHealthRecord(driverID, models.KindHealthUpdate).
		WithOutcome(level, outcome.Tier, outcome.Recommendation).
		WithNotes(u.Notes)
	tiredness := u.TirednessLevel
	rec.TirednessLevel = &tiredness
	rec.SleepHours = u.SleepHours
	rec.HoursSinceRest = u.HoursSinceRest

	return m.record(ctx, "record health update", rec, func(s *models.DrivingSession) {
		s.ObserveFatigue(level, rec.AlertSent)
	})
}

// ReportEmergency records a driver-initiated emergency. It always alerts.
func (m *Manager) ReportEmergency(ctx context.Context, driverID uuid.UUID, note string) (*Result, error) {
	rec := models.NewHealthRecord(driverID, models.KindEmergency).
		WithNotes(note)

	return m.record(ctx, "report emergency", rec, func(s *models.DrivingSession) {
		s.AlertCount++
	})
}

// record persists rec and applies it to the driver and any active session in one unit of work.
// The timestamp is taken under the driver lock so records commit in timestamp order.
// Emergency records take the driver's current fatigue inside the transaction.
func (m *Manager) record(ctx context.Context, op string, rec *models.HealthRecord, observe func(*models.DrivingSession)) (*Result, error) {
	driverID := rec.DriverID
	unlock := m.lock(driverID)
	defer unlock()

	rec.RecordedAt = m.now()

	res := &Result{Record: rec}
	err := m.repo.Update(ctx, func(tx storage.Tx) error {
		d, err := tx.GetDriver(driverID)
		if err != nil {
			return err
		}

		if rec.Kind == models.KindEmergency {
			rec.FatigueLevel = d.FatigueLevel
			rec.Tier = models.TierCritical
			rec.Recommendation = alert.EmergencyRecommendation
			rec.AlertSent = true
		}

		if err := tx.CreateHealthRecord(rec); err != nil {
			return err
		}

		d.ApplyFatigue(rec.FatigueLevel, rec.Tier, rec.RecordedAt)
		if err := tx.UpdateDriver(d); err != nil {
			return err
		}
		res.Driver = d

		s, err := tx.ActiveSession(driverID)
		if errors.Is(err, models.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		observe(s)
		if err := tx.UpdateSession(s); err != nil {
			return err
		}
		res.Session = s
		return nil
	})
	if err != nil {
		return nil, m.fail(op, driverID, err)
	}

	fields := []zap.Field{
		zap.String("driver_id", driverID.String()),
		zap.String("record_id", rec.ID.String()),
		zap.String("kind", string(rec.Kind)),
		zap.Int("fatigue_level", rec.FatigueLevel),
		zap.String("tier", string(rec.Tier)),
	}
	if rec.AlertSent {
		m.logger.Warn("fatigue alert raised", fields...)
		m.publish(ctx, res.Driver, rec)
	} else {
		m.logger.Debug("health record stored", fields...)
	}
	return res, nil
}

// Summary carries optional client-computed session aggregates. Non-nil fields override the server values.
type Summary struct {
	AvgFatigue *float64 `json:"average_fatigue,omitempty"`
	MaxFatigue *int     `json:"max_fatigue,omitempty"`
	Alerts     *int     `json:"total_alerts,omitempty"`
	Breaks     *int     `json:"breaks_taken,omitempty"`
}

// Validate checks summary ranges.
func (s Summary) Validate() error {
	if s.AvgFatigue != nil && (math.IsNaN(*s.AvgFatigue) || *s.AvgFatigue < fatigue.MinScore || *s.AvgFatigue > fatigue.MaxScore) {
		return models.NewValidationError("average_fatigue", "must be between 0 and 100, got %v", *s.AvgFatigue)
	}
	if s.MaxFatigue != nil && (*s.MaxFatigue < fatigue.MinScore || *s.MaxFatigue > fatigue.MaxScore) {
		return models.NewValidationError("max_fatigue", "must be between 0 and 100, got %d", *s.MaxFatigue)
	}
	if s.Alerts != nil && *s.Alerts < 0 {
		return models.NewValidationError("total_alerts", "must not be negative, got %d", *s.Alerts)
	}
	if s.Breaks != nil && *s.Breaks < 0 {
		return models.NewValidationError("breaks_taken", "must not be negative, got %d", *s.Breaks)
	}
	return nil
}

func (s Summary) apply(ds *models.DrivingSession) {
	if s.AvgFatigue != nil {
		ds.AvgFatigue = *s.AvgFatigue
	}
	if s.MaxFatigue != nil {
		ds.MaxFatigue = *s.MaxFatigue
	}
	if s.Alerts != nil {
		ds.AlertCount = *s.Alerts
	}
	if s.Breaks != nil {
		ds.BreaksTaken = *s.Breaks
	}
}

// EndRequest closes a session.
type EndRequest struct {
	Location   string  `json:"location"`
	DistanceKm float64 `json:"distance_km"`
	Summary    Summary `json:"summary"`
}

// Validate checks the request before anything is persisted.
func (r EndRequest) Validate() error {
	if math.IsNaN(r.DistanceKm) || math.IsInf(r.DistanceKm, 0) || r.DistanceKm < 0 {
		return models.NewValidationError("distance_km", "must not be negative, got %v", r.DistanceKm)
	}
	return r.Summary.Validate()
}

// EndResult is the closed session with the driver and day it updated.
type EndResult struct {
	Session *models.DrivingSession `json:"session"`
	Driver  *models.Driver         `json:"driver"`
	Daily   *models.DailyMetrics   `json:"daily_metrics"`
}

// EndSession closes the driver's session, credits its hours, and folds it into the day.
// A session that is unknown, already ended, or owned by another driver is not found.
func (m *Manager) EndSession(ctx context.Context, driverID, sessionID uuid.UUID, req EndRequest) (*EndResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	unlock := m.lock(driverID)
	defer unlock()

	res := &EndResult{}
	err := m.repo.Update(ctx, func(tx storage.Tx) error {
		s, err := tx.GetSession(sessionID)
		if err != nil {
			return err
		}
		if s.DriverID != driverID || !s.IsActive() {
			return fmt.Errorf("active session %s for driver %s: %w", sessionID, driverID, models.ErrNotFound)
		}

		d, err := tx.GetDriver(driverID)
		if err != nil {
			return err
		}

		s.Finish(m.now())
		s.EndLocation = req.Location
		s.DistanceKm = req.DistanceKm
		req.Summary.apply(s)
		if err := tx.UpdateSession(s); err != nil {
			return err
		}

		d.TotalHours += s.DurationHours
		d.Status = models.StatusIdle
		if err := tx.UpdateDriver(d); err != nil {
			return err
		}

		daily, err := metrics.FoldSessionTx(tx, s)
		if err != nil {
			return err
		}

		res.Session, res.Driver, res.Daily = s, d, daily
		return nil
	})
	if err != nil {
		return nil, m.fail("end session", driverID, err)
	}

	m.logger.Info("session ended",
		zap.String("driver_id", driverID.String()),
		zap.String("session_id", sessionID.String()),
		zap.Float64("duration_hours", res.Session.DurationHours),
		zap.Float64("distance_km", res.Session.DistanceKm))
	return res, nil
}

func (m *Manager) publish(ctx context.Context, d *models.Driver, rec *models.HealthRecord) {
	if err := m.publisher.Publish(ctx, models.NewAlertEvent(d, rec)); err != nil {
		m.logger.Error("failed to publish alert",
			zap.String("driver_id", rec.DriverID.String()),
			zap.String("record_id", rec.ID.String()),
			zap.Error(err))
	}
}

// fail converts err to its public form, logging the cause of storage failures.
func (m *Manager) fail(op string, driverID uuid.UUID, err error) error {
	wrapped := models.WrapStorage(op, err)
	if models.IsStorage(wrapped) {
		m.logger.Error("storage failure",
			zap.String("op", op),
			zap.String("driver_id", driverID.String()),
			zap.Error(err))
	}
	return wrapped
}
