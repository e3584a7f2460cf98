// ABOUTME: HealthRecord operations for SQL storage.
// ABOUTME: Records are insert-only; telemetry columns are null for non-drowsiness kinds.
package storage

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/harperreed/drivewatch/internal/models"
)

const recordColumns = `id, driver_id, recorded_at, kind, eye_closure_pct, blink_frequency, head_position,
	yawn_detected, hours_driven, driver_response, sleep_hours, tiredness_level, hours_since_rest,
	fatigue_level, tier, recommendation, alert_sent, notes`

// CreateHealthRecord appends a health record.
func (t *sqlTx) CreateHealthRecord(r *models.HealthRecord) error {
	var eye, blink, hours sql.NullFloat64
	var head, response sql.NullString
	var yawn sql.NullInt64
	if r.Sample != nil {
		eye = sql.NullFloat64{Float64: r.Sample.EyeClosurePct, Valid: true}
		blink = sql.NullFloat64{Float64: r.Sample.BlinkFreq, Valid: true}
		hours = sql.NullFloat64{Float64: r.Sample.HoursDriven, Valid: true}
		head = sql.NullString{String: string(r.Sample.HeadPosition), Valid: true}
		yawn = sql.NullInt64{Int64: int64(boolToInt(r.Sample.YawnDetected)), Valid: true}
		response = nullString(string(r.Sample.Response))
	}

	var sleep, sinceRest sql.NullFloat64
	var tiredness sql.NullInt64
	if r.SleepHours != nil {
		sleep = sql.NullFloat64{Float64: *r.SleepHours, Valid: true}
	}
	if r.HoursSinceRest != nil {
		sinceRest = sql.NullFloat64{Float64: *r.HoursSinceRest, Valid: true}
	}
	if r.TirednessLevel != nil {
		tiredness = sql.NullInt64{Int64: int64(*r.TirednessLevel), Valid: true}
	}

	query := `
		INSERT INTO health_records (` + recordColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := t.exec(query,
		r.ID.String(),
		r.DriverID.String(),
		formatTime(r.RecordedAt),
		string(r.Kind),
		eye, blink, head, yawn, hours, response,
		sleep, tiredness, sinceRest,
		r.FatigueLevel,
		string(r.Tier),
		r.Recommendation,
		boolToInt(r.AlertSent),
		r.Notes,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("create health record: %w", models.ErrConflict)
		}
		return fmt.Errorf("create health record: %w", err)
	}
	return nil
}

// ListHealthRecords returns a driver's records, most recent first.
func (t *sqlTx) ListHealthRecords(driverID uuid.UUID, limit int) ([]*models.HealthRecord, error) {
	query := `
		SELECT ` + recordColumns + `
		FROM health_records
		WHERE driver_id = ?
		ORDER BY recorded_at DESC, id DESC
	`
	args := []any{driverID.String()}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	return t.listRecords(query, args...)
}

// ListAlerts returns records with alert_sent set at or after since, most recent first.
func (t *sqlTx) ListAlerts(since time.Time, limit int) ([]*models.HealthRecord, error) {
	query := `
		SELECT ` + recordColumns + `
		FROM health_records
		WHERE alert_sent = 1 AND recorded_at >= ?
		ORDER BY recorded_at DESC, id DESC
	`
	args := []any{formatTime(since)}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	return t.listRecords(query, args...)
}

func (t *sqlTx) listRecords(query string, args ...any) ([]*models.HealthRecord, error) {
	rows, err := t.query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list health records: %w", err)
	}
	defer rows.Close()

	var records []*models.HealthRecord
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan health record: %w", err)
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

func scanRecord(row rowScanner) (*models.HealthRecord, error) {
	var r models.HealthRecord
	var idStr, driverIDStr, recordedAt, kind, tier string
	var eye, blink, hours, sleep, sinceRest sql.NullFloat64
	var head, response sql.NullString
	var yawn, tiredness sql.NullInt64
	var alertSent int

	err := row.Scan(&idStr, &driverIDStr, &recordedAt, &kind, &eye, &blink, &head, &yawn, &hours,
		&response, &sleep, &tiredness, &sinceRest, &r.FatigueLevel, &tier, &r.Recommendation,
		&alertSent, &r.Notes)
	if err != nil {
		return nil, err
	}

	r.ID, _ = uuid.Parse(idStr)
	r.DriverID, _ = uuid.Parse(driverIDStr)
	r.RecordedAt = parseTime(recordedAt)
	r.Kind = models.AssessmentKind(kind)
	r.Tier = models.AlertTier(tier)
	r.AlertSent = alertSent != 0

	if eye.Valid {
		r.Sample = &models.Sample{
			EyeClosurePct: eye.Float64,
			BlinkFreq:     blink.Float64,
			HeadPosition:  models.HeadPosition(head.String),
			YawnDetected:  yawn.Int64 != 0,
			HoursDriven:   hours.Float64,
			Response:      models.DriverResponse(response.String),
		}
	}
	if sleep.Valid {
		v := sleep.Float64
		r.SleepHours = &v
	}
	if sinceRest.Valid {
		v := sinceRest.Float64
		r.HoursSinceRest = &v
	}
	if tiredness.Valid {
		v := int(tiredness.Int64)
		r.TirednessLevel = &v
	}
	return &r, nil
}
