// ABOUTME: DrivingSession CRUD operations for SQL storage.
// ABOUTME: A partial unique index enforces one open session per driver.
package storage

import (
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/harperreed/drivewatch/internal/models"
)

const sessionColumns = `id, driver_id, started_at, ended_at, duration_hours, start_location, end_location,
	weather, road_conditions, distance_km, avg_fatigue, max_fatigue, assessment_count, alert_count, breaks_taken`

// CreateSession stores a new session. A second open session for the same driver is a conflict.
func (t *sqlTx) CreateSession(s *models.DrivingSession) error {
	query := `
		INSERT INTO sessions (` + sessionColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := t.exec(query,
		s.ID.String(),
		s.DriverID.String(),
		formatTime(s.StartedAt),
		nullTime(s.EndedAt),
		s.DurationHours,
		s.StartLocation,
		s.EndLocation,
		s.Weather,
		s.RoadConditions,
		s.DistanceKm,
		s.AvgFatigue,
		s.MaxFatigue,
		s.AssessmentCount,
		s.AlertCount,
		s.BreaksTaken,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("create session: %w", models.ErrConflict)
		}
		return fmt.Errorf("create session: %w", err)
	}
	return nil
}

// UpdateSession overwrites a session's mutable fields.
func (t *sqlTx) UpdateSession(s *models.DrivingSession) error {
	query := `
		UPDATE sessions SET
			ended_at = ?, duration_hours = ?, end_location = ?, distance_km = ?, avg_fatigue = ?,
			max_fatigue = ?, assessment_count = ?, alert_count = ?, breaks_taken = ?
		WHERE id = ?
	`
	return t.execOne("update session", query,
		nullTime(s.EndedAt),
		s.DurationHours,
		s.EndLocation,
		s.DistanceKm,
		s.AvgFatigue,
		s.MaxFatigue,
		s.AssessmentCount,
		s.AlertCount,
		s.BreaksTaken,
		s.ID.String(),
	)
}

// GetSession retrieves a session by ID.
func (t *sqlTx) GetSession(id uuid.UUID) (*models.DrivingSession, error) {
	row := t.queryRow(`SELECT `+sessionColumns+` FROM sessions WHERE id = ?`, id.String())
	s, err := scanSession(row)
	if err != nil {
		return nil, notFound("session "+id.String(), err)
	}
	return s, nil
}

// ActiveSession returns the driver's open session.
func (t *sqlTx) ActiveSession(driverID uuid.UUID) (*models.DrivingSession, error) {
	row := t.queryRow(`SELECT `+sessionColumns+` FROM sessions WHERE driver_id = ? AND ended_at IS NULL`,
		driverID.String())
	s, err := scanSession(row)
	if err != nil {
		return nil, notFound("active session", err)
	}
	return s, nil
}

// ListSessions returns a driver's sessions, most recent first.
func (t *sqlTx) ListSessions(driverID uuid.UUID, limit int) ([]*models.DrivingSession, error) {
	query := `
		SELECT ` + sessionColumns + `
		FROM sessions
		WHERE driver_id = ?
		ORDER BY started_at DESC, id DESC
	`
	args := []any{driverID.String()}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := t.query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []*models.DrivingSession
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		sessions = append(sessions, s)
	}
	return sessions, rows.Err()
}

func scanSession(row rowScanner) (*models.DrivingSession, error) {
	var s models.DrivingSession
	var idStr, driverIDStr, startedAt string
	var endedAt sql.NullString

	err := row.Scan(&idStr, &driverIDStr, &startedAt, &endedAt, &s.DurationHours, &s.StartLocation,
		&s.EndLocation, &s.Weather, &s.RoadConditions, &s.DistanceKm, &s.AvgFatigue, &s.MaxFatigue,
		&s.AssessmentCount, &s.AlertCount, &s.BreaksTaken)
	if err != nil {
		return nil, err
	}

	s.ID, _ = uuid.Parse(idStr)
	s.DriverID, _ = uuid.Parse(driverIDStr)
	s.StartedAt = parseTime(startedAt)
	if endedAt.Valid {
		ts := parseTime(endedAt.String)
		s.EndedAt = &ts
	}
	return &s, nil
}
