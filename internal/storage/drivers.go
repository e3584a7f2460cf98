// ABOUTME: Driver CRUD operations for SQL storage.
// ABOUTME: Resolves drivers by full UUID, username, or unique ID prefix.
package storage

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/harperreed/drivewatch/internal/models"
)

const driverColumns = `id, username, full_name, email, phone, license_number, vehicle_type,
	registered_at, total_hours, fatigue_level, last_assessment_at, status, health_status`

// CreateDriver stores a new driver.
func (t *sqlTx) CreateDriver(d *models.Driver) error {
	query := `
		INSERT INTO drivers (` + driverColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := t.exec(query,
		d.ID.String(),
		d.Username,
		d.FullName,
		d.Email,
		d.Phone,
		nullString(d.LicenseNumber),
		string(d.VehicleType),
		formatTime(d.RegisteredAt),
		d.TotalHours,
		d.FatigueLevel,
		nullTime(d.LastAssessmentAt),
		string(d.Status),
		string(d.HealthStatus),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("create driver: %w", models.ErrConflict)
		}
		return fmt.Errorf("create driver: %w", err)
	}
	return nil
}

// UpdateDriver overwrites a driver's mutable state.
func (t *sqlTx) UpdateDriver(d *models.Driver) error {
	query := `
		UPDATE drivers SET
			username = ?, full_name = ?, email = ?, phone = ?, license_number = ?, vehicle_type = ?,
			total_hours = ?, fatigue_level = ?, last_assessment_at = ?, status = ?, health_status = ?
		WHERE id = ?
	`
	return t.execOne("update driver", query,
		d.Username,
		d.FullName,
		d.Email,
		d.Phone,
		nullString(d.LicenseNumber),
		string(d.VehicleType),
		d.TotalHours,
		d.FatigueLevel,
		nullTime(d.LastAssessmentAt),
		string(d.Status),
		string(d.HealthStatus),
		d.ID.String(),
	)
}

// GetDriver retrieves a driver by ID.
func (t *sqlTx) GetDriver(id uuid.UUID) (*models.Driver, error) {
	row := t.queryRow(`SELECT `+driverColumns+` FROM drivers WHERE id = ?`, id.String())
	d, err := scanDriver(row)
	if err != nil {
		return nil, notFound("driver "+id.String(), err)
	}
	return d, nil
}

// ResolveDriver finds a driver by full UUID, exact username, or ID prefix.
func (t *sqlTx) ResolveDriver(ref string) (*models.Driver, error) {
	if id, err := uuid.Parse(ref); err == nil {
		return t.GetDriver(id)
	}

	row := t.queryRow(`SELECT `+driverColumns+` FROM drivers WHERE username = ?`, ref)
	d, err := scanDriver(row)
	if err == nil {
		return d, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("scan driver: %w", err)
	}

	id, err := t.resolvePrefix("drivers", ref)
	if err != nil {
		return nil, err
	}
	return t.GetDriver(id)
}

// ListDrivers returns drivers ordered by username, optionally filtered by status.
func (t *sqlTx) ListDrivers(status *models.SessionStatus) ([]*models.Driver, error) {
	query := `SELECT ` + driverColumns + ` FROM drivers`
	var args []any
	if status != nil {
		query += ` WHERE status = ?`
		args = append(args, string(*status))
	}
	query += ` ORDER BY username ASC`

	rows, err := t.query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list drivers: %w", err)
	}
	defer rows.Close()

	var drivers []*models.Driver
	for rows.Next() {
		d, err := scanDriver(rows)
		if err != nil {
			return nil, fmt.Errorf("scan driver: %w", err)
		}
		drivers = append(drivers, d)
	}
	return drivers, rows.Err()
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanDriver(row rowScanner) (*models.Driver, error) {
	var d models.Driver
	var idStr, vehicle, registeredAt, status, health string
	var license, lastAssessment sql.NullString

	err := row.Scan(&idStr, &d.Username, &d.FullName, &d.Email, &d.Phone, &license, &vehicle,
		&registeredAt, &d.TotalHours, &d.FatigueLevel, &lastAssessment, &status, &health)
	if err != nil {
		return nil, err
	}

	d.ID, _ = uuid.Parse(idStr)
	d.VehicleType = models.VehicleType(vehicle)
	d.RegisteredAt = parseTime(registeredAt)
	d.Status = models.SessionStatus(status)
	d.HealthStatus = models.HealthStatus(health)
	if license.Valid {
		d.LicenseNumber = license.String
	}
	if lastAssessment.Valid {
		ts := parseTime(lastAssessment.String)
		d.LastAssessmentAt = &ts
	}
	return &d, nil
}
