// ABOUTME: DailyMetrics upsert and range queries for SQL storage.
// ABOUTME: One row per driver per UTC day, keyed by (driver_id, date).
package storage

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/harperreed/drivewatch/internal/models"
)

const dailyColumns = `driver_id, date, hours, distance_km, session_count, avg_fatigue, max_fatigue,
	alert_count, break_count`

// GetDailyMetrics returns the rollup for one day.
func (t *sqlTx) GetDailyMetrics(driverID uuid.UUID, day time.Time) (*models.DailyMetrics, error) {
	row := t.queryRow(`SELECT `+dailyColumns+` FROM daily_metrics WHERE driver_id = ? AND date = ?`,
		driverID.String(), formatDate(day))
	m, err := scanDaily(row)
	if err != nil {
		return nil, notFound("daily metrics "+formatDate(day), err)
	}
	return m, nil
}

// PutDailyMetrics inserts or replaces the rollup for a day.
func (t *sqlTx) PutDailyMetrics(m *models.DailyMetrics) error {
	query := `
		INSERT INTO daily_metrics (` + dailyColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (driver_id, date) DO UPDATE SET
			hours = excluded.hours,
			distance_km = excluded.distance_km,
			session_count = excluded.session_count,
			avg_fatigue = excluded.avg_fatigue,
			max_fatigue = excluded.max_fatigue,
			alert_count = excluded.alert_count,
			break_count = excluded.break_count
	`
	_, err := t.exec(query,
		m.DriverID.String(),
		formatDate(m.Date),
		m.Hours,
		m.DistanceKm,
		m.SessionCount,
		m.AvgFatigue,
		m.MaxFatigue,
		m.AlertCount,
		m.BreakCount,
	)
	if err != nil {
		return fmt.Errorf("put daily metrics: %w", err)
	}
	return nil
}

// ListDailyMetrics returns rollups in ascending date order within [from, to].
func (t *sqlTx) ListDailyMetrics(driverID uuid.UUID, from, to time.Time) ([]*models.DailyMetrics, error) {
	query := `SELECT ` + dailyColumns + ` FROM daily_metrics WHERE driver_id = ?`
	args := []any{driverID.String()}
	if !from.IsZero() {
		query += ` AND date >= ?`
		args = append(args, formatDate(from))
	}
	if !to.IsZero() {
		query += ` AND date <= ?`
		args = append(args, formatDate(to))
	}
	query += ` ORDER BY date ASC`

	rows, err := t.query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list daily metrics: %w", err)
	}
	defer rows.Close()

	var out []*models.DailyMetrics
	for rows.Next() {
		m, err := scanDaily(rows)
		if err != nil {
			return nil, fmt.Errorf("scan daily metrics: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func scanDaily(row rowScanner) (*models.DailyMetrics, error) {
	var m models.DailyMetrics
	var driverIDStr, date string

	err := row.Scan(&driverIDStr, &date, &m.Hours, &m.DistanceKm, &m.SessionCount, &m.AvgFatigue,
		&m.MaxFatigue, &m.AlertCount, &m.BreakCount)
	if err != nil {
		return nil, err
	}
	m.DriverID, _ = uuid.Parse(driverIDStr)
	m.Date = parseDate(date)
	return &m, nil
}
