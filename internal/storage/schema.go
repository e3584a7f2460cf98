// ABOUTME: SQL schema definition and initialization.
// ABOUTME: Defines drivers, sessions, health_records, and daily_metrics tables.
package storage

import (
	"context"
	"fmt"
)

// Statements run one at a time; both SQLite and Postgres accept this DDL.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS drivers (
		id TEXT PRIMARY KEY,
		username TEXT NOT NULL UNIQUE,
		full_name TEXT NOT NULL DEFAULT '',
		email TEXT NOT NULL UNIQUE,
		phone TEXT NOT NULL DEFAULT '',
		license_number TEXT UNIQUE,
		vehicle_type TEXT NOT NULL,
		registered_at TEXT NOT NULL,
		total_hours DOUBLE PRECISION NOT NULL DEFAULT 0,
		fatigue_level INTEGER NOT NULL DEFAULT 0,
		last_assessment_at TEXT,
		status TEXT NOT NULL,
		health_status TEXT NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		driver_id TEXT NOT NULL REFERENCES drivers(id) ON DELETE CASCADE,
		started_at TEXT NOT NULL,
		ended_at TEXT,
		duration_hours DOUBLE PRECISION NOT NULL DEFAULT 0,
		start_location TEXT NOT NULL DEFAULT '',
		end_location TEXT NOT NULL DEFAULT '',
		weather TEXT NOT NULL DEFAULT '',
		road_conditions TEXT NOT NULL DEFAULT '',
		distance_km DOUBLE PRECISION NOT NULL DEFAULT 0,
		avg_fatigue DOUBLE PRECISION NOT NULL DEFAULT 0,
		max_fatigue INTEGER NOT NULL DEFAULT 0,
		assessment_count INTEGER NOT NULL DEFAULT 0,
		alert_count INTEGER NOT NULL DEFAULT 0,
		breaks_taken INTEGER NOT NULL DEFAULT 0
	)`,

	`CREATE TABLE IF NOT EXISTS health_records (
		id TEXT PRIMARY KEY,
		driver_id TEXT NOT NULL REFERENCES drivers(id) ON DELETE CASCADE,
		recorded_at TEXT NOT NULL,
		kind TEXT NOT NULL,
		eye_closure_pct DOUBLE PRECISION,
		blink_frequency DOUBLE PRECISION,
		head_position TEXT,
		yawn_detected INTEGER,
		hours_driven DOUBLE PRECISION,
		driver_response TEXT,
		sleep_hours DOUBLE PRECISION,
		tiredness_level INTEGER,
		hours_since_rest DOUBLE PRECISION,
		fatigue_level INTEGER NOT NULL,
		tier TEXT NOT NULL,
		recommendation TEXT NOT NULL,
		alert_sent INTEGER NOT NULL DEFAULT 0,
		notes TEXT NOT NULL DEFAULT ''
	)`,

	`CREATE TABLE IF NOT EXISTS daily_metrics (
		driver_id TEXT NOT NULL REFERENCES drivers(id) ON DELETE CASCADE,
		date TEXT NOT NULL,
		hours DOUBLE PRECISION NOT NULL DEFAULT 0,
		distance_km DOUBLE PRECISION NOT NULL DEFAULT 0,
		session_count INTEGER NOT NULL DEFAULT 0,
		avg_fatigue DOUBLE PRECISION NOT NULL DEFAULT 0,
		max_fatigue INTEGER NOT NULL DEFAULT 0,
		alert_count INTEGER NOT NULL DEFAULT 0,
		break_count INTEGER NOT NULL DEFAULT 0,
		PRIMARY KEY (driver_id, date)
	)`,

	// At most one open session per driver.
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_sessions_one_active ON sessions(driver_id) WHERE ended_at IS NULL`,
	`CREATE INDEX IF NOT EXISTS idx_sessions_driver_started ON sessions(driver_id, started_at DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_records_driver_recorded ON health_records(driver_id, recorded_at DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_records_alerts ON health_records(alert_sent, recorded_at DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_drivers_status ON drivers(status)`,
}

// initSchema creates or updates the database schema.
func (s *SQLStore) initSchema(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}
