// ABOUTME: Export and import of all driver data for backup and backend migration.
// ABOUTME: Supports JSON, YAML, and Markdown export formats; imports JSON.
package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/harperreed/drivewatch/internal/models"
	"gopkg.in/yaml.v3"
)

// ExportData represents the full export format.
type ExportData struct {
	Version       string                   `json:"version" yaml:"version"`
	ExportedAt    time.Time                `json:"exported_at" yaml:"exported_at"`
	Tool          string                   `json:"tool" yaml:"tool"`
	Drivers       []*models.Driver         `json:"drivers" yaml:"drivers"`
	Sessions      []*models.DrivingSession `json:"sessions" yaml:"sessions"`
	HealthRecords []*models.HealthRecord   `json:"health_records" yaml:"health_records"`
	DailyMetrics  []*models.DailyMetrics   `json:"daily_metrics" yaml:"daily_metrics"`
}

// GetAllData reads every entity from repo.
func GetAllData(ctx context.Context, repo Repository) (*ExportData, error) {
	data := &ExportData{
		Version:    "1.0",
		ExportedAt: time.Now().UTC(),
		Tool:       "drivewatch",
	}

	err := repo.View(ctx, func(tx Tx) error {
		drivers, err := tx.ListDrivers(nil)
		if err != nil {
			return err
		}
		data.Drivers = drivers

		for _, d := range drivers {
			sessions, err := tx.ListSessions(d.ID, 0)
			if err != nil {
				return err
			}
			records, err := tx.ListHealthRecords(d.ID, 0)
			if err != nil {
				return err
			}
			daily, err := tx.ListDailyMetrics(d.ID, time.Time{}, time.Time{})
			if err != nil {
				return err
			}
			data.Sessions = append(data.Sessions, sessions...)
			data.HealthRecords = append(data.HealthRecords, records...)
			data.DailyMetrics = append(data.DailyMetrics, daily...)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("export: %w", err)
	}
	return data, nil
}

// ImportData writes every entity in data into repo in one unit of work.
func ImportData(ctx context.Context, repo Repository, data *ExportData) error {
	return repo.Update(ctx, func(tx Tx) error {
		for _, d := range data.Drivers {
			if err := tx.CreateDriver(d); err != nil {
				return fmt.Errorf("import driver %s: %w", d.Username, err)
			}
		}
		for _, s := range data.Sessions {
			if err := tx.CreateSession(s); err != nil {
				return fmt.Errorf("import session %s: %w", s.ID, err)
			}
		}
		for _, r := range data.HealthRecords {
			if err := tx.CreateHealthRecord(r); err != nil {
				return fmt.Errorf("import health record %s: %w", r.ID, err)
			}
		}
		for _, m := range data.DailyMetrics {
			if err := tx.PutDailyMetrics(m); err != nil {
				return fmt.Errorf("import daily metrics: %w", err)
			}
		}
		return nil
	})
}

// ExportJSON exports all data as JSON.
func ExportJSON(ctx context.Context, repo Repository) ([]byte, error) {
	data, err := GetAllData(ctx, repo)
	if err != nil {
		return nil, err
	}
	return json.MarshalIndent(data, "", "  ")
}

// ExportYAML exports all data as YAML, with each driver's history nested under it.
func ExportYAML(ctx context.Context, repo Repository) ([]byte, error) {
	data, err := GetAllData(ctx, repo)
	if err != nil {
		return nil, err
	}

	out := yamlExport{
		Version:    data.Version,
		ExportedAt: data.ExportedAt.Format(time.RFC3339),
		Tool:       data.Tool,
		Drivers:    make([]yamlDriver, 0, len(data.Drivers)),
	}

	byDriver := make(map[string]*yamlDriver, len(data.Drivers))
	for _, d := range data.Drivers {
		out.Drivers = append(out.Drivers, yamlDriver{
			ID:           d.ID.String()[:8],
			Username:     d.Username,
			VehicleType:  string(d.VehicleType),
			TotalHours:   d.TotalHours,
			FatigueLevel: d.FatigueLevel,
			HealthStatus: string(d.HealthStatus),
		})
	}
	for i := range out.Drivers {
		byDriver[data.Drivers[i].ID.String()] = &out.Drivers[i]
	}

	for _, s := range data.Sessions {
		yd := byDriver[s.DriverID.String()]
		if yd == nil {
			continue
		}
		ys := yamlSession{
			ID:         s.ID.String()[:8],
			StartedAt:  s.StartedAt.Format(time.RFC3339),
			Hours:      s.DurationHours,
			DistanceKm: s.DistanceKm,
			AvgFatigue: s.AvgFatigue,
			MaxFatigue: s.MaxFatigue,
			Alerts:     s.AlertCount,
		}
		if s.EndedAt != nil {
			ys.EndedAt = s.EndedAt.Format(time.RFC3339)
		}
		yd.Sessions = append(yd.Sessions, ys)
	}

	for _, r := range data.HealthRecords {
		yd := byDriver[r.DriverID.String()]
		if yd == nil {
			continue
		}
		yd.Records = append(yd.Records, yamlRecord{
			RecordedAt:   r.RecordedAt.Format(time.RFC3339),
			Kind:         string(r.Kind),
			FatigueLevel: r.FatigueLevel,
			Tier:         string(r.Tier),
			AlertSent:    r.AlertSent,
		})
	}

	return yaml.Marshal(out)
}

type yamlExport struct {
	Version    string       `yaml:"version"`
	ExportedAt string       `yaml:"exported_at"`
	Tool       string       `yaml:"tool"`
	Drivers    []yamlDriver `yaml:"drivers"`
}

type yamlDriver struct {
	ID           string        `yaml:"id"`
	Username     string        `yaml:"username"`
	VehicleType  string        `yaml:"vehicle_type"`
	TotalHours   float64       `yaml:"total_hours"`
	FatigueLevel int           `yaml:"fatigue_level"`
	HealthStatus string        `yaml:"health_status"`
	Sessions     []yamlSession `yaml:"sessions,omitempty"`
	Records      []yamlRecord  `yaml:"health_records,omitempty"`
}

type yamlSession struct {
	ID         string  `yaml:"id"`
	StartedAt  string  `yaml:"started_at"`
	EndedAt    string  `yaml:"ended_at,omitempty"`
	Hours      float64 `yaml:"hours"`
	DistanceKm float64 `yaml:"distance_km"`
	AvgFatigue float64 `yaml:"avg_fatigue"`
	MaxFatigue int     `yaml:"max_fatigue"`
	Alerts     int     `yaml:"alerts"`
}

type yamlRecord struct {
	RecordedAt   string `yaml:"recorded_at"`
	Kind         string `yaml:"kind"`
	FatigueLevel int    `yaml:"fatigue_level"`
	Tier         string `yaml:"tier"`
	AlertSent    bool   `yaml:"alert_sent"`
}

// ExportMarkdown renders each driver's sessions as Markdown tables.
// A non-nil since drops sessions that started earlier.
func ExportMarkdown(ctx context.Context, repo Repository, since *time.Time) (string, error) {
	data, err := GetAllData(ctx, repo)
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	now := time.Now()

	sb.WriteString(fmt.Sprintf("# Driver Export - %s\n\n", now.Format("2006-01-02")))
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", now.Format(time.RFC3339)))

	for _, d := range data.Drivers {
		sb.WriteString(fmt.Sprintf("## %s (%s)\n\n", d.Username, d.VehicleType))
		sb.WriteString(fmt.Sprintf("Total hours: %.2f, fatigue: %d, health: %s\n\n",
			d.TotalHours, d.FatigueLevel, d.HealthStatus))
		sb.WriteString("| Started | Hours | Distance | Avg Fatigue | Max | Alerts |\n")
		sb.WriteString("|---------|-------|----------|-------------|-----|--------|\n")
		for _, s := range data.Sessions {
			if s.DriverID != d.ID {
				continue
			}
			if since != nil && s.StartedAt.Before(*since) {
				continue
			}
			sb.WriteString(fmt.Sprintf("| %s | %.2f | %.1f km | %.1f | %d | %d |\n",
				s.StartedAt.Format("2006-01-02 15:04"),
				s.DurationHours, s.DistanceKm, s.AvgFatigue, s.MaxFatigue, s.AlertCount))
		}
		sb.WriteString("\n")
	}

	return sb.String(), nil
}

// ImportJSON imports data from JSON bytes.
func ImportJSON(ctx context.Context, repo Repository, raw []byte) error {
	var data ExportData
	if err := json.Unmarshal(raw, &data); err != nil {
		return fmt.Errorf("unmarshal JSON: %w", err)
	}
	return ImportData(ctx, repo, &data)
}
