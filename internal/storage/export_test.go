// ABOUTME: Tests for export and import across storage backends.
// ABOUTME: Round-trips a populated SQLite store into Badger through JSON.
package storage

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/harperreed/drivewatch/internal/models"
	"gopkg.in/yaml.v3"
)

func populate(t *testing.T, repo Repository) *models.Driver {
	t.Helper()
	d := seedDriver(t, repo, "jdoe")

	ended := models.NewDrivingSession(d.ID).WithStartedAt(baseTime).WithStartLocation("Depot")
	ended.ObserveFatigue(40, false)
	ended.DistanceKm = 80
	ended.Finish(baseTime.Add(2 * time.Hour))

	active := models.NewDrivingSession(d.ID).WithStartedAt(baseTime.Add(5 * time.Hour))

	rec := models.NewHealthRecord(d.ID, models.KindDrowsiness).
		WithRecordedAt(baseTime.Add(time.Hour)).
		WithSample(models.Sample{EyeClosurePct: 25, BlinkFreq: 15, HeadPosition: models.HeadNormal}).
		WithOutcome(10, models.TierSafe, "fine")

	daily := models.NewDailyMetrics(d.ID, baseTime)
	daily.Hours = 2
	daily.DistanceKm = 80
	daily.SessionCount = 1
	daily.AvgFatigue = 40
	daily.MaxFatigue = 40

	mustUpdate(t, repo, func(tx Tx) error {
		if err := tx.CreateSession(ended); err != nil {
			return err
		}
		if err := tx.CreateSession(active); err != nil {
			return err
		}
		if err := tx.CreateHealthRecord(rec); err != nil {
			return err
		}
		return tx.PutDailyMetrics(daily)
	})
	return d
}

func TestExportJSON(t *testing.T) {
	repo := setupTestDB(t)
	populate(t, repo)

	raw, err := ExportJSON(context.Background(), repo)
	if err != nil {
		t.Fatalf("ExportJSON failed: %v", err)
	}

	var data ExportData
	if err := json.Unmarshal(raw, &data); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if data.Tool != "drivewatch" || data.Version != "1.0" {
		t.Errorf("header mismatch: %s %s", data.Tool, data.Version)
	}
	if len(data.Drivers) != 1 || len(data.Sessions) != 2 || len(data.HealthRecords) != 1 || len(data.DailyMetrics) != 1 {
		t.Errorf("counts mismatch: %d drivers, %d sessions, %d records, %d daily",
			len(data.Drivers), len(data.Sessions), len(data.HealthRecords), len(data.DailyMetrics))
	}
}

func TestImportJSONIntoBadger(t *testing.T) {
	src := setupTestDB(t)
	d := populate(t, src)

	raw, err := ExportJSON(context.Background(), src)
	if err != nil {
		t.Fatalf("ExportJSON failed: %v", err)
	}

	dst := setupTestBadger(t)
	if err := ImportJSON(context.Background(), dst, raw); err != nil {
		t.Fatalf("ImportJSON failed: %v", err)
	}

	mustView(t, dst, func(tx Tx) error {
		got, err := tx.ResolveDriver("jdoe")
		if err != nil {
			t.Fatalf("ResolveDriver failed: %v", err)
		}
		if got.ID != d.ID {
			t.Errorf("ID mismatch: got %v, want %v", got.ID, d.ID)
		}
		sessions, err := tx.ListSessions(d.ID, 0)
		if err != nil {
			t.Fatalf("ListSessions failed: %v", err)
		}
		if len(sessions) != 2 {
			t.Errorf("expected 2 sessions, got %d", len(sessions))
		}
		if _, err := tx.ActiveSession(d.ID); err != nil {
			t.Errorf("expected imported active session, got %v", err)
		}
		daily, err := tx.GetDailyMetrics(d.ID, baseTime)
		if err != nil {
			t.Fatalf("GetDailyMetrics failed: %v", err)
		}
		if daily.DistanceKm != 80 {
			t.Errorf("DistanceKm mismatch: got %v, want 80", daily.DistanceKm)
		}
		return nil
	})
}

func TestImportJSONInvalid(t *testing.T) {
	repo := setupTestDB(t)
	if err := ImportJSON(context.Background(), repo, []byte("not json")); err == nil {
		t.Fatal("expected error for invalid JSON")
	}
}

func TestImportDuplicateRollsBack(t *testing.T) {
	repo := setupTestDB(t)
	populate(t, repo)

	data, err := GetAllData(context.Background(), repo)
	if err != nil {
		t.Fatalf("GetAllData failed: %v", err)
	}
	if err := ImportData(context.Background(), repo, data); err == nil {
		t.Fatal("expected conflict importing the same data twice")
	}
}

func TestExportYAML(t *testing.T) {
	repo := setupTestBadger(t)
	populate(t, repo)

	raw, err := ExportYAML(context.Background(), repo)
	if err != nil {
		t.Fatalf("ExportYAML failed: %v", err)
	}

	var out yamlExport
	if err := yaml.Unmarshal(raw, &out); err != nil {
		t.Fatalf("invalid YAML: %v", err)
	}
	if len(out.Drivers) != 1 {
		t.Fatalf("expected 1 driver, got %d", len(out.Drivers))
	}
	if out.Drivers[0].Username != "jdoe" || len(out.Drivers[0].Sessions) != 2 || len(out.Drivers[0].Records) != 1 {
		t.Errorf("driver mismatch: %+v", out.Drivers[0])
	}
}

func TestExportMarkdown(t *testing.T) {
	repo := setupTestDB(t)
	populate(t, repo)

	md, err := ExportMarkdown(context.Background(), repo, nil)
	if err != nil {
		t.Fatalf("ExportMarkdown failed: %v", err)
	}
	if !strings.Contains(md, "## jdoe (truck)") {
		t.Errorf("missing driver heading:\n%s", md)
	}
	if strings.Count(md, "| 2025-03-10") != 2 {
		t.Errorf("expected 2 session rows:\n%s", md)
	}

	since := baseTime.Add(3 * time.Hour)
	md, err = ExportMarkdown(context.Background(), repo, &since)
	if err != nil {
		t.Fatalf("ExportMarkdown with since failed: %v", err)
	}
	if strings.Count(md, "| 2025-03-10") != 1 {
		t.Errorf("expected 1 session row after since filter:\n%s", md)
	}
}

func TestExportEmpty(t *testing.T) {
	repo := setupTestDB(t)

	data, err := GetAllData(context.Background(), repo)
	if err != nil {
		t.Fatalf("GetAllData failed: %v", err)
	}
	if len(data.Drivers) != 0 || len(data.Sessions) != 0 {
		t.Errorf("expected empty export, got %d drivers", len(data.Drivers))
	}
}
