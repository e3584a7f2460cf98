// ABOUTME: Output helpers shared by CLI commands.
// ABOUTME: Colors tiers, formats timestamps, and parses time flags.
package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/harperreed/drivewatch/internal/models"
)

var faint = color.New(color.Faint)

func success(w io.Writer, format string, args ...any) {
	color.New(color.FgGreen).Fprintf(w, "✓ "+format+"\n", args...)
}

func tierColor(t models.AlertTier) *color.Color {
	switch t {
	case models.TierCritical:
		return color.New(color.FgRed, color.Bold)
	case models.TierWarning:
		return color.New(color.FgRed)
	case models.TierCaution:
		return color.New(color.FgYellow)
	case models.TierInfo:
		return color.New(color.FgCyan)
	default:
		return color.New(color.FgGreen)
	}
}

func shortID(s fmt.Stringer) string {
	return s.String()[:8]
}

func stamp(t time.Time) string {
	return t.Local().Format("2006-01-02 15:04")
}

func parseTime(s string) (time.Time, error) {
	formats := []string{
		"2006-01-02 15:04",
		"2006-01-02T15:04",
		"2006-01-02",
		time.RFC3339,
	}
	for _, f := range formats {
		if t, err := time.Parse(f, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized time format")
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}

func padRight(s string, length int) string {
	if len(s) >= length {
		return s
	}
	return s + strings.Repeat(" ", length-len(s))
}

func printRecord(w io.Writer, r *models.HealthRecord) {
	notes := ""
	if r.Notes != "" {
		notes = faint.Sprintf(" (%s)", truncate(r.Notes, 30))
	}
	alert := ""
	if r.AlertSent {
		alert = color.New(color.FgRed).Sprint(" ALERT")
	}
	fmt.Fprintf(w, "%s %s %s %3d %s%s%s\n",
		faint.Sprint(shortID(r.ID)),
		faint.Sprint(stamp(r.RecordedAt)),
		padRight(string(r.Kind), 14),
		r.FatigueLevel,
		tierColor(r.Tier).Sprint(padRight(string(r.Tier), 8)),
		alert,
		notes)
}

func printSession(w io.Writer, s *models.DrivingSession) {
	ended := "active"
	if s.EndedAt != nil {
		ended = fmt.Sprintf("%.2fh %.1fkm", s.DurationHours, s.DistanceKm)
	}
	fmt.Fprintf(w, "%s %s %s avg %.1f max %d alerts %d breaks %d\n",
		faint.Sprint(shortID(s.ID)),
		faint.Sprint(stamp(s.StartedAt)),
		padRight(ended, 18),
		s.AvgFatigue, s.MaxFatigue, s.AlertCount, s.BreaksTaken)
}
