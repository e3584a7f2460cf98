// ABOUTME: MetricsAggregator folds ended sessions into storage and serves trends.
// ABOUTME: Trends are lazy iterators that read storage only when ranged over.
package metrics

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"time"

	"github.com/google/uuid"
	"github.com/harperreed/drivewatch/internal/models"
	"github.com/harperreed/drivewatch/internal/storage"
	"go.uber.org/zap"
)

// Aggregator maintains DailyMetrics.
type Aggregator struct {
	repo   storage.Repository
	logger *zap.Logger
}

// NewAggregator creates an aggregator over repo.
func NewAggregator(repo storage.Repository, logger *zap.Logger) *Aggregator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Aggregator{repo: repo, logger: logger}
}

// FoldSession folds an ended session into its day in its own unit of work.
func (a *Aggregator) FoldSession(ctx context.Context, s *models.DrivingSession) (*models.DailyMetrics, error) {
	var out *models.DailyMetrics
	err := a.repo.Update(ctx, func(tx storage.Tx) error {
		var err error
		out, err = FoldSessionTx(tx, s)
		return err
	})
	if err != nil {
		return nil, err
	}

	a.logger.Debug("folded session into daily metrics",
		zap.String("driver_id", s.DriverID.String()),
		zap.String("session_id", s.ID.String()),
		zap.String("date", out.Date.Format(models.DateLayout)),
		zap.Int("sessions_count", out.SessionCount))
	return out, nil
}

// FoldSessionTx folds an ended session inside an existing unit of work.
func FoldSessionTx(tx storage.Tx, s *models.DrivingSession) (*models.DailyMetrics, error) {
	if s.EndedAt == nil {
		return nil, models.NewValidationError("session", "session %s has not ended", s.ID)
	}

	existing, err := tx.GetDailyMetrics(s.DriverID, *s.EndedAt)
	if err != nil && !errors.Is(err, models.ErrNotFound) {
		return nil, fmt.Errorf("load daily metrics: %w", err)
	}

	folded, err := Fold(existing, s)
	if err != nil {
		return nil, err
	}
	if err := tx.PutDailyMetrics(folded); err != nil {
		return nil, err
	}
	return folded, nil
}

// Granularity selects daily or weekly trend buckets.
type Granularity string

const (
	Daily  Granularity = "daily"
	Weekly Granularity = "weekly"
)

// ParseGranularity validates a granularity tag. Empty means daily.
func ParseGranularity(s string) (Granularity, error) {
	switch Granularity(s) {
	case "", Daily:
		return Daily, nil
	case Weekly:
		return Weekly, nil
	}
	return "", models.NewValidationError("window", "unknown granularity %q", s)
}

// Window is an inclusive date range. Zero bounds are open.
type Window struct {
	Granularity Granularity
	From        time.Time
	To          time.Time
}

// LastDays covers the n days ending on now's date.
func LastDays(n int, now time.Time, g Granularity) Window {
	to := models.DayOf(now)
	return Window{Granularity: g, From: to.AddDate(0, 0, -(n - 1)), To: to}
}

// Bucket is one point of a trend.
type Bucket struct {
	Start      time.Time `json:"start"`
	Days       int       `json:"days"`
	Hours      float64   `json:"driving_hours"`
	DistanceKm float64   `json:"distance_km"`
	Sessions   int       `json:"sessions_count"`
	AvgFatigue float64   `json:"average_fatigue"`
	MaxFatigue int       `json:"max_fatigue"`
	Alerts     int       `json:"total_alerts"`
	Breaks     int       `json:"total_breaks"`
}

// DayBucket converts one day's rollup into a single-day bucket.
func DayBucket(m *models.DailyMetrics) Bucket {
	return Bucket{
		Start:      m.Date,
		Days:       1,
		Hours:      m.Hours,
		DistanceKm: m.DistanceKm,
		Sessions:   m.SessionCount,
		AvgFatigue: m.AvgFatigue,
		MaxFatigue: m.MaxFatigue,
		Alerts:     m.AlertCount,
		Breaks:     m.BreakCount,
	}
}

// merge adds o into b, weighting average fatigue by session count.
func (b *Bucket) merge(o Bucket) {
	if total := b.Sessions + o.Sessions; total > 0 {
		b.AvgFatigue = (b.AvgFatigue*float64(b.Sessions) + o.AvgFatigue*float64(o.Sessions)) / float64(total)
	}
	b.Days += o.Days
	b.Hours += o.Hours
	b.DistanceKm += o.DistanceKm
	b.Sessions += o.Sessions
	if o.MaxFatigue > b.MaxFatigue {
		b.MaxFatigue = o.MaxFatigue
	}
	b.Alerts += o.Alerts
	b.Breaks += o.Breaks
}

// WeekStart returns the Monday of t's week at midnight UTC.
func WeekStart(t time.Time) time.Time {
	day := models.DayOf(t)
	offset := (int(day.Weekday()) + 6) % 7
	return day.AddDate(0, 0, -offset)
}

// GetTrend returns the buckets of w in ascending date order. Storage is read each
// time the sequence is ranged, so it can be iterated again for fresh results.
func (a *Aggregator) GetTrend(ctx context.Context, driverID uuid.UUID, w Window) iter.Seq2[Bucket, error] {
	return func(yield func(Bucket, error) bool) {
		var days []*models.DailyMetrics
		err := a.repo.View(ctx, func(tx storage.Tx) error {
			var err error
			days, err = tx.ListDailyMetrics(driverID, w.From, w.To)
			return err
		})
		if err != nil {
			yield(Bucket{}, err)
			return
		}

		if w.Granularity != Weekly {
			for _, m := range days {
				if !yield(DayBucket(m), nil) {
					return
				}
			}
			return
		}

		var cur *Bucket
		for _, m := range days {
			b := DayBucket(m)
			b.Start = WeekStart(m.Date)
			if cur != nil && cur.Start.Equal(b.Start) {
				cur.merge(b)
				continue
			}
			if cur != nil && !yield(*cur, nil) {
				return
			}
			cur = &b
		}
		if cur != nil {
			yield(*cur, nil)
		}
	}
}

// Collect drains a trend into a slice.
func Collect(seq iter.Seq2[Bucket, error]) ([]Bucket, error) {
	var out []Bucket
	for b, err := range seq {
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, nil
}
