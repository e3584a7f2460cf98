// ABOUTME: Windowed driving statistics, fatigue trend, and weekly recommendations.
// ABOUTME: Trends are delegated to the metrics aggregator.
package service

import (
	"context"
	"iter"

	"github.com/google/uuid"
	"github.com/harperreed/drivewatch/internal/metrics"
	"github.com/harperreed/drivewatch/internal/models"
	"github.com/harperreed/drivewatch/internal/storage"
)

const (
	DefaultWindowDays = 7
	MaxWindowDays     = 365

	// fatigueTrendSource assessments are read; the newest fatigueTrendLen are returned.
	fatigueTrendSource = 100
	fatigueTrendLen    = 30
)

// Statistics summarizes a driver's recent window.
type Statistics struct {
	Driver          *models.Driver   `json:"driver"`
	WindowDays      int              `json:"window_days"`
	Summary         metrics.Summary  `json:"summary"`
	Daily           []metrics.Bucket `json:"daily"`
	FatigueTrend    []int            `json:"fatigue_trend"`
	Recommendations []string         `json:"recommendations"`
}

// GetStatistics reports the last windowDays days. Zero means a week.
func (s *Service) GetStatistics(ctx context.Context, driverID uuid.UUID, windowDays int) (*Statistics, error) {
	if windowDays == 0 {
		windowDays = DefaultWindowDays
	}
	if windowDays < 1 || windowDays > MaxWindowDays {
		return nil, models.NewValidationError("window_days", "must be between 1 and %d, got %d", MaxWindowDays, windowDays)
	}

	now := s.now()
	window := metrics.LastDays(windowDays, now, metrics.Daily)
	week := metrics.LastDays(DefaultWindowDays, now, metrics.Daily)

	st := &Statistics{WindowDays: windowDays}
	var weekDays []*models.DailyMetrics
	var days []*models.DailyMetrics
	err := s.view(ctx, "get statistics", func(tx storage.Tx) error {
		d, err := tx.GetDriver(driverID)
		if err != nil {
			return err
		}
		st.Driver = d

		if days, err = tx.ListDailyMetrics(driverID, window.From, window.To); err != nil {
			return err
		}
		if weekDays, err = tx.ListDailyMetrics(driverID, week.From, week.To); err != nil {
			return err
		}

		recs, err := tx.ListHealthRecords(driverID, fatigueTrendSource)
		if err != nil {
			return err
		}
		st.FatigueTrend = fatigueTrend(recs)
		return nil
	})
	if err != nil {
		return nil, err
	}

	st.Summary = metrics.Summarize(days)
	st.Daily = make([]metrics.Bucket, 0, len(days))
	for _, m := range days {
		st.Daily = append(st.Daily, metrics.DayBucket(m))
	}
	st.Recommendations = metrics.Recommendations(st.Driver, weekDays)
	return st, nil
}

// fatigueTrend takes newest-first records and returns the newest drowsiness scores, oldest first.
func fatigueTrend(recs []*models.HealthRecord) []int {
	var scores []int
	for _, r := range recs {
		if r.Kind != models.KindDrowsiness {
			continue
		}
		scores = append(scores, r.FatigueLevel)
		if len(scores) == fatigueTrendLen {
			break
		}
	}
	for i, j := 0, len(scores)-1; i < j; i, j = i+1, j-1 {
		scores[i], scores[j] = scores[j], scores[i]
	}
	if scores == nil {
		scores = []int{}
	}
	return scores
}

// GetTrend returns a lazy trend over w for the driver.
func (s *Service) GetTrend(ctx context.Context, driverID uuid.UUID, w metrics.Window) iter.Seq2[metrics.Bucket, error] {
	return func(yield func(metrics.Bucket, error) bool) {
		for b, err := range s.aggregator.GetTrend(ctx, driverID, w) {
			if !yield(b, s.fail("get trend", err)) {
				return
			}
		}
	}
}
