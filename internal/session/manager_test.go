// ABOUTME: Tests for session lifecycle, assessment recording, and atomicity.
// ABOUTME: Runs against SQLite and in-memory Badger with a controllable clock.
package session

import (
	"context"
	"errors"
	"math"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/harperreed/drivewatch/internal/models"
	"github.com/harperreed/drivewatch/internal/notify"
	"github.com/harperreed/drivewatch/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var baseTime = time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

type fixture struct {
	repo  storage.Repository
	mgr   *Manager
	hub   *notify.Hub
	clock *clock
}

func newFixture(t *testing.T, repo storage.Repository) *fixture {
	t.Helper()
	hub := notify.NewHub(nil)
	c := &clock{t: baseTime}
	mgr := NewManager(repo, hub, nil).WithClock(c.Now)
	return &fixture{repo: repo, mgr: mgr, hub: hub, clock: c}
}

func openSQLite(t *testing.T) storage.Repository {
	t.Helper()
	db, err := storage.Open(filepath.Join(t.TempDir(), "drivewatch.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func openBadger(t *testing.T) storage.Repository {
	t.Helper()
	store, err := storage.OpenBadgerInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func forEachBackend(t *testing.T, fn func(t *testing.T, f *fixture)) {
	t.Helper()
	t.Run("sqlite", func(t *testing.T) { fn(t, newFixture(t, openSQLite(t))) })
	t.Run("badger", func(t *testing.T) { fn(t, newFixture(t, openBadger(t))) })
}

func (f *fixture) seedDriver(t *testing.T, username string) *models.Driver {
	t.Helper()
	d := models.NewDriver(username, username+"@example.com", models.VehicleTruck)
	require.NoError(t, f.repo.Update(context.Background(), func(tx storage.Tx) error {
		return tx.CreateDriver(d)
	}))
	return d
}

func (f *fixture) driver(t *testing.T, id uuid.UUID) *models.Driver {
	t.Helper()
	var d *models.Driver
	require.NoError(t, f.repo.View(context.Background(), func(tx storage.Tx) error {
		var err error
		d, err = tx.GetDriver(id)
		return err
	}))
	return d
}

func (f *fixture) session(t *testing.T, id uuid.UUID) *models.DrivingSession {
	t.Helper()
	var s *models.DrivingSession
	require.NoError(t, f.repo.View(context.Background(), func(tx storage.Tx) error {
		var err error
		s, err = tx.GetSession(id)
		return err
	}))
	return s
}

func (f *fixture) records(t *testing.T, driverID uuid.UUID) []*models.HealthRecord {
	t.Helper()
	var recs []*models.HealthRecord
	require.NoError(t, f.repo.View(context.Background(), func(tx storage.Tx) error {
		var err error
		recs, err = tx.ListHealthRecords(driverID, 0)
		return err
	}))
	return recs
}

var (
	alertSample   = models.Sample{EyeClosurePct: 25, BlinkFreq: 15, HeadPosition: models.HeadNormal}
	drowsySample  = models.Sample{EyeClosurePct: 10, BlinkFreq: 5, HeadPosition: models.HeadDown, YawnDetected: true, HoursDriven: 7}
	cautionSample = models.Sample{EyeClosurePct: 100, BlinkFreq: 15}
)

func TestStartSession(t *testing.T) {
	forEachBackend(t, func(t *testing.T, f *fixture) {
		ctx := context.Background()
		d := f.seedDriver(t, "jdoe")

		s, err := f.mgr.StartSession(ctx, d.ID, StartRequest{Location: "Depot", Weather: "rain", RoadConditions: "wet"})
		require.NoError(t, err)
		assert.True(t, s.IsActive())
		assert.True(t, baseTime.Equal(s.StartedAt))
		assert.Equal(t, "Depot", s.StartLocation)
		assert.Equal(t, models.StatusActive, f.driver(t, d.ID).Status)

		_, err = f.mgr.StartSession(ctx, d.ID, StartRequest{})
		assert.ErrorIs(t, err, models.ErrConflict)

		_, err = f.mgr.StartSession(ctx, uuid.New(), StartRequest{})
		assert.ErrorIs(t, err, models.ErrNotFound)
	})
}

func TestRecordAssessmentWithoutSession(t *testing.T) {
	forEachBackend(t, func(t *testing.T, f *fixture) {
		d := f.seedDriver(t, "jdoe")

		res, err := f.mgr.RecordAssessment(context.Background(), d.ID, alertSample)
		require.NoError(t, err)
		assert.Equal(t, 10, res.Record.FatigueLevel)
		assert.Equal(t, models.TierSafe, res.Record.Tier)
		assert.False(t, res.Record.AlertSent)
		assert.Nil(t, res.Session)

		got := f.driver(t, d.ID)
		assert.Equal(t, 10, got.FatigueLevel)
		assert.Equal(t, models.HealthGood, got.HealthStatus)
		require.NotNil(t, got.LastAssessmentAt)
		assert.True(t, got.LastAssessmentAt.Equal(baseTime))
	})
}

func TestRecordAssessmentUpdatesSession(t *testing.T) {
	forEachBackend(t, func(t *testing.T, f *fixture) {
		ctx := context.Background()
		d := f.seedDriver(t, "jdoe")
		alerts, cancel := f.hub.Subscribe(4)
		defer cancel()

		s, err := f.mgr.StartSession(ctx, d.ID, StartRequest{})
		require.NoError(t, err)

		for _, sample := range []models.Sample{alertSample, drowsySample, cautionSample} {
			f.clock.Advance(10 * time.Minute)
			_, err := f.mgr.RecordAssessment(ctx, d.ID, sample)
			require.NoError(t, err)
		}

		got := f.session(t, s.ID)
		assert.Equal(t, 3, got.AssessmentCount)
		assert.InDelta(t, (10.0+84.0+40.0)/3, got.AvgFatigue, 1e-9)
		assert.Equal(t, 84, got.MaxFatigue)
		assert.Equal(t, 1, got.AlertCount)

		driver := f.driver(t, d.ID)
		assert.Equal(t, 40, driver.FatigueLevel)
		assert.Equal(t, models.HealthWarning, driver.HealthStatus)

		require.Len(t, alerts, 1)
		ev := <-alerts
		assert.Equal(t, models.TierCritical, ev.Tier)
		assert.Equal(t, 84, ev.FatigueLevel)
		assert.Equal(t, "jdoe", ev.Username)

		assert.Len(t, f.records(t, d.ID), 3)
	})
}

func TestRecordAssessmentRejectsInvalidInput(t *testing.T) {
	forEachBackend(t, func(t *testing.T, f *fixture) {
		ctx := context.Background()
		d := f.seedDriver(t, "jdoe")

		tests := []struct {
			name   string
			sample models.Sample
			field  string
		}{
			{"eye closure above range", models.Sample{EyeClosurePct: 101, BlinkFreq: 15}, "eye_closure_pct"},
			{"negative blink", models.Sample{BlinkFreq: -1}, "blink_frequency"},
			{"negative hours", models.Sample{BlinkFreq: 15, HoursDriven: -2}, "hours_driven"},
			{"unknown head position", models.Sample{BlinkFreq: 15, HeadPosition: "sideways"}, "head_position"},
			{"unknown response", models.Sample{BlinkFreq: 15, Response: "ignored"}, "driver_response"},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				_, err := f.mgr.RecordAssessment(ctx, d.ID, tt.sample)
				var ve *models.ValidationError
				require.ErrorAs(t, err, &ve)
				assert.Equal(t, tt.field, ve.Field)
			})
		}

		assert.Empty(t, f.records(t, d.ID))
		assert.Nil(t, f.driver(t, d.ID).LastAssessmentAt)
	})
}

func TestRecordAssessmentUnknownDriver(t *testing.T) {
	f := newFixture(t, openSQLite(t))
	_, err := f.mgr.RecordAssessment(context.Background(), uuid.New(), alertSample)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestTookBreakCountsBreak(t *testing.T) {
	forEachBackend(t, func(t *testing.T, f *fixture) {
		ctx := context.Background()
		d := f.seedDriver(t, "jdoe")
		s, err := f.mgr.StartSession(ctx, d.ID, StartRequest{})
		require.NoError(t, err)

		sample := alertSample
		sample.Response = models.ResponseTookBreak
		_, err = f.mgr.RecordAssessment(ctx, d.ID, sample)
		require.NoError(t, err)

		assert.Equal(t, 1, f.session(t, s.ID).BreaksTaken)
	})
}

func TestRecordHealthUpdate(t *testing.T) {
	forEachBackend(t, func(t *testing.T, f *fixture) {
		ctx := context.Background()
		d := f.seedDriver(t, "jdoe")
		sleep := 5.5

		res, err := f.mgr.RecordHealthUpdate(ctx, d.ID, HealthUpdate{SleepHours: &sleep, TirednessLevel: 7, Notes: "long night"})
		require.NoError(t, err)
		assert.Equal(t, models.KindHealthUpdate, res.Record.Kind)
		assert.Equal(t, 70, res.Record.FatigueLevel)
		assert.Equal(t, models.TierWarning, res.Record.Tier)
		assert.True(t, res.Record.AlertSent)
		assert.Nil(t, res.Record.Sample)

		recs := f.records(t, d.ID)
		require.Len(t, recs, 1)
		require.NotNil(t, recs[0].TirednessLevel)
		assert.Equal(t, 7, *recs[0].TirednessLevel)
		require.NotNil(t, recs[0].SleepHours)
		assert.Equal(t, 5.5, *recs[0].SleepHours)
		assert.Equal(t, "long night", recs[0].Notes)

		_, err = f.mgr.RecordHealthUpdate(ctx, d.ID, HealthUpdate{TirednessLevel: 11})
		assert.True(t, models.IsValidation(err))
	})
}

func TestReportEmergency(t *testing.T) {
	forEachBackend(t, func(t *testing.T, f *fixture) {
		ctx := context.Background()
		d := f.seedDriver(t, "jdoe")
		alerts, cancel := f.hub.Subscribe(4)
		defer cancel()

		s, err := f.mgr.StartSession(ctx, d.ID, StartRequest{})
		require.NoError(t, err)
		_, err = f.mgr.RecordAssessment(ctx, d.ID, cautionSample)
		require.NoError(t, err)

		res, err := f.mgr.ReportEmergency(ctx, d.ID, "chest pain")
		require.NoError(t, err)
		assert.Equal(t, models.KindEmergency, res.Record.Kind)
		assert.Equal(t, 40, res.Record.FatigueLevel)
		assert.Equal(t, models.TierCritical, res.Record.Tier)
		assert.True(t, res.Record.AlertSent)

		assert.Equal(t, models.HealthAlert, f.driver(t, d.ID).HealthStatus)
		got := f.session(t, s.ID)
		assert.Equal(t, 1, got.AlertCount)
		assert.Equal(t, 1, got.AssessmentCount)

		require.Len(t, alerts, 1)
		assert.Equal(t, models.KindEmergency, (<-alerts).Kind)
	})
}

func TestEndSession(t *testing.T) {
	forEachBackend(t, func(t *testing.T, f *fixture) {
		ctx := context.Background()
		d := f.seedDriver(t, "jdoe")

		s, err := f.mgr.StartSession(ctx, d.ID, StartRequest{Location: "Depot"})
		require.NoError(t, err)
		f.clock.Advance(30 * time.Minute)
		_, err = f.mgr.RecordAssessment(ctx, d.ID, drowsySample)
		require.NoError(t, err)
		f.clock.Advance(2 * time.Hour)

		res, err := f.mgr.EndSession(ctx, d.ID, s.ID, EndRequest{Location: "Port", DistanceKm: 210})
		require.NoError(t, err)
		assert.False(t, res.Session.IsActive())
		assert.InDelta(t, 2.5, res.Session.DurationHours, 1e-9)
		assert.Equal(t, "Port", res.Session.EndLocation)
		assert.Equal(t, 210.0, res.Session.DistanceKm)

		driver := f.driver(t, d.ID)
		assert.Equal(t, models.StatusIdle, driver.Status)
		assert.InDelta(t, 2.5, driver.TotalHours, 1e-9)

		require.NotNil(t, res.Daily)
		assert.Equal(t, 1, res.Daily.SessionCount)
		assert.InDelta(t, 2.5, res.Daily.Hours, 1e-9)
		assert.Equal(t, 210.0, res.Daily.DistanceKm)
		assert.Equal(t, 84.0, res.Daily.AvgFatigue)
		assert.Equal(t, 1, res.Daily.AlertCount)

		// Ending twice is not found and leaves hours alone.
		_, err = f.mgr.EndSession(ctx, d.ID, s.ID, EndRequest{})
		assert.ErrorIs(t, err, models.ErrNotFound)
		assert.InDelta(t, 2.5, f.driver(t, d.ID).TotalHours, 1e-9)

		// A new session can start once the previous one ended.
		_, err = f.mgr.StartSession(ctx, d.ID, StartRequest{})
		assert.NoError(t, err)
	})
}

func TestEndSessionForeignSession(t *testing.T) {
	forEachBackend(t, func(t *testing.T, f *fixture) {
		ctx := context.Background()
		owner := f.seedDriver(t, "owner")
		other := f.seedDriver(t, "other")

		s, err := f.mgr.StartSession(ctx, owner.ID, StartRequest{})
		require.NoError(t, err)
		f.clock.Advance(time.Hour)

		_, err = f.mgr.EndSession(ctx, other.ID, s.ID, EndRequest{})
		assert.ErrorIs(t, err, models.ErrNotFound)

		assert.True(t, f.session(t, s.ID).IsActive())
		assert.Zero(t, f.driver(t, other.ID).TotalHours)
		assert.Zero(t, f.driver(t, owner.ID).TotalHours)

		_, err = f.mgr.EndSession(ctx, owner.ID, uuid.New(), EndRequest{})
		assert.ErrorIs(t, err, models.ErrNotFound)
	})
}

func TestEndSessionSummaryOverrides(t *testing.T) {
	forEachBackend(t, func(t *testing.T, f *fixture) {
		ctx := context.Background()
		d := f.seedDriver(t, "jdoe")
		s, err := f.mgr.StartSession(ctx, d.ID, StartRequest{})
		require.NoError(t, err)
		_, err = f.mgr.RecordAssessment(ctx, d.ID, alertSample)
		require.NoError(t, err)
		f.clock.Advance(time.Hour)

		badAvg := 120.0
		_, err = f.mgr.EndSession(ctx, d.ID, s.ID, EndRequest{Summary: Summary{AvgFatigue: &badAvg}})
		assert.True(t, models.IsValidation(err))
		negative := -1
		_, err = f.mgr.EndSession(ctx, d.ID, s.ID, EndRequest{Summary: Summary{Breaks: &negative}})
		assert.True(t, models.IsValidation(err))
		_, err = f.mgr.EndSession(ctx, d.ID, s.ID, EndRequest{DistanceKm: -5})
		assert.True(t, models.IsValidation(err))
		assert.True(t, f.session(t, s.ID).IsActive())

		avg, maxF, alerts, breaks := 55.0, 77, 3, 2
		res, err := f.mgr.EndSession(ctx, d.ID, s.ID, EndRequest{Summary: Summary{
			AvgFatigue: &avg, MaxFatigue: &maxF, Alerts: &alerts, Breaks: &breaks,
		}})
		require.NoError(t, err)
		assert.Equal(t, 55.0, res.Session.AvgFatigue)
		assert.Equal(t, 77, res.Session.MaxFatigue)
		assert.Equal(t, 3, res.Session.AlertCount)
		assert.Equal(t, 2, res.Session.BreaksTaken)
		assert.Equal(t, 3, res.Daily.AlertCount)
		assert.Equal(t, 2, res.Daily.BreakCount)
	})
}

func TestConcurrentStartsSameDriver(t *testing.T) {
	forEachBackend(t, func(t *testing.T, f *fixture) {
		d := f.seedDriver(t, "jdoe")

		const n = 8
		var wg sync.WaitGroup
		errs := make([]error, n)
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				_, errs[i] = f.mgr.StartSession(context.Background(), d.ID, StartRequest{})
			}(i)
		}
		wg.Wait()

		ok := 0
		for _, err := range errs {
			if err == nil {
				ok++
				continue
			}
			assert.ErrorIs(t, err, models.ErrConflict)
		}
		assert.Equal(t, 1, ok)
	})
}

func TestConcurrentDriversIndependent(t *testing.T) {
	forEachBackend(t, func(t *testing.T, f *fixture) {
		const n = 6
		drivers := make([]*models.Driver, n)
		for i := range drivers {
			drivers[i] = f.seedDriver(t, "driver"+string(rune('a'+i)))
		}

		var wg sync.WaitGroup
		errs := make(chan error, n*3)
		for _, d := range drivers {
			wg.Add(1)
			go func(id uuid.UUID) {
				defer wg.Done()
				ctx := context.Background()
				s, err := f.mgr.StartSession(ctx, id, StartRequest{})
				if err != nil {
					errs <- err
					return
				}
				if _, err := f.mgr.RecordAssessment(ctx, id, drowsySample); err != nil {
					errs <- err
				}
				if _, err := f.mgr.EndSession(ctx, id, s.ID, EndRequest{DistanceKm: 10}); err != nil {
					errs <- err
				}
			}(d.ID)
		}
		wg.Wait()
		close(errs)

		for err := range errs {
			t.Errorf("unexpected error: %v", err)
		}
		for _, d := range drivers {
			got := f.driver(t, d.ID)
			assert.Equal(t, models.StatusIdle, got.Status)
			assert.Equal(t, 84, got.FatigueLevel)
		}
	})
}

// failingRepo injects an error into UpdateDriver inside write transactions.
type failingRepo struct {
	storage.Repository
	err error
}

func (r *failingRepo) Update(ctx context.Context, fn func(tx storage.Tx) error) error {
	return r.Repository.Update(ctx, func(tx storage.Tx) error {
		return fn(&failingTx{Tx: tx, err: r.err})
	})
}

type failingTx struct {
	storage.Tx
	err error
}

func (t *failingTx) UpdateDriver(*models.Driver) error { return t.err }

func TestEndSessionRollsBackOnFailure(t *testing.T) {
	forEachBackend(t, func(t *testing.T, f *fixture) {
		ctx := context.Background()
		d := f.seedDriver(t, "jdoe")
		s, err := f.mgr.StartSession(ctx, d.ID, StartRequest{})
		require.NoError(t, err)
		f.clock.Advance(time.Hour)

		cause := errors.New("disk on fire")
		broken := NewManager(&failingRepo{Repository: f.repo, err: cause}, nil, nil).WithClock(f.clock.Now)

		_, err = broken.EndSession(ctx, d.ID, s.ID, EndRequest{DistanceKm: 50})
		require.Error(t, err)
		assert.True(t, models.IsStorage(err))
		assert.ErrorIs(t, err, cause)
		assert.Equal(t, "storage failure: end session", err.Error())

		got := f.session(t, s.ID)
		assert.True(t, got.IsActive())
		assert.Zero(t, got.DistanceKm)
		assert.Zero(t, f.driver(t, d.ID).TotalHours)

		var daily []*models.DailyMetrics
		require.NoError(t, f.repo.View(ctx, func(tx storage.Tx) error {
			var err error
			daily, err = tx.ListDailyMetrics(d.ID, time.Time{}, time.Time{})
			return err
		}))
		assert.Empty(t, daily)
	})
}

type brokenPublisher struct{}

func (brokenPublisher) Publish(context.Context, models.AlertEvent) error {
	return errors.New("redis down")
}

func TestPublishFailureDoesNotFailAssessment(t *testing.T) {
	f := newFixture(t, openSQLite(t))
	d := f.seedDriver(t, "jdoe")
	mgr := NewManager(f.repo, brokenPublisher{}, nil)

	res, err := mgr.RecordAssessment(context.Background(), d.ID, drowsySample)
	require.NoError(t, err)
	assert.True(t, res.Record.AlertSent)
	assert.Len(t, f.records(t, d.ID), 1)
}

func TestHealthUpdateValidate(t *testing.T) {
	nan := math.NaN()
	neg := -1.0
	tooMuch := 25.0
	tests := []struct {
		name  string
		u     HealthUpdate
		field string
	}{
		{"ok", HealthUpdate{TirednessLevel: 0}, ""},
		{"tiredness high", HealthUpdate{TirednessLevel: 11}, "tiredness_level"},
		{"tiredness negative", HealthUpdate{TirednessLevel: -1}, "tiredness_level"},
		{"sleep nan", HealthUpdate{SleepHours: &nan}, "sleep_hours"},
		{"sleep too long", HealthUpdate{SleepHours: &tooMuch}, "sleep_hours"},
		{"rest negative", HealthUpdate{HoursSinceRest: &neg}, "hours_since_rest"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.u.Validate()
			if tt.field == "" {
				assert.NoError(t, err)
				return
			}
			var ve *models.ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tt.field, ve.Field)
		})
	}
}

// tickingClock advances by step on every read.
type tickingClock struct {
	mu   sync.Mutex
	t    time.Time
	step time.Duration
}

func (c *tickingClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(c.step)
	return c.t
}

// gatedClock blocks its first read until release is closed. Read n returns baseTime + n minutes.
type gatedClock struct {
	mu      sync.Mutex
	calls   int
	entered chan struct{}
	release chan struct{}
}

func (c *gatedClock) Now() time.Time {
	c.mu.Lock()
	n := c.calls
	c.calls++
	c.mu.Unlock()
	if n == 0 {
		close(c.entered)
		<-c.release
	}
	return baseTime.Add(time.Duration(n) * time.Minute)
}

func TestRecordTimestampsFollowCommitOrder(t *testing.T) {
	forEachBackend(t, func(t *testing.T, f *fixture) {
		d := f.seedDriver(t, "jdoe")
		c := &gatedClock{entered: make(chan struct{}), release: make(chan struct{})}
		mgr := NewManager(f.repo, nil, nil).WithClock(c.Now)
		ctx := context.Background()

		var wg sync.WaitGroup
		errs := make([]error, 2)
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, errs[0] = mgr.RecordAssessment(ctx, d.ID, drowsySample)
		}()
		<-c.entered
		go func() {
			defer wg.Done()
			_, errs[1] = mgr.RecordAssessment(ctx, d.ID, alertSample)
		}()
		time.Sleep(50 * time.Millisecond)
		close(c.release)
		wg.Wait()
		require.NoError(t, errs[0])
		require.NoError(t, errs[1])

		recs := f.records(t, d.ID)
		require.Len(t, recs, 2)
		newest := recs[0]
		got := f.driver(t, d.ID)
		require.NotNil(t, got.LastAssessmentAt)
		assert.True(t, newest.RecordedAt.Equal(*got.LastAssessmentAt),
			"driver last assessment %v, newest record %v", *got.LastAssessmentAt, newest.RecordedAt)
		assert.Equal(t, newest.FatigueLevel, got.FatigueLevel)
		assert.Equal(t, 10, newest.FatigueLevel)
		assert.Equal(t, 84, recs[1].FatigueLevel)
	})
}

func TestConcurrentAssessmentsSameDriver(t *testing.T) {
	forEachBackend(t, func(t *testing.T, f *fixture) {
		d := f.seedDriver(t, "jdoe")
		c := &tickingClock{t: baseTime, step: time.Second}
		mgr := NewManager(f.repo, nil, nil).WithClock(c.Now)
		ctx := context.Background()

		s, err := mgr.StartSession(ctx, d.ID, StartRequest{})
		require.NoError(t, err)

		const k = 10
		var wg sync.WaitGroup
		errs := make([]error, k)
		for i := 0; i < k; i++ {
			sample := alertSample
			if i%2 == 0 {
				sample = drowsySample
			}
			wg.Add(1)
			go func(i int, sample models.Sample) {
				defer wg.Done()
				_, errs[i] = mgr.RecordAssessment(ctx, d.ID, sample)
			}(i, sample)
		}
		wg.Wait()
		for _, err := range errs {
			require.NoError(t, err)
		}

		got := f.session(t, s.ID)
		assert.Equal(t, k, got.AssessmentCount)
		assert.InDelta(t, 47.0, got.AvgFatigue, 1e-6)
		assert.Equal(t, 84, got.MaxFatigue)
		assert.Equal(t, k/2, got.AlertCount)

		recs := f.records(t, d.ID)
		require.Len(t, recs, k)
		for i := 1; i < len(recs); i++ {
			assert.True(t, recs[i-1].RecordedAt.After(recs[i].RecordedAt), "records %d and %d share a timestamp", i-1, i)
		}

		drv := f.driver(t, d.ID)
		require.NotNil(t, drv.LastAssessmentAt)
		assert.True(t, recs[0].RecordedAt.Equal(*drv.LastAssessmentAt))
		assert.Equal(t, recs[0].FatigueLevel, drv.FatigueLevel)
	})
}

func TestTotalHoursSumsSessionDurations(t *testing.T) {
	forEachBackend(t, func(t *testing.T, f *fixture) {
		c := &tickingClock{t: baseTime, step: 15 * time.Minute}
		mgr := NewManager(f.repo, nil, nil).WithClock(c.Now)

		const drivers, cycles = 3, 4
		ids := make([]uuid.UUID, drivers)
		for i := range ids {
			ids[i] = f.seedDriver(t, "driver"+string(rune('a'+i))).ID
		}

		var wg sync.WaitGroup
		errs := make(chan error, drivers*cycles*2)
		for _, id := range ids {
			wg.Add(1)
			go func(id uuid.UUID) {
				defer wg.Done()
				ctx := context.Background()
				for j := 0; j < cycles; j++ {
					s, err := mgr.StartSession(ctx, id, StartRequest{})
					if err != nil {
						errs <- err
						return
					}
					if _, err := mgr.EndSession(ctx, id, s.ID, EndRequest{DistanceKm: 5}); err != nil {
						errs <- err
						return
					}
				}
			}(id)
		}
		wg.Wait()
		close(errs)
		for err := range errs {
			t.Errorf("unexpected error: %v", err)
		}

		for _, id := range ids {
			var sessions []*models.DrivingSession
			require.NoError(t, f.repo.View(context.Background(), func(tx storage.Tx) error {
				var err error
				sessions, err = tx.ListSessions(id, 0)
				return err
			}))
			require.Len(t, sessions, cycles)

			var sum float64
			for _, s := range sessions {
				assert.False(t, s.IsActive())
				assert.Greater(t, s.DurationHours, 0.0)
				sum += s.DurationHours
			}
			assert.InDelta(t, sum, f.driver(t, id).TotalHours, 1e-9)
		}
	})
}
