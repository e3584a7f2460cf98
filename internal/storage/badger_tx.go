// ABOUTME: Tx implementation over a Badger transaction.
// ABOUTME: Maintains username/email/license, active-session, and time-ordered indexes.
package storage

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v3"
	"github.com/google/uuid"
	"github.com/harperreed/drivewatch/internal/models"
)

type badgerTx struct {
	txn *badger.Txn
}

var _ Tx = (*badgerTx)(nil)

func driverKey(id uuid.UUID) []byte           { return []byte("driver/" + id.String()) }
func uniqueKey(field, value string) []byte    { return []byte("idx/" + field + "/" + value) }
func sessionKey(id uuid.UUID) []byte          { return []byte("session/" + id.String()) }
func activeKey(driverID uuid.UUID) []byte     { return []byte("active/" + driverID.String()) }
func recordKey(id uuid.UUID) []byte           { return []byte("record/" + id.String()) }
func driverSessionPrefix(id uuid.UUID) []byte { return []byte("dsession/" + id.String() + "/") }
func driverRecordPrefix(id uuid.UUID) []byte  { return []byte("drecord/" + id.String() + "/") }
func dailyPrefix(id uuid.UUID) []byte         { return []byte("daily/" + id.String() + "/") }

var alertPrefix = []byte("alert/")

func timeIndexKey(prefix []byte, t time.Time, id uuid.UUID) []byte {
	return []byte(string(prefix) + formatTime(t) + "/" + id.String())
}

func dailyKey(driverID uuid.UUID, day time.Time) []byte {
	return []byte(string(dailyPrefix(driverID)) + formatDate(day))
}

// lastSegment returns the part of key after its final slash.
func lastSegment(key []byte) string {
	i := bytes.LastIndexByte(key, '/')
	return string(key[i+1:])
}

// getJSON decodes the value at key. Errors name the entity, never the key.
func (t *badgerTx) getJSON(key []byte, what string, v any) error {
	item, err := t.txn.Get(key)
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("%s: %w", what, models.ErrNotFound)
		}
		return fmt.Errorf("get %s: %w", what, err)
	}
	return item.Value(func(val []byte) error {
		return json.Unmarshal(val, v)
	})
}

func (t *badgerTx) setJSON(key []byte, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", key, err)
	}
	return t.txn.Set(key, data)
}

func (t *badgerTx) exists(key []byte) (bool, error) {
	_, err := t.txn.Get(key)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, badger.ErrKeyNotFound) {
		return false, nil
	}
	return false, err
}

// scan walks keys under prefix starting at seek. fn returns false to stop.
// Only one iterator may be open in a read-write transaction, so fn must not iterate.
func (t *badgerTx) scan(prefix, seek []byte, reverse bool, fn func(item *badger.Item) (bool, error)) error {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = prefix
	opts.Reverse = reverse
	it := t.txn.NewIterator(opts)
	defer it.Close()

	if seek == nil {
		seek = prefix
		if reverse {
			seek = append(append([]byte{}, prefix...), 0xFF)
		}
	}
	for it.Seek(seek); it.ValidForPrefix(prefix); it.Next() {
		more, err := fn(it.Item())
		if err != nil {
			return err
		}
		if !more {
			return nil
		}
	}
	return nil
}

// indexIDs collects the trailing IDs of index keys, newest first.
func (t *badgerTx) indexIDs(prefix []byte, limit int) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := t.scan(prefix, nil, true, func(item *badger.Item) (bool, error) {
		id, err := uuid.Parse(lastSegment(item.Key()))
		if err != nil {
			return false, fmt.Errorf("parse index key %s: %w", item.Key(), err)
		}
		ids = append(ids, id)
		return limit <= 0 || len(ids) < limit, nil
	})
	return ids, err
}

func driverUniqueFields(d *models.Driver) map[string]string {
	fields := map[string]string{
		"username": d.Username,
		"email":    d.Email,
	}
	if d.LicenseNumber != "" {
		fields["license"] = d.LicenseNumber
	}
	return fields
}

// CreateDriver stores a new driver and claims its unique fields.
func (t *badgerTx) CreateDriver(d *models.Driver) error {
	taken, err := t.exists(driverKey(d.ID))
	if err != nil {
		return fmt.Errorf("create driver: %w", err)
	}
	if taken {
		return fmt.Errorf("create driver: %w", models.ErrConflict)
	}

	for field, value := range driverUniqueFields(d) {
		taken, err := t.exists(uniqueKey(field, value))
		if err != nil {
			return fmt.Errorf("create driver: %w", err)
		}
		if taken {
			return fmt.Errorf("create driver: %s %q: %w", field, value, models.ErrConflict)
		}
		if err := t.txn.Set(uniqueKey(field, value), []byte(d.ID.String())); err != nil {
			return fmt.Errorf("create driver: %w", err)
		}
	}

	if err := t.setJSON(driverKey(d.ID), d); err != nil {
		return fmt.Errorf("create driver: %w", err)
	}
	return nil
}

// UpdateDriver overwrites a driver, moving unique-field claims that changed.
func (t *badgerTx) UpdateDriver(d *models.Driver) error {
	old, err := t.GetDriver(d.ID)
	if err != nil {
		return fmt.Errorf("update driver: %w", err)
	}

	oldFields := driverUniqueFields(old)
	newFields := driverUniqueFields(d)
	for field, value := range newFields {
		if oldFields[field] == value {
			continue
		}
		taken, err := t.exists(uniqueKey(field, value))
		if err != nil {
			return fmt.Errorf("update driver: %w", err)
		}
		if taken {
			return fmt.Errorf("update driver: %s %q: %w", field, value, models.ErrConflict)
		}
		if err := t.txn.Set(uniqueKey(field, value), []byte(d.ID.String())); err != nil {
			return fmt.Errorf("update driver: %w", err)
		}
	}
	for field, value := range oldFields {
		if newFields[field] == value {
			continue
		}
		if err := t.txn.Delete(uniqueKey(field, value)); err != nil {
			return fmt.Errorf("update driver: %w", err)
		}
	}

	if err := t.setJSON(driverKey(d.ID), d); err != nil {
		return fmt.Errorf("update driver: %w", err)
	}
	return nil
}

// GetDriver retrieves a driver by ID.
func (t *badgerTx) GetDriver(id uuid.UUID) (*models.Driver, error) {
	var d models.Driver
	if err := t.getJSON(driverKey(id), "driver "+id.String(), &d); err != nil {
		return nil, err
	}
	return &d, nil
}

// ResolveDriver finds a driver by full UUID, exact username, or ID prefix.
func (t *badgerTx) ResolveDriver(ref string) (*models.Driver, error) {
	if id, err := uuid.Parse(ref); err == nil {
		return t.GetDriver(id)
	}

	item, err := t.txn.Get(uniqueKey("username", ref))
	if err == nil {
		val, err := item.ValueCopy(nil)
		if err != nil {
			return nil, fmt.Errorf("resolve driver: %w", err)
		}
		id, err := uuid.ParseBytes(val)
		if err != nil {
			return nil, fmt.Errorf("resolve driver: %w", err)
		}
		return t.GetDriver(id)
	}
	if !errors.Is(err, badger.ErrKeyNotFound) {
		return nil, fmt.Errorf("resolve driver: %w", err)
	}

	prefix := []byte("driver/" + strings.ToLower(ref))
	var matches []uuid.UUID
	err = t.scan(prefix, nil, false, func(item *badger.Item) (bool, error) {
		id, err := uuid.Parse(lastSegment(item.Key()))
		if err != nil {
			return false, err
		}
		matches = append(matches, id)
		return len(matches) < 2, nil
	})
	if err != nil {
		return nil, fmt.Errorf("resolve driver: %w", err)
	}

	switch len(matches) {
	case 0:
		return nil, fmt.Errorf("driver %s: %w", ref, models.ErrNotFound)
	case 1:
		return t.GetDriver(matches[0])
	default:
		return nil, models.NewValidationError("id", "ambiguous prefix %s: matches multiple records", ref)
	}
}

// ListDrivers returns drivers ordered by username, optionally filtered by status.
func (t *badgerTx) ListDrivers(status *models.SessionStatus) ([]*models.Driver, error) {
	var drivers []*models.Driver
	err := t.scan([]byte("driver/"), nil, false, func(item *badger.Item) (bool, error) {
		var d models.Driver
		if err := item.Value(func(val []byte) error { return json.Unmarshal(val, &d) }); err != nil {
			return false, err
		}
		if status == nil || d.Status == *status {
			drivers = append(drivers, &d)
		}
		return true, nil
	})
	if err != nil {
		return nil, fmt.Errorf("list drivers: %w", err)
	}

	sortDriversByUsername(drivers)
	return drivers, nil
}

// CreateSession stores a new session. A second open session for the same driver is a conflict.
func (t *badgerTx) CreateSession(s *models.DrivingSession) error {
	if _, err := t.GetDriver(s.DriverID); err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	taken, err := t.exists(sessionKey(s.ID))
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	if taken {
		return fmt.Errorf("create session: %w", models.ErrConflict)
	}

	if s.IsActive() {
		open, err := t.exists(activeKey(s.DriverID))
		if err != nil {
			return fmt.Errorf("create session: %w", err)
		}
		if open {
			return fmt.Errorf("create session: %w", models.ErrConflict)
		}
		if err := t.txn.Set(activeKey(s.DriverID), []byte(s.ID.String())); err != nil {
			return fmt.Errorf("create session: %w", err)
		}
	}

	if err := t.txn.Set(timeIndexKey(driverSessionPrefix(s.DriverID), s.StartedAt, s.ID), nil); err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	if err := t.setJSON(sessionKey(s.ID), s); err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	return nil
}

// UpdateSession overwrites a session, releasing the active claim once it ends.
func (t *badgerTx) UpdateSession(s *models.DrivingSession) error {
	old, err := t.GetSession(s.ID)
	if err != nil {
		return fmt.Errorf("update session: %w", err)
	}
	if old.IsActive() && !s.IsActive() {
		if err := t.txn.Delete(activeKey(s.DriverID)); err != nil {
			return fmt.Errorf("update session: %w", err)
		}
	}
	if err := t.setJSON(sessionKey(s.ID), s); err != nil {
		return fmt.Errorf("update session: %w", err)
	}
	return nil
}

// GetSession retrieves a session by ID.
func (t *badgerTx) GetSession(id uuid.UUID) (*models.DrivingSession, error) {
	var s models.DrivingSession
	if err := t.getJSON(sessionKey(id), "session "+id.String(), &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// ActiveSession returns the driver's open session.
func (t *badgerTx) ActiveSession(driverID uuid.UUID) (*models.DrivingSession, error) {
	item, err := t.txn.Get(activeKey(driverID))
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, fmt.Errorf("active session: %w", models.ErrNotFound)
		}
		return nil, fmt.Errorf("active session: %w", err)
	}
	val, err := item.ValueCopy(nil)
	if err != nil {
		return nil, fmt.Errorf("active session: %w", err)
	}
	id, err := uuid.ParseBytes(val)
	if err != nil {
		return nil, fmt.Errorf("active session: %w", err)
	}
	return t.GetSession(id)
}

// ListSessions returns a driver's sessions, most recent first.
func (t *badgerTx) ListSessions(driverID uuid.UUID, limit int) ([]*models.DrivingSession, error) {
	ids, err := t.indexIDs(driverSessionPrefix(driverID), limit)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}

	sessions := make([]*models.DrivingSession, 0, len(ids))
	for _, id := range ids {
		s, err := t.GetSession(id)
		if err != nil {
			return nil, fmt.Errorf("list sessions: %w", err)
		}
		sessions = append(sessions, s)
	}
	return sessions, nil
}

// CreateHealthRecord appends a health record and its driver and alert indexes.
func (t *badgerTx) CreateHealthRecord(r *models.HealthRecord) error {
	if _, err := t.GetDriver(r.DriverID); err != nil {
		return fmt.Errorf("create health record: %w", err)
	}
	taken, err := t.exists(recordKey(r.ID))
	if err != nil {
		return fmt.Errorf("create health record: %w", err)
	}
	if taken {
		return fmt.Errorf("create health record: %w", models.ErrConflict)
	}

	if err := t.setJSON(recordKey(r.ID), r); err != nil {
		return fmt.Errorf("create health record: %w", err)
	}
	if err := t.txn.Set(timeIndexKey(driverRecordPrefix(r.DriverID), r.RecordedAt, r.ID), nil); err != nil {
		return fmt.Errorf("create health record: %w", err)
	}
	if r.AlertSent {
		if err := t.txn.Set(timeIndexKey(alertPrefix, r.RecordedAt, r.ID), nil); err != nil {
			return fmt.Errorf("create health record: %w", err)
		}
	}
	return nil
}

// ListHealthRecords returns a driver's records, most recent first.
func (t *badgerTx) ListHealthRecords(driverID uuid.UUID, limit int) ([]*models.HealthRecord, error) {
	ids, err := t.indexIDs(driverRecordPrefix(driverID), limit)
	if err != nil {
		return nil, fmt.Errorf("list health records: %w", err)
	}
	return t.loadRecords(ids)
}

// ListAlerts returns records with alert_sent set at or after since, most recent first.
func (t *badgerTx) ListAlerts(since time.Time, limit int) ([]*models.HealthRecord, error) {
	floor := formatTime(since)
	var ids []uuid.UUID
	err := t.scan(alertPrefix, nil, true, func(item *badger.Item) (bool, error) {
		rest := strings.TrimPrefix(string(item.Key()), string(alertPrefix))
		ts, idStr, ok := strings.Cut(rest, "/")
		if !ok {
			return false, fmt.Errorf("malformed alert key %s", item.Key())
		}
		if ts < floor {
			return false, nil
		}
		id, err := uuid.Parse(idStr)
		if err != nil {
			return false, err
		}
		ids = append(ids, id)
		return limit <= 0 || len(ids) < limit, nil
	})
	if err != nil {
		return nil, fmt.Errorf("list alerts: %w", err)
	}
	return t.loadRecords(ids)
}

func (t *badgerTx) loadRecords(ids []uuid.UUID) ([]*models.HealthRecord, error) {
	records := make([]*models.HealthRecord, 0, len(ids))
	for _, id := range ids {
		var r models.HealthRecord
		if err := t.getJSON(recordKey(id), "health record "+id.String(), &r); err != nil {
			return nil, err
		}
		records = append(records, &r)
	}
	return records, nil
}

// GetDailyMetrics returns the rollup for one day.
func (t *badgerTx) GetDailyMetrics(driverID uuid.UUID, day time.Time) (*models.DailyMetrics, error) {
	var m models.DailyMetrics
	if err := t.getJSON(dailyKey(driverID, day), "daily metrics "+formatDate(day), &m); err != nil {
		return nil, err
	}
	return &m, nil
}

// PutDailyMetrics inserts or replaces the rollup for a day.
func (t *badgerTx) PutDailyMetrics(m *models.DailyMetrics) error {
	if err := t.setJSON(dailyKey(m.DriverID, m.Date), m); err != nil {
		return fmt.Errorf("put daily metrics: %w", err)
	}
	return nil
}

// ListDailyMetrics returns rollups in ascending date order within [from, to].
func (t *badgerTx) ListDailyMetrics(driverID uuid.UUID, from, to time.Time) ([]*models.DailyMetrics, error) {
	prefix := dailyPrefix(driverID)
	var seek []byte
	if !from.IsZero() {
		seek = dailyKey(driverID, from)
	}
	upper := ""
	if !to.IsZero() {
		upper = formatDate(to)
	}

	var out []*models.DailyMetrics
	err := t.scan(prefix, seek, false, func(item *badger.Item) (bool, error) {
		if upper != "" && lastSegment(item.Key()) > upper {
			return false, nil
		}
		var m models.DailyMetrics
		if err := item.Value(func(val []byte) error { return json.Unmarshal(val, &m) }); err != nil {
			return false, err
		}
		out = append(out, &m)
		return true, nil
	})
	if err != nil {
		return nil, fmt.Errorf("list daily metrics: %w", err)
	}
	return out, nil
}
