// ABOUTME: Failure-path tests for SQLStore using go-sqlmock.
// ABOUTME: Proves units of work roll back and errors are classified.
package storage

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/harperreed/drivewatch/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpdateRollsBackWhenSecondWriteFails(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	store := New(db, DialectSQLite)
	d := models.NewDriver("jdoe", "j@example.com", models.VehicleCar)
	s := models.NewDrivingSession(d.ID)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE sessions SET").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE drivers SET").WillReturnError(errors.New("disk I/O error"))
	mock.ExpectRollback()

	err = store.Update(context.Background(), func(tx Tx) error {
		if err := tx.UpdateSession(s); err != nil {
			return err
		}
		return tx.UpdateDriver(d)
	})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "update driver")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateCommitFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	store := New(db, DialectSQLite)

	mock.ExpectBegin()
	mock.ExpectCommit().WillReturnError(errors.New("database is locked"))

	err = store.Update(context.Background(), func(tx Tx) error { return nil })
	require.Error(t, err)
	assert.Contains(t, err.Error(), "commit transaction")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateZeroRowsIsNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	store := New(db, DialectPostgres)
	d := models.NewDriver("jdoe", "j@example.com", models.VehicleCar)

	mock.ExpectBegin()
	mock.ExpectExec(`(?s)UPDATE drivers SET .* WHERE id = \$12`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err = store.Update(context.Background(), func(tx Tx) error { return tx.UpdateDriver(d) })
	assert.ErrorIs(t, err, models.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUniqueViolationIsConflict(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	store := New(db, DialectSQLite)
	s := models.NewDrivingSession(models.NewDriver("a", "a@example.com", models.VehicleCar).ID)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO sessions").
		WillReturnError(errors.New("constraint failed: UNIQUE constraint failed: sessions.driver_id (2067)"))
	mock.ExpectRollback()

	err = store.Update(context.Background(), func(tx Tx) error { return tx.CreateSession(s) })
	assert.ErrorIs(t, err, models.ErrConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRebind(t *testing.T) {
	q := "SELECT id FROM drivers WHERE username = ? AND status = ? LIMIT ?"

	assert.Equal(t, q, DialectSQLite.rebind(q))
	assert.Equal(t,
		"SELECT id FROM drivers WHERE username = $1 AND status = $2 LIMIT $3",
		DialectPostgres.rebind(q))
	assert.Equal(t, "postgres", DialectPostgres.String())
	assert.Equal(t, "sqlite", DialectSQLite.String())
}
