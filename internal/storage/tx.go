// ABOUTME: SQL unit-of-work wrapper shared by SQLite and Postgres.
// ABOUTME: Rebinds placeholders and threads the context through every statement.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/harperreed/drivewatch/internal/models"
)

type sqlTx struct {
	ctx     context.Context
	tx      *sql.Tx
	dialect Dialect
}

var _ Tx = (*sqlTx)(nil)

func (t *sqlTx) exec(query string, args ...any) (sql.Result, error) {
	return t.tx.ExecContext(t.ctx, t.dialect.rebind(query), args...)
}

func (t *sqlTx) query(query string, args ...any) (*sql.Rows, error) {
	return t.tx.QueryContext(t.ctx, t.dialect.rebind(query), args...)
}

func (t *sqlTx) queryRow(query string, args ...any) *sql.Row {
	return t.tx.QueryRowContext(t.ctx, t.dialect.rebind(query), args...)
}

// execOne runs a write that must touch exactly one row.
func (t *sqlTx) execOne(op string, query string, args ...any) error {
	result, err := t.exec(query, args...)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%s: %w", op, models.ErrConflict)
		}
		return fmt.Errorf("%s: %w", op, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if affected == 0 {
		return fmt.Errorf("%s: %w", op, models.ErrNotFound)
	}
	return nil
}

func notFound(what string, err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", what, models.ErrNotFound)
	}
	return fmt.Errorf("scan %s: %w", what, err)
}

// resolvePrefix finds the single id in table starting with prefix.
func (t *sqlTx) resolvePrefix(table, prefix string) (uuid.UUID, error) {
	rows, err := t.query(`SELECT id FROM `+table+` WHERE id LIKE ? || '%'`, strings.ToLower(prefix))
	if err != nil {
		return uuid.Nil, fmt.Errorf("resolve %s ID: %w", table, err)
	}
	defer rows.Close()

	var matches []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return uuid.Nil, fmt.Errorf("scan %s ID: %w", table, err)
		}
		matches = append(matches, id)
	}
	if err := rows.Err(); err != nil {
		return uuid.Nil, fmt.Errorf("resolve %s ID: %w", table, err)
	}

	if len(matches) == 0 {
		return uuid.Nil, fmt.Errorf("%s %s: %w", table, prefix, models.ErrNotFound)
	}
	if len(matches) > 1 {
		return uuid.Nil, models.NewValidationError("id", "ambiguous prefix %s: matches multiple records", prefix)
	}
	return uuid.Parse(matches[0])
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: formatTime(*t), Valid: true}
}
