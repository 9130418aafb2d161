package store

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// queries implements Repos over either the pool or a single transaction.
type queries struct {
	ext    sqlx.ExtContext
	driver Driver
}

func newQueries(ext sqlx.ExtContext, driver Driver) *queries {
	return &queries{ext: ext, driver: driver}
}

// rebind converts ? placeholders to the driver's bind style.
func (q *queries) rebind(query string) string {
	if q.driver == DriverPostgres {
		return sqlx.Rebind(sqlx.DOLLAR, query)
	}
	return sqlx.Rebind(sqlx.QUESTION, query)
}

// in expands slice arguments and rebinds the result.
func (q *queries) in(query string, args ...any) (string, []any, error) {
	query, args, err := sqlx.In(query, args...)
	if err != nil {
		return "", nil, err
	}
	return q.rebind(query), args, nil
}

// forUpdate returns the row-lock suffix for SELECT statements. SQLite has no
// row locks; its pool is a single connection, so a transaction already
// excludes every other writer.
func (q *queries) forUpdate() string {
	if q.driver == DriverPostgres {
		return " FOR UPDATE"
	}
	return ""
}

// mapErr translates driver errors into the package sentinels.
func mapErr(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if isUniqueViolation(err) {
		return ErrConflict
	}
	return fmt.Errorf("%s: %w", op, err)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		switch liteErr.Code() {
		case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
			return true
		case sqlite3.SQLITE_CONSTRAINT:
			return strings.Contains(liteErr.Error(), "UNIQUE")
		}
	}
	return false
}

// StringList is a []string stored as a JSON array in a text column.
type StringList []string

func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	b, err := json.Marshal([]string(l))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (l *StringList) Scan(src any) error {
	var b []byte
	switch v := src.(type) {
	case nil:
		*l = nil
		return nil
	case string:
		b = []byte(v)
	case []byte:
		b = v
	default:
		return fmt.Errorf("scan StringList: unsupported type %T", src)
	}
	if len(b) == 0 {
		*l = nil
		return nil
	}
	return json.Unmarshal(b, (*[]string)(l))
}

func sqlxGet(ctx context.Context, q *queries, dest any, query string, args ...any) error {
	return sqlx.GetContext(ctx, q.ext, dest, q.rebind(query), args...)
}

func sqlxSelect(ctx context.Context, q *queries, dest any, query string, args ...any) error {
	return sqlx.SelectContext(ctx, q.ext, dest, q.rebind(query), args...)
}

// sqlxSelectIn is sqlxSelect for queries with IN (?) slice arguments.
func sqlxSelectIn(ctx context.Context, q *queries, dest any, query string, args ...any) error {
	query, args, err := q.in(query, args...)
	if err != nil {
		return err
	}
	return sqlx.SelectContext(ctx, q.ext, dest, query, args...)
}
