// Package stores provides the four record stores of the simulated company
// (orders, inventory, production tracking, ledger) over database/sql.
package stores

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as a database/sql driver
	_ "modernc.org/sqlite"             // pure go sqlite driver

	simerrors "github.com/meow-stack/factory-sim/internal/errors"
	"github.com/meow-stack/factory-sim/internal/types"
)

// Dialect identifies the SQL flavour of a store connection.
type Dialect string

const (
	DialectSQLite   Dialect = "sqlite"
	DialectPostgres Dialect = "postgres"
)

// db wraps a handle with the dialect so queries can be written once with
// '?' placeholders.
type db struct {
	*sql.DB
	dialect Dialect
	store   string
}

// queryer is satisfied by both *sql.DB and *sql.Tx.
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func openSQLite(store, dir, file string) (*db, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, simerrors.StoreOpen(store, err)
	}
	// WAL plus a busy timeout lets an agent process share the files.
	dsn := "file:" + filepath.Join(dir, file) + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, simerrors.StoreOpen(store, err)
	}
	conn.SetMaxOpenConns(1)
	return &db{DB: conn, dialect: DialectSQLite, store: store}, nil
}

func openPostgres(ctx context.Context, store, dsn string) (*db, error) {
	conn, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, simerrors.StoreOpen(store, err)
	}
	if err := conn.PingContext(ctx); err != nil {
		_ = conn.Close()
		return nil, simerrors.StoreOpen(store, err)
	}
	return &db{DB: conn, dialect: DialectPostgres, store: store}, nil
}

// rebind rewrites '?' placeholders to '$n' for postgres.
func (d *db) rebind(query string) string {
	if d.dialect != DialectPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (d *db) exec(ctx context.Context, q queryer, op, query string, args ...any) (sql.Result, error) {
	res, err := q.ExecContext(ctx, d.rebind(query), args...)
	if err != nil {
		return nil, simerrors.StoreQuery(d.store, op, err)
	}
	return res, nil
}

func (d *db) query(ctx context.Context, q queryer, op, query string, args ...any) (*sql.Rows, error) {
	rows, err := q.QueryContext(ctx, d.rebind(query), args...)
	if err != nil {
		return nil, simerrors.StoreQuery(d.store, op, err)
	}
	return rows, nil
}

func (d *db) queryRow(ctx context.Context, q queryer, query string, args ...any) *sql.Row {
	return q.QueryRowContext(ctx, d.rebind(query), args...)
}

// insertID runs an INSERT ... RETURNING <id> statement.
func (d *db) insertID(ctx context.Context, q queryer, op, query string, args ...any) (int64, error) {
	var id int64
	if err := d.queryRow(ctx, q, query, args...).Scan(&id); err != nil {
		return 0, simerrors.StoreQuery(d.store, op, err)
	}
	return id, nil
}

// inTx runs fn inside a transaction, rolling back when it fails.
func (d *db) inTx(ctx context.Context, op string, fn func(tx *sql.Tx) error) (retErr error) {
	tx, err := d.BeginTx(ctx, nil)
	if err != nil {
		return simerrors.StoreQuery(d.store, op, err)
	}
	defer func() {
		if retErr != nil {
			_ = tx.Rollback()
		}
	}()
	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return simerrors.StoreQuery(d.store, op, err)
	}
	return nil
}

// migrate applies the store's DDL for its dialect.
func (d *db) migrate(ctx context.Context, tables []table) error {
	for _, t := range tables {
		if _, err := d.exec(ctx, d.DB, "create "+t.name, t.ddl(d.dialect)); err != nil {
			return err
		}
	}
	return nil
}

// drop removes the store's tables.
func (d *db) drop(ctx context.Context, tables []table) error {
	for i := len(tables) - 1; i >= 0; i-- {
		if _, err := d.exec(ctx, d.DB, "drop "+tables[i].name, "DROP TABLE IF EXISTS "+tables[i].name); err != nil {
			return err
		}
	}
	return nil
}

func (d *db) count(ctx context.Context, op, query string, args ...any) (int, error) {
	var n int
	if err := d.queryRow(ctx, d.DB, query, args...).Scan(&n); err != nil {
		return 0, simerrors.StoreQuery(d.store, op, err)
	}
	return n, nil
}

// Timestamps are stored as text in the snapshot layouts so both dialects
// and external readers agree on their shape.

func formatDateTime(t time.Time) string { return t.Format(types.DateTimeLayout) }

func formatDate(t time.Time) string { return t.Format(types.DateLayout) }

func nullDateTime(t time.Time) sql.NullString {
	if t.IsZero() {
		return sql.NullString{}
	}
	return sql.NullString{String: formatDateTime(t), Valid: true}
}

func nullDate(t time.Time) sql.NullString {
	if t.IsZero() {
		return sql.NullString{}
	}
	return sql.NullString{String: formatDate(t), Valid: true}
}

// parseTime accepts either layout; NULL and empty decode to the zero time.
func parseTime(s sql.NullString) (time.Time, error) {
	if !s.Valid || s.String == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(types.DateTimeLayout, s.String); err == nil {
		return t, nil
	}
	t, err := time.Parse(types.DateLayout, s.String)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", s.String, err)
	}
	return t, nil
}
