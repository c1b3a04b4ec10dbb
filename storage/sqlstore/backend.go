// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/lib/pq"
	"github.com/pkg/errors"

	// Register the SQLite driver.
	_ "modernc.org/sqlite"
)

// Dialect selects the SQL flavour spoken by a Backend.
type Dialect string

const (
	DialectPostgres Dialect = "postgres"
	DialectSQLite   Dialect = "sqlite"
)

// ParseDialect maps a configuration string to a Dialect.
func ParseDialect(s string) (Dialect, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "postgres", "postgresql", "pg":
		return DialectPostgres, nil
	case "sqlite", "sqlite3", "":
		return DialectSQLite, nil
	default:
		return "", fmt.Errorf("unknown database dialect %q", s)
	}
}

// Backend wraps a *sql.DB and the dialect used to talk to it.
type Backend struct {
	db      *sql.DB
	dialect Dialect
	logger  *slog.Logger
}

// Option configures a Backend.
type Option func(*Backend) error

// WithLogger sets the logger for the backend.
// If not provided, slog.Default() is used.
func WithLogger(logger *slog.Logger) Option {
	return func(b *Backend) error {
		if logger == nil {
			logger = slog.Default()
		}
		b.logger = logger.With("component", "sqlstore")
		return nil
	}
}

type txKey struct{}

// Open connects to the database described by dsn and applies the schema.
func Open(ctx context.Context, dialect Dialect, dsn string, opts ...Option) (*Backend, error) {
	if dsn == "" {
		return nil, errors.New("dsn required")
	}

	var (
		db  *sql.DB
		err error
	)
	switch dialect {
	case DialectPostgres:
		db, err = sql.Open("postgres", dsn)
		if err != nil {
			return nil, errors.Wrap(err, "failed to open postgres")
		}
	case DialectSQLite:
		// Each pragma must be prefixed with `_pragma=` for the modernc driver.
		pragmas := "_pragma=foreign_keys(1)&_pragma=busy_timeout(10000)"
		if !strings.Contains(dsn, ":memory:") {
			pragmas += "&_pragma=journal_mode(WAL)"
		}
		sep := "?"
		if strings.Contains(dsn, "?") {
			sep = "&"
		}
		db, err = sql.Open("sqlite", dsn+sep+pragmas)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to open db with dsn: %s", dsn)
		}
		// A single connection serializes writers and keeps in-memory databases alive.
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
		db.SetConnMaxLifetime(0)
		db.SetConnMaxIdleTime(0)
	default:
		return nil, fmt.Errorf("unknown database dialect %q", dialect)
	}

	b, err := NewBackend(db, dialect, opts...)
	if err != nil {
		db.Close()
		return nil, err
	}
	if err := b.Migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return b, nil
}

// NewBackend wraps an already opened database. The schema is not applied.
func NewBackend(db *sql.DB, dialect Dialect, opts ...Option) (*Backend, error) {
	b := &Backend{
		db:      db,
		dialect: dialect,
		logger:  slog.Default().With("component", "sqlstore"),
	}
	for _, opt := range opts {
		if err := opt(b); err != nil {
			return nil, err
		}
	}
	return b, nil
}

// DB returns the underlying database handle.
func (b *Backend) DB() *sql.DB {
	return b.db
}

// Dialect returns the backend dialect.
func (b *Backend) Dialect() Dialect {
	return b.dialect
}

// Close closes the database.
func (b *Backend) Close() error {
	return b.db.Close()
}

// Queryer is satisfied by both *sql.DB and *sql.Tx.
type Queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Conn returns the transaction that WithTransaction placed in ctx, or db
// when ctx carries none. Stores sharing the backend's database use it to
// join the caller's transaction.
func Conn(ctx context.Context, db *sql.DB) Queryer {
	if tx, ok := ctx.Value(txKey{}).(*sql.Tx); ok {
		return tx
	}
	return db
}

func (b *Backend) conn(ctx context.Context) Queryer {
	return Conn(ctx, b.db)
}

// WithTransaction executes fn within a database transaction.
// If ctx already carries a transaction, fn joins it.
func (b *Backend) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey{}).(*sql.Tx); ok {
		return fn(ctx)
	}

	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "failed to begin transaction")
	}

	if err := fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			b.logger.Error("failed to roll back transaction", "err", rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, "failed to commit transaction")
	}
	return nil
}

// placeholder returns the n-th (1-based) bind parameter marker.
func (b *Backend) placeholder(n int) string {
	if b.dialect == DialectPostgres {
		return "$" + strconv.Itoa(n)
	}
	return "?"
}

// placeholders returns count comma separated markers starting at first.
func (b *Backend) placeholders(first, count int) string {
	parts := make([]string, count)
	for i := range parts {
		parts[i] = b.placeholder(first + i)
	}
	return strings.Join(parts, ", ")
}

// timeArg converts t to the driver value stored by the dialect.
func (b *Backend) timeArg(t time.Time) any {
	t = t.UTC().Truncate(time.Microsecond)
	if b.dialect == DialectSQLite {
		return t.UnixMicro()
	}
	return t
}

// inIDs renders `column IN (...)` for SQLite or `column = ANY($n)` for
// PostgreSQL, appending the bind values to args.
func (b *Backend) inIDs(column string, ids []int64, args []any) (string, []any) {
	if b.dialect == DialectPostgres {
		args = append(args, pq.Array(ids))
		return column + " = ANY(" + b.placeholder(len(args)) + ")", args
	}
	first := len(args) + 1
	for _, id := range ids {
		args = append(args, id)
	}
	return column + " IN (" + b.placeholders(first, len(ids)) + ")", args
}

// inStrings is inIDs for text columns.
func (b *Backend) inStrings(column string, values []string, args []any) (string, []any) {
	if b.dialect == DialectPostgres {
		args = append(args, pq.Array(values))
		return column + " = ANY(" + b.placeholder(len(args)) + ")", args
	}
	first := len(args) + 1
	for _, v := range values {
		args = append(args, v)
	}
	return column + " IN (" + b.placeholders(first, len(values)) + ")", args
}

// timeColumn scans a timestamp stored as TIMESTAMPTZ, integer microseconds or text.
type timeColumn struct {
	Time  time.Time
	Valid bool
}

// Scan implements sql.Scanner.
func (c *timeColumn) Scan(src any) error {
	c.Valid = true
	switch v := src.(type) {
	case nil:
		c.Time, c.Valid = time.Time{}, false
	case time.Time:
		c.Time = v.UTC()
	case int64:
		c.Time = time.UnixMicro(v).UTC()
	case float64:
		c.Time = time.UnixMicro(int64(v)).UTC()
	case []byte:
		return c.parse(string(v))
	case string:
		return c.parse(v)
	default:
		return fmt.Errorf("cannot scan %T into timestamp", src)
	}
	return nil
}

func (c *timeColumn) parse(s string) error {
	if micros, err := strconv.ParseInt(s, 10, 64); err == nil {
		c.Time = time.UnixMicro(micros).UTC()
		return nil
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02 15:04:05.999999999-07:00", "2006-01-02 15:04:05.999999999"} {
		if t, err := time.Parse(layout, s); err == nil {
			c.Time = t.UTC()
			return nil
		}
	}
	return fmt.Errorf("cannot parse timestamp %q", s)
}
