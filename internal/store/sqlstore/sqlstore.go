// Package sqlstore implements store.Querier on database/sql, building
// statements with goqu. It serves both the embedded sqlite database and a
// postgres deployment of the same schema.
package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	_ "github.com/doug-martin/goqu/v9/dialect/sqlite3"
	"github.com/doug-martin/goqu/v9/exp"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"github.com/sanspareilsmyn/fishlens/internal/config"
	"github.com/sanspareilsmyn/fishlens/internal/record"
	"github.com/sanspareilsmyn/fishlens/internal/store"
)

// TimestampLayout is how sqlite stores frame timestamps. Text in this layout
// sorts chronologically, so the range predicate compares correctly as text.
const TimestampLayout = record.TimestampLayout

type Store struct {
	db      *sql.DB
	goquDb  *goqu.Database
	dialect string
}

// Open connects to the configured SQL backend. driver is config.DriverSQLite
// or config.DriverPostgres.
func Open(driver, dsn string) (*Store, error) {
	var sqlDriver, dialect string
	switch driver {
	case config.DriverSQLite:
		sqlDriver, dialect = "sqlite", "sqlite3"
	case config.DriverPostgres:
		sqlDriver, dialect = "pgx", "postgres"
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedDriver, driver)
	}

	if dialect == "sqlite3" && dsn != ":memory:" && !strings.HasPrefix(dsn, "file:") {
		if err := os.MkdirAll(filepath.Dir(dsn), 0o755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := sql.Open(sqlDriver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", driver, err)
	}

	if dialect == "sqlite3" {
		// An in-memory database lives and dies with its connection.
		db.SetMaxOpenConns(1)
		if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
			db.Close()
			return nil, fmt.Errorf("set journal mode: %w", err)
		}
		if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
			db.Close()
			return nil, fmt.Errorf("set busy timeout: %w", err)
		}
	}

	return New(db, dialect), nil
}

// New wraps an existing connection. dialect is a goqu dialect name.
func New(db *sql.DB, dialect string) *Store {
	return &Store{
		db:      db,
		goquDb:  goqu.New(dialect, db),
		dialect: dialect,
	}
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Select implements store.Querier.
func (s *Store) Select(ctx context.Context, q store.Query) ([]record.Record, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	query, args, err := s.selectDataset(q).Prepared(true).ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build %s query: %w", q.Collection, err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", store.ErrQueryFailed, q.Collection, err)
	}
	defer rows.Close()

	records, err := scanRecords(rows)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", store.ErrQueryFailed, q.Collection, err)
	}
	return records, nil
}

func (s *Store) selectDataset(q store.Query) *goqu.SelectDataset {
	cols := make([]interface{}, len(q.Columns))
	for i, c := range q.Columns {
		cols[i] = goqu.C(c)
	}

	var where []exp.Expression
	if q.KeyColumn != "" {
		keys := make([]interface{}, len(q.Keys))
		for i, k := range q.Keys {
			keys[i] = k
		}
		where = append(where, goqu.C(q.KeyColumn).In(keys...))
	}
	if r := q.Range; r != nil {
		if r.From != "" {
			where = append(where, goqu.C(r.Column).Gte(r.From))
		}
		if r.To != "" {
			where = append(where, goqu.C(r.Column).Lte(r.To))
		}
	}

	ds := s.goquDb.From(goqu.T(q.Collection)).Select(cols...)
	if len(where) > 0 {
		ds = ds.Where(goqu.And(where...))
	}
	return ds
}

func scanRecords(rows *sql.Rows) ([]record.Record, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	records := make([]record.Record, 0)
	for rows.Next() {
		values := make([]interface{}, len(columns))
		ptrs := make([]interface{}, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		rec := make(record.Record, len(columns))
		for i, col := range columns {
			rec[col] = values[i]
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// timestampValue renders a frame timestamp for the active dialect.
func (s *Store) timestampValue(t time.Time) interface{} {
	if s.dialect == "sqlite3" {
		return t.UTC().Format(TimestampLayout)
	}
	return t.UTC()
}
