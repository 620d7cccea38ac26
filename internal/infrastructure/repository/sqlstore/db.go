// Package sqlstore persists study guides in SQLite (modernc.org/sqlite, the
// default) or PostgreSQL (pgx). Both dialects share one schema. Timestamps are
// stored as fixed-width UTC text so ordering is identical everywhere.
package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "pgx"

	timeLayout = "2006-01-02T15:04:05.000000000Z07:00"
	schemaLock = int64(2026101801)
)

func OpenDB(ctx context.Context, driver, dsn string) (*sql.DB, error) {
	driver = normalizeDriver(driver)
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}

	switch driver {
	case DriverSQLite:
		// One connection keeps ":memory:" databases alive and serializes writers.
		db.SetMaxOpenConns(1)
		db.SetConnMaxLifetime(0)
		for _, pragma := range []string{
			"PRAGMA journal_mode=WAL",
			"PRAGMA busy_timeout=5000",
		} {
			if _, err := db.ExecContext(ctx, pragma); err != nil {
				db.Close()
				return nil, fmt.Errorf("%s: %w", pragma, err)
			}
		}
	default:
		db.SetMaxOpenConns(10)
		db.SetMaxIdleConns(10)
		db.SetConnMaxLifetime(30 * time.Minute)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

func normalizeDriver(driver string) string {
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "pgx", "postgres", "postgresql":
		return DriverPostgres
	default:
		return DriverSQLite
	}
}

// rebind rewrites '?' placeholders to '$n' for PostgreSQL.
func rebind(driver, query string) string {
	if driver != DriverPostgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
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

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(raw string) (time.Time, error) {
	t, err := time.Parse(timeLayout, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", raw, err)
	}
	return t.UTC(), nil
}
