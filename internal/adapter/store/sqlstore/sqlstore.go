// Package sqlstore persists the hierarchy and forecast tables in SQLite or
// PostgreSQL through sqlx.
//
// Every Replace call deletes and re-inserts one table inside a single
// transaction, so a reader sees either the previous or the new set and a
// failed insert leaves the previous set in place.
package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"slices"

	_ "github.com/jackc/pgx/v5/stdlib" // registers "pgx"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite" // registers "sqlite"
)

// Dialects.
const (
	SQLite   = "sqlite"
	Postgres = "postgres"
)

// insertChunk bounds the rows per INSERT so the bind parameter count stays
// under SQLite and PostgreSQL limits.
const insertChunk = 500

// Store is a sqlx-backed store.
type Store struct {
	db *sqlx.DB
}

// Open connects to dsn, creates missing tables and returns the store.
func Open(ctx context.Context, dialect, dsn string) (*Store, error) {
	var db *sqlx.DB
	switch dialect {
	case SQLite:
		raw, err := sql.Open("sqlite", dsn)
		if err != nil {
			return nil, fmt.Errorf("open sqlite: %w", err)
		}
		// One writer at a time; also keeps ":memory:" on a single connection.
		raw.SetMaxOpenConns(1)
		db = sqlx.NewDb(raw, "sqlite3")
	case Postgres:
		raw, err := sql.Open("pgx", dsn)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		db = sqlx.NewDb(raw, "pgx")
	default:
		return nil, fmt.Errorf("unknown sql dialect %q", dialect)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping %s: %w", dialect, err)
	}
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("create schema: %w", err)
		}
	}
	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

func replaceTable[T any](ctx context.Context, db *sqlx.DB, table, insert string, rows []T) error {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin %s: %w", table, err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
		return fmt.Errorf("clear %s: %w", table, err)
	}
	for chunk := range slices.Chunk(rows, insertChunk) {
		if _, err := tx.NamedExecContext(ctx, insert, chunk); err != nil {
			return fmt.Errorf("insert %s: %w", table, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit %s: %w", table, err)
	}
	return nil
}

func selectAll[T any](ctx context.Context, db *sqlx.DB, query string) ([]T, error) {
	var rows []T
	if err := db.SelectContext(ctx, &rows, query); err != nil {
		return nil, err
	}
	return rows, nil
}
