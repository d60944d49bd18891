// Package store archives merged poll cycles to SQLite. The archive is
// write-only from the tracker's point of view: the merge path never
// reads it back.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// Store wraps a SQLite database holding one row per poll cycle and one
// row per train per cycle.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the snapshot database at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path+"?_journal=WAL&_fk=1")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Init creates the snapshot tables if they do not exist.
func (s *Store) Init(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS snapshots (
			snapshot_id   TEXT PRIMARY KEY,
			polled_at_utc TEXT NOT NULL,
			service_date  TEXT NOT NULL,
			train_count   INTEGER NOT NULL
		);
		CREATE TABLE IF NOT EXISTS snapshot_trains (
			snapshot_id    TEXT NOT NULL REFERENCES snapshots(snapshot_id),
			block_no       INTEGER NOT NULL,
			state          TEXT NOT NULL,
			train_number   TEXT,
			category       TEXT,
			direction      TEXT,
			destination    INTEGER,
			formation      INTEGER,
			premium_car    INTEGER NOT NULL,
			delay_minutes  INTEGER NOT NULL,
			location_col   INTEGER,
			location_row   INTEGER,
			PRIMARY KEY (snapshot_id, block_no)
		);
		CREATE INDEX IF NOT EXISTS idx_snapshot_trains_block
			ON snapshot_trains(block_no);
	`)
	if err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}
