package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/mr1hm/go-triage-dispatch/internal/models"
)

type SQLiteDB struct {
	db *sql.DB
}

// NewSQLiteDB opens the database at path and applies the schema. The pool
// is pinned to one connection: SQLite allows a single writer anyway, and
// it keeps ":memory:" databases alive for the life of the store.
func NewSQLiteDB(path string, busyTimeout time.Duration) (*SQLiteDB, error) {
	if path != ":memory:" && !strings.HasPrefix(path, "file:") {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("error creating database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("error opening database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("error while pinging database: %w", err)
	}

	pragmas := []string{
		"PRAGMA foreign_keys = ON",
		fmt.Sprintf("PRAGMA busy_timeout = %d", busyTimeout.Milliseconds()),
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("error applying %q: %w", p, err)
		}
	}

	s := &SQLiteDB{
		db: db,
	}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("error while migrating to database: %w", err)
	}

	return s, nil
}

func (s *SQLiteDB) migrate() error {
	schema := `
		CREATE TABLE IF NOT EXISTS hospitals (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL,
			lat REAL NOT NULL,
			lng REAL NOT NULL,
			total_beds INTEGER NOT NULL CHECK (total_beds >= 0),
			available_beds INTEGER NOT NULL CHECK (available_beds >= 0 AND available_beds <= total_beds),
			specialty TEXT NOT NULL DEFAULT ''
		);

		CREATE TABLE IF NOT EXISTS victims (
			id TEXT PRIMARY KEY,
			age REAL NOT NULL,
			heart_rate REAL NOT NULL,
			spo2 REAL NOT NULL,
			temperature REAL NOT NULL,
			triage_level INTEGER NOT NULL CHECK (triage_level BETWEEN 0 AND 3),
			lat REAL NOT NULL,
			lng REAL NOT NULL,
			created_at INTEGER NOT NULL,
			status TEXT NOT NULL CHECK (status IN ('unassigned', 'assigned')),
			hospital_id INTEGER REFERENCES hospitals(id),
			degraded INTEGER NOT NULL DEFAULT 0,
			CHECK ((status = 'assigned') = (hospital_id IS NOT NULL))
		);

		CREATE TABLE IF NOT EXISTS clusters (
			id INTEGER PRIMARY KEY,
			lat REAL NOT NULL,
			lng REAL NOT NULL,
			count INTEGER NOT NULL,
			avg_severity REAL NOT NULL,
			radius REAL NOT NULL
		);

		CREATE TABLE IF NOT EXISTS cluster_snapshots (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			unassigned INTEGER NOT NULL CHECK (unassigned >= 0),
			computed_at INTEGER NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_victims_status ON victims(status);
		CREATE INDEX IF NOT EXISTS idx_victims_priority ON victims(triage_level DESC, created_at DESC);
	`

	_, err := s.db.Exec(schema)
	return err
}

func (s *SQLiteDB) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLiteDB) Close() error {
	return s.db.Close()
}

// storeErr tags err as a timeout when ctx ran out, otherwise as a
// persistence failure.
func storeErr(ctx context.Context, op string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: %s: %v", models.ErrTimeout, op, err)
	}
	return fmt.Errorf("%w: %s: %v", models.ErrPersistence, op, err)
}
