/*
Package sqlite provides a SQLite-backed implementation of the storage interfaces.

PURPOSE:
  Gives the lookup service a local, single-file store that survives
  restarts: the cache slots of the last good catalog and a log of refresh
  attempts.

INTERFACES IMPLEMENTED:
  catalog.KV:          String slots with a byte quota
  catalog.RunRecorder: Refresh run log

KEY TABLES:
  kv:            key TEXT PRIMARY KEY, value TEXT, updated_at
  refresh_runs:  One row per Controller.Init call

QUOTA:
  The sum of key and value bytes across kv is capped (default 5 MiB, the
  usual browser local-storage budget). A Set that would exceed it fails
  with catalog.ErrQuotaExceeded and leaves the previous value in place.

CONCURRENCY:
  Uses sync.RWMutex for thread-safety on top of SQLite's own locking, so
  the quota check and the write happen as one step.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging):
  - Readers don't block the writer
  - Better crash recovery

USAGE:
  store, err := sqlite.New("./data/storemap.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  c := cache.New(store)

MIGRATION:
  Schema is auto-migrated on New().

SEE ALSO:
  - catalog/store.go: Interface definitions
  - cache/cache.go: Slot layout on top of the KV
  - catalog/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/warp/storemap/catalog"
)

// DefaultQuota is the byte budget for the kv table.
const DefaultQuota = 5 << 20

// timeLayout is fixed-width so stored timestamps sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Store implements all storage interfaces using SQLite.
type Store struct {
	db    *sql.DB
	mu    sync.RWMutex
	quota int
}

var (
	_ catalog.KV          = (*Store)(nil)
	_ catalog.RunRecorder = (*Store)(nil)
)

// Option configures a Store.
type Option func(*Store)

// WithQuota sets the kv byte budget. quota <= 0 disables the check.
func WithQuota(quota int) Option {
	return func(s *Store) { s.quota = quota }
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string, opts ...Option) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if dbPath == ":memory:" {
		// Each connection to :memory: is a separate database.
		db.SetMaxOpenConns(1)
	}

	store := &Store{db: db, quota: DefaultQuota}
	for _, opt := range opts {
		opt(store)
	}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	-- Cache slots
	CREATE TABLE IF NOT EXISTS kv (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	-- Refresh runs (one per Init call)
	CREATE TABLE IF NOT EXISTS refresh_runs (
		id TEXT PRIMARY KEY,
		forced BOOLEAN NOT NULL DEFAULT FALSE,
		outcome TEXT NOT NULL,
		item_count INTEGER NOT NULL DEFAULT 0,
		shelf_count INTEGER NOT NULL DEFAULT 0,
		error TEXT,
		started_at TEXT NOT NULL,
		completed_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_refresh_runs_started
		ON refresh_runs(started_at DESC);
	CREATE INDEX IF NOT EXISTS idx_refresh_runs_outcome
		ON refresh_runs(outcome);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// KV STORE (catalog.KV interface)
// =============================================================================

// Get returns the value stored under key.
func (s *Store) Get(ctx context.Context, key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read %q: %w", key, err)
	}
	return value, true, nil
}

// Set stores value under key, subject to the quota.
func (s *Store) Set(ctx context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if s.quota > 0 {
		var others int64
		err := tx.QueryRowContext(ctx, `
			SELECT COALESCE(SUM(LENGTH(CAST(key AS BLOB)) + LENGTH(CAST(value AS BLOB))), 0)
			FROM kv WHERE key != ?
		`, key).Scan(&others)
		if err != nil {
			return fmt.Errorf("failed to measure storage: %w", err)
		}
		if others+int64(len(key)+len(value)) > int64(s.quota) {
			return catalog.ErrQuotaExceeded
		}
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			value = excluded.value,
			updated_at = excluded.updated_at
	`, key, value, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to write %q: %w", key, err)
	}

	return tx.Commit()
}

// Delete removes key. Missing keys are not an error.
func (s *Store) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.ExecContext(ctx, `DELETE FROM kv WHERE key = ?`, key); err != nil {
		return fmt.Errorf("failed to delete %q: %w", key, err)
	}
	return nil
}

// Usage returns the bytes currently counted against the quota.
func (s *Store) Usage(ctx context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var used int64
	err := s.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(LENGTH(CAST(key AS BLOB)) + LENGTH(CAST(value AS BLOB))), 0) FROM kv
	`).Scan(&used)
	return used, err
}

// =============================================================================
// REFRESH RUNS (catalog.RunRecorder interface)
// =============================================================================

// SaveRefreshRun records one Init call.
func (s *Store) SaveRefreshRun(ctx context.Context, r catalog.RefreshRun) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO refresh_runs (id, forced, outcome, item_count, shelf_count,
			error, started_at, completed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			outcome = excluded.outcome,
			item_count = excluded.item_count,
			shelf_count = excluded.shelf_count,
			error = excluded.error,
			completed_at = excluded.completed_at
	`

	_, err := s.db.ExecContext(ctx, query,
		r.ID, r.Forced, string(r.Outcome), r.ItemCount, r.ShelfCount,
		nullString(r.Error),
		r.StartedAt.UTC().Format(timeLayout),
		r.CompletedAt.UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("failed to save refresh run: %w", err)
	}
	return nil
}

// GetRefreshRuns returns the most recent runs, newest first. limit <= 0
// returns all of them.
func (s *Store) GetRefreshRuns(ctx context.Context, limit int) ([]catalog.RefreshRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT id, forced, outcome, item_count, shelf_count, error, started_at, completed_at
		FROM refresh_runs
		ORDER BY started_at DESC
	`
	var args []any
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []catalog.RefreshRun
	for rows.Next() {
		var r catalog.RefreshRun
		var outcome string
		var errText sql.NullString
		var startedAt, completedAt string
		if err := rows.Scan(
			&r.ID, &r.Forced, &outcome, &r.ItemCount, &r.ShelfCount,
			&errText, &startedAt, &completedAt,
		); err != nil {
			return nil, err
		}
		r.Outcome = catalog.RefreshOutcome(outcome)
		r.Error = errText.String
		r.StartedAt, _ = time.Parse(timeLayout, startedAt)
		r.CompletedAt, _ = time.Parse(timeLayout, completedAt)
		runs = append(runs, r)
	}

	return runs, rows.Err()
}

// =============================================================================
// UTILITIES
// =============================================================================

// Reset clears all data (for testing/demo).
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, table := range []string{"kv", "refresh_runs"} {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return err
		}
	}
	return nil
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
