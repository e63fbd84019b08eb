package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/kurihiro0119/github-mirror/internal/domain"
	"github.com/kurihiro0119/github-mirror/internal/storage"
)

// sqliteStorage implements the Store interface for SQLite
type sqliteStorage struct {
	db *sql.DB
}

// NewSQLiteStorage opens (creating if absent) a SQLite store at dbPath
func NewSQLiteStorage(dbPath string) (storage.Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000&_synchronous=FULL")
	if err != nil {
		return nil, err
	}
	// a single connection keeps every write on the same WAL handle
	db.SetMaxOpenConns(1)

	s := &sqliteStorage{db: db}
	if err := s.Migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}

	return s, nil
}

// Migrate runs database migrations
func (s *sqliteStorage) Migrate(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS mirrors (
		name TEXT PRIMARY KEY,
		last_updated_at TIMESTAMP,
		last_pushed_at TIMESTAMP,
		local_path TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		mirrored_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS mirror_runs (
		id TEXT PRIMARY KEY,
		account TEXT NOT NULL,
		status TEXT NOT NULL,
		cloned INTEGER NOT NULL DEFAULT 0,
		updated INTEGER NOT NULL DEFAULT 0,
		unchanged INTEGER NOT NULL DEFAULT 0,
		skipped INTEGER NOT NULL DEFAULT 0,
		failed INTEGER NOT NULL DEFAULT 0,
		error TEXT NOT NULL DEFAULT '',
		started_at TIMESTAMP NOT NULL,
		finished_at TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_mirror_runs_started_at ON mirror_runs(started_at);
	`

	_, err := s.db.ExecContext(ctx, schema)
	return err
}

// GetMirror returns the record stored under name
func (s *sqliteStorage) GetMirror(ctx context.Context, name string) (*domain.MirrorRecord, bool, error) {
	var (
		record              domain.MirrorRecord
		updatedAt, pushedAt sql.NullTime
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT name, last_updated_at, last_pushed_at, local_path, description, mirrored_at
		FROM mirrors WHERE name = ?
	`, name).Scan(&record.Name, &updatedAt, &pushedAt, &record.LocalPath, &record.Description, &record.MirroredAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	record.LastUpdatedAt = updatedAt.Time
	record.LastPushedAt = pushedAt.Time
	return &record, true, nil
}

// PutMirror inserts or replaces the record with the same name
func (s *sqliteStorage) PutMirror(ctx context.Context, record *domain.MirrorRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	mirroredAt := record.MirroredAt
	if mirroredAt.IsZero() {
		mirroredAt = time.Now()
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO mirrors (name, last_updated_at, last_pushed_at, local_path, description, mirrored_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			last_updated_at = excluded.last_updated_at,
			last_pushed_at = excluded.last_pushed_at,
			local_path = excluded.local_path,
			description = excluded.description,
			mirrored_at = excluded.mirrored_at
	`,
		record.Name,
		storage.NullTime(record.LastUpdatedAt),
		storage.NullTime(record.LastPushedAt),
		record.LocalPath,
		record.Description,
		mirroredAt.UTC(),
	)
	if err != nil {
		return err
	}

	return tx.Commit()
}

// ListMirrors returns all records ordered by name
func (s *sqliteStorage) ListMirrors(ctx context.Context) ([]*domain.MirrorRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT name, last_updated_at, last_pushed_at, local_path, description, mirrored_at
		FROM mirrors ORDER BY name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []*domain.MirrorRecord
	for rows.Next() {
		var (
			record              domain.MirrorRecord
			updatedAt, pushedAt sql.NullTime
		)
		if err := rows.Scan(&record.Name, &updatedAt, &pushedAt, &record.LocalPath, &record.Description, &record.MirroredAt); err != nil {
			return nil, err
		}
		record.LastUpdatedAt = updatedAt.Time
		record.LastPushedAt = pushedAt.Time
		records = append(records, &record)
	}
	return records, rows.Err()
}

// SaveRun inserts or updates a run history entry
func (s *sqliteStorage) SaveRun(ctx context.Context, run *domain.MirrorRun) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO mirror_runs (id, account, status, cloned, updated, unchanged, skipped, failed, error, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			status = excluded.status,
			cloned = excluded.cloned,
			updated = excluded.updated,
			unchanged = excluded.unchanged,
			skipped = excluded.skipped,
			failed = excluded.failed,
			error = excluded.error,
			finished_at = excluded.finished_at
	`,
		run.ID,
		run.Account,
		string(run.Status),
		run.Cloned,
		run.Updated,
		run.Unchanged,
		run.Skipped,
		run.Failed,
		run.Error,
		run.StartedAt.UTC(),
		storage.NullTimePtr(run.FinishedAt),
	)
	return err
}

// ListRuns returns the most recent runs first
func (s *sqliteStorage) ListRuns(ctx context.Context, limit int) ([]*domain.MirrorRun, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, account, status, cloned, updated, unchanged, skipped, failed, error, started_at, finished_at
		FROM mirror_runs ORDER BY started_at DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []*domain.MirrorRun
	for rows.Next() {
		var (
			run        domain.MirrorRun
			status     string
			finishedAt sql.NullTime
		)
		if err := rows.Scan(&run.ID, &run.Account, &status, &run.Cloned, &run.Updated, &run.Unchanged,
			&run.Skipped, &run.Failed, &run.Error, &run.StartedAt, &finishedAt); err != nil {
			return nil, err
		}
		run.Status = domain.RunStatus(status)
		if finishedAt.Valid {
			t := finishedAt.Time
			run.FinishedAt = &t
		}
		runs = append(runs, &run)
	}
	return runs, rows.Err()
}

// Close closes the database
func (s *sqliteStorage) Close() error {
	return s.db.Close()
}
