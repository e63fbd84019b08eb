package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	_ "github.com/lib/pq"

	"github.com/kurihiro0119/github-mirror/internal/domain"
	"github.com/kurihiro0119/github-mirror/internal/storage"
)

// postgresStorage implements the Store interface for PostgreSQL
type postgresStorage struct {
	db *sql.DB
}

// NewPostgresStorage creates a new PostgreSQL storage instance
func NewPostgresStorage(connStr string) (storage.Store, error) {
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, err
	}

	// Test connection
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &postgresStorage{db: db}
	if err := s.Migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}

	return s, nil
}

// Migrate runs database migrations
func (s *postgresStorage) Migrate(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS mirrors (
		name TEXT PRIMARY KEY,
		last_updated_at TIMESTAMPTZ,
		last_pushed_at TIMESTAMPTZ,
		local_path TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		mirrored_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
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
		started_at TIMESTAMPTZ NOT NULL,
		finished_at TIMESTAMPTZ
	);

	CREATE INDEX IF NOT EXISTS idx_mirror_runs_started_at ON mirror_runs(started_at);
	`

	_, err := s.db.ExecContext(ctx, schema)
	return err
}

// GetMirror returns the record stored under name
func (s *postgresStorage) GetMirror(ctx context.Context, name string) (*domain.MirrorRecord, bool, error) {
	var (
		record              domain.MirrorRecord
		updatedAt, pushedAt sql.NullTime
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT name, last_updated_at, last_pushed_at, local_path, description, mirrored_at
		FROM mirrors WHERE name = $1
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
func (s *postgresStorage) PutMirror(ctx context.Context, record *domain.MirrorRecord) error {
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
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (name) DO UPDATE SET
			last_updated_at = EXCLUDED.last_updated_at,
			last_pushed_at = EXCLUDED.last_pushed_at,
			local_path = EXCLUDED.local_path,
			description = EXCLUDED.description,
			mirrored_at = EXCLUDED.mirrored_at
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
func (s *postgresStorage) ListMirrors(ctx context.Context) ([]*domain.MirrorRecord, error) {
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
func (s *postgresStorage) SaveRun(ctx context.Context, run *domain.MirrorRun) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO mirror_runs (id, account, status, cloned, updated, unchanged, skipped, failed, error, started_at, finished_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			cloned = EXCLUDED.cloned,
			updated = EXCLUDED.updated,
			unchanged = EXCLUDED.unchanged,
			skipped = EXCLUDED.skipped,
			failed = EXCLUDED.failed,
			error = EXCLUDED.error,
			finished_at = EXCLUDED.finished_at
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
func (s *postgresStorage) ListRuns(ctx context.Context, limit int) ([]*domain.MirrorRun, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, account, status, cloned, updated, unchanged, skipped, failed, error, started_at, finished_at
		FROM mirror_runs ORDER BY started_at DESC LIMIT $1
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
func (s *postgresStorage) Close() error {
	return s.db.Close()
}
