package storage

import (
	"context"
	"time"

	"github.com/kurihiro0119/github-mirror/internal/domain"
)

// Store is the abstract interface for the persistence layer. It is not safe
// for use by more than one process at a time.
type Store interface {
	// Mirror record operations
	GetMirror(ctx context.Context, name string) (*domain.MirrorRecord, bool, error)
	PutMirror(ctx context.Context, record *domain.MirrorRecord) error
	ListMirrors(ctx context.Context) ([]*domain.MirrorRecord, error)

	// Run history
	SaveRun(ctx context.Context, run *domain.MirrorRun) error
	ListRuns(ctx context.Context, limit int) ([]*domain.MirrorRun, error)

	// Migration
	Migrate(ctx context.Context) error

	// Connection management
	Close() error
}

// NullTime maps the zero time to NULL
func NullTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.UTC()
}

// NullTimePtr maps a nil time to NULL
func NullTimePtr(t *time.Time) any {
	if t == nil {
		return nil
	}
	return NullTime(*t)
}
