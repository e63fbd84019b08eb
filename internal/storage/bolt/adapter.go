package bolt

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"time"

	"go.etcd.io/bbolt"

	"github.com/kurihiro0119/github-mirror/internal/domain"
	"github.com/kurihiro0119/github-mirror/internal/storage"
)

const (
	bucketMirrors = "mirrors" // key: repository name -> MirrorRecord JSON
	bucketRuns    = "runs"    // key: run ID -> MirrorRun JSON
)

// boltStorage implements the Store interface on a bbolt file
type boltStorage struct {
	db *bbolt.DB
}

// NewBoltStorage opens (creating if absent) a bbolt store at path. Opening
// fails after a second if another process holds the file.
func NewBoltStorage(path string) (storage.Store, error) {
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, err
	}

	s := &boltStorage{db: db}
	if err := s.Migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}

	return s, nil
}

// Migrate creates the buckets
func (s *boltStorage) Migrate(_ context.Context) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		for _, name := range []string{bucketMirrors, bucketRuns} {
			if _, err := tx.CreateBucketIfNotExists([]byte(name)); err != nil {
				return err
			}
		}
		return nil
	})
}

// GetMirror returns the record stored under name
func (s *boltStorage) GetMirror(_ context.Context, name string) (*domain.MirrorRecord, bool, error) {
	var record *domain.MirrorRecord

	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket([]byte(bucketMirrors)).Get([]byte(name))
		if data == nil {
			return nil
		}
		record = &domain.MirrorRecord{}
		return json.Unmarshal(data, record)
	})
	if err != nil {
		return nil, false, err
	}
	return record, record != nil, nil
}

// PutMirror replaces the record with the same name in one transaction
func (s *boltStorage) PutMirror(_ context.Context, record *domain.MirrorRecord) error {
	if record.Name == "" {
		return errors.New("record name is required")
	}

	stored := *record
	if stored.MirroredAt.IsZero() {
		stored.MirroredAt = time.Now()
	}
	data, err := json.Marshal(&stored)
	if err != nil {
		return err
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(bucketMirrors)).Put([]byte(record.Name), data)
	})
}

// ListMirrors returns all records ordered by name
func (s *boltStorage) ListMirrors(_ context.Context) ([]*domain.MirrorRecord, error) {
	var records []*domain.MirrorRecord

	err := s.db.View(func(tx *bbolt.Tx) error {
		// bbolt iterates keys in byte order
		return tx.Bucket([]byte(bucketMirrors)).ForEach(func(_, v []byte) error {
			var record domain.MirrorRecord
			if err := json.Unmarshal(v, &record); err != nil {
				return err
			}
			records = append(records, &record)
			return nil
		})
	})

	return records, err
}

// SaveRun inserts or updates a run history entry
func (s *boltStorage) SaveRun(_ context.Context, run *domain.MirrorRun) error {
	data, err := json.Marshal(run)
	if err != nil {
		return err
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(bucketRuns)).Put([]byte(run.ID), data)
	})
}

// ListRuns returns the most recent runs first
func (s *boltStorage) ListRuns(_ context.Context, limit int) ([]*domain.MirrorRun, error) {
	if limit <= 0 {
		limit = 20
	}

	var runs []*domain.MirrorRun
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(bucketRuns)).ForEach(func(_, v []byte) error {
			var run domain.MirrorRun
			if err := json.Unmarshal(v, &run); err != nil {
				return err
			}
			runs = append(runs, &run)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(runs, func(i, j int) bool {
		return runs[i].StartedAt.After(runs[j].StartedAt)
	})
	if len(runs) > limit {
		runs = runs[:limit]
	}
	return runs, nil
}

// Close closes the database
func (s *boltStorage) Close() error {
	return s.db.Close()
}
