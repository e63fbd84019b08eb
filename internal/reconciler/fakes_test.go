package reconciler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/kurihiro0119/github-mirror/internal/domain"
	apperrors "github.com/kurihiro0119/github-mirror/internal/errors"
)

// memStore is an in-memory storage.Store.
type memStore struct {
	mu      sync.Mutex
	records map[string]domain.MirrorRecord
	runs    []*domain.MirrorRun
	puts    int
	getErr  error
	putErr  error
}

func newMemStore() *memStore {
	return &memStore{records: map[string]domain.MirrorRecord{}}
}

func (s *memStore) GetMirror(_ context.Context, name string) (*domain.MirrorRecord, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.getErr != nil {
		return nil, false, s.getErr
	}
	r, ok := s.records[name]
	if !ok {
		return nil, false, nil
	}
	return &r, true, nil
}

func (s *memStore) PutMirror(_ context.Context, record *domain.MirrorRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.putErr != nil {
		return s.putErr
	}
	s.puts++
	s.records[record.Name] = *record
	return nil
}

func (s *memStore) ListMirrors(context.Context) ([]*domain.MirrorRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*domain.MirrorRecord
	for _, r := range s.records {
		out = append(out, &r)
	}
	return out, nil
}

func (s *memStore) SaveRun(_ context.Context, run *domain.MirrorRun) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs = append(s.runs, run)
	return nil
}

func (s *memStore) ListRuns(context.Context, int) ([]*domain.MirrorRun, error) {
	return s.runs, nil
}

func (s *memStore) Migrate(context.Context) error { return nil }
func (s *memStore) Close() error                  { return nil }

// fakeDriver records every call as "op dest" and fails the ops listed in
// failures.
type fakeDriver struct {
	calls    []string
	failures map[string]int // "op dest" -> remaining failures, -1 for always
	mtimes   map[string]time.Time
}

func newFakeDriver() *fakeDriver {
	return &fakeDriver{failures: map[string]int{}, mtimes: map[string]time.Time{}}
}

func (d *fakeDriver) failOn(op, dest string, times int) {
	d.failures[op+" "+dest] = times
}

func (d *fakeDriver) do(op, dest string) error {
	key := op + " " + dest
	d.calls = append(d.calls, key)
	switch n := d.failures[key]; {
	case n < 0:
		return apperrors.NewMirrorPathError(dest, op, errors.New("exit status 128"))
	case n > 0:
		d.failures[key] = n - 1
		return apperrors.NewMirrorPathError(dest, op, fmt.Errorf("attempt failed, %d left", n-1))
	}
	return nil
}

func (d *fakeDriver) count(op string) int {
	n := 0
	for _, c := range d.calls {
		if len(c) > len(op) && c[:len(op)+1] == op+" " {
			n++
		}
	}
	return n
}

func (d *fakeDriver) CloneMirror(_ context.Context, _, dest string) error {
	return d.do("clone", dest)
}

func (d *fakeDriver) FetchUpdates(_ context.Context, dest string) error {
	return d.do("fetch", dest)
}

func (d *fakeDriver) SetDefaultBranch(_ context.Context, dest, _ string) error {
	return d.do("branch", dest)
}

func (d *fakeDriver) SetDescription(dest, _ string) error {
	return d.do("description", dest)
}

func (d *fakeDriver) SetModificationTime(dest string, t time.Time) error {
	d.mtimes[dest] = t
	return d.do("mtime", dest)
}

func (d *fakeDriver) WriteHostConfig(dest, _ string) error {
	return d.do("hostconfig", dest)
}
