// Package storagetest holds behaviour tests shared by every Store backend.
package storagetest

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kurihiro0119/github-mirror/internal/domain"
	"github.com/kurihiro0119/github-mirror/internal/storage"
)

// Opener opens the backend under test. Calling it twice with the same test
// must return a store over the same durable state.
type Opener func(t *testing.T) storage.Store

// PathPerTest returns a function mapping each (sub)test to a stable file
// path under dir.
func PathPerTest(dir, ext string) func(t *testing.T) string {
	return func(t *testing.T) string {
		return filepath.Join(dir, strings.ReplaceAll(t.Name(), "/", "_")+ext)
	}
}

var timeCmp = cmp.Comparer(func(a, b time.Time) bool { return a.Equal(b) })

// Run exercises the Store contract against the backend returned by open.
func Run(t *testing.T, open Opener) {
	t.Run("GetMissing", func(t *testing.T) {
		s := open(t)
		defer s.Close()

		record, ok, err := s.GetMirror(context.Background(), "nope")
		require.NoError(t, err)
		assert.False(t, ok)
		assert.Nil(t, record)
	})

	t.Run("PutGetReplace", func(t *testing.T) {
		ctx := context.Background()
		s := open(t)
		defer s.Close()

		t0 := time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC)
		t1 := t0.Add(time.Hour)
		first := &domain.MirrorRecord{
			Name:          "foo",
			LastUpdatedAt: t0,
			LastPushedAt:  t0,
			LocalPath:     "/srv/git/foo.git",
			Description:   "a repo",
			MirroredAt:    t0,
		}
		require.NoError(t, s.PutMirror(ctx, first))

		got, ok, err := s.GetMirror(ctx, "foo")
		require.NoError(t, err)
		require.True(t, ok)
		if diff := cmp.Diff(first, got, timeCmp); diff != "" {
			t.Errorf("GetMirror() mismatch (-want +got):\n%s", diff)
		}

		second := *first
		second.LastPushedAt = t1
		second.Description = ""
		require.NoError(t, s.PutMirror(ctx, &second))
		require.NoError(t, s.PutMirror(ctx, &second))

		got, ok, err = s.GetMirror(ctx, "foo")
		require.NoError(t, err)
		require.True(t, ok)
		if diff := cmp.Diff(&second, got, timeCmp); diff != "" {
			t.Errorf("GetMirror() after replace mismatch (-want +got):\n%s", diff)
		}

		all, err := s.ListMirrors(ctx)
		require.NoError(t, err)
		assert.Len(t, all, 1)
	})

	t.Run("ZeroPushedAt", func(t *testing.T) {
		ctx := context.Background()
		s := open(t)
		defer s.Close()

		record := &domain.MirrorRecord{
			Name:          "empty",
			LastUpdatedAt: time.Date(2022, 5, 1, 12, 0, 0, 0, time.UTC),
			LocalPath:     "/srv/git/empty.git",
		}
		require.NoError(t, s.PutMirror(ctx, record))

		got, ok, err := s.GetMirror(ctx, "empty")
		require.NoError(t, err)
		require.True(t, ok)
		assert.True(t, got.LastPushedAt.IsZero())
		assert.False(t, got.MirroredAt.IsZero())
	})

	t.Run("SurvivesReopen", func(t *testing.T) {
		ctx := context.Background()
		s := open(t)
		require.NoError(t, s.PutMirror(ctx, &domain.MirrorRecord{Name: "kept", LocalPath: "/srv/git/kept.git"}))
		require.NoError(t, s.Close())

		s = open(t)
		defer s.Close()
		_, ok, err := s.GetMirror(ctx, "kept")
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("Runs", func(t *testing.T) {
		ctx := context.Background()
		s := open(t)
		defer s.Close()

		base := time.Date(2023, 3, 1, 0, 0, 0, 0, time.UTC)
		older := &domain.MirrorRun{ID: "run-1", Account: "octocat", Status: domain.RunStatusCompleted, StartedAt: base}
		newer := &domain.MirrorRun{ID: "run-2", Account: "octocat", Status: domain.RunStatusInProgress, StartedAt: base.Add(time.Hour)}
		require.NoError(t, s.SaveRun(ctx, older))
		require.NoError(t, s.SaveRun(ctx, newer))

		finished := base.Add(2 * time.Hour)
		newer.Status = domain.RunStatusFailed
		newer.Cloned, newer.Failed = 3, 1
		newer.Error = "1 repository failed"
		newer.FinishedAt = &finished
		require.NoError(t, s.SaveRun(ctx, newer))

		runs, err := s.ListRuns(ctx, 10)
		require.NoError(t, err)
		require.Len(t, runs, 2)
		if diff := cmp.Diff(newer, runs[0], timeCmp); diff != "" {
			t.Errorf("ListRuns()[0] mismatch (-want +got):\n%s", diff)
		}
		assert.Equal(t, "run-1", runs[1].ID)
		assert.Nil(t, runs[1].FinishedAt)

		runs, err = s.ListRuns(ctx, 1)
		require.NoError(t, err)
		require.Len(t, runs, 1)
		assert.Equal(t, "run-2", runs[0].ID)
	})
}
