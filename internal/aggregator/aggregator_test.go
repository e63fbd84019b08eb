package aggregator

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kurihiro0119/github-mirror/internal/domain"
	"github.com/kurihiro0119/github-mirror/internal/storage/bolt"
)

func TestRecord(t *testing.T) {
	a := NewAggregator(nil)
	report := &domain.Report{Account: "octocat"}

	a.Record(report, "a", domain.OutcomeCloned, nil)
	a.Record(report, "b", domain.OutcomeUpdated, nil)
	a.Record(report, "c", domain.OutcomeUnchanged, nil)
	a.Record(report, "d", domain.OutcomeUnchanged, nil)
	a.Record(report, "e", domain.OutcomeSkipped, nil)
	cause := errors.New("clone failed")
	a.Record(report, "f", domain.OutcomeFailed, cause)

	assert.Equal(t, 1, report.Cloned)
	assert.Equal(t, 1, report.Updated)
	assert.Equal(t, 2, report.Unchanged)
	assert.Equal(t, 1, report.Skipped)
	assert.Equal(t, 1, report.Failed)
	assert.Equal(t, 6, report.Total())
	require.Len(t, report.Failures, 1)
	assert.Equal(t, "f", report.Failures[0].Repo)
	assert.ErrorIs(t, report.Err(), cause)
}

func TestSummarize(t *testing.T) {
	ctx := context.Background()
	store, err := bolt.NewBoltStorage(filepath.Join(t.TempDir(), "state.bolt"))
	require.NoError(t, err)
	defer store.Close()

	a := NewAggregator(store)
	empty, err := a.Summarize(ctx)
	require.NoError(t, err)
	assert.Equal(t, &domain.Summary{}, empty)

	early := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	late := early.Add(time.Hour)
	require.NoError(t, store.PutMirror(ctx, &domain.MirrorRecord{Name: "a", LocalPath: "/a.git", MirroredAt: early}))
	require.NoError(t, store.PutMirror(ctx, &domain.MirrorRecord{Name: "b", LocalPath: "/b.git", MirroredAt: late}))
	require.NoError(t, store.SaveRun(ctx, &domain.MirrorRun{ID: "old", Account: "octocat", Status: domain.RunStatusCompleted, StartedAt: early}))
	require.NoError(t, store.SaveRun(ctx, &domain.MirrorRun{ID: "new", Account: "octocat", Status: domain.RunStatusFailed, StartedAt: late}))

	summary, err := a.Summarize(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Mirrors)
	require.NotNil(t, summary.LastSyncAt)
	assert.True(t, late.Equal(*summary.LastSyncAt))
	require.NotNil(t, summary.LastRun)
	assert.Equal(t, "new", summary.LastRun.ID)
}
