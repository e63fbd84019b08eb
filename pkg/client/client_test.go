package client

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/kurihiro0119/github-mirror/internal/errors"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"status":"ok"}`)
	})
	mux.HandleFunc("GET /api/v1/mirrors", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"data":[{"name":"foo","local_path":"/srv/git/foo.git","last_pushed_at":"2024-03-01T12:00:00Z"}]}`)
	})
	mux.HandleFunc("GET /api/v1/mirrors/{name}", func(w http.ResponseWriter, r *http.Request) {
		if r.PathValue("name") != "foo" {
			w.WriteHeader(http.StatusNotFound)
			fmt.Fprint(w, `{"error":{"code":"NOT_FOUND","message":"mirror \"bar\" not found"}}`)
			return
		}
		fmt.Fprint(w, `{"data":{"name":"foo","local_path":"/srv/git/foo.git"}}`)
	})
	mux.HandleFunc("GET /api/v1/runs", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "5", r.URL.Query().Get("limit"))
		fmt.Fprint(w, `{"data":[{"id":"run-1","account":"octocat","status":"completed","cloned":2}]}`)
	})
	mux.HandleFunc("POST /api/v1/runs", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		fmt.Fprint(w, `{"error":{"code":"CONFLICT","message":"a mirror run is already in progress"}}`)
	})
	mux.HandleFunc("GET /api/v1/summary", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"data":{"mirrors":3,"last_run":{"id":"run-1"}},"next_run":"2024-03-01T13:00:00Z"}`)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestClient(t *testing.T) {
	ctx := context.Background()
	c := NewClient(newTestServer(t).URL + "/")

	require.NoError(t, c.HealthCheck(ctx))

	mirrors, err := c.ListMirrors(ctx)
	require.NoError(t, err)
	require.Len(t, mirrors, 1)
	assert.Equal(t, "foo", mirrors[0].Name)
	assert.Equal(t, 2024, mirrors[0].LastPushedAt.Year())

	mirror, err := c.GetMirror(ctx, "foo")
	require.NoError(t, err)
	assert.Equal(t, "/srv/git/foo.git", mirror.LocalPath)

	_, err = c.GetMirror(ctx, "bar")
	assert.True(t, apperrors.IsNotFound(err), "got %v", err)

	runs, err := c.ListRuns(ctx, 5)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, 2, runs[0].Cloned)

	summary, err := c.GetSummary(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, summary.Mirrors)
	assert.Equal(t, "run-1", summary.LastRun.ID)
	require.NotNil(t, summary.NextRun)
	assert.Equal(t, 13, summary.NextRun.Hour())

	err = c.TriggerRun(ctx)
	assert.True(t, apperrors.IsConflict(err), "got %v", err)
}

func TestClientUnstructuredError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad gateway", http.StatusBadGateway)
	}))
	defer srv.Close()

	err := NewClient(srv.URL).HealthCheck(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}
