package collector

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kurihiro0119/github-mirror/internal/domain"
	apperrors "github.com/kurihiro0119/github-mirror/internal/errors"
	"github.com/kurihiro0119/github-mirror/internal/logging"
)

const page1 = `[
  {"name": "alpha", "clone_url": "https://github.com/octocat/alpha.git", "description": "first",
   "size": 120, "default_branch": "main", "fork": false,
   "created_at": "2020-01-01T00:00:00Z", "updated_at": "2021-01-01T00:00:00Z", "pushed_at": "2021-02-01T00:00:00Z"},
  {"name": "beta", "git_url": "git://github.com/octocat/beta.git", "description": null,
   "size": 0, "default_branch": "master", "fork": true,
   "created_at": "2020-01-01T00:00:00Z", "updated_at": "2020-01-01T00:00:00Z"}
]`

const page2 = `[
  {"name": "gamma", "clone_url": "https://github.com/octocat/gamma.git", "size": 5, "default_branch": "trunk",
   "created_at": "2020-01-01T00:00:00Z", "updated_at": "2022-01-01T00:00:00Z", "pushed_at": "2022-01-01T00:00:00Z"}
]`

func newTestSource(t *testing.T, handler http.Handler) Source {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	src, err := NewGitHubSource(GitHubOptions{
		BaseURL: server.URL,
		Logger:  logging.Discard(),
	})
	require.NoError(t, err)
	return src
}

func pagedHandler(t *testing.T, calls *atomic.Int32) http.Handler {
	mux := http.NewServeMux()
	var base string
	mux.HandleFunc("/users/octocat/repos", func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, "owner", r.URL.Query().Get("type"))
		assert.Equal(t, "100", r.URL.Query().Get("per_page"))
		if base == "" {
			base = "http://" + r.Host
		}
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Query().Get("page") {
		case "", "1":
			w.Header().Set("Link", fmt.Sprintf(`<%s/users/octocat/repos?page=2&per_page=100&type=owner>; rel="next"`, base))
			fmt.Fprint(w, page1)
		case "2":
			fmt.Fprint(w, page2)
		default:
			t.Errorf("unexpected page %q", r.URL.Query().Get("page"))
		}
	})
	return mux
}

func collect(t *testing.T, src Source) ([]*domain.Repository, error) {
	t.Helper()
	var repos []*domain.Repository
	for repo, err := range src.ListRepositories(context.Background(), "octocat") {
		if err != nil {
			return repos, err
		}
		repos = append(repos, repo)
	}
	return repos, nil
}

func TestListRepositoriesPaginates(t *testing.T) {
	var calls atomic.Int32
	src := newTestSource(t, pagedHandler(t, &calls))

	repos, err := collect(t, src)
	require.NoError(t, err)
	require.Len(t, repos, 3)
	assert.Equal(t, int32(2), calls.Load())

	alpha := repos[0]
	assert.Equal(t, "alpha", alpha.Name)
	assert.Equal(t, "octocat", alpha.Owner)
	assert.Equal(t, "https://github.com/octocat/alpha.git", alpha.CloneURL)
	assert.Equal(t, "first", alpha.Description)
	assert.Equal(t, int64(120), alpha.Size)
	assert.Equal(t, "main", alpha.DefaultBranch)
	assert.Equal(t, time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC), alpha.UpdatedAt.UTC())
	assert.Equal(t, time.Date(2021, 2, 1, 0, 0, 0, 0, time.UTC), alpha.PushedAt.UTC())

	beta := repos[1]
	assert.Equal(t, "https://github.com/octocat/beta.git", beta.CloneURL)
	assert.Empty(t, beta.Description)
	assert.True(t, beta.Fork)
	assert.True(t, beta.PushedAt.IsZero())

	assert.Equal(t, "gamma", repos[2].Name)
}

func TestListRepositoriesRestartsFromFirstPage(t *testing.T) {
	var calls atomic.Int32
	src := newTestSource(t, pagedHandler(t, &calls))
	seq := src.ListRepositories(context.Background(), "octocat")

	for repo, err := range seq {
		require.NoError(t, err)
		assert.Equal(t, "alpha", repo.Name)
		break
	}
	assert.Equal(t, int32(1), calls.Load())

	var names []string
	for repo, err := range seq {
		require.NoError(t, err)
		names = append(names, repo.Name)
	}
	assert.Equal(t, []string{"alpha", "beta", "gamma"}, names)
	assert.Equal(t, int32(3), calls.Load())
}

func TestListRepositoriesRemoteUnavailable(t *testing.T) {
	src := newTestSource(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"message": "Bad credentials"}`)
	}))

	repos, err := collect(t, src)
	require.Error(t, err)
	assert.Empty(t, repos)
	assert.True(t, apperrors.IsRemoteUnavailable(err))
	assert.Contains(t, err.Error(), "octocat")
}

func TestRateLimiterHonoursContext(t *testing.T) {
	rl := NewRateLimiter(time.Hour, logging.Discard())
	require.NoError(t, rl.Wait(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, rl.Wait(ctx), context.Canceled)

	rl.UpdateLimit(42, time.Unix(0, 0))
	remaining, reset := rl.CheckLimit()
	assert.Equal(t, 42, remaining)
	assert.Equal(t, time.Unix(0, 0), reset)
}
